package geoindex

import (
	"sort"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"

	"location-route-preprocessor/internal/domain"
	"location-route-preprocessor/internal/ports"
)

// storageLevel is the S2 cell level nodes are bucketed at. Level 15 cells
// have edges around 300 m, which keeps buckets small for road-density node
// sets while covering typical snap radii with few cells.
const storageLevel = 15

// S2Index buckets graph nodes by S2 cell and answers nearest-node queries by
// scanning the buckets covering a spherical cap around the query point.
// Read-only after construction; safe for concurrent use.
type S2Index struct {
	buckets map[s2.CellID][]ports.GraphNode
	keys    []s2.CellID // sorted bucket keys for range scans
}

var _ ports.NearestNodeIndex = (*S2Index)(nil)

// NewS2Index builds the index from a graph's node set.
func NewS2Index(nodes []ports.GraphNode) *S2Index {
	idx := &S2Index{buckets: make(map[s2.CellID][]ports.GraphNode)}

	for _, n := range nodes {
		ll := s2.LatLngFromDegrees(n.Point.Lat, n.Point.Lon)
		cell := s2.CellIDFromLatLng(ll).Parent(storageLevel)
		idx.buckets[cell] = append(idx.buckets[cell], n)
	}

	idx.keys = make([]s2.CellID, 0, len(idx.buckets))
	for cell := range idx.buckets {
		idx.keys = append(idx.keys, cell)
	}
	sort.Slice(idx.keys, func(i, j int) bool { return idx.keys[i] < idx.keys[j] })

	return idx
}

// Len returns the number of indexed nodes.
func (idx *S2Index) Len() int {
	n := 0
	for _, b := range idx.buckets {
		n += len(b)
	}
	return n
}

// Nearest returns the closest indexed node within maxRadiusMeters of p.
func (idx *S2Index) Nearest(p domain.GeoPoint, maxRadiusMeters float64) (domain.NodeID, bool) {
	if maxRadiusMeters <= 0 || len(idx.keys) == 0 {
		return 0, false
	}

	center := s2.PointFromLatLng(s2.LatLngFromDegrees(p.Lat, p.Lon))
	angle := s1.Angle(maxRadiusMeters / domain.EarthRadiusMeters)
	cap := s2.CapFromCenterAngle(center, angle)

	coverer := &s2.RegionCoverer{MaxLevel: storageLevel, MaxCells: 16}
	covering := coverer.Covering(cap)

	bestID := domain.NodeID(0)
	bestDist := maxRadiusMeters
	found := false

	for _, cell := range covering {
		idx.scanRange(cell, p, &bestID, &bestDist, &found)
	}

	return bestID, found
}

// scanRange visits every bucket whose cell id falls inside cell's leaf range
// and updates the running best match.
func (idx *S2Index) scanRange(cell s2.CellID, p domain.GeoPoint, bestID *domain.NodeID, bestDist *float64, found *bool) {
	lo := cell.RangeMin().Parent(storageLevel)
	hi := cell.RangeMax().Parent(storageLevel)

	i := sort.Search(len(idx.keys), func(i int) bool { return idx.keys[i] >= lo })
	for ; i < len(idx.keys) && idx.keys[i] <= hi; i++ {
		for _, n := range idx.buckets[idx.keys[i]] {
			d := p.DistanceMeters(n.Point)
			if d < *bestDist || (!*found && d == *bestDist) {
				*bestID = n.ID
				*bestDist = d
				*found = true
			}
		}
	}
}
