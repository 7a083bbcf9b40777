package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/golang/geo/s2"
)

// Mean Earth radius used for great-circle distances.
const EarthRadiusMeters = 6371008.8

// Immutable geographic coordinates (latitude, longitude) in decimal degrees.
// Equality is exact; proximity is a derived relation, not equality.
type GeoPoint struct {
	Lat float64
	Lon float64
}

// Valid reports whether the point lies inside WGS84 coordinate bounds.
func (p GeoPoint) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// DistanceMeters returns the great-circle distance to q.
func (p GeoPoint) DistanceMeters(q GeoPoint) float64 {
	a := s2.LatLngFromDegrees(p.Lat, p.Lon)
	b := s2.LatLngFromDegrees(q.Lat, q.Lon)
	return a.Distance(b).Radians() * EarthRadiusMeters
}

// Quantize collapses the point onto a grid of the given decimal precision,
// so near-duplicate pings share one cache key. Precision 5 is roughly one
// meter at the equator.
func (p GeoPoint) Quantize(precision int) CacheKey {
	scale := math.Pow10(precision)
	return CacheKey{
		LatE: int64(math.Round(p.Lat * scale)),
		LonE: int64(math.Round(p.Lon * scale)),
		Prec: uint8(precision),
	}
}

// ParseGeoURI parses the "geo:lat,lon" encoding used by location-history
// exports for point fields.
func ParseGeoURI(s string) (GeoPoint, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(s), "geo:")
	if !ok {
		return GeoPoint{}, fmt.Errorf("parse geo uri %q: missing geo: prefix", s)
	}

	lat, lon, ok := strings.Cut(rest, ",")
	if !ok {
		return GeoPoint{}, fmt.Errorf("parse geo uri %q: expected lat,lon", s)
	}

	latF, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return GeoPoint{}, fmt.Errorf("parse geo uri %q: latitude: %w", s, err)
	}

	lonF, err := strconv.ParseFloat(strings.TrimSpace(lon), 64)
	if err != nil {
		return GeoPoint{}, fmt.Errorf("parse geo uri %q: longitude: %w", s, err)
	}

	p := GeoPoint{Lat: latF, Lon: lonF}
	if !p.Valid() {
		return GeoPoint{}, fmt.Errorf("parse geo uri %q: coordinates out of range", s)
	}

	return p, nil
}

// CacheKey is a GeoPoint quantized to a fixed decimal precision. Comparable,
// suitable as a map key.
type CacheKey struct {
	LatE int64
	LonE int64
	Prec uint8
}

// String renders a stable textual form for persistent cache tiers.
func (k CacheKey) String() string {
	return fmt.Sprintf("q%d:%d,%d", k.Prec, k.LatE, k.LonE)
}
