package ports

import "location-route-preprocessor/internal/domain"

// Contract for answering "nearest graph node to point P" queries.
// Built once per run from a graph's node set; read-only afterwards, so
// implementations need no synchronization beyond safe concurrent reads.
type NearestNodeIndex interface {
	// Nearest returns the closest node within maxRadiusMeters of p.
	// ok is false when no node lies within the radius.
	Nearest(p domain.GeoPoint, maxRadiusMeters float64) (id domain.NodeID, ok bool)
}
