package ports

import (
	"context"
	"errors"

	"location-route-preprocessor/internal/domain"
)

// NetworkKind selects which road network a graph covers.
type NetworkKind string

const (
	NetworkWalk  NetworkKind = "walk"
	NetworkDrive NetworkKind = "drive"
)

// ErrNoPath is returned by Graph.ShortestPath when the nodes are not
// connected.
var ErrNoPath = errors.New("no path between nodes")

// GraphNode pairs a graph node id with its geographic position.
type GraphNode struct {
	ID    domain.NodeID
	Point domain.GeoPoint
}

// Graph is a loaded, routable road network. Implementations must be safe for
// concurrent reads; the core never mutates a graph after load.
type Graph interface {
	// Fingerprint identifies the loaded graph's content. Node ids are only
	// comparable between graphs with equal fingerprints.
	Fingerprint() string

	// Nodes returns every node with its position. Used once to build the
	// nearest-node index.
	Nodes() []GraphNode

	// NodePoint returns the position of one node.
	NodePoint(id domain.NodeID) (domain.GeoPoint, bool)

	// ShortestPath returns the minimum-total-edge-length node sequence from a
	// to b, or ErrNoPath when the nodes are not connected.
	ShortestPath(a, b domain.NodeID) ([]domain.NodeID, error)

	// EdgeGeometry returns the coordinate sequence and length in meters of
	// the edge from a to b. The edge must exist.
	EdgeGeometry(a, b domain.NodeID) ([]domain.GeoPoint, float64, error)
}

// Contract for acquiring a routable road-network graph for one region.
// Loading is a one-time, possibly slow and network-dependent operation
// performed before any route computation starts.
type GraphProvider interface {
	LoadGraph(ctx context.Context, center domain.GeoPoint, radiusMeters float64, kind NetworkKind) (Graph, error)
}
