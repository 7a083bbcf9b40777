package graph

import (
	"location-route-preprocessor/internal/domain"
	"location-route-preprocessor/internal/ports"
)

// MockGraph lets tests script graph behavior, including failures.
type MockGraph struct {
	FingerprintStr string
	NodeList       []ports.GraphNode
	PathFunc       func(a, b domain.NodeID) ([]domain.NodeID, error)
	GeomFunc       func(a, b domain.NodeID) ([]domain.GeoPoint, float64, error)
}

var _ ports.Graph = (*MockGraph)(nil)

func (m *MockGraph) Fingerprint() string { return m.FingerprintStr }

func (m *MockGraph) Nodes() []ports.GraphNode { return m.NodeList }

func (m *MockGraph) NodePoint(id domain.NodeID) (domain.GeoPoint, bool) {
	for _, n := range m.NodeList {
		if n.ID == id {
			return n.Point, true
		}
	}
	return domain.GeoPoint{}, false
}

func (m *MockGraph) ShortestPath(a, b domain.NodeID) ([]domain.NodeID, error) {
	return m.PathFunc(a, b)
}

func (m *MockGraph) EdgeGeometry(a, b domain.NodeID) ([]domain.GeoPoint, float64, error) {
	return m.GeomFunc(a, b)
}
