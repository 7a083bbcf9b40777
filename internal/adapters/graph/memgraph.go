package graph

import (
	"container/heap"
	"fmt"

	"location-route-preprocessor/internal/domain"
	"location-route-preprocessor/internal/ports"
)

type edge struct {
	to     domain.NodeID
	length float64
	// shape holds intermediate geometry points between the endpoints,
	// exclusive of both. Empty for straight edges.
	shape []domain.GeoPoint
}

// MemGraph is an in-memory routable road network. Mutable while being built
// by a provider, read-only once handed to the pipeline.
type MemGraph struct {
	fingerprint string
	points      map[domain.NodeID]domain.GeoPoint
	adj         map[domain.NodeID][]edge
}

var _ ports.Graph = (*MemGraph)(nil)

func NewMemGraph(fingerprint string) *MemGraph {
	return &MemGraph{
		fingerprint: fingerprint,
		points:      make(map[domain.NodeID]domain.GeoPoint),
		adj:         make(map[domain.NodeID][]edge),
	}
}

// AddNode registers a node's position. Re-adding an id overwrites it.
func (g *MemGraph) AddNode(id domain.NodeID, p domain.GeoPoint) {
	g.points[id] = p
}

// AddEdge adds an undirected edge between two registered nodes with the
// given length and optional intermediate geometry.
func (g *MemGraph) AddEdge(a, b domain.NodeID, lengthMeters float64, shape []domain.GeoPoint) {
	g.adj[a] = append(g.adj[a], edge{to: b, length: lengthMeters, shape: shape})

	reversed := make([]domain.GeoPoint, len(shape))
	for i, p := range shape {
		reversed[len(shape)-1-i] = p
	}
	g.adj[b] = append(g.adj[b], edge{to: a, length: lengthMeters, shape: reversed})
}

func (g *MemGraph) Fingerprint() string { return g.fingerprint }

// NodeCount returns the number of registered nodes.
func (g *MemGraph) NodeCount() int { return len(g.points) }

func (g *MemGraph) NodePoint(id domain.NodeID) (domain.GeoPoint, bool) {
	p, ok := g.points[id]
	return p, ok
}

func (g *MemGraph) Nodes() []ports.GraphNode {
	out := make([]ports.GraphNode, 0, len(g.points))
	for id, p := range g.points {
		out = append(out, ports.GraphNode{ID: id, Point: p})
	}
	return out
}

type pqItem struct {
	node domain.NodeID
	dist float64
}

type pq []pqItem

func (p pq) Len() int           { return len(p) }
func (p pq) Less(i, j int) bool { return p[i].dist < p[j].dist }
func (p pq) Swap(i, j int)      { p[i], p[j] = p[j], p[i] }

func (p *pq) Push(x any) {
	*p = append(*p, x.(pqItem))
}

func (p *pq) Pop() any {
	old := *p
	n := len(old)
	item := old[n-1]
	*p = old[:n-1]
	return item
}

// ShortestPath runs Dijkstra from a to b weighted by edge length.
func (g *MemGraph) ShortestPath(a, b domain.NodeID) ([]domain.NodeID, error) {
	if _, ok := g.points[a]; !ok {
		return nil, fmt.Errorf("shortest path: unknown node %d", a)
	}
	if _, ok := g.points[b]; !ok {
		return nil, fmt.Errorf("shortest path: unknown node %d", b)
	}

	if a == b {
		return []domain.NodeID{a}, nil
	}

	dist := map[domain.NodeID]float64{a: 0}
	prev := map[domain.NodeID]domain.NodeID{}
	done := map[domain.NodeID]bool{}

	q := &pq{}
	heap.Push(q, pqItem{node: a, dist: 0})

	for q.Len() > 0 {
		cur := heap.Pop(q).(pqItem)
		u := cur.node

		if u == b {
			break
		}
		if done[u] {
			continue
		}
		done[u] = true

		for _, e := range g.adj[u] {
			nd := dist[u] + e.length

			old, found := dist[e.to]
			if !found || nd < old {
				dist[e.to] = nd
				prev[e.to] = u
				heap.Push(q, pqItem{node: e.to, dist: nd})
			}
		}
	}

	if _, ok := dist[b]; !ok {
		return nil, ports.ErrNoPath
	}

	// reconstruct
	path := []domain.NodeID{}
	cur := b

	for cur != a {
		path = append(path, cur)
		cur = prev[cur]
	}
	path = append(path, a)

	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}

	return path, nil
}

// EdgeGeometry returns the coordinate sequence and length of the a->b edge.
// When parallel edges exist, the shortest one is returned.
func (g *MemGraph) EdgeGeometry(a, b domain.NodeID) ([]domain.GeoPoint, float64, error) {
	pa, ok := g.points[a]
	if !ok {
		return nil, 0, fmt.Errorf("edge geometry: unknown node %d", a)
	}
	pb, ok := g.points[b]
	if !ok {
		return nil, 0, fmt.Errorf("edge geometry: unknown node %d", b)
	}

	var best *edge
	for i := range g.adj[a] {
		e := &g.adj[a][i]
		if e.to != b {
			continue
		}
		if best == nil || e.length < best.length {
			best = e
		}
	}
	if best == nil {
		return nil, 0, fmt.Errorf("edge geometry: no edge %d -> %d", a, b)
	}

	coords := make([]domain.GeoPoint, 0, len(best.shape)+2)
	coords = append(coords, pa)
	coords = append(coords, best.shape...)
	coords = append(coords, pb)

	return coords, best.length, nil
}
