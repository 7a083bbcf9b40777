package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"location-route-preprocessor/internal/adapters/cache"
	"location-route-preprocessor/internal/adapters/geoindex"
	"location-route-preprocessor/internal/adapters/graph"
	"location-route-preprocessor/internal/domain"
	"location-route-preprocessor/internal/ports"
)

// testGraph builds a line 1 - 2 - 3 spaced ~111 m apart plus a detached
// island node 50.
func testGraph(t *testing.T) *graph.MemGraph {
	t.Helper()

	g := graph.NewMemGraph("resolver-test")
	pts := map[domain.NodeID]domain.GeoPoint{
		1:  {Lat: 52.500, Lon: 13.400},
		2:  {Lat: 52.501, Lon: 13.400},
		3:  {Lat: 52.502, Lon: 13.400},
		50: {Lat: 52.550, Lon: 13.450},
	}
	for id, p := range pts {
		g.AddNode(id, p)
	}
	g.AddEdge(1, 2, pts[1].DistanceMeters(pts[2]), nil)
	g.AddEdge(2, 3, pts[2].DistanceMeters(pts[3]), nil)
	return g
}

func testNetwork(t *testing.T, g ports.Graph) Network {
	t.Helper()

	idx := geoindex.NewS2Index(g.Nodes())
	c, err := cache.NewNodeCache(idx, nil, cache.NodeCacheConfig{
		BudgetMB:          1,
		QuantizePrecision: 5,
		MaxRadiusMeters:   200,
		GraphFingerprint:  g.Fingerprint(),
	})
	if err != nil {
		t.Fatal(err)
	}
	return Network{Graph: g, Cache: c}
}

func testResolver(t *testing.T) *RouteResolver {
	t.Helper()
	net := testNetwork(t, testGraph(t))
	return &RouteResolver{Walk: net, Drive: net}
}

func seg(id int, start, end domain.GeoPoint) domain.Segment {
	return domain.Segment{ID: id, Start: start, End: end, Kind: domain.ActivityWalking}
}

func TestResolveSuccess(t *testing.T) {
	r := testResolver(t)

	out := r.Resolve(context.Background(),
		seg(7, domain.GeoPoint{Lat: 52.5001, Lon: 13.4001}, domain.GeoPoint{Lat: 52.5021, Lon: 13.4001}))

	if out.Failure != nil {
		t.Fatalf("unexpected failure: %+v", out.Failure)
	}
	if out.SegmentID != 7 || out.Route.SegmentID != 7 {
		t.Fatalf("segment id not propagated: %+v", out)
	}

	want := []domain.NodeID{1, 2, 3}
	if len(out.Route.Nodes) != len(want) {
		t.Fatalf("nodes = %v, want %v", out.Route.Nodes, want)
	}
	for i := range want {
		if out.Route.Nodes[i] != want[i] {
			t.Fatalf("nodes = %v, want %v", out.Route.Nodes, want)
		}
	}

	// Two ~111 m edges.
	if out.Route.TotalDistanceMeters < 200 || out.Route.TotalDistanceMeters > 250 {
		t.Fatalf("distance = %f", out.Route.TotalDistanceMeters)
	}
	if len(out.Route.Coords) != 3 {
		t.Fatalf("coords = %v, want 3 joints", out.Route.Coords)
	}
}

func TestResolveDegenerateSegment(t *testing.T) {
	r := testResolver(t)

	// Both endpoints snap to node 1.
	out := r.Resolve(context.Background(),
		seg(0, domain.GeoPoint{Lat: 52.50001, Lon: 13.40001}, domain.GeoPoint{Lat: 52.50002, Lon: 13.40002}))

	if out.Failure != nil {
		t.Fatalf("unexpected failure: %+v", out.Failure)
	}
	if len(out.Route.Nodes) != 1 || out.Route.Nodes[0] != 1 {
		t.Fatalf("nodes = %v, want [1]", out.Route.Nodes)
	}
	if len(out.Route.Coords) != 1 {
		t.Fatalf("coords = %v, want single point", out.Route.Coords)
	}
	if out.Route.TotalDistanceMeters != 0 {
		t.Fatalf("distance = %f, want 0", out.Route.TotalDistanceMeters)
	}
}

func TestResolveNoNearbyNode(t *testing.T) {
	r := testResolver(t)

	// Start is fine, end is in the middle of nowhere.
	out := r.Resolve(context.Background(),
		seg(1, domain.GeoPoint{Lat: 52.5001, Lon: 13.4001}, domain.GeoPoint{Lat: 53.0, Lon: 14.0}))

	if out.Route != nil {
		t.Fatalf("unexpected route: %+v", out.Route)
	}
	if out.Failure.Reason != domain.FailureNoNearbyNode {
		t.Fatalf("reason = %v, want NoNearbyNode", out.Failure.Reason)
	}

	// A sibling segment still resolves.
	sibling := r.Resolve(context.Background(),
		seg(2, domain.GeoPoint{Lat: 52.5001, Lon: 13.4001}, domain.GeoPoint{Lat: 52.5021, Lon: 13.4001}))
	if sibling.Failure != nil {
		t.Fatalf("sibling failed: %+v", sibling.Failure)
	}
}

func TestResolveNoPathFound(t *testing.T) {
	r := testResolver(t)

	// Node 50 is valid but disconnected.
	out := r.Resolve(context.Background(),
		seg(3, domain.GeoPoint{Lat: 52.5001, Lon: 13.4001}, domain.GeoPoint{Lat: 52.5501, Lon: 13.4501}))

	if out.Failure == nil || out.Failure.Reason != domain.FailureNoPathFound {
		t.Fatalf("outcome = %+v, want NoPathFound", out)
	}
}

func TestResolveGraphUnavailable(t *testing.T) {
	nodes := []ports.GraphNode{
		{ID: 1, Point: domain.GeoPoint{Lat: 52.500, Lon: 13.400}},
		{ID: 2, Point: domain.GeoPoint{Lat: 52.502, Lon: 13.400}},
	}

	erroring := &graph.MockGraph{
		FingerprintStr: "broken",
		NodeList:       nodes,
		PathFunc: func(a, b domain.NodeID) ([]domain.NodeID, error) {
			return nil, errors.New("backend gone")
		},
	}
	net := testNetwork(t, erroring)
	r := &RouteResolver{Walk: net, Drive: net}

	out := r.Resolve(context.Background(),
		seg(4, domain.GeoPoint{Lat: 52.500, Lon: 13.400}, domain.GeoPoint{Lat: 52.502, Lon: 13.400}))
	if out.Failure == nil || out.Failure.Reason != domain.FailureGraphUnavailable {
		t.Fatalf("outcome = %+v, want GraphUnavailable", out)
	}

	panicking := &graph.MockGraph{
		FingerprintStr: "panics",
		NodeList:       nodes,
		PathFunc: func(a, b domain.NodeID) ([]domain.NodeID, error) {
			panic("provider went sideways")
		},
	}
	net = testNetwork(t, panicking)
	r = &RouteResolver{Walk: net, Drive: net}

	out = r.Resolve(context.Background(),
		seg(5, domain.GeoPoint{Lat: 52.500, Lon: 13.400}, domain.GeoPoint{Lat: 52.502, Lon: 13.400}))
	if out.Failure == nil || out.Failure.Reason != domain.FailureGraphUnavailable {
		t.Fatalf("outcome = %+v, want GraphUnavailable after panic", out)
	}
}

func TestResolveTimeout(t *testing.T) {
	r := testResolver(t)

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	out := r.Resolve(ctx,
		seg(6, domain.GeoPoint{Lat: 52.5001, Lon: 13.4001}, domain.GeoPoint{Lat: 52.5021, Lon: 13.4001}))
	if out.Failure == nil || out.Failure.Reason != domain.FailureTimeout {
		t.Fatalf("outcome = %+v, want Timeout", out)
	}
}

func TestResolvePicksNetworkByKind(t *testing.T) {
	walkOnly := testNetwork(t, testGraph(t))

	// The drive network has no nodes near the segment.
	emptyDrive := testNetwork(t, graph.NewMemGraph("empty-drive"))

	r := &RouteResolver{Walk: walkOnly, Drive: emptyDrive}

	s := seg(0, domain.GeoPoint{Lat: 52.5001, Lon: 13.4001}, domain.GeoPoint{Lat: 52.5021, Lon: 13.4001})

	s.Kind = domain.ActivityWalking
	if out := r.Resolve(context.Background(), s); out.Failure != nil {
		t.Fatalf("walking segment failed: %+v", out.Failure)
	}

	s.Kind = domain.ActivityDriving
	if out := r.Resolve(context.Background(), s); out.Failure == nil ||
		out.Failure.Reason != domain.FailureNoNearbyNode {
		t.Fatalf("driving segment should miss the empty drive network")
	}
}
