package services

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"location-route-preprocessor/internal/adapters/cache"
	"location-route-preprocessor/internal/domain"
	"location-route-preprocessor/internal/platform/obs"
	"location-route-preprocessor/internal/ports"
)

// Network bundles one loaded graph with the node-resolution cache built over
// its node set.
type Network struct {
	Graph ports.Graph
	Cache *cache.NodeCache
}

// RouteResolver resolves one segment at a time: snap both endpoints to graph
// nodes, then compute the shortest path between them. Walking segments route
// on the walk network; everything else routes on the drive network.
//
// All failure modes become ResolutionFailure data. Nothing a single segment
// does can abort the batch.
type RouteResolver struct {
	Walk  Network
	Drive Network
}

func (r *RouteResolver) network(kind domain.ActivityKind) Network {
	if kind == domain.ActivityWalking {
		return r.Walk
	}
	return r.Drive
}

func failure(seg domain.Segment, reason domain.FailureReason) domain.Outcome {
	return domain.Outcome{
		SegmentID: seg.ID,
		Failure:   &domain.ResolutionFailure{SegmentID: seg.ID, Reason: reason},
	}
}

// Resolve produces exactly one outcome for the segment. The context carries
// the per-attempt time budget; exceeding it yields a Timeout failure. The
// budget is checked between the expensive steps, so an attempt overruns by at
// most one step.
func (r *RouteResolver) Resolve(ctx context.Context, seg domain.Segment) (out domain.Outcome) {
	// A panicking graph provider must not take the worker down with it.
	defer func() {
		if rec := recover(); rec != nil {
			obs.L().Error("graph provider panicked",
				zap.Int("segment", seg.ID),
				zap.Any("panic", rec))
			out = failure(seg, domain.FailureGraphUnavailable)
		}
	}()

	net := r.network(seg.Kind)

	startNode, err := net.Cache.Resolve(ctx, seg.Start)
	if err != nil {
		return r.cacheFailure(ctx, seg, err)
	}

	endNode, err := net.Cache.Resolve(ctx, seg.End)
	if err != nil {
		return r.cacheFailure(ctx, seg, err)
	}

	if overBudget(ctx) {
		return failure(seg, domain.FailureTimeout)
	}

	// Endpoints closer together than the graph's node spacing snap to one
	// node: a degenerate single-point route, not an error.
	if startNode == endNode {
		p, ok := net.Graph.NodePoint(startNode)
		if !ok {
			return failure(seg, domain.FailureGraphUnavailable)
		}
		return domain.Outcome{
			SegmentID: seg.ID,
			Route: &domain.ResolvedRoute{
				SegmentID: seg.ID,
				Kind:      seg.Kind,
				Nodes:     []domain.NodeID{startNode},
				Coords:    []domain.GeoPoint{p},
			},
		}
	}

	nodes, err := net.Graph.ShortestPath(startNode, endNode)
	if err != nil {
		if errors.Is(err, ports.ErrNoPath) {
			return failure(seg, domain.FailureNoPathFound)
		}
		return failure(seg, domain.FailureGraphUnavailable)
	}

	if overBudget(ctx) {
		return failure(seg, domain.FailureTimeout)
	}

	coords := make([]domain.GeoPoint, 0, len(nodes))
	total := 0.0
	for i := 0; i+1 < len(nodes); i++ {
		geom, length, err := net.Graph.EdgeGeometry(nodes[i], nodes[i+1])
		if err != nil {
			return failure(seg, domain.FailureGraphUnavailable)
		}
		total += length

		// Edges share endpoints; drop the duplicated joint.
		if i > 0 {
			geom = geom[1:]
		}
		coords = append(coords, geom...)
	}

	return domain.Outcome{
		SegmentID: seg.ID,
		Route: &domain.ResolvedRoute{
			SegmentID:           seg.ID,
			Kind:                seg.Kind,
			Nodes:               nodes,
			Coords:              coords,
			TotalDistanceMeters: total,
		},
	}
}

// cacheFailure maps a node-cache error onto the failure taxonomy.
func (r *RouteResolver) cacheFailure(ctx context.Context, seg domain.Segment, err error) domain.Outcome {
	if errors.Is(err, cache.ErrNoNearbyNode) {
		return failure(seg, domain.FailureNoNearbyNode)
	}
	if overBudget(ctx) {
		return failure(seg, domain.FailureTimeout)
	}
	return failure(seg, domain.FailureGraphUnavailable)
}

func overBudget(ctx context.Context) bool {
	return errors.Is(ctx.Err(), context.DeadlineExceeded)
}
