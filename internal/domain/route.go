package domain

// NodeID identifies a node of the loaded road-network graph. IDs are opaque
// and only meaningful against the graph loaded for the current run.
type NodeID int64

// Represents the resolved path for one segment.
// Produced exactly once per successfully resolved segment; immutable once
// produced. Nodes and Coords run in travel order, Coords carrying the full
// edge geometry of the traversed path.
type ResolvedRoute struct {
	SegmentID           int
	Kind                ActivityKind
	Nodes               []NodeID
	Coords              []GeoPoint
	TotalDistanceMeters float64
}

// FailureReason classifies why a segment could not be resolved.
type FailureReason uint8

const (
	FailureNoNearbyNode FailureReason = iota
	FailureNoPathFound
	FailureGraphUnavailable
	FailureTimeout
)

func (r FailureReason) String() string {
	switch r {
	case FailureNoNearbyNode:
		return "no_nearby_node"
	case FailureNoPathFound:
		return "no_path_found"
	case FailureGraphUnavailable:
		return "graph_unavailable"
	case FailureTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Produced in place of a ResolvedRoute when resolution fails. Failures are
// data, local to one segment; they never abort the batch.
type ResolutionFailure struct {
	SegmentID int
	Reason    FailureReason
}

// Outcome is the single result every segment produces: exactly one of Route
// or Failure is non-nil.
type Outcome struct {
	SegmentID int
	Route     *ResolvedRoute
	Failure   *ResolutionFailure
}
