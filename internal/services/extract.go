package services

import (
	"sort"

	"location-route-preprocessor/internal/domain"
	"location-route-preprocessor/internal/ports"
)

// ExtractSegments turns a decoded history into the ordered list of movement
// segments the scheduler will resolve.
//
// Two sources contribute segments:
//   - consecutive timeline-path pings pair into hops, classified by hop
//     length (above driveThresholdMeters reads as driving, otherwise
//     walking);
//   - activity records carry their own label, mapped once onto the closed
//     ActivityKind enum.
//
// Segment ids are the positions in the merged chronological order; the
// scheduler's output contract is defined in terms of these ids.
func ExtractSegments(h *ports.History, driveThresholdMeters float64) []domain.Segment {
	segments := make([]domain.Segment, 0, len(h.Activities))

	for i := 0; i+1 < len(h.TimelinePoints); i++ {
		cur, next := h.TimelinePoints[i], h.TimelinePoints[i+1]

		kind := domain.ActivityWalking
		if cur.Point.DistanceMeters(next.Point) > driveThresholdMeters {
			kind = domain.ActivityDriving
		}

		segments = append(segments, domain.Segment{
			Start:     cur.Point,
			End:       next.Point,
			StartTime: cur.Time,
			EndTime:   next.Time,
			Kind:      kind,
		})
	}

	for _, a := range h.Activities {
		segments = append(segments, domain.Segment{
			Start:     a.Start,
			End:       a.End,
			StartTime: a.StartTime,
			EndTime:   a.EndTime,
			Kind:      domain.ActivityKindFromLabel(a.Label),
		})
	}

	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].StartTime.Before(segments[j].StartTime)
	})

	for i := range segments {
		segments[i].ID = i
	}

	return segments
}
