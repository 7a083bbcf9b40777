package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"location-route-preprocessor/internal/domain"
)

// Document is the preprocessed artifact consumed by downstream rendering:
// one entry per input segment (route or failure), the untouched visits, and
// a data-quality summary.
type Document struct {
	Routes   []RouteDoc   `json:"routes"`
	Failures []FailureDoc `json:"failures"`
	Visits   []VisitDoc   `json:"visits"`
	Summary  Summary      `json:"summary"`
}

type RouteDoc struct {
	SegmentID      int          `json:"segment_id"`
	ActivityKind   string       `json:"activity_kind"`
	StartTime      time.Time    `json:"start_time"`
	EndTime        time.Time    `json:"end_time"`
	Nodes          []int64      `json:"nodes"`
	Coords         [][2]float64 `json:"coords"` // [lat, lon] pairs
	DistanceMeters float64      `json:"distance_meters"`
}

type FailureDoc struct {
	SegmentID int    `json:"segment_id"`
	Reason    string `json:"reason"`
}

type VisitDoc struct {
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

type Summary struct {
	Segments       int            `json:"segments"`
	Resolved       int            `json:"resolved"`
	Failed         int            `json:"failed"`
	FailureCounts  map[string]int `json:"failure_counts"`
	SkippedEntries int            `json:"skipped_entries"`
}

// BuildDocument assembles the artifact from scheduler outcomes. Outcomes are
// expected in segment-id order; routes and failures preserve that order.
func BuildDocument(
	segments []domain.Segment,
	outcomes []domain.Outcome,
	visits []domain.Visit,
	skippedEntries int,
) Document {
	byID := make(map[int]domain.Segment, len(segments))
	for _, seg := range segments {
		byID[seg.ID] = seg
	}

	doc := Document{
		Routes:   []RouteDoc{},
		Failures: []FailureDoc{},
		Visits:   make([]VisitDoc, 0, len(visits)),
		Summary: Summary{
			Segments:       len(outcomes),
			FailureCounts:  map[string]int{},
			SkippedEntries: skippedEntries,
		},
	}

	for _, out := range outcomes {
		if out.Failure != nil {
			doc.Failures = append(doc.Failures, FailureDoc{
				SegmentID: out.SegmentID,
				Reason:    out.Failure.Reason.String(),
			})
			doc.Summary.Failed++
			doc.Summary.FailureCounts[out.Failure.Reason.String()]++
			continue
		}

		seg := byID[out.SegmentID]

		nodes := make([]int64, len(out.Route.Nodes))
		for i, n := range out.Route.Nodes {
			nodes[i] = int64(n)
		}
		coords := make([][2]float64, len(out.Route.Coords))
		for i, p := range out.Route.Coords {
			coords[i] = [2]float64{p.Lat, p.Lon}
		}

		doc.Routes = append(doc.Routes, RouteDoc{
			SegmentID:      out.SegmentID,
			ActivityKind:   out.Route.Kind.String(),
			StartTime:      seg.StartTime,
			EndTime:        seg.EndTime,
			Nodes:          nodes,
			Coords:         coords,
			DistanceMeters: out.Route.TotalDistanceMeters,
		})
		doc.Summary.Resolved++
	}

	for _, v := range visits {
		doc.Visits = append(doc.Visits, VisitDoc{
			Lat:       v.Location.Lat,
			Lon:       v.Location.Lon,
			StartTime: v.StartTime,
			EndTime:   v.EndTime,
		})
	}

	return doc
}

// Write serializes the document to path. The write goes through a temp file
// and rename so an interrupted run never leaves a half-written artifact.
func Write(path string, doc Document) error {
	// Same directory as the target so the final rename stays atomic.
	tmp, err := os.CreateTemp(filepath.Dir(path), ".preprocessed-*.json")
	if err != nil {
		return fmt.Errorf("write output: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	enc := json.NewEncoder(tmp)
	if err := enc.Encode(doc); err != nil {
		tmp.Close()
		return fmt.Errorf("write output: encode document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write output: close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write output: move into place: %w", err)
	}

	return nil
}
