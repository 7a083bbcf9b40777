package domain

import (
	"strings"
	"time"
)

// ActivityKind is the closed set of movement kinds a segment can carry.
// It is resolved once at extraction time and never re-interpreted downstream.
type ActivityKind uint8

const (
	ActivityOther ActivityKind = iota
	ActivityWalking
	ActivityDriving
)

func (k ActivityKind) String() string {
	switch k {
	case ActivityWalking:
		return "walking"
	case ActivityDriving:
		return "driving"
	default:
		return "other"
	}
}

// ActivityKindFromLabel maps the free-text activity labels found in history
// exports (e.g. "walking", "in passenger vehicle") onto the closed enum.
func ActivityKindFromLabel(label string) ActivityKind {
	l := strings.ToLower(label)
	switch {
	case strings.Contains(l, "walking"), strings.Contains(l, "on foot"):
		return ActivityWalking
	case strings.Contains(l, "vehicle"), strings.Contains(l, "driving"), strings.Contains(l, "motorcycling"):
		return ActivityDriving
	default:
		return ActivityOther
	}
}

// Represents a single inferred movement between two points.
// The ID is the segment's position in chronological order and assigns the
// total order the scheduler must restore on output. Read-only after
// extraction.
type Segment struct {
	ID        int
	Start     GeoPoint
	End       GeoPoint
	StartTime time.Time
	EndTime   time.Time
	Kind      ActivityKind
}

// Represents dwell time at one location, not a movement.
// Visits pass through the pipeline without any graph interaction.
type Visit struct {
	Location  GeoPoint
	StartTime time.Time
	EndTime   time.Time
}
