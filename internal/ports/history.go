package ports

import (
	"time"

	"location-route-preprocessor/internal/domain"
)

// TimelinePoint is one raw ping from a history export's timeline path.
type TimelinePoint struct {
	Time  time.Time
	Point domain.GeoPoint
}

// ActivityRecord is one recorded movement with a start, an end, and a
// free-text activity label.
type ActivityRecord struct {
	StartTime time.Time
	EndTime   time.Time
	Start     domain.GeoPoint
	End       domain.GeoPoint
	Label     string
}

// History is the decoded, chronologically ordered content of one location
// history export, restricted to a time window. Produced by a history loader;
// malformed entries are skipped and counted, never fatal.
type History struct {
	TimelinePoints []TimelinePoint
	Activities     []ActivityRecord
	Visits         []domain.Visit
	// Skipped counts malformed entries and points that were dropped.
	Skipped int
}
