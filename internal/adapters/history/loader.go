package history

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"go.uber.org/zap"

	"location-route-preprocessor/internal/domain"
	"location-route-preprocessor/internal/platform/obs"
	"location-route-preprocessor/internal/ports"
)

// Wire shape of the on-device location-history export: a flat array of
// entries, each carrying exactly one of timelinePath, visit, or activity.
type rawEntry struct {
	StartTime    string `json:"startTime"`
	EndTime      string `json:"endTime"`
	TimelinePath []struct {
		Point string `json:"point"`
	} `json:"timelinePath"`
	Visit *struct {
		TopCandidate struct {
			PlaceLocation string `json:"placeLocation"`
			SemanticType  string `json:"semanticType"`
		} `json:"topCandidate"`
	} `json:"visit"`
	Activity *struct {
		Start        string `json:"start"`
		End          string `json:"end"`
		TopCandidate struct {
			Type string `json:"type"`
		} `json:"topCandidate"`
	} `json:"activity"`
}

// Load reads a location-history export file and keeps entries whose time
// bounds fall inside (windowStart, windowEnd). Malformed entries are skipped
// and counted, never fatal.
func Load(path string, windowStart, windowEnd time.Time) (*ports.History, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load history: open %q: %w", path, err)
	}
	defer f.Close()

	var entries []rawEntry
	if err := json.NewDecoder(f).Decode(&entries); err != nil {
		return nil, fmt.Errorf("load history: decode %q: %w", path, err)
	}

	h := &ports.History{}
	for _, e := range entries {
		start, err1 := time.Parse(time.RFC3339, e.StartTime)
		end, err2 := time.Parse(time.RFC3339, e.EndTime)
		if err1 != nil || err2 != nil {
			h.Skipped++
			continue
		}

		if !start.After(windowStart) || !end.Before(windowEnd) {
			continue
		}

		switch {
		case len(e.TimelinePath) > 0:
			for _, tp := range e.TimelinePath {
				p, err := domain.ParseGeoURI(tp.Point)
				if err != nil {
					h.Skipped++
					continue
				}
				h.TimelinePoints = append(h.TimelinePoints, ports.TimelinePoint{Time: start, Point: p})
			}

		case e.Visit != nil:
			p, err := domain.ParseGeoURI(e.Visit.TopCandidate.PlaceLocation)
			if err != nil {
				h.Skipped++
				continue
			}
			h.Visits = append(h.Visits, domain.Visit{Location: p, StartTime: start, EndTime: end})

		case e.Activity != nil:
			sp, err1 := domain.ParseGeoURI(e.Activity.Start)
			ep, err2 := domain.ParseGeoURI(e.Activity.End)
			if err1 != nil || err2 != nil {
				h.Skipped++
				continue
			}
			h.Activities = append(h.Activities, ports.ActivityRecord{
				StartTime: start,
				EndTime:   end,
				Start:     sp,
				End:       ep,
				Label:     e.Activity.TopCandidate.Type,
			})

		default:
			h.Skipped++
		}
	}

	// Exports are usually ordered already; sorting makes it a guarantee.
	sort.SliceStable(h.TimelinePoints, func(i, j int) bool {
		return h.TimelinePoints[i].Time.Before(h.TimelinePoints[j].Time)
	})
	sort.SliceStable(h.Activities, func(i, j int) bool {
		return h.Activities[i].StartTime.Before(h.Activities[j].StartTime)
	})
	sort.SliceStable(h.Visits, func(i, j int) bool {
		return h.Visits[i].StartTime.Before(h.Visits[j].StartTime)
	})

	if h.Skipped > 0 {
		obs.L().Warn("skipped malformed history entries", zap.Int("count", h.Skipped))
	}

	return h, nil
}
