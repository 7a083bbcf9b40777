package services

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"location-route-preprocessor/internal/domain"
)

// stubResolver resolves segments with a scripted per-segment delay so tests
// can force out-of-order completion.
type stubResolver struct {
	delay    func(id int) time.Duration
	resolved atomic.Int64
}

func (s *stubResolver) Resolve(ctx context.Context, seg domain.Segment) domain.Outcome {
	if s.delay != nil {
		select {
		case <-time.After(s.delay(seg.ID)):
		case <-ctx.Done():
			return domain.Outcome{
				SegmentID: seg.ID,
				Failure:   &domain.ResolutionFailure{SegmentID: seg.ID, Reason: domain.FailureTimeout},
			}
		}
	}
	s.resolved.Add(1)
	return domain.Outcome{
		SegmentID: seg.ID,
		Route:     &domain.ResolvedRoute{SegmentID: seg.ID},
	}
}

func makeSegments(n int) []domain.Segment {
	segs := make([]domain.Segment, n)
	for i := range segs {
		segs[i] = domain.Segment{ID: i}
	}
	return segs
}

func TestRunPreservesInputOrder(t *testing.T) {
	// Early segments are the slowest, so late ids finish first.
	resolver := &stubResolver{
		delay: func(id int) time.Duration {
			return time.Duration(20-id) * time.Millisecond
		},
	}

	s, err := NewScheduler(SchedulerConfig{Workers: 4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	outcomes := s.Run(context.Background(), makeSegments(20), resolver)

	if len(outcomes) != 20 {
		t.Fatalf("outcomes = %d, want 20", len(outcomes))
	}
	for i, out := range outcomes {
		if out.SegmentID != i {
			t.Fatalf("outcome %d has segment id %d", i, out.SegmentID)
		}
		if out.Route == nil {
			t.Fatalf("outcome %d missing route", i)
		}
	}
}

func TestRunOneOutcomePerSegment(t *testing.T) {
	resolver := &stubResolver{}

	s, err := NewScheduler(SchedulerConfig{Workers: 8})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	outcomes := s.Run(context.Background(), makeSegments(500), resolver)

	if len(outcomes) != 500 {
		t.Fatalf("outcomes = %d, want 500", len(outcomes))
	}

	seen := make(map[int]bool, 500)
	for _, out := range outcomes {
		if seen[out.SegmentID] {
			t.Fatalf("segment %d appears twice", out.SegmentID)
		}
		seen[out.SegmentID] = true
	}
}

func TestRunReportsMonotonicProgress(t *testing.T) {
	resolver := &stubResolver{}

	var calls []int
	s, err := NewScheduler(SchedulerConfig{
		Workers: 4,
		Progress: func(done, total int) {
			if total != 50 {
				t.Errorf("total = %d, want 50", total)
			}
			calls = append(calls, done)
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s.Run(context.Background(), makeSegments(50), resolver)

	if len(calls) != 50 {
		t.Fatalf("progress calls = %d, want 50", len(calls))
	}
	for i, done := range calls {
		if done != i+1 {
			t.Fatalf("progress not monotonic: %v", calls)
		}
	}
}

func TestRunCancellationYieldsOrderedSubset(t *testing.T) {
	resolver := &stubResolver{
		delay: func(int) time.Duration { return 5 * time.Millisecond },
	}

	ctx, cancel := context.WithCancel(context.Background())

	s, err := NewScheduler(SchedulerConfig{Workers: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	go func() {
		time.Sleep(25 * time.Millisecond)
		cancel()
	}()

	outcomes := s.Run(ctx, makeSegments(1000), resolver)

	if len(outcomes) == 0 || len(outcomes) >= 1000 {
		t.Fatalf("outcomes = %d, want a strict subset", len(outcomes))
	}

	prev := -1
	for _, out := range outcomes {
		if out.SegmentID <= prev {
			t.Fatalf("outcomes out of order at id %d", out.SegmentID)
		}
		prev = out.SegmentID
		if out.Route == nil && out.Failure == nil {
			t.Fatalf("corrupted outcome for segment %d", out.SegmentID)
		}
	}
}

func TestRunAppliesSegmentTimeout(t *testing.T) {
	resolver := &stubResolver{
		delay: func(id int) time.Duration {
			if id == 3 {
				return 200 * time.Millisecond
			}
			return 0
		},
	}

	s, err := NewScheduler(SchedulerConfig{Workers: 2, SegmentTimeout: 30 * time.Millisecond})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	outcomes := s.Run(context.Background(), makeSegments(6), resolver)

	if len(outcomes) != 6 {
		t.Fatalf("outcomes = %d, want 6", len(outcomes))
	}
	for _, out := range outcomes {
		if out.SegmentID == 3 {
			if out.Failure == nil || out.Failure.Reason != domain.FailureTimeout {
				t.Fatalf("segment 3 outcome = %+v, want Timeout", out)
			}
			continue
		}
		if out.Route == nil {
			t.Fatalf("segment %d outcome = %+v, want success", out.SegmentID, out)
		}
	}
}

func TestRunEmptyInput(t *testing.T) {
	s, err := NewScheduler(SchedulerConfig{Workers: 4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	outcomes := s.Run(context.Background(), nil, &stubResolver{})
	if len(outcomes) != 0 {
		t.Fatalf("outcomes = %d, want 0", len(outcomes))
	}
}

func TestNewSchedulerValidation(t *testing.T) {
	if _, err := NewScheduler(SchedulerConfig{Workers: 0}); err == nil {
		t.Fatal("expected error for zero workers")
	}
	if _, err := NewScheduler(SchedulerConfig{Workers: 2, SegmentTimeout: -time.Second}); err == nil {
		t.Fatal("expected error for negative timeout")
	}
}
