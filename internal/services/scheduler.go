package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"location-route-preprocessor/internal/domain"
)

// SegmentResolver is the per-segment computation the scheduler fans out.
type SegmentResolver interface {
	Resolve(ctx context.Context, seg domain.Segment) domain.Outcome
}

// SchedulerConfig carries the scheduler's tunables.
type SchedulerConfig struct {
	// Workers is the fixed size of the worker pool.
	Workers int
	// SegmentTimeout bounds one resolution attempt. Zero means no budget.
	SegmentTimeout time.Duration
	// Progress, when set, observes the monotonically increasing count of
	// completed segments. Advisory only; it must not block for long.
	Progress func(done, total int)
}

// Scheduler distributes segments across a fixed pool of workers and restores
// the original chronological order on output. Every input segment yields
// exactly one outcome, whichever worker computed it and in whatever order
// workers finished.
type Scheduler struct {
	workers  int
	timeout  time.Duration
	progress func(done, total int)
}

func NewScheduler(cfg SchedulerConfig) (*Scheduler, error) {
	if cfg.Workers < 1 {
		return nil, errors.New("scheduler: workers must be at least 1")
	}
	if cfg.SegmentTimeout < 0 {
		return nil, errors.New("scheduler: segment timeout must not be negative")
	}

	return &Scheduler{
		workers:  cfg.Workers,
		timeout:  cfg.SegmentTimeout,
		progress: cfg.Progress,
	}, nil
}

// Run resolves all segments and returns their outcomes sorted by segment id.
//
// Canceling ctx stops dispatch: workers finish their in-flight segment, no
// new segment is handed out, and the outcomes completed so far are returned.
// Partial completion is a valid result, not an error.
func (s *Scheduler) Run(ctx context.Context, segments []domain.Segment, resolver SegmentResolver) []domain.Outcome {
	total := len(segments)
	if total == 0 {
		return []domain.Outcome{}
	}

	jobs := make(chan domain.Segment)
	results := make(chan domain.Outcome)

	go func() {
		defer close(jobs)
		for _, seg := range segments {
			select {
			case jobs <- seg:
			case <-ctx.Done():
				return
			}
		}
	}()

	g := new(errgroup.Group)
	for i := 0; i < s.workers; i++ {
		g.Go(func() error {
			for seg := range jobs {
				results <- s.resolveOne(ctx, seg, resolver)
			}
			return nil
		})
	}

	go func() {
		_ = g.Wait()
		close(results)
	}()

	outcomes := make([]domain.Outcome, 0, total)
	done := 0
	for out := range results {
		outcomes = append(outcomes, out)
		done++
		if s.progress != nil {
			s.progress(done, total)
		}
	}

	sort.Slice(outcomes, func(i, j int) bool {
		return outcomes[i].SegmentID < outcomes[j].SegmentID
	})

	return outcomes
}

// resolveOne applies the per-segment time budget. The budget is detached
// from the run context so that a run-level stop lets the in-flight segment
// finish instead of surfacing as a spurious timeout.
func (s *Scheduler) resolveOne(ctx context.Context, seg domain.Segment, resolver SegmentResolver) domain.Outcome {
	segCtx := context.WithoutCancel(ctx)
	if s.timeout > 0 {
		var cancel context.CancelFunc
		segCtx, cancel = context.WithTimeout(segCtx, s.timeout)
		defer cancel()
	}

	return resolver.Resolve(segCtx, seg)
}
