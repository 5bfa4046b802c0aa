package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/kamo-scheduler/internal/capability"
	"github.com/cuongbtq/kamo-scheduler/internal/domain"
	"github.com/cuongbtq/kamo-scheduler/internal/storage"
)

// Config holds sweeper dependencies
type Config struct {
	Logger    *slog.Logger
	Casts     storage.CastStore
	Coins     storage.CoinStore
	Publisher capability.Publisher
	Minter    capability.Minter

	// Events is optional; outcomes are not broadcast when nil
	Events EventPublisher

	// Concurrency is the number of jobs processed at once; 1 means strictly sequential
	Concurrency int

	// JobTimeout bounds each capability call; zero means no bound
	JobTimeout time.Duration

	// Now defaults to time.Now
	Now func() time.Time
}

// Sweeper processes every due pending job of one kind
type Sweeper interface {
	Sweep(ctx context.Context) ([]domain.Outcome, error)
}

// claimable is a record pointer a sweep can move to its in-flight status
type claimable[T any] interface {
	storage.Record[T]
	Claim() error
}

// sweep is the kind-independent part of a sweeper
type sweep[T any, P claimable[T]] struct {
	kind        string
	logger      *slog.Logger
	store       storage.Store[T]
	events      EventPublisher
	concurrency int
	now         func() time.Time

	process func(ctx context.Context, job T) (domain.Outcome, error)
	fail    func(ctx context.Context, id, reason string) (domain.Outcome, error)
}

func newSweep[T any, P claimable[T]](kind string, cfg *Config, store storage.Store[T]) *sweep[T, P] {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	return &sweep[T, P]{
		kind:        kind,
		logger:      cfg.Logger.With(slog.String("kind", kind)),
		store:       store,
		events:      cfg.Events,
		concurrency: concurrency,
		now:         now,
	}
}

// run selects the jobs due at the start of the call, claims them in due-time
// order and hands them to the pool. Outcomes come back in selection order.
// ctx only gates claiming: a claimed job is processed and recorded on a
// context that is never canceled, bounded by the job timeout alone.
//
// A claim that loses to a concurrent cancel or sweep is skipped. Any other
// store error stops further claims; jobs already running are waited for and
// their outcomes are returned together with the error.
func (s *sweep[T, P]) run(ctx context.Context) ([]domain.Outcome, error) {
	now := s.now()

	pending, err := s.store.List(ctx, storage.Filter{Status: domain.StatusPending})
	if err != nil {
		return nil, fmt.Errorf("failed to list pending %s jobs: %w", s.kind, err)
	}

	due := make([]T, 0, len(pending))
	for _, rec := range pending {
		if !P(&rec).Due().After(now) {
			due = append(due, rec)
		}
	}

	if len(due) == 0 {
		return []domain.Outcome{}, nil
	}

	s.logger.Info("Sweeping due jobs",
		slog.Int("due", len(due)),
		slog.Int("concurrency", s.concurrency),
	)

	results := make([]*domain.Outcome, len(due))
	p := newPool(s.concurrency)

	var sweepErr error
	for i := range due {
		if err := p.Acquire(ctx); err != nil {
			sweepErr = fmt.Errorf("%s sweep interrupted: %w", s.kind, err)
			break
		}
		if err := p.Err(); err != nil {
			p.Release()
			break
		}

		if err := ctx.Err(); err != nil {
			p.Release()
			sweepErr = fmt.Errorf("%s sweep interrupted: %w", s.kind, err)
			break
		}

		// once claimed, a job runs to a terminal status even if ctx ends
		jobCtx := context.WithoutCancel(ctx)

		id := P(&due[i]).Key()
		claimed, err := s.store.Update(jobCtx, id, func(rec *T) error {
			return P(rec).Claim()
		})
		if err != nil {
			p.Release()
			if errors.Is(err, domain.ErrInvalidTransition) || errors.Is(err, domain.ErrNotFound) {
				s.logger.Debug("Job no longer pending, skipping",
					slog.String("job_id", id),
				)
				continue
			}
			sweepErr = fmt.Errorf("failed to claim %s job %s: %w", s.kind, id, err)
			break
		}

		slot := &results[i]
		p.Run(func() error {
			out, err := s.handle(jobCtx, claimed)
			*slot = &out
			return err
		})
	}

	if err := p.Wait(); err != nil && sweepErr == nil {
		sweepErr = err
	}

	outcomes := make([]domain.Outcome, 0, len(due))
	for _, out := range results {
		if out != nil {
			outcomes = append(outcomes, *out)
		}
	}

	s.logger.Info("Sweep finished",
		slog.Int("processed", len(outcomes)),
		slog.Bool("interrupted", sweepErr != nil),
	)

	return outcomes, sweepErr
}

// handle processes one claimed job, turning a panic into a recorded failure.
// ctx must not be cancelable.
func (s *sweep[T, P]) handle(ctx context.Context, job T) (out domain.Outcome, err error) {
	id := P(&job).Key()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Job processing panicked",
				slog.String("job_id", id),
				slog.Any("panic", r),
			)
			out, err = s.fail(ctx, id, fmt.Sprintf("panic: %v", r))
		}
		notify(ctx, s.events, s.logger, s.kind, out, s.now())
	}()

	return s.process(ctx, job)
}

// callContext bounds a single capability call
func callContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
