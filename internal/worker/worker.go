package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cuongbtq/kamo-scheduler/internal/domain"
	"github.com/robfig/cron/v3"
)

// DefaultInterval is the sweep period used when none is configured
const DefaultInterval = 30 * time.Second

// Report is the combined result of one cast sweep and one coin sweep
type Report struct {
	CastsProcessed int              `json:"castsProcessed"`
	CoinsProcessed int              `json:"coinsProcessed"`
	CastResults    []domain.Outcome `json:"castResults"`
	CoinResults    []domain.Outcome `json:"coinResults"`
}

// Trigger runs both sweeps periodically and on demand
type Trigger struct {
	logger   *slog.Logger
	casts    Sweeper
	coins    Sweeper
	interval time.Duration

	mu     sync.Mutex
	cron   *cron.Cron
	cancel context.CancelFunc
}

// NewTrigger creates a trigger over the two sweepers
func NewTrigger(logger *slog.Logger, casts, coins Sweeper, interval time.Duration) *Trigger {
	if interval <= 0 {
		interval = DefaultInterval
	}

	return &Trigger{
		logger:   logger,
		casts:    casts,
		coins:    coins,
		interval: interval,
	}
}

// RunNow runs the cast sweep then the coin sweep. On error the report holds
// whatever was processed before it.
func (t *Trigger) RunNow(ctx context.Context) (Report, error) {
	report := Report{
		CastResults: []domain.Outcome{},
		CoinResults: []domain.Outcome{},
	}

	castResults, err := t.casts.Sweep(ctx)
	report.CastResults = append(report.CastResults, castResults...)
	report.CastsProcessed = len(report.CastResults)
	if err != nil {
		return report, fmt.Errorf("cast sweep: %w", err)
	}

	coinResults, err := t.coins.Sweep(ctx)
	report.CoinResults = append(report.CoinResults, coinResults...)
	report.CoinsProcessed = len(report.CoinResults)
	if err != nil {
		return report, fmt.Errorf("coin sweep: %w", err)
	}

	return report, nil
}

// tick is the scheduled job. It never propagates failures.
func (t *Trigger) tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("Scheduled sweep panicked",
				slog.Any("panic", r),
			)
		}
	}()

	report, err := t.RunNow(ctx)
	if err != nil {
		t.logger.Error("Scheduled sweep failed",
			slog.Any("error", err),
		)
		return
	}

	if report.CastsProcessed > 0 || report.CoinsProcessed > 0 {
		t.logger.Info("Scheduled sweep completed",
			slog.Int("casts_processed", report.CastsProcessed),
			slog.Int("coins_processed", report.CoinsProcessed),
		)
	}
}

// Start schedules periodic sweeps. Overlapping ticks are skipped.
func (t *Trigger) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cron != nil {
		return fmt.Errorf("trigger already started")
	}

	runCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	logger := cronLogger{logger: t.logger}

	job := cron.NewChain(cron.SkipIfStillRunning(logger)).Then(cron.FuncJob(func() {
		t.tick(runCtx)
	}))

	t.cron = cron.New(cron.WithLogger(logger))
	t.cron.Schedule(cron.Every(t.interval), job)
	t.cron.Start()

	t.logger.Info("Periodic sweep started",
		slog.Duration("interval", t.interval),
	)

	return nil
}

// Stop halts scheduling and waits for a running sweep to finish. If ctx ends
// first, the running sweep stops claiming; jobs already claimed still finish.
func (t *Trigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	c, cancel := t.cron, t.cancel
	t.cron, t.cancel = nil, nil
	t.mu.Unlock()

	if c == nil {
		return nil
	}

	t.logger.Info("Stopping periodic sweep...")
	done := c.Stop()
	defer cancel()

	select {
	case <-done.Done():
		t.logger.Info("Periodic sweep stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("failed to stop periodic sweep: %w", ctx.Err())
	}
}

// cronLogger routes robfig/cron logs to slog
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, slog.Any("error", err))...)
}
