package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/cuongbtq/kamo-scheduler/internal/domain"
)

// EventPublisher delivers outcome events to a broker.
// *rabbitmq.Client satisfies it.
type EventPublisher interface {
	PublishWithRetry(ctx context.Context, body []byte, contentType string) error
}

// OutcomeEvent is emitted after each processed job
type OutcomeEvent struct {
	Kind string `json:"kind"`
	domain.Outcome
	At time.Time `json:"at"`
}

// notify publishes the outcome if a broker is configured. Failures are logged only.
func notify(ctx context.Context, events EventPublisher, logger *slog.Logger, kind string, out domain.Outcome, at time.Time) {
	if events == nil {
		return
	}

	body, err := json.Marshal(OutcomeEvent{Kind: kind, Outcome: out, At: at})
	if err != nil {
		logger.Error("Failed to encode outcome event",
			slog.String("job_id", out.ID),
			slog.Any("error", err),
		)
		return
	}

	if err := events.PublishWithRetry(ctx, body, "application/json"); err != nil {
		logger.Warn("Failed to publish outcome event",
			slog.String("kind", kind),
			slog.String("job_id", out.ID),
			slog.Any("error", err),
		)
	}
}
