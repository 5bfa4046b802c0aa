package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ActionSweep asks the worker to run both sweeps immediately
const ActionSweep = "sweep"

// SweepRequest is the body of a sweep request message
type SweepRequest struct {
	Action string `json:"action"`
}

// MessageSource yields broker deliveries. *rabbitmq.Client satisfies it.
type MessageSource interface {
	Consume(consumerTag string) (<-chan amqp.Delivery, error)
}

// Runner runs an on-demand sweep
type Runner interface {
	RunNow(ctx context.Context) (Report, error)
}

// Consumer turns sweep request messages into on-demand sweeps
type Consumer struct {
	logger *slog.Logger
	source MessageSource
	runner Runner
	tag    string
}

// NewConsumer creates a sweep request consumer
func NewConsumer(logger *slog.Logger, source MessageSource, runner Runner, consumerTag string) *Consumer {
	return &Consumer{
		logger: logger,
		source: source,
		runner: runner,
		tag:    consumerTag,
	}
}

// Run consumes sweep requests until ctx ends or the delivery channel closes
func (c *Consumer) Run(ctx context.Context) error {
	deliveries, err := c.source.Consume(c.tag)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	c.logger.Info("Sweep request consumer started",
		slog.String("consumer_tag", c.tag),
	)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Sweep request consumer stopped - context canceled")
			return nil

		case delivery, ok := <-deliveries:
			if !ok {
				c.logger.Warn("RabbitMQ delivery channel closed")
				return nil
			}
			c.handle(ctx, delivery)
		}
	}
}

// handle runs one sweep request. Malformed and failed requests are dropped
// without requeue; the periodic trigger picks up whatever is still due.
func (c *Consumer) handle(ctx context.Context, delivery amqp.Delivery) {
	var req SweepRequest
	if err := json.Unmarshal(delivery.Body, &req); err != nil || req.Action != ActionSweep {
		c.logger.Error("Invalid sweep request",
			slog.String("body", string(delivery.Body)),
			slog.Any("error", err),
		)
		if nackErr := delivery.Nack(false, false); nackErr != nil {
			c.logger.Error("Failed to NACK malformed message",
				slog.Any("error", nackErr),
			)
		}
		return
	}

	report, err := c.runner.RunNow(ctx)
	if err != nil {
		c.logger.Error("Requested sweep failed",
			slog.Int("casts_processed", report.CastsProcessed),
			slog.Int("coins_processed", report.CoinsProcessed),
			slog.Any("error", err),
		)
		if nackErr := delivery.Nack(false, false); nackErr != nil {
			c.logger.Error("Failed to NACK message",
				slog.Any("error", nackErr),
			)
		}
		return
	}

	c.logger.Info("Requested sweep completed",
		slog.Int("casts_processed", report.CastsProcessed),
		slog.Int("coins_processed", report.CoinsProcessed),
	)

	if ackErr := delivery.Ack(false); ackErr != nil {
		c.logger.Error("Failed to ACK message",
			slog.Any("error", ackErr),
		)
	}
}
