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

var (
	errMissingSigner  = errors.New("signerUuid missing on job")
	errMissingCreator = errors.New("creator wallet address missing on job")
	errMissingMeta    = errors.New("metadata URI required for content coin")
)

// CastSweeper publishes due cast jobs
type CastSweeper struct {
	logger     *slog.Logger
	store      storage.CastStore
	publisher  capability.Publisher
	jobTimeout time.Duration
	engine     *sweep[domain.CastJob, *domain.CastJob]
}

// NewCastSweeper creates a cast sweeper. A nil publisher fails every job.
func NewCastSweeper(cfg *Config) *CastSweeper {
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = capability.Unavailable{Name: "publisher"}
	}

	s := &CastSweeper{
		logger:     cfg.Logger,
		store:      cfg.Casts,
		publisher:  publisher,
		jobTimeout: cfg.JobTimeout,
	}
	s.engine = newSweep[domain.CastJob, *domain.CastJob](domain.KindCast, cfg, cfg.Casts)
	s.engine.process = s.process
	s.engine.fail = s.fail

	return s
}

// Sweep processes every cast job due now
func (s *CastSweeper) Sweep(ctx context.Context) ([]domain.Outcome, error) {
	return s.engine.run(ctx)
}

// process publishes one claimed cast and records the result
func (s *CastSweeper) process(ctx context.Context, job domain.CastJob) (domain.Outcome, error) {
	hash, err := s.publish(ctx, job)
	if err != nil {
		s.logger.Warn("Cast publication failed",
			slog.String("job_id", job.ID),
			slog.Any("error", err),
		)
		return s.fail(ctx, job.ID, err.Error())
	}

	out := domain.Outcome{ID: job.ID, OK: true, CastHash: hash}
	if _, err := s.store.Update(ctx, job.ID, func(j *domain.CastJob) error {
		return j.MarkPosted(hash)
	}); err != nil {
		return out, fmt.Errorf("failed to record posted cast %s: %w", job.ID, err)
	}

	s.logger.Info("Cast posted",
		slog.String("job_id", job.ID),
		slog.String("cast_hash", hash),
	)

	return out, nil
}

func (s *CastSweeper) publish(ctx context.Context, job domain.CastJob) (string, error) {
	if job.SignerUUID == "" {
		return "", errMissingSigner
	}

	callCtx, cancel := callContext(ctx, s.jobTimeout)
	defer cancel()

	return s.publisher.Publish(callCtx, capability.PublishRequest{
		SignerUUID:     job.SignerUUID,
		Text:           job.Text,
		MediaURL:       job.MediaURL,
		IdempotencyKey: job.IdempotencyKey,
	})
}

// fail records a terminal failure for an in-flight cast
func (s *CastSweeper) fail(ctx context.Context, id, reason string) (domain.Outcome, error) {
	out := domain.Outcome{ID: id, Error: reason}
	if _, err := s.store.Update(ctx, id, func(j *domain.CastJob) error {
		return j.MarkFailed(reason)
	}); err != nil {
		return out, fmt.Errorf("failed to record failed cast %s: %w", id, err)
	}
	return out, nil
}

// CoinSweeper creates due coin jobs
type CoinSweeper struct {
	logger     *slog.Logger
	store      storage.CoinStore
	minter     capability.Minter
	jobTimeout time.Duration
	engine     *sweep[domain.CoinJob, *domain.CoinJob]
}

// NewCoinSweeper creates a coin sweeper. A nil minter fails every job.
func NewCoinSweeper(cfg *Config) *CoinSweeper {
	minter := cfg.Minter
	if minter == nil {
		minter = capability.Unavailable{Name: "minter"}
	}

	s := &CoinSweeper{
		logger:     cfg.Logger,
		store:      cfg.Coins,
		minter:     minter,
		jobTimeout: cfg.JobTimeout,
	}
	s.engine = newSweep[domain.CoinJob, *domain.CoinJob](domain.KindCoin, cfg, cfg.Coins)
	s.engine.process = s.process
	s.engine.fail = s.fail

	return s
}

// Sweep processes every coin job due now
func (s *CoinSweeper) Sweep(ctx context.Context) ([]domain.Outcome, error) {
	return s.engine.run(ctx)
}

// process mints one claimed coin and records the result
func (s *CoinSweeper) process(ctx context.Context, job domain.CoinJob) (domain.Outcome, error) {
	result, err := s.mint(ctx, job)
	if err != nil {
		s.logger.Warn("Coin creation failed",
			slog.String("job_id", job.ID),
			slog.Any("error", err),
		)
		return s.fail(ctx, job.ID, err.Error())
	}

	out := domain.Outcome{ID: job.ID, OK: true, CoinAddress: result.CoinAddress, TxHash: result.TxHash}
	if _, err := s.store.Update(ctx, job.ID, func(j *domain.CoinJob) error {
		return j.MarkCreated(result.CoinAddress, result.TxHash)
	}); err != nil {
		return out, fmt.Errorf("failed to record created coin %s: %w", job.ID, err)
	}

	s.logger.Info("Coin created",
		slog.String("job_id", job.ID),
		slog.String("coin_address", result.CoinAddress),
		slog.String("tx_hash", result.TxHash),
	)

	return out, nil
}

func (s *CoinSweeper) mint(ctx context.Context, job domain.CoinJob) (capability.MintResult, error) {
	if job.CreatorAddress == "" {
		return capability.MintResult{}, errMissingCreator
	}
	if job.MetadataURI == "" {
		return capability.MintResult{}, errMissingMeta
	}

	description := job.Caption
	if description == "" {
		description = job.Title
	}

	callCtx, cancel := callContext(ctx, s.jobTimeout)
	defer cancel()

	return s.minter.Mint(callCtx, capability.MintRequest{
		CreatorAddress: job.CreatorAddress,
		Title:          job.Title,
		Description:    description,
		MetadataURI:    job.MetadataURI,
		Symbol:         job.Symbol,
	})
}

// fail records a terminal failure for an in-flight coin
func (s *CoinSweeper) fail(ctx context.Context, id, reason string) (domain.Outcome, error) {
	out := domain.Outcome{ID: id, Error: reason}
	if _, err := s.store.Update(ctx, id, func(j *domain.CoinJob) error {
		return j.MarkFailed(reason)
	}); err != nil {
		return out, fmt.Errorf("failed to record failed coin %s: %w", id, err)
	}
	return out, nil
}
