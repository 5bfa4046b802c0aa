// Package scheduler accepts, cancels and reschedules cast and coin jobs.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cuongbtq/kamo-scheduler/internal/capability"
	"github.com/cuongbtq/kamo-scheduler/internal/domain"
	"github.com/cuongbtq/kamo-scheduler/internal/storage"
	"github.com/google/uuid"
)

const ipfsScheme = "ipfs://"

// Config holds scheduler dependencies
type Config struct {
	Logger   *slog.Logger
	Casts    storage.CastStore
	Coins    storage.CoinStore
	Resolver capability.WalletResolver

	// Now defaults to time.Now
	Now func() time.Time
}

// Service is the scheduling API over the two job queues
type Service struct {
	logger   *slog.Logger
	casts    storage.CastStore
	coins    storage.CoinStore
	resolver capability.WalletResolver
	now      func() time.Time
}

// NewService creates a new scheduling service
func NewService(cfg *Config) *Service {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		logger:   cfg.Logger,
		casts:    cfg.Casts,
		coins:    cfg.Coins,
		resolver: cfg.Resolver,
		now:      now,
	}
}

// CastInput is a request to schedule a cast
type CastInput struct {
	OwnerID        string
	SignerUUID     string
	Text           string
	MediaURL       string
	When           time.Time
	IdempotencyKey string
}

// CoinInput is a request to schedule a coin creation
type CoinInput struct {
	OwnerID       string
	WalletAddress string
	Title         string
	Caption       string
	Symbol        string
	MediaURL      string
	MediaMime     string
	When          time.Time
	MetadataURI   string
	MetadataCID   string
}

// checkDue rejects due times further in the past than domain.DueTolerance
func (s *Service) checkDue(when time.Time) error {
	if when.IsZero() {
		return domain.NewValidationError("when", "is required")
	}
	if when.Before(s.now().Add(-domain.DueTolerance)) {
		return domain.NewValidationError("when", "must be in the future")
	}
	return nil
}

// ScheduleCast validates in and appends a pending cast job
func (s *Service) ScheduleCast(ctx context.Context, in CastInput) (domain.CastJob, error) {
	if strings.TrimSpace(in.Text) == "" {
		return domain.CastJob{}, domain.NewValidationError("text", "is required")
	}
	if err := s.checkDue(in.When); err != nil {
		return domain.CastJob{}, err
	}

	now := s.now().UTC()
	id := uuid.NewString()

	idem := strings.TrimSpace(in.IdempotencyKey)
	if idem == "" {
		idem = domain.DefaultIdempotencyKey(id)
	}

	job := domain.CastJob{
		ID:             id,
		OwnerID:        in.OwnerID,
		SignerUUID:     in.SignerUUID,
		Text:           in.Text,
		MediaURL:       in.MediaURL,
		DueAt:          in.When.UTC(),
		IdempotencyKey: idem,
		Status:         domain.StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.casts.Append(ctx, job); err != nil {
		if errors.Is(err, domain.ErrDuplicateKey) {
			return domain.CastJob{}, domain.NewValidationError("idem", "is already used by another cast")
		}
		return domain.CastJob{}, fmt.Errorf("failed to store cast job: %w", err)
	}

	s.logger.Info("Cast scheduled",
		slog.String("job_id", job.ID),
		slog.String("owner_id", job.OwnerID),
		slog.Time("due_at", job.DueAt),
	)

	return job, nil
}

// resolveMetadataURI prefers an explicit ipfs:// URI and falls back to the CID
func resolveMetadataURI(in CoinInput) (string, error) {
	uri := strings.TrimSpace(in.MetadataURI)
	if uri != "" {
		if !strings.HasPrefix(uri, ipfsScheme) || len(uri) == len(ipfsScheme) {
			return "", domain.NewValidationError("metadataUri", "must be an ipfs:// URI")
		}
		return uri, nil
	}
	if cid := strings.TrimSpace(in.MetadataCID); cid != "" {
		return ipfsScheme + cid, nil
	}
	return "", nil
}

// resolveCreator returns the explicit wallet override or the owner's resolved wallet
func (s *Service) resolveCreator(ctx context.Context, in CoinInput) (string, error) {
	if addr := strings.TrimSpace(in.WalletAddress); addr != "" {
		return addr, nil
	}

	if in.OwnerID != "" && s.resolver != nil {
		addr, err := s.resolver.ResolveAddress(ctx, in.OwnerID)
		if err != nil {
			s.logger.Warn("Wallet resolution failed",
				slog.String("owner_id", in.OwnerID),
				slog.Any("error", err),
			)
			return "", domain.NewValidationError("walletAddress", "could not resolve a wallet for the owner; provide walletAddress")
		}
		if addr != "" {
			return addr, nil
		}
	}

	return "", domain.NewValidationError("walletAddress", "creator wallet address required")
}

// ScheduleCoin validates in, resolves the creator address and appends a pending coin job
func (s *Service) ScheduleCoin(ctx context.Context, in CoinInput) (domain.CoinJob, error) {
	switch {
	case strings.TrimSpace(in.Title) == "":
		return domain.CoinJob{}, domain.NewValidationError("title", "is required")
	case strings.TrimSpace(in.Caption) == "":
		return domain.CoinJob{}, domain.NewValidationError("caption", "is required")
	case strings.TrimSpace(in.MediaURL) == "":
		return domain.CoinJob{}, domain.NewValidationError("mediaUrl", "is required")
	}
	if err := s.checkDue(in.When); err != nil {
		return domain.CoinJob{}, err
	}

	metadataURI, err := resolveMetadataURI(in)
	if err != nil {
		return domain.CoinJob{}, err
	}

	creator, err := s.resolveCreator(ctx, in)
	if err != nil {
		return domain.CoinJob{}, err
	}

	now := s.now().UTC()
	job := domain.CoinJob{
		ID:             uuid.NewString(),
		OwnerID:        in.OwnerID,
		WalletAddress:  strings.TrimSpace(in.WalletAddress),
		CreatorAddress: creator,
		Title:          in.Title,
		Caption:        in.Caption,
		Symbol:         in.Symbol,
		MediaURL:       in.MediaURL,
		MediaMime:      in.MediaMime,
		DueAt:          in.When.UTC(),
		MetadataURI:    metadataURI,
		Status:         domain.StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.coins.Append(ctx, job); err != nil {
		return domain.CoinJob{}, fmt.Errorf("failed to store coin job: %w", err)
	}

	s.logger.Info("Coin scheduled",
		slog.String("job_id", job.ID),
		slog.String("owner_id", job.OwnerID),
		slog.String("creator_address", job.CreatorAddress),
		slog.Time("due_at", job.DueAt),
	)

	return job, nil
}

// CancelCast cancels a pending cast job
func (s *Service) CancelCast(ctx context.Context, id string) (domain.CastJob, error) {
	job, err := s.casts.Update(ctx, id, (*domain.CastJob).Cancel)
	if err != nil {
		return domain.CastJob{}, err
	}

	s.logger.Info("Cast canceled", slog.String("job_id", id))
	return job, nil
}

// CancelCoin cancels a pending coin job
func (s *Service) CancelCoin(ctx context.Context, id string) (domain.CoinJob, error) {
	job, err := s.coins.Update(ctx, id, (*domain.CoinJob).Cancel)
	if err != nil {
		return domain.CoinJob{}, err
	}

	s.logger.Info("Coin canceled", slog.String("job_id", id))
	return job, nil
}

// RescheduleCast moves the due time of a pending cast job.
// A status conflict is reported before an invalid due time.
func (s *Service) RescheduleCast(ctx context.Context, id string, when time.Time) (domain.CastJob, error) {
	job, err := s.casts.Update(ctx, id, func(j *domain.CastJob) error {
		if err := j.Reschedule(when); err != nil {
			return err
		}
		return s.checkDue(when)
	})
	if err != nil {
		return domain.CastJob{}, err
	}

	s.logger.Info("Cast rescheduled",
		slog.String("job_id", id),
		slog.Time("due_at", job.DueAt),
	)
	return job, nil
}

// RescheduleCoin moves the due time of a pending coin job
func (s *Service) RescheduleCoin(ctx context.Context, id string, when time.Time) (domain.CoinJob, error) {
	job, err := s.coins.Update(ctx, id, func(j *domain.CoinJob) error {
		if err := j.Reschedule(when); err != nil {
			return err
		}
		return s.checkDue(when)
	})
	if err != nil {
		return domain.CoinJob{}, err
	}

	s.logger.Info("Coin rescheduled",
		slog.String("job_id", id),
		slog.Time("due_at", job.DueAt),
	)
	return job, nil
}

// ListCasts returns cast jobs ordered by due time
func (s *Service) ListCasts(ctx context.Context, filter storage.Filter) ([]domain.CastJob, error) {
	return s.casts.List(ctx, filter)
}

// ListCoins returns coin jobs ordered by due time
func (s *Service) ListCoins(ctx context.Context, filter storage.Filter) ([]domain.CoinJob, error) {
	return s.coins.List(ctx, filter)
}

// GetCast returns a single cast job
func (s *Service) GetCast(ctx context.Context, id string) (domain.CastJob, error) {
	return s.casts.Find(ctx, id)
}

// GetCoin returns a single coin job
func (s *Service) GetCoin(ctx context.Context, id string) (domain.CoinJob, error) {
	return s.coins.Find(ctx, id)
}
