package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/cuongbtq/kamo-scheduler/internal/api/dto"
	"github.com/cuongbtq/kamo-scheduler/internal/capability"
	"github.com/cuongbtq/kamo-scheduler/internal/domain"
	"github.com/cuongbtq/kamo-scheduler/internal/scheduler"
	"github.com/cuongbtq/kamo-scheduler/internal/session"
	"github.com/cuongbtq/kamo-scheduler/internal/worker"
	"github.com/gin-gonic/gin"
)

// HealthChecker reports whether a backing service is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger    *slog.Logger
	Scheduler *scheduler.Service
	Runner    worker.Runner
	Sessions  session.Store
	Resolver  capability.WalletResolver
	Signers   capability.SignerChecker

	// Health is optional; nil means the service has no backing store to check
	Health HealthChecker

	// Now defaults to time.Now
	Now func() time.Time
}

// JobHandler handles job, task, session and health HTTP requests
type JobHandler struct {
	logger    *slog.Logger
	scheduler *scheduler.Service
	runner    worker.Runner
	sessions  session.Store
	resolver  capability.WalletResolver
	signers   capability.SignerChecker
	health    HealthChecker
	now       func() time.Time
}

// NewJobHandler creates a new JobHandler instance
func NewJobHandler(deps *Dependencies) *JobHandler {
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	signers := deps.Signers
	if signers == nil {
		signers = capability.Unavailable{Name: "signer checker"}
	}

	return &JobHandler{
		logger:    deps.Logger,
		scheduler: deps.Scheduler,
		runner:    deps.Runner,
		sessions:  deps.Sessions,
		resolver:  deps.Resolver,
		signers:   signers,
		health:    deps.Health,
		now:       now,
	}
}

// respondError maps domain errors onto HTTP status codes
func (h *JobHandler) respondError(c *gin.Context, op string, err error) {
	var validation *domain.ValidationError
	var capErr *domain.CapabilityError

	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: validation.Error(), Field: validation.Field})
	case errors.Is(err, domain.ErrInvalidTransition):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrDuplicateID), errors.Is(err, domain.ErrDuplicateKey):
		c.JSON(http.StatusConflict, dto.ErrorResponse{Error: err.Error()})
	case errors.As(err, &capErr):
		h.logger.Warn("Upstream call failed", slog.String("op", op), slog.Any("error", err))
		c.JSON(http.StatusBadGateway, dto.ErrorResponse{Error: err.Error()})
	default:
		h.logger.Error("Request failed", slog.String("op", op), slog.Any("error", err))
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to " + op})
	}
}

// badRequest answers a request that could not be bound
func (h *JobHandler) badRequest(c *gin.Context, msg string, err error) {
	h.logger.Warn(msg, slog.String("path", c.Request.URL.Path), slog.Any("error", err))
	c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: msg + ": " + err.Error()})
}

// currentSession returns the caller session placed by the session middleware
func currentSession(c *gin.Context) *session.Session {
	return session.FromContext(c.Request.Context())
}
