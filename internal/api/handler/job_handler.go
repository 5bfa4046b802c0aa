package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/cuongbtq/kamo-scheduler/internal/api/dto"
	"github.com/cuongbtq/kamo-scheduler/internal/domain"
	"github.com/cuongbtq/kamo-scheduler/internal/scheduler"
	"github.com/cuongbtq/kamo-scheduler/internal/session"
	"github.com/cuongbtq/kamo-scheduler/internal/storage"
	"github.com/gin-gonic/gin"
)

// ScheduleCast handles POST /api/v1/casts
func (h *JobHandler) ScheduleCast(c *gin.Context) {
	var req dto.ScheduleCastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request body", err)
		return
	}

	in := scheduler.CastInput{
		OwnerID:        req.OwnerID,
		SignerUUID:     req.SignerUUID,
		Text:           req.Text,
		MediaURL:       req.MediaURL,
		When:           req.When,
		IdempotencyKey: req.IdempotencyKey,
	}
	session.BindCast(currentSession(c), &in)

	job, err := h.scheduler.ScheduleCast(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, "schedule cast", err)
		return
	}

	c.JSON(http.StatusCreated, dto.JobResponse[domain.CastJob]{Job: job})
}

// ListCasts handles GET /api/v1/casts
func (h *JobHandler) ListCasts(c *gin.Context) {
	filter, ok := h.bindFilter(c)
	if !ok {
		return
	}

	jobs, err := h.scheduler.ListCasts(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, "list casts", err)
		return
	}

	c.JSON(http.StatusOK, dto.ListJobsResponse[domain.CastJob]{Jobs: jobs})
}

// GetCast handles GET /api/v1/casts/:id
func (h *JobHandler) GetCast(c *gin.Context) {
	job, err := h.scheduler.GetCast(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, "get cast", err)
		return
	}

	c.JSON(http.StatusOK, dto.JobResponse[domain.CastJob]{Job: job})
}

// CancelCast handles POST /api/v1/casts/:id/cancel
func (h *JobHandler) CancelCast(c *gin.Context) {
	jobID := c.Param("id")

	job, err := h.scheduler.CancelCast(c.Request.Context(), jobID)
	if err != nil {
		h.respondError(c, "cancel cast", err)
		return
	}

	h.logger.Info("Cast canceled", slog.String("job_id", jobID))
	c.JSON(http.StatusOK, dto.JobResponse[domain.CastJob]{Job: job})
}

// RescheduleCast handles POST /api/v1/casts/:id/reschedule
func (h *JobHandler) RescheduleCast(c *gin.Context) {
	var req dto.RescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request body", err)
		return
	}

	job, err := h.scheduler.RescheduleCast(c.Request.Context(), c.Param("id"), req.When)
	if err != nil {
		h.respondError(c, "reschedule cast", err)
		return
	}

	c.JSON(http.StatusOK, dto.JobResponse[domain.CastJob]{Job: job})
}

// ScheduleCoin handles POST /api/v1/coins
func (h *JobHandler) ScheduleCoin(c *gin.Context) {
	var req dto.ScheduleCoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request body", err)
		return
	}

	in := scheduler.CoinInput{
		OwnerID:       req.OwnerID,
		WalletAddress: req.WalletAddress,
		Title:         req.Title,
		Caption:       req.Caption,
		Symbol:        req.Symbol,
		MediaURL:      req.MediaURL,
		MediaMime:     req.MediaMime,
		When:          req.When,
		MetadataURI:   req.MetadataURI,
		MetadataCID:   req.MetadataCID,
	}
	session.BindCoin(currentSession(c), &in)

	job, err := h.scheduler.ScheduleCoin(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, "schedule coin", err)
		return
	}

	c.JSON(http.StatusCreated, dto.JobResponse[domain.CoinJob]{Job: job})
}

// ListCoins handles GET /api/v1/coins
func (h *JobHandler) ListCoins(c *gin.Context) {
	filter, ok := h.bindFilter(c)
	if !ok {
		return
	}

	jobs, err := h.scheduler.ListCoins(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, "list coins", err)
		return
	}

	c.JSON(http.StatusOK, dto.ListJobsResponse[domain.CoinJob]{Jobs: jobs})
}

// GetCoin handles GET /api/v1/coins/:id
func (h *JobHandler) GetCoin(c *gin.Context) {
	job, err := h.scheduler.GetCoin(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, "get coin", err)
		return
	}

	c.JSON(http.StatusOK, dto.JobResponse[domain.CoinJob]{Job: job})
}

// CancelCoin handles POST /api/v1/coins/:id/cancel
func (h *JobHandler) CancelCoin(c *gin.Context) {
	jobID := c.Param("id")

	job, err := h.scheduler.CancelCoin(c.Request.Context(), jobID)
	if err != nil {
		h.respondError(c, "cancel coin", err)
		return
	}

	h.logger.Info("Coin canceled", slog.String("job_id", jobID))
	c.JSON(http.StatusOK, dto.JobResponse[domain.CoinJob]{Job: job})
}

// RescheduleCoin handles POST /api/v1/coins/:id/reschedule
func (h *JobHandler) RescheduleCoin(c *gin.Context) {
	var req dto.RescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request body", err)
		return
	}

	job, err := h.scheduler.RescheduleCoin(c.Request.Context(), c.Param("id"), req.When)
	if err != nil {
		h.respondError(c, "reschedule coin", err)
		return
	}

	c.JSON(http.StatusOK, dto.JobResponse[domain.CoinJob]{Job: job})
}

// bindFilter parses the listing query. The owner defaults to the session owner.
func (h *JobHandler) bindFilter(c *gin.Context) (storage.Filter, bool) {
	var req dto.ListJobsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.badRequest(c, "Invalid query parameters", err)
		return storage.Filter{}, false
	}

	status := domain.Status(req.Status)
	if status != "" && !status.Valid() {
		h.badRequest(c, "Invalid query parameters", fmt.Errorf("unknown status %q", req.Status))
		return storage.Filter{}, false
	}

	filter := storage.Filter{Status: status, OwnerID: req.OwnerID}
	session.BindOwner(currentSession(c), &filter)
	return filter, true
}
