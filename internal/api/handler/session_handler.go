package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/cuongbtq/kamo-scheduler/internal/api/dto"
	"github.com/cuongbtq/kamo-scheduler/internal/capability"
	"github.com/cuongbtq/kamo-scheduler/internal/domain"
	"github.com/cuongbtq/kamo-scheduler/internal/session"
	"github.com/gin-gonic/gin"
)

// CreateSession handles POST /api/v1/auth/session
func (h *JobHandler) CreateSession(c *gin.Context) {
	var req dto.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request body", err)
		return
	}

	sess := session.New(req.OwnerID, req.SignerUUID, h.now())
	if err := h.sessions.Create(c.Request.Context(), sess); err != nil {
		h.respondError(c, "create session", err)
		return
	}

	status := h.signerStatus(c.Request.Context(), sess.SignerUUID)

	h.logger.Info("Session created",
		slog.String("owner_id", sess.OwnerID),
		slog.Bool("signer_approved", status.Approved),
	)
	c.JSON(http.StatusCreated, dto.SessionResponse{Session: sess, Status: status.Status, Approved: status.Approved})
}

// GetSession handles GET /api/v1/auth/session
func (h *JobHandler) GetSession(c *gin.Context) {
	sess := currentSession(c)
	if sess == nil {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: session.ErrNotFound.Error()})
		return
	}

	status := h.signerStatus(c.Request.Context(), sess.SignerUUID)
	c.JSON(http.StatusOK, dto.SessionResponse{Session: *sess, Status: status.Status, Approved: status.Approved})
}

// GetSignerStatus handles GET /api/v1/auth/signer/status
// Unlike the session endpoints it reports lookup failures to the caller
func (h *JobHandler) GetSignerStatus(c *gin.Context) {
	sess := currentSession(c)
	if sess == nil {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: session.ErrNotFound.Error()})
		return
	}
	if sess.SignerUUID == "" {
		h.respondError(c, "lookup signer", domain.NewValidationError("signerUuid", "session has no signer"))
		return
	}

	status, err := h.signers.LookupSigner(c.Request.Context(), sess.SignerUUID)
	if err != nil {
		h.respondError(c, "lookup signer", err)
		return
	}

	c.JSON(http.StatusOK, dto.SignerStatusResponse{
		SignerUUID: sess.SignerUUID,
		Status:     status.Status,
		Approved:   status.Approved,
	})
}

// signerStatus looks up a session signer. A failed lookup reads as not approved.
func (h *JobHandler) signerStatus(ctx context.Context, signerUUID string) capability.SignerStatus {
	if signerUUID == "" {
		return capability.SignerStatus{}
	}

	status, err := h.signers.LookupSigner(ctx, signerUUID)
	if err != nil {
		h.logger.Warn("Signer lookup failed",
			slog.String("signer_uuid", signerUUID),
			slog.Any("error", err),
		)
		return capability.SignerStatus{}
	}
	return status
}

// GetWallet handles GET /api/v1/auth/wallet
// Resolves the creator wallet of ?owner_id= or of the session owner
func (h *JobHandler) GetWallet(c *gin.Context) {
	var req dto.WalletRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.badRequest(c, "Invalid query parameters", err)
		return
	}

	ownerID := req.OwnerID
	if sess := currentSession(c); ownerID == "" && sess != nil {
		ownerID = sess.OwnerID
	}
	if ownerID == "" {
		h.respondError(c, "resolve wallet", domain.NewValidationError("ownerId", "is required without a session"))
		return
	}

	address, err := h.resolver.ResolveAddress(c.Request.Context(), ownerID)
	if err != nil {
		h.respondError(c, "resolve wallet", err)
		return
	}

	c.JSON(http.StatusOK, dto.WalletResponse{OwnerID: ownerID, Address: address})
}
