package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// RunTasks handles POST /api/v1/tasks/run
// Runs the cast sweep then the coin sweep and returns the combined report
func (h *JobHandler) RunTasks(c *gin.Context) {
	report, err := h.runner.RunNow(c.Request.Context())
	if err != nil {
		h.respondError(c, "run tasks", err)
		return
	}

	h.logger.Info("On-demand sweep finished",
		slog.Int("casts_processed", report.CastsProcessed),
		slog.Int("coins_processed", report.CoinsProcessed),
	)

	c.JSON(http.StatusOK, report)
}
