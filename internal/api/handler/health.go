package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health handles GET /health
func (h *JobHandler) Health(service string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.health != nil {
			if err := h.health.HealthCheck(c.Request.Context()); err != nil {
				h.logger.Error("Health check failed", slog.Any("error", err))
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status":  "unhealthy",
					"service": service,
					"error":   err.Error(),
				})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": service,
		})
	}
}
