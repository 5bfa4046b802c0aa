package router

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/cuongbtq/kamo-scheduler/internal/api/dto"
	"github.com/cuongbtq/kamo-scheduler/internal/session"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// LoggerMiddleware logs HTTP requests with slog
func LoggerMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		// Process request
		c.Next()

		latency := time.Since(start)

		logger.Info("HTTP Request",
			slog.Int("status", c.Writer.Status()),
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.String("query", query),
			slog.String("ip", c.ClientIP()),
			slog.Duration("latency", latency),
			slog.Int("body_size", c.Writer.Size()),
		)

		for _, e := range c.Errors {
			logger.Error("Request error",
				slog.String("error", e.Error()),
				slog.Uint64("type", uint64(e.Type)),
			)
		}
	}
}

// CORSMiddleware handles Cross-Origin Resource Sharing. An empty origin list
// allows every origin.
func CORSMiddleware(allowOrigins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Accept", "Authorization", session.HeaderToken,
		},
		MaxAge: 12 * time.Hour,
	}

	if len(allowOrigins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = allowOrigins
		cfg.AllowCredentials = true
	}

	return cors.New(cfg)
}

// SessionMiddleware attaches the caller session, if any, to the request
// context. Unknown tokens are treated as anonymous requests.
func SessionMiddleware(store session.Store, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := session.TokenFromRequest(c.Request)
		if token == "" {
			c.Next()
			return
		}

		sess, err := store.Get(c.Request.Context(), token)
		switch {
		case err == nil:
			c.Request = c.Request.WithContext(session.NewContext(c.Request.Context(), &sess))
		case errors.Is(err, session.ErrNotFound):
			logger.Debug("Unknown session token", slog.String("path", c.Request.URL.Path))
		default:
			logger.Error("Failed to load session", slog.Any("error", err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to load session"})
			return
		}

		c.Next()
	}
}
