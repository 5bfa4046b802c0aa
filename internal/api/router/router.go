package router

import (
	"github.com/cuongbtq/kamo-scheduler/internal/api/handler"
	"github.com/gin-gonic/gin"
)

// Options configures the router
type Options struct {
	ServiceName  string
	AllowOrigins []string
}

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies, opts Options) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware(opts.AllowOrigins))

	jobHandler := handler.NewJobHandler(deps)

	r.GET("/health", jobHandler.Health(opts.ServiceName))

	v1 := r.Group("/api/v1")
	v1.Use(SessionMiddleware(deps.Sessions, deps.Logger))
	{
		casts := v1.Group("/casts")
		{
			casts.POST("", jobHandler.ScheduleCast)
			casts.GET("", jobHandler.ListCasts)
			casts.GET("/:id", jobHandler.GetCast)
			casts.POST("/:id/cancel", jobHandler.CancelCast)
			casts.POST("/:id/reschedule", jobHandler.RescheduleCast)
		}

		coins := v1.Group("/coins")
		{
			coins.POST("", jobHandler.ScheduleCoin)
			coins.GET("", jobHandler.ListCoins)
			coins.GET("/:id", jobHandler.GetCoin)
			coins.POST("/:id/cancel", jobHandler.CancelCoin)
			coins.POST("/:id/reschedule", jobHandler.RescheduleCoin)
		}

		// POST /api/v1/tasks/run - sweep both queues now
		v1.POST("/tasks/run", jobHandler.RunTasks)

		auth := v1.Group("/auth")
		{
			auth.POST("/session", jobHandler.CreateSession)
			auth.GET("/session", jobHandler.GetSession)
			auth.GET("/wallet", jobHandler.GetWallet)
			auth.GET("/signer/status", jobHandler.GetSignerStatus)
		}
	}

	return r
}
