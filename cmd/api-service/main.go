package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/cuongbtq/kamo-scheduler/internal/api/handler"
	"github.com/cuongbtq/kamo-scheduler/internal/api/router"
	"github.com/cuongbtq/kamo-scheduler/internal/app"
	"github.com/cuongbtq/kamo-scheduler/internal/config"
	"github.com/cuongbtq/kamo-scheduler/internal/scheduler"
	"github.com/cuongbtq/kamo-scheduler/internal/session"
	"github.com/cuongbtq/kamo-scheduler/shared/postgresql"
	"github.com/cuongbtq/kamo-scheduler/shared/rabbitmq"
	"github.com/cuongbtq/kamo-scheduler/shared/redis"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	defaultConfigPath := os.Getenv("API_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/api-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateAPIConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := app.InitLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger := appLogger.Logger

	logger.Info("Starting API service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
		slog.String("storage", cfg.Storage.Driver),
		slog.String("sessions", cfg.Session.Driver),
	)

	var (
		dbClient     *postgresql.Client
		rabbitClient *rabbitmq.Client
		redisClient  *redis.Client
	)

	// Cleanup function to close all resources
	cleanup := func() {
		if dbClient != nil {
			dbClient.Close()
		}
		if rabbitClient != nil {
			rabbitClient.Close()
		}
		if redisClient != nil {
			redisClient.Close()
		}
	}
	defer cleanup()

	if cfg.Storage.Driver == config.DriverPostgres {
		dbClient, err = app.InitPostgreSQL(&cfg.Database, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		logger.Info("Database connection established")
	}

	if cfg.RabbitMQ.Enabled {
		rabbitClient, err = app.InitRabbitMQ(&cfg.RabbitMQ, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
		}
		logger.Info("RabbitMQ connection established")
	}

	sessions := session.Store(session.NewMemoryStore())
	if cfg.Session.Driver == config.DriverRedis {
		redisClient, err = app.InitRedis(&cfg.Redis, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize Redis: %w", err)
		}
		sessions = session.NewRedisStore(redisClient.GetClient())
	}

	stores, err := app.InitStores(context.Background(), &cfg.Storage, dbClient, logger)
	if err != nil {
		return err
	}

	caps := app.InitCapabilities(cfg, logger)

	svc := scheduler.NewService(&scheduler.Config{
		Logger:   logger,
		Casts:    stores.Casts,
		Coins:    stores.Coins,
		Resolver: caps.Resolver,
	})

	trigger := app.InitTrigger(&cfg.Worker, logger, stores, caps, app.Events(rabbitClient))

	if cfg.Worker.Enabled {
		if err := trigger.Start(context.Background()); err != nil {
			return fmt.Errorf("failed to start sweep trigger: %w", err)
		}
	}

	deps := &handler.Dependencies{
		Logger:    logger,
		Scheduler: svc,
		Runner:    trigger,
		Sessions:  sessions,
		Resolver:  caps.Resolver,
		Signers:   caps.Signers,
	}
	if dbClient != nil {
		deps.Health = dbClient
	}

	r := initRouter(cfg, deps)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	logger.Info("Starting HTTP server",
		slog.String("address", addr),
		slog.Duration("read_timeout", cfg.Server.ReadTimeout),
		slog.Duration("write_timeout", cfg.Server.WriteTimeout),
	)

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("Shutting down server...", slog.String("signal", sig.String()))
	case err := <-serverErr:
		logger.Error("Server failed", slog.Any("error", err))
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	shutdownErr := srv.Shutdown(ctx)
	if shutdownErr != nil {
		logger.Error("Server forced to shutdown",
			slog.Any("error", shutdownErr),
		)
	}

	if cfg.Worker.Enabled {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), cfg.Worker.ShutdownTimeout)
		defer stopCancel()

		if err := trigger.Stop(stopCtx); err != nil {
			logger.Warn("Sweep trigger did not stop cleanly", slog.Any("error", err))
		}
	}

	if shutdownErr != nil {
		return shutdownErr
	}

	logger.Info("Server shutdown complete")
	return nil
}

// initRouter initializes the Gin router with all routes and middleware
func initRouter(cfg *config.Config, deps *handler.Dependencies) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	return router.SetupRouter(deps, router.Options{
		ServiceName:  cfg.App.Name,
		AllowOrigins: cfg.Server.AllowOrigins,
	})
}
