package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cuongbtq/kamo-scheduler/internal/app"
	"github.com/cuongbtq/kamo-scheduler/internal/config"
	"github.com/cuongbtq/kamo-scheduler/internal/worker"
	"github.com/cuongbtq/kamo-scheduler/shared/rabbitmq"
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

	defaultConfigPath := os.Getenv("WORKER_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/worker-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateWorkerConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := app.InitLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger := appLogger.Logger

	logger.Info("Starting worker service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
		slog.Int("concurrency", cfg.Worker.Concurrency),
		slog.Duration("sweep_interval", cfg.Worker.SweepInterval),
	)

	dbClient, err := app.InitPostgreSQL(&cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer dbClient.Close()

	logger.Info("Database connection established")

	var rabbitClient *rabbitmq.Client
	if cfg.RabbitMQ.Enabled {
		rabbitClient, err = app.InitRabbitMQ(&cfg.RabbitMQ, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
		}
		defer rabbitClient.Close()

		logger.Info("RabbitMQ connection established")
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores, err := app.InitStores(ctx, &cfg.Storage, dbClient, logger)
	if err != nil {
		return err
	}

	caps := app.InitCapabilities(cfg, logger)
	trigger := app.InitTrigger(&cfg.Worker, logger, stores, caps, app.Events(rabbitClient))

	if err := trigger.Start(ctx); err != nil {
		return fmt.Errorf("failed to start sweep trigger: %w", err)
	}

	errChan := make(chan error, 1)
	consumerDone := make(chan struct{})
	if rabbitClient != nil {
		consumer := worker.NewConsumer(logger, rabbitClient, trigger, cfg.RabbitMQ.Consumer.Tag)
		go func() {
			defer close(consumerDone)
			if err := consumer.Run(ctx); err != nil {
				errChan <- err
			}
		}()
	} else {
		close(consumerDone)
	}

	logger.Info("Worker service started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-quit:
		logger.Info("Received signal, shutting down gracefully",
			slog.String("signal", sig.String()),
		)
	case runErr = <-errChan:
		logger.Error("Worker error",
			slog.Any("error", runErr),
		)
	}

	// Stop the periodic sweep first so the in-flight one can finish with a live context
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Worker.ShutdownTimeout)
	defer shutdownCancel()

	if err := trigger.Stop(shutdownCtx); err != nil {
		logger.Warn("Worker shutdown timeout exceeded, forcing exit", slog.Any("error", err))
	} else {
		logger.Info("Worker stopped gracefully")
	}

	cancel()

	select {
	case <-consumerDone:
	case <-shutdownCtx.Done():
		logger.Warn("Sweep request consumer did not stop in time")
	}

	logger.Info("Worker service shutdown complete")
	return runErr
}
