// Package app builds the components shared by the api and worker services
// from a loaded configuration.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/kamo-scheduler/internal/capability"
	"github.com/cuongbtq/kamo-scheduler/internal/capability/neynar"
	"github.com/cuongbtq/kamo-scheduler/internal/capability/zora"
	"github.com/cuongbtq/kamo-scheduler/internal/config"
	"github.com/cuongbtq/kamo-scheduler/internal/storage"
	"github.com/cuongbtq/kamo-scheduler/internal/storage/memory"
	"github.com/cuongbtq/kamo-scheduler/internal/storage/postgres"
	"github.com/cuongbtq/kamo-scheduler/internal/worker"
	"github.com/cuongbtq/kamo-scheduler/shared/logger"
	"github.com/cuongbtq/kamo-scheduler/shared/postgresql"
	"github.com/cuongbtq/kamo-scheduler/shared/rabbitmq"
	"github.com/cuongbtq/kamo-scheduler/shared/redis"
)

// InitLogger initializes and configures the application logger
func InitLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	loggerCfg := &logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
		NoColor:      cfg.NoColor,
	}

	return logger.New(loggerCfg)
}

// InitPostgreSQL initializes the PostgreSQL database client
func InitPostgreSQL(cfg *config.DatabaseConfig, logger *slog.Logger) (*postgresql.Client, error) {
	dbConfig := &postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}

	return postgresql.NewClient(dbConfig, logger)
}

// InitRabbitMQ initializes the RabbitMQ client
func InitRabbitMQ(cfg *config.RabbitMQConfig, logger *slog.Logger) (*rabbitmq.Client, error) {
	return rabbitmq.NewClient(rabbitConfig(cfg), logger)
}

func rabbitConfig(cfg *config.RabbitMQConfig) *rabbitmq.Config {
	return &rabbitmq.Config{
		Host:               cfg.Host,
		Port:               cfg.Port,
		User:               cfg.User,
		Password:           cfg.Password,
		VHost:              cfg.VHost,
		ExchangeName:       cfg.Exchange.Name,
		ExchangeType:       cfg.Exchange.Type,
		ExchangeDurable:    cfg.Exchange.Durable,
		ExchangeAutoDelete: cfg.Exchange.AutoDelete,
		QueueName:          cfg.Queue.Name,
		QueueDurable:       cfg.Queue.Durable,
		QueueAutoDelete:    cfg.Queue.AutoDelete,
		QueueExclusive:     cfg.Queue.Exclusive,
		RoutingKey:         cfg.RoutingKey,
		PublishKey:         cfg.EventKey,
		PrefetchCount:      cfg.Consumer.PrefetchCount,
		RetryAttempts:      cfg.Connection.RetryAttempts,
		RetryInterval:      cfg.Connection.RetryInterval,
		Heartbeat:          cfg.Connection.Heartbeat,
		ConnectionTimeout:  cfg.Connection.ConnectionTimeout,
		PublishRetries:     cfg.Publish.RetryAttempts,
		PublishRetryDelay:  cfg.Publish.RetryInterval,
		PublishBackoffMult: cfg.Publish.BackoffMultiplier,
	}
}

// InitRedis initializes the Redis client
func InitRedis(cfg *config.RedisConfig, logger *slog.Logger) (*redis.Client, error) {
	return redis.NewClient(&redis.Config{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}, logger)
}

// Stores holds the two job queues
type Stores struct {
	Casts storage.CastStore
	Coins storage.CoinStore
}

// InitStores builds the queue stores for the configured driver. db is only
// used by the postgres driver.
func InitStores(ctx context.Context, cfg *config.StorageConfig, db *postgresql.Client, logger *slog.Logger) (Stores, error) {
	switch cfg.Driver {
	case config.DriverMemory, "":
		logger.Info("Using in-memory job store")
		return Stores{
			Casts: memory.NewCastStore(),
			Coins: memory.NewCoinStore(),
		}, nil
	case config.DriverPostgres:
		if db == nil {
			return Stores{}, fmt.Errorf("postgres storage requires a database client")
		}
		if cfg.AutoMigrate {
			if err := postgres.Migrate(ctx, db); err != nil {
				return Stores{}, fmt.Errorf("failed to migrate job tables: %w", err)
			}
			logger.Info("Job tables migrated")
		}
		return Stores{
			Casts: postgres.NewCastStorage(db, logger),
			Coins: postgres.NewCoinStorage(db, logger),
		}, nil
	default:
		return Stores{}, fmt.Errorf("unknown storage driver: %q", cfg.Driver)
	}
}

// Capabilities holds the external collaborators
type Capabilities struct {
	Publisher capability.Publisher
	Minter    capability.Minter
	Resolver  capability.WalletResolver
	Signers   capability.SignerChecker
}

// InitCapabilities builds the HTTP adapters. Unconfigured adapters are
// replaced by capability.Unavailable so jobs fail at sweep time.
func InitCapabilities(cfg *config.Config, logger *slog.Logger) Capabilities {
	var caps Capabilities

	if cfg.Neynar.APIKey != "" {
		client := neynar.NewClient(neynar.Config{
			BaseURL:              cfg.Neynar.BaseURL,
			APIKey:               cfg.Neynar.APIKey,
			Timeout:              cfg.Neynar.Timeout,
			AllowCustodyFallback: cfg.Neynar.CustodyFallback(),
		}, logger)
		caps.Publisher = client
		caps.Resolver = client
		caps.Signers = client
	} else {
		logger.Warn("Neynar API key not set; casts will fail and wallets cannot be resolved")
		unavailable := capability.Unavailable{Name: "neynar"}
		caps.Publisher = unavailable
		caps.Resolver = unavailable
		caps.Signers = unavailable
	}

	if cfg.Zora.RelayURL != "" {
		caps.Minter = zora.NewClient(zora.Config{
			BaseURL:          cfg.Zora.RelayURL,
			Token:            cfg.Zora.RelayToken,
			ChainID:          cfg.Zora.ChainID,
			Currency:         cfg.Zora.Currency,
			PlatformReferrer: cfg.Zora.PlatformReferrer,
			Timeout:          cfg.Zora.Timeout,
		}, logger)
	} else {
		logger.Warn("Zora relay URL not set; coin creations will fail")
		caps.Minter = capability.Unavailable{Name: "zora relay"}
	}

	return caps
}

// Events adapts an optional RabbitMQ client to the sweeper's event publisher.
// A nil client yields a nil interface, never a typed nil.
func Events(rabbit *rabbitmq.Client) worker.EventPublisher {
	if rabbit == nil {
		return nil
	}
	return rabbit
}

// InitTrigger builds both sweepers and the trigger that runs them
func InitTrigger(cfg *config.WorkerConfig, logger *slog.Logger, stores Stores, caps Capabilities, events worker.EventPublisher) *worker.Trigger {
	sweepCfg := &worker.Config{
		Logger:      logger,
		Casts:       stores.Casts,
		Coins:       stores.Coins,
		Publisher:   caps.Publisher,
		Minter:      caps.Minter,
		Events:      events,
		Concurrency: cfg.Concurrency,
		JobTimeout:  cfg.JobTimeout,
	}

	return worker.NewTrigger(logger,
		worker.NewCastSweeper(sweepCfg),
		worker.NewCoinSweeper(sweepCfg),
		cfg.SweepInterval,
	)
}
