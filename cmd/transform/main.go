package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	fileadapter "github.com/couchcryptid/health-environment-etl/internal/adapter/file"
	httpadapter "github.com/couchcryptid/health-environment-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/health-environment-etl/internal/adapter/kafka"
	pgadapter "github.com/couchcryptid/health-environment-etl/internal/adapter/postgres"
	redisadapter "github.com/couchcryptid/health-environment-etl/internal/adapter/redis"
	"github.com/couchcryptid/health-environment-etl/internal/config"
	"github.com/couchcryptid/health-environment-etl/internal/observability"
	"github.com/couchcryptid/health-environment-etl/internal/pipeline"
	"github.com/couchcryptid/health-environment-etl/internal/scheduler"
	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"
)

func main() {
	os.Exit(run())
}

func run() int {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open table store", "store", cfg.Store, "error", err)
		return 1
	}
	defer closeStore()

	opts := pipeline.Options{
		StartDate: cfg.PipelineStartDate,
		LagMode:   cfg.LagMode,
		Region:    cfg.FluRegion,
	}

	if len(cfg.KafkaBrokers) > 0 {
		writer := kafkaadapter.NewWriter(cfg, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		opts.Publisher = writer
		logger.Info("feature publishing enabled", "topic", cfg.KafkaFeaturesTopic)
	}

	if cfg.RedisAddr != "" {
		client := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		defer client.Close() //nolint:errcheck // shutdown
		opts.Lock = redisadapter.NewRunLock(client, redisadapter.DefaultKey, cfg.RunLockTTL)
		logger.Info("distributed run lock enabled", "addr", cfg.RedisAddr, "ttl", cfg.RunLockTTL)
	}

	p := pipeline.New(store, opts, logger, metrics)

	if cfg.RunOnce {
		if err := scheduler.RunOnce(ctx, p, logger); err != nil {
			return 1
		}
		return 0
	}

	sched, err := scheduler.New(cfg.Schedule, p, logger)
	if err != nil {
		logger.Error("failed to create scheduler", "error", err)
		return 1
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, p, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	if err := sched.Start(ctx); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		return 1
	}
	// Run once at startup so readiness does not wait for the first tick.
	sched.RunNow(ctx)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	select {
	case <-sched.Stop().Done():
	case <-shutdownCtx.Done():
		logger.Warn("in-flight run did not stop before the shutdown timeout")
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
	return 0
}

// openStore builds the configured table store and a func that releases it.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (pipeline.Store, func(), error) {
	switch cfg.Store {
	case config.StoreFile:
		logger.Info("using file store", "data_dir", cfg.DataDir, "output_dir", cfg.OutputDir)
		return fileadapter.NewStore(cfg.DataDir, cfg.OutputDir, logger), func() {}, nil
	default:
		db, err := pgadapter.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		closeDB := func() {
			if err := db.Close(); err != nil {
				logger.Error("warehouse close error", "error", err)
			}
		}
		store := pgadapter.NewStore(db, cfg, logger)
		if err := store.Migrate(ctx); err != nil {
			closeDB()
			return nil, nil, err
		}
		logger.Info("using warehouse store", "raw", cfg.RawSchema, "silver", cfg.SilverSchema, "gold", cfg.GoldSchema)
		return store, closeDB, nil
	}
}
