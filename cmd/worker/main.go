package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"media-observer/internal/archive"
	"media-observer/internal/embedding"
	httphandler "media-observer/internal/handler/http"
	pgRepo "media-observer/internal/infra/adapter/persistence/postgres"
	sqliteRepo "media-observer/internal/infra/adapter/persistence/sqlite"
	"media-observer/internal/infra/db"
	workerPkg "media-observer/internal/infra/worker"
	"media-observer/internal/pipeline"
	"media-observer/internal/queue"
	"media-observer/internal/repository"
	"media-observer/internal/similarity"
	"media-observer/internal/watchdog"
)

func main() {
	logger := initLogger()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	database, storage, err := initStorage(logger)
	if err != nil {
		logger.Error("failed to initialize storage", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	workerMetrics := workerPkg.NewWorkerMetrics()
	workerMetrics.MustRegister()
	workerConfig, err := workerPkg.LoadConfigFromEnv(logger, workerMetrics)
	if err != nil {
		logger.Error("failed to load worker configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker configuration loaded",
		slog.String("cron_schedule", workerConfig.CronSchedule),
		slog.String("timezone", workerConfig.Timezone),
		slog.Int("days_in_past", workerConfig.DaysInPast),
		slog.Int("health_port", workerConfig.HealthPort),
		slog.Any("hours", workerConfig.Hours))

	healthAddr := fmt.Sprintf(":%d", workerConfig.HealthPort)
	healthServer := workerPkg.NewHealthServer(healthAddr, logger)
	go func() {
		if err := healthServer.Start(ctx); err != nil && err != http.ErrServerClosed {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()
	logger.Info("health check server started", slog.String("addr", healthAddr))

	go startMetricsServer(logger)

	archiveClient := archive.New(archive.DefaultConfig(), logger)

	queues := queue.NewSet(queue.DefaultCapacity)

	wd, err := watchdog.New(*workerConfig, storage, queues, workerMetrics, logger)
	if err != nil {
		logger.Error("failed to initialize watchdog", slog.Any("error", err))
		os.Exit(1)
	}

	pipelineConfig := pipeline.DefaultConfig()
	pipelineConfig.DiscoverTimeout = workerConfig.SnapshotSearchTimeout
	pl := pipeline.New(pipelineConfig, queues, archiveClient, storage, logger)
	go pl.Run(ctx)

	embeddingWorker := embedding.New(embedding.DefaultConfig(), newEmbeddingProvider(logger), storage, logger)
	go embeddingWorker.Run(ctx)

	indexer := similarity.NewIndexer(storage, embeddingWorker.NewEmbeddings, logger)
	go indexer.Run(ctx)

	healthServer.SetReady(true)
	logger.Info("worker marked as ready")

	logger.Info("worker started", slog.String("schedule", workerConfig.CronSchedule))
	if err := wd.Run(ctx); err != nil {
		logger.Error("watchdog stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
}

// initLogger initializes and returns a structured JSON logger based on
// environment configuration.
func initLogger() *slog.Logger {
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// initStorage opens either the Postgres or SQLite backend depending on
// STORAGE_BACKEND, runs its migrations, and wraps it as a
// repository.StorageRepository.
func initStorage(logger *slog.Logger) (*sql.DB, repository.StorageRepository, error) {
	backend := os.Getenv("STORAGE_BACKEND")
	if backend == "" {
		backend = "postgres"
	}

	switch backend {
	case "sqlite":
		path := os.Getenv("SQLITE_PATH")
		if path == "" {
			path = "./media-observer.db"
		}
		database, err := db.OpenSQLite(path)
		if err != nil {
			return nil, nil, err
		}
		if err := sqliteRepo.MigrateUp(database); err != nil {
			return nil, nil, err
		}
		logger.Info("storage backend initialized", slog.String("backend", "sqlite"), slog.String("path", path))
		return database, sqliteRepo.NewStorageRepo(database), nil
	default:
		database := db.Open()
		if err := pgRepo.MigrateUp(database); err != nil {
			return nil, nil, err
		}
		logger.Info("storage backend initialized", slog.String("backend", "postgres"))
		return database, pgRepo.NewStorageRepo(database), nil
	}
}

// newEmbeddingProvider constructs the remote embedding provider from
// EMBEDDING_API_KEY and EMBEDDING_MODEL environment variables.
func newEmbeddingProvider(logger *slog.Logger) embedding.Provider {
	apiKey := os.Getenv("EMBEDDING_API_KEY")
	model := os.Getenv("EMBEDDING_MODEL")
	if model == "" {
		model = "text-embedding-3-large"
	}
	if apiKey == "" {
		logger.Warn("EMBEDDING_API_KEY not set; embedding worker will fail every call until configured")
	}
	return embedding.NewOpenAIProvider(apiKey, model)
}

// startMetricsServer serves Prometheus metrics on METRICS_PORT (default
// 9090), shared by every package that registers counters against the
// default Prometheus registry.
func startMetricsServer(logger *slog.Logger) {
	port := os.Getenv("METRICS_PORT")
	if port == "" {
		port = "9090"
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", httphandler.MetricsHandler())
	addr := ":" + port
	logger.Info("metrics server started", slog.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		logger.Error("metrics server failed", slog.Any("error", err))
	}
}
