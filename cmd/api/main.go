package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	hhttp "media-observer/internal/handler/http"
	"media-observer/internal/handler/http/query"
	"media-observer/internal/handler/http/requestid"
	pgRepo "media-observer/internal/infra/adapter/persistence/postgres"
	sqliteRepo "media-observer/internal/infra/adapter/persistence/sqlite"
	"media-observer/internal/infra/db"
	"media-observer/internal/repository"
	"media-observer/internal/similarity"
)

// cmd/api is a thin, read-only HTTP surface over the archival pipeline's
// storage and similarity index. It runs no pipeline, watchdog or embedding
// worker of its own: those belong to cmd/worker. It only ever reads the
// storage layer and the index file cmd/worker persists, reloading the
// latter whenever it changes on disk.
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

	reloader := newIndexReloader(logger)
	go reloader.Run(ctx)

	mux := http.NewServeMux()
	mux.Handle("/health", &hhttp.HealthHandler{DB: database, Version: getVersion()})
	mux.Handle("/ready", &hhttp.ReadyHandler{DB: database})
	mux.Handle("/live", &hhttp.LiveHandler{})
	mux.Handle("/metrics", hhttp.MetricsHandler())
	query.Register(mux, storage, reloader)

	handler := applyMiddleware(logger, mux)

	runServer(ctx, logger, handler)
}

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

func getVersion() string {
	version := os.Getenv("VERSION")
	if version == "" {
		version = "dev"
	}
	return version
}

// initStorage opens either the Postgres or SQLite backend depending on
// STORAGE_BACKEND, running its migrations. Mirrors cmd/worker's
// initialization so both binaries agree on where the data lives.
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

// requestTimeout bounds how long a single query request may run before the
// server gives up and returns 504, protecting against a stuck database query
// holding a connection open indefinitely.
const requestTimeout = 10 * time.Second

// applyMiddleware wraps handler with the ambient request-id, recovery,
// logging, metrics and timeout middleware. No auth and no rate limiting:
// this surface is read-only and explicitly non-core.
func applyMiddleware(logger *slog.Logger, handler http.Handler) http.Handler {
	chain := handler
	chain = hhttp.Timeout(requestTimeout)(chain)
	chain = hhttp.MetricsMiddleware(chain)
	chain = hhttp.Logging(logger)(chain)
	chain = hhttp.Recover(logger)(chain)
	chain = requestid.Middleware(chain)
	return chain
}

func runServer(ctx context.Context, logger *slog.Logger, handler http.Handler) {
	addr := os.Getenv("API_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		logger.Info("server starting", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", slog.Any("error", err))
	}
	logger.Info("server stopped")
}

// indexReloaderPollInterval is how often cmd/api checks whether cmd/worker
// has persisted a newer similarity index.
const indexReloaderPollInterval = 30 * time.Second

// indexReloader satisfies query.IndexSource by periodically reloading the
// similarity index cmd/worker persists to disk. Unlike similarity.Indexer,
// it never rebuilds from storage itself: rebuilding is cmd/worker's job.
type indexReloader struct {
	logger  *slog.Logger
	current atomic.Pointer[similarity.Index]
}

func newIndexReloader(logger *slog.Logger) *indexReloader {
	r := &indexReloader{logger: logger}
	r.current.Store(similarity.NewEmpty())
	return r
}

func (r *indexReloader) Current() *similarity.Index {
	return r.current.Load()
}

func (r *indexReloader) Run(ctx context.Context) {
	r.reload()
	ticker := time.NewTicker(indexReloaderPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.reload()
		}
	}
}

func (r *indexReloader) reload() {
	stale, err := r.Current().IsStale(similarity.DefaultIndexPath)
	if err != nil {
		r.logger.Warn("similarity: could not check index staleness", slog.Any("error", err))
		return
	}
	if !stale {
		return
	}

	loaded, err := similarity.Load(similarity.DefaultIndexPath, similarity.DefaultMappingPath)
	if err != nil {
		r.logger.Warn("similarity: could not reload index", slog.Any("error", err))
		return
	}
	r.current.Store(loaded)
	r.logger.Info("similarity: index reloaded", slog.Int("size", loaded.Size()))
}
