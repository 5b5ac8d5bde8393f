package embedding

import (
	"context"
	"log/slog"
	"time"

	"media-observer/internal/domain/entity"
	"media-observer/internal/observability/metrics"
	"media-observer/internal/repository"
)

// DefaultBatchSize is the default number of titles embedded per batch.
const DefaultBatchSize = 64

// DefaultPollInterval is how long the worker sleeps between iterations
// once it has drained every title currently lacking an embedding.
const DefaultPollInterval = 30 * time.Second

// Config controls the embedding worker's batching and polling behaviour.
type Config struct {
	BatchSize    int
	PollInterval time.Duration
}

// DefaultConfig returns the worker's default batch size and poll interval.
func DefaultConfig() Config {
	return Config{BatchSize: DefaultBatchSize, PollInterval: DefaultPollInterval}
}

// Worker is the long-running embedding computation loop. On every
// iteration it fetches titles without an embedding, computes vectors in
// batches, persists them, and signals NewEmbeddings after any batch that
// produced at least one row.
type Worker struct {
	cfg      Config
	provider Provider
	storage  repository.StorageRepository
	logger   *slog.Logger

	// NewEmbeddings is sent a value every time a non-empty batch is
	// persisted, so the similarity indexer can wake up and rebuild. It is
	// buffered with capacity 1 so a burst of batches coalesces into a
	// single pending rebuild signal instead of blocking the worker.
	NewEmbeddings chan struct{}
}

// New constructs a Worker. provider does the actual vector computation;
// storage is the persistence boundary for titles and embeddings.
func New(cfg Config, provider Provider, storage repository.StorageRepository, logger *slog.Logger) *Worker {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		cfg:           cfg,
		provider:      provider,
		storage:       storage,
		logger:        logger,
		NewEmbeddings: make(chan struct{}, 1),
	}
}

// Run loops until ctx is cancelled: fetch titles lacking an embedding,
// embed and persist them in batches, signal on progress, sleep, repeat.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		produced, err := w.runOnce(ctx)
		if err != nil {
			w.logger.Error("embedding: iteration failed", slog.Any("error", err))
		}
		if produced {
			w.signal()
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.cfg.PollInterval):
		}
	}
}

// runOnce performs one fetch-embed-persist cycle across every batch of
// titles currently lacking an embedding. It returns true if at least one
// embedding was persisted.
func (w *Worker) runOnce(ctx context.Context) (bool, error) {
	titles, err := w.storage.ListTitlesWithoutEmbedding(ctx, w.cfg.BatchSize)
	if err != nil {
		return false, err
	}
	if len(titles) == 0 {
		return false, nil
	}

	if err := w.embedBatch(ctx, titles); err != nil {
		return false, err
	}
	return true, nil
}

// embedBatch deduplicates identical title texts so the provider encodes
// each unique string once, computes vectors, and fans the result back out
// to every title_id that shared that text.
func (w *Worker) embedBatch(ctx context.Context, titles []*entity.TitleText) error {
	start := time.Now()

	uniqueTexts := make([]string, 0, len(titles))
	firstIndex := make(map[string]int, len(titles))
	for _, t := range titles {
		if _, seen := firstIndex[t.Text]; seen {
			continue
		}
		firstIndex[t.Text] = len(uniqueTexts)
		uniqueTexts = append(uniqueTexts, t.Text)
	}

	vectors, err := w.provider.Embed(ctx, uniqueTexts)
	if err != nil {
		return err
	}

	for _, t := range titles {
		idx := firstIndex[t.Text]
		if err := w.storage.AddEmbedding(ctx, &entity.Embedding{TitleID: t.TitleID, Vector: vectors[idx]}); err != nil {
			w.logger.Error("embedding: failed to persist",
				slog.Int64("title_id", t.TitleID), slog.Any("error", err))
			continue
		}
	}

	metrics.RecordEmbeddingBatch(len(uniqueTexts), time.Since(start))
	w.logger.Info("embedding: batch persisted",
		slog.Int("titles", len(titles)), slog.Int("unique_texts", len(uniqueTexts)),
		slog.Duration("duration", time.Since(start)))
	return nil
}

func (w *Worker) signal() {
	select {
	case w.NewEmbeddings <- struct{}{}:
	default:
	}
}
