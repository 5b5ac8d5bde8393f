package similarity

import (
	"context"
	"log/slog"
	"sync/atomic"

	"media-observer/internal/repository"
)

// Indexer owns the current Index and rebuilds it from storage every time it
// receives a signal on newEmbeddings. The current Index is stored behind an
// atomic.Pointer so readers never observe a partially built index: they see
// either the previous build or the next one, never a torn state.
type Indexer struct {
	storage       repository.StorageRepository
	newEmbeddings <-chan struct{}
	logger        *slog.Logger
	indexPath     string
	mappingPath   string

	current atomic.Pointer[Index]
}

// NewIndexer constructs an Indexer. newEmbeddings is typically an
// embedding.Worker's NewEmbeddings channel.
func NewIndexer(storage repository.StorageRepository, newEmbeddings <-chan struct{}, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	idx := &Indexer{
		storage:       storage,
		newEmbeddings: newEmbeddings,
		logger:        logger,
		indexPath:     DefaultIndexPath,
		mappingPath:   DefaultMappingPath,
	}
	idx.current.Store(NewEmpty())
	return idx
}

// Current returns the most recently built (or loaded) Index. Safe to call
// concurrently with Run.
func (r *Indexer) Current() *Index {
	return r.current.Load()
}

// Run loads a previously persisted index if present, then blocks,
// rebuilding from storage and persisting each time newEmbeddings fires,
// until ctx is cancelled.
func (r *Indexer) Run(ctx context.Context) {
	if loaded, err := Load(r.indexPath, r.mappingPath); err == nil {
		r.current.Store(loaded)
		r.logger.Info("similarity: loaded persisted index", slog.Int("size", loaded.Size()))
	} else {
		r.logger.Warn("similarity: could not load persisted index, starting empty", slog.Any("error", err))
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.newEmbeddings:
			r.rebuild(ctx)
		}
	}
}

func (r *Indexer) rebuild(ctx context.Context) {
	idx, err := BuildFromStorage(ctx, r.storage)
	if err != nil {
		r.logger.Error("similarity: rebuild failed", slog.Any("error", err))
		return
	}
	if err := idx.Save(r.indexPath, r.mappingPath); err != nil {
		r.logger.Error("similarity: save failed", slog.Any("error", err))
	}
	r.current.Store(idx)
	r.logger.Info("similarity: index rebuilt", slog.Int("size", idx.Size()))
}
