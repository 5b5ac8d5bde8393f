package similarity

import (
	"context"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"media-observer/internal/domain/entity"
)

func TestIndexer_RebuildsOnSignal(t *testing.T) {
	dir := t.TempDir()
	rng := rand.New(rand.NewSource(3))

	storage := &fakeStorage{embeddings: []*entity.Embedding{
		{TitleID: 1, Vector: randomVector(rng, entity.Dimension)},
		{TitleID: 2, Vector: randomVector(rng, entity.Dimension)},
	}}

	signal := make(chan struct{}, 1)
	indexer := NewIndexer(storage, signal, slog.New(slog.NewTextHandler(os.Stderr, nil)))
	indexer.indexPath = filepath.Join(dir, "similarity.index")
	indexer.mappingPath = filepath.Join(dir, "similarity.mapping")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go indexer.Run(ctx)

	signal <- struct{}{}

	require.Eventually(t, func() bool {
		return indexer.Current().Size() == 2
	}, time.Second, 10*time.Millisecond)
}

func TestIndexer_CurrentStartsEmpty(t *testing.T) {
	indexer := NewIndexer(&fakeStorage{}, make(chan struct{}), nil)
	assert.Equal(t, 0, indexer.Current().Size())
}
