package embedding

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"media-observer/internal/domain/entity"
)

type fakeProvider struct {
	mu    sync.Mutex
	calls [][]string
	err   error
}

func (f *fakeProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string(nil), texts...))
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = make([]float32, entity.Dimension)
	}
	return vectors, nil
}

type fakeEmbeddingStorage struct {
	mu          sync.Mutex
	pending     []*entity.TitleText
	served      bool
	addedIDs    []int64
	addErr      error
}

func (f *fakeEmbeddingStorage) FrontPageExists(ctx context.Context, siteName string, timestampVirtual int64) (bool, error) {
	return false, nil
}

func (f *fakeEmbeddingStorage) AddPage(ctx context.Context, site *entity.Site, page *entity.FrontPage, timestampVirtual int64) error {
	return nil
}

func (f *fakeEmbeddingStorage) ListSites(ctx context.Context) ([]*entity.Site, error) { return nil, nil }

func (f *fakeEmbeddingStorage) ListArticlesOnFrontPage(ctx context.Context, titleIDs []int64) ([]*entity.ArticleOnFrontPage, error) {
	return nil, nil
}

func (f *fakeEmbeddingStorage) ListNeighbouringMainArticles(ctx context.Context, siteID int64, timestamp int64) ([]*entity.ArticleOnFrontPage, error) {
	return nil, nil
}

func (f *fakeEmbeddingStorage) ListTitlesWithoutEmbedding(ctx context.Context, limit int) ([]*entity.TitleText, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.served {
		return nil, nil
	}
	f.served = true
	return f.pending, nil
}

func (f *fakeEmbeddingStorage) ListAllEmbeddings(ctx context.Context) ([]*entity.Embedding, error) {
	return nil, nil
}

func (f *fakeEmbeddingStorage) AddEmbedding(ctx context.Context, e *entity.Embedding) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return f.addErr
	}
	f.addedIDs = append(f.addedIDs, e.TitleID)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

func TestEmbedBatch_DeduplicatesIdenticalTexts(t *testing.T) {
	provider := &fakeProvider{}
	storage := &fakeEmbeddingStorage{}
	w := New(DefaultConfig(), provider, storage, testLogger())

	titles := []*entity.TitleText{
		{TitleID: 1, Text: "breaking news"},
		{TitleID: 2, Text: "breaking news"},
		{TitleID: 3, Text: "other headline"},
	}

	err := w.embedBatch(context.Background(), titles)
	require.NoError(t, err)

	require.Len(t, provider.calls, 1)
	assert.Len(t, provider.calls[0], 2, "duplicate text should be encoded once")
	assert.ElementsMatch(t, []int64{1, 2, 3}, storage.addedIDs)
}

func TestEmbedBatch_ProviderErrorIsNotPersisted(t *testing.T) {
	provider := &fakeProvider{err: errors.New("provider unavailable")}
	storage := &fakeEmbeddingStorage{}
	w := New(DefaultConfig(), provider, storage, testLogger())

	titles := []*entity.TitleText{{TitleID: 1, Text: "headline"}}
	err := w.embedBatch(context.Background(), titles)

	assert.Error(t, err)
	assert.Empty(t, storage.addedIDs)
}

func TestRunOnce_NoTitlesReturnsNotProduced(t *testing.T) {
	storage := &fakeEmbeddingStorage{served: true}
	w := New(DefaultConfig(), &fakeProvider{}, storage, testLogger())

	produced, err := w.runOnce(context.Background())
	require.NoError(t, err)
	assert.False(t, produced)
}

func TestRunOnce_PersistsAndSignals(t *testing.T) {
	storage := &fakeEmbeddingStorage{pending: []*entity.TitleText{{TitleID: 1, Text: "headline"}}}
	w := New(DefaultConfig(), &fakeProvider{}, storage, testLogger())

	produced, err := w.runOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, produced)
}

func TestRun_SignalsNewEmbeddingsOnProgress(t *testing.T) {
	storage := &fakeEmbeddingStorage{pending: []*entity.TitleText{{TitleID: 1, Text: "headline"}}}
	cfg := Config{BatchSize: 64, PollInterval: time.Hour}
	w := New(cfg, &fakeProvider{}, storage, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	go w.Run(ctx)

	select {
	case <-w.NewEmbeddings:
	case <-time.After(time.Second):
		t.Fatal("expected a signal on NewEmbeddings after a non-empty batch")
	}
}
