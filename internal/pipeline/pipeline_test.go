package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"media-observer/internal/domain/entity"
	"media-observer/internal/queue"
)

type fakeStorage struct {
	frontPageExists bool
	existsErr       error
	addPageErr      error
	addedPages      int
}

func (f *fakeStorage) FrontPageExists(ctx context.Context, siteName string, timestampVirtual int64) (bool, error) {
	return f.frontPageExists, f.existsErr
}

func (f *fakeStorage) AddPage(ctx context.Context, site *entity.Site, page *entity.FrontPage, timestampVirtual int64) error {
	if f.addPageErr != nil {
		return f.addPageErr
	}
	f.addedPages++
	return nil
}

func (f *fakeStorage) ListSites(ctx context.Context) ([]*entity.Site, error) { return nil, nil }

func (f *fakeStorage) ListArticlesOnFrontPage(ctx context.Context, titleIDs []int64) ([]*entity.ArticleOnFrontPage, error) {
	return nil, nil
}

func (f *fakeStorage) ListNeighbouringMainArticles(ctx context.Context, siteID int64, timestamp int64) ([]*entity.ArticleOnFrontPage, error) {
	return nil, nil
}

func (f *fakeStorage) ListTitlesWithoutEmbedding(ctx context.Context, limit int) ([]*entity.TitleText, error) {
	return nil, nil
}

func (f *fakeStorage) ListAllEmbeddings(ctx context.Context) ([]*entity.Embedding, error) {
	return nil, nil
}

func (f *fakeStorage) AddEmbedding(ctx context.Context, embedding *entity.Embedding) error {
	return nil
}

func testPipeline(t *testing.T, storage *fakeStorage) *Pipeline {
	t.Helper()
	cfg := DefaultConfig()
	cfg.DiagnosticsDir = t.TempDir()
	return New(cfg, queue.NewSet(queue.DefaultCapacity), nil, storage, slog.New(slog.NewTextHandler(os.Stderr, nil)))
}

func TestExecuteParse_UnsupportedSiteWritesDiagnostics(t *testing.T) {
	storage := &fakeStorage{}
	p := testPipeline(t, storage)

	snap := entity.Snapshot{
		ID: entity.SnapshotID{
			Original:  "https://example.com",
			Timestamp: time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC),
		},
		Text: "<html></html>",
	}
	job := queue.NewParseJob(queue.NewDiscoverJob(entity.Site{Name: "not_a_real_site"}, time.Now()).JobID(),
		entity.Site{Name: "not_a_real_site"}, snap, time.Now())

	p.executeParse(job)

	entries, err := os.ReadDir(p.cfg.DiagnosticsDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	subdir := filepath.Join(p.cfg.DiagnosticsDir, entries[0].Name())
	inner, err := os.ReadDir(subdir)
	require.NoError(t, err)
	require.Len(t, inner, 1)

	leaf := filepath.Join(subdir, inner[0].Name())
	for _, name := range []string{"snapshot.html", "exception.txt", "url.txt"} {
		_, err := os.Stat(filepath.Join(leaf, name))
		assert.NoError(t, err, "expected %s to exist", name)
	}
}

func TestExecuteStore_InvalidPageIsNotPersisted(t *testing.T) {
	storage := &fakeStorage{}
	p := testPipeline(t, storage)

	page := entity.FrontPage{
		TopArticles: []entity.TopArticle{{Rank: 2}},
	}
	job := queue.NewStoreJob(queue.NewDiscoverJob(entity.Site{Name: "le_monde"}, time.Now()).JobID(),
		entity.Site{Name: "le_monde"}, page, time.Now())

	p.executeStore(context.Background(), job)

	assert.Equal(t, 0, storage.addedPages)
}

func TestExecuteStore_ValidPageIsPersisted(t *testing.T) {
	storage := &fakeStorage{}
	p := testPipeline(t, storage)

	main, err := entity.NewMainArticle("title", "https://example.com/a")
	require.NoError(t, err)
	page := entity.FrontPage{MainArticle: *main}
	job := queue.NewStoreJob(queue.NewDiscoverJob(entity.Site{Name: "le_monde"}, time.Now()).JobID(),
		entity.Site{Name: "le_monde"}, page, time.Now())

	p.executeStore(context.Background(), job)

	assert.Equal(t, 1, storage.addedPages)
}

func TestExecuteStore_PropagatesStorageError(t *testing.T) {
	storage := &fakeStorage{addPageErr: errors.New("db unavailable")}
	p := testPipeline(t, storage)

	main, err := entity.NewMainArticle("title", "https://example.com/a")
	require.NoError(t, err)
	page := entity.FrontPage{MainArticle: *main}
	job := queue.NewStoreJob(queue.NewDiscoverJob(entity.Site{Name: "le_monde"}, time.Now()).JobID(),
		entity.Site{Name: "le_monde"}, page, time.Now())

	p.executeStore(context.Background(), job)

	assert.Equal(t, 0, storage.addedPages)
}

func TestAbsDuration(t *testing.T) {
	assert.Equal(t, time.Hour, absDuration(time.Hour))
	assert.Equal(t, time.Hour, absDuration(-time.Hour))
	assert.Equal(t, time.Duration(0), absDuration(0))
}
