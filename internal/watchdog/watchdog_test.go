package watchdog

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"media-observer/internal/domain/entity"
	"media-observer/internal/infra/worker"
	"media-observer/internal/queue"
)

type fakeStorage struct {
	sites []*entity.Site
}

func (f *fakeStorage) FrontPageExists(context.Context, string, int64) (bool, error) { return false, nil }
func (f *fakeStorage) AddPage(context.Context, *entity.Site, *entity.FrontPage, int64) error {
	return nil
}
func (f *fakeStorage) ListSites(context.Context) ([]*entity.Site, error) { return f.sites, nil }
func (f *fakeStorage) ListArticlesOnFrontPage(context.Context, []int64) ([]*entity.ArticleOnFrontPage, error) {
	return nil, nil
}
func (f *fakeStorage) ListNeighbouringMainArticles(context.Context, int64, int64) ([]*entity.ArticleOnFrontPage, error) {
	return nil, nil
}
func (f *fakeStorage) ListTitlesWithoutEmbedding(context.Context, int) ([]*entity.TitleText, error) {
	return nil, nil
}
func (f *fakeStorage) ListAllEmbeddings(context.Context) ([]*entity.Embedding, error) { return nil, nil }
func (f *fakeStorage) AddEmbedding(context.Context, *entity.Embedding) error          { return nil }

// TestTick_RespectsMaxConcurrentDiscoverJobs reproduces seed test S6's use
// of a configurable hours-of-day schedule, and confirms that a tick never
// enqueues more Discover jobs than MaxConcurrentDiscoverJobs allows even
// when the site/hour matrix would otherwise produce more.
func TestTick_RespectsMaxConcurrentDiscoverJobs(t *testing.T) {
	site, err := entity.NewSite("le_monde", "https://www.lemonde.fr", time.UTC)
	require.NoError(t, err)

	cfg := worker.DefaultConfig()
	cfg.DaysInPast = 3
	cfg.Hours = []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20, 21, 22, 23}
	cfg.MaxConcurrentDiscoverJobs = 2

	wd := &Watchdog{
		cfg:     cfg,
		storage: &fakeStorage{sites: []*entity.Site{site}},
		queues:  queue.NewSet(queue.DefaultCapacity),
		metrics: worker.NewWorkerMetrics(),
		logger:  slog.Default(),
	}

	wd.tick(context.Background())

	assert.LessOrEqual(t, len(wd.queues.Discover), 2)
}

func TestLastNDaysAtHours_FiltersFutureInstants(t *testing.T) {
	loc := time.UTC
	instants := lastNDaysAtHours(2, []int{8, 18}, loc)

	now := time.Now().In(loc)
	for _, dt := range instants {
		assert.True(t, dt.Before(now), "instant %s should be before now", dt)
	}
}

func TestLastNDaysAtHours_CoversExpectedCount(t *testing.T) {
	loc := time.UTC
	instants := lastNDaysAtHours(3, []int{8, 18}, loc)

	// At most 3 days * 2 hours = 6 instants; could be fewer if today's
	// hours haven't occurred yet.
	assert.LessOrEqual(t, len(instants), 6)
	assert.NotEmpty(t, instants)
}

func TestLastNDaysAtHours_NilLocationDefaultsToUTC(t *testing.T) {
	a := lastNDaysAtHours(1, []int{0}, nil)
	b := lastNDaysAtHours(1, []int{0}, time.UTC)
	assert.Equal(t, b, a)
}
