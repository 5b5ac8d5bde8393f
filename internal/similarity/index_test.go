package similarity

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"media-observer/internal/domain/entity"
)

type fakeStorage struct {
	embeddings []*entity.Embedding
}

func (f *fakeStorage) FrontPageExists(ctx context.Context, siteName string, timestampVirtual int64) (bool, error) {
	return false, nil
}
func (f *fakeStorage) AddPage(ctx context.Context, site *entity.Site, page *entity.FrontPage, timestampVirtual int64) error {
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
	return f.embeddings, nil
}
func (f *fakeStorage) AddEmbedding(ctx context.Context, e *entity.Embedding) error { return nil }

func randomVector(rng *rand.Rand, dim int) []float32 {
	v := make([]float32, dim)
	for i := range v {
		v[i] = rng.Float32()
	}
	return v
}

func TestBuildFromStorage_EmptyReturnsError(t *testing.T) {
	_, err := BuildFromStorage(context.Background(), &fakeStorage{})
	assert.Error(t, err)
}

func TestBuildFromStorage_AndSearch(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	dim := 8

	base := randomVector(rng, dim)
	near := make([]float32, dim)
	copy(near, base)
	near[0] += 0.001

	embeddings := []*entity.Embedding{
		{TitleID: 1, Vector: base},
		{TitleID: 2, Vector: near},
		{TitleID: 3, Vector: randomVector(rng, dim)},
		{TitleID: 4, Vector: randomVector(rng, dim)},
	}

	idx := &Index{dim: dim, idxTitle: map[int]int64{}, titleIdx: map[int64]int{}}
	idx.vectors = make([][]float32, len(embeddings))
	allIndices := make([]int, len(embeddings))
	for i, e := range embeddings {
		idx.vectors[i] = e.Vector
		idx.idxTitle[i] = e.TitleID
		idx.titleIdx[e.TitleID] = i
		allIndices[i] = i
	}
	idx.trees = make([]*node, NumTrees)
	for t := 0; t < NumTrees; t++ {
		idx.trees[t] = buildTree(allIndices, idx.vectors, rng)
	}

	results, err := idx.Search([]int64{1}, 10, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, results)

	for _, r := range results {
		assert.NotEqual(t, int64(1), r.TitleID, "query title must not appear in its own results")
	}
}

func TestSearch_UnknownTitleFails(t *testing.T) {
	idx := NewEmpty()
	_, err := idx.Search([]int64{999}, 5, nil)
	assert.Error(t, err)
}

func TestSearch_RequiresExactlyOneTitle(t *testing.T) {
	idx := NewEmpty()
	_, err := idx.Search([]int64{1, 2}, 5, nil)
	assert.Error(t, err)

	_, err = idx.Search(nil, 5, nil)
	assert.Error(t, err)
}

func TestSearch_ScorePredicateFiltersResults(t *testing.T) {
	idx := &Index{dim: 2, idxTitle: map[int]int64{0: 1, 1: 2, 2: 3}, titleIdx: map[int64]int{1: 0, 2: 1, 3: 2}}
	idx.vectors = [][]float32{{1, 0}, {1, 0}, {-1, 0}}
	allIndices := []int{0, 1, 2}
	rng := rand.New(rand.NewSource(1))
	idx.trees = make([]*node, NumTrees)
	for t := 0; t < NumTrees; t++ {
		idx.trees[t] = buildTree(allIndices, idx.vectors, rng)
	}

	results, err := idx.Search([]int64{1}, 10, func(score float32) bool { return score > 0 })
	require.NoError(t, err)
	for _, r := range results {
		assert.NotEqual(t, int64(3), r.TitleID, "negative-score neighbour should be filtered out")
	}
}

func TestDot(t *testing.T) {
	assert.Equal(t, float32(0), dot([]float32{1, 0}, []float32{0, 1}))
	assert.Equal(t, float32(1), dot([]float32{1, 0}, []float32{1, 0}))
}
