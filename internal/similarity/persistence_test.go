package similarity

import (
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTestIndex(t *testing.T) *Index {
	t.Helper()
	rng := rand.New(rand.NewSource(7))
	dim := 4
	vectors := [][]float32{
		randomVector(rng, dim),
		randomVector(rng, dim),
		randomVector(rng, dim),
	}

	idx := &Index{
		dim:      dim,
		vectors:  vectors,
		idxTitle: map[int]int64{0: 10, 1: 20, 2: 30},
		titleIdx: map[int64]int{10: 0, 20: 1, 30: 2},
		builtAt:  time.Now(),
	}
	allIndices := []int{0, 1, 2}
	idx.trees = make([]*node, NumTrees)
	for t := 0; t < NumTrees; t++ {
		idx.trees[t] = buildTree(allIndices, idx.vectors, rng)
	}
	return idx
}

func TestSaveAndLoad_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	indexPath := filepath.Join(dir, "similarity.index")
	mappingPath := filepath.Join(dir, "similarity.mapping")

	original := buildTestIndex(t)
	require.NoError(t, original.Save(indexPath, mappingPath))

	loaded, err := Load(indexPath, mappingPath)
	require.NoError(t, err)

	assert.Equal(t, original.Size(), loaded.Size())
	assert.Equal(t, original.idxTitle, loaded.idxTitle)
	assert.Equal(t, original.titleIdx, loaded.titleIdx)

	results, err := loaded.Search([]int64{10}, 5, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, results)
}

func TestIsStale_MissingFileIsNotStale(t *testing.T) {
	idx := buildTestIndex(t)
	stale, err := idx.IsStale(filepath.Join(t.TempDir(), "does-not-exist.index"))
	require.NoError(t, err)
	assert.False(t, stale)
}

func TestIsStale_NewerFileOnDiskIsStale(t *testing.T) {
	dir := t.TempDir()
	indexPath := filepath.Join(dir, "similarity.index")
	mappingPath := filepath.Join(dir, "similarity.mapping")

	idx := buildTestIndex(t)
	idx.builtAt = time.Now().Add(-time.Hour)
	require.NoError(t, idx.Save(indexPath, mappingPath))

	stale, err := idx.IsStale(indexPath)
	require.NoError(t, err)
	assert.True(t, stale, "file written after builtAt should be considered stale")
}
