// Package similarity maintains an in-memory approximate-nearest-neighbour
// index over title embeddings: a forest of random-projection trees over a
// dot-product metric, rebuilt wholesale from storage and swapped in
// atomically, mirroring the Annoy-backed index this was ported from (no
// Annoy binding exists in Go, so the forest is hand-rolled here).
package similarity

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"media-observer/internal/domain/entity"
	"media-observer/internal/observability/metrics"
	"media-observer/internal/repository"
)

// NumTrees is the fixed number of random-projection trees built per index,
// matching the original AnnoyIndex.build(20) call.
const NumTrees = 20

// leafSize bounds how many vectors a tree leaf holds before the build
// stops splitting it further.
const leafSize = 10

// SearchResult pairs a neighbouring title with its raw dot-product score
// against the query vector.
type SearchResult struct {
	TitleID int64
	Score   float32
}

// Index is an immutable-per-build forest of random-projection trees over
// title embedding vectors. Index values are built once via BuildFromStorage
// or Load, then read concurrently; a rebuild produces a brand new Index
// rather than mutating one in place, so callers can swap a pointer instead
// of taking locks on the hot path.
type Index struct {
	dim      int
	vectors  [][]float32
	trees    []*node
	idxTitle map[int]int64
	titleIdx map[int64]int
	builtAt  time.Time
}

// NewEmpty returns an Index with no vectors, useful as a zero-value
// placeholder before the first successful build.
func NewEmpty() *Index {
	return &Index{dim: entity.Dimension, idxTitle: map[int]int64{}, titleIdx: map[int64]int{}}
}

// BuildFromStorage fetches every stored embedding, assigns each a
// sequential internal index, and builds NumTrees random-projection trees
// over the resulting vector set. Returns an error if storage has no
// embeddings yet.
func BuildFromStorage(ctx context.Context, storage repository.StorageRepository) (*Index, error) {
	start := time.Now()

	embeds, err := storage.ListAllEmbeddings(ctx)
	if err != nil {
		return nil, fmt.Errorf("list embeddings: %w", err)
	}
	if len(embeds) == 0 {
		return nil, fmt.Errorf("no embeddings found in storage; have they been computed yet?")
	}

	idx := &Index{
		dim:      entity.Dimension,
		vectors:  make([][]float32, len(embeds)),
		idxTitle: make(map[int]int64, len(embeds)),
		titleIdx: make(map[int64]int, len(embeds)),
		builtAt:  start,
	}

	allIndices := make([]int, len(embeds))
	for i, e := range embeds {
		idx.vectors[i] = e.Vector
		idx.idxTitle[i] = e.TitleID
		idx.titleIdx[e.TitleID] = i
		allIndices[i] = i
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	idx.trees = make([]*node, NumTrees)
	for t := 0; t < NumTrees; t++ {
		idx.trees[t] = buildTree(allIndices, idx.vectors, rng)
	}

	metrics.RecordIndexRebuild(time.Since(start), len(embeds))
	return idx, nil
}

// Search returns up to k nearest neighbours (by dot product) of the single
// title in titleIDs, excluding the query title itself and filtered by
// scorePredicate. Mirrors the original implementation's single-title
// contract: exactly one title id must be supplied.
func (idx *Index) Search(titleIDs []int64, k int, scorePredicate func(float32) bool) ([]SearchResult, error) {
	if len(titleIDs) != 1 {
		return nil, fmt.Errorf("search expects exactly one title id, got %d", len(titleIDs))
	}
	titleID := titleIDs[0]

	queryIdx, ok := idx.titleIdx[titleID]
	if !ok {
		return nil, fmt.Errorf("title %d has no embedding in the index; has it been computed yet?", titleID)
	}
	query := idx.vectors[queryIdx]

	candidates := map[int]struct{}{}
	for _, t := range idx.trees {
		for _, c := range candidateLeaf(query, t) {
			candidates[c] = struct{}{}
		}
	}
	delete(candidates, queryIdx)

	scored := make([]SearchResult, 0, len(candidates))
	for c := range candidates {
		score := dot(query, idx.vectors[c])
		if scorePredicate != nil && !scorePredicate(score) {
			continue
		}
		scored = append(scored, SearchResult{TitleID: idx.idxTitle[c], Score: score})
	}

	sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// Size returns the number of vectors currently held by the index.
func (idx *Index) Size() int { return len(idx.vectors) }

// BuiltAt returns the timestamp at which this index was built.
func (idx *Index) BuiltAt() time.Time { return idx.builtAt }

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
