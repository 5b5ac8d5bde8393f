package similarity

import (
	"encoding/gob"
	"fmt"
	"math/rand"
	"os"
	"time"
)

func newRebuildRNG() *rand.Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// DefaultIndexPath and DefaultMappingPath are the two companion files the
// index is persisted to, matching the original implementation's
// similarity.index / similarity.class pair.
const (
	DefaultIndexPath   = "./similarity.index"
	DefaultMappingPath = "./similarity.mapping"
)

// gobIndex and gobMapping are the serialisable shapes written to disk; the
// tree structure is flattened into parallel slices so gob does not need to
// round-trip the node pointer graph directly.
type gobIndex struct {
	Dim     int
	Vectors [][]float32
	BuiltAt time.Time
}

type gobMapping struct {
	IdxTitle map[int]int64
	TitleIdx map[int64]int
}

// Save persists the index's vectors and id mappings to two companion
// files. Trees are not persisted; Load rebuilds them from the saved
// vectors, since the random-projection forest is cheap to reconstruct and
// carries no information not already in the vectors themselves.
func (idx *Index) Save(indexPath, mappingPath string) error {
	if err := writeGob(indexPath, gobIndex{Dim: idx.dim, Vectors: idx.vectors, BuiltAt: idx.builtAt}); err != nil {
		return fmt.Errorf("save index: %w", err)
	}
	if err := writeGob(mappingPath, gobMapping{IdxTitle: idx.idxTitle, TitleIdx: idx.titleIdx}); err != nil {
		return fmt.Errorf("save mapping: %w", err)
	}
	return nil
}

// Load reconstructs an Index from the two companion files written by Save,
// rebuilding the random-projection forest from the saved vectors.
func Load(indexPath, mappingPath string) (*Index, error) {
	var gi gobIndex
	if err := readGob(indexPath, &gi); err != nil {
		return nil, fmt.Errorf("load index: %w", err)
	}
	var gm gobMapping
	if err := readGob(mappingPath, &gm); err != nil {
		return nil, fmt.Errorf("load mapping: %w", err)
	}

	idx := &Index{
		dim:      gi.Dim,
		vectors:  gi.Vectors,
		idxTitle: gm.IdxTitle,
		titleIdx: gm.TitleIdx,
		builtAt:  gi.BuiltAt,
	}

	allIndices := make([]int, len(idx.vectors))
	for i := range idx.vectors {
		allIndices[i] = i
	}
	rebuildRNG := newRebuildRNG()
	idx.trees = make([]*node, NumTrees)
	for t := 0; t < NumTrees; t++ {
		idx.trees[t] = buildTree(allIndices, idx.vectors, rebuildRNG)
	}

	return idx, nil
}

// IsStale reports whether indexPath's on-disk modification time is newer
// than this index's build timestamp, meaning a different process persisted
// a fresher build that this instance has not picked up yet.
func (idx *Index) IsStale(indexPath string) (bool, error) {
	info, err := os.Stat(indexPath)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat index file: %w", err)
	}
	return info.ModTime().After(idx.builtAt), nil
}

func writeGob(path string, v interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gob.NewEncoder(f).Encode(v)
}

func readGob(path string, v interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gob.NewDecoder(f).Decode(v)
}
