package entity

// Title is the human-readable headline string for an article. It is kept
// separate from Article so that the same article seen under a different
// headline creates a new Title row. Uniqueness is by text.
type Title struct {
	ID   int64
	Text string
}

// Embedding is a fixed-dimension vector representation of a Title's
// meaning. One-to-one with Title.
type Embedding struct {
	TitleID int64
	Vector  []float32
}

// Dimension is the configured embedding vector length.
const Dimension = 1024
