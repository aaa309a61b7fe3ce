// Package vector provides similarity search over stored feature embeddings.
// The Index interface keeps the backend swappable; the shipped implementation
// is an in-memory brute-force scan, which is exact and fast enough for the
// record counts a locator knowledge base sees.
package vector

import "context"

// Index defines vector storage and nearest-neighbor search. IDs identify
// knowledge base record entries.
type Index interface {
	Add(ctx context.Context, ids []string, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]*Result, error)
	Remove(ctx context.Context, ids []string) error
	Save(path string) error
	Load(path string) error
	Size() int
	Close() error
}

// Result is a single nearest-neighbor hit.
type Result struct {
	ID    string
	Score float64 // inner product; cosine similarity for normalized vectors
}
