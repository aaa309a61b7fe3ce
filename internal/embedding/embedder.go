// Package embedding provides the text embedding capability used to compare
// DOM node descriptions across builds: an ONNX-backed implementation, a
// deterministic mock, and an LRU cache.
package embedding

import (
	"context"
	"errors"
)

// ErrModelUnavailable marks embedding failures the resolver degrades on: the
// pipeline falls back to rule-score-only ranking instead of failing the key.
var ErrModelUnavailable = errors.New("embedding model unavailable")

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}
