package embedding

import (
	"context"
	"math"
)

// MockEmbedder derives a unit-length vector from a hash of the description
// text. Identical descriptions always map to identical vectors, so two
// captures of the same node score a cosine similarity of 1 without any model.
type MockEmbedder struct {
	dimensions int
}

// NewMockEmbedder returns a deterministic embedder producing vectors of the
// given dimensions.
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &MockEmbedder{dimensions: dimensions}
}

// Embed returns the deterministic vector for text, normalized to unit length.
func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	h := hashText(text)
	vec := make([]float32, m.dimensions)
	for i := range vec {
		vec[i] = float32(math.Sin(float64(h*(i+1)))*0.1 + 0.01)
	}

	var sum float64
	for _, v := range vec {
		sum += float64(v * v)
	}
	if sum > 0 {
		norm := 1.0 / math.Sqrt(sum)
		for i := range vec {
			vec[i] *= float32(norm)
		}
	}
	return vec, nil
}

// EmbedBatch embeds each text in order.
func (m *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := m.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = vec
	}
	return vectors, nil
}

// Dimensions returns the vector dimension.
func (m *MockEmbedder) Dimensions() int {
	return m.dimensions
}

// Close is a no-op.
func (m *MockEmbedder) Close() error {
	return nil
}
