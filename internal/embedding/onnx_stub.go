//go:build !cgo
// +build !cgo

package embedding

import (
	"context"
	"fmt"
)

// ONNXEmbedder stub type when built without CGO (see onnx.go for real implementation).
type ONNXEmbedder struct{}

// NewONNXEmbedder returns an error when built without CGO (ONNX not available).
func NewONNXEmbedder(_ string, _, _, _ int) (*ONNXEmbedder, error) {
	return nil, fmt.Errorf("ONNX embedder requires CGO; build with CGO_ENABLED=1 and onnxruntime: %w", ErrModelUnavailable)
}

// Embed always fails on non-CGO builds.
func (e *ONNXEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return nil, ErrModelUnavailable
}

// EmbedBatch always fails on non-CGO builds.
func (e *ONNXEmbedder) EmbedBatch(_ context.Context, _ []string) ([][]float32, error) {
	return nil, ErrModelUnavailable
}

// Dimensions returns 0 on non-CGO builds.
func (e *ONNXEmbedder) Dimensions() int { return 0 }

// Close is a no-op on non-CGO builds.
func (e *ONNXEmbedder) Close() error { return nil }
