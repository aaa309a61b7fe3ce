// Package kb persists semantic records and serves nearest-neighbor lookups
// over their feature embeddings.
package kb

import (
	"context"
	"errors"

	"github.com/semloc/semloc/internal/models"
)

// ErrNotFound is returned when no record exists for the requested key and build.
var ErrNotFound = errors.New("record not found")

// ErrConflict is returned when a Put carries a stale version for an existing
// (semanticKey, buildId) record. Callers re-fetch and retry.
var ErrConflict = errors.New("record version conflict")

// Neighbor is one nearest-neighbor hit with its record.
type Neighbor struct {
	Record     *models.SemanticRecord
	Similarity float64
}

// Store is the knowledge base. Records are keyed by (semanticKey, buildId)
// and versioned for optimistic writes; annotations attach to a semantic key
// and persist across builds until revoked.
type Store interface {
	// Put writes rec. rec.Version must be 0 for a new (key, build) pair or
	// the current stored version otherwise; a mismatch returns ErrConflict.
	// On success rec.Version holds the new stored version.
	Put(ctx context.Context, rec *models.SemanticRecord) error
	Get(ctx context.Context, semanticKey, buildID string) (*models.SemanticRecord, error)
	// History returns records for semanticKey, newest build first.
	History(ctx context.Context, semanticKey string, limit int) ([]*models.SemanticRecord, error)
	ListKeys(ctx context.Context) ([]string, error)
	NearestNeighbors(ctx context.Context, embedding []float32, k int) ([]*Neighbor, error)
	Annotate(ctx context.Context, ann *models.Annotation) error
	RevokeAnnotation(ctx context.Context, id string) error
	Annotations(ctx context.Context, semanticKey string) ([]models.Annotation, error)
	Count(ctx context.Context) (int64, error)
	Close() error
}
