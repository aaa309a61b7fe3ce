// Package keyword provides full-text search over stored semantic records so
// operators can find keys by the text around their elements.
package keyword

import (
	"context"

	"github.com/semloc/semloc/internal/models"
)

// SearchOptions optional parameters for keyword search. Nil means use defaults.
type SearchOptions struct {
	// Status restricts hits to records with the given resolution status.
	Status models.Status
	// FuzzyEnabled enables fuzzy matching for typo tolerance.
	FuzzyEnabled bool
	// Fuzziness is the maximum Levenshtein edit distance for fuzzy matching
	// (1 or 2). Default is 2 when FuzzyEnabled is true.
	Fuzziness int
}

// KeywordIndex defines keyword search operations over semantic records.
type KeywordIndex interface {
	Index(ctx context.Context, rec *models.SemanticRecord) error
	Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*Result, error)
	Delete(ctx context.Context, semanticKey, buildID string) error
	Close() error
	DocCount() (uint64, error)
}

// Result is a single keyword search hit.
type Result struct {
	SemanticKey string  `json:"semantic_key"`
	BuildID     string  `json:"build_id"`
	Score       float64 `json:"score"`
}

// TermDictionary provides access to the indexed vocabulary for query
// suggestion.
type TermDictionary interface {
	GetAllTerms() ([]string, error)
	GetTermFrequency(term string) (int, error)
	ContainsTerm(term string) (bool, error)
}
