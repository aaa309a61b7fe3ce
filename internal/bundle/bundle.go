// Package bundle renders a resolution run as the JSON artifact consumed by
// test helpers and CI gates, plus generated Playwright helper code.
package bundle

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/semloc/semloc/internal/models"
)

// Selector is the published form of a verified selector.
type Selector struct {
	Selector string          `json:"selector"`
	Strategy models.Strategy `json:"strategy"`
	Unique   bool            `json:"unique"`
}

// Entry is the per-key resolution payload.
type Entry struct {
	Status     models.Status `json:"status"`
	Confidence float64       `json:"confidence"`
	// EmbeddingSimilarity is null when ranking ran without the embedding model.
	EmbeddingSimilarity *float64                   `json:"embedding_similarity"`
	Primary             *Selector                  `json:"primary"`
	Fallbacks           []Selector                 `json:"fallbacks"`
	Candidates          []models.SelectorCandidate `json:"candidates"`
	ReducedConfidence   bool                       `json:"reduced_confidence,omitempty"`
	Message             string                     `json:"message,omitempty"`
}

// Bundle is one run's artifact: every requested key with its outcome.
type Bundle struct {
	URL             string           `json:"url"`
	BuildID         string           `json:"build_id,omitempty"`
	SemanticTargets []string         `json:"semantic_targets"`
	Resolution      map[string]Entry `json:"resolution"`
}

// New builds a bundle from pipeline results. Keys are sorted so identical
// inputs always produce byte-identical output.
func New(url, buildID string, results map[string]*models.ResolutionResult) *Bundle {
	b := &Bundle{
		URL:             url,
		BuildID:         buildID,
		SemanticTargets: make([]string, 0, len(results)),
		Resolution:      make(map[string]Entry, len(results)),
	}
	for key, result := range results {
		b.SemanticTargets = append(b.SemanticTargets, key)
		b.Resolution[key] = entryFromResult(result)
	}
	sort.Strings(b.SemanticTargets)
	return b
}

func entryFromResult(result *models.ResolutionResult) Entry {
	entry := Entry{
		Status:              result.Status,
		Confidence:          result.Confidence,
		EmbeddingSimilarity: result.EmbeddingSimilarity,
		Fallbacks:           make([]Selector, 0, len(result.Fallbacks)),
		Candidates:          result.Candidates,
		ReducedConfidence:   result.ReducedConfidence,
		Message:             result.Message,
	}
	if result.Primary != nil {
		entry.Primary = &Selector{
			Selector: result.Primary.Selector,
			Strategy: result.Primary.Strategy,
			Unique:   result.Primary.Unique(),
		}
	}
	for i := range result.Fallbacks {
		fb := &result.Fallbacks[i]
		entry.Fallbacks = append(entry.Fallbacks, Selector{
			Selector: fb.Selector,
			Strategy: fb.Strategy,
			Unique:   fb.Unique(),
		})
	}
	return entry
}

// Marshal renders the bundle as indented JSON. Map keys marshal in sorted
// order, so the output is deterministic.
func (b *Bundle) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal bundle: %w", err)
	}
	return append(data, '\n'), nil
}

// Write writes the bundle JSON to path, creating parent directories.
func (b *Bundle) Write(path string) error {
	data, err := b.Marshal()
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create bundle directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write bundle: %w", err)
	}
	return nil
}
