package models

import (
	"fmt"
	"time"
)

// Status is the terminal state of a per-key resolution.
type Status string

const (
	// StatusResolved means a unique primary selector was verified and the
	// combined score met the resolve threshold.
	StatusResolved Status = "resolved"
	// StatusNeedsReview means a primary was verified but the score was below
	// threshold, the top candidates were ambiguous, or verification timed out.
	StatusNeedsReview Status = "needs_review"
	// StatusUnresolved means no candidate verified as unique.
	StatusUnresolved Status = "unresolved"
)

// Strategy identifies how a selector candidate was built.
type Strategy string

const (
	// StrategyDataAttr uses an explicit test-id style attribute (highest trust).
	StrategyDataAttr Strategy = "data_attr"
	// StrategyID uses the element's id attribute.
	StrategyID Strategy = "id"
	// StrategyRoleText combines accessible role and visible text.
	StrategyRoleText Strategy = "role_text"
	// StrategyStructural is a tag chain with nth-of-type, last resort.
	StrategyStructural Strategy = "structural"
)

// UniqueCountUnset marks a candidate that has not been through verification.
const UniqueCountUnset = -1

// SelectorCandidate is a generated selector string with its strategy and,
// after verification, the number of nodes it matched.
type SelectorCandidate struct {
	Selector    string   `json:"selector"`
	Strategy    Strategy `json:"strategy"`
	Description string   `json:"description,omitempty"`
	// UniqueCount is the verified match count, or UniqueCountUnset before
	// verification.
	UniqueCount int `json:"unique_count"`
	// Depth is the structural depth of the selector, used as a ranking
	// tie-breaker (shallower selectors are preferred).
	Depth int `json:"depth,omitempty"`
}

// Unique reports whether the candidate verified as matching exactly one node.
func (c *SelectorCandidate) Unique() bool {
	return c.UniqueCount == 1
}

// AnnotationKind is the type of a human override rule.
type AnnotationKind string

const (
	// AnnotationNeverUseStrategy blocks a generation strategy for a key.
	AnnotationNeverUseStrategy AnnotationKind = "never_use_strategy"
	// AnnotationBoostKeyword boosts candidates whose node text contains the keyword.
	AnnotationBoostKeyword AnnotationKind = "boost_keyword"
)

// Annotation is a human override attached to a semantic key. It persists
// across builds until revoked.
type Annotation struct {
	ID          string         `json:"id"`
	SemanticKey string         `json:"semantic_key"`
	Kind        AnnotationKind `json:"kind"`
	Value       string         `json:"value"`
	CreatedAt   time.Time      `json:"created_at"`
	RevokedAt   *time.Time     `json:"revoked_at,omitempty"`
}

// Active reports whether the annotation is still in force.
func (a *Annotation) Active() bool {
	return a.RevokedAt == nil
}

// SemanticRecord is one resolution outcome for a (semanticKey, buildId) pair.
// Records are immutable after creation; corrections produce a new annotation
// plus a new record on re-run. Version supports optimistic KB writes.
type SemanticRecord struct {
	SemanticKey string              `json:"semantic_key"`
	BuildID     string              `json:"build_id"`
	Version     int64               `json:"version"`
	Feature     *FeatureVector      `json:"feature"`
	Selectors   []SelectorCandidate `json:"selectors"`
	Annotations []Annotation        `json:"annotations,omitempty"`
	Confidence  float64             `json:"confidence"`
	Status      Status              `json:"status"`
	CreatedAt   time.Time           `json:"created_at"`
}

// Validate checks the record invariants: key and build set, confidence in
// [0,1], and a resolved record carries a primary with a verified unique count.
func (r *SemanticRecord) Validate() error {
	if r.SemanticKey == "" {
		return fmt.Errorf("semantic key cannot be empty")
	}
	if r.BuildID == "" {
		return fmt.Errorf("build id cannot be empty")
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return fmt.Errorf("confidence %v out of range [0,1]", r.Confidence)
	}
	if r.Status == StatusResolved {
		hasUnique := false
		for i := range r.Selectors {
			if r.Selectors[i].Unique() {
				hasUnique = true
				break
			}
		}
		if !hasUnique {
			return fmt.Errorf("resolved record for %s has no unique selector", r.SemanticKey)
		}
	}
	return nil
}
