package models

import "fmt"

// SemanticTarget is the operator-supplied description of a page element that
// should stay addressable under a stable key, independent of markup.
type SemanticTarget struct {
	Key string `json:"key" yaml:"key"`
	// Tag restricts candidate nodes to this tag name when set.
	Tag string `json:"tag,omitempty" yaml:"tag,omitempty"`
	// Types restricts input nodes to these type attributes when non-empty.
	Types []string `json:"types,omitempty" yaml:"types,omitempty"`
	// Hints are phrases expected near the element; each match raises the
	// shortlist score.
	Hints []string `json:"hints,omitempty" yaml:"hints,omitempty"`
	// RequiredHints gate the shortlist: a node missing any of them scores zero.
	RequiredHints []string `json:"required_hints,omitempty" yaml:"required_hints,omitempty"`
}

// Validate ensures the target has a key and at least one signal to match on.
func (t *SemanticTarget) Validate() error {
	if t.Key == "" {
		return fmt.Errorf("target key cannot be empty")
	}
	if t.Tag == "" && len(t.Types) == 0 && len(t.Hints) == 0 && len(t.RequiredHints) == 0 {
		return fmt.Errorf("target %s has no tag, types, or hints to match on", t.Key)
	}
	return nil
}
