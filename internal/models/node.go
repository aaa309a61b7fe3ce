// Package models defines core data structures for DOM node descriptors,
// semantic records, and resolution results.
package models

// AncestorSummary describes one ancestor of a captured node, nearest first.
type AncestorSummary struct {
	Depth   int      `json:"depth"`
	Tag     string   `json:"tag"`
	Text    string   `json:"text,omitempty"`
	Classes []string `json:"classes,omitempty"`
}

// SiblingText holds the trimmed text of an adjacent element.
// Position is "prev" or "next".
type SiblingText struct {
	Position string `json:"position"`
	Text     string `json:"text"`
}

// BoundingBox is a summary of the node's layout box in CSS pixels.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// NodeDescriptor is a snapshot of one interactive DOM element with the context
// needed to identify it again. It is produced by an Automation capability and
// immutable once captured; attribute keys are unique.
type NodeDescriptor struct {
	Tag          string            `json:"tag"`
	Type         string            `json:"type,omitempty"`
	Attrs        map[string]string `json:"attrs,omitempty"`
	Labels       []string          `json:"labels,omitempty"`
	Role         string            `json:"role,omitempty"`
	AriaLabel    string            `json:"aria_label,omitempty"`
	InnerText    string            `json:"inner_text,omitempty"`
	TextContent  string            `json:"text_content,omitempty"`
	Ancestors    []AncestorSummary `json:"ancestors,omitempty"`
	Siblings     []SiblingText     `json:"siblings,omitempty"`
	FormID       string            `json:"form_id,omitempty"`
	FormAction   string            `json:"form_action,omitempty"`
	FormClasses  []string          `json:"form_classes,omitempty"`
	NthOfType    int               `json:"nth_of_type,omitempty"`
	SameTagCount int               `json:"same_tag_count,omitempty"`
	SiblingIndex int               `json:"sibling_index,omitempty"`
	Box          *BoundingBox      `json:"box,omitempty"`
}

// Attr returns the value of the named attribute, or "" when absent.
func (n *NodeDescriptor) Attr(name string) string {
	if n.Attrs == nil {
		return ""
	}
	return n.Attrs[name]
}

// FeatureVector is the canonicalized, comparable form of a NodeDescriptor.
// Derived once by the feature extractor and never mutated.
type FeatureVector struct {
	// AttrHash is a hash over the sorted attribute set.
	AttrHash uint64 `json:"attr_hash"`
	// Embedding is the text embedding of Description. Nil when the embedding
	// capability was unavailable at extraction time.
	Embedding []float32 `json:"embedding,omitempty"`
	// Depth is the length of the captured ancestor chain.
	Depth        int    `json:"depth"`
	SiblingIndex int    `json:"sibling_index"`
	TagPath      string `json:"tag_path"`
	// TextBlob is the lowercased concatenation of all text signals around the
	// node, used for keyword matching.
	TextBlob string `json:"text_blob"`
	// Description is a compact human-readable summary of the node, used as the
	// embedding input.
	Description string `json:"description"`
}
