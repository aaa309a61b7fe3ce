package models

// ResolutionResult is the per-key outcome of one pipeline run. Every input key
// receives exactly one result with an explicit status; there is no silent
// omission.
type ResolutionResult struct {
	SemanticKey string `json:"semantic_key"`
	Status      Status `json:"status"`
	Confidence  float64 `json:"confidence"`
	// EmbeddingSimilarity is nil when the embedding capability was unavailable.
	EmbeddingSimilarity *float64            `json:"embedding_similarity"`
	RuleScore           int                 `json:"rule_score"`
	RuleScoreMax        int                 `json:"rule_score_max"`
	MatchedKeywords     []string            `json:"matched_keywords,omitempty"`
	Primary             *SelectorCandidate  `json:"primary"`
	Fallbacks           []SelectorCandidate `json:"fallbacks"`
	// Candidates holds every candidate that went through verification,
	// including non-unique ones, for diagnostics.
	Candidates []SelectorCandidate `json:"candidates"`
	Node       *NodeDescriptor     `json:"-"`
	Feature    *FeatureVector      `json:"-"`
	// ReducedConfidence marks a result ranked without embedding similarity.
	ReducedConfidence bool `json:"reduced_confidence,omitempty"`
	// TimedOut marks a result whose verification hit the automation deadline.
	TimedOut bool   `json:"timed_out,omitempty"`
	Message  string `json:"message,omitempty"`
}
