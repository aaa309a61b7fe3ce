package ranking

// Config holds all configuration for the ranking system. The rule/embedding
// split and the rule component scale are tunable; the shipped defaults come
// from the worked examples the scoring model was calibrated against.
type Config struct {
	// Weights for combining the normalized rule score with embedding similarity.
	RuleWeight      float64 `yaml:"rule_weight"`      // default: 0.6
	EmbeddingWeight float64 `yaml:"embedding_weight"` // default: 0.4

	// Rule score components. Their sum is the rule score ceiling.
	AttrExactScore         int `yaml:"attr_exact_score"`         // default: 6
	TokenOverlapMax        int `yaml:"token_overlap_max"`        // default: 5
	KeywordBoostMax        int `yaml:"keyword_boost_max"`        // default: 3
	BlockedStrategyPenalty int `yaml:"blocked_strategy_penalty"` // default: 6

	// Status assignment.
	ResolveThreshold float64 `yaml:"resolve_threshold"` // default: 0.6, inclusive
	AmbiguityEpsilon float64 `yaml:"ambiguity_epsilon"` // default: 0.02
}

// DefaultConfig returns the default ranking configuration.
func DefaultConfig() *Config {
	return &Config{
		RuleWeight:      0.6,
		EmbeddingWeight: 0.4,

		AttrExactScore:         6,
		TokenOverlapMax:        5,
		KeywordBoostMax:        3,
		BlockedStrategyPenalty: 6,

		ResolveThreshold: 0.6,
		AmbiguityEpsilon: 0.02,
	}
}

// ApplyDefaults fills in zero values with defaults.
func (c *Config) ApplyDefaults() {
	defaults := DefaultConfig()

	if c.RuleWeight == 0 {
		c.RuleWeight = defaults.RuleWeight
	}
	if c.EmbeddingWeight == 0 {
		c.EmbeddingWeight = defaults.EmbeddingWeight
	}
	if c.AttrExactScore == 0 {
		c.AttrExactScore = defaults.AttrExactScore
	}
	if c.TokenOverlapMax == 0 {
		c.TokenOverlapMax = defaults.TokenOverlapMax
	}
	if c.KeywordBoostMax == 0 {
		c.KeywordBoostMax = defaults.KeywordBoostMax
	}
	if c.BlockedStrategyPenalty == 0 {
		c.BlockedStrategyPenalty = defaults.BlockedStrategyPenalty
	}
	if c.ResolveThreshold == 0 {
		c.ResolveThreshold = defaults.ResolveThreshold
	}
	if c.AmbiguityEpsilon == 0 {
		c.AmbiguityEpsilon = defaults.AmbiguityEpsilon
	}
}

// RuleScoreMax is the rule score ceiling implied by the component scores.
// With defaults: 6 + 5 + 3 = 14.
func (c *Config) RuleScoreMax() int {
	return c.AttrExactScore + c.TokenOverlapMax + c.KeywordBoostMax
}
