// Package ranking combines deterministic rule scores with embedding similarity
// to order selector candidates for verification.
package ranking

import (
	"math"
	"sort"

	"github.com/semloc/semloc/internal/models"
	"github.com/semloc/semloc/pkg/utils"
)

// ScoredCandidate is a candidate with its computed scores.
type ScoredCandidate struct {
	Candidate models.SelectorCandidate
	RuleScore int
	Breakdown *RuleBreakdown
	// EmbeddingSimilarity is nil when ranking ran in degraded, rule-only mode.
	EmbeddingSimilarity *float64
	Combined            float64
}

// Ranker orders generated candidates for one semantic key.
type Ranker struct {
	config *Config
	rules  *RuleScorer
}

// NewRanker creates a Ranker with the given configuration.
func NewRanker(config *Config) *Ranker {
	if config == nil {
		config = DefaultConfig()
	}
	config.ApplyDefaults()
	return &Ranker{config: config, rules: NewRuleScorer(config)}
}

// Combine computes the combined confidence from a rule score and an embedding
// similarity, clipped to [0,1].
func (r *Ranker) Combine(ruleScore int, embeddingSimilarity float64) float64 {
	max := r.config.RuleScoreMax()
	if max == 0 {
		return utils.Clip01(r.config.EmbeddingWeight * embeddingSimilarity)
	}
	return utils.Clip01(r.config.RuleWeight*float64(ruleScore)/float64(max) +
		r.config.EmbeddingWeight*embeddingSimilarity)
}

// CombineRuleOnly computes the degraded confidence used when the embedding
// capability is unavailable: the normalized rule score carries full weight.
func (r *Ranker) CombineRuleOnly(ruleScore int) float64 {
	max := r.config.RuleScoreMax()
	if max == 0 {
		return 0
	}
	return utils.Clip01(float64(ruleScore) / float64(max))
}

// Rank scores every candidate and returns them in deterministic order:
// combined score descending, then lower structural depth, then lexical order
// of the selector string. embeddingSimilarity is the node-level similarity to
// the key's history (nil in degraded mode); it is shared by all candidates of
// the node, so ordering among them is driven by the rule components.
func (r *Ranker) Rank(
	candidates []models.SelectorCandidate,
	feature *models.FeatureVector,
	history *models.SemanticRecord,
	annotations []models.Annotation,
	embeddingSimilarity *float64,
) []ScoredCandidate {
	scored := make([]ScoredCandidate, 0, len(candidates))
	for i := range candidates {
		in := &RuleInput{
			Candidate:   &candidates[i],
			Feature:     feature,
			History:     history,
			Annotations: annotations,
		}
		breakdown := r.rules.Score(in)
		sc := ScoredCandidate{
			Candidate: candidates[i],
			RuleScore: breakdown.Total,
			Breakdown: breakdown,
		}
		if embeddingSimilarity != nil {
			sim := utils.Clip01(*embeddingSimilarity)
			sc.EmbeddingSimilarity = &sim
			sc.Combined = r.Combine(breakdown.Total, sim)
		} else {
			sc.Combined = r.CombineRuleOnly(breakdown.Total)
		}
		scored = append(scored, sc)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Combined != scored[j].Combined {
			return scored[i].Combined > scored[j].Combined
		}
		if scored[i].Candidate.Depth != scored[j].Candidate.Depth {
			return scored[i].Candidate.Depth < scored[j].Candidate.Depth
		}
		return scored[i].Candidate.Selector < scored[j].Candidate.Selector
	})
	return scored
}

// Ambiguous reports whether the two best combined scores are within the
// configured epsilon, which downgrades an otherwise resolved key to review.
func (r *Ranker) Ambiguous(ranked []ScoredCandidate) bool {
	if len(ranked) < 2 {
		return false
	}
	return math.Abs(ranked[0].Combined-ranked[1].Combined) <= r.config.AmbiguityEpsilon
}

// Config returns the ranking configuration.
func (r *Ranker) Config() *Config {
	return r.config
}
