package ranking

import (
	"math"
	"strings"

	"github.com/semloc/semloc/internal/models"
	"github.com/semloc/semloc/pkg/utils"
)

// RuleInput carries everything the rule scorer needs for one candidate.
type RuleInput struct {
	Candidate *models.SelectorCandidate
	// Feature is the extracted feature vector of the candidate's node.
	Feature *models.FeatureVector
	// History is the most recent stored record for the key; nil when the key
	// has no history.
	History *models.SemanticRecord
	// Annotations are the active annotations for the key.
	Annotations []models.Annotation
}

// RuleBreakdown explains one candidate's rule score component by component.
type RuleBreakdown struct {
	AttrExact       int
	TokenOverlap    int
	KeywordBoost    int
	Penalty         int
	Total           int
	MatchedKeywords []string
}

// RuleScorer computes the deterministic, bounded rule score for a candidate.
type RuleScorer struct {
	config *Config
}

// NewRuleScorer creates a rule scorer with the given configuration.
func NewRuleScorer(config *Config) *RuleScorer {
	if config == nil {
		config = DefaultConfig()
	}
	config.ApplyDefaults()
	return &RuleScorer{config: config}
}

// Score computes the rule score for one candidate. The result is always in
// [0, RuleScoreMax] and depends only on the input, never on wall clock or
// iteration order.
func (s *RuleScorer) Score(in *RuleInput) *RuleBreakdown {
	b := &RuleBreakdown{}

	b.AttrExact = s.attrExactScore(in)
	b.TokenOverlap = s.tokenOverlapScore(in)
	b.KeywordBoost, b.MatchedKeywords = s.keywordBoost(in)
	b.Penalty = s.blockedStrategyPenalty(in)

	total := b.AttrExact + b.TokenOverlap + b.KeywordBoost - b.Penalty
	if total < 0 {
		total = 0
	}
	if max := s.config.RuleScoreMax(); total > max {
		total = max
	}
	b.Total = total
	return b
}

// attrExactScore awards the full attribute component when the node's hashed
// attribute set matches the most recent stored record exactly.
func (s *RuleScorer) attrExactScore(in *RuleInput) int {
	if in.History == nil || in.History.Feature == nil || in.Feature == nil {
		return 0
	}
	if in.History.Feature.AttrHash == in.Feature.AttrHash {
		return s.config.AttrExactScore
	}
	return 0
}

// tokenOverlapScore scales the Jaccard similarity between the candidate
// selector and the historically stored primary selector into the overlap
// range. Anchoring on the primary alone keeps candidates of one node
// distinguishable; scoring against the full stored list would hand every
// recurring candidate full marks and make stable keys permanently ambiguous.
func (s *RuleScorer) tokenOverlapScore(in *RuleInput) int {
	anchor := historicalPrimary(in.History)
	if anchor == nil {
		return 0
	}
	j := utils.JaccardSimilarity(utils.Tokenize(in.Candidate.Selector), utils.Tokenize(anchor.Selector))
	return int(math.Round(j * float64(s.config.TokenOverlapMax)))
}

// historicalPrimary returns the stored selector that won last time: the first
// one that verified unique, or the top-ranked one when none did.
func historicalPrimary(history *models.SemanticRecord) *models.SelectorCandidate {
	if history == nil || len(history.Selectors) == 0 {
		return nil
	}
	for i := range history.Selectors {
		if history.Selectors[i].Unique() {
			return &history.Selectors[i]
		}
	}
	return &history.Selectors[0]
}

// keywordBoost counts annotation-boosted keywords present in the node's text
// blob, one point each up to the boost ceiling.
func (s *RuleScorer) keywordBoost(in *RuleInput) (int, []string) {
	if in.Feature == nil || in.Feature.TextBlob == "" {
		return 0, nil
	}
	score := 0
	var matched []string
	for i := range in.Annotations {
		ann := &in.Annotations[i]
		if !ann.Active() || ann.Kind != models.AnnotationBoostKeyword {
			continue
		}
		keyword := strings.ToLower(ann.Value)
		if keyword != "" && strings.Contains(in.Feature.TextBlob, keyword) {
			matched = append(matched, keyword)
			if score < s.config.KeywordBoostMax {
				score++
			}
		}
	}
	return score, matched
}

// blockedStrategyPenalty applies the penalty when an active annotation blocks
// the candidate's generation strategy.
func (s *RuleScorer) blockedStrategyPenalty(in *RuleInput) int {
	for i := range in.Annotations {
		ann := &in.Annotations[i]
		if !ann.Active() || ann.Kind != models.AnnotationNeverUseStrategy {
			continue
		}
		if models.Strategy(ann.Value) == in.Candidate.Strategy {
			return s.config.BlockedStrategyPenalty
		}
	}
	return 0
}
