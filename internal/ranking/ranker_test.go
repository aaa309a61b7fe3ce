package ranking

import (
	"math"
	"testing"

	"github.com/semloc/semloc/internal/models"
)

func TestNewRanker_Defaults(t *testing.T) {
	r := NewRanker(nil)
	if r.config.RuleWeight != 0.6 || r.config.EmbeddingWeight != 0.4 {
		t.Errorf("weights = %v/%v, want 0.6/0.4", r.config.RuleWeight, r.config.EmbeddingWeight)
	}
	if r.config.RuleScoreMax() != 14 {
		t.Errorf("RuleScoreMax = %d, want 14", r.config.RuleScoreMax())
	}

	custom := &Config{RuleWeight: 0.8, EmbeddingWeight: 0.2}
	r = NewRanker(custom)
	if r.config.RuleWeight != 0.8 {
		t.Errorf("RuleWeight = %v, want 0.8", r.config.RuleWeight)
	}
	if r.config.AttrExactScore != 6 {
		t.Errorf("AttrExactScore = %d, want default 6", r.config.AttrExactScore)
	}
}

// The documented worked example: rule score 10 of 14, embedding similarity
// 0.77 must combine to 0.6*(10/14) + 0.4*0.77 = 0.7366 (0.74 at two decimals).
func TestRanker_Combine_WorkedExample(t *testing.T) {
	r := NewRanker(nil)
	got := r.Combine(10, 0.77)
	want := 0.6*(10.0/14.0) + 0.4*0.77
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("Combine(10, 0.77) = %.10f, want %.10f", got, want)
	}
	if math.Abs(got-0.7366) > 0.0001 {
		t.Errorf("Combine(10, 0.77) = %.4f, want 0.7366", got)
	}
	if rounded := math.Round(got*100) / 100; rounded != 0.74 {
		t.Errorf("rounded = %v, want 0.74", rounded)
	}
}

func TestRanker_Combine_Clipped(t *testing.T) {
	r := NewRanker(nil)
	if got := r.Combine(14, 1.0); got != 1.0 {
		t.Errorf("full scores = %v, want 1.0", got)
	}
	if got := r.Combine(0, 0); got != 0 {
		t.Errorf("zero scores = %v, want 0", got)
	}
	// Out-of-range similarity still clips into [0,1].
	if got := r.Combine(14, 2.0); got != 1.0 {
		t.Errorf("oversized similarity = %v, want clipped 1.0", got)
	}
}

func TestRanker_CombineRuleOnly(t *testing.T) {
	r := NewRanker(nil)
	got := r.CombineRuleOnly(7)
	want := 7.0 / 14.0
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("CombineRuleOnly(7) = %v, want %v", got, want)
	}
}

func TestRanker_Rank_DeterministicOrdering(t *testing.T) {
	r := NewRanker(nil)
	feature := &models.FeatureVector{TextBlob: "username email", AttrHash: 42}
	candidates := []models.SelectorCandidate{
		{Selector: "css=form > input:nth-of-type(1)", Strategy: models.StrategyStructural, UniqueCount: models.UniqueCountUnset, Depth: 3},
		{Selector: "css=#login_user", Strategy: models.StrategyID, UniqueCount: models.UniqueCountUnset, Depth: 0},
		{Selector: "css=input[name=\"user\"]", Strategy: models.StrategyDataAttr, UniqueCount: models.UniqueCountUnset, Depth: 0},
	}
	sim := 0.5

	first := r.Rank(candidates, feature, nil, nil, &sim)
	second := r.Rank(candidates, feature, nil, nil, &sim)

	if len(first) != 3 {
		t.Fatalf("len = %d, want 3", len(first))
	}
	for i := range first {
		if first[i].Candidate.Selector != second[i].Candidate.Selector {
			t.Errorf("rank %d differs between identical runs: %q vs %q",
				i, first[i].Candidate.Selector, second[i].Candidate.Selector)
		}
	}

	// With no history and no annotations every rule score is zero, so the
	// order falls through to depth, then lexical.
	if first[0].Candidate.Depth != 0 {
		t.Errorf("first candidate depth = %d, want 0 (shallower preferred)", first[0].Candidate.Depth)
	}
	if first[0].Candidate.Selector >= first[1].Candidate.Selector {
		t.Errorf("equal-depth candidates not in lexical order: %q before %q",
			first[0].Candidate.Selector, first[1].Candidate.Selector)
	}
	if first[2].Candidate.Strategy != models.StrategyStructural {
		t.Errorf("deepest candidate should rank last, got %s", first[2].Candidate.Strategy)
	}
}

func TestRanker_Rank_HistoryRaisesMatchingCandidate(t *testing.T) {
	r := NewRanker(nil)
	feature := &models.FeatureVector{TextBlob: "username", AttrHash: 7}
	history := &models.SemanticRecord{
		SemanticKey: "login.username",
		BuildID:     "b1",
		Feature:     &models.FeatureVector{AttrHash: 7},
		Selectors: []models.SelectorCandidate{
			{Selector: "css=#login_user", Strategy: models.StrategyID, UniqueCount: 1},
		},
	}
	candidates := []models.SelectorCandidate{
		{Selector: "css=form > input:nth-of-type(1)", Strategy: models.StrategyStructural, UniqueCount: models.UniqueCountUnset, Depth: 3},
		{Selector: "css=#login_user", Strategy: models.StrategyID, UniqueCount: models.UniqueCountUnset, Depth: 0},
	}
	sim := 0.77

	ranked := r.Rank(candidates, feature, history, nil, &sim)
	if ranked[0].Candidate.Selector != "css=#login_user" {
		t.Fatalf("historical selector should rank first, got %q", ranked[0].Candidate.Selector)
	}
	if ranked[0].RuleScore <= ranked[1].RuleScore {
		t.Errorf("rule scores %d vs %d, want history match to score higher",
			ranked[0].RuleScore, ranked[1].RuleScore)
	}
	if ranked[0].Breakdown.AttrExact != 6 {
		t.Errorf("AttrExact = %d, want 6", ranked[0].Breakdown.AttrExact)
	}
	if ranked[0].Breakdown.TokenOverlap != 5 {
		t.Errorf("TokenOverlap = %d, want full 5 for identical selector", ranked[0].Breakdown.TokenOverlap)
	}
}

func TestRanker_Rank_DegradedMode(t *testing.T) {
	r := NewRanker(nil)
	feature := &models.FeatureVector{TextBlob: "username"}
	candidates := []models.SelectorCandidate{
		{Selector: "css=#u", Strategy: models.StrategyID, UniqueCount: models.UniqueCountUnset},
	}

	ranked := r.Rank(candidates, feature, nil, nil, nil)
	if ranked[0].EmbeddingSimilarity != nil {
		t.Error("degraded mode should leave EmbeddingSimilarity nil")
	}
	if ranked[0].Combined != 0 {
		t.Errorf("no history, rule-only: combined = %v, want 0", ranked[0].Combined)
	}
}

func TestRanker_Ambiguous(t *testing.T) {
	r := NewRanker(nil)
	tests := []struct {
		name   string
		scores []float64
		want   bool
	}{
		{"single candidate", []float64{0.8}, false},
		{"clear winner", []float64{0.8, 0.5}, false},
		{"both at 0.65", []float64{0.65, 0.65}, true},
		{"inside epsilon", []float64{0.66, 0.65}, true},
		{"just outside epsilon", []float64{0.68, 0.65}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ranked := make([]ScoredCandidate, len(tt.scores))
			for i, s := range tt.scores {
				ranked[i] = ScoredCandidate{Combined: s}
			}
			if got := r.Ambiguous(ranked); got != tt.want {
				t.Errorf("Ambiguous(%v) = %v, want %v", tt.scores, got, tt.want)
			}
		})
	}
}
