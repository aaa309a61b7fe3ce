package ranking

import (
	"testing"
	"time"

	"github.com/semloc/semloc/internal/models"
)

func boostAnnotation(keyword string) models.Annotation {
	return models.Annotation{
		ID:        "a-" + keyword,
		Kind:      models.AnnotationBoostKeyword,
		Value:     keyword,
		CreatedAt: time.Now(),
	}
}

func blockAnnotation(strategy models.Strategy) models.Annotation {
	return models.Annotation{
		ID:        "block-" + string(strategy),
		Kind:      models.AnnotationNeverUseStrategy,
		Value:     string(strategy),
		CreatedAt: time.Now(),
	}
}

func TestRuleScorer_NoHistoryNoAnnotations(t *testing.T) {
	s := NewRuleScorer(nil)
	b := s.Score(&RuleInput{
		Candidate: &models.SelectorCandidate{Selector: "css=#login", Strategy: models.StrategyID},
		Feature:   &models.FeatureVector{TextBlob: "username sign in", AttrHash: 1},
	})
	if b.Total != 0 {
		t.Errorf("Total = %d, want 0 with no history or annotations", b.Total)
	}
}

func TestRuleScorer_AttrExact(t *testing.T) {
	s := NewRuleScorer(nil)
	feature := &models.FeatureVector{AttrHash: 99}
	history := &models.SemanticRecord{Feature: &models.FeatureVector{AttrHash: 99}}

	b := s.Score(&RuleInput{
		Candidate: &models.SelectorCandidate{Selector: "css=#x", Strategy: models.StrategyID},
		Feature:   feature,
		History:   history,
	})
	if b.AttrExact != 6 {
		t.Errorf("AttrExact = %d, want 6", b.AttrExact)
	}

	history.Feature.AttrHash = 100
	b = s.Score(&RuleInput{
		Candidate: &models.SelectorCandidate{Selector: "css=#x", Strategy: models.StrategyID},
		Feature:   feature,
		History:   history,
	})
	if b.AttrExact != 0 {
		t.Errorf("AttrExact = %d, want 0 after attribute drift", b.AttrExact)
	}
}

func TestRuleScorer_TokenOverlap(t *testing.T) {
	s := NewRuleScorer(nil)
	history := &models.SemanticRecord{
		Selectors: []models.SelectorCandidate{
			{Selector: "css=input[name=\"login-email\"]", UniqueCount: 1},
			{Selector: "css=#totally_different", UniqueCount: 3},
		},
	}

	tests := []struct {
		name     string
		selector string
		want     int
	}{
		{"identical to stored primary", "css=input[name=\"login-email\"]", 5},
		{"matches only a non-primary selector", "css=#totally_different", 1},
		{"no shared tokens", "role=button[name=\"Submit\"]", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := s.Score(&RuleInput{
				Candidate: &models.SelectorCandidate{Selector: tt.selector, Strategy: models.StrategyDataAttr},
				Feature:   &models.FeatureVector{},
				History:   history,
			})
			if b.TokenOverlap != tt.want {
				t.Errorf("TokenOverlap = %d, want %d", b.TokenOverlap, tt.want)
			}
		})
	}
}

func TestRuleScorer_KeywordBoost(t *testing.T) {
	s := NewRuleScorer(nil)
	feature := &models.FeatureVector{TextBlob: "account name sign in username"}
	anns := []models.Annotation{
		boostAnnotation("username"),
		boostAnnotation("sign in"),
		boostAnnotation("missing"),
	}

	b := s.Score(&RuleInput{
		Candidate:   &models.SelectorCandidate{Selector: "css=#u", Strategy: models.StrategyID},
		Feature:     feature,
		Annotations: anns,
	})
	if b.KeywordBoost != 2 {
		t.Errorf("KeywordBoost = %d, want 2", b.KeywordBoost)
	}
	if len(b.MatchedKeywords) != 2 {
		t.Errorf("MatchedKeywords = %v, want 2 entries", b.MatchedKeywords)
	}

	// Revoked annotations are ignored.
	now := time.Now()
	anns[0].RevokedAt = &now
	b = s.Score(&RuleInput{
		Candidate:   &models.SelectorCandidate{Selector: "css=#u", Strategy: models.StrategyID},
		Feature:     feature,
		Annotations: anns,
	})
	if b.KeywordBoost != 1 {
		t.Errorf("KeywordBoost = %d after revocation, want 1", b.KeywordBoost)
	}
}

func TestRuleScorer_KeywordBoost_Capped(t *testing.T) {
	s := NewRuleScorer(nil)
	feature := &models.FeatureVector{TextBlob: "a b c d e"}
	anns := []models.Annotation{
		boostAnnotation("a"), boostAnnotation("b"), boostAnnotation("c"),
		boostAnnotation("d"), boostAnnotation("e"),
	}
	b := s.Score(&RuleInput{
		Candidate:   &models.SelectorCandidate{Selector: "css=#u", Strategy: models.StrategyID},
		Feature:     feature,
		Annotations: anns,
	})
	if b.KeywordBoost != 3 {
		t.Errorf("KeywordBoost = %d, want capped at 3", b.KeywordBoost)
	}
}

func TestRuleScorer_BlockedStrategy(t *testing.T) {
	s := NewRuleScorer(nil)
	feature := &models.FeatureVector{TextBlob: "username", AttrHash: 5}
	history := &models.SemanticRecord{Feature: &models.FeatureVector{AttrHash: 5}}
	anns := []models.Annotation{blockAnnotation(models.StrategyStructural)}

	blocked := s.Score(&RuleInput{
		Candidate:   &models.SelectorCandidate{Selector: "css=div > input", Strategy: models.StrategyStructural},
		Feature:     feature,
		History:     history,
		Annotations: anns,
	})
	if blocked.Penalty != 6 {
		t.Errorf("Penalty = %d, want 6", blocked.Penalty)
	}
	if blocked.Total != 0 {
		t.Errorf("Total = %d, want 0 (6 attr - 6 penalty)", blocked.Total)
	}

	other := s.Score(&RuleInput{
		Candidate:   &models.SelectorCandidate{Selector: "css=#u", Strategy: models.StrategyID},
		Feature:     feature,
		History:     history,
		Annotations: anns,
	})
	if other.Penalty != 0 {
		t.Errorf("Penalty = %d for unblocked strategy, want 0", other.Penalty)
	}
}

func TestRuleScorer_NeverNegative(t *testing.T) {
	s := NewRuleScorer(nil)
	b := s.Score(&RuleInput{
		Candidate:   &models.SelectorCandidate{Selector: "css=div > input", Strategy: models.StrategyStructural},
		Feature:     &models.FeatureVector{},
		Annotations: []models.Annotation{blockAnnotation(models.StrategyStructural)},
	})
	if b.Total != 0 {
		t.Errorf("Total = %d, want clamped to 0", b.Total)
	}
}
