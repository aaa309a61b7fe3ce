package resolve

import (
	"context"
	"errors"
	"testing"

	"github.com/semloc/semloc/internal/embedding"
	"github.com/semloc/semloc/internal/models"
)

func TestEngine_Correct_PublishesOverride(t *testing.T) {
	counts := loginCounts()
	counts["css=#user-field"] = 1
	auto := &fakeAutomation{snapshot: loginSnapshot(), counts: counts}
	store := newStore(t)
	engine := newTestEngine(t, auto, store, embedding.NewMockEmbedder(8))
	ctx := context.Background()

	rec, err := engine.Correct(ctx, Correction{
		SemanticKey: "login.username",
		BuildID:     "b1",
		URL:         "https://app.example/login",
		Selector:    "css=#user-field",
	})
	if err != nil {
		t.Fatalf("Correct failed: %v", err)
	}
	if rec.Confidence != 1.0 || rec.Status != models.StatusResolved {
		t.Errorf("record = %v/%s, want 1.0/resolved", rec.Confidence, rec.Status)
	}

	stored, err := store.Get(ctx, "login.username", "b1")
	if err != nil {
		t.Fatalf("corrected record not stored: %v", err)
	}
	if len(stored.Selectors) != 1 || stored.Selectors[0].Selector != "css=#user-field" {
		t.Errorf("stored selectors = %v, want the manual selector", stored.Selectors)
	}
	if !stored.Selectors[0].Unique() {
		t.Error("manual selector not marked unique")
	}
}

func TestEngine_Correct_RejectsNonUniqueSelector(t *testing.T) {
	counts := loginCounts()
	counts["css=.form-row"] = 4
	auto := &fakeAutomation{snapshot: loginSnapshot(), counts: counts}
	engine := newTestEngine(t, auto, newStore(t), embedding.NewMockEmbedder(8))

	_, err := engine.Correct(context.Background(), Correction{
		SemanticKey: "login.username",
		BuildID:     "b1",
		URL:         "https://app.example/login",
		Selector:    "css=.form-row",
	})
	if !errors.Is(err, ErrSelectorNotUnique) {
		t.Fatalf("err = %v, want ErrSelectorNotUnique", err)
	}
}

func TestEngine_Correct_BlocksStrategy(t *testing.T) {
	counts := loginCounts()
	counts["css=#user-field"] = 1
	auto := &fakeAutomation{snapshot: loginSnapshot(), counts: counts}
	store := newStore(t)
	engine := newTestEngine(t, auto, store, embedding.NewMockEmbedder(8))
	ctx := context.Background()

	_, err := engine.Correct(ctx, Correction{
		SemanticKey:   "login.username",
		BuildID:       "b1",
		URL:           "https://app.example/login",
		Selector:      "css=#user-field",
		BlockStrategy: models.StrategyStructural,
	})
	if err != nil {
		t.Fatalf("Correct failed: %v", err)
	}

	anns, err := store.Annotations(ctx, "login.username")
	if err != nil {
		t.Fatalf("failed to load annotations: %v", err)
	}
	if len(anns) != 1 {
		t.Fatalf("got %d annotations, want 1", len(anns))
	}
	ann := anns[0]
	if ann.Kind != models.AnnotationNeverUseStrategy || ann.Value != string(models.StrategyStructural) {
		t.Errorf("annotation = %s/%s, want never_use_strategy/structural", ann.Kind, ann.Value)
	}
	if ann.ID == "" {
		t.Error("annotation has no id")
	}
}

func TestEngine_AnnotateAndRevoke(t *testing.T) {
	store := newStore(t)
	engine := newTestEngine(t, &fakeAutomation{snapshot: loginSnapshot()}, store, embedding.NewMockEmbedder(8))
	ctx := context.Background()

	if err := engine.Annotate(ctx, "login.username", models.AnnotationBoostKeyword, "email"); err != nil {
		t.Fatalf("Annotate failed: %v", err)
	}
	anns, err := store.Annotations(ctx, "login.username")
	if err != nil || len(anns) != 1 {
		t.Fatalf("annotations = %v (err %v), want 1", anns, err)
	}
	if !anns[0].Active() {
		t.Fatal("fresh annotation not active")
	}

	if err := engine.RevokeAnnotation(ctx, anns[0].ID); err != nil {
		t.Fatalf("RevokeAnnotation failed: %v", err)
	}
	anns, err = store.Annotations(ctx, "login.username")
	if err != nil {
		t.Fatalf("failed to reload annotations: %v", err)
	}
	if len(anns) != 1 || anns[0].Active() {
		t.Error("annotation still active after revocation")
	}
}

func TestEngine_Correct_Validation(t *testing.T) {
	engine := newTestEngine(t, &fakeAutomation{snapshot: loginSnapshot()}, newStore(t), embedding.NewMockEmbedder(8))
	_, err := engine.Correct(context.Background(), Correction{SemanticKey: "login.username"})
	if err == nil {
		t.Error("correction without build, url and selector accepted")
	}
}

func TestClassifyStrategy(t *testing.T) {
	tests := []struct {
		selector string
		want     models.Strategy
	}{
		{`css=[data-testid="login-user"]`, models.StrategyDataAttr},
		{"css=#username", models.StrategyID},
		{`css=input[id="user field"]`, models.StrategyID},
		{`role=button[name="Sign in"]`, models.StrategyRoleText},
		{"text=Sign in", models.StrategyRoleText},
		{`css=input[name="username"]`, models.StrategyStructural},
		{"css=div > input:nth-of-type(1)", models.StrategyStructural},
	}
	for _, tt := range tests {
		if got := classifyStrategy(tt.selector); got != tt.want {
			t.Errorf("classifyStrategy(%q) = %s, want %s", tt.selector, got, tt.want)
		}
	}
}
