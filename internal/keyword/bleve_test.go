package keyword

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/semloc/semloc/internal/models"
)

func newTestIndex(t *testing.T) *BleveIndex {
	t.Helper()
	idx, err := NewBleveIndex(filepath.Join(t.TempDir(), "keyword.bleve"))
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func indexedRecord(key, build string, status models.Status, text string) *models.SemanticRecord {
	return &models.SemanticRecord{
		SemanticKey: key,
		BuildID:     build,
		Status:      status,
		Feature: &models.FeatureVector{
			TextBlob:    text,
			Description: "tag=input",
		},
		Selectors: []models.SelectorCandidate{
			{Selector: `css=input[name="` + key + `"]`, Strategy: models.StrategyStructural, UniqueCount: 1},
		},
		Confidence: 0.8,
	}
}

func TestBleveIndex_IndexAndSearch(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	records := []*models.SemanticRecord{
		indexedRecord("login.username", "b1", models.StatusResolved, "email address sign in"),
		indexedRecord("login.password", "b1", models.StatusResolved, "password sign in"),
		indexedRecord("checkout.submit", "b1", models.StatusNeedsReview, "place order"),
	}
	for _, rec := range records {
		if err := idx.Index(ctx, rec); err != nil {
			t.Fatalf("Index: %v", err)
		}
	}

	hits, err := idx.Search(ctx, "email", 10, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].SemanticKey != "login.username" || hits[0].BuildID != "b1" {
		t.Errorf("hits = %+v, want login.username@b1", hits)
	}

	count, err := idx.DocCount()
	if err != nil || count != 3 {
		t.Errorf("DocCount = %d (%v), want 3", count, err)
	}
}

func TestBleveIndex_StatusFilter(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	_ = idx.Index(ctx, indexedRecord("login.submit", "b1", models.StatusResolved, "sign in"))
	_ = idx.Index(ctx, indexedRecord("checkout.submit", "b1", models.StatusNeedsReview, "sign in and pay"))

	hits, err := idx.Search(ctx, "sign", 10, &SearchOptions{Status: models.StatusNeedsReview})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].SemanticKey != "checkout.submit" {
		t.Errorf("hits = %+v, want only checkout.submit", hits)
	}
}

func TestBleveIndex_FuzzySearch(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	_ = idx.Index(ctx, indexedRecord("login.username", "b1", models.StatusResolved, "email address"))

	hits, err := idx.Search(ctx, "emial", 10, &SearchOptions{FuzzyEnabled: true, Fuzziness: 2})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].SemanticKey != "login.username" {
		t.Errorf("fuzzy hits = %+v, want login.username", hits)
	}
}

func TestBleveIndex_ReindexReplaces(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	_ = idx.Index(ctx, indexedRecord("login.username", "b1", models.StatusResolved, "email"))
	_ = idx.Index(ctx, indexedRecord("login.username", "b1", models.StatusNeedsReview, "email"))

	count, _ := idx.DocCount()
	if count != 1 {
		t.Errorf("DocCount = %d after re-index, want 1", count)
	}
}

func TestBleveIndex_Delete(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	_ = idx.Index(ctx, indexedRecord("login.username", "b1", models.StatusResolved, "email"))
	if err := idx.Delete(ctx, "login.username", "b1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	hits, _ := idx.Search(ctx, "email", 10, nil)
	if len(hits) != 0 {
		t.Errorf("hits = %+v after delete, want none", hits)
	}
}
