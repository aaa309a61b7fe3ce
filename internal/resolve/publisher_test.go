package resolve

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/semloc/semloc/internal/kb"
	"github.com/semloc/semloc/internal/models"
)

// conflictStore rejects the first conflicts Puts with ErrConflict.
type conflictStore struct {
	conflicts int
	puts      int
	stored    *models.SemanticRecord
}

func (s *conflictStore) Put(ctx context.Context, rec *models.SemanticRecord) error {
	s.puts++
	if s.puts <= s.conflicts {
		return kb.ErrConflict
	}
	rec.Version++
	clone := *rec
	s.stored = &clone
	return nil
}

func (s *conflictStore) Get(ctx context.Context, semanticKey, buildID string) (*models.SemanticRecord, error) {
	if s.stored == nil {
		return nil, kb.ErrNotFound
	}
	return s.stored, nil
}

func (s *conflictStore) History(ctx context.Context, semanticKey string, limit int) ([]*models.SemanticRecord, error) {
	return nil, nil
}
func (s *conflictStore) ListKeys(ctx context.Context) ([]string, error) { return nil, nil }
func (s *conflictStore) NearestNeighbors(ctx context.Context, embedding []float32, k int) ([]*kb.Neighbor, error) {
	return nil, nil
}
func (s *conflictStore) Annotate(ctx context.Context, ann *models.Annotation) error { return nil }
func (s *conflictStore) RevokeAnnotation(ctx context.Context, id string) error      { return nil }
func (s *conflictStore) Annotations(ctx context.Context, semanticKey string) ([]models.Annotation, error) {
	return nil, nil
}
func (s *conflictStore) Count(ctx context.Context) (int64, error) { return 0, nil }
func (s *conflictStore) Close() error                             { return nil }

func publishRecord() *models.SemanticRecord {
	return &models.SemanticRecord{
		SemanticKey: "login.username",
		BuildID:     "b1",
		Selectors:   []models.SelectorCandidate{{Selector: "css=#username", Strategy: models.StrategyID, UniqueCount: 1}},
		Confidence:  0.87,
		Status:      models.StatusResolved,
	}
}

func TestPublisher_RetriesOnConflict(t *testing.T) {
	store := &conflictStore{conflicts: 2}
	p := NewPublisher(store, nil, 3, zap.NewNop())

	if err := p.Publish(context.Background(), publishRecord()); err != nil {
		t.Fatalf("Publish failed despite retry budget: %v", err)
	}
	if store.puts != 3 {
		t.Errorf("puts = %d, want 2 conflicts plus 1 success", store.puts)
	}
	if store.stored == nil {
		t.Fatal("nothing stored")
	}
}

func TestPublisher_GivesUpAfterRetries(t *testing.T) {
	store := &conflictStore{conflicts: 10}
	p := NewPublisher(store, nil, 3, zap.NewNop())

	err := p.Publish(context.Background(), publishRecord())
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if !strings.Contains(err.Error(), "gave up") {
		t.Errorf("err = %v, want give-up message", err)
	}
	if store.puts != 3 {
		t.Errorf("puts = %d, want exactly the retry budget", store.puts)
	}
}

func TestPublisher_AdoptsStoredVersion(t *testing.T) {
	store := &conflictStore{}
	p := NewPublisher(store, nil, 3, zap.NewNop())
	ctx := context.Background()

	if err := p.Publish(ctx, publishRecord()); err != nil {
		t.Fatalf("first publish failed: %v", err)
	}
	// A second publish with a fresh record must pick up the stored version
	// instead of failing on a stale zero.
	rec := publishRecord()
	if err := p.Publish(ctx, rec); err != nil {
		t.Fatalf("second publish failed: %v", err)
	}
	if rec.Version != 2 {
		t.Errorf("version = %d, want 2", rec.Version)
	}
}
