package resolve

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/semloc/semloc/internal/kb"
	"github.com/semloc/semloc/internal/keyword"
	"github.com/semloc/semloc/internal/models"
)

// Publisher is the single writer of semantic records. It handles optimistic
// version conflicts by re-fetching and retrying, and feeds the keyword index
// after a successful write.
type Publisher struct {
	store    kb.Store
	keywords keyword.KeywordIndex
	retries  int
	logger   *zap.Logger
}

// NewPublisher creates a Publisher. keywords may be nil.
func NewPublisher(store kb.Store, keywords keyword.KeywordIndex, retries int, logger *zap.Logger) *Publisher {
	if retries <= 0 {
		retries = 3
	}
	return &Publisher{store: store, keywords: keywords, retries: retries, logger: logger}
}

// Publish writes rec, adopting the stored version on each attempt so a
// concurrent writer only costs a retry, never a lost record.
func (p *Publisher) Publish(ctx context.Context, rec *models.SemanticRecord) error {
	var lastErr error
	for attempt := 0; attempt < p.retries; attempt++ {
		existing, err := p.store.Get(ctx, rec.SemanticKey, rec.BuildID)
		switch {
		case errors.Is(err, kb.ErrNotFound):
			rec.Version = 0
		case err != nil:
			return fmt.Errorf("failed to read current record: %w", err)
		default:
			rec.Version = existing.Version
		}

		err = p.store.Put(ctx, rec)
		if err == nil {
			p.index(ctx, rec)
			return nil
		}
		if !errors.Is(err, kb.ErrConflict) {
			return err
		}
		lastErr = err
		p.logger.Debug("record write conflict, retrying",
			zap.String("semantic_key", rec.SemanticKey),
			zap.String("build_id", rec.BuildID),
			zap.Int("attempt", attempt+1))
	}
	return fmt.Errorf("gave up after %d conflicting writes: %w", p.retries, lastErr)
}

func (p *Publisher) index(ctx context.Context, rec *models.SemanticRecord) {
	if p.keywords == nil {
		return
	}
	if err := p.keywords.Index(ctx, rec); err != nil {
		// Search lags behind, the record itself is safe.
		p.logger.Warn("failed to index record for search",
			zap.String("semantic_key", rec.SemanticKey), zap.Error(err))
	}
}
