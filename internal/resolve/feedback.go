package resolve

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/semloc/semloc/internal/kb"
	"github.com/semloc/semloc/internal/models"
)

// ErrSelectorNotUnique means an operator-supplied selector did not match
// exactly one element, so the correction was rejected.
var ErrSelectorNotUnique = errors.New("selector does not match exactly one element")

// Correction is an operator override for a wrongly resolved key.
type Correction struct {
	SemanticKey string
	BuildID     string
	URL         string
	// Selector is the operator-supplied correct selector.
	Selector string
	// BlockStrategy optionally blocks a generation strategy for this key on
	// future runs.
	BlockStrategy models.Strategy
	// BoostKeyword optionally boosts future candidates whose surrounding text
	// contains the keyword.
	BoostKeyword string
}

// Correct verifies the supplied selector against the live page and, when it
// is unique, publishes a corrected record plus any requested annotations.
// The annotations persist across builds; the record covers this build only.
func (e *Engine) Correct(ctx context.Context, c Correction) (*models.SemanticRecord, error) {
	if c.SemanticKey == "" || c.BuildID == "" || c.URL == "" || c.Selector == "" {
		return nil, fmt.Errorf("semantic key, build id, url and selector are all required")
	}

	count, err := e.deps.Automation.CountMatches(ctx, c.URL, c.Selector)
	if err != nil {
		return nil, fmt.Errorf("failed to verify correction: %w", err)
	}
	if count != 1 {
		return nil, fmt.Errorf("%w: %s matched %d elements", ErrSelectorNotUnique, c.Selector, count)
	}

	if c.BlockStrategy != "" {
		if err := e.annotate(ctx, c.SemanticKey, models.AnnotationNeverUseStrategy, string(c.BlockStrategy)); err != nil {
			return nil, err
		}
	}
	if c.BoostKeyword != "" {
		if err := e.annotate(ctx, c.SemanticKey, models.AnnotationBoostKeyword, c.BoostKeyword); err != nil {
			return nil, err
		}
	}

	rec := &models.SemanticRecord{
		SemanticKey: c.SemanticKey,
		BuildID:     c.BuildID,
		Selectors: []models.SelectorCandidate{{
			Selector:    c.Selector,
			Strategy:    classifyStrategy(c.Selector),
			Description: "operator correction",
			UniqueCount: 1,
		}},
		Confidence: 1.0,
		Status:     models.StatusResolved,
	}
	// Carry the previously extracted feature forward so history-based scoring
	// keeps working on the next build.
	if existing, err := e.deps.Store.Get(ctx, c.SemanticKey, c.BuildID); err == nil {
		rec.Feature = existing.Feature
	} else if !errors.Is(err, kb.ErrNotFound) {
		return nil, fmt.Errorf("failed to read current record: %w", err)
	}

	if err := e.publisher.Publish(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to publish correction: %w", err)
	}
	e.deps.Logger.Info("correction recorded",
		zap.String("semantic_key", c.SemanticKey),
		zap.String("build_id", c.BuildID))
	return rec, nil
}

// Annotate attaches a standalone override to a key without a record write.
func (e *Engine) Annotate(ctx context.Context, semanticKey string, kind models.AnnotationKind, value string) error {
	return e.annotate(ctx, semanticKey, kind, value)
}

// RevokeAnnotation lifts an override.
func (e *Engine) RevokeAnnotation(ctx context.Context, id string) error {
	return e.deps.Store.RevokeAnnotation(ctx, id)
}

func (e *Engine) annotate(ctx context.Context, semanticKey string, kind models.AnnotationKind, value string) error {
	ann := &models.Annotation{
		ID:          uuid.New().String(),
		SemanticKey: semanticKey,
		Kind:        kind,
		Value:       value,
	}
	if err := e.deps.Store.Annotate(ctx, ann); err != nil {
		return fmt.Errorf("failed to store annotation: %w", err)
	}
	return nil
}

// classifyStrategy infers the generation strategy a manual selector would
// correspond to, for strategy-level overrides and reporting.
func classifyStrategy(selector string) models.Strategy {
	switch {
	case strings.HasPrefix(selector, "role=") || strings.HasPrefix(selector, "text="):
		return models.StrategyRoleText
	case strings.Contains(selector, "[data-"):
		return models.StrategyDataAttr
	case strings.HasPrefix(selector, "css=#") || strings.Contains(selector, "[id="):
		return models.StrategyID
	default:
		return models.StrategyStructural
	}
}
