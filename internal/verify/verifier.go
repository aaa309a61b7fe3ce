// Package verify checks ranked selector candidates against a live page and
// picks the primary selector plus fallbacks.
package verify

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/semloc/semloc/internal/browser"
	"github.com/semloc/semloc/internal/models"
)

// ErrVerificationTimeout marks a candidate whose match count did not come
// back within the verification deadline.
var ErrVerificationTimeout = errors.New("selector verification timed out")

// Outcome is the result of verifying one key's candidates. Candidates holds
// every candidate with its verified match count, retained as diagnostics even
// when not unique.
type Outcome struct {
	Candidates []models.SelectorCandidate
	Primary    *models.SelectorCandidate
	Fallbacks  []models.SelectorCandidate
	TimedOut   bool
}

// Verifier runs selector verification through an Automation capability.
// Browser access is gated by a semaphore so concurrent key resolutions do not
// overload the page.
type Verifier struct {
	automation    browser.Automation
	timeout       time.Duration
	fallbackLimit int
	sem           chan struct{}
	logger        *zap.Logger
}

// NewVerifier creates a Verifier. workers caps concurrent browser access,
// fallbackLimit caps how many verified fallbacks are kept behind the primary.
func NewVerifier(automation browser.Automation, timeout time.Duration, fallbackLimit, workers int, logger *zap.Logger) *Verifier {
	if workers <= 0 {
		workers = 1
	}
	if fallbackLimit < 0 {
		fallbackLimit = 0
	}
	return &Verifier{
		automation:    automation,
		timeout:       timeout,
		fallbackLimit: fallbackLimit,
		sem:           make(chan struct{}, workers),
		logger:        logger,
	}
}

// Verify counts matches for candidates in their given (ranked) order. The
// first unique candidate becomes the primary; later unique candidates become
// fallbacks up to the limit. Verification is read-only against the page, so
// re-running it yields the same outcome for the same page.
func (v *Verifier) Verify(ctx context.Context, url string, candidates []models.SelectorCandidate) (*Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	select {
	case v.sem <- struct{}{}:
		defer func() { <-v.sem }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	outcome := &Outcome{Candidates: make([]models.SelectorCandidate, len(candidates))}
	copy(outcome.Candidates, candidates)

	for i := range outcome.Candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c := &outcome.Candidates[i]

		count, err := v.countMatches(ctx, url, c.Selector)
		if err != nil {
			if errors.Is(err, ErrVerificationTimeout) {
				v.logger.Warn("selector verification timed out",
					zap.String("selector", c.Selector),
					zap.Duration("timeout", v.timeout))
				outcome.TimedOut = true
				break
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			v.logger.Warn("selector verification failed",
				zap.String("selector", c.Selector),
				zap.Error(err))
			continue
		}
		c.UniqueCount = count
		if !c.Unique() {
			continue
		}
		if outcome.Primary == nil {
			outcome.Primary = c
		} else if len(outcome.Fallbacks) < v.fallbackLimit {
			outcome.Fallbacks = append(outcome.Fallbacks, *c)
		}
	}
	return outcome, nil
}

func (v *Verifier) countMatches(ctx context.Context, url, selector string) (int, error) {
	verifyCtx := ctx
	if v.timeout > 0 {
		var cancel context.CancelFunc
		verifyCtx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}
	count, err := v.automation.CountMatches(verifyCtx, url, selector)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return 0, ErrVerificationTimeout
		}
		return 0, err
	}
	return count, nil
}
