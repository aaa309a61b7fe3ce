// Package resolve runs the per-key resolution pipeline: shortlist a page
// node for each semantic target, extract its features, generate and rank
// selector candidates, verify them against the page, and publish the outcome
// to the knowledge base.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/semloc/semloc/internal/browser"
	"github.com/semloc/semloc/internal/embedding"
	"github.com/semloc/semloc/internal/feature"
	"github.com/semloc/semloc/internal/kb"
	"github.com/semloc/semloc/internal/keyword"
	"github.com/semloc/semloc/internal/models"
	"github.com/semloc/semloc/internal/ranking"
	"github.com/semloc/semloc/internal/selector"
	"github.com/semloc/semloc/internal/targets"
	"github.com/semloc/semloc/internal/vector"
	"github.com/semloc/semloc/internal/verify"
)

// ErrMatchNotFound means no node on the page satisfied the semantic target.
var ErrMatchNotFound = errors.New("no node matches the semantic target")

// ErrUnknownKey means a requested semantic key is not in the target registry.
var ErrUnknownKey = errors.New("unknown semantic key")

// Deps are the capabilities the engine composes.
type Deps struct {
	Automation browser.Automation
	Store      kb.Store
	Keywords   keyword.KeywordIndex
	Extractor  *feature.Extractor
	Cache      *feature.Cache
	Generator  *selector.Generator
	Ranker     *ranking.Ranker
	Verifier   *verify.Verifier
	Registry   *targets.Registry
	Logger     *zap.Logger
}

// Options tune the engine.
type Options struct {
	// Workers caps concurrent per-key pipelines.
	Workers int
	// PutRetries caps knowledge base write retries on version conflicts.
	PutRetries int
	// NodeShortlist caps how many target-matching nodes are scored per key.
	NodeShortlist int
	// HistoryLimit caps how many past records are fetched per key.
	HistoryLimit int
}

func (o *Options) applyDefaults() {
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.PutRetries <= 0 {
		o.PutRetries = 3
	}
	if o.NodeShortlist <= 0 {
		o.NodeShortlist = 20
	}
	if o.HistoryLimit <= 0 {
		o.HistoryLimit = 5
	}
}

// Engine is the locator resolution engine.
type Engine struct {
	deps      Deps
	opts      Options
	publisher *Publisher
}

// NewEngine creates an Engine.
func NewEngine(deps Deps, opts Options) *Engine {
	opts.applyDefaults()
	return &Engine{
		deps:      deps,
		opts:      opts,
		publisher: NewPublisher(deps.Store, deps.Keywords, opts.PutRetries, deps.Logger),
	}
}

// Request is one resolution run against a page.
type Request struct {
	URL     string
	BuildID string
	// Keys selects which semantic keys to resolve. Empty means every key in
	// the registry.
	Keys []string
}

// Resolve captures the page once and resolves every requested key against it.
// Keys are isolated: one key's failure becomes its own unresolved result and
// never affects the others. Every requested key gets exactly one result.
func (e *Engine) Resolve(ctx context.Context, req Request) (map[string]*models.ResolutionResult, error) {
	if req.URL == "" {
		return nil, fmt.Errorf("url cannot be empty")
	}
	if req.BuildID == "" {
		return nil, fmt.Errorf("build id cannot be empty")
	}
	keys := req.Keys
	if len(keys) == 0 {
		keys = e.deps.Registry.Keys()
	}

	snapshot, err := e.deps.Automation.CaptureSnapshot(ctx, req.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to capture %s: %w", req.URL, err)
	}
	e.deps.Logger.Info("page captured",
		zap.String("url", req.URL),
		zap.String("build_id", req.BuildID),
		zap.Int("nodes", len(snapshot.Nodes)),
		zap.Int("keys", len(keys)))

	results := make(map[string]*models.ResolutionResult, len(keys))
	var mu sync.Mutex
	var wg sync.WaitGroup
	jobs := make(chan string)

	for i := 0; i < e.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for key := range jobs {
				result := e.resolveKeySafe(ctx, snapshot, req.BuildID, key)
				mu.Lock()
				results[key] = result
				mu.Unlock()
			}
		}()
	}

	for _, key := range keys {
		select {
		case jobs <- key:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return nil, ctx.Err()
		}
	}
	close(jobs)
	wg.Wait()

	// Keys skipped by cancellation still get an explicit result.
	for _, key := range keys {
		if _, ok := results[key]; !ok {
			results[key] = unresolved(key, "resolution cancelled")
		}
	}
	return results, nil
}

// resolveKeySafe isolates a single key's pipeline, converting panics and
// errors into an unresolved result.
func (e *Engine) resolveKeySafe(ctx context.Context, snapshot *browser.Snapshot, buildID, key string) (result *models.ResolutionResult) {
	defer func() {
		if r := recover(); r != nil {
			e.deps.Logger.Error("key resolution panicked",
				zap.String("semantic_key", key), zap.Any("panic", r))
			result = unresolved(key, "internal error during resolution")
		}
	}()

	result, err := e.resolveKey(ctx, snapshot, buildID, key)
	if err != nil {
		e.deps.Logger.Warn("key resolution failed",
			zap.String("semantic_key", key), zap.Error(err))
		result = unresolved(key, err.Error())
		// A missing match is still an outcome worth recording; transient
		// failures (cancellation, unknown key, storage) are not.
		if errors.Is(err, ErrMatchNotFound) {
			if pubErr := e.publish(ctx, buildID, result); pubErr != nil {
				e.deps.Logger.Warn("failed to record unresolved outcome",
					zap.String("semantic_key", key), zap.Error(pubErr))
			}
		}
		return result
	}
	return result
}

func unresolved(key, message string) *models.ResolutionResult {
	return &models.ResolutionResult{
		SemanticKey: key,
		Status:      models.StatusUnresolved,
		Message:     message,
	}
}

// resolveKey runs the full pipeline for one key against the captured page.
func (e *Engine) resolveKey(ctx context.Context, snapshot *browser.Snapshot, buildID, key string) (*models.ResolutionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	target, ok := e.deps.Registry.Get(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}

	nodeIndex, node := shortlist(snapshot.Nodes, &target, e.opts.NodeShortlist)
	if node == nil {
		return nil, fmt.Errorf("%w: %s on %s", ErrMatchNotFound, key, snapshot.URL)
	}

	vec, reduced, err := e.extractFeature(ctx, snapshot, buildID, nodeIndex, node)
	if err != nil {
		return nil, err
	}

	candidates := e.deps.Generator.Generate(node)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: no selector candidates for %s", ErrMatchNotFound, key)
	}

	history, annotations, err := e.loadHistory(ctx, key)
	if err != nil {
		return nil, err
	}
	var similarity *float64
	if !reduced {
		similarity, err = e.embeddingSimilarity(ctx, vec, history)
		if err != nil {
			return nil, err
		}
	}

	ranked := e.deps.Ranker.Rank(candidates, vec, latestRecord(history), annotations, similarity)
	ordered := make([]models.SelectorCandidate, len(ranked))
	for i := range ranked {
		ordered[i] = ranked[i].Candidate
	}

	outcome, err := e.deps.Verifier.Verify(ctx, snapshot.URL, ordered)
	if err != nil {
		return nil, err
	}

	result := e.decide(key, vec, node, ranked, outcome, reduced)
	if err := e.publish(ctx, buildID, result); err != nil {
		return nil, err
	}
	return result, nil
}

// extractFeature extracts the node's feature vector through the per-page
// cache. A missing embedding model degrades to rule-only ranking instead of
// failing the key.
func (e *Engine) extractFeature(ctx context.Context, snapshot *browser.Snapshot, buildID string, nodeIndex int, node *models.NodeDescriptor) (*models.FeatureVector, bool, error) {
	page := e.deps.Cache.GetOrCreate(feature.PageKey{URL: snapshot.URL, BuildID: buildID})
	if vec, ok := page.Get(nodeIndex); ok {
		return vec, vec.Embedding == nil, nil
	}

	vec, err := e.deps.Extractor.Extract(ctx, node)
	if err != nil {
		if errors.Is(err, embedding.ErrModelUnavailable) {
			e.deps.Logger.Warn("embedding model unavailable, ranking rule-only",
				zap.String("url", snapshot.URL))
			page.Set(nodeIndex, vec)
			return vec, true, nil
		}
		return nil, false, fmt.Errorf("feature extraction failed: %w", err)
	}
	page.Set(nodeIndex, vec)
	return vec, vec.Embedding == nil, nil
}

func (e *Engine) loadHistory(ctx context.Context, key string) ([]*models.SemanticRecord, []models.Annotation, error) {
	history, err := e.deps.Store.History(ctx, key, e.opts.HistoryLimit)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load history: %w", err)
	}
	annotations, err := e.deps.Store.Annotations(ctx, key)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load annotations: %w", err)
	}
	return history, annotations, nil
}

// latestRecord returns the newest historical record, or nil.
func latestRecord(history []*models.SemanticRecord) *models.SemanticRecord {
	if len(history) == 0 {
		return nil
	}
	return history[0]
}

// embeddingSimilarity computes the node-level similarity feeding the weighted
// combination: against the newest historical embedding for the key, else the
// best nearest-neighbor hit across the knowledge base, else an explicit zero.
// Nil only when the node itself has no embedding; rule-only combination is
// reserved for a missing model.
func (e *Engine) embeddingSimilarity(ctx context.Context, vec *models.FeatureVector, history []*models.SemanticRecord) (*float64, error) {
	if vec == nil || vec.Embedding == nil {
		return nil, nil
	}
	if sim := historicalSimilarity(vec, history); sim != nil {
		return sim, nil
	}
	neighbors, err := e.deps.Store.NearestNeighbors(ctx, vec.Embedding, 1)
	if err != nil {
		return nil, fmt.Errorf("nearest neighbor lookup failed: %w", err)
	}
	sim := 0.0
	if len(neighbors) > 0 {
		sim = neighbors[0].Similarity
	}
	return &sim, nil
}

// historicalSimilarity compares the current embedding against the newest
// historical one. Nil when either side has no embedding.
func historicalSimilarity(vec *models.FeatureVector, history []*models.SemanticRecord) *float64 {
	if vec == nil || vec.Embedding == nil {
		return nil
	}
	for _, rec := range history {
		if rec.Feature != nil && rec.Feature.Embedding != nil {
			sim := vector.CosineSimilarity(vec.Embedding, rec.Feature.Embedding)
			return &sim
		}
	}
	return nil
}

// decide assigns the final status and confidence from the ranked candidates
// and the verification outcome.
func (e *Engine) decide(key string, vec *models.FeatureVector, node *models.NodeDescriptor, ranked []ranking.ScoredCandidate, outcome *verify.Outcome, reduced bool) *models.ResolutionResult {
	cfg := e.deps.Ranker.Config()
	result := &models.ResolutionResult{
		SemanticKey:       key,
		RuleScoreMax:      cfg.RuleScoreMax(),
		Candidates:        outcome.Candidates,
		Fallbacks:         outcome.Fallbacks,
		Node:              node,
		Feature:           vec,
		ReducedConfidence: reduced,
		TimedOut:          outcome.TimedOut,
	}

	if outcome.Primary == nil {
		result.Status = models.StatusUnresolved
		if outcome.TimedOut {
			result.Status = models.StatusNeedsReview
			result.Message = "verification timed out before a unique selector was found"
		} else {
			result.Message = "no candidate selector verified as unique"
		}
		if len(ranked) > 0 {
			result.Confidence = ranked[0].Combined
			result.RuleScore = ranked[0].RuleScore
			result.EmbeddingSimilarity = ranked[0].EmbeddingSimilarity
			result.MatchedKeywords = ranked[0].Breakdown.MatchedKeywords
		}
		return result
	}

	result.Primary = outcome.Primary
	for i := range ranked {
		if ranked[i].Candidate.Selector != outcome.Primary.Selector {
			continue
		}
		result.Confidence = ranked[i].Combined
		result.RuleScore = ranked[i].RuleScore
		result.EmbeddingSimilarity = ranked[i].EmbeddingSimilarity
		result.MatchedKeywords = ranked[i].Breakdown.MatchedKeywords
		break
	}

	switch {
	case outcome.TimedOut:
		result.Status = models.StatusNeedsReview
		result.Message = "verification timed out"
	case e.deps.Ranker.Ambiguous(ranked):
		result.Status = models.StatusNeedsReview
		result.Message = "top candidates are ambiguous"
	case result.Confidence >= cfg.ResolveThreshold:
		result.Status = models.StatusResolved
	default:
		result.Status = models.StatusNeedsReview
		result.Message = "confidence below resolve threshold"
	}
	return result
}

// publish persists the result as a semantic record.
func (e *Engine) publish(ctx context.Context, buildID string, result *models.ResolutionResult) error {
	rec := &models.SemanticRecord{
		SemanticKey: result.SemanticKey,
		BuildID:     buildID,
		Feature:     result.Feature,
		Selectors:   result.Candidates,
		Confidence:  result.Confidence,
		Status:      result.Status,
	}
	if err := e.publisher.Publish(ctx, rec); err != nil {
		return fmt.Errorf("failed to publish record: %w", err)
	}
	return nil
}
