// Package predictor implements PredictiveLoader (spec.md §4.7): given the
// session's current activity, it produces a ranked set of Predictions using
// four independent strategies, then warms Cache/VectorStore for the
// highest-confidence ones via the Embedder.
//
// Grounded on internal/intelligence/pattern_engine.go and
// internal/intelligence/learning_engine.go's Pattern/ConfidenceLevel idiom,
// generalized into spec.md's four concrete strategies and confidence
// formulas. Rate limiting is new (the teacher throttles embedding calls by
// hand in internal/embeddings/rate_limiter.go); golang.org/x/time/rate is the
// idiomatic token-bucket replacement, already an implicit family of the
// teacher's golang.org/x/sync dependency.
package predictor

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"ragmemory/internal/cache"
	"ragmemory/internal/embedder"
	"ragmemory/internal/logging"
	"ragmemory/internal/sessioncore"
	"ragmemory/internal/vectorstore"
	"ragmemory/pkg/types"
)

const (
	minConfidence   = 0.6
	maxPredictions  = 10
	warmBatchSize   = 5
	rateLimitPeriod = 30 * time.Second
	rateLimitBurst  = 1
)

// Loader is the sole PredictiveLoader implementation; it satisfies
// internal/sessioncore.Prefetcher.
type Loader struct {
	store vectorstore.Store
	cache cache.Cache
	embed *embedder.Embedder

	mu       sync.Mutex
	limiters map[string]*rate.Limiter

	statsMu sync.Mutex
	hits    map[types.PredictionStrategy]int64
}

func New(store vectorstore.Store, c cache.Cache, embed *embedder.Embedder) *Loader {
	return &Loader{
		store:    store,
		cache:    c,
		embed:    embed,
		limiters: make(map[string]*rate.Limiter),
		hits:     make(map[types.PredictionStrategy]int64),
	}
}

// Prefetch implements sessioncore.Prefetcher. At most one run per session per
// 30s actually does work; throttled calls return immediately. Entirely
// best-effort: every internal failure is logged and swallowed, since a
// prefetch miss never affects the session's own correctness.
func (l *Loader) Prefetch(ctx context.Context, snap sessioncore.SessionSnapshot) {
	if !l.allow(snap.SessionID) {
		return
	}

	predictions := l.Predict(ctx, snap)
	if len(predictions) == 0 {
		return
	}
	l.recordHits(predictions)
	l.warm(ctx, snap, predictions)
}

func (l *Loader) allow(sessionID string) bool {
	l.mu.Lock()
	lim, ok := l.limiters[sessionID]
	if !ok {
		lim = rate.NewLimiter(rate.Every(rateLimitPeriod), rateLimitBurst)
		l.limiters[sessionID] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}

// Predict runs all four strategies, then applies spec.md §4.7's
// post-processing: keep confidence >= 0.6, dedup by resource, sort by
// confidence desc, truncate to 10.
func (l *Loader) Predict(ctx context.Context, snap sessioncore.SessionSnapshot) []types.Prediction {
	var all []types.Prediction
	all = append(all, l.fileSimilarity(ctx, snap)...)
	all = append(all, queryPattern(snap)...)
	all = append(all, toolChain(snap)...)
	all = append(all, featureContext(snap)...)

	return postProcess(all)
}

func postProcess(predictions []types.Prediction) []types.Prediction {
	seen := make(map[string]bool, len(predictions))
	var kept []types.Prediction
	for _, p := range predictions {
		if p.Confidence < minConfidence {
			continue
		}
		if seen[p.Resource] {
			continue
		}
		seen[p.Resource] = true
		kept = append(kept, p)
	}

	sortByConfidenceDesc(kept)

	if len(kept) > maxPredictions {
		kept = kept[:maxPredictions]
	}
	return kept
}

func sortByConfidenceDesc(predictions []types.Prediction) {
	for i := 1; i < len(predictions); i++ {
		for j := i; j > 0 && predictions[j].Confidence > predictions[j-1].Confidence; j-- {
			predictions[j], predictions[j-1] = predictions[j-1], predictions[j]
		}
	}
}

func (l *Loader) recordHits(predictions []types.Prediction) {
	l.statsMu.Lock()
	defer l.statsMu.Unlock()
	for _, p := range predictions {
		l.hits[p.Strategy]++
	}
}

// StrategyHits returns a snapshot of how many predictions each strategy has
// contributed since the Loader was constructed. The counts are not
// exported on /metrics.
func (l *Loader) StrategyHits() map[types.PredictionStrategy]int64 {
	l.statsMu.Lock()
	defer l.statsMu.Unlock()
	out := make(map[types.PredictionStrategy]int64, len(l.hits))
	for k, v := range l.hits {
		out[k] = v
	}
	return out
}

func logWarmFailure(ctx context.Context, step string, err error) {
	logging.WarnContext(ctx, "predictor: warm step failed", "step", step, "error", err)
}
