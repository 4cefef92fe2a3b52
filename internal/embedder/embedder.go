// Package embedder generalizes internal/embeddings' OpenAI-shaped provider
// into the embed/embedBatch/embedFull/embedBatchFull contract of spec.md
// §4.3, adding multi-level cache integration on top of the provider's own
// retry/circuit-breaker wrapping.
package embedder

import (
	"context"
	"fmt"

	"ragmemory/internal/cache"
	"ragmemory/internal/logging"
	"ragmemory/internal/vectorstore"
)

// Provider is the subset of embeddings.EmbeddingService the embedder needs;
// typed independently so this package never imports internal/embeddings
// directly (kept swappable for circuit-breaker/retry-wrapped instances,
// which satisfy the same method set).
type Provider interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float64, error)
	GenerateBatchEmbeddings(ctx context.Context, texts []string) ([][]float64, error)
	GetDimension() int
	GetModel() string
	HealthCheck(ctx context.Context) error
}

// Options scopes a lookup/write to the multi-level cache. When SessionID or
// ProjectName is empty, the embedder falls back to the single-level global
// cache entry (spec.md §4.3).
type Options struct {
	SessionID   string
	ProjectName string
}

// Full pairs a dense vector with an optional sparse one. Sparse is always
// empty for this provider, which has no sparse-vector capability.
type Full struct {
	Dense  []float32
	Sparse *vectorstore.SparseVector
}

// Embedder is the retrieval core's sole path to the embedding provider.
type Embedder struct {
	provider Provider
	cache    cache.Cache
}

func New(provider Provider, c cache.Cache) *Embedder {
	return &Embedder{provider: provider, cache: c}
}

func (e *Embedder) GetDimension() int { return e.provider.GetDimension() }
func (e *Embedder) GetModel() string  { return e.provider.GetModel() }

func (e *Embedder) HealthCheck(ctx context.Context) error {
	return e.provider.HealthCheck(ctx)
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

// Embed returns text's dense vector, using the multi-level cache per
// Options before calling the provider.
func (e *Embedder) Embed(ctx context.Context, text string, opts Options) ([]float32, error) {
	if v, _, err := e.cache.GetEmbedding(ctx, opts.SessionID, opts.ProjectName, text); err == nil && v != nil {
		return v, nil
	}

	dense64, err := e.provider.GenerateEmbedding(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	dense := toFloat32(dense64)
	e.store(ctx, text, dense, opts)
	return dense, nil
}

func (e *Embedder) store(ctx context.Context, text string, dense []float32, opts Options) {
	if opts.SessionID != "" && opts.ProjectName != "" {
		if err := e.cache.SetEmbedding(ctx, opts.SessionID, opts.ProjectName, text, dense); err != nil {
			logging.Warn("embedder cache write failed", "error", err)
		}
		return
	}
	if err := e.cache.SetEmbeddingSingleLevel(ctx, text, dense); err != nil {
		logging.Warn("embedder single-level cache write failed", "error", err)
	}
}

// EmbedBatch checks the cache per text first, calling the provider only for
// the uncached subset. On a batch provider failure, it falls back to
// per-text Embed calls for that subset; if any of those calls fails,
// EmbedBatch returns its error and no results for the whole batch.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string, opts Options) ([][]float32, error) {
	results := make([][]float32, len(texts))
	var missTexts []string
	var missIdx []int

	for i, t := range texts {
		if v, _, err := e.cache.GetEmbedding(ctx, opts.SessionID, opts.ProjectName, t); err == nil && v != nil {
			results[i] = v
			continue
		}
		missTexts = append(missTexts, t)
		missIdx = append(missIdx, i)
	}

	if len(missTexts) == 0 {
		return results, nil
	}

	batch64, err := e.provider.GenerateBatchEmbeddings(ctx, missTexts)
	if err != nil {
		logging.Warn("embedder batch provider call failed, falling back to per-text", "count", len(missTexts), "error", err)
		for _, idx := range missIdx {
			v, embedErr := e.Embed(ctx, texts[idx], opts)
			if embedErr != nil {
				return nil, fmt.Errorf("embedBatch: per-text fallback failed for index %d: %w", idx, embedErr)
			}
			results[idx] = v
		}
		return results, nil
	}

	for j, idx := range missIdx {
		dense := toFloat32(batch64[j])
		results[idx] = dense
		e.store(ctx, texts[idx], dense, opts)
	}
	return results, nil
}

// EmbedFull and EmbedBatchFull add an always-empty sparse component, since
// this provider produces dense vectors only (spec.md §4.3).
func (e *Embedder) EmbedFull(ctx context.Context, text string, opts Options) (Full, error) {
	dense, err := e.Embed(ctx, text, opts)
	if err != nil {
		return Full{}, err
	}
	return Full{Dense: dense, Sparse: &vectorstore.SparseVector{}}, nil
}

func (e *Embedder) EmbedBatchFull(ctx context.Context, texts []string, opts Options) ([]Full, error) {
	denses, err := e.EmbedBatch(ctx, texts, opts)
	if err != nil {
		return nil, err
	}
	out := make([]Full, len(denses))
	for i, d := range denses {
		out[i] = Full{Dense: d, Sparse: &vectorstore.SparseVector{}}
	}
	return out, nil
}
