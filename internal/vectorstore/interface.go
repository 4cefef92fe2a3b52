// Package vectorstore wraps the external HNSW+payload engine (Qdrant-shaped)
// behind the collection/point/filter contract spec'd for project-scoped
// retrieval: one dense+sparse collection per project per content kind,
// hybrid search with client-side RRF fallback, and pass-through alias/
// snapshot/quantization administration.
package vectorstore

import "context"

// Point is a single vector + payload entry, addressed by ID. Points without
// an ID are assigned a fresh UUID by Upsert.
type Point struct {
	ID      string
	Vector  []float32
	Sparse  *SparseVector
	Payload map[string]any
}

// SparseVector is a sparse term-weight vector, indices/values aligned by
// position. A nil or empty SparseVector degrades hybrid search to dense-only.
type SparseVector struct {
	Indices []uint32
	Values  []float32
}

// SearchResult is a single scored hit.
type SearchResult struct {
	ID      string
	Score   float32
	Payload map[string]any
}

// RangeCondition bounds a numeric payload field. Nil bounds are unset.
type RangeCondition struct {
	Gte *float64
	Lte *float64
}

// Condition is one payload filter clause, ANDed with its siblings in Filter.Must.
type Condition struct {
	Field    string
	MatchOne string
	MatchAny []string
	Range    *RangeCondition
}

// Filter is a conjunction of payload conditions.
type Filter struct {
	Must []Condition
}

// ScrollPage is one page of a cursor-based scroll.
type ScrollPage struct {
	Points         []Point
	NextPageOffset string
}

// Store is the VectorStore contract from spec §4.1. Every method is safe
// for concurrent invocation; no local state is mutated beyond the engine
// client itself.
type Store interface {
	// EnsureCollection idempotently creates name with a dense vector of the
	// configured size, cosine distance, a default_segment_number=2 optimizer
	// hint, and payload indexes on type/tags/file/timestamp/sessionId/
	// validated/source/project. Concurrent calls never create it twice.
	EnsureCollection(ctx context.Context, name string) error

	// Upsert ensures the collection exists, then writes points in batches of
	// 100, blocking for commit on each batch.
	Upsert(ctx context.Context, name string, points []Point) error

	// Search returns hits ordered by score desc, truncated to limit, with
	// score >= minScore when minScore > 0. A 404 (missing collection)
	// degrades to an empty slice rather than an error.
	Search(ctx context.Context, name string, vector []float32, limit int, filter *Filter, minScore float32) ([]SearchResult, error)

	// SearchHybridNative attempts the engine's native prefetch+RRF query;
	// on any failure it falls back to client-side RRF over independent
	// dense and sparse searches.
	SearchHybridNative(ctx context.Context, name string, dense []float32, sparse *SparseVector, limit int, filter *Filter) ([]SearchResult, error)

	Delete(ctx context.Context, name string, ids []string) error
	DeleteByFilter(ctx context.Context, name string, filter *Filter) error

	Scroll(ctx context.Context, name string, filter *Filter, limit int, pageOffset string) (*ScrollPage, error)

	// AggregateByField pages through the whole collection with Scroll and
	// returns a histogram of the field's values. Scroll fetches vectors as
	// well as payloads, so the pages are not payload-only.
	AggregateByField(ctx context.Context, name, field string) (map[string]int64, error)

	FindDuplicates(ctx context.Context, name string, limit int, threshold float32) ([]SearchResult, error)
	FindClusters(ctx context.Context, name string, seedIDs []string, limit int, threshold float32) ([]SearchResult, error)

	// Recommend builds a pseudo-vector (mean(positive) - mean(negative)) from
	// the stored vectors and runs a plain search with it. The engine's own
	// recommend API is not used.
	Recommend(ctx context.Context, name string, positiveIDs, negativeIDs []string, limit int) ([]SearchResult, error)

	CreateAlias(ctx context.Context, alias, collection string) error
	SwapAlias(ctx context.Context, alias, from, to string) error
	ListAliases(ctx context.Context) (map[string]string, error)

	CreateSnapshot(ctx context.Context, name string) (string, error)
	ListSnapshots(ctx context.Context, name string) ([]string, error)
	DeleteSnapshot(ctx context.Context, name, snapshotName string) error

	EnableQuantization(ctx context.Context, name string, quantile float32) error
	DisableQuantization(ctx context.Context, name string) error

	HealthCheck(ctx context.Context) error
	Close() error
}
