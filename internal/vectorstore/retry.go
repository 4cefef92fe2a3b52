package vectorstore

import (
	"context"
	"fmt"
	"time"

	"ragmemory/internal/errtypes"
	"ragmemory/internal/retry"
)

// RetryStore wraps a Store with exponential-backoff retry on the categorized
// retryable errors the engine produces (connection resets, rate limits,
// timeouts). It sits inside CircuitBreakerStore: retries absorb transient
// blips, the breaker absorbs sustained outages.
type RetryStore struct {
	store   Store
	retrier *retry.Retrier
}

// NewRetryStore wraps store with the given retry config. A nil config uses
// three attempts with a 200ms initial, 5s max exponential backoff.
func NewRetryStore(store Store, config *retry.Config) *RetryStore {
	if config == nil {
		config = &retry.Config{
			MaxAttempts:     3,
			InitialDelay:    200 * time.Millisecond,
			MaxDelay:        5 * time.Second,
			Multiplier:      2.0,
			RandomizeFactor: 0.1,
			RetryIf:         errtypes.IsRetryable,
		}
	}
	return &RetryStore{store: store, retrier: retry.New(config)}
}

func (r *RetryStore) do(ctx context.Context, op string, fn func(context.Context) error) error {
	result := r.retrier.Do(ctx, fn)
	if result.Err != nil {
		return fmt.Errorf("%s failed after %d attempts: %w", op, result.Attempts, result.Err)
	}
	return nil
}

func (r *RetryStore) EnsureCollection(ctx context.Context, name string) error {
	return r.do(ctx, "ensure_collection", func(ctx context.Context) error {
		return r.store.EnsureCollection(ctx, name)
	})
}

func (r *RetryStore) Upsert(ctx context.Context, name string, points []Point) error {
	return r.do(ctx, "upsert", func(ctx context.Context) error {
		return r.store.Upsert(ctx, name, points)
	})
}

func (r *RetryStore) Search(ctx context.Context, name string, vector []float32, limit int, filter *Filter, minScore float32) ([]SearchResult, error) {
	var out []SearchResult
	err := r.do(ctx, "search", func(ctx context.Context) error {
		res, err := r.store.Search(ctx, name, vector, limit, filter, minScore)
		out = res
		return err
	})
	return out, err
}

func (r *RetryStore) SearchHybridNative(ctx context.Context, name string, dense []float32, sparse *SparseVector, limit int, filter *Filter) ([]SearchResult, error) {
	var out []SearchResult
	err := r.do(ctx, "search_hybrid", func(ctx context.Context) error {
		res, err := r.store.SearchHybridNative(ctx, name, dense, sparse, limit, filter)
		out = res
		return err
	})
	return out, err
}

func (r *RetryStore) Delete(ctx context.Context, name string, ids []string) error {
	return r.do(ctx, "delete", func(ctx context.Context) error {
		return r.store.Delete(ctx, name, ids)
	})
}

func (r *RetryStore) DeleteByFilter(ctx context.Context, name string, filter *Filter) error {
	return r.do(ctx, "delete_by_filter", func(ctx context.Context) error {
		return r.store.DeleteByFilter(ctx, name, filter)
	})
}

func (r *RetryStore) Scroll(ctx context.Context, name string, filter *Filter, limit int, pageOffset string) (*ScrollPage, error) {
	var out *ScrollPage
	err := r.do(ctx, "scroll", func(ctx context.Context) error {
		res, err := r.store.Scroll(ctx, name, filter, limit, pageOffset)
		out = res
		return err
	})
	return out, err
}

func (r *RetryStore) AggregateByField(ctx context.Context, name, field string) (map[string]int64, error) {
	var out map[string]int64
	err := r.do(ctx, "aggregate_by_field", func(ctx context.Context) error {
		res, err := r.store.AggregateByField(ctx, name, field)
		out = res
		return err
	})
	return out, err
}

func (r *RetryStore) FindDuplicates(ctx context.Context, name string, limit int, threshold float32) ([]SearchResult, error) {
	var out []SearchResult
	err := r.do(ctx, "find_duplicates", func(ctx context.Context) error {
		res, err := r.store.FindDuplicates(ctx, name, limit, threshold)
		out = res
		return err
	})
	return out, err
}

func (r *RetryStore) FindClusters(ctx context.Context, name string, seedIDs []string, limit int, threshold float32) ([]SearchResult, error) {
	var out []SearchResult
	err := r.do(ctx, "find_clusters", func(ctx context.Context) error {
		res, err := r.store.FindClusters(ctx, name, seedIDs, limit, threshold)
		out = res
		return err
	})
	return out, err
}

func (r *RetryStore) Recommend(ctx context.Context, name string, positiveIDs, negativeIDs []string, limit int) ([]SearchResult, error) {
	var out []SearchResult
	err := r.do(ctx, "recommend", func(ctx context.Context) error {
		res, err := r.store.Recommend(ctx, name, positiveIDs, negativeIDs, limit)
		out = res
		return err
	})
	return out, err
}

func (r *RetryStore) CreateAlias(ctx context.Context, alias, collection string) error {
	return r.do(ctx, "create_alias", func(ctx context.Context) error {
		return r.store.CreateAlias(ctx, alias, collection)
	})
}

func (r *RetryStore) SwapAlias(ctx context.Context, alias, from, to string) error {
	return r.do(ctx, "swap_alias", func(ctx context.Context) error {
		return r.store.SwapAlias(ctx, alias, from, to)
	})
}

func (r *RetryStore) ListAliases(ctx context.Context) (map[string]string, error) {
	var out map[string]string
	err := r.do(ctx, "list_aliases", func(ctx context.Context) error {
		res, err := r.store.ListAliases(ctx)
		out = res
		return err
	})
	return out, err
}

func (r *RetryStore) CreateSnapshot(ctx context.Context, name string) (string, error) {
	var out string
	err := r.do(ctx, "create_snapshot", func(ctx context.Context) error {
		res, err := r.store.CreateSnapshot(ctx, name)
		out = res
		return err
	})
	return out, err
}

func (r *RetryStore) ListSnapshots(ctx context.Context, name string) ([]string, error) {
	var out []string
	err := r.do(ctx, "list_snapshots", func(ctx context.Context) error {
		res, err := r.store.ListSnapshots(ctx, name)
		out = res
		return err
	})
	return out, err
}

func (r *RetryStore) DeleteSnapshot(ctx context.Context, name, snapshotName string) error {
	return r.do(ctx, "delete_snapshot", func(ctx context.Context) error {
		return r.store.DeleteSnapshot(ctx, name, snapshotName)
	})
}

func (r *RetryStore) EnableQuantization(ctx context.Context, name string, quantile float32) error {
	return r.do(ctx, "enable_quantization", func(ctx context.Context) error {
		return r.store.EnableQuantization(ctx, name, quantile)
	})
}

func (r *RetryStore) DisableQuantization(ctx context.Context, name string) error {
	return r.do(ctx, "disable_quantization", func(ctx context.Context) error {
		return r.store.DisableQuantization(ctx, name)
	})
}

func (r *RetryStore) HealthCheck(ctx context.Context) error {
	return r.do(ctx, "health_check", func(ctx context.Context) error {
		return r.store.HealthCheck(ctx)
	})
}

func (r *RetryStore) Close() error {
	return r.store.Close()
}
