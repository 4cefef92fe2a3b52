package vectorstore

import (
	"context"
	"time"

	"ragmemory/internal/circuitbreaker"
	"ragmemory/internal/logging"
)

// CircuitBreakerStore wraps a Store with a circuit breaker so a struggling
// engine degrades to empty results on read paths instead of stalling every
// caller behind a slow or dead connection. Writes and administration calls
// are protected the same way but surface the circuit error directly, since
// there is no safe empty fallback for an Upsert or a Delete.
type CircuitBreakerStore struct {
	store Store
	cb    *circuitbreaker.CircuitBreaker
}

// NewCircuitBreakerStore wraps store. A nil config uses sensible defaults
// for a vector engine behind a handful of concurrent project collections.
func NewCircuitBreakerStore(store Store, config *circuitbreaker.Config) *CircuitBreakerStore {
	if config == nil {
		config = &circuitbreaker.Config{
			FailureThreshold:      5,
			SuccessThreshold:      2,
			Timeout:               30 * time.Second,
			MaxConcurrentRequests: 3,
			OnStateChange: func(from, to circuitbreaker.State) {
				logging.Warn("vectorstore circuit breaker state change", "from", from.String(), "to", to.String())
			},
		}
	}
	return &CircuitBreakerStore{store: store, cb: circuitbreaker.New(config)}
}

func (s *CircuitBreakerStore) EnsureCollection(ctx context.Context, name string) error {
	return s.cb.Execute(ctx, func(ctx context.Context) error {
		return s.store.EnsureCollection(ctx, name)
	})
}

func (s *CircuitBreakerStore) Upsert(ctx context.Context, name string, points []Point) error {
	return s.cb.Execute(ctx, func(ctx context.Context) error {
		return s.store.Upsert(ctx, name, points)
	})
}

func (s *CircuitBreakerStore) Search(ctx context.Context, name string, vector []float32, limit int, filter *Filter, minScore float32) ([]SearchResult, error) {
	var out []SearchResult
	err := s.cb.ExecuteWithFallback(ctx, func(ctx context.Context) error {
		res, err := s.store.Search(ctx, name, vector, limit, filter, minScore)
		out = res
		return err
	}, func(ctx context.Context, err error) error {
		out = []SearchResult{}
		return nil
	})
	return out, err
}

func (s *CircuitBreakerStore) SearchHybridNative(ctx context.Context, name string, dense []float32, sparse *SparseVector, limit int, filter *Filter) ([]SearchResult, error) {
	var out []SearchResult
	err := s.cb.ExecuteWithFallback(ctx, func(ctx context.Context) error {
		res, err := s.store.SearchHybridNative(ctx, name, dense, sparse, limit, filter)
		out = res
		return err
	}, func(ctx context.Context, err error) error {
		out = []SearchResult{}
		return nil
	})
	return out, err
}

func (s *CircuitBreakerStore) Delete(ctx context.Context, name string, ids []string) error {
	return s.cb.Execute(ctx, func(ctx context.Context) error {
		return s.store.Delete(ctx, name, ids)
	})
}

func (s *CircuitBreakerStore) DeleteByFilter(ctx context.Context, name string, filter *Filter) error {
	return s.cb.Execute(ctx, func(ctx context.Context) error {
		return s.store.DeleteByFilter(ctx, name, filter)
	})
}

func (s *CircuitBreakerStore) Scroll(ctx context.Context, name string, filter *Filter, limit int, pageOffset string) (*ScrollPage, error) {
	var out *ScrollPage
	err := s.cb.ExecuteWithFallback(ctx, func(ctx context.Context) error {
		res, err := s.store.Scroll(ctx, name, filter, limit, pageOffset)
		out = res
		return err
	}, func(ctx context.Context, err error) error {
		out = &ScrollPage{}
		return nil
	})
	return out, err
}

func (s *CircuitBreakerStore) AggregateByField(ctx context.Context, name, field string) (map[string]int64, error) {
	var out map[string]int64
	err := s.cb.ExecuteWithFallback(ctx, func(ctx context.Context) error {
		res, err := s.store.AggregateByField(ctx, name, field)
		out = res
		return err
	}, func(ctx context.Context, err error) error {
		out = map[string]int64{}
		return nil
	})
	return out, err
}

func (s *CircuitBreakerStore) FindDuplicates(ctx context.Context, name string, limit int, threshold float32) ([]SearchResult, error) {
	var out []SearchResult
	err := s.cb.ExecuteWithFallback(ctx, func(ctx context.Context) error {
		res, err := s.store.FindDuplicates(ctx, name, limit, threshold)
		out = res
		return err
	}, func(ctx context.Context, err error) error {
		out = []SearchResult{}
		return nil
	})
	return out, err
}

func (s *CircuitBreakerStore) FindClusters(ctx context.Context, name string, seedIDs []string, limit int, threshold float32) ([]SearchResult, error) {
	var out []SearchResult
	err := s.cb.ExecuteWithFallback(ctx, func(ctx context.Context) error {
		res, err := s.store.FindClusters(ctx, name, seedIDs, limit, threshold)
		out = res
		return err
	}, func(ctx context.Context, err error) error {
		out = []SearchResult{}
		return nil
	})
	return out, err
}

func (s *CircuitBreakerStore) Recommend(ctx context.Context, name string, positiveIDs, negativeIDs []string, limit int) ([]SearchResult, error) {
	var out []SearchResult
	err := s.cb.ExecuteWithFallback(ctx, func(ctx context.Context) error {
		res, err := s.store.Recommend(ctx, name, positiveIDs, negativeIDs, limit)
		out = res
		return err
	}, func(ctx context.Context, err error) error {
		out = []SearchResult{}
		return nil
	})
	return out, err
}

func (s *CircuitBreakerStore) CreateAlias(ctx context.Context, alias, collection string) error {
	return s.cb.Execute(ctx, func(ctx context.Context) error {
		return s.store.CreateAlias(ctx, alias, collection)
	})
}

func (s *CircuitBreakerStore) SwapAlias(ctx context.Context, alias, from, to string) error {
	return s.cb.Execute(ctx, func(ctx context.Context) error {
		return s.store.SwapAlias(ctx, alias, from, to)
	})
}

func (s *CircuitBreakerStore) ListAliases(ctx context.Context) (map[string]string, error) {
	var out map[string]string
	err := s.cb.ExecuteWithFallback(ctx, func(ctx context.Context) error {
		res, err := s.store.ListAliases(ctx)
		out = res
		return err
	}, func(ctx context.Context, err error) error {
		out = map[string]string{}
		return nil
	})
	return out, err
}

func (s *CircuitBreakerStore) CreateSnapshot(ctx context.Context, name string) (string, error) {
	var out string
	err := s.cb.Execute(ctx, func(ctx context.Context) error {
		res, err := s.store.CreateSnapshot(ctx, name)
		out = res
		return err
	})
	return out, err
}

func (s *CircuitBreakerStore) ListSnapshots(ctx context.Context, name string) ([]string, error) {
	var out []string
	err := s.cb.ExecuteWithFallback(ctx, func(ctx context.Context) error {
		res, err := s.store.ListSnapshots(ctx, name)
		out = res
		return err
	}, func(ctx context.Context, err error) error {
		out = []string{}
		return nil
	})
	return out, err
}

func (s *CircuitBreakerStore) DeleteSnapshot(ctx context.Context, name, snapshotName string) error {
	return s.cb.Execute(ctx, func(ctx context.Context) error {
		return s.store.DeleteSnapshot(ctx, name, snapshotName)
	})
}

func (s *CircuitBreakerStore) EnableQuantization(ctx context.Context, name string, quantile float32) error {
	return s.cb.Execute(ctx, func(ctx context.Context) error {
		return s.store.EnableQuantization(ctx, name, quantile)
	})
}

func (s *CircuitBreakerStore) DisableQuantization(ctx context.Context, name string) error {
	return s.cb.Execute(ctx, func(ctx context.Context) error {
		return s.store.DisableQuantization(ctx, name)
	})
}

func (s *CircuitBreakerStore) HealthCheck(ctx context.Context) error {
	return s.cb.Execute(ctx, func(ctx context.Context) error {
		return s.store.HealthCheck(ctx)
	})
}

// Close bypasses the circuit breaker: shutdown must always reach the
// underlying store regardless of its open/closed state.
func (s *CircuitBreakerStore) Close() error {
	return s.store.Close()
}

// GetCircuitBreakerStats exposes the breaker's counters for health/metrics endpoints.
func (s *CircuitBreakerStore) GetCircuitBreakerStats() circuitbreaker.Stats {
	return s.cb.GetStats()
}
