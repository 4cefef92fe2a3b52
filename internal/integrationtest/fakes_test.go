// Package integrationtest encodes spec.md §8's scenarios S1, S2, S3, S5, S6
// as black-box tests over the real internal/memory, internal/indexer,
// internal/sessioncore, and internal/predictor components, wired with
// in-memory fakes for VectorStore/Cache/Embedder instead of live
// Qdrant/Redis. Scenario S4 (native-search RRF fallback) is covered
// directly in internal/vectorstore/search_test.go's fuseRRF tests, since a
// full transport-level fake here would need a qdrant.Client gRPC double.
//
// Grounded on internal/memory/governance_test.go's fakeStore and
// internal/indexer/indexer_test.go's fakeCache idiom (map-backed, interface-
// embedding fakes), the same pattern the teacher uses in storage/mock_store.go.
package integrationtest

import (
	"context"
	"fmt"
	"sync"

	"ragmemory/internal/cache"
	"ragmemory/internal/vectorstore"
	"ragmemory/pkg/types"
)

// fakeStore is a map-backed vectorstore.Store covering every method the
// scenarios below exercise: EnsureCollection, Upsert, Delete, DeleteByFilter,
// Scroll, AggregateByField, Search.
type fakeStore struct {
	vectorstore.Store

	mu     sync.Mutex
	points map[string]map[string]vectorstore.Point // collection -> id -> point
}

func newFakeStore() *fakeStore {
	return &fakeStore{points: map[string]map[string]vectorstore.Point{}}
}

func (f *fakeStore) EnsureCollection(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.points[name] == nil {
		f.points[name] = map[string]vectorstore.Point{}
	}
	return nil
}

func (f *fakeStore) Upsert(_ context.Context, name string, points []vectorstore.Point) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.points[name] == nil {
		f.points[name] = map[string]vectorstore.Point{}
	}
	for _, p := range points {
		f.points[name][p.ID] = p
	}
	return nil
}

func (f *fakeStore) Delete(_ context.Context, name string, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		delete(f.points[name], id)
	}
	return nil
}

func (f *fakeStore) DeleteByFilter(_ context.Context, name string, filter *vectorstore.Filter) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if filter == nil || len(filter.Must) == 0 {
		f.points[name] = map[string]vectorstore.Point{}
		return nil
	}
	kept := map[string]vectorstore.Point{}
	for id, p := range f.points[name] {
		if !matchesFilter(p, filter) {
			kept[id] = p
		}
	}
	f.points[name] = kept
	return nil
}

func (f *fakeStore) Scroll(_ context.Context, name string, filter *vectorstore.Filter, limit int, _ string) (*vectorstore.ScrollPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []vectorstore.Point
	for _, p := range f.points[name] {
		if matchesFilter(p, filter) {
			out = append(out, p)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return &vectorstore.ScrollPage{Points: out}, nil
}

func (f *fakeStore) AggregateByField(_ context.Context, name, field string) (map[string]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	histogram := map[string]int64{}
	for _, p := range f.points[name] {
		if v, ok := p.Payload[field]; ok {
			histogram[fmt.Sprintf("%v", v)]++
		}
	}
	return histogram, nil
}

func (f *fakeStore) Search(_ context.Context, name string, _ []float32, limit int, filter *vectorstore.Filter, _ float32) ([]vectorstore.SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []vectorstore.SearchResult
	for _, p := range f.points[name] {
		if matchesFilter(p, filter) {
			out = append(out, vectorstore.SearchResult{ID: p.ID, Score: 1, Payload: p.Payload})
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (f *fakeStore) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.points[name])
}

func matchesFilter(p vectorstore.Point, filter *vectorstore.Filter) bool {
	if filter == nil {
		return true
	}
	for _, cond := range filter.Must {
		if cond.MatchOne != "" {
			if fmt.Sprintf("%v", p.Payload[cond.Field]) != cond.MatchOne {
				return false
			}
		}
		if len(cond.MatchAny) > 0 {
			found := false
			switch vals := p.Payload[cond.Field].(type) {
			case []string:
				for _, have := range vals {
					for _, want := range cond.MatchAny {
						if have == want {
							found = true
						}
					}
				}
			}
			if !found {
				return false
			}
		}
	}
	return true
}

// fakeProvider is a deterministic embedding provider: the vector encodes
// only length, so texts of equal length share a vector, and no real model
// call ever happens.
type fakeProvider struct{}

func (fakeProvider) GenerateEmbedding(_ context.Context, text string) ([]float64, error) {
	return []float64{float64(len(text)), 1}, nil
}

func (fakeProvider) GenerateBatchEmbeddings(_ context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, t := range texts {
		out[i] = []float64{float64(len(t)), 1}
	}
	return out, nil
}

func (fakeProvider) GetDimension() int                  { return 2 }
func (fakeProvider) GetModel() string                   { return "fake" }
func (fakeProvider) HealthCheck(_ context.Context) error { return nil }

// fakeCache is a full, stateful cache.Cache fake. Unlike the narrower
// per-package fakes elsewhere in the module, GetSearch/SetSearch here are
// real map-backed storage rather than always-miss no-ops: scenario S6 needs
// to observe an actual warm-then-hit round trip.
type fakeCache struct {
	mu          sync.Mutex
	search      map[string][]byte
	fileIndexes map[string]types.FileHashIndex
	sessionCtx  map[string][]byte
	invalidated []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		search:      map[string][]byte{},
		fileIndexes: map[string]types.FileHashIndex{},
		sessionCtx:  map[string][]byte{},
	}
}

func searchKey(sessionID, project, collection, queryKey string) string {
	return sessionID + "\x00" + project + "\x00" + collection + "\x00" + queryKey
}

func (c *fakeCache) GetEmbedding(_ context.Context, _, _, _ string) ([]float32, cache.Level, error) {
	return nil, cache.LevelMiss, nil
}
func (c *fakeCache) SetEmbedding(_ context.Context, _, _, _ string, _ []float32) error { return nil }
func (c *fakeCache) SetEmbeddingSingleLevel(_ context.Context, _ string, _ []float32) error {
	return nil
}

func (c *fakeCache) GetSearch(_ context.Context, sessionID, project, collection, queryKey string) ([]byte, cache.Level, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.search[searchKey(sessionID, project, collection, queryKey)]
	if !ok {
		return nil, cache.LevelMiss, nil
	}
	return v, cache.LevelSession, nil
}

func (c *fakeCache) SetSearch(_ context.Context, sessionID, project, collection, queryKey string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.search[searchKey(sessionID, project, collection, queryKey)] = value
	return nil
}

func (c *fakeCache) GetCollectionInfo(_ context.Context, _ string) ([]byte, bool, error) {
	return nil, false, nil
}
func (c *fakeCache) SetCollectionInfo(_ context.Context, _ string, _ []byte) error { return nil }

func (c *fakeCache) GetFileIndex(_ context.Context, project string) (types.FileHashIndex, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx, ok := c.fileIndexes[project]
	return idx, ok, nil
}

func (c *fakeCache) SetFileIndex(_ context.Context, project string, index types.FileHashIndex) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fileIndexes[project] = index
	return nil
}

func (c *fakeCache) GetSessionContext(_ context.Context, sessionID string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.sessionCtx[sessionID]
	return v, ok, nil
}

func (c *fakeCache) SetSessionContext(_ context.Context, sessionID string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionCtx[sessionID] = value
	return nil
}

func (c *fakeCache) GetStats(_ context.Context, _ string) (types.CacheStats, error) {
	return types.CacheStats{}, nil
}
func (c *fakeCache) IncrStat(_ context.Context, _, _ string) error               { return nil }
func (c *fakeCache) WarmSession(_ context.Context, _, _ string, _ []string, _ string) {}
func (c *fakeCache) ClearSession(_ context.Context, sessionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessionCtx, sessionID)
	return nil
}

func (c *fakeCache) InvalidateCollectionSearch(_ context.Context, collection string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, collection)
	return nil
}

func (c *fakeCache) HealthCheck(_ context.Context) error { return nil }
func (c *fakeCache) Close() error                        { return nil }
