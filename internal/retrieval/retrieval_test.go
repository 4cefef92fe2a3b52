package retrieval

import (
	"context"
	"testing"

	"ragmemory/internal/cache"
	"ragmemory/internal/embedder"
	"ragmemory/internal/vectorstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCache struct {
	cache.Cache
}

func (fakeCache) GetEmbedding(_ context.Context, _, _, _ string) ([]float32, cache.Level, error) {
	return nil, cache.LevelMiss, nil
}
func (fakeCache) SetEmbedding(_ context.Context, _, _, _ string, _ []float32) error { return nil }
func (fakeCache) SetEmbeddingSingleLevel(_ context.Context, _ string, _ []float32) error {
	return nil
}

type fakeStore struct {
	vectorstore.Store
	points    []vectorstore.Point
	neighbors map[string][]vectorstore.SearchResult
	hybrid    []vectorstore.SearchResult
	histogram map[string]int64

	lastFilter *vectorstore.Filter
}

func (f *fakeStore) Scroll(_ context.Context, _ string, _ *vectorstore.Filter, limit int, _ string) (*vectorstore.ScrollPage, error) {
	pts := f.points
	if limit > 0 && len(pts) > limit {
		pts = pts[:limit]
	}
	return &vectorstore.ScrollPage{Points: pts}, nil
}

func (f *fakeStore) Recommend(_ context.Context, _ string, positiveIDs, _ []string, _ int) ([]vectorstore.SearchResult, error) {
	if len(positiveIDs) == 0 {
		return nil, nil
	}
	return f.neighbors[positiveIDs[0]], nil
}

func (f *fakeStore) SearchHybridNative(_ context.Context, _ string, _ []float32, _ *vectorstore.SparseVector, limit int, filter *vectorstore.Filter) ([]vectorstore.SearchResult, error) {
	f.lastFilter = filter
	out := f.hybrid
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) AggregateByField(_ context.Context, _, _ string) (map[string]int64, error) {
	return f.histogram, nil
}

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

func TestFindDuplicateGroupsUnionsTransitively(t *testing.T) {
	store := &fakeStore{
		points: []vectorstore.Point{{ID: "a"}, {ID: "b"}, {ID: "c"}},
		neighbors: map[string][]vectorstore.SearchResult{
			"a": {{ID: "b", Score: 0.97}},
			"b": {{ID: "c", Score: 0.96}},
			"c": {{ID: "b", Score: 0.96}},
		},
	}
	p := New(store, embedder.New(fakeProvider{}, fakeCache{}))

	groups, err := p.FindDuplicateGroups(context.Background(), "coll")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, groups[0].IDs)
}

func TestSearchAppliesFileFilter(t *testing.T) {
	store := &fakeStore{hybrid: []vectorstore.SearchResult{{ID: "1", Score: 0.9}}}
	p := New(store, embedder.New(fakeProvider{}, fakeCache{}))

	results, err := p.Search(context.Background(), HybridQuery{Collection: "coll", Query: "auth", File: "main.go"})
	require.NoError(t, err)
	assert.Len(t, results, 1)
	require.NotNil(t, store.lastFilter)
	assert.Equal(t, []vectorstore.Condition{{Field: "file", MatchOne: "main.go"}}, store.lastFilter.Must)
}

func TestAggregatePassesThrough(t *testing.T) {
	store := &fakeStore{histogram: map[string]int64{"insight": 3}}
	p := New(store, embedder.New(fakeProvider{}, fakeCache{}))

	hist, err := p.Aggregate(context.Background(), "coll", "type")
	require.NoError(t, err)
	assert.Equal(t, int64(3), hist["insight"])
}
