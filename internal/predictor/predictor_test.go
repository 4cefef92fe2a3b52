package predictor

import (
	"context"
	"testing"

	"ragmemory/internal/cache"
	"ragmemory/internal/embedder"
	"ragmemory/internal/sessioncore"
	"ragmemory/internal/vectorstore"
	"ragmemory/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	vectorstore.Store
	results []vectorstore.SearchResult
}

func (f *fakeStore) Search(_ context.Context, _ string, _ []float32, limit int, _ *vectorstore.Filter, minScore float32) ([]vectorstore.SearchResult, error) {
	var out []vectorstore.SearchResult
	for _, r := range f.results {
		if r.Score >= minScore {
			out = append(out, r)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
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

type memCache struct {
	cache.Cache
	search map[string][]byte
}

func newMemCache() *memCache { return &memCache{search: map[string][]byte{}} }

func (c *memCache) GetEmbedding(_ context.Context, _, _, _ string) ([]float32, cache.Level, error) {
	return nil, cache.LevelMiss, nil
}
func (c *memCache) SetEmbedding(_ context.Context, _, _, _ string, _ []float32) error { return nil }
func (c *memCache) GetSearch(_ context.Context, sessionID, project, collection, queryKey string) ([]byte, cache.Level, error) {
	v, ok := c.search[sessionID+collection+queryKey]
	if !ok {
		return nil, cache.LevelMiss, nil
	}
	return v, cache.LevelSession, nil
}
func (c *memCache) SetSearch(_ context.Context, sessionID, project, collection, queryKey string, value []byte) error {
	c.search[sessionID+collection+queryKey] = value
	return nil
}

func TestFileSimilarityEmitsPredictionsForUnopenFiles(t *testing.T) {
	store := &fakeStore{results: []vectorstore.SearchResult{
		{ID: "1", Score: 0.8, Payload: map[string]any{"file": "service.go"}},
		{ID: "2", Score: 0.3, Payload: map[string]any{"file": "low_score.go"}},
	}}
	e := embedder.New(fakeProvider{}, newMemCache())
	l := New(store, newMemCache(), e)

	snap := sessioncore.SessionSnapshot{Project: "p", SessionID: "s", CurrentFiles: []string{"main.go"}}
	predictions := l.fileSimilarity(context.Background(), snap)

	require.Len(t, predictions, 1)
	assert.Equal(t, "service.go", predictions[0].Resource)
	assert.Equal(t, types.StrategyFileSimilarity, predictions[0].Strategy)
}

func TestQueryPatternSharedTokens(t *testing.T) {
	snap := sessioncore.SessionSnapshot{RecentQueries: []string{"auth middleware", "auth middleware token"}}
	predictions := queryPattern(snap)

	var found bool
	for _, p := range predictions {
		if p.Resource == "auth middleware" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestToolChainEmitsSuccessors(t *testing.T) {
	snap := sessioncore.SessionSnapshot{ToolsUsed: []string{"search_codebase"}, RecentQueries: []string{"q1"}}
	predictions := toolChain(snap)
	require.Len(t, predictions, 2)
	assert.Equal(t, types.PredictionToolInput, predictions[0].Type)
}

func TestFeatureContextEmitsFeatureAndQuery(t *testing.T) {
	snap := sessioncore.SessionSnapshot{ActiveFeatures: []string{"billing"}}
	predictions := featureContext(snap)
	require.Len(t, predictions, 2)
}

func TestPostProcessDedupsSortsAndTruncates(t *testing.T) {
	var raw []types.Prediction
	for i := 0; i < 15; i++ {
		raw = append(raw, types.Prediction{Resource: "r", Confidence: 0.9})
	}
	raw = append(raw, types.Prediction{Resource: "low", Confidence: 0.1})
	raw = append(raw, types.Prediction{Resource: "high", Confidence: 0.95})

	kept := postProcess(raw)
	assert.LessOrEqual(t, len(kept), maxPredictions)
	assert.Equal(t, "high", kept[0].Resource)
}

func TestPrefetchThrottlesPerSessionPer30s(t *testing.T) {
	store := &fakeStore{}
	e := embedder.New(fakeProvider{}, newMemCache())
	l := New(store, newMemCache(), e)

	assert.True(t, l.allow("sess-1"))
	assert.False(t, l.allow("sess-1"))
	assert.True(t, l.allow("sess-2"))
}

func TestPrefetchWarmsQueryCache(t *testing.T) {
	store := &fakeStore{results: []vectorstore.SearchResult{{ID: "1", Score: 0.9, Payload: map[string]any{}}}}
	mc := newMemCache()
	e := embedder.New(fakeProvider{}, newMemCache())
	l := New(store, mc, e)

	snap := sessioncore.SessionSnapshot{Project: "p", SessionID: "s", RecentQueries: []string{"auth middleware", "auth middleware token"}}
	l.Prefetch(context.Background(), snap)

	collection := types.CollectionName("p", types.SuffixCodebase)
	_, lvl, err := mc.GetSearch(context.Background(), "s", "p", collection, "auth middleware")
	require.NoError(t, err)
	assert.NotEqual(t, cache.LevelMiss, lvl)
}
