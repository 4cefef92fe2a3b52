package usage

import (
	"context"
	"testing"

	"ragmemory/internal/cache"
	"ragmemory/internal/embedder"
	"ragmemory/internal/memory"
	"ragmemory/internal/vectorstore"
	"ragmemory/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractEntities(t *testing.T) {
	text := "Updated UserService.go to call computeTotal(order) and import ./pkg/billing, introducing a new QuoteBuilder concept"
	e := ExtractEntities(text)
	assert.Contains(t, e.Files, "UserService.go")
	assert.Contains(t, e.Functions, "computeTotal")
	assert.Contains(t, e.Concepts, "QuoteBuilder")
}

type fakeStore struct {
	vectorstore.Store
	points map[string]map[string]vectorstore.Point
}

func newFakeStore() *fakeStore {
	return &fakeStore{points: map[string]map[string]vectorstore.Point{}}
}

func (f *fakeStore) EnsureCollection(_ context.Context, name string) error {
	if f.points[name] == nil {
		f.points[name] = map[string]vectorstore.Point{}
	}
	return nil
}

func (f *fakeStore) Upsert(_ context.Context, name string, points []vectorstore.Point) error {
	if f.points[name] == nil {
		f.points[name] = map[string]vectorstore.Point{}
	}
	for _, p := range points {
		f.points[name][p.ID] = p
	}
	return nil
}

func (f *fakeStore) AggregateByField(_ context.Context, name, field string) (map[string]int64, error) {
	histogram := map[string]int64{}
	for _, p := range f.points[name] {
		if v, ok := p.Payload[field]; ok {
			key := toKey(v)
			histogram[key]++
		}
	}
	return histogram, nil
}

func toKey(v any) string {
	switch val := v.(type) {
	case bool:
		if val {
			return "true"
		}
		return "false"
	case string:
		return val
	default:
		return ""
	}
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

type noopCache struct{ cache.Cache }

func (noopCache) GetEmbedding(_ context.Context, _, _, _ string) ([]float32, cache.Level, error) {
	return nil, cache.LevelMiss, nil
}
func (noopCache) SetEmbedding(_ context.Context, _, _, _ string, _ []float32) error { return nil }
func (noopCache) SetEmbeddingSingleLevel(_ context.Context, _ string, _ []float32) error {
	return nil
}

func TestPatternsRecordAndAggregate(t *testing.T) {
	store := newFakeStore()
	e := embedder.New(fakeProvider{}, noopCache{})
	p := NewPatterns(store, e)

	require.NoError(t, p.Record(context.Background(), types.ToolUsage{ProjectName: "proj", ToolName: "search_codebase", Success: true}))
	require.NoError(t, p.Record(context.Background(), types.ToolUsage{ProjectName: "proj", ToolName: "search_codebase", Success: false}))
	require.NoError(t, p.Record(context.Background(), types.ToolUsage{ProjectName: "proj", ToolName: "ask_codebase", Success: true}))

	summary, err := p.Aggregate(context.Background(), "proj")
	require.NoError(t, err)
	assert.Equal(t, int64(3), summary.TotalInvocations)
	assert.Equal(t, int64(2), summary.ByTool["search_codebase"])
	assert.InDelta(t, 2.0/3.0, summary.SuccessRate, 0.001)
}

func TestFactExtractorRoutesThroughGovernance(t *testing.T) {
	store := newFakeStore()
	e := embedder.New(fakeProvider{}, noopCache{})
	gov := memory.New(store, e, noopCache{}, nil)
	fe := NewFactExtractor(gov)

	result, err := fe.Extract(context.Background(), Observation{
		Project:    "proj",
		Content:    "Noticed repeated calls to computeTotal(order) in BillingService.go",
		Source:     types.SourceAutoPattern,
		Confidence: 0.9,
	})
	require.NoError(t, err)
	assert.False(t, result.Skipped)
}

func TestFactExtractorRejectsUnsupportedSource(t *testing.T) {
	store := newFakeStore()
	e := embedder.New(fakeProvider{}, noopCache{})
	gov := memory.New(store, e, noopCache{}, nil)
	fe := NewFactExtractor(gov)

	_, err := fe.Extract(context.Background(), Observation{Project: "proj", Content: "x", Source: types.SourceManual})
	require.Error(t, err)
}
