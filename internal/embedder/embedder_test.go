package embedder

import (
	"context"
	"errors"
	"testing"

	"ragmemory/internal/cache"
	"ragmemory/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	batchErr  error
	dimension int
	calls     int
	batches   int
}

func (f *fakeProvider) GenerateEmbedding(_ context.Context, text string) ([]float64, error) {
	f.calls++
	return []float64{float64(len(text)), 1, 2}, nil
}

func (f *fakeProvider) GenerateBatchEmbeddings(_ context.Context, texts []string) ([][]float64, error) {
	f.batches++
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	out := make([][]float64, len(texts))
	for i, t := range texts {
		out[i] = []float64{float64(len(t)), 1, 2}
	}
	return out, nil
}

func (f *fakeProvider) GetDimension() int { return 3 }
func (f *fakeProvider) GetModel() string  { return "fake-model" }
func (f *fakeProvider) HealthCheck(_ context.Context) error { return nil }

// fakeCache is a minimal in-memory Cache fake scoped to embedding lookups.
type fakeCache struct {
	session map[string][]float32
	project map[string][]float32
	global  map[string][]float32
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		session: map[string][]float32{},
		project: map[string][]float32{},
		global:  map[string][]float32{},
	}
}

func (f *fakeCache) GetEmbedding(_ context.Context, sessionID, projectName, text string) ([]float32, cache.Level, error) {
	if sessionID != "" {
		if v, ok := f.session[sessionID+"|"+text]; ok {
			return v, cache.LevelSession, nil
		}
	}
	if projectName != "" {
		if v, ok := f.project[projectName+"|"+text]; ok {
			return v, cache.LevelProject, nil
		}
	}
	if v, ok := f.global[text]; ok {
		return v, cache.LevelGlobal, nil
	}
	return nil, cache.LevelMiss, nil
}

func (f *fakeCache) SetEmbedding(_ context.Context, sessionID, projectName, text string, vector []float32) error {
	if sessionID != "" {
		f.session[sessionID+"|"+text] = vector
	}
	if projectName != "" {
		f.project[projectName+"|"+text] = vector
	}
	f.global[text] = vector
	return nil
}

func (f *fakeCache) SetEmbeddingSingleLevel(_ context.Context, text string, vector []float32) error {
	f.global[text] = vector
	return nil
}

func (f *fakeCache) GetSearch(_ context.Context, _, _, _, _ string) ([]byte, cache.Level, error) {
	return nil, cache.LevelMiss, nil
}
func (f *fakeCache) SetSearch(_ context.Context, _, _, _, _ string, _ []byte) error { return nil }
func (f *fakeCache) GetCollectionInfo(_ context.Context, _ string) ([]byte, bool, error) {
	return nil, false, nil
}
func (f *fakeCache) SetCollectionInfo(_ context.Context, _ string, _ []byte) error { return nil }
func (f *fakeCache) GetFileIndex(_ context.Context, _ string) (types.FileHashIndex, bool, error) {
	return nil, false, nil
}
func (f *fakeCache) SetFileIndex(_ context.Context, _ string, _ types.FileHashIndex) error {
	return nil
}
func (f *fakeCache) GetSessionContext(_ context.Context, _ string) ([]byte, bool, error) {
	return nil, false, nil
}
func (f *fakeCache) SetSessionContext(_ context.Context, _ string, _ []byte) error { return nil }
func (f *fakeCache) GetStats(_ context.Context, _ string) (types.CacheStats, error) {
	return types.CacheStats{}, nil
}
func (f *fakeCache) IncrStat(_ context.Context, _, _ string) error { return nil }
func (f *fakeCache) WarmSession(_ context.Context, _, _ string, _ []string, _ string) {}
func (f *fakeCache) ClearSession(_ context.Context, _ string) error                  { return nil }
func (f *fakeCache) InvalidateCollectionSearch(_ context.Context, _ string) error     { return nil }
func (f *fakeCache) HealthCheck(_ context.Context) error                             { return nil }
func (f *fakeCache) Close() error                                                    { return nil }

func TestEmbedCachesAcrossLevels(t *testing.T) {
	provider := &fakeProvider{}
	c := newFakeCache()
	e := New(provider, c)

	opts := Options{SessionID: "sess1", ProjectName: "proj1"}
	v1, err := e.Embed(context.Background(), "hello", opts)
	require.NoError(t, err)
	assert.Equal(t, 1, provider.calls)

	v2, err := e.Embed(context.Background(), "hello", opts)
	require.NoError(t, err)
	assert.Equal(t, 1, provider.calls, "second call should hit cache, not provider")
	assert.Equal(t, v1, v2)
}

func TestEmbedSingleLevelFallback(t *testing.T) {
	provider := &fakeProvider{}
	c := newFakeCache()
	e := New(provider, c)

	_, err := e.Embed(context.Background(), "no session", Options{})
	require.NoError(t, err)
	assert.Contains(t, c.global, "no session")
}

func TestEmbedBatchUsesCachePerText(t *testing.T) {
	provider := &fakeProvider{}
	c := newFakeCache()
	e := New(provider, c)

	opts := Options{SessionID: "s", ProjectName: "p"}
	_, err := e.Embed(context.Background(), "cached", opts)
	require.NoError(t, err)
	provider.calls = 0

	results, err := e.EmbedBatch(context.Background(), []string{"cached", "fresh"}, opts)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 1, provider.batches)
}

func TestEmbedBatchFallsBackPerTextOnProviderFailure(t *testing.T) {
	provider := &fakeProvider{batchErr: errors.New("provider down")}
	c := newFakeCache()
	e := New(provider, c)

	opts := Options{SessionID: "s", ProjectName: "p"}
	results, err := e.EmbedBatch(context.Background(), []string{"a", "b", "c"}, opts)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for _, r := range results {
		assert.NotNil(t, r)
	}
}

func TestEmbedFullAlwaysEmptySparse(t *testing.T) {
	provider := &fakeProvider{}
	c := newFakeCache()
	e := New(provider, c)

	full, err := e.EmbedFull(context.Background(), "x", Options{})
	require.NoError(t, err)
	require.NotNil(t, full.Sparse)
	assert.Empty(t, full.Sparse.Indices)
	assert.Empty(t, full.Sparse.Values)
}
