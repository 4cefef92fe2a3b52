package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"ragmemory/internal/cache"
	"ragmemory/internal/config"
	"ragmemory/internal/embedder"
	"ragmemory/internal/errtypes"
	"ragmemory/internal/vectorstore"
	"ragmemory/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory vectorstore.Store fake scoped to what the
// indexer exercises: EnsureCollection, Upsert, DeleteByFilter.
type fakeStore struct {
	vectorstore.Store

	mu          sync.Mutex
	collections map[string]bool
	points      map[string][]vectorstore.Point
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		collections: map[string]bool{},
		points:      map[string][]vectorstore.Point{},
	}
}

func (f *fakeStore) EnsureCollection(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.collections[name] = true
	return nil
}

func (f *fakeStore) Upsert(_ context.Context, name string, points []vectorstore.Point) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.points[name] = append(f.points[name], points...)
	return nil
}

func (f *fakeStore) DeleteByFilter(_ context.Context, name string, filter *vectorstore.Filter) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if filter == nil || len(filter.Must) == 0 {
		f.points[name] = nil
		return nil
	}
	var kept []vectorstore.Point
	for _, p := range f.points[name] {
		match := true
		for _, cond := range filter.Must {
			if cond.Field == "file" && p.Payload["file"] != cond.MatchOne {
				match = false
			}
		}
		if !match {
			kept = append(kept, p)
		}
	}
	f.points[name] = kept
	return nil
}

func (f *fakeStore) filesIndexed(name string) map[string]int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string]int{}
	for _, p := range f.points[name] {
		out[p.Payload["file"].(string)]++
	}
	return out
}

// fakeProvider is a deterministic embedding provider.
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

// fakeCache is a minimal in-memory Cache fake covering file-index persistence
// and search-cache invalidation tracking; embedding lookups always miss.
type fakeCache struct {
	mu          sync.Mutex
	fileIndexes map[string]types.FileHashIndex
	invalidated []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{fileIndexes: map[string]types.FileHashIndex{}}
}

func (f *fakeCache) GetEmbedding(_ context.Context, _, _, _ string) ([]float32, cache.Level, error) {
	return nil, cache.LevelMiss, nil
}
func (f *fakeCache) SetEmbedding(_ context.Context, _, _, _ string, _ []float32) error { return nil }
func (f *fakeCache) SetEmbeddingSingleLevel(_ context.Context, _ string, _ []float32) error {
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

func (f *fakeCache) GetFileIndex(_ context.Context, project string) (types.FileHashIndex, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx, ok := f.fileIndexes[project]
	return idx, ok, nil
}

func (f *fakeCache) SetFileIndex(_ context.Context, project string, index types.FileHashIndex) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fileIndexes[project] = index
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
func (f *fakeCache) ClearSession(_ context.Context, _ string) error { return nil }

func (f *fakeCache) InvalidateCollectionSearch(_ context.Context, collection string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated = append(f.invalidated, collection)
	return nil
}

func (f *fakeCache) HealthCheck(_ context.Context) error { return nil }
func (f *fakeCache) Close() error                        { return nil }

func testConfig() config.ChunkingConfig {
	return config.ChunkingConfig{
		MinContentLength: 1,
		MaxContentLength: 1000,
		FileBatchSize:    20,
		EmbedBatchSize:   100,
	}
}

func writeProjectFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func newIndexer(store *fakeStore, c *fakeCache) *Indexer {
	e := embedder.New(fakeProvider{}, c)
	return New(store, e, c, testConfig())
}

func TestIndexIncrementalHashDiff(t *testing.T) {
	root := t.TempDir()
	writeProjectFile(t, root, "a.go", "package a\n\nfunc Foo() {}\n")
	writeProjectFile(t, root, "b.go", "package a\n\nfunc Bar() {}\n")

	store := newFakeStore()
	c := newFakeCache()
	ix := newIndexer(store, c)

	require.NoError(t, ix.Index(context.Background(), "proj", root, false))
	collection := types.CollectionName("proj", types.SuffixCodebase)
	first := store.filesIndexed(collection)
	assert.Contains(t, first, "a.go")
	assert.Contains(t, first, "b.go")
	assert.Contains(t, c.invalidated, collection)

	// Re-index unchanged: nothing new should be written.
	store.points[collection] = nil // simulate nothing re-upserted if unchanged
	require.NoError(t, ix.Index(context.Background(), "proj", root, false))
	assert.Empty(t, store.filesIndexed(collection), "unchanged files should not be re-embedded/upserted")

	// Modify a.go: only it should be re-indexed.
	writeProjectFile(t, root, "a.go", "package a\n\nfunc Foo() { return }\n")
	require.NoError(t, ix.Index(context.Background(), "proj", root, false))
	assert.Contains(t, store.filesIndexed(collection), "a.go")
	assert.NotContains(t, store.filesIndexed(collection), "b.go")
}

func TestIndexForceClearsHashIndex(t *testing.T) {
	root := t.TempDir()
	writeProjectFile(t, root, "a.go", "package a\n")

	store := newFakeStore()
	c := newFakeCache()
	ix := newIndexer(store, c)

	require.NoError(t, ix.Index(context.Background(), "proj", root, false))
	collection := types.CollectionName("proj", types.SuffixCodebase)
	require.Contains(t, store.filesIndexed(collection), "a.go")

	store.points[collection] = nil
	require.NoError(t, ix.Index(context.Background(), "proj", root, true))
	assert.Contains(t, store.filesIndexed(collection), "a.go", "force=true must re-embed every file")
}

func TestIndexReconcilesDeletedFiles(t *testing.T) {
	root := t.TempDir()
	writeProjectFile(t, root, "a.go", "package a\n")
	writeProjectFile(t, root, "b.go", "package a\n")

	store := newFakeStore()
	c := newFakeCache()
	ix := newIndexer(store, c)

	require.NoError(t, ix.Index(context.Background(), "proj", root, false))
	collection := types.CollectionName("proj", types.SuffixCodebase)
	require.Contains(t, store.filesIndexed(collection), "b.go")

	require.NoError(t, os.Remove(filepath.Join(root, "b.go")))
	require.NoError(t, ix.Index(context.Background(), "proj", root, false))

	assert.NotContains(t, store.filesIndexed(collection), "b.go", "removed file's chunks must be deleted")
	idx, ok, err := c.GetFileIndex(context.Background(), "proj")
	require.NoError(t, err)
	require.True(t, ok)
	_, stillTracked := idx["b.go"]
	assert.False(t, stillTracked, "removed file must drop out of the persisted hash index")
}

func TestIndexRespectsFileBatchSize(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 45; i++ {
		writeProjectFile(t, root, filepath.Join("pkg", "f"+string(rune('a'+i%26))+".go"), "package pkg\n")
	}

	store := newFakeStore()
	c := newFakeCache()
	cfg := testConfig()
	cfg.FileBatchSize = 10
	e := embedder.New(fakeProvider{}, c)
	ix := New(store, e, c, cfg)

	require.NoError(t, ix.Index(context.Background(), "proj", root, false))
	collection := types.CollectionName("proj", types.SuffixCodebase)
	p := ix.Progress("proj")
	assert.Equal(t, StatusCompleted, p.Status)
	assert.Equal(t, p.TotalFiles, p.Processed)
	assert.NotEmpty(t, store.filesIndexed(collection))
}

func TestIndexGuardsAgainstConcurrentRuns(t *testing.T) {
	root := t.TempDir()
	writeProjectFile(t, root, "a.go", "package a\n")

	store := newFakeStore()
	c := newFakeCache()
	ix := newIndexer(store, c)

	require.True(t, ix.tryStart("proj"))
	err := ix.Index(context.Background(), "proj", root, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errtypes.ErrAlreadyIndexing))
	ix.finish("proj", nil)
}

func TestPackContentDropsShortFragmentsAndRespectsBoundary(t *testing.T) {
	content := "a\nbb\n" + stringsRepeat("x", 1200) + "\nshort\n"
	pieces := packContent(content, 1000, 3)
	require.NotEmpty(t, pieces)
	long := stringsRepeat("x", 1200)
	assert.Contains(t, pieces, long, "a single line longer than maxChars stays whole")
	for _, p := range pieces {
		if p != long {
			assert.LessOrEqual(t, len(p), 1000)
		}
	}
	for _, p := range pieces {
		assert.NotEqual(t, "a", p)
	}
}

func stringsRepeat(s string, n int) string {
	out := make([]byte, 0, len(s)*n)
	for i := 0; i < n; i++ {
		out = append(out, s...)
	}
	return string(out)
}
