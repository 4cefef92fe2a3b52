package integrationtest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"ragmemory/internal/config"
	"ragmemory/internal/embedder"
	"ragmemory/internal/indexer"
	"ragmemory/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chunkingConfig() config.ChunkingConfig {
	return config.ChunkingConfig{
		MinContentLength: 1,
		MaxContentLength: 1000,
		FileBatchSize:    20,
		EmbedBatchSize:   100,
	}
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

// TestScenarioS3IncrementalReindex covers spec.md §8 scenario S3: indexing
// a.ts and b.ts produces chunks for both and a two-entry hash index;
// modifying a.ts and deleting b.ts then reconciles the index down to one
// entry, replacing a.ts's chunks and removing b.ts's entirely.
func TestScenarioS3IncrementalReindex(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	writeFile(t, root, "a.ts", "export function foo() { return 1; }\n")
	writeFile(t, root, "b.ts", "export function bar() { return 2; }\n")

	store := newFakeStore()
	c := newFakeCache()
	e := embedder.New(fakeProvider{}, c)
	ix := indexer.New(store, e, c, chunkingConfig())

	require.NoError(t, ix.Index(ctx, "proj", root, false))
	collection := types.CollectionName("proj", types.SuffixCodebase)

	idx, ok, err := c.GetFileIndex(ctx, "proj")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, idx, 2)
	_, hasA := idx["a.ts"]
	_, hasB := idx["b.ts"]
	assert.True(t, hasA)
	assert.True(t, hasB)

	filesOf := func() map[string]int {
		out := map[string]int{}
		for _, p := range store.points[collection] {
			out[p.Payload["file"].(string)]++
		}
		return out
	}
	before := filesOf()
	assert.NotZero(t, before["a.ts"])
	assert.NotZero(t, before["b.ts"])

	writeFile(t, root, "a.ts", "export function foo() { return 99; }\n")
	require.NoError(t, os.Remove(filepath.Join(root, "b.ts")))
	oldAHash := idx["a.ts"].Hash

	require.NoError(t, ix.Index(ctx, "proj", root, false))

	after := filesOf()
	assert.NotZero(t, after["a.ts"], "modified file must still have chunks")
	assert.Zero(t, after["b.ts"], "deleted file's chunks must be gone")

	idx2, ok, err := c.GetFileIndex(ctx, "proj")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, idx2, 1, "hash index must drop the deleted file")
	_, stillHasB := idx2["b.ts"]
	assert.False(t, stillHasB)
	require.Contains(t, idx2, "a.ts")
	assert.NotEqual(t, oldAHash, idx2["a.ts"].Hash, "modified file's hash must be updated")
}
