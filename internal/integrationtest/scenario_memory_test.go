package integrationtest

import (
	"context"
	"testing"

	"ragmemory/internal/embedder"
	"ragmemory/internal/memory"
	"ragmemory/internal/vectorstore"
	"ragmemory/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGovernance() (*memory.Governance, *fakeStore) {
	store := newFakeStore()
	e := embedder.New(fakeProvider{}, newFakeCache())
	return memory.New(store, e, newFakeCache(), nil), store
}

// TestScenarioS1ColdIngestThenPromote covers spec.md §8 scenario S1: a
// manual memory lands straight in durable storage; a confident auto_pattern
// memory lands in quarantine; promoting it moves it into durable storage
// under a fresh id and empties quarantine.
func TestScenarioS1ColdIngestThenPromote(t *testing.T) {
	ctx := context.Background()
	g, store := newGovernance()
	const project = "p"

	manual, err := types.NewMemory("use cosine distance", types.MemoryTypeDecision, types.SourceManual)
	require.NoError(t, err)
	res, err := g.Ingest(ctx, project, manual)
	require.NoError(t, err)
	assert.False(t, res.Skipped)

	durable := types.CollectionName(project, types.SuffixAgentMemory)
	quarantine := types.CollectionName(project, types.SuffixMemoryPending)
	assert.Equal(t, 1, store.count(durable), "manual memory must land directly in durable storage")
	assert.Equal(t, 0, store.count(quarantine))

	conf := 0.9
	auto, err := types.NewMemory("retry with backoff", types.MemoryTypeInsight, types.SourceAutoPattern)
	require.NoError(t, err)
	auto.Confidence = &conf
	res, err = g.Ingest(ctx, project, auto)
	require.NoError(t, err)
	assert.False(t, res.Skipped, "confidence 0.9 is above the cold-start threshold")
	assert.NotEmpty(t, auto.ID)

	assert.Equal(t, 1, store.count(durable))
	assert.Equal(t, 1, store.count(quarantine), "above-threshold auto memory goes to quarantine, not durable")

	promoted, err := g.Promote(ctx, project, auto.ID, "human_validated", "", memory.PromoteOptions{})
	require.NoError(t, err)
	assert.NotEqual(t, auto.ID, promoted.ID, "promotion mints a fresh id")
	assert.True(t, promoted.Validated)

	assert.Equal(t, 0, store.count(quarantine), "quarantine empties once its only entry is promoted")
	assert.Equal(t, 2, store.count(durable), "durable now holds the manual memory plus the promoted one")
}

// TestScenarioS2BelowThresholdDrop covers spec.md §8 scenario S2: with a
// large pre-existing quarantine backlog the adaptive threshold rises, and a
// low-confidence auto memory is dropped without touching either collection.
func TestScenarioS2BelowThresholdDrop(t *testing.T) {
	ctx := context.Background()
	g, store := newGovernance()
	const project = "p"

	quarantine := types.CollectionName(project, types.SuffixMemoryPending)
	durable := types.CollectionName(project, types.SuffixAgentMemory)
	require.NoError(t, store.EnsureCollection(ctx, quarantine))
	for i := 0; i < 10; i++ {
		m, err := types.NewMemory("pre-existing pending entry", types.MemoryTypeInsight, types.SourceAutoPattern)
		require.NoError(t, err)
		point := vectorstore.Point{ID: m.ID, Payload: map[string]any{"source": string(types.SourceAutoPattern)}}
		require.NoError(t, store.Upsert(ctx, quarantine, []vectorstore.Point{point}))
	}

	require.Equal(t, 10, store.count(quarantine))
	require.Equal(t, 0, store.count(durable))

	conf := 0.3
	low, err := types.NewMemory("below threshold observation", types.MemoryTypeInsight, types.SourceAutoConversation)
	require.NoError(t, err)
	low.Confidence = &conf

	res, err := g.Ingest(ctx, project, low)
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, "below_threshold", res.Reason)

	assert.Equal(t, 10, store.count(quarantine), "quarantine must be unchanged")
	assert.Equal(t, 0, store.count(durable), "durable must be unchanged")
}
