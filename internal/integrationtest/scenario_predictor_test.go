package integrationtest

import (
	"context"
	"testing"

	"ragmemory/internal/cache"
	"ragmemory/internal/embedder"
	"ragmemory/internal/predictor"
	"ragmemory/internal/sessioncore"
	"ragmemory/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScenarioS6PrefetchWarmsCache covers spec.md §8 scenario S6: a session
// whose last two recent queries share tokens triggers the query_pattern
// strategy, and prefetch warms the session search cache so a later search
// for the shared terms is a cache hit.
func TestScenarioS6PrefetchWarmsCache(t *testing.T) {
	ctx := context.Background()
	const project = "proj"
	const sessionID = "sess-1"

	store := newFakeStore()
	c := newFakeCache()
	e := embedder.New(fakeProvider{}, c)
	loader := predictor.New(store, c, e)

	snap := sessioncore.SessionSnapshot{
		Project:       project,
		SessionID:     sessionID,
		RecentQueries: []string{"auth middleware", "auth middleware token"},
	}

	predictions := loader.Predict(ctx, snap)
	require.NotEmpty(t, predictions)
	var sawQueryPattern bool
	for _, p := range predictions {
		if p.Strategy == types.StrategyQueryPattern && p.Resource == "auth middleware" {
			sawQueryPattern = true
		}
	}
	assert.True(t, sawQueryPattern, "shared tokens between the last two queries must trigger a query_pattern prediction")

	loader.Prefetch(ctx, snap)

	collection := types.CollectionName(project, types.SuffixCodebase)
	_, lvl, err := c.GetSearch(ctx, sessionID, project, collection, "auth middleware")
	require.NoError(t, err)
	assert.NotEqual(t, cache.LevelMiss, lvl, "prefetch must warm the session search cache for the predicted query")
}
