package integrationtest

import (
	"context"
	"testing"
	"time"

	"ragmemory/internal/embedder"
	"ragmemory/internal/sessioncore"
	"ragmemory/internal/vectorstore"
	"ragmemory/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScenarioS5SessionResumeAndReaper covers spec.md §8 scenario S5: an
// active session idle past the 2h staleness window gets reaped to ended (with
// reap metadata) the moment a new session starts for the same project, and
// the new session resumes the stale one's carried-forward state.
func TestScenarioS5SessionResumeAndReaper(t *testing.T) {
	ctx := context.Background()
	const project = "p"

	store := newFakeStore()
	c := newFakeCache()
	e := embedder.New(fakeProvider{}, c)
	mgr := sessioncore.New(store, c, e, nil, nil, nil, nil)

	collection := types.CollectionName(project, types.SuffixSessions)
	require.NoError(t, store.EnsureCollection(ctx, collection))

	staleStart := time.Now().UTC().Add(-3 * time.Hour)
	stalePayload := map[string]any{
		"session_id":       "s1",
		"project_name":     project,
		"started_at":       staleStart.Format(time.RFC3339),
		"last_activity_at": staleStart.Format(time.RFC3339),
		"status":           string(types.SessionActive),
		"current_files":    []string{"auth.go"},
	}
	require.NoError(t, store.Upsert(ctx, collection, []vectorstore.Point{{ID: "s1", Payload: stalePayload}}))

	result, err := mgr.StartSession(ctx, sessioncore.StartOptions{Project: project, SkipAutoMerge: true})
	require.NoError(t, err)

	page, err := store.Scroll(ctx, collection, &vectorstore.Filter{Must: []vectorstore.Condition{{Field: "session_id", MatchOne: "s1"}}}, 1, "")
	require.NoError(t, err)
	require.Len(t, page.Points, 1)
	reaped := page.Points[0].Payload
	assert.Equal(t, string(types.SessionEnded), reaped["status"], "s1 must be reaped to ended")
	assert.Contains(t, reaped["metadata_json"], "stale_cleanup")

	assert.Equal(t, "s1", result.Session.Metadata["resumedFrom"])
	assert.Contains(t, result.Session.CurrentFiles, "auth.go", "s2 must carry forward s1's current files")
}
