package sessioncore

import (
	"context"
	"testing"
	"time"

	"ragmemory/internal/cache"
	"ragmemory/internal/embedder"
	"ragmemory/internal/memory"
	"ragmemory/internal/usage"
	"ragmemory/internal/vectorstore"
	"ragmemory/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

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

func (f *fakeStore) Delete(_ context.Context, name string, ids []string) error {
	for _, id := range ids {
		delete(f.points[name], id)
	}
	return nil
}

func (f *fakeStore) Scroll(_ context.Context, name string, filter *vectorstore.Filter, limit int, _ string) (*vectorstore.ScrollPage, error) {
	var out []vectorstore.Point
	for _, p := range f.points[name] {
		if matchesFilter(filter, p.Payload) {
			out = append(out, p)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return &vectorstore.ScrollPage{Points: out}, nil
}

func (f *fakeStore) AggregateByField(_ context.Context, name, field string) (map[string]int64, error) {
	histogram := map[string]int64{}
	for _, p := range f.points[name] {
		if v, ok := p.Payload[field]; ok {
			if s, ok := v.(string); ok {
				histogram[s]++
			}
		}
	}
	return histogram, nil
}

func (f *fakeStore) Search(_ context.Context, name string, _ []float32, limit int, filter *vectorstore.Filter, _ float32) ([]vectorstore.SearchResult, error) {
	var out []vectorstore.SearchResult
	for _, p := range f.points[name] {
		if matchesFilter(filter, p.Payload) {
			out = append(out, vectorstore.SearchResult{ID: p.ID, Score: 0.9, Payload: p.Payload})
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) Recommend(_ context.Context, name string, positiveIDs, _ []string, limit int) ([]vectorstore.SearchResult, error) {
	var out []vectorstore.SearchResult
	for id, p := range f.points[name] {
		isSeed := false
		for _, s := range positiveIDs {
			if s == id {
				isSeed = true
			}
		}
		if isSeed {
			continue
		}
		out = append(out, vectorstore.SearchResult{ID: id, Score: 0.95, Payload: p.Payload})
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func matchesFilter(filter *vectorstore.Filter, payload map[string]any) bool {
	if filter == nil {
		return true
	}
	for _, c := range filter.Must {
		v, ok := payload[c.Field]
		if !ok {
			return false
		}
		s, _ := v.(string)
		if c.MatchOne != "" && s != c.MatchOne {
			return false
		}
		if len(c.MatchAny) > 0 {
			found := false
			for _, m := range c.MatchAny {
				if m == s {
					found = true
				}
			}
			if !found {
				return false
			}
		}
	}
	return true
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
	contexts map[string][]byte
}

func newMemCache() *memCache { return &memCache{contexts: map[string][]byte{}} }

func (c *memCache) GetEmbedding(_ context.Context, _, _, _ string) ([]float32, cache.Level, error) {
	return nil, cache.LevelMiss, nil
}
func (c *memCache) SetEmbedding(_ context.Context, _, _, _ string, _ []float32) error { return nil }
func (c *memCache) SetEmbeddingSingleLevel(_ context.Context, _ string, _ []float32) error {
	return nil
}
func (c *memCache) GetSessionContext(_ context.Context, sessionID string) ([]byte, bool, error) {
	v, ok := c.contexts[sessionID]
	return v, ok, nil
}
func (c *memCache) SetSessionContext(_ context.Context, sessionID string, value []byte) error {
	c.contexts[sessionID] = value
	return nil
}
func (c *memCache) ClearSession(_ context.Context, sessionID string) error {
	delete(c.contexts, sessionID)
	return nil
}

func newManager(store *fakeStore) (*Manager, *memory.Governance) {
	e := embedder.New(fakeProvider{}, newMemCache())
	gov := memory.New(store, e, newMemCache(), nil)
	patterns := usage.NewPatterns(store, e)
	return New(store, newMemCache(), e, gov, patterns, nil, nil), gov
}

func TestStartSessionPersistsAndCaches(t *testing.T) {
	store := newFakeStore()
	m, _ := newManager(store)

	result, err := m.StartSession(context.Background(), StartOptions{Project: "proj", SkipAutoMerge: true})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Session.SessionID)
	assert.Equal(t, types.SessionActive, result.Session.Status)

	_, err = m.Get("proj", result.Session.SessionID)
	require.NoError(t, err)
}

func TestStartSessionReapsStaleSessions(t *testing.T) {
	store := newFakeStore()
	m, _ := newManager(store)

	collection := collectionFor("proj")
	store.EnsureCollection(context.Background(), collection)
	stale := &types.Session{
		SessionID:      "old-session",
		ProjectName:    "proj",
		StartedAt:      time.Now().Add(-3 * time.Hour),
		LastActivityAt: time.Now().Add(-3 * time.Hour),
		Status:         types.SessionActive,
	}
	require.NoError(t, m.persist(context.Background(), stale))

	_, err := m.StartSession(context.Background(), StartOptions{Project: "proj", SkipAutoMerge: true})
	require.NoError(t, err)

	page, err := store.Scroll(context.Background(), collection, &vectorstore.Filter{Must: []vectorstore.Condition{{Field: "session_id", MatchOne: "old-session"}}}, 1, "")
	require.NoError(t, err)
	require.Len(t, page.Points, 1)
	reaped := payloadToSession(page.Points[0].Payload)
	assert.Equal(t, types.SessionEnded, reaped.Status)
	assert.Equal(t, "stale_cleanup", reaped.Metadata["endReason"])
}

func TestStartSessionResumesWithinWindow(t *testing.T) {
	store := newFakeStore()
	m, _ := newManager(store)

	collection := collectionFor("proj")
	store.EnsureCollection(context.Background(), collection)
	prior := &types.Session{
		SessionID:      "prior-session",
		ProjectName:    "proj",
		StartedAt:      time.Now().Add(-1 * time.Hour),
		LastActivityAt: time.Now().Add(-1 * time.Hour),
		Status:         types.SessionEnded,
		CurrentFiles:   []string{"main.go"},
		RecentQueries:  []string{"q1", "q2", "q3", "q4", "q5", "q6"},
		ActiveFeatures: []string{"auth"},
	}
	require.NoError(t, m.persist(context.Background(), prior))

	result, err := m.StartSession(context.Background(), StartOptions{Project: "proj", SkipAutoMerge: true})
	require.NoError(t, err)
	assert.Contains(t, result.Session.CurrentFiles, "main.go")
	assert.Len(t, result.Session.RecentQueries, 5)
	assert.Equal(t, "prior-session", result.Session.Metadata["resumedFrom"])
}

func TestStartSessionExtractsInitialContext(t *testing.T) {
	store := newFakeStore()
	m, _ := newManager(store)

	result, err := m.StartSession(context.Background(), StartOptions{
		Project:        "proj",
		SkipAutoMerge:  true,
		InitialContext: "Editing UserService.go to add a QuoteBuilder",
	})
	require.NoError(t, err)
	assert.Contains(t, result.Session.CurrentFiles, "UserService.go")
	assert.Contains(t, result.Session.ActiveFeatures, "QuoteBuilder")
}

func TestAddActivityBoundsAndPersists(t *testing.T) {
	store := newFakeStore()
	m, _ := newManager(store)

	result, err := m.StartSession(context.Background(), StartOptions{Project: "proj", SkipAutoMerge: true})
	require.NoError(t, err)
	sid := result.Session.SessionID

	for i := 0; i < 25; i++ {
		require.NoError(t, m.AddActivity(context.Background(), "proj", sid, ActivityFile, "file"+string(rune('a'+i%20))+".go"))
	}
	s, err := m.Get("proj", sid)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(s.CurrentFiles), 20)
}

func TestEndSessionAutoSavesLearnings(t *testing.T) {
	store := newFakeStore()
	m, _ := newManager(store)

	result, err := m.StartSession(context.Background(), StartOptions{Project: "proj", SkipAutoMerge: true})
	require.NoError(t, err)
	sid := result.Session.SessionID

	require.NoError(t, m.AddActivity(context.Background(), "proj", sid, ActivityLearning, "caching reduces latency"))
	require.NoError(t, m.AddActivity(context.Background(), "proj", sid, ActivityDecision, "use redis for L1 cache"))

	ended, err := m.EndSession(context.Background(), "proj", sid, EndOptions{AutoSaveLearnings: true})
	require.NoError(t, err)
	assert.Equal(t, types.SessionEnded, ended.Status)

	durable := types.CollectionName("proj", types.SuffixAgentMemory)
	assert.Len(t, store.points[durable], 2)
}

func TestAutoMergeRunsAtMostOncePerHour(t *testing.T) {
	store := newFakeStore()
	m, _ := newManager(store)

	assert.True(t, m.claimMergeSlot("proj"))
	assert.False(t, m.claimMergeSlot("proj"))
}

func TestMaybeAutoMergeMergesCluster(t *testing.T) {
	store := newFakeStore()
	m, _ := newManager(store)

	collection := types.CollectionName("proj", types.SuffixAgentMemory)
	store.EnsureCollection(context.Background(), collection)
	for i := 0; i < 3; i++ {
		mem, err := types.NewMemory("note about caching", types.MemoryTypeInsight, types.SourceManual)
		require.NoError(t, err)
		store.points[collection][mem.ID] = vectorstore.Point{ID: mem.ID, Vector: []float32{1, 1}, Payload: memory.ToPayload(mem)}
	}

	m.maybeAutoMerge(context.Background(), "proj")
	assert.LessOrEqual(t, len(store.points[collection]), 3)
}
