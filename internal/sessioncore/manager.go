// Package sessioncore implements SessionContext (spec.md §4.6): session
// lifecycle (start/resume/reap), bounded activity tracking, end-of-session
// learning capture, and the fire-and-forget prefetch/auto-merge background
// tasks a session kicks off.
//
// Grounded on internal/session/manager.go's Manager/SessionInfo shape (kept:
// the mutex-guarded map-of-sessions pattern, constructor, sync.RWMutex
// usage); the teacher's access-level semantics are replaced entirely by
// spec.md §4.6's lifecycle.
package sessioncore

import (
	"context"
	"sync"
	"time"

	"ragmemory/internal/cache"
	"ragmemory/internal/decay"
	"ragmemory/internal/embedder"
	"ragmemory/internal/errtypes"
	"ragmemory/internal/logging"
	"ragmemory/internal/memory"
	"ragmemory/internal/usage"
	"ragmemory/internal/vectorstore"
	"ragmemory/pkg/types"

	"github.com/google/uuid"
)

const (
	staleWindow       = 2 * time.Hour
	resumeWindow      = 24 * time.Hour
	briefingMinScore  = 0.6
	autoMergeInterval = 1 * time.Hour
)

// SessionSnapshot is the read-only activity view PredictiveLoader (and any
// other downward collaborator) consumes to generate predictions, defined
// here rather than in internal/predictor to avoid a circular import:
// sessioncore never imports predictor, predictor imports sessioncore's
// snapshot type only.
type SessionSnapshot struct {
	Project        string
	SessionID      string
	CurrentFiles   []string
	RecentQueries  []string
	ToolsUsed      []string
	ActiveFeatures []string
}

// Prefetcher is the narrow PredictiveLoader collaborator SessionContext
// fires in the background on session start and on every activity update.
type Prefetcher interface {
	Prefetch(ctx context.Context, snap SessionSnapshot)
}

// Manager owns every active Session in memory and is the sole mutator of
// session state; all reads/writes go through it so bounded-slice semantics
// and cache/persistence stay consistent. Safe for concurrent use.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*types.Session // key: project + "/" + sessionID

	store      vectorstore.Store
	cache      cache.Cache
	embed      *embedder.Embedder
	governance *memory.Governance
	patterns   *usage.Patterns
	prefetch   Prefetcher // nil disables background prefetch
	summarizer decay.Summarizer

	mergeMu      sync.Mutex
	lastMergeRun map[string]time.Time
}

// New constructs a Manager. prefetch may be nil (prefetch becomes a no-op);
// summarizer may be nil, in which case New builds a rule-based
// decay.DefaultSummarizer (no LLM collaborator configured).
func New(store vectorstore.Store, c cache.Cache, embed *embedder.Embedder, governance *memory.Governance, patterns *usage.Patterns, prefetch Prefetcher, summarizer decay.Summarizer) *Manager {
	if summarizer == nil {
		summarizer = decay.NewDefaultSummarizer()
	}
	return &Manager{
		sessions:     make(map[string]*types.Session),
		store:        store,
		cache:        c,
		embed:        embed,
		governance:   governance,
		patterns:     patterns,
		prefetch:     prefetch,
		summarizer:   summarizer,
		lastMergeRun: make(map[string]time.Time),
	}
}

func sessionKey(project, sessionID string) string { return project + "/" + sessionID }

func collectionFor(project string) string {
	return types.CollectionName(project, types.SuffixSessions)
}

func (m *Manager) sessionPoint(ctx context.Context, s *types.Session) (vectorstore.Point, error) {
	text := s.ProjectName
	if len(s.CurrentFiles) > 0 {
		text += " " + joinStrings(s.CurrentFiles)
	}
	if len(s.RecentQueries) > 0 {
		text += " " + joinStrings(s.RecentQueries)
	}
	vec, err := m.embed.Embed(ctx, text, embedder.Options{SessionID: s.SessionID, ProjectName: s.ProjectName})
	if err != nil {
		return vectorstore.Point{}, err
	}
	return vectorstore.Point{ID: s.SessionID, Vector: vec, Payload: sessionToPayload(s)}, nil
}

func joinStrings(items []string) string {
	out := ""
	for i, s := range items {
		if i > 0 {
			out += " "
		}
		out += s
	}
	return out
}

// persist upserts session into the project's sessions collection.
func (m *Manager) persist(ctx context.Context, s *types.Session) error {
	collection := collectionFor(s.ProjectName)
	if err := m.store.EnsureCollection(ctx, collection); err != nil {
		return err
	}
	point, err := m.sessionPoint(ctx, s)
	if err != nil {
		return err
	}
	return m.store.Upsert(ctx, collection, []vectorstore.Point{point})
}

// cacheContext writes s under sess:<sessionID>:context (1h TTL, spec.md §4.6
// step 5). The key carries the session ID only, not the project name.
// Best-effort: a cache outage never blocks session start/activity.
func (m *Manager) cacheContext(ctx context.Context, s *types.Session) {
	raw, err := encodeSession(s)
	if err != nil {
		logging.WarnContext(ctx, "sessioncore: encode session for cache failed", "session", s.SessionID, "error", err)
		return
	}
	if err := m.cache.SetSessionContext(ctx, s.SessionID, raw); err != nil {
		logging.WarnContext(ctx, "sessioncore: cache session context failed", "session", s.SessionID, "error", err)
	}
}

// Get returns the in-memory session, preferring the live map over the
// cache/store so concurrent activity on the same process is always seen.
func (m *Manager) Get(project, sessionID string) (*types.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionKey(project, sessionID)]
	if !ok {
		return nil, errtypes.ErrSessionNotFound
	}
	return s, nil
}

func newSessionID() string { return uuid.New().String() }
