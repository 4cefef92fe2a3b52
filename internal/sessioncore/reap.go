package sessioncore

import (
	"context"
	"time"

	"ragmemory/internal/logging"
	"ragmemory/internal/vectorstore"
	"ragmemory/pkg/types"
)

// reapStale marks every active session for project whose lastActivityAt is
// past the 2h staleness window as ended (spec.md §4.6 step 2). Best-effort:
// a scroll/persist failure is logged and the startup proceeds regardless.
func (m *Manager) reapStale(ctx context.Context, project string, now time.Time) {
	collection := collectionFor(project)
	filter := &vectorstore.Filter{Must: []vectorstore.Condition{{Field: "status", MatchOne: string(types.SessionActive)}}}
	page, err := m.store.Scroll(ctx, collection, filter, 500, "")
	if err != nil {
		logging.Warn("sessioncore: reap scroll failed", "project", project, "error", err)
		return
	}
	for _, p := range page.Points {
		s := payloadToSession(p.Payload)
		if !s.IsStale(now, staleWindow) {
			continue
		}
		s.Status = types.SessionEnded
		ended := now
		s.EndedAt = &ended
		if s.Metadata == nil {
			s.Metadata = map[string]interface{}{}
		}
		s.Metadata["endReason"] = "stale_cleanup"

		if err := m.persist(ctx, s); err != nil {
			logging.Warn("sessioncore: reap persist failed", "project", project, "session", s.SessionID, "error", err)
			continue
		}
		m.mu.Lock()
		delete(m.sessions, sessionKey(project, s.SessionID))
		m.mu.Unlock()
	}
}
