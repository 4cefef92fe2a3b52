package sessioncore

import (
	"context"
	"fmt"
	"time"

	"ragmemory/internal/errtypes"
	"ragmemory/internal/logging"
	"ragmemory/pkg/types"
)

// ActivityType enumerates the kinds of activity addActivity accepts.
type ActivityType string

const (
	ActivityFile     ActivityType = "file"
	ActivityQuery    ActivityType = "query"
	ActivityTool     ActivityType = "tool"
	ActivityFeature  ActivityType = "feature"
	ActivityLearning ActivityType = "learning"
	ActivityDecision ActivityType = "decision"
)

// AddActivity appends one activity event to the session's bounded slices
// (spec.md §4.6): currentFiles dedup+last-20, recentQueries last-50,
// toolsUsed is a set, pendingLearnings/decisions grow unbounded within a
// session. Every call triggers a background prefetch.
func (m *Manager) AddActivity(ctx context.Context, project, sessionID string, activityType ActivityType, value string) error {
	m.mu.Lock()
	s, ok := m.sessions[sessionKey(project, sessionID)]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("add activity: %w", errtypes.ErrSessionNotFound)
	}

	switch activityType {
	case ActivityFile:
		s.AddCurrentFile(value)
	case ActivityQuery:
		s.AddRecentQuery(value)
	case ActivityTool:
		s.AddToolUsed(value)
	case ActivityFeature:
		s.ActiveFeatures = mergeUnique(s.ActiveFeatures, []string{value})
	case ActivityLearning:
		s.PendingLearnings = append(s.PendingLearnings, value)
	case ActivityDecision:
		s.Decisions = append(s.Decisions, value)
	}
	s.LastActivityAt = time.Now().UTC()
	snapshot := snapshotOf(s)
	m.mu.Unlock()

	if err := m.persist(ctx, s); err != nil {
		logging.WarnContext(ctx, "sessioncore: activity persist failed", "project", project, "session", sessionID, "error", err)
	}
	m.cacheContext(ctx, s)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				logging.Warn("sessioncore: prefetch panic on activity", "project", project, "session", sessionID, "panic", r)
			}
		}()
		m.runPrefetch(logging.WithTraceID(context.Background(), logging.GetTraceID(ctx)), snapshot)
	}()

	return nil
}

// EndOptions configures endSession.
type EndOptions struct {
	AutoSaveLearnings bool
	Feedback          string
	Summary           string
}

// EndSession implements spec.md §4.6's endSession: best-effort learning
// capture, status transition, and session cache clearing.
func (m *Manager) EndSession(ctx context.Context, project, sessionID string, opts EndOptions) (*types.Session, error) {
	m.mu.Lock()
	s, ok := m.sessions[sessionKey(project, sessionID)]
	if !ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("end session: %w", errtypes.ErrSessionNotFound)
	}
	delete(m.sessions, sessionKey(project, sessionID))
	m.mu.Unlock()

	if opts.AutoSaveLearnings {
		m.saveLearnings(ctx, project, s)
	}

	now := time.Now().UTC()
	s.Status = types.SessionEnded
	s.EndedAt = &now
	if opts.Feedback != "" || opts.Summary != "" {
		if s.Metadata == nil {
			s.Metadata = map[string]interface{}{}
		}
		if opts.Feedback != "" {
			s.Metadata["feedback"] = opts.Feedback
		}
		if opts.Summary != "" {
			s.Metadata["summary"] = opts.Summary
		}
	}

	if err := m.persist(ctx, s); err != nil {
		logging.WarnContext(ctx, "sessioncore: end session persist failed", "project", project, "session", sessionID, "error", err)
	}
	if err := m.cache.ClearSession(ctx, sessionID); err != nil {
		logging.WarnContext(ctx, "sessioncore: end session cache clear failed", "session", sessionID, "error", err)
	}

	return s, nil
}

// saveLearnings pushes each pending learning through MemoryGovernance as an
// insight and each decision as a decision record, both source
// auto_conversation (spec.md §4.6's endSession). Best-effort: failures are
// logged, never propagated — ending a session must never fail because
// memory ingestion did.
func (m *Manager) saveLearnings(ctx context.Context, project string, s *types.Session) {
	for _, learning := range s.PendingLearnings {
		mem, err := types.NewMemory(learning, types.MemoryTypeInsight, types.SourceAutoConversation)
		if err != nil {
			logging.WarnContext(ctx, "sessioncore: build learning memory failed", "project", project, "error", err)
			continue
		}
		if _, err := m.governance.Ingest(ctx, project, mem); err != nil {
			logging.WarnContext(ctx, "sessioncore: ingest learning failed", "project", project, "error", err)
		}
	}
	for _, decision := range s.Decisions {
		mem, err := types.NewMemory(decision, types.MemoryTypeDecision, types.SourceAutoConversation)
		if err != nil {
			logging.WarnContext(ctx, "sessioncore: build decision memory failed", "project", project, "error", err)
			continue
		}
		if _, err := m.governance.Ingest(ctx, project, mem); err != nil {
			logging.WarnContext(ctx, "sessioncore: ingest decision failed", "project", project, "error", err)
		}
	}
}
