package sessioncore

import (
	"context"
	"fmt"
	"time"

	"ragmemory/internal/logging"
	"ragmemory/internal/usage"
	"ragmemory/pkg/types"

	"golang.org/x/sync/errgroup"
)

// StartOptions configures startSession (spec.md §4.6).
type StartOptions struct {
	Project        string
	SessionID      string // optional; generated when empty
	ResumeFrom     string // optional explicit resume source
	InitialContext string // optional free text to extract entities from
	SkipAutoMerge  bool   // test/administrative escape hatch
}

// StartResult is what startSession hands back to the caller.
type StartResult struct {
	Session  *types.Session
	Briefing string // best-effort; empty on failure, never an error
}

// StartSession implements spec.md §4.6 steps 1-7.
func (m *Manager) StartSession(ctx context.Context, opts StartOptions) (*StartResult, error) {
	now := time.Now().UTC()

	sessionID := opts.SessionID
	if sessionID == "" {
		sessionID = newSessionID()
	}

	m.reapStale(ctx, opts.Project, now)

	s := &types.Session{
		SessionID:      sessionID,
		ProjectName:    opts.Project,
		StartedAt:      now,
		LastActivityAt: now,
		Status:         types.SessionActive,
	}

	if source, err := m.findResumeSource(ctx, opts.Project, opts.ResumeFrom, now); err != nil {
		logging.WarnContext(ctx, "sessioncore: resume lookup failed, starting cold", "project", opts.Project, "error", err)
	} else if source != nil && source.SessionID != sessionID {
		applyResume(source, s)
	}

	if opts.InitialContext != "" {
		entities := usage.ExtractEntities(opts.InitialContext)
		s.CurrentFiles = mergeUnique(s.CurrentFiles, entities.Files)
		s.ActiveFeatures = mergeUnique(s.ActiveFeatures, entities.Concepts)
	}

	if err := m.persist(ctx, s); err != nil {
		return nil, fmt.Errorf("start session: persist: %w", err)
	}
	m.cacheContext(ctx, s)

	m.mu.Lock()
	m.sessions[sessionKey(opts.Project, sessionID)] = s
	m.mu.Unlock()

	m.fireBackground(logging.GetTraceID(ctx), opts.Project, sessionID, s, !opts.SkipAutoMerge)

	briefing := m.buildBriefing(ctx, s)

	return &StartResult{Session: s, Briefing: briefing}, nil
}

// fireBackground detaches prefetch and (at most hourly) auto-merge from the
// request path, tracked through an errgroup whose result is only logged —
// never awaited by the caller (spec.md §4.6 step 6, §5's background-task
// rule). Panics are recovered so a prediction or merge bug never takes the
// session-starting goroutine down with it.
func (m *Manager) fireBackground(traceID, project, sessionID string, snapshot *types.Session, allowMerge bool) {
	bgCtx := logging.WithTraceID(context.Background(), traceID)
	eg, egCtx := errgroup.WithContext(bgCtx)

	eg.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("prefetch panic: %v", r)
			}
		}()
		m.runPrefetch(egCtx, snapshotOf(snapshot))
		return nil
	})

	if allowMerge {
		eg.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("auto-merge panic: %v", r)
				}
			}()
			m.maybeAutoMerge(egCtx, project)
			return nil
		})
	}

	go func() {
		if err := eg.Wait(); err != nil {
			logging.Warn("sessioncore: background task failed", "project", project, "session", sessionID, "error", err)
		}
	}()
}

func (m *Manager) runPrefetch(ctx context.Context, snap SessionSnapshot) {
	if m.prefetch == nil {
		return
	}
	m.prefetch.Prefetch(ctx, snap)
}

func snapshotOf(s *types.Session) SessionSnapshot {
	return SessionSnapshot{
		Project:        s.ProjectName,
		SessionID:      s.SessionID,
		CurrentFiles:   s.CurrentFiles,
		RecentQueries:  s.RecentQueries,
		ToolsUsed:      s.ToolsUsedList,
		ActiveFeatures: s.ActiveFeatures,
	}
}

func mergeUnique(existing, additions []string) []string {
	seen := make(map[string]bool, len(existing))
	out := make([]string, 0, len(existing)+len(additions))
	for _, v := range existing {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	for _, v := range additions {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
