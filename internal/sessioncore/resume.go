package sessioncore

import (
	"context"
	"time"

	"ragmemory/internal/vectorstore"
	"ragmemory/pkg/types"
)

const maxResumeQueries = 5

// findResumeSource resolves spec.md §4.6 step 3: an explicit resumeFrom id
// takes priority; otherwise the most recent session (any status) for the
// project started within the last 24h. Returns nil, nil when there is no
// resume source — this is the normal cold-start path, not an error.
func (m *Manager) findResumeSource(ctx context.Context, project, resumeFrom string, now time.Time) (*types.Session, error) {
	collection := collectionFor(project)

	if resumeFrom != "" {
		filter := &vectorstore.Filter{Must: []vectorstore.Condition{{Field: "session_id", MatchOne: resumeFrom}}}
		page, err := m.store.Scroll(ctx, collection, filter, 1, "")
		if err != nil {
			return nil, err
		}
		if len(page.Points) == 0 {
			return nil, nil
		}
		return payloadToSession(page.Points[0].Payload), nil
	}

	page, err := m.store.Scroll(ctx, collection, nil, 500, "")
	if err != nil {
		return nil, err
	}
	cutoff := now.Add(-resumeWindow)
	var best *types.Session
	for _, p := range page.Points {
		s := payloadToSession(p.Payload)
		if s.StartedAt.Before(cutoff) {
			continue
		}
		if best == nil || s.StartedAt.After(best.StartedAt) {
			best = s
		}
	}
	return best, nil
}

// applyResume copies the resume source's carried-forward fields into the new
// session, per spec.md §4.6 step 3: currentFiles, last-5 recentQueries,
// activeFeatures, decisions, and notes resumedFrom in metadata.
func applyResume(source *types.Session, into *types.Session) {
	into.CurrentFiles = append(into.CurrentFiles, source.CurrentFiles...)
	queries := source.RecentQueries
	if len(queries) > maxResumeQueries {
		queries = queries[len(queries)-maxResumeQueries:]
	}
	into.RecentQueries = append(into.RecentQueries, queries...)
	into.ActiveFeatures = append(into.ActiveFeatures, source.ActiveFeatures...)
	into.Decisions = append(into.Decisions, source.Decisions...)
	if into.Metadata == nil {
		into.Metadata = map[string]interface{}{}
	}
	into.Metadata["resumedFrom"] = source.SessionID
}
