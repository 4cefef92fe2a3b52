package sessioncore

import (
	"context"
	"fmt"
	"strings"

	"ragmemory/internal/logging"
	"ragmemory/internal/memory"
	"ragmemory/pkg/types"
)

const briefingRecallLimit = 5

// buildBriefing assembles the short human-readable summary attached to a
// new session (spec.md §4.6 step 7): a project-profile line (derived from
// tool-usage patterns, standing in for a dedicated project-profile
// collaborator this module does not have), a developer-profile line
// (derived from the resumed/carried-forward session state), and the top
// durable memories recalled by activeFeatures ∪ last-3 recentQueries at
// score ≥ 0.6. Entirely best-effort: any failure degrades that line to
// nothing rather than failing the session start.
func (m *Manager) buildBriefing(ctx context.Context, s *types.Session) string {
	var lines []string

	if line := m.projectProfileLine(ctx, s.ProjectName); line != "" {
		lines = append(lines, line)
	}
	if line := developerProfileLine(s); line != "" {
		lines = append(lines, line)
	}
	if line := m.recalledMemoriesLine(ctx, s); line != "" {
		lines = append(lines, line)
	}

	return strings.Join(lines, " ")
}

func (m *Manager) projectProfileLine(ctx context.Context, project string) string {
	if m.patterns == nil {
		return ""
	}
	summary, err := m.patterns.Aggregate(ctx, project)
	if err != nil {
		logging.WarnContext(ctx, "sessioncore: briefing project profile failed", "project", project, "error", err)
		return ""
	}
	if summary.TotalInvocations == 0 {
		return ""
	}
	return fmt.Sprintf("Project has logged %d tool invocations (%.0f%% success rate).", summary.TotalInvocations, summary.SuccessRate*100)
}

func developerProfileLine(s *types.Session) string {
	if resumedFrom, ok := s.Metadata["resumedFrom"]; ok {
		return fmt.Sprintf("Resumed from session %v with %d carried-forward files and %d decisions.", resumedFrom, len(s.CurrentFiles), len(s.Decisions))
	}
	return ""
}

func (m *Manager) recalledMemoriesLine(ctx context.Context, s *types.Session) string {
	terms := append([]string{}, s.ActiveFeatures...)
	queries := s.RecentQueries
	if len(queries) > 3 {
		queries = queries[len(queries)-3:]
	}
	terms = append(terms, queries...)
	if len(terms) == 0 {
		return ""
	}

	results, err := m.governance.RecallDurable(ctx, s.ProjectName, memory.RecallOptions{
		Query:    strings.Join(terms, " "),
		Limit:    briefingRecallLimit,
		MinScore: briefingMinScore,
	})
	if err != nil || len(results) == 0 {
		if err != nil {
			logging.WarnContext(ctx, "sessioncore: briefing recall failed", "project", s.ProjectName, "error", err)
		}
		return ""
	}

	summaries := make([]string, 0, len(results))
	for _, r := range results {
		summaries = append(summaries, truncateLine(r.Content, 80))
	}
	return "Relevant memories: " + strings.Join(summaries, "; ") + "."
}

func truncateLine(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
