package usage

import (
	"context"
	"fmt"
	"time"

	"ragmemory/internal/embedder"
	"ragmemory/internal/logging"
	"ragmemory/internal/vectorstore"
	"ragmemory/pkg/types"

	"github.com/google/uuid"
)

// Patterns aggregates tool-invocation traces into usage statistics, stored
// in the `<project>_tool_usage` collection. Grounded on the aggregation-
// by-field idiom the teacher uses for memory-access histograms
// (internal/analytics/memory_analytics.go), generalized from chunk-access
// counting to tool-invocation counting.
type Patterns struct {
	store vectorstore.Store
	embed *embedder.Embedder
}

func NewPatterns(store vectorstore.Store, embed *embedder.Embedder) *Patterns {
	return &Patterns{store: store, embed: embed}
}

// Record persists one tool invocation trace.
func (p *Patterns) Record(ctx context.Context, u types.ToolUsage) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if u.Timestamp.IsZero() {
		u.Timestamp = time.Now().UTC()
	}
	u.Hour = u.Timestamp.Hour()
	u.DayOfWeek = int(u.Timestamp.Weekday())

	collection := types.CollectionName(u.ProjectName, types.SuffixToolUsage)
	if err := p.store.EnsureCollection(ctx, collection); err != nil {
		return fmt.Errorf("ensure tool usage collection: %w", err)
	}

	summary := u.ToolName + " " + u.InputSummary
	vec, err := p.embed.Embed(ctx, summary, embedder.Options{ProjectName: u.ProjectName})
	if err != nil {
		return fmt.Errorf("embed tool usage summary: %w", err)
	}

	point := vectorstore.Point{ID: u.ID, Vector: vec, Payload: toolUsagePayload(u)}
	if err := p.store.Upsert(ctx, collection, []vectorstore.Point{point}); err != nil {
		return fmt.Errorf("upsert tool usage: %w", err)
	}
	return nil
}

// Summary is an aggregate view of a project's tool usage.
type Summary struct {
	TotalInvocations int64
	ByTool           map[string]int64
	SuccessRate      float64
	ByHour           map[string]int64
	ByDayOfWeek      map[string]int64
}

// Aggregate scrolls the tool-usage collection and buckets by tool name,
// success, hour, and day-of-week in a single pass per field (spec.md §4.9).
func (p *Patterns) Aggregate(ctx context.Context, project string) (Summary, error) {
	collection := types.CollectionName(project, types.SuffixToolUsage)

	byTool, err := p.store.AggregateByField(ctx, collection, "tool_name")
	if err != nil {
		logging.Warn("usage: tool_name aggregate failed", "project", project, "error", err)
		byTool = map[string]int64{}
	}
	bySuccess, err := p.store.AggregateByField(ctx, collection, "success")
	if err != nil {
		logging.Warn("usage: success aggregate failed", "project", project, "error", err)
		bySuccess = map[string]int64{}
	}
	byHour, err := p.store.AggregateByField(ctx, collection, "hour")
	if err != nil {
		logging.Warn("usage: hour aggregate failed", "project", project, "error", err)
		byHour = map[string]int64{}
	}
	byDay, err := p.store.AggregateByField(ctx, collection, "day_of_week")
	if err != nil {
		logging.Warn("usage: day_of_week aggregate failed", "project", project, "error", err)
		byDay = map[string]int64{}
	}

	var total, successes int64
	for _, c := range byTool {
		total += c
	}
	successes = bySuccess["true"]

	var successRate float64
	if total > 0 {
		successRate = float64(successes) / float64(total)
	}

	return Summary{
		TotalInvocations: total,
		ByTool:           byTool,
		SuccessRate:      successRate,
		ByHour:           byHour,
		ByDayOfWeek:      byDay,
	}, nil
}

func toolUsagePayload(u types.ToolUsage) map[string]any {
	payload := map[string]any{
		"project_name":  u.ProjectName,
		"session_id":    u.SessionID,
		"tool_name":     u.ToolName,
		"timestamp":     u.Timestamp.Format(time.RFC3339),
		"duration_ms":   u.DurationMs,
		"input_summary": u.InputSummary,
		"result_count":  u.ResultCount,
		"success":       u.Success,
		"hour":          u.Hour,
		"day_of_week":   u.DayOfWeek,
	}
	if u.ErrorMessage != "" {
		payload["error_message"] = u.ErrorMessage
	}
	return payload
}
