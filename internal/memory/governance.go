// Package memory implements MemoryGovernance from spec.md §4.5: a two-tier
// store (durable `<project>_agent_memory`, quarantine `<project>_memory_pending`)
// that routes auto-sourced writes through an adaptive confidence threshold
// before they ever reach durable storage, and gates promotion out of
// quarantine behind an external quality-gate collaborator.
//
// New package: the teacher's memory store is a single decaying collection
// with no quarantine tier, so this component is built fresh in the
// teacher's architectural idiom (interface-typed collaborators, constructor
// injection, package-level logging.Warn/Info) rather than adapted from a
// specific teacher file.
package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ragmemory/internal/cache"
	"ragmemory/internal/embedder"
	"ragmemory/internal/errtypes"
	"ragmemory/internal/logging"
	"ragmemory/internal/vectorstore"
	"ragmemory/pkg/types"

	"github.com/google/uuid"
)

// Governance is the sole write/promote/reject/recall path for agent
// memories. Safe for concurrent use.
type Governance struct {
	store      vectorstore.Store
	embed      *embedder.Embedder
	cache      cache.Cache
	gates      QualityGateRunner
	thresholds *thresholdCache
}

func New(store vectorstore.Store, embed *embedder.Embedder, c cache.Cache, gates QualityGateRunner) *Governance {
	return &Governance{
		store:      store,
		embed:      embed,
		cache:      c,
		gates:      gates,
		thresholds: newThresholdCache(),
	}
}

// IngestResult reports what Ingest did with a record.
type IngestResult struct {
	Skipped bool
	Reason  string
	Memory  *types.Memory
}

// Ingest is the sole write path into memory (spec.md §4.5). Manual (or
// source-absent) records go straight to durable storage and propagate any
// error. auto_* records pass the adaptive threshold: below it they are
// dropped (not queued); at or above it they're embedded and upserted into
// quarantine. Failures writing an auto record never propagate — they're
// logged and a synthetic (unwritten) record is returned so upstream agents
// are never broken by a memory-layer outage.
func (g *Governance) Ingest(ctx context.Context, project string, m *types.Memory) (*IngestResult, error) {
	if m.Source == "" {
		m.Source = types.SourceManual
	}

	if m.Source == types.SourceManual {
		if err := g.writeDurable(ctx, project, m); err != nil {
			return nil, fmt.Errorf("ingest: durable write: %w", err)
		}
		return &IngestResult{Memory: m}, nil
	}

	if !m.Source.IsAuto() {
		return nil, fmt.Errorf("ingest: %w: unrecognized source %q", errtypes.ErrValidation, m.Source)
	}

	threshold := g.adaptiveThreshold(ctx, project)
	var confidence float64
	if m.Confidence != nil {
		confidence = *m.Confidence
	}
	if confidence < threshold {
		return &IngestResult{Skipped: true, Reason: "below_threshold"}, nil
	}

	if err := g.writeQuarantine(ctx, project, m); err != nil {
		logging.Warn("memory: auto ingest failed, returning synthetic record", "project", project, "source", m.Source, "error", err)
		return &IngestResult{Memory: m}, nil
	}
	return &IngestResult{Memory: m}, nil
}

func (g *Governance) writeDurable(ctx context.Context, project string, m *types.Memory) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now

	collection := types.CollectionName(project, types.SuffixAgentMemory)
	if err := g.store.EnsureCollection(ctx, collection); err != nil {
		return fmt.Errorf("ensure durable collection: %w", err)
	}
	vec, err := g.embed.Embed(ctx, m.Content, embedder.Options{ProjectName: project})
	if err != nil {
		return fmt.Errorf("embed: %w", err)
	}
	point := vectorstore.Point{ID: m.ID, Vector: vec, Payload: memoryToPayload(m)}
	if err := g.store.Upsert(ctx, collection, []vectorstore.Point{point}); err != nil {
		return fmt.Errorf("upsert: %w", err)
	}
	return nil
}

func (g *Governance) writeQuarantine(ctx context.Context, project string, m *types.Memory) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	m.Validated = false
	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now

	collection := types.CollectionName(project, types.SuffixMemoryPending)
	if err := g.store.EnsureCollection(ctx, collection); err != nil {
		return fmt.Errorf("ensure quarantine collection: %w", err)
	}
	vec, err := g.embed.Embed(ctx, m.Content, embedder.Options{ProjectName: project})
	if err != nil {
		return fmt.Errorf("embed: %w", err)
	}
	point := vectorstore.Point{ID: m.ID, Vector: vec, Payload: memoryToPayload(m)}
	if err := g.store.Upsert(ctx, collection, []vectorstore.Point{point}); err != nil {
		return fmt.Errorf("upsert: %w", err)
	}
	return nil
}

// adaptiveThreshold returns the project's cached threshold, recomputing
// from durable/quarantine counts on a cache miss or expiry.
func (g *Governance) adaptiveThreshold(ctx context.Context, project string) float64 {
	if v, ok := g.thresholds.get(project); ok {
		return v
	}
	p := g.countAutoDurable(ctx, project)
	q := g.countQuarantine(ctx, project)
	t := computeThreshold(p, q)
	g.thresholds.set(project, t)
	return t
}

func (g *Governance) countAutoDurable(ctx context.Context, project string) int64 {
	collection := types.CollectionName(project, types.SuffixAgentMemory)
	histogram, err := g.store.AggregateByField(ctx, collection, "source")
	if err != nil {
		logging.Warn("memory: durable count aggregate failed, treating as empty", "project", project, "error", err)
		return 0
	}
	var p int64
	for source, count := range histogram {
		if strings.HasPrefix(source, "auto_") {
			p += count
		}
	}
	return p
}

func (g *Governance) countQuarantine(ctx context.Context, project string) int64 {
	collection := types.CollectionName(project, types.SuffixMemoryPending)
	histogram, err := g.store.AggregateByField(ctx, collection, "source")
	if err != nil {
		logging.Warn("memory: quarantine count aggregate failed, treating as empty", "project", project, "error", err)
		return 0
	}
	var q int64
	for _, count := range histogram {
		q += count
	}
	return q
}

// PromoteOptions configures the quality-gate step of Promote.
type PromoteOptions struct {
	RunGates      bool
	ProjectPath   string
	AffectedFiles []string
}

// Promote moves a quarantine entry to durable storage under a fresh ID,
// stamping provenance metadata, per spec.md §4.5.
func (g *Governance) Promote(ctx context.Context, project, id, reason, evidence string, opts PromoteOptions) (*types.Memory, error) {
	quarantineCollection := types.CollectionName(project, types.SuffixMemoryPending)

	entry, err := g.findByID(ctx, quarantineCollection, id)
	if err != nil {
		return nil, fmt.Errorf("promote: locate quarantine entry: %w", err)
	}
	if entry == nil {
		return nil, fmt.Errorf("promote: %w", errtypes.ErrMemoryNotFound)
	}

	if opts.RunGates {
		if g.gates == nil {
			return nil, fmt.Errorf("promote: %w: no quality-gate collaborator configured", errtypes.ErrQualityGatesFailed)
		}
		report, err := g.gates.RunGates(ctx, opts.ProjectPath, opts.AffectedFiles, nil)
		if err != nil {
			return nil, fmt.Errorf("promote: run gates: %w", err)
		}
		if !report.Passed {
			return nil, &GateFailure{Report: report}
		}
	}

	if err := g.store.Delete(ctx, quarantineCollection, []string{id}); err != nil {
		return nil, fmt.Errorf("promote: delete from quarantine: %w", err)
	}

	promoted := *entry
	promoted.ID = uuid.New().String()
	promoted.Validated = true
	if promoted.Metadata == nil {
		promoted.Metadata = map[string]interface{}{}
	}
	promoted.Metadata["validated"] = true
	promoted.Metadata["promoteReason"] = reason
	promoted.Metadata["promotedFrom"] = id
	if evidence != "" {
		promoted.Metadata["evidence"] = evidence
	}

	if err := g.writeDurable(ctx, project, &promoted); err != nil {
		return nil, fmt.Errorf("promote: durable write: %w", err)
	}

	g.thresholds.invalidate(project)
	return &promoted, nil
}

// Reject deletes a quarantine entry. Errors are swallowed to false, per
// spec.md §4.5.
func (g *Governance) Reject(ctx context.Context, project, id string) bool {
	collection := types.CollectionName(project, types.SuffixMemoryPending)
	if err := g.store.Delete(ctx, collection, []string{id}); err != nil {
		logging.Warn("memory: reject failed", "project", project, "id", id, "error", err)
		return false
	}
	g.thresholds.invalidate(project)
	return true
}

func (g *Governance) findByID(ctx context.Context, collection, id string) (*types.Memory, error) {
	filter := &vectorstore.Filter{Must: []vectorstore.Condition{{Field: "id", MatchOne: id}}}
	page, err := g.store.Scroll(ctx, collection, filter, 1, "")
	if err != nil {
		return nil, err
	}
	if len(page.Points) == 0 {
		return nil, nil
	}
	p := page.Points[0]
	return payloadToMemory(p.ID, p.Payload), nil
}

// RecallOptions scopes a durable-memory search.
type RecallOptions struct {
	Query    string
	Type     types.MemoryType
	Tags     []string
	Limit    int
	MinScore float32
}

// RecallDurable delegates to a dense search over durable storage with
// optional type/tag filters, per spec.md §4.5.
func (g *Governance) RecallDurable(ctx context.Context, project string, opts RecallOptions) ([]*types.Memory, error) {
	collection := types.CollectionName(project, types.SuffixAgentMemory)
	vec, err := g.embed.Embed(ctx, opts.Query, embedder.Options{ProjectName: project})
	if err != nil {
		return nil, fmt.Errorf("recall: embed query: %w", err)
	}

	var conds []vectorstore.Condition
	if opts.Type != "" {
		conds = append(conds, vectorstore.Condition{Field: "type", MatchOne: string(opts.Type)})
	}
	if len(opts.Tags) > 0 {
		conds = append(conds, vectorstore.Condition{Field: "tags", MatchAny: opts.Tags})
	}
	var filter *vectorstore.Filter
	if len(conds) > 0 {
		filter = &vectorstore.Filter{Must: conds}
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	results, err := g.store.Search(ctx, collection, vec, limit, filter, opts.MinScore)
	if err != nil {
		return nil, fmt.Errorf("recall: search: %w", err)
	}

	out := make([]*types.Memory, len(results))
	for i, r := range results {
		out[i] = payloadToMemory(r.ID, r.Payload)
	}
	return out, nil
}

// IsNotFound reports whether err is (or wraps) the memory-not-found sentinel.
func IsNotFound(err error) bool { return errors.Is(err, errtypes.ErrMemoryNotFound) }

const quarantineListLimit = 200

// ListQuarantine returns up to quarantineListLimit (200) pending entries
// from project's quarantine collection with a single Scroll, for the API's
// "GET /api/memory/quarantine" (spec.md §6); entries beyond that first page
// are not returned. A
// missing collection yields an empty slice, matching Store.Scroll's
// not-found contract.
func (g *Governance) ListQuarantine(ctx context.Context, project string) ([]*types.Memory, error) {
	collection := types.CollectionName(project, types.SuffixMemoryPending)
	page, err := g.store.Scroll(ctx, collection, nil, quarantineListLimit, "")
	if err != nil {
		return nil, fmt.Errorf("list quarantine: %w", err)
	}

	out := make([]*types.Memory, len(page.Points))
	for i, p := range page.Points {
		out[i] = payloadToMemory(p.ID, p.Payload)
	}
	return out, nil
}
