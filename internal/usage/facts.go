package usage

import (
	"context"
	"fmt"

	"ragmemory/internal/memory"
	"ragmemory/pkg/types"
)

// FactExtractor turns an agent observation trace into candidate memory
// facts and routes them through MemoryGovernance.ingest, never writing
// directly (spec.md §4.9) — the same adaptive-threshold/quarantine gate
// applies to these as to any other auto_* write.
type FactExtractor struct {
	governance *memory.Governance
}

func NewFactExtractor(governance *memory.Governance) *FactExtractor {
	return &FactExtractor{governance: governance}
}

// Observation is one provenance-tagged trace to extract facts from.
type Observation struct {
	Project    string
	Content    string
	Source     types.MemorySource // SourceAutoPattern or SourceAutoFeedback
	Confidence float64
}

// Extract builds one insight-typed Memory per observation, tagged with the
// entity mentions found in its content, sets its Confidence to
// Observation.Confidence, and routes it through Ingest.
func (f *FactExtractor) Extract(ctx context.Context, obs Observation) (*memory.IngestResult, error) {
	if obs.Source != types.SourceAutoPattern && obs.Source != types.SourceAutoFeedback {
		return nil, fmt.Errorf("fact extractor: unsupported source %q", obs.Source)
	}

	entities := ExtractEntities(obs.Content)
	m, err := types.NewMemory(obs.Content, types.MemoryTypeInsight, obs.Source)
	if err != nil {
		return nil, fmt.Errorf("fact extractor: build memory: %w", err)
	}
	m.Tags = append(append(entities.Files, entities.Functions...), entities.Concepts...)
	confidence := obs.Confidence
	m.Confidence = &confidence

	return f.governance.Ingest(ctx, obs.Project, m)
}
