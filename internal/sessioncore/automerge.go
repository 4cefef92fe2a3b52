package sessioncore

import (
	"context"
	"strings"
	"time"

	"ragmemory/internal/embedder"
	"ragmemory/internal/logging"
	"ragmemory/internal/memory"
	"ragmemory/internal/vectorstore"
	"ragmemory/pkg/types"
)

const (
	autoMergeSeedThreshold = 0.9
	autoMergeBatchSize     = 3
	autoMergeClusterBudget = 30 * time.Second
	autoMergeOverallBudget = 90 * time.Second
	autoMergeScrollLimit   = 500
)

// maybeAutoMerge runs at most once per project per hour on session start
// (spec.md §4.6's Auto-merge). It scrolls durable memories, seed-clusters
// through Store.Recommend at threshold 0.9, batches clusters of 3, and
// merges each cluster via the configured Summarizer within a per-cluster/
// overall time budget. Originals are deleted only after the merged record
// is upserted, so a failure at any point never loses data.
func (m *Manager) maybeAutoMerge(ctx context.Context, project string) {
	if !m.claimMergeSlot(project) {
		return
	}

	collection := types.CollectionName(project, types.SuffixAgentMemory)
	page, err := m.store.Scroll(ctx, collection, nil, autoMergeScrollLimit, "")
	if err != nil {
		logging.WarnContext(ctx, "sessioncore: auto-merge scroll failed", "project", project, "error", err)
		return
	}
	if len(page.Points) < 2 {
		return
	}

	clusters := m.seedClusters(ctx, collection, page.Points)
	batches := batchClusters(clusters, autoMergeBatchSize)

	budgetCtx, cancel := context.WithTimeout(ctx, autoMergeOverallBudget)
	defer cancel()

	for _, batch := range batches {
		select {
		case <-budgetCtx.Done():
			logging.WarnContext(ctx, "sessioncore: auto-merge overall budget exhausted", "project", project)
			return
		default:
		}
		for _, cluster := range batch {
			m.mergeCluster(budgetCtx, project, collection, cluster)
		}
	}
}

func (m *Manager) claimMergeSlot(project string) bool {
	m.mergeMu.Lock()
	defer m.mergeMu.Unlock()
	last, ok := m.lastMergeRun[project]
	if ok && time.Since(last) < autoMergeInterval {
		return false
	}
	m.lastMergeRun[project] = time.Now()
	return true
}

// seedClusters groups scrolled points into clusters using each unclaimed
// point as a recommend seed in turn; points already claimed by an earlier
// cluster are skipped.
func (m *Manager) seedClusters(ctx context.Context, collection string, points []vectorstore.Point) [][]string {
	claimed := make(map[string]bool, len(points))
	var clusters [][]string

	for _, p := range points {
		if claimed[p.ID] {
			continue
		}
		results, err := m.store.Recommend(ctx, collection, []string{p.ID}, nil, autoMergeBatchSize*2)
		if err != nil {
			claimed[p.ID] = true
			continue
		}
		cluster := []string{p.ID}
		claimed[p.ID] = true
		for _, r := range results {
			if claimed[r.ID] || r.Score < autoMergeSeedThreshold {
				continue
			}
			cluster = append(cluster, r.ID)
			claimed[r.ID] = true
		}
		if len(cluster) > 1 {
			clusters = append(clusters, cluster)
		}
	}
	return clusters
}

func batchClusters(clusters [][]string, size int) [][][]string {
	var batches [][][]string
	for i := 0; i < len(clusters); i += size {
		end := i + size
		if end > len(clusters) {
			end = len(clusters)
		}
		batches = append(batches, clusters[i:end])
	}
	return batches
}

func (m *Manager) mergeCluster(ctx context.Context, project, collection string, ids []string) {
	clusterCtx, cancel := context.WithTimeout(ctx, autoMergeClusterBudget)
	defer cancel()

	memories, err := m.fetchMemories(clusterCtx, collection, ids)
	if err != nil || len(memories) < 2 {
		return
	}

	merged, err := m.summarizer.SummarizeChain(clusterCtx, memories)
	if err != nil {
		merged = fallbackMerge(memories)
	}

	if err := m.writeMergedMemory(clusterCtx, project, &merged); err != nil {
		logging.WarnContext(ctx, "sessioncore: auto-merge write failed, originals kept", "project", project, "error", err)
		return
	}

	if err := m.store.Delete(clusterCtx, collection, ids); err != nil {
		logging.WarnContext(ctx, "sessioncore: auto-merge delete originals failed", "project", project, "ids", ids, "error", err)
	}
}

func (m *Manager) fetchMemories(ctx context.Context, collection string, ids []string) ([]types.Memory, error) {
	filter := &vectorstore.Filter{Must: []vectorstore.Condition{{Field: "id", MatchAny: ids}}}
	page, err := m.store.Scroll(ctx, collection, filter, len(ids), "")
	if err != nil {
		return nil, err
	}
	out := make([]types.Memory, 0, len(page.Points))
	for _, p := range page.Points {
		out = append(out, *memory.FromPayload(p.ID, p.Payload))
	}
	return out, nil
}

// fallbackMerge is the rule-based path when the LLM summarizer fails: a
// deduped "|"-joined concatenation of the cluster's contents (spec.md
// §4.6's auto-merge fallback).
func fallbackMerge(memories []types.Memory) types.Memory {
	seen := make(map[string]bool, len(memories))
	var parts []string
	var ids []string
	tags := make(map[string]bool)
	earliest := memories[0].CreatedAt
	for _, mem := range memories {
		if !seen[mem.Content] {
			seen[mem.Content] = true
			parts = append(parts, mem.Content)
		}
		ids = append(ids, mem.ID)
		for _, t := range mem.Tags {
			tags[t] = true
		}
		if mem.CreatedAt.Before(earliest) {
			earliest = mem.CreatedAt
		}
	}
	tagList := make([]string, 0, len(tags)+1)
	tagList = append(tagList, "merged")
	for t := range tags {
		tagList = append(tagList, t)
	}

	merged, _ := types.NewMemory(strings.Join(parts, "|"), types.MemoryTypeInsight, types.SourceAutoPattern)
	merged.Tags = tagList
	merged.CreatedAt = earliest
	merged.Metadata = map[string]interface{}{
		"mergedFrom":    ids,
		"originalCount": len(memories),
	}
	return *merged
}

// writeMergedMemory upserts the merged record directly into durable
// storage, bypassing Governance.Ingest's threshold gate: a merge of already-
// durable memories is not a new auto-sourced observation to be vetted, it is
// a lossless re-packing of records already past the gate.
func (m *Manager) writeMergedMemory(ctx context.Context, project string, mem *types.Memory) error {
	collection := types.CollectionName(project, types.SuffixAgentMemory)
	vec, err := m.embed.Embed(ctx, mem.Content, embedder.Options{ProjectName: project})
	if err != nil {
		return err
	}
	point := vectorstore.Point{ID: mem.ID, Vector: vec, Payload: memory.ToPayload(mem)}
	return m.store.Upsert(ctx, collection, []vectorstore.Point{point})
}
