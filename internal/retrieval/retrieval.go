// Package retrieval implements the Retrieval primitives (spec.md §4.8):
// hybrid search, transitive duplicate grouping, seed-based clustering, and
// field aggregation, all built directly on internal/vectorstore.Store.
//
// Grounded on the teacher's qdrant.go enrichment helpers (FindSimilar/
// GetStats idiom: embed, search, shape the result for a caller) — this
// package is the thin orchestration layer between that primitive and the
// tool/predictor callers, adding nothing the Store interface doesn't already
// expose except the transitive grouping spec.md names explicitly.
package retrieval

import (
	"context"

	"ragmemory/internal/embedder"
	"ragmemory/internal/vectorstore"
)

const (
	duplicateSampleLimit   = 500
	duplicateNeighborLimit = 5
	duplicateThreshold     = 0.95
	clusterDefaultLimit    = 20
)

// Primitives is the sole entry point for hybrid search, dedup, clustering,
// and aggregation, scoped to one Store/Embedder pair (one per project's
// collections, same as the rest of the core).
type Primitives struct {
	store vectorstore.Store
	embed *embedder.Embedder
}

func New(store vectorstore.Store, embed *embedder.Embedder) *Primitives {
	return &Primitives{store: store, embed: embed}
}

// HybridQuery narrows a hybrid search to an optional file/language filter,
// applied on top of the dense+sparse RRF ranking (spec.md §4.8).
type HybridQuery struct {
	Collection  string
	Query       string
	Limit       int
	File        string
	Language    string
	SessionID   string
	ProjectName string
}

// Search embeds query to dense+sparse, calls SearchHybridNative, and returns
// the top-k hits after the optional file/language filter.
func (p *Primitives) Search(ctx context.Context, q HybridQuery) ([]vectorstore.SearchResult, error) {
	full, err := p.embed.EmbedFull(ctx, q.Query, embedder.Options{SessionID: q.SessionID, ProjectName: q.ProjectName})
	if err != nil {
		return nil, err
	}

	limit := q.Limit
	if limit <= 0 {
		limit = clusterDefaultLimit
	}

	filter := buildFilter(q.File, q.Language)
	return p.store.SearchHybridNative(ctx, q.Collection, full.Dense, full.Sparse, limit, filter)
}

func buildFilter(file, language string) *vectorstore.Filter {
	var conditions []vectorstore.Condition
	if file != "" {
		conditions = append(conditions, vectorstore.Condition{Field: "file", MatchOne: file})
	}
	if language != "" {
		conditions = append(conditions, vectorstore.Condition{Field: "language", MatchOne: language})
	}
	if len(conditions) == 0 {
		return nil
	}
	return &vectorstore.Filter{Must: conditions}
}

// DuplicateGroup is one transitively-connected cluster of near-identical
// points, with the lowest pairwise score observed among its members as a
// conservative similarity estimate.
type DuplicateGroup struct {
	IDs        []string
	Similarity float32
}

// FindDuplicateGroups scrolls a sample of collection, recommends each point
// against itself to find its near-neighbors above threshold, then unions
// every such edge transitively into groups (spec.md §4.8: "for each point in
// a scrolled sample, recommend against itself to find near-neighbors above
// threshold; group transitively; emit one {group, similarity} per group").
func (p *Primitives) FindDuplicateGroups(ctx context.Context, collection string) ([]DuplicateGroup, error) {
	page, err := p.store.Scroll(ctx, collection, nil, duplicateSampleLimit, "")
	if err != nil {
		return nil, err
	}

	uf := newUnionFind()
	edgeScore := make(map[[2]string]float32)
	touched := make(map[string]bool)

	for _, pt := range page.Points {
		uf.add(pt.ID)
		hits, err := p.store.Recommend(ctx, collection, []string{pt.ID}, nil, duplicateNeighborLimit)
		if err != nil {
			continue
		}
		for _, h := range hits {
			if h.ID == pt.ID || h.Score < duplicateThreshold {
				continue
			}
			uf.add(h.ID)
			uf.union(pt.ID, h.ID)
			edgeScore[edgeKey(pt.ID, h.ID)] = h.Score
			touched[pt.ID] = true
			touched[h.ID] = true
		}
	}

	groups := make(map[string][]string)
	for id := range touched {
		root := uf.find(id)
		groups[root] = append(groups[root], id)
	}

	out := make([]DuplicateGroup, 0, len(groups))
	for _, ids := range groups {
		if len(ids) < 2 {
			continue
		}
		out = append(out, DuplicateGroup{IDs: ids, Similarity: groupSimilarity(ids, edgeScore)})
	}
	return out, nil
}

func edgeKey(a, b string) [2]string {
	if a < b {
		return [2]string{a, b}
	}
	return [2]string{b, a}
}

// groupSimilarity returns the minimum observed edge score within the group,
// a conservative estimate of how tightly the cluster agrees.
func groupSimilarity(ids []string, edgeScore map[[2]string]float32) float32 {
	var worst float32 = 1
	found := false
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			if s, ok := edgeScore[edgeKey(ids[i], ids[j])]; ok {
				found = true
				if s < worst {
					worst = s
				}
			}
		}
	}
	if !found {
		return duplicateThreshold
	}
	return worst
}

// Cluster grows a neighborhood from seedIDs via Store.Recommend (spec.md
// §4.8's "recommend(seedIds, [], limit)").
func (p *Primitives) Cluster(ctx context.Context, collection string, seedIDs []string, limit int) ([]vectorstore.SearchResult, error) {
	if limit <= 0 {
		limit = clusterDefaultLimit
	}
	return p.store.Recommend(ctx, collection, seedIDs, nil, limit)
}

// Aggregate is a thin passthrough to Store.AggregateByField, kept here so
// callers depend on one retrieval-primitives surface rather than reaching
// into vectorstore directly for this one operation.
func (p *Primitives) Aggregate(ctx context.Context, collection, field string) (map[string]int64, error) {
	return p.store.AggregateByField(ctx, collection, field)
}
