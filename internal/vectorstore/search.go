package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"ragmemory/internal/errtypes"
	"ragmemory/internal/logging"

	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const rrfK = 60

// newSparseQuery builds a sparse-vector nearest query. The go-client's
// generated Query type only exposes a dense-vector convenience constructor
// (qdrant.NewQuery), so the sparse variant is assembled directly.
func newSparseQuery(sparse *SparseVector) *qdrant.Query {
	return &qdrant.Query{
		Variant: &qdrant.Query_Nearest{
			Nearest: &qdrant.VectorInput{
				Variant: &qdrant.VectorInput_Sparse{
					Sparse: &qdrant.SparseVector{
						Indices: sparse.Indices,
						Values:  sparse.Values,
					},
				},
			},
		},
	}
}

func newFusionQuery(fusion qdrant.Fusion) *qdrant.Query {
	return &qdrant.Query{Variant: &qdrant.Query_Fusion{Fusion: fusion}}
}

// Search runs a dense-vector similarity query. It retries once with the
// anonymous-vector form if the engine rejects the named-vector form, and
// degrades a missing collection (404/NotFound) to an empty result rather
// than propagating an error.
func (qs *QdrantStore) Search(ctx context.Context, name string, vector []float32, limit int, filter *Filter, minScore float32) ([]SearchResult, error) {
	points, err := qs.runQuery(ctx, name, qdrant.NewQuery(vector...), "dense", uint64(limit), buildQdrantFilter(filter))
	if err != nil {
		if isNotFound(err) {
			return []SearchResult{}, nil
		}
		return nil, errtypes.Wrap("vectorstore.search", errtypes.CategoryRetryable, err)
	}
	return toSearchResults(points, limit, minScore), nil
}

// runQuery performs a named-vector query, falling back to the anonymous
// form on an InvalidArgument (400-equivalent) response.
func (qs *QdrantStore) runQuery(ctx context.Context, name string, query *qdrant.Query, using string, limit uint64, filter *qdrant.Filter) ([]*qdrant.ScoredPoint, error) {
	points, err := qs.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: name,
		Query:          query,
		Using:          &using,
		Limit:          &limit,
		Filter:         filter,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err == nil {
		return points, nil
	}
	if isInvalidArgument(err) {
		points, retryErr := qs.client.Query(ctx, &qdrant.QueryPoints{
			CollectionName: name,
			Query:          query,
			Limit:          &limit,
			Filter:         filter,
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if retryErr == nil {
			return points, nil
		}
		return nil, retryErr
	}
	return nil, err
}

func toSearchResults(points []*qdrant.ScoredPoint, limit int, minScore float32) []SearchResult {
	results := make([]SearchResult, 0, len(points))
	for _, p := range points {
		if minScore > 0 && p.GetScore() < minScore {
			continue
		}
		results = append(results, SearchResult{
			ID:      pointIDToString(p.GetId()),
			Score:   p.GetScore(),
			Payload: valueMapToPayload(p.GetPayload()),
		})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// SearchHybridNative attempts the engine's native prefetch+RRF fusion query.
// On any failure (unsupported engine, missing sparse index, transport error)
// it falls back to client-side RRF over independent dense and sparse
// searches. An empty/nil sparse vector degrades to dense-only.
func (qs *QdrantStore) SearchHybridNative(ctx context.Context, name string, dense []float32, sparse *SparseVector, limit int, filter *Filter) ([]SearchResult, error) {
	if sparse == nil || len(sparse.Values) == 0 {
		return qs.Search(ctx, name, dense, limit, filter, 0)
	}

	qFilter := buildQdrantFilter(filter)
	prefetchLimit := uint64(limit * 4) //nolint:gosec // small bounded multiplier
	denseUsing, sparseUsing := "dense", "sparse"

	points, err := qs.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: name,
		Prefetch: []*qdrant.PrefetchQuery{
			{Query: qdrant.NewQuery(dense...), Using: &denseUsing, Limit: &prefetchLimit, Filter: qFilter},
			{Query: newSparseQuery(sparse), Using: &sparseUsing, Limit: &prefetchLimit, Filter: qFilter},
		},
		Query:       newFusionQuery(qdrant.Fusion_RRF),
		Limit:       uint64Ptr(uint64(limit)),
		Filter:      qFilter,
		WithPayload: qdrant.NewWithPayload(true),
	})
	if err == nil {
		return toSearchResults(points, limit, 0), nil
	}
	logging.Debug("native hybrid search failed, falling back to client-side RRF", "collection", name, "error", err)

	return qs.hybridFallback(ctx, name, dense, sparse, limit, filter)
}

func (qs *QdrantStore) hybridFallback(ctx context.Context, name string, dense []float32, sparse *SparseVector, limit int, filter *Filter) ([]SearchResult, error) {
	fetchLimit := limit * 4
	if fetchLimit < limit {
		fetchLimit = limit
	}

	denseHits, err := qs.Search(ctx, name, dense, fetchLimit, filter, 0)
	if err != nil {
		return nil, err
	}

	sparsePoints, err := qs.runQuery(ctx, name, newSparseQuery(sparse), "sparse", uint64(fetchLimit), buildQdrantFilter(filter))
	if err != nil {
		if isNotFound(err) {
			return denseHits[:min(limit, len(denseHits))], nil
		}
		return nil, errtypes.Wrap("vectorstore.search_hybrid_fallback", errtypes.CategoryRetryable, err)
	}
	sparseHits := toSearchResults(sparsePoints, fetchLimit, 0)

	return fuseRRF(limit, denseHits, sparseHits), nil
}

// fuseRRF computes score(id) = Σ 1/(k + rank_i(id)) over every ranked list
// that contains id, returning the top `limit` by fused score.
func fuseRRF(limit int, lists ...[]SearchResult) []SearchResult {
	scores := make(map[string]float64)
	payloads := make(map[string]map[string]any)
	for _, ranked := range lists {
		for rank, r := range ranked {
			scores[r.ID] += 1.0 / float64(rrfK+rank+1)
			if _, seen := payloads[r.ID]; !seen {
				payloads[r.ID] = r.Payload
			}
		}
	}

	fused := make([]SearchResult, 0, len(scores))
	for id, score := range scores {
		fused = append(fused, SearchResult{ID: id, Score: float32(score), Payload: payloads[id]})
	}
	sort.Slice(fused, func(i, j int) bool { return fused[i].Score > fused[j].Score })
	if limit > 0 && len(fused) > limit {
		fused = fused[:limit]
	}
	return fused
}

func (qs *QdrantStore) Scroll(ctx context.Context, name string, filter *Filter, limit int, pageOffset string) (*ScrollPage, error) {
	req := &qdrant.ScrollPoints{
		CollectionName: name,
		Filter:         buildQdrantFilter(filter),
		Limit:          uint32Ptr(uint32(limit)), //nolint:gosec // bounded by caller
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	}
	if pageOffset != "" {
		req.Offset = qdrant.NewID(pageOffset)
	}

	points, err := qs.client.Scroll(ctx, req)
	if err != nil {
		if isNotFound(err) {
			return &ScrollPage{}, nil
		}
		return nil, errtypes.Wrap("vectorstore.scroll", errtypes.CategoryRetryable, err)
	}

	page := &ScrollPage{Points: make([]Point, 0, len(points))}
	for _, p := range points {
		point := Point{ID: pointIDToString(p.GetId()), Payload: valueMapToPayload(p.GetPayload())}
		if vectors := p.GetVectors(); vectors != nil {
			if named := vectors.GetVectors(); named != nil {
				if dense, ok := named.GetVectors()["dense"]; ok {
					point.Vector = dense.GetData()
				}
			}
		}
		page.Points = append(page.Points, point)
	}
	if len(page.Points) == limit && limit > 0 {
		page.NextPageOffset = page.Points[len(page.Points)-1].ID
	}
	return page, nil
}

// AggregateByField pages through the full collection with Scroll and returns
// a histogram of the field's values. Scroll fetches vectors as well as
// payloads, so the pages are not payload-only.
func (qs *QdrantStore) AggregateByField(ctx context.Context, name, field string) (map[string]int64, error) {
	histogram := make(map[string]int64)
	offset := ""
	const pageSize = 500

	for {
		page, err := qs.Scroll(ctx, name, nil, pageSize, offset)
		if err != nil {
			return nil, err
		}
		for _, p := range page.Points {
			if v, ok := p.Payload[field]; ok {
				histogram[fmt.Sprintf("%v", v)]++
			}
		}
		if page.NextPageOffset == "" || len(page.Points) < pageSize {
			break
		}
		offset = page.NextPageOffset
	}
	return histogram, nil
}

// FindDuplicates scrolls up to limit points and searches each one's nearest
// neighbor (excluding itself) at or above threshold. It returns those
// neighbor hits, each ID at most once, truncated to limit; the point each
// hit was found from is not reported, so the result is not a list of pairs.
func (qs *QdrantStore) FindDuplicates(ctx context.Context, name string, limit int, threshold float32) ([]SearchResult, error) {
	page, err := qs.Scroll(ctx, name, nil, limit, "")
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var dupes []SearchResult
	for _, p := range page.Points {
		if p.Vector == nil {
			continue
		}
		hits, err := qs.Search(ctx, name, p.Vector, 2, nil, threshold)
		if err != nil {
			continue
		}
		for _, h := range hits {
			if h.ID == p.ID || seen[h.ID] {
				continue
			}
			seen[h.ID] = true
			dupes = append(dupes, h)
		}
	}
	if len(dupes) > limit {
		dupes = dupes[:limit]
	}
	return dupes, nil
}

// FindClusters grows a score-thresholded neighborhood from the given seeds.
func (qs *QdrantStore) FindClusters(ctx context.Context, name string, seedIDs []string, limit int, threshold float32) ([]SearchResult, error) {
	seen := make(map[string]bool, len(seedIDs))
	for _, id := range seedIDs {
		seen[id] = true
	}

	var cluster []SearchResult
	for _, id := range seedIDs {
		page, err := qs.Scroll(ctx, name, &Filter{Must: []Condition{{Field: "id", MatchOne: id}}}, 1, "")
		if err != nil || len(page.Points) == 0 {
			continue
		}
		seed := page.Points[0]
		if seed.Vector == nil {
			continue
		}
		hits, err := qs.Search(ctx, name, seed.Vector, limit, nil, threshold)
		if err != nil {
			continue
		}
		for _, h := range hits {
			if seen[h.ID] {
				continue
			}
			seen[h.ID] = true
			cluster = append(cluster, h)
		}
	}
	if len(cluster) > limit {
		cluster = cluster[:limit]
	}
	return cluster, nil
}

// Recommend delegates to a mean(positive) - mean(negative) pseudo-vector
// search; callers supply point IDs previously upserted with their vectors.
func (qs *QdrantStore) Recommend(ctx context.Context, name string, positiveIDs, negativeIDs []string, limit int) ([]SearchResult, error) {
	positive, err := qs.meanVector(ctx, name, positiveIDs)
	if err != nil {
		return nil, err
	}
	if len(positive) == 0 {
		return nil, errors.New("recommend: no usable positive vectors")
	}

	if len(negativeIDs) == 0 {
		return qs.Search(ctx, name, positive, limit, nil, 0)
	}

	negative, err := qs.meanVector(ctx, name, negativeIDs)
	if err != nil {
		return nil, err
	}
	pseudo := make([]float32, len(positive))
	for i := range positive {
		n := float32(0)
		if i < len(negative) {
			n = negative[i]
		}
		pseudo[i] = positive[i] - n
	}
	return qs.Search(ctx, name, pseudo, limit, nil, 0)
}

func (qs *QdrantStore) meanVector(ctx context.Context, name string, ids []string) ([]float32, error) {
	var sum []float32
	count := 0
	for _, id := range ids {
		page, err := qs.Scroll(ctx, name, &Filter{Must: []Condition{{Field: "id", MatchOne: id}}}, 1, "")
		if err != nil || len(page.Points) == 0 || page.Points[0].Vector == nil {
			continue
		}
		v := page.Points[0].Vector
		if sum == nil {
			sum = make([]float32, len(v))
		}
		for i := range v {
			if i < len(sum) {
				sum[i] += v[i]
			}
		}
		count++
	}
	if count == 0 {
		return nil, nil
	}
	for i := range sum {
		sum[i] /= float32(count)
	}
	return sum, nil
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	if st, ok := status.FromError(err); ok {
		return st.Code() == codes.NotFound
	}
	return strings.Contains(err.Error(), "Not found") || strings.Contains(err.Error(), "doesn't exist")
}

func isInvalidArgument(err error) bool {
	if err == nil {
		return false
	}
	if st, ok := status.FromError(err); ok {
		return st.Code() == codes.InvalidArgument
	}
	return strings.Contains(err.Error(), "Bad Request") || strings.Contains(err.Error(), "invalid")
}

func uint64Ptr(v uint64) *uint64 { return &v }
func uint32Ptr(v uint32) *uint32 { return &v }
