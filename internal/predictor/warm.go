package predictor

import (
	"context"
	"encoding/json"
	"sync"

	"ragmemory/internal/cache"
	"ragmemory/internal/embedder"
	"ragmemory/internal/logging"
	"ragmemory/internal/sessioncore"
	"ragmemory/pkg/types"
)

// warm executes the highest-value predictions in parallel batches of 5,
// embedding+searching (and caching the result) for query predictions and
// pre-embedding the resource for file predictions, so a subsequent real
// lookup is a cache hit. Best-effort throughout.
func (l *Loader) warm(ctx context.Context, snap sessioncore.SessionSnapshot, predictions []types.Prediction) {
	for start := 0; start < len(predictions); start += warmBatchSize {
		end := start + warmBatchSize
		if end > len(predictions) {
			end = len(predictions)
		}
		batch := predictions[start:end]

		var wg sync.WaitGroup
		for _, p := range batch {
			p := p
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer func() {
					if r := recover(); r != nil {
						logging.WarnContext(ctx, "predictor: warm panic", "panic", r)
					}
				}()
				l.warmOne(ctx, snap, p)
			}()
		}
		wg.Wait()
	}
}

func (l *Loader) warmOne(ctx context.Context, snap sessioncore.SessionSnapshot, p types.Prediction) {
	switch p.Type {
	case types.PredictionQuery:
		l.warmQuery(ctx, snap, p.Resource)
	case types.PredictionFile:
		l.warmFile(ctx, snap, p.Resource)
	default:
		// tool_input/feature predictions carry no independent lookup to warm;
		// the session itself surfaces them directly to the caller.
	}
}

// warmQuery embeds the query and searches the codebase collection, caching
// the result under (collection, query) so a real search call for the same
// text is a cache hit (spec.md's "warms Cache/VectorStore via Embedder").
func (l *Loader) warmQuery(ctx context.Context, snap sessioncore.SessionSnapshot, query string) {
	collection := types.CollectionName(snap.Project, types.SuffixCodebase)

	if _, lvl, err := l.cache.GetSearch(ctx, snap.SessionID, snap.Project, collection, query); err == nil && lvl != cache.LevelMiss {
		return
	}

	vec, err := l.embed.Embed(ctx, query, embedder.Options{SessionID: snap.SessionID, ProjectName: snap.Project})
	if err != nil {
		logWarmFailure(ctx, "warm query embed", err)
		return
	}
	results, err := l.store.Search(ctx, collection, vec, fileSimilarityLimit, nil, 0)
	if err != nil {
		logWarmFailure(ctx, "warm query search", err)
		return
	}
	raw, err := json.Marshal(results)
	if err != nil {
		logWarmFailure(ctx, "warm query marshal", err)
		return
	}
	if err := l.cache.SetSearch(ctx, snap.SessionID, snap.Project, collection, query, raw); err != nil {
		logWarmFailure(ctx, "warm query cache write", err)
	}
}

// warmFile pre-embeds the predicted file path into the embedding cache.
// AddActivity embeds the session's combined text rather than the bare path,
// so it does not read this entry.
func (l *Loader) warmFile(ctx context.Context, snap sessioncore.SessionSnapshot, file string) {
	if _, err := l.embed.Embed(ctx, file, embedder.Options{SessionID: snap.SessionID, ProjectName: snap.Project}); err != nil {
		logWarmFailure(ctx, "warm file embed", err)
	}
}
