package predictor

import (
	"context"
	"strings"

	"ragmemory/internal/embedder"
	"ragmemory/internal/sessioncore"
	"ragmemory/pkg/types"
)

const (
	fileSimilarityMaxFiles = 3
	fileSimilarityLimit    = 5
	fileSimilarityMinScore = 0.5
	fileSimilarityBoost    = 1.1

	queryPatternMinShared  = 3
	queryPatternConfidence = 0.7
	queryPatternRecentN    = 3
	queryPatternRecentConf = 0.65

	toolChainConfidence = 0.75

	featureContextMaxFeatures = 3
	featureContextConfidence  = 0.7
	featureContextQueryConf   = 0.65
)

// toolSuccessors is the fixed tool -> likely-next-tools mapping driving the
// tool_chain strategy (spec.md §4.7 step 3).
var toolSuccessors = map[string][]string{
	"search_codebase": {"ask_codebase", "explain_code"},
	"ask_codebase":    {"search_codebase"},
	"explain_code":    {"search_codebase", "ask_codebase"},
	"index_project":   {"search_codebase"},
}

// fileSimilarity embeds each of up to the 3 most-recent current files and
// searches the project's codebase collection top-5 with minScore 0.5,
// emitting file predictions for results not already open.
func (l *Loader) fileSimilarity(ctx context.Context, snap sessioncore.SessionSnapshot) []types.Prediction {
	if len(snap.CurrentFiles) == 0 {
		return nil
	}
	files := snap.CurrentFiles
	if len(files) > fileSimilarityMaxFiles {
		files = files[len(files)-fileSimilarityMaxFiles:]
	}
	open := make(map[string]bool, len(snap.CurrentFiles))
	for _, f := range snap.CurrentFiles {
		open[f] = true
	}

	collection := types.CollectionName(snap.Project, types.SuffixCodebase)
	var predictions []types.Prediction

	for _, f := range files {
		vec, err := l.embed.Embed(ctx, f, embedder.Options{SessionID: snap.SessionID, ProjectName: snap.Project})
		if err != nil {
			logWarmFailure(ctx, "file_similarity embed", err)
			continue
		}
		results, err := l.store.Search(ctx, collection, vec, fileSimilarityLimit, nil, fileSimilarityMinScore)
		if err != nil {
			logWarmFailure(ctx, "file_similarity search", err)
			continue
		}
		for _, r := range results {
			name, _ := r.Payload["file"].(string)
			if name == "" || open[name] {
				continue
			}
			conf := float64(r.Score) * fileSimilarityBoost
			if conf > 1 {
				conf = 1
			}
			predictions = append(predictions, types.Prediction{
				Type:       types.PredictionFile,
				Resource:   name,
				Confidence: conf,
				Strategy:   types.StrategyFileSimilarity,
				Reason:     "Similar to " + f,
			})
		}
	}
	return predictions
}

// queryPattern computes shared tokens (length > 3) between the last two
// queries, emits one combined query prediction, and emits the last 3 queries
// individually at a lower confidence (spec.md §4.7 step 2).
func queryPattern(snap sessioncore.SessionSnapshot) []types.Prediction {
	var predictions []types.Prediction

	if len(snap.RecentQueries) >= 2 {
		a := snap.RecentQueries[len(snap.RecentQueries)-2]
		b := snap.RecentQueries[len(snap.RecentQueries)-1]
		shared := sharedTokens(a, b)
		if len(shared) > 0 {
			top := shared
			if len(top) > 2 {
				top = top[:2]
			}
			predictions = append(predictions, types.Prediction{
				Type:       types.PredictionQuery,
				Resource:   strings.Join(top, " "),
				Confidence: queryPatternConfidence,
				Strategy:   types.StrategyQueryPattern,
				Reason:     "Shared terms with previous query",
			})
		}
	}

	recent := snap.RecentQueries
	if len(recent) > queryPatternRecentN {
		recent = recent[len(recent)-queryPatternRecentN:]
	}
	for _, q := range recent {
		predictions = append(predictions, types.Prediction{
			Type:       types.PredictionQuery,
			Resource:   q,
			Confidence: queryPatternRecentConf,
			Strategy:   types.StrategyQueryPattern,
			Reason:     "Recent query, often refined",
		})
	}
	return predictions
}

func sharedTokens(a, b string) []string {
	setB := make(map[string]bool)
	for _, tok := range strings.Fields(b) {
		if len(tok) > queryPatternMinShared {
			setB[strings.ToLower(tok)] = true
		}
	}
	seen := make(map[string]bool)
	var shared []string
	for _, tok := range strings.Fields(a) {
		lower := strings.ToLower(tok)
		if len(tok) > queryPatternMinShared && setB[lower] && !seen[lower] {
			seen[lower] = true
			shared = append(shared, lower)
		}
	}
	return shared
}

// toolChain looks up the last tool used's successors and, if at least one
// recent query exists, emits one tool_input prediction per successor using
// that query (spec.md §4.7 step 3).
func toolChain(snap sessioncore.SessionSnapshot) []types.Prediction {
	if len(snap.ToolsUsed) == 0 || len(snap.RecentQueries) == 0 {
		return nil
	}
	last := snap.ToolsUsed[len(snap.ToolsUsed)-1]
	successors, ok := toolSuccessors[last]
	if !ok {
		return nil
	}
	query := snap.RecentQueries[len(snap.RecentQueries)-1]

	predictions := make([]types.Prediction, 0, len(successors))
	for _, next := range successors {
		predictions = append(predictions, types.Prediction{
			Type:       types.PredictionToolInput,
			Resource:   next + ":" + query,
			Confidence: toolChainConfidence,
			Strategy:   types.StrategyToolChain,
			Reason:     "Likely follow-up to " + last,
		})
	}
	return predictions
}

// featureContext emits one feature prediction and one query prediction per
// up-to-3 active features (spec.md §4.7 step 4).
func featureContext(snap sessioncore.SessionSnapshot) []types.Prediction {
	features := snap.ActiveFeatures
	if len(features) > featureContextMaxFeatures {
		features = features[len(features)-featureContextMaxFeatures:]
	}
	predictions := make([]types.Prediction, 0, len(features)*2)
	for _, f := range features {
		predictions = append(predictions, types.Prediction{
			Type:       types.PredictionFeature,
			Resource:   f,
			Confidence: featureContextConfidence,
			Strategy:   types.StrategyFeatureContext,
			Reason:     "Active feature in this session",
		})
		predictions = append(predictions, types.Prediction{
			Type:       types.PredictionQuery,
			Resource:   f + " implementation",
			Confidence: featureContextQueryConf,
			Strategy:   types.StrategyFeatureContext,
			Reason:     "Active feature in this session",
		})
	}
	return predictions
}
