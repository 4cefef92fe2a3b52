// Package decay provides summarization used when the session core merges a
// cluster of related durable memories into one during auto-merge.
package decay

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"ragmemory/pkg/types"

	"github.com/google/uuid"
)

// EmbeddingGenerator produces an embedding vector for a piece of text, for the
// similarity-grouping pass. internal/embedder.Embedder does not implement it
// (its method is Embed, which takes Options).
type EmbeddingGenerator interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// Summarizer merges a cluster of related memories into a single summary memory.
type Summarizer interface {
	Summarize(ctx context.Context, memories []types.Memory) (string, error)
	SummarizeChain(ctx context.Context, memories []types.Memory) (types.Memory, error)
}

// DefaultSummarizer builds a rule-based summary with no LLM involved. It is
// the fallback path when the LLM collaborator is unavailable or fails.
type DefaultSummarizer struct{}

// NewDefaultSummarizer creates a new default summarizer.
func NewDefaultSummarizer() *DefaultSummarizer {
	return &DefaultSummarizer{}
}

// Summarize creates a plain-text summary of a memory cluster.
func (s *DefaultSummarizer) Summarize(_ context.Context, memories []types.Memory) (string, error) {
	if len(memories) == 0 {
		return "", errors.New("no memories to summarize")
	}

	sort.Slice(memories, func(i, j int) bool {
		return memories[i].CreatedAt.Before(memories[j].CreatedAt)
	})

	var parts []string

	startTime := memories[0].CreatedAt
	endTime := memories[len(memories)-1].CreatedAt
	parts = append(parts, fmt.Sprintf("Memory summary from %s to %s",
		startTime.Format("Jan 2, 2006"), endTime.Format("Jan 2, 2006")))

	typeCounts := make(map[types.MemoryType]int)
	for i := range memories {
		typeCounts[memories[i].Type]++
	}
	typeInfo := make([]string, 0, len(typeCounts))
	for memType, count := range typeCounts {
		typeInfo = append(typeInfo, fmt.Sprintf("%d %s", count, memType))
	}
	sort.Strings(typeInfo)
	parts = append(parts, "Contains: "+strings.Join(typeInfo, ", "))

	if tags := s.topTags(memories); len(tags) > 0 {
		parts = append(parts, "Tags: "+strings.Join(tags, ", "))
	}

	return strings.Join(parts, ". "), nil
}

// SummarizeChain creates a single durable memory from a cluster.
func (s *DefaultSummarizer) SummarizeChain(ctx context.Context, memories []types.Memory) (types.Memory, error) {
	if len(memories) == 0 {
		return types.Memory{}, errors.New("no memories to summarize")
	}

	content, err := s.Summarize(ctx, memories)
	if err != nil {
		return types.Memory{}, err
	}

	related := make([]string, 0, len(memories))
	allTags := make(map[string]bool)
	for i := range memories {
		related = append(related, memories[i].ID)
		for _, tag := range memories[i].Tags {
			allTags[tag] = true
		}
	}
	tags := make([]string, 0, len(allTags)+1)
	tags = append(tags, "merged")
	for t := range allTags {
		tags = append(tags, t)
	}

	merged, err := types.NewMemory(content, types.MemoryTypeInsight, types.SourceAutoPattern)
	if err != nil {
		return types.Memory{}, err
	}
	merged.Tags = tags
	merged.CreatedAt = memories[0].CreatedAt
	merged.Metadata = map[string]interface{}{
		"mergedFrom":    related,
		"originalCount": len(memories),
	}
	return *merged, nil
}

func (s *DefaultSummarizer) topTags(memories []types.Memory) []string {
	freq := make(map[string]int)
	for i := range memories {
		for _, tag := range memories[i].Tags {
			freq[strings.ToLower(tag)]++
		}
	}
	return getTopItems(freq, 5)
}

func getTopItems(freq map[string]int, limit int) []string {
	type item struct {
		word  string
		count int
	}
	items := make([]item, 0, len(freq))
	for word, count := range freq {
		items = append(items, item{word, count})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].count > items[j].count })
	if limit > len(items) {
		limit = len(items)
	}
	result := make([]string, 0, limit)
	for i := 0; i < limit; i++ {
		result = append(result, items[i].word)
	}
	return result
}

// LLMSummarizer uses an LLM collaborator for narrative-aware summarization,
// falling back to DefaultSummarizer behavior on any embedding/LLM failure.
type LLMSummarizer struct {
	*DefaultSummarizer
	embeddingGen EmbeddingGenerator
	llm          LLMClient
}

// LLMClient is the minimal contract this package needs from pkg/ai's
// provider clients: a single free-text completion call.
type LLMClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// NewLLMSummarizer creates a new LLM-based summarizer. llm may be nil, in
// which case Summarize always falls back to the rule-based path.
func NewLLMSummarizer(embeddingGen EmbeddingGenerator, llm LLMClient) *LLMSummarizer {
	return &LLMSummarizer{
		DefaultSummarizer: NewDefaultSummarizer(),
		embeddingGen:      embeddingGen,
		llm:               llm,
	}
}

// Summarize groups memories by semantic similarity and asks the LLM for a
// narrative summary; on any LLM error it falls back to the rule-based summary.
func (l *LLMSummarizer) Summarize(ctx context.Context, memories []types.Memory) (string, error) {
	if len(memories) == 0 {
		return "", errors.New("no memories to summarize")
	}
	if l.llm == nil {
		return l.DefaultSummarizer.Summarize(ctx, memories)
	}

	groups := l.groupBySemanticSimilarity(ctx, memories)
	prompt := l.buildPrompt(memories, groups)

	summary, err := l.llm.Complete(ctx, prompt)
	if err != nil || strings.TrimSpace(summary) == "" {
		return l.DefaultSummarizer.Summarize(ctx, memories)
	}
	return summary, nil
}

// SummarizeChain creates a single durable memory using the LLM narrative
// summary (or the rule-based fallback) as its content.
func (l *LLMSummarizer) SummarizeChain(ctx context.Context, memories []types.Memory) (types.Memory, error) {
	content, err := l.Summarize(ctx, memories)
	if err != nil {
		return types.Memory{}, err
	}

	related := make([]string, 0, len(memories))
	allTags := make(map[string]bool)
	for i := range memories {
		related = append(related, memories[i].ID)
		for _, tag := range memories[i].Tags {
			allTags[tag] = true
		}
	}
	tags := make([]string, 0, len(allTags)+1)
	tags = append(tags, "merged")
	for t := range allTags {
		tags = append(tags, t)
	}

	sort.Slice(memories, func(i, j int) bool { return memories[i].CreatedAt.Before(memories[j].CreatedAt) })

	merged, err := types.NewMemory(content, types.MemoryTypeInsight, types.SourceAutoPattern)
	if err != nil {
		return types.Memory{}, err
	}
	merged.ID = uuid.New().String()
	merged.Tags = tags
	merged.CreatedAt = memories[0].CreatedAt
	merged.Metadata = map[string]interface{}{
		"mergedFrom":    related,
		"originalCount": len(memories),
	}
	return *merged, nil
}

type embeddedMemory struct {
	memory    types.Memory
	embedding []float32
}

func (l *LLMSummarizer) groupBySemanticSimilarity(ctx context.Context, memories []types.Memory) [][]types.Memory {
	if l.embeddingGen == nil || len(memories) < 2 {
		return [][]types.Memory{memories}
	}

	embedded := make([]embeddedMemory, 0, len(memories))
	for i := range memories {
		text := memories[i].Content
		if len(text) > 1000 {
			text = text[:1000]
		}
		if emb, err := l.embeddingGen.GenerateEmbedding(ctx, text); err == nil {
			embedded = append(embedded, embeddedMemory{memory: memories[i], embedding: emb})
		}
	}
	if len(embedded) == 0 {
		return [][]types.Memory{memories}
	}
	return l.clusterBySimilarity(embedded, 0.8)
}

func (l *LLMSummarizer) clusterBySimilarity(embedded []embeddedMemory, threshold float64) [][]types.Memory {
	groups := make([][]types.Memory, 0)
	used := make(map[int]bool)

	for i := range embedded {
		if used[i] {
			continue
		}
		group := []types.Memory{embedded[i].memory}
		used[i] = true

		for j := range embedded {
			if used[j] || i == j {
				continue
			}
			if cosineSimilarity(embedded[i].embedding, embedded[j].embedding) >= threshold {
				group = append(group, embedded[j].memory)
				used[j] = true
			}
		}
		groups = append(groups, group)
	}
	return groups
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i] * b[i])
		normA += float64(a[i] * a[i])
		normB += float64(b[i] * b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func (l *LLMSummarizer) buildPrompt(memories []types.Memory, groups [][]types.Memory) string {
	var b strings.Builder
	b.WriteString("Merge the following related memories into one concise summary memory. ")
	b.WriteString("Preserve concrete facts, decisions, and outcomes; drop repetition.\n\n")
	for gi, group := range groups {
		fmt.Fprintf(&b, "Group %d:\n", gi+1)
		for _, m := range group {
			fmt.Fprintf(&b, "- [%s] %s\n", m.Type, truncate(m.Content, 300))
		}
	}
	b.WriteString(fmt.Sprintf("\n%d memories total, spanning %s to %s.\n",
		len(memories), memories[0].CreatedAt.Format(time.RFC3339), memories[len(memories)-1].CreatedAt.Format(time.RFC3339)))
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
