// Package di wires the retrieval core's components into the dependency
// graph from spec.md §9: MemoryGovernance, SessionContext, and
// PredictiveLoader each depend downward on Embedder/Cache/VectorStore only,
// never on each other, so nothing here introduces a cycle.
package di

import (
	"fmt"
	"time"

	"ragmemory/internal/cache"
	"ragmemory/internal/circuitbreaker"
	"ragmemory/internal/config"
	"ragmemory/internal/decay"
	"ragmemory/internal/embedder"
	"ragmemory/internal/embeddings"
	"ragmemory/internal/indexer"
	"ragmemory/internal/logging"
	"ragmemory/internal/memory"
	"ragmemory/internal/predictor"
	"ragmemory/internal/retry"
	"ragmemory/internal/retrieval"
	"ragmemory/internal/sessioncore"
	"ragmemory/internal/usage"
	"ragmemory/internal/vectorstore"
	sharedai "ragmemory/pkg/ai"
)

// Container holds every wired component the HTTP surface (internal/api)
// and cmd/server need. Construction order follows the DAG: Cache/
// VectorStore/Embedder first, then MemoryGovernance, then Retrieval,
// UsagePatterns/FactExtractor, Indexer and PredictiveLoader, and
// SessionContext last, since it depends on Governance, Patterns and the
// PredictiveLoader together.
type Container struct {
	Config *config.Config
	Logger logging.Logger

	Cache       cache.Cache
	VectorStore vectorstore.Store
	Embedder    *embedder.Embedder

	Governance *memory.Governance
	Session    *sessioncore.Manager
	Predictor  *predictor.Loader
	Retrieval  *retrieval.Primitives
	Patterns   *usage.Patterns
	Facts      *usage.FactExtractor
	Indexer    *indexer.Indexer
}

// NewContainer builds the full dependency graph from cfg. It never talks
// to the network itself (Redis/Qdrant/OpenAI clients connect lazily on
// first use); callers should follow with a health check if they want to
// fail fast on a misconfigured backend.
func NewContainer(cfg *config.Config) (*Container, error) {
	c := &Container{Config: cfg}

	c.Logger = logging.NewLogger(logging.ParseLogLevel(cfg.Logging.Level))

	c.Cache = cache.NewRedisCache(&cfg.Redis)

	store, err := newVectorStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("di: vector store: %w", err)
	}
	c.VectorStore = store

	provider, err := newEmbeddingProvider(&cfg.OpenAI)
	if err != nil {
		return nil, fmt.Errorf("di: embedding provider: %w", err)
	}
	c.Embedder = embedder.New(provider, c.Cache)

	gates := memory.NewHTTPGateRunner(cfg.Server.QualityGateURL, time.Duration(cfg.Qdrant.TimeoutSeconds)*time.Second)
	c.Governance = memory.New(c.VectorStore, c.Embedder, c.Cache, gates)

	c.Retrieval = retrieval.New(c.VectorStore, c.Embedder)
	c.Patterns = usage.NewPatterns(c.VectorStore, c.Embedder)
	c.Facts = usage.NewFactExtractor(c.Governance)
	c.Indexer = indexer.New(c.VectorStore, c.Embedder, c.Cache, cfg.Chunking)

	c.Predictor = predictor.New(c.VectorStore, c.Cache, c.Embedder)

	summarizer := newSummarizer(&cfg.AI)
	c.Session = sessioncore.New(c.VectorStore, c.Cache, c.Embedder, c.Governance, c.Patterns, c.Predictor, summarizer)

	return c, nil
}

// newVectorStore wraps the Qdrant client with retry then circuit-breaker
// protection, same layering the teacher used for its storage adapters.
func newVectorStore(cfg *config.Config) (vectorstore.Store, error) {
	base := vectorstore.NewQdrantStore(&cfg.Qdrant)

	retried := vectorstore.NewRetryStore(base, retryConfigFor(cfg.Qdrant))
	protected := vectorstore.NewCircuitBreakerStore(retried, circuitBreakerConfigFor(cfg.Qdrant))
	return protected, nil
}

func retryConfigFor(qdrant config.QdrantConfig) *retry.Config {
	rc := retry.DefaultConfig()
	if qdrant.RetryAttempts > 0 {
		rc.MaxAttempts = qdrant.RetryAttempts
	}
	return rc
}

func circuitBreakerConfigFor(qdrant config.QdrantConfig) *circuitbreaker.Config {
	cb := circuitbreaker.DefaultConfig()
	if qdrant.TimeoutSeconds > 0 {
		cb.Timeout = time.Duration(qdrant.TimeoutSeconds) * time.Second
	}
	return cb
}

// newEmbeddingProvider wraps the OpenAI embedding service with retry then
// circuit-breaker protection, then narrows it to embedder.Provider.
func newEmbeddingProvider(cfg *config.OpenAIConfig) (embedder.Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required to construct the embedding provider")
	}
	base := embeddings.NewOpenAIEmbeddingService(cfg)
	retried := embeddings.NewRetryableEmbeddingService(base, retry.DefaultConfig())
	protected := embeddings.NewCircuitBreakerEmbeddingService(retried, circuitbreaker.DefaultConfig())
	return protected, nil
}

// newSummarizer picks the auto-merge Summarizer's LLM collaborator: the
// first enabled provider in Claude/OpenAI/Perplexity order, or the
// rule-based DefaultSummarizer if none are configured.
func newSummarizer(cfg *config.AIConfig) decay.Summarizer {
	client := newAIClient(cfg)
	if client == nil {
		return decay.NewDefaultSummarizer()
	}
	adapter := sessioncore.NewAIClientAdapter(client)
	return decay.NewLLMSummarizer(nil, adapter)
}

func newAIClient(cfg *config.AIConfig) sharedai.AIClient {
	if cfg.Claude.Enabled && cfg.Claude.APIKey != "" {
		if client, err := sharedai.NewClaudeClient(cfg.Claude.APIKey, cfg.Claude.Model); err == nil {
			return client
		}
	}
	if cfg.OpenAI.Enabled && cfg.OpenAI.APIKey != "" {
		if client, err := sharedai.NewOpenAIClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model); err == nil {
			return client
		}
	}
	if cfg.Perplexity.Enabled && cfg.Perplexity.APIKey != "" {
		if client, err := sharedai.NewPerplexityClient(cfg.Perplexity.APIKey, cfg.Perplexity.Model); err == nil {
			return client
		}
	}
	return nil
}

// Close releases resources held by the container's components (currently
// just the Redis connection; Qdrant's gRPC client and the OpenAI HTTP
// client close implicitly with the process).
func (c *Container) Close() error {
	if closer, ok := c.Cache.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
