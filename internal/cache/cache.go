// Package cache implements the session/project/global multi-level cache
// from spec.md §4.2: a Redis-backed key/value store with three namespaces
// (sess:, proj:, glob:), per-bucket TTLs, write-through promotion on read
// hit, session warming, and session-scoped clearing.
package cache

import (
	"context"
	"time"

	"ragmemory/pkg/types"
)

// TTLs for the namespaced value buckets (spec.md §4.2).
const (
	TTLSessionEmbedding = 30 * time.Minute
	TTLSessionSearch    = 3 * time.Minute
	TTLProjectEmbedding = 1 * time.Hour
	TTLProjectSearch    = 5 * time.Minute
	TTLGlobalEmbedding  = 24 * time.Hour
	TTLStats            = 24 * time.Hour
	TTLSingleLevelEmbed = 1 * time.Hour
	TTLSessionContext   = 1 * time.Hour
)

// Level identifies which cache tier served a read.
type Level int

const (
	LevelMiss Level = iota
	LevelSession
	LevelProject
	LevelGlobal
)

// Cache is the multi-level cache contract used by Embedder, Retrieval,
// Indexer, SessionContext, and PredictiveLoader.
type Cache interface {
	// GetEmbedding tries session, then project, then global, for text's
	// embedding. On an L2/L3 hit it write-throughs to the faster tiers.
	GetEmbedding(ctx context.Context, sessionID, projectName, text string) ([]float32, Level, error)

	// SetEmbedding writes text's vector to all three namespaces
	// concurrently with their respective TTLs. Either sessionID or
	// projectName may be empty to skip that tier.
	SetEmbedding(ctx context.Context, sessionID, projectName, text string, vector []float32) error

	// SetEmbeddingSingleLevel writes only to the global namespace with a
	// 1h TTL, used when no session/project context is available.
	SetEmbeddingSingleLevel(ctx context.Context, text string, vector []float32) error

	// GetSearch tries session then project (search is two-level; no L3).
	GetSearch(ctx context.Context, sessionID, projectName, collection, queryKey string) ([]byte, Level, error)
	SetSearch(ctx context.Context, sessionID, projectName, collection, queryKey string, value []byte) error

	GetCollectionInfo(ctx context.Context, collection string) ([]byte, bool, error)
	SetCollectionInfo(ctx context.Context, collection string, value []byte) error

	GetFileIndex(ctx context.Context, project string) (types.FileHashIndex, bool, error)
	SetFileIndex(ctx context.Context, project string, index types.FileHashIndex) error

	// GetSessionContext/SetSessionContext persist the serialized
	// SessionContext snapshot under sess:<sessionID>:context with a 1h TTL
	// (spec.md §4.6 step 5). The value is an opaque JSON blob owned by the
	// sessioncore package.
	GetSessionContext(ctx context.Context, sessionID string) ([]byte, bool, error)
	SetSessionContext(ctx context.Context, sessionID string, value []byte) error

	GetStats(ctx context.Context, sessionID string) (types.CacheStats, error)
	IncrStat(ctx context.Context, sessionID, metric string) error

	// WarmSession copies up to 100 L1 keys from prevSessionID into
	// sessionID's L1, and lifts up to 20 recentQueries from L2/L3 into L1.
	// Best-effort: failures are swallowed.
	WarmSession(ctx context.Context, sessionID, prevSessionID string, recentQueries []string, projectName string)

	// ClearSession deletes every key under sess:<sessionID>:*.
	ClearSession(ctx context.Context, sessionID string) error

	// InvalidateCollectionSearch deletes every cached search result for
	// collection, across every session and project bucket, after an index
	// run changes the collection's contents (spec.md §4.4 step 7).
	InvalidateCollectionSearch(ctx context.Context, collection string) error

	HealthCheck(ctx context.Context) error
	Close() error
}
