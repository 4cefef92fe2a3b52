package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"

	"ragmemory/internal/config"
	"ragmemory/internal/errtypes"
	"ragmemory/internal/logging"
	"ragmemory/pkg/types"

	"github.com/redis/go-redis/v9"
)

const (
	warmScanKeyLimit   = 100
	warmQueryLimit     = 20
	scanBatchSize      = 200
	statsFieldL1Hits   = "l1_hits"
	statsFieldL2Hits   = "l2_hits"
	statsFieldL3Hits   = "l3_hits"
	statsFieldMisses   = "misses"
	statsFieldSearchL1 = "search_l1_hits"
	statsFieldSearchL2 = "search_l2_hits"
	statsFieldSearchMs = "search_misses"
)

// RedisCache implements Cache against a single Redis instance. All methods
// are safe for concurrent use; the client itself pools connections.
type RedisCache struct {
	client redis.UniversalClient

	mu sync.Mutex // serializes WarmSession scans so two sessions never interleave
}

// NewRedisCache does not dial: the client connects lazily on first use, so
// call HealthCheck to verify liveness after construction if desired.
func NewRedisCache(cfg *config.RedisConfig) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &RedisCache{client: client}
}

func (c *RedisCache) HealthCheck(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return errtypes.Wrap("cache.health_check", errtypes.CategoryRetryable, err)
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func encodeVector(v []float32) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeVector(s string) ([]float32, error) {
	var v []float32
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, err
	}
	return v, nil
}

// GetEmbedding tries session, then project, then global, write-throughing
// on an L2/L3 hit so the next lookup for the same text is an L1 hit.
func (c *RedisCache) GetEmbedding(ctx context.Context, sessionID, projectName, text string) ([]float32, Level, error) {
	space := embValueSpace(text)

	if sessionID != "" {
		if raw, err := c.client.Get(ctx, sessionKey(sessionID, space)).Result(); err == nil {
			v, derr := decodeVector(raw)
			if derr == nil {
				_ = c.IncrStat(ctx, sessionID, statsFieldL1Hits)
				return v, LevelSession, nil
			}
		}
	}

	if projectName != "" {
		if raw, err := c.client.Get(ctx, projectKey(projectName, space)).Result(); err == nil {
			v, derr := decodeVector(raw)
			if derr == nil {
				if sessionID != "" {
					_ = c.client.Set(ctx, sessionKey(sessionID, space), raw, TTLSessionEmbedding).Err()
					_ = c.IncrStat(ctx, sessionID, statsFieldL2Hits)
				}
				return v, LevelProject, nil
			}
		}
	}

	raw, err := c.client.Get(ctx, globalKey(space)).Result()
	if err != nil {
		if sessionID != "" {
			_ = c.IncrStat(ctx, sessionID, statsFieldMisses)
		}
		if err == redis.Nil {
			return nil, LevelMiss, nil
		}
		return nil, LevelMiss, errtypes.Wrap("cache.get_embedding", errtypes.CategoryRetryable, err)
	}
	v, derr := decodeVector(raw)
	if derr != nil {
		return nil, LevelMiss, nil
	}
	if sessionID != "" {
		_ = c.client.Set(ctx, sessionKey(sessionID, space), raw, TTLSessionEmbedding).Err()
		_ = c.IncrStat(ctx, sessionID, statsFieldL3Hits)
	}
	if projectName != "" {
		_ = c.client.Set(ctx, projectKey(projectName, space), raw, TTLProjectEmbedding).Err()
	}
	return v, LevelGlobal, nil
}

// SetEmbedding writes to all three namespaces concurrently; idempotent,
// last write wins within a TTL window (spec.md §4.2).
func (c *RedisCache) SetEmbedding(ctx context.Context, sessionID, projectName, text string, vector []float32) error {
	raw, err := encodeVector(vector)
	if err != nil {
		return errtypes.Wrap("cache.set_embedding", errtypes.CategoryPermanent, err)
	}
	space := embValueSpace(text)

	var wg sync.WaitGroup
	if sessionID != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.client.Set(ctx, sessionKey(sessionID, space), raw, TTLSessionEmbedding).Err(); err != nil {
				logging.Warn("cache set session embedding failed", "session", sessionID, "error", err)
			}
		}()
	}
	if projectName != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.client.Set(ctx, projectKey(projectName, space), raw, TTLProjectEmbedding).Err(); err != nil {
				logging.Warn("cache set project embedding failed", "project", projectName, "error", err)
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := c.client.Set(ctx, globalKey(space), raw, TTLGlobalEmbedding).Err(); err != nil {
			logging.Warn("cache set global embedding failed", "error", err)
		}
	}()
	wg.Wait()
	return nil
}

func (c *RedisCache) SetEmbeddingSingleLevel(ctx context.Context, text string, vector []float32) error {
	raw, err := encodeVector(vector)
	if err != nil {
		return errtypes.Wrap("cache.set_embedding_single", errtypes.CategoryPermanent, err)
	}
	if err := c.client.Set(ctx, globalKey(embValueSpace(text)), raw, TTLSingleLevelEmbed).Err(); err != nil {
		return errtypes.Wrap("cache.set_embedding_single", errtypes.CategoryRetryable, err)
	}
	return nil
}

// GetSearch is two-level: session then project. There is no L3 for search
// results (spec.md §4.2: collection-scoped result sets are rarely hot
// across projects).
func (c *RedisCache) GetSearch(ctx context.Context, sessionID, projectName, collection, queryKey string) ([]byte, Level, error) {
	space := searchValueSpace(collection, queryKey)

	if sessionID != "" {
		if raw, err := c.client.Get(ctx, sessionKey(sessionID, space)).Bytes(); err == nil {
			_ = c.IncrStat(ctx, sessionID, statsFieldSearchL1)
			return raw, LevelSession, nil
		}
	}

	if projectName != "" {
		raw, err := c.client.Get(ctx, projectKey(projectName, space)).Bytes()
		if err == nil {
			if sessionID != "" {
				_ = c.client.Set(ctx, sessionKey(sessionID, space), raw, TTLSessionSearch).Err()
				_ = c.IncrStat(ctx, sessionID, statsFieldSearchL2)
			}
			return raw, LevelProject, nil
		}
		if err != redis.Nil {
			return nil, LevelMiss, errtypes.Wrap("cache.get_search", errtypes.CategoryRetryable, err)
		}
	}

	if sessionID != "" {
		_ = c.IncrStat(ctx, sessionID, statsFieldSearchMs)
	}
	return nil, LevelMiss, nil
}

func (c *RedisCache) SetSearch(ctx context.Context, sessionID, projectName, collection, queryKey string, value []byte) error {
	space := searchValueSpace(collection, queryKey)
	if sessionID != "" {
		if err := c.client.Set(ctx, sessionKey(sessionID, space), value, TTLSessionSearch).Err(); err != nil {
			logging.Warn("cache set session search failed", "session", sessionID, "error", err)
		}
	}
	if projectName != "" {
		if err := c.client.Set(ctx, projectKey(projectName, space), value, TTLProjectSearch).Err(); err != nil {
			logging.Warn("cache set project search failed", "project", projectName, "error", err)
		}
	}
	return nil
}

func (c *RedisCache) GetCollectionInfo(ctx context.Context, collection string) ([]byte, bool, error) {
	raw, err := c.client.Get(ctx, globalKey(colInfoValueSpace(collection))).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, errtypes.Wrap("cache.get_collection_info", errtypes.CategoryRetryable, err)
	}
	return raw, true, nil
}

func (c *RedisCache) SetCollectionInfo(ctx context.Context, collection string, value []byte) error {
	if err := c.client.Set(ctx, globalKey(colInfoValueSpace(collection)), value, TTLGlobalEmbedding).Err(); err != nil {
		return errtypes.Wrap("cache.set_collection_info", errtypes.CategoryRetryable, err)
	}
	return nil
}

// GetFileIndex has no TTL: it is owned exclusively by the Indexer and
// re-derivable, so staleness is never a correctness issue (spec.md §5).
func (c *RedisCache) GetFileIndex(ctx context.Context, project string) (types.FileHashIndex, bool, error) {
	raw, err := c.client.Get(ctx, projectKey(project, fileIndexValueSpace)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, errtypes.Wrap("cache.get_file_index", errtypes.CategoryRetryable, err)
	}
	var idx types.FileHashIndex
	if err := json.Unmarshal(raw, &idx); err != nil {
		return nil, false, errtypes.Wrap("cache.get_file_index", errtypes.CategoryPermanent, err)
	}
	return idx, true, nil
}

func (c *RedisCache) SetFileIndex(ctx context.Context, project string, index types.FileHashIndex) error {
	raw, err := json.Marshal(index)
	if err != nil {
		return errtypes.Wrap("cache.set_file_index", errtypes.CategoryPermanent, err)
	}
	if err := c.client.Set(ctx, projectKey(project, fileIndexValueSpace), raw, 0).Err(); err != nil {
		return errtypes.Wrap("cache.set_file_index", errtypes.CategoryRetryable, err)
	}
	return nil
}

func (c *RedisCache) GetSessionContext(ctx context.Context, sessionID string) ([]byte, bool, error) {
	raw, err := c.client.Get(ctx, sessionKey(sessionID, sessionContextValueSpace)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, errtypes.Wrap("cache.get_session_context", errtypes.CategoryRetryable, err)
	}
	return raw, true, nil
}

func (c *RedisCache) SetSessionContext(ctx context.Context, sessionID string, value []byte) error {
	if err := c.client.Set(ctx, sessionKey(sessionID, sessionContextValueSpace), value, TTLSessionContext).Err(); err != nil {
		return errtypes.Wrap("cache.set_session_context", errtypes.CategoryRetryable, err)
	}
	return nil
}

func (c *RedisCache) GetStats(ctx context.Context, sessionID string) (types.CacheStats, error) {
	metrics := []string{statsFieldL1Hits, statsFieldL2Hits, statsFieldL3Hits, statsFieldMisses, statsFieldSearchL1, statsFieldSearchL2, statsFieldSearchMs}
	keys := make([]string, len(metrics))
	for i, m := range metrics {
		keys[i] = sessionKey(sessionID, statsValueSpace(m))
	}
	vals, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return types.CacheStats{}, errtypes.Wrap("cache.get_stats", errtypes.CategoryRetryable, err)
	}
	return types.CacheStats{
		L1Hits:       mgetInt64(vals, 0),
		L2Hits:       mgetInt64(vals, 1),
		L3Hits:       mgetInt64(vals, 2),
		Misses:       mgetInt64(vals, 3),
		SearchL1Hits: mgetInt64(vals, 4),
		SearchL2Hits: mgetInt64(vals, 5),
		SearchMisses: mgetInt64(vals, 6),
	}, nil
}

func mgetInt64(vals []interface{}, i int) int64 {
	if i >= len(vals) || vals[i] == nil {
		return 0
	}
	s, ok := vals[i].(string)
	if !ok {
		return 0
	}
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

func (c *RedisCache) IncrStat(ctx context.Context, sessionID, metric string) error {
	key := sessionKey(sessionID, statsValueSpace(metric))
	pipe := c.client.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, TTLStats)
	if _, err := pipe.Exec(ctx); err != nil {
		return errtypes.Wrap("cache.incr_stat", errtypes.CategoryRetryable, err)
	}
	return nil
}

// WarmSession scans up to 100 of prevSessionID's L1 keys and copies them
// into sessionID's L1 with a fresh TTL, then lifts up to 20 recentQueries'
// embeddings from L2/L3 into L1. Best-effort: every failure is logged
// and swallowed so a cold warm never blocks session startup.
func (c *RedisCache) WarmSession(ctx context.Context, sessionID, prevSessionID string, recentQueries []string, projectName string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if prevSessionID != "" {
		c.copyPreviousSessionKeys(ctx, sessionID, prevSessionID)
	}

	limit := warmQueryLimit
	if len(recentQueries) < limit {
		limit = len(recentQueries)
	}
	for _, q := range recentQueries[:limit] {
		c.liftQueryIntoSession(ctx, sessionID, projectName, q)
	}
}

func (c *RedisCache) copyPreviousSessionKeys(ctx context.Context, sessionID, prevSessionID string) {
	pattern := sessionKey(prevSessionID, "*")
	var cursor uint64
	copied := 0
	for copied < warmScanKeyLimit {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, scanBatchSize).Result()
		if err != nil {
			logging.Warn("cache warm session scan failed", "session", sessionID, "error", err)
			return
		}
		for _, k := range keys {
			if copied >= warmScanKeyLimit {
				return
			}
			val, err := c.client.Get(ctx, k).Result()
			if err != nil {
				continue
			}
			suffix := k[len(sessionKey(prevSessionID, "")):]
			if err := c.client.Set(ctx, sessionKey(sessionID, suffix), val, TTLSessionEmbedding).Err(); err != nil {
				logging.Warn("cache warm session copy failed", "key", k, "error", err)
			}
			copied++
		}
		if next == 0 {
			return
		}
		cursor = next
	}
}

func (c *RedisCache) liftQueryIntoSession(ctx context.Context, sessionID, projectName, query string) {
	space := embValueSpace(query)
	if projectName != "" {
		if raw, err := c.client.Get(ctx, projectKey(projectName, space)).Result(); err == nil {
			_ = c.client.Set(ctx, sessionKey(sessionID, space), raw, TTLSessionEmbedding).Err()
			return
		}
	}
	if raw, err := c.client.Get(ctx, globalKey(space)).Result(); err == nil {
		_ = c.client.Set(ctx, sessionKey(sessionID, space), raw, TTLSessionEmbedding).Err()
	}
}

// InvalidateCollectionSearch scans the whole keyspace for search cache
// entries scoped to collection, in any session or project bucket, and
// deletes them. Full-keyspace SCAN is acceptable here: index runs are rare
// relative to cache reads, and the pattern still anchors on the value-space
// suffix to keep each scanned batch cheap to filter.
func (c *RedisCache) InvalidateCollectionSearch(ctx context.Context, collection string) error {
	pattern := "*search:" + collection + ":*"
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, scanBatchSize).Result()
		if err != nil {
			return errtypes.Wrap("cache.invalidate_collection_search", errtypes.CategoryRetryable, err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return errtypes.Wrap("cache.invalidate_collection_search", errtypes.CategoryRetryable, err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// ClearSession deletes every key under sess:<sessionID>:*.
func (c *RedisCache) ClearSession(ctx context.Context, sessionID string) error {
	pattern := sessionKey(sessionID, "*")
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, scanBatchSize).Result()
		if err != nil {
			return errtypes.Wrap("cache.clear_session", errtypes.CategoryRetryable, err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return errtypes.Wrap("cache.clear_session", errtypes.CategoryRetryable, err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
