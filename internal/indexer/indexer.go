// Package indexer implements the incremental file indexer from spec.md
// §4.4: walks a project tree, diffs files against a persisted content-hash
// index, chunks changed files, batch-embeds, upserts to the codebase
// collection, and reconciles deletions.
package indexer

import (
	"context"
	"crypto/md5" //nolint:gosec // content-change fingerprint, not a security boundary
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"ragmemory/internal/cache"
	"ragmemory/internal/config"
	"ragmemory/internal/embedder"
	"ragmemory/internal/errtypes"
	"ragmemory/internal/logging"
	"ragmemory/internal/vectorstore"
	"ragmemory/pkg/types"
)

// Indexer runs at most one index per project at a time.
type Indexer struct {
	store vectorstore.Store
	embed *embedder.Embedder
	cache cache.Cache
	cfg   config.ChunkingConfig

	mu       sync.Mutex
	progress map[string]*Progress
	active   map[string]bool
}

func New(store vectorstore.Store, embed *embedder.Embedder, c cache.Cache, cfg config.ChunkingConfig) *Indexer {
	return &Indexer{
		store:    store,
		embed:    embed,
		cache:    c,
		cfg:      cfg,
		progress: make(map[string]*Progress),
		active:   make(map[string]bool),
	}
}

// Progress returns the last-known (or in-flight) state for project.
func (ix *Indexer) Progress(project string) Progress {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if p, ok := ix.progress[project]; ok {
		return *p
	}
	return Progress{Status: StatusIdle}
}

func (ix *Indexer) tryStart(project string) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.active[project] {
		return false
	}
	ix.active[project] = true
	ix.progress[project] = &Progress{Status: StatusIndexing, StartedAt: time.Now()}
	return true
}

func (ix *Indexer) finish(project string, err error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.active[project] = false
	p := ix.progress[project]
	p.FinishedAt = time.Now()
	if err != nil {
		p.Status = StatusError
		p.Error = err.Error()
		return
	}
	p.Status = StatusCompleted
}

func (ix *Indexer) setProcessed(project string, totalFiles, processed int) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	p := ix.progress[project]
	p.TotalFiles = totalFiles
	p.Processed = processed
}

// Index walks rootPath for project, diffing against the persisted
// FileHashIndex, and upserts changed files' chunks to the codebase
// collection. force clears the collection and the hash index first.
func (ix *Indexer) Index(ctx context.Context, project, rootPath string, force bool) error {
	if !ix.tryStart(project) {
		return errtypes.ErrAlreadyIndexing
	}

	collection := types.CollectionName(project, types.SuffixCodebase)
	var runErr error
	defer func() {
		ix.finish(project, runErr)
	}()

	if err := ix.store.EnsureCollection(ctx, collection); err != nil {
		runErr = fmt.Errorf("ensure collection: %w", err)
		return runErr
	}

	hashIndex, _, err := ix.cache.GetFileIndex(ctx, project)
	if err != nil {
		logging.Warn("indexer: file index read failed, treating as empty", "project", project, "error", err)
		hashIndex = nil
	}
	if hashIndex == nil {
		hashIndex = types.FileHashIndex{}
	}

	if force {
		if err := ix.store.DeleteByFilter(ctx, collection, &vectorstore.Filter{}); err != nil {
			logging.Warn("indexer: force-clear collection failed", "project", project, "error", err)
		}
		hashIndex = types.FileHashIndex{}
	}

	files, err := walkProject(rootPath)
	if err != nil {
		runErr = fmt.Errorf("walk project: %w", err)
		return runErr
	}

	onDisk := make(map[string]bool, len(files))
	for _, f := range files {
		onDisk[f] = true
	}

	var toIndex []string
	for _, f := range files {
		hash, err := hashFile(filepath.Join(rootPath, filepath.FromSlash(f)))
		if err != nil {
			logging.Warn("indexer: hash failed, skipping file", "file", f, "error", err)
			continue
		}
		entry, existed := hashIndex[f]
		if !existed || entry.Hash != hash {
			toIndex = append(toIndex, f)
		}
	}

	for f := range hashIndex {
		if !onDisk[f] {
			if err := ix.store.DeleteByFilter(ctx, collection, fileFilter(f)); err != nil {
				logging.Warn("indexer: delete-by-filter for removed file failed", "file", f, "error", err)
			}
			delete(hashIndex, f)
		}
	}

	ix.setProcessed(project, len(toIndex), 0)

	batchSize := ix.cfg.FileBatchSize
	if batchSize <= 0 {
		batchSize = 20
	}
	processed := 0
	for start := 0; start < len(toIndex); start += batchSize {
		end := start + batchSize
		if end > len(toIndex) {
			end = len(toIndex)
		}
		batch := toIndex[start:end]
		if err := ix.indexFileBatch(ctx, project, collection, rootPath, batch, hashIndex); err != nil {
			runErr = fmt.Errorf("index batch [%d:%d]: %w", start, end, err)
			_ = ix.cache.SetFileIndex(ctx, project, hashIndex)
			return runErr
		}
		processed += len(batch)
		ix.setProcessed(project, len(toIndex), processed)
	}

	if err := ix.cache.SetFileIndex(ctx, project, hashIndex); err != nil {
		logging.Warn("indexer: persisting file index failed", "project", project, "error", err)
	}
	if err := ix.cache.InvalidateCollectionSearch(ctx, collection); err != nil {
		logging.Warn("indexer: search cache invalidation failed", "collection", collection, "error", err)
	}

	return nil
}

func fileFilter(relpath string) *vectorstore.Filter {
	return &vectorstore.Filter{Must: []vectorstore.Condition{{Field: "file", MatchOne: relpath}}}
}

func (ix *Indexer) indexFileBatch(ctx context.Context, project, collection, rootPath string, files []string, hashIndex types.FileHashIndex) error {
	type pending struct {
		file    string
		lang    string
		idx     int
		total   int
		content string
		hash    string
	}
	var chunks []pending

	for _, f := range files {
		absPath := filepath.Join(rootPath, filepath.FromSlash(f))
		data, err := os.ReadFile(absPath)
		if err != nil {
			logging.Warn("indexer: read failed, skipping file", "file", f, "error", err)
			continue
		}
		content := string(data)
		hash := md5Hex(content)

		if _, existed := hashIndex[f]; existed {
			if err := ix.store.DeleteByFilter(ctx, collection, fileFilter(f)); err != nil {
				logging.Warn("indexer: delete previous chunks failed", "file", f, "error", err)
			}
		}

		maxChars := ix.cfg.MaxContentLength
		if maxChars <= 0 {
			maxChars = 1000
		}
		minNW := ix.cfg.MinContentLength
		if minNW <= 0 {
			minNW = 10
		}
		pieces := packContent(content, maxChars, minNW)
		lang := languageForPath(f)
		for i, piece := range pieces {
			chunks = append(chunks, pending{file: f, lang: lang, idx: i, total: len(pieces), content: piece, hash: hash})
		}

		hashIndex[f] = types.FileHashEntry{Hash: hash, IndexedAt: time.Now(), ChunkCount: len(pieces)}
	}

	if len(chunks) == 0 {
		return nil
	}

	embedBatch := ix.cfg.EmbedBatchSize
	if embedBatch <= 0 {
		embedBatch = 100
	}

	var points []vectorstore.Point
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.content
	}

	for start := 0; start < len(texts); start += embedBatch {
		end := start + embedBatch
		if end > len(texts) {
			end = len(texts)
		}
		vectors, err := ix.embed.EmbedBatch(ctx, texts[start:end], embedder.Options{ProjectName: project})
		if err != nil {
			return fmt.Errorf("batch embed: %w", err)
		}
		for j, v := range vectors {
			c := chunks[start+j]
			points = append(points, vectorstore.Point{
				Vector: v,
				Payload: map[string]any{
					"file":        c.file,
					"content":     c.content,
					"language":    c.lang,
					"chunkIndex":  c.idx,
					"totalChunks": c.total,
					"project":     project,
					"indexedAt":   time.Now().Format(time.RFC3339),
					"fileHash":    c.hash,
				},
			})
		}
	}

	if err := ix.store.Upsert(ctx, collection, points); err != nil {
		return fmt.Errorf("upsert: %w", err)
	}
	return nil
}

func hashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return md5Hex(string(data)), nil
}

func md5Hex(content string) string {
	sum := md5.Sum([]byte(content)) //nolint:gosec
	return hex.EncodeToString(sum[:])
}
