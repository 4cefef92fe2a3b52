package vectorstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ragmemory/internal/config"
	"ragmemory/internal/errtypes"
	"ragmemory/internal/logging"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

const (
	defaultVectorSize     = 1536 // OpenAI text-embedding-3-small/large default
	upsertBatchSize       = 100
	defaultSegmentNumber  = 2
	connectionStatusError = "error"
)

var payloadIndexFields = []string{"type", "tags", "file", "timestamp", "sessionId", "validated", "source", "project"}

// QdrantStore implements Store against a Qdrant cluster. One instance is
// shared process-wide across every project's collections.
type QdrantStore struct {
	client *qdrant.Client
	cfg    *config.QdrantConfig

	mu              sync.Mutex
	ensuring        map[string]chan struct{} // in-flight EnsureCollection calls, keyed by name
	knownCollection map[string]bool

	status string
}

// NewQdrantStore dials no connection yet; call Initialize before use.
func NewQdrantStore(cfg *config.QdrantConfig) *QdrantStore {
	return &QdrantStore{
		cfg:             cfg,
		ensuring:        make(map[string]chan struct{}),
		knownCollection: make(map[string]bool),
		status:          "unknown",
	}
}

// Initialize opens the Qdrant client connection. It does not create any
// collection; collections are created lazily per-project by EnsureCollection.
func (qs *QdrantStore) Initialize(ctx context.Context) error {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:                   qs.cfg.Host,
		Port:                   qs.cfg.Port,
		APIKey:                 qs.cfg.APIKey,
		UseTLS:                 qs.cfg.UseTLS,
		SkipCompatibilityCheck: true,
	})
	if err != nil {
		qs.status = connectionStatusError
		return errtypes.Wrap("vectorstore.initialize", errtypes.CategoryResource, fmt.Errorf("failed to create qdrant client: %w", err))
	}
	qs.client = client
	qs.status = "connected"
	logging.Info("vectorstore initialized", "host", qs.cfg.Host, "port", qs.cfg.Port)
	return nil
}

func (qs *QdrantStore) Close() error {
	qs.status = "closed"
	return nil
}

func (qs *QdrantStore) HealthCheck(ctx context.Context) error {
	_, err := qs.client.HealthCheck(ctx)
	if err != nil {
		qs.status = connectionStatusError
		return errtypes.Wrap("vectorstore.health_check", errtypes.CategoryRetryable, err)
	}
	qs.status = "healthy"
	return nil
}

// EnsureCollection is idempotent and safe under concurrent invocation: the
// first caller for a given name creates it while later concurrent callers
// for the same name wait on the same in-flight channel instead of racing
// CreateCollection.
func (qs *QdrantStore) EnsureCollection(ctx context.Context, name string) error {
	qs.mu.Lock()
	if qs.knownCollection[name] {
		qs.mu.Unlock()
		return nil
	}
	if wait, inFlight := qs.ensuring[name]; inFlight {
		qs.mu.Unlock()
		<-wait
		qs.mu.Lock()
		known := qs.knownCollection[name]
		qs.mu.Unlock()
		if known {
			return nil
		}
		return errtypes.Wrap("vectorstore.ensure_collection", errtypes.CategoryRetryable, fmt.Errorf("collection %s: concurrent creation failed", name))
	}
	done := make(chan struct{})
	qs.ensuring[name] = done
	qs.mu.Unlock()

	err := qs.ensureCollectionOnce(ctx, name)

	qs.mu.Lock()
	if err == nil {
		qs.knownCollection[name] = true
	}
	delete(qs.ensuring, name)
	qs.mu.Unlock()
	close(done)

	return err
}

func (qs *QdrantStore) ensureCollectionOnce(ctx context.Context, name string) error {
	exists, err := qs.client.CollectionExists(ctx, name)
	if err != nil {
		return errtypes.Wrap("vectorstore.ensure_collection", errtypes.CategoryRetryable, err)
	}
	if exists {
		return nil
	}

	size := uint64(defaultVectorSize)
	segments := uint64(defaultSegmentNumber)
	err = qs.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     size,
			Distance: qdrant.Distance_Cosine,
		}),
		SparseVectorsConfig: qdrant.NewSparseVectorsConfig(map[string]*qdrant.SparseVectorParams{
			"sparse": {},
		}),
		OptimizersConfig: &qdrant.OptimizersConfigDiff{
			DefaultSegmentNumber: &segments,
		},
	})
	if err != nil {
		return errtypes.Wrap("vectorstore.ensure_collection", errtypes.CategoryRetryable, fmt.Errorf("create collection %s: %w", name, err))
	}

	for _, field := range payloadIndexFields {
		if ferr := qs.createPayloadIndex(ctx, name, field); ferr != nil {
			logging.Warn("payload index creation failed", "collection", name, "field", field, "error", ferr)
		}
	}

	logging.Info("created vectorstore collection", "collection", name)
	return nil
}

func (qs *QdrantStore) createPayloadIndex(ctx context.Context, name, field string) error {
	schema := qdrant.FieldType_FieldTypeKeyword
	switch field {
	case "timestamp":
		schema = qdrant.FieldType_FieldTypeFloat
	case "validated":
		schema = qdrant.FieldType_FieldTypeBool
	}
	_, err := qs.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: name,
		FieldName:      field,
		FieldType:      &schema,
	})
	return err
}

// Upsert assigns UUIDs to any point missing one, ensures the collection
// exists, then writes in batches of 100 with a blocking wait for commit.
func (qs *QdrantStore) Upsert(ctx context.Context, name string, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	if err := qs.EnsureCollection(ctx, name); err != nil {
		return err
	}

	for i := range points {
		if points[i].ID == "" {
			points[i].ID = uuid.New().String()
		}
	}

	wait := true
	for start := 0; start < len(points); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(points) {
			end = len(points)
		}
		batch := make([]*qdrant.PointStruct, end-start)
		for i, p := range points[start:end] {
			batch[i] = pointToStruct(p)
		}
		_, err := qs.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: name,
			Points:         batch,
			Wait:           &wait,
		})
		if err != nil {
			return errtypes.Wrap("vectorstore.upsert", errtypes.CategoryRetryable, fmt.Errorf("batch [%d:%d]: %w", start, end, err))
		}
	}
	return nil
}

func (qs *QdrantStore) Delete(ctx context.Context, name string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	wait := true
	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = qdrant.NewID(id)
	}
	_, err := qs.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: name,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Points{
				Points: &qdrant.PointsIdsList{Ids: pointIDs},
			},
		},
		Wait: &wait,
	})
	if err != nil {
		return errtypes.Wrap("vectorstore.delete", errtypes.CategoryRetryable, err)
	}
	return nil
}

func (qs *QdrantStore) DeleteByFilter(ctx context.Context, name string, filter *Filter) error {
	wait := true
	_, err := qs.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: name,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{Filter: buildQdrantFilter(filter)},
		},
		Wait: &wait,
	})
	if err != nil {
		return errtypes.Wrap("vectorstore.delete_by_filter", errtypes.CategoryRetryable, err)
	}
	return nil
}

func (qs *QdrantStore) DeleteCollection(ctx context.Context, name string) error {
	if err := qs.client.DeleteCollection(ctx, name); err != nil {
		return errtypes.Wrap("vectorstore.delete_collection", errtypes.CategoryRetryable, err)
	}
	qs.mu.Lock()
	delete(qs.knownCollection, name)
	qs.mu.Unlock()
	return nil
}
