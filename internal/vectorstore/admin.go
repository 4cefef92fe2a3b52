package vectorstore

import (
	"context"

	"ragmemory/internal/errtypes"

	"github.com/qdrant/go-client/qdrant"
)

// CreateAlias points a new or existing alias at collection.
func (qs *QdrantStore) CreateAlias(ctx context.Context, alias, collection string) error {
	_, err := qs.client.CreateAlias(ctx, collection, alias)
	if err != nil {
		return errtypes.Wrap("vectorstore.create_alias", errtypes.CategoryRetryable, err)
	}
	return nil
}

// SwapAlias atomically repoints alias from one collection to another in a
// single AliasOperations request, so readers never observe a gap.
func (qs *QdrantStore) SwapAlias(ctx context.Context, alias, from, to string) error {
	_, err := qs.client.UpdateCollectionAliases(ctx, &qdrant.ChangeAliases{
		Actions: []*qdrant.AliasOperations{
			{
				Action: &qdrant.AliasOperations_DeleteAlias{
					DeleteAlias: &qdrant.DeleteAlias{AliasName: alias},
				},
			},
			{
				Action: &qdrant.AliasOperations_CreateAlias{
					CreateAlias: &qdrant.CreateAlias{CollectionName: to, AliasName: alias},
				},
			},
		},
	})
	if err != nil {
		return errtypes.Wrap("vectorstore.swap_alias", errtypes.CategoryRetryable, err)
	}
	_ = from // from is informational only; the swap is keyed on the alias name
	return nil
}

// ListAliases returns alias name -> backing collection name.
func (qs *QdrantStore) ListAliases(ctx context.Context) (map[string]string, error) {
	aliases, err := qs.client.ListAliases(ctx)
	if err != nil {
		return nil, errtypes.Wrap("vectorstore.list_aliases", errtypes.CategoryRetryable, err)
	}
	out := make(map[string]string, len(aliases))
	for _, a := range aliases {
		out[a.GetAliasName()] = a.GetCollectionName()
	}
	return out, nil
}

// CreateSnapshot is a pass-through to the engine's snapshot API.
func (qs *QdrantStore) CreateSnapshot(ctx context.Context, name string) (string, error) {
	snap, err := qs.client.GetCollectionsClient().CreateSnapshot(ctx, &qdrant.CreateSnapshotRequest{CollectionName: name})
	if err != nil {
		return "", errtypes.Wrap("vectorstore.create_snapshot", errtypes.CategoryRetryable, err)
	}
	return snap.GetSnapshotDescription().GetName(), nil
}

func (qs *QdrantStore) ListSnapshots(ctx context.Context, name string) ([]string, error) {
	resp, err := qs.client.GetCollectionsClient().ListSnapshots(ctx, &qdrant.ListSnapshotsRequest{CollectionName: name})
	if err != nil {
		return nil, errtypes.Wrap("vectorstore.list_snapshots", errtypes.CategoryRetryable, err)
	}
	names := make([]string, 0, len(resp.GetSnapshotDescriptions()))
	for _, d := range resp.GetSnapshotDescriptions() {
		names = append(names, d.GetName())
	}
	return names, nil
}

func (qs *QdrantStore) DeleteSnapshot(ctx context.Context, name, snapshotName string) error {
	_, err := qs.client.GetCollectionsClient().DeleteSnapshot(ctx, &qdrant.DeleteSnapshotRequest{
		CollectionName: name,
		SnapshotName:   snapshotName,
	})
	if err != nil {
		return errtypes.Wrap("vectorstore.delete_snapshot", errtypes.CategoryRetryable, err)
	}
	return nil
}

// EnableQuantization turns on scalar quantization with the given quantile,
// trading a small recall hit for reduced memory footprint on large collections.
func (qs *QdrantStore) EnableQuantization(ctx context.Context, name string, quantile float32) error {
	alwaysRAM := true
	_, err := qs.client.UpdateCollection(ctx, &qdrant.UpdateCollection{
		CollectionName: name,
		QuantizationConfig: qdrant.NewQuantizationDiff(&qdrant.ScalarQuantization{
			Type:      qdrant.QuantizationType_Int8,
			Quantile:  &quantile,
			AlwaysRam: &alwaysRAM,
		}),
	})
	if err != nil {
		return errtypes.Wrap("vectorstore.enable_quantization", errtypes.CategoryRetryable, err)
	}
	return nil
}

func (qs *QdrantStore) DisableQuantization(ctx context.Context, name string) error {
	_, err := qs.client.UpdateCollection(ctx, &qdrant.UpdateCollection{
		CollectionName:     name,
		QuantizationConfig: qdrant.NewQuantizationDiffDisabled(),
	})
	if err != nil {
		return errtypes.Wrap("vectorstore.disable_quantization", errtypes.CategoryRetryable, err)
	}
	return nil
}
