package storage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lockstep-fin/lockstep/internal/common"
	"github.com/lockstep-fin/lockstep/internal/model"
	"github.com/lockstep-fin/lockstep/internal/testutil"
)

func TestSaveAndGetEmbedding(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	embedding := &model.Embedding{
		TenantID:   testutil.TestTenant,
		EntityType: model.EntityInboxItem,
		EntityID:   "item-1",
		Vector:     []float64{0.1, -0.2, 0.3},
		SourceText: "Acme Software Invoice",
		Model:      "text-embedding-3-small",
	}
	require.NoError(t, store.SaveEmbedding(ctx, embedding))

	got, err := store.GetEmbedding(ctx, testutil.TestTenant, model.EntityInboxItem, "item-1")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, -0.2, 0.3}, got.Vector)
	assert.Equal(t, "Acme Software Invoice", got.SourceText)
	assert.Equal(t, "text-embedding-3-small", got.Model)
}

func TestSaveEmbeddingReplaces(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	saveEmbedding(t, store, model.EntityTransaction, "txn-1", []float64{1, 0})
	saveEmbedding(t, store, model.EntityTransaction, "txn-1", []float64{0, 1})

	got, err := store.GetEmbedding(ctx, testutil.TestTenant, model.EntityTransaction, "txn-1")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1}, got.Vector)
}

func TestGetEmbeddingMissing(t *testing.T) {
	store := testutil.SetupTestDB(t)

	_, err := store.GetEmbedding(context.Background(), testutil.TestTenant, model.EntityInboxItem, "missing")
	assert.ErrorIs(t, err, common.ErrEmbeddingMissing)
}

func TestSaveEmbeddingValidation(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	assert.Error(t, store.SaveEmbedding(ctx, nil))
	assert.Error(t, store.SaveEmbedding(ctx, &model.Embedding{
		TenantID:   testutil.TestTenant,
		EntityType: model.EntityInboxItem,
		EntityID:   "item-1",
	}))
	assert.Error(t, store.SaveEmbedding(ctx, &model.Embedding{
		TenantID:   testutil.TestTenant,
		EntityType: "document",
		EntityID:   "item-1",
		Vector:     []float64{1},
	}))
}

func TestMigrateIsIdempotent(t *testing.T) {
	store := testutil.SetupTestDB(t)

	// SetupTestDB already migrated once.
	require.NoError(t, store.Migrate(context.Background()))
}
