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

func TestSaveAndGetTransaction(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	require.NoError(t, store.SaveTransactions(ctx, []model.Transaction{newTransaction("txn-1")}))

	got, err := store.GetTransaction(ctx, testutil.TestTenant, "txn-1")
	require.NoError(t, err)
	assert.Equal(t, "ACME SOFTWARE INC", got.Description)
	assert.Equal(t, "Acme Software", got.MerchantName)
	assert.InDelta(t, -100.00, got.Amount, 1e-9)
	assert.Equal(t, "USD", got.Currency)
}

func TestSaveTransactionsImmutable(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	original := newTransaction("txn-1")
	require.NoError(t, store.SaveTransactions(ctx, []model.Transaction{original}))

	// A second import of the same transaction must not overwrite the ledger.
	modified := newTransaction("txn-1")
	modified.Amount = -999.00
	require.NoError(t, store.SaveTransactions(ctx, []model.Transaction{modified}))

	got, err := store.GetTransaction(ctx, testutil.TestTenant, "txn-1")
	require.NoError(t, err)
	assert.InDelta(t, -100.00, got.Amount, 1e-9)
}

func TestSaveTransactionsValidation(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	assert.Error(t, store.SaveTransactions(ctx, nil))
	assert.Error(t, store.SaveTransactions(ctx, []model.Transaction{}))

	missingCurrency := newTransaction("txn-1")
	missingCurrency.Currency = ""
	assert.Error(t, store.SaveTransactions(ctx, []model.Transaction{missingCurrency}))
}

func TestGetTransactionNotFound(t *testing.T) {
	store := testutil.SetupTestDB(t)

	_, err := store.GetTransaction(context.Background(), testutil.TestTenant, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}
