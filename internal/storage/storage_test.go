package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lockstep-fin/lockstep/internal/model"
	"github.com/lockstep-fin/lockstep/internal/storage"
	"github.com/lockstep-fin/lockstep/internal/testutil"
)

func floatPtr(f float64) *float64 { return &f }

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

func newInboxItem(id string) *model.InboxItem {
	date := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	return &model.InboxItem{
		ID:           id,
		TenantID:     testutil.TestTenant,
		DisplayName:  "Acme Software Invoice",
		Amount:       floatPtr(100.00),
		Currency:     strPtr("USD"),
		DocumentDate: timePtr(date),
		Status:       model.InboxStatusNew,
	}
}

func newTransaction(id string) model.Transaction {
	return model.Transaction{
		ID:           id,
		TenantID:     testutil.TestTenant,
		Description:  "ACME SOFTWARE INC",
		MerchantName: "Acme Software",
		Amount:       -100.00,
		Currency:     "USD",
		BookedAt:     time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
	}
}

func newSuggestion(id, inboxItemID, transactionID string) *model.MatchSuggestion {
	return &model.MatchSuggestion{
		ID:             id,
		TenantID:       testutil.TestTenant,
		InboxItemID:    inboxItemID,
		TransactionID:  transactionID,
		AmountScore:    floatPtr(1.0),
		CurrencyScore:  floatPtr(1.0),
		DateScore:      floatPtr(1.0),
		EmbeddingScore: floatPtr(0.92),
		Confidence:     0.93,
		MatchType:      model.MatchTypeSuggested,
		Status:         model.SuggestionPending,
	}
}

func saveEmbedding(t *testing.T, store *storage.SQLiteStorage, entityType model.EmbeddingEntity, entityID string, vector []float64) {
	t.Helper()
	err := store.SaveEmbedding(context.Background(), &model.Embedding{
		TenantID:   testutil.TestTenant,
		EntityType: entityType,
		EntityID:   entityID,
		Vector:     vector,
		Model:      "text-embedding-3-small",
	})
	require.NoError(t, err)
}
