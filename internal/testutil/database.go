// Package testutil provides shared test helpers for the lockstep engine.
package testutil

import (
	"context"
	"testing"

	"github.com/lockstep-fin/lockstep/internal/model"
	"github.com/lockstep-fin/lockstep/internal/storage"
)

// TestTenant is the tenant ID used across test fixtures.
const TestTenant = "tenant-1"

// SetupTestDB creates a migrated in-memory SQLite storage with cleanup
// registered on the test.
func SetupTestDB(t *testing.T) *storage.SQLiteStorage {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return store
}

// SeedCategories stores the given categories for the test tenant.
func SeedCategories(t *testing.T, store *storage.SQLiteStorage, categories ...model.Category) {
	t.Helper()

	ctx := context.Background()
	for i := range categories {
		if categories[i].TenantID == "" {
			categories[i].TenantID = TestTenant
		}
		categories[i].IsActive = true
		if err := store.SaveCategory(ctx, &categories[i]); err != nil {
			t.Fatalf("failed to seed category %q: %v", categories[i].Name, err)
		}
	}
}
