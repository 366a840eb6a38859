// Package testutil provides shared fixtures for tests that need a real
// decision log or realistic decision records.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/rivalwatch/internal/model"
	"github.com/Veraticus/rivalwatch/internal/storage"
)

// SetupTestDB creates a migrated in-memory SQLite decision log that is
// closed when the test ends.
//
// Example:
//
//	store := testutil.SetupTestDB(t)
//	testutil.SeedDecisions(t, store, testutil.NewDecision().About("Acme").Build())
func SetupTestDB(t *testing.T) *storage.SQLiteStorage {
	t.Helper()

	store, err := storage.NewSQLiteStorage(storage.MemoryDSN)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return store
}

// SeedDecisions appends records to store, failing the test on any error.
func SeedDecisions(t *testing.T, store storage.DecisionStore, records ...model.DecisionRecord) {
	t.Helper()

	ctx := context.Background()
	for _, record := range records {
		if err := store.AppendDecision(ctx, record); err != nil {
			t.Fatalf("failed to seed decision %q: %v", record.ID, err)
		}
	}
}
