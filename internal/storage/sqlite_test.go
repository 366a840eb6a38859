package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/rivalwatch/internal/model"
)

var (
	_ DecisionStore = (*SQLiteStorage)(nil)
	_ DecisionStore = (*PostgresStorage)(nil)
)

func createTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	store, err := NewSQLiteStorage(MemoryDSN)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Migrate(context.Background()))
	return store
}

var baseTime = time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

func testRecord(id, business, competitor string, at time.Time, urgency model.Urgency) model.DecisionRecord {
	return model.DecisionRecord{
		ID:             id,
		BusinessID:     business,
		CreatedAt:      at,
		CompetitorName: competitor,
		Context: model.ExtractedContext{
			UserIntent:  model.IntentSeekingResponse,
			Competitors: []model.Competitor{{Name: competitor, Signals: model.UnknownSignal()}},
		},
		StrategyType: model.StrategyPricing,
		Focus:        "value_not_discount",
		Urgency:      urgency,
		Avoid:        []string{"race_to_bottom"},
		Confidence:   model.ConfidenceMedium,
		Fingerprint:  "fp-" + id,
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.Migrate(ctx))

	var version int
	require.NoError(t, store.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version))
	assert.Equal(t, ExpectedSchemaVersion, version)
}

func TestAppendAndQueryDecisions(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	records := []model.DecisionRecord{
		testRecord("a", "biz-1", "Acme", baseTime.Add(-10*24*time.Hour), model.UrgencyLow),
		testRecord("b", "biz-1", "Globex", baseTime.Add(-2*24*time.Hour), model.UrgencyMedium),
		testRecord("c", "biz-1", "Acme", baseTime.Add(-time.Hour), model.UrgencyHigh),
		testRecord("d", "biz-2", "Acme", baseTime, model.UrgencyHigh),
	}
	records[2].CacheHit = true
	for _, r := range records {
		require.NoError(t, store.AppendDecision(ctx, r))
	}

	t.Run("recent newest first", func(t *testing.T) {
		got, err := store.RecentDecisions(ctx, "biz-1", 2)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "c", got[0].ID)
		assert.Equal(t, "b", got[1].ID)
		assert.True(t, got[0].CacheHit)
		assert.Equal(t, baseTime.Add(-time.Hour), got[0].CreatedAt)
		assert.Equal(t, []string{"race_to_bottom"}, got[0].Avoid)
		assert.Equal(t, "Acme", got[0].Context.PrimaryName())
	})

	t.Run("since cutoff", func(t *testing.T) {
		got, err := store.DecisionsSince(ctx, "biz-1", baseTime.Add(-3*24*time.Hour))
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("by competitor", func(t *testing.T) {
		got, err := store.DecisionsByCompetitor(ctx, "biz-1", "Acme", baseTime.Add(-30*24*time.Hour))
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "c", got[0].ID)
		assert.Equal(t, "a", got[1].ID)
	})

	t.Run("unknown business is empty, not nil", func(t *testing.T) {
		got, err := store.RecentDecisions(ctx, "nobody", 5)
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})
}

func TestAppendDecisionValidation(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	bad := testRecord("", "biz-1", "Acme", baseTime, model.UrgencyLow)
	assert.ErrorIs(t, store.AppendDecision(ctx, bad), ErrInvalidRecord)

	bad = testRecord("x", "", "Acme", baseTime, model.UrgencyLow)
	assert.ErrorIs(t, store.AppendDecision(ctx, bad), ErrInvalidRecord)

	bad = testRecord("x", "biz-1", "Acme", time.Time{}, model.UrgencyLow)
	assert.ErrorIs(t, store.AppendDecision(ctx, bad), ErrInvalidRecord)

	_, err := store.RecentDecisions(ctx, "biz-1", 0)
	assert.ErrorIs(t, err, ErrInvalidLimit)

	_, err = store.RecentDecisions(ctx, "  ", 5)
	assert.ErrorIs(t, err, ErrEmptyString)

	_, err = store.DecisionsSince(nil, "biz-1", baseTime)
	assert.ErrorIs(t, err, ErrNilContext)
}

func TestAppendDecisionRejectsDuplicateID(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	r := testRecord("dup", "biz-1", "Acme", baseTime, model.UrgencyLow)
	require.NoError(t, store.AppendDecision(ctx, r))
	assert.Error(t, store.AppendDecision(ctx, r))
}

func TestFileBackedStorage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "rivalwatch.db")
	ctx := context.Background()

	store, err := NewSQLiteStorage(path)
	require.NoError(t, err)
	require.NoError(t, store.Migrate(ctx))
	require.NoError(t, store.AppendDecision(ctx, testRecord("a", "biz-1", "Acme", baseTime, model.UrgencyLow)))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStorage(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	got, err := reopened.RecentDecisions(ctx, "biz-1", 10)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, path, reopened.Path())
}

func TestNewSQLiteStorageRequiresPath(t *testing.T) {
	_, err := NewSQLiteStorage("")
	assert.ErrorIs(t, err, ErrEmptyString)
}
