package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/rivalwatch/internal/common"
	"github.com/Veraticus/rivalwatch/internal/guardrail"
	"github.com/Veraticus/rivalwatch/internal/memory"
	"github.com/Veraticus/rivalwatch/internal/model"
	"github.com/Veraticus/rivalwatch/internal/storage"
	"github.com/Veraticus/rivalwatch/internal/testutil"
)

type fakeSnapshots struct {
	err   error
	text  string
	calls int
}

func (f *fakeSnapshots) Snapshot(context.Context, string) (string, error) {
	f.calls++
	return f.text, f.err
}

func TestHandleBusinessSnapshot(t *testing.T) {
	snapshots := &fakeSnapshots{text: launchText}
	h := newHarness(t, func(d *Deps, _ *Config) { d.Snapshots = snapshots })

	rec, err := h.pipeline.HandleBusinessSnapshot(context.Background(), "biz-1", "alice", false)
	require.NoError(t, err)

	assert.Equal(t, "clarity_and_simplicity", rec.Focus)
	assert.Equal(t, []string{launchText}, h.extractor.seen)
	require.Len(t, h.recorder.Records(), 1)
	assert.Equal(t, "biz-1", h.recorder.Records()[0].BusinessID)
}

func TestHandleBusinessSnapshotAccessDenied(t *testing.T) {
	policy, err := guardrail.DefaultPolicy()
	require.NoError(t, err)

	snapshots := &fakeSnapshots{text: launchText}
	h := newHarness(t, func(d *Deps, _ *Config) {
		d.Snapshots = snapshots
		d.Guardrails = guardrail.NewSystem(policy, nil,
			guardrail.NewAllowlist(map[string][]string{"biz-1": {"bob"}}), guardrail.Config{})
	})

	_, err = h.pipeline.HandleBusinessSnapshot(context.Background(), "biz-1", "alice", false)

	var blocked *common.GuardrailBlockedError
	require.ErrorAs(t, err, &blocked)
	assert.Equal(t, guardrail.ViolationAccessDenied, blocked.Violations[0].Type)
	assert.Equal(t, 0, snapshots.calls)
	assert.Equal(t, 0, h.extractor.Calls())
}

func TestHandleBusinessSnapshotErrors(t *testing.T) {
	t.Run("missing business id", func(t *testing.T) {
		h := newHarness(t, func(d *Deps, _ *Config) { d.Snapshots = &fakeSnapshots{} })
		_, err := h.pipeline.HandleBusinessSnapshot(context.Background(), " ", "", false)
		assert.ErrorIs(t, err, common.ErrValidation)
	})

	t.Run("snapshot source failure", func(t *testing.T) {
		h := newHarness(t, func(d *Deps, _ *Config) {
			d.Snapshots = &fakeSnapshots{err: storage.ErrBusinessNotFound}
		})
		_, err := h.pipeline.HandleBusinessSnapshot(context.Background(), "biz-404", "", false)
		assert.ErrorIs(t, err, common.ErrExternalService)
		assert.ErrorIs(t, err, storage.ErrBusinessNotFound)
	})

	t.Run("no snapshot source", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.pipeline.HandleBusinessSnapshot(context.Background(), "biz-1", "", false)
		assert.ErrorIs(t, err, common.ErrMissingConfig)
	})
}

// newStoreHarness wires a real SQLite decision log behind a memory writer.
func newStoreHarness(t *testing.T) (*harness, *storage.SQLiteStorage, *memory.Writer) {
	t.Helper()

	store := testutil.SetupTestDB(t)

	writer := memory.NewWriter(store, memory.DefaultWriterConfig())
	t.Cleanup(func() { _ = writer.Close(context.Background()) })

	h := newHarness(t, func(d *Deps, _ *Config) {
		d.Memory = writer
		d.Store = store
	})
	return h, store, writer
}

func TestBusinessInsightsFromDecisionLog(t *testing.T) {
	h, _, writer := newStoreHarness(t)
	h.extractor.byText["Globex undercut our prices with a strong rollout"] = priceCutContext()

	for _, text := range []string{launchText, launchText, "Globex undercut our prices with a strong rollout"} {
		_, err := h.pipeline.HandleRequest(context.Background(), Request{Text: text, BusinessID: "biz-1"})
		require.NoError(t, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, writer.Close(ctx))

	insights, err := h.pipeline.BusinessInsights(context.Background(), "biz-1")
	require.NoError(t, err)

	require.NotNil(t, insights.Profile)
	assert.Equal(t, 3, insights.Profile.TotalDecisions)
	assert.Equal(t, 2, insights.Profile.StrategyCounts[model.StrategyPositioning])
	assert.Equal(t, 1, insights.Profile.StrategyCounts[model.StrategyPricing])
	assert.Equal(t, []string{"Acme", "Globex"}, insights.Profile.TopCompetitors)
	assert.Equal(t, model.UrgencyMedium, insights.Profile.DominantUrgency)
	assert.Nil(t, insights.SpiralWarning)

	history, err := h.pipeline.CompetitorHistory(context.Background(), "biz-1", "Acme")
	require.NoError(t, err)
	assert.Len(t, history.Decisions, 2)
	assert.Equal(t, model.TrendTracked, history.Trend.Status)
	assert.Equal(t, model.StrategyPositioning, history.Trend.MostCommonResponse)
	assert.Equal(t, model.TrendInsufficientData, history.Trend.UrgencyTrend)
}

func TestBusinessInsightsEmpty(t *testing.T) {
	h, _, _ := newStoreHarness(t)

	insights, err := h.pipeline.BusinessInsights(context.Background(), "biz-unknown")
	require.NoError(t, err)
	assert.Nil(t, insights.Profile)
	assert.Nil(t, insights.SpiralWarning)

	history, err := h.pipeline.CompetitorHistory(context.Background(), "biz-unknown", "Acme")
	require.NoError(t, err)
	assert.Equal(t, model.TrendNoHistory, history.Trend.Status)
	assert.NotNil(t, history.Decisions)
	assert.Empty(t, history.Decisions)
}

type failingReader struct{}

func (failingReader) DecisionsSince(context.Context, string, time.Time) ([]model.DecisionRecord, error) {
	return nil, errors.New("db locked")
}

func (failingReader) RecentDecisions(context.Context, string, int) ([]model.DecisionRecord, error) {
	return nil, errors.New("db locked")
}

func (failingReader) DecisionsByCompetitor(context.Context, string, string, time.Time) ([]model.DecisionRecord, error) {
	return nil, errors.New("db locked")
}

func TestInsightsErrors(t *testing.T) {
	t.Run("no store", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.pipeline.BusinessInsights(context.Background(), "biz-1")
		assert.ErrorIs(t, err, common.ErrMissingConfig)
	})

	t.Run("validation", func(t *testing.T) {
		h, _, _ := newStoreHarness(t)
		_, err := h.pipeline.BusinessInsights(context.Background(), "")
		assert.ErrorIs(t, err, common.ErrValidation)
		_, err = h.pipeline.CompetitorHistory(context.Background(), "biz-1", "")
		assert.ErrorIs(t, err, common.ErrValidation)
	})

	t.Run("store failure", func(t *testing.T) {
		h := newHarness(t, func(d *Deps, _ *Config) { d.Store = failingReader{} })
		_, err := h.pipeline.BusinessInsights(context.Background(), "biz-1")
		assert.ErrorIs(t, err, common.ErrExternalService)
		_, err = h.pipeline.CompetitorHistory(context.Background(), "biz-1", "Acme")
		assert.ErrorIs(t, err, common.ErrExternalService)
	})
}
