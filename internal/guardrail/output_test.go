package guardrail

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/rivalwatch/internal/model"
)

func TestOutputGate(t *testing.T) {
	gate := NewOutputGate(testPolicy(t))

	t.Run("clean recommendation passes", func(t *testing.T) {
		rec := model.NewRecommendation(
			model.NewStrategyDecision(model.StrategyPositioning, "clarity_and_simplicity", model.UrgencyMedium, "price_war"),
			model.Explanation{Advice: "Simplify your message.", Reason: "Buyers are confused.", Confidence: model.ConfidenceHigh},
		)
		result := gate.Check(rec)
		assert.True(t, result.Passed)
		assert.Empty(t, result.Warnings)
	})

	t.Run("forbidden focus terms", func(t *testing.T) {
		rec := model.Recommendation{StrategyType: model.StrategyPricing, Focus: "Price_War_and_direct_attack", Urgency: model.UrgencyHigh}
		result := gate.Check(rec)
		assert.False(t, result.Passed)
		assert.Equal(t, []string{ViolationForbiddenStrategy, ViolationForbiddenStrategy}, violationTypes(result))
		assert.Equal(t, SeverityHigh, result.Violations[0].Severity)
	})

	t.Run("urgent wait is inconsistent", func(t *testing.T) {
		rec := model.Recommendation{StrategyType: model.StrategyWait, Focus: "monitoring", Urgency: model.UrgencyHigh}
		result := gate.Check(rec)
		assert.Equal(t, []string{ViolationInconsistentUrgency}, violationTypes(result))
		assert.Equal(t, SeverityMedium, result.Violations[0].Severity)
	})

	t.Run("hostile advice only warns", func(t *testing.T) {
		rec := model.Recommendation{StrategyType: model.StrategyPositioning, Focus: "defend_differentiation", Urgency: model.UrgencyHigh,
			Advice: "Crush them and dominate the category."}
		result := gate.Check(rec)
		assert.True(t, result.Passed)
		assert.Len(t, result.Warnings, 1)
	})

	t.Run("safe fallback passes", func(t *testing.T) {
		assert.True(t, gate.Check(model.SafeFallbackRecommendation()).Passed)
	})
}

func TestAllowlist(t *testing.T) {
	a := NewAllowlist(map[string][]string{
		"biz-1": {"alice"},
		"biz-2": {Wildcard},
	})
	ctx := context.Background()

	tests := []struct {
		business, user string
		want           bool
	}{
		{"biz-1", "alice", true},
		{"biz-1", "bob", false},
		{"biz-1", "", false},
		{"biz-2", "", true},
		{"biz-3", "alice", false},
	}
	for _, tt := range tests {
		got, err := a.CheckAccess(ctx, tt.business, tt.user)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%s/%s", tt.business, tt.user)
	}
}

type errChecker struct{}

func (errChecker) CheckAccess(context.Context, string, string) (bool, error) {
	return false, errors.New("directory unavailable")
}

func TestAccessGate(t *testing.T) {
	ctx := context.Background()

	t.Run("missing business when required", func(t *testing.T) {
		res, err := NewAccessGate(nil, true).Check(ctx, "", "")
		require.NoError(t, err)
		assert.Equal(t, []string{ViolationInvalidBusiness}, violationTypes(res))
		assert.Equal(t, SeverityCritical, res.Violations[0].Severity)
	})

	t.Run("missing business when optional", func(t *testing.T) {
		res, err := NewAccessGate(nil, false).Check(ctx, "", "")
		require.NoError(t, err)
		assert.True(t, res.Passed)
	})

	t.Run("denied", func(t *testing.T) {
		res, err := NewAccessGate(NewAllowlist(nil), false).Check(ctx, "biz-1", "alice")
		require.NoError(t, err)
		assert.Equal(t, []string{ViolationAccessDenied}, violationTypes(res))
	})

	t.Run("checker error", func(t *testing.T) {
		_, err := NewAccessGate(errChecker{}, false).Check(ctx, "biz-1", "alice")
		assert.Error(t, err)
	})
}
