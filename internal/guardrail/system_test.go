package guardrail

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/rivalwatch/internal/common"
	"github.com/Veraticus/rivalwatch/internal/model"
)

type errLimiter struct{}

func (errLimiter) Check(context.Context, string) (Result, error) {
	return Result{}, errors.New("redis down")
}

type countingLimiter struct {
	calls int
}

func (c *countingLimiter) Check(context.Context, string) (Result, error) {
	c.calls++
	return NewResult(), nil
}

type violationRecorder struct {
	seen []string
}

func (v *violationRecorder) GuardrailViolation(violationType, severity string) {
	v.seen = append(v.seen, violationType+"/"+severity)
}

func TestSystemCheckInputOrder(t *testing.T) {
	s := NewSystem(testPolicy(t), nil, nil, Config{})

	report := s.CheckInput(context.Background(), "Leaked memo says they plan to sabotage us", "", "")

	assert.False(t, report.Result.Passed)
	assert.Equal(t, []string{ViolationHarmfulIntent, ViolationUnethicalSource}, violationTypes(report.Result))
	assert.Empty(t, report.Unevaluated)
}

func TestSystemSkipsBusinessGatesWithoutBusiness(t *testing.T) {
	limiter := &countingLimiter{}
	s := NewSystem(testPolicy(t), limiter, NewAllowlist(nil), Config{})

	report := s.CheckInput(context.Background(), "Acme cut prices on their starter plan", "", "")
	assert.True(t, report.Result.Passed)
	assert.Equal(t, 0, limiter.calls)

	report = s.CheckInput(context.Background(), "Acme cut prices on their starter plan", "biz-1", "alice")
	assert.Equal(t, 0, limiter.calls)
	assert.Equal(t, []string{ViolationAccessDenied}, violationTypes(report.Result))
}

func TestSystemRequireBusiness(t *testing.T) {
	s := NewSystem(testPolicy(t), NewMemoryLimiter(DefaultLimits()), nil, Config{RequireBusiness: true})

	report := s.CheckInput(context.Background(), "Acme cut prices on their starter plan", "", "")
	assert.Equal(t, []string{ViolationInvalidBusiness}, violationTypes(report.Result))
}

func TestSystemRecordsUnevaluatedGates(t *testing.T) {
	s := NewSystem(testPolicy(t), errLimiter{}, errChecker{}, Config{})

	report := s.CheckInput(context.Background(), "Acme cut prices on their starter plan", "biz-1", "alice")

	assert.True(t, report.Result.Passed)
	assert.Equal(t, []string{GateAccess, GateRateLimit}, report.Unevaluated)
}

func TestSystemRateLimitBlocksEleventhRequest(t *testing.T) {
	s := NewSystem(testPolicy(t), NewMemoryLimiter(DefaultLimits()), nil, Config{})
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		require.True(t, s.CheckInput(ctx, "Acme cut prices on their starter plan", "biz-1", "").Result.Passed)
	}
	report := s.CheckInput(ctx, "Acme cut prices on their starter plan", "biz-1", "")
	assert.Equal(t, []string{ViolationRateLimitExceeded}, violationTypes(report.Result))
}

func TestSystemRejectedRequestsDoNotSpendQuota(t *testing.T) {
	ctx := context.Background()
	text := "Acme cut prices on their starter plan"

	tests := []struct {
		name   string
		text   string
		userID string
	}{
		{name: "denied user", text: text, userID: "mallory"},
		{name: "rejected input", text: "too short", userID: "owner"},
		{name: "unethical source", text: "A leaked deck shows Acme cutting prices", userID: "owner"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := NewAllowlist(map[string][]string{"biz-1": {"owner"}})
			s := NewSystem(testPolicy(t), NewMemoryLimiter(DefaultLimits()), checker, Config{})

			for i := 0; i < 15; i++ {
				require.False(t, s.CheckInput(ctx, tt.text, "biz-1", tt.userID).Result.Passed)
			}

			report := s.CheckInput(ctx, text, "biz-1", "owner")
			assert.True(t, report.Result.Passed, "violations: %v", violationTypes(report.Result))
		})
	}
}

func TestResultMerge(t *testing.T) {
	a := NewResult()
	a.AddWarning("first")
	b := NewResult()
	b.AddViolation("x", SeverityLow, "bad", nil)
	b.AddWarning("second")

	merged := a.Merge(b)
	assert.False(t, merged.Passed)
	assert.Equal(t, []string{"first", "second"}, merged.Warnings)
	assert.Equal(t, []string{"x"}, violationTypes(merged))
	assert.True(t, a.Merge(NewResult()).Passed)
}

func TestBlockedError(t *testing.T) {
	r := NewResult()
	r.AddViolation(ViolationHarmfulIntent, SeverityCritical, "Input contains potentially harmful or unethical intent", nil)
	r.AddViolation(ViolationUnethicalSource, SeverityCritical, "second", nil)

	err := r.BlockedError()
	assert.True(t, errors.Is(err, common.ErrGuardrailBlocked))
	assert.Contains(t, err.Error(), "harmful or unethical intent")

	var blocked *common.GuardrailBlockedError
	require.True(t, errors.As(err, &blocked))
	assert.Len(t, blocked.Violations, 2)
}

func TestLogViolationsNotifiesObserver(t *testing.T) {
	rec := &violationRecorder{}
	s := NewSystem(testPolicy(t), nil, nil, Config{}, WithObserver(rec))

	out := s.CheckOutput(model.Recommendation{StrategyType: model.StrategyWait, Focus: "monitoring", Urgency: model.UrgencyHigh})
	s.LogViolations(context.Background(), "output", out.Violations)

	assert.Equal(t, []string{"inconsistent_urgency/medium"}, rec.seen)
}
