package guardrail

import (
	"fmt"
	"strings"

	"github.com/Veraticus/rivalwatch/internal/model"
)

const hostileToneWarning = "Advice tone may be too aggressive. Consider softer language."

// OutputGate validates an assembled recommendation before it is returned.
type OutputGate struct {
	policy OutputPolicy
}

// NewOutputGate creates an output gate from policy.
func NewOutputGate(policy *Policy) *OutputGate {
	return &OutputGate{policy: policy.Output}
}

// Check flags forbidden tactics in the focus, wait strategies marked urgent,
// and hostile language in the advice.
func (g *OutputGate) Check(rec model.Recommendation) Result {
	result := NewResult()

	focus := strings.ToLower(rec.Focus)
	for _, term := range g.policy.ForbiddenFocus.Terms {
		if strings.Contains(focus, term) {
			result.AddViolation(ViolationForbiddenStrategy, g.policy.ForbiddenFocus.Severity,
				fmt.Sprintf("Strategy focus contains forbidden pattern: %s", term),
				map[string]any{"focus": focus})
		}
	}

	if rec.StrategyType == model.StrategyWait && rec.Urgency == model.UrgencyHigh {
		result.AddViolation(ViolationInconsistentUrgency, g.policy.InconsistentUrgencySeverity,
			"Wait strategy should not have high urgency",
			map[string]any{"strategy": string(rec.StrategyType), "urgency": string(rec.Urgency)})
	}

	advice := strings.ToLower(rec.Advice)
	for _, word := range g.policy.HostileWords {
		if strings.Contains(advice, word) {
			result.AddWarning(hostileToneWarning)
			break
		}
	}

	return result
}
