package guardrail

import (
	"fmt"
	"strings"
)

// ProvenanceGate rejects intelligence that appears to be unethically sourced.
type ProvenanceGate struct {
	policy ProvenancePolicy
}

// NewProvenanceGate creates a provenance gate from policy.
func NewProvenanceGate(policy *Policy) *ProvenanceGate {
	return &ProvenanceGate{policy: policy.Provenance}
}

// Check reports the first forbidden sourcing phrase found in text.
func (g *ProvenanceGate) Check(text string) Result {
	result := NewResult()

	lower := strings.ToLower(text)
	for _, phrase := range g.policy.Phrases {
		if strings.Contains(lower, phrase) {
			result.AddViolation(ViolationUnethicalSource, g.policy.Severity,
				fmt.Sprintf("Competitor data may be from unethical source: %s", phrase),
				map[string]any{"source": phrase})
			return result
		}
	}

	return result
}
