package guardrail

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const piiWarning = "Input may contain personally identifiable information (PII). Consider removing sensitive data."

// InputGate validates raw input text before any processing.
type InputGate struct {
	policy InputPolicy
}

// NewInputGate creates an input gate from policy.
func NewInputGate(policy *Policy) *InputGate {
	return &InputGate{policy: policy.Input}
}

// Check applies the length, harmful-intent, PII and spam checks in order.
// Length and harmful-intent violations end the check early.
func (g *InputGate) Check(text string) Result {
	result := NewResult()
	p := g.policy

	trimmed := utf8.RuneCountInString(strings.TrimSpace(text))
	if trimmed < p.MinLength {
		result.AddViolation(ViolationInputTooShort, p.LengthSeverity,
			fmt.Sprintf("Input must be at least %d characters", p.MinLength),
			map[string]any{"length": trimmed})
		return result
	}

	length := utf8.RuneCountInString(text)
	if length > p.MaxLength {
		result.AddViolation(ViolationInputTooLong, p.LengthSeverity,
			fmt.Sprintf("Input exceeds %d character limit", p.MaxLength),
			map[string]any{"length": length})
		return result
	}

	for i, re := range p.HarmfulIntent.compiled {
		if re.MatchString(text) {
			result.AddViolation(ViolationHarmfulIntent, p.HarmfulIntent.Severity,
				"Input contains potentially harmful or unethical intent",
				map[string]any{"pattern": p.HarmfulIntent.Patterns[i]})
			return result
		}
	}

	for _, pii := range p.PII {
		if pii.compiled.MatchString(text) {
			result.AddWarning(piiWarning)
		}
	}

	if g.isSpam(text) {
		result.AddViolation(ViolationSpam, p.Spam.Severity,
			"Input appears to be spam or gibberish", nil)
	}

	return result
}

func (g *InputGate) isSpam(text string) bool {
	spam := g.policy.Spam

	words := strings.Fields(text)
	if len(words) > spam.MinWords {
		unique := make(map[string]struct{}, len(words))
		for _, w := range words {
			unique[w] = struct{}{}
		}
		if float64(len(unique))/float64(len(words)) < spam.MinUniqueRatio {
			return true
		}
	}

	lower := strings.ToLower(text)
	for _, re := range spam.compiledRuns {
		if re.MatchString(lower) {
			return true
		}
	}
	return false
}
