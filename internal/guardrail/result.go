// Package guardrail gates requests on the way in and responses on the way out.
package guardrail

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Veraticus/rivalwatch/internal/common"
)

// Severity ranks how serious a violation is.
type Severity string

// Severity levels.
const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// UnmarshalYAML rejects unknown severities in policy files.
func (s *Severity) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	switch sev := Severity(raw); sev {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		*s = sev
		return nil
	default:
		return fmt.Errorf("invalid severity: %q", raw)
	}
}

// Violation types.
const (
	ViolationInputTooShort       = "input_too_short"
	ViolationInputTooLong        = "input_too_long"
	ViolationHarmfulIntent       = "harmful_intent_detected"
	ViolationSpam                = "spam_detected"
	ViolationUnethicalSource     = "unethical_data_source"
	ViolationRateLimitExceeded   = "rate_limit_exceeded"
	ViolationInvalidBusiness     = "invalid_business"
	ViolationAccessDenied        = "access_denied"
	ViolationForbiddenStrategy   = "forbidden_strategy"
	ViolationInconsistentUrgency = "inconsistent_urgency"
)

// Violation records one failed check.
type Violation struct {
	Timestamp time.Time      `json:"timestamp"`
	Context   map[string]any `json:"context"`
	Type      string         `json:"type"`
	Severity  Severity       `json:"severity"`
	Message   string         `json:"message"`
}

// Result is the outcome of one or more gates.
type Result struct {
	Violations []Violation `json:"violations"`
	Warnings   []string    `json:"warnings"`
	Passed     bool        `json:"passed"`
}

// NewResult returns a passing result.
func NewResult() Result {
	return Result{Passed: true, Violations: []Violation{}, Warnings: []string{}}
}

// AddViolation marks the result failed and records the violation.
func (r *Result) AddViolation(violationType string, severity Severity, message string, context map[string]any) {
	if context == nil {
		context = map[string]any{}
	}
	r.Passed = false
	r.Violations = append(r.Violations, Violation{
		Type:      violationType,
		Severity:  severity,
		Message:   message,
		Timestamp: time.Now().UTC(),
		Context:   context,
	})
}

// AddWarning records a non-blocking finding.
func (r *Result) AddWarning(message string) {
	r.Warnings = append(r.Warnings, message)
}

// Merge combines two results: passed is the AND of both, violations and
// warnings are concatenated with r's first.
func (r Result) Merge(other Result) Result {
	merged := Result{
		Passed:     r.Passed && other.Passed,
		Violations: make([]Violation, 0, len(r.Violations)+len(other.Violations)),
		Warnings:   make([]string, 0, len(r.Warnings)+len(other.Warnings)),
	}
	merged.Violations = append(append(merged.Violations, r.Violations...), other.Violations...)
	merged.Warnings = append(append(merged.Warnings, r.Warnings...), other.Warnings...)
	return merged
}

// BlockedError converts the violations into the error returned to callers.
func (r Result) BlockedError() error {
	blocked := make([]common.BlockedViolation, 0, len(r.Violations))
	for _, v := range r.Violations {
		blocked = append(blocked, common.BlockedViolation{
			Type:     v.Type,
			Severity: string(v.Severity),
			Message:  v.Message,
		})
	}
	return &common.GuardrailBlockedError{Violations: blocked}
}
