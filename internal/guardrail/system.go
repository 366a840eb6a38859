package guardrail

import (
	"context"
	"log/slog"

	"github.com/Veraticus/rivalwatch/internal/common"
	"github.com/Veraticus/rivalwatch/internal/model"
)

// Gate names reported in InputReport.Unevaluated.
const (
	GateRateLimit = "rate_limit"
	GateAccess    = "business_access"
)

// ViolationObserver is notified of every logged violation.
type ViolationObserver interface {
	GuardrailViolation(violationType, severity string)
}

// Config controls how the gates are composed.
type Config struct {
	// RequireBusiness makes a missing business id a blocking violation.
	RequireBusiness bool
}

// System composes the input and output gates. Construct one per process.
type System struct {
	input      *InputGate
	provenance *ProvenanceGate
	limiter    Limiter
	access     *AccessGate
	output     *OutputGate
	observer   ViolationObserver
	logger     *slog.Logger
	cfg        Config
}

// Option configures a System.
type Option func(*System)

// WithLogger sets the logger for violations and gate faults.
func WithLogger(logger *slog.Logger) Option {
	return func(s *System) { s.logger = logger }
}

// WithObserver reports every logged violation to o.
func WithObserver(o ViolationObserver) Option {
	return func(s *System) { s.observer = o }
}

// NewSystem wires the gates. A nil limiter disables rate limiting and a nil
// checker allows every business.
func NewSystem(policy *Policy, limiter Limiter, checker AccessChecker, cfg Config, opts ...Option) *System {
	s := &System{
		input:      NewInputGate(policy),
		provenance: NewProvenanceGate(policy),
		limiter:    limiter,
		access:     NewAccessGate(checker, cfg.RequireBusiness),
		output:     NewOutputGate(policy),
		cfg:        cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = common.LoggerOrDefault(s.logger)
	return s
}

// InputReport is the merged input verdict plus gates that could not be evaluated.
type InputReport struct {
	Unevaluated []string
	Result      Result
}

// CheckInput runs input, provenance, access and rate gates in that order.
// Access and rate gates run only when a business id is supplied or required.
// The limiter only sees requests that passed every earlier gate, so rejected
// callers cannot spend a business's quota.
func (s *System) CheckInput(ctx context.Context, text, businessID, userID string) InputReport {
	report := InputReport{Result: NewResult(), Unevaluated: []string{}}

	report.Result = report.Result.Merge(s.input.Check(text))
	report.Result = report.Result.Merge(s.provenance.Check(text))

	if businessID == "" && !s.cfg.RequireBusiness {
		return report
	}

	res, err := s.access.Check(ctx, businessID, userID)
	if err != nil {
		s.logger.Error("access gate not evaluated", "business_id", businessID, "error", err)
		report.Unevaluated = append(report.Unevaluated, GateAccess)
	} else {
		report.Result = report.Result.Merge(res)
	}

	if s.limiter == nil || businessID == "" || !report.Result.Passed {
		return report
	}

	res, err = s.limiter.Check(ctx, businessID)
	if err != nil {
		s.logger.Error("rate limit gate not evaluated", "business_id", businessID, "error", err)
		report.Unevaluated = append(report.Unevaluated, GateRateLimit)
	} else {
		report.Result = report.Result.Merge(res)
	}

	return report
}

// CheckAccess runs only the business access gate.
func (s *System) CheckAccess(ctx context.Context, businessID, userID string) (Result, error) {
	return s.access.Check(ctx, businessID, userID)
}

// CheckOutput validates an assembled recommendation.
func (s *System) CheckOutput(rec model.Recommendation) Result {
	return s.output.Check(rec)
}

// LogViolations records each violation at warn level.
func (s *System) LogViolations(ctx context.Context, stage string, violations []Violation) {
	for _, v := range violations {
		s.logger.WarnContext(ctx, "guardrail violation",
			"stage", stage,
			"type", v.Type,
			"severity", string(v.Severity),
			"message", v.Message,
			"timestamp", v.Timestamp)
		if s.observer != nil {
			s.observer.GuardrailViolation(v.Type, string(v.Severity))
		}
	}
}
