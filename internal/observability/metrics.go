// Package observability provides Prometheus metrics for the decision pipeline.
//
// A single Metrics value satisfies the observer interfaces of the cache,
// guardrail and memory packages, so every component reports into one registry.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "rivalwatch"

// Request outcomes.
const (
	OutcomeSuccess  = "success"
	OutcomeBlocked  = "blocked"
	OutcomeInvalid  = "invalid"
	OutcomeExternal = "external_error"
)

// Pipeline stages timed by StageDuration.
const (
	StageGuardrails = "guardrails"
	StageExtract    = "extract"
	StageDecide     = "decide"
	StageExplain    = "explain"
)

// Metrics holds all Prometheus metrics for the pipeline.
type Metrics struct {
	// RequestsTotal counts requests by outcome.
	RequestsTotal *prometheus.CounterVec

	// GuardrailViolationsTotal counts violations by type and severity.
	GuardrailViolationsTotal *prometheus.CounterVec

	// CacheLookupsTotal counts decision cache lookups by result (hit, miss, error).
	CacheLookupsTotal *prometheus.CounterVec

	// StageDurationSeconds measures latency of each pipeline stage.
	StageDurationSeconds *prometheus.HistogramVec

	// MemoryWritesTotal counts decision log writes by status (stored, failed, dropped).
	MemoryWritesTotal *prometheus.CounterVec

	// OutputFallbacksTotal counts responses replaced by the safe fallback.
	OutputFallbacksTotal prometheus.Counter
}

// NewMetrics creates and registers all metrics with reg.
// Registering twice against the same registerer panics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "requests_total",
				Help:      "Total number of recommendation requests by outcome",
			},
			[]string{"outcome"},
		),
		GuardrailViolationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "guardrail",
				Name:      "violations_total",
				Help:      "Total number of guardrail violations by type and severity",
			},
			[]string{"type", "severity"},
		),
		CacheLookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "cache",
				Name:      "lookups_total",
				Help:      "Total number of decision cache lookups by result",
			},
			[]string{"result"},
		),
		StageDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "stage_duration_seconds",
				Help:      "Latency of pipeline stages",
				Buckets:   []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"stage"},
		),
		MemoryWritesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "memory",
				Name:      "writes_total",
				Help:      "Total number of decision log writes by status",
			},
			[]string{"status"},
		),
		OutputFallbacksTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "guardrail",
				Name:      "output_fallbacks_total",
				Help:      "Total number of responses replaced by the safe fallback",
			},
		),
	}
}

// CacheLookup records a decision cache lookup.
func (m *Metrics) CacheLookup(result string) {
	m.CacheLookupsTotal.WithLabelValues(result).Inc()
}

// GuardrailViolation records a policy violation.
func (m *Metrics) GuardrailViolation(violationType, severity string) {
	m.GuardrailViolationsTotal.WithLabelValues(violationType, severity).Inc()
}

// MemoryWrite records the outcome of a decision log write.
func (m *Metrics) MemoryWrite(status string) {
	m.MemoryWritesTotal.WithLabelValues(status).Inc()
}

// Request records the outcome of one request.
func (m *Metrics) Request(outcome string) {
	m.RequestsTotal.WithLabelValues(outcome).Inc()
}

// OutputFallback records a safe fallback substitution.
func (m *Metrics) OutputFallback() {
	m.OutputFallbacksTotal.Inc()
}

// ObserveStage records how long stage took since start.
func (m *Metrics) ObserveStage(stage string, start time.Time) {
	m.StageDurationSeconds.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
