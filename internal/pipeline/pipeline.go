// Package pipeline sequences guardrails, extraction, caching, the rule engine
// and explanation into one request lifecycle. It owns every fallback and
// error-containment decision.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/Veraticus/rivalwatch/internal/cache"
	"github.com/Veraticus/rivalwatch/internal/common"
	"github.com/Veraticus/rivalwatch/internal/engine"
	"github.com/Veraticus/rivalwatch/internal/fingerprint"
	"github.com/Veraticus/rivalwatch/internal/guardrail"
	"github.com/Veraticus/rivalwatch/internal/memory"
	"github.com/Veraticus/rivalwatch/internal/model"
	"github.com/Veraticus/rivalwatch/internal/observability"
	"github.com/Veraticus/rivalwatch/internal/service"
)

// Service names used in ExternalServiceError.
const (
	ServiceExtractor  = "extractor"
	ServiceExplainer  = "explainer"
	ServiceGuardrails = "guardrails"
	ServiceSnapshots  = "snapshots"
	ServiceMemory     = "memory"
)

// DefaultLLMTimeout bounds each extractor and explainer call.
const DefaultLLMTimeout = 30 * time.Second

// HistoryWindowDays is how far back CompetitorHistory lists decisions.
const HistoryWindowDays = 90

// Deps are the collaborators of a Pipeline. Extractor, Explainer and
// Guardrails are required; the rest may be nil.
type Deps struct {
	Extractor  service.Extractor
	Explainer  service.Explainer
	Engine     *engine.Engine
	Guardrails *guardrail.System
	Cache      *cache.DecisionCache
	Memory     service.DecisionRecorder
	Store      service.DecisionReader
	Snapshots  service.SnapshotSource
	Metrics    service.Metrics
	Logger     *slog.Logger
}

// Config tunes pipeline behaviour.
type Config struct {
	LLMTimeout time.Duration
	// BlockOnGateError blocks requests when an input gate could not be evaluated.
	BlockOnGateError bool
	// ProfileWindowDays is the trailing window used for business profiles.
	ProfileWindowDays int
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		LLMTimeout:        DefaultLLMTimeout,
		BlockOnGateError:  true,
		ProfileWindowDays: memory.DefaultProfileWindowDays,
	}
}

// Pipeline handles recommendation requests.
type Pipeline struct {
	deps     Deps
	insights *memory.Insights
	logger   *slog.Logger
	inflight singleflight.Group
	now      func() time.Time
	cfg      Config
}

// New validates deps and builds a Pipeline.
func New(deps Deps, cfg Config) (*Pipeline, error) {
	if deps.Extractor == nil {
		return nil, fmt.Errorf("%w: extractor is required", common.ErrMissingConfig)
	}
	if deps.Explainer == nil {
		return nil, fmt.Errorf("%w: explainer is required", common.ErrMissingConfig)
	}
	if deps.Guardrails == nil {
		return nil, fmt.Errorf("%w: guardrails are required", common.ErrMissingConfig)
	}
	if deps.Engine == nil {
		deps.Engine = engine.Default()
	}
	if cfg.LLMTimeout <= 0 {
		cfg.LLMTimeout = DefaultLLMTimeout
	}
	if cfg.ProfileWindowDays <= 0 {
		cfg.ProfileWindowDays = memory.DefaultProfileWindowDays
	}

	p := &Pipeline{
		deps:   deps,
		cfg:    cfg,
		logger: common.LoggerOrDefault(deps.Logger),
		now:    time.Now,
	}
	if deps.Store != nil {
		p.insights = memory.NewInsights(deps.Store)
	}
	return p, nil
}

// Request is one piece of intelligence to analyse.
type Request struct {
	Text          string `json:"text"`
	BusinessID    string `json:"business_id,omitempty"`
	UserID        string `json:"user_id,omitempty"`
	DisableMemory bool   `json:"disable_memory,omitempty"`
}

// HandleRequest runs the full pipeline for req and returns exactly one recommendation.
func (p *Pipeline) HandleRequest(ctx context.Context, req Request) (model.Recommendation, error) {
	rec, err := p.handle(ctx, req)
	p.recordOutcome(err)
	return rec, err
}

func (p *Pipeline) handle(ctx context.Context, req Request) (model.Recommendation, error) {
	if err := validateText(req.Text); err != nil {
		return model.Recommendation{}, err
	}

	warnings, err := p.checkInput(ctx, req)
	if err != nil {
		return model.Recommendation{}, err
	}

	extracted, err := p.extract(ctx, req.Text)
	if err != nil {
		return model.Recommendation{}, err
	}

	fp := fingerprint.Compute(extracted)
	decisionID := uuid.NewString()
	logger := p.logger.With("decision_id", decisionID, "fingerprint", fp)

	if cached, ok := p.deps.Cache.Get(ctx, fp); ok {
		cached.DecisionID = decisionID
		cached.Fingerprint = fp
		cached.CacheHit = true
		cached.Warnings = append(warnings, cached.Warnings...)
		logger.Debug("serving cached recommendation", "best_move", cached.StrategyType)
		p.remember(req, extracted, cached)
		return cached, nil
	}

	// Concurrent misses on one fingerprint share a single explanation.
	v, err, shared := p.inflight.Do(fp, func() (any, error) {
		return p.resolve(context.WithoutCancel(ctx), fp, extracted)
	})
	if err != nil {
		return model.Recommendation{}, err
	}

	rec := cloneRecommendation(v.(model.Recommendation))
	rec.DecisionID = decisionID
	rec.Fingerprint = fp
	rec.Warnings = append(warnings, rec.Warnings...)
	logger.Info("recommendation ready",
		"best_move", rec.StrategyType,
		"focus", rec.Focus,
		"urgency", rec.Urgency,
		"shared", shared)

	p.remember(req, extracted, rec)
	return rec, nil
}

// checkInput runs the input gates and returns their warnings.
func (p *Pipeline) checkInput(ctx context.Context, req Request) ([]string, error) {
	start := time.Now()
	report := p.deps.Guardrails.CheckInput(ctx, req.Text, req.BusinessID, req.UserID)
	p.observeStage(observability.StageGuardrails, start)

	if !report.Result.Passed {
		p.deps.Guardrails.LogViolations(ctx, "input", report.Result.Violations)
		return nil, report.Result.BlockedError()
	}

	if len(report.Unevaluated) > 0 {
		if p.cfg.BlockOnGateError {
			return nil, common.NewExternalServiceError(ServiceGuardrails,
				fmt.Errorf("gates not evaluated: %s", strings.Join(report.Unevaluated, ", ")))
		}
		p.logger.Warn("proceeding with unevaluated gates", "gates", report.Unevaluated)
	}

	for _, w := range report.Result.Warnings {
		p.logger.Warn("guardrail warning", "stage", "input", "warning", w)
	}
	return slices.Clone(report.Result.Warnings), nil
}

func (p *Pipeline) extract(ctx context.Context, text string) (model.ExtractedContext, error) {
	start := time.Now()
	defer p.observeStage(observability.StageExtract, start)

	callCtx, cancel := context.WithTimeout(ctx, p.cfg.LLMTimeout)
	defer cancel()

	extracted, err := p.deps.Extractor.Extract(callCtx, text)
	if err != nil {
		return model.ExtractedContext{}, common.NewExternalServiceError(ServiceExtractor, err)
	}
	return extracted.Normalize(), nil
}

// resolve decides, explains and output-checks a cache miss, then caches the result.
func (p *Pipeline) resolve(ctx context.Context, fp string, extracted model.ExtractedContext) (model.Recommendation, error) {
	start := time.Now()
	decision := p.deps.Engine.Decide(extracted)
	p.observeStage(observability.StageDecide, start)

	explanation, err := p.explain(ctx, model.NewExplainRequest(decision, extracted))
	if err != nil {
		return model.Recommendation{}, err
	}

	rec := model.NewRecommendation(decision, explanation)

	output := p.deps.Guardrails.CheckOutput(rec)
	if !output.Passed {
		p.deps.Guardrails.LogViolations(ctx, "output", output.Violations)
		p.logger.Warn("output guardrail triggered, substituting safe fallback",
			"fingerprint", fp,
			"best_move", rec.StrategyType,
			"focus", rec.Focus)
		rec = model.SafeFallbackRecommendation()
		if p.deps.Metrics != nil {
			p.deps.Metrics.OutputFallback()
		}
	}
	for _, w := range output.Warnings {
		p.logger.Warn("guardrail warning", "stage", "output", "warning", w)
	}

	rec.Warnings = slices.Clone(output.Warnings)
	p.deps.Cache.Put(ctx, fp, rec)
	return rec, nil
}

func (p *Pipeline) explain(ctx context.Context, req model.ExplainRequest) (model.Explanation, error) {
	start := time.Now()
	defer p.observeStage(observability.StageExplain, start)

	callCtx, cancel := context.WithTimeout(ctx, p.cfg.LLMTimeout)
	defer cancel()

	explanation, err := p.deps.Explainer.Explain(callCtx, req)
	if err != nil {
		return model.Explanation{}, common.NewExternalServiceError(ServiceExplainer, err)
	}
	return explanation, nil
}

// remember hands a decision record to the memory writer without waiting.
func (p *Pipeline) remember(req Request, extracted model.ExtractedContext, rec model.Recommendation) {
	if req.DisableMemory || req.BusinessID == "" || p.deps.Memory == nil {
		return
	}

	record := model.DecisionRecord{
		ID:             rec.DecisionID,
		BusinessID:     req.BusinessID,
		CreatedAt:      p.now().UTC(),
		CompetitorName: extracted.PrimaryName(),
		Context:        extracted,
		StrategyType:   rec.StrategyType,
		Focus:          rec.Focus,
		Urgency:        rec.Urgency,
		Avoid:          slices.Clone(rec.Avoid),
		Confidence:     rec.Confidence,
		Fingerprint:    rec.Fingerprint,
		CacheHit:       rec.CacheHit,
	}
	if !p.deps.Memory.Submit(record) {
		p.logger.Warn("decision record not queued", "decision_id", rec.DecisionID)
	}
}

// HandleBusinessSnapshot checks access, loads the stored business snapshot
// and analyses it as a regular request.
func (p *Pipeline) HandleBusinessSnapshot(ctx context.Context, businessID, userID string, disableMemory bool) (model.Recommendation, error) {
	text, err := p.loadSnapshot(ctx, businessID, userID)
	if err != nil {
		p.recordOutcome(err)
		return model.Recommendation{}, err
	}

	return p.HandleRequest(ctx, Request{
		Text:          text,
		BusinessID:    businessID,
		UserID:        userID,
		DisableMemory: disableMemory,
	})
}

func (p *Pipeline) loadSnapshot(ctx context.Context, businessID, userID string) (string, error) {
	if strings.TrimSpace(businessID) == "" {
		return "", common.NewValidationError("business_id", "business id is required")
	}
	if p.deps.Snapshots == nil {
		return "", fmt.Errorf("%w: no snapshot source configured", common.ErrMissingConfig)
	}

	access, err := p.deps.Guardrails.CheckAccess(ctx, businessID, userID)
	if err != nil {
		return "", common.NewExternalServiceError(ServiceGuardrails, err)
	}
	if !access.Passed {
		p.deps.Guardrails.LogViolations(ctx, "access", access.Violations)
		return "", access.BlockedError()
	}

	text, err := p.deps.Snapshots.Snapshot(ctx, businessID)
	if err != nil {
		return "", common.NewExternalServiceError(ServiceSnapshots, err)
	}
	return text, nil
}

// Insights is the behavioural summary of one business.
type Insights struct {
	Profile       *model.BusinessProfile `json:"profile"`
	SpiralWarning *model.SpiralWarning   `json:"spiral_warning"`
}

// BusinessInsights builds the profile and spiral check for businessID.
func (p *Pipeline) BusinessInsights(ctx context.Context, businessID string) (Insights, error) {
	if err := p.requireInsights(businessID); err != nil {
		return Insights{}, err
	}

	profile, err := p.insights.BuildProfile(ctx, businessID, p.cfg.ProfileWindowDays)
	if err != nil {
		return Insights{}, common.NewExternalServiceError(ServiceMemory, err)
	}
	spiral, err := p.insights.DetectReactiveSpiral(ctx, businessID)
	if err != nil {
		return Insights{}, common.NewExternalServiceError(ServiceMemory, err)
	}
	if spiral != nil {
		p.logger.Warn("reactive spiral detected",
			"business_id", businessID,
			"severity", spiral.Severity,
			"competitor", spiral.DominantCompetitor)
	}

	return Insights{Profile: profile, SpiralWarning: spiral}, nil
}

// History is the decision trail for one competitor.
type History struct {
	Trend     model.CompetitorTrend  `json:"trend"`
	Decisions []model.DecisionRecord `json:"decisions"`
}

// CompetitorHistory returns the trend and the last 90 days of decisions about competitor.
func (p *Pipeline) CompetitorHistory(ctx context.Context, businessID, competitor string) (History, error) {
	if err := p.requireInsights(businessID); err != nil {
		return History{}, err
	}
	if strings.TrimSpace(competitor) == "" {
		return History{}, common.NewValidationError("competitor", "competitor name is required")
	}

	trend, err := p.insights.CompetitorTrend(ctx, businessID, competitor)
	if err != nil {
		return History{}, common.NewExternalServiceError(ServiceMemory, err)
	}

	since := p.now().UTC().AddDate(0, 0, -HistoryWindowDays)
	decisions, err := p.deps.Store.DecisionsByCompetitor(ctx, businessID, competitor, since)
	if err != nil {
		return History{}, common.NewExternalServiceError(ServiceMemory, err)
	}
	if decisions == nil {
		decisions = []model.DecisionRecord{}
	}

	return History{Trend: trend, Decisions: decisions}, nil
}

// RuleDiagnostics traces every rule against ctx without side effects.
func (p *Pipeline) RuleDiagnostics(ctx model.ExtractedContext) engine.Diagnostics {
	return p.deps.Engine.Diagnose(ctx.Normalize())
}

func (p *Pipeline) requireInsights(businessID string) error {
	if strings.TrimSpace(businessID) == "" {
		return common.NewValidationError("business_id", "business id is required")
	}
	if p.insights == nil {
		return fmt.Errorf("%w: no decision store configured", common.ErrMissingConfig)
	}
	return nil
}

func validateText(text string) error {
	if strings.TrimSpace(text) == "" {
		return common.NewValidationError("text", "input cannot be empty")
	}
	if !utf8.ValidString(text) {
		return common.NewValidationError("text", "input must be valid UTF-8")
	}
	return nil
}

func (p *Pipeline) recordOutcome(err error) {
	if p.deps.Metrics == nil {
		return
	}
	switch {
	case err == nil:
		p.deps.Metrics.Request(observability.OutcomeSuccess)
	case errors.Is(err, common.ErrValidation):
		p.deps.Metrics.Request(observability.OutcomeInvalid)
	case errors.Is(err, common.ErrGuardrailBlocked):
		p.deps.Metrics.Request(observability.OutcomeBlocked)
	default:
		p.deps.Metrics.Request(observability.OutcomeExternal)
	}
}

func (p *Pipeline) observeStage(stage string, start time.Time) {
	if p.deps.Metrics != nil {
		p.deps.Metrics.ObserveStage(stage, start)
	}
}

func cloneRecommendation(rec model.Recommendation) model.Recommendation {
	rec.Avoid = slices.Clone(rec.Avoid)
	rec.Warnings = slices.Clone(rec.Warnings)
	return rec
}
