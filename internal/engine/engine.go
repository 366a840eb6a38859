// Package engine selects exactly one strategy for an extracted context using a
// priority-ordered table of deterministic rules.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/rivalwatch/internal/common"
	"github.com/Veraticus/rivalwatch/internal/model"
)

// Engine is stateless and safe for concurrent use.
type Engine struct {
	logger *slog.Logger
	rules  []Rule
}

// New creates an engine evaluating rules in the given order.
func New(rules ...Rule) *Engine {
	return &Engine{rules: append([]Rule(nil), rules...)}
}

// Default creates an engine with the standard strategy table.
func Default() *Engine {
	return New(DefaultRules()...)
}

// WithLogger returns a copy of the engine that logs rule faults to logger.
func (e *Engine) WithLogger(logger *slog.Logger) *Engine {
	clone := *e
	clone.logger = logger
	return &clone
}

// Rules returns the rule names in priority order.
func (e *Engine) Rules() []string {
	names := make([]string, 0, len(e.rules))
	for _, r := range e.rules {
		names = append(names, r.Name())
	}
	return names
}

// Decide returns the decision of the first matching rule for the primary
// competitor, or the fallback. It never fails.
func (e *Engine) Decide(ctx model.ExtractedContext) model.StrategyDecision {
	primary, ok := ctx.Primary()
	if !ok {
		return FallbackDecision()
	}

	signal := primary.Signals.Normalize()
	for _, rule := range e.rules {
		decision, matched, err := evaluate(rule, signal)
		if err != nil {
			common.LogError(context.Background(), e.logger, err, "rule evaluation failed, skipping",
				common.Fields{"rule": rule.Name(), "competitor": primary.Name})
			continue
		}
		if matched {
			return decision
		}
	}

	return FallbackDecision()
}

// RuleResult is the outcome of one rule during diagnosis.
type RuleResult struct {
	Decision *model.StrategyDecision `json:"decision,omitempty"`
	Rule     string                  `json:"rule"`
	Error    string                  `json:"error,omitempty"`
	Matched  bool                    `json:"matched"`
}

// Diagnostics explains how the engine would decide a context.
type Diagnostics struct {
	Signal       *model.CompetitorSignal `json:"signal,omitempty"`
	Competitor   string                  `json:"competitor"`
	SelectedRule string                  `json:"selected_rule"`
	Rules        []RuleResult            `json:"rules"`
	Fallback     model.StrategyDecision  `json:"fallback"`
	Selected     model.StrategyDecision  `json:"selected"`
}

// Diagnose evaluates every rule against the primary competitor and reports
// each outcome alongside the decision Decide would select.
func (e *Engine) Diagnose(ctx model.ExtractedContext) Diagnostics {
	diag := Diagnostics{
		Competitor:   ctx.PrimaryName(),
		Rules:        make([]RuleResult, 0, len(e.rules)),
		Fallback:     FallbackDecision(),
		Selected:     FallbackDecision(),
		SelectedRule: RuleFallback,
	}

	primary, ok := ctx.Primary()
	if !ok {
		return diag
	}

	signal := primary.Signals.Normalize()
	diag.Signal = &signal

	selected := false
	for _, rule := range e.rules {
		result := RuleResult{Rule: rule.Name()}
		decision, matched, err := evaluate(rule, signal)
		switch {
		case err != nil:
			result.Error = err.Error()
		case matched:
			result.Matched = true
			result.Decision = &decision
			if !selected {
				diag.Selected = decision.Clone()
				diag.SelectedRule = rule.Name()
				selected = true
			}
		}
		diag.Rules = append(diag.Rules, result)
	}

	return diag
}

// evaluate runs a rule, converting a panic into an error.
func evaluate(rule Rule, signal model.CompetitorSignal) (decision model.StrategyDecision, matched bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			decision, matched = model.StrategyDecision{}, false
			err = fmt.Errorf("rule %s panicked: %v", rule.Name(), r)
		}
	}()

	decision, matched, err = rule.Evaluate(signal)
	if err != nil {
		return model.StrategyDecision{}, false, fmt.Errorf("rule %s: %w", rule.Name(), err)
	}
	if matched {
		decision = decision.Clone()
	}
	return decision, matched, nil
}
