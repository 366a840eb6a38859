package model

import "slices"

// StrategyType is the kind of response recommended.
type StrategyType string

// Strategy type constants.
const (
	StrategyPositioning StrategyType = "positioning_response"
	StrategyPricing     StrategyType = "pricing_response"
	StrategyWait        StrategyType = "wait_and_observe"
)

// Urgency is how quickly a strategy should be executed.
type Urgency string

// Urgency constants.
const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// Score maps urgency onto 1..3 for trend arithmetic. Unrecognised values score 0.
func (u Urgency) Score() int {
	switch u {
	case UrgencyLow:
		return 1
	case UrgencyMedium:
		return 2
	case UrgencyHigh:
		return 3
	}
	return 0
}

// Confidence is the explainer's confidence in its explanation.
type Confidence string

// Confidence constants.
const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// ParseConfidence reports whether value is a valid confidence level.
func ParseConfidence(value string) (Confidence, bool) {
	switch c := Confidence(normalizeEnum(value)); c {
	case ConfidenceLow, ConfidenceMedium, ConfidenceHigh:
		return c, true
	}
	return "", false
}

// StrategyDecision is the rule engine's output.
type StrategyDecision struct {
	StrategyType StrategyType `json:"strategy_type"`
	Focus        string       `json:"focus"`
	Urgency      Urgency      `json:"urgency"`
	Avoid        []string     `json:"avoid"`
}

// NewStrategyDecision builds a decision owning its own copy of avoid.
func NewStrategyDecision(strategy StrategyType, focus string, urgency Urgency, avoid ...string) StrategyDecision {
	return StrategyDecision{
		StrategyType: strategy,
		Focus:        focus,
		Urgency:      urgency,
		Avoid:        cloneAvoid(avoid),
	}
}

// Clone returns a copy that shares no memory with d.
func (d StrategyDecision) Clone() StrategyDecision {
	d.Avoid = cloneAvoid(d.Avoid)
	return d
}

func cloneAvoid(avoid []string) []string {
	if avoid == nil {
		return []string{}
	}
	return slices.Clone(avoid)
}

// Explanation is the natural-language justification for a decision.
type Explanation struct {
	Advice     string     `json:"advice"`
	Reason     string     `json:"reason"`
	Confidence Confidence `json:"confidence"`
}

// Recommendation is the complete response returned for a request.
type Recommendation struct {
	DecisionID   string       `json:"decision_id,omitempty"`
	Fingerprint  string       `json:"fingerprint,omitempty"`
	StrategyType StrategyType `json:"best_move"`
	Focus        string       `json:"focus"`
	Urgency      Urgency      `json:"urgency"`
	Avoid        []string     `json:"avoid"`
	Advice       string       `json:"advice"`
	Reason       string       `json:"reason"`
	Confidence   Confidence   `json:"confidence"`
	Warnings     []string     `json:"warnings,omitempty"`
	CacheHit     bool         `json:"cache_hit"`
}

// NewRecommendation assembles a response from a decision and its explanation.
func NewRecommendation(decision StrategyDecision, explanation Explanation) Recommendation {
	return Recommendation{
		StrategyType: decision.StrategyType,
		Focus:        decision.Focus,
		Urgency:      decision.Urgency,
		Avoid:        cloneAvoid(decision.Avoid),
		Advice:       explanation.Advice,
		Reason:       explanation.Reason,
		Confidence:   explanation.Confidence,
	}
}

// Decision extracts the strategy fields of the recommendation.
func (r Recommendation) Decision() StrategyDecision {
	return NewStrategyDecision(r.StrategyType, r.Focus, r.Urgency, r.Avoid...)
}

// SafeFallbackRecommendation is substituted when output policy rejects a response.
func SafeFallbackRecommendation() Recommendation {
	return Recommendation{
		StrategyType: StrategyWait,
		Focus:        "monitoring",
		Urgency:      UrgencyLow,
		Avoid:        []string{},
		Advice:       "Recommend careful monitoring before taking action.",
		Reason:       "Output validation required a conservative approach.",
		Confidence:   ConfidenceLow,
	}
}

// ExplainRequest is everything the explainer is allowed to see about a decision.
type ExplainRequest struct {
	StrategyType StrategyType `json:"strategy_type"`
	Focus        string       `json:"focus"`
	Urgency      Urgency      `json:"urgency"`
	Signals      []string     `json:"signals"`
}

// NewExplainRequest builds the explainer input for decision over ctx's signals.
func NewExplainRequest(decision StrategyDecision, ctx ExtractedContext) ExplainRequest {
	return ExplainRequest{
		StrategyType: decision.StrategyType,
		Focus:        decision.Focus,
		Urgency:      decision.Urgency,
		Signals:      ctx.SignalSummaries(),
	}
}
