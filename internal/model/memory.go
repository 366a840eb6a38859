package model

import "time"

// DecisionRecord is one immutable row of the decision log.
type DecisionRecord struct {
	CreatedAt      time.Time        `json:"created_at"`
	Context        ExtractedContext `json:"context"`
	ID             string           `json:"id"`
	BusinessID     string           `json:"business_id"`
	CompetitorName string           `json:"competitor_name"`
	StrategyType   StrategyType     `json:"strategy_type"`
	Focus          string           `json:"focus"`
	Urgency        Urgency          `json:"urgency"`
	Confidence     Confidence       `json:"confidence"`
	Fingerprint    string           `json:"fingerprint"`
	Avoid          []string         `json:"avoid"`
	CacheHit       bool             `json:"cache_hit"`
}

// Pattern labels used in business profiles.
const (
	PatternReactivity          = "reactivity_level"
	PatternWaitTendency        = "wait_tendency"
	PatternPriceWarRisk        = "price_war_risk"
	PatternCompetitorDiversity = "competitor_diversity"

	LevelHigh     = "high"
	LevelModerate = "moderate"
	LevelLow      = "low"
)

// BusinessProfile is an aggregate of a business's recent decisions.
// It is recomputed on demand and never persisted.
type BusinessProfile struct {
	LastDecisionAt  time.Time            `json:"last_decision_at"`
	StrategyCounts  map[StrategyType]int `json:"decision_frequency"`
	UrgencyCounts   map[Urgency]int      `json:"urgency_counts"`
	Patterns        map[string]string    `json:"patterns"`
	BusinessID      string               `json:"business_id"`
	DominantUrgency Urgency              `json:"avg_urgency"`
	TopCompetitors  []string             `json:"common_competitors"`
	TotalDecisions  int                  `json:"total_decisions"`
}

// SpiralWarning reports a detected reactive spiral.
type SpiralWarning struct {
	Status             string  `json:"status"`
	Severity           string  `json:"severity"`
	DominantCompetitor string  `json:"dominant_competitor"`
	Recommendation     string  `json:"recommendation"`
	DecisionsPerWeek   float64 `json:"decisions_per_week"`
	HighUrgencyRate    float64 `json:"high_urgency_rate"`
}

// Trend statuses and urgency trend classifications.
const (
	TrendTracked          = "tracked"
	TrendIncreasing       = "increasing"
	TrendDecreasing       = "decreasing"
	TrendStable           = "stable"
	TrendInsufficientData = "insufficient_data"
	TrendNoHistory        = "no_history"
)

// SpiralDetected is the status of a reported reactive spiral.
const SpiralDetected = "spiral_detected"

// MonthlyUrgency is the average urgency for one calendar month.
type MonthlyUrgency struct {
	Month   string  `json:"month"`
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// CompetitorTrend describes how responses to one competitor evolved.
type CompetitorTrend struct {
	FirstSeen          time.Time        `json:"first_seen"`
	LastSeen           time.Time        `json:"last_seen"`
	Status             string           `json:"status"`
	MostCommonResponse StrategyType     `json:"most_common_response,omitempty"`
	UrgencyTrend       string           `json:"urgency_trend,omitempty"`
	Months             []MonthlyUrgency `json:"months,omitempty"`
	TotalAnalyses      int              `json:"total_analyses"`
}
