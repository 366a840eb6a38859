package engine

import "github.com/Veraticus/rivalwatch/internal/model"

// Rule is one priority tier of the strategy table.
type Rule interface {
	Name() string
	Evaluate(signal model.CompetitorSignal) (model.StrategyDecision, bool, error)
}

// Case pairs a predicate over a signal with the decision it yields.
type Case struct {
	When func(model.CompetitorSignal) bool
	Then model.StrategyDecision
}

// TableRule is a named, ordered list of cases. The first matching case wins.
type TableRule struct {
	name  string
	cases []Case
}

// NewTableRule creates a rule from cases evaluated in order.
func NewTableRule(name string, cases ...Case) TableRule {
	owned := make([]Case, len(cases))
	for i, c := range cases {
		owned[i] = Case{When: c.When, Then: c.Then.Clone()}
	}
	return TableRule{name: name, cases: owned}
}

// Name returns the rule name.
func (r TableRule) Name() string {
	return r.name
}

// Evaluate returns a copy of the first matching case's decision.
func (r TableRule) Evaluate(signal model.CompetitorSignal) (model.StrategyDecision, bool, error) {
	for _, c := range r.cases {
		if c.When != nil && c.When(signal) {
			return c.Then.Clone(), true, nil
		}
	}
	return model.StrategyDecision{}, false, nil
}

// Rule names of the default table, in priority order.
const (
	RuleMarketLeader          = "market_leader"
	RuleAggressivePositioning = "aggressive_positioning"
	RulePricing               = "pricing"
	RulePositioning           = "positioning"
	RulePriceIncrease         = "price_increase"
	RuleDefensiveWait         = "defensive_wait"
	RuleFallback              = "fallback"
)

// FallbackDecision is selected when no rule matches.
func FallbackDecision() model.StrategyDecision {
	return model.NewStrategyDecision(model.StrategyWait, "monitoring", model.UrgencyLow, "hasty_reaction")
}

// DefaultRules returns the standard strategy table, highest priority first.
func DefaultRules() []Rule {
	return []Rule{
		NewTableRule(RuleMarketLeader, Case{
			When: func(s model.CompetitorSignal) bool {
				return s.ExecutionQuality == model.ExecutionStrong &&
					s.MessagingStrength == model.MessagingClear &&
					s.Sentiment == model.SentimentPositive
			},
			Then: model.NewStrategyDecision(model.StrategyPositioning, "defend_differentiation", model.UrgencyHigh,
				"price_war", "feature_copying"),
		}),
		NewTableRule(RuleAggressivePositioning, Case{
			When: func(s model.CompetitorSignal) bool {
				return s.ExecutionQuality == model.ExecutionStrong &&
					s.MessagingStrength == model.MessagingConfusing &&
					s.MarketConfusion == model.ConfusionHigh
			},
			Then: model.NewStrategyDecision(model.StrategyPositioning, "exploit_messaging_weakness", model.UrgencyHigh,
				"direct_attack", "price_war"),
		}),
		NewTableRule(RulePricing,
			Case{
				When: func(s model.CompetitorSignal) bool {
					return s.PriceDirection == model.PriceLower && s.ExecutionQuality == model.ExecutionStrong
				},
				Then: model.NewStrategyDecision(model.StrategyPricing, "value_not_discount", model.UrgencyHigh,
					"race_to_bottom", "price_war"),
			},
			Case{
				When: func(s model.CompetitorSignal) bool { return s.PriceDirection == model.PriceLower },
				Then: model.NewStrategyDecision(model.StrategyPricing, "value_not_discount", model.UrgencyMedium,
					"race_to_bottom", "price_war"),
			},
		),
		NewTableRule(RulePositioning,
			Case{
				When: func(s model.CompetitorSignal) bool {
					return s.Event == model.EventNewProductLaunch &&
						(s.Sentiment == model.SentimentPositive || s.Sentiment == model.SentimentMixedPositive) &&
						s.Clarity == model.ClarityConfusing
				},
				Then: model.NewStrategyDecision(model.StrategyPositioning, "clarity_and_simplicity", model.UrgencyMedium,
					"price_war"),
			},
			Case{
				When: func(s model.CompetitorSignal) bool {
					return s.ExecutionQuality == model.ExecutionWeak &&
						s.MessagingStrength == model.MessagingGeneric &&
						s.MarketConfusion == model.ConfusionHigh
				},
				Then: model.NewStrategyDecision(model.StrategyPositioning, "differentiation_and_quality", model.UrgencyMedium,
					"price_war", "feature_copying"),
			},
		),
		NewTableRule(RulePriceIncrease, Case{
			When: func(s model.CompetitorSignal) bool { return s.PriceDirection == model.PriceHigher },
			Then: model.NewStrategyDecision(model.StrategyPricing, "value_at_current_price", model.UrgencyMedium,
				"complacency"),
		}),
		NewTableRule(RuleDefensiveWait, Case{
			When: func(s model.CompetitorSignal) bool {
				return s.Event == model.EventNewProductLaunch &&
					s.Sentiment == model.SentimentNegative &&
					s.MarketConfusion == model.ConfusionHigh
			},
			Then: model.NewStrategyDecision(model.StrategyWait, "let_competitor_fail_first", model.UrgencyLow,
				"premature_reaction"),
		}),
	}
}
