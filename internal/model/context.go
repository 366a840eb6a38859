package model

// UserIntent describes why the user submitted the intelligence.
type UserIntent string

// User intent constants.
const (
	IntentSeekingResponse UserIntent = "seeking_response"
	IntentMonitoring      UserIntent = "monitoring"
	IntentComparison      UserIntent = "comparison"
)

// ParseUserIntent coerces a raw value into UserIntent, defaulting to monitoring.
func ParseUserIntent(value string) UserIntent {
	switch v := UserIntent(normalizeEnum(value)); v {
	case IntentSeekingResponse, IntentMonitoring, IntentComparison:
		return v
	}
	return IntentMonitoring
}

// Competitor pairs a competitor name with its classified signal.
type Competitor struct {
	Name    string           `json:"name" validate:"required"`
	Signals CompetitorSignal `json:"signals"`
}

// ExtractedContext is the structured view of one piece of intelligence.
// It is the sole input to the rule engine and never carries the raw text.
type ExtractedContext struct {
	UserIntent    UserIntent   `json:"user_intent" validate:"required,oneof=seeking_response monitoring comparison"`
	Competitors   []Competitor `json:"competitors" validate:"dive"`
	MarketSignals []string     `json:"market_signals"`
}

// Primary returns the first competitor, which drives rule evaluation.
func (c ExtractedContext) Primary() (Competitor, bool) {
	if len(c.Competitors) == 0 {
		return Competitor{}, false
	}
	return c.Competitors[0], true
}

// PrimaryName returns the primary competitor name, or "Unknown" when there is none.
func (c ExtractedContext) PrimaryName() string {
	if primary, ok := c.Primary(); ok && primary.Name != "" {
		return primary.Name
	}
	return "Unknown"
}

// SignalSummaries renders one line per competitor for the explainer.
func (c ExtractedContext) SignalSummaries() []string {
	summaries := make([]string, 0, len(c.Competitors))
	for _, comp := range c.Competitors {
		summaries = append(summaries, comp.Signals.Summary(comp.Name))
	}
	return summaries
}

// Normalize returns a deep copy with all enumerations coerced and nil slices
// replaced by empty ones, so equal-valued contexts serialize identically.
func (c ExtractedContext) Normalize() ExtractedContext {
	out := ExtractedContext{
		Competitors:   make([]Competitor, 0, len(c.Competitors)),
		MarketSignals: make([]string, 0, len(c.MarketSignals)),
		UserIntent:    ParseUserIntent(string(c.UserIntent)),
	}
	for _, comp := range c.Competitors {
		out.Competitors = append(out.Competitors, Competitor{
			Name:    comp.Name,
			Signals: comp.Signals.Normalize(),
		})
	}
	out.MarketSignals = append(out.MarketSignals, c.MarketSignals...)
	return out
}
