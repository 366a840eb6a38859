// Package model defines the core domain models used throughout the application.
package model

import "strings"

// EventType is the kind of competitor event described in the input.
type EventType string

// Event type constants.
const (
	EventNewProductLaunch EventType = "new_product_launch"
	EventPriceChange      EventType = "price_change"
	EventNone             EventType = "none"
)

// Sentiment is how the market feels about a competitor.
type Sentiment string

// Sentiment constants.
const (
	SentimentPositive      Sentiment = "positive"
	SentimentMixedPositive Sentiment = "mixed_positive"
	SentimentNeutral       Sentiment = "neutral"
	SentimentNegative      Sentiment = "negative"
	SentimentUnknown       Sentiment = "unknown"
)

// Clarity is how understandable a competitor's offering is.
type Clarity string

// Clarity constants.
const (
	ClarityClear     Clarity = "clear"
	ClarityConfusing Clarity = "confusing"
	ClarityUnknown   Clarity = "unknown"
)

// PriceDirection is the direction of a competitor's price move.
type PriceDirection string

// Price direction constants.
const (
	PriceLower   PriceDirection = "lower"
	PriceHigher  PriceDirection = "higher"
	PriceSame    PriceDirection = "same"
	PriceUnknown PriceDirection = "unknown"
)

// ExecutionQuality is how well a competitor is delivering.
type ExecutionQuality string

// Execution quality constants.
const (
	ExecutionStrong  ExecutionQuality = "strong"
	ExecutionAverage ExecutionQuality = "average"
	ExecutionWeak    ExecutionQuality = "weak"
	ExecutionUnknown ExecutionQuality = "unknown"
)

// MessagingStrength is how clear and differentiated a competitor's messaging is.
type MessagingStrength string

// Messaging strength constants.
const (
	MessagingClear     MessagingStrength = "clear"
	MessagingGeneric   MessagingStrength = "generic"
	MessagingConfusing MessagingStrength = "confusing"
	MessagingUnknown   MessagingStrength = "unknown"
)

// MarketConfusion is how unclear the market response appears.
type MarketConfusion string

// Market confusion constants.
const (
	ConfusionHigh    MarketConfusion = "high"
	ConfusionMedium  MarketConfusion = "medium"
	ConfusionLow     MarketConfusion = "low"
	ConfusionUnknown MarketConfusion = "unknown"
)

// CompetitorSignal holds one competitor's classified attributes.
// Missing information is always represented by the unknown value of each field.
type CompetitorSignal struct {
	Event             EventType         `json:"event" validate:"required,oneof=new_product_launch price_change none"`
	Sentiment         Sentiment         `json:"sentiment" validate:"required,oneof=positive mixed_positive neutral negative unknown"`
	Clarity           Clarity           `json:"clarity" validate:"required,oneof=clear confusing unknown"`
	PriceDirection    PriceDirection    `json:"price_info" validate:"required,oneof=lower higher same unknown"`
	ExecutionQuality  ExecutionQuality  `json:"execution_quality" validate:"required,oneof=strong average weak unknown"`
	MessagingStrength MessagingStrength `json:"messaging_strength" validate:"required,oneof=clear generic confusing unknown"`
	MarketConfusion   MarketConfusion   `json:"market_confusion" validate:"required,oneof=high medium low unknown"`
}

// UnknownSignal returns a signal with every field set to its unknown value.
func UnknownSignal() CompetitorSignal {
	return CompetitorSignal{
		Event:             EventNone,
		Sentiment:         SentimentUnknown,
		Clarity:           ClarityUnknown,
		PriceDirection:    PriceUnknown,
		ExecutionQuality:  ExecutionUnknown,
		MessagingStrength: MessagingUnknown,
		MarketConfusion:   ConfusionUnknown,
	}
}

// NewCompetitorSignal builds a signal from raw string values, coercing anything
// outside the closed enumerations to the field's unknown value.
func NewCompetitorSignal(event, sentiment, clarity, price, execution, messaging, confusion string) CompetitorSignal {
	return CompetitorSignal{
		Event:             ParseEventType(event),
		Sentiment:         ParseSentiment(sentiment),
		Clarity:           ParseClarity(clarity),
		PriceDirection:    ParsePriceDirection(price),
		ExecutionQuality:  ParseExecutionQuality(execution),
		MessagingStrength: ParseMessagingStrength(messaging),
		MarketConfusion:   ParseMarketConfusion(confusion),
	}
}

// Normalize returns a copy with every field coerced into its enumeration.
func (s CompetitorSignal) Normalize() CompetitorSignal {
	return NewCompetitorSignal(
		string(s.Event),
		string(s.Sentiment),
		string(s.Clarity),
		string(s.PriceDirection),
		string(s.ExecutionQuality),
		string(s.MessagingStrength),
		string(s.MarketConfusion),
	)
}

// Summary renders the signal the way it is handed to the explainer.
func (s CompetitorSignal) Summary(name string) string {
	return name + ": event=" + string(s.Event) +
		", sentiment=" + string(s.Sentiment) +
		", clarity=" + string(s.Clarity) +
		", price=" + string(s.PriceDirection) +
		", execution=" + string(s.ExecutionQuality) +
		", messaging=" + string(s.MessagingStrength) +
		", confusion=" + string(s.MarketConfusion)
}

func normalizeEnum(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// ParseEventType coerces a raw value into EventType, defaulting to none.
func ParseEventType(value string) EventType {
	switch v := EventType(normalizeEnum(value)); v {
	case EventNewProductLaunch, EventPriceChange, EventNone:
		return v
	}
	return EventNone
}

// ParseSentiment coerces a raw value into Sentiment, defaulting to unknown.
func ParseSentiment(value string) Sentiment {
	switch v := Sentiment(normalizeEnum(value)); v {
	case SentimentPositive, SentimentMixedPositive, SentimentNeutral, SentimentNegative, SentimentUnknown:
		return v
	}
	return SentimentUnknown
}

// ParseClarity coerces a raw value into Clarity, defaulting to unknown.
func ParseClarity(value string) Clarity {
	switch v := Clarity(normalizeEnum(value)); v {
	case ClarityClear, ClarityConfusing, ClarityUnknown:
		return v
	}
	return ClarityUnknown
}

// ParsePriceDirection coerces a raw value into PriceDirection, defaulting to unknown.
func ParsePriceDirection(value string) PriceDirection {
	switch v := PriceDirection(normalizeEnum(value)); v {
	case PriceLower, PriceHigher, PriceSame, PriceUnknown:
		return v
	}
	return PriceUnknown
}

// ParseExecutionQuality coerces a raw value into ExecutionQuality, defaulting to unknown.
func ParseExecutionQuality(value string) ExecutionQuality {
	switch v := ExecutionQuality(normalizeEnum(value)); v {
	case ExecutionStrong, ExecutionAverage, ExecutionWeak, ExecutionUnknown:
		return v
	}
	return ExecutionUnknown
}

// ParseMessagingStrength coerces a raw value into MessagingStrength, defaulting to unknown.
func ParseMessagingStrength(value string) MessagingStrength {
	switch v := MessagingStrength(normalizeEnum(value)); v {
	case MessagingClear, MessagingGeneric, MessagingConfusing, MessagingUnknown:
		return v
	}
	return MessagingUnknown
}

// ParseMarketConfusion coerces a raw value into MarketConfusion, defaulting to unknown.
func ParseMarketConfusion(value string) MarketConfusion {
	switch v := MarketConfusion(normalizeEnum(value)); v {
	case ConfusionHigh, ConfusionMedium, ConfusionLow, ConfusionUnknown:
		return v
	}
	return ConfusionUnknown
}
