package llm

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/Veraticus/rivalwatch/internal/common"
	"github.com/Veraticus/rivalwatch/internal/model"
)

const roleAnalyst = "analyst"

// Analyst turns free-text intelligence into an ExtractedContext.
type Analyst struct {
	client Client
	logger *slog.Logger
}

// NewAnalyst creates an analyst over client.
func NewAnalyst(client Client, logger *slog.Logger) *Analyst {
	return &Analyst{client: client, logger: common.LoggerOrDefault(logger)}
}

type analystReply struct {
	Competitors   *[]analystCompetitor `json:"competitors"`
	MarketSignals []string             `json:"market_signals"`
	UserIntent    string               `json:"user_intent"`
}

type analystCompetitor struct {
	Name    string `json:"name"`
	Signals struct {
		Event             string `json:"event"`
		Sentiment         string `json:"sentiment"`
		Clarity           string `json:"clarity"`
		PriceInfo         string `json:"price_info"`
		ExecutionQuality  string `json:"execution_quality"`
		MessagingStrength string `json:"messaging_strength"`
		MarketConfusion   string `json:"market_confusion"`
	} `json:"signals"`
}

// Extract asks the model for structured signals. Values outside the closed
// vocabularies are coerced to unknown; malformed output is a SchemaValidationError.
func (a *Analyst) Extract(ctx context.Context, text string) (model.ExtractedContext, error) {
	raw, err := a.client.Complete(ctx, analystSystemPrompt, text)
	if err != nil {
		return model.ExtractedContext{}, err
	}

	var reply analystReply
	if err := decodeObject(roleAnalyst, raw, &reply); err != nil {
		return model.ExtractedContext{}, err
	}
	if reply.Competitors == nil {
		return model.ExtractedContext{}, &SchemaValidationError{
			Role:   roleAnalyst,
			Output: raw,
			Err:    errors.New("missing competitors field"),
		}
	}

	extracted := model.ExtractedContext{
		Competitors:   make([]model.Competitor, 0, len(*reply.Competitors)),
		MarketSignals: make([]string, 0, len(reply.MarketSignals)),
		UserIntent:    model.ParseUserIntent(reply.UserIntent),
	}

	for i, comp := range *reply.Competitors {
		name := strings.TrimSpace(comp.Name)
		if name == "" {
			return model.ExtractedContext{}, &SchemaValidationError{
				Role:   roleAnalyst,
				Output: raw,
				Err:    errors.New("competitor without a name"),
			}
		}
		s := comp.Signals
		signal := model.NewCompetitorSignal(s.Event, s.Sentiment, s.Clarity, s.PriceInfo,
			s.ExecutionQuality, s.MessagingStrength, s.MarketConfusion)
		extracted.Competitors = append(extracted.Competitors, model.Competitor{Name: name, Signals: signal})

		a.logger.Debug("extracted competitor signal",
			"index", i,
			"competitor", name,
			"event", signal.Event,
			"sentiment", signal.Sentiment)
	}

	for _, signal := range reply.MarketSignals {
		if signal = strings.TrimSpace(signal); signal != "" {
			extracted.MarketSignals = append(extracted.MarketSignals, signal)
		}
	}

	return extracted, nil
}
