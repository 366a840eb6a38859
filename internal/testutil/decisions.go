package testutil

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/Veraticus/rivalwatch/internal/model"
)

// DefaultBusinessID is the business every built decision belongs to unless overridden.
const DefaultBusinessID = "biz-1"

var decisionSeq atomic.Int64

// DecisionBuilder builds decision records with sensible defaults.
//
//	rec := testutil.NewDecision().
//		About("Acme").
//		Strategy(model.StrategyPricing).
//		Urgency(model.UrgencyHigh).
//		At(now.AddDate(0, 0, -3)).
//		Build()
type DecisionBuilder struct {
	record model.DecisionRecord
}

// NewDecision starts a positioning decision about "Acme" at medium urgency.
func NewDecision() *DecisionBuilder {
	seq := decisionSeq.Add(1)
	return &DecisionBuilder{record: model.DecisionRecord{
		ID:             fmt.Sprintf("dec-%d", seq),
		BusinessID:     DefaultBusinessID,
		CreatedAt:      time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		CompetitorName: "Acme",
		StrategyType:   model.StrategyPositioning,
		Focus:          "clarity_and_simplicity",
		Urgency:        model.UrgencyMedium,
		Confidence:     model.ConfidenceMedium,
		Avoid:          []string{},
		Fingerprint:    fmt.Sprintf("fp-%d", seq),
	}}
}

// For sets the owning business.
func (b *DecisionBuilder) For(businessID string) *DecisionBuilder {
	b.record.BusinessID = businessID
	return b
}

// About sets the primary competitor and a matching extracted context.
func (b *DecisionBuilder) About(competitor string) *DecisionBuilder {
	b.record.CompetitorName = competitor
	b.record.Context = model.ExtractedContext{
		UserIntent:    model.IntentSeekingResponse,
		Competitors:   []model.Competitor{{Name: competitor, Signals: model.UnknownSignal()}},
		MarketSignals: []string{},
	}
	return b
}

// Strategy sets the strategy type.
func (b *DecisionBuilder) Strategy(strategy model.StrategyType) *DecisionBuilder {
	b.record.StrategyType = strategy
	return b
}

// Urgency sets the urgency.
func (b *DecisionBuilder) Urgency(urgency model.Urgency) *DecisionBuilder {
	b.record.Urgency = urgency
	return b
}

// At sets the creation time.
func (b *DecisionBuilder) At(at time.Time) *DecisionBuilder {
	b.record.CreatedAt = at
	return b
}

// WithID overrides the generated id.
func (b *DecisionBuilder) WithID(id string) *DecisionBuilder {
	b.record.ID = id
	return b
}

// Build returns the record. The builder may keep being used.
func (b *DecisionBuilder) Build() model.DecisionRecord {
	rec := b.record
	rec.Avoid = append([]string{}, b.record.Avoid...)
	return rec
}
