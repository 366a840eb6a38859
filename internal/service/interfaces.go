// Package service defines the contracts between the decision pipeline and its collaborators.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/rivalwatch/internal/model"
)

// Extractor turns raw intelligence text into structured signals.
type Extractor interface {
	Extract(ctx context.Context, text string) (model.ExtractedContext, error)
}

// Explainer justifies a decision. It must not alter the supplied strategy fields.
type Explainer interface {
	Explain(ctx context.Context, req model.ExplainRequest) (model.Explanation, error)
}

// SnapshotSource renders a stored business profile as analysable text.
type SnapshotSource interface {
	Snapshot(ctx context.Context, businessID string) (string, error)
}

// DecisionRecorder accepts decision records for asynchronous persistence.
// Submit must never block.
type DecisionRecorder interface {
	Submit(record model.DecisionRecord) bool
}

// DecisionReader is the read side of the decision log. Results are newest first.
type DecisionReader interface {
	DecisionsSince(ctx context.Context, businessID string, since time.Time) ([]model.DecisionRecord, error)
	RecentDecisions(ctx context.Context, businessID string, limit int) ([]model.DecisionRecord, error)
	DecisionsByCompetitor(ctx context.Context, businessID, competitor string, since time.Time) ([]model.DecisionRecord, error)
}

// Metrics receives pipeline-level measurements.
type Metrics interface {
	Request(outcome string)
	OutputFallback()
	ObserveStage(stage string, start time.Time)
}
