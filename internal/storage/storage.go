// Package storage persists the decision log and reads business snapshots.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/Veraticus/rivalwatch/internal/model"
)

// DecisionStore is the append-only decision log. Query results are newest first.
type DecisionStore interface {
	AppendDecision(ctx context.Context, record model.DecisionRecord) error
	DecisionsSince(ctx context.Context, businessID string, since time.Time) ([]model.DecisionRecord, error)
	RecentDecisions(ctx context.Context, businessID string, limit int) ([]model.DecisionRecord, error)
	DecisionsByCompetitor(ctx context.Context, businessID, competitor string, since time.Time) ([]model.DecisionRecord, error)
	Close() error
}

// ErrBusinessNotFound is returned when a snapshot is requested for an unknown business.
var ErrBusinessNotFound = errors.New("business not found")
