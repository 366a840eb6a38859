package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Veraticus/rivalwatch/internal/model"
)

const decisionColumns = `id, business_id, created_at, competitor_name, context, strategy_type,
	focus, urgency, avoid, confidence, fingerprint, cache_hit`

// AppendDecision writes one immutable decision record.
func (s *SQLiteStorage) AppendDecision(ctx context.Context, record model.DecisionRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRecord(record); err != nil {
		return err
	}

	contextJSON, avoidJSON, err := encodeRecord(record)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO decision_memory (`+decisionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.BusinessID,
		record.CreatedAt.UTC().UnixNano(),
		record.CompetitorName,
		contextJSON,
		string(record.StrategyType),
		record.Focus,
		string(record.Urgency),
		avoidJSON,
		string(record.Confidence),
		record.Fingerprint,
		record.CacheHit,
	)
	if err != nil {
		return fmt.Errorf("failed to save decision %s: %w", record.ID, err)
	}
	return nil
}

// DecisionsSince returns a business's decisions made at or after since.
func (s *SQLiteStorage) DecisionsSince(ctx context.Context, businessID string, since time.Time) ([]model.DecisionRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(businessID, "businessID"); err != nil {
		return nil, err
	}

	return s.queryDecisions(ctx, `
		SELECT `+decisionColumns+` FROM decision_memory
		WHERE business_id = ? AND created_at >= ?
		ORDER BY created_at DESC, id DESC`,
		businessID, since.UTC().UnixNano())
}

// RecentDecisions returns a business's latest decisions.
func (s *SQLiteStorage) RecentDecisions(ctx context.Context, businessID string, limit int) ([]model.DecisionRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(businessID, "businessID"); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}

	return s.queryDecisions(ctx, `
		SELECT `+decisionColumns+` FROM decision_memory
		WHERE business_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`,
		businessID, limit)
}

// DecisionsByCompetitor returns a business's decisions about one competitor since a cutoff.
func (s *SQLiteStorage) DecisionsByCompetitor(ctx context.Context, businessID, competitor string, since time.Time) ([]model.DecisionRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(businessID, "businessID"); err != nil {
		return nil, err
	}
	if err := validateString(competitor, "competitor"); err != nil {
		return nil, err
	}

	return s.queryDecisions(ctx, `
		SELECT `+decisionColumns+` FROM decision_memory
		WHERE business_id = ? AND competitor_name = ? AND created_at >= ?
		ORDER BY created_at DESC, id DESC`,
		businessID, competitor, since.UTC().UnixNano())
}

func (s *SQLiteStorage) queryDecisions(ctx context.Context, query string, args ...any) ([]model.DecisionRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query decisions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := []model.DecisionRecord{}
	for rows.Next() {
		record, err := scanDecision(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating decisions: %w", err)
	}
	return records, nil
}

func scanDecision(rows *sql.Rows) (model.DecisionRecord, error) {
	var (
		record      model.DecisionRecord
		createdAt   int64
		contextJSON string
		avoidJSON   string
		strategy    string
		urgency     string
		confidence  string
	)

	err := rows.Scan(
		&record.ID,
		&record.BusinessID,
		&createdAt,
		&record.CompetitorName,
		&contextJSON,
		&strategy,
		&record.Focus,
		&urgency,
		&avoidJSON,
		&confidence,
		&record.Fingerprint,
		&record.CacheHit,
	)
	if err != nil {
		return model.DecisionRecord{}, fmt.Errorf("failed to scan decision: %w", err)
	}

	record.CreatedAt = time.Unix(0, createdAt).UTC()
	record.StrategyType = model.StrategyType(strategy)
	record.Urgency = model.Urgency(urgency)
	record.Confidence = model.Confidence(confidence)

	if err := decodeRecord(&record, []byte(contextJSON), []byte(avoidJSON)); err != nil {
		return model.DecisionRecord{}, err
	}
	return record, nil
}

// encodeRecord serializes the structured columns of a record.
func encodeRecord(record model.DecisionRecord) (contextJSON, avoidJSON []byte, err error) {
	contextJSON, err = json.Marshal(record.Context.Normalize())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode context for decision %s: %w", record.ID, err)
	}
	avoid := record.Avoid
	if avoid == nil {
		avoid = []string{}
	}
	avoidJSON, err = json.Marshal(avoid)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode avoid list for decision %s: %w", record.ID, err)
	}
	return contextJSON, avoidJSON, nil
}

// decodeRecord fills the structured columns of a record.
func decodeRecord(record *model.DecisionRecord, contextJSON, avoidJSON []byte) error {
	if err := json.Unmarshal(contextJSON, &record.Context); err != nil {
		return fmt.Errorf("failed to decode context for decision %s: %w", record.ID, err)
	}
	if err := json.Unmarshal(avoidJSON, &record.Avoid); err != nil {
		return fmt.Errorf("failed to decode avoid list for decision %s: %w", record.ID, err)
	}
	if record.Avoid == nil {
		record.Avoid = []string{}
	}
	return nil
}
