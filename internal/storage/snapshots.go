package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// BusinessSnapshot is the stored description of a business and its competitors.
type BusinessSnapshot struct {
	Description    string
	TargetAudience string
	Competitors    []CompetitorNote
}

// CompetitorNote is what the business has recorded about one competitor.
type CompetitorNote struct {
	Name    string
	Context string
}

// Text renders the snapshot as free-text intelligence.
func (b BusinessSnapshot) Text() string {
	lines := []string{"Business context:"}
	if b.Description != "" {
		lines = append(lines, b.Description)
	}
	if b.TargetAudience != "" {
		lines = append(lines, "Target audience: "+b.TargetAudience)
	}
	lines = append(lines, "")

	for _, c := range b.Competitors {
		lines = append(lines, "Competitor: "+c.Name, c.Context, "")
	}

	return strings.Join(lines, "\n")
}

// Snapshot loads a business's stored context as free text.
func (s *SQLiteStorage) Snapshot(ctx context.Context, businessID string) (string, error) {
	if err := validateContext(ctx); err != nil {
		return "", err
	}
	if err := validateString(businessID, "businessID"); err != nil {
		return "", err
	}

	var snap BusinessSnapshot
	err := s.db.QueryRowContext(ctx,
		`SELECT description, target_audience FROM businesses WHERE id = ?`, businessID,
	).Scan(&snap.Description, &snap.TargetAudience)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrBusinessNotFound, businessID)
	}
	if err != nil {
		return "", fmt.Errorf("failed to load business %s: %w", businessID, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT name, context FROM competitors WHERE business_id = ? ORDER BY id`, businessID)
	if err != nil {
		return "", fmt.Errorf("failed to load competitors for %s: %w", businessID, err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var note CompetitorNote
		if err := rows.Scan(&note.Name, &note.Context); err != nil {
			return "", fmt.Errorf("failed to scan competitor: %w", err)
		}
		snap.Competitors = append(snap.Competitors, note)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("error iterating competitors: %w", err)
	}

	return snap.Text(), nil
}
