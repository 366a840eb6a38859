package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/rivalwatch/internal/model"
)

// Validation errors.
var (
	ErrNilContext    = errors.New("context cannot be nil")
	ErrEmptyString   = errors.New("string parameter cannot be empty")
	ErrInvalidLimit  = errors.New("limit must be positive")
	ErrInvalidRecord = errors.New("invalid decision record")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateRecord validates a decision record before it is written.
func validateRecord(record model.DecisionRecord) error {
	if strings.TrimSpace(record.ID) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidRecord)
	}
	if strings.TrimSpace(record.BusinessID) == "" {
		return fmt.Errorf("%w: business id is required", ErrInvalidRecord)
	}
	if record.CreatedAt.IsZero() {
		return fmt.Errorf("%w: created_at is required", ErrInvalidRecord)
	}
	if record.StrategyType == "" {
		return fmt.Errorf("%w: strategy type is required", ErrInvalidRecord)
	}
	return nil
}
