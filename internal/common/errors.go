// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Request errors.
	ErrValidation       = errors.New("invalid input")
	ErrGuardrailBlocked = errors.New("request blocked by guardrails")

	// Collaborator errors.
	ErrExternalService = errors.New("external service failure")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// ValidationError reports malformed, empty or oversized input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is makes errors.Is(err, ErrValidation) hold for every ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError creates a validation error for field.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// BlockedViolation is the caller-facing part of a guardrail violation.
type BlockedViolation struct {
	Type     string `json:"type"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// GuardrailBlockedError is returned when an input gate blocks a request.
// Its message is the first violation's; all violations are carried along.
type GuardrailBlockedError struct {
	Violations []BlockedViolation
}

func (e *GuardrailBlockedError) Error() string {
	if len(e.Violations) == 0 {
		return ErrGuardrailBlocked.Error()
	}
	return fmt.Sprintf("%s: %s", ErrGuardrailBlocked.Error(), e.Violations[0].Message)
}

// Is makes errors.Is(err, ErrGuardrailBlocked) hold.
func (e *GuardrailBlockedError) Is(target error) bool {
	return target == ErrGuardrailBlocked
}

// ExternalServiceError wraps a failure of an external collaborator.
type ExternalServiceError struct {
	Err     error
	Service string
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrExternalService) hold.
func (e *ExternalServiceError) Is(target error) bool {
	return target == ErrExternalService
}

// NewExternalServiceError wraps err as a failure of service.
func NewExternalServiceError(service string, err error) error {
	return &ExternalServiceError{Service: service, Err: err}
}
