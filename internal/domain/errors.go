package domain

import (
	"errors"
	"fmt"
)

// Sentinel categories for domain failures. Callers branch on these via
// errors.Is; the taxonomy separates expected business outcomes from faults.
var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrUnavailable  = errors.New("not available")
	ErrInvalidState = errors.New("invalid state transition")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvariant marks an internal consistency violation. Unlike the
	// other categories it is a fault, not a business outcome: the enclosing
	// unit of work must be rolled back and the error surfaced for alerting.
	ErrInvariant = errors.New("invariant violation")
)

// DomainError pairs a sentinel category with a human-readable message.
type DomainError struct {
	Err     error
	Message string
}

func (e *DomainError) Error() string { return e.Message }

func (e *DomainError) Unwrap() error { return e.Err }

// NewNotFoundError reports a missing entity.
func NewNotFoundError(entity, id string) *DomainError {
	return &DomainError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s %s not found", entity, id),
	}
}

// NewValidationError reports input rejected before any mutation.
func NewValidationError(msg string) *DomainError {
	return &DomainError{Err: ErrValidation, Message: msg}
}

// NewUnavailableError reports an availability conflict (no unit free).
// This is a business failure, distinct from validation errors.
func NewUnavailableError(msg string) *DomainError {
	return &DomainError{Err: ErrUnavailable, Message: msg}
}

// NewInvalidStateError reports a transition not present in the state table.
func NewInvalidStateError(from, to string) *DomainError {
	return &DomainError{
		Err:     ErrInvalidState,
		Message: fmt.Sprintf("cannot transition from %s to %s", from, to),
	}
}

// NewConflictError reports a concurrent-modification conflict.
func NewConflictError(msg string) *DomainError {
	return &DomainError{Err: ErrConflict, Message: msg}
}

// NewUnauthorizedError reports an attempt to act on another guest's record.
func NewUnauthorizedError(msg string) *DomainError {
	return &DomainError{Err: ErrUnauthorized, Message: msg}
}

// NewInvariantError reports a broken internal invariant, such as an
// inventory release beyond a room's total units.
func NewInvariantError(msg string) *DomainError {
	return &DomainError{Err: ErrInvariant, Message: msg}
}
