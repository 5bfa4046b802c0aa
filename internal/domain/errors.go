package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no job exists with the requested ID
	ErrNotFound = errors.New("job not found")

	// ErrDuplicateID is returned when appending a job whose ID is already stored
	ErrDuplicateID = errors.New("job id already exists")

	// ErrDuplicateKey is returned when appending a job whose idempotency key is already stored
	ErrDuplicateKey = errors.New("idempotency key already in use")

	// ErrInvalidTransition is returned when the current status forbids the operation
	ErrInvalidTransition = errors.New("invalid status transition")
)

// ValidationError reports bad or missing input at schedule time.
// It is always returned before any state is mutated.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

// NewValidationError creates a new validation error
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// CapabilityError wraps a failure of an external collaborator (publish, mint, resolve)
type CapabilityError struct {
	Op  string
	Err error
}

func (e *CapabilityError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *CapabilityError) Unwrap() error {
	return e.Err
}

// NewCapabilityError creates a new capability error for the given operation
func NewCapabilityError(op string, err error) error {
	return &CapabilityError{Op: op, Err: err}
}

// transitionError annotates ErrInvalidTransition with the offending status
func transitionError(op string, from Status) error {
	return fmt.Errorf("%w: cannot %s job in status %q", ErrInvalidTransition, op, from)
}
