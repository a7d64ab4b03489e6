package apperr

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalid is returned when the input fails domain validation.
var ErrInvalid = errors.New("invalid input")

// ErrConflict indicates a uniqueness or state conflict (HTTP 409).
var ErrConflict = errors.New("conflict")

// ErrNotFound indicates that the requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrCapacityExceeded indicates that a slot cannot admit another order.
var ErrCapacityExceeded = errors.New("capacity exceeded")

// ErrInvalidTransition indicates a state-machine move that is not allowed.
var ErrInvalidTransition = errors.New("invalid transition")

// ErrStoreUnavailable marks transient storage failures that are safe to retry.
var ErrStoreUnavailable = errors.New("store unavailable")

// ValidationError lists every violated constraint of a request.
type ValidationError struct {
	Violations []string
}

// NewValidationError returns nil when there are no violations.
func NewValidationError(violations []string) error {
	if len(violations) == 0 {
		return nil
	}
	return &ValidationError{Violations: violations}
}

func (e *ValidationError) Error() string {
	return ErrInvalid.Error() + ": " + strings.Join(e.Violations, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrInvalid }

// ConflictError describes why an operation clashes with current state.
type ConflictError struct {
	Reason  string
	IDs     []string
	Details map[string]any
}

// NewConflict builds a ConflictError with the ids involved.
func NewConflict(reason string, ids ...string) *ConflictError {
	return &ConflictError{Reason: reason, IDs: ids}
}

// With attaches a detail value and returns the receiver.
func (e *ConflictError) With(key string, value any) *ConflictError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

func (e *ConflictError) Error() string {
	if len(e.IDs) == 0 {
		return ErrConflict.Error() + ": " + e.Reason
	}
	return fmt.Sprintf("%s: %s [%s]", ErrConflict, e.Reason, strings.Join(e.IDs, ","))
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// CapacityExceededError carries the counters of a refused admission.
type CapacityExceededError struct {
	SlotID    int64
	Date      time.Time
	Committed int
	MaxOrders int
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("%s: slot %d on %s has %d/%d orders",
		ErrCapacityExceeded, e.SlotID, e.Date.Format(time.DateOnly), e.Committed, e.MaxOrders)
}

func (e *CapacityExceededError) Unwrap() error { return ErrCapacityExceeded }

// InvalidTransitionError reports a rejected state change.
type InvalidTransitionError struct {
	Machine string
	ID      string
	From    string
	To      string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s: %s %s cannot move from %q to %q", ErrInvalidTransition, e.Machine, e.ID, e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

// StoreUnavailable wraps err so that it matches ErrStoreUnavailable.
func StoreUnavailable(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}
