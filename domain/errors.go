/*
errors.go - Centralized error types for the policy engine core

PURPOSE:
  All core error kinds in one place. The error taxonomy distinguishes:
  1. Domain validation failures - malformed value objects, illegal state
     transitions, failed post-conditions. Deterministic, caller- or
     data-caused. Mapped to 4xx by the API layer.
  2. Not-found / version-conflict failures - surfaced by the store.
  3. Infrastructure failures - anything else; wrapped with %w and propagated
     unchanged. Mapped to 5xx.

USAGE:
  Callers classify with the helpers:

    if domain.IsClientError(err) { ... 4xx ... }
    if domain.IsNotFound(err)    { ... 404 ... }

SEE ALSO:
  - api/handlers.go: Maps error kinds to HTTP statuses
  - pricing.go: Uses ErrPremiumInvariant for the final post-condition
*/
package domain

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is the base kind for all domain validation failures.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidPeriod is returned when a period is malformed (end not after start).
	ErrInvalidPeriod = errors.New("invalid period: end must be after start")

	// ErrInvalidTransition is returned when a lifecycle operation is invoked
	// from a state that does not permit it.
	ErrInvalidTransition = errors.New("invalid policy state transition")

	// ErrPremiumInvariant is returned when a computed final premium violates
	// the strict-positivity post-condition. This indicates corrupt
	// configuration data, not bad user input; the whole calculation aborts.
	ErrPremiumInvariant = errors.New("premium invariant violated")

	// ErrNotFound is returned when a referenced aggregate does not exist.
	ErrNotFound = errors.New("not found")

	// ErrVersionConflict is returned when an optimistic version check fails
	// on save. The caller lost the race and must reload before retrying.
	ErrVersionConflict = errors.New("concurrent modification detected")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports a field-level validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// TransitionError reports a rejected lifecycle transition.
type TransitionError struct {
	From      Status
	Operation string
	Reason    string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s policy in status %s: %s", e.Operation, e.From, e.Reason)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// NotFoundError identifies which aggregate was missing.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is deterministic and caused by the
// caller's input or the aggregate's current state.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrInvalidTransition)
}

// IsNotFound returns true if the error indicates a missing aggregate.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict returns true if the error indicates a lost optimistic-lock race.
func IsConflict(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}

// IsInvariant returns true for invariant post-condition failures. These are
// data corruption, not user input, and map to a 5xx-class response.
func IsInvariant(err error) bool {
	return errors.Is(err, ErrPremiumInvariant)
}
