/*
errors.go - Centralized error types for the payroll engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers (the access gate, the HTTP layer) branch on these with
  errors.Is / errors.As; nothing in this package is recovered silently.

ERROR CATEGORIES:
  1. Validation errors  - Malformed input, surfaced to the caller, never retried
  2. Ledger state errors - DuplicateDate / NotFound / Conflict, caller decides retry
  3. Configuration errors - MissingRule, a server-side defect surfaced loudly
  4. Storage errors      - Collaborator failures, eligible for retry with backoff

USAGE:
  if errors.Is(err, payroll.ErrConflict) {
      // re-read and retry the edit with a fresh version
  }

SEE ALSO:
  - ledger.go: Produces validation, duplicate, not-found and conflict errors
  - rules.go: Produces MissingRuleError
  - store/: Wraps driver failures as StorageError
*/
package payroll

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned for malformed input (negative amounts,
	// future dates past the grace window, bad ranges).
	ErrValidation = errors.New("validation failed")

	// ErrDuplicateDate is returned when appending an entry for a day that
	// already has a canonical record and the merge policy is MergeReject.
	ErrDuplicateDate = errors.New("entry already exists for date")

	// ErrNotFound is returned when the referenced employee or entry doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when an optimistic version check detects a
	// concurrent write. Expected under contention: callers retry with a
	// fresh read.
	ErrConflict = errors.New("concurrent modification detected")

	// ErrMissingRule is returned when a position has no configured
	// compensation default. A configuration bug, not user input.
	ErrMissingRule = errors.New("no compensation rule for position")

	// ErrStorageUnavailable is returned when the persistence collaborator
	// fails. Never masked as a validation failure.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError describes which field was malformed and why.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// DuplicateDateError identifies the day that already has a canonical record.
type DuplicateDateError struct {
	EmployeeID EmployeeID
	Date       Date
}

func (e *DuplicateDateError) Error() string {
	return fmt.Sprintf("entry already exists for %s on %s", e.EmployeeID, e.Date)
}

func (e *DuplicateDateError) Unwrap() error { return ErrDuplicateDate }

// NotFoundError identifies what was missing.
type NotFoundError struct {
	Kind       string // "employee" or "entry"
	EmployeeID EmployeeID
	Date       Date // zero for employee lookups
}

func (e *NotFoundError) Error() string {
	if e.Kind == "entry" {
		return fmt.Sprintf("no entry for %s on %s", e.EmployeeID, e.Date)
	}
	return fmt.Sprintf("%s %s not found", e.Kind, e.EmployeeID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ConflictError reports a lost-update race on a specific (employee, date).
type ConflictError struct {
	EmployeeID EmployeeID
	Date       Date
	Expected   int // version the losing writer read
	Actual     int // version found in the store
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("concurrent modification of %s on %s (read v%d, store has v%d)",
		e.EmployeeID, e.Date, e.Expected, e.Actual)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// MissingRuleError names the unconfigured position.
type MissingRuleError struct {
	Position Position
}

func (e *MissingRuleError) Error() string {
	return fmt.Sprintf("no compensation rule configured for position %q", e.Position)
}

func (e *MissingRuleError) Unwrap() error { return ErrMissingRule }

// StorageError wraps a persistence collaborator failure with the operation
// that hit it.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage unavailable during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return ErrStorageUnavailable }

// RuleBoundsError reports a rule whose values violate the invariants
// (baseRate >= 0, salesPercentage in [0,1]).
type RuleBoundsError struct {
	Position Position
	Field    string
	Value    decimal.Decimal
}

func (e *RuleBoundsError) Error() string {
	return fmt.Sprintf("rule for %s: %s out of bounds: %s", e.Position, e.Field, e.Value)
}

func (e *RuleBoundsError) Unwrap() error { return ErrValidation }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict) || errors.Is(err, ErrStorageUnavailable)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrDuplicateDate) ||
		errors.Is(err, ErrNotFound)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
