/*
errors.go - Centralized error types for the commission engine

PURPOSE:
  All engine error types in one place. Per-row failures during a batch
  propagate up and abort the whole batch; there are no partial commits.
  Callers distinguish client-input failures (bad upload) from internal
  ones with the helper predicates.

ERROR CATEGORIES:
  1. Upload validation - multi-month batches, unknown payees
  2. Adjustment errors - corrections referencing missing deals
  3. Config errors - malformed rate schedules

SEE ALSO:
  - upload.go: batch validation, uses these errors
  - adjustment.go: wraps ErrDanglingAdjustment with deal context
*/
package commission

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrMultiMonthUpload is returned when a single batch mixes rows from
	// more than one month. The whole batch is rejected.
	ErrMultiMonthUpload = errors.New("upload contains data for multiple months")

	// ErrUnknownPayee is returned when an upload references a payee that
	// has no config and the payee class does not auto-provision.
	ErrUnknownPayee = errors.New("unknown payee referenced by upload")

	// ErrDanglingAdjustment is returned when a negative invoice correction
	// references a deal that was never recorded. Fatal, never a no-op.
	ErrDanglingAdjustment = errors.New("adjustment references a deal that does not exist")

	// ErrUnknownPayeeClass is returned for a class outside the closed set.
	ErrUnknownPayeeClass = errors.New("unknown payee class")

	// ErrInvalidTierLadder is returned when tier rates or thresholds are
	// not strictly ascending.
	ErrInvalidTierLadder = errors.New("invalid tier ladder")

	// ErrInvalidMonth is returned for a month outside the YYYY-MM format.
	ErrInvalidMonth = errors.New("invalid month")

	// ErrPayeeNotFound is returned when a referenced payee config is absent
	// from an operation that requires it to exist (admin edit).
	ErrPayeeNotFound = errors.New("payee not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// DanglingAdjustmentError reports which correction row had no original.
type DanglingAdjustmentError struct {
	PayeeEmail string
	DealID     string
}

func (e *DanglingAdjustmentError) Error() string {
	return fmt.Sprintf("adjustment failed: original deal %q for payee %s was not found",
		e.DealID, e.PayeeEmail)
}

func (e *DanglingAdjustmentError) Unwrap() error { return ErrDanglingAdjustment }

// UnknownPayeeError lists the payees an upload referenced that do not exist.
type UnknownPayeeError struct {
	Class  PayeeClass
	Emails []string
}

func (e *UnknownPayeeError) Error() string {
	return fmt.Sprintf("unknown %s payees in upload: %v", e.Class, e.Emails)
}

func (e *UnknownPayeeError) Unwrap() error { return ErrUnknownPayee }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true when the error is due to invalid upload or
// admin input rather than an engine/store failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrMultiMonthUpload) ||
		errors.Is(err, ErrUnknownPayee) ||
		errors.Is(err, ErrDanglingAdjustment) ||
		errors.Is(err, ErrUnknownPayeeClass) ||
		errors.Is(err, ErrInvalidTierLadder) ||
		errors.Is(err, ErrInvalidMonth)
}

// IsNotFound returns true when the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPayeeNotFound)
}
