/*
errors.go - Centralized error types for the billing engine

PURPOSE:

	All error values in one place. Callers (the HTTP layer, the persistence
	layer) distinguish outcomes with errors.Is/errors.As; the engine never
	returns a zeroed BillingResult in place of an error.

ERROR CATEGORIES:
 1. Invalid request - rejected before computation, no partial state
 2. Not found       - referenced rental/customer missing (store layer)
 3. Stale state     - optimistic-concurrency conflict on commit

NOTE:

	An insufficient balance is NOT an error. The engine always computes a
	result; a shortfall is surfaced as AmountCustomerMustPay > 0 and the
	caller decides whether to block the commit or collect a payment first.

SEE ALSO:
  - extension.go, paydayshift.go: produce InvalidRequestError
  - store/sqlite: produces ErrStaleRental and the not-found errors
*/
package billing

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidWeeks is returned when an extension requests fewer than
	// one week.
	ErrInvalidWeeks = errors.New("extension must cover at least one week")

	// ErrSamePayday is returned when a payday shift targets the weekday
	// the due date already falls on. The operation is a no-op and is
	// rejected before computation.
	ErrSamePayday = errors.New("target weekday equals current payday")

	// ErrUnknownWeekday is returned for a weekday outside Sunday-Saturday.
	ErrUnknownWeekday = errors.New("unknown weekday")

	// ErrStaleRental is returned by the persistence layer when the rental
	// changed between snapshot read and commit. The caller must re-read
	// and retry; the engine itself never retries.
	ErrStaleRental = errors.New("rental state changed since snapshot")

	// ErrRentalNotFound is returned when a referenced rental doesn't exist.
	ErrRentalNotFound = errors.New("rental not found")

	// ErrCustomerNotFound is returned when a referenced customer doesn't exist.
	ErrCustomerNotFound = errors.New("customer not found")

	// ErrDuplicateIdempotencyKey is returned when a ledger entry with the
	// same idempotency key already exists. Expected on retries.
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidRequestError wraps a validation failure with the offending field.
type InvalidRequestError struct {
	Field  string
	Reason error
}

func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("invalid request: %s: %v", e.Field, e.Reason)
}

func (e *InvalidRequestError) Unwrap() error { return e.Reason }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid operator input.
func IsClientError(err error) bool {
	var invalid *InvalidRequestError
	return errors.As(err, &invalid) ||
		errors.Is(err, ErrInvalidWeeks) ||
		errors.Is(err, ErrSamePayday) ||
		errors.Is(err, ErrUnknownWeekday) ||
		errors.Is(err, ErrDuplicateIdempotencyKey)
}

// IsRetryable returns true if the operation might succeed with a fresh
// snapshot.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStaleRental)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRentalNotFound) || errors.Is(err, ErrCustomerNotFound)
}
