/*
errors.go - Centralized error types for the reconciliation engine

PURPOSE:
  All engine error types in one place. Every one of them is an
  input-validation error raised before computation begins; once inputs are
  validated the engine cannot fail. The defensive clamp on garbled
  durations (rounding.go) degrades to zero and logs, it never propagates.

ERROR CATEGORIES:
  1. Date errors  - malformed date strings, inverted ranges
  2. Scope errors - empty or unauthorized store selection

USAGE:
  Callers map these to client-facing responses:

    if engine.IsClientError(err) {
        // 400, report verbatim
    }
*/
package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidDateFormat is returned for date strings that do not match
	// the expected YYYY-MM-DD calendar format.
	ErrInvalidDateFormat = errors.New("invalid date format")

	// ErrInvalidDateRange is returned when to < from, or when asOf falls
	// outside [from, to].
	ErrInvalidDateRange = errors.New("invalid date range")

	// ErrNoStoresInScope is returned when the caller has no authorized
	// stores at all. Distinct from "stores authorized but no data".
	ErrNoStoresInScope = errors.New("no stores in scope")

	// ErrInvalidStoreSelection is returned when an explicit store filter
	// names a store outside the caller's authorized set.
	ErrInvalidStoreSelection = errors.New("store selection not authorized")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// DateFormatError carries the offending input string.
type DateFormatError struct {
	Input string
}

func (e *DateFormatError) Error() string {
	return fmt.Sprintf("invalid date format: %q (want YYYY-MM-DD)", e.Input)
}

func (e *DateFormatError) Unwrap() error { return ErrInvalidDateFormat }

// DateRangeError carries the rejected boundary values.
type DateRangeError struct {
	From   BusinessDate
	To     BusinessDate
	AsOf   BusinessDate
	Reason string
}

func (e *DateRangeError) Error() string {
	return fmt.Sprintf("invalid date range [%s, %s] asOf %s: %s", e.From, e.To, e.AsOf, e.Reason)
}

func (e *DateRangeError) Unwrap() error { return ErrInvalidDateRange }

// StoreSelectionError names the first store that failed the allow-list.
type StoreSelectionError struct {
	StoreID string
}

func (e *StoreSelectionError) Error() string {
	return fmt.Sprintf("store %q is not in the caller's authorized set", e.StoreID)
}

func (e *StoreSelectionError) Unwrap() error { return ErrInvalidStoreSelection }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError reports whether the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidDateFormat) ||
		errors.Is(err, ErrInvalidDateRange) ||
		errors.Is(err, ErrNoStoresInScope) ||
		errors.Is(err, ErrInvalidStoreSelection)
}
