/*
errors.go - Error types for the shift engine

ERROR CATEGORIES:
  1. Parse errors      - Malformed wall-clock strings ("9:00", "25:00 AM")
  2. Validation errors - Shift definitions that break a data invariant
  3. Lookup errors     - Missing shifts, days, employees in the store

Errors are always scoped to one (shift, date) or (employee, date) pair;
callers rendering a grid record the error in that cell and move on.

USAGE:
  if errors.Is(err, schedule.ErrInvalidTime) {
      // bad data, not "no data"
  }
*/
package schedule

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidTime is returned when a wall-clock string does not match H:MM AM/PM.
	ErrInvalidTime = errors.New("invalid time format")

	// ErrInvalidShift is returned when a shift definition breaks an invariant.
	ErrInvalidShift = errors.New("invalid shift")

	// ErrNotFound is returned when a referenced shift, day or employee does not exist.
	ErrNotFound = errors.New("not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ParseErrorKind classifies a parse failure.
type ParseErrorKind string

const (
	KindInvalidTimeFormat ParseErrorKind = "invalid_time_format"
)

// ParseError reports a string that could not be parsed into a ClockTime.
type ParseError struct {
	Kind  ParseErrorKind
	Input string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %q (expected H:MM AM/PM)", e.Kind, e.Input)
}

func (e *ParseError) Unwrap() error {
	return ErrInvalidTime
}

// ValidationError reports a shift field that violates an invariant.
type ValidationError struct {
	ShiftID string
	Field   string // e.g., "end_date", "start_time"
	Message string
	Err     error // underlying cause, if any
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("invalid shift %s: %s: %s", e.ShiftID, e.Field, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both ErrInvalidShift and the underlying cause.
func (e *ValidationError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrInvalidShift, e.Err}
	}
	return []error{ErrInvalidShift}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidTime) || errors.Is(err, ErrInvalidShift)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
