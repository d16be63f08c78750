package attendance

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/shift-engine/schedule"
)

// =============================================================================
// INPUT AGGREGATES
// =============================================================================

// TimeEntry is one recorded clock-in (and optional clock-out) for one employee.
type TimeEntry struct {
	ID         string
	EmployeeID string
	ShiftID    string
	SiteID     string
	StartTime  time.Time
	EndTime    *time.Time
	BreakStart *time.Time
	BreakEnd   *time.Time
}

// Break returns the recorded break length, zero if the break is open or missing.
func (e TimeEntry) Break() time.Duration {
	if e.BreakStart == nil || e.BreakEnd == nil || e.BreakEnd.Before(*e.BreakStart) {
		return 0
	}
	return e.BreakEnd.Sub(*e.BreakStart)
}

// Assignment links an employee to a shift. Order matters: see FirstMatch.
type Assignment struct {
	ID         string
	EmployeeID string
	Shift      schedule.Shift
	AssignDate *schedule.Date
}

// Employee is a fully materialized employee aggregate.
type Employee struct {
	ID           string
	FirstName    string
	LastName     string
	EmployeeCode string
	Assignments  []Assignment
	TimeEntries  []TimeEntry
}

// Name returns "First Last".
func (e Employee) Name() string { return e.FirstName + " " + e.LastName }

// =============================================================================
// RESULT
// =============================================================================

// Status is the derived attendance state of one employee on one day.
type Status string

const (
	StatusAbsent   Status = "absent"
	StatusEarly    Status = "early"
	StatusLate     Status = "late"
	StatusOnTime   Status = "on-time"
	StatusUpcoming Status = "upcoming"
)

// Worked is a clocked duration split into whole hours and minutes.
type Worked struct {
	Hours   int
	Minutes int
}

// WorkedFrom splits d, truncating seconds.
func WorkedFrom(d time.Duration) Worked {
	total := int(d / time.Minute)
	return Worked{Hours: total / 60, Minutes: total % 60}
}

// Duration converts back to a time.Duration.
func (w Worked) Duration() time.Duration {
	return time.Duration(w.Hours)*time.Hour + time.Duration(w.Minutes)*time.Minute
}

// Decimal returns the duration in hours, rounded to two places.
func (w Worked) Decimal() decimal.Decimal {
	minutes := decimal.NewFromInt(int64(w.Hours*60 + w.Minutes))
	return minutes.Div(decimal.NewFromInt(60)).Round(2)
}

func (w Worked) String() string { return fmt.Sprintf("%dh %02dm", w.Hours, w.Minutes) }

// Result is the attendance projection for one (employee, date) pair.
type Result struct {
	EmployeeID    string
	Date          schedule.Date
	ShiftID       string
	Occurrence    schedule.Occurrence
	Status        Status
	EarlyMinutes  *int
	LateMinutes   *int
	HasClockedOut bool
	HoursWorked   *Worked
	Break         time.Duration
	Entry         *TimeEntry
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrAmbiguousShift is returned by RejectAmbiguous when more than one shift applies.
var ErrAmbiguousShift = errors.New("more than one shift in effect")

// ErrInvalidEntry is returned when a time entry is internally inconsistent.
var ErrInvalidEntry = errors.New("invalid time entry")

// AmbiguousShiftError lists the shifts competing for one day.
type AmbiguousShiftError struct {
	EmployeeID string
	Date       schedule.Date
	ShiftIDs   []string
}

func (e *AmbiguousShiftError) Error() string {
	return fmt.Sprintf("employee %s has %d shifts on %s: %v", e.EmployeeID, len(e.ShiftIDs), e.Date, e.ShiftIDs)
}

func (e *AmbiguousShiftError) Unwrap() error { return ErrAmbiguousShift }

// EntryError reports a clock-out before the clock-in.
type EntryError struct {
	EntryID string
	Message string
}

func (e *EntryError) Error() string { return fmt.Sprintf("time entry %s: %s", e.EntryID, e.Message) }

func (e *EntryError) Unwrap() error { return ErrInvalidEntry }
