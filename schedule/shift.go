/*
shift.go - Shift definitions and their attached day overrides

PURPOSE:
  A Shift is the recurring (or one-time) post a guard covers at a site.
  It carries no per-day state: the same start/end clock times apply to
  every day the shift is in effect. Per-day suppression comes from
  ExcludeDay rows, per-day time overrides from IncludeDay rows.

KEY CONCEPTS:
  Off days:    Weekdays on which the shift never runs (ignored when EveryDay)
  Exclude day: A single date (To == nil) or inclusive range that suppresses the shift
  Include day: A date or range with an optional custom start/end time
  Window:      For one-time shifts, [StartDate, EndDate]; open-ended when EndDate is nil

PAY FIELDS:
  PayRate and OvertimeMultiplier are carried for the host application and
  never consulted during resolution.

SEE ALSO:
  - resolver.go: Resolve (the only place these fields are interpreted)
  - store/sqlite/sqlite.go: Loads the full aggregate
*/
package schedule

import (
	"github.com/shopspring/decimal"
)

// ShiftType distinguishes recurring posts from one-off coverage.
type ShiftType string

const (
	ShiftRecurring ShiftType = "recurring"
	ShiftOneTime   ShiftType = "one_time"
)

// Valid reports whether t is a known shift type.
func (t ShiftType) Valid() bool {
	return t == ShiftRecurring || t == ShiftOneTime
}

// Shift is a fully materialized shift aggregate.
type Shift struct {
	ID     string
	SiteID string
	Name   string
	Notes  string
	Type   ShiftType

	StartDate Date
	EndDate   *Date // only meaningful for one-time shifts

	// Wall-clock strings in stored form ("09:00 AM").
	StartTime string
	EndTime   string

	OffDays  []Weekday
	EveryDay bool

	PayRate            decimal.Decimal
	OvertimeMultiplier *decimal.Decimal

	Terminated bool

	ExcludeDays []ExcludeDay
	IncludeDays []IncludeDay
}

// IsOffDay reports whether w is in the off-day set. Always false when EveryDay.
func (s Shift) IsOffDay(w Weekday) bool {
	if s.EveryDay {
		return false
	}
	for _, off := range s.OffDays {
		if off == w {
			return true
		}
	}
	return false
}

// Validate checks the invariants that storage does not enforce.
func (s Shift) Validate() error {
	if !s.Type.Valid() {
		return &ValidationError{ShiftID: s.ID, Field: "type", Message: "must be recurring or one_time"}
	}
	if s.StartDate.IsZero() {
		return &ValidationError{ShiftID: s.ID, Field: "start_date", Message: "is required"}
	}
	if s.EndDate != nil && s.EndDate.Before(s.StartDate) {
		return &ValidationError{ShiftID: s.ID, Field: "end_date", Message: "is before start_date"}
	}
	if _, err := ParseClockTime(s.StartTime); err != nil {
		return &ValidationError{ShiftID: s.ID, Field: "start_time", Message: "malformed", Err: err}
	}
	if _, err := ParseClockTime(s.EndTime); err != nil {
		return &ValidationError{ShiftID: s.ID, Field: "end_time", Message: "malformed", Err: err}
	}
	for _, w := range s.OffDays {
		if !w.Valid() {
			return &ValidationError{ShiftID: s.ID, Field: "off_days", Message: "unknown weekday " + string(w)}
		}
	}
	for _, ex := range s.ExcludeDays {
		if ex.To != nil && ex.To.Before(ex.From) {
			return &ValidationError{ShiftID: s.ID, Field: "exclude_days", Message: "range ends before it starts"}
		}
	}
	for _, inc := range s.IncludeDays {
		if err := inc.Validate(); err != nil {
			return &ValidationError{ShiftID: s.ID, Field: "include_days", Message: "invalid entry", Err: err}
		}
	}
	return nil
}

// =============================================================================
// WINDOW - Explicit upper bound handling
// =============================================================================

// WindowKind names how a shift's active window is bounded.
type WindowKind string

const (
	// WindowUnbounded: recurring shift, runs from StartDate onward. EndDate is ignored.
	WindowUnbounded WindowKind = "unbounded"
	// WindowClosed: one-time shift with both dates, runs within [StartDate, EndDate].
	WindowClosed WindowKind = "closed"
	// WindowOpenEnded: one-time shift without an end date. No upper bound is enforced.
	WindowOpenEnded WindowKind = "open_ended"
)

// Window returns the kind of upper bound that applies to the shift.
func (s Shift) Window() WindowKind {
	switch {
	case s.Type != ShiftOneTime:
		return WindowUnbounded
	case s.EndDate == nil:
		return WindowOpenEnded
	default:
		return WindowClosed
	}
}

// =============================================================================
// DAY OVERRIDES
// =============================================================================

// ExcludeDay suppresses a shift on one date, or on an inclusive range when To is set.
type ExcludeDay struct {
	ID      string
	ShiftID string
	From    Date
	To      *Date
	Reason  string
	Notes   string
}

// Covers reports whether d falls on this exclusion.
func (e ExcludeDay) Covers(d Date) bool {
	if e.To == nil {
		return d.Equal(e.From)
	}
	return DateRange{Start: e.From, End: *e.To}.Contains(d)
}

// IncludeDay attaches a custom time to a date or range.
type IncludeDay struct {
	ID         string
	ShiftID    string
	StartDate  Date
	EndDate    *Date
	CustomTime bool
	StartTime  string
	EndTime    string
}

// Covers reports whether d falls on this include entry.
func (i IncludeDay) Covers(d Date) bool {
	if i.EndDate == nil {
		return d.Equal(i.StartDate)
	}
	return DateRange{Start: i.StartDate, End: *i.EndDate}.Contains(d)
}

// Overrides reports whether the entry replaces the shift's times on d.
func (i IncludeDay) Overrides(d Date) bool {
	return i.CustomTime && i.StartTime != "" && i.EndTime != "" && i.Covers(d)
}

// Validate checks the entry's own range and times.
func (i IncludeDay) Validate() error {
	if i.EndDate != nil && i.EndDate.Before(i.StartDate) {
		return &ValidationError{ShiftID: i.ShiftID, Field: "end_date", Message: "is before start_date"}
	}
	if !i.CustomTime {
		return nil
	}
	fields := [2]struct{ name, value string }{{"start_time", i.StartTime}, {"end_time", i.EndTime}}
	for _, f := range fields {
		if f.value == "" {
			return &ValidationError{ShiftID: i.ShiftID, Field: f.name, Message: "required when custom_time is set"}
		}
		if _, err := ParseClockTime(f.value); err != nil {
			return &ValidationError{ShiftID: i.ShiftID, Field: f.name, Message: "malformed", Err: err}
		}
	}
	return nil
}
