package schedule

import (
	"fmt"
	"time"
)

// =============================================================================
// DATE - Civil calendar day (no time-of-day, no zone)
// =============================================================================

// DateLayout is the wire format for dates in the API and the store.
const DateLayout = "2006-01-02"

// Date is a calendar day. The wrapped time is always midnight UTC so that
// two Dates compare equal exactly when they name the same day.
type Date struct {
	t time.Time
}

// NewDate returns the given calendar day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day of t as seen in t's own location.
// The time-of-day is dropped.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// Today returns the current calendar day in loc.
func Today(loc *time.Location) Date {
	return DateOf(time.Now().In(loc))
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD): %w", s, err)
	}
	return DateOf(t), nil
}

// Comparison
func (d Date) Before(other Date) bool        { return d.t.Before(other.t) }
func (d Date) After(other Date) bool         { return d.t.After(other.t) }
func (d Date) Equal(other Date) bool         { return d.t.Equal(other.t) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.Before(other) }

// Arithmetic
func (d Date) AddDays(n int) Date   { return Date{t: d.t.AddDate(0, 0, n)} }
func (d Date) AddMonths(n int) Date { return Date{t: d.t.AddDate(0, n, 0)} }

// Properties
func (d Date) Year() int             { return d.t.Year() }
func (d Date) Month() time.Month     { return d.t.Month() }
func (d Date) Day() int              { return d.t.Day() }
func (d Date) Weekday() time.Weekday { return d.t.Weekday() }
func (d Date) IsZero() bool          { return d.t.IsZero() }
func (d Date) String() string        { return d.t.Format(DateLayout) }

// In returns midnight of the day in loc.
func (d Date) In(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
}

// MarshalText implements encoding.TextMarshaler.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DaysBetween returns the number of days from `from` to `to` (negative if to < from).
func DaysBetween(from, to Date) int { return int(to.t.Sub(from.t).Hours() / 24) }

// =============================================================================
// DATE RANGE - Inclusive [Start, End]
// =============================================================================

// DateRange is an inclusive run of calendar days. A range whose End is
// before its Start is empty.
type DateRange struct {
	Start Date
	End   Date
}

// Contains returns true if d is within [Start, End].
func (r DateRange) Contains(d Date) bool {
	return d.AfterOrEqual(r.Start) && d.BeforeOrEqual(r.End)
}

// IsEmpty reports whether the range holds no days.
func (r DateRange) IsEmpty() bool { return r.End.Before(r.Start) }

// Days returns every day in the range in order.
func (r DateRange) Days() []Date {
	if r.IsEmpty() {
		return nil
	}
	days := make([]Date, 0, DaysBetween(r.Start, r.End)+1)
	for current := r.Start; current.BeforeOrEqual(r.End); current = current.AddDays(1) {
		days = append(days, current)
	}
	return days
}

func (r DateRange) String() string {
	return "[" + r.Start.String() + ", " + r.End.String() + "]"
}

// Week returns the Sunday-to-Saturday week containing d.
func Week(d Date) DateRange {
	start := d.AddDays(-int(d.Weekday()))
	return DateRange{Start: start, End: start.AddDays(6)}
}

// Month returns the calendar month containing d.
func Month(d Date) DateRange {
	start := NewDate(d.Year(), d.Month(), 1)
	return DateRange{Start: start, End: start.AddMonths(1).AddDays(-1)}
}
