/*
classifier.go - Attendance status derivation

PURPOSE:
  Compares the occurrence an employee was expected to work on a day with
  the clock-in recorded for that day and derives a status. The result is
  a read-only projection; nothing is persisted.

FLOW:
  1. Resolve each assigned shift on the date; the ShiftSelector picks one
     (FirstMatch by default). No shift -> nil result ("not scheduled").
  2. Date after now                    -> upcoming
  3. Expected start = effective start time placed on the date
  4. No time entry on that day         -> absent
     difference = expected - actual (whole minutes, truncated)
       difference >= 10                -> early (EarlyMinutes)
       difference <  0                 -> late  (LateMinutes = |difference|)
       otherwise                       -> on-time
  5. Clock-out recorded                -> HasClockedOut, HoursWorked

TIME ZONE:
  All wall-clock arithmetic happens in Classifier.Location. Entry
  timestamps are converted to it before the same-day comparison.
*/
package attendance

import (
	"time"

	"github.com/warp/shift-engine/schedule"
)

// DefaultEarlyThreshold is how far ahead of the start a clock-in counts as early.
const DefaultEarlyThreshold = 10 * time.Minute

// Classifier derives attendance results. The zero value is not usable; use NewClassifier.
type Classifier struct {
	Now            func() time.Time
	Location       *time.Location
	Selector       ShiftSelector
	EarlyThreshold time.Duration
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithClock fixes "now", mostly for tests.
func WithClock(now func() time.Time) Option { return func(c *Classifier) { c.Now = now } }

// WithLocation sets the zone for wall-clock arithmetic.
func WithLocation(loc *time.Location) Option { return func(c *Classifier) { c.Location = loc } }

// WithSelector replaces the FirstMatch policy.
func WithSelector(s ShiftSelector) Option { return func(c *Classifier) { c.Selector = s } }

// WithEarlyThreshold changes the early cut-off.
func WithEarlyThreshold(d time.Duration) Option { return func(c *Classifier) { c.EarlyThreshold = d } }

// NewClassifier returns a classifier using the local zone, the wall clock and FirstMatch.
func NewClassifier(opts ...Option) *Classifier {
	c := &Classifier{
		Now:            time.Now,
		Location:       time.Local,
		Selector:       FirstMatch,
		EarlyThreshold: DefaultEarlyThreshold,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify derives the attendance of employee on date. A nil result with a
// nil error means no shift is in effect that day.
func (c *Classifier) Classify(employee Employee, date schedule.Date) (*Result, error) {
	chosen, err := c.Selector.Select(employee, date, Candidates(employee, date))
	if err != nil || chosen == nil {
		return nil, err
	}

	result := &Result{
		EmployeeID: employee.ID,
		Date:       date,
		ShiftID:    chosen.Assignment.Shift.ID,
		Occurrence: chosen.Occurrence,
	}

	if date.In(c.Location).After(c.Now()) {
		result.Status = StatusUpcoming
		return result, nil
	}

	start, err := chosen.Occurrence.Start()
	if err != nil {
		return nil, err
	}
	expected := start.On(date, c.Location)

	entry := c.entryOn(employee, date)
	if entry == nil {
		result.Status = StatusAbsent
		return result, nil
	}
	result.Entry = entry

	difference := int(expected.Sub(entry.StartTime) / time.Minute)
	switch {
	case difference >= int(c.EarlyThreshold/time.Minute):
		result.Status = StatusEarly
		result.EarlyMinutes = &difference
	case difference < 0:
		late := -difference
		result.Status = StatusLate
		result.LateMinutes = &late
	default:
		result.Status = StatusOnTime
	}

	if entry.EndTime != nil {
		if entry.EndTime.Before(entry.StartTime) {
			return nil, &EntryError{EntryID: entry.ID, Message: "clock-out before clock-in"}
		}
		result.HasClockedOut = true
		worked := WorkedFrom(entry.EndTime.Sub(entry.StartTime))
		result.HoursWorked = &worked
		result.Break = entry.Break()
	}

	return result, nil
}

// entryOn returns the first entry whose clock-in falls on date.
func (c *Classifier) entryOn(employee Employee, date schedule.Date) *TimeEntry {
	for i := range employee.TimeEntries {
		if schedule.DateOf(employee.TimeEntries[i].StartTime.In(c.Location)).Equal(date) {
			entry := employee.TimeEntries[i]
			return &entry
		}
	}
	return nil
}
