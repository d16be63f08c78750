/*
resolver.go - Shift-occurrence resolution

PURPOSE:
  Decides whether a shift is in effect on a calendar day and, if so, with
  which start/end times. Both the scheduling calendar and the attendance
  classifier call Resolve; neither re-implements the checks.

ALGORITHM (first matching check wins):
  1. date < StartDate (by calendar day)          -> not_started
  2. date covered by any ExcludeDay              -> excluded
  3. !EveryDay and weekday(date) in OffDays      -> off_day
  4. one-time with EndDate and date > EndDate    -> ended
  5. otherwise                                   -> in_effect

  On in_effect, an IncludeDay with a custom time covering the date replaces
  the shift's start/end times.

  Exclusion is checked before the off-day set, so a date that is both
  reports excluded.

PURITY:
  Resolve reads its arguments and nothing else. It is safe to call from
  many goroutines for any number of dates.
*/
package schedule

import (
	"time"
)

// Reason explains a resolution outcome.
type Reason string

const (
	ReasonInEffect   Reason = "in_effect"
	ReasonNotStarted Reason = "not_started"
	ReasonExcluded   Reason = "excluded"
	ReasonOffDay     Reason = "off_day"
	ReasonEnded      Reason = "ended"
)

// Occurrence is one shift being active on one date.
type Occurrence struct {
	ShiftID   string
	Date      Date
	StartTime string
	EndTime   string
	// Custom is set when an include day supplied the times.
	Custom bool
}

// Start parses the effective start time.
func (o Occurrence) Start() (ClockTime, error) { return ParseClockTime(o.StartTime) }

// End parses the effective end time.
func (o Occurrence) End() (ClockTime, error) { return ParseClockTime(o.EndTime) }

// Bounds returns the concrete start and end instants in loc. An end at or
// before the start is taken to be on the following day (overnight posts).
func (o Occurrence) Bounds(loc *time.Location) (start, end time.Time, err error) {
	startClock, err := o.Start()
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	endClock, err := o.End()
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start = startClock.On(o.Date, loc)
	end = endClock.On(o.Date, loc)
	if !end.After(start) {
		end = endClock.On(o.Date.AddDays(1), loc)
	}
	return start, end, nil
}

// Resolution is the outcome of resolving one shift on one date.
type Resolution struct {
	ShiftID    string
	Date       Date
	Reason     Reason
	Occurrence *Occurrence // non-nil only for ReasonInEffect
	ExcludedBy *ExcludeDay // the first matching entry for ReasonExcluded
}

// InEffect reports whether the shift occurs on the resolved date.
func (r Resolution) InEffect() bool { return r.Reason == ReasonInEffect }

// Resolve evaluates shift on date.
func Resolve(shift Shift, date Date) Resolution {
	res := Resolution{ShiftID: shift.ID, Date: date}

	if date.Before(shift.StartDate) {
		res.Reason = ReasonNotStarted
		return res
	}

	for i := range shift.ExcludeDays {
		if shift.ExcludeDays[i].Covers(date) {
			ex := shift.ExcludeDays[i]
			res.Reason = ReasonExcluded
			res.ExcludedBy = &ex
			return res
		}
	}

	if shift.IsOffDay(WeekdayOf(date)) {
		res.Reason = ReasonOffDay
		return res
	}

	if shift.Window() == WindowClosed && !(DateRange{Start: shift.StartDate, End: *shift.EndDate}).Contains(date) {
		res.Reason = ReasonEnded
		return res
	}

	occ := &Occurrence{
		ShiftID:   shift.ID,
		Date:      date,
		StartTime: shift.StartTime,
		EndTime:   shift.EndTime,
	}
	for _, inc := range shift.IncludeDays {
		if inc.Overrides(date) {
			occ.StartTime = inc.StartTime
			occ.EndTime = inc.EndTime
			occ.Custom = true
			break
		}
	}

	res.Reason = ReasonInEffect
	res.Occurrence = occ
	return res
}

// OccursOn returns the occurrence of shift on date, or nil if it does not run.
func OccursOn(shift Shift, date Date) *Occurrence {
	return Resolve(shift, date).Occurrence
}
