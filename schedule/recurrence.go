package schedule

import (
	"errors"
	"time"

	"github.com/teambition/rrule-go"
)

// ErrNoRecurrence is returned when a shift has every weekday marked off.
var ErrNoRecurrence = errors.New("shift has no weekday on which it recurs")

var rruleWeekdays = [7]rrule.Weekday{rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA}

// Recurrence exports the weekly pattern of shift as an RFC 5545 rule anchored
// at its start time in loc. Exclusions are not part of the rule; see RecurrenceSet.
func Recurrence(shift Shift, loc *time.Location) (*rrule.RRule, error) {
	start, err := ParseClockTime(shift.StartTime)
	if err != nil {
		return nil, err
	}

	opt := rrule.ROption{
		Freq:    rrule.DAILY,
		Dtstart: start.On(shift.StartDate, loc),
	}
	if !shift.EveryDay && len(shift.OffDays) > 0 {
		for i, w := range weekdays {
			if !shift.IsOffDay(w) {
				opt.Byweekday = append(opt.Byweekday, rruleWeekdays[i])
			}
		}
		if len(opt.Byweekday) == 0 {
			return nil, ErrNoRecurrence
		}
	}
	if shift.Window() == WindowClosed {
		opt.Until = start.On(*shift.EndDate, loc)
	}
	return rrule.NewRRule(opt)
}

// RecurrenceSet is Recurrence plus one EXDATE per excluded day. Its instants
// fall on exactly the days Resolve reports in effect.
func RecurrenceSet(shift Shift, loc *time.Location) (*rrule.Set, error) {
	r, err := Recurrence(shift, loc)
	if err != nil {
		return nil, err
	}
	start, _ := ParseClockTime(shift.StartTime)

	set := &rrule.Set{}
	set.RRule(r)
	for _, ex := range shift.ExcludeDays {
		to := ex.From
		if ex.To != nil {
			to = *ex.To
		}
		for _, d := range (DateRange{Start: ex.From, End: to}).Days() {
			set.ExDate(start.On(d, loc))
		}
	}
	return set, nil
}
