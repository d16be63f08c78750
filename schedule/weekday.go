package schedule

import (
	"fmt"
	"strings"
	"time"
)

// Weekday is the stored weekday token used in a shift's off-day set.
type Weekday string

// The stored Friday token is spelled "firday". Existing rows carry that
// spelling, so it stays the canonical value; "friday" is accepted on input.
const (
	Sunday    Weekday = "sunday"
	Monday    Weekday = "monday"
	Tuesday   Weekday = "tuesday"
	Wednesday Weekday = "wednesday"
	Thursday  Weekday = "thursday"
	Friday    Weekday = "firday"
	Saturday  Weekday = "saturday"
)

// weekdays is indexed by time.Weekday (0 = Sunday).
var weekdays = [7]Weekday{Sunday, Monday, Tuesday, Wednesday, Thursday, Friday, Saturday}

// Weekdays returns the token table in Sunday-first order.
func Weekdays() [7]Weekday { return weekdays }

// WeekdayOf returns the token for the day of the week of d.
func WeekdayOf(d Date) Weekday { return weekdays[d.Weekday()] }

// TimeWeekday converts the token back to a time.Weekday.
func (w Weekday) TimeWeekday() (time.Weekday, bool) {
	for i, token := range weekdays {
		if token == w {
			return time.Weekday(i), true
		}
	}
	return 0, false
}

// Valid reports whether w is one of the seven stored tokens.
func (w Weekday) Valid() bool {
	_, ok := w.TimeWeekday()
	return ok
}

// ParseWeekday normalizes user input to a stored token.
func ParseWeekday(s string) (Weekday, error) {
	token := Weekday(strings.ToLower(strings.TrimSpace(s)))
	if token == "friday" {
		return Friday, nil
	}
	if !token.Valid() {
		return "", fmt.Errorf("unknown weekday %q", s)
	}
	return token, nil
}
