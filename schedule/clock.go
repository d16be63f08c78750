package schedule

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Meridiem is the AM/PM marker of a 12-hour clock time.
type Meridiem string

const (
	AM Meridiem = "AM"
	PM Meridiem = "PM"
)

var clockPattern = regexp.MustCompile(`(?i)^(\d{1,2}):(\d{2})\s*(AM|PM)$`)

// ClockTime is a wall-clock time on a 12-hour dial with no date attached.
// Shifts reuse the same pair of clock times for every occurrence.
type ClockTime struct {
	Hour     int // 1-12
	Minute   int // 0-59
	Meridiem Meridiem
}

// ParseClockTime parses strings like "09:00 AM", "9:30pm" or "12:00 PM".
// Anything else yields a *ParseError.
func ParseClockTime(s string) (ClockTime, error) {
	m := clockPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return ClockTime{}, &ParseError{Kind: KindInvalidTimeFormat, Input: s}
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	if hour < 1 || hour > 12 || minute > 59 {
		return ClockTime{}, &ParseError{Kind: KindInvalidTimeFormat, Input: s}
	}
	return ClockTime{Hour: hour, Minute: minute, Meridiem: Meridiem(strings.ToUpper(m[3]))}, nil
}

// MustParseClockTime is ParseClockTime for literals known to be valid.
func MustParseClockTime(s string) ClockTime {
	c, err := ParseClockTime(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Hour24 returns the hour on a 24-hour dial (12 AM -> 0, 12 PM -> 12).
func (c ClockTime) Hour24() int {
	h := c.Hour % 12
	if c.Meridiem == PM {
		h += 12
	}
	return h
}

// SinceMidnight returns the offset of the clock time from the start of a day.
func (c ClockTime) SinceMidnight() time.Duration {
	return time.Duration(c.Hour24())*time.Hour + time.Duration(c.Minute)*time.Minute
}

// On places the clock time on day d in loc.
func (c ClockTime) On(d Date, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Date(d.Year(), d.Month(), d.Day(), c.Hour24(), c.Minute, 0, 0, loc)
}

// String formats as "09:00 AM", the stored representation.
func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d %s", c.Hour, c.Minute, c.Meridiem)
}

// Short drops a ":00" minute segment and the hour's leading zero ("09:00 AM" -> "9 AM").
// Times off the hour are returned in stored form.
func (c ClockTime) Short() string {
	if c.Minute != 0 {
		return c.String()
	}
	return fmt.Sprintf("%d %s", c.Hour, c.Meridiem)
}

var onTheHour = regexp.MustCompile(`(?i)^0?(\d+):00\s*(AM|PM)$`)

// FormatTime shortens a stored time string for display. Strings that are not
// on the hour, including malformed ones, pass through unchanged.
func FormatTime(s string) string {
	return onTheHour.ReplaceAllString(s, "$1 $2")
}
