package attendance_test

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/shift-engine/attendance"
	"github.com/warp/shift-engine/schedule"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// now is Wednesday 2024-01-10 18:00 UTC.
var now = time.Date(2024, time.January, 10, 18, 0, 0, 0, time.UTC)

func newClassifier(opts ...attendance.Option) *attendance.Classifier {
	base := []attendance.Option{
		attendance.WithClock(func() time.Time { return now }),
		attendance.WithLocation(time.UTC),
	}
	return attendance.NewClassifier(append(base, opts...)...)
}

func dayShift(id string) schedule.Shift {
	return schedule.Shift{
		ID:        id,
		Type:      schedule.ShiftRecurring,
		StartDate: schedule.NewDate(2024, time.January, 1),
		StartTime: "09:00 AM",
		EndTime:   "05:00 PM",
		OffDays:   []schedule.Weekday{schedule.Sunday},
	}
}

func guard(shifts ...schedule.Shift) attendance.Employee {
	emp := attendance.Employee{ID: "emp-1", FirstName: "Dana", LastName: "Reyes", EmployeeCode: "ABC12345"}
	for _, s := range shifts {
		emp.Assignments = append(emp.Assignments, attendance.Assignment{ID: s.ID + "-a", EmployeeID: emp.ID, Shift: s})
	}
	return emp
}

func clockIn(hour, minute int) attendance.TimeEntry {
	return attendance.TimeEntry{
		ID:         "te-1",
		EmployeeID: "emp-1",
		ShiftID:    "s1",
		StartTime:  time.Date(2024, time.January, 9, hour, minute, 0, 0, time.UTC),
	}
}

var tuesday = schedule.NewDate(2024, time.January, 9)

// =============================================================================
// PUNCTUALITY
// =============================================================================

func TestClassify_Punctuality(t *testing.T) {
	intPtr := func(v int) *int { return &v }

	tests := []struct {
		name   string
		hour   int
		minute int
		status attendance.Status
		early  *int
		late   *int
	}{
		{"15 minutes ahead", 8, 45, attendance.StatusEarly, intPtr(15), nil},
		{"exactly 10 ahead", 8, 50, attendance.StatusEarly, intPtr(10), nil},
		{"5 minutes ahead", 8, 55, attendance.StatusOnTime, nil, nil},
		{"on the minute", 9, 0, attendance.StatusOnTime, nil, nil},
		{"10 minutes behind", 9, 10, attendance.StatusLate, nil, intPtr(10)},
		{"12 minutes behind", 9, 12, attendance.StatusLate, nil, intPtr(12)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			emp := guard(dayShift("s1"))
			emp.TimeEntries = []attendance.TimeEntry{clockIn(tt.hour, tt.minute)}

			res, err := newClassifier().Classify(emp, tuesday)
			require.NoError(t, err)
			require.NotNil(t, res)

			assert.Equal(t, tt.status, res.Status)
			assert.Equal(t, tt.early, res.EarlyMinutes)
			assert.Equal(t, tt.late, res.LateMinutes)
			assert.False(t, res.HasClockedOut)
			assert.Nil(t, res.HoursWorked)
		})
	}
}

func TestClassify_SubMinuteLateness_TruncatesToOnTime(t *testing.T) {
	emp := guard(dayShift("s1"))
	entry := clockIn(9, 0)
	entry.StartTime = entry.StartTime.Add(40 * time.Second)
	emp.TimeEntries = []attendance.TimeEntry{entry}

	res, err := newClassifier().Classify(emp, tuesday)
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusOnTime, res.Status)
}

func TestClassify_CustomEarlyThreshold(t *testing.T) {
	emp := guard(dayShift("s1"))
	emp.TimeEntries = []attendance.TimeEntry{clockIn(8, 55)}

	res, err := newClassifier(attendance.WithEarlyThreshold(5 * time.Minute)).Classify(emp, tuesday)
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusEarly, res.Status)
}

// =============================================================================
// ABSENT / UPCOMING / NOT SCHEDULED
// =============================================================================

func TestClassify_NoEntry_Absent(t *testing.T) {
	emp := guard(dayShift("s1"))
	// Entry on a different day does not count.
	other := clockIn(9, 0)
	other.StartTime = other.StartTime.AddDate(0, 0, -1)
	emp.TimeEntries = []attendance.TimeEntry{other}

	res, err := newClassifier().Classify(emp, tuesday)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, attendance.StatusAbsent, res.Status)
	assert.Nil(t, res.Entry)
}

func TestClassify_FutureDate_Upcoming(t *testing.T) {
	emp := guard(dayShift("s1"))
	thursday := schedule.NewDate(2024, time.January, 11)
	emp.TimeEntries = []attendance.TimeEntry{{
		ID:        "te-future",
		StartTime: time.Date(2024, time.January, 11, 8, 0, 0, 0, time.UTC),
	}}

	res, err := newClassifier().Classify(emp, thursday)
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusUpcoming, res.Status)
	assert.Nil(t, res.EarlyMinutes)
	assert.Nil(t, res.Entry)
}

func TestClassify_Today_IsNotUpcoming(t *testing.T) {
	emp := guard(dayShift("s1"))
	today := schedule.DateOf(now)

	res, err := newClassifier().Classify(emp, today)
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusAbsent, res.Status)
}

func TestClassify_NotScheduled(t *testing.T) {
	emp := guard(dayShift("s1"))
	sunday := schedule.NewDate(2024, time.January, 7)

	res, err := newClassifier().Classify(emp, sunday)
	assert.NoError(t, err)
	assert.Nil(t, res)

	res, err = newClassifier().Classify(guard(), tuesday)
	assert.NoError(t, err)
	assert.Nil(t, res)
}

// =============================================================================
// CLOCK-OUT
// =============================================================================

func TestClassify_ClockedOut_HoursWorked(t *testing.T) {
	emp := guard(dayShift("s1"))
	entry := clockIn(8, 58)
	out := time.Date(2024, time.January, 9, 17, 25, 30, 0, time.UTC)
	breakStart := time.Date(2024, time.January, 9, 12, 0, 0, 0, time.UTC)
	breakEnd := time.Date(2024, time.January, 9, 12, 30, 0, 0, time.UTC)
	entry.EndTime = &out
	entry.BreakStart = &breakStart
	entry.BreakEnd = &breakEnd
	emp.TimeEntries = []attendance.TimeEntry{entry}

	res, err := newClassifier().Classify(emp, tuesday)
	require.NoError(t, err)

	assert.Equal(t, attendance.StatusOnTime, res.Status)
	assert.True(t, res.HasClockedOut)
	require.NotNil(t, res.HoursWorked)
	assert.Equal(t, attendance.Worked{Hours: 8, Minutes: 27}, *res.HoursWorked)
	assert.Equal(t, "8.45", res.HoursWorked.Decimal().String())
	assert.Equal(t, 30*time.Minute, res.Break)
}

func TestClassify_ClockOutBeforeClockIn(t *testing.T) {
	emp := guard(dayShift("s1"))
	entry := clockIn(9, 0)
	out := entry.StartTime.Add(-time.Hour)
	entry.EndTime = &out
	emp.TimeEntries = []attendance.TimeEntry{entry}

	_, err := newClassifier().Classify(emp, tuesday)
	assert.ErrorIs(t, err, attendance.ErrInvalidEntry)
}

// =============================================================================
// SHIFT SELECTION
// =============================================================================

func TestClassify_FirstMatchInAssignmentOrder(t *testing.T) {
	// GIVEN: Two shifts in effect on Tuesday, the second starting at 08:00 AM
	early := dayShift("s-early")
	early.StartTime = "08:00 AM"
	emp := guard(dayShift("s1"), early)
	emp.TimeEntries = []attendance.TimeEntry{clockIn(8, 30)}

	// WHEN: Classifying with the default policy
	res, err := newClassifier().Classify(emp, tuesday)

	// THEN: The first assignment governs, so 08:30 is 30 minutes early
	require.NoError(t, err)
	assert.Equal(t, "s1", res.ShiftID)
	assert.Equal(t, attendance.StatusEarly, res.Status)
	assert.Equal(t, 30, *res.EarlyMinutes)
}

func TestClassify_FirstMatchSkipsShiftsNotInEffect(t *testing.T) {
	excluded := dayShift("s-holiday")
	excluded.ExcludeDays = []schedule.ExcludeDay{{ID: "x", From: tuesday}}
	emp := guard(excluded, dayShift("s2"))

	res, err := newClassifier().Classify(emp, tuesday)
	require.NoError(t, err)
	assert.Equal(t, "s2", res.ShiftID)
}

func TestClassify_RejectAmbiguous(t *testing.T) {
	emp := guard(dayShift("s1"), dayShift("s2"))

	_, err := newClassifier(attendance.WithSelector(attendance.RejectAmbiguous)).Classify(emp, tuesday)

	var amb *attendance.AmbiguousShiftError
	require.ErrorAs(t, err, &amb)
	assert.Equal(t, []string{"s1", "s2"}, amb.ShiftIDs)
	assert.ErrorIs(t, err, attendance.ErrAmbiguousShift)

	single := guard(dayShift("s1"))
	res, err := newClassifier(attendance.WithSelector(attendance.RejectAmbiguous)).Classify(single, tuesday)
	require.NoError(t, err)
	assert.Equal(t, "s1", res.ShiftID)
}

func TestClassify_TerminatedShiftKeepsHistory(t *testing.T) {
	s := dayShift("s1")
	s.Terminated = true
	emp := guard(s)
	emp.TimeEntries = []attendance.TimeEntry{clockIn(9, 0)}

	res, err := newClassifier().Classify(emp, tuesday)
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusOnTime, res.Status)
}

// =============================================================================
// ERRORS
// =============================================================================

func TestClassify_MalformedStartTime(t *testing.T) {
	s := dayShift("s1")
	s.StartTime = "9 o'clock"
	emp := guard(s)
	emp.TimeEntries = []attendance.TimeEntry{clockIn(9, 0)}

	res, err := newClassifier().Classify(emp, tuesday)
	assert.Nil(t, res)

	var perr *schedule.ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, schedule.KindInvalidTimeFormat, perr.Kind)
}

func TestClassify_IncludeDayCustomStart(t *testing.T) {
	s := dayShift("s1")
	s.IncludeDays = []schedule.IncludeDay{{ID: "i", StartDate: tuesday, CustomTime: true, StartTime: "10:00 AM", EndTime: "06:00 PM"}}
	emp := guard(s)
	emp.TimeEntries = []attendance.TimeEntry{clockIn(9, 30)}

	res, err := newClassifier().Classify(emp, tuesday)
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusEarly, res.Status)
	assert.Equal(t, 30, *res.EarlyMinutes)
}

func TestClassify_EntryComparedInClassifierZone(t *testing.T) {
	// 02:00 UTC on Wednesday is still Tuesday evening in New York.
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	s := dayShift("s1")
	s.StartTime = "09:00 PM"
	emp := guard(s)
	emp.TimeEntries = []attendance.TimeEntry{{
		ID:        "te-night",
		StartTime: time.Date(2024, time.January, 10, 2, 5, 0, 0, time.UTC),
	}}

	res, err := newClassifier(attendance.WithLocation(ny)).Classify(emp, tuesday)
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusLate, res.Status)
	assert.Equal(t, 5, *res.LateMinutes)
}
