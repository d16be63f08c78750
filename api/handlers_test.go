/*
handlers_test.go - HTTP tests for the API handlers

Tests for:
- Shift CRUD, validation and error mapping
- Occurrence, schedule and rrule views
- Assignments, time entries and attendance cells/grid
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/shift-engine/attendance"
	"github.com/warp/shift-engine/store/sqlite"
)

// Wednesday 2024-01-10, 18:00 UTC.
var fixedNow = time.Date(2024, time.January, 10, 18, 0, 0, 0, time.UTC)

func setupTestHandler(t *testing.T) (*Handler, *chi.Mux) {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	classifier := attendance.NewClassifier(
		attendance.WithLocation(time.UTC),
		attendance.WithClock(func() time.Time { return fixedNow }),
	)
	h := NewHandler(store, classifier)
	return h, NewRouter(h)
}

func doRequest(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func gateShift() map[string]any {
	return map[string]any{
		"id":         "s1",
		"site_id":    "site-1",
		"name":       "Gate",
		"type":       "recurring",
		"start_date": "2024-01-01",
		"start_time": "09:00 AM",
		"end_time":   "05:00 PM",
		"pay_rate":   "18.50",
	}
}

func TestCreateShift_DefaultsAndReadback(t *testing.T) {
	_, router := setupTestHandler(t)

	rec := doRequest(t, router, http.MethodPost, "/api/shifts", gateShift())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	shift := decode[ShiftDTO](t, rec)
	assert.Equal(t, "s1", shift.ID)
	assert.Equal(t, []string{"sunday"}, shift.OffDays, "off days default to Sunday")
	assert.Equal(t, "18.5", shift.PayRate.String())

	rec = doRequest(t, router, http.MethodGet, "/api/shifts/s1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Gate", decode[ShiftDTO](t, rec).Name)

	rec = doRequest(t, router, http.MethodGet, "/api/shifts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]ShiftDTO](t, rec), 1)
}

func TestCreateShift_FridayToken(t *testing.T) {
	_, router := setupTestHandler(t)

	body := gateShift()
	body["off_days"] = []string{"friday", "sunday"}
	rec := doRequest(t, router, http.MethodPost, "/api/shifts", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	assert.Equal(t, []string{"firday", "sunday"}, decode[ShiftDTO](t, rec).OffDays)
}

func TestCreateShift_Validation(t *testing.T) {
	tests := []struct {
		name  string
		patch map[string]any
		field string
		tag   string
	}{
		{"malformed start time", map[string]any{"start_time": "9:00"}, "start_time", "clock12"},
		{"missing name", map[string]any{"name": ""}, "name", "required"},
		{"unknown type", map[string]any{"type": "weekly"}, "type", "oneof"},
		{"bad date", map[string]any{"start_date": "01/01/2024"}, "start_date", "datetime"},
		{"unknown weekday", map[string]any{"off_days": []string{"funday"}}, "off_days[0]", "weekday"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, router := setupTestHandler(t)
			body := gateShift()
			for k, v := range tt.patch {
				body[k] = v
			}

			rec := doRequest(t, router, http.MethodPost, "/api/shifts", body)
			require.Equal(t, http.StatusBadRequest, rec.Code)

			var resp struct {
				Code    string       `json:"code"`
				Details []FieldError `json:"details"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, "validation_failed", resp.Code)
			require.Len(t, resp.Details, 1)
			assert.Equal(t, tt.field, resp.Details[0].Field)
			assert.Equal(t, tt.tag, resp.Details[0].Tag)
		})
	}
}

func TestCreateShift_InvertedWindow(t *testing.T) {
	_, router := setupTestHandler(t)

	body := gateShift()
	body["type"] = "one_time"
	body["end_date"] = "2023-12-01"

	rec := doRequest(t, router, http.MethodPost, "/api/shifts", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "end_date")
}

func TestShift_NotFound(t *testing.T) {
	_, router := setupTestHandler(t)

	for _, path := range []string{"/api/shifts/nope", "/api/shifts/nope/occurrences", "/api/shifts/nope/rrule"} {
		rec := doRequest(t, router, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
	rec := doRequest(t, router, http.MethodPost, "/api/shifts/nope/exclude-days", map[string]any{"from": "2024-01-02"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = doRequest(t, router, http.MethodDelete, "/api/exclude-days/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetOccurrences(t *testing.T) {
	_, router := setupTestHandler(t)
	require.Equal(t, http.StatusCreated, doRequest(t, router, http.MethodPost, "/api/shifts", gateShift()).Code)

	// GIVEN: An exclusion on Tuesday and a custom-time Wednesday
	rec := doRequest(t, router, http.MethodPost, "/api/shifts/s1/exclude-days", map[string]any{"from": "2024-01-09", "reason": "Holiday"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	excluded := decode[ExcludeDayDTO](t, rec)

	rec = doRequest(t, router, http.MethodPost, "/api/shifts/s1/include-days", map[string]any{
		"start_date": "2024-01-10", "custom_time": true, "start_time": "10:00 AM", "end_time": "06:00 PM",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// WHEN: Resolving the days around them
	rec = doRequest(t, router, http.MethodGet, "/api/shifts/s1/occurrences?from=2023-12-31&to=2024-01-10", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	days := decode[[]ResolutionDTO](t, rec)
	require.Len(t, days, 11)

	// THEN: Each day carries its reason and grid label
	assert.Equal(t, "not_started", days[0].Reason)
	assert.Equal(t, "-", days[0].Label)
	assert.Equal(t, "in_effect", days[1].Reason)
	assert.Equal(t, "9 AM - 5 PM", days[1].Label)
	assert.Equal(t, "off_day", days[7].Reason, "2024-01-07 is a Sunday")
	assert.Equal(t, "Off Day", days[7].Label)
	assert.Equal(t, "Excluded", days[9].Label)
	assert.Equal(t, excluded.ID, days[9].ExcludedBy)
	assert.Equal(t, "10 AM - 6 PM", days[10].Label)
	assert.True(t, days[10].Custom)
}

func TestGetOccurrences_BadRange(t *testing.T) {
	_, router := setupTestHandler(t)
	require.Equal(t, http.StatusCreated, doRequest(t, router, http.MethodPost, "/api/shifts", gateShift()).Code)

	rec := doRequest(t, router, http.MethodGet, "/api/shifts/s1/occurrences?from=2024-01-10&to=2024-01-01", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = doRequest(t, router, http.MethodGet, "/api/shifts/s1/occurrences?from=2024-01-01&to=2026-01-01", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetSchedule_SkipsTerminatedShifts(t *testing.T) {
	_, router := setupTestHandler(t)
	require.Equal(t, http.StatusCreated, doRequest(t, router, http.MethodPost, "/api/shifts", gateShift()).Code)

	other := gateShift()
	other["id"] = "s2"
	other["name"] = "Retired"
	require.Equal(t, http.StatusCreated, doRequest(t, router, http.MethodPost, "/api/shifts", other).Code)
	rec := doRequest(t, router, http.MethodPost, "/api/shifts/s2/terminate", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[ShiftDTO](t, rec).Terminated)

	rec = doRequest(t, router, http.MethodGet, "/api/schedules?date=2024-01-10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sched := decode[ScheduleDTO](t, rec)

	assert.Equal(t, "week", sched.View)
	assert.Equal(t, "2024-01-07", sched.Start)
	assert.Equal(t, "2024-01-13", sched.End)
	require.Len(t, sched.Rows, 1)
	assert.Equal(t, "s1", sched.Rows[0].ShiftID)
	assert.Equal(t, "Off Day", sched.Rows[0].Cells[0].Label)
	assert.Equal(t, "9 AM - 5 PM", sched.Rows[0].Cells[1].Label)

	rec = doRequest(t, router, http.MethodGet, "/api/schedules?date=2024-02-10&view=month", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[ScheduleDTO](t, rec).Days, 29)

	rec = doRequest(t, router, http.MethodGet, "/api/schedules?view=year", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetRecurrence(t *testing.T) {
	_, router := setupTestHandler(t)
	require.Equal(t, http.StatusCreated, doRequest(t, router, http.MethodPost, "/api/shifts", gateShift()).Code)
	require.Equal(t, http.StatusCreated, doRequest(t, router, http.MethodPost, "/api/shifts/s1/exclude-days",
		map[string]any{"from": "2024-01-09"}).Code)

	rec := doRequest(t, router, http.MethodGet, "/api/shifts/s1/rrule", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	dto := decode[RecurrenceDTO](t, rec)

	assert.Contains(t, dto.RRule, "FREQ=DAILY")
	assert.Contains(t, dto.RRule, "BYDAY=MO,TU,WE,TH,FR,SA")
	lines := strings.Join(dto.Recurrence, "\n")
	assert.Contains(t, lines, "EXDATE")
	assert.Contains(t, lines, "20240109T090000Z")
}

func TestGetRecurrence_AllDaysOff(t *testing.T) {
	_, router := setupTestHandler(t)
	body := gateShift()
	body["off_days"] = []string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}
	require.Equal(t, http.StatusCreated, doRequest(t, router, http.MethodPost, "/api/shifts", body).Code)

	rec := doRequest(t, router, http.MethodGet, "/api/shifts/s1/rrule", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestAttendance_Flow(t *testing.T) {
	_, router := setupTestHandler(t)
	require.Equal(t, http.StatusCreated, doRequest(t, router, http.MethodPost, "/api/shifts", gateShift()).Code)

	// GIVEN: A guard assigned to the gate shift
	rec := doRequest(t, router, http.MethodPost, "/api/employees", map[string]any{
		"id": "emp-1", "first_name": "Ana", "last_name": "Silva", "employee_code": "G-1",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = doRequest(t, router, http.MethodPost, "/api/employees/emp-1/assignments", map[string]any{"shift_id": "s1"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// AND: A Tuesday clock-in at 09:12, with clock-out posted separately
	rec = doRequest(t, router, http.MethodPost, "/api/employees/emp-1/time-entries", map[string]any{
		"id": "te-1", "shift_id": "s1", "start_time": "2024-01-09T09:12:00Z",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = doRequest(t, router, http.MethodPost, "/api/employees/emp-1/time-entries", map[string]any{
		"id": "te-1", "shift_id": "s1", "start_time": "2024-01-09T09:12:00Z", "end_time": "2024-01-09T17:39:00Z",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// WHEN: Reading Tuesday's cell
	rec = doRequest(t, router, http.MethodGet, "/api/employees/emp-1/attendance?date=2024-01-09", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cell := decode[AttendanceDTO](t, rec)

	// THEN: Late by 12 minutes, 8h 27m worked
	assert.True(t, cell.Scheduled)
	assert.Equal(t, "late", cell.Status)
	require.NotNil(t, cell.LateMinutes)
	assert.Equal(t, 12, *cell.LateMinutes)
	assert.Nil(t, cell.EarlyMinutes)
	assert.True(t, cell.HasClockedOut)
	require.NotNil(t, cell.HoursWorked)
	assert.Equal(t, "8h 27m", cell.HoursWorked.Label)
	assert.Equal(t, "8.45", cell.HoursWorked.Decimal.String())

	// AND: Sunday is not scheduled, Monday absent, Thursday upcoming
	rec = doRequest(t, router, http.MethodGet, "/api/attendance?date=2024-01-09", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	grid := decode[AttendanceGridDTO](t, rec)
	require.Len(t, grid.Rows, 1)
	cells := grid.Rows[0].Cells
	require.Len(t, cells, 7)
	assert.False(t, cells[0].Scheduled)
	assert.Equal(t, "absent", cells[1].Status)
	assert.Equal(t, "late", cells[2].Status)
	assert.Equal(t, "upcoming", cells[4].Status)

	// AND: The employee view lists the assignment
	rec = doRequest(t, router, http.MethodGet, "/api/employees/emp-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	emp := decode[EmployeeDTO](t, rec)
	assert.Equal(t, "Ana Silva", emp.Name)
	require.Len(t, emp.Assignments, 1)
	assert.Equal(t, "s1", emp.Assignments[0].ShiftID)
}

func TestAttendance_CellErrorsDoNotFailRequest(t *testing.T) {
	h, router := setupTestHandler(t)
	ctx := context.Background()

	// GIVEN: A stored shift whose start time was corrupted after validation
	require.Equal(t, http.StatusCreated, doRequest(t, router, http.MethodPost, "/api/shifts", gateShift()).Code)
	require.NoError(t, h.Store.SaveEmployee(ctx, attendance.Employee{ID: "emp-1", FirstName: "Ana", LastName: "Silva"}))
	require.NoError(t, h.Store.SaveAssignment(ctx, "emp-1", "s1", "as-1", nil))
	_, err := h.Store.DB().ExecContext(ctx, `UPDATE shifts SET start_time = 'nine' WHERE id = 's1'`)
	require.NoError(t, err)

	rec := doRequest(t, router, http.MethodGet, "/api/employees/emp-1/attendance?date=2024-01-09", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cell := decode[AttendanceDTO](t, rec)
	assert.Contains(t, cell.Error, "invalid_time_format")
}

func TestAssignment_Errors(t *testing.T) {
	_, router := setupTestHandler(t)
	require.Equal(t, http.StatusCreated, doRequest(t, router, http.MethodPost, "/api/shifts", gateShift()).Code)
	require.Equal(t, http.StatusCreated, doRequest(t, router, http.MethodPost, "/api/employees",
		map[string]any{"id": "emp-1", "first_name": "Ana", "last_name": "Silva"}).Code)

	rec := doRequest(t, router, http.MethodPost, "/api/employees/emp-1/assignments", map[string]any{"shift_id": "s1"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assignment := decode[AssignmentDTO](t, rec)

	rec = doRequest(t, router, http.MethodPost, "/api/employees/emp-1/assignments", map[string]any{"shift_id": "s1"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/api/employees/emp-1/assignments", map[string]any{"shift_id": "missing"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, router, http.MethodDelete, "/api/assignments/"+assignment.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestTimeEntry_Validation(t *testing.T) {
	_, router := setupTestHandler(t)
	require.Equal(t, http.StatusCreated, doRequest(t, router, http.MethodPost, "/api/employees",
		map[string]any{"id": "emp-1", "first_name": "Ana", "last_name": "Silva"}).Code)

	rec := doRequest(t, router, http.MethodPost, "/api/employees/emp-1/time-entries", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/api/employees/emp-1/time-entries", map[string]any{
		"start_time": "2024-01-09T09:00:00Z", "end_time": "2024-01-09T08:00:00Z",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/api/employees/emp-1/time-entries", map[string]any{
		"start_time": "2024-01-09T09:00:00Z", "break_start": "2024-01-09T12:00:00Z",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "break_end required with break_start")
}

func TestTimeEntry_ResaveAcrossEmployees(t *testing.T) {
	_, router := setupTestHandler(t)
	for _, id := range []string{"emp-1", "emp-2"} {
		require.Equal(t, http.StatusCreated, doRequest(t, router, http.MethodPost, "/api/employees",
			map[string]any{"id": id, "first_name": "Guard", "last_name": id}).Code)
	}
	require.Equal(t, http.StatusCreated, doRequest(t, router, http.MethodPost, "/api/shifts", gateShift()).Code)
	require.Equal(t, http.StatusCreated, doRequest(t, router, http.MethodPost, "/api/employees/emp-1/assignments",
		map[string]any{"shift_id": "s1"}).Code)

	rec := doRequest(t, router, http.MethodPost, "/api/employees/emp-1/time-entries", map[string]any{
		"id": "t1", "start_time": "2024-01-09T09:00:00Z",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// Another employee cannot take over the entry
	rec = doRequest(t, router, http.MethodPost, "/api/employees/emp-2/time-entries", map[string]any{
		"id": "t1", "start_time": "2024-01-09T09:00:00Z", "end_time": "2024-01-09T17:00:00Z",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Moving the clock-in earlier keeps the stored entry well formed
	rec = doRequest(t, router, http.MethodPost, "/api/employees/emp-1/time-entries", map[string]any{
		"id": "t1", "start_time": "2024-01-09T06:00:00Z", "end_time": "2024-01-09T07:00:00Z",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doRequest(t, router, http.MethodGet, "/api/employees/emp-1/attendance?date=2024-01-09", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cell := decode[AttendanceDTO](t, rec)
	assert.Empty(t, cell.Error)
	assert.Equal(t, "early", cell.Status)
}
