/*
handlers.go - HTTP API handlers for the shift engine

PURPOSE:
  Exposes the occurrence resolver and the attendance classifier via REST.
  Handles HTTP request/response, JSON serialization, and delegates to the
  schedule and attendance packages. Nothing here decides whether a shift
  runs on a day or how a clock-in is classified.

ENDPOINTS:
  Shifts:
    GET    /api/shifts                     List shifts (?site_id, ?include_terminated)
    POST   /api/shifts                     Create or replace a shift
    GET    /api/shifts/{id}                Shift aggregate
    DELETE /api/shifts/{id}                Delete shift (cascades)
    POST   /api/shifts/{id}/terminate      Mark terminated
    POST   /api/shifts/{id}/exclude-days   Add exclusion
    POST   /api/shifts/{id}/include-days   Add custom-time day
    GET    /api/shifts/{id}/occurrences    Per-day resolution (?from, ?to)
    GET    /api/shifts/{id}/rrule          RFC 5545 export
    DELETE /api/exclude-days/{id}
    DELETE /api/include-days/{id}

  Calendar:
    GET    /api/schedules                  Week or month grid (?date, ?view)

  Employees:
    GET    /api/employees                  List employees
    POST   /api/employees                  Create or replace employee
    GET    /api/employees/{id}             Employee with assignments
    POST   /api/employees/{id}/assignments Assign to shift
    POST   /api/employees/{id}/time-entries Record clock-in/out
    DELETE /api/assignments/{id}

  Attendance:
    GET    /api/employees/{id}/attendance  One cell (?date)
    GET    /api/attendance                 Week grid (?date)

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, malformed times, inverted ranges
  - 404: Shift, day, employee or assignment not found
  - 409: Duplicate assignment, ambiguous shift selection
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - validate.go: Request validation
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/warp/shift-engine/attendance"
	"github.com/warp/shift-engine/schedule"
	"github.com/warp/shift-engine/store/sqlite"
)

// maxRangeDays bounds the occurrences endpoint.
const maxRangeDays = 366

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store      *sqlite.Store
	Classifier *attendance.Classifier

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler creates a new handler. A nil classifier gets the defaults.
func NewHandler(store *sqlite.Store, classifier *attendance.Classifier) *Handler {
	if classifier == nil {
		classifier = attendance.NewClassifier()
	}
	return &Handler{Store: store, Classifier: classifier}
}

func (h *Handler) location() *time.Location { return h.Classifier.Location }

func (h *Handler) today() schedule.Date {
	return schedule.DateOf(h.Classifier.Now().In(h.location()))
}

// =============================================================================
// SHIFT HANDLERS
// =============================================================================

// ListShifts returns shifts, active only unless include_terminated=true.
func (h *Handler) ListShifts(w http.ResponseWriter, r *http.Request) {
	includeTerminated, _ := strconv.ParseBool(r.URL.Query().Get("include_terminated"))
	shifts, err := h.Store.ListShifts(r.Context(), sqlite.ShiftFilter{
		SiteID:            r.URL.Query().Get("site_id"),
		IncludeTerminated: includeTerminated,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list shifts", err)
		return
	}

	dtos := make([]ShiftDTO, len(shifts))
	for i, s := range shifts {
		dtos[i] = toShiftDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetShift returns a single shift aggregate.
func (h *Handler) GetShift(w http.ResponseWriter, r *http.Request) {
	shift, err := h.Store.GetShift(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, "Failed to get shift", err)
		return
	}
	writeJSON(w, http.StatusOK, toShiftDTO(*shift))
}

// CreateShift creates or replaces a shift.
func (h *Handler) CreateShift(w http.ResponseWriter, r *http.Request) {
	var req CreateShiftRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	shift, err := req.toShift()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid shift", err)
		return
	}

	if err := h.Store.SaveShift(r.Context(), shift); err != nil {
		writeStoreError(w, "Failed to save shift", err)
		return
	}

	saved, err := h.Store.GetShift(r.Context(), shift.ID)
	if err != nil {
		writeStoreError(w, "Failed to reload shift", err)
		return
	}
	writeJSON(w, http.StatusCreated, toShiftDTO(*saved))
}

func (req CreateShiftRequest) toShift() (schedule.Shift, error) {
	shift := schedule.Shift{
		ID:                 req.ID,
		SiteID:             req.SiteID,
		Name:               req.Name,
		Notes:              req.Notes,
		Type:               schedule.ShiftType(req.Type),
		StartTime:          req.StartTime,
		EndTime:            req.EndTime,
		EveryDay:           req.EveryDay,
		PayRate:            req.PayRate,
		OvertimeMultiplier: req.OvertimeMultiplier,
	}
	if shift.ID == "" {
		shift.ID = uuid.NewString()
	}

	var err error
	if shift.StartDate, err = schedule.ParseDate(req.StartDate); err != nil {
		return shift, err
	}
	if req.EndDate != "" {
		end, err := schedule.ParseDate(req.EndDate)
		if err != nil {
			return shift, err
		}
		shift.EndDate = &end
	}

	switch {
	case req.OffDays != nil:
		shift.OffDays = make([]schedule.Weekday, 0, len(req.OffDays))
		for _, s := range req.OffDays {
			w, err := schedule.ParseWeekday(s)
			if err != nil {
				return shift, err
			}
			shift.OffDays = append(shift.OffDays, w)
		}
	case !req.EveryDay:
		shift.OffDays = []schedule.Weekday{schedule.Sunday}
	}
	return shift, nil
}

// DeleteShift removes a shift and everything hanging off it.
func (h *Handler) DeleteShift(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteShift(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeStoreError(w, "Failed to delete shift", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TerminateShift marks a shift terminated. It leaves the schedule calendar
// but keeps counting for attendance history.
func (h *Handler) TerminateShift(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Store.TerminateShift(r.Context(), id); err != nil {
		writeStoreError(w, "Failed to terminate shift", err)
		return
	}
	shift, err := h.Store.GetShift(r.Context(), id)
	if err != nil {
		writeStoreError(w, "Failed to reload shift", err)
		return
	}
	writeJSON(w, http.StatusOK, toShiftDTO(*shift))
}

// CreateExcludeDay adds an exclusion to a shift.
func (h *Handler) CreateExcludeDay(w http.ResponseWriter, r *http.Request) {
	var req CreateExcludeDayRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	from, err := schedule.ParseDate(req.From)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid from date", err)
		return
	}
	day := schedule.ExcludeDay{
		ID:      uuid.NewString(),
		ShiftID: chi.URLParam(r, "id"),
		From:    from,
		Reason:  req.Reason,
		Notes:   req.Notes,
	}
	if req.To != "" {
		to, err := schedule.ParseDate(req.To)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid to date", err)
			return
		}
		day.To = &to
	}

	if err := h.Store.SaveExcludeDay(r.Context(), day); err != nil {
		writeStoreError(w, "Failed to save exclude day", err)
		return
	}
	writeJSON(w, http.StatusCreated, toExcludeDayDTO(day))
}

// DeleteExcludeDay removes an exclusion.
func (h *Handler) DeleteExcludeDay(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteExcludeDay(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeStoreError(w, "Failed to delete exclude day", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateIncludeDay adds a custom-time day to a shift.
func (h *Handler) CreateIncludeDay(w http.ResponseWriter, r *http.Request) {
	var req CreateIncludeDayRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	start, err := schedule.ParseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date", err)
		return
	}
	day := schedule.IncludeDay{
		ID:         uuid.NewString(),
		ShiftID:    chi.URLParam(r, "id"),
		StartDate:  start,
		CustomTime: req.CustomTime,
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
	}
	if req.EndDate != "" {
		end, err := schedule.ParseDate(req.EndDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid end_date", err)
			return
		}
		day.EndDate = &end
	}

	if err := h.Store.SaveIncludeDay(r.Context(), day); err != nil {
		writeStoreError(w, "Failed to save include day", err)
		return
	}
	writeJSON(w, http.StatusCreated, toIncludeDayDTO(day))
}

// DeleteIncludeDay removes a custom-time day.
func (h *Handler) DeleteIncludeDay(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteIncludeDay(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeStoreError(w, "Failed to delete include day", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// CALENDAR HANDLERS
// =============================================================================

// GetOccurrences resolves a shift on every day of [from, to]. Both default
// to the current week.
func (h *Handler) GetOccurrences(w http.ResponseWriter, r *http.Request) {
	shift, err := h.Store.GetShift(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, "Failed to get shift", err)
		return
	}

	week := schedule.Week(h.today())
	from, err := dateQuery(r, "from", week.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid from date", err)
		return
	}
	to, err := dateQuery(r, "to", week.End)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid to date", err)
		return
	}
	rng := schedule.DateRange{Start: from, End: to}
	if rng.IsEmpty() {
		writeError(w, http.StatusBadRequest, "to is before from", nil)
		return
	}
	if schedule.DaysBetween(from, to) >= maxRangeDays {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Range exceeds %d days", maxRangeDays), nil)
		return
	}

	resolutions := schedule.Expand(*shift, rng)
	dtos := make([]ResolutionDTO, len(resolutions))
	for i, res := range resolutions {
		dtos[i] = toResolutionDTO(res)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetRecurrence exports a shift's weekly pattern and exclusions as RFC 5545.
func (h *Handler) GetRecurrence(w http.ResponseWriter, r *http.Request) {
	shift, err := h.Store.GetShift(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, "Failed to get shift", err)
		return
	}

	rule, err := schedule.Recurrence(*shift, h.location())
	if errors.Is(err, schedule.ErrNoRecurrence) {
		writeError(w, http.StatusUnprocessableEntity, "Shift never recurs", err)
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "Shift cannot be exported", err)
		return
	}
	set, err := schedule.RecurrenceSet(*shift, h.location())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build recurrence set", err)
		return
	}

	writeJSON(w, http.StatusOK, RecurrenceDTO{
		ShiftID:    shift.ID,
		RRule:      rule.String(),
		Recurrence: set.Recurrence(),
	})
}

// GetSchedule renders every active shift across a week or month.
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	date, err := dateQuery(r, "date", h.today())
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}

	view := r.URL.Query().Get("view")
	var rng schedule.DateRange
	switch view {
	case "", "week":
		view = "week"
		rng = schedule.Week(date)
	case "month":
		rng = schedule.Month(date)
	default:
		writeError(w, http.StatusBadRequest, "view must be week or month", nil)
		return
	}

	shifts, err := h.Store.ListShifts(r.Context(), sqlite.ShiftFilter{SiteID: r.URL.Query().Get("site_id")})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list shifts", err)
		return
	}

	resp := ScheduleDTO{
		View:  view,
		Start: rng.Start.String(),
		End:   rng.End.String(),
		Days:  dateStrings(rng.Days()),
		Rows:  make([]ScheduleRowDTO, len(shifts)),
	}
	for i, s := range shifts {
		resolutions := schedule.Expand(s, rng)
		row := ScheduleRowDTO{ShiftID: s.ID, Name: s.Name, SiteID: s.SiteID, Cells: make([]ResolutionDTO, len(resolutions))}
		for j, res := range resolutions {
			row.Cells[j] = toResolutionDTO(res)
		}
		resp.Rows[i] = row
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns all employees.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Store.ListEmployees(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list employees", err)
		return
	}

	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = toEmployeeDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetEmployee returns a single employee with assignments.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	today := h.today()
	emp, err := h.Store.LoadEmployee(r.Context(), chi.URLParam(r, "id"), schedule.DateRange{Start: today, End: today})
	if err != nil {
		writeStoreError(w, "Failed to get employee", err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(*emp))
}

// CreateEmployee creates or replaces an employee.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	emp := attendance.Employee{
		ID:           req.ID,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		EmployeeCode: req.EmployeeCode,
	}
	if emp.ID == "" {
		emp.ID = uuid.NewString()
	}

	if err := h.Store.SaveEmployee(r.Context(), emp); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create employee", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEmployeeDTO(emp))
}

// CreateAssignment assigns an employee to a shift.
func (h *Handler) CreateAssignment(w http.ResponseWriter, r *http.Request) {
	var req CreateAssignmentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	var assignDate *schedule.Date
	if req.AssignDate != "" {
		d, err := schedule.ParseDate(req.AssignDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid assign_date", err)
			return
		}
		assignDate = &d
	}

	id := uuid.NewString()
	employeeID := chi.URLParam(r, "id")
	if err := h.Store.SaveAssignment(r.Context(), employeeID, req.ShiftID, id, assignDate); err != nil {
		writeStoreError(w, "Failed to create assignment", err)
		return
	}
	writeJSON(w, http.StatusCreated, AssignmentDTO{ID: id, ShiftID: req.ShiftID, AssignDate: datePtrString(assignDate)})
}

// DeleteAssignment removes an assignment.
func (h *Handler) DeleteAssignment(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteAssignment(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeStoreError(w, "Failed to delete assignment", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateTimeEntry records a clock-in, or a clock-out for an existing entry id.
func (h *Handler) CreateTimeEntry(w http.ResponseWriter, r *http.Request) {
	var req TimeEntryRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if req.StartTime.IsZero() {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "Validation failed",
			Code:    "validation_failed",
			Details: []FieldError{{Field: "start_time", Tag: "required", Message: "start_time is required"}},
		})
		return
	}

	entry := attendance.TimeEntry{
		ID:         req.ID,
		EmployeeID: chi.URLParam(r, "id"),
		ShiftID:    req.ShiftID,
		SiteID:     req.SiteID,
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
		BreakStart: req.BreakStart,
		BreakEnd:   req.BreakEnd,
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	if err := h.Store.SaveTimeEntry(r.Context(), entry); err != nil {
		writeStoreError(w, "Failed to record time entry", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTimeEntryDTO(entry))
}

// =============================================================================
// ATTENDANCE HANDLERS
// =============================================================================

// GetAttendance classifies one employee on one date (default today).
// Classification errors stay inside the cell and the request still succeeds.
func (h *Handler) GetAttendance(w http.ResponseWriter, r *http.Request) {
	date, err := dateQuery(r, "date", h.today())
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}

	emp, err := h.Store.LoadEmployee(r.Context(), chi.URLParam(r, "id"), schedule.DateRange{Start: date, End: date})
	if err != nil {
		writeStoreError(w, "Failed to load employee", err)
		return
	}

	res, err := h.Classifier.Classify(*emp, date)
	writeJSON(w, http.StatusOK, toAttendanceDTO(emp.ID, date, res, err))
}

// GetAttendanceGrid classifies every employee across the week containing date.
func (h *Handler) GetAttendanceGrid(w http.ResponseWriter, r *http.Request) {
	date, err := dateQuery(r, "date", h.today())
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}

	week := schedule.Week(date)
	emps, err := h.Store.LoadEmployees(r.Context(), week)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load employees", err)
		return
	}

	rows := h.Classifier.Grid(emps, week)
	resp := AttendanceGridDTO{
		Start: week.Start.String(),
		End:   week.End.String(),
		Days:  dateStrings(week.Days()),
		Rows:  make([]AttendanceRowDTO, len(rows)),
	}
	for i, row := range rows {
		dto := AttendanceRowDTO{EmployeeID: row.Employee.ID, Name: row.Employee.Name(), Cells: make([]AttendanceDTO, len(row.Cells))}
		for j, c := range row.Cells {
			dto.Cells[j] = toAttendanceDTO(row.Employee.ID, c.Date, c.Result, c.Err)
		}
		resp.Rows[i] = dto
	}
	writeJSON(w, http.StatusOK, resp)
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeStoreError maps domain and store errors onto HTTP statuses.
func writeStoreError(w http.ResponseWriter, message string, err error) {
	writeError(w, statusFor(err), message, err)
}

func statusFor(err error) int {
	switch {
	case schedule.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, sqlite.ErrDuplicateAssignment), errors.Is(err, attendance.ErrAmbiguousShift):
		return http.StatusConflict
	case schedule.IsClientError(err), errors.Is(err, attendance.ErrInvalidEntry):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// dateQuery reads a YYYY-MM-DD query parameter, falling back to def when absent.
func dateQuery(r *http.Request, name string, def schedule.Date) (schedule.Date, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	return schedule.ParseDate(v)
}
