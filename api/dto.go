/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the schedule and attendance model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Shifts:
    ShiftDTO, CreateShiftRequest, ExcludeDayDTO, IncludeDayDTO,
    CreateExcludeDayRequest, CreateIncludeDayRequest

  Calendar:
    ResolutionDTO, ScheduleDTO, ScheduleRowDTO, RecurrenceDTO

  Employees:
    EmployeeDTO, CreateEmployeeRequest, CreateAssignmentRequest,
    TimeEntryRequest

  Attendance:
    AttendanceDTO, WorkedDTO, AttendanceGridDTO

VALIDATION:
  Request types carry go-playground/validator tags. Two custom tags are
  registered in validate.go: clock12 ("09:00 AM") and weekday.

SEE ALSO:
  - handlers.go: Uses these types
  - validate.go: Validator setup
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/shift-engine/attendance"
	"github.com/warp/shift-engine/schedule"
)

// =============================================================================
// SHIFT TYPES
// =============================================================================

// ShiftDTO represents a shift aggregate in API responses.
type ShiftDTO struct {
	ID                 string           `json:"id"`
	SiteID             string           `json:"site_id"`
	Name               string           `json:"name"`
	Notes              string           `json:"notes,omitempty"`
	Type               string           `json:"type"`
	StartDate          string           `json:"start_date"`
	EndDate            *string          `json:"end_date,omitempty"`
	StartTime          string           `json:"start_time"`
	EndTime            string           `json:"end_time"`
	OffDays            []string         `json:"off_days"`
	EveryDay           bool             `json:"every_day"`
	PayRate            decimal.Decimal  `json:"pay_rate"`
	OvertimeMultiplier *decimal.Decimal `json:"overtime_multiplier,omitempty"`
	Terminated         bool             `json:"terminated"`
	ExcludeDays        []ExcludeDayDTO  `json:"exclude_days"`
	IncludeDays        []IncludeDayDTO  `json:"include_days"`
}

// CreateShiftRequest creates or replaces a shift. Omitted off_days default
// to Sunday unless every_day is set.
type CreateShiftRequest struct {
	ID                 string           `json:"id"`
	SiteID             string           `json:"site_id"`
	Name               string           `json:"name" validate:"required,max=120"`
	Notes              string           `json:"notes"`
	Type               string           `json:"type" validate:"required,oneof=recurring one_time"`
	StartDate          string           `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate            string           `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	StartTime          string           `json:"start_time" validate:"required,clock12"`
	EndTime            string           `json:"end_time" validate:"required,clock12"`
	OffDays            []string         `json:"off_days" validate:"omitempty,max=7,dive,weekday"`
	EveryDay           bool             `json:"every_day"`
	PayRate            decimal.Decimal  `json:"pay_rate"`
	OvertimeMultiplier *decimal.Decimal `json:"overtime_multiplier"`
}

// ExcludeDayDTO represents an exclusion.
type ExcludeDayDTO struct {
	ID     string  `json:"id"`
	From   string  `json:"from"`
	To     *string `json:"to,omitempty"`
	Reason string  `json:"reason,omitempty"`
	Notes  string  `json:"notes,omitempty"`
}

// CreateExcludeDayRequest adds an exclusion to a shift.
type CreateExcludeDayRequest struct {
	From   string `json:"from" validate:"required,datetime=2006-01-02"`
	To     string `json:"to" validate:"omitempty,datetime=2006-01-02"`
	Reason string `json:"reason" validate:"max=200"`
	Notes  string `json:"notes"`
}

// IncludeDayDTO represents a custom-time day.
type IncludeDayDTO struct {
	ID         string  `json:"id"`
	StartDate  string  `json:"start_date"`
	EndDate    *string `json:"end_date,omitempty"`
	CustomTime bool    `json:"custom_time"`
	StartTime  string  `json:"start_time,omitempty"`
	EndTime    string  `json:"end_time,omitempty"`
}

// CreateIncludeDayRequest adds a custom-time day to a shift.
type CreateIncludeDayRequest struct {
	StartDate  string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate    string `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	CustomTime bool   `json:"custom_time"`
	StartTime  string `json:"start_time" validate:"omitempty,clock12"`
	EndTime    string `json:"end_time" validate:"omitempty,clock12"`
}

// =============================================================================
// CALENDAR TYPES
// =============================================================================

// ResolutionDTO is one day of a shift's calendar.
type ResolutionDTO struct {
	Date       string `json:"date"`
	Reason     string `json:"reason"`
	Label      string `json:"label"`
	StartTime  string `json:"start_time,omitempty"`
	EndTime    string `json:"end_time,omitempty"`
	Custom     bool   `json:"custom,omitempty"`
	ExcludedBy string `json:"excluded_by,omitempty"`
}

// ScheduleRowDTO is one shift across the schedule grid.
type ScheduleRowDTO struct {
	ShiftID string          `json:"shift_id"`
	Name    string          `json:"name"`
	SiteID  string          `json:"site_id"`
	Cells   []ResolutionDTO `json:"cells"`
}

// ScheduleDTO is the schedule calendar for a week or month.
type ScheduleDTO struct {
	View  string           `json:"view"`
	Start string           `json:"start"`
	End   string           `json:"end"`
	Days  []string         `json:"days"`
	Rows  []ScheduleRowDTO `json:"rows"`
}

// RecurrenceDTO is the RFC 5545 export of a shift.
type RecurrenceDTO struct {
	ShiftID    string   `json:"shift_id"`
	RRule      string   `json:"rrule"`
	Recurrence []string `json:"recurrence"`
}

// =============================================================================
// EMPLOYEE TYPES
// =============================================================================

// EmployeeDTO represents an employee in API responses.
type EmployeeDTO struct {
	ID           string          `json:"id"`
	FirstName    string          `json:"first_name"`
	LastName     string          `json:"last_name"`
	Name         string          `json:"name"`
	EmployeeCode string          `json:"employee_code,omitempty"`
	Assignments  []AssignmentDTO `json:"assignments,omitempty"`
}

// AssignmentDTO links an employee to a shift.
type AssignmentDTO struct {
	ID         string  `json:"id"`
	ShiftID    string  `json:"shift_id"`
	ShiftName  string  `json:"shift_name,omitempty"`
	AssignDate *string `json:"assign_date,omitempty"`
}

// CreateEmployeeRequest creates or replaces an employee.
type CreateEmployeeRequest struct {
	ID           string `json:"id"`
	FirstName    string `json:"first_name" validate:"required,max=80"`
	LastName     string `json:"last_name" validate:"required,max=80"`
	EmployeeCode string `json:"employee_code" validate:"max=40"`
}

// CreateAssignmentRequest assigns an employee to a shift.
type CreateAssignmentRequest struct {
	ShiftID    string `json:"shift_id" validate:"required"`
	AssignDate string `json:"assign_date" validate:"omitempty,datetime=2006-01-02"`
}

// TimeEntryRequest records a clock-in, and optionally its clock-out.
// Posting again with the same id records the clock-out.
type TimeEntryRequest struct {
	ID         string     `json:"id"`
	ShiftID    string     `json:"shift_id"`
	SiteID     string     `json:"site_id"`
	StartTime  time.Time  `json:"start_time"`
	EndTime    *time.Time `json:"end_time"`
	BreakStart *time.Time `json:"break_start"`
	BreakEnd   *time.Time `json:"break_end" validate:"required_with=BreakStart"`
}

// TimeEntryDTO represents a time entry.
type TimeEntryDTO struct {
	ID         string  `json:"id"`
	ShiftID    string  `json:"shift_id,omitempty"`
	StartTime  string  `json:"start_time"`
	EndTime    *string `json:"end_time,omitempty"`
	BreakStart *string `json:"break_start,omitempty"`
	BreakEnd   *string `json:"break_end,omitempty"`
}

// =============================================================================
// ATTENDANCE TYPES
// =============================================================================

// WorkedDTO is a worked duration.
type WorkedDTO struct {
	Hours   int             `json:"hours"`
	Minutes int             `json:"minutes"`
	Decimal decimal.Decimal `json:"decimal"`
	Label   string          `json:"label"`
}

// AttendanceDTO is one (employee, date) attendance cell. Scheduled is false
// when no shift is in effect; Error is set when the cell could not be derived.
type AttendanceDTO struct {
	EmployeeID    string     `json:"employee_id"`
	Date          string     `json:"date"`
	Scheduled     bool       `json:"scheduled"`
	ShiftID       string     `json:"shift_id,omitempty"`
	ExpectedStart string     `json:"expected_start,omitempty"`
	ExpectedEnd   string     `json:"expected_end,omitempty"`
	Status        string     `json:"status,omitempty"`
	EarlyMinutes  *int       `json:"early_minutes,omitempty"`
	LateMinutes   *int       `json:"late_minutes,omitempty"`
	ClockIn       *string    `json:"clock_in,omitempty"`
	ClockOut      *string    `json:"clock_out,omitempty"`
	HasClockedOut bool       `json:"has_clocked_out"`
	HoursWorked   *WorkedDTO `json:"hours_worked,omitempty"`
	BreakMinutes  int        `json:"break_minutes,omitempty"`
	Error         string     `json:"error,omitempty"`
}

// AttendanceRowDTO is one employee across the attendance grid.
type AttendanceRowDTO struct {
	EmployeeID string          `json:"employee_id"`
	Name       string          `json:"name"`
	Cells      []AttendanceDTO `json:"cells"`
}

// AttendanceGridDTO is the weekly attendance grid.
type AttendanceGridDTO struct {
	Start string             `json:"start"`
	End   string             `json:"end"`
	Days  []string           `json:"days"`
	Rows  []AttendanceRowDTO `json:"rows"`
}

// =============================================================================
// MISC TYPES
// =============================================================================

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// FieldError describes one failed request field.
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func datePtrString(d *schedule.Date) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

func timePtrString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

func toShiftDTO(s schedule.Shift) ShiftDTO {
	dto := ShiftDTO{
		ID:                 s.ID,
		SiteID:             s.SiteID,
		Name:               s.Name,
		Notes:              s.Notes,
		Type:               string(s.Type),
		StartDate:          s.StartDate.String(),
		EndDate:            datePtrString(s.EndDate),
		StartTime:          s.StartTime,
		EndTime:            s.EndTime,
		OffDays:            make([]string, len(s.OffDays)),
		EveryDay:           s.EveryDay,
		PayRate:            s.PayRate,
		OvertimeMultiplier: s.OvertimeMultiplier,
		Terminated:         s.Terminated,
		ExcludeDays:        make([]ExcludeDayDTO, len(s.ExcludeDays)),
		IncludeDays:        make([]IncludeDayDTO, len(s.IncludeDays)),
	}
	for i, w := range s.OffDays {
		dto.OffDays[i] = string(w)
	}
	for i, e := range s.ExcludeDays {
		dto.ExcludeDays[i] = toExcludeDayDTO(e)
	}
	for i, d := range s.IncludeDays {
		dto.IncludeDays[i] = toIncludeDayDTO(d)
	}
	return dto
}

func toExcludeDayDTO(e schedule.ExcludeDay) ExcludeDayDTO {
	return ExcludeDayDTO{ID: e.ID, From: e.From.String(), To: datePtrString(e.To), Reason: e.Reason, Notes: e.Notes}
}

func toIncludeDayDTO(d schedule.IncludeDay) IncludeDayDTO {
	return IncludeDayDTO{
		ID:         d.ID,
		StartDate:  d.StartDate.String(),
		EndDate:    datePtrString(d.EndDate),
		CustomTime: d.CustomTime,
		StartTime:  d.StartTime,
		EndTime:    d.EndTime,
	}
}

func toResolutionDTO(r schedule.Resolution) ResolutionDTO {
	dto := ResolutionDTO{Date: r.Date.String(), Reason: string(r.Reason), Label: schedule.Label(r)}
	if r.Occurrence != nil {
		dto.StartTime = r.Occurrence.StartTime
		dto.EndTime = r.Occurrence.EndTime
		dto.Custom = r.Occurrence.Custom
	}
	if r.ExcludedBy != nil {
		dto.ExcludedBy = r.ExcludedBy.ID
	}
	return dto
}

func toEmployeeDTO(e attendance.Employee) EmployeeDTO {
	dto := EmployeeDTO{
		ID:           e.ID,
		FirstName:    e.FirstName,
		LastName:     e.LastName,
		Name:         e.Name(),
		EmployeeCode: e.EmployeeCode,
	}
	for _, a := range e.Assignments {
		dto.Assignments = append(dto.Assignments, AssignmentDTO{
			ID:         a.ID,
			ShiftID:    a.Shift.ID,
			ShiftName:  a.Shift.Name,
			AssignDate: datePtrString(a.AssignDate),
		})
	}
	return dto
}

func toTimeEntryDTO(e attendance.TimeEntry) TimeEntryDTO {
	return TimeEntryDTO{
		ID:         e.ID,
		ShiftID:    e.ShiftID,
		StartTime:  e.StartTime.Format(time.RFC3339),
		EndTime:    timePtrString(e.EndTime),
		BreakStart: timePtrString(e.BreakStart),
		BreakEnd:   timePtrString(e.BreakEnd),
	}
}

// toAttendanceDTO renders one classification. res may be nil (not scheduled).
func toAttendanceDTO(employeeID string, date schedule.Date, res *attendance.Result, err error) AttendanceDTO {
	dto := AttendanceDTO{EmployeeID: employeeID, Date: date.String()}
	if err != nil {
		dto.Error = err.Error()
		return dto
	}
	if res == nil {
		return dto
	}

	dto.Scheduled = true
	dto.ShiftID = res.ShiftID
	dto.ExpectedStart = res.Occurrence.StartTime
	dto.ExpectedEnd = res.Occurrence.EndTime
	dto.Status = string(res.Status)
	dto.EarlyMinutes = res.EarlyMinutes
	dto.LateMinutes = res.LateMinutes
	dto.HasClockedOut = res.HasClockedOut
	dto.BreakMinutes = int(res.Break / time.Minute)
	if res.Entry != nil {
		dto.ClockIn = timePtrString(&res.Entry.StartTime)
		dto.ClockOut = timePtrString(res.Entry.EndTime)
	}
	if res.HoursWorked != nil {
		dto.HoursWorked = &WorkedDTO{
			Hours:   res.HoursWorked.Hours,
			Minutes: res.HoursWorked.Minutes,
			Decimal: res.HoursWorked.Decimal(),
			Label:   res.HoursWorked.String(),
		}
	}
	return dto
}

func dateStrings(days []schedule.Date) []string {
	out := make([]string, len(days))
	for i, d := range days {
		out[i] = d.String()
	}
	return out
}
