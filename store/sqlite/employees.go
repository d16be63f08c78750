package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/warp/shift-engine/attendance"
	"github.com/warp/shift-engine/schedule"
)

// ErrDuplicateAssignment is returned when an employee is assigned to the same shift twice.
var ErrDuplicateAssignment = errors.New("employee already assigned to shift")

// =============================================================================
// EMPLOYEE OPERATIONS
// =============================================================================

// SaveEmployee upserts an employee. Assignments and time entries are saved separately.
func (s *Store) SaveEmployee(ctx context.Context, emp attendance.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO employees (id, first_name, last_name, employee_code, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			employee_code = excluded.employee_code
	`, emp.ID, emp.FirstName, emp.LastName, emp.EmployeeCode, now())
	return err
}

// GetEmployee returns the bare employee row, without assignments or entries.
func (s *Store) GetEmployee(ctx context.Context, id string) (*attendance.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var emp attendance.Employee
	err := s.db.QueryRowContext(ctx, `
		SELECT id, first_name, last_name, employee_code FROM employees WHERE id = ?
	`, id).Scan(&emp.ID, &emp.FirstName, &emp.LastName, &emp.EmployeeCode)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("employee %s: %w", id, schedule.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &emp, nil
}

// ListEmployees returns bare employee rows ordered by name.
func (s *Store) ListEmployees(ctx context.Context) ([]attendance.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.loadEmployeeRows(ctx, "")
}

// =============================================================================
// ASSIGNMENT OPERATIONS
// =============================================================================

// SaveAssignment links an employee to a shift. Both must exist.
func (s *Store) SaveAssignment(ctx context.Context, employeeID, shiftID, id string, assignDate *schedule.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO shift_assignments (id, employee_id, shift_id, assign_date, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, id, employeeID, shiftID, nullDate(assignDate), now())
	if isUniqueConstraintError(err) {
		return ErrDuplicateAssignment
	}
	if isForeignKeyError(err) {
		return fmt.Errorf("employee %s or shift %s: %w", employeeID, shiftID, schedule.ErrNotFound)
	}
	return err
}

// DeleteAssignment removes an assignment.
func (s *Store) DeleteAssignment(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM shift_assignments WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(res, "assignment", id)
}

// =============================================================================
// TIME ENTRY OPERATIONS
// =============================================================================

// SaveTimeEntry upserts a clock-in record. Re-saving an id replaces the
// stored times, so a clock-out carries the full entry. An id that belongs to
// another employee is reported as not found.
func (s *Store) SaveTimeEntry(ctx context.Context, entry attendance.TimeEntry) error {
	if entry.EndTime != nil && entry.EndTime.Before(entry.StartTime) {
		return &attendance.EntryError{EntryID: entry.ID, Message: "clock-out before clock-in"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO time_entries (id, site_id, shift_id, employee_id, start_time, end_time, break_start, break_end, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			site_id = excluded.site_id,
			shift_id = excluded.shift_id,
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			break_start = excluded.break_start,
			break_end = excluded.break_end
		WHERE time_entries.employee_id = excluded.employee_id
	`, entry.ID, entry.SiteID, nullString(entry.ShiftID), entry.EmployeeID, formatTimestamp(entry.StartTime),
		nullTimestamp(entry.EndTime), nullTimestamp(entry.BreakStart), nullTimestamp(entry.BreakEnd), now())
	if isForeignKeyError(err) {
		return fmt.Errorf("employee %s: %w", entry.EmployeeID, schedule.ErrNotFound)
	}
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return fmt.Errorf("time entry %s for employee %s: %w", entry.ID, entry.EmployeeID, schedule.ErrNotFound)
	}
	return nil
}

// =============================================================================
// AGGREGATE LOADING
// =============================================================================

// LoadEmployee returns the employee with every assignment (shift aggregates
// included, terminated shifts too) and the time entries that clock in
// within r. Entries are fetched with a day of slack on each side so callers
// working in any zone see every entry that could fall on a day of r.
func (s *Store) LoadEmployee(ctx context.Context, id string, r schedule.DateRange) (*attendance.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	emps, err := s.loadEmployees(ctx, "WHERE id = ?", r, id)
	if err != nil {
		return nil, err
	}
	if len(emps) == 0 {
		return nil, fmt.Errorf("employee %s: %w", id, schedule.ErrNotFound)
	}
	return &emps[0], nil
}

// LoadEmployees is LoadEmployee for every employee, ordered by name.
func (s *Store) LoadEmployees(ctx context.Context, r schedule.DateRange) ([]attendance.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.loadEmployees(ctx, "", r)
}

func (s *Store) loadEmployees(ctx context.Context, where string, r schedule.DateRange, args ...any) ([]attendance.Employee, error) {
	emps, err := s.loadEmployeeRows(ctx, where, args...)
	if err != nil || len(emps) == 0 {
		return emps, err
	}

	ids := make([]any, len(emps))
	index := make(map[string]int, len(emps))
	for i, e := range emps {
		ids[i] = e.ID
		index[e.ID] = i
	}

	type link struct {
		id, employeeID, shiftID string
		assignDate              *schedule.Date
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, employee_id, shift_id, assign_date
		FROM shift_assignments
		WHERE employee_id IN (`+placeholders(len(ids))+`)
		ORDER BY rowid
	`, ids...)
	if err != nil {
		return nil, err
	}
	var links []link
	for rows.Next() {
		var l link
		var assignDate sql.NullString
		if err := rows.Scan(&l.id, &l.employeeID, &l.shiftID, &assignDate); err != nil {
			rows.Close()
			return nil, err
		}
		if l.assignDate, err = scanDate(assignDate); err != nil {
			rows.Close()
			return nil, fmt.Errorf("assignment %s: %w", l.id, err)
		}
		links = append(links, l)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	if len(links) > 0 {
		seen := make(map[string]bool)
		var shiftIDs []any
		for _, l := range links {
			if !seen[l.shiftID] {
				seen[l.shiftID] = true
				shiftIDs = append(shiftIDs, l.shiftID)
			}
		}
		shifts, err := s.loadShifts(ctx, "WHERE id IN ("+placeholders(len(shiftIDs))+")", shiftIDs...)
		if err != nil {
			return nil, err
		}
		byID := make(map[string]schedule.Shift, len(shifts))
		for _, sh := range shifts {
			byID[sh.ID] = sh
		}
		for _, l := range links {
			i := index[l.employeeID]
			emps[i].Assignments = append(emps[i].Assignments, attendance.Assignment{
				ID:         l.id,
				EmployeeID: l.employeeID,
				Shift:      byID[l.shiftID],
				AssignDate: l.assignDate,
			})
		}
	}

	entries, err := s.loadTimeEntries(ctx, ids, r)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		i := index[e.EmployeeID]
		emps[i].TimeEntries = append(emps[i].TimeEntries, e)
	}

	return emps, nil
}

func (s *Store) loadEmployeeRows(ctx context.Context, where string, args ...any) ([]attendance.Employee, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, first_name, last_name, employee_code
		FROM employees `+where+`
		ORDER BY last_name, first_name, id
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var emps []attendance.Employee
	for rows.Next() {
		var e attendance.Employee
		if err := rows.Scan(&e.ID, &e.FirstName, &e.LastName, &e.EmployeeCode); err != nil {
			return nil, err
		}
		emps = append(emps, e)
	}
	return emps, rows.Err()
}

func (s *Store) loadTimeEntries(ctx context.Context, employeeIDs []any, r schedule.DateRange) ([]attendance.TimeEntry, error) {
	from := formatTimestamp(r.Start.AddDays(-1).In(time.UTC))
	to := formatTimestamp(r.End.AddDays(2).In(time.UTC))

	args := append([]any{}, employeeIDs...)
	args = append(args, from, to)
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, site_id, shift_id, employee_id, start_time, end_time, break_start, break_end
		FROM time_entries
		WHERE employee_id IN (`+placeholders(len(employeeIDs))+`)
			AND start_time >= ? AND start_time < ?
		ORDER BY start_time, id
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []attendance.TimeEntry
	for rows.Next() {
		var (
			e                         attendance.TimeEntry
			shiftID                   sql.NullString
			start                     string
			end, breakStart, breakEnd sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.SiteID, &shiftID, &e.EmployeeID, &start, &end, &breakStart, &breakEnd); err != nil {
			return nil, err
		}
		e.ShiftID = shiftID.String
		if e.StartTime, err = parseTimestamp(start); err != nil {
			return nil, fmt.Errorf("time entry %s: %w", e.ID, err)
		}
		if e.EndTime, err = scanTimestamp(end); err != nil {
			return nil, fmt.Errorf("time entry %s: %w", e.ID, err)
		}
		if e.BreakStart, err = scanTimestamp(breakStart); err != nil {
			return nil, fmt.Errorf("time entry %s: %w", e.ID, err)
		}
		if e.BreakEnd, err = scanTimestamp(breakEnd); err != nil {
			return nil, fmt.Errorf("time entry %s: %w", e.ID, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
