package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/shift-engine/schedule"
)

// ShiftFilter narrows ListShifts.
type ShiftFilter struct {
	SiteID            string
	IncludeTerminated bool
}

// =============================================================================
// SHIFT OPERATIONS
// =============================================================================

// SaveShift validates and upserts a shift. Exclude and include days are
// managed through their own operations and are not touched here. A
// terminated shift stays terminated when it is saved again.
func (s *Store) SaveShift(ctx context.Context, shift schedule.Shift) error {
	if err := shift.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	offDays := shift.OffDays
	if offDays == nil {
		offDays = []schedule.Weekday{}
	}
	offDaysJSON, err := json.Marshal(offDays)
	if err != nil {
		return fmt.Errorf("failed to encode off days: %w", err)
	}

	var overtime sql.NullString
	if shift.OvertimeMultiplier != nil {
		overtime = sql.NullString{String: shift.OvertimeMultiplier.String(), Valid: true}
	}

	ts := now()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO shifts (id, site_id, name, notes, type, start_time, end_time, start_date, end_date,
			off_days_json, every_day, pay_rate, overtime_multiplier, terminated, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			site_id = excluded.site_id,
			name = excluded.name,
			notes = excluded.notes,
			type = excluded.type,
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			off_days_json = excluded.off_days_json,
			every_day = excluded.every_day,
			pay_rate = excluded.pay_rate,
			overtime_multiplier = excluded.overtime_multiplier,
			terminated = shifts.terminated OR excluded.terminated,
			updated_at = excluded.updated_at
	`, shift.ID, shift.SiteID, nullString(shift.Name), nullString(shift.Notes), string(shift.Type),
		shift.StartTime, shift.EndTime, shift.StartDate.String(), nullDate(shift.EndDate),
		string(offDaysJSON), shift.EveryDay, shift.PayRate.String(), overtime, shift.Terminated, ts, ts)
	return err
}

// GetShift returns the shift aggregate with its exclude and include days.
func (s *Store) GetShift(ctx context.Context, id string) (*schedule.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	shifts, err := s.loadShifts(ctx, "WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(shifts) == 0 {
		return nil, fmt.Errorf("shift %s: %w", id, schedule.ErrNotFound)
	}
	return &shifts[0], nil
}

// ListShifts returns shift aggregates ordered by start date then name.
func (s *Store) ListShifts(ctx context.Context, filter ShiftFilter) ([]schedule.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	where := "WHERE 1 = 1"
	var args []any
	if filter.SiteID != "" {
		where += " AND site_id = ?"
		args = append(args, filter.SiteID)
	}
	if !filter.IncludeTerminated {
		where += " AND terminated = FALSE"
	}
	return s.loadShifts(ctx, where, args...)
}

// TerminateShift marks a shift terminated. History stays intact.
func (s *Store) TerminateShift(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE shifts SET terminated = TRUE, updated_at = ? WHERE id = ?`, now(), id)
	if err != nil {
		return err
	}
	return requireAffected(res, "shift", id)
}

// DeleteShift removes a shift. Its exclude days, include days and
// assignments are removed with it.
func (s *Store) DeleteShift(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM shifts WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(res, "shift", id)
}

// =============================================================================
// EXCLUDE / INCLUDE DAY OPERATIONS
// =============================================================================

// SaveExcludeDay upserts an exclusion for an existing shift.
func (s *Store) SaveExcludeDay(ctx context.Context, day schedule.ExcludeDay) error {
	if day.To != nil && day.To.Before(day.From) {
		return &schedule.ValidationError{ShiftID: day.ShiftID, Field: "to", Message: "to is before from"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO shift_exclude_days (id, shift_id, from_date, to_date, reason, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			from_date = excluded.from_date,
			to_date = excluded.to_date,
			reason = excluded.reason,
			notes = excluded.notes
	`, day.ID, day.ShiftID, day.From.String(), nullDate(day.To), nullString(day.Reason), nullString(day.Notes), now())
	if isForeignKeyError(err) {
		return fmt.Errorf("shift %s: %w", day.ShiftID, schedule.ErrNotFound)
	}
	return err
}

// DeleteExcludeDay removes an exclusion.
func (s *Store) DeleteExcludeDay(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM shift_exclude_days WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(res, "exclude day", id)
}

// SaveIncludeDay validates and upserts a custom-time day for an existing shift.
func (s *Store) SaveIncludeDay(ctx context.Context, day schedule.IncludeDay) error {
	if err := day.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO shift_include_days (id, shift_id, start_date, end_date, custom_time, start_time, end_time, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			custom_time = excluded.custom_time,
			start_time = excluded.start_time,
			end_time = excluded.end_time
	`, day.ID, day.ShiftID, day.StartDate.String(), nullDate(day.EndDate), day.CustomTime,
		nullString(day.StartTime), nullString(day.EndTime), now())
	if isForeignKeyError(err) {
		return fmt.Errorf("shift %s: %w", day.ShiftID, schedule.ErrNotFound)
	}
	return err
}

// DeleteIncludeDay removes a custom-time day.
func (s *Store) DeleteIncludeDay(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM shift_include_days WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(res, "include day", id)
}

// =============================================================================
// AGGREGATE LOADING (callers hold the lock)
// =============================================================================

// loadShifts reads the shifts matching where, then batch-loads their
// exclude and include days. Every result set is drained before the next
// query runs, since in-memory stores have a single connection.
func (s *Store) loadShifts(ctx context.Context, where string, args ...any) ([]schedule.Shift, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, site_id, name, notes, type, start_time, end_time, start_date, end_date,
			off_days_json, every_day, pay_rate, overtime_multiplier, terminated
		FROM shifts `+where+`
		ORDER BY start_date, name, id
	`, args...)
	if err != nil {
		return nil, err
	}

	var shifts []schedule.Shift
	for rows.Next() {
		shift, err := scanShift(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		shifts = append(shifts, shift)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(shifts) == 0 {
		return nil, nil
	}

	ids := make([]any, len(shifts))
	index := make(map[string]int, len(shifts))
	for i, sh := range shifts {
		ids[i] = sh.ID
		index[sh.ID] = i
	}

	excludes, err := s.loadExcludeDays(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, d := range excludes {
		i := index[d.ShiftID]
		shifts[i].ExcludeDays = append(shifts[i].ExcludeDays, d)
	}

	includes, err := s.loadIncludeDays(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, d := range includes {
		i := index[d.ShiftID]
		shifts[i].IncludeDays = append(shifts[i].IncludeDays, d)
	}

	return shifts, nil
}

func scanShift(rows *sql.Rows) (schedule.Shift, error) {
	var (
		shift                      schedule.Shift
		name, notes, endDate, ot   sql.NullString
		shiftType, startDate, rate string
		offDaysJSON                string
	)
	err := rows.Scan(&shift.ID, &shift.SiteID, &name, &notes, &shiftType, &shift.StartTime, &shift.EndTime,
		&startDate, &endDate, &offDaysJSON, &shift.EveryDay, &rate, &ot, &shift.Terminated)
	if err != nil {
		return shift, err
	}

	shift.Name = name.String
	shift.Notes = notes.String
	shift.Type = schedule.ShiftType(shiftType)

	if shift.StartDate, err = schedule.ParseDate(startDate); err != nil {
		return shift, fmt.Errorf("shift %s: start_date: %w", shift.ID, err)
	}
	if shift.EndDate, err = scanDate(endDate); err != nil {
		return shift, fmt.Errorf("shift %s: end_date: %w", shift.ID, err)
	}
	if err := json.Unmarshal([]byte(offDaysJSON), &shift.OffDays); err != nil {
		return shift, fmt.Errorf("shift %s: off_days: %w", shift.ID, err)
	}
	if shift.PayRate, err = decimal.NewFromString(rate); err != nil {
		return shift, fmt.Errorf("shift %s: pay_rate: %w", shift.ID, err)
	}
	if ot.Valid {
		m, err := decimal.NewFromString(ot.String)
		if err != nil {
			return shift, fmt.Errorf("shift %s: overtime_multiplier: %w", shift.ID, err)
		}
		shift.OvertimeMultiplier = &m
	}
	return shift, nil
}

func (s *Store) loadExcludeDays(ctx context.Context, shiftIDs []any) ([]schedule.ExcludeDay, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, shift_id, from_date, to_date, reason, notes
		FROM shift_exclude_days
		WHERE shift_id IN (`+placeholders(len(shiftIDs))+`)
		ORDER BY from_date, id
	`, shiftIDs...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var days []schedule.ExcludeDay
	for rows.Next() {
		var (
			d                 schedule.ExcludeDay
			from              string
			to, reason, notes sql.NullString
		)
		if err := rows.Scan(&d.ID, &d.ShiftID, &from, &to, &reason, &notes); err != nil {
			return nil, err
		}
		if d.From, err = schedule.ParseDate(from); err != nil {
			return nil, fmt.Errorf("exclude day %s: %w", d.ID, err)
		}
		if d.To, err = scanDate(to); err != nil {
			return nil, fmt.Errorf("exclude day %s: %w", d.ID, err)
		}
		d.Reason = reason.String
		d.Notes = notes.String
		days = append(days, d)
	}
	return days, rows.Err()
}

func (s *Store) loadIncludeDays(ctx context.Context, shiftIDs []any) ([]schedule.IncludeDay, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, shift_id, start_date, end_date, custom_time, start_time, end_time
		FROM shift_include_days
		WHERE shift_id IN (`+placeholders(len(shiftIDs))+`)
		ORDER BY start_date, id
	`, shiftIDs...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var days []schedule.IncludeDay
	for rows.Next() {
		var (
			d                       schedule.IncludeDay
			start                   string
			end, startTime, endTime sql.NullString
		)
		if err := rows.Scan(&d.ID, &d.ShiftID, &start, &end, &d.CustomTime, &startTime, &endTime); err != nil {
			return nil, err
		}
		if d.StartDate, err = schedule.ParseDate(start); err != nil {
			return nil, fmt.Errorf("include day %s: %w", d.ID, err)
		}
		if d.EndDate, err = scanDate(end); err != nil {
			return nil, fmt.Errorf("include day %s: %w", d.ID, err)
		}
		d.StartTime = startTime.String
		d.EndTime = endTime.String
		days = append(days, d)
	}
	return days, rows.Err()
}

func requireAffected(res sql.Result, what, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", what, id, schedule.ErrNotFound)
	}
	return nil
}
