/*
Package sqlite provides the SQLite-backed persistence collaborator.

PURPOSE:
  Stores shifts with their exclude/include days, employees, shift
  assignments and time entries, and hands them to the engine as fully
  materialized aggregates (schedule.Shift, attendance.Employee). The
  engine never sees lazy references.

KEY TABLES:
  shifts:              Shift definitions (times stored as "09:00 AM")
  shift_exclude_days:  Per-shift exclusions, cascade-deleted with the shift
  shift_include_days:  Per-shift custom-time days, cascade-deleted with the shift
  employees:           Guards
  shift_assignments:   Employee-to-shift links; rowid order is assignment order
  time_entries:        Clock-in/out records (written by the clock-in system)

FORMATS:
  Dates:       TEXT "2006-01-02"
  Timestamps:  TEXT fixed-width UTC, so string comparison orders correctly
  Decimals:    TEXT via shopspring/decimal
  Off days:    TEXT JSON array of weekday tokens

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In-memory databases are pinned to a
  single connection so every query sees the same database.

USAGE:
  store, err := sqlite.New("./data/shifts.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - shifts.go:    Shift aggregate persistence
  - employees.go: Employee aggregate persistence
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/shift-engine/schedule"
)

// Store implements persistence using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for maintenance scripts and tests.
func (s *Store) DB() *sql.DB {
	return s.db
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Shifts
	CREATE TABLE IF NOT EXISTS shifts (
		id TEXT PRIMARY KEY,
		site_id TEXT NOT NULL DEFAULT '',
		name TEXT,
		notes TEXT,
		type TEXT NOT NULL DEFAULT 'recurring' CHECK (type IN ('recurring', 'one_time')),
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT,
		off_days_json TEXT NOT NULL DEFAULT '["sunday"]',
		every_day BOOLEAN NOT NULL DEFAULT FALSE,
		pay_rate TEXT NOT NULL DEFAULT '0',
		overtime_multiplier TEXT,
		terminated BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_shifts_site
		ON shifts(site_id);
	CREATE INDEX IF NOT EXISTS idx_shifts_active
		ON shifts(terminated, start_date);

	-- Exclude days (holidays, planned absences)
	CREATE TABLE IF NOT EXISTS shift_exclude_days (
		id TEXT PRIMARY KEY,
		shift_id TEXT NOT NULL REFERENCES shifts(id) ON DELETE CASCADE,
		from_date TEXT NOT NULL,
		to_date TEXT,
		reason TEXT,
		notes TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_exclude_days_shift
		ON shift_exclude_days(shift_id);

	-- Include days (custom-time overrides)
	CREATE TABLE IF NOT EXISTS shift_include_days (
		id TEXT PRIMARY KEY,
		shift_id TEXT NOT NULL REFERENCES shifts(id) ON DELETE CASCADE,
		start_date TEXT NOT NULL,
		end_date TEXT,
		custom_time BOOLEAN NOT NULL DEFAULT FALSE,
		start_time TEXT,
		end_time TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_include_days_shift
		ON shift_include_days(shift_id);

	-- Employees
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		employee_code TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_employees_code
		ON employees(employee_code);

	-- Shift assignments
	CREATE TABLE IF NOT EXISTS shift_assignments (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL REFERENCES employees(id) ON DELETE CASCADE,
		shift_id TEXT NOT NULL REFERENCES shifts(id) ON DELETE CASCADE,
		assign_date TEXT,
		created_at TEXT NOT NULL,
		UNIQUE(employee_id, shift_id)
	);

	CREATE INDEX IF NOT EXISTS idx_assignments_employee
		ON shift_assignments(employee_id);

	-- Time entries (clock-in/out)
	CREATE TABLE IF NOT EXISTS time_entries (
		id TEXT PRIMARY KEY,
		site_id TEXT NOT NULL DEFAULT '',
		shift_id TEXT REFERENCES shifts(id) ON DELETE SET NULL,
		employee_id TEXT NOT NULL REFERENCES employees(id) ON DELETE CASCADE,
		start_time TEXT NOT NULL,
		end_time TEXT,
		break_start TEXT,
		break_end TEXT,
		created_at TEXT NOT NULL
	);

	-- Attendance grid lookups (hot path)
	CREATE INDEX IF NOT EXISTS idx_time_entries_employee_start
		ON time_entries(employee_id, start_time);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"time_entries", "shift_assignments", "shift_exclude_days", "shift_include_days", "shifts", "employees"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// timestampLayout is fixed width so TEXT comparison matches time order.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

func formatTimestamp(t time.Time) string { return t.UTC().Format(timestampLayout) }

func parseTimestamp(s string) (time.Time, error) {
	return time.Parse(timestampLayout, s)
}

func now() string { return formatTimestamp(time.Now()) }

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullDate(d *schedule.Date) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func nullTimestamp(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTimestamp(*t), Valid: true}
}

func scanDate(ns sql.NullString) (*schedule.Date, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	d, err := schedule.ParseDate(ns.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func scanTimestamp(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := parseTimestamp(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}

func isForeignKeyError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
