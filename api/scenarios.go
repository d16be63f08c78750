/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	guard-site data. Each scenario creates shifts, exclusions, guards,
	assignments and clock-ins that demonstrate specific calendar and
	attendance behavior.

AVAILABLE SCENARIOS:

	single-site:     One gate shift, one guard, a week of early/late/absent clock-ins
	holiday-cover:   Exclusion range plus a custom-time day over a regular shift
	multi-site:      Two sites, a one-time event shift, a terminated shift with history

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create shifts, exclude days and include days
 3. Create guards and assign them
 4. Add time entries for days of the current week that already passed

Dates are relative to the handler's clock so the demo stays current.

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "single-site"}

NOTE:

	Scenarios reset the database. Only use in development/demo environments.
*/
package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/shift-engine/attendance"
	"github.com/warp/shift-engine/schedule"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "single-site",
		Name:        "Single Site",
		Description: "Day shift at one gate, Sundays off, with early, late, on-time and absent days",
	},
	{
		ID:          "holiday-cover",
		Name:        "Holiday Cover",
		Description: "Regular shift with a multi-day exclusion and a custom-time include day",
	},
	{
		ID:          "multi-site",
		Name:        "Multi-Site",
		Description: "Two sites, a one-time event shift and a terminated shift kept for history",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	for _, s := range scenarios {
		if s.ID == h.currentScenario {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	ctx := r.Context()

	var load func(context.Context) error
	switch req.ScenarioID {
	case "single-site":
		load = h.loadSingleSiteScenario
	case "holiday-cover":
		load = h.loadHolidayCoverScenario
	case "multi-site":
		load = h.loadMultiSiteScenario
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""

	if err := load(ctx); err != nil {
		log.Printf("[Scenario] %s failed: %v", req.ScenarioID, err)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}

	h.currentScenario = req.ScenarioID
	log.Printf("[Scenario] loaded %s", req.ScenarioID)

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadSingleSiteScenario(ctx context.Context) error {
	week := schedule.Week(h.today())

	gate := schedule.Shift{
		ID:        "shift-gate-day",
		SiteID:    "site-north",
		Name:      "North Gate Day",
		Type:      schedule.ShiftRecurring,
		StartDate: week.Start.AddDays(-28),
		StartTime: "09:00 AM",
		EndTime:   "05:00 PM",
		OffDays:   []schedule.Weekday{schedule.Sunday},
		PayRate:   decimal.RequireFromString("18.50"),
	}
	if err := h.Store.SaveShift(ctx, gate); err != nil {
		return err
	}

	if err := h.saveGuard(ctx, "emp-001", "Alice", "Johnson", "G-001", gate.ID); err != nil {
		return err
	}

	// Monday early, Tuesday late, Wednesday on time; later days have no entries.
	plan := map[int]struct {
		hour, minute int
		worked       time.Duration
	}{
		1: {8, 45, 8*time.Hour + 15*time.Minute},
		2: {9, 12, 7*time.Hour + 48*time.Minute},
		3: {8, 57, 8 * time.Hour},
	}
	for offset, p := range plan {
		if err := h.clockIn(ctx, "emp-001", gate.ID, week.Start.AddDays(offset), p.hour, p.minute, p.worked); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) loadHolidayCoverScenario(ctx context.Context) error {
	week := schedule.Week(h.today())

	lobby := schedule.Shift{
		ID:        "shift-lobby",
		SiteID:    "site-hq",
		Name:      "HQ Lobby",
		Type:      schedule.ShiftRecurring,
		StartDate: week.Start.AddDays(-14),
		StartTime: "08:00 AM",
		EndTime:   "04:00 PM",
		OffDays:   []schedule.Weekday{schedule.Sunday, schedule.Saturday},
		PayRate:   decimal.RequireFromString("21.00"),
	}
	if err := h.Store.SaveShift(ctx, lobby); err != nil {
		return err
	}

	to := week.Start.AddDays(3)
	if err := h.Store.SaveExcludeDay(ctx, schedule.ExcludeDay{
		ID:      "ex-lobby-holiday",
		ShiftID: lobby.ID,
		From:    week.Start.AddDays(2),
		To:      &to,
		Reason:  "Building closed",
	}); err != nil {
		return err
	}
	if err := h.Store.SaveIncludeDay(ctx, schedule.IncludeDay{
		ID:         "in-lobby-late",
		ShiftID:    lobby.ID,
		StartDate:  week.Start.AddDays(5),
		CustomTime: true,
		StartTime:  "12:00 PM",
		EndTime:    "08:00 PM",
	}); err != nil {
		return err
	}

	if err := h.saveGuard(ctx, "emp-002", "Bruno", "Mendes", "G-002", lobby.ID); err != nil {
		return err
	}
	return h.clockIn(ctx, "emp-002", lobby.ID, week.Start.AddDays(1), 7, 58, 8*time.Hour)
}

func (h *Handler) loadMultiSiteScenario(ctx context.Context) error {
	week := schedule.Week(h.today())
	ot := decimal.RequireFromString("1.5")

	shifts := []schedule.Shift{
		{
			ID:                 "shift-warehouse-night",
			SiteID:             "site-warehouse",
			Name:               "Warehouse Night",
			Type:               schedule.ShiftRecurring,
			StartDate:          week.Start.AddDays(-7),
			StartTime:          "10:00 PM",
			EndTime:            "06:00 AM",
			EveryDay:           true,
			PayRate:            decimal.RequireFromString("23.00"),
			OvertimeMultiplier: &ot,
		},
		{
			ID:        "shift-old-patrol",
			SiteID:    "site-warehouse",
			Name:      "Retired Patrol",
			Type:      schedule.ShiftRecurring,
			StartDate: week.Start.AddDays(-60),
			StartTime: "06:00 AM",
			EndTime:   "02:00 PM",
			OffDays:   []schedule.Weekday{schedule.Sunday, schedule.Friday},
			PayRate:   decimal.RequireFromString("17.00"),
		},
	}
	end := week.Start.AddDays(5)
	shifts = append(shifts, schedule.Shift{
		ID:        "shift-expo",
		SiteID:    "site-expo",
		Name:      "Expo Event",
		Type:      schedule.ShiftOneTime,
		StartDate: week.Start.AddDays(2),
		EndDate:   &end,
		StartTime: "07:00 AM",
		EndTime:   "03:00 PM",
		EveryDay:  true,
		PayRate:   decimal.RequireFromString("25.00"),
	})
	for _, s := range shifts {
		if err := h.Store.SaveShift(ctx, s); err != nil {
			return err
		}
	}
	if err := h.Store.TerminateShift(ctx, "shift-old-patrol"); err != nil {
		return err
	}

	if err := h.saveGuard(ctx, "emp-003", "Chen", "Wei", "G-003", "shift-warehouse-night"); err != nil {
		return err
	}
	if err := h.saveGuard(ctx, "emp-004", "Dana", "Okafor", "G-004", "shift-old-patrol", "shift-expo"); err != nil {
		return err
	}

	if err := h.clockIn(ctx, "emp-003", "shift-warehouse-night", week.Start, 21, 40, 8*time.Hour+20*time.Minute); err != nil {
		return err
	}
	return h.clockIn(ctx, "emp-004", "shift-old-patrol", week.Start.AddDays(1), 6, 20, 7*time.Hour)
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) saveGuard(ctx context.Context, id, first, last, code string, shiftIDs ...string) error {
	if err := h.Store.SaveEmployee(ctx, attendance.Employee{ID: id, FirstName: first, LastName: last, EmployeeCode: code}); err != nil {
		return err
	}
	for i, shiftID := range shiftIDs {
		if err := h.Store.SaveAssignment(ctx, id, shiftID, fmt.Sprintf("assign-%s-%d", id, i+1), nil); err != nil {
			return err
		}
	}
	return nil
}

// clockIn records an entry on date at hour:minute local time, with a
// clock-out after worked. Days that have not happened yet are skipped.
func (h *Handler) clockIn(ctx context.Context, employeeID, shiftID string, date schedule.Date, hour, minute int, worked time.Duration) error {
	loc := h.location()
	start := date.In(loc).Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
	now := h.Classifier.Now()
	if start.After(now) {
		return nil
	}

	entry := attendance.TimeEntry{
		ID:         fmt.Sprintf("te-%s-%s", employeeID, date),
		EmployeeID: employeeID,
		ShiftID:    shiftID,
		StartTime:  start,
	}
	if end := start.Add(worked); !end.After(now) {
		entry.EndTime = &end
	}
	return h.Store.SaveTimeEntry(ctx, entry)
}
