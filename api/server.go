/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the scheduling frontend

ROUTE GROUPS:
  /api/shifts/*         Shift definitions, exclusions, custom days, calendar
  /api/schedules        Schedule grid
  /api/employees/*      Guards, assignments, time entries, attendance
  /api/attendance       Attendance grid
  /api/scenarios/*      Demo scenarios

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// DefaultAllowedOrigins are used when no CORS origins are configured.
var DefaultAllowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins ...string) *chi.Mux {
	if len(allowedOrigins) == 0 {
		allowedOrigins = DefaultAllowedOrigins
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		// Shift routes
		r.Route("/shifts", func(r chi.Router) {
			r.Get("/", h.ListShifts)
			r.Post("/", h.CreateShift)
			r.Get("/{id}", h.GetShift)
			r.Delete("/{id}", h.DeleteShift)
			r.Post("/{id}/terminate", h.TerminateShift)
			r.Post("/{id}/exclude-days", h.CreateExcludeDay)
			r.Post("/{id}/include-days", h.CreateIncludeDay)
			r.Get("/{id}/occurrences", h.GetOccurrences)
			r.Get("/{id}/rrule", h.GetRecurrence)
		})
		r.Delete("/exclude-days/{id}", h.DeleteExcludeDay)
		r.Delete("/include-days/{id}", h.DeleteIncludeDay)

		r.Get("/schedules", h.GetSchedule)

		// Employee routes
		r.Route("/employees", func(r chi.Router) {
			r.Get("/", h.ListEmployees)
			r.Post("/", h.CreateEmployee)
			r.Get("/{id}", h.GetEmployee)
			r.Post("/{id}/assignments", h.CreateAssignment)
			r.Post("/{id}/time-entries", h.CreateTimeEntry)
			r.Get("/{id}/attendance", h.GetAttendance)
		})
		r.Delete("/assignments/{id}", h.DeleteAssignment)

		r.Get("/attendance", h.GetAttendanceGrid)

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	return r
}
