/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the ops dashboard

ROUTE GROUPS:
  /api/employees/*      Employee management
  /api/stores/*         Store management
  /api/schedules/*      Scheduled shift drafts and publishing
  /api/shifts/*         Worked shift lifecycle
  /api/advances/*       Payroll advances
  /api/payroll/*        Reconciliation reports

SECURITY NOTE:
  Store scoping is read from the X-Store-Scope header set by the
  upstream gateway. No authentication middleware here.

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

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Store-Scope"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Employee routes
		r.Route("/employees", func(r chi.Router) {
			r.Get("/", h.ListEmployees)
			r.Post("/", h.CreateEmployee)
		})

		// Store routes
		r.Route("/stores", func(r chi.Router) {
			r.Get("/", h.ListStores)
			r.Post("/", h.CreateStore)
		})

		// Schedule routes
		r.Route("/schedules", func(r chi.Router) {
			r.Post("/", h.CreateScheduledShift)
			r.Post("/publish", h.PublishSchedule)
		})

		// Shift lifecycle routes
		r.Route("/shifts", func(r chi.Router) {
			r.Post("/clock-in", h.ClockIn)
			r.Post("/{id}/clock-out", h.ClockOut)
			r.Post("/{id}/force-close", h.ForceClose)
			r.Post("/{id}/approve-override", h.ApproveOverride)
			r.Post("/{id}/review", h.ReviewManualClose)
			r.Delete("/{id}", h.SoftDeleteShift)
		})

		// Advance routes
		r.Route("/advances", func(r chi.Router) {
			r.Post("/", h.CreateAdvance)
			r.Post("/{id}/verify", h.VerifyAdvance)
			r.Post("/{id}/void", h.VoidAdvance)
		})

		// Reconciliation routes
		r.Route("/payroll", func(r chi.Router) {
			r.Get("/reconciliation", h.Reconciliation)
			r.Get("/reconciliation.txt", h.ReconciliationText)
		})
	})

	return r
}
