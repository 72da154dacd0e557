/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. CleanPath:  Normalize request paths
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the admin frontend
  5. httplog:    Structured request logging over slog
  6. Heartbeat:  /health liveness probe

ROUTE GROUPS:
  /api/uploads/{class}   Monthly batch ingestion
  /api/payees/*          Payee config CRUD and per-payee reports
  /api/payouts           Cross-payee disbursement listing
  /api/admin/*           Purge and manual recalculation

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, logger *slog.Logger, corsOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.CleanPath)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))
	if logger != nil {
		r.Use(httplog.RequestLogger(logger, &httplog.Options{
			Level: slog.LevelInfo,
		}))
	}
	r.Use(middleware.Heartbeat("/health"))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Upload routes
		r.Post("/uploads/{class}", h.ProcessUpload)

		// Payee routes
		r.Route("/payees", func(r chi.Router) {
			r.Get("/", h.ListPayees)
			r.Post("/", h.CreatePayee)
			r.Get("/{email}", h.GetPayee)
			r.Put("/{email}", h.UpdatePayee)
			r.Get("/{email}/year/{year}", h.GetYearSeries)
			r.Get("/{email}/months/{month}", h.GetMonthDetails)
		})

		// Payout routes
		r.Get("/payouts", h.ListPayouts)

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Post("/purge", h.Purge)
			r.Post("/recalculate", h.Recalculate)
		})
	})

	return r
}
