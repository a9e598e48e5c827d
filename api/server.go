/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack, and route definitions. This
  is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for admin frontends

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
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		// Policy lifecycle
		r.Route("/policies", func(r chi.Router) {
			r.Get("/", h.ListPolicies)
			r.Post("/", h.CreatePolicy)
			r.Get("/{id}", h.GetPolicy)
			r.Post("/{id}/activate", h.ActivatePolicy)
			r.Post("/{id}/quote", h.QuotePolicy)
			r.Post("/{id}/cancel", h.CancelPolicy)
			r.Post("/{id}/expire", h.ExpirePolicy)
		})

		// Fee configurations
		r.Route("/fees", func(r chi.Router) {
			r.Get("/", h.ListFees)
			r.Post("/", h.CreateFee)
			r.Get("/{id}", h.GetFee)
			r.Put("/{id}/details", h.UpdateFeeDetails)
			r.Put("/{id}/percentage", h.UpdateFeePercentage)
			r.Post("/{id}/activate", h.ActivateFee)
			r.Post("/{id}/deactivate", h.DeactivateFee)
		})

		// Risk factor configurations
		r.Route("/risk-factors", func(r chi.Router) {
			r.Get("/", h.ListRiskFactors)
			r.Post("/", h.CreateRiskFactor)
			r.Get("/{id}", h.GetRiskFactor)
			r.Put("/{id}/percentage", h.UpdateRiskFactorPercentage)
			r.Post("/{id}/activate", h.ActivateRiskFactor)
			r.Post("/{id}/deactivate", h.DeactivateRiskFactor)
		})

		// Reference data
		r.Post("/brokers", h.CreateBroker)
		r.Post("/buildings", h.CreateBuilding)

		// Admin
		r.Route("/admin", func(r chi.Router) {
			r.Post("/import", h.ImportSchedule)
			r.Post("/sweep", h.TriggerSweep)
			r.Get("/sweep-runs", h.ListSweepRuns)
		})
	})

	return r
}
