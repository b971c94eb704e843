package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter creates a new router with all routes configured
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware (all routes)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware)
	r.Use(RecoveryMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Get("/health", h.Health)

		// Protected routes (API key + caller identity)
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(h.apiKey))
			r.Use(IdentityMiddleware)

			r.Get("/objectives", h.ListObjectives)
			r.Get("/objectives/{id}", h.GetObjective)
			r.Get("/key-results", h.ListKeyResults)
			r.Get("/key-results/{id}", h.GetKeyResult)
			r.Get("/action-maps", h.ListActionMaps)
			r.Get("/action-maps/{id}", h.GetActionMap)
			r.Get("/action-items", h.ListActionItems)
			r.Get("/action-items/{id}", h.GetActionItem)

			r.Get("/activity", h.Activity)

			r.Get("/approaches/stats", h.ApproachStats)
			r.Get("/approaches/goals", h.ListGoals)
			r.Put("/approaches/goals", h.UpsertGoal)
		})
	})

	return r
}
