package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/eguard/eguard-backend/internal/handlers"
	"github.com/eguard/eguard-backend/internal/middleware"
)

// SetupRoutes mounts the API under /api. Routes that read or write a user's
// data go through RequireAuth.
func SetupRoutes(r chi.Router, h *handlers.Handler, verifier middleware.TokenVerifier) {
	requireAuth := middleware.RequireAuth(verifier)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
		})

		// Alias kept for older clients.
		r.Get("/breach-analytics", h.Lookup)

		r.Route("/breach", func(r chi.Router) {
			r.Get("/", h.Lookup)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/check", h.Check)
				r.Post("/log", h.Log)
				r.Get("/history", h.History)
				r.Get("/stats", h.Stats)
				r.Get("/check/{checkId}", h.GetCheck)
				r.Delete("/check/{checkId}", h.DeleteCheck)
			})
		})

		r.Route("/dashboard", func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/", h.Dashboard)
			r.Get("/analytics", h.Analytics)
		})

		r.Post("/password/check-password", h.CheckPassword)
	})
}
