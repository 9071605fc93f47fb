package api

import (
	"github.com/go-chi/chi/v5"
)

// setupAPIRoutes sets up API v1 routes
func (s *RESTServer) setupAPIRoutes(r chi.Router) {
	r.Get("/health", s.HandleHealth)
	r.Get("/", s.HandleRoot)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", s.HandleLogin)
	})

	r.Group(func(r chi.Router) {
		r.Route("/runs", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/", s.HandleListRuns)
			r.Post("/", s.HandleCreateRun)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.HandleGetRun)
				r.Get("/metrics", s.HandleGetRunMetrics)
				r.Get("/events", s.HandleListRunEvents)
				r.Post("/stop", s.HandleStopRun)
			})
		})
	})
}
