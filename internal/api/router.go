package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Handler returns the fully wired router. It is what Start serves and what
// tests drive through httptest.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)
		r.Get("/status", s.handleStatus)

		r.Get("/mode", s.handleGetMode)
		r.Put("/mode", s.handleSetMode)

		r.Get("/handedness", s.handleGetHandedness)
		r.Put("/handedness", s.handleSetHandedness)
		r.Post("/handedness/toggle", s.handleToggleHandedness)

		r.Post("/ready", s.handleReady)

		r.Route("/shots", func(r chi.Router) {
			r.Get("/last", s.handleGetLastShot)
			r.Post("/last/replay", s.handleReplayLastShot)
		})

		r.Route("/link", func(r chi.Router) {
			r.Post("/disconnect", s.handleLinkDisconnect)
			r.Post("/refresh", s.handleLinkRefresh)
			r.Post("/reset", s.handleLinkReset)
		})

		r.Get("/diagnostics/classifications", s.handleListClassifications)

		r.Get(s.wsPath(), s.handleWebSocket)
	})

	return r
}

func (s *Server) wsPath() string {
	if s.wsCfg.Path == "" {
		return "/ws"
	}
	return s.wsCfg.Path
}
