package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Get("/health", s.handleHealth)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Zone endpoints
		r.Route("/zones", func(r chi.Router) {
			r.Get("/", s.handleListZones)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetZone)
				r.Post("/command", s.handleZoneCommand)
				r.Get("/history", s.handleZoneHistory)

				r.Route("/controls", func(r chi.Router) {
					r.Get("/", s.handleListZoneControls)
					r.Get("/{control}", s.handleGetZoneControl)
					r.Put("/{control}", s.handleSetZoneControl)
				})
			})
		})

		// Source control endpoints
		r.Route("/sources/{id}/controls", func(r chi.Router) {
			r.Get("/", s.handleListSourceControls)
			r.Get("/{control}", s.handleGetSourceControl)
			r.Put("/{control}", s.handleSetSourceControl)
		})

		// System endpoints
		r.Route("/system", func(r chi.Router) {
			r.Post("/all_off", s.handleAllOff)
			r.Get("/version", s.handleVersion)

			r.Route("/controls", func(r chi.Router) {
				r.Get("/", s.handleListSystemControls)
				r.Get("/{control}", s.handleGetSystemControl)
				r.Put("/{control}", s.handleSetSystemControl)
			})
		})

		// WebSocket (channel subscribe: zones, keypad, controls)
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}

// handleVersion returns the daemon version.
func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"version": s.version,
	})
}
