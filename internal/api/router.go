package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.traceRequests, s.recoverPanics, s.cors, limitBodies)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)

		r.Route("/zwave", func(r chi.Router) {
			r.Get("/nodes", s.handleListNodes)

			r.Route("/homes", func(r chi.Router) {
				r.Get("/", s.handleListHomes)

				r.Route("/{home}", func(r chi.Router) {
					r.Get("/controller", s.handleGetController)
					r.Post("/{operation}", s.handleNetworkOperation)

					r.Route("/nodes/{node}", func(r chi.Router) {
						r.Get("/", s.handleGetNode)
						r.Get("/classes/{cc}", s.handleGetNodeClass)
					})
				})
			})

			r.Route("/values", func(r chi.Router) {
				r.Get("/", s.handleListValues)

				r.Route("/{vid}", func(r chi.Router) {
					r.Get("/", s.handleGetValue)
					r.Put("/", s.handleSetValue)
					r.Get("/history", s.handleGetValueHistory)
				})
			})
		})

		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status := "ok"
	if !s.manager.IsLive() {
		status = "degraded"
	}

	resp := map[string]any{
		"status":       status,
		"version":      s.version,
		"manager_live": s.manager.IsLive(),
	}
	if s.bridge != nil {
		resp["bridge"] = s.bridge.Statistics()
	}
	writeJSON(w, http.StatusOK, resp)
}
