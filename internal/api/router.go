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

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// Auth endpoints (no auth required)
		r.Post("/auth/login", s.handleLogin)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			// WS ticket requires authentication - user must be logged in to request a ticket
			r.Post("/auth/ws-ticket", s.handleWSTicket)

			// Directory bootstrap and provisioning state
			r.Post("/bootstrap", s.handleBootstrap)
			r.Get("/provision/index", s.handleProvisionIndex)

			// Directory reads
			r.Get("/locations", s.handleListLocations)
			r.Get("/devices", s.handleListDevices)

			// Schedule endpoints
			r.Route("/schedules/{studentID}", func(r chi.Router) {
				r.Get("/", s.handleGetSchedule)
				r.Get("/current", s.handleCurrentSession)
				r.Put("/{day}", s.handleSaveDay)
				r.Put("/{day}/{slot}", s.handleSaveSlot)
			})

			// Batch device actions
			r.Route("/actions", func(r chi.Router) {
				r.Get("/status", s.handleActionStatus)
				r.Post("/lock", s.handleLockAction)
				r.Post("/unlock", s.handleUnlockAction)
				r.Post("/restart", s.handleRestartAction)
				r.Post("/assign", s.handleAssignAction)
			})

			// Audit trail
			r.Get("/audit", s.handleListAudit)

			// WebSocket (auth via ticket, validated in handler)
			r.Get("/ws", s.handleWebSocket)
		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"version":      s.version,
		"bootstrapped": s.index.Bootstrapped(),
	})
}
