package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route - live snapshot stream per job
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// API routes - Job views (derived dashboard state)
	mux.HandleFunc("/api/jobs/", s.handleJobRoutes) // /{id}/view and /{id}/actions/{action}

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	return mux
}

// handleJobRoutes routes job view requests to the appropriate handler
func (s *Server) handleJobRoutes(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	// GET/DELETE /api/jobs/{id}/view
	if strings.HasSuffix(path, "/view") {
		switch r.Method {
		case http.MethodGet:
			s.app.JobViewHandler.ViewHandler(w, r)
		case http.MethodDelete:
			s.app.JobViewHandler.CloseViewHandler(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	// POST /api/jobs/{id}/actions/{action}
	if strings.Contains(path, "/actions/") {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.app.JobViewHandler.ActionHandler(w, r)
		return
	}

	s.app.APIHandler.NotFoundHandler(w, r)
}
