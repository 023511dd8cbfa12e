package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	// Organizations
	s.router.HandleFunc("GET /api/orgs", s.handleListOrgs)
	s.router.HandleFunc("POST /api/orgs", s.handleCreateOrg)
	s.router.HandleFunc("GET /api/orgs/{key}", s.handleGetOrg)

	// Claims. Status only moves via PATCH (with a status field) or
	// DELETE (close); both go through the workflow engine.
	s.router.HandleFunc("GET /api/claims", s.handleListClaims)
	s.router.HandleFunc("POST /api/claims", s.handleFileClaim)
	s.router.HandleFunc("GET /api/claims/{key}", s.handleGetClaim)
	s.router.HandleFunc("PATCH /api/claims/{key}", s.handlePatchClaim)
	s.router.HandleFunc("DELETE /api/claims/{key}", s.handleCloseClaim)

	s.router.HandleFunc("GET /api/claims/{key}/transitions", s.handleListTransitions)
	s.router.HandleFunc("GET /api/claims/{key}/activity", s.handleListActivity)
	s.router.HandleFunc("GET /api/claims/{key}/signals", s.handleListSignals)
	s.router.HandleFunc("POST /api/claims/{key}/signals", s.handleRaiseSignal)

	s.router.HandleFunc("POST /api/signals/{id}/resolve", s.handleResolveSignal)

	s.router.HandleFunc("GET /api/status", s.handleStatus)

	// Health check
	s.router.HandleFunc("GET /api/health", s.handleHealth)
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
