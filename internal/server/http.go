package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
)

// NewHTTPHandler returns an http.Handler with all routes registered.
// When authToken is non-empty, requests (except GET /v1/health) must include
// a valid Authorization: Bearer <token> header.
func (s *DispatchServer) NewHTTPHandler(authToken string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/health", s.handleHealth)

	mux.HandleFunc("POST /v1/workspaces", s.handleCreateWorkspace)
	mux.HandleFunc("GET /v1/workspaces", s.handleListWorkspaces)
	mux.HandleFunc("GET /v1/workspaces/{id}", s.handleGetWorkspace)

	mux.HandleFunc("PUT /v1/journeys", s.handleUpsertJourney)
	mux.HandleFunc("GET /v1/journeys", s.handleListJourneys)
	mux.HandleFunc("GET /v1/journeys/stats", s.handleJourneysStats)
	mux.HandleFunc("POST /v1/journeys/message-stats", s.handleJourneyMessageStats)
	mux.HandleFunc("POST /v1/journeys/node-processed", s.handleNodeProcessed)
	mux.HandleFunc("GET /v1/journeys/{id}", s.handleGetJourney)
	mux.HandleFunc("DELETE /v1/journeys/{id}", s.handleDeleteJourney)

	mux.HandleFunc("POST /v1/broadcasts", s.handleCreateBroadcast)
	mux.HandleFunc("GET /v1/broadcasts", s.handleListBroadcasts)
	mux.HandleFunc("POST /v1/broadcasts/{action}", s.handleBroadcastAction)

	mux.HandleFunc("POST /v1/track", s.handleTrack)
	mux.HandleFunc("POST /v1/batch", s.handleBatch)
	mux.HandleFunc("GET /v1/events", s.handleListEvents)
	mux.HandleFunc("GET /v1/events/stream", s.handleEventStream)
	return AuthMiddleware(authToken, mux)
}

// handleHealth handles GET /v1/health.
func (s *DispatchServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// splitList parses a comma-separated query value, dropping empty entries.
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// requireWorkspace returns the workspace_id query parameter, writing a 400
// when it is missing.
func requireWorkspace(w http.ResponseWriter, r *http.Request) (string, bool) {
	ws := r.URL.Query().Get("workspace_id")
	if ws == "" {
		writeError(w, http.StatusBadRequest, "workspace_id is required")
		return "", false
	}
	return ws, true
}

func queryInt(r *http.Request, name string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(name))
	return n
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
