package server

import (
	"net/http"

	"github.com/alfredjeanlab/dispatch/internal/events"
	"github.com/alfredjeanlab/dispatch/internal/journeys"
	"github.com/alfredjeanlab/dispatch/internal/model"
)

// handleUpsertJourney handles PUT /v1/journeys.
func (s *DispatchServer) handleUpsertJourney(w http.ResponseWriter, r *http.Request) {
	var in journeys.UpsertJourneyParams
	if err := decodeBody(r, &in); err != nil {
		writeServiceError(w, err, "")
		return
	}

	res, err := journeys.UpsertJourney(r.Context(), s.store, in)
	if err != nil {
		writeServiceError(w, err, "workspace not found")
		return
	}
	s.publishUpsert(r.Context(), res)

	code := http.StatusOK
	if res.Created {
		code = http.StatusCreated
	}
	writeJSON(w, code, res.Journey)
}

// handleListJourneys handles GET /v1/journeys.
func (s *DispatchServer) handleListJourneys(w http.ResponseWriter, r *http.Request) {
	ws, ok := requireWorkspace(w, r)
	if !ok {
		return
	}
	list, err := s.store.ListJourneys(r.Context(), ws, splitList(r.URL.Query().Get("ids")))
	if err != nil {
		writeServiceError(w, err, "")
		return
	}
	if list == nil {
		list = []*model.Journey{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"journeys": list})
}

// handleGetJourney handles GET /v1/journeys/{id}.
func (s *DispatchServer) handleGetJourney(w http.ResponseWriter, r *http.Request) {
	ws, ok := requireWorkspace(w, r)
	if !ok {
		return
	}
	list, err := s.store.ListJourneys(r.Context(), ws, []string{r.PathValue("id")})
	if err != nil {
		writeServiceError(w, err, "")
		return
	}
	if len(list) == 0 {
		writeError(w, http.StatusNotFound, "journey not found")
		return
	}
	writeJSON(w, http.StatusOK, list[0])
}

// handleDeleteJourney handles DELETE /v1/journeys/{id}.
func (s *DispatchServer) handleDeleteJourney(w http.ResponseWriter, r *http.Request) {
	ws, ok := requireWorkspace(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	if err := s.store.DeleteJourney(r.Context(), ws, id); err != nil {
		writeServiceError(w, err, "journey not found")
		return
	}
	s.recordAndPublish(r.Context(), events.TopicJourneyDeleted, events.JourneyDeleted{WorkspaceID: ws, JourneyID: id})
	w.WriteHeader(http.StatusNoContent)
}

// handleJourneysStats handles GET /v1/journeys/stats.
func (s *DispatchServer) handleJourneysStats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	stats, err := s.journeysStats(r.Context(), q.Get("workspace_id"), splitList(q.Get("journey_ids")))
	if err != nil {
		writeServiceError(w, err, "")
		return
	}
	if stats == nil {
		stats = []*model.JourneyStats{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"stats": stats})
}

type messageStatsInput struct {
	WorkspaceID string                         `json:"workspace_id"`
	Journeys    []journeys.MessageStatsJourney `json:"journeys"`
}

// handleJourneyMessageStats handles POST /v1/journeys/message-stats.
func (s *DispatchServer) handleJourneyMessageStats(w http.ResponseWriter, r *http.Request) {
	var in messageStatsInput
	if err := decodeBody(r, &in); err != nil {
		writeServiceError(w, err, "")
		return
	}
	stats, err := s.journeyMessageStats(r.Context(), in.WorkspaceID, in.Journeys)
	if err != nil {
		writeServiceError(w, err, "")
		return
	}
	if stats == nil {
		stats = []*model.JourneyMessageStats{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"stats": stats})
}

// handleNodeProcessed handles POST /v1/journeys/node-processed.
func (s *DispatchServer) handleNodeProcessed(w http.ResponseWriter, r *http.Request) {
	var in journeys.RecordNodeProcessedParams
	if err := decodeBody(r, &in); err != nil {
		writeServiceError(w, err, "")
		return
	}
	rec, err := journeys.RecordNodeProcessed(r.Context(), s.store, in)
	if err != nil {
		writeServiceError(w, err, "workspace not found")
		return
	}
	s.recordAndPublish(r.Context(), events.TopicNodeProcessed, events.NodeProcessed{Record: rec})
	writeJSON(w, http.StatusOK, rec)
}
