package server

import (
	"context"
	"net/http"

	"github.com/alfredjeanlab/dispatch/internal/events"
	"github.com/alfredjeanlab/dispatch/internal/model"
	"github.com/alfredjeanlab/dispatch/internal/track"
)

type trackInput struct {
	model.TrackData
	WorkspaceID string `json:"workspace_id"`
}

type batchInput struct {
	WorkspaceID string            `json:"workspace_id"`
	Batch       []model.TrackData `json:"batch"`
}

type trackResponse struct {
	MessageIDs []string `json:"message_ids"`
	Inserted   int      `json:"inserted"`
}

// handleTrack handles POST /v1/track.
func (s *DispatchServer) handleTrack(w http.ResponseWriter, r *http.Request) {
	var in trackInput
	if err := decodeBody(r, &in); err != nil {
		writeServiceError(w, err, "")
		return
	}
	res, err := track.Submit(r.Context(), s.store, in.WorkspaceID, in.TrackData)
	s.writeTrackResult(r.Context(), w, in.WorkspaceID, res, err)
}

// handleBatch handles POST /v1/batch.
func (s *DispatchServer) handleBatch(w http.ResponseWriter, r *http.Request) {
	var in batchInput
	if err := decodeBody(r, &in); err != nil {
		writeServiceError(w, err, "")
		return
	}
	res, err := track.SubmitBatch(r.Context(), s.store, in.WorkspaceID, in.Batch, s.MaxBatchSize)
	s.writeTrackResult(r.Context(), w, in.WorkspaceID, res, err)
}

func (s *DispatchServer) writeTrackResult(ctx context.Context, w http.ResponseWriter, workspaceID string, res *track.Result, err error) {
	if err != nil {
		writeServiceError(w, err, "workspace not found")
		return
	}
	out := trackResponse{MessageIDs: res.MessageIDs(), Inserted: res.Inserted}
	if res.Inserted > 0 {
		s.recordAndPublish(ctx, events.TopicTrackSubmitted, events.TrackSubmitted{
			WorkspaceID: workspaceID,
			MessageIDs:  out.MessageIDs,
			Inserted:    out.Inserted,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleListEvents handles GET /v1/events.
func (s *DispatchServer) handleListEvents(w http.ResponseWriter, r *http.Request) {
	ws, ok := requireWorkspace(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	list, err := s.store.ListEvents(r.Context(), model.EventFilter{
		WorkspaceID: ws,
		UserID:      q.Get("user_id"),
		Event:       q.Get("event"),
		Limit:       queryInt(r, "limit"),
	})
	if err != nil {
		writeServiceError(w, err, "")
		return
	}
	if list == nil {
		list = []*model.Event{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": list})
}
