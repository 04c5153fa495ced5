package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/alfredjeanlab/dispatch/internal/events"
	"github.com/alfredjeanlab/dispatch/internal/idgen"
	"github.com/alfredjeanlab/dispatch/internal/model"
)

type createBroadcastInput struct {
	WorkspaceID string                `json:"workspace_id"`
	Name        string                `json:"name"`
	Status      model.BroadcastStatus `json:"status,omitempty"`
	SegmentID   string                `json:"segment_id,omitempty"`
	TemplateID  string                `json:"template_id,omitempty"`
	Channel     model.ChannelType     `json:"channel,omitempty"`
	ScheduledAt *time.Time            `json:"scheduled_at,omitempty"`
}

// handleCreateBroadcast handles POST /v1/broadcasts.
func (s *DispatchServer) handleCreateBroadcast(w http.ResponseWriter, r *http.Request) {
	var in createBroadcastInput
	if err := decodeBody(r, &in); err != nil {
		writeServiceError(w, err, "")
		return
	}

	id, err := idgen.Generate()
	if err != nil {
		writeServiceError(w, err, "")
		return
	}
	b := &model.Broadcast{
		ID:          id,
		WorkspaceID: in.WorkspaceID,
		Name:        in.Name,
		Version:     model.BroadcastVersionV2,
		Status:      in.Status,
		SegmentID:   in.SegmentID,
		TemplateID:  in.TemplateID,
		Channel:     in.Channel,
		ScheduledAt: in.ScheduledAt,
	}
	if b.Status == "" {
		b.Status = model.BroadcastDraft
	}
	if err := model.ValidateBroadcast(b); err != nil {
		writeServiceError(w, err, "")
		return
	}
	if err := s.store.CreateBroadcast(r.Context(), b); err != nil {
		writeServiceError(w, err, "workspace not found")
		return
	}

	s.recordAndPublish(r.Context(), events.TopicBroadcastCreated, events.BroadcastCreated{Broadcast: b})
	writeJSON(w, http.StatusCreated, b)
}

// handleListBroadcasts handles GET /v1/broadcasts.
func (s *DispatchServer) handleListBroadcasts(w http.ResponseWriter, r *http.Request) {
	ws, ok := requireWorkspace(w, r)
	if !ok {
		return
	}
	list, err := s.store.ListBroadcasts(r.Context(), ws, splitList(r.URL.Query().Get("ids")))
	if err != nil {
		writeServiceError(w, err, "")
		return
	}
	if list == nil {
		list = []*model.Broadcast{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"broadcasts": list})
}

type broadcastActionInput struct {
	WorkspaceID string `json:"workspace_id"`
	BroadcastID string `json:"broadcast_id"`
}

// handleBroadcastAction handles POST /v1/broadcasts/{action} for start,
// pause, resume and cancel.
func (s *DispatchServer) handleBroadcastAction(w http.ResponseWriter, r *http.Request) {
	action := model.BroadcastAction(r.PathValue("action"))
	if !action.IsValid() {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown broadcast action %q", action))
		return
	}

	var in broadcastActionInput
	if err := decodeBody(r, &in); err != nil {
		writeServiceError(w, err, "")
		return
	}
	if in.WorkspaceID == "" || in.BroadcastID == "" {
		writeError(w, http.StatusBadRequest, "workspace_id and broadcast_id are required")
		return
	}

	b, err := s.applyBroadcastAction(r.Context(), in.WorkspaceID, in.BroadcastID, action)
	if err != nil {
		writeServiceError(w, err, "broadcast not found")
		return
	}

	s.recordAndPublish(r.Context(), events.TopicBroadcastStatusChanged, events.BroadcastStatusChanged{Broadcast: b, Action: action})
	writeJSON(w, http.StatusOK, model.MessageResponse{Message: action.SuccessMessage()})
}

// applyBroadcastAction performs the conditional status update. When nothing
// was updated it tells a missing broadcast apart from one in the wrong
// status.
func (s *DispatchServer) applyBroadcastAction(ctx context.Context, workspaceID, id string, action model.BroadcastAction) (*model.Broadcast, error) {
	from, to := action.Transition()
	b, err := s.store.TransitionBroadcast(ctx, workspaceID, id, from, to)
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	found, lerr := s.store.ListBroadcasts(ctx, workspaceID, []string{id})
	if lerr != nil {
		return nil, lerr
	}
	if len(found) == 0 {
		return nil, err
	}
	return nil, inputError(fmt.Sprintf("cannot %s broadcast in status %s", action, found[0].Status))
}
