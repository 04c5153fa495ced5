package server

import (
	"net/http"
	"strings"

	"github.com/alfredjeanlab/dispatch/internal/events"
	"github.com/alfredjeanlab/dispatch/internal/idgen"
	"github.com/alfredjeanlab/dispatch/internal/model"
)

type createWorkspaceInput struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// handleCreateWorkspace handles POST /v1/workspaces.
func (s *DispatchServer) handleCreateWorkspace(w http.ResponseWriter, r *http.Request) {
	var in createWorkspaceInput
	if err := decodeBody(r, &in); err != nil {
		writeServiceError(w, err, "")
		return
	}

	ws := &model.Workspace{ID: in.ID, Name: strings.TrimSpace(in.Name)}
	if ws.ID == "" {
		ws.ID = idgen.NewUUID()
	}
	if err := model.ValidateWorkspace(ws); err != nil {
		writeServiceError(w, err, "")
		return
	}
	if err := s.store.CreateWorkspace(r.Context(), ws); err != nil {
		writeServiceError(w, err, "")
		return
	}

	s.recordAndPublish(r.Context(), events.TopicWorkspaceCreated, events.WorkspaceCreated{Workspace: ws})
	writeJSON(w, http.StatusCreated, ws)
}

// handleListWorkspaces handles GET /v1/workspaces.
func (s *DispatchServer) handleListWorkspaces(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.ListWorkspaces(r.Context())
	if err != nil {
		writeServiceError(w, err, "")
		return
	}
	if list == nil {
		list = []*model.Workspace{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"workspaces": list})
}

// handleGetWorkspace handles GET /v1/workspaces/{id}.
func (s *DispatchServer) handleGetWorkspace(w http.ResponseWriter, r *http.Request) {
	ws, err := s.store.GetWorkspace(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err, "workspace not found")
		return
	}
	writeJSON(w, http.StatusOK, ws)
}
