// Package client provides a transport-agnostic interface for the dispatch
// service, an HTTP/JSON implementation that talks to the REST API, and a
// gRPC implementation for the stats service.
package client

import (
	"context"
	"errors"
	"time"

	"github.com/alfredjeanlab/dispatch/internal/journeys"
	"github.com/alfredjeanlab/dispatch/internal/model"
)

// ErrUnsupported is returned by transports that do not implement a call.
var ErrUnsupported = errors.New("not supported by this transport")

// DispatchClient is the interface that all dp CLI commands use to
// communicate with the dispatch server.
type DispatchClient interface {
	// Workspaces
	CreateWorkspace(ctx context.Context, req *CreateWorkspaceRequest) (*model.Workspace, error)
	ListWorkspaces(ctx context.Context) ([]*model.Workspace, error)
	GetWorkspace(ctx context.Context, id string) (*model.Workspace, error)

	// Journeys
	UpsertJourney(ctx context.Context, req *UpsertJourneyRequest) (*model.Journey, error)
	ListJourneys(ctx context.Context, workspaceID string, ids []string) ([]*model.Journey, error)
	GetJourney(ctx context.Context, workspaceID, id string) (*model.Journey, error)
	DeleteJourney(ctx context.Context, workspaceID, id string) error
	RecordNodeProcessed(ctx context.Context, req *RecordNodeProcessedRequest) (*model.NodeProcessed, error)

	// Stats
	GetJourneysStats(ctx context.Context, workspaceID string, journeyIDs []string) ([]*model.JourneyStats, error)
	GetJourneyMessageStats(ctx context.Context, workspaceID string, js []journeys.MessageStatsJourney) ([]*model.JourneyMessageStats, error)

	// Broadcasts
	CreateBroadcast(ctx context.Context, req *CreateBroadcastRequest) (*model.Broadcast, error)
	ListBroadcasts(ctx context.Context, workspaceID string, ids []string) ([]*model.Broadcast, error)
	BroadcastAction(ctx context.Context, action model.BroadcastAction, workspaceID, broadcastID string) (*model.MessageResponse, error)

	// Events
	Track(ctx context.Context, req *TrackRequest) (*TrackResponse, error)
	Batch(ctx context.Context, workspaceID string, batch []model.TrackData) (*TrackResponse, error)
	ListEvents(ctx context.Context, req *ListEventsRequest) ([]*model.Event, error)

	// Health
	Health(ctx context.Context) (string, error)

	// Lifecycle
	Close() error
}

// CreateWorkspaceRequest holds parameters for creating a workspace. An empty
// ID lets the server assign one.
type CreateWorkspaceRequest struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// UpsertJourneyRequest is the body of PUT /v1/journeys.
type UpsertJourneyRequest = journeys.UpsertJourneyParams

// RecordNodeProcessedRequest is the body of POST /v1/journeys/node-processed.
type RecordNodeProcessedRequest = journeys.RecordNodeProcessedParams

// CreateBroadcastRequest holds parameters for creating a broadcast.
type CreateBroadcastRequest struct {
	WorkspaceID string                `json:"workspace_id"`
	Name        string                `json:"name"`
	Status      model.BroadcastStatus `json:"status,omitempty"`
	SegmentID   string                `json:"segment_id,omitempty"`
	TemplateID  string                `json:"template_id,omitempty"`
	Channel     model.ChannelType     `json:"channel,omitempty"`
	ScheduledAt *time.Time            `json:"scheduled_at,omitempty"`
}

// TrackRequest submits a single event.
type TrackRequest struct {
	model.TrackData
	WorkspaceID string `json:"workspace_id"`
}

// TrackResponse is returned by Track and Batch.
type TrackResponse struct {
	MessageIDs []string `json:"message_ids"`
	Inserted   int      `json:"inserted"`
}

// ListEventsRequest filters ListEvents.
type ListEventsRequest struct {
	WorkspaceID string
	UserID      string
	Event       string
	Limit       int
}
