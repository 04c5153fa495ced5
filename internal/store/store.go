package store

import (
	"context"
	"errors"

	"github.com/alfredjeanlab/dispatch/internal/model"
)

// ErrUniqueViolation is returned (wrapped) when a write would break a
// uniqueness rule: a duplicate workspace or journey name, or a journey id
// already owned by another workspace.
var ErrUniqueViolation = errors.New("unique constraint violation")

// Store defines the persistence interface for dispatch.
type Store interface {
	// Workspaces
	CreateWorkspace(ctx context.Context, ws *model.Workspace) error
	GetWorkspace(ctx context.Context, id string) (*model.Workspace, error)
	ListWorkspaces(ctx context.Context) ([]*model.Workspace, error)

	// Journeys. GetJourney looks across workspaces so callers can detect
	// ids owned elsewhere.
	GetJourney(ctx context.Context, id string) (*model.Journey, error)
	ListJourneys(ctx context.Context, workspaceID string, ids []string) ([]*model.Journey, error)
	UpsertJourney(ctx context.Context, j *model.Journey) error
	DeleteJourney(ctx context.Context, workspaceID, id string) error

	// Broadcasts
	CreateBroadcast(ctx context.Context, b *model.Broadcast) error
	ListBroadcasts(ctx context.Context, workspaceID string, ids []string) ([]*model.Broadcast, error)
	TransitionBroadcast(ctx context.Context, workspaceID, id string, from []model.BroadcastStatus, to model.BroadcastStatus) (*model.Broadcast, error)

	// Tracked events
	InsertEvents(ctx context.Context, events []*model.Event) (int, error) // returns rows inserted
	ListEvents(ctx context.Context, filter model.EventFilter) ([]*model.Event, error)
	ListMessageEvents(ctx context.Context, workspaceID string, journeyIDs []string) ([]*model.MessageEvent, error)

	// Journey node processing
	RecordNodeProcessed(ctx context.Context, np *model.NodeProcessed) error
	CountNodeProcessed(ctx context.Context, workspaceID string, journeyIDs []string) ([]*model.NodeProcessedCount, error)

	// Transaction support
	RunInTransaction(ctx context.Context, fn func(tx Store) error) error

	// Lifecycle
	Close() error
}
