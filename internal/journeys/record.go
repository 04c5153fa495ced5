package journeys

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/alfredjeanlab/dispatch/internal/idgen"
	"github.com/alfredjeanlab/dispatch/internal/model"
	"github.com/alfredjeanlab/dispatch/internal/store"
)

// RecordNodeProcessedParams identifies one user passing one node.
type RecordNodeProcessedParams struct {
	WorkspaceID      string            `json:"workspace_id"`
	JourneyID        string            `json:"journey_id"`
	UserID           string            `json:"user_id"`
	Node             model.JourneyNode `json:"node"`
	JourneyStartedAt time.Time         `json:"journey_started_at"`
}

// StatsNodeID is the id a node is counted under. Entry and exit nodes
// carry no id of their own.
func StatsNodeID(n *model.JourneyNode) string {
	switch {
	case n.Type.IsEntry():
		return model.EntryNodeID
	case n.Type == model.NodeExit:
		return model.ExitNodeID
	}
	return n.ID
}

// RecordNodeProcessed stores that a user passed a node, together with a
// DPJourneyNodeProcessed event. Both writes are keyed on the run, so
// replays are no-ops.
func RecordNodeProcessed(ctx context.Context, s store.Store, p RecordNodeProcessedParams) (*model.NodeProcessed, error) {
	var ve model.ValidationError
	if p.WorkspaceID == "" {
		ve.Errors = append(ve.Errors, model.FieldError{Field: "workspace_id", Message: "is required"})
	}
	if p.JourneyID == "" {
		ve.Errors = append(ve.Errors, model.FieldError{Field: "journey_id", Message: "is required"})
	}
	if p.UserID == "" {
		ve.Errors = append(ve.Errors, model.FieldError{Field: "user_id", Message: "is required"})
	}
	nodeID := StatsNodeID(&p.Node)
	if nodeID == "" {
		ve.Errors = append(ve.Errors, model.FieldError{Field: "node.id", Message: "is required"})
	}
	if p.JourneyStartedAt.IsZero() {
		ve.Errors = append(ve.Errors, model.FieldError{Field: "journey_started_at", Message: "is required"})
	}
	if ve.HasErrors() {
		return nil, &ve
	}

	now := time.Now().UTC()
	// Runs are keyed to the millisecond in every store and in the event id.
	started := p.JourneyStartedAt.UTC().Truncate(time.Millisecond)
	np := &model.NodeProcessed{
		WorkspaceID:      p.WorkspaceID,
		JourneyID:        p.JourneyID,
		UserID:           p.UserID,
		NodeID:           nodeID,
		NodeType:         p.Node.Type,
		JourneyStartedAt: started,
		ProcessedAt:      now,
	}

	startedMs := strconv.FormatInt(started.UnixMilli(), 10)
	props, err := json.Marshal(map[string]string{
		"journey_id":         p.JourneyID,
		"node_id":            nodeID,
		"node_type":          string(p.Node.Type),
		"journey_started_at": startedMs,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling properties: %w", err)
	}
	ev := &model.Event{
		WorkspaceID: p.WorkspaceID,
		MessageID:   idgen.Deterministic(p.WorkspaceID, p.JourneyID, p.UserID, nodeID, startedMs),
		UserID:      p.UserID,
		EventType:   model.EventTypeTrack,
		Event:       model.EventJourneyNodeProcessed,
		Properties:  props,
		Timestamp:   now,
		ProcessedAt: now,
	}

	err = s.RunInTransaction(ctx, func(tx store.Store) error {
		if err := tx.RecordNodeProcessed(ctx, np); err != nil {
			return fmt.Errorf("recording node: %w", err)
		}
		if _, err := tx.InsertEvents(ctx, []*model.Event{ev}); err != nil {
			return fmt.Errorf("inserting node event: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return np, nil
}
