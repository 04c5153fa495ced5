package events

import (
	"context"
	"strings"

	"github.com/alfredjeanlab/dispatch/internal/model"
)

// Event topic constants
const (
	TopicWorkspaceCreated = "dispatch.workspace.created"

	TopicJourneyUpserted      = "dispatch.journey.upserted"
	TopicJourneyDeleted       = "dispatch.journey.deleted"
	TopicJourneyStatusChanged = "dispatch.journey.status_changed"
	// TopicJourneyResumed fires when a re-enterable journey goes from Paused
	// back to Running, so workers can re-trigger waiting users.
	TopicJourneyResumed = "dispatch.journey.resumed"

	TopicBroadcastCreated       = "dispatch.broadcast.created"
	TopicBroadcastStatusChanged = "dispatch.broadcast.status_changed"

	TopicTrackSubmitted = "dispatch.track.submitted"
	TopicNodeProcessed  = "dispatch.node.processed"
)

// TopicAll matches every dispatch topic.
const TopicAll = "dispatch.>"

// TopicMatches reports whether topic matches the NATS-style pattern, where
// "*" matches exactly one token and a trailing ">" matches one or more.
func TopicMatches(pattern, topic string) bool {
	pt := strings.Split(pattern, ".")
	tt := strings.Split(topic, ".")
	for i, p := range pt {
		if p == ">" {
			return i == len(pt)-1 && len(tt) > i
		}
		if i >= len(tt) {
			return false
		}
		if p != "*" && p != tt[i] {
			return false
		}
	}
	return len(pt) == len(tt)
}

// Event types

type WorkspaceCreated struct {
	Workspace *model.Workspace `json:"workspace"`
}

type JourneyUpserted struct {
	Journey *model.Journey `json:"journey"`
	Created bool           `json:"created"`
}

type JourneyDeleted struct {
	WorkspaceID string `json:"workspace_id"`
	JourneyID   string `json:"journey_id"`
}

type JourneyStatusChanged struct {
	WorkspaceID string              `json:"workspace_id"`
	JourneyID   string              `json:"journey_id"`
	From        model.JourneyStatus `json:"from"`
	To          model.JourneyStatus `json:"to"`
}

type BroadcastCreated struct {
	Broadcast *model.Broadcast `json:"broadcast"`
}

type BroadcastStatusChanged struct {
	Broadcast *model.Broadcast      `json:"broadcast"`
	Action    model.BroadcastAction `json:"action"`
}

type TrackSubmitted struct {
	WorkspaceID string   `json:"workspace_id"`
	MessageIDs  []string `json:"message_ids"`
	Inserted    int      `json:"inserted"`
}

type NodeProcessed struct {
	Record *model.NodeProcessed `json:"record"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
