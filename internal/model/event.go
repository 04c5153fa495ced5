package model

import (
	"encoding/json"
	"time"
)

// EventTypeTrack is the event_type of rows ingested through the track API.
const EventTypeTrack = "track"

// Internal event names emitted by the messaging pipeline. They are stored
// alongside user events and carry journey_id, node_id, channel and, for
// status events, message_id (the id of the sent message) in their
// properties.
const (
	EventMessageSent          = "DPInternalMessageSent"
	EventMessageFailure       = "DPMessageFailure"
	EventMessageSkipped       = "DPMessageSkipped"
	EventEmailDelivered       = "DPEmailDelivered"
	EventEmailOpened          = "DPEmailOpened"
	EventEmailClicked         = "DPEmailClicked"
	EventEmailBounced         = "DPEmailBounced"
	EventEmailMarkedSpam      = "DPEmailMarkedSpam"
	EventEmailDropped         = "DPEmailDropped"
	EventSmsDelivered         = "DPSmsDelivered"
	EventSmsFailed            = "DPSmsFailed"
	EventJourneyNodeProcessed = "DPJourneyNodeProcessed"
)

// MessageLifecycleEvents lists the event names relevant to message stats.
var MessageLifecycleEvents = []string{
	EventMessageSent,
	EventMessageFailure,
	EventEmailDelivered,
	EventEmailOpened,
	EventEmailClicked,
	EventEmailBounced,
	EventEmailMarkedSpam,
	EventEmailDropped,
	EventSmsDelivered,
	EventSmsFailed,
}

// TrackData is a single event as submitted by a client.
type TrackData struct {
	UserID      string          `json:"user_id,omitempty"`
	AnonymousID string          `json:"anonymous_id,omitempty"`
	MessageID   string          `json:"message_id,omitempty"`
	Event       string          `json:"event"`
	Timestamp   *time.Time      `json:"timestamp,omitempty"`
	Properties  json.RawMessage `json:"properties,omitempty"`
	Context     json.RawMessage `json:"context,omitempty"`
}

// Event is a persisted tracked event. MessageID is unique per workspace.
type Event struct {
	WorkspaceID string          `json:"workspace_id"`
	MessageID   string          `json:"message_id"`
	UserID      string          `json:"user_id,omitempty"`
	AnonymousID string          `json:"anonymous_id,omitempty"`
	EventType   string          `json:"event_type"`
	Event       string          `json:"event"`
	Properties  json.RawMessage `json:"properties,omitempty"`
	Context     json.RawMessage `json:"context,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
	ProcessedAt time.Time       `json:"processed_at"`
}

// EventFilter narrows ListEvents.
type EventFilter struct {
	WorkspaceID string
	UserID      string
	Event       string
	Limit       int
}

// MessageEvent is one lifecycle event attributed to a journey message node.
// MessageID is the id of the sent message the event refers to.
type MessageEvent struct {
	JourneyID string    `json:"journey_id"`
	NodeID    string    `json:"node_id"`
	MessageID string    `json:"message_id"`
	Event     string    `json:"event"`
	Timestamp time.Time `json:"timestamp"`
}

// NodeProcessed records that a user passed a journey node during the run
// that started at JourneyStartedAt.
type NodeProcessed struct {
	WorkspaceID      string    `json:"workspace_id"`
	JourneyID        string    `json:"journey_id"`
	UserID           string    `json:"user_id"`
	NodeID           string    `json:"node_id"`
	NodeType         NodeType  `json:"node_type"`
	JourneyStartedAt time.Time `json:"journey_started_at"`
	ProcessedAt      time.Time `json:"processed_at"`
}

// NodeProcessedCount is the number of distinct users seen at a node.
type NodeProcessedCount struct {
	JourneyID string `json:"journey_id"`
	NodeID    string `json:"node_id"`
	Users     int    `json:"users"`
}
