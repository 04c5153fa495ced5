package model

import (
	"encoding/json"
	"time"
)

// JourneyStatus is the lifecycle state of a journey.
type JourneyStatus string

const (
	JourneyNotStarted JourneyStatus = "NotStarted"
	JourneyRunning    JourneyStatus = "Running"
	JourneyPaused     JourneyStatus = "Paused"
	JourneyBroadcast  JourneyStatus = "Broadcast"
)

// String returns the string representation of the status.
func (s JourneyStatus) String() string {
	return string(s)
}

// IsValid checks whether the status is a known value.
func (s JourneyStatus) IsValid() bool {
	switch s {
	case JourneyNotStarted, JourneyRunning, JourneyPaused, JourneyBroadcast:
		return true
	}
	return false
}

// CanTransitionTo reports whether a journey in status s may move to next.
// Staying in the same status is always allowed. Once started, a journey
// never returns to NotStarted, and broadcast journeys never change status.
func (s JourneyStatus) CanTransitionTo(next JourneyStatus) bool {
	if s == next {
		return true
	}
	switch s {
	case JourneyNotStarted:
		return next == JourneyRunning || next == JourneyPaused
	case JourneyRunning:
		return next == JourneyPaused
	case JourneyPaused:
		return next == JourneyRunning
	}
	return false
}

// ResourceDeclarative marks journeys whose definition is managed through the
// API rather than generated internally.
const ResourceDeclarative = "Declarative"

// Journey is a workspace-scoped automated flow of nodes.
type Journey struct {
	ID              string             `json:"id"`
	WorkspaceID     string             `json:"workspace_id"`
	Name            string             `json:"name"`
	Status          JourneyStatus      `json:"status"`
	Definition      *JourneyDefinition `json:"definition,omitempty"`
	Draft           json.RawMessage    `json:"draft,omitempty"`
	CanRunMultiple  bool               `json:"can_run_multiple"`
	ResourceType    string             `json:"resource_type"`
	StatusUpdatedAt *time.Time         `json:"status_updated_at,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}
