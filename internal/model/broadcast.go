package model

import (
	"slices"
	"time"
)

// BroadcastStatus is the lifecycle state of a V2 broadcast.
type BroadcastStatus string

const (
	BroadcastDraft     BroadcastStatus = "Draft"
	BroadcastScheduled BroadcastStatus = "Scheduled"
	BroadcastRunning   BroadcastStatus = "Running"
	BroadcastPaused    BroadcastStatus = "Paused"
	BroadcastCompleted BroadcastStatus = "Completed"
	BroadcastCancelled BroadcastStatus = "Cancelled"
	BroadcastFailed    BroadcastStatus = "Failed"
)

// String returns the string representation of the status.
func (s BroadcastStatus) String() string {
	return string(s)
}

// IsValid checks whether the status is a known value.
func (s BroadcastStatus) IsValid() bool {
	switch s {
	case BroadcastDraft, BroadcastScheduled, BroadcastRunning, BroadcastPaused,
		BroadcastCompleted, BroadcastCancelled, BroadcastFailed:
		return true
	}
	return false
}

// BroadcastVersionV2 is the only broadcast version with a status lifecycle.
const BroadcastVersionV2 = "V2"

// BroadcastAction is an operator command that moves a broadcast between
// statuses.
type BroadcastAction string

const (
	BroadcastStart  BroadcastAction = "start"
	BroadcastPause  BroadcastAction = "pause"
	BroadcastResume BroadcastAction = "resume"
	BroadcastCancel BroadcastAction = "cancel"
)

var broadcastTransitions = map[BroadcastAction]struct {
	from []BroadcastStatus
	to   BroadcastStatus
	verb string
}{
	BroadcastStart:  {[]BroadcastStatus{BroadcastDraft, BroadcastScheduled}, BroadcastRunning, "started"},
	BroadcastPause:  {[]BroadcastStatus{BroadcastRunning}, BroadcastPaused, "paused"},
	BroadcastResume: {[]BroadcastStatus{BroadcastPaused}, BroadcastRunning, "resumed"},
	BroadcastCancel: {[]BroadcastStatus{BroadcastDraft, BroadcastScheduled, BroadcastRunning, BroadcastPaused}, BroadcastCancelled, "cancelled"},
}

// IsValid checks whether the action is a known value.
func (a BroadcastAction) IsValid() bool {
	_, ok := broadcastTransitions[a]
	return ok
}

// Transition returns the statuses the action may be applied from and the
// status it produces.
func (a BroadcastAction) Transition() (from []BroadcastStatus, to BroadcastStatus) {
	t := broadcastTransitions[a]
	return slices.Clone(t.from), t.to
}

// Allows reports whether the action may be applied to a broadcast in status s.
func (a BroadcastAction) Allows(s BroadcastStatus) bool {
	return slices.Contains(broadcastTransitions[a].from, s)
}

// SuccessMessage is the human-readable confirmation returned by the API.
func (a BroadcastAction) SuccessMessage() string {
	return "Broadcast " + broadcastTransitions[a].verb
}

// Broadcast is a one-off send of a template to a segment.
type Broadcast struct {
	ID              string          `json:"id"`
	WorkspaceID     string          `json:"workspace_id"`
	Name            string          `json:"name"`
	Version         string          `json:"version"`
	Status          BroadcastStatus `json:"status"`
	SegmentID       string          `json:"segment_id,omitempty"`
	TemplateID      string          `json:"template_id,omitempty"`
	Channel         ChannelType     `json:"channel,omitempty"`
	ScheduledAt     *time.Time      `json:"scheduled_at,omitempty"`
	StatusUpdatedAt *time.Time      `json:"status_updated_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// MessageResponse is the generic acknowledgement body.
type MessageResponse struct {
	Message string `json:"message"`
}

// Validate checks the response shape.
func (r *MessageResponse) Validate() error {
	var ve ValidationError
	if r.Message == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "message", Message: "is required"})
	}
	if ve.HasErrors() {
		return &ve
	}
	return nil
}
