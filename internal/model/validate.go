package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ValidationError holds a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation failure on a named field.
type FieldError struct {
	Field   string
	Message string
}

// Error formats the validation error as a semicolon-separated list of field messages.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether the validation error contains any field errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

func (e *ValidationError) add(field, format string, args ...any) {
	e.Errors = append(e.Errors, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (e *ValidationError) orNil() error {
	if e.HasErrors() {
		return e
	}
	return nil
}

// ValidateWorkspace checks a Workspace before creation.
func ValidateWorkspace(w *Workspace) error {
	var ve ValidationError
	name := strings.TrimSpace(w.Name)
	if name == "" {
		ve.add("name", "is required")
	} else if len([]rune(name)) > 200 {
		ve.add("name", "must be 200 characters or fewer")
	}
	return ve.orNil()
}

// ValidateBroadcast checks a Broadcast before creation.
func ValidateBroadcast(b *Broadcast) error {
	var ve ValidationError
	if b.WorkspaceID == "" {
		ve.add("workspace_id", "is required")
	}
	if strings.TrimSpace(b.Name) == "" {
		ve.add("name", "is required")
	}
	if !b.Status.IsValid() {
		ve.add("status", "invalid value %q", b.Status)
	}
	if b.Channel != "" && !b.Channel.IsValid() {
		ve.add("channel", "invalid value %q", b.Channel)
	}
	return ve.orNil()
}

// ValidateTrack checks a submitted event. Either a user id or an anonymous
// id is required; properties and context must be JSON objects when present.
func ValidateTrack(d *TrackData) error {
	var ve ValidationError
	if strings.TrimSpace(d.Event) == "" {
		ve.add("event", "is required")
	}
	if d.UserID == "" && d.AnonymousID == "" {
		ve.add("user_id", "user_id or anonymous_id is required")
	}
	if len(d.Properties) > 0 && !isJSONObject(d.Properties) {
		ve.add("properties", "must be a JSON object")
	}
	if len(d.Context) > 0 && !isJSONObject(d.Context) {
		ve.add("context", "must be a JSON object")
	}
	return ve.orNil()
}

func isJSONObject(raw json.RawMessage) bool {
	if !json.Valid(raw) {
		return false
	}
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// ValidateDefinition checks the structure of a journey node graph: entry and
// exit nodes are well formed, body node ids are unique and not reserved,
// every child reference resolves, and each node carries the settings its
// type needs.
func ValidateDefinition(d *JourneyDefinition) error {
	var ve ValidationError

	if !d.EntryNode.Type.IsEntry() {
		ve.add("entry_node.type", "invalid value %q", d.EntryNode.Type)
	}
	if d.EntryNode.Child == "" {
		ve.add("entry_node.child", "is required")
	}
	if d.EntryNode.Type == NodeSegmentEntry && d.EntryNode.Segment == "" {
		ve.add("entry_node.segment", "is required")
	}
	if d.EntryNode.Type == NodeEventEntry && d.EntryNode.Event == "" {
		ve.add("entry_node.event", "is required")
	}
	if d.ExitNode.Type != NodeExit {
		ve.add("exit_node.type", "must be %q", NodeExit)
	}

	ids := make(map[string]bool, len(d.Nodes))
	for i, n := range d.Nodes {
		field := fmt.Sprintf("nodes[%d]", i)
		switch {
		case n.ID == "":
			ve.add(field+".id", "is required")
		case n.ID == EntryNodeID || n.ID == ExitNodeID:
			ve.add(field+".id", "%q is reserved", n.ID)
		case ids[n.ID]:
			ve.add(field+".id", "duplicate id %q", n.ID)
		}
		ids[n.ID] = true
		validateNode(&ve, field, &n)
	}

	resolves := func(id string) bool { return id == ExitNodeID || ids[id] }
	if d.EntryNode.Child != "" && !resolves(d.EntryNode.Child) {
		ve.add("entry_node.child", "unknown node %q", d.EntryNode.Child)
	}
	for i := range d.Nodes {
		for _, child := range d.Nodes[i].Children() {
			if child != "" && !resolves(child) {
				ve.add(fmt.Sprintf("nodes[%d]", i), "unknown child %q", child)
			}
		}
	}

	return ve.orNil()
}

func validateNode(ve *ValidationError, field string, n *JourneyNode) {
	switch n.Type {
	case NodeMessage:
		if n.Variant == nil || !ChannelType(n.Variant.Type).IsValid() {
			ve.add(field+".variant", "message nodes need a channel variant")
		} else if n.Variant.TemplateID == "" {
			ve.add(field+".variant.template_id", "is required")
		}
		if n.Child == "" {
			ve.add(field+".child", "is required")
		}
	case NodeSegmentSplit:
		if n.Variant == nil || n.Variant.Type != VariantBoolean {
			ve.add(field+".variant", "segment splits need a %s variant", VariantBoolean)
			return
		}
		if n.Variant.Segment == "" {
			ve.add(field+".variant.segment", "is required")
		}
		if n.Variant.TrueChild == "" || n.Variant.FalseChild == "" {
			ve.add(field+".variant", "true_child and false_child are required")
		}
	case NodeDelay:
		if n.Variant == nil || n.Variant.Seconds <= 0 {
			ve.add(field+".variant.seconds", "must be positive")
		}
		if n.Child == "" {
			ve.add(field+".child", "is required")
		}
	case NodeWaitFor:
		if len(n.SegmentChildren) == 0 {
			ve.add(field+".segment_children", "is required")
		}
		if n.TimeoutChild == "" {
			ve.add(field+".timeout_child", "is required")
		}
		if n.TimeoutSeconds <= 0 {
			ve.add(field+".timeout_seconds", "must be positive")
		}
	default:
		ve.add(field+".type", "invalid value %q", n.Type)
	}
}
