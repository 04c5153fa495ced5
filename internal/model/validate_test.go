package model

import (
	"encoding/json"
	"testing"
)

// fieldErrors extracts a *ValidationError from err or fails the test.
func fieldErrors(t *testing.T, err error) []FieldError {
	t.Helper()
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	ve, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	return ve.Errors
}

// hasFieldError reports whether the error list contains an error for the given field.
func hasFieldError(errs []FieldError, field string) bool {
	for _, fe := range errs {
		if fe.Field == field {
			return true
		}
	}
	return false
}

// validDefinition is entry -> split -> (message -> exit | exit).
func validDefinition() JourneyDefinition {
	return JourneyDefinition{
		EntryNode: JourneyNode{Type: NodeSegmentEntry, Segment: "seg-1", Child: "split"},
		ExitNode:  JourneyNode{Type: NodeExit},
		Nodes: []JourneyNode{
			{
				ID:   "split",
				Type: NodeSegmentSplit,
				Variant: &NodeVariant{
					Type:       VariantBoolean,
					Segment:    "seg-2",
					TrueChild:  "msg",
					FalseChild: ExitNodeID,
				},
			},
			{
				ID:      "msg",
				Type:    NodeMessage,
				Child:   ExitNodeID,
				Variant: &NodeVariant{Type: string(ChannelEmail), TemplateID: "tmpl-1"},
			},
		},
	}
}

func TestValidateDefinition_Valid(t *testing.T) {
	d := validDefinition()
	if err := ValidateDefinition(&d); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateDefinition_Errors(t *testing.T) {
	for _, tc := range []struct {
		name   string
		mutate func(d *JourneyDefinition)
		field  string
	}{
		{"entry type", func(d *JourneyDefinition) { d.EntryNode.Type = NodeMessage }, "entry_node.type"},
		{"entry child missing", func(d *JourneyDefinition) { d.EntryNode.Child = "" }, "entry_node.child"},
		{"entry child unknown", func(d *JourneyDefinition) { d.EntryNode.Child = "nope" }, "entry_node.child"},
		{"entry segment", func(d *JourneyDefinition) { d.EntryNode.Segment = "" }, "entry_node.segment"},
		{"exit type", func(d *JourneyDefinition) { d.ExitNode.Type = NodeDelay }, "exit_node.type"},
		{"reserved id", func(d *JourneyDefinition) { d.Nodes[1].ID = ExitNodeID }, "nodes[1].id"},
		{"duplicate id", func(d *JourneyDefinition) { d.Nodes[1].ID = "split" }, "nodes[1].id"},
		{"missing id", func(d *JourneyDefinition) { d.Nodes[0].ID = "" }, "nodes[0].id"},
		{"unknown child", func(d *JourneyDefinition) { d.Nodes[1].Child = "ghost" }, "nodes[1]"},
		{"message channel", func(d *JourneyDefinition) { d.Nodes[1].Variant.Type = "Pigeon" }, "nodes[1].variant"},
		{"message template", func(d *JourneyDefinition) { d.Nodes[1].Variant.TemplateID = "" }, "nodes[1].variant.template_id"},
		{"split variant", func(d *JourneyDefinition) { d.Nodes[0].Variant.Type = VariantSecond }, "nodes[0].variant"},
		{"split children", func(d *JourneyDefinition) { d.Nodes[0].Variant.FalseChild = "" }, "nodes[0].variant"},
		{"node type", func(d *JourneyDefinition) { d.Nodes[1].Type = "Teleport" }, "nodes[1].type"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			d := validDefinition()
			// Variants are pointers; copy them so cases stay independent.
			for i := range d.Nodes {
				if d.Nodes[i].Variant != nil {
					v := *d.Nodes[i].Variant
					d.Nodes[i].Variant = &v
				}
			}
			tc.mutate(&d)
			errs := fieldErrors(t, ValidateDefinition(&d))
			if !hasFieldError(errs, tc.field) {
				t.Errorf("expected error on %q, got %v", tc.field, errs)
			}
		})
	}
}

func TestValidateDefinition_DelayAndWaitFor(t *testing.T) {
	d := JourneyDefinition{
		EntryNode: JourneyNode{Type: NodeEventEntry, Event: "Signed Up", Child: "delay"},
		ExitNode:  JourneyNode{Type: NodeExit},
		Nodes: []JourneyNode{
			{ID: "delay", Type: NodeDelay, Variant: &NodeVariant{Type: VariantSecond, Seconds: 60}, Child: "wait"},
			{ID: "wait", Type: NodeWaitFor, TimeoutSeconds: 3600, TimeoutChild: ExitNodeID,
				SegmentChildren: []SegmentChild{{SegmentID: "seg", ID: ExitNodeID}}},
		},
	}
	if err := ValidateDefinition(&d); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	d.Nodes[0].Variant.Seconds = 0
	d.Nodes[1].TimeoutSeconds = 0
	errs := fieldErrors(t, ValidateDefinition(&d))
	if !hasFieldError(errs, "nodes[0].variant.seconds") || !hasFieldError(errs, "nodes[1].timeout_seconds") {
		t.Errorf("errors = %v", errs)
	}
}

func TestValidateDefinition_JSONRoundTrip(t *testing.T) {
	raw := `{
		"entry_node": {"type": "SegmentEntryNode", "segment": "s1", "child": "m1"},
		"exit_node": {"type": "ExitNode"},
		"nodes": [{"id": "m1", "type": "MessageNode", "child": "ExitNode",
			"variant": {"type": "Email", "template_id": "t1"}}]
	}`
	var d JourneyDefinition
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		t.Fatal(err)
	}
	if err := ValidateDefinition(&d); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := d.NodeByID("m1"); n == nil || n.Channel() != ChannelEmail {
		t.Errorf("NodeByID(m1) = %+v", n)
	}
	if d.NodeByID(ExitNodeID) != nil {
		t.Error("exit node should not be a body node")
	}
}

func TestValidateTrack(t *testing.T) {
	for _, tc := range []struct {
		name  string
		data  TrackData
		field string
	}{
		{"valid user", TrackData{UserID: "u1", Event: "Purchase"}, ""},
		{"valid anonymous", TrackData{AnonymousID: "a1", Event: "Purchase", Properties: json.RawMessage(`{"a":1}`)}, ""},
		{"missing event", TrackData{UserID: "u1"}, "event"},
		{"missing identity", TrackData{Event: "Purchase"}, "user_id"},
		{"array properties", TrackData{UserID: "u1", Event: "E", Properties: json.RawMessage(`[1]`)}, "properties"},
		{"invalid context", TrackData{UserID: "u1", Event: "E", Context: json.RawMessage(`{bad`)}, "context"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateTrack(&tc.data)
			if tc.field == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !hasFieldError(fieldErrors(t, err), tc.field) {
				t.Errorf("expected error on %q, got %v", tc.field, err)
			}
		})
	}
}

func TestValidateWorkspaceAndBroadcast(t *testing.T) {
	if err := ValidateWorkspace(&Workspace{Name: "Acme"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !hasFieldError(fieldErrors(t, ValidateWorkspace(&Workspace{Name: "  "})), "name") {
		t.Error("expected name error")
	}

	b := &Broadcast{WorkspaceID: "ws", Name: "Launch", Status: BroadcastDraft, Channel: ChannelEmail}
	if err := ValidateBroadcast(b); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	b.Status = "Exploded"
	b.Channel = "Fax"
	errs := fieldErrors(t, ValidateBroadcast(b))
	if !hasFieldError(errs, "status") || !hasFieldError(errs, "channel") {
		t.Errorf("errors = %v", errs)
	}
}
