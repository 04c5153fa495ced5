package model

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestJourneyStatus_IsValid(t *testing.T) {
	for _, tc := range []struct {
		status JourneyStatus
		want   bool
	}{
		{JourneyNotStarted, true},
		{JourneyRunning, true},
		{JourneyPaused, true},
		{JourneyBroadcast, true},
		{JourneyStatus(""), false},
		{JourneyStatus("running"), false},
	} {
		if got := tc.status.IsValid(); got != tc.want {
			t.Errorf("JourneyStatus(%q).IsValid() = %v, want %v", tc.status, got, tc.want)
		}
	}
}

func TestJourneyStatus_CanTransitionTo(t *testing.T) {
	for _, tc := range []struct {
		from, to JourneyStatus
		want     bool
	}{
		{JourneyNotStarted, JourneyNotStarted, true},
		{JourneyNotStarted, JourneyRunning, true},
		{JourneyNotStarted, JourneyPaused, true},
		{JourneyRunning, JourneyPaused, true},
		{JourneyPaused, JourneyRunning, true},
		{JourneyRunning, JourneyRunning, true},
		{JourneyRunning, JourneyNotStarted, false},
		{JourneyPaused, JourneyNotStarted, false},
		{JourneyNotStarted, JourneyBroadcast, false},
		{JourneyBroadcast, JourneyRunning, false},
		{JourneyBroadcast, JourneyBroadcast, true},
	} {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.want {
			t.Errorf("%s -> %s = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestBroadcastAction_Allows(t *testing.T) {
	for _, tc := range []struct {
		action BroadcastAction
		status BroadcastStatus
		want   bool
	}{
		{BroadcastResume, BroadcastPaused, true},
		{BroadcastResume, BroadcastRunning, false},
		{BroadcastResume, BroadcastCompleted, false},
		{BroadcastPause, BroadcastRunning, true},
		{BroadcastPause, BroadcastPaused, false},
		{BroadcastStart, BroadcastDraft, true},
		{BroadcastStart, BroadcastScheduled, true},
		{BroadcastStart, BroadcastPaused, false},
		{BroadcastCancel, BroadcastRunning, true},
		{BroadcastCancel, BroadcastCompleted, false},
		{BroadcastAction("explode"), BroadcastRunning, false},
	} {
		if got := tc.action.Allows(tc.status); got != tc.want {
			t.Errorf("%s.Allows(%s) = %v, want %v", tc.action, tc.status, got, tc.want)
		}
	}
}

func TestBroadcastAction_Transition(t *testing.T) {
	from, to := BroadcastResume.Transition()
	if to != BroadcastRunning {
		t.Errorf("resume target = %s, want Running", to)
	}
	if len(from) != 1 || from[0] != BroadcastPaused {
		t.Errorf("resume from = %v, want [Paused]", from)
	}
	// The returned slice must not alias the table.
	from[0] = BroadcastFailed
	if again, _ := BroadcastResume.Transition(); again[0] != BroadcastPaused {
		t.Error("Transition returned a shared slice")
	}
	if got := BroadcastResume.SuccessMessage(); got != "Broadcast resumed" {
		t.Errorf("SuccessMessage = %q", got)
	}
}

func TestMessageResponse_Validate(t *testing.T) {
	if err := (&MessageResponse{Message: "ok"}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	err := (&MessageResponse{}).Validate()
	if err == nil || !strings.Contains(err.Error(), "message: is required") {
		t.Errorf("got %v, want message required error", err)
	}
}

func TestJourneyNode_Children(t *testing.T) {
	split := JourneyNode{ID: "s", Type: NodeSegmentSplit, Variant: &NodeVariant{Type: VariantBoolean, TrueChild: "a", FalseChild: ExitNodeID}}
	if got := split.Children(); len(got) != 2 || got[0] != "a" || got[1] != ExitNodeID {
		t.Errorf("split children = %v", got)
	}
	wait := JourneyNode{ID: "w", Type: NodeWaitFor, SegmentChildren: []SegmentChild{{SegmentID: "seg", ID: "a"}}, TimeoutChild: "b"}
	if got := wait.Children(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("wait-for children = %v", got)
	}
	msg := JourneyNode{ID: "m", Type: NodeMessage, Child: "x", Variant: &NodeVariant{Type: string(ChannelEmail)}}
	if got := msg.Children(); len(got) != 1 || got[0] != "x" {
		t.Errorf("message children = %v", got)
	}
	if msg.Channel() != ChannelEmail {
		t.Errorf("Channel = %q", msg.Channel())
	}
	if split.Channel() != "" {
		t.Errorf("split Channel = %q, want empty", split.Channel())
	}
}

func TestChannelStats_JSONShape(t *testing.T) {
	email := ChannelStats{Type: ChannelEmail, DeliveryRate: 0.5, OpenRate: 0.25, FailRate: 0.9}
	data, err := json.Marshal(email)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"type", "delivery_rate", "open_rate", "click_rate", "spam_rate"} {
		if _, ok := m[key]; !ok {
			t.Errorf("email stats missing %q: %s", key, data)
		}
	}
	if _, ok := m["fail_rate"]; ok {
		t.Errorf("email stats should not carry fail_rate: %s", data)
	}

	sms, _ := json.Marshal(ChannelStats{Type: ChannelSms, DeliveryRate: 1})
	if strings.Contains(string(sms), "open_rate") || !strings.Contains(string(sms), "fail_rate") {
		t.Errorf("unexpected sms shape: %s", sms)
	}

	var back ChannelStats
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back.Type != ChannelEmail || back.DeliveryRate != 0.5 || back.OpenRate != 0.25 {
		t.Errorf("decoded = %+v", back)
	}
}
