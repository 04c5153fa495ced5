package track

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alfredjeanlab/dispatch/internal/model"
	"github.com/alfredjeanlab/dispatch/internal/store/memory"
)

func newStore(t *testing.T) *memory.Store {
	t.Helper()
	s := memory.New()
	if err := s.CreateWorkspace(context.Background(), &model.Workspace{ID: "ws-1", Name: "Main"}); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestSubmit_Defaults(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	before := time.Now().UTC()
	res, err := Submit(ctx, s, "ws-1", model.TrackData{UserID: "u-1", Event: "signup"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Inserted != 1 || len(res.Events) != 1 {
		t.Fatalf("result = %+v", res)
	}
	ev := res.Events[0]
	if !strings.HasPrefix(ev.MessageID, "msg-") {
		t.Errorf("MessageID = %q, want generated msg- id", ev.MessageID)
	}
	if ev.Timestamp.Before(before) || ev.Timestamp.Location() != time.UTC {
		t.Errorf("Timestamp = %v, want now in UTC", ev.Timestamp)
	}
	if ev.EventType != model.EventTypeTrack {
		t.Errorf("EventType = %q", ev.EventType)
	}
	if ev.ProcessedAt.IsZero() {
		t.Error("ProcessedAt not set")
	}
}

func TestSubmit_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.FixedZone("x", 3600))
	d := model.TrackData{
		UserID:     "u-1",
		MessageID:  "m-1",
		Event:      model.EventMessageSent,
		Timestamp:  &ts,
		Properties: json.RawMessage(`{"journey_id":"j-1","node_id":"n-1"}`),
	}

	res, err := Submit(ctx, s, "ws-1", d)
	if err != nil {
		t.Fatal(err)
	}
	if res.Inserted != 1 {
		t.Fatalf("Inserted = %d, want 1", res.Inserted)
	}
	if !res.Events[0].Timestamp.Equal(ts) || res.Events[0].Timestamp.Location() != time.UTC {
		t.Errorf("Timestamp = %v, want %v in UTC", res.Events[0].Timestamp, ts)
	}

	res, err = Submit(ctx, s, "ws-1", d)
	if err != nil {
		t.Fatal(err)
	}
	if res.Inserted != 0 {
		t.Errorf("resubmit Inserted = %d, want 0", res.Inserted)
	}
	if got := res.MessageIDs(); len(got) != 1 || got[0] != "m-1" {
		t.Errorf("MessageIDs = %v", got)
	}
}

func TestSubmit_Invalid(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	for _, tc := range []struct {
		name        string
		workspaceID string
		data        model.TrackData
	}{
		{"NoWorkspace", "", model.TrackData{UserID: "u", Event: "e"}},
		{"NoEvent", "ws-1", model.TrackData{UserID: "u"}},
		{"NoUser", "ws-1", model.TrackData{Event: "e"}},
		{"PropertiesNotObject", "ws-1", model.TrackData{UserID: "u", Event: "e", Properties: json.RawMessage(`[1]`)}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Submit(ctx, s, tc.workspaceID, tc.data)
			var ve *model.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestSubmitBatch(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	batch := []model.TrackData{
		{AnonymousID: "a-1", Event: "page"},
		{UserID: "u-1", Event: "click", MessageID: "m-2"},
	}
	res, err := SubmitBatch(ctx, s, "ws-1", batch, 10)
	if err != nil {
		t.Fatal(err)
	}
	if res.Inserted != 2 {
		t.Errorf("Inserted = %d, want 2", res.Inserted)
	}

	if _, err := SubmitBatch(ctx, s, "ws-1", batch, 1); !errors.Is(err, ErrBatchTooLarge) {
		t.Errorf("oversize batch: got %v, want ErrBatchTooLarge", err)
	}

	_, err = SubmitBatch(ctx, s, "ws-1", []model.TrackData{{UserID: "u", Event: "ok"}, {UserID: "u"}}, 0)
	var ve *model.ValidationError
	if !errors.As(err, &ve) || len(ve.Errors) != 1 || ve.Errors[0].Field != "batch[1].event" {
		t.Fatalf("expected batch[1].event error, got %v", err)
	}
	evs, err := s.ListEvents(ctx, model.EventFilter{WorkspaceID: "ws-1", Event: "ok"})
	if err != nil {
		t.Fatal(err)
	}
	if len(evs) != 0 {
		t.Error("invalid batch stored events")
	}

	res, err = SubmitBatch(ctx, s, "ws-1", nil, 0)
	if err != nil || res.Inserted != 0 {
		t.Errorf("empty batch = %+v, %v", res, err)
	}
}

func TestSubmit_UnknownWorkspace(t *testing.T) {
	_, err := Submit(context.Background(), newStore(t), "nope", model.TrackData{UserID: "u-1", Event: "signup"})
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("error = %v, want sql.ErrNoRows", err)
	}
}
