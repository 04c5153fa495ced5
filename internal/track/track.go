// Package track ingests client-submitted events.
package track

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alfredjeanlab/dispatch/internal/idgen"
	"github.com/alfredjeanlab/dispatch/internal/model"
	"github.com/alfredjeanlab/dispatch/internal/store"
)

// ErrBatchTooLarge is returned when a batch exceeds the configured size.
var ErrBatchTooLarge = errors.New("batch too large")

// Result reports what a submission persisted. Events holds every submitted
// event with its defaults filled in; Inserted counts the ones that were new.
type Result struct {
	Events   []*model.Event
	Inserted int
}

// MessageIDs returns the ids of the submitted events.
func (r *Result) MessageIDs() []string {
	ids := make([]string, len(r.Events))
	for i, e := range r.Events {
		ids[i] = e.MessageID
	}
	return ids
}

func toEvent(workspaceID string, d *model.TrackData, now time.Time) (*model.Event, error) {
	messageID := d.MessageID
	if messageID == "" {
		var err error
		if messageID, err = idgen.GenerateWithPrefix("msg-"); err != nil {
			return nil, fmt.Errorf("generating message id: %w", err)
		}
	}
	ts := now
	if d.Timestamp != nil {
		ts = d.Timestamp.UTC()
	}
	return &model.Event{
		WorkspaceID: workspaceID,
		MessageID:   messageID,
		UserID:      d.UserID,
		AnonymousID: d.AnonymousID,
		EventType:   model.EventTypeTrack,
		Event:       d.Event,
		Properties:  d.Properties,
		Context:     d.Context,
		Timestamp:   ts,
		ProcessedAt: now,
	}, nil
}

// Submit validates and stores a single event. Resubmitting a message id is
// a no-op.
func Submit(ctx context.Context, s store.Store, workspaceID string, d model.TrackData) (*Result, error) {
	return SubmitBatch(ctx, s, workspaceID, []model.TrackData{d}, 0)
}

// SubmitBatch validates every event before storing any of them. A maxSize
// of zero disables the size check.
func SubmitBatch(ctx context.Context, s store.Store, workspaceID string, batch []model.TrackData, maxSize int) (*Result, error) {
	if workspaceID == "" {
		return nil, &model.ValidationError{Errors: []model.FieldError{{Field: "workspace_id", Message: "is required"}}}
	}
	if maxSize > 0 && len(batch) > maxSize {
		return nil, fmt.Errorf("%w: %d events, limit is %d", ErrBatchTooLarge, len(batch), maxSize)
	}

	var ve model.ValidationError
	for i := range batch {
		if err := model.ValidateTrack(&batch[i]); err != nil {
			var inner *model.ValidationError
			if errors.As(err, &inner) && len(batch) > 1 {
				for _, fe := range inner.Errors {
					fe.Field = fmt.Sprintf("batch[%d].%s", i, fe.Field)
					ve.Errors = append(ve.Errors, fe)
				}
				continue
			}
			return nil, err
		}
	}
	if ve.HasErrors() {
		return nil, &ve
	}

	now := time.Now().UTC()
	res := &Result{Events: make([]*model.Event, 0, len(batch))}
	for i := range batch {
		ev, err := toEvent(workspaceID, &batch[i], now)
		if err != nil {
			return nil, err
		}
		res.Events = append(res.Events, ev)
	}
	if len(res.Events) == 0 {
		return res, nil
	}

	n, err := s.InsertEvents(ctx, res.Events)
	if err != nil {
		return nil, fmt.Errorf("inserting events: %w", err)
	}
	res.Inserted = n
	return res, nil
}
