package postgres

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alfredjeanlab/dispatch/internal/model"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// scanAll drains rows through scan.
func scanAll[T any](rows *sql.Rows, scan func(scannable) (*T, error)) ([]*T, error) {
	var out []*T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanWorkspace(row scannable) (*model.Workspace, error) {
	var w model.Workspace
	if err := row.Scan(&w.ID, &w.Name, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, err
	}
	return &w, nil
}

func scanWorkspaces(rows *sql.Rows) ([]*model.Workspace, error) {
	return scanAll(rows, scanWorkspace)
}

// scanJourney scans a single row into a model.Journey.
// The row must contain columns in the order defined by journeyColumns.
func scanJourney(row scannable) (*model.Journey, error) {
	var j model.Journey
	var (
		definition      []byte
		draft           []byte
		statusUpdatedAt sql.NullTime
	)

	err := row.Scan(
		&j.ID,
		&j.WorkspaceID,
		&j.Name,
		&j.Status,
		&definition,
		&draft,
		&j.CanRunMultiple,
		&j.ResourceType,
		&statusUpdatedAt,
		&j.CreatedAt,
		&j.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(definition) > 0 {
		var d model.JourneyDefinition
		if err := json.Unmarshal(definition, &d); err != nil {
			return nil, fmt.Errorf("decode definition of journey %s: %w", j.ID, err)
		}
		j.Definition = &d
	}
	if len(draft) > 0 {
		j.Draft = json.RawMessage(draft)
	}
	j.StatusUpdatedAt = timePtr(statusUpdatedAt)

	return &j, nil
}

func scanJourneys(rows *sql.Rows) ([]*model.Journey, error) {
	return scanAll(rows, scanJourney)
}

// scanBroadcast scans a single row into a model.Broadcast.
// The row must contain columns in the order defined by broadcastColumns.
func scanBroadcast(row scannable) (*model.Broadcast, error) {
	var b model.Broadcast
	var (
		segmentID       sql.NullString
		templateID      sql.NullString
		channel         sql.NullString
		scheduledAt     sql.NullTime
		statusUpdatedAt sql.NullTime
	)

	err := row.Scan(
		&b.ID,
		&b.WorkspaceID,
		&b.Name,
		&b.Version,
		&b.Status,
		&segmentID,
		&templateID,
		&channel,
		&scheduledAt,
		&statusUpdatedAt,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	b.SegmentID = segmentID.String
	b.TemplateID = templateID.String
	b.Channel = model.ChannelType(channel.String)
	b.ScheduledAt = timePtr(scheduledAt)
	b.StatusUpdatedAt = timePtr(statusUpdatedAt)

	return &b, nil
}

func scanBroadcasts(rows *sql.Rows) ([]*model.Broadcast, error) {
	return scanAll(rows, scanBroadcast)
}

// scanEvent scans a single row into a model.Event.
// The row must contain columns in the order defined by eventColumns.
func scanEvent(row scannable) (*model.Event, error) {
	var e model.Event
	var (
		userID      sql.NullString
		anonymousID sql.NullString
		properties  []byte
		context     []byte
	)
	err := row.Scan(
		&e.WorkspaceID,
		&e.MessageID,
		&userID,
		&anonymousID,
		&e.EventType,
		&e.Event,
		&properties,
		&context,
		&e.Timestamp,
		&e.ProcessedAt,
	)
	if err != nil {
		return nil, err
	}
	e.UserID = userID.String
	e.AnonymousID = anonymousID.String
	if len(properties) > 0 {
		e.Properties = json.RawMessage(properties)
	}
	if len(context) > 0 {
		e.Context = json.RawMessage(context)
	}
	return &e, nil
}

func scanEvents(rows *sql.Rows) ([]*model.Event, error) {
	return scanAll(rows, scanEvent)
}

// nullTimePtr converts a *time.Time to a sql.NullTime.
func nullTimePtr(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// timePtr converts a sql.NullTime to a *time.Time; null is nil.
func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

// nullString converts a string to sql.NullString; empty string is null.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// jsonbBytes converts json.RawMessage to a []byte suitable for JSONB columns.
func jsonbBytes(m json.RawMessage) []byte {
	if len(m) == 0 {
		return nil
	}
	return []byte(m)
}
