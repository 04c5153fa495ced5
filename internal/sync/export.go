package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/alfredjeanlab/dispatch/internal/model"
	"github.com/alfredjeanlab/dispatch/internal/store"
)

// header is the first JSONL record written by ExportJSONL.
type header struct {
	Version        string    `json:"version"`
	Type           string    `json:"type"`
	Timestamp      time.Time `json:"timestamp"`
	WorkspaceCount int       `json:"workspace_count"`
	JourneyCount   int       `json:"journey_count"`
	BroadcastCount int       `json:"broadcast_count"`
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// snapshot is everything ExportJSONL writes, each slice sorted by ID.
type snapshot struct {
	workspaces []*model.Workspace
	journeys   []*model.Journey
	broadcasts []*model.Broadcast
}

func collect(ctx context.Context, s store.Store) (*snapshot, error) {
	workspaces, err := s.ListWorkspaces(ctx)
	if err != nil {
		return nil, fmt.Errorf("list workspaces: %w", err)
	}
	snap := &snapshot{workspaces: workspaces}
	for _, ws := range workspaces {
		js, err := s.ListJourneys(ctx, ws.ID, nil)
		if err != nil {
			return nil, fmt.Errorf("list journeys for %s: %w", ws.ID, err)
		}
		snap.journeys = append(snap.journeys, js...)

		bs, err := s.ListBroadcasts(ctx, ws.ID, nil)
		if err != nil {
			return nil, fmt.Errorf("list broadcasts for %s: %w", ws.ID, err)
		}
		snap.broadcasts = append(snap.broadcasts, bs...)
	}

	sort.Slice(snap.workspaces, func(i, j int) bool { return snap.workspaces[i].ID < snap.workspaces[j].ID })
	sort.Slice(snap.journeys, func(i, j int) bool { return snap.journeys[i].ID < snap.journeys[j].ID })
	sort.Slice(snap.broadcasts, func(i, j int) bool { return snap.broadcasts[i].ID < snap.broadcasts[j].ID })
	return snap, nil
}

// ExportJSONL writes every workspace, journey and broadcast in the store as
// JSONL to w. A header line comes first, then records grouped by type and
// sorted by ID. Tracked events are not exported.
func ExportJSONL(ctx context.Context, s store.Store, w io.Writer) error {
	snap, err := collect(ctx, s)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(header{
		Version:        "1",
		Type:           "header",
		Timestamp:      time.Now().UTC(),
		WorkspaceCount: len(snap.workspaces),
		JourneyCount:   len(snap.journeys),
		BroadcastCount: len(snap.broadcasts),
	}); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}

	for _, ws := range snap.workspaces {
		if err := enc.Encode(record{Type: "workspace", Data: ws}); err != nil {
			return fmt.Errorf("encode workspace %s: %w", ws.ID, err)
		}
	}
	for _, j := range snap.journeys {
		if err := enc.Encode(record{Type: "journey", Data: j}); err != nil {
			return fmt.Errorf("encode journey %s: %w", j.ID, err)
		}
	}
	for _, b := range snap.broadcasts {
		if err := enc.Encode(record{Type: "broadcast", Data: b}); err != nil {
			return fmt.Errorf("encode broadcast %s: %w", b.ID, err)
		}
	}
	return nil
}
