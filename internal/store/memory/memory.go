// Package memory implements store.Store in process memory. It backs
// `dp serve --in-memory` and the package tests that need a working store.
// Transactions hold the store lock and apply their changes only on success.
package memory

import (
	"cmp"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/alfredjeanlab/dispatch/internal/model"
	"github.com/alfredjeanlab/dispatch/internal/store"
)

// Store is an in-memory store.Store.
type Store struct {
	mu  sync.Mutex
	st  *state
	now func() time.Time
}

// Compile-time check that Store implements store.Store.
var _ store.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{st: newState(), now: func() time.Time { return time.Now().UTC() }}
}

// SetClock overrides the time source used for created/updated timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

type processedKey struct {
	workspaceID, journeyID, userID, nodeID string
	startedAt                              int64
}

type eventKey struct {
	workspaceID, messageID string
}

type state struct {
	workspaces map[string]model.Workspace
	journeys   map[string]model.Journey
	broadcasts map[string]model.Broadcast
	events     []model.Event
	eventKeys  map[eventKey]bool
	processed  map[processedKey]model.NodeProcessed
}

func newState() *state {
	return &state{
		workspaces: make(map[string]model.Workspace),
		journeys:   make(map[string]model.Journey),
		broadcasts: make(map[string]model.Broadcast),
		eventKeys:  make(map[eventKey]bool),
		processed:  make(map[processedKey]model.NodeProcessed),
	}
}

func (st *state) clone() *state {
	return &state{
		workspaces: maps.Clone(st.workspaces),
		journeys:   maps.Clone(st.journeys),
		broadcasts: maps.Clone(st.broadcasts),
		events:     slices.Clone(st.events),
		eventKeys:  maps.Clone(st.eventKeys),
		processed:  maps.Clone(st.processed),
	}
}

// view runs fn against the live state under the lock.
func (s *Store) view(fn func(tx *txStore) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&txStore{st: s.st, now: s.now})
}

func (s *Store) CreateWorkspace(ctx context.Context, ws *model.Workspace) error {
	return s.view(func(tx *txStore) error { return tx.CreateWorkspace(ctx, ws) })
}

func (s *Store) GetWorkspace(ctx context.Context, id string) (ws *model.Workspace, err error) {
	err = s.view(func(tx *txStore) error { ws, err = tx.GetWorkspace(ctx, id); return err })
	return ws, err
}

func (s *Store) ListWorkspaces(ctx context.Context) (out []*model.Workspace, err error) {
	err = s.view(func(tx *txStore) error { out, err = tx.ListWorkspaces(ctx); return err })
	return out, err
}

func (s *Store) GetJourney(ctx context.Context, id string) (j *model.Journey, err error) {
	err = s.view(func(tx *txStore) error { j, err = tx.GetJourney(ctx, id); return err })
	return j, err
}

func (s *Store) ListJourneys(ctx context.Context, workspaceID string, ids []string) (out []*model.Journey, err error) {
	err = s.view(func(tx *txStore) error { out, err = tx.ListJourneys(ctx, workspaceID, ids); return err })
	return out, err
}

func (s *Store) UpsertJourney(ctx context.Context, j *model.Journey) error {
	return s.view(func(tx *txStore) error { return tx.UpsertJourney(ctx, j) })
}

func (s *Store) DeleteJourney(ctx context.Context, workspaceID, id string) error {
	return s.view(func(tx *txStore) error { return tx.DeleteJourney(ctx, workspaceID, id) })
}

func (s *Store) CreateBroadcast(ctx context.Context, b *model.Broadcast) error {
	return s.view(func(tx *txStore) error { return tx.CreateBroadcast(ctx, b) })
}

func (s *Store) ListBroadcasts(ctx context.Context, workspaceID string, ids []string) (out []*model.Broadcast, err error) {
	err = s.view(func(tx *txStore) error { out, err = tx.ListBroadcasts(ctx, workspaceID, ids); return err })
	return out, err
}

func (s *Store) TransitionBroadcast(ctx context.Context, workspaceID, id string, from []model.BroadcastStatus, to model.BroadcastStatus) (b *model.Broadcast, err error) {
	err = s.view(func(tx *txStore) error { b, err = tx.TransitionBroadcast(ctx, workspaceID, id, from, to); return err })
	return b, err
}

func (s *Store) InsertEvents(ctx context.Context, events []*model.Event) (n int, err error) {
	err = s.view(func(tx *txStore) error { n, err = tx.InsertEvents(ctx, events); return err })
	return n, err
}

func (s *Store) ListEvents(ctx context.Context, filter model.EventFilter) (out []*model.Event, err error) {
	err = s.view(func(tx *txStore) error { out, err = tx.ListEvents(ctx, filter); return err })
	return out, err
}

func (s *Store) ListMessageEvents(ctx context.Context, workspaceID string, journeyIDs []string) (out []*model.MessageEvent, err error) {
	err = s.view(func(tx *txStore) error { out, err = tx.ListMessageEvents(ctx, workspaceID, journeyIDs); return err })
	return out, err
}

func (s *Store) RecordNodeProcessed(ctx context.Context, np *model.NodeProcessed) error {
	return s.view(func(tx *txStore) error { return tx.RecordNodeProcessed(ctx, np) })
}

func (s *Store) CountNodeProcessed(ctx context.Context, workspaceID string, journeyIDs []string) (out []*model.NodeProcessedCount, err error) {
	err = s.view(func(tx *txStore) error { out, err = tx.CountNodeProcessed(ctx, workspaceID, journeyIDs); return err })
	return out, err
}

// RunInTransaction runs fn against a copy of the state while holding the
// store lock, and publishes the copy only if fn succeeds.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.st.clone()
	if err := fn(&txStore{st: work, now: s.now}); err != nil {
		return err
	}
	s.st = work
	return nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

// txStore operates on a state without locking. The caller holds the lock.
type txStore struct {
	st  *state
	now func() time.Time
}

// requireWorkspace reports sql.ErrNoRows for rows that would reference a
// missing workspace.
func (tx *txStore) requireWorkspace(id string) error {
	if _, ok := tx.st.workspaces[id]; !ok {
		return fmt.Errorf("workspace %q: %w", id, sql.ErrNoRows)
	}
	return nil
}

var _ store.Store = (*txStore)(nil)

func (tx *txStore) CreateWorkspace(_ context.Context, ws *model.Workspace) error {
	if _, ok := tx.st.workspaces[ws.ID]; ok {
		return fmt.Errorf("%w: workspace id %q exists", store.ErrUniqueViolation, ws.ID)
	}
	for _, existing := range tx.st.workspaces {
		if existing.Name == ws.Name {
			return fmt.Errorf("%w: workspace name %q exists", store.ErrUniqueViolation, ws.Name)
		}
	}
	now := tx.now()
	ws.CreatedAt, ws.UpdatedAt = now, now
	tx.st.workspaces[ws.ID] = *ws
	return nil
}

func (tx *txStore) GetWorkspace(_ context.Context, id string) (*model.Workspace, error) {
	ws, ok := tx.st.workspaces[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &ws, nil
}

func (tx *txStore) ListWorkspaces(_ context.Context) ([]*model.Workspace, error) {
	out := make([]*model.Workspace, 0, len(tx.st.workspaces))
	for _, ws := range tx.st.workspaces {
		out = append(out, &ws)
	}
	slices.SortFunc(out, func(a, b *model.Workspace) int { return cmp.Compare(a.Name, b.Name) })
	return out, nil
}

func (tx *txStore) GetJourney(_ context.Context, id string) (*model.Journey, error) {
	j, ok := tx.st.journeys[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &j, nil
}

func (tx *txStore) ListJourneys(_ context.Context, workspaceID string, ids []string) ([]*model.Journey, error) {
	var out []*model.Journey
	for _, j := range tx.st.journeys {
		if j.WorkspaceID != workspaceID || (len(ids) > 0 && !slices.Contains(ids, j.ID)) {
			continue
		}
		out = append(out, &j)
	}
	slices.SortFunc(out, func(a, b *model.Journey) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

func (tx *txStore) UpsertJourney(_ context.Context, j *model.Journey) error {
	if err := tx.requireWorkspace(j.WorkspaceID); err != nil {
		return err
	}
	existing, exists := tx.st.journeys[j.ID]
	if exists && existing.WorkspaceID != j.WorkspaceID {
		return fmt.Errorf("%w: journey id %q belongs to another workspace", store.ErrUniqueViolation, j.ID)
	}
	for _, other := range tx.st.journeys {
		if other.ID != j.ID && other.WorkspaceID == j.WorkspaceID && other.Name == j.Name {
			return fmt.Errorf("%w: journey name %q exists", store.ErrUniqueViolation, j.Name)
		}
	}
	now := tx.now()
	if exists {
		j.CreatedAt = existing.CreatedAt
		j.ResourceType = existing.ResourceType
	} else {
		j.CreatedAt = now
		if j.ResourceType == "" {
			j.ResourceType = model.ResourceDeclarative
		}
	}
	j.UpdatedAt = now
	tx.st.journeys[j.ID] = *j
	return nil
}

func (tx *txStore) DeleteJourney(_ context.Context, workspaceID, id string) error {
	j, ok := tx.st.journeys[id]
	if !ok || j.WorkspaceID != workspaceID {
		return sql.ErrNoRows
	}
	delete(tx.st.journeys, id)
	return nil
}

func (tx *txStore) CreateBroadcast(_ context.Context, b *model.Broadcast) error {
	if err := tx.requireWorkspace(b.WorkspaceID); err != nil {
		return err
	}
	if _, ok := tx.st.broadcasts[b.ID]; ok {
		return fmt.Errorf("%w: broadcast id %q exists", store.ErrUniqueViolation, b.ID)
	}
	for _, other := range tx.st.broadcasts {
		if other.WorkspaceID == b.WorkspaceID && other.Name == b.Name {
			return fmt.Errorf("%w: broadcast name %q exists", store.ErrUniqueViolation, b.Name)
		}
	}
	now := tx.now()
	b.CreatedAt, b.UpdatedAt = now, now
	tx.st.broadcasts[b.ID] = *b
	return nil
}

func (tx *txStore) ListBroadcasts(_ context.Context, workspaceID string, ids []string) ([]*model.Broadcast, error) {
	var out []*model.Broadcast
	for _, b := range tx.st.broadcasts {
		if b.WorkspaceID != workspaceID || (len(ids) > 0 && !slices.Contains(ids, b.ID)) {
			continue
		}
		out = append(out, &b)
	}
	slices.SortFunc(out, func(a, b *model.Broadcast) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

func (tx *txStore) TransitionBroadcast(_ context.Context, workspaceID, id string, from []model.BroadcastStatus, to model.BroadcastStatus) (*model.Broadcast, error) {
	b, ok := tx.st.broadcasts[id]
	if !ok || b.WorkspaceID != workspaceID || !slices.Contains(from, b.Status) {
		return nil, sql.ErrNoRows
	}
	now := tx.now()
	b.Status = to
	b.StatusUpdatedAt = &now
	b.UpdatedAt = now
	tx.st.broadcasts[id] = b
	return &b, nil
}

func (tx *txStore) InsertEvents(_ context.Context, events []*model.Event) (int, error) {
	for _, e := range events {
		if err := tx.requireWorkspace(e.WorkspaceID); err != nil {
			return 0, fmt.Errorf("insert event %s: %w", e.MessageID, err)
		}
	}
	inserted := 0
	for _, e := range events {
		key := eventKey{e.WorkspaceID, e.MessageID}
		if tx.st.eventKeys[key] {
			continue
		}
		row := *e
		if row.EventType == "" {
			row.EventType = model.EventTypeTrack
		}
		tx.st.eventKeys[key] = true
		tx.st.events = append(tx.st.events, row)
		inserted++
	}
	return inserted, nil
}

func (tx *txStore) ListEvents(_ context.Context, filter model.EventFilter) ([]*model.Event, error) {
	var out []*model.Event
	for i := len(tx.st.events) - 1; i >= 0; i-- {
		e := tx.st.events[i]
		if e.WorkspaceID != filter.WorkspaceID ||
			(filter.UserID != "" && e.UserID != filter.UserID) ||
			(filter.Event != "" && e.Event != filter.Event) {
			continue
		}
		out = append(out, &e)
	}
	slices.SortStableFunc(out, func(a, b *model.Event) int { return b.Timestamp.Compare(a.Timestamp) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// lifecycleProperties are the properties message stats read from an event.
type lifecycleProperties struct {
	JourneyID string `json:"journey_id"`
	NodeID    string `json:"node_id"`
	MessageID string `json:"message_id"`
}

func (tx *txStore) ListMessageEvents(_ context.Context, workspaceID string, journeyIDs []string) ([]*model.MessageEvent, error) {
	var out []*model.MessageEvent
	for _, e := range tx.st.events {
		if e.WorkspaceID != workspaceID || !slices.Contains(model.MessageLifecycleEvents, e.Event) || len(e.Properties) == 0 {
			continue
		}
		var props lifecycleProperties
		if err := json.Unmarshal(e.Properties, &props); err != nil {
			continue
		}
		if !slices.Contains(journeyIDs, props.JourneyID) {
			continue
		}
		ref := cmp.Or(props.MessageID, e.MessageID)
		out = append(out, &model.MessageEvent{
			JourneyID: props.JourneyID,
			NodeID:    props.NodeID,
			MessageID: ref,
			Event:     e.Event,
			Timestamp: e.Timestamp,
		})
	}
	slices.SortStableFunc(out, func(a, b *model.MessageEvent) int { return a.Timestamp.Compare(b.Timestamp) })
	return out, nil
}

func (tx *txStore) RecordNodeProcessed(_ context.Context, np *model.NodeProcessed) error {
	if err := tx.requireWorkspace(np.WorkspaceID); err != nil {
		return err
	}
	// Runs are identified to the millisecond, matching the node event id.
	key := processedKey{np.WorkspaceID, np.JourneyID, np.UserID, np.NodeID, np.JourneyStartedAt.UnixMilli()}
	if _, ok := tx.st.processed[key]; ok {
		return nil
	}
	tx.st.processed[key] = *np
	return nil
}

func (tx *txStore) CountNodeProcessed(_ context.Context, workspaceID string, journeyIDs []string) ([]*model.NodeProcessedCount, error) {
	type nodeKey struct{ journeyID, nodeID string }
	users := make(map[nodeKey]map[string]bool)
	for _, np := range tx.st.processed {
		if np.WorkspaceID != workspaceID || !slices.Contains(journeyIDs, np.JourneyID) {
			continue
		}
		k := nodeKey{np.JourneyID, np.NodeID}
		if users[k] == nil {
			users[k] = make(map[string]bool)
		}
		users[k][np.UserID] = true
	}
	out := make([]*model.NodeProcessedCount, 0, len(users))
	for k, set := range users {
		out = append(out, &model.NodeProcessedCount{JourneyID: k.journeyID, NodeID: k.nodeID, Users: len(set)})
	}
	slices.SortFunc(out, func(a, b *model.NodeProcessedCount) int {
		return cmp.Or(cmp.Compare(a.JourneyID, b.JourneyID), cmp.Compare(a.NodeID, b.NodeID))
	})
	return out, nil
}

func (tx *txStore) RunInTransaction(_ context.Context, fn func(tx store.Store) error) error {
	return fn(tx)
}

func (tx *txStore) Close() error {
	return nil
}
