package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alfredjeanlab/dispatch/internal/model"
)

// ErrWorkspaceUnavailable is returned when a mutation runs before a
// workspace has been selected.
var ErrWorkspaceUnavailable = errors.New("workspace not available")

// DefaultInvalidateDelay is how long a successful mutation waits before
// refreshing broadcast queries, giving the server time to settle.
const DefaultInvalidateDelay = 2 * time.Second

// BroadcastActioner is the subset of DispatchClient a broadcast mutation
// needs.
type BroadcastActioner interface {
	BroadcastAction(ctx context.Context, action model.BroadcastAction, workspaceID, broadcastID string) (*model.MessageResponse, error)
}

// BroadcastStatusMutation applies a broadcast action with an optimistic
// update of the cached broadcast, rolling back if the call fails.
type BroadcastStatusMutation struct {
	Client      BroadcastActioner
	Cache       *QueryCache[[]*model.Broadcast]
	WorkspaceID string
	Action      model.BroadcastAction

	InvalidateDelay time.Duration

	// Optional callbacks. OnMutate runs after the optimistic write and
	// before the API call; an error from it is handled like an API error.
	// previous is the cached broadcast before the optimistic update, or nil
	// when none was cached.
	OnMutate  func(broadcastID string) error
	OnError   func(err error, broadcastID string, previous *model.Broadcast)
	OnSuccess func(resp *model.MessageResponse, broadcastID string)

	sleep func(ctx context.Context, d time.Duration) error
}

// NewResumeBroadcastMutation returns a mutation that resumes a paused broadcast.
func NewResumeBroadcastMutation(c BroadcastActioner, cache *QueryCache[[]*model.Broadcast], workspaceID string) *BroadcastStatusMutation {
	return newBroadcastMutation(c, cache, workspaceID, model.BroadcastResume)
}

// NewPauseBroadcastMutation returns a mutation that pauses a running broadcast.
func NewPauseBroadcastMutation(c BroadcastActioner, cache *QueryCache[[]*model.Broadcast], workspaceID string) *BroadcastStatusMutation {
	return newBroadcastMutation(c, cache, workspaceID, model.BroadcastPause)
}

func newBroadcastMutation(c BroadcastActioner, cache *QueryCache[[]*model.Broadcast], workspaceID string, action model.BroadcastAction) *BroadcastStatusMutation {
	return &BroadcastStatusMutation{
		Client:          c,
		Cache:           cache,
		WorkspaceID:     workspaceID,
		Action:          action,
		InvalidateDelay: DefaultInvalidateDelay,
		sleep:           sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// BroadcastQueryKey is the cache key of a single broadcast.
func BroadcastQueryKey(workspaceID, broadcastID string) QueryKey {
	return QueryKey{Resource: ResourceBroadcasts, WorkspaceID: workspaceID, IDs: []string{broadcastID}}
}

// Mutate runs the action against broadcastID.
//
// If the delay before invalidation is interrupted by ctx, the response is
// returned together with the context error and OnSuccess is not called.
func (m *BroadcastStatusMutation) Mutate(ctx context.Context, broadcastID string) (*model.MessageResponse, error) {
	if m.WorkspaceID == "" {
		if m.OnError != nil {
			m.OnError(ErrWorkspaceUnavailable, broadcastID, nil)
		}
		return nil, ErrWorkspaceUnavailable
	}

	key := BroadcastQueryKey(m.WorkspaceID, broadcastID)
	m.Cache.CancelQueries(key)

	var previous *model.Broadcast
	if cached, ok := m.Cache.GetQueryData(key); ok && len(cached) > 0 {
		previous = cached[0]
	}
	if previous != nil && previous.Version == model.BroadcastVersionV2 {
		_, to := m.Action.Transition()
		optimistic := *previous
		optimistic.Status = to
		m.Cache.SetQueryData(key, []*model.Broadcast{&optimistic})
	}

	var err error
	if m.OnMutate != nil {
		err = m.OnMutate(broadcastID)
	}
	var resp *model.MessageResponse
	if err == nil {
		resp, err = m.call(ctx, broadcastID)
	}
	if err != nil {
		if previous != nil {
			m.Cache.SetQueryData(key, []*model.Broadcast{previous})
		}
		if m.OnError != nil {
			m.OnError(err, broadcastID, previous)
		}
		return nil, err
	}

	if err := m.sleep(ctx, m.InvalidateDelay); err != nil {
		return resp, err
	}
	if err := m.Cache.InvalidateQueries(ctx, ResourceBroadcasts); err != nil {
		slog.Warn("refreshing broadcasts failed", "error", err)
	}
	if m.OnSuccess != nil {
		m.OnSuccess(resp, broadcastID)
	}
	return resp, nil
}

func (m *BroadcastStatusMutation) call(ctx context.Context, broadcastID string) (*model.MessageResponse, error) {
	resp, err := m.Client.BroadcastAction(ctx, m.Action, m.WorkspaceID, broadcastID)
	if err != nil {
		return nil, err
	}
	if err := resp.Validate(); err != nil {
		return nil, fmt.Errorf("API response schema validation failed: %w", err)
	}
	return resp, nil
}
