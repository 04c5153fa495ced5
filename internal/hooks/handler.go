package hooks

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alfredjeanlab/dispatch/internal/events"
	"github.com/alfredjeanlab/dispatch/internal/store"
)

// Hook binds a shell command to a topic pattern ("*" and ">" wildcards).
type Hook struct {
	Topic   string
	Command string
	Timeout time.Duration
}

// eventPayload picks out the identifying fields of any dispatch event.
type eventPayload struct {
	WorkspaceID string `json:"workspace_id"`
	JourneyID   string `json:"journey_id"`
	From        string `json:"from"`
	To          string `json:"to"`
	Action      string `json:"action"`
	Journey     *struct {
		ID          string `json:"id"`
		WorkspaceID string `json:"workspace_id"`
		Name        string `json:"name"`
		Status      string `json:"status"`
	} `json:"journey"`
	Broadcast *struct {
		ID          string `json:"id"`
		WorkspaceID string `json:"workspace_id"`
		Status      string `json:"status"`
	} `json:"broadcast"`
}

// Handler runs the hooks whose topic matches each received event.
type Handler struct {
	store  store.Store
	hooks  []Hook
	logger *slog.Logger
}

// NewHandler creates a hook handler. The store is used to look up journey
// names for events that only carry ids.
func NewHandler(s store.Store, hooks []Hook, logger *slog.Logger) *Handler {
	return &Handler{store: s, hooks: hooks, logger: logger}
}

// HandleEvent runs every matching hook in order and returns their results.
// Command failures are logged and reported in the results, never returned.
func (h *Handler) HandleEvent(ctx context.Context, msg events.Message) []Result {
	var matched []Hook
	for _, hook := range h.hooks {
		if events.TopicMatches(hook.Topic, msg.Topic) {
			matched = append(matched, hook)
		}
	}
	if len(matched) == 0 {
		return nil
	}

	env, err := h.env(ctx, msg)
	if err != nil {
		h.logger.Warn("hooks: bad event payload", "topic", msg.Topic, "error", err)
		return nil
	}

	results := make([]Result, 0, len(matched))
	for _, hook := range matched {
		res := Execute(ctx, hook.Command, hook.Timeout, env)
		if res.Err != nil {
			h.logger.Warn("hooks: command failed",
				"topic", msg.Topic, "command", hook.Command, "error", res.Err, "output", res.Output)
		} else {
			h.logger.Info("hooks: command ran",
				"topic", msg.Topic, "command", hook.Command, "duration", res.Duration)
		}
		results = append(results, res)
	}
	return results
}

// env builds the DISPATCH_* variables passed to hook commands.
func (h *Handler) env(ctx context.Context, msg events.Message) (map[string]string, error) {
	var p eventPayload
	if err := json.Unmarshal(msg.Data, &p); err != nil {
		return nil, err
	}

	env := map[string]string{
		"DISPATCH_TOPIC": msg.Topic,
		"DISPATCH_EVENT": string(msg.Data),
	}
	set := func(k, v string) {
		if v != "" {
			env[k] = v
		}
	}

	set("DISPATCH_WORKSPACE_ID", p.WorkspaceID)
	set("DISPATCH_JOURNEY_ID", p.JourneyID)
	set("DISPATCH_STATUS_FROM", p.From)
	set("DISPATCH_STATUS_TO", p.To)
	set("DISPATCH_BROADCAST_ACTION", p.Action)
	if j := p.Journey; j != nil {
		set("DISPATCH_WORKSPACE_ID", j.WorkspaceID)
		set("DISPATCH_JOURNEY_ID", j.ID)
		set("DISPATCH_JOURNEY_NAME", j.Name)
		set("DISPATCH_JOURNEY_STATUS", j.Status)
	}
	if b := p.Broadcast; b != nil {
		set("DISPATCH_WORKSPACE_ID", b.WorkspaceID)
		set("DISPATCH_BROADCAST_ID", b.ID)
		set("DISPATCH_BROADCAST_STATUS", b.Status)
	}

	if id := env["DISPATCH_JOURNEY_ID"]; id != "" && env["DISPATCH_JOURNEY_NAME"] == "" && h.store != nil {
		j, err := h.store.GetJourney(ctx, id)
		switch {
		case err == nil:
			set("DISPATCH_JOURNEY_NAME", j.Name)
			set("DISPATCH_JOURNEY_STATUS", string(j.Status))
		case errors.Is(err, sql.ErrNoRows):
		default:
			h.logger.Warn("hooks: journey lookup failed", "journey_id", id, "error", err)
		}
	}
	return env, nil
}

// StartSubscriber listens for dispatch events and runs matching hooks. It
// blocks until ctx is cancelled or the subscription closes.
func (h *Handler) StartSubscriber(ctx context.Context, sub events.Subscriber) error {
	ch, cancel, err := sub.Subscribe(events.TopicAll)
	if err != nil {
		return fmt.Errorf("hooks: subscribe: %w", err)
	}
	defer cancel()

	h.logger.Info("hooks: subscriber started", "hooks", len(h.hooks))

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("hooks: subscriber stopping")
			return nil
		case msg, ok := <-ch:
			if !ok {
				h.logger.Info("hooks: subscription channel closed")
				return nil
			}
			h.HandleEvent(ctx, msg)
		}
	}
}
