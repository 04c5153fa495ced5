package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/alfredjeanlab/dispatch/internal/events"
	"github.com/alfredjeanlab/dispatch/internal/model"
	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Short:   "Watch journeys and broadcasts in the workspace for changes",
	GroupID: "events",
	Long: `Print journeys and broadcasts whenever they change. With a NATS URL
(DISPATCH_NATS_URL or the active remote) changes are picked up from server
events; otherwise the server is polled every --interval.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := requireWorkspace()
		if err != nil {
			return err
		}
		interval, _ := cmd.Flags().GetDuration("interval")
		once, _ := cmd.Flags().GetBool("once")

		w := &watcher{workspaceID: ws, out: cmd.OutOrStdout(), seen: make(map[string]time.Time)}
		ctx := cmd.Context()
		if err := w.queryAndPrint(ctx); err != nil {
			return err
		}
		if once {
			return nil
		}

		natsURL := os.Getenv("DISPATCH_NATS_URL")
		if natsURL == "" {
			natsURL = activeRemoteNATSURL()
		}
		if natsURL != "" {
			return w.watchNATS(ctx, natsURL)
		}
		return w.watchPoll(ctx, interval)
	},
}

// watcher prints journeys and broadcasts that are new or whose updated_at
// moved since the last query.
type watcher struct {
	workspaceID string
	out         io.Writer
	seen        map[string]time.Time
}

// watchNATS re-queries with a short debounce whenever an event for the
// workspace arrives, and immediately after a reconnect.
func (w *watcher) watchNATS(ctx context.Context, natsURL string) error {
	reconnectCh := make(chan struct{}, 1)

	sub, err := events.NewNATSSubscriber(natsURL,
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats disconnected", "err", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			slog.Info("nats reconnected")
			select {
			case reconnectCh <- struct{}{}:
			default:
			}
		}),
	)
	if err != nil {
		return fmt.Errorf("connecting to NATS: %w", err)
	}
	defer sub.Close()

	ch, cancel, err := sub.Subscribe(events.TopicAll)
	if err != nil {
		return fmt.Errorf("subscribing to events: %w", err)
	}
	defer cancel()

	debounce := time.NewTimer(0)
	debounce.Stop()
	select {
	case <-debounce.C:
	default:
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if affectsWatch(msg) {
				debounce.Reset(200 * time.Millisecond)
			}
		case <-reconnectCh:
			debounce.Reset(0)
		case <-debounce.C:
			if err := w.queryAndPrint(ctx); err != nil {
				return err
			}
		}
	}
}

// affectsWatch reports whether msg can change a journey or broadcast.
func affectsWatch(msg events.Message) bool {
	for _, pattern := range []string{"dispatch.journey.*", "dispatch.broadcast.*"} {
		if events.TopicMatches(pattern, msg.Topic) {
			return true
		}
	}
	return false
}

func (w *watcher) watchPoll(ctx context.Context, interval time.Duration) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
		if err := w.queryAndPrint(ctx); err != nil {
			return err
		}
	}
}

func (w *watcher) queryAndPrint(ctx context.Context) error {
	js, bs, err := w.queryAndDiff(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	if jsonOutput {
		if len(js) > 0 || len(bs) > 0 {
			return printJSON(w.out, map[string]any{"journeys": js, "broadcasts": bs})
		}
		return nil
	}
	if len(js) > 0 {
		printJourneys(w.out, js)
	}
	if len(bs) > 0 {
		printBroadcasts(w.out, bs)
	}
	return nil
}

func (w *watcher) queryAndDiff(ctx context.Context) ([]*model.Journey, []*model.Broadcast, error) {
	js, err := dpClient.ListJourneys(ctx, w.workspaceID, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("listing journeys: %w", err)
	}
	bs, err := dpClient.ListBroadcasts(ctx, w.workspaceID, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("listing broadcasts: %w", err)
	}
	var changedJ []*model.Journey
	for _, j := range js {
		if w.changed("journey/"+j.ID, j.UpdatedAt) {
			changedJ = append(changedJ, j)
		}
	}
	var changedB []*model.Broadcast
	for _, b := range bs {
		if w.changed("broadcast/"+b.ID, b.UpdatedAt) {
			changedB = append(changedB, b)
		}
	}
	return changedJ, changedB, nil
}

// changed records updatedAt for key and reports whether it is new or moved.
func (w *watcher) changed(key string, updatedAt time.Time) bool {
	prev, ok := w.seen[key]
	w.seen[key] = updatedAt
	return !ok || !updatedAt.Equal(prev)
}

func init() {
	watchCmd.Flags().Duration("interval", 5*time.Second, "poll interval when NATS is not configured")
	watchCmd.Flags().Bool("once", false, "print the current state and exit")
}
