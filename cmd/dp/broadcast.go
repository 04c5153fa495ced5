package main

import (
	"context"
	"fmt"
	"time"

	"github.com/alfredjeanlab/dispatch/internal/client"
	"github.com/alfredjeanlab/dispatch/internal/model"
	"github.com/spf13/cobra"
)

var broadcastCmd = &cobra.Command{
	Use:     "broadcast",
	Aliases: []string{"bc"},
	Short:   "Manage broadcasts",
	GroupID: "broadcasts",
}

var broadcastCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a broadcast",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := requireWorkspace()
		if err != nil {
			return err
		}
		req := &client.CreateBroadcastRequest{WorkspaceID: ws, Name: args[0]}
		req.SegmentID, _ = cmd.Flags().GetString("segment")
		req.TemplateID, _ = cmd.Flags().GetString("template")
		channel, _ := cmd.Flags().GetString("channel")
		req.Channel = model.ChannelType(channel)
		status, _ := cmd.Flags().GetString("status")
		req.Status = model.BroadcastStatus(status)
		if at, _ := cmd.Flags().GetString("scheduled-at"); at != "" {
			t, err := time.Parse(time.RFC3339, at)
			if err != nil {
				return fmt.Errorf("invalid --scheduled-at: %w", err)
			}
			req.ScheduledAt = &t
		}

		b, err := dpClient.CreateBroadcast(cmd.Context(), req)
		if err != nil {
			return fmt.Errorf("creating broadcast: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), b)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created broadcast %s (%s)\n", b.ID, statusText(b.Status.String()))
		return nil
	},
}

var broadcastListCmd = &cobra.Command{
	Use:   "list [<id>...]",
	Short: "List broadcasts in the workspace",
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := requireWorkspace()
		if err != nil {
			return err
		}
		bs, err := dpClient.ListBroadcasts(cmd.Context(), ws, args)
		if err != nil {
			return fmt.Errorf("listing broadcasts: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), bs)
		}
		printBroadcasts(cmd.OutOrStdout(), bs)
		return nil
	},
}

// newActionCmd returns a command that applies action to one broadcast.
func newActionCmd(action model.BroadcastAction, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(action) + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := requireWorkspace()
			if err != nil {
				return err
			}
			resp, err := dpClient.BroadcastAction(cmd.Context(), action, ws, args[0])
			if err != nil {
				return fmt.Errorf("%s broadcast: %w", action, err)
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), resp)
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
			return nil
		},
	}
}

// runMutation pauses or resumes a broadcast through a BroadcastStatusMutation.
// The broadcast is loaded into a fresh cache first so the optimistic status
// can be reported and rolled back, and is re-read once the action settles.
func runMutation(cmd *cobra.Command, newMutation func(client.BroadcastActioner, *client.QueryCache[[]*model.Broadcast], string) *client.BroadcastStatusMutation, broadcastID string) error {
	ws, err := requireWorkspace()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()

	cache := client.NewQueryCache[[]*model.Broadcast]()
	key := client.BroadcastQueryKey(ws, broadcastID)
	fetch := func(ctx context.Context) ([]*model.Broadcast, error) {
		return dpClient.ListBroadcasts(ctx, ws, []string{broadcastID})
	}
	if _, err := cache.Fetch(ctx, key, fetch); err != nil {
		return fmt.Errorf("loading broadcast: %w", err)
	}

	m := newMutation(dpClient, cache, ws)
	m.InvalidateDelay, _ = cmd.Flags().GetDuration("settle")
	m.OnMutate = func(id string) error {
		if cached, ok := cache.GetQueryData(key); ok && len(cached) == 1 && !jsonOutput {
			fmt.Fprintf(errOut, "%s %s: %s\n", m.Action, id, statusText(cached[0].Status.String()))
		}
		return nil
	}
	m.OnError = func(err error, id string, previous *model.Broadcast) {
		if previous != nil && !jsonOutput {
			fmt.Fprintf(errOut, "%s %s failed, status back to %s\n", m.Action, id, statusText(previous.Status.String()))
		}
	}

	resp, err := m.Mutate(ctx, broadcastID)
	if err != nil {
		return fmt.Errorf("%s broadcast: %w", m.Action, err)
	}
	if jsonOutput {
		return printJSON(out, resp)
	}
	fmt.Fprintln(out, resp.Message)
	if cached, ok := cache.GetQueryData(key); ok && len(cached) == 1 && !cache.IsStale(key) {
		fmt.Fprintf(out, "Status: %s\n", statusText(cached[0].Status.String()))
	}
	return nil
}

var broadcastPauseCmd = &cobra.Command{
	Use:   "pause <id>",
	Short: "Pause a running broadcast",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMutation(cmd, client.NewPauseBroadcastMutation, args[0])
	},
}

var broadcastResumeCmd = &cobra.Command{
	Use:   "resume <id>",
	Short: "Resume a paused broadcast",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMutation(cmd, client.NewResumeBroadcastMutation, args[0])
	},
}

func init() {
	broadcastCreateCmd.Flags().String("segment", "", "segment id")
	broadcastCreateCmd.Flags().String("template", "", "template id")
	broadcastCreateCmd.Flags().String("channel", "", "message channel (Email, Sms, MobilePush, Webhook)")
	broadcastCreateCmd.Flags().String("status", "", "initial status (default Draft)")
	broadcastCreateCmd.Flags().String("scheduled-at", "", "send time (RFC 3339)")

	for _, c := range []*cobra.Command{broadcastPauseCmd, broadcastResumeCmd} {
		c.Flags().Duration("settle", client.DefaultInvalidateDelay, "wait before re-reading the broadcast")
	}

	broadcastCmd.AddCommand(broadcastCreateCmd)
	broadcastCmd.AddCommand(broadcastListCmd)
	broadcastCmd.AddCommand(newActionCmd(model.BroadcastStart, "Start a draft or scheduled broadcast"))
	broadcastCmd.AddCommand(broadcastPauseCmd)
	broadcastCmd.AddCommand(broadcastResumeCmd)
	broadcastCmd.AddCommand(newActionCmd(model.BroadcastCancel, "Cancel a broadcast"))
}
