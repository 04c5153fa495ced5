package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alfredjeanlab/dispatch/internal/client"
	"github.com/alfredjeanlab/dispatch/internal/model"
	"github.com/spf13/cobra"
)

var trackCmd = &cobra.Command{
	Use:     "track [<event>]",
	Short:   "Submit tracked events",
	GroupID: "events",
	Long: `Submit one tracked event, or a file of events with --file.

The file holds one JSON event per line with the same fields as the track
API (user_id, anonymous_id, message_id, event, timestamp, properties,
context). It is sent in batches of --batch-size.

Examples:
  dp track signed_up --user u-1 --properties '{"plan":"pro"}'
  dp track --file events.jsonl`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := requireWorkspace()
		if err != nil {
			return err
		}
		if path, _ := cmd.Flags().GetString("file"); path != "" {
			if len(args) > 0 {
				return fmt.Errorf("give either an event name or --file, not both")
			}
			return trackFile(cmd, ws, path)
		}
		if len(args) == 0 {
			return fmt.Errorf("an event name or --file is required")
		}

		req := &client.TrackRequest{WorkspaceID: ws}
		req.Event = args[0]
		req.UserID, _ = cmd.Flags().GetString("user")
		req.AnonymousID, _ = cmd.Flags().GetString("anonymous")
		req.MessageID, _ = cmd.Flags().GetString("message-id")
		if props, _ := cmd.Flags().GetString("properties"); props != "" {
			req.Properties = json.RawMessage(props)
		}
		if c, _ := cmd.Flags().GetString("context"); c != "" {
			req.Context = json.RawMessage(c)
		}
		if at, _ := cmd.Flags().GetString("timestamp"); at != "" {
			t, err := time.Parse(time.RFC3339, at)
			if err != nil {
				return fmt.Errorf("invalid --timestamp: %w", err)
			}
			req.Timestamp = &t
		}

		resp, err := dpClient.Track(cmd.Context(), req)
		if err != nil {
			return fmt.Errorf("tracking event: %w", err)
		}
		return printTrackResponse(cmd, resp, 1)
	},
}

func printTrackResponse(cmd *cobra.Command, resp *client.TrackResponse, submitted int) error {
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), resp)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Inserted %d of %d events\n", resp.Inserted, submitted)
	for _, id := range resp.MessageIDs {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", id)
	}
	return nil
}

// trackFile submits a JSONL file of events in batches.
func trackFile(cmd *cobra.Command, ws, path string) error {
	data, err := readInput(cmd, path)
	if err != nil {
		return fmt.Errorf("reading events: %w", err)
	}
	size, _ := cmd.Flags().GetInt("batch-size")
	if size <= 0 {
		return fmt.Errorf("--batch-size must be positive")
	}

	var all []model.TrackData
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for line := 1; sc.Scan(); line++ {
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		var d model.TrackData
		if err := json.Unmarshal(raw, &d); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		all = append(all, d)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("reading events: %w", err)
	}
	if len(all) == 0 {
		return fmt.Errorf("no events in %s", path)
	}

	total := &client.TrackResponse{}
	for start := 0; start < len(all); start += size {
		end := min(start+size, len(all))
		resp, err := dpClient.Batch(cmd.Context(), ws, all[start:end])
		if err != nil {
			return fmt.Errorf("submitting events %d-%d: %w", start+1, end, err)
		}
		total.Inserted += resp.Inserted
		total.MessageIDs = append(total.MessageIDs, resp.MessageIDs...)
	}
	return printTrackResponse(cmd, total, len(all))
}

var eventsCmd = &cobra.Command{
	Use:     "events",
	Short:   "List tracked events in the workspace",
	GroupID: "events",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := requireWorkspace()
		if err != nil {
			return err
		}
		req := &client.ListEventsRequest{WorkspaceID: ws}
		req.UserID, _ = cmd.Flags().GetString("user")
		req.Event, _ = cmd.Flags().GetString("event")
		req.Limit, _ = cmd.Flags().GetInt("limit")

		evs, err := dpClient.ListEvents(cmd.Context(), req)
		if err != nil {
			return fmt.Errorf("listing events: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), evs)
		}
		printEvents(cmd.OutOrStdout(), evs)
		return nil
	},
}

func init() {
	trackCmd.Flags().String("user", "", "user id")
	trackCmd.Flags().String("anonymous", "", "anonymous id")
	trackCmd.Flags().String("message-id", "", "idempotency key (generated when empty)")
	trackCmd.Flags().String("properties", "", "event properties as a JSON object")
	trackCmd.Flags().String("context", "", "event context as a JSON object")
	trackCmd.Flags().String("timestamp", "", "event time (RFC 3339, default now)")
	trackCmd.Flags().String("file", "", "JSONL file of events, or - for stdin")
	trackCmd.Flags().Int("batch-size", 500, "events per batch request with --file")

	eventsCmd.Flags().String("user", "", "only events for this user")
	eventsCmd.Flags().String("event", "", "only events with this name")
	eventsCmd.Flags().Int("limit", 50, "maximum number of events")
}
