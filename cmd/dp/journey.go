package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/alfredjeanlab/dispatch/internal/client"
	"github.com/alfredjeanlab/dispatch/internal/journeys"
	"github.com/alfredjeanlab/dispatch/internal/model"
	"github.com/spf13/cobra"
)

var journeyCmd = &cobra.Command{
	Use:     "journey",
	Aliases: []string{"j"},
	Short:   "Manage journeys and read their stats",
	GroupID: "journeys",
}

// readInput reads path, or stdin when path is "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

var journeyUpsertCmd = &cobra.Command{
	Use:   "upsert",
	Short: "Create or update a journey",
	Long: `Create or update a journey. Flags that are not given leave the stored
value unchanged. The definition file holds the journey's node graph as JSON.

Examples:
  dp journey upsert --name Welcome --definition welcome.json
  dp journey upsert --id j-1 --status Running`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := requireWorkspace()
		if err != nil {
			return err
		}
		req := &client.UpsertJourneyRequest{WorkspaceID: ws}
		req.ID, _ = cmd.Flags().GetString("id")
		req.Name, _ = cmd.Flags().GetString("name")
		status, _ := cmd.Flags().GetString("status")
		req.Status = model.JourneyStatus(status)

		if path, _ := cmd.Flags().GetString("definition"); path != "" {
			data, err := readInput(cmd, path)
			if err != nil {
				return fmt.Errorf("reading definition: %w", err)
			}
			var def model.JourneyDefinition
			if err := json.Unmarshal(data, &def); err != nil {
				return fmt.Errorf("parsing definition: %w", err)
			}
			req.Definition = &def
		}
		if path, _ := cmd.Flags().GetString("draft"); path != "" {
			data, err := readInput(cmd, path)
			if err != nil {
				return fmt.Errorf("reading draft: %w", err)
			}
			if !json.Valid(data) {
				return fmt.Errorf("draft is not valid JSON")
			}
			req.Draft = data
		}
		if cmd.Flags().Changed("multiple") {
			multiple, _ := cmd.Flags().GetBool("multiple")
			req.CanRunMultiple = &multiple
		}

		j, err := dpClient.UpsertJourney(cmd.Context(), req)
		if err != nil {
			return fmt.Errorf("upserting journey: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), j)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved journey %s (%s)\n", j.ID, statusText(j.Status.String()))
		return nil
	},
}

var journeyListCmd = &cobra.Command{
	Use:   "list [<id>...]",
	Short: "List journeys in the workspace",
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := requireWorkspace()
		if err != nil {
			return err
		}
		js, err := dpClient.ListJourneys(cmd.Context(), ws, args)
		if err != nil {
			return fmt.Errorf("listing journeys: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), js)
		}
		printJourneys(cmd.OutOrStdout(), js)
		return nil
	},
}

var journeyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a journey and its definition",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := requireWorkspace()
		if err != nil {
			return err
		}
		j, err := dpClient.GetJourney(cmd.Context(), ws, args[0])
		if err != nil {
			return fmt.Errorf("getting journey: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), j)
		}
		printJourney(cmd.OutOrStdout(), j)
		return nil
	},
}

var journeyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a journey",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := requireWorkspace()
		if err != nil {
			return err
		}
		if err := dpClient.DeleteJourney(cmd.Context(), ws, args[0]); err != nil {
			return fmt.Errorf("deleting journey: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted journey %s\n", args[0])
		return nil
	},
}

var journeyStatsCmd = &cobra.Command{
	Use:   "stats [<id>...]",
	Short: "Show per-node stats for journeys (all journeys when no id is given)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := requireWorkspace()
		if err != nil {
			return err
		}
		ids := args
		if len(ids) == 0 {
			js, err := dpClient.ListJourneys(cmd.Context(), ws, nil)
			if err != nil {
				return fmt.Errorf("listing journeys: %w", err)
			}
			for _, j := range js {
				ids = append(ids, j.ID)
			}
		}
		stats, err := dpClient.GetJourneysStats(cmd.Context(), ws, ids)
		if err != nil {
			return fmt.Errorf("getting journey stats: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), stats)
		}
		printJourneyStats(cmd.OutOrStdout(), stats)
		return nil
	},
}

// parseNodes parses "node=Channel,node=Channel".
func parseNodes(s string) ([]journeys.MessageStatsNode, error) {
	var nodes []journeys.MessageStatsNode
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, ch, ok := strings.Cut(part, "=")
		if !ok || id == "" || !model.ChannelType(ch).IsValid() {
			return nil, fmt.Errorf("invalid node %q (want <node-id>=<channel>)", part)
		}
		nodes = append(nodes, journeys.MessageStatsNode{ID: id, Channel: model.ChannelType(ch)})
	}
	return nodes, nil
}

// messageStatsJourneys builds the message-stats request from the message
// nodes of each journey's stored definition.
func messageStatsJourneys(cmd *cobra.Command, ws string, ids []string) ([]journeys.MessageStatsJourney, error) {
	js, err := dpClient.ListJourneys(cmd.Context(), ws, ids)
	if err != nil {
		return nil, fmt.Errorf("listing journeys: %w", err)
	}
	out := make([]journeys.MessageStatsJourney, 0, len(js))
	for _, j := range js {
		msj := journeys.MessageStatsJourney{ID: j.ID}
		if j.Definition != nil {
			for _, n := range j.Definition.MessageNodes() {
				msj.Nodes = append(msj.Nodes, journeys.MessageStatsNode{ID: n.ID, Channel: n.Channel()})
			}
		}
		out = append(out, msj)
	}
	return out, nil
}

var journeyMessageStatsCmd = &cobra.Command{
	Use:   "message-stats <id>...",
	Short: "Show delivery stats for a journey's message nodes",
	Long: `Show delivery stats for message nodes. By default the message nodes are
read from each journey's definition. --nodes names them explicitly for a
single journey, which also works over the gRPC transport.

Examples:
  dp journey message-stats j-1 j-2
  dp --transport grpc journey message-stats j-1 --nodes n1=Email,n2=Sms`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := requireWorkspace()
		if err != nil {
			return err
		}

		var req []journeys.MessageStatsJourney
		if list, _ := cmd.Flags().GetString("nodes"); list != "" {
			if len(args) != 1 {
				return fmt.Errorf("--nodes takes exactly one journey id")
			}
			nodes, err := parseNodes(list)
			if err != nil {
				return err
			}
			req = []journeys.MessageStatsJourney{{ID: args[0], Nodes: nodes}}
		} else if req, err = messageStatsJourneys(cmd, ws, args); err != nil {
			return err
		}

		stats, err := dpClient.GetJourneyMessageStats(cmd.Context(), ws, req)
		if err != nil {
			return fmt.Errorf("getting message stats: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), stats)
		}
		printMessageStats(cmd.OutOrStdout(), stats)
		return nil
	},
}

var journeyNodeProcessedCmd = &cobra.Command{
	Use:   "node-processed <journey-id> <user-id> <node-id>",
	Short: "Record that a user passed through a journey node",
	Long: `Record that a user passed through a journey node. The node is looked up
in the journey's stored definition; "EntryNode" and "ExitNode" address the
entry and exit nodes. --started-at identifies the user's run through the
journey, so recording the same node twice for one run is a no-op.

Examples:
  dp journey node-processed j-1 user-1 n1 --started-at 2024-05-01T10:00:00Z`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := requireWorkspace()
		if err != nil {
			return err
		}
		journeyID, userID, nodeID := args[0], args[1], args[2]
		startedFlag, _ := cmd.Flags().GetString("started-at")
		startedAt, err := time.Parse(time.RFC3339, startedFlag)
		if err != nil {
			return fmt.Errorf("invalid --started-at: %w", err)
		}

		j, err := dpClient.GetJourney(cmd.Context(), ws, journeyID)
		if err != nil {
			return fmt.Errorf("getting journey: %w", err)
		}
		if j.Definition == nil {
			return fmt.Errorf("journey %s has no definition", journeyID)
		}
		var node model.JourneyNode
		switch nodeID {
		case model.EntryNodeID:
			node = j.Definition.EntryNode
		case model.ExitNodeID:
			node = j.Definition.ExitNode
		default:
			n := j.Definition.NodeByID(nodeID)
			if n == nil {
				return fmt.Errorf("journey %s has no node %q", journeyID, nodeID)
			}
			node = *n
		}

		np, err := dpClient.RecordNodeProcessed(cmd.Context(), &client.RecordNodeProcessedRequest{
			WorkspaceID:      ws,
			JourneyID:        journeyID,
			UserID:           userID,
			Node:             node,
			JourneyStartedAt: startedAt,
		})
		if err != nil {
			return fmt.Errorf("recording node: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), np)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s at %s for %s\n", nodeID, journeyID, userID)
		return nil
	},
}

func init() {
	journeyUpsertCmd.Flags().String("id", "", "journey id (generated when empty)")
	journeyUpsertCmd.Flags().String("name", "", "journey name")
	journeyUpsertCmd.Flags().String("status", "", "journey status (NotStarted, Running, Paused, Broadcast)")
	journeyUpsertCmd.Flags().String("definition", "", "path to a JSON journey definition, or - for stdin")
	journeyUpsertCmd.Flags().String("draft", "", "path to a JSON draft, or - for stdin")
	journeyUpsertCmd.Flags().Bool("multiple", false, "allow users to enter the journey more than once")

	journeyNodeProcessedCmd.Flags().String("started-at", "", "when the user entered the journey (RFC 3339)")
	_ = journeyNodeProcessedCmd.MarkFlagRequired("started-at")

	journeyMessageStatsCmd.Flags().String("nodes", "", "message nodes as <node-id>=<channel>, comma separated")

	journeyCmd.AddCommand(journeyUpsertCmd)
	journeyCmd.AddCommand(journeyListCmd)
	journeyCmd.AddCommand(journeyShowCmd)
	journeyCmd.AddCommand(journeyDeleteCmd)
	journeyCmd.AddCommand(journeyStatsCmd)
	journeyCmd.AddCommand(journeyMessageStatsCmd)
	journeyCmd.AddCommand(journeyNodeProcessedCmd)
}
