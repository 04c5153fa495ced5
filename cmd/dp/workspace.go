package main

import (
	"fmt"

	"github.com/alfredjeanlab/dispatch/internal/client"
	"github.com/spf13/cobra"
)

var workspaceCmd = &cobra.Command{
	Use:     "workspace",
	Aliases: []string{"ws"},
	Short:   "Manage workspaces",
	GroupID: "journeys",
}

var workspaceCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a workspace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, _ := cmd.Flags().GetString("id")
		ws, err := dpClient.CreateWorkspace(cmd.Context(), &client.CreateWorkspaceRequest{ID: id, Name: args[0]})
		if err != nil {
			return fmt.Errorf("creating workspace: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), ws)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created workspace %s (%s)\n", ws.ID, ws.Name)
		return nil
	},
}

var workspaceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List workspaces",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := dpClient.ListWorkspaces(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing workspaces: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), ws)
		}
		printWorkspaces(cmd.OutOrStdout(), ws)
		return nil
	},
}

var workspaceShowCmd = &cobra.Command{
	Use:   "show [<id>]",
	Short: "Show a workspace (defaults to --workspace)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := workspaceID
		if len(args) == 1 {
			id = args[0]
		}
		if id == "" {
			return fmt.Errorf("no workspace given")
		}
		ws, err := dpClient.GetWorkspace(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("getting workspace: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), ws)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "ID:          %s\n", ws.ID)
		fmt.Fprintf(out, "Name:        %s\n", ws.Name)
		fmt.Fprintf(out, "Created At:  %s\n", formatTime(ws.CreatedAt))
		return nil
	},
}

func init() {
	workspaceCreateCmd.Flags().String("id", "", "workspace id (generated when empty)")

	workspaceCmd.AddCommand(workspaceCreateCmd)
	workspaceCmd.AddCommand(workspaceListCmd)
	workspaceCmd.AddCommand(workspaceShowCmd)
}
