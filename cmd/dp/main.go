package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/alfredjeanlab/dispatch/internal/client"
	"github.com/alfredjeanlab/dispatch/internal/ui"
	"github.com/spf13/cobra"
)

var (
	serverAddr  string
	httpURL     string
	transport   string
	token       string
	workspaceID string
	jsonOutput  bool
	noColorFlag bool

	dpClient client.DispatchClient
)

func defaultHTTPURL() string {
	if s := os.Getenv("DISPATCH_HTTP_URL"); s != "" {
		return s
	}
	if u := activeRemoteURL(); u != "" {
		return u
	}
	return "http://localhost:8080"
}

func defaultServer() string {
	if s := os.Getenv("DISPATCH_SERVER"); s != "" {
		return s
	}
	return "localhost:9090"
}

func defaultToken() string {
	if s := os.Getenv("DISPATCH_TOKEN"); s != "" {
		return s
	}
	return activeRemoteToken()
}

func defaultWorkspace() string {
	if s := os.Getenv("DISPATCH_WORKSPACE"); s != "" {
		return s
	}
	return activeRemoteWorkspace()
}

// requireWorkspace returns the --workspace value or an error naming the
// ways to set it.
func requireWorkspace() (string, error) {
	if workspaceID == "" {
		return "", fmt.Errorf("no workspace: pass --workspace, set DISPATCH_WORKSPACE, or add one to the active remote")
	}
	return workspaceID, nil
}

var rootCmd = &cobra.Command{
	Use:           "dp <command>",
	Short:         "CLI client for the dispatch service",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if noColorFlag {
			ui.ForceNoColor()
		}
		switch transport {
		case "http":
			dpClient = client.NewHTTPClient(httpURL, token)
		case "grpc":
			c, err := client.NewGRPCClient(serverAddr, token)
			if err != nil {
				return fmt.Errorf("failed to connect to server: %w", err)
			}
			dpClient = c
		default:
			return fmt.Errorf("unknown transport %q (must be http or grpc)", transport)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if dpClient != nil {
			dpClient.Close()
			dpClient = nil
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&httpURL, "http-url", defaultHTTPURL(), "HTTP server URL")
	rootCmd.PersistentFlags().StringVar(&serverAddr, "server", defaultServer(), "gRPC server address")
	rootCmd.PersistentFlags().StringVar(&transport, "transport", "http", "transport protocol (http or grpc)")
	rootCmd.PersistentFlags().StringVar(&token, "token", defaultToken(), "bearer token for authentication")
	rootCmd.PersistentFlags().StringVarP(&workspaceID, "workspace", "w", defaultWorkspace(), "workspace id")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVar(&noColorFlag, "no-color", false, "disable colored output")

	rootCmd.AddGroup(
		&cobra.Group{ID: "journeys", Title: "Journeys:"},
		&cobra.Group{ID: "broadcasts", Title: "Broadcasts:"},
		&cobra.Group{ID: "events", Title: "Events:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)

	cobra.EnableCommandSorting = false
	rootCmd.SetHelpFunc(colorizedHelpFunc())

	// Journeys
	rootCmd.AddCommand(workspaceCmd)
	rootCmd.AddCommand(journeyCmd)

	// Broadcasts
	rootCmd.AddCommand(broadcastCmd)

	// Events
	rootCmd.AddCommand(trackCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(watchCmd)

	// System
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(remoteCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		prefix := "Error:"
		if ui.UseColorFor(os.Stderr) {
			prefix = ui.RenderError(prefix)
		}
		fmt.Fprintln(os.Stderr, prefix, err)
		os.Exit(1)
	}
}
