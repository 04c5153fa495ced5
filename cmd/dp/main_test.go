package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"testing"

	"github.com/alfredjeanlab/dispatch/internal/events"
	"github.com/alfredjeanlab/dispatch/internal/server"
	"github.com/alfredjeanlab/dispatch/internal/store/memory"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// resetFlags puts every flag of cmd and its children back to its default,
// since cobra keeps parsed values between Execute calls.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// runDP executes the root command with args and returns stdout and stderr.
func runDP(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

// testServer starts a dispatch HTTP server over a fresh memory store and
// returns the base flags pointing the CLI at it.
func testServer(t *testing.T) (*memory.Store, []string) {
	t.Helper()
	ms := memory.New()
	srv := server.NewDispatchServer(ms, &events.NoopPublisher{})
	ts := httptest.NewServer(srv.NewHTTPHandler(""))
	t.Cleanup(ts.Close)
	return ms, []string{"--http-url", ts.URL, "--token", "", "--transport", "http"}
}

// mustDP runs dp against base flags plus args and fails the test on error.
func mustDP(t *testing.T, base []string, args ...string) string {
	t.Helper()
	out, errOut, err := runDP(t, append(append([]string{}, base...), args...)...)
	if err != nil {
		t.Fatalf("dp %v: %v\nstderr: %s", args, err, errOut)
	}
	return out
}
