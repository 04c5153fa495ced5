// Package hooks runs operator shell commands in response to dispatch events.
package hooks

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Default and max timeout for hook commands.
const (
	DefaultTimeout = 30 * time.Second
	MaxTimeout     = 300 * time.Second
)

// Result holds the output of running a single hook command.
type Result struct {
	Command  string
	Output   string
	Duration time.Duration
	Err      error
}

func clampTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultTimeout
	}
	return min(d, MaxTimeout)
}

// Execute runs command via "sh -c" with the given timeout. The process
// environment is inherited with env overlaid on top.
func Execute(ctx context.Context, command string, timeout time.Duration, env map[string]string) Result {
	hookCtx, cancel := context.WithTimeout(ctx, clampTimeout(timeout))
	defer cancel()

	cmd := exec.CommandContext(hookCtx, "sh", "-c", command) //nolint:gosec // commands come from server configuration
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	cmd.Env = os.Environ()
	for k, v := range env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	start := time.Now()
	err := cmd.Run()
	output := strings.TrimSpace(stdout.String())
	if output == "" {
		output = strings.TrimSpace(stderr.String())
	}

	return Result{Command: command, Output: output, Duration: time.Since(start), Err: err}
}
