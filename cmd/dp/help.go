package main

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/alfredjeanlab/dispatch/internal/ui"
	"github.com/spf13/cobra"
)

// Patterns used to colorize Cobra's help output.
var (
	// Section headers such as "Journeys:" or "Flags:".
	reGroupHeader = regexp.MustCompile(`(?m)^[A-Z][^\n]*:[ \t]*$`)

	// Command names: two-space indent, a word, then at least two spaces.
	reCommand = regexp.MustCompile(`(?m)^(  )(\S+)(  )`)

	// Example invocations: indented lines starting with "dp ".
	reExample = regexp.MustCompile(`(?m)^([ \t]+)(dp [^\n]*)$`)
	reMarked  = regexp.MustCompile("\x00[^\n]*")

	// Flag type annotations, e.g. "--limit int".
	reFlagType = regexp.MustCompile(`(--?\S+\s+)(string|int|duration|strings)\b`)

	// Default values, e.g. (default "http").
	reDefault = regexp.MustCompile(`\(default [^)]*\)`)
)

// colorizedHelpFunc returns a help function that colors Cobra's usage text
// when stdout is a color terminal.
func colorizedHelpFunc() func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		if !ui.ShouldUseColor() {
			_ = cmd.Usage()
			return
		}

		var buf bytes.Buffer
		cmd.SetOut(&buf)
		_ = cmd.Usage()
		cmd.SetOut(out)

		fmt.Fprint(out, colorizeHelpOutput(buf.String()))
	}
}

// colorizeHelpOutput applies ANSI styling to plain-text help.
func colorizeHelpOutput(s string) string {
	s = reGroupHeader.ReplaceAllStringFunc(s, func(match string) string {
		return ui.RenderAccent(strings.TrimSpace(match))
	})

	// Examples go before command names so "  dp journey" is not split.
	s = reExample.ReplaceAllString(s, "$1\x00$2")
	s = reCommand.ReplaceAllStringFunc(s, func(match string) string {
		parts := reCommand.FindStringSubmatch(match)
		return parts[1] + ui.RenderCommand(parts[2]) + parts[3]
	})
	s = reMarked.ReplaceAllStringFunc(s, func(match string) string {
		return ui.RenderMuted(strings.TrimPrefix(match, "\x00"))
	})

	s = reFlagType.ReplaceAllStringFunc(s, func(match string) string {
		parts := reFlagType.FindStringSubmatch(match)
		return parts[1] + ui.RenderMuted(parts[2])
	})
	return reDefault.ReplaceAllStringFunc(s, ui.RenderMuted)
}
