// Package ui holds the terminal styling used by the dp CLI.
package ui

import "fmt"

// ANSI256 color codes.
const (
	colorAccent = 74  // blue
	colorCmd    = 250 // light gray
	colorMuted  = 245 // medium gray
	colorOK     = 114 // green
	colorWarn   = 179 // amber
	colorBad    = 167 // red
)

var noColor bool

func paint(color int, s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", color, s)
}

// RenderAccent returns s in the accent (blue) color.
func RenderAccent(s string) string { return paint(colorAccent, s) }

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string { return paint(colorMuted, s) }

// RenderCommand returns s styled as a command name (light gray).
func RenderCommand(s string) string { return paint(colorCmd, s) }

// RenderError returns s in red.
func RenderError(s string) string { return paint(colorBad, s) }

// RenderStatus colors a journey or broadcast status: running states green,
// paused or pending amber, terminal failures red and everything else muted.
func RenderStatus(status string) string {
	switch status {
	case "Running", "Completed":
		return paint(colorOK, status)
	case "Paused", "Scheduled", "NotStarted", "Draft":
		return paint(colorWarn, status)
	case "Failed", "Cancelled":
		return paint(colorBad, status)
	default:
		return paint(colorMuted, status)
	}
}

// ForceNoColor disables color output globally.
func ForceNoColor() {
	noColor = true
}
