package ui

import (
	"os"
	"strings"

	"golang.org/x/term"
)

// ShouldUseColor reports whether ANSI colors should be used on stdout.
func ShouldUseColor() bool {
	return UseColorFor(os.Stdout)
}

// UseColorFor reports whether ANSI colors should be written to f. It
// respects ForceNoColor, NO_COLOR, CLICOLOR_FORCE and CLICOLOR before
// falling back to TTY detection.
func UseColorFor(f *os.File) bool {
	if noColor {
		return false
	}
	// https://no-color.org: any non-empty value disables color.
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if strings.TrimSpace(os.Getenv("CLICOLOR_FORCE")) == "1" {
		return true
	}
	if strings.TrimSpace(os.Getenv("CLICOLOR")) == "0" {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
