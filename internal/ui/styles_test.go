package ui

import (
	"strings"
	"testing"
)

func TestRenderStatus(t *testing.T) {
	t.Cleanup(func() { noColor = false })
	noColor = false

	for _, tc := range []struct {
		status string
		color  string
	}{
		{"Running", "114"},
		{"Paused", "179"},
		{"Draft", "179"},
		{"Cancelled", "167"},
		{"Broadcast", "245"},
	} {
		got := RenderStatus(tc.status)
		if !strings.Contains(got, "38;5;"+tc.color+"m") || !strings.Contains(got, tc.status) {
			t.Errorf("RenderStatus(%q) = %q, want color %s", tc.status, got, tc.color)
		}
	}
}

func TestForceNoColor(t *testing.T) {
	t.Cleanup(func() { noColor = false })
	ForceNoColor()
	if got := RenderStatus("Running"); got != "Running" {
		t.Errorf("RenderStatus = %q, want plain text", got)
	}
	if got := RenderAccent("x"); got != "x" {
		t.Errorf("RenderAccent = %q, want plain text", got)
	}
}
