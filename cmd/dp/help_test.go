package main

import (
	"strings"
	"testing"
)

func TestColorizeHelpOutput(t *testing.T) {
	in := strings.Join([]string{
		"Usage:",
		"  dp journey upsert [flags]",
		"",
		"Examples:",
		"  dp journey upsert --name Welcome  --definition welcome.json",
		"",
		"Available Commands:",
		"  list        List journeys in the workspace",
		"",
		"Flags:",
		`      --transport string   transport protocol (default "http")`,
		"",
	}, "\n")
	out := colorizeHelpOutput(in)

	if !strings.Contains(out, "\x1b[38;5;74mFlags:\x1b[0m") {
		t.Errorf("section header not colored:\n%q", out)
	}
	if !strings.Contains(out, "  \x1b[38;5;250mlist\x1b[0m  ") {
		t.Errorf("command name not colored:\n%q", out)
	}
	// Example lines are muted as a whole, even with double spaces inside.
	if !strings.Contains(out, "  \x1b[38;5;245mdp journey upsert --name Welcome  --definition welcome.json\x1b[0m") {
		t.Errorf("example not muted:\n%q", out)
	}
	if !strings.Contains(out, "--transport \x1b[38;5;245mstring\x1b[0m") {
		t.Errorf("flag type not muted:\n%q", out)
	}
	if !strings.Contains(out, "\x1b[38;5;245m(default \"http\")\x1b[0m") {
		t.Errorf("default not muted:\n%q", out)
	}
	if strings.Contains(out, "\x00") {
		t.Error("marker byte leaked into output")
	}
}
