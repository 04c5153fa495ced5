package ui

import (
	"os"
	"testing"
)

func TestUseColorFor(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "out")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	tests := []struct {
		name  string
		env   map[string]string
		force bool
		want  bool
	}{
		{"plain file", nil, false, false},
		{"clicolor force", map[string]string{"CLICOLOR_FORCE": "1"}, false, true},
		{"no_color wins", map[string]string{"NO_COLOR": "1", "CLICOLOR_FORCE": "1"}, false, false},
		{"forced off", map[string]string{"CLICOLOR_FORCE": "1"}, true, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("NO_COLOR", "")
			t.Setenv("CLICOLOR_FORCE", "")
			t.Setenv("CLICOLOR", "")
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			noColor = tc.force
			t.Cleanup(func() { noColor = false })

			if got := UseColorFor(f); got != tc.want {
				t.Errorf("UseColorFor() = %v, want %v", got, tc.want)
			}
		})
	}
}
