package version

import (
	"testing"

	"github.com/fatih/color"
)

func withVersion(t *testing.T, v, commit, date string) {
	t.Helper()
	origVersion, origCommit, origDate := Version, GitCommit, BuildDate
	Version, GitCommit, BuildDate = v, commit, date
	t.Cleanup(func() {
		Version, GitCommit, BuildDate = origVersion, origCommit, origDate
	})
}

func TestLine(t *testing.T) {
	orig := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = orig })

	tests := []struct {
		version, commit, date string
		want                  string
	}{
		{"0.1.0-dev", "", "", "klang 0.1.0-dev"},
		{"1.2.3", "abc123", "", "klang 1.2.3 (abc123)"},
		{"1.2.3-rc.1", "abc123", "2026-01-15", "klang 1.2.3-rc.1 (abc123) built 2026-01-15"},
		{"nightly", "", "", "klang nightly"},
	}
	for _, tt := range tests {
		withVersion(t, tt.version, tt.commit, tt.date)
		if got := Line(); got != tt.want {
			t.Fatalf("Line() = %q, want %q", got, tt.want)
		}
	}
}

func TestColoredKeepsDigits(t *testing.T) {
	orig := color.NoColor
	color.NoColor = false
	t.Cleanup(func() { color.NoColor = orig })

	withVersion(t, "3.4.5", "", "")
	if got := Colored(); got == "3.4.5" {
		t.Fatalf("Colored() must add escapes when color is enabled")
	}
}
