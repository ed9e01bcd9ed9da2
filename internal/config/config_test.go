package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"klang/internal/heap"
	"klang/internal/trace"
)

func writeFile(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate(): %v", err)
	}
	if cfg.Heap.Size != heap.DefaultSize || cfg.Stack.Capacity != 32 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadWithoutFile(t *testing.T) {
	dir := t.TempDir()
	cfg, path, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if path != "" || cfg != Default() {
		t.Fatalf("Load without file = %+v at %q", cfg, path)
	}
}

func TestLoadWalksUp(t *testing.T) {
	root := t.TempDir()
	want := writeFile(t, root, `
[heap]
size = 1048576

[trace]
level = "phase"
heartbeat = "250ms"

[stress]
workers = 2
ui = "off"
`)
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	cfg, path, err := Load(nested)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if path != want {
		t.Fatalf("path = %q, want %q", path, want)
	}
	if cfg.Heap.Size != 1<<20 || cfg.Stress.Workers != 2 || cfg.Stress.UI != UIOff {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Stack.Capacity != 32 || cfg.Stress.Iterations != 10000 {
		t.Fatalf("defaults not kept for missing keys: %+v", cfg)
	}

	tc, err := cfg.TracerConfig(nil)
	if err != nil {
		t.Fatalf("TracerConfig: %v", err)
	}
	if tc.Level != trace.LevelPhase || tc.Mode != trace.ModeStream || tc.Heartbeat != 250*time.Millisecond {
		t.Fatalf("TracerConfig = %+v", tc)
	}
}

func TestLoadFileRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"syntax", "[heap\n", "failed to parse TOML"},
		{"unknown key", "[heap]\nsize = 4096\ncolour = 1\n", "unknown keys: heap.colour"},
		{"tiny heap", "[heap]\nsize = 8\n", "[heap].size"},
		{"bad level", "[trace]\nlevel = \"loud\"\n", "[trace].level"},
		{"bad mode", "[trace]\nmode = \"tape\"\n", "[trace].mode"},
		{"bad heartbeat", "[trace]\nheartbeat = \"soon\"\n", "[trace].heartbeat"},
		{"no workers", "[stress]\nworkers = 0\n", "[stress].workers"},
		{"negative stack", "[stack]\ncapacity = -1\n", "[stack].capacity"},
		{"bad ui", "[stress]\nui = \"fancy\"\n", "[stress].ui"},
	}
	for _, tt := range tests {
		path := writeFile(t, t.TempDir(), tt.body)
		_, err := LoadFile(path)
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Fatalf("%s: err = %v, want containing %q", tt.name, err, tt.want)
		}
	}
}

func TestParseUIMode(t *testing.T) {
	tests := []struct {
		in   string
		want UIMode
		ok   bool
	}{
		{"", UIAuto, true},
		{"ON", UIOn, true},
		{" off ", UIOff, true},
		{"sometimes", "", false},
	}
	for _, tt := range tests {
		got, err := ParseUIMode(tt.in)
		if got != tt.want || (err == nil) != tt.ok {
			t.Fatalf("ParseUIMode(%q) = %q, %v", tt.in, got, err)
		}
	}
}
