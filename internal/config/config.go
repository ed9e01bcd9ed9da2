// Package config loads klang.toml, the runtime and tooling settings file.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"klang/internal/heap"
	"klang/internal/trace"
)

// FileName is the settings file looked up from the working directory upwards.
const FileName = "klang.toml"

// Config mirrors klang.toml.
type Config struct {
	Heap   HeapConfig   `toml:"heap"`
	Stack  StackConfig  `toml:"stack"`
	Trace  TraceConfig  `toml:"trace"`
	Stress StressConfig `toml:"stress"`
}

// HeapConfig is the [heap] table.
type HeapConfig struct {
	Size int `toml:"size"`
}

// StackConfig is the [stack] table.
type StackConfig struct {
	Capacity int `toml:"capacity"`
}

// TraceConfig is the [trace] table. Its fields use the trace package's
// textual names and are parsed by TracerConfig.
type TraceConfig struct {
	Level     string `toml:"level"`
	Mode      string `toml:"mode"`
	Format    string `toml:"format"`
	Output    string `toml:"output"`
	RingSize  int    `toml:"ring_size"`
	Heartbeat string `toml:"heartbeat"`
}

// StressConfig is the [stress] table.
type StressConfig struct {
	Workers      int    `toml:"workers"`
	Iterations   int    `toml:"iterations"`
	CollectEvery int    `toml:"collect_every"`
	UI           UIMode `toml:"ui"`
}

// UIMode selects how `klang stress` renders progress.
type UIMode string

const (
	// UIAuto uses the progress UI only when stdout is a terminal.
	UIAuto UIMode = "auto"
	// UIOn always uses the progress UI.
	UIOn UIMode = "on"
	// UIOff prints the final report only.
	UIOff UIMode = "off"
)

// ParseUIMode accepts auto, on and off in any case. Empty means auto.
func ParseUIMode(s string) (UIMode, error) {
	switch UIMode(strings.TrimSpace(strings.ToLower(s))) {
	case "", UIAuto:
		return UIAuto, nil
	case UIOn:
		return UIOn, nil
	case UIOff:
		return UIOff, nil
	default:
		return "", fmt.Errorf("unknown ui mode %q (expected auto|on|off)", s)
	}
}

// Default returns the settings used when no klang.toml exists.
func Default() Config {
	return Config{
		Heap:  HeapConfig{Size: heap.DefaultSize},
		Stack: StackConfig{Capacity: 32},
		Trace: TraceConfig{
			Level:     "off",
			Mode:      "stream",
			Format:    "auto",
			Output:    "-",
			RingSize:  4096,
			Heartbeat: "0s",
		},
		Stress: StressConfig{Workers: 4, Iterations: 10000, CollectEvery: 256, UI: UIAuto},
	}
}

// Find walks up from startDir looking for klang.toml.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load finds and reads klang.toml starting at startDir. Without a file it
// returns Default and an empty path.
func Load(startDir string) (Config, string, error) {
	path, ok, err := Find(startDir)
	if err != nil {
		return Config{}, "", err
	}
	if !ok {
		return Default(), "", nil
	}
	cfg, err := LoadFile(path)
	if err != nil {
		return Config{}, "", err
	}
	return cfg, path, nil
}

// LoadFile reads path over the defaults and validates the result.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks ranges and enumerations.
func (c Config) Validate() error {
	if c.Heap.Size < heap.MinCapacity {
		return fmt.Errorf("[heap].size must be at least %d, got %d", heap.MinCapacity, c.Heap.Size)
	}
	if c.Stack.Capacity < 0 {
		return fmt.Errorf("[stack].capacity must not be negative, got %d", c.Stack.Capacity)
	}
	if _, err := trace.ParseLevel(c.Trace.Level); err != nil {
		return fmt.Errorf("[trace].level: %w", err)
	}
	if _, err := trace.ParseMode(c.Trace.Mode); err != nil {
		return fmt.Errorf("[trace].mode: %w", err)
	}
	if _, err := trace.ParseFormat(c.Trace.Format); err != nil {
		return fmt.Errorf("[trace].format: %w", err)
	}
	if c.Trace.RingSize < 0 {
		return fmt.Errorf("[trace].ring_size must not be negative, got %d", c.Trace.RingSize)
	}
	if _, err := c.heartbeat(); err != nil {
		return err
	}
	if c.Stress.Workers < 1 {
		return fmt.Errorf("[stress].workers must be positive, got %d", c.Stress.Workers)
	}
	if c.Stress.Iterations < 0 || c.Stress.CollectEvery < 0 {
		return fmt.Errorf("[stress] counts must not be negative")
	}
	if _, err := ParseUIMode(string(c.Stress.UI)); err != nil {
		return fmt.Errorf("[stress].ui: %w", err)
	}
	return nil
}

func (c Config) heartbeat() (time.Duration, error) {
	if c.Trace.Heartbeat == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Trace.Heartbeat)
	if err != nil {
		return 0, fmt.Errorf("[trace].heartbeat: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("[trace].heartbeat must not be negative, got %s", d)
	}
	return d, nil
}

// TracerConfig converts the [trace] table. A non-nil out overrides the
// output path.
func (c Config) TracerConfig(out io.Writer) (trace.Config, error) {
	level, err := trace.ParseLevel(c.Trace.Level)
	if err != nil {
		return trace.Config{}, err
	}
	mode, err := trace.ParseMode(c.Trace.Mode)
	if err != nil {
		return trace.Config{}, err
	}
	format, err := trace.ParseFormat(c.Trace.Format)
	if err != nil {
		return trace.Config{}, err
	}
	hb, err := c.heartbeat()
	if err != nil {
		return trace.Config{}, err
	}
	return trace.Config{
		Level:      level,
		Mode:       mode,
		Format:     format,
		Output:     out,
		OutputPath: c.Trace.Output,
		RingSize:   c.Trace.RingSize,
		Heartbeat:  hb,
	}, nil
}
