package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"klang/internal/config"
	"klang/internal/observ"
	"klang/internal/trace"
)

var (
	errorColor  = color.New(color.FgRed, color.Bold)
	headerColor = color.New(color.FgCyan, color.Bold)
	okColor     = color.New(color.FgGreen)
)

// env is the state shared by every command: loaded settings, the tracer
// attached to the command context and the phase timer.
type env struct {
	cfg     config.Config
	cfgPath string
	tracer  trace.Tracer
	timer   *observ.Timer
	timings bool

	beatEvery time.Duration
	beat      *trace.Heartbeat
}

// prepare loads settings, applies flag overrides, configures color and
// tracing. The returned cleanup flushes the tracer and prints timings.
func prepare(cmd *cobra.Command) (*env, func(), error) {
	root := cmd.Root().PersistentFlags()

	colorMode, err := root.GetString("color")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get color flag: %w", err)
	}
	if err := applyColor(colorMode); err != nil {
		return nil, nil, err
	}

	cfg, path, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	timings, err := root.GetBool("timings")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get timings flag: %w", err)
	}

	tracer, beatEvery, stopTracing, err := setupTracing(cmd, cfg)
	if err != nil {
		return nil, nil, err
	}
	e := &env{
		cfg:     cfg,
		cfgPath: path,
		tracer:  tracer,
		timer:   observ.NewTimer().WithTracer(tracer),
		timings: timings,

		beatEvery: beatEvery,
	}
	cleanup := func() {
		e.beat.Stop()
		stopTracing()
		if e.timings {
			fmt.Fprint(cmd.ErrOrStderr(), e.timer.Summary())
		}
	}
	return e, cleanup, nil
}

// startHeartbeat begins periodic trace heartbeats sampling probes when
// [trace].heartbeat is set. cleanup stops it.
func (e *env) startHeartbeat(probes ...trace.Probe) {
	if e.beat == nil {
		e.beat = trace.StartHeartbeat(e.tracer, e.beatEvery, probes...)
	}
}

// loadConfig reads --config when given, otherwise searches for klang.toml
// from the working directory upwards.
func loadConfig(cmd *cobra.Command) (config.Config, string, error) {
	path, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return config.Config{}, "", fmt.Errorf("failed to get config flag: %w", err)
	}
	if path != "" {
		cfg, err := config.LoadFile(path)
		return cfg, path, err
	}
	wd, err := os.Getwd()
	if err != nil {
		return config.Config{}, "", fmt.Errorf("failed to get working directory: %w", err)
	}
	return config.Load(wd)
}

func applyColor(mode string) error {
	switch strings.TrimSpace(strings.ToLower(mode)) {
	case "", "auto":
		color.NoColor = !isTerminal(os.Stdout)
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	default:
		return fmt.Errorf("invalid --color value %q (expected auto|on|off)", mode)
	}
	return nil
}
