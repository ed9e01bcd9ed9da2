package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"klang/internal/config"
	"klang/internal/trace"
)

// setupTracing merges the trace flags over the [trace] table and attaches
// the resulting tracer to the command context. It returns the tracer, the
// heartbeat interval and a cleanup function.
func setupTracing(cmd *cobra.Command, cfg config.Config) (trace.Tracer, time.Duration, func(), error) {
	root := cmd.Root().PersistentFlags()

	overrides := []struct {
		flag string
		dst  *string
	}{
		{"trace", &cfg.Trace.Output},
		{"trace-level", &cfg.Trace.Level},
		{"trace-mode", &cfg.Trace.Mode},
		{"trace-format", &cfg.Trace.Format},
	}
	for _, o := range overrides {
		v, err := root.GetString(o.flag)
		if err != nil {
			return nil, 0, nil, fmt.Errorf("failed to get %s flag: %w", o.flag, err)
		}
		if v != "" {
			*o.dst = v
		}
	}
	if root.Changed("trace-heartbeat") {
		hb, err := root.GetDuration("trace-heartbeat")
		if err != nil {
			return nil, 0, nil, fmt.Errorf("failed to get trace-heartbeat flag: %w", err)
		}
		cfg.Trace.Heartbeat = hb.String()
	}
	// An output path alone turns tracing on at phase level.
	if root.Changed("trace") && !root.Changed("trace-level") && cfg.Trace.Level == "off" {
		cfg.Trace.Level = "phase"
	}

	tc, err := cfg.TracerConfig(nil)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("invalid trace settings: %w", err)
	}
	tracer, err := trace.New(tc)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("failed to create tracer: %w", err)
	}

	ctx := trace.WithTracer(cmd.Context(), tracer)
	cmd.SetContext(ctx)

	cleanup := func() {
		if err := tracer.Flush(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: flush error: %v\n", err)
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
		}
	}
	return tracer, tc.Heartbeat, cleanup, nil
}
