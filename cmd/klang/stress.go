package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"klang/internal/prof"
	"klang/internal/stress"
	"klang/internal/trace"
	"klang/internal/ui"
)

var (
	stressWorkers    int
	stressIterations int
	stressCollect    int
	stressSeed       uint64
	stressUI         string
	stressJSON       bool
	stressVerify     bool
	stressCPUProfile string
	stressMemProfile string
	stressRunTrace   string
)

func init() {
	stressCmd.Flags().IntVar(&stressWorkers, "workers", 0, "parallel workers (default from [stress].workers)")
	stressCmd.Flags().IntVar(&stressIterations, "iterations", 0, "operators per worker (default from [stress].iterations)")
	stressCmd.Flags().IntVar(&stressCollect, "collect-every", -1, "iterations between collections (default from [stress].collect_every)")
	stressCmd.Flags().Uint64Var(&stressSeed, "seed", 0, "workload seed (0 picks one from the clock)")
	stressCmd.Flags().StringVar(&stressUI, "ui", "", "progress UI: auto|on|off (default from [stress].ui)")
	stressCmd.Flags().BoolVar(&stressJSON, "json", false, "print the result as JSON")
	stressCmd.Flags().BoolVar(&stressVerify, "verify", false, "check heap invariants after every collection")
	stressCmd.Flags().StringVar(&stressCPUProfile, "cpuprofile", "", "write a CPU profile to this file")
	stressCmd.Flags().StringVar(&stressMemProfile, "memprofile", "", "write a heap profile to this file")
	stressCmd.Flags().StringVar(&stressRunTrace, "runtime-trace", "", "write a Go execution trace to this file")
}

var stressCmd = &cobra.Command{
	Use:   "stress",
	Short: "Run random operator workloads on parallel runtimes and check for leaks",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, cleanup, err := prepare(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		mode, err := stressUIMode(stressUI, cmd.Flags().Changed("ui"), e.cfg.Stress.UI)
		if err != nil {
			return err
		}

		cfg := e.stressConfig()
		if cfg.Workers < 1 {
			return fmt.Errorf("--workers must be positive, got %d", cfg.Workers)
		}

		session := &prof.Session{CPUPath: stressCPUProfile, MemPath: stressMemProfile, TracePath: stressRunTrace}
		if err := session.Start(); err != nil {
			return fmt.Errorf("failed to start profiling: %w", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		var ops atomic.Int64
		cfg.Ops = &ops
		e.startHeartbeat(trace.Probe{Name: "ops", Sample: ops.Load})

		idx := e.timer.Begin("stress")
		var res stress.Result
		if !stressJSON && useProgressUI(mode, cmd.OutOrStdout()) {
			res, err = runStressWithUI(ctx, cfg)
		} else {
			res, err = stress.Run(ctx, cfg, nil)
		}
		e.timer.End(idx, fmt.Sprintf("%d ops", res.Ops()))

		if perr := session.Stop(); perr != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "profiling: %v\n", perr)
		}
		if stressJSON {
			if jerr := renderStressJSON(cmd.OutOrStdout(), cfg, res); jerr != nil {
				return jerr
			}
		} else {
			renderStress(cmd.OutOrStdout(), cfg, res)
		}
		return err
	},
}

func (e *env) stressConfig() stress.Config {
	cfg := stress.Config{
		Workers:       e.cfg.Stress.Workers,
		Iterations:    e.cfg.Stress.Iterations,
		CollectEvery:  e.cfg.Stress.CollectEvery,
		HeapSize:      e.cfg.Heap.Size,
		StackCapacity: e.cfg.Stack.Capacity,
		Seed:          stressSeed,
		Verify:        stressVerify,
	}
	if stressWorkers != 0 {
		cfg.Workers = stressWorkers
	}
	if stressIterations != 0 {
		cfg.Iterations = stressIterations
	}
	if stressCollect >= 0 {
		cfg.CollectEvery = stressCollect
	}
	if cfg.Seed == 0 {
		cfg.Seed = uint64(time.Now().UnixNano()) //nolint:gosec // G115: any bits make a seed
	}
	return cfg
}

type stressOutcome struct {
	result stress.Result
	err    error
}

func runStressWithUI(ctx context.Context, cfg stress.Config) (stress.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	events := make(chan stress.Event, 256)
	outcomeCh := make(chan stressOutcome, 1)

	go func() {
		res, err := stress.Run(ctx, cfg, events)
		outcomeCh <- stressOutcome{result: res, err: err}
	}()

	model := ui.NewStressModel(fmt.Sprintf("stress seed=%d", cfg.Seed), cfg.Workers, cfg.Iterations, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	final, uiErr := program.Run()
	if m, ok := final.(interface{ Interrupted() bool }); uiErr != nil || (ok && m.Interrupted()) {
		cancel()
	}
	// The runner may still be sending once the UI stops reading.
	go func() {
		for range events {
		}
	}()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.result, uiErr
	}
	return outcome.result, outcome.err
}

func renderStress(out io.Writer, cfg stress.Config, res stress.Result) {
	headerColor.Fprintf(out, "stress: %d workers x %d iterations, seed %d\n", cfg.Workers, cfg.Iterations, cfg.Seed)
	for _, w := range res.Workers {
		fmt.Fprintf(out, "  worker %-3d ops=%-7d allocs=%-7d collections=%-5d reclaimed=%-7d peak=%-8d unsupported=%-6d div0=%-5d dropped=%d\n",
			w.Worker, w.Iterations, w.Allocs, w.Collections, w.Reclaimed, w.PeakUsed, w.Unsupported, w.DivByZero, w.StackDropped)
	}
	secs := res.Duration.Seconds()
	rate := 0.0
	if secs > 0 {
		rate = float64(res.Ops()) / secs
	}
	okColor.Fprintf(out, "%d ops in %s (%.0f ops/s)\n", res.Ops(), res.Duration.Round(time.Millisecond), rate)
}

func renderStressJSON(out io.Writer, cfg stress.Config, res stress.Result) error {
	payload := struct {
		Seed       uint64        `json:"seed"`
		Workers    int           `json:"workers"`
		Iterations int           `json:"iterations"`
		Ops        int           `json:"ops"`
		Result     stress.Result `json:"result"`
	}{cfg.Seed, cfg.Workers, cfg.Iterations, res.Ops(), res}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}
