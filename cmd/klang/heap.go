package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"klang/internal/heap"
	"klang/internal/vm"
)

var (
	heapStatsFormat string
	heapDumpStatic  bool
	heapSnapOut     string
	heapSnapIn      string
)

func init() {
	heapStatsCmd.Flags().StringVar(&heapStatsFormat, "format", "pretty", "output format (pretty|json)")
	heapDumpCmd.Flags().BoolVar(&heapDumpStatic, "static", false, "include the static heap singletons")
	heapSnapshotCmd.Flags().StringVar(&heapSnapOut, "out", "", "write a msgpack snapshot to this file")
	heapSnapshotCmd.Flags().StringVar(&heapSnapIn, "in", "", "read a msgpack snapshot and list it")

	heapCmd.AddCommand(heapStatsCmd)
	heapCmd.AddCommand(heapDumpCmd)
	heapCmd.AddCommand(heapSnapshotCmd)
}

var heapCmd = &cobra.Command{
	Use:   "heap",
	Short: "Inspect the heap after evaluating the demo scenario",
}

var heapStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print heap counters and the live value census",
	RunE: func(cmd *cobra.Command, args []string) error {
		switch heapStatsFormat {
		case "pretty", "json":
		default:
			return fmt.Errorf("unsupported format %q (must be pretty or json)", heapStatsFormat)
		}
		return withScenario(cmd, func(rt *vm.Runtime) error {
			st := rt.Stats()
			if heapStatsFormat == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(st)
			}
			renderStats(cmd.OutOrStdout(), st)
			return nil
		})
	},
}

var heapDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "List live heap blocks grouped by identical content",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withScenario(cmd, func(rt *vm.Runtime) error {
			_, err := io.WriteString(cmd.OutOrStdout(), rt.HeapDump(heapDumpStatic))
			return err
		})
	},
}

var heapSnapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Write or read a msgpack heap snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		switch {
		case heapSnapIn != "" && heapSnapOut != "":
			return fmt.Errorf("--in and --out are mutually exclusive")
		case heapSnapIn != "":
			return readSnapshot(cmd.OutOrStdout(), heapSnapIn)
		case heapSnapOut != "":
			return withScenario(cmd, func(rt *vm.Runtime) error {
				return writeSnapshot(rt, heapSnapOut)
			})
		default:
			return fmt.Errorf("one of --in or --out is required")
		}
	},
}

// withScenario evaluates the demo scenario on a fresh runtime, runs fn while
// every intermediate is still held, then releases and closes.
func withScenario(cmd *cobra.Command, fn func(*vm.Runtime) error) error {
	e, cleanup, err := prepare(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	rt, err := e.newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	sc, err := evaluateScenario(rt)
	if err != nil {
		return err
	}
	defer sc.release()

	idx := e.timer.Begin(cmd.Name())
	err = fn(rt)
	e.timer.End(idx, "")
	return err
}

func renderStats(out io.Writer, st vm.Stats) {
	renderHeapStats(out, "heap", st.Heap)
	renderHeapStats(out, "static", st.Static)

	headerColor.Fprintln(out, "live values")
	types := make([]string, 0, len(st.Live))
	for name := range st.Live {
		types = append(types, name)
	}
	slices.Sort(types)
	for _, name := range types {
		fmt.Fprintf(out, "  %-10s %d\n", name, st.Live[name])
	}
	fmt.Fprintf(out, "  %-10s %d\n", "awaiting", st.Dead)
}

func renderHeapStats(out io.Writer, title string, s heap.Stats) {
	headerColor.Fprintln(out, title)
	fmt.Fprintf(out, "  used       %d / %d bytes (top %d)\n", s.Used, s.Capacity, s.Top)
	fmt.Fprintf(out, "  blocks     %d live, %d free (%d bytes)\n", s.LiveBlocks, s.FreeBlocks, s.FreeBytes)
	fmt.Fprintf(out, "  counters   allocs=%d frees=%d incref=%d decref=%d\n", s.Allocs, s.Frees, s.IncRefs, s.DecRefs)
	fmt.Fprintf(out, "  collector  runs=%d reclaimed=%d overflows=%d\n", s.Collections, s.Reclaimed, s.Overflows)
}

func writeSnapshot(rt *vm.Runtime, path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()
	return rt.WriteSnapshot(f)
}

func readSnapshot(out io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()
	snap, err := vm.ReadSnapshot(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	renderSnapshot(out, snap)
	return nil
}

func renderSnapshot(out io.Writer, snap *vm.Snapshot) {
	headerColor.Fprintf(out, "snapshot schema %d: %d values, %d bytes used\n", snap.Schema, len(snap.Values), snap.Stats.Heap.Used)
	for _, v := range snap.Values {
		name := v.Type
		if v.Width > 0 {
			name = fmt.Sprintf("%s/%d", name, v.Width*8)
		}
		var b strings.Builder
		fmt.Fprintf(&b, "  %-12s %-12s size=%-4d rc=%d", heap.Ptr(v.Ptr), name, v.Size, v.Refs)
		if v.Text != "" {
			b.WriteString(" " + v.Text)
		}
		fmt.Fprintln(out, b.String())
	}
}
