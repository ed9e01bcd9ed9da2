package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"klang/internal/version"
)

var rootCmd = &cobra.Command{
	Use:           "klang",
	Short:         "Klang dynamic value runtime",
	Long:          `Klang is a dynamically typed value runtime with a reference-counted heap`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// main registers the subcommands and persistent flags, then executes the
// root command. Errors are printed once and exit with status 1.
func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(demoCmd)
	rootCmd.AddCommand(heapCmd)
	rootCmd.AddCommand(stressCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("config", "", "path to klang.toml (default: search upwards from the working directory)")
	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("timings", false, "show timing information")
	rootCmd.PersistentFlags().String("trace", "", "trace output file (\"-\" for stderr)")
	rootCmd.PersistentFlags().String("trace-level", "", "trace level (off|error|phase|detail|debug)")
	rootCmd.PersistentFlags().String("trace-mode", "", "trace storage mode (stream|ring|both)")
	rootCmd.PersistentFlags().String("trace-format", "", "trace format (auto|text|ndjson)")
	rootCmd.PersistentFlags().Duration("trace-heartbeat", 0, "heartbeat interval for long runs (0 disables)")

	if err := rootCmd.Execute(); err != nil {
		errorColor.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
