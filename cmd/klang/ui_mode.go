package main

import (
	"fmt"
	"io"
	"os"

	"klang/internal/config"
)

// stressUIMode resolves the progress mode for `klang stress`. An explicit
// --ui wins over [stress].ui.
func stressUIMode(flag string, flagSet bool, fromFile config.UIMode) (config.UIMode, error) {
	if !flagSet {
		return config.ParseUIMode(string(fromFile))
	}
	mode, err := config.ParseUIMode(flag)
	if err != nil {
		return "", fmt.Errorf("--ui: %w", err)
	}
	return mode, nil
}

// useProgressUI reports whether stress progress should be drawn on out.
// Auto mode needs out to be a terminal.
func useProgressUI(mode config.UIMode, out io.Writer) bool {
	switch mode {
	case config.UIOn:
		return true
	case config.UIOff:
		return false
	}
	f, ok := out.(*os.File)
	return ok && isTerminal(f)
}
