// Package prof wraps runtime/pprof and runtime/trace for CLI flags.
package prof

import (
	"errors"
	"os"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
)

// Session holds the profiles started for one command. Empty paths disable
// the corresponding profile.
type Session struct {
	CPUPath   string
	MemPath   string
	TracePath string

	cpuFile   *os.File
	traceFile *os.File
}

// Start enables the CPU profile and execution trace, if requested.
func (s *Session) Start() error {
	if s.CPUPath != "" {
		f, err := os.Create(s.CPUPath)
		if err != nil {
			return err
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			_ = f.Close()
			return err
		}
		s.cpuFile = f
	}
	if s.TracePath != "" {
		f, err := os.Create(s.TracePath)
		if err != nil {
			s.stopCPU()
			return err
		}
		if err := trace.Start(f); err != nil {
			_ = f.Close()
			s.stopCPU()
			return err
		}
		s.traceFile = f
	}
	return nil
}

// Stop ends running profiles and writes the heap profile, if requested.
func (s *Session) Stop() error {
	s.stopCPU()
	var errs []error
	if s.traceFile != nil {
		trace.Stop()
		errs = append(errs, s.traceFile.Close())
		s.traceFile = nil
	}
	if s.MemPath != "" {
		errs = append(errs, writeMem(s.MemPath))
	}
	return errors.Join(errs...)
}

func (s *Session) stopCPU() {
	if s.cpuFile == nil {
		return
	}
	pprof.StopCPUProfile()
	_ = s.cpuFile.Close()
	s.cpuFile = nil
}

func writeMem(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()
	runtime.GC()
	return pprof.WriteHeapProfile(f)
}
