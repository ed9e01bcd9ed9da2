// Package observ measures named phases of a CLI command.
package observ

import (
	"fmt"
	"strings"
	"time"

	"klang/internal/trace"
)

// Phase records the duration and metadata of one command phase.
type Phase struct {
	Name  string
	Start time.Time
	Dur   time.Duration
	Note  string

	span *trace.Span
}

// Timer tracks the execution time of multiple phases. Phases are mirrored
// as runtime-scope spans when a tracer is attached.
type Timer struct {
	phases []Phase
	tracer trace.Tracer
}

// NewTimer creates a new empty Timer.
func NewTimer() *Timer { return &Timer{phases: make([]Phase, 0, 8), tracer: trace.Nop} }

// WithTracer attaches t so every phase also emits a span.
func (t *Timer) WithTracer(tr trace.Tracer) *Timer {
	if tr == nil {
		tr = trace.Nop
	}
	t.tracer = tr
	return t
}

// Begin starts a new phase and returns its index.
func (t *Timer) Begin(name string) int {
	t.phases = append(t.phases, Phase{
		Name:  name,
		Start: time.Now(),
		span:  trace.Begin(t.tracer, trace.ScopeRuntime, name),
	})
	return len(t.phases) - 1
}

// End finishes a phase by its index.
func (t *Timer) End(idx int, note string) {
	if idx < 0 || idx >= len(t.phases) {
		return
	}
	p := &t.phases[idx]
	if p.span != nil {
		p.span.End(note)
		p.span = nil
	}
	p.Dur = time.Since(p.Start)
	p.Note = note
}

// Summary returns a human-readable string summarizing all tracked phases.
func (t *Timer) Summary() string {
	report := t.Report()
	var b strings.Builder
	b.WriteString("timings:\n")
	for _, p := range report.Phases {
		fmt.Fprintf(&b, "  %-20s %7.2f ms", p.Name, p.DurationMS)
		if p.Note != "" {
			b.WriteString("  // " + p.Note)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "  %-20s %7.2f ms\n", "total", report.TotalMS)
	return b.String()
}

// PhaseReport is the serialisable form of a phase.
type PhaseReport struct {
	Name       string  `json:"name"`
	DurationMS float64 `json:"duration_ms"`
	Note       string  `json:"note,omitempty"`
}

// Report aggregates all phases.
type Report struct {
	TotalMS float64       `json:"total_ms"`
	Phases  []PhaseReport `json:"phases"`
}

// Report lists the phases with the total duration in milliseconds.
func (t *Timer) Report() Report {
	if len(t.phases) == 0 {
		return Report{}
	}
	report := Report{
		Phases: make([]PhaseReport, len(t.phases)),
	}
	var total time.Duration
	for i, phase := range t.phases {
		total += phase.Dur
		report.Phases[i] = PhaseReport{
			Name:       phase.Name,
			DurationMS: durationToMillis(phase.Dur),
			Note:       phase.Note,
		}
	}
	report.TotalMS = durationToMillis(total)
	return report
}

func durationToMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
