package observ

import (
	"strings"
	"testing"

	"klang/internal/trace"
)

func TestTimerReport(t *testing.T) {
	tm := NewTimer()
	if r := tm.Report(); r.TotalMS != 0 || len(r.Phases) != 0 {
		t.Fatalf("empty report = %+v", r)
	}
	a := tm.Begin("load")
	tm.End(a, "klang.toml")
	b := tm.Begin("run")
	tm.End(b, "")
	tm.End(7, "ignored")

	r := tm.Report()
	if len(r.Phases) != 2 || r.Phases[0].Name != "load" || r.Phases[0].Note != "klang.toml" {
		t.Fatalf("report = %+v", r)
	}
	sum := tm.Summary()
	if !strings.HasPrefix(sum, "timings:\n") || !strings.Contains(sum, "// klang.toml") || !strings.Contains(sum, "total") {
		t.Fatalf("summary = %q", sum)
	}
}

func TestTimerEmitsSpans(t *testing.T) {
	ring := trace.NewRingTracer(8, trace.LevelPhase)
	tm := NewTimer().WithTracer(ring)
	tm.End(tm.Begin("stress"), "ok")
	tm.End(0, "twice")

	events := ring.Snapshot()
	if len(events) != 2 || events[0].Kind != trace.KindSpanBegin || events[1].Kind != trace.KindSpanEnd {
		t.Fatalf("events = %+v", events)
	}
	if events[1].Name != "stress" || events[1].Detail != "ok" {
		t.Fatalf("end event = %+v", events[1])
	}
}
