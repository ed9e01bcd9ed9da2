package trace

import (
	"strconv"
	"sync"
	"time"
)

// Probe samples one gauge for a heartbeat, e.g. operators completed or
// bytes in use.
type Probe struct {
	Name   string
	Sample func() int64
}

// Heartbeat periodically emits liveness events during long stress runs.
// Each beat carries the current probe values in Extra, so a stalled counter
// between beats points at a stuck worker.
type Heartbeat struct {
	tracer   Tracer
	interval time.Duration
	probes   []Probe
	stopCh   chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// StartHeartbeat starts emitting a heartbeat every interval until Stop.
// It returns nil when tracing is off or interval is not positive.
func StartHeartbeat(tracer Tracer, interval time.Duration, probes ...Probe) *Heartbeat {
	if tracer == nil || !tracer.Enabled() || interval <= 0 {
		return nil
	}
	h := &Heartbeat{
		tracer:   tracer,
		interval: interval,
		probes:   probes,
		stopCh:   make(chan struct{}),
	}
	h.wg.Add(1)
	go h.run()
	return h
}

func (h *Heartbeat) run() {
	defer h.wg.Done()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	var beat uint64
	for {
		select {
		case <-ticker.C:
			beat++
			h.tracer.Emit(h.event(beat))
		case <-h.stopCh:
			return
		}
	}
}

func (h *Heartbeat) event(beat uint64) *Event {
	ev := &Event{
		Time:   time.Now(),
		Seq:    nextSeq(),
		Kind:   KindHeartbeat,
		Scope:  ScopeRuntime,
		GID:    goroutineID(),
		Name:   "heartbeat",
		Detail: "#" + strconv.FormatUint(beat, 10),
	}
	if len(h.probes) > 0 {
		ev.Extra = make(map[string]string, len(h.probes))
		for _, p := range h.probes {
			ev.Extra[p.Name] = strconv.FormatInt(p.Sample(), 10)
		}
	}
	return ev
}

// Stop ends the heartbeat goroutine and waits for it. Safe on nil and
// safe to call twice.
func (h *Heartbeat) Stop() {
	if h == nil {
		return
	}
	h.stopOnce.Do(func() { close(h.stopCh) })
	h.wg.Wait()
}
