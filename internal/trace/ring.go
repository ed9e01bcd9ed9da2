package trace

import (
	"io"
	"sync"
)

// RingTracer keeps the last N events in memory. With a sink attached it
// acts as a flight recorder: Close writes the retained events out.
type RingTracer struct {
	mu       sync.RWMutex
	events   []Event
	capacity int
	head     int  // next write position
	full     bool // has wrapped around
	level    Level

	sink   io.Writer
	format Format
}

// NewRingTracer creates a RingTracer holding up to capacity events.
func NewRingTracer(capacity int, level Level) *RingTracer {
	if capacity <= 0 {
		capacity = 4096
	}
	return &RingTracer{
		events:   make([]Event, capacity),
		capacity: capacity,
		level:    level,
	}
}

// WithSink makes Close dump the buffer to w in format.
func (t *RingTracer) WithSink(w io.Writer, format Format) *RingTracer {
	t.mu.Lock()
	t.sink, t.format = w, format
	t.mu.Unlock()
	return t
}

// Emit adds an event, overwriting the oldest once the ring is full.
func (t *RingTracer) Emit(ev *Event) {
	if !t.level.accepts(ev) {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.events[t.head] = *ev
	t.head = (t.head + 1) % t.capacity
	if t.head == 0 {
		t.full = true
	}
}

// Len reports how many events the ring currently holds.
func (t *RingTracer) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.full {
		return t.capacity
	}
	return t.head
}

// Snapshot returns a copy of all stored events in chronological order.
func (t *RingTracer) Snapshot() []Event {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if !t.full {
		result := make([]Event, t.head)
		copy(result, t.events[:t.head])
		return result
	}
	result := make([]Event, t.capacity)
	n := copy(result, t.events[t.head:])
	copy(result[n:], t.events[:t.head])
	return result
}

// Dump writes all events to w in format.
func (t *RingTracer) Dump(w io.Writer, format Format) error {
	events := t.Snapshot()
	for i := range events {
		if _, err := w.Write(FormatEvent(&events[i], format)); err != nil {
			return err
		}
	}
	return nil
}

// Flush is a no-op; the ring only writes on Close.
func (t *RingTracer) Flush() error {
	return nil
}

// Close dumps the retained events to the sink, if any, and closes it.
func (t *RingTracer) Close() error {
	t.mu.Lock()
	sink, format := t.sink, t.format
	t.sink = nil
	t.mu.Unlock()
	if sink == nil {
		return nil
	}
	err := t.Dump(sink, format)
	if c, ok := sink.(io.Closer); ok {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Level returns the current tracing level.
func (t *RingTracer) Level() Level {
	return t.level
}

// Enabled returns true if tracing is active.
func (t *RingTracer) Enabled() bool {
	return t.level > LevelOff
}
