package trace

import (
	"bytes"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"
)

var (
	seqCounter  atomic.Uint64
	spanCounter atomic.Uint64
)

func nextSeq() uint64 { return seqCounter.Add(1) }

// goroutineID parses the "goroutine N [" prefix of runtime.Stack. Stress
// workers run on their own goroutines, so this tells their spans apart.
func goroutineID() uint64 {
	var buf [64]byte
	line := buf[:runtime.Stack(buf[:], false)]
	line, ok := bytes.CutPrefix(line, []byte("goroutine "))
	if !ok {
		return 0
	}
	digits, _, ok := bytes.Cut(line, []byte(" "))
	if !ok {
		return 0
	}
	gid, err := strconv.ParseUint(string(digits), 10, 64)
	if err != nil {
		return 0
	}
	return gid
}

// Span tracks one runtime operation: a collection pass, a stress worker,
// a CLI phase. A span whose scope the tracer filters out is muted: it emits
// no begin or end events, but Fail still reports its error.
type Span struct {
	tracer   Tracer
	muted    bool
	id       uint64
	parentID uint64
	gid      uint64
	scope    Scope
	name     string
	started  time.Time
	extra    map[string]string
}

// Begin starts a root span.
func Begin(t Tracer, scope Scope, name string) *Span {
	return begin(t, scope, name, 0)
}

func begin(t Tracer, scope Scope, name string, parent uint64) *Span {
	if t == nil || !t.Enabled() {
		return &Span{tracer: Nop, muted: true}
	}
	s := &Span{
		tracer:   t,
		muted:    !t.Level().ShouldEmit(scope),
		parentID: parent,
		scope:    scope,
		name:     name,
		started:  time.Now(),
	}
	if s.muted {
		return s
	}
	s.id = spanCounter.Add(1)
	s.gid = goroutineID()
	t.Emit(s.event(KindSpanBegin, s.started, ""))
	return s
}

func (s *Span) event(kind Kind, at time.Time, detail string) *Event {
	ev := &Event{
		Time:     at,
		Seq:      nextSeq(),
		Kind:     kind,
		Scope:    s.scope,
		SpanID:   s.id,
		ParentID: s.parentID,
		GID:      s.gid,
		Name:     s.name,
		Detail:   detail,
	}
	if kind == KindSpanEnd {
		ev.Extra = s.extra
	}
	return ev
}

// End emits the end event and returns the span's duration. Muted spans
// return 0.
func (s *Span) End(detail string) time.Duration {
	if s == nil || s.muted {
		return 0
	}
	now := time.Now()
	s.tracer.Emit(s.event(KindSpanEnd, now, detail))
	return now.Sub(s.started)
}

// Fail reports err against the span and then ends it with err as detail.
// A nil err behaves like End("").
func (s *Span) Fail(err error) time.Duration {
	if s == nil || err == nil {
		return s.End("")
	}
	if s.tracer.Enabled() {
		s.tracer.Emit(s.event(KindError, time.Now(), err.Error()))
	}
	return s.End(err.Error())
}

// WithExtra attaches key=value to the end event.
func (s *Span) WithExtra(key, value string) *Span {
	if s == nil || s.muted {
		return s
	}
	if s.extra == nil {
		s.extra = make(map[string]string)
	}
	s.extra[key] = value
	return s
}

// Count attaches an integer counter, such as reclaimed blocks or bytes, to
// the end event.
func (s *Span) Count(key string, n int) *Span {
	if s == nil || s.muted {
		return s
	}
	return s.WithExtra(key, strconv.Itoa(n))
}

// ID returns the span ID, or 0 for a muted span.
func (s *Span) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.id
}
