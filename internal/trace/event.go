package trace

import "time"

// Kind represents the type of trace event.
type Kind uint8

const (
	// KindSpanBegin marks the start of a logical operation.
	KindSpanBegin Kind = iota + 1 // span start
	// KindSpanEnd marks the end of a logical operation.
	KindSpanEnd // span end
	// KindPoint represents an instant event.
	KindPoint     // instant event
	KindHeartbeat // periodic liveness signal
	KindError     // failure report, emitted at every level but off
)

// String returns the string representation of Kind.
func (k Kind) String() string {
	switch k {
	case KindSpanBegin:
		return "begin"
	case KindSpanEnd:
		return "end"
	case KindPoint:
		return "point"
	case KindHeartbeat:
		return "heartbeat"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// Scope indicates the granularity level of the event.
// Lower numeric values represent coarser events.
type Scope uint8

const (
	// ScopeRuntime covers runtime lifecycle, collection passes and workers.
	ScopeRuntime Scope = iota + 1
	// ScopeHeap covers heap creation, destruction and overflow.
	ScopeHeap
	// ScopeBlock covers single block allocations, frees and refcount changes.
	ScopeBlock
)

// String returns the string representation of Scope.
func (s Scope) String() string {
	switch s {
	case ScopeRuntime:
		return "runtime"
	case ScopeHeap:
		return "heap"
	case ScopeBlock:
		return "block"
	default:
		return "unknown"
	}
}

// Event represents a single trace event.
type Event struct {
	Time     time.Time         // wall-clock timestamp
	Seq      uint64            // global sequence number (monotonic)
	Kind     Kind              // event kind
	Scope    Scope             // granularity level
	SpanID   uint64            // unique span identifier
	ParentID uint64            // parent span (0 if root)
	GID      uint64            // goroutine ID (for concurrent spans)
	Name     string            // e.g. "alloc", "collect", "worker:3"
	Detail   string            // optional detail message
	Extra    map[string]string // extensible key-value pairs
}

// Point emits an instant event if t accepts the scope.
func Point(t Tracer, scope Scope, name, detail string) {
	if t == nil || !t.Enabled() || !t.Level().ShouldEmit(scope) {
		return
	}
	t.Emit(&Event{
		Time:   time.Now(),
		Kind:   KindPoint,
		Scope:  scope,
		Name:   name,
		Detail: detail,
	})
}

// EmitError reports a failure. Errors bypass scope filtering so that
// LevelError captures them on their own.
func EmitError(t Tracer, scope Scope, name string, err error) {
	if t == nil || !t.Enabled() || err == nil {
		return
	}
	t.Emit(&Event{
		Time:   time.Now(),
		Kind:   KindError,
		Scope:  scope,
		Name:   name,
		Detail: err.Error(),
	})
}

// accepts reports whether a tracer at level l stores ev.
func (l Level) accepts(ev *Event) bool {
	if l == LevelOff {
		return false
	}
	if ev.Kind == KindHeartbeat || ev.Kind == KindError {
		return true
	}
	return l.ShouldEmit(ev.Scope)
}
