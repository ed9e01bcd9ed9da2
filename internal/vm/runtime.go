package vm

import (
	"fmt"
	"sync"

	"fortio.org/safecast"

	"klang/internal/heap"
	"klang/internal/trace"
)

// staticHeap holds the singletons. It lives for the whole process and is
// shared by every Runtime.
var staticHeap *heap.Heap

// The process-wide singletons. Their identity never changes.
var (
	Undefined Value
	True      Value
	False     Value
)

func init() {
	h, err := heap.New(heap.DefaultStaticSize, true)
	if err != nil {
		panic(fmt.Sprintf("vm: create static heap: %v", err))
	}
	staticHeap = h
	Undefined = mustStatic(TypeUndefined, 0)
	False = mustStatic(TypeBoolean, 0)
	True = mustStatic(TypeBoolean, 1)
}

func mustStatic(t Type, b byte) Value {
	p, err := staticHeap.Alloc(payloadData + 8)
	if err != nil {
		panic(fmt.Sprintf("vm: allocate %s singleton: %v", t, err))
	}
	buf, err := staticHeap.Bytes(p)
	if err != nil {
		panic(fmt.Sprintf("vm: allocate %s singleton: %v", t, err))
	}
	buf[payloadTag] = byte(t)
	buf[payloadWidth] = 1
	datum(buf)[0] = b
	return Value{ptr: p, typ: t}
}

// Runtime owns the default heap that every non-singleton value lives on.
type Runtime struct {
	heap   *heap.Heap
	tracer trace.Tracer
	eb     errorBuilder
	closed bool
}

type options struct {
	heapSize int
	tracer   trace.Tracer
}

// Option configures a Runtime.
type Option func(*options)

// WithHeapSize sets the default heap capacity in bytes.
func WithHeapSize(n int) Option {
	return func(o *options) { o.heapSize = n }
}

// WithTracer routes runtime and heap events to t.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) {
		if t != nil {
			o.tracer = t
		}
	}
}

// New creates a runtime with its own default heap.
func New(opts ...Option) (*Runtime, error) {
	o := options{heapSize: heap.DefaultSize, tracer: trace.Nop}
	for _, opt := range opts {
		opt(&o)
	}
	rt := &Runtime{tracer: o.tracer}
	rt.eb = errorBuilder{rt: rt}
	h, err := heap.New(o.heapSize, false, heap.WithTracer(o.tracer))
	if err != nil {
		return nil, rt.eb.heapFailure("create default heap", err)
	}
	rt.heap = h
	trace.Point(rt.tracer, trace.ScopeRuntime, "runtime", fmt.Sprintf("start heap=%d", o.heapSize))
	return rt, nil
}

var defaultRuntime = sync.OnceValue(func() *Runtime {
	rt, err := New()
	if err != nil {
		panic(fmt.Sprintf("vm: create default runtime: %v", err))
	}
	return rt
})

// Default returns the process default runtime, creating it on first use.
// Refs and stacks without a runtime fall back to it.
func Default() *Runtime { return defaultRuntime() }

// Close releases the default heap. Values of this runtime become invalid.
func (rt *Runtime) Close() error {
	if rt.closed {
		return nil
	}
	rt.closed = true
	trace.Point(rt.tracer, trace.ScopeRuntime, "runtime", "stop")
	return rt.heap.Close()
}

// Heap exposes the default heap for diagnostics.
func (rt *Runtime) Heap() *heap.Heap { return rt.heap }

// Tracer returns the tracer the runtime reports to.
func (rt *Runtime) Tracer() trace.Tracer { return rt.tracer }

// Collect reclaims every value whose refcount dropped to zero.
func (rt *Runtime) Collect() int { return rt.heap.Collect() }

// HeapUsed reports the bytes held by live blocks of the default heap.
func (rt *Runtime) HeapUsed() int { return rt.heap.Used() }

func (rt *Runtime) heapFor(v Value) *heap.Heap {
	if v.typ.static() {
		return staticHeap
	}
	return rt.heap
}

// payload resolves v. A dead or foreign handle is a programming error and
// panics with an *Error carrying CodeInvalidHandle.
func (rt *Runtime) payload(v Value) []byte {
	v = v.norm()
	buf, err := rt.heapFor(v).Bytes(v.ptr)
	if err != nil {
		panic(rt.eb.invalidHandle(v, err))
	}
	return buf
}

// alloc reserves a value block of type t with extra datum bytes.
func (rt *Runtime) alloc(t Type, width uint8, extra int) (Value, []byte, error) {
	p, err := rt.heap.Alloc(payloadData + extra)
	if err != nil {
		return Undefined, nil, rt.eb.heapFailure("allocate "+t.String(), err)
	}
	buf, err := rt.heap.Bytes(p)
	if err != nil {
		return Undefined, nil, rt.eb.heapFailure("allocate "+t.String(), err)
	}
	clear(buf[:payloadData])
	buf[payloadTag] = byte(t)
	buf[payloadWidth] = width
	return Value{ptr: p, typ: t}, buf, nil
}

func (rt *Runtime) newRunes(rs []rune) (Value, error) {
	n, err := safecast.Conv[uint32](len(rs))
	if err != nil || int(n) > (rt.heap.Capacity()-payloadData)/runeSize {
		return Undefined, rt.eb.heapFailure("allocate string", fmt.Errorf("%w: %d code points", heap.ErrHeapOverflow, len(rs)))
	}
	v, buf, err := rt.alloc(TypeString, runeSize, runeSize+len(rs)*runeSize)
	if err != nil {
		return Undefined, err
	}
	putRunes(buf, rs)
	return v, nil
}

// IncRef takes an additional reference to v. Singletons are not counted.
func (rt *Runtime) IncRef(v Value) {
	v = v.norm()
	if v.typ.static() {
		return
	}
	if err := rt.heap.IncRef(v.ptr); err != nil {
		panic(rt.eb.invalidHandle(v, err))
	}
}

// DecRef drops a reference to v. The block is reclaimed by the next Collect
// once its count reaches zero.
func (rt *Runtime) DecRef(v Value) {
	v = v.norm()
	if v.typ.static() {
		return
	}
	if err := rt.heap.DecRef(v.ptr); err != nil {
		panic(rt.eb.invalidHandle(v, err))
	}
}

// Refs returns the current refcount of v. Singletons report their static
// count, which never changes.
func (rt *Runtime) Refs(v Value) uint32 {
	v = v.norm()
	hdr, err := rt.heapFor(v).Header(v.ptr)
	if err != nil {
		panic(rt.eb.invalidHandle(v, err))
	}
	return hdr.Refs
}

// Live reports whether v still addresses a live value of this runtime.
func (rt *Runtime) Live(v Value) bool {
	v = v.norm()
	return rt.heapFor(v).Contains(v.ptr)
}

// Free reclaims v immediately, ignoring its refcount. Singletons are never
// freed.
func (rt *Runtime) Free(v Value) error {
	v = v.norm()
	if v.typ.static() {
		return nil
	}
	if err := rt.heap.Free(v.ptr); err != nil {
		return rt.eb.invalidHandle(v, err)
	}
	return nil
}
