package heap

import (
	"fmt"
	"math"

	"fortio.org/safecast"

	"klang/internal/trace"
)

// Default sizes of the two process heaps.
const (
	DefaultSize       = 64 * 1024 * 1024
	DefaultStaticSize = 8192
)

// Header is a copy of a block header.
type Header struct {
	Next uint32 // offset of the next block in address order, 0 if last
	Prev uint32 // offset of the previous block, 0 if first
	Size uint32 // payload capacity in bytes
	Refs uint32
	Gen  uint32
	Free bool
}

type counters struct {
	allocs      uint64
	frees       uint64
	incRefs     uint64
	decRefs     uint64
	collections uint64
	reclaimed   uint64
	overflows   uint64
}

// Heap is a fixed-capacity arena of reference-counted blocks.
type Heap struct {
	static   bool
	capacity int
	used     int
	top      uint32
	data     []byte
	first    uint32
	last     uint32
	freeHead uint32
	starts   []uint64
	nextGen  uint32
	release  func([]byte) error
	closed   bool

	counters counters
	tracer   trace.Tracer
}

// Option configures a Heap.
type Option func(*Heap)

// WithTracer routes heap events to t.
func WithTracer(t trace.Tracer) Option {
	return func(h *Heap) {
		if t != nil {
			h.tracer = t
		}
	}
}

// New reserves a heap of capacity bytes. A static heap is never collected.
func New(capacity int, static bool, opts ...Option) (*Heap, error) {
	if capacity < MinCapacity || uint64(capacity) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: capacity %d out of range [%d, %d]", ErrCannotCreate, capacity, MinCapacity, uint64(math.MaxUint32))
	}
	h := &Heap{
		static:   static,
		capacity: capacity,
		top:      arenaBase,
		nextGen:  1,
		tracer:   trace.Nop,
	}
	for _, opt := range opts {
		opt(h)
	}
	data, release, err := reserve(capacity)
	if err != nil {
		trace.EmitError(h.tracer, trace.ScopeHeap, "create", err)
		return nil, err
	}
	h.data = data
	h.release = release
	h.starts = make([]uint64, (capacity/Alignment+63)/64)
	h.emit(trace.ScopeHeap, "create", fmt.Sprintf("capacity=%d static=%t", capacity, static))
	return h, nil
}

// Close releases the backing region. Every outstanding Ptr becomes invalid;
// no liveness check is performed.
func (h *Heap) Close() error {
	if h.closed {
		return ErrClosed
	}
	h.closed = true
	data := h.data
	h.data = nil
	h.starts = nil
	h.first, h.last, h.freeHead = 0, 0, 0
	h.used = 0
	h.top = arenaBase
	h.emit(trace.ScopeHeap, "destroy", fmt.Sprintf("static=%t", h.static))
	if err := h.release(data); err != nil {
		return fmt.Errorf("heap: release backing region: %w", err)
	}
	return nil
}

// Static reports whether this is the long-lived singleton heap.
func (h *Heap) Static() bool { return h.static }

// Capacity returns the arena size in bytes.
func (h *Heap) Capacity() int { return h.capacity }

// Used returns the bytes held by live blocks, headers included.
func (h *Heap) Used() int { return h.used }

// Alloc reserves a block with at least size payload bytes and a refcount of one.
func (h *Heap) Alloc(size int) (Ptr, error) {
	if h.closed {
		return Nil, ErrClosed
	}
	req, err := safecast.Conv[uint32](size)
	if err != nil || req > math.MaxUint32-Alignment {
		return Nil, fmt.Errorf("%w: %d bytes", ErrInvalidSize, size)
	}
	need := alignUp(max(req, minPayload))

	b := h.firstFit(need)
	if b == 0 {
		b = h.bump(need)
	}
	if b == 0 {
		h.counters.overflows++
		err := fmt.Errorf("%w: %d bytes requested, %d of %d in use", ErrHeapOverflow, size, h.used, h.capacity)
		trace.EmitError(h.tracer, trace.ScopeHeap, "alloc", err)
		return Nil, err
	}

	gen := h.nextGen
	h.nextGen++
	if h.nextGen == 0 {
		h.nextGen = 1
	}
	h.setRefs(b, 1)
	h.setGen(b, gen)
	h.setFlags(b, flagUsed)
	h.used += h.footprint(b)
	h.counters.allocs++

	p := makePtr(h.payload(b), gen)
	if h.tracer.Enabled() {
		h.emit(trace.ScopeBlock, "alloc", fmt.Sprintf("%s size=%d", p, h.size(b)))
	}
	return p, nil
}

// firstFit takes the first free block that can hold need bytes.
func (h *Heap) firstFit(need uint32) uint32 {
	for b := h.freeHead; b != 0; b = h.u32(b + freeNext) {
		if h.size(b) >= need {
			h.unlinkFree(b)
			h.split(b, need)
			return b
		}
	}
	return 0
}

// bump appends a new block at the end of the block list.
func (h *Heap) bump(need uint32) uint32 {
	end := uint64(h.top) + HeaderSize + uint64(need)
	if end > uint64(h.capacity) {
		return 0
	}
	b := h.top
	h.writeHeader(b, 0, h.last, need)
	if h.last != 0 {
		h.setNext(h.last, b)
	} else {
		h.first = b
	}
	h.last = b
	h.top = uint32(end)
	return b
}

// resolve maps a handle to its block, rejecting foreign and stale handles.
// A handle is live when its header offset is a current block start and the
// header is in use with the handle's generation. Generations are 32 bits and
// wrap after 2^32-1 allocations, so a handle kept across that many
// allocations of the same block may be accepted again.
func (h *Heap) resolve(p Ptr) (uint32, error) {
	if h.closed {
		return 0, ErrClosed
	}
	off := p.Offset()
	if p == Nil || off < arenaBase+HeaderSize || off >= h.top || off%Alignment != 0 {
		return 0, fmt.Errorf("%w: %s", ErrInvalidPointer, p)
	}
	b := h.blockOf(off)
	if !h.isStart(b) || !h.inUse(b) || h.gen(b) != p.Gen() {
		return 0, fmt.Errorf("%w: %s", ErrStalePointer, p)
	}
	return b, nil
}

// Header returns a copy of the header in front of p.
func (h *Heap) Header(p Ptr) (Header, error) {
	b, err := h.resolve(p)
	if err != nil {
		return Header{}, err
	}
	return h.header(b), nil
}

func (h *Heap) header(b uint32) Header {
	return Header{
		Next: h.next(b),
		Prev: h.prev(b),
		Size: h.size(b),
		Refs: h.refs(b),
		Gen:  h.gen(b),
		Free: !h.inUse(b),
	}
}

// Bytes returns the payload of p. The slice aliases heap memory and is only
// valid until the block is released.
func (h *Heap) Bytes(p Ptr) ([]byte, error) {
	b, err := h.resolve(p)
	if err != nil {
		return nil, err
	}
	start := h.payload(b)
	return h.data[start : start+h.size(b) : start+h.size(b)], nil
}

// IncRef increments the block refcount.
func (h *Heap) IncRef(p Ptr) error {
	b, err := h.resolve(p)
	if err != nil {
		return err
	}
	if r := h.refs(b); r < math.MaxUint32 {
		h.setRefs(b, r+1)
	}
	h.counters.incRefs++
	return nil
}

// DecRef decrements the block refcount. It never frees; a block at zero
// waits for the next Collect.
func (h *Heap) DecRef(p Ptr) error {
	b, err := h.resolve(p)
	if err != nil {
		return err
	}
	if r := h.refs(b); r > 0 {
		h.setRefs(b, r-1)
	}
	h.counters.decRefs++
	return nil
}

// Free reclaims p immediately regardless of its refcount.
func (h *Heap) Free(p Ptr) error {
	b, err := h.resolve(p)
	if err != nil {
		return err
	}
	if h.tracer.Enabled() {
		h.emit(trace.ScopeBlock, "free", fmt.Sprintf("%s refs=%d", p, h.refs(b)))
	}
	h.reclaim(b)
	return nil
}

// reclaim returns b to the free pool, merging it with free neighbours. It
// returns the block that now covers b, or 0 if the space went back to the
// bump region.
func (h *Heap) reclaim(b uint32) uint32 {
	h.used -= h.footprint(b)
	h.counters.frees++
	h.setFlags(b, 0)
	h.setRefs(b, 0)
	h.setGen(b, 0)

	if n := h.next(b); n != 0 && !h.inUse(n) {
		h.unlinkFree(n)
		h.absorb(b, n)
	}
	if p := h.prev(b); p != 0 && !h.inUse(p) {
		h.unlinkFree(p)
		h.absorb(p, b)
		b = p
	}

	if h.next(b) == 0 {
		h.last = h.prev(b)
		if h.last != 0 {
			h.setNext(h.last, 0)
		} else {
			h.first = 0
		}
		h.clearStart(b)
		h.top = b
		return 0
	}
	h.pushFree(b)
	return b
}

// Collect reclaims every live block whose refcount is zero and returns how
// many were reclaimed. A static heap is never collected.
func (h *Heap) Collect() int {
	if h.closed || h.static {
		return 0
	}
	span := trace.Begin(h.tracer, trace.ScopeRuntime, "collect")
	before := h.used
	n := 0
	for b := h.first; b != 0; {
		next := h.next(b)
		if h.inUse(b) && h.refs(b) == 0 {
			if merged := h.reclaim(b); merged != 0 {
				next = h.next(merged)
			} else {
				next = 0
			}
			n++
		}
		b = next
	}
	h.counters.collections++
	h.counters.reclaimed += uint64(n)
	span.Count("reclaimed", n).Count("bytes", before-h.used)
	span.End("")
	return n
}

// Walk calls fn for every live block in address order until fn returns false.
func (h *Heap) Walk(fn func(p Ptr, hdr Header) bool) {
	if h.closed {
		return
	}
	for b := h.first; b != 0; b = h.next(b) {
		if !h.inUse(b) {
			continue
		}
		if !fn(makePtr(h.payload(b), h.gen(b)), h.header(b)) {
			return
		}
	}
}

// Contains reports whether p addresses a live block of h.
func (h *Heap) Contains(p Ptr) bool {
	_, err := h.resolve(p)
	return err == nil
}

func (h *Heap) emit(scope trace.Scope, name, detail string) {
	trace.Point(h.tracer, scope, name, detail)
}
