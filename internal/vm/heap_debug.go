package vm

import (
	"klang/internal/heap"
)

// Stats is a snapshot of both heaps plus a census of live values by type.
type Stats struct {
	Heap   heap.Stats     `msgpack:"heap" json:"heap"`
	Static heap.Stats     `msgpack:"static" json:"static"`
	Live   map[string]int `msgpack:"live" json:"live"`
	Dead   int            `msgpack:"dead" json:"dead"` // live blocks with zero refs awaiting Collect
}

// Stats walks the default heap and reports counters and the live census.
func (rt *Runtime) Stats() Stats {
	st := Stats{
		Heap:   rt.heap.Stats(),
		Static: staticHeap.Stats(),
		Live:   make(map[string]int),
	}
	rt.walkValues(rt.heap, func(v Value, hdr heap.Header) {
		if hdr.Refs == 0 {
			st.Dead++
			return
		}
		st.Live[v.typ.String()]++
	})
	return st
}

// LiveValues counts values on the default heap that are still referenced.
func (rt *Runtime) LiveValues() int {
	n := 0
	rt.walkValues(rt.heap, func(_ Value, hdr heap.Header) {
		if hdr.Refs > 0 {
			n++
		}
	})
	return n
}

// walkValues visits every value block of h in address order.
func (rt *Runtime) walkValues(h *heap.Heap, fn func(Value, heap.Header)) {
	h.Walk(func(p heap.Ptr, hdr heap.Header) bool {
		buf, err := h.Bytes(p)
		if err != nil || len(buf) < payloadData {
			return true
		}
		t := Type(buf[payloadTag])
		if t >= typeCount {
			return true
		}
		fn(Value{ptr: p, typ: t}, hdr)
		return true
	})
}
