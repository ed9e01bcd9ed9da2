package heap

// Stats is a point-in-time view of heap occupancy and traffic.
type Stats struct {
	Static      bool   `msgpack:"static" json:"static"`
	Capacity    int    `msgpack:"capacity" json:"capacity"`
	Used        int    `msgpack:"used" json:"used"`
	Top         int    `msgpack:"top" json:"top"`
	LiveBlocks  int    `msgpack:"live_blocks" json:"live_blocks"`
	FreeBlocks  int    `msgpack:"free_blocks" json:"free_blocks"`
	FreeBytes   int    `msgpack:"free_bytes" json:"free_bytes"`
	Pending     int    `msgpack:"pending" json:"pending"` // live blocks with refs == 0
	Allocs      uint64 `msgpack:"allocs" json:"allocs"`
	Frees       uint64 `msgpack:"frees" json:"frees"`
	IncRefs     uint64 `msgpack:"increfs" json:"increfs"`
	DecRefs     uint64 `msgpack:"decrefs" json:"decrefs"`
	Collections uint64 `msgpack:"collections" json:"collections"`
	Reclaimed   uint64 `msgpack:"reclaimed" json:"reclaimed"`
	Overflows   uint64 `msgpack:"overflows" json:"overflows"`
}

// Stats walks the block list and returns current occupancy plus counters.
func (h *Heap) Stats() Stats {
	s := Stats{
		Static:      h.static,
		Capacity:    h.capacity,
		Used:        h.used,
		Top:         int(h.top),
		Allocs:      h.counters.allocs,
		Frees:       h.counters.frees,
		IncRefs:     h.counters.incRefs,
		DecRefs:     h.counters.decRefs,
		Collections: h.counters.collections,
		Reclaimed:   h.counters.reclaimed,
		Overflows:   h.counters.overflows,
	}
	if h.closed {
		return s
	}
	for b := h.first; b != 0; b = h.next(b) {
		switch {
		case !h.inUse(b):
			s.FreeBlocks++
			s.FreeBytes += int(h.size(b))
		default:
			s.LiveBlocks++
			if h.refs(b) == 0 {
				s.Pending++
			}
		}
	}
	return s
}
