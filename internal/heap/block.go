package heap

import "encoding/binary"

// Block header layout, little-endian uint32 fields.
const (
	hdrNext  = 0
	hdrPrev  = 4
	hdrSize  = 8
	hdrRefs  = 12
	hdrGen   = 16
	hdrFlags = 20

	// HeaderSize is the number of bytes preceding every payload.
	HeaderSize = 24

	// Alignment of every payload size and block offset.
	Alignment = 8

	// minPayload holds the free-list links of a released block.
	minPayload = 8

	// arenaBase keeps offset 0 free so that it can mean "no block".
	arenaBase = 8

	// MinCapacity is the smallest heap that can hold one block.
	MinCapacity = arenaBase + HeaderSize + 2*minPayload
)

const flagUsed uint32 = 1

// Free-list links, stored in the first bytes of a free block's payload.
const (
	freeNext = HeaderSize + 0
	freePrev = HeaderSize + 4
)

func alignUp(n uint32) uint32 {
	return (n + Alignment - 1) &^ (Alignment - 1)
}

func (h *Heap) u32(off uint32) uint32 {
	return binary.LittleEndian.Uint32(h.data[off : off+4])
}

func (h *Heap) setU32(off, v uint32) {
	binary.LittleEndian.PutUint32(h.data[off:off+4], v)
}

func (h *Heap) next(b uint32) uint32 { return h.u32(b + hdrNext) }
func (h *Heap) prev(b uint32) uint32 { return h.u32(b + hdrPrev) }
func (h *Heap) size(b uint32) uint32 { return h.u32(b + hdrSize) }
func (h *Heap) refs(b uint32) uint32 { return h.u32(b + hdrRefs) }
func (h *Heap) gen(b uint32) uint32 { return h.u32(b + hdrGen) }
func (h *Heap) inUse(b uint32) bool { return h.u32(b+hdrFlags)&flagUsed != 0 }
func (h *Heap) setNext(b, v uint32) { h.setU32(b+hdrNext, v) }
func (h *Heap) setPrev(b, v uint32) { h.setU32(b+hdrPrev, v) }
func (h *Heap) setSize(b, v uint32) { h.setU32(b+hdrSize, v) }
func (h *Heap) setRefs(b, v uint32) { h.setU32(b+hdrRefs, v) }
func (h *Heap) setGen(b, v uint32) { h.setU32(b+hdrGen, v) }
func (h *Heap) setFlags(b, v uint32) { h.setU32(b+hdrFlags, v) }
func (h *Heap) footprint(b uint32) int { return HeaderSize + int(h.size(b)) }
func (h *Heap) payload(b uint32) uint32 { return b + HeaderSize }
func (h *Heap) blockOf(off uint32) uint32 { return off - HeaderSize }

// The starts bitmap holds one bit per Alignment granule, set where a block
// header begins. A header swallowed by a merge becomes payload that a later
// allocation may overwrite, so its bit is cleared and resolve never trusts
// those bytes again.
func (h *Heap) markStart(b uint32) {
	i := b / Alignment
	h.starts[i/64] |= 1 << (i % 64)
}

func (h *Heap) clearStart(b uint32) {
	i := b / Alignment
	h.starts[i/64] &^= 1 << (i % 64)
}

func (h *Heap) isStart(b uint32) bool {
	i := b / Alignment
	return h.starts[i/64]&(1<<(i%64)) != 0
}

// writeHeader initialises a block header in place.
func (h *Heap) writeHeader(b, next, prev, size uint32) {
	h.markStart(b)
	h.setNext(b, next)
	h.setPrev(b, prev)
	h.setSize(b, size)
	h.setRefs(b, 0)
	h.setGen(b, 0)
	h.setFlags(b, 0)
}

// pushFree threads b onto the head of the free list.
func (h *Heap) pushFree(b uint32) {
	h.setU32(b+freeNext, h.freeHead)
	h.setU32(b+freePrev, 0)
	if h.freeHead != 0 {
		h.setU32(h.freeHead+freePrev, b)
	}
	h.freeHead = b
}

// unlinkFree removes b from the free list.
func (h *Heap) unlinkFree(b uint32) {
	n := h.u32(b + freeNext)
	p := h.u32(b + freePrev)
	if p != 0 {
		h.setU32(p+freeNext, n)
	} else {
		h.freeHead = n
	}
	if n != 0 {
		h.setU32(n+freePrev, p)
	}
}

// absorb merges the block right into its left neighbour left.
func (h *Heap) absorb(left, right uint32) {
	h.setSize(left, h.size(left)+HeaderSize+h.size(right))
	n := h.next(right)
	h.setNext(left, n)
	if n != 0 {
		h.setPrev(n, left)
	} else {
		h.last = left
	}
	h.clearStart(right)
}

// split carves a free block off the tail of b when the remainder can hold a
// header plus the minimum payload.
func (h *Heap) split(b, need uint32) {
	have := h.size(b)
	if have-need < HeaderSize+minPayload {
		return
	}
	rest := b + HeaderSize + need
	n := h.next(b)
	h.writeHeader(rest, n, b, have-need-HeaderSize)
	if n != 0 {
		h.setPrev(n, rest)
	} else {
		h.last = rest
	}
	h.setNext(b, rest)
	h.setSize(b, need)
	h.pushFree(rest)
}
