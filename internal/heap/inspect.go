package heap

// Block is an entry of the full block list: its arena offset plus header.
type Block struct {
	Offset uint32
	Header
}

// Blocks returns every block, free or live, in address order.
func (h *Heap) Blocks() []Block {
	if h.closed {
		return nil
	}
	var out []Block
	for b := h.first; b != 0; b = h.next(b) {
		out = append(out, Block{Offset: b, Header: h.header(b)})
	}
	return out
}

// FreeList returns the offsets of the free-list blocks in list order. It
// stops after limit entries so a corrupted cycle cannot hang the caller.
func (h *Heap) FreeList(limit int) []uint32 {
	if h.closed {
		return nil
	}
	var out []uint32
	for b := h.freeHead; b != 0 && len(out) < limit; b = h.u32(b + freeNext) {
		out = append(out, b)
	}
	return out
}

// Bounds reports the first block offset and the bump pointer.
func (h *Heap) Bounds() (base, top uint32) { return arenaBase, h.top }
