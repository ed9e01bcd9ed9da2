// Package testkit checks structural invariants of heaps and runtimes from
// tests and the stress runner.
package testkit

import (
	"fmt"

	"klang/internal/heap"
)

// CheckHeap runs the structural heap invariants:
// 1) blocks tile the arena from its base to the bump pointer in address order
// 2) every payload is aligned and at least one free-list link pair wide
// 3) no two free blocks are adjacent and the last block is never free
// 4) the free list holds exactly the free blocks, each once
// 5) Used equals the footprint of the live blocks
func CheckHeap(h *heap.Heap) error {
	if h == nil {
		return fmt.Errorf("nil heap")
	}
	base, top := h.Bounds()
	blocks := h.Blocks()
	st := h.Stats()

	free := make(map[uint32]bool)
	expect := base
	prev := uint32(0)
	prevFree := false
	used := 0
	for i, b := range blocks {
		if b.Offset != expect {
			return fmt.Errorf("block %d at %d, want %d", i, b.Offset, expect)
		}
		if b.Prev != prev {
			return fmt.Errorf("block %d: prev link %d, want %d", b.Offset, b.Prev, prev)
		}
		if b.Size%heap.Alignment != 0 || b.Size < 2*4 {
			return fmt.Errorf("block %d: bad payload size %d", b.Offset, b.Size)
		}
		if b.Free {
			if prevFree {
				return fmt.Errorf("blocks %d and %d are both free", prev, b.Offset)
			}
			free[b.Offset] = true
		} else {
			used += heap.HeaderSize + int(b.Size)
		}
		prevFree = b.Free
		prev = b.Offset
		expect = b.Offset + heap.HeaderSize + b.Size
		if b.Next != 0 && b.Next != expect {
			return fmt.Errorf("block %d: next link %d, want %d", b.Offset, b.Next, expect)
		}
	}
	if expect != top && len(blocks) > 0 {
		return fmt.Errorf("blocks end at %d, bump pointer at %d", expect, top)
	}
	if len(blocks) == 0 && top != base {
		return fmt.Errorf("empty block list with bump pointer at %d", top)
	}
	if prevFree {
		return fmt.Errorf("last block %d is free", prev)
	}
	if int(top) > st.Capacity {
		return fmt.Errorf("bump pointer %d beyond capacity %d", top, st.Capacity)
	}

	list := h.FreeList(len(blocks) + 1)
	if len(list) != len(free) {
		return fmt.Errorf("free list has %d entries, %d free blocks", len(list), len(free))
	}
	for _, off := range list {
		if !free[off] {
			return fmt.Errorf("free list entry %d is not a free block", off)
		}
		delete(free, off)
	}

	if used != st.Used {
		return fmt.Errorf("used %d, live footprint %d", st.Used, used)
	}
	return nil
}
