package testkit

import (
	"testing"

	"klang/internal/heap"
)

func TestCheckHeapThroughChurn(t *testing.T) {
	h, err := heap.New(4096, false)
	if err != nil {
		t.Fatalf("heap.New: %v", err)
	}
	defer h.Close()
	if err := CheckHeap(h); err != nil {
		t.Fatalf("empty heap: %v", err)
	}

	var ptrs []heap.Ptr
	for _, size := range []int{8, 40, 16, 100, 8, 24} {
		p, err := h.Alloc(size)
		if err != nil {
			t.Fatalf("Alloc(%d): %v", size, err)
		}
		ptrs = append(ptrs, p)
	}
	steps := []func() error{
		func() error { return h.Free(ptrs[1]) },
		func() error { return h.Free(ptrs[3]) },
		func() error { return h.Free(ptrs[2]) }, // merges 1..3
		func() error { _, err := h.Alloc(32); return err },
		func() error { return h.DecRef(ptrs[5]) },
		func() error { h.Collect(); return nil }, // last block returns to bump space
		func() error { return h.DecRef(ptrs[0]) },
		func() error { return h.DecRef(ptrs[4]) },
		func() error { h.Collect(); return nil },
	}
	for i, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if err := CheckHeap(h); err != nil {
			t.Fatalf("after step %d: %v", i, err)
		}
	}
}

func TestCheckHeapNil(t *testing.T) {
	if CheckHeap(nil) == nil {
		t.Fatalf("nil heap must fail")
	}
}
