package vm_test

import (
	"testing"

	"klang/internal/vm"
)

func TestStackPushPop(t *testing.T) {
	rt := newRuntime(t)
	must := mustRef(t)
	s := vm.NewStack(rt, 2)
	if s.Capacity() != 2 || s.Size() != 0 {
		t.Fatalf("new stack size=%d cap=%d", s.Size(), s.Capacity())
	}

	a := must(rt.Int32(1))
	b := must(rt.Int32(2))
	c := must(rt.Int32(3))
	if !s.Push(a) || !s.Push(b) {
		t.Fatalf("push into free slots failed")
	}
	if s.Push(c) {
		t.Fatalf("push into a full stack must be dropped")
	}
	if rt.Refs(c.Value()) != 1 {
		t.Fatalf("dropped push changed refs to %d", rt.Refs(c.Value()))
	}
	if rt.Refs(a.Value()) != 2 {
		t.Fatalf("pushed value refs = %d, want 2", rt.Refs(a.Value()))
	}

	top := s.Pop()
	if top.ToInt32() != 2 || s.Size() != 1 || rt.Refs(b.Value()) != 2 {
		t.Fatalf("Pop = %s size=%d refs=%d", top, s.Size(), rt.Refs(b.Value()))
	}
	top.Release()
	last := s.Pop()
	last.Release()

	empty := s.Pop()
	if !empty.Value().Same(vm.Undefined) || s.Size() != 0 {
		t.Fatalf("Pop on empty stack = %s", empty)
	}

	for _, r := range []*vm.Ref{&a, &b, &c} {
		r.Release()
	}
	if n := rt.LiveValues(); n != 0 {
		t.Fatalf("%d values still referenced", n)
	}
}

func TestStackGetSetBounds(t *testing.T) {
	rt := newRuntime(t)
	must := mustRef(t)
	s := vm.NewStack(rt, 4)
	x := must(rt.Int32(10))
	y := must(rt.Int32(20))
	s.Push(x)

	if got := s.Get(0); !got.Same(x.Value()) {
		t.Fatalf("Get(0) = %s", got)
	}
	for _, i := range []int{-1, 1, 3, 4, 100} {
		if got := s.Get(i); !got.Same(vm.Undefined) {
			t.Fatalf("Get(%d) = %s, want undefined", i, got)
		}
		s.Set(i, y.Value())
	}
	if rt.Refs(y.Value()) != 1 {
		t.Fatalf("out of range Set changed refs to %d", rt.Refs(y.Value()))
	}

	s.Set(0, y.Value())
	if rt.Refs(x.Value()) != 1 || rt.Refs(y.Value()) != 2 {
		t.Fatalf("Set refs x=%d y=%d", rt.Refs(x.Value()), rt.Refs(y.Value()))
	}
	s.Set(0, y.Value())
	if rt.Refs(y.Value()) != 2 {
		t.Fatalf("Set of the same value changed refs to %d", rt.Refs(y.Value()))
	}
	if s.Size() != 1 {
		t.Fatalf("Set must not grow the stack, size=%d", s.Size())
	}

	s.Release()
	if s.Size() != 0 || rt.Refs(y.Value()) != 1 {
		t.Fatalf("Release left size=%d refs=%d", s.Size(), rt.Refs(y.Value()))
	}
	x.Release()
	y.Release()
}

func TestStackSingletonsAndNilRuntime(t *testing.T) {
	s := vm.NewStack(nil, 3)
	s.PushValue(vm.True)
	s.PushValue(vm.Value{})
	if !s.Get(0).Same(vm.True) || !s.Get(1).Same(vm.Undefined) {
		t.Fatalf("unexpected slots %s %s", s.Get(0), s.Get(1))
	}
	if r := s.Pop(); r.Runtime() != vm.Default() {
		t.Fatalf("stack without runtime must use the default runtime")
	}
	s.Release()

	zero := vm.NewStack(nil, -5)
	if zero.Capacity() != 0 || zero.Push(vm.Ref{}) {
		t.Fatalf("negative capacity must yield an unusable empty stack")
	}
}
