package vm_test

import (
	"errors"
	"math"
	"testing"

	"klang/internal/vm"
)

func newRuntime(t *testing.T) *vm.Runtime {
	t.Helper()
	rt, err := vm.New(vm.WithHeapSize(1 << 20))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = rt.Close() })
	return rt
}

func mustRef(t *testing.T) func(vm.Ref, error) vm.Ref {
	return func(r vm.Ref, err error) vm.Ref {
		t.Helper()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return r
	}
}

func TestEndToEndExpression(t *testing.T) {
	rt := newRuntime(t)
	must := mustRef(t)
	base := rt.HeapUsed()

	a := must(rt.Int32(15))
	b := must(rt.Int32(-7))

	sum := must(a.Plus(b))
	if sum.Type() != vm.TypeInteger || sum.ToInt64() != 8 {
		t.Fatalf("a + b = %s", sum)
	}

	eight := must(rt.Int32(8))
	eq := must(eight.Equals(sum))
	if !eq.Value().Same(vm.True) {
		t.Fatalf("8 == (a+b) = %s", eq)
	}

	gt := must(a.Greater(b))
	notGt := must(gt.Not())
	if !gt.ToBool() || notGt.ToBool() {
		t.Fatalf("a > b = %s, !(a > b) = %s", gt, notGt)
	}
	back := must(notGt.Not())
	if back.ToBool() != gt.ToBool() {
		t.Fatalf("!!(a > b) = %s", back)
	}

	prod := must(sum.Multiply(eight))
	inc := must(prod.Increment())
	if inc.Type() != vm.TypeInteger || inc.String() != "65" {
		t.Fatalf("++((a+b)*8) = %s", inc)
	}

	for _, r := range []*vm.Ref{&a, &b, &sum, &eight, &eq, &gt, &notGt, &back, &prod, &inc} {
		r.Release()
	}
	rt.Collect()
	if got := rt.HeapUsed(); got != base {
		t.Fatalf("HeapUsed = %d after release and collect, want %d", got, base)
	}
}

func TestZeroRefIsUndefined(t *testing.T) {
	var r vm.Ref
	if !r.Value().Same(vm.Undefined) || r.Type() != vm.TypeUndefined {
		t.Fatalf("zero Ref holds %s", r.Value())
	}
	if r.String() != "undefined" || r.ToBool() || r.ToInt64() != 0 {
		t.Fatalf("zero Ref converts to %q", r.String())
	}
	if r.Runtime() != vm.Default() {
		t.Fatalf("zero Ref must belong to the default runtime")
	}
	r.Release()
	c := r.Clone()
	if !c.Value().Same(vm.Undefined) {
		t.Fatalf("clone of zero Ref holds %s", c.Value())
	}
}

func TestRefOwnership(t *testing.T) {
	rt := newRuntime(t)
	must := mustRef(t)

	r := must(rt.Text("owned"))
	v := r.Value()
	if rt.Refs(v) != 1 {
		t.Fatalf("new Ref refs = %d", rt.Refs(v))
	}
	c := r.Clone()
	if rt.Refs(v) != 2 {
		t.Fatalf("after Clone refs = %d", rt.Refs(v))
	}

	var holder vm.Ref
	holder.Set(c)
	if rt.Refs(v) != 3 {
		t.Fatalf("after Set refs = %d", rt.Refs(v))
	}
	holder.Set(holder)
	if rt.Refs(v) != 3 {
		t.Fatalf("self Set changed refs to %d", rt.Refs(v))
	}

	moved := c.Take()
	if !c.Value().Same(vm.Undefined) || rt.Refs(v) != 3 {
		t.Fatalf("Take must move without counting, refs = %d", rt.Refs(v))
	}

	var dst vm.Ref
	dst.SetMoved(&moved)
	if !moved.Value().Same(vm.Undefined) || !dst.Value().Same(v) || rt.Refs(v) != 3 {
		t.Fatalf("SetMoved: refs = %d", rt.Refs(v))
	}

	other := must(rt.Int64(9))
	ov := other.Value()
	dst.SetValue(ov)
	if rt.Refs(v) != 2 || rt.Refs(ov) != 2 {
		t.Fatalf("SetValue: refs %d/%d", rt.Refs(v), rt.Refs(ov))
	}

	for _, x := range []*vm.Ref{&r, &holder, &dst, &other} {
		x.Release()
	}
	if rt.Refs(v) != 0 || rt.Refs(ov) != 0 {
		t.Fatalf("after release refs %d/%d", rt.Refs(v), rt.Refs(ov))
	}
	if n := rt.Collect(); n != 2 {
		t.Fatalf("Collect reclaimed %d, want 2", n)
	}
}

func TestRefIncDecInPlace(t *testing.T) {
	rt := newRuntime(t)
	r := mustRef(t)(rt.Int32(41))
	old := r.Value()
	if err := r.Inc(); err != nil {
		t.Fatalf("Inc: %v", err)
	}
	if r.ToInt32() != 42 || rt.Refs(old) != 0 {
		t.Fatalf("Inc: value %s, old refs %d", r, rt.Refs(old))
	}
	if err := r.Dec(); err != nil {
		t.Fatalf("Dec: %v", err)
	}
	if r.ToInt32() != 41 {
		t.Fatalf("Dec: value %s", r)
	}

	s := mustRef(t)(rt.Text("x"))
	if err := s.Inc(); !errors.Is(err, vm.ErrUnsupportedOperation) {
		t.Fatalf("Inc on string = %v", err)
	}
	if s.String() != "x" {
		t.Fatalf("failed Inc changed value to %s", s)
	}
}

func TestMakeNativeValues(t *testing.T) {
	rt := newRuntime(t)
	tests := []struct {
		in   any
		typ  vm.Type
		text string
	}{
		{nil, vm.TypeUndefined, "undefined"},
		{true, vm.TypeBoolean, "true"},
		{int32(-3), vm.TypeInteger, "-3"},
		{uint32(4000000000), vm.TypeInteger, "-294967296"},
		{int(12), vm.TypeInteger, "12"},
		{int64(-1 << 40), vm.TypeInteger, "-1099511627776"},
		{uint64(1<<64 - 1), vm.TypeInteger, "-1"},
		{float32(0.25), vm.TypeFloat, "0.25"},
		{2.5, vm.TypeFloat, "2.5"},
		{"text", vm.TypeString, "text"},
	}
	for _, tt := range tests {
		r, err := rt.Make(tt.in)
		if err != nil {
			t.Fatalf("Make(%v): %v", tt.in, err)
		}
		if r.Type() != tt.typ || r.String() != tt.text {
			t.Fatalf("Make(%v) = %s %q, want %s %q", tt.in, r.Type(), r.String(), tt.typ, tt.text)
		}
		r.Release()
	}
	u := mustRef(t)(rt.Uint64(1<<64 - 1))
	if u.ToUint64() != 1<<64-1 || u.ToUint32() != 1<<32-1 {
		t.Fatalf("unsigned round trip lost bits: %d", u.ToUint64())
	}
	if _, err := rt.Make(struct{}{}); err == nil {
		t.Fatalf("Make(struct{}) must fail")
	}
}

func TestUint32WrapsAsInt32(t *testing.T) {
	rt := newRuntime(t)
	must := mustRef(t)
	u := must(rt.Uint32(math.MaxUint32))
	defer u.Release()
	if w := rt.Width(u.Value()); w != 4 || u.String() != "-1" {
		t.Fatalf("Uint32(MaxUint32) = width %d %q, want width 4 \"-1\"", w, u.String())
	}
	if u.ToUint32() != math.MaxUint32 {
		t.Fatalf("ToUint32 = %d, want %d", u.ToUint32(), uint32(math.MaxUint32))
	}

	one := must(rt.Int32(1))
	defer one.Release()
	sum := must(u.Plus(one))
	defer sum.Release()
	if w := rt.Width(sum.Value()); w != 8 || sum.String() != "0" {
		t.Fatalf("Uint32(MaxUint32)+1 = width %d %q, want width 8 \"0\"", w, sum.String())
	}
}

func TestAccessor(t *testing.T) {
	rt := newRuntime(t)
	must := mustRef(t)
	s := must(rt.Text("héllo"))
	acc, err := s.At(1)
	if err != nil {
		t.Fatalf("At: %v", err)
	}
	if acc.String() != "é" {
		t.Fatalf("s[1] = %q", acc.String())
	}
	ch := must(acc.Get())
	if ch.Type() != vm.TypeString || ch.String() != "é" {
		t.Fatalf("Get = %s", ch)
	}
	if err := acc.Set(ch); !errors.Is(err, vm.ErrUnsupportedOperation) {
		t.Fatalf("Set on string = %v", err)
	}
	far := must(rt.Int32(99))
	out := s.Index(far)
	if out.String() != "undefined" {
		t.Fatalf("s[99] = %q", out.String())
	}

	n := must(rt.Int32(1))
	bad, err := n.At(0)
	if err != nil {
		t.Fatalf("At: %v", err)
	}
	if _, err := bad.Get(); !errors.Is(err, vm.ErrUnsupportedOperation) {
		t.Fatalf("integer[0] = %v", err)
	}

	for _, a := range []*vm.Accessor{&acc, &out, &bad} {
		a.Release()
	}
	for _, r := range []*vm.Ref{&s, &ch, &far, &n} {
		r.Release()
	}
	if live := rt.LiveValues(); live != 0 {
		t.Fatalf("%d values still referenced:\n%s", live, rt.HeapDump(false))
	}
}

func TestRefErrorsLeaveUndefined(t *testing.T) {
	rt := newRuntime(t)
	must := mustRef(t)
	s := must(rt.Text("a"))
	n := must(rt.Int32(0))
	cases := []func() (vm.Ref, error){
		func() (vm.Ref, error) { return s.Greater(s) },
		func() (vm.Ref, error) { return n.Divide(n) },
		func() (vm.Ref, error) { return s.Property("length") },
		func() (vm.Ref, error) { return s.SetProperty("length", n) },
		func() (vm.Ref, error) { return s.Call(n, n, s) },
		func() (vm.Ref, error) { return s.ReferenceGet() },
		func() (vm.Ref, error) { return s.Iterator() },
		func() (vm.Ref, error) { return n.HasNext() },
		func() (vm.Ref, error) { return n.Next() },
	}
	for i, call := range cases {
		r, err := call()
		if err == nil {
			t.Fatalf("case %d: expected an error", i)
		}
		var kerr *vm.Error
		if !errors.As(err, &kerr) {
			t.Fatalf("case %d: error %v is not *vm.Error", i, err)
		}
		if !r.Value().Same(vm.Undefined) {
			t.Fatalf("case %d: result %s, want undefined", i, r)
		}
	}
}
