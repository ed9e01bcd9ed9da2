package vm

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"klang/internal/heap"
)

func newTestRuntime(t *testing.T) *Runtime {
	t.Helper()
	rt, err := New(WithHeapSize(1 << 20))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() {
		if err := rt.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return rt
}

func mustFn(t *testing.T) func(Value, error) Value {
	return func(v Value, err error) Value {
		t.Helper()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return v
	}
}

func TestSingletonIdentity(t *testing.T) {
	if !NewBoolean(true).Same(True) || !NewBoolean(false).Same(False) {
		t.Fatalf("NewBoolean must return the singletons")
	}
	if True.Same(False) {
		t.Fatalf("True and False must differ")
	}
	var zero Value
	if !zero.Same(Undefined) || zero.Type() != TypeUndefined {
		t.Fatalf("zero Value must be Undefined, got %v", zero)
	}
	if !staticHeap.Contains(Undefined.Ptr()) || !staticHeap.Contains(True.Ptr()) {
		t.Fatalf("singletons must live on the static heap")
	}
}

func TestSingletonRefcountsNeverChange(t *testing.T) {
	rt := newTestRuntime(t)
	before := rt.Refs(True)
	for range 10 {
		rt.IncRef(True)
		rt.DecRef(Undefined)
	}
	rt.DecRef(True)
	if got := rt.Refs(True); got != before {
		t.Fatalf("True refs = %d, want %d", got, before)
	}
	if err := rt.Free(False); err != nil {
		t.Fatalf("Free(False): %v", err)
	}
	if !rt.ToBool(True) || rt.ToBool(False) {
		t.Fatalf("singletons must survive Free and Collect")
	}
}

func TestFactoriesRoundTrip(t *testing.T) {
	must := mustFn(t)
	rt := newTestRuntime(t)

	i32 := must(rt.NewInteger(-15))
	if i32.Type() != TypeInteger || rt.Width(i32) != 4 || rt.ToInt32(i32) != -15 {
		t.Fatalf("NewInteger round trip failed: %s width=%d", rt.ToText(i32), rt.Width(i32))
	}
	i64 := must(rt.NewLongInteger(1<<40))
	if rt.Width(i64) != 8 || rt.ToInt64(i64) != 1<<40 {
		t.Fatalf("NewLongInteger round trip failed: %s", rt.ToText(i64))
	}
	f32 := must(rt.NewFloat(1.5))
	if f32.Type() != TypeFloat || rt.Width(f32) != 4 || rt.ToFloat32(f32) != 1.5 {
		t.Fatalf("NewFloat round trip failed: %s", rt.ToText(f32))
	}
	f64 := must(rt.NewDouble(-2.25))
	if rt.Width(f64) != 8 || rt.ToFloat64(f64) != -2.25 {
		t.Fatalf("NewDouble round trip failed: %s", rt.ToText(f64))
	}
	s := must(rt.NewString("héllo, 世界"))
	if s.Type() != TypeString || rt.ToText(s) != "héllo, 世界" || rt.RuneLen(s) != 9 {
		t.Fatalf("NewString round trip failed: %q len=%d", rt.ToText(s), rt.RuneLen(s))
	}
	empty := must(rt.NewString(""))
	if rt.ToText(empty) != "" || rt.ToBool(empty) {
		t.Fatalf("empty string must be falsy and empty")
	}
	for _, v := range []Value{i32, i64, f32, f64, s, empty} {
		if got := rt.Refs(v); got != 1 {
			t.Fatalf("%s refs = %d, want 1", v, got)
		}
	}
}

func TestConversions(t *testing.T) {
	must := mustFn(t)
	rt := newTestRuntime(t)
	tests := []struct {
		v     Value
		i64   int64
		f64   float64
		truth bool
		text  string
	}{
		{Undefined, 0, 0, false, "undefined"},
		{True, 1, 1, true, "true"},
		{False, 0, 0, false, "false"},
		{must(rt.NewInteger(42)), 42, 42, true, "42"},
		{must(rt.NewInteger(0)), 0, 0, false, "0"},
		{must(rt.NewDouble(-3.75)), -3, -3.75, true, "-3.75"},
		{must(rt.NewFloat(0.5)), 0, 0.5, true, "0.5"},
		{must(rt.NewString(" 17 ")), 17, 17, true, " 17 "},
		{must(rt.NewString("2.9")), 2, 2.9, true, "2.9"},
		{must(rt.NewString("abc")), 0, 0, true, "abc"},
	}
	for _, tt := range tests {
		if got := rt.ToInt64(tt.v); got != tt.i64 {
			t.Errorf("ToInt64(%s) = %d, want %d", tt.text, got, tt.i64)
		}
		if got := rt.ToFloat64(tt.v); got != tt.f64 {
			t.Errorf("ToFloat64(%s) = %v, want %v", tt.text, got, tt.f64)
		}
		if got := rt.ToBool(tt.v); got != tt.truth {
			t.Errorf("ToBool(%s) = %t, want %t", tt.text, got, tt.truth)
		}
		if got := rt.ToText(tt.v); got != tt.text {
			t.Errorf("ToText = %q, want %q", got, tt.text)
		}
	}

	v := must(rt.NewLongInteger(7))
	vec := rt.ToVector(v)
	if len(vec) != 1 || !vec[0].Same(v) {
		t.Fatalf("ToVector = %v", vec)
	}
	m := rt.ToMap(v)
	if len(m) != 1 || m[0].Key != "scalar" || !m[0].Value.Same(v) {
		t.Fatalf("ToMap = %v", m)
	}
}

func TestTruncationSaturates(t *testing.T) {
	must := mustFn(t)
	rt := newTestRuntime(t)
	big := must(rt.NewDouble(1e300))
	if got := rt.ToInt64(big); got != 1<<63-1 {
		t.Fatalf("ToInt64(1e300) = %d", got)
	}
	nan := must(rt.NewDouble(0))
	nan = must(rt.Divide(nan, nan))
	if got := rt.ToInt64(nan); got != 0 {
		t.Fatalf("ToInt64(NaN) = %d", got)
	}
	if rt.ToBool(nan) {
		t.Fatalf("NaN must be falsy")
	}
}

func TestRefcountBaselineAndCollect(t *testing.T) {
	must := mustFn(t)
	rt := newTestRuntime(t)
	base := rt.HeapUsed()

	a := must(rt.NewInteger(15))
	b := must(rt.NewInteger(-7))
	sum := must(rt.Plus(a, b))
	rt.IncRef(sum)
	if got := rt.Refs(sum); got != 2 {
		t.Fatalf("sum refs = %d, want 2", got)
	}
	rt.DecRef(sum)
	for _, v := range []Value{a, b, sum} {
		rt.DecRef(v)
	}
	if rt.HeapUsed() == base {
		t.Fatalf("DecRef must not reclaim before Collect")
	}
	if n := rt.Collect(); n != 3 {
		t.Fatalf("Collect reclaimed %d, want 3", n)
	}
	if got := rt.HeapUsed(); got != base {
		t.Fatalf("HeapUsed = %d after collect, want %d", got, base)
	}
	if rt.Live(sum) {
		t.Fatalf("collected value must not be live")
	}
}

func TestStaleHandlePanics(t *testing.T) {
	must := mustFn(t)
	rt := newTestRuntime(t)
	v := must(rt.NewString("gone"))
	if err := rt.Free(v); err != nil {
		t.Fatalf("Free: %v", err)
	}
	// Reuse the block so only the generation tells the handles apart.
	w := must(rt.NewString("gone"))
	if w.Ptr().Offset() != v.Ptr().Offset() {
		t.Fatalf("expected block reuse, got %s and %s", v.Ptr(), w.Ptr())
	}

	defer func() {
		r := recover()
		err, ok := r.(*Error)
		if !ok {
			t.Fatalf("expected *Error panic, got %v", r)
		}
		if !errors.Is(err, ErrInvalidHandle) || !errors.Is(err, heap.ErrStalePointer) {
			t.Fatalf("unexpected panic error: %v", err)
		}
	}()
	_ = rt.ToText(v)
}

func TestFreeStaleReturnsError(t *testing.T) {
	must := mustFn(t)
	rt := newTestRuntime(t)
	v := must(rt.NewInteger(1))
	if err := rt.Free(v); err != nil {
		t.Fatalf("Free: %v", err)
	}
	err := rt.Free(v)
	if !errors.Is(err, ErrInvalidHandle) {
		t.Fatalf("double Free = %v, want invalid handle", err)
	}
}

func TestHeapOverflowIsHeapFailure(t *testing.T) {
	rt, err := New(WithHeapSize(heap.MinCapacity + 64))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer rt.Close()
	_, err = rt.NewString(strings.Repeat("x", 1000))
	if !errors.Is(err, ErrHeapFailure) || !errors.Is(err, heap.ErrHeapOverflow) {
		t.Fatalf("NewString = %v, want heap overflow", err)
	}
	var kerr *Error
	if !errors.As(err, &kerr) || kerr.Code != CodeHeapFailure {
		t.Fatalf("error %v is not a KL1002 *Error", err)
	}
}

func TestNewRejectsTinyHeap(t *testing.T) {
	_, err := New(WithHeapSize(16))
	if !errors.Is(err, ErrHeapFailure) || !errors.Is(err, heap.ErrCannotCreate) {
		t.Fatalf("New = %v, want cannot create", err)
	}
}

func TestRuntimesAreIndependent(t *testing.T) {
	must := mustFn(t)
	r1 := newTestRuntime(t)
	r2 := newTestRuntime(t)
	v := must(r1.NewInteger(3))
	w := must(r2.NewInteger(4))
	r1.DecRef(v)
	if n := r2.Collect(); n != 0 {
		t.Fatalf("r2 collected %d values owned by r1", n)
	}
	if got := r2.ToInt64(w); got != 4 {
		t.Fatalf("r2 value = %d", got)
	}
	if n := r1.Collect(); n != 1 {
		t.Fatalf("r1 collected %d, want 1", n)
	}
}

func TestStatsAndDump(t *testing.T) {
	must := mustFn(t)
	rt := newTestRuntime(t)
	a := must(rt.NewInteger(5))
	_ = must(rt.NewInteger(5))
	s := must(rt.NewString("hi"))
	rt.DecRef(s)

	st := rt.Stats()
	if st.Live["integer"] != 2 || st.Dead != 1 {
		t.Fatalf("Stats live=%v dead=%d", st.Live, st.Dead)
	}
	if st.Heap.Allocs != 3 || !st.Static.Static {
		t.Fatalf("Stats heap=%+v", st.Heap)
	}
	if n := rt.LiveValues(); n != 2 {
		t.Fatalf("LiveValues = %d", n)
	}

	dump := rt.HeapDump(false)
	want := "integer/32 size=16 rc=1 5 count=2\nstring size=24 rc=0 \"hi\"\n"
	if dump != want {
		t.Fatalf("HeapDump =\n%s\nwant\n%s", dump, want)
	}
	if !strings.Contains(rt.HeapDump(true), "static boolean size=16") {
		t.Fatalf("static dump missing singletons:\n%s", rt.HeapDump(true))
	}
	rt.DecRef(a)
}

func TestSnapshotRoundTrip(t *testing.T) {
	must := mustFn(t)
	rt := newTestRuntime(t)
	_ = must(rt.NewDouble(2.5))
	_ = must(rt.NewString("snap"))

	var buf bytes.Buffer
	if err := rt.WriteSnapshot(&buf); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	snap, err := ReadSnapshot(&buf)
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	if len(snap.Values) != 2 {
		t.Fatalf("snapshot has %d values", len(snap.Values))
	}
	if snap.Values[0].Type != "float" || snap.Values[0].Width != 8 || snap.Values[0].Text != "2.5" {
		t.Fatalf("first value = %+v", snap.Values[0])
	}
	if snap.Values[1].Type != "string" || snap.Values[1].Text != "snap" {
		t.Fatalf("second value = %+v", snap.Values[1])
	}
	if snap.Stats.Heap.Allocs != 2 {
		t.Fatalf("snapshot stats = %+v", snap.Stats.Heap)
	}
}
