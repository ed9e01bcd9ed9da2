package vm_test

import (
	"errors"
	"strconv"
	"testing"

	"klang/internal/testkit"
	"klang/internal/vm"
)

// maxFuzzText bounds string operands so concatenation stays small.
const maxFuzzText = 256

var fuzzBinary = []func(*vm.Runtime, vm.Value, vm.Value) (vm.Value, error){
	(*vm.Runtime).Equals,
	(*vm.Runtime).NotEquals,
	(*vm.Runtime).Greater,
	(*vm.Runtime).Less,
	(*vm.Runtime).GreaterEquals,
	(*vm.Runtime).LessEquals,
	(*vm.Runtime).Plus,
	(*vm.Runtime).Minus,
	(*vm.Runtime).Multiply,
	(*vm.Runtime).Divide,
	(*vm.Runtime).Modulo,
	(*vm.Runtime).ShiftLeft,
	(*vm.Runtime).ShiftRight,
	(*vm.Runtime).BitAnd,
	(*vm.Runtime).BitOr,
	(*vm.Runtime).BitXor,
	(*vm.Runtime).IndexGet,
}

var fuzzUnary = []func(*vm.Runtime, vm.Value) (vm.Value, error){
	(*vm.Runtime).Not,
	(*vm.Runtime).Increment,
	(*vm.Runtime).Decrement,
	(*vm.Runtime).Negative,
	(*vm.Runtime).BitNot,
}

// fuzzValue builds an owned operand of the kind selected by k from text.
func fuzzValue(rt *vm.Runtime, k byte, text string) (vm.Value, error) {
	if len(text) > maxFuzzText {
		text = text[:maxFuzzText]
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		n = int64(len(text))
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		f = float64(n)
	}
	switch k % 7 {
	case 0:
		return rt.NewInteger(int32(n))
	case 1:
		return rt.NewLongInteger(n)
	case 2:
		return rt.NewFloat(float32(f))
	case 3:
		return rt.NewDouble(f)
	case 4:
		return vm.NewBoolean(n != 0), nil
	case 5:
		return rt.NewString(text)
	default:
		return vm.Undefined, nil
	}
}

func addOperatorSeeds(f *testing.F) {
	seeds := []struct {
		ka, kb byte
		a, b   string
		op     byte
	}{
		{0, 0, "15", "-7", 6},
		{0, 0, "7", "0", 9},
		{3, 3, "1.5", "0", 10},
		{5, 5, "klang", "klang", 0},
		{5, 0, "héllo", "1", 16},
		{5, 5, "a", "b", 2},
		{4, 3, "1", "2.5", 8},
		{1, 0, "-1", "64", 11},
		{6, 6, "", "", 1},
		{2, 0, "NaN", "3", 4},
	}
	for _, s := range seeds {
		f.Add(s.ka, s.a, s.kb, s.b, s.op)
	}
}

func FuzzOperators(f *testing.F) {
	addOperatorSeeds(f)
	f.Fuzz(func(t *testing.T, ka byte, a string, kb byte, b string, op byte) {
		rt, err := vm.New(vm.WithHeapSize(1 << 16))
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		defer rt.Close()
		base := rt.HeapUsed()

		left, err := fuzzValue(rt, ka, a)
		if err != nil {
			t.Fatalf("left operand: %v", err)
		}
		right, err := fuzzValue(rt, kb, b)
		if err != nil {
			t.Fatalf("right operand: %v", err)
		}

		var out vm.Value
		if int(op) < len(fuzzBinary) {
			out, err = fuzzBinary[op](rt, left, right)
		} else {
			out, err = fuzzUnary[int(op)%len(fuzzUnary)](rt, left)
		}
		if err != nil {
			var kerr *vm.Error
			if !errors.As(err, &kerr) {
				t.Fatalf("operator error %T is not *vm.Error: %v", err, err)
			}
			if !errors.Is(err, vm.ErrUnsupportedOperation) && !errors.Is(err, vm.ErrDivisionByZero) {
				t.Fatalf("unexpected operator failure: %v", err)
			}
			if !out.IsUndefined() {
				t.Fatalf("failed operator returned %s", out)
			}
		}
		if int(op) < 2 && err == nil && !out.IsBoolean() {
			t.Fatalf("equality returned %s", out.Type())
		}
		_ = rt.ToText(out)

		for _, v := range []vm.Value{left, right, out} {
			rt.DecRef(v)
		}
		rt.Collect()
		if used := rt.HeapUsed(); used != base {
			t.Fatalf("HeapUsed = %d after release, want %d", used, base)
		}
		if err := testkit.CheckHeap(rt.Heap()); err != nil {
			t.Fatalf("heap invariants: %v", err)
		}
	})
}
