package stress

import (
	"errors"
	"math/rand/v2"
	"strconv"

	"klang/internal/vm"
)

type binaryOp func(*vm.Runtime, vm.Value, vm.Value) (vm.Value, error)

type unaryOp func(*vm.Runtime, vm.Value) (vm.Value, error)

var binaryOps = []binaryOp{
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

var unaryOps = []unaryOp{
	(*vm.Runtime).Not,
	(*vm.Runtime).Increment,
	(*vm.Runtime).Decrement,
	(*vm.Runtime).Negative,
	(*vm.Runtime).BitNot,
}

// maxReusedRunes keeps repeated concatenation from growing strings without
// bound.
const maxReusedRunes = 64

type worker struct {
	rt    *vm.Runtime
	rng   *rand.Rand
	stack *vm.Stack
	res   *WorkerResult
}

// step applies one random operator and parks the result on the stack.
func (w *worker) step() error {
	a, err := w.operand()
	if err != nil {
		return err
	}
	defer a.Release()

	var out vm.Value
	if w.rng.IntN(4) == 0 {
		out, err = unaryOps[w.rng.IntN(len(unaryOps))](w.rt, a.Value())
	} else {
		b, berr := w.operand()
		if berr != nil {
			return berr
		}
		defer b.Release()
		out, err = binaryOps[w.rng.IntN(len(binaryOps))](w.rt, a.Value(), b.Value())
	}
	switch {
	case err == nil:
	case errors.Is(err, vm.ErrUnsupportedOperation):
		w.res.Unsupported++
	case errors.Is(err, vm.ErrDivisionByZero):
		w.res.DivByZero++
	default:
		return err
	}

	result := w.rt.Adopt(out)
	defer result.Release()
	if !w.stack.Push(result) {
		w.res.StackDropped++
		top := w.stack.Pop()
		top.Release()
		w.stack.Push(result)
	}
	if n := w.stack.Size(); n > 0 && w.rng.IntN(8) == 0 {
		w.stack.Set(w.rng.IntN(n), a.Value())
	}
	return nil
}

// operand produces an owned value: a fresh scalar or a stack slot.
func (w *worker) operand() (vm.Ref, error) {
	rt := w.rt
	switch w.rng.IntN(9) {
	case 0:
		return rt.Int32(w.rng.Int32N(200) - 100)
	case 1:
		return rt.Int64(w.rng.Int64N(1<<40) - 1<<39)
	case 2:
		return rt.Float32(w.rng.Float32()*16 - 8)
	case 3:
		return rt.Float64(w.rng.NormFloat64() * 1e3)
	case 4:
		return rt.Bool(w.rng.IntN(2) == 0), nil
	case 5:
		if w.rng.IntN(2) == 0 {
			return rt.Text(strconv.Itoa(w.rng.IntN(1000)))
		}
		return rt.Text("klang")
	case 6:
		return rt.Adopt(vm.Undefined), nil
	default:
		if n := w.stack.Size(); n > 0 {
			v := w.stack.Get(w.rng.IntN(n))
			if rt.RuneLen(v) <= maxReusedRunes {
				return rt.RefOf(v), nil
			}
		}
		return rt.Int32(w.rng.Int32())
	}
}
