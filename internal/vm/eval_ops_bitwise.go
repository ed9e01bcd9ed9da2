package vm

// Bitwise operators and shifts work on the 64-bit integer forms of their
// operands. Shift counts are taken modulo 64.

func (rt *Runtime) ShiftLeft(a, b Value) (Value, error)  { return rt.bitwise(OpShiftLeft, a, b) }
func (rt *Runtime) ShiftRight(a, b Value) (Value, error) { return rt.bitwise(OpShiftRight, a, b) }
func (rt *Runtime) BitAnd(a, b Value) (Value, error)     { return rt.bitwise(OpBitAnd, a, b) }
func (rt *Runtime) BitOr(a, b Value) (Value, error)      { return rt.bitwise(OpBitOr, a, b) }
func (rt *Runtime) BitXor(a, b Value) (Value, error)     { return rt.bitwise(OpBitXor, a, b) }

func (rt *Runtime) bitwise(op Operator, a, b Value) (Value, error) {
	a, b = a.norm(), b.norm()
	switch a.typ {
	case TypeInteger, TypeFloat, TypeBoolean:
	default:
		return Undefined, rt.eb.unsupported(a, op)
	}
	x, y := rt.ToInt64(a), rt.ToInt64(b)
	var r int64
	switch op {
	case OpShiftLeft:
		r = x << (asUint64(y) & 63)
	case OpShiftRight:
		r = x >> (asUint64(y) & 63)
	case OpBitAnd:
		r = x & y
	case OpBitOr:
		r = x | y
	case OpBitXor:
		r = x ^ y
	}
	return rt.NewLongInteger(r)
}

// BitNot complements an integer in its own width. Floats complement their
// truncated 64-bit form and booleans become 32-bit integers.
func (rt *Runtime) BitNot(a Value) (Value, error) {
	a = a.norm()
	switch a.typ {
	case TypeInteger:
		buf := rt.payload(a)
		if buf[payloadWidth] == 4 {
			return rt.NewInteger(^int32(readInt(buf))) //nolint:gosec // G115: stored as int32
		}
		return rt.NewLongInteger(^readInt(buf))
	case TypeFloat:
		return rt.NewLongInteger(^rt.ToInt64(a))
	case TypeBoolean:
		return rt.NewInteger(^int32(boolInt(readBool(rt.payload(a))))) //nolint:gosec // G115: 0 or 1
	}
	return Undefined, rt.eb.unsupported(a, OpBitNot)
}
