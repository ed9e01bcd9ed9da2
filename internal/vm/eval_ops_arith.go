package vm

// Binary arithmetic dispatches on the left operand. An integer with an
// integer-like right side yields a 64-bit integer; any float involvement
// yields a double.

func (rt *Runtime) Plus(a, b Value) (Value, error)     { return rt.arith(OpPlus, a, b) }
func (rt *Runtime) Minus(a, b Value) (Value, error)    { return rt.arith(OpMinus, a, b) }
func (rt *Runtime) Multiply(a, b Value) (Value, error) { return rt.arith(OpMultiply, a, b) }

// Divide fails with CodeDivisionByZero for an integer divisor of zero.
// Float division follows IEEE 754.
func (rt *Runtime) Divide(a, b Value) (Value, error) { return rt.arith(OpDivide, a, b) }

// Modulo works on the 64-bit integer forms of both operands.
func (rt *Runtime) Modulo(a, b Value) (Value, error) {
	a, b = a.norm(), b.norm()
	switch a.typ {
	case TypeInteger, TypeFloat, TypeBoolean:
	default:
		return Undefined, rt.eb.unsupported(a, OpModulo)
	}
	y := rt.ToInt64(b)
	if y == 0 {
		return Undefined, rt.eb.divisionByZero(a, OpModulo)
	}
	return rt.NewLongInteger(rt.ToInt64(a) % y)
}

func (rt *Runtime) arith(op Operator, a, b Value) (Value, error) {
	a, b = a.norm(), b.norm()
	switch a.typ {
	case TypeInteger:
		x := readInt(rt.payload(a))
		if b.typ == TypeFloat {
			return rt.NewDouble(arithFloat(op, float64(x), readFloat(rt.payload(b))))
		}
		return rt.arithInt(a, op, x, rt.ToInt64(b))
	case TypeFloat:
		return rt.NewDouble(arithFloat(op, readFloat(rt.payload(a)), rt.ToFloat64(b)))
	case TypeBoolean:
		return rt.NewDouble(arithFloat(op, boolFloat(readBool(rt.payload(a))), rt.ToFloat64(b)))
	case TypeString:
		if op == OpPlus {
			return rt.concatStrings(a, b)
		}
	}
	return Undefined, rt.eb.unsupported(a, op)
}

func (rt *Runtime) arithInt(a Value, op Operator, x, y int64) (Value, error) {
	var r int64
	switch op {
	case OpPlus:
		r = x + y
	case OpMinus:
		r = x - y
	case OpMultiply:
		r = x * y
	case OpDivide:
		if y == 0 {
			return Undefined, rt.eb.divisionByZero(a, op)
		}
		r = x / y
	}
	return rt.NewLongInteger(r)
}

func arithFloat(op Operator, x, y float64) float64 {
	switch op {
	case OpPlus:
		return x + y
	case OpMinus:
		return x - y
	case OpMultiply:
		return x * y
	case OpDivide:
		return x / y
	default:
		return 0
	}
}

// Increment, Decrement and Negative keep the operand's type and width.
// Booleans become 32-bit integers.

func (rt *Runtime) Increment(a Value) (Value, error) { return rt.step(OpIncrement, a) }
func (rt *Runtime) Decrement(a Value) (Value, error) { return rt.step(OpDecrement, a) }
func (rt *Runtime) Negative(a Value) (Value, error)  { return rt.step(OpNegative, a) }

func (rt *Runtime) step(op Operator, a Value) (Value, error) {
	a = a.norm()
	switch a.typ {
	case TypeInteger:
		buf := rt.payload(a)
		if buf[payloadWidth] == 4 {
			return rt.NewInteger(stepNumber(op, int32(readInt(buf)))) //nolint:gosec // G115: stored as int32
		}
		return rt.NewLongInteger(stepNumber(op, readInt(buf)))
	case TypeFloat:
		buf := rt.payload(a)
		if buf[payloadWidth] == 4 {
			return rt.NewFloat(stepNumber(op, float32(readFloat(buf))))
		}
		return rt.NewDouble(stepNumber(op, readFloat(buf)))
	case TypeBoolean:
		return rt.NewInteger(stepNumber(op, int32(boolInt(readBool(rt.payload(a)))))) //nolint:gosec // G115: 0 or 1
	}
	return Undefined, rt.eb.unsupported(a, op)
}

func stepNumber[T int32 | int64 | float32 | float64](op Operator, x T) T {
	switch op {
	case OpIncrement:
		return x + 1
	case OpDecrement:
		return x - 1
	default:
		return -x
	}
}
