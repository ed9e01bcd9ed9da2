package vm

import "cmp"

// Equals compares a and b. Numbers compare by promoted value, strings by
// contents, and everything else by identity.
func (rt *Runtime) Equals(a, b Value) (Value, error) { return rt.compare(OpEquals, a, b) }

// NotEquals is the negation of Equals.
func (rt *Runtime) NotEquals(a, b Value) (Value, error) { return rt.compare(OpNotEquals, a, b) }

func (rt *Runtime) Greater(a, b Value) (Value, error) { return rt.compare(OpGreater, a, b) }

func (rt *Runtime) Less(a, b Value) (Value, error) { return rt.compare(OpLess, a, b) }

func (rt *Runtime) GreaterEquals(a, b Value) (Value, error) {
	return rt.compare(OpGreaterEquals, a, b)
}

func (rt *Runtime) LessEquals(a, b Value) (Value, error) { return rt.compare(OpLessEquals, a, b) }

// Not returns the negated truth of a. Every type supports it.
func (rt *Runtime) Not(a Value) (Value, error) {
	return NewBoolean(!rt.ToBool(a)), nil
}

func (rt *Runtime) compare(op Operator, a, b Value) (Value, error) {
	a, b = a.norm(), b.norm()
	switch a.typ {
	case TypeInteger:
		x := readInt(rt.payload(a))
		if b.typ == TypeFloat {
			return NewBoolean(compareFloat(op, float64(x), readFloat(rt.payload(b)))), nil
		}
		return NewBoolean(compareInt(op, x, rt.ToInt64(b))), nil
	case TypeFloat:
		return NewBoolean(compareFloat(op, readFloat(rt.payload(a)), rt.ToFloat64(b))), nil
	case TypeBoolean:
		x := readBool(rt.payload(a))
		switch op {
		case OpEquals:
			return NewBoolean(x == rt.ToBool(b)), nil
		case OpNotEquals:
			return NewBoolean(x != rt.ToBool(b)), nil
		default:
			return NewBoolean(compareInt(op, boolInt(x), boolInt(rt.ToBool(b)))), nil
		}
	case TypeString:
		switch op {
		case OpEquals:
			return NewBoolean(rt.sameText(a, b)), nil
		case OpNotEquals:
			return NewBoolean(!rt.sameText(a, b)), nil
		}
	default:
		switch op {
		case OpEquals:
			return NewBoolean(a == b), nil
		case OpNotEquals:
			return NewBoolean(a != b), nil
		}
	}
	return Undefined, rt.eb.unsupported(a, op)
}

func (rt *Runtime) sameText(a, b Value) bool {
	if a == b {
		return true
	}
	if b.typ != TypeString {
		return false
	}
	x, y := rt.payload(a), rt.payload(b)
	n := runeCount(x)
	if n != runeCount(y) {
		return false
	}
	for i := range n {
		if runeAt(x, i) != runeAt(y, i) {
			return false
		}
	}
	return true
}

func compareInt(op Operator, x, y int64) bool { return compareOrdered(op, x, y) }

func compareFloat(op Operator, x, y float64) bool { return compareOrdered(op, x, y) }

func compareOrdered[T cmp.Ordered](op Operator, x, y T) bool {
	switch op {
	case OpEquals:
		return x == y
	case OpNotEquals:
		return x != y
	case OpGreater:
		return x > y
	case OpLess:
		return x < y
	case OpGreaterEquals:
		return x >= y
	case OpLessEquals:
		return x <= y
	default:
		return false
	}
}
