package vm

import (
	"math"
	"strconv"
)

// ToInt64 converts v to a signed 64-bit integer. Floats truncate toward zero
// and strings parse their trimmed text; anything unparsable is 0.
func (rt *Runtime) ToInt64(v Value) int64 {
	v = v.norm()
	switch v.typ {
	case TypeInteger:
		return readInt(rt.payload(v))
	case TypeFloat:
		return truncFloat(readFloat(rt.payload(v)))
	case TypeBoolean:
		return boolInt(readBool(rt.payload(v)))
	case TypeString:
		return parseInt(rt.text(v))
	default:
		return 0
	}
}

// ToInt32 converts v like ToInt64 and keeps the low 32 bits.
func (rt *Runtime) ToInt32(v Value) int32 {
	return int32(rt.ToInt64(v)) //nolint:gosec // G115: wrapping is the conversion rule
}

// ToFloat64 converts v to a double.
func (rt *Runtime) ToFloat64(v Value) float64 {
	v = v.norm()
	switch v.typ {
	case TypeInteger:
		return float64(readInt(rt.payload(v)))
	case TypeFloat:
		return readFloat(rt.payload(v))
	case TypeBoolean:
		return boolFloat(readBool(rt.payload(v)))
	case TypeString:
		return parseFloat(rt.text(v))
	default:
		return 0
	}
}

// ToFloat32 converts v to a single precision float.
func (rt *Runtime) ToFloat32(v Value) float32 {
	return float32(rt.ToFloat64(v))
}

// ToBool reports the truth of v. Undefined is false, numbers are true when
// non-zero, strings when non-empty. Reserved types are always true.
func (rt *Runtime) ToBool(v Value) bool {
	v = v.norm()
	switch v.typ {
	case TypeUndefined:
		return false
	case TypeBoolean:
		return readBool(rt.payload(v))
	case TypeInteger:
		return readInt(rt.payload(v)) != 0
	case TypeFloat:
		f := readFloat(rt.payload(v))
		return f != 0 && !math.IsNaN(f)
	case TypeString:
		return runeCount(rt.payload(v)) > 0
	default:
		return true
	}
}

// ToText returns the textual representation of v.
func (rt *Runtime) ToText(v Value) string {
	v = v.norm()
	switch v.typ {
	case TypeUndefined:
		return "undefined"
	case TypeBoolean:
		return strconv.FormatBool(readBool(rt.payload(v)))
	case TypeInteger:
		return strconv.FormatInt(readInt(rt.payload(v)), 10)
	case TypeFloat:
		buf := rt.payload(v)
		if buf[payloadWidth] == 4 {
			return strconv.FormatFloat(readFloat(buf), 'g', -1, 32)
		}
		return strconv.FormatFloat(readFloat(buf), 'g', -1, 64)
	case TypeString:
		return rt.text(v)
	default:
		return v.String()
	}
}

// ToVector returns a one-element view of v. The element is borrowed.
func (rt *Runtime) ToVector(v Value) []Value {
	return []Value{v.norm()}
}

// ToMap returns a one-entry view of v keyed "scalar". The value is borrowed.
func (rt *Runtime) ToMap(v Value) []Entry {
	return []Entry{{Key: "scalar", Value: v.norm()}}
}

// Width reports the stored width of a numeric value in bytes, or 0.
func (rt *Runtime) Width(v Value) int {
	v = v.norm()
	if v.typ != TypeInteger && v.typ != TypeFloat {
		return 0
	}
	return int(rt.payload(v)[payloadWidth])
}
