// Package vm implements the Klang value runtime: tagged values stored in a
// reference-counted arena, the operator surface every value answers to, the
// Ref handle host code uses to hold values, and the register stack.
//
// A Runtime owns the default heap. Undefined, True and False live on a
// process-wide static heap that is never collected. Nothing in this package
// is safe for concurrent use; independent runtimes may run on separate
// goroutines.
package vm

import (
	"fmt"

	"klang/internal/heap"
)

// Type is the immutable tag of a Value.
type Type uint8

const (
	// TypeUndefined is the type of the Undefined singleton.
	TypeUndefined Type = iota
	// TypeInteger covers 32-bit and 64-bit signed integers.
	TypeInteger
	// TypeFloat covers single and double precision floats.
	TypeFloat
	// TypeBoolean is the type of True and False.
	TypeBoolean
	// TypeString is an immutable sequence of code points.
	TypeString
	// TypeFunction is reserved.
	TypeFunction
	// TypeReference is reserved.
	TypeReference
	// TypeArray is reserved.
	TypeArray
	// TypeList is reserved.
	TypeList
	// TypeObject is reserved.
	TypeObject

	typeCount
)

// String returns the type name used in diagnostics.
func (t Type) String() string {
	switch t {
	case TypeUndefined:
		return "undefined"
	case TypeInteger:
		return "integer"
	case TypeFloat:
		return "float"
	case TypeBoolean:
		return "boolean"
	case TypeString:
		return "string"
	case TypeFunction:
		return "function"
	case TypeReference:
		return "reference"
	case TypeArray:
		return "array"
	case TypeList:
		return "list"
	case TypeObject:
		return "object"
	default:
		return fmt.Sprintf("Type(%d)", t)
	}
}

// static reports whether values of this type live on the static heap.
func (t Type) static() bool {
	return t == TypeUndefined || t == TypeBoolean
}

// Value is a handle to a tagged runtime datum. Values are immutable; operators
// always produce new values. The zero Value denotes Undefined.
type Value struct {
	ptr heap.Ptr
	typ Type
}

// norm maps the zero Value onto the Undefined singleton.
func (v Value) norm() Value {
	if v.ptr == heap.Nil {
		return Undefined
	}
	return v
}

// Type returns the value tag.
func (v Value) Type() Type { return v.norm().typ }

// Ptr returns the heap handle of the value.
func (v Value) Ptr() heap.Ptr { return v.norm().ptr }

// Same reports whether v and w are the same heap object.
func (v Value) Same(w Value) bool { return v.norm() == w.norm() }

// IsUndefined reports whether v is the Undefined singleton.
func (v Value) IsUndefined() bool { return v.Type() == TypeUndefined }

// IsInteger reports whether v is an Integer of either width.
func (v Value) IsInteger() bool { return v.Type() == TypeInteger }

// IsFloat reports whether v is a Float of either width.
func (v Value) IsFloat() bool { return v.Type() == TypeFloat }

// IsBoolean reports whether v is True or False.
func (v Value) IsBoolean() bool { return v.Type() == TypeBoolean }

// IsString reports whether v is a String.
func (v Value) IsString() bool { return v.Type() == TypeString }

// IsFunction reports whether v is tagged Function.
func (v Value) IsFunction() bool { return v.Type() == TypeFunction }

// IsReference reports whether v is tagged Reference.
func (v Value) IsReference() bool { return v.Type() == TypeReference }

// IsArray reports whether v is tagged Array.
func (v Value) IsArray() bool { return v.Type() == TypeArray }

// IsList reports whether v is tagged List.
func (v Value) IsList() bool { return v.Type() == TypeList }

// IsObject reports whether v is tagged Object.
func (v Value) IsObject() bool { return v.Type() == TypeObject }

// String identifies the value by type and address; use Runtime.ToText for
// its textual representation.
func (v Value) String() string {
	v = v.norm()
	return fmt.Sprintf("%s::%s", v.typ, v.ptr)
}

// Entry is one element of the ordered key/value view of a value.
type Entry struct {
	Key   string
	Value Value
}

// NewBoolean returns True or False. It never allocates.
func NewBoolean(b bool) Value {
	if b {
		return True
	}
	return False
}

// NewInteger allocates a 32-bit integer.
func (rt *Runtime) NewInteger(n int32) (Value, error) {
	v, buf, err := rt.alloc(TypeInteger, 4, 4)
	if err != nil {
		return Undefined, err
	}
	putInt32(buf, n)
	return v, nil
}

// NewLongInteger allocates a 64-bit integer.
func (rt *Runtime) NewLongInteger(n int64) (Value, error) {
	v, buf, err := rt.alloc(TypeInteger, 8, 8)
	if err != nil {
		return Undefined, err
	}
	putInt64(buf, n)
	return v, nil
}

// NewFloat allocates a single precision float.
func (rt *Runtime) NewFloat(f float32) (Value, error) {
	v, buf, err := rt.alloc(TypeFloat, 4, 4)
	if err != nil {
		return Undefined, err
	}
	putFloat32(buf, f)
	return v, nil
}

// NewDouble allocates a double precision float.
func (rt *Runtime) NewDouble(f float64) (Value, error) {
	v, buf, err := rt.alloc(TypeFloat, 8, 8)
	if err != nil {
		return Undefined, err
	}
	putFloat64(buf, f)
	return v, nil
}

// NewString allocates a string holding the code points of s.
func (rt *Runtime) NewString(s string) (Value, error) {
	return rt.newRunes([]rune(s))
}
