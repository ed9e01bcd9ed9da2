package vm

import "fmt"

// Ref owns one counted reference to a Value. The zero Ref holds Undefined
// and belongs to the Default runtime.
//
// Refs are plain values: copying a Ref does not take a reference. Use Clone
// for a second owner and Release when done. Operators return new owned
// Refs; the operands keep their references.
type Ref struct {
	rt *Runtime
	v  Value
}

// RefOf takes a new reference to v.
func (rt *Runtime) RefOf(v Value) Ref {
	v = v.norm()
	rt.IncRef(v)
	return Ref{rt: rt, v: v}
}

// Adopt wraps an already owned reference, such as an operator result.
func (rt *Runtime) Adopt(v Value) Ref {
	return Ref{rt: rt, v: v.norm()}
}

// Bool returns a Ref to True or False.
func (rt *Runtime) Bool(b bool) Ref { return rt.Adopt(NewBoolean(b)) }

// Int32 wraps n as a 32-bit integer.
func (rt *Runtime) Int32(n int32) (Ref, error) { return rt.adoptNew(rt.NewInteger(n)) }

// Uint32 wraps n as a 32-bit integer, keeping its bit pattern: values above
// math.MaxInt32 read back as negative Int32 and wrap like any Int32.
func (rt *Runtime) Uint32(n uint32) (Ref, error) { return rt.adoptNew(rt.NewInteger(asInt32(n))) }

// Int64 wraps n as a 64-bit integer.
func (rt *Runtime) Int64(n int64) (Ref, error) { return rt.adoptNew(rt.NewLongInteger(n)) }

// Uint64 wraps n as a 64-bit integer, keeping its bit pattern.
func (rt *Runtime) Uint64(n uint64) (Ref, error) { return rt.adoptNew(rt.NewLongInteger(asInt64(n))) }

// Float32 wraps f as a single precision float.
func (rt *Runtime) Float32(f float32) (Ref, error) { return rt.adoptNew(rt.NewFloat(f)) }

// Float64 wraps f as a double.
func (rt *Runtime) Float64(f float64) (Ref, error) { return rt.adoptNew(rt.NewDouble(f)) }

// Text wraps s as a string.
func (rt *Runtime) Text(s string) (Ref, error) { return rt.adoptNew(rt.NewString(s)) }

// Make wraps a native Go value. Supported: nil, bool, the sized integer and
// float types, int, string, Value and Ref.
func (rt *Runtime) Make(x any) (Ref, error) {
	switch x := x.(type) {
	case nil:
		return rt.Adopt(Undefined), nil
	case Ref:
		return x.Clone(), nil
	case Value:
		return rt.RefOf(x), nil
	case bool:
		return rt.Bool(x), nil
	case int32:
		return rt.Int32(x)
	case uint32:
		return rt.Uint32(x)
	case int:
		return rt.Int64(int64(x))
	case int64:
		return rt.Int64(x)
	case uint64:
		return rt.Uint64(x)
	case float32:
		return rt.Float32(x)
	case float64:
		return rt.Float64(x)
	case string:
		return rt.Text(x)
	default:
		return rt.Adopt(Undefined), fmt.Errorf("vm: cannot make a value from %T", x)
	}
}

func (rt *Runtime) adoptNew(v Value, err error) (Ref, error) {
	if err != nil {
		return rt.Adopt(Undefined), err
	}
	return rt.Adopt(v), nil
}

// Runtime returns the runtime r belongs to.
func (r Ref) Runtime() *Runtime {
	if r.rt != nil {
		return r.rt
	}
	return Default()
}

// Value returns the held value without touching its refcount.
func (r Ref) Value() Value { return r.v.norm() }

// Type returns the type of the held value.
func (r Ref) Type() Type { return r.v.Type() }

// Clone returns a second owner of the same value.
func (r Ref) Clone() Ref {
	return r.Runtime().RefOf(r.v)
}

// Take moves the reference out of r, leaving r Undefined.
func (r *Ref) Take() Ref {
	out := Ref{rt: r.rt, v: r.Value()}
	r.v = Undefined
	return out
}

// Release drops the held reference and leaves r Undefined.
func (r *Ref) Release() {
	r.Runtime().DecRef(r.v)
	r.v = Undefined
}

// Set makes r another owner of o's value. The old value is released first.
func (r *Ref) Set(o Ref) {
	v := o.Value()
	r.Runtime().DecRef(r.v)
	o.Runtime().IncRef(v)
	r.rt, r.v = o.rt, v
}

// SetValue makes r an owner of v on r's runtime.
func (r *Ref) SetValue(v Value) {
	rt := r.Runtime()
	rt.DecRef(r.v)
	v = v.norm()
	rt.IncRef(v)
	r.v = v
}

// SetMoved takes over o's reference, leaving o Undefined.
func (r *Ref) SetMoved(o *Ref) {
	if r == o {
		return
	}
	moved := o.Take()
	r.adopt(moved.Runtime(), moved.v)
}

// adopt replaces the held value with an already owned v.
func (r *Ref) adopt(rt *Runtime, v Value) {
	r.Runtime().DecRef(r.v)
	r.rt = rt
	r.v = v.norm()
}

// Inc replaces the held value with its increment.
func (r *Ref) Inc() error { return r.update((*Runtime).Increment) }

// Dec replaces the held value with its decrement.
func (r *Ref) Dec() error { return r.update((*Runtime).Decrement) }

func (r *Ref) update(fn func(*Runtime, Value) (Value, error)) error {
	rt := r.Runtime()
	v, err := fn(rt, r.Value())
	if err != nil {
		return err
	}
	r.adopt(rt, v)
	return nil
}

// ToBool converts the held value with Runtime.ToBool.
func (r Ref) ToBool() bool { return r.Runtime().ToBool(r.v) }

// ToInt32 converts the held value with Runtime.ToInt32, wrapping to 32 bits.
func (r Ref) ToInt32() int32 { return r.Runtime().ToInt32(r.v) }

// ToInt64 converts the held value with Runtime.ToInt64.
func (r Ref) ToInt64() int64 { return r.Runtime().ToInt64(r.v) }

// ToFloat32 converts the held value with Runtime.ToFloat32.
func (r Ref) ToFloat32() float32 { return r.Runtime().ToFloat32(r.v) }

// ToFloat64 converts the held value with Runtime.ToFloat64.
func (r Ref) ToFloat64() float64 { return r.Runtime().ToFloat64(r.v) }

// ToUint32 keeps the low 32 bits of the integer form.
func (r Ref) ToUint32() uint32 {
	return uint32(asUint64(r.ToInt64())) //nolint:gosec // G115: wrapping is the conversion rule
}

// ToUint64 reinterprets the integer form.
func (r Ref) ToUint64() uint64 { return asUint64(r.ToInt64()) }

// String returns the textual representation of the held value.
func (r Ref) String() string { return r.Runtime().ToText(r.v) }

// Vector returns a one-element view of the held value.
func (r Ref) Vector() []Value { return r.Runtime().ToVector(r.v) }

// Map returns the one-entry view of the held value.
func (r Ref) Map() []Entry { return r.Runtime().ToMap(r.v) }

func (r Ref) unary(fn func(*Runtime, Value) (Value, error)) (Ref, error) {
	rt := r.Runtime()
	v, err := fn(rt, r.Value())
	if err != nil {
		return rt.Adopt(Undefined), err
	}
	return rt.Adopt(v), nil
}

func (r Ref) binary(o Ref, fn func(*Runtime, Value, Value) (Value, error)) (Ref, error) {
	rt := r.Runtime()
	v, err := fn(rt, r.Value(), o.Value())
	if err != nil {
		return rt.Adopt(Undefined), err
	}
	return rt.Adopt(v), nil
}

// Equals compares r and o with Runtime.Equals.
func (r Ref) Equals(o Ref) (Ref, error) { return r.binary(o, (*Runtime).Equals) }

// NotEquals is the negation of Equals.
func (r Ref) NotEquals(o Ref) (Ref, error) { return r.binary(o, (*Runtime).NotEquals) }

// Greater reports r > o as a Boolean.
func (r Ref) Greater(o Ref) (Ref, error) { return r.binary(o, (*Runtime).Greater) }

// Less reports r < o as a Boolean.
func (r Ref) Less(o Ref) (Ref, error) { return r.binary(o, (*Runtime).Less) }

// GreaterEquals reports r >= o as a Boolean.
func (r Ref) GreaterEquals(o Ref) (Ref, error) { return r.binary(o, (*Runtime).GreaterEquals) }

// LessEquals reports r <= o as a Boolean.
func (r Ref) LessEquals(o Ref) (Ref, error) { return r.binary(o, (*Runtime).LessEquals) }

// Not returns the logical negation of the held value.
func (r Ref) Not() (Ref, error) { return r.unary((*Runtime).Not) }

// Plus adds o, or concatenates when r holds a String.
func (r Ref) Plus(o Ref) (Ref, error) { return r.binary(o, (*Runtime).Plus) }

// Minus subtracts o.
func (r Ref) Minus(o Ref) (Ref, error) { return r.binary(o, (*Runtime).Minus) }

// Multiply multiplies by o.
func (r Ref) Multiply(o Ref) (Ref, error) { return r.binary(o, (*Runtime).Multiply) }

// Divide divides by o; an integer divisor of zero fails.
func (r Ref) Divide(o Ref) (Ref, error) { return r.binary(o, (*Runtime).Divide) }

// Modulo returns the 64-bit integer remainder.
func (r Ref) Modulo(o Ref) (Ref, error) { return r.binary(o, (*Runtime).Modulo) }

// Increment returns the held value plus one at the same width.
func (r Ref) Increment() (Ref, error) { return r.unary((*Runtime).Increment) }

// Decrement returns the held value minus one at the same width.
func (r Ref) Decrement() (Ref, error) { return r.unary((*Runtime).Decrement) }

// Negative returns the arithmetic negation.
func (r Ref) Negative() (Ref, error) { return r.unary((*Runtime).Negative) }

// ShiftLeft shifts left by o masked to 0..63.
func (r Ref) ShiftLeft(o Ref) (Ref, error) { return r.binary(o, (*Runtime).ShiftLeft) }

// ShiftRight shifts right arithmetically by o masked to 0..63.
func (r Ref) ShiftRight(o Ref) (Ref, error) { return r.binary(o, (*Runtime).ShiftRight) }

// BitAnd returns r & o on the integer forms.
func (r Ref) BitAnd(o Ref) (Ref, error) { return r.binary(o, (*Runtime).BitAnd) }

// BitOr returns r | o on the integer forms.
func (r Ref) BitOr(o Ref) (Ref, error) { return r.binary(o, (*Runtime).BitOr) }

// BitXor returns r ^ o on the integer forms.
func (r Ref) BitXor(o Ref) (Ref, error) { return r.binary(o, (*Runtime).BitXor) }

// BitNot returns the bitwise complement; integers keep their width.
func (r Ref) BitNot() (Ref, error) { return r.unary((*Runtime).BitNot) }

// ReferenceGet dereferences the held value.
func (r Ref) ReferenceGet() (Ref, error) { return r.unary((*Runtime).ReferenceGet) }

// ReferenceSet stores o through the held reference.
func (r Ref) ReferenceSet(o Ref) (Ref, error) {
	return r.binary(o, (*Runtime).ReferenceSet)
}

// Iterator returns an iterator over the held value.
func (r Ref) Iterator() (Ref, error) { return r.unary((*Runtime).Iterator) }

// HasNext reports whether the held iterator has more elements.
func (r Ref) HasNext() (Ref, error) { return r.unary((*Runtime).HasNext) }

// Next advances the held iterator.
func (r Ref) Next() (Ref, error) { return r.unary((*Runtime).Next) }

// Property reads the named property of the held value.
func (r Ref) Property(name string) (Ref, error) {
	return r.unary(func(rt *Runtime, v Value) (Value, error) { return rt.Property(v, name) })
}

// SetProperty writes the named property of the held value.
func (r Ref) SetProperty(name string, o Ref) (Ref, error) {
	return r.binary(o, func(rt *Runtime, v, w Value) (Value, error) { return rt.SetProperty(v, name, w) })
}

// Call invokes the held value with receiver self.
func (r Ref) Call(self Ref, args ...Ref) (Ref, error) {
	vals := make([]Value, len(args))
	for i, a := range args {
		vals[i] = a.Value()
	}
	return r.binary(self, func(rt *Runtime, fn, recv Value) (Value, error) { return rt.Call(fn, recv, vals...) })
}

// Index returns an accessor for element i of the held value.
func (r Ref) Index(i Ref) Accessor {
	return Accessor{container: r.Clone(), index: i.Clone()}
}

// At is Index with a native position.
func (r Ref) At(i int) (Accessor, error) {
	idx, err := r.Runtime().Int64(int64(i))
	if err != nil {
		return Accessor{}, err
	}
	return Accessor{container: r.Clone(), index: idx}, nil
}

// Accessor is a pending element access: a container and an index, both
// owned until Release.
type Accessor struct {
	container Ref
	index     Ref
}

// Get reads the element.
func (a Accessor) Get() (Ref, error) {
	return a.container.binary(a.index, (*Runtime).IndexGet)
}

// Set writes v to the element.
func (a Accessor) Set(v Ref) error {
	rt := a.container.Runtime()
	res, err := rt.IndexSet(a.container.Value(), a.index.Value(), v.Value())
	if err != nil {
		return err
	}
	rt.DecRef(res)
	return nil
}

// String returns the text of the element, or "undefined" if it cannot be
// read.
func (a Accessor) String() string {
	r, err := a.Get()
	if err != nil {
		return Undefined.Type().String()
	}
	defer r.Release()
	return r.String()
}

// Release drops the container and index references.
func (a *Accessor) Release() {
	a.container.Release()
	a.index.Release()
}
