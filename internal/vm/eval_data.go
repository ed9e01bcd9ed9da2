package vm

// Container, property, call, reference and iteration operators. Only
// strings answer to IndexGet today; every other combination reports
// CodeUnsupportedOperation naming the receiver's type.

// IndexGet returns element index of a. For strings it is a one-character
// string, or Undefined when index is out of range.
func (rt *Runtime) IndexGet(a, index Value) (Value, error) {
	a = a.norm()
	if a.typ == TypeString {
		return rt.stringIndex(a, index.norm())
	}
	return Undefined, rt.eb.unsupported(a, OpIndexGet)
}

// IndexSet stores v at index of a.
func (rt *Runtime) IndexSet(a, index, v Value) (Value, error) {
	return Undefined, rt.eb.unsupported(a, OpIndexSet)
}

// Property reads the named property of a.
func (rt *Runtime) Property(a Value, name string) (Value, error) {
	return Undefined, rt.eb.unsupported(a, OpPropertyGet)
}

// SetProperty writes the named property of a.
func (rt *Runtime) SetProperty(a Value, name string, v Value) (Value, error) {
	return Undefined, rt.eb.unsupported(a, OpPropertySet)
}

// Call invokes fn with the given receiver and arguments.
func (rt *Runtime) Call(fn, self Value, args ...Value) (Value, error) {
	return Undefined, rt.eb.unsupported(fn, OpCall)
}

// ReferenceGet dereferences a.
func (rt *Runtime) ReferenceGet(a Value) (Value, error) {
	return Undefined, rt.eb.unsupported(a, OpReferenceGet)
}

// ReferenceSet stores v through the reference a.
func (rt *Runtime) ReferenceSet(a, v Value) (Value, error) {
	return Undefined, rt.eb.unsupported(a, OpReferenceSet)
}
