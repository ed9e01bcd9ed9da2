package vm

// Iterator returns an iterator over a.
func (rt *Runtime) Iterator(a Value) (Value, error) {
	return Undefined, rt.eb.unsupported(a, OpIterator)
}

// HasNext reports whether the iterator a has more elements.
func (rt *Runtime) HasNext(a Value) (Value, error) {
	return Undefined, rt.eb.unsupported(a, OpHasNext)
}

// Next advances the iterator a and returns the element.
func (rt *Runtime) Next(a Value) (Value, error) {
	return Undefined, rt.eb.unsupported(a, OpNext)
}
