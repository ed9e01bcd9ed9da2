package vm

// Stack is a fixed-capacity register stack. Every occupied slot holds one
// counted reference.
type Stack struct {
	rt    *Runtime
	slots []Value
	size  int
}

// NewStack creates an empty stack on rt. A nil rt means Default.
func NewStack(rt *Runtime, capacity int) *Stack {
	if rt == nil {
		rt = Default()
	}
	return &Stack{rt: rt, slots: make([]Value, max(capacity, 0))}
}

// Size returns the number of occupied slots.
func (s *Stack) Size() int { return s.size }

// Capacity returns the slot count fixed at creation.
func (s *Stack) Capacity() int { return len(s.slots) }

// Push stores another reference to r's value. A full stack drops the value
// without touching its refcount.
func (s *Stack) Push(r Ref) bool { return s.PushValue(r.Value()) }

// PushValue is Push for a bare Value.
func (s *Stack) PushValue(v Value) bool {
	if s.size >= len(s.slots) {
		return false
	}
	v = v.norm()
	s.rt.IncRef(v)
	s.slots[s.size] = v
	s.size++
	return true
}

// Pop removes the top value and hands its reference to the caller. An empty
// stack yields Undefined.
func (s *Stack) Pop() Ref {
	if s.size == 0 {
		return s.rt.Adopt(Undefined)
	}
	s.size--
	v := s.slots[s.size]
	s.slots[s.size] = Undefined
	return s.rt.Adopt(v)
}

// Get borrows the value in slot i, or Undefined when i is not occupied.
func (s *Stack) Get(i int) Value {
	if i < 0 || i >= s.size {
		return Undefined
	}
	return s.slots[i]
}

// Set replaces the value in occupied slot i. The old value is released
// before the new one is retained. Other indices are ignored.
func (s *Stack) Set(i int, v Value) {
	if i < 0 || i >= s.size {
		return
	}
	s.rt.DecRef(s.slots[i])
	v = v.norm()
	s.rt.IncRef(v)
	s.slots[i] = v
}

// Release drops every held reference and empties the stack.
func (s *Stack) Release() {
	for i := range s.size {
		s.rt.DecRef(s.slots[i])
		s.slots[i] = Undefined
	}
	s.size = 0
}
