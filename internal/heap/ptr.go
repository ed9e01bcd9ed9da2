package heap

import "fmt"

// Ptr addresses the payload of a heap block. The low 32 bits hold the payload
// offset inside the arena, the high 32 bits the block generation.
type Ptr uint64

// Nil is the zero handle; it never addresses a block.
const Nil Ptr = 0

func makePtr(payload, gen uint32) Ptr {
	return Ptr(uint64(gen)<<32 | uint64(payload))
}

// Offset returns the payload offset inside the arena.
func (p Ptr) Offset() uint32 { return uint32(p) }

// Gen returns the generation the handle was issued with.
func (p Ptr) Gen() uint32 { return uint32(p >> 32) }

// IsNil reports whether p is the zero handle.
func (p Ptr) IsNil() bool { return p == Nil }

func (p Ptr) String() string {
	if p == Nil {
		return "nil"
	}
	return fmt.Sprintf("0x%06x/g%d", p.Offset(), p.Gen())
}
