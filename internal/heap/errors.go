package heap

import "errors"

var (
	// ErrCannotCreate reports that the backing region could not be reserved.
	ErrCannotCreate = errors.New("heap: cannot create")
	// ErrHeapOverflow reports that no block large enough is available.
	ErrHeapOverflow = errors.New("heap: overflow")
	// ErrInvalidPointer reports a handle that never addressed a block of this heap.
	ErrInvalidPointer = errors.New("heap: invalid pointer")
	// ErrStalePointer reports a handle whose block has been released.
	ErrStalePointer = errors.New("heap: stale pointer")
	// ErrInvalidSize reports a negative or oversized request.
	ErrInvalidSize = errors.New("heap: invalid size")
	// ErrClosed reports use of a destroyed heap.
	ErrClosed = errors.New("heap: closed")
)
