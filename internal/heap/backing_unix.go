//go:build unix

package heap

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// reserve maps an anonymous private region so that the arena lives outside
// the Go heap and is returned to the OS on Close.
func reserve(capacity int) ([]byte, func([]byte) error, error) {
	data, err := unix.Mmap(-1, 0, capacity, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: mmap %d bytes: %w", ErrCannotCreate, capacity, err)
	}
	return data, unix.Munmap, nil
}
