//go:build !unix && !windows

package mmheap

import (
	"fmt"
	"os"
)

// Supported reports whether Map returns real anonymous mappings.
const Supported = false

// Map allocates from the Go heap when anonymous mappings are not available.
func Map(size int) ([]byte, error) {
	if size <= 0 {
		return nil, fmt.Errorf("mmheap: invalid mapping size %d", size)
	}
	return make([]byte, size), nil
}

// Unmap is a no-op; the garbage collector reclaims the block.
func Unmap([]byte) error { return nil }

// Discard zeroes data.
func Discard(data []byte) error {
	clear(data)
	return nil
}

// PageSize returns the system page size.
func PageSize() int {
	return os.Getpagesize()
}
