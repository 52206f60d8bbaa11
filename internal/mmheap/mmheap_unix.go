//go:build unix

package mmheap

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// Supported reports whether Map returns real anonymous mappings.
const Supported = true

// Map returns a zeroed, page-aligned anonymous private mapping of size bytes.
func Map(size int) ([]byte, error) {
	if size <= 0 {
		return nil, fmt.Errorf("mmheap: invalid mapping size %d", size)
	}
	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("mmheap: mmap %d bytes: %w", size, err)
	}
	return data, nil
}

// Unmap releases a mapping obtained from Map.
func Unmap(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	err := unix.Munmap(data)
	if errors.Is(err, unix.EINVAL) {
		// Treat double-unmap as no-op for callers.
		return nil
	}
	return err
}

// Discard returns the physical pages behind data to the kernel while
// keeping the mapping valid. Contents afterwards are unspecified.
func Discard(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	return unix.Madvise(data, unix.MADV_DONTNEED)
}

// PageSize returns the system page size.
func PageSize() int {
	return unix.Getpagesize()
}
