//go:build windows

package mmheap

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// Supported reports whether Map returns real anonymous mappings.
const Supported = true

// Map commits size bytes of zeroed, page-aligned virtual memory.
func Map(size int) ([]byte, error) {
	if size <= 0 {
		return nil, fmt.Errorf("mmheap: invalid mapping size %d", size)
	}
	addr, err := windows.VirtualAlloc(0, uintptr(size), windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_READWRITE)
	if err != nil {
		return nil, fmt.Errorf("mmheap: VirtualAlloc %d bytes: %w", size, err)
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), size), nil
}

// Unmap releases a mapping obtained from Map.
func Unmap(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	return windows.VirtualFree(uintptr(unsafe.Pointer(unsafe.SliceData(data))), 0, windows.MEM_RELEASE)
}

// Discard zeroes data. Windows has no cheap equivalent of MADV_DONTNEED
// that keeps the range committed.
func Discard(data []byte) error {
	clear(data)
	return nil
}

// PageSize returns the system page size.
func PageSize() int {
	return windows.Getpagesize()
}
