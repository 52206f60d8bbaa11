package slab

import (
	"errors"
	"sync"

	"github.com/joshuapare/slabkit/internal/logger"
	"github.com/joshuapare/slabkit/internal/mmheap"
)

// Heap supplies the blocks that chunks are carved from. owner is the class
// index of the chunk, or -1 for a dedicated oversized chunk.
//
// Alloc must return a block of exactly size bytes whose address stays
// fixed until Free. The pool does not call back into a Heap concurrently.
type Heap interface {
	Alloc(size int, owner int) ([]byte, error)
	Free(block []byte, owner int)
}

// GoHeap allocates blocks from the Go heap. Released blocks are left to
// the garbage collector.
type GoHeap struct{}

// Alloc implements Heap.
func (GoHeap) Alloc(size int, _ int) ([]byte, error) {
	return make([]byte, size), nil
}

// Free implements Heap.
func (GoHeap) Free([]byte, int) {}

// MmapHeap maps each block as anonymous memory outside the Go heap and
// unmaps it on Free. The zero value is ready to use; use it by pointer.
//
// With Retain set, freed class chunks stay mapped with their pages
// returned to the kernel, and the next chunk of the same class reuses the
// mapping. Oversized chunks are always unmapped. Close unmaps what is
// retained.
type MmapHeap struct {
	Retain bool

	// MaxRetained caps the mappings kept per class. Zero means 4.
	MaxRetained int

	mu       sync.Mutex
	retained map[int][][]byte // class index -> idle mappings
}

const defaultMaxRetained = 4

// Alloc implements Heap.
func (h *MmapHeap) Alloc(size int, owner int) ([]byte, error) {
	if b := h.reuse(size, owner); b != nil {
		return b, nil
	}
	return mmheap.Map(size)
}

func (h *MmapHeap) reuse(size, owner int) []byte {
	if !h.Retain || owner < 0 {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	idle := h.retained[owner]
	if len(idle) == 0 || len(idle[len(idle)-1]) != size {
		return nil
	}
	b := idle[len(idle)-1]
	h.retained[owner] = idle[:len(idle)-1]
	return b
}

// Free implements Heap.
func (h *MmapHeap) Free(block []byte, owner int) {
	if h.retain(block, owner) {
		return
	}
	unmap(block)
}

func (h *MmapHeap) retain(block []byte, owner int) bool {
	if !h.Retain || owner < 0 {
		return false
	}
	limit := h.MaxRetained
	if limit <= 0 {
		limit = defaultMaxRetained
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.retained[owner]) >= limit {
		return false
	}
	if err := mmheap.Discard(block); err != nil {
		logger.Warn("slab: discarding retained block failed", "size", len(block), "error", err)
		return false
	}
	if h.retained == nil {
		h.retained = make(map[int][][]byte)
	}
	h.retained[owner] = append(h.retained[owner], block)
	return true
}

// Retained returns the number of idle mappings held for reuse.
func (h *MmapHeap) Retained() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, idle := range h.retained {
		n += len(idle)
	}
	return n
}

// Close unmaps every retained mapping. The heap stays usable.
func (h *MmapHeap) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	var errs []error
	for owner, idle := range h.retained {
		for _, b := range idle {
			if err := mmheap.Unmap(b); err != nil {
				errs = append(errs, err)
			}
		}
		delete(h.retained, owner)
	}
	return errors.Join(errs...)
}

var unmapBlock = mmheap.Unmap

func unmap(block []byte) {
	if err := unmapBlock(block); err != nil {
		logger.Warn("slab: munmap failed", "size", len(block), "error", err)
	}
}

// HeapFunc adapts a pair of functions to the Heap interface. A nil
// FreeFn is a no-op.
type HeapFunc struct {
	AllocFn func(size int, owner int) ([]byte, error)
	FreeFn  func(block []byte, owner int)
}

// Alloc implements Heap.
func (h HeapFunc) Alloc(size int, owner int) ([]byte, error) {
	return h.AllocFn(size, owner)
}

// Free implements Heap.
func (h HeapFunc) Free(block []byte, owner int) {
	if h.FreeFn != nil {
		h.FreeFn(block, owner)
	}
}
