package slab

import (
	"unsafe"

	"github.com/joshuapare/slabkit/internal/buf"
	"github.com/joshuapare/slabkit/rbtree"
)

const (
	allocatedBit uint16 = 0x8000
	indexMask    uint16 = 0x7FFF

	// Owner tag passed to the heap for single-slice chunks.
	unmanagedOwner = -1

	chunkMagic = 0x42414C53 // "SLAB"
)

// Chunk header layout inside the block.
const (
	hdrMagic     = 0
	hdrChunkSize = 4
	hdrSliceSize = 8
	hdrOffset    = 12
	hdrCapacity  = 16
	hdrOwner     = 20
)

// chunk is one backing block cut into equally sized slices. It is docked in
// the pool's address tree through node and linked into its class list
// through prev/next. class is nil for an unmanaged (single-slice) chunk.
type chunk struct {
	node rbtree.Node[*chunk]

	prev, next *chunk
	class      *class

	block []byte
	base  uintptr // address of block[0]
	limit uintptr // one past the last byte of the block

	sliceSize int
	offset    int // start of the slice array within block

	// Ring of free slice indexes. Bit 15 of cells[i] marks slice i as
	// allocated; the low bits of cells[pos%capacity] for pos in
	// [head, tail) are the queued free indexes.
	cells    []uint16
	capacity uint16
	head     uint16
	tail     uint16
}

// chunkLess orders chunks by address as half-open intervals. Two chunks
// compare equal exactly when their ranges overlap.
func chunkLess(a, b *chunk) bool {
	return a.limit <= b.base
}

func blockAddr(block []byte) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(block)))
}

// initClassed lays out a classed chunk over block: header, ring cells, then
// the slice array flush with the end of the block.
func (c *chunk) initClassed(block []byte, cls *class) {
	capacity := chunkCapacity(len(block), cls.sliceSize)
	c.class = cls
	c.block = block
	c.base = blockAddr(block)
	c.limit = c.base + uintptr(len(block))
	c.sliceSize = cls.sliceSize
	c.offset = len(block) - capacity*cls.sliceSize
	c.capacity = uint16(capacity)

	c.cells = unsafe.Slice((*uint16)(unsafe.Pointer(&block[ChunkHeaderSize])), capacity)
	for i := range c.cells {
		c.cells[i] = uint16(i)
	}
	c.head = 0
	c.tail = c.capacity
	c.writeHeader(cls.index)
}

// initUnmanaged lays out a chunk whose single slice spans the whole block
// after the header.
func (c *chunk) initUnmanaged(block []byte) {
	c.class = nil
	c.block = block
	c.base = blockAddr(block)
	c.limit = c.base + uintptr(len(block))
	c.offset = ChunkHeaderSize
	c.sliceSize = len(block) - ChunkHeaderSize
	c.writeHeader(unmanagedOwner)
}

func (c *chunk) writeHeader(owner int) {
	h := c.block[:ChunkHeaderSize]
	clear(h)
	buf.PutU32LE(h[hdrMagic:], chunkMagic)
	buf.PutU32LE(h[hdrChunkSize:], uint32(len(c.block)))
	buf.PutU32LE(h[hdrSliceSize:], uint32(c.sliceSize))
	buf.PutU32LE(h[hdrOffset:], uint32(c.offset))
	buf.PutU16LE(h[hdrCapacity:], c.capacity)
	buf.PutI32LE(h[hdrOwner:], int32(owner))
}

// checkHeader reports whether the header still matches the chunk record.
func (c *chunk) checkHeader() bool {
	h, ok := buf.Slice(c.block, 0, ChunkHeaderSize)
	if !ok {
		return false
	}
	owner := unmanagedOwner
	if c.class != nil {
		owner = c.class.index
	}
	return buf.U32LE(h[hdrMagic:]) == chunkMagic &&
		int(buf.U32LE(h[hdrChunkSize:])) == len(c.block) &&
		int(buf.U32LE(h[hdrSliceSize:])) == c.sliceSize &&
		int(buf.U32LE(h[hdrOffset:])) == c.offset &&
		buf.U16LE(h[hdrCapacity:]) == c.capacity &&
		int(buf.I32LE(h[hdrOwner:])) == owner
}

func (c *chunk) size() int { return len(c.block) }

// usable is the byte count the chunk contributes to the pool's valid size.
func (c *chunk) usable() int { return len(c.block) - c.offset }

func (c *chunk) contains(addr uintptr) bool {
	return addr >= c.base && addr < c.limit
}

func (c *chunk) freeCount() int { return int(c.tail - c.head) }

// exhausted reports that every slice is allocated.
func (c *chunk) exhausted() bool { return c.head == c.tail }

// unused reports that every slice is free.
func (c *chunk) unused() bool { return c.tail-c.head == c.capacity }

// slice returns the caller view of slice idx: len n, cap sliceSize.
func (c *chunk) slice(idx int, n int) []byte {
	off := c.offset + idx*c.sliceSize
	return c.block[off : off+n : off+c.sliceSize]
}

// allocSlice pops the next free index off the ring and marks it allocated.
func (c *chunk) allocSlice() (int, bool) {
	if c.head == c.tail {
		return 0, false
	}
	idx := c.cells[c.head%c.capacity] & indexMask
	c.cells[idx] |= allocatedBit
	c.head++
	c.class.free--
	return int(idx), true
}

// recycSlice pushes the slice at addr back onto the ring.
func (c *chunk) recycSlice(addr uintptr) error {
	off := int(addr - c.base)
	if off < c.offset || (off-c.offset)%c.sliceSize != 0 {
		return ErrUnaligned
	}
	idx := uint16((off - c.offset) / c.sliceSize)
	if c.cells[idx]&allocatedBit == 0 {
		return ErrRecycled
	}

	pos := c.tail % c.capacity
	c.cells[pos] = (c.cells[pos] & allocatedBit) | idx
	c.cells[idx] &= indexMask
	c.tail++
	if c.tail == 0 {
		// tail wrapped: rebase both cursors onto the same ring slots.
		count := c.tail - c.head
		c.head %= c.capacity
		c.tail = count + c.head
	}
	c.class.free++
	return nil
}

// verifyRing checks that [head, tail) holds each free index exactly once
// and that allocation bits agree with it.
func (c *chunk) verifyRing() error {
	if c.class == nil {
		return nil
	}
	n := c.freeCount()
	if n > int(c.capacity) {
		return corruptf("chunk %#x: %d free of %d", c.base, n, c.capacity)
	}
	seen := make([]bool, c.capacity)
	for i := range n {
		pos := (c.head + uint16(i)) % c.capacity
		idx := c.cells[pos] & indexMask
		if idx >= c.capacity {
			return corruptf("chunk %#x: ring index %d out of range", c.base, idx)
		}
		if seen[idx] {
			return corruptf("chunk %#x: slice %d queued twice", c.base, idx)
		}
		if c.cells[idx]&allocatedBit != 0 {
			return corruptf("chunk %#x: queued slice %d marked allocated", c.base, idx)
		}
		seen[idx] = true
	}
	for idx, free := range seen {
		if !free && c.cells[idx]&allocatedBit == 0 {
			return corruptf("chunk %#x: slice %d neither queued nor allocated", c.base, idx)
		}
	}
	return nil
}
