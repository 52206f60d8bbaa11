package slab

import "math"

const (
	// PageSize is the rounding unit for oversized chunks.
	PageSize = 4096

	// ChunkHeaderSize is the space reserved at the start of every block for
	// the chunk header.
	ChunkHeaderSize = 64

	// MaxClassSize is the largest classed slice. Larger requests get a
	// dedicated chunk.
	MaxClassSize = 65536

	// ChunkMinSize and ChunkMaxSize bound the block size chosen per class.
	ChunkMinSize = 256 << 10
	ChunkMaxSize = 1028 << 10

	// MaxCapacity is the largest slice count a chunk can track; ring cells
	// keep the index in the low 15 bits.
	MaxCapacity = 0x7FFF

	cellSize = 2
)

// ladderStep covers sizes up to upto with classes step bytes apart.
type ladderStep struct {
	upto int
	step int
}

// Eight classes per octave above 128 bytes bound the internal waste of a
// class to one step.
var defaultLadder = []ladderStep{
	{128, 8},
	{256, 16},
	{512, 32},
	{1024, 64},
	{2048, 128},
	{4096, 256},
	{8192, 512},
	{16384, 1024},
	{32768, 2048},
	{65536, 4096},
}

type ladderSegment struct {
	lo, hi int // sizes in (lo, hi]
	step   int
	base   int // class index of the first class in the segment
}

// sizeClassTable holds the computed class sizes and per-class chunk geometry.
type sizeClassTable struct {
	segments []ladderSegment
	sizes    []int
	chunks   []int // chunk size per class
}

func newSizeClassTable(ladder []ladderStep) *sizeClassTable {
	t := &sizeClassTable{}
	lo := 0
	for _, s := range ladder {
		seg := ladderSegment{lo: lo, hi: s.upto, step: s.step, base: len(t.sizes)}
		for size := lo + s.step; size <= s.upto; size += s.step {
			t.sizes = append(t.sizes, size)
			t.chunks = append(t.chunks, chunkSizeFor(size))
		}
		t.segments = append(t.segments, seg)
		lo = s.upto
	}
	return t
}

// classIndex returns the class serving size, or -1 when size is zero,
// negative or above the largest class.
func (t *sizeClassTable) classIndex(size int) int {
	if size <= 0 {
		return -1
	}
	for i := range t.segments {
		seg := &t.segments[i]
		if size <= seg.hi {
			return seg.base + (size-seg.lo+seg.step-1)/seg.step - 1
		}
	}
	return -1
}

// NumClasses returns the number of size classes.
func (t *sizeClassTable) NumClasses() int {
	return len(t.sizes)
}

var classTable = newSizeClassTable(defaultLadder)

// chunkSizeFor picks the block size in [ChunkMinSize, ChunkMaxSize] that
// leaves the fewest unused bytes for sliceSize, without exceeding
// MaxCapacity slices.
func chunkSizeFor(sliceSize int) int {
	best, bestWaste := ChunkMinSize, math.MaxInt
	for size := ChunkMinSize; size <= ChunkMaxSize; size += PageSize {
		if chunkCapacity(size, sliceSize) > MaxCapacity {
			break
		}
		if waste := chunkWaste(size, sliceSize); waste < bestWaste {
			best, bestWaste = size, waste
		}
	}
	return best
}

func chunkCapacity(chunkSize, sliceSize int) int {
	return (chunkSize - ChunkHeaderSize) / (sliceSize + cellSize)
}

func chunkWaste(chunkSize, sliceSize int) int {
	usable := chunkSize - ChunkHeaderSize
	return usable - usable/(sliceSize+cellSize)*(sliceSize+cellSize)
}

// AlignSize maps a request to the slice size that will serve it. Requests
// above MaxClassSize map to the size of their dedicated chunk: the request
// plus the chunk header, rounded up to PageSize. Zero or negative sizes
// return 0.
func AlignSize(size int) int {
	if size <= 0 {
		return 0
	}
	if i := classTable.classIndex(size); i >= 0 {
		return classTable.sizes[i]
	}
	return oversizedChunkSize(size)
}

func oversizedChunkSize(size int) int {
	return (size + ChunkHeaderSize + PageSize - 1) &^ (PageSize - 1)
}

// ClassIndex returns the class slot serving size, or -1 for sizes that are
// invalid or oversized.
func ClassIndex(size int) int {
	return classTable.classIndex(size)
}

// NumClasses returns the number of size classes.
func NumClasses() int {
	return classTable.NumClasses()
}

// ClassInfo describes the geometry of one size class.
type ClassInfo struct {
	Index     int `json:"index"`
	SliceSize int `json:"slice_size"`
	ChunkSize int `json:"chunk_size"`
	Capacity  int `json:"capacity"`
	// Overhead is the header, ring and unused tail bytes of one chunk.
	Overhead int `json:"overhead"`
}

// Classes returns the geometry of every size class in ascending order.
func Classes() []ClassInfo {
	out := make([]ClassInfo, len(classTable.sizes))
	for i, size := range classTable.sizes {
		chunkSize := classTable.chunks[i]
		capacity := chunkCapacity(chunkSize, size)
		out[i] = ClassInfo{
			Index:     i,
			SliceSize: size,
			ChunkSize: chunkSize,
			Capacity:  capacity,
			Overhead:  chunkSize - capacity*size,
		}
	}
	return out
}
