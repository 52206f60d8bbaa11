package slab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_SizeClass_AlignSize(t *testing.T) {
	tests := []struct {
		size int
		want int
	}{
		{0, 0},
		{-5, 0},
		{1, 8},
		{8, 8},
		{9, 16},
		{128, 128},
		{129, 144},
		{257, 288},
		{1000, 1024},
		{1025, 1152},
		{4096, 4096},
		{4097, 4608},
		{65535, 65536},
		{65536, 65536},
		{65537, 69632}, // 65537+64 rounded up to a page
		{70000, 73728}, // 70000+64 rounded up to a page
		{100000, 102400},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, AlignSize(tt.size), "AlignSize(%d)", tt.size)
	}
}

func Test_SizeClass_Ladder(t *testing.T) {
	classes := Classes()
	require.Len(t, classes, 88)
	require.Equal(t, NumClasses(), len(classes))
	assert.Equal(t, 8, classes[0].SliceSize)
	assert.Equal(t, MaxClassSize, classes[len(classes)-1].SliceSize)

	prev := 0
	for i, c := range classes {
		require.Equal(t, i, c.Index)
		require.Greater(t, c.SliceSize, prev, "class %d not increasing", i)

		// Eight classes per octave keep one step within 1/8 of the size.
		step := c.SliceSize - prev
		if c.SliceSize > 128 {
			require.LessOrEqual(t, step*8, c.SliceSize, "class %d step %d", i, step)
		} else {
			require.Equal(t, 8, step)
		}
		require.Equal(t, i, ClassIndex(c.SliceSize))
		require.Equal(t, i, ClassIndex(prev+1))
		prev = c.SliceSize
	}
	assert.Equal(t, -1, ClassIndex(MaxClassSize+1))
	assert.Equal(t, -1, ClassIndex(0))
}

func Test_SizeClass_ChunkGeometry(t *testing.T) {
	for _, c := range Classes() {
		require.GreaterOrEqual(t, c.ChunkSize, ChunkMinSize, "slice %d", c.SliceSize)
		require.LessOrEqual(t, c.ChunkSize, ChunkMaxSize, "slice %d", c.SliceSize)
		require.Zero(t, c.ChunkSize%PageSize, "slice %d", c.SliceSize)
		require.LessOrEqual(t, c.Capacity, MaxCapacity, "slice %d", c.SliceSize)
		require.Positive(t, c.Capacity, "slice %d", c.SliceSize)

		// Header and ring cells fit before the slice array.
		offset := c.ChunkSize - c.Capacity*c.SliceSize
		require.GreaterOrEqual(t, offset, ChunkHeaderSize+c.Capacity*cellSize, "slice %d", c.SliceSize)
		require.Equal(t, offset, c.Overhead)
	}
}

func Test_SizeClass_ChunkSizeMinimizesWaste(t *testing.T) {
	for _, slice := range []int{8, 48, 288, 4096, 65536} {
		best := chunkSizeFor(slice)
		bestWaste := chunkWaste(best, slice)
		for size := ChunkMinSize; size <= ChunkMaxSize; size += PageSize {
			if chunkCapacity(size, slice) > MaxCapacity {
				break
			}
			require.LessOrEqual(t, bestWaste, chunkWaste(size, slice), "slice %d chunk %d", slice, size)
		}
	}
}
