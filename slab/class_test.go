package slab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// addChunk links a fresh chunk at the head of cls.
func addChunk(cls *class) *chunk {
	c := new(chunk)
	c.initClassed(make([]byte, cls.chunkSize), cls)
	cls.pushFront(c)
	return c
}

func listOf(cls *class) []*chunk {
	var out []*chunk
	for c := cls.front(); c != nil; c = cls.after(c) {
		out = append(out, c)
	}
	return out
}

func drain(t *testing.T, c *chunk) []int {
	t.Helper()
	var idxs []int
	for {
		idx, ok := c.allocSlice()
		if !ok {
			return idxs
		}
		idxs = append(idxs, idx)
	}
}

func Test_Class_PushFrontOrder(t *testing.T) {
	_, cls := newTestChunk(t, 1024)
	first := cls.front()
	second := addChunk(cls)
	third := addChunk(cls)

	assert.Equal(t, []*chunk{third, second, first}, listOf(cls))
	assert.Equal(t, 3, cls.chunks)
	assert.Same(t, first, cls.back())
	assert.Equal(t, 3*int(first.capacity), cls.free)
}

func Test_Class_ExhaustedChunkSinksToTail(t *testing.T) {
	c1, cls := newTestChunk(t, 8192)
	c2 := addChunk(cls) // head: c2, c1

	drain(t, c2)
	cls.update(c2)
	assert.Equal(t, []*chunk{c1, c2}, listOf(cls))

	// An exhausted tail stays put.
	cls.update(c2)
	assert.Equal(t, []*chunk{c1, c2}, listOf(cls))
}

func Test_Class_FreerChunkPromoted(t *testing.T) {
	c1, cls := newTestChunk(t, 8192)
	c2 := addChunk(cls) // head: c2, c1

	idxs1 := drain(t, c1)
	idxs2 := drain(t, c2)
	for _, idx := range idxs2[:2] {
		require.NoError(t, c2.recycSlice(sliceAddrOf(c2, idx)))
	}

	// One free slice is not more than the head's two.
	require.NoError(t, c1.recycSlice(sliceAddrOf(c1, idxs1[0])))
	cls.update(c1)
	assert.Equal(t, []*chunk{c2, c1}, listOf(cls))

	// Strictly more free slices than the head promotes.
	for _, idx := range idxs1[1:3] {
		require.NoError(t, c1.recycSlice(sliceAddrOf(c1, idx)))
	}
	cls.update(c1)
	assert.Equal(t, []*chunk{c1, c2}, listOf(cls))
}

func Test_Class_NonEmptyChunk(t *testing.T) {
	c1, cls := newTestChunk(t, 16384)
	c2 := addChunk(cls)
	c3 := addChunk(cls) // head: c3, c2, c1

	drain(t, c3)
	drain(t, c2)
	got := cls.nonEmptyChunk()
	assert.Same(t, c1, got)
	assert.Same(t, c1, cls.front(), "found chunk is promoted to head")

	drain(t, c1)
	assert.Zero(t, cls.free)
	assert.Nil(t, cls.nonEmptyChunk())
}

func Test_Class_Remove(t *testing.T) {
	c1, cls := newTestChunk(t, 512)
	c2 := addChunk(cls)
	_, ok := c2.allocSlice()
	require.True(t, ok)

	cls.remove(c2)
	assert.Equal(t, []*chunk{c1}, listOf(cls))
	assert.Equal(t, 1, cls.chunks)
	assert.Equal(t, int(c1.capacity), cls.free)
	assert.Nil(t, c2.next)
	assert.Nil(t, c2.prev)
}
