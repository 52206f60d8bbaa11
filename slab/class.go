package slab

// class is one size bucket. Its chunks form a circular list around the
// embedded sentinel root; root.next is the head.
type class struct {
	index     int
	sliceSize int
	chunkSize int

	chunks int // chunks in the list
	free   int // free slices across all chunks

	root chunk
}

func (cls *class) init(index int) {
	cls.index = index
	cls.sliceSize = classTable.sizes[index]
	cls.chunkSize = classTable.chunks[index]
	cls.chunks = 0
	cls.free = 0
	cls.root.next = &cls.root
	cls.root.prev = &cls.root
}

func (cls *class) front() *chunk {
	if cls.root.next == &cls.root {
		return nil
	}
	return cls.root.next
}

func (cls *class) back() *chunk {
	if cls.root.prev == &cls.root {
		return nil
	}
	return cls.root.prev
}

// after returns the chunk following c, or nil at the tail.
func (cls *class) after(c *chunk) *chunk {
	if c.next == &cls.root {
		return nil
	}
	return c.next
}

func (cls *class) insertAfter(c, at *chunk) {
	c.prev = at
	c.next = at.next
	at.next.prev = c
	at.next = c
}

func (cls *class) detach(c *chunk) {
	c.prev.next = c.next
	c.next.prev = c.prev
	c.prev = nil
	c.next = nil
}

// pushFront adds a new chunk at the head and counts its slices as free.
func (cls *class) pushFront(c *chunk) {
	cls.insertAfter(c, &cls.root)
	cls.chunks++
	cls.free += c.freeCount()
}

// remove unlinks c and drops its slices from the free count.
func (cls *class) remove(c *chunk) {
	cls.detach(c)
	cls.chunks--
	cls.free -= c.freeCount()
}

func (cls *class) moveToFront(c *chunk) {
	cls.detach(c)
	cls.insertAfter(c, &cls.root)
}

func (cls *class) moveToBack(c *chunk) {
	cls.detach(c)
	cls.insertAfter(c, cls.root.prev)
}

// update repositions c after one of its slices changed state. Chunks with
// more free slices move to the head; exhausted chunks sink to the tail.
func (cls *class) update(c *chunk) {
	if cls.chunks <= 1 {
		return
	}
	head := cls.root.next
	switch {
	case c.freeCount() > head.freeCount():
		cls.moveToFront(c)
	case c.exhausted() && c != cls.root.prev:
		cls.moveToBack(c)
	}
}

// nonEmptyChunk returns the first chunk with a free slice, promoted to the
// head, or nil when every chunk is exhausted.
func (cls *class) nonEmptyChunk() *chunk {
	if cls.free == 0 {
		return nil
	}
	for c := cls.front(); c != nil; c = cls.after(c) {
		if !c.exhausted() {
			if c != cls.root.next {
				cls.moveToFront(c)
			}
			return c
		}
	}
	return nil
}
