package slab

import (
	"sync"
	"sync/atomic"
	"unsafe"
)

const cacheLinePad = 64

// segmentSlots fills one page with a segment's slot array plus its header.
const segmentSlots = PageSize/int(unsafe.Sizeof(unsafe.Pointer(nil))) - 4

// segment is one fixed-size block of the recycle queue chain.
type segment struct {
	next  *segment
	read  int // consumer cursor
	write int // producer cursor, guarded by recycleQueue.mu
	slots [segmentSlots]unsafe.Pointer
}

// recycleQueue is a multi-producer, single-consumer queue of slice
// addresses freed away from the owning goroutine.
//
// Producers serialize on mu and only touch the tail segment. The consumer
// owns the head segment and never takes the lock: it learns about new
// entries through size, whose atomic updates order the slot writes before
// the reads. A consumed segment is parked in spare for the next producer
// that needs one.
type recycleQueue struct {
	head *segment // consumer only
	_    [cacheLinePad]byte

	mu   sync.Mutex
	tail *segment
	_    [cacheLinePad]byte

	size  atomic.Int64
	spare atomic.Pointer[segment]
}

func (q *recycleQueue) init() {
	s := new(segment)
	q.head = s
	q.tail = s
	q.size.Store(0)
	q.spare.Store(nil)
}

func (q *recycleQueue) newSegment() *segment {
	s := q.spare.Swap(nil)
	if s == nil {
		return new(segment)
	}
	s.next = nil
	s.read = 0
	s.write = 0
	return s
}

// push is safe for concurrent use.
func (q *recycleQueue) push(p unsafe.Pointer) {
	q.mu.Lock()
	s := q.tail
	if s.write == len(s.slots) {
		n := q.newSegment()
		s.next = n
		q.tail = n
		s = n
	}
	s.slots[s.write] = p
	s.write++
	q.mu.Unlock()
	q.size.Add(1)
}

// pop must only be called by the owner.
func (q *recycleQueue) pop() (unsafe.Pointer, bool) {
	if q.size.Load() == 0 {
		return nil, false
	}
	s := q.head
	if s.read == len(s.slots) {
		// The producer that filled s has already linked its successor.
		next := s.next
		q.head = next
		s.next = nil
		q.spare.Store(s)
		s = next
	}
	p := s.slots[s.read]
	s.slots[s.read] = nil
	s.read++
	q.size.Add(-1)
	return p, true
}

func (q *recycleQueue) len() int {
	return int(q.size.Load())
}
