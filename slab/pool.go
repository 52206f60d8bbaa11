package slab

import (
	"errors"
	"fmt"
	"log/slog"
	"unsafe"

	"github.com/joshuapare/slabkit/internal/buf"
	"github.com/joshuapare/slabkit/internal/logger"
	"github.com/joshuapare/slabkit/rbtree"
)

// Pool is a size-classed slab allocator.
//
// A Pool is owned by one goroutine: Alloc, Recyc, Drain, ReleaseUnused and
// Destroy must not run concurrently. Defer and Pending are safe from any
// goroutine.
type Pool struct {
	heap   Heap
	log    *slog.Logger
	opts   Options
	tree   rbtree.Tree[*chunk] // every live chunk, ordered by address
	probe  chunk               // reusable hit-test key
	hot    *chunk
	cached int
	valid  int
	using  int

	classes  []class
	deferred recycleQueue
	drainErr error // failures from implicit drains, reported by the next Drain
}

// New creates a pool. A nil opts uses DefaultOptions.
func New(opts *Options) (*Pool, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	p := &Pool{opts: *opts}
	p.heap = opts.Heap
	if p.heap == nil {
		p.heap = GoHeap{}
	}
	p.log = opts.Logger
	if p.log == nil {
		p.log = logger.L
	}

	p.tree.Init(rbtree.Callbacks[*chunk]{
		Alloc:    func(c *chunk) *rbtree.Node[*chunk] { return &c.node },
		Free:     p.freeNode,
		Destruct: p.destructChunk,
		Less:     chunkLess,
	})
	p.classes = make([]class, classTable.NumClasses())
	for i := range p.classes {
		p.classes[i].init(i)
	}
	p.deferred.init()
	return p, nil
}

// Destroy drains deferred frees and releases every chunk. It fails with
// ErrInUse, leaving the pool intact, while any slice is checked out.
// Failed deferred frees are returned joined with any ErrInUse.
func (p *Pool) Destroy() error {
	_, drainErr := p.Drain()
	if drainErr != nil {
		p.log.Warn("slab: deferred frees failed during destroy", "error", drainErr)
	}
	if p.using != 0 {
		inUse := &Error{Kind: ErrKindState, Msg: ErrInUse.Msg, Err: fmt.Errorf("%d bytes outstanding", p.using)}
		if drainErr == nil {
			return inUse
		}
		return errors.Join(inUse, drainErr)
	}
	p.tree.Clear()
	p.hot = nil
	p.deferred.init()
	p.log.Debug("slab: pool destroyed")
	return drainErr
}

// CachedSize returns the bytes currently held from the heap.
func (p *Pool) CachedSize() int { return p.cached }

// ValidSize returns the bytes of cached memory usable as slices.
func (p *Pool) ValidSize() int { return p.valid }

// UsingSize returns the slice bytes currently checked out.
func (p *Pool) UsingSize() int { return p.using }

// Alloc returns a slice of length size. Its capacity is the slice size of
// the serving class, or the whole dedicated chunk for oversized requests.
func (p *Pool) Alloc(size int) ([]byte, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}
	if p.opts.DrainOnAlloc && p.deferred.len() > 0 {
		if _, err := p.drain(); err != nil {
			p.log.Warn("slab: deferred frees failed", "error", err)
			p.drainErr = errors.Join(p.drainErr, err)
		}
	}

	ci := classTable.classIndex(size)
	if ci < 0 {
		return p.allocOversized(size)
	}

	cls := &p.classes[ci]
	c := p.hot
	if c == nil || c.class != cls || c.exhausted() {
		c = cls.nonEmptyChunk()
		if c == nil {
			var err error
			if c, err = p.newChunk(cls); err != nil {
				return nil, err
			}
		}
	}

	idx, ok := c.allocSlice()
	if !ok {
		return nil, corruptf("chunk %#x in class %d has no free slice", c.base, cls.sliceSize)
	}
	cls.update(c)
	p.using += c.sliceSize
	p.hot = c
	p.verify()
	return c.slice(idx, size), nil
}

func (p *Pool) allocOversized(size int) ([]byte, error) {
	total, ok := buf.AddOverflowSafe(size, ChunkHeaderSize+PageSize-1)
	if !ok {
		return nil, ErrInvalidSize
	}
	chunkSize := total &^ (PageSize - 1)
	block, err := p.heap.Alloc(chunkSize, unmanagedOwner)
	if err != nil || len(block) < chunkSize {
		return nil, resourceLimit(chunkSize, err)
	}
	block = block[:chunkSize:chunkSize]

	c := new(chunk)
	c.initUnmanaged(block)
	if !p.dock(c) {
		p.heap.Free(block, unmanagedOwner)
		return nil, corruptf("oversized block %#x overlaps a live chunk", c.base)
	}
	p.using += c.sliceSize
	p.hot = c
	p.log.Debug("slab: oversized chunk", "size", size, "chunk", chunkSize)
	p.verify()
	return c.slice(0, size), nil
}

func (p *Pool) newChunk(cls *class) (*chunk, error) {
	block, err := p.heap.Alloc(cls.chunkSize, cls.index)
	if err != nil || len(block) < cls.chunkSize {
		return nil, resourceLimit(cls.chunkSize, err)
	}
	block = block[:cls.chunkSize:cls.chunkSize]

	c := new(chunk)
	c.initClassed(block, cls)
	if !p.dock(c) {
		p.heap.Free(block, cls.index)
		return nil, corruptf("block %#x overlaps a live chunk", c.base)
	}
	cls.pushFront(c)
	p.log.Debug("slab: chunk created",
		"slice", cls.sliceSize, "chunk", cls.chunkSize, "capacity", c.capacity, "chunks", cls.chunks)
	return c, nil
}

// dock inserts c into the address tree and accounts for its block.
func (p *Pool) dock(c *chunk) bool {
	if _, ok := p.tree.Insert(c); !ok {
		return false
	}
	p.cached += c.size()
	p.valid += c.usable()
	return true
}

// destructChunk runs when the tree erases a chunk: it leaves its class.
func (p *Pool) destructChunk(key **chunk) {
	c := *key
	if c.class != nil {
		c.class.remove(c)
	}
}

// freeNode runs after destructChunk and returns the block to the heap.
func (p *Pool) freeNode(n *rbtree.Node[*chunk]) {
	c := n.Key()
	if p.hot == c {
		p.hot = nil
	}
	p.cached -= c.size()
	p.valid -= c.usable()

	owner := unmanagedOwner
	if c.class != nil {
		owner = c.class.index
	}
	p.log.Debug("slab: chunk released", "slice", c.sliceSize, "chunk", c.size())
	block := c.block
	c.block = nil
	c.cells = nil
	p.heap.Free(block, owner)
}

func sliceAddr(b []byte) uintptr {
	if cap(b) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(unsafe.SliceData(b)))
}

// lookup resolves addr to its owning chunk with a half-open interval
// lower bound, or returns nil.
func (p *Pool) lookup(addr uintptr) *chunk {
	p.probe.base = addr
	p.probe.limit = addr + 1
	n := p.tree.LowerBound(&p.probe)
	if n == p.tree.End() {
		return nil
	}
	if c := n.Key(); c.base <= addr {
		return c
	}
	return nil
}

// Owns reports whether b starts inside a live chunk of p.
func (p *Pool) Owns(b []byte) bool {
	addr := sliceAddr(b)
	return addr != 0 && p.lookup(addr) != nil
}

// Recyc returns a slice obtained from Alloc. b must start where the
// returned slice started; its length is ignored.
func (p *Pool) Recyc(b []byte) error {
	return p.recycAddr(sliceAddr(b))
}

func (p *Pool) recycAddr(addr uintptr) error {
	if addr == 0 {
		return ErrNotFound
	}
	c := p.hot
	if c == nil || !c.contains(addr) {
		if c = p.lookup(addr); c == nil {
			return ErrNotFound
		}
	}

	if c.class == nil {
		if addr != c.base+uintptr(c.offset) {
			return ErrUnaligned
		}
		p.using -= c.sliceSize
		p.tree.Erase(&c.node)
		p.verify()
		return nil
	}

	p.hot = c
	if err := c.recycSlice(addr); err != nil {
		if errors.Is(err, ErrRecycled) {
			p.log.Warn("slab: double free", "addr", addr, "slice", c.sliceSize)
		}
		return err
	}
	p.using -= c.sliceSize
	c.class.update(c)
	p.verify()
	return nil
}

// ReleaseUnused returns every fully free classed chunk to the heap and
// reports how many were released.
func (p *Pool) ReleaseUnused() int {
	released := 0
	for i := range p.classes {
		cls := &p.classes[i]
		for c := cls.front(); c != nil; {
			next := cls.after(c)
			if c.unused() {
				p.tree.Erase(&c.node)
				released++
			}
			c = next
		}
	}
	if released > 0 {
		p.log.Debug("slab: released unused chunks", "count", released, "cached", p.cached)
	}
	p.verify()
	return released
}

// Defer queues b to be recycled by the owner's next Drain. Safe from any
// goroutine.
func (p *Pool) Defer(b []byte) {
	if cap(b) == 0 {
		return
	}
	p.deferred.push(unsafe.Pointer(unsafe.SliceData(b)))
}

// Pending returns the number of deferred frees not yet drained. Safe from
// any goroutine.
func (p *Pool) Pending() int {
	return p.deferred.len()
}

// Drain recycles every deferred slice and returns how many were processed.
// Failures do not stop the drain; they are joined into the returned error
// together with failures left by drains Alloc ran since the last Drain.
func (p *Pool) Drain() (int, error) {
	n, err := p.drain()
	if p.drainErr != nil {
		err = errors.Join(p.drainErr, err)
		p.drainErr = nil
	}
	return n, err
}

func (p *Pool) drain() (int, error) {
	var errs []error
	n := 0
	for {
		ptr, ok := p.deferred.pop()
		if !ok {
			break
		}
		n++
		if err := p.recycAddr(uintptr(ptr)); err != nil {
			errs = append(errs, err)
		}
	}
	return n, errors.Join(errs...)
}

// Validate cross-checks the address tree, class lists, ring buffers,
// chunk headers and byte accounting.
func (p *Pool) Validate() error {
	if err := p.tree.Validate(); err != nil {
		return corruptf("address tree: %v", err)
	}
	if !(p.cached >= p.valid && p.valid >= p.using && p.using >= 0) {
		return corruptf("accounting cached=%d valid=%d using=%d", p.cached, p.valid, p.using)
	}

	var cached, valid, using int
	chunks := make([]int, len(p.classes))
	free := make([]int, len(p.classes))
	var prev *chunk
	for n := p.tree.Begin(); n != p.tree.End(); n = p.tree.Next(n) {
		c := n.Key()
		if prev != nil && prev.limit > c.base {
			return corruptf("chunks %#x and %#x overlap", prev.base, c.base)
		}
		prev = c
		if !c.checkHeader() {
			return corruptf("chunk %#x: header overwritten", c.base)
		}
		cached += c.size()
		valid += c.usable()
		if c.class == nil {
			using += c.sliceSize
			continue
		}
		if err := c.verifyRing(); err != nil {
			return err
		}
		chunks[c.class.index]++
		free[c.class.index] += c.freeCount()
		using += (int(c.capacity) - c.freeCount()) * c.sliceSize
	}
	if cached != p.cached || valid != p.valid || using != p.using {
		return corruptf("recount cached=%d valid=%d using=%d, recorded %d/%d/%d",
			cached, valid, using, p.cached, p.valid, p.using)
	}

	for i := range p.classes {
		cls := &p.classes[i]
		listed := 0
		for c := cls.front(); c != nil; c = cls.after(c) {
			if c.class != cls || c.node.Tree() != &p.tree {
				return corruptf("class %d lists a foreign chunk %#x", cls.sliceSize, c.base)
			}
			listed++
		}
		if listed != cls.chunks || chunks[i] != cls.chunks {
			return corruptf("class %d: %d listed, %d in tree, count %d", cls.sliceSize, listed, chunks[i], cls.chunks)
		}
		if free[i] != cls.free {
			return corruptf("class %d: %d free slices, count %d", cls.sliceSize, free[i], cls.free)
		}
	}
	if p.hot != nil && p.hot.node.IsUndocked() {
		return corruptf("hot chunk %#x is not live", p.hot.base)
	}
	return nil
}

func (p *Pool) verify() {
	if !p.opts.Verify {
		return
	}
	if err := p.Validate(); err != nil {
		panic(err)
	}
}
