package rbtree

import "iter"

// Callbacks configures how a Tree stores and orders keys.
//
// Less is required. Alloc and Free default to Go heap allocation, Copy to
// plain assignment and Destruct to a no-op.
type Callbacks[K any] struct {
	// Alloc returns storage for a node that will carry key. For embedded
	// use it returns a pointer into caller-owned memory.
	Alloc func(key K) *Node[K]
	// Free releases a node obtained from Alloc after Erase or Clear.
	Free func(n *Node[K])
	// Copy stores src into a freshly allocated node's key slot.
	Copy func(dst *K, src K)
	// Destruct runs on the key of a node being erased, before Free.
	Destruct func(key *K)
	// Less orders keys. Two keys are equal when neither is less.
	Less func(a, b K) bool
}

// Tree is a red-black tree with intrusive nodes. The zero value is not
// usable; call New or Init. A Tree must not be copied after Init.
//
// A Tree is not safe for concurrent mutation.
type Tree[K any] struct {
	cb Callbacks[K]

	sentinel  Node[K]
	root      *Node[K]
	leftmost  *Node[K]
	rightmost *Node[K]
	count     int
}

// New allocates and initializes a tree.
func New[K any](cb Callbacks[K]) *Tree[K] {
	t := &Tree[K]{}
	t.Init(cb)
	return t
}

// Init prepares t for use. It must not be called on a non-empty tree.
func (t *Tree[K]) Init(cb Callbacks[K]) {
	if cb.Less == nil {
		panic("rbtree: Less callback is required")
	}
	if cb.Alloc == nil {
		cb.Alloc = func(K) *Node[K] { return new(Node[K]) }
	}
	if cb.Free == nil {
		cb.Free = func(*Node[K]) {}
	}
	if cb.Copy == nil {
		cb.Copy = func(dst *K, src K) { *dst = src }
	}
	t.cb = cb
	t.sentinel = Node[K]{color: black, owner: t}
	t.root = &t.sentinel
	t.leftmost = &t.sentinel
	t.rightmost = &t.sentinel
	t.count = 0
}

// Destroy removes every node, running Destruct and Free on each.
func (t *Tree[K]) Destroy() {
	t.Clear()
}

// Clear removes every node, running Destruct and Free on each. No
// rebalancing happens during the sweep.
func (t *Tree[K]) Clear() {
	t.clearBranch(t.root)
	t.root = &t.sentinel
	t.leftmost = &t.sentinel
	t.rightmost = &t.sentinel
	t.sentinel.parent = nil
	t.count = 0
}

func (t *Tree[K]) clearBranch(n *Node[K]) {
	for n != &t.sentinel {
		if n.right != &t.sentinel {
			t.clearBranch(n.right)
		}
		left := n.left
		t.dealloc(n)
		n = left
	}
}

func (t *Tree[K]) dealloc(n *Node[K]) {
	n.reset()
	if t.cb.Destruct != nil {
		t.cb.Destruct(&n.key)
	}
	t.cb.Free(n)
}

// Len returns the number of docked nodes.
func (t *Tree[K]) Len() int { return t.count }

// Empty reports whether the tree has no nodes.
func (t *Tree[K]) Empty() bool { return t.count == 0 }

// Root returns the root node, or End() when empty.
func (t *Tree[K]) Root() *Node[K] { return t.root }

// Begin returns the smallest node, or End() when empty.
func (t *Tree[K]) Begin() *Node[K] { return t.leftmost }

// End returns the sentinel that terminates forward iteration.
func (t *Tree[K]) End() *Node[K] { return &t.sentinel }

// RBegin returns the largest node, or REnd() when empty.
func (t *Tree[K]) RBegin() *Node[K] { return t.rightmost }

// REnd returns the sentinel that terminates reverse iteration.
func (t *Tree[K]) REnd() *Node[K] { return &t.sentinel }

// Next returns the in-order successor of n, or End().
func (t *Tree[K]) Next(n *Node[K]) *Node[K] {
	nil_ := &t.sentinel
	if n == nil_ {
		return nil_
	}
	if n.right != nil_ {
		return t.farLeft(n.right)
	}
	p := n.parent
	for p != nil_ && p.right == n {
		n = p
		p = p.parent
	}
	return p
}

// Prev returns the in-order predecessor of n, or REnd().
func (t *Tree[K]) Prev(n *Node[K]) *Node[K] {
	nil_ := &t.sentinel
	if n == nil_ {
		return nil_
	}
	if n.left != nil_ {
		return t.farRight(n.left)
	}
	p := n.parent
	for p != nil_ && p.left == n {
		n = p
		p = p.parent
	}
	return p
}

// All yields keys in ascending order.
func (t *Tree[K]) All() iter.Seq[K] {
	return func(yield func(K) bool) {
		for n := t.Begin(); n != t.End(); n = t.Next(n) {
			if !yield(n.key) {
				return
			}
		}
	}
}

// Backward yields keys in descending order.
func (t *Tree[K]) Backward() iter.Seq[K] {
	return func(yield func(K) bool) {
		for n := t.RBegin(); n != t.REnd(); n = t.Prev(n) {
			if !yield(n.key) {
				return
			}
		}
	}
}

// LeftLength counts parent hops from the smallest node to the root.
func (t *Tree[K]) LeftLength() int {
	length := 0
	for n := t.leftmost; n != t.root; n = n.parent {
		length++
	}
	return length
}

// RightLength counts parent hops from the largest node to the root.
func (t *Tree[K]) RightLength() int {
	length := 0
	for n := t.rightmost; n != t.root; n = n.parent {
		length++
	}
	return length
}

// Find returns the node equal to key, or End().
func (t *Tree[K]) Find(key K) *Node[K] {
	nil_ := &t.sentinel
	x := t.root
	for x != nil_ {
		switch {
		case t.cb.Less(key, x.key):
			x = x.left
		case t.cb.Less(x.key, key):
			x = x.right
		default:
			return x
		}
	}
	return nil_
}

// LowerBound returns the first node not less than key, or End().
func (t *Tree[K]) LowerBound(key K) *Node[K] {
	nil_ := &t.sentinel
	res := nil_
	for x := t.root; x != nil_; {
		if !t.cb.Less(x.key, key) {
			res = x
			x = x.left
		} else {
			x = x.right
		}
	}
	return res
}

// UpperBound returns the first node greater than key, or End().
func (t *Tree[K]) UpperBound(key K) *Node[K] {
	nil_ := &t.sentinel
	res := nil_
	for x := t.root; x != nil_; {
		if t.cb.Less(key, x.key) {
			res = x
			x = x.left
		} else {
			x = x.right
		}
	}
	return res
}

type side uint8

const (
	sideNone side = iota
	sideLeft
	sideRight
)

// locate finds where key would dock. sideNone means an equal key exists
// and the returned node is that duplicate.
func (t *Tree[K]) locate(key K) (*Node[K], side) {
	nil_ := &t.sentinel
	parent := nil_
	where := sideLeft
	for x := t.root; x != nil_; {
		parent = x
		switch {
		case t.cb.Less(key, x.key):
			where = sideLeft
			x = x.left
		case t.cb.Less(x.key, key):
			where = sideRight
			x = x.right
		default:
			return x, sideNone
		}
	}
	return parent, where
}

// Insert adds key. When an equal key already exists it returns that node
// and false; nothing is allocated in that case.
func (t *Tree[K]) Insert(key K) (*Node[K], bool) {
	parent, where := t.locate(key)
	if where == sideNone {
		return parent, false
	}
	n := t.cb.Alloc(key)
	if n == nil {
		panic("rbtree: Alloc callback returned nil")
	}
	n.reset()
	n.owner = nil
	t.cb.Copy(&n.key, key)
	t.link(n, parent, where)
	return n, true
}

// Dock attaches a caller-owned node using its current key. No callbacks
// run. When an equal key is already present the existing node and false
// are returned and n stays undocked.
func (t *Tree[K]) Dock(n *Node[K]) (*Node[K], bool) {
	if !n.IsUndocked() {
		panic("rbtree: node already docked")
	}
	parent, where := t.locate(n.key)
	if where == sideNone {
		return parent, false
	}
	t.link(n, parent, where)
	return n, true
}

// Undock detaches n without running Destruct or Free. n must be docked
// in t.
func (t *Tree[K]) Undock(n *Node[K]) *Node[K] {
	if n.IsUndocked() || n.IsSentinel() {
		panic("rbtree: node not docked")
	}
	if n == t.leftmost {
		t.leftmost = t.Next(n)
	}
	if n == t.rightmost {
		t.rightmost = t.Prev(n)
	}
	t.remove(n)
	t.count--
	n.reset()
	return n
}

// Erase undocks n, then runs Destruct and Free on it.
func (t *Tree[K]) Erase(n *Node[K]) {
	t.Undock(n)
	t.dealloc(n)
}

// EraseKey erases the node equal to key and reports whether one existed.
func (t *Tree[K]) EraseKey(key K) bool {
	n := t.Find(key)
	if n == &t.sentinel {
		return false
	}
	t.Erase(n)
	return true
}

func (t *Tree[K]) link(n, parent *Node[K], where side) {
	nil_ := &t.sentinel
	n.parent = parent
	n.left = nil_
	n.right = nil_
	n.color = red

	switch {
	case parent == nil_:
		t.root = n
		t.leftmost = n
		t.rightmost = n
	case where == sideLeft:
		parent.left = n
		if parent == t.leftmost {
			t.leftmost = n
		}
	default:
		parent.right = n
		if parent == t.rightmost {
			t.rightmost = n
		}
	}
	t.count++
	t.insertFixup(n)
}

func (t *Tree[K]) farLeft(n *Node[K]) *Node[K] {
	for n.left != &t.sentinel {
		n = n.left
	}
	return n
}

func (t *Tree[K]) farRight(n *Node[K]) *Node[K] {
	for n.right != &t.sentinel {
		n = n.right
	}
	return n
}

func (t *Tree[K]) rotateLeft(x *Node[K]) {
	nil_ := &t.sentinel
	y := x.right
	x.right = y.left
	if y.left != nil_ {
		y.left.parent = x
	}
	y.parent = x.parent
	switch {
	case x.parent == nil_:
		t.root = y
	case x == x.parent.left:
		x.parent.left = y
	default:
		x.parent.right = y
	}
	y.left = x
	x.parent = y
}

func (t *Tree[K]) rotateRight(x *Node[K]) {
	nil_ := &t.sentinel
	y := x.left
	x.left = y.right
	if y.right != nil_ {
		y.right.parent = x
	}
	y.parent = x.parent
	switch {
	case x.parent == nil_:
		t.root = y
	case x == x.parent.right:
		x.parent.right = y
	default:
		x.parent.left = y
	}
	y.right = x
	x.parent = y
}

func (t *Tree[K]) insertFixup(z *Node[K]) {
	for z.parent.color == red {
		gp := z.parent.parent
		if z.parent == gp.left {
			uncle := gp.right
			if uncle.color == red {
				z.parent.color = black
				uncle.color = black
				gp.color = red
				z = gp
				continue
			}
			if z == z.parent.right {
				z = z.parent
				t.rotateLeft(z)
			}
			z.parent.color = black
			z.parent.parent.color = red
			t.rotateRight(z.parent.parent)
		} else {
			uncle := gp.left
			if uncle.color == red {
				z.parent.color = black
				uncle.color = black
				gp.color = red
				z = gp
				continue
			}
			if z == z.parent.left {
				z = z.parent
				t.rotateRight(z)
			}
			z.parent.color = black
			z.parent.parent.color = red
			t.rotateLeft(z.parent.parent)
		}
	}
	t.root.color = black
}

// transplant replaces the subtree rooted at u with the one rooted at v.
// v may be the sentinel, whose parent is then set temporarily for fixup.
func (t *Tree[K]) transplant(u, v *Node[K]) {
	switch {
	case u.parent == &t.sentinel:
		t.root = v
	case u == u.parent.left:
		u.parent.left = v
	default:
		u.parent.right = v
	}
	v.parent = u.parent
}

func (t *Tree[K]) remove(z *Node[K]) {
	nil_ := &t.sentinel
	y := z
	yColor := y.color
	var x *Node[K]

	switch {
	case z.left == nil_:
		x = z.right
		t.transplant(z, z.right)
	case z.right == nil_:
		x = z.left
		t.transplant(z, z.left)
	default:
		y = t.farLeft(z.right)
		yColor = y.color
		x = y.right
		if y.parent == z {
			x.parent = y
		} else {
			t.transplant(y, y.right)
			y.right = z.right
			y.right.parent = y
		}
		t.transplant(z, y)
		y.left = z.left
		y.left.parent = y
		y.color = z.color
	}

	if yColor == black {
		t.deleteFixup(x)
	}
	t.sentinel.parent = nil
	t.sentinel.color = black
}

func (t *Tree[K]) deleteFixup(x *Node[K]) {
	for x != t.root && x.color == black {
		if x == x.parent.left {
			w := x.parent.right
			if w.color == red {
				w.color = black
				x.parent.color = red
				t.rotateLeft(x.parent)
				w = x.parent.right
			}
			if w.left.color == black && w.right.color == black {
				w.color = red
				x = x.parent
				continue
			}
			if w.right.color == black {
				w.left.color = black
				w.color = red
				t.rotateRight(w)
				w = x.parent.right
			}
			w.color = x.parent.color
			x.parent.color = black
			w.right.color = black
			t.rotateLeft(x.parent)
			x = t.root
		} else {
			w := x.parent.left
			if w.color == red {
				w.color = black
				x.parent.color = red
				t.rotateRight(x.parent)
				w = x.parent.left
			}
			if w.right.color == black && w.left.color == black {
				w.color = red
				x = x.parent
				continue
			}
			if w.left.color == black {
				w.right.color = black
				w.color = red
				t.rotateLeft(w)
				w = x.parent.left
			}
			w.color = x.parent.color
			x.parent.color = black
			w.left.color = black
			t.rotateRight(x.parent)
			x = t.root
		}
	}
	x.color = black
}
