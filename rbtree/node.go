package rbtree

type color uint8

const (
	red color = iota
	black
)

// Node is one element of a Tree. It may be allocated by the tree through
// Callbacks.Alloc, or embedded inside a caller-owned record and attached
// with Tree.Dock.
//
// A Node must not be copied once it has been docked.
type Node[K any] struct {
	parent *Node[K]
	left   *Node[K]
	right  *Node[K]
	color  color

	// owner is set only on a tree's sentinel.
	owner *Tree[K]

	key K
}

// NewNode returns an undocked node carrying key.
func NewNode[K any](key K) *Node[K] {
	return &Node[K]{key: key}
}

// Key returns the node's key.
func (n *Node[K]) Key() K {
	return n.key
}

// SetKey replaces the key of an undocked node.
func (n *Node[K]) SetKey(key K) {
	if !n.IsUndocked() {
		panic("rbtree: SetKey on docked node")
	}
	n.key = key
}

// IsSentinel reports whether n is a tree's End/REnd marker.
func (n *Node[K]) IsSentinel() bool {
	return n.owner != nil
}

// IsUndocked reports whether n is detached from every tree.
func (n *Node[K]) IsUndocked() bool {
	return n.parent == nil && n.owner == nil
}

// Tree returns the tree n is docked in, or nil for an undocked node.
// It walks parent links up to the sentinel, so it costs O(log n).
func (n *Node[K]) Tree() *Tree[K] {
	for x := n; x != nil; x = x.parent {
		if x.owner != nil {
			return x.owner
		}
	}
	return nil
}

func (n *Node[K]) reset() {
	n.parent = nil
	n.left = nil
	n.right = nil
	n.color = red
}
