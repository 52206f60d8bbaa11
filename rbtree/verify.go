package rbtree

import (
	"errors"
	"fmt"
)

// ErrInvalid is wrapped by every error Validate returns.
var ErrInvalid = errors.New("rbtree: invalid tree")

// Validate walks the whole tree and checks the red-black properties, key
// order, parent links, the node count and the cached extremes. It is
// meant for tests and debug builds.
func (t *Tree[K]) Validate() error {
	nil_ := &t.sentinel
	if t.sentinel.color != black {
		return fmt.Errorf("%w: sentinel is red", ErrInvalid)
	}
	if t.root == nil_ {
		if t.count != 0 {
			return fmt.Errorf("%w: empty root with count %d", ErrInvalid, t.count)
		}
		if t.leftmost != nil_ || t.rightmost != nil_ {
			return fmt.Errorf("%w: stale extremes on empty tree", ErrInvalid)
		}
		return nil
	}
	if t.root.color != black {
		return fmt.Errorf("%w: red root", ErrInvalid)
	}
	if t.root.parent != nil_ {
		return fmt.Errorf("%w: root parent is not the sentinel", ErrInvalid)
	}

	count := 0
	if _, err := t.validateBranch(t.root, &count); err != nil {
		return err
	}
	if count != t.count {
		return fmt.Errorf("%w: counted %d nodes, Len reports %d", ErrInvalid, count, t.count)
	}
	if t.leftmost != t.farLeft(t.root) {
		return fmt.Errorf("%w: leftmost cache is stale", ErrInvalid)
	}
	if t.rightmost != t.farRight(t.root) {
		return fmt.Errorf("%w: rightmost cache is stale", ErrInvalid)
	}

	var prev *Node[K]
	for n := t.Begin(); n != nil_; n = t.Next(n) {
		if prev != nil && !t.cb.Less(prev.key, n.key) {
			return fmt.Errorf("%w: keys out of order", ErrInvalid)
		}
		prev = n
	}
	return nil
}

// validateBranch returns the black height of the subtree rooted at n.
func (t *Tree[K]) validateBranch(n *Node[K], count *int) (int, error) {
	nil_ := &t.sentinel
	if n == nil_ {
		return 1, nil
	}
	*count++
	if n.owner != nil {
		return 0, fmt.Errorf("%w: sentinel linked as a child", ErrInvalid)
	}
	if n.color == red && (n.left.color == red || n.right.color == red) {
		return 0, fmt.Errorf("%w: red node with red child", ErrInvalid)
	}
	if n.left != nil_ && n.left.parent != n {
		return 0, fmt.Errorf("%w: broken parent link on left child", ErrInvalid)
	}
	if n.right != nil_ && n.right.parent != n {
		return 0, fmt.Errorf("%w: broken parent link on right child", ErrInvalid)
	}
	lh, err := t.validateBranch(n.left, count)
	if err != nil {
		return 0, err
	}
	rh, err := t.validateBranch(n.right, count)
	if err != nil {
		return 0, err
	}
	if lh != rh {
		return 0, fmt.Errorf("%w: black height mismatch (%d vs %d)", ErrInvalid, lh, rh)
	}
	if n.color == black {
		lh++
	}
	return lh, nil
}
