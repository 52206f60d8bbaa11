// Package rbtree implements a generic red-black tree with intrusive nodes.
//
// Node storage is obtained through a Callbacks table, so a node can live
// inside a caller-owned record. Dock and Undock attach and detach such a
// node without running any callback, which lets an owner reuse the same
// storage for the lifetime of the record.
//
// Iteration follows the begin/end convention:
//
//	for n := t.Begin(); n != t.End(); n = t.Next(n) {
//		use(n.Key())
//	}
//
// Leftmost and rightmost nodes are cached, so Begin and RBegin are O(1).
package rbtree
