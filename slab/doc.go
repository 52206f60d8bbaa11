// Package slab implements a size-classed slab allocator.
//
// Requests are rounded up to one of 88 size classes between 8 bytes and
// 64 KiB. Each class carves large backing blocks ("chunks") into equal
// slices and tracks free slices with a ring of 16-bit indexes stored in
// the block itself. Requests above 64 KiB get a dedicated chunk.
//
// Every chunk is docked in an address-ordered red-black tree, so Recyc
// resolves any slice back to its chunk in O(log n). A one-chunk cache
// short-circuits the lookup for repeated same-size traffic.
//
// Basic usage:
//
//	p, err := slab.New(nil)
//	if err != nil {
//		return err
//	}
//	b, err := p.Alloc(100)
//	...
//	if err := p.Recyc(b); err != nil {
//		return err
//	}
//
// A Pool is single-owner. Other goroutines hand slices back with Defer;
// the owner applies them with Drain (or automatically on Alloc when
// Options.DrainOnAlloc is set).
package slab
