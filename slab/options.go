package slab

import "log/slog"

// Options configures a Pool.
type Options struct {
	// Heap supplies backing blocks.
	// If nil, GoHeap is used.
	Heap Heap

	// Logger receives chunk lifecycle events at debug level and double
	// frees at warn level.
	// If nil, the package logger is used (silent unless SLABKIT_LOG is set).
	Logger *slog.Logger

	// DrainOnAlloc drains slices queued with Defer before every Alloc.
	// When false the owner must call Drain itself.
	DrainOnAlloc bool

	// Verify runs Validate after every mutation and panics on the first
	// inconsistency. Expensive; meant for tests.
	Verify bool
}

// DefaultOptions returns the options used when New is given nil.
func DefaultOptions() *Options {
	return &Options{
		Heap:         GoHeap{},
		DrainOnAlloc: true,
	}
}
