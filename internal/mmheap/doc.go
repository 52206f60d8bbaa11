// Package mmheap provides page-granular anonymous memory for backing
// blocks. Memory obtained here is invisible to the Go garbage collector
// and must be returned with Unmap.
package mmheap
