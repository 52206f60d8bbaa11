// Command slabctl inspects the slab size-class table and benchmarks the
// pool against the Go allocator.
package main

func main() {
	execute()
}
