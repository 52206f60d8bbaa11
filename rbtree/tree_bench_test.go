package rbtree

import (
	"math/rand"
	"testing"
)

// BenchmarkTree_InsertErase measures a steady-state insert/erase mix.
func BenchmarkTree_InsertErase(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	keys := make([]int, 4096)
	for i := range keys {
		keys[i] = rng.Int()
	}
	tr := newIntTree()

	b.ResetTimer()
	b.ReportAllocs()

	for i := range b.N {
		k := keys[i&(len(keys)-1)]
		if n := tr.Find(k); n != tr.End() {
			tr.Erase(n)
		} else {
			tr.Insert(k)
		}
	}
}

// BenchmarkTree_DockUndock measures the callback-free path used by
// embedded nodes.
func BenchmarkTree_DockUndock(b *testing.B) {
	tr := New(Callbacks[*record]{Less: func(a, b *record) bool { return a.id < b.id }})
	recs := make([]*record, 1024)
	for i := range recs {
		r := &record{id: i}
		r.node.SetKey(r)
		recs[i] = r
		tr.Dock(&r.node)
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := range b.N {
		r := recs[i&(len(recs)-1)]
		tr.Undock(&r.node)
		tr.Dock(&r.node)
	}
}

// BenchmarkTree_LowerBound measures lookups on a populated tree.
func BenchmarkTree_LowerBound(b *testing.B) {
	tr := newIntTree()
	for i := range 1 << 14 {
		tr.Insert(i * 2)
	}

	b.ResetTimer()
	for i := range b.N {
		_ = tr.LowerBound(i & (1<<15 - 1))
	}
}
