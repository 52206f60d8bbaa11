package rbtree

import (
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intLess(a, b int) bool { return a < b }

func newIntTree() *Tree[int] {
	return New(Callbacks[int]{Less: intLess})
}

func keysOf(t *Tree[int]) []int {
	return slices.Collect(t.All())
}

// requireExtremes checks Begin/RBegin against a brute-force scan.
func requireExtremes(t *testing.T, tr *Tree[int], live map[int]struct{}) {
	t.Helper()
	if len(live) == 0 {
		require.Equal(t, tr.End(), tr.Begin())
		require.Equal(t, tr.REnd(), tr.RBegin())
		return
	}
	first := true
	var lo, hi int
	for k := range live {
		if first || k < lo {
			lo = k
		}
		if first || k > hi {
			hi = k
		}
		first = false
	}
	require.Equal(t, lo, tr.Begin().Key())
	require.Equal(t, hi, tr.RBegin().Key())
}

func Test_Tree_Empty(t *testing.T) {
	tr := newIntTree()
	assert.True(t, tr.Empty())
	assert.Equal(t, 0, tr.Len())
	assert.Equal(t, tr.End(), tr.Begin())
	assert.Equal(t, tr.End(), tr.Find(1))
	assert.Equal(t, tr.End(), tr.LowerBound(1))
	assert.Equal(t, 0, tr.LeftLength())
	assert.Equal(t, 0, tr.RightLength())
	require.NoError(t, tr.Validate())
}

func Test_Tree_InsertDuplicate(t *testing.T) {
	tr := newIntTree()
	n, ok := tr.Insert(7)
	require.True(t, ok)
	dup, ok := tr.Insert(7)
	require.False(t, ok)
	assert.Same(t, n, dup)
	assert.Equal(t, 1, tr.Len())
}

func Test_Tree_Bounds(t *testing.T) {
	tr := newIntTree()
	for _, k := range []int{10, 20, 30, 40} {
		tr.Insert(k)
	}

	tests := []struct {
		key   int
		lower int // -1 means End()
		upper int
	}{
		{5, 10, 10},
		{10, 10, 20},
		{15, 20, 20},
		{40, 40, -1},
		{41, -1, -1},
	}
	for _, tt := range tests {
		lb := tr.LowerBound(tt.key)
		ub := tr.UpperBound(tt.key)
		if tt.lower < 0 {
			assert.Equal(t, tr.End(), lb, "lower_bound(%d)", tt.key)
		} else {
			assert.Equal(t, tt.lower, lb.Key(), "lower_bound(%d)", tt.key)
		}
		if tt.upper < 0 {
			assert.Equal(t, tr.End(), ub, "upper_bound(%d)", tt.key)
		} else {
			assert.Equal(t, tt.upper, ub.Key(), "upper_bound(%d)", tt.key)
		}
	}
}

func Test_Tree_Traversal(t *testing.T) {
	tr := newIntTree()
	want := []int{1, 2, 3, 5, 8, 13, 21}
	for _, k := range []int{13, 2, 21, 1, 8, 3, 5} {
		tr.Insert(k)
	}
	assert.Equal(t, want, keysOf(tr))

	back := slices.Collect(tr.Backward())
	slices.Reverse(back)
	assert.Equal(t, want, back)

	var fwd []int
	for n := tr.Begin(); n != tr.End(); n = tr.Next(n) {
		fwd = append(fwd, n.Key())
	}
	assert.Equal(t, want, fwd)

	var rev []int
	for n := tr.RBegin(); n != tr.REnd(); n = tr.Prev(n) {
		rev = append(rev, n.Key())
	}
	slices.Reverse(rev)
	assert.Equal(t, want, rev)
}

func Test_Tree_CallbacksRunOnErase(t *testing.T) {
	var allocs, frees, destructs, copies int
	tr := New(Callbacks[int]{
		Alloc:    func(int) *Node[int] { allocs++; return new(Node[int]) },
		Free:     func(*Node[int]) { frees++ },
		Copy:     func(dst *int, src int) { copies++; *dst = src },
		Destruct: func(*int) { destructs++ },
		Less:     intLess,
	})
	for k := range 10 {
		tr.Insert(k)
	}
	tr.Insert(3)
	assert.Equal(t, 10, allocs, "duplicate insert must not allocate")
	assert.Equal(t, 10, copies)

	require.True(t, tr.EraseKey(4))
	require.False(t, tr.EraseKey(4))
	assert.Equal(t, 1, frees)
	assert.Equal(t, 1, destructs)

	tr.Clear()
	assert.Equal(t, 10, frees)
	assert.Equal(t, 10, destructs)
	assert.True(t, tr.Empty())
	require.NoError(t, tr.Validate())
}

type record struct {
	node Node[*record]
	id   int
}

func Test_Tree_DockUndock(t *testing.T) {
	calls := 0
	tr := New(Callbacks[*record]{
		Alloc: func(*record) *Node[*record] { calls++; return nil },
		Free:  func(*Node[*record]) { calls++ },
		Less:  func(a, b *record) bool { return a.id < b.id },
	})

	recs := make([]*record, 32)
	for i := range recs {
		r := &record{id: i * 3}
		r.node.SetKey(r)
		recs[i] = r
		got, ok := tr.Dock(&r.node)
		require.True(t, ok)
		require.Same(t, &r.node, got)
		assert.Same(t, tr, r.node.Tree())
	}
	require.NoError(t, tr.Validate())

	clash := &record{id: 9}
	clash.node.SetKey(clash)
	existing, ok := tr.Dock(&clash.node)
	require.False(t, ok)
	assert.Same(t, recs[3], existing.Key())
	assert.True(t, clash.node.IsUndocked())

	for i := 0; i < len(recs); i += 2 {
		tr.Undock(&recs[i].node)
		assert.True(t, recs[i].node.IsUndocked())
		assert.Nil(t, recs[i].node.Tree())
		require.NoError(t, tr.Validate())
	}
	assert.Equal(t, 16, tr.Len())
	assert.Equal(t, 0, calls, "dock and undock must not run callbacks")

	// A released node can be docked again.
	_, ok = tr.Dock(&recs[0].node)
	require.True(t, ok)
	assert.Same(t, recs[0], tr.Begin().Key())
}

func Test_Tree_UndockPanicsOnUndockedNode(t *testing.T) {
	tr := newIntTree()
	assert.Panics(t, func() { tr.Undock(NewNode(1)) })
	assert.Panics(t, func() { tr.Undock(tr.End()) })

	n, _ := tr.Insert(1)
	assert.Panics(t, func() { tr.Dock(n) })
}

func Test_Tree_ArmLengths(t *testing.T) {
	tr := newIntTree()
	for k := range 1000 {
		tr.Insert(k)

		left := 0
		for n := tr.Begin(); n != tr.Root(); n = n.parent {
			left++
		}
		right := 0
		for n := tr.RBegin(); n != tr.Root(); n = n.parent {
			right++
		}
		require.Equal(t, left, tr.LeftLength())
		require.Equal(t, right, tr.RightLength())
	}
}

// Test_Tree_RandomOps_GuardInvariants runs random insert/erase sequences
// and validates the tree after every step.
func Test_Tree_RandomOps_GuardInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	tr := newIntTree()
	live := make(map[int]struct{})

	for i := range 5000 {
		k := rng.Intn(512)
		if rng.Intn(3) == 0 {
			_, had := live[k]
			require.Equal(t, had, tr.EraseKey(k), "step %d: erase %d", i, k)
			delete(live, k)
		} else {
			_, had := live[k]
			_, ok := tr.Insert(k)
			require.Equal(t, !had, ok, "step %d: insert %d", i, k)
			live[k] = struct{}{}
		}

		require.NoError(t, tr.Validate(), "step %d", i)
		require.Equal(t, len(live), tr.Len())
		requireExtremes(t, tr, live)
	}

	want := make([]int, 0, len(live))
	for k := range live {
		want = append(want, k)
	}
	slices.Sort(want)
	assert.Equal(t, want, keysOf(tr))
}

func Test_Tree_EraseAllOrders(t *testing.T) {
	orders := map[string]func([]int){
		"ascending":  func([]int) {},
		"descending": func(s []int) { slices.Reverse(s) },
		"shuffled": func(s []int) {
			rand.New(rand.NewSource(7)).Shuffle(len(s), func(i, j int) { s[i], s[j] = s[j], s[i] })
		},
	}
	for name, arrange := range orders {
		t.Run(name, func(t *testing.T) {
			tr := newIntTree()
			keys := make([]int, 300)
			live := make(map[int]struct{})
			for i := range keys {
				keys[i] = i
				tr.Insert(i)
				live[i] = struct{}{}
			}
			arrange(keys)
			for _, k := range keys {
				tr.Erase(tr.Find(k))
				delete(live, k)
				require.NoError(t, tr.Validate())
				requireExtremes(t, tr, live)
			}
			assert.True(t, tr.Empty())
		})
	}
}
