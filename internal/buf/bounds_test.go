package buf

import (
	"math"
	"testing"
)

func TestAddOverflowSafe(t *testing.T) {
	tests := []struct {
		a, b   int
		want   int
		wantOK bool
	}{
		{10, 5, 15, true},
		{100000, 64 + 4095, 104159, true},
		{math.MaxInt, 1, 0, false},
		{math.MaxInt - 4159, 4159, math.MaxInt, true},
		{math.MinInt, -1, 0, false},
		{-5, 5, 0, true},
	}
	for _, tt := range tests {
		got, ok := AddOverflowSafe(tt.a, tt.b)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("AddOverflowSafe(%d, %d) = %d, %v; want %d, %v", tt.a, tt.b, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestSlice(t *testing.T) {
	block := make([]byte, 128)
	for i := range block {
		block[i] = byte(i)
	}

	h, ok := Slice(block, 0, 64)
	if !ok || len(h) != 64 || h[63] != 63 {
		t.Fatalf("Slice(block, 0, 64) = len %d, %v", len(h), ok)
	}
	if got, ok := Slice(block, 120, 8); !ok || got[0] != 120 {
		t.Fatalf("Slice at the tail failed: %v, %v", got, ok)
	}

	bad := []struct {
		name   string
		off, n int
	}{
		{"past end", 100, 64},
		{"offset beyond len", 129, 0},
		{"negative offset", -1, 1},
		{"negative length", 1, -1},
		{"overflowing length", 1, math.MaxInt},
	}
	for _, tt := range bad {
		if _, ok := Slice(block, tt.off, tt.n); ok {
			t.Errorf("%s: Slice(block, %d, %d) should fail", tt.name, tt.off, tt.n)
		}
	}

	// A short block cannot hold a header.
	if _, ok := Slice(make([]byte, 32), 0, 64); ok {
		t.Error("Slice should reject a 64-byte view of a 32-byte block")
	}
}
