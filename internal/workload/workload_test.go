package workload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/slabkit/slab"
)

func TestParsePattern(t *testing.T) {
	tests := []struct {
		in      string
		want    Pattern
		wantErr bool
	}{
		{"sequential", Sequential, false},
		{"seq", Sequential, false},
		{"batch", Batch, false},
		{"random", 0, true},
	}
	for _, tt := range tests {
		got, err := ParsePattern(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, tt.want.String(), got.String())
	}
}

func TestRunPool(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantOps int
	}{
		{"sequential", Config{Pattern: Sequential, Rounds: 2, MaxSize: 5000}, 10000},
		{"batch", Config{Pattern: Batch, Rounds: 1, MaxSize: 300, Batch: 16}, 4800},
		{"mmap heap", Config{Pattern: Batch, Rounds: 1, MaxSize: 70000, Batch: 2,
			Options: &slab.Options{Heap: &slab.MmapHeap{}}}, 140000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := RunPool(tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOps, res.Ops)
			assert.Zero(t, res.Stats.Using)
			assert.Positive(t, res.Stats.Cached)
			assert.Positive(t, res.NsPerOp())
		})
	}
}

func TestRunGo(t *testing.T) {
	res, err := RunGo(Config{Pattern: Batch, Rounds: 1, MaxSize: 100, Batch: 4})
	require.NoError(t, err)
	assert.Equal(t, 400, res.Ops)
	assert.Equal(t, "go", res.Name)
}

func TestConfigValidation(t *testing.T) {
	_, err := RunPool(Config{Pattern: Sequential})
	require.Error(t, err)
	_, err = RunGo(Config{Pattern: Batch, Rounds: 1, MaxSize: 1})
	require.Error(t, err)
}
