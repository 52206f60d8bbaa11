// Package workload drives alloc/free patterns against a slab pool and
// against the Go heap for comparison.
package workload

import (
	"fmt"
	"time"

	"github.com/joshuapare/slabkit/slab"
)

// Pattern selects the alloc/free shape of a run.
type Pattern int

const (
	// Sequential allocates and immediately frees one slice per size.
	Sequential Pattern = iota
	// Batch allocates Batch slices of one size, then frees them all.
	Batch
)

func (p Pattern) String() string {
	switch p {
	case Sequential:
		return "sequential"
	case Batch:
		return "batch"
	default:
		return fmt.Sprintf("Pattern(%d)", int(p))
	}
}

// ParsePattern maps a pattern name back to its value.
func ParsePattern(s string) (Pattern, error) {
	switch s {
	case "sequential", "seq":
		return Sequential, nil
	case "batch":
		return Batch, nil
	default:
		return 0, fmt.Errorf("unknown pattern %q (want sequential or batch)", s)
	}
}

// Config describes one run. Every round walks sizes 1..MaxSize.
type Config struct {
	Pattern Pattern
	Rounds  int
	MaxSize int
	Batch   int // slices held at once for Batch

	// Options configures the pool under test. Nil uses slab.DefaultOptions.
	Options *slab.Options
}

// Result summarizes one run.
type Result struct {
	Name    string
	Pattern Pattern
	Ops     int // alloc+free pairs
	Elapsed time.Duration
	Stats   slab.Stats // pool state before Destroy; zero for Go runs
}

// NsPerOp returns the mean cost of one alloc+free pair.
func (r Result) NsPerOp() float64 {
	if r.Ops == 0 {
		return 0
	}
	return float64(r.Elapsed.Nanoseconds()) / float64(r.Ops)
}

func (c Config) validate() error {
	if c.Rounds <= 0 || c.MaxSize <= 0 {
		return fmt.Errorf("workload: rounds and max size must be positive")
	}
	if c.Pattern == Batch && c.Batch <= 0 {
		return fmt.Errorf("workload: batch size must be positive")
	}
	return nil
}

// RunPool runs cfg against a fresh pool and destroys it afterwards.
func RunPool(cfg Config) (Result, error) {
	if err := cfg.validate(); err != nil {
		return Result{}, err
	}
	p, err := slab.New(cfg.Options)
	if err != nil {
		return Result{}, err
	}

	res := Result{Name: "pool", Pattern: cfg.Pattern}
	held := make([][]byte, max(cfg.Batch, 1))
	start := time.Now()
	for range cfg.Rounds {
		for size := 1; size <= cfg.MaxSize; size++ {
			switch cfg.Pattern {
			case Sequential:
				b, err := p.Alloc(size)
				if err != nil {
					return res, fmt.Errorf("alloc %d: %w", size, err)
				}
				b[0] = byte(size)
				if err := p.Recyc(b); err != nil {
					return res, fmt.Errorf("recyc %d: %w", size, err)
				}
				res.Ops++
			case Batch:
				for k := range held {
					if held[k], err = p.Alloc(size); err != nil {
						return res, fmt.Errorf("alloc %d: %w", size, err)
					}
				}
				for k := range held {
					held[k][0] = byte(size)
					if err := p.Recyc(held[k]); err != nil {
						return res, fmt.Errorf("recyc %d: %w", size, err)
					}
					held[k] = nil
				}
				res.Ops += len(held)
			}
		}
	}
	res.Elapsed = time.Since(start)
	res.Stats = p.Stats()
	return res, p.Destroy()
}

var sink []byte

// RunGo runs cfg with make and lets the garbage collector reclaim slices.
func RunGo(cfg Config) (Result, error) {
	if err := cfg.validate(); err != nil {
		return Result{}, err
	}
	res := Result{Name: "go", Pattern: cfg.Pattern}
	held := make([][]byte, max(cfg.Batch, 1))
	start := time.Now()
	for range cfg.Rounds {
		for size := 1; size <= cfg.MaxSize; size++ {
			switch cfg.Pattern {
			case Sequential:
				b := make([]byte, size)
				b[0] = byte(size)
				sink = b
				res.Ops++
			case Batch:
				for k := range held {
					held[k] = make([]byte, size)
				}
				for k := range held {
					held[k][0] = byte(size)
					sink = held[k]
					held[k] = nil
				}
				res.Ops += len(held)
			}
		}
	}
	res.Elapsed = time.Since(start)
	return res, nil
}
