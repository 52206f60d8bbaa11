package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/joshuapare/slabkit/internal/logger"
	"github.com/joshuapare/slabkit/internal/workload"
	"github.com/joshuapare/slabkit/slab"
)

var (
	benchPattern string
	benchRounds  int
	benchMaxSize int
	benchBatch   int
	benchHeap    string
	benchCompare bool
)

func init() {
	cmd := newBenchCmd()
	cmd.Flags().StringVar(&benchPattern, "pattern", "sequential", "Workload: sequential or batch")
	cmd.Flags().IntVar(&benchRounds, "rounds", 10, "Passes over the size range")
	cmd.Flags().IntVar(&benchMaxSize, "max-size", 4096, "Largest request size")
	cmd.Flags().IntVar(&benchBatch, "batch", 64, "Slices held at once for the batch pattern")
	cmd.Flags().StringVar(&benchHeap, "heap", "go", "Backing heap: go, mmap or mmap-retain")
	cmd.Flags().BoolVar(&benchCompare, "compare", false, "Also run the workload against the Go allocator")
	rootCmd.AddCommand(cmd)
}

func newBenchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run the alloc/free benchmark driver",
		Long: `The bench command allocates and frees every size from 1 to --max-size,
--rounds times, and reports the time per alloc/free pair.

Example:
  slabctl bench
  slabctl bench --pattern batch --batch 128 --compare
  slabctl bench --heap mmap --max-size 100000 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench()
		},
	}
	return cmd
}

func heapFor(name string) (slab.Heap, error) {
	switch name {
	case "go":
		return slab.GoHeap{}, nil
	case "mmap":
		return &slab.MmapHeap{}, nil
	case "mmap-retain":
		return &slab.MmapHeap{Retain: true}, nil
	default:
		return nil, fmt.Errorf("unknown heap %q (want go, mmap or mmap-retain)", name)
	}
}

// BenchRow is one line of bench output.
type BenchRow struct {
	Allocator string        `json:"allocator"`
	Pattern   string        `json:"pattern"`
	Ops       int           `json:"ops"`
	Elapsed   time.Duration `json:"elapsed_ns"`
	NsPerOp   float64       `json:"ns_per_op"`
	Cached    int           `json:"cached_bytes,omitempty"`
}

func runBench() error {
	pattern, err := workload.ParsePattern(benchPattern)
	if err != nil {
		return err
	}
	heap, err := heapFor(benchHeap)
	if err != nil {
		return err
	}
	if mh, ok := heap.(*slab.MmapHeap); ok {
		defer func() {
			if err := mh.Close(); err != nil {
				logger.Warn("closing mmap heap failed", "error", err)
			}
		}()
	}

	cfg := workload.Config{
		Pattern: pattern,
		Rounds:  benchRounds,
		MaxSize: benchMaxSize,
		Batch:   benchBatch,
		Options: &slab.Options{Heap: heap, Logger: logger.L},
	}
	printVerbose("Running %s workload: rounds=%d max-size=%d heap=%s\n", pattern, benchRounds, benchMaxSize, benchHeap)

	results := make([]workload.Result, 0, 2)
	res, err := workload.RunPool(cfg)
	if err != nil {
		return fmt.Errorf("pool run failed: %w", err)
	}
	results = append(results, res)
	logger.Info("bench finished", "allocator", res.Name, "ops", res.Ops, "elapsed", res.Elapsed)

	if benchCompare {
		res, err := workload.RunGo(cfg)
		if err != nil {
			return fmt.Errorf("go run failed: %w", err)
		}
		results = append(results, res)
	}

	rows := make([]BenchRow, len(results))
	for i, r := range results {
		rows[i] = BenchRow{
			Allocator: r.Name,
			Pattern:   r.Pattern.String(),
			Ops:       r.Ops,
			Elapsed:   r.Elapsed,
			NsPerOp:   r.NsPerOp(),
			Cached:    r.Stats.Cached,
		}
	}
	if jsonOut {
		return printJSON(rows)
	}

	pr := message.NewPrinter(language.English)
	for _, r := range rows {
		printInfo("%s", pr.Sprintf("[%-4s %s] %d ops in %v (%.1f ns/op)\n",
			r.Allocator, r.Pattern, r.Ops, r.Elapsed.Round(time.Microsecond), r.NsPerOp))
	}
	return nil
}
