package main

import (
	"fmt"
	"math/rand"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"github.com/joshuapare/slabkit/internal/logger"
	"github.com/joshuapare/slabkit/slab"
)

var (
	statsCount   int
	statsMaxSize int
	statsKeep    float64
	statsSeed    int64
	statsLang    string
	statsRelease bool
)

func init() {
	cmd := newStatsCmd()
	cmd.Flags().IntVar(&statsCount, "count", 10000, "Number of allocations")
	cmd.Flags().IntVar(&statsMaxSize, "max-size", 8192, "Largest request size")
	cmd.Flags().Float64Var(&statsKeep, "keep", 0.5, "Fraction of allocations still live when stats are taken")
	cmd.Flags().Int64Var(&statsSeed, "seed", 1, "Random seed")
	cmd.Flags().StringVar(&statsLang, "lang", "en", "Language tag used to format numbers")
	cmd.Flags().BoolVar(&statsRelease, "release-unused", false, "Release fully free chunks before taking stats")
	rootCmd.AddCommand(cmd)
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show pool accounting after a random workload",
		Long: `The stats command allocates --count random-sized slices, frees all but
the --keep fraction, and prints the pool's byte accounting and per-class
chunk usage.

Example:
  slabctl stats
  slabctl stats --count 50000 --keep 0.1 --release-unused
  slabctl stats --lang de --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats()
		},
	}
	return cmd
}

func runStats() error {
	if statsCount <= 0 || statsMaxSize <= 0 {
		return fmt.Errorf("count and max-size must be positive")
	}
	if statsKeep < 0 || statsKeep > 1 {
		return fmt.Errorf("keep must be between 0 and 1, got %g", statsKeep)
	}
	tag, err := language.Parse(statsLang)
	if err != nil {
		return fmt.Errorf("invalid language %q: %w", statsLang, err)
	}

	p, err := slab.New(&slab.Options{Logger: logger.L})
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(statsSeed))
	live := make([][]byte, 0, statsCount)
	for range statsCount {
		b, err := p.Alloc(1 + rng.Intn(statsMaxSize))
		if err != nil {
			return err
		}
		live = append(live, b)
	}
	rng.Shuffle(len(live), func(i, j int) { live[i], live[j] = live[j], live[i] })

	keep := int(float64(len(live)) * statsKeep)
	for _, b := range live[keep:] {
		if err := p.Recyc(b); err != nil {
			return err
		}
	}
	live = live[:keep]
	if statsRelease {
		n := p.ReleaseUnused()
		logger.Debug("released unused chunks", "chunks", n)
		printVerbose("Released %d unused chunks\n", n)
	}

	stats := p.Stats()
	if jsonOut {
		if err := printJSON(stats); err != nil {
			return err
		}
	} else {
		printInfo("%s", stats.Format(tag))
	}

	for _, b := range live {
		if err := p.Recyc(b); err != nil {
			return err
		}
	}
	return p.Destroy()
}
