package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/joshuapare/slabkit/slab"
)

func init() {
	rootCmd.AddCommand(newClassesCmd())
}

func newClassesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classes [size...]",
		Short: "Show the size-class table",
		Long: `The classes command prints every size class with its chunk geometry.
Given request sizes, it prints the class (or oversized chunk) serving each.

Example:
  slabctl classes
  slabctl classes 1 257 70000
  slabctl classes --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClasses(args)
		},
	}
	return cmd
}

// SizeMapping is one row of `classes <size>` output.
type SizeMapping struct {
	Request   int  `json:"request"`
	Class     int  `json:"class"`
	Size      int  `json:"size"`
	Oversized bool `json:"oversized"`
}

func runClasses(args []string) error {
	if len(args) == 0 {
		return printClassTable()
	}

	mappings := make([]SizeMapping, 0, len(args))
	for _, arg := range args {
		n, err := strconv.Atoi(arg)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid size %q: must be a positive integer", arg)
		}
		ci := slab.ClassIndex(n)
		mappings = append(mappings, SizeMapping{
			Request:   n,
			Class:     ci,
			Size:      slab.AlignSize(n),
			Oversized: ci < 0,
		})
	}

	if jsonOut {
		return printJSON(mappings)
	}
	for _, m := range mappings {
		if m.Oversized {
			printInfo("%d -> oversized chunk of %d bytes\n", m.Request, m.Size)
			continue
		}
		printInfo("%d -> class %d (%d bytes)\n", m.Request, m.Class, m.Size)
	}
	return nil
}

func printClassTable() error {
	classes := slab.Classes()
	if jsonOut {
		return printJSON(classes)
	}
	printInfo("%5s %8s %10s %8s %8s\n", "class", "slice", "chunk", "slices", "overhead")
	for _, c := range classes {
		printInfo("%5d %8d %10d %8d %8d\n", c.Index, c.SliceSize, c.ChunkSize, c.Capacity, c.Overhead)
	}
	printVerbose("\n%d classes, oversized above %d bytes\n", len(classes), slab.MaxClassSize)
	return nil
}
