package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// BenchmarkResult represents a parsed benchmark result.
type BenchmarkResult struct {
	Name        string
	Operation   string
	Size        string
	Impl        string // "pool" or "go"
	Iterations  int
	NsPerOp     float64
	BytesPerOp  int64
	AllocsPerOp int64
}

// ComparisonResult represents a comparison between the pool and the Go allocator.
type ComparisonResult struct {
	Operation  string
	Size       string
	PoolNs     float64
	GoNs       float64
	Speedup    float64
	PoolMem    int64
	GoMem      int64
	PoolAllocs int64
	GoAllocs   int64
	PoolOnly   bool
}

var (
	inputFile = flag.String(
		"input",
		"",
		"Input file with benchmark output (stdin if not specified)",
	)
	outputFile = flag.String("output", "", "Output markdown file (stdout if not specified)")
	quiet      = flag.Bool("quiet", false, "Suppress progress output")
)

// Usage: go test -bench . -benchmem ./slab | go run ./scripts
func main() {
	flag.Parse()

	var scanner *bufio.Scanner
	if *inputFile != "" {
		f, err := os.Open(*inputFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening input file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		scanner = bufio.NewScanner(f)
	} else {
		scanner = bufio.NewScanner(os.Stdin)
	}

	results := parseBenchmarks(scanner)
	if !*quiet {
		fmt.Fprintf(os.Stderr, "Parsed %d benchmark results\n", len(results))
	}

	comparisons := generateComparisons(results)
	if !*quiet {
		fmt.Fprintf(os.Stderr, "Generated %d comparisons\n", len(comparisons))
	}

	report := generateMarkdownReport(comparisons, time.Now())

	if *outputFile == "" {
		fmt.Fprint(os.Stdout, report)
		return
	}
	if err := os.WriteFile(*outputFile, []byte(report), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output file: %v\n", err)
		os.Exit(1)
	}
	if !*quiet {
		fmt.Fprintf(os.Stderr, "Report written to %s\n", *outputFile)
	}
}

// BenchmarkAllocRecyc/pool/4096-8    1000000    45.1 ns/op    0 B/op    0 allocs/op
var benchmarkRegex = regexp.MustCompile(
	`^(Benchmark\S+)\s+(\d+)\s+([\d.]+)\s+ns/op(?:\s+([\d.]+)\s+B/op)?(?:\s+([\d.]+)\s+allocs/op)?`,
)

func parseBenchmarks(scanner *bufio.Scanner) []BenchmarkResult {
	var results []BenchmarkResult

	for scanner.Scan() {
		line := scanner.Text()

		// Accept `go test -json` output too.
		var testEvent map[string]any
		if err := json.Unmarshal([]byte(line), &testEvent); err == nil {
			if output, ok := testEvent["Output"].(string); ok {
				line = output
			}
		}

		matches := benchmarkRegex.FindStringSubmatch(strings.TrimSpace(line))
		if matches == nil {
			continue
		}

		r := BenchmarkResult{Name: matches[1]}
		r.Iterations, _ = strconv.Atoi(matches[2])
		r.NsPerOp, _ = strconv.ParseFloat(matches[3], 64)
		if matches[4] != "" {
			r.BytesPerOp, _ = strconv.ParseInt(matches[4], 10, 64)
		}
		if matches[5] != "" {
			r.AllocsPerOp, _ = strconv.ParseInt(matches[5], 10, 64)
		}

		// Benchmark<Operation>/<impl>/<size>-<procs>; anything else is pool-only.
		parts := strings.Split(stripProcs(r.Name), "/")
		r.Operation = strings.TrimPrefix(parts[0], "Benchmark")
		r.Impl = "pool"
		if len(parts) >= 3 {
			r.Impl = parts[1]
			r.Size = parts[len(parts)-1]
		} else if len(parts) == 2 {
			r.Size = parts[1]
		}
		results = append(results, r)
	}

	return results
}

func stripProcs(name string) string {
	if i := strings.LastIndex(name, "-"); i > 0 {
		if _, err := strconv.Atoi(name[i+1:]); err == nil {
			return name[:i]
		}
	}
	return name
}

func generateComparisons(results []BenchmarkResult) []ComparisonResult {
	type key struct {
		operation string
		size      string
	}

	grouped := make(map[key]map[string]BenchmarkResult)
	for _, result := range results {
		k := key{result.Operation, result.Size}
		if grouped[k] == nil {
			grouped[k] = make(map[string]BenchmarkResult)
		}
		grouped[k][result.Impl] = result
	}

	var comparisons []ComparisonResult
	for k, impls := range grouped {
		pool, hasPool := impls["pool"]
		if !hasPool {
			continue
		}
		comp := ComparisonResult{
			Operation:  k.operation,
			Size:       k.size,
			PoolNs:     pool.NsPerOp,
			PoolMem:    pool.BytesPerOp,
			PoolAllocs: pool.AllocsPerOp,
			PoolOnly:   true,
		}
		if g, ok := impls["go"]; ok {
			comp.PoolOnly = false
			comp.GoNs = g.NsPerOp
			comp.GoMem = g.BytesPerOp
			comp.GoAllocs = g.AllocsPerOp
			if pool.NsPerOp > 0 {
				comp.Speedup = g.NsPerOp / pool.NsPerOp
			}
		}
		comparisons = append(comparisons, comp)
	}

	sort.Slice(comparisons, func(i, j int) bool {
		if comparisons[i].Operation != comparisons[j].Operation {
			return comparisons[i].Operation < comparisons[j].Operation
		}
		si, _ := strconv.Atoi(comparisons[i].Size)
		sj, _ := strconv.Atoi(comparisons[j].Size)
		return si < sj
	})

	return comparisons
}

func generateMarkdownReport(comparisons []ComparisonResult, now time.Time) string {
	var sb strings.Builder

	sb.WriteString("# Allocator Benchmark Report\n\n")
	fmt.Fprintf(&sb, "Generated: %s\n\n", now.Format("2006-01-02 15:04:05"))

	poolFaster, goFaster, poolOnly := 0, 0, 0
	totalSpeedup := 0.0
	for _, comp := range comparisons {
		switch {
		case comp.PoolOnly:
			poolOnly++
			continue
		case comp.Speedup > 1.0:
			poolFaster++
		case comp.Speedup < 1.0:
			goFaster++
		}
		totalSpeedup += comp.Speedup
	}

	comparable := len(comparisons) - poolOnly
	sb.WriteString("## Summary\n\n")
	fmt.Fprintf(&sb, "- **Total benchmarks**: %d\n", len(comparisons))
	fmt.Fprintf(&sb, "- **Compared with make**: %d\n", comparable)
	if comparable > 0 {
		fmt.Fprintf(&sb, "  - pool faster: %d (%.1f%%)\n", poolFaster, percent(poolFaster, comparable))
		fmt.Fprintf(&sb, "  - make faster: %d (%.1f%%)\n", goFaster, percent(goFaster, comparable))
		fmt.Fprintf(&sb, "  - Average speedup: **%.2fx**\n", totalSpeedup/float64(comparable))
	}
	fmt.Fprintf(&sb, "- **Pool-only benchmarks**: %d\n\n", poolOnly)

	sb.WriteString("## Detailed Results\n\n")
	sb.WriteString("| Operation | Size | pool (ns/op) | make (ns/op) | Speedup | Memory (B/op) | Allocs |\n")
	sb.WriteString("|-----------|------|--------------|--------------|---------|---------------|--------|\n")

	for _, comp := range comparisons {
		if comp.PoolOnly {
			fmt.Fprintf(&sb, "| %s | %s | %s | *N/A* | *pool only* | %s | %s |\n",
				comp.Operation,
				orDash(comp.Size),
				formatNumber(comp.PoolNs),
				formatBytes(comp.PoolMem),
				formatNumber(float64(comp.PoolAllocs)),
			)
			continue
		}

		indicator, style := "✓", "**"
		if comp.Speedup < 1.0 {
			indicator, style = "✗", ""
		}
		fmt.Fprintf(&sb, "| %s | %s | %s | %s | %s%.2fx%s %s | %s vs %s | %s vs %s |\n",
			comp.Operation,
			orDash(comp.Size),
			formatNumber(comp.PoolNs),
			formatNumber(comp.GoNs),
			style, comp.Speedup, style, indicator,
			formatBytes(comp.PoolMem),
			formatBytes(comp.GoMem),
			formatNumber(float64(comp.PoolAllocs)),
			formatNumber(float64(comp.GoAllocs)),
		)
	}

	sb.WriteString("\n## Notes\n\n")
	sb.WriteString("- **Speedup > 1.0**: the pool is faster ✓\n")
	sb.WriteString("- **Speedup < 1.0**: make is faster ✗\n")
	sb.WriteString("- **Memory and allocations**: lower is better; pool memory excludes chunk growth\n")

	return sb.String()
}

func percent(n, of int) float64 {
	return float64(n) / float64(of) * 100
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func formatNumber(n float64) string {
	if n >= 1000000 {
		return fmt.Sprintf("%.2fM", n/1000000)
	} else if n >= 1000 {
		return fmt.Sprintf("%.1fK", n/1000)
	}
	return fmt.Sprintf("%.0f", n)
}

func formatBytes(b int64) string {
	if b >= 1024*1024 {
		return fmt.Sprintf("%.2fMB", float64(b)/(1024*1024))
	} else if b >= 1024 {
		return fmt.Sprintf("%.1fKB", float64(b)/1024)
	}
	return fmt.Sprintf("%dB", b)
}
