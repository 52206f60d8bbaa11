package slab

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ClassStats describes the live chunks of one size class.
type ClassStats struct {
	Index      int `json:"index"`
	SliceSize  int `json:"slice_size"`
	ChunkSize  int `json:"chunk_size"`
	Chunks     int `json:"chunks"`
	FreeSlices int `json:"free_slices"`
	UsedSlices int `json:"used_slices"`
}

// Stats is a point-in-time snapshot of a pool.
type Stats struct {
	Cached int `json:"cached"` // bytes obtained from the heap
	Valid  int `json:"valid"`  // bytes usable as slices
	Using  int `json:"using"`  // bytes checked out

	Chunks    int `json:"chunks"`    // live chunks, classed and unmanaged
	Unmanaged int `json:"unmanaged"` // live oversized chunks
	Pending   int `json:"pending"`   // deferred frees not yet drained

	// Classes lists only classes that own at least one chunk.
	Classes []ClassStats `json:"classes,omitempty"`
}

// Stats returns an accounting snapshot. It does not mutate the pool.
func (p *Pool) Stats() Stats {
	s := Stats{
		Cached:  p.cached,
		Valid:   p.valid,
		Using:   p.using,
		Chunks:  p.tree.Len(),
		Pending: p.deferred.len(),
	}
	classed := 0
	for i := range p.classes {
		cls := &p.classes[i]
		if cls.chunks == 0 {
			continue
		}
		classed += cls.chunks
		capacity := chunkCapacity(cls.chunkSize, cls.sliceSize)
		s.Classes = append(s.Classes, ClassStats{
			Index:      cls.index,
			SliceSize:  cls.sliceSize,
			ChunkSize:  cls.chunkSize,
			Chunks:     cls.chunks,
			FreeSlices: cls.free,
			UsedSlices: cls.chunks*capacity - cls.free,
		})
	}
	s.Unmanaged = s.Chunks - classed
	return s
}

// Utilization returns Using/Valid, or 0 for an empty pool.
func (s Stats) Utilization() float64 {
	if s.Valid == 0 {
		return 0
	}
	return float64(s.Using) / float64(s.Valid)
}

// Format renders the snapshot as a table with digits grouped for tag.
func (s Stats) Format(tag language.Tag) string {
	pr := message.NewPrinter(tag)
	var sb strings.Builder
	pr.Fprintf(&sb, "cached   %d bytes\n", s.Cached)
	pr.Fprintf(&sb, "valid    %d bytes\n", s.Valid)
	pr.Fprintf(&sb, "using    %d bytes (%.1f%%)\n", s.Using, s.Utilization()*100)
	pr.Fprintf(&sb, "chunks   %d (%d oversized)\n", s.Chunks, s.Unmanaged)
	if s.Pending > 0 {
		pr.Fprintf(&sb, "pending  %d deferred frees\n", s.Pending)
	}
	if len(s.Classes) == 0 {
		return sb.String()
	}
	pr.Fprintf(&sb, "\n%6s %10s %10s %7s %10s %10s\n", "class", "slice", "chunk", "chunks", "used", "free")
	for _, c := range s.Classes {
		pr.Fprintf(&sb, "%6d %10d %10d %7d %10d %10d\n",
			c.Index, c.SliceSize, c.ChunkSize, c.Chunks, c.UsedSlices, c.FreeSlices)
	}
	return sb.String()
}

// String formats the snapshot for English.
func (s Stats) String() string {
	return s.Format(language.English)
}
