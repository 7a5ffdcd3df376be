package chunk

import (
	"math"

	"github.com/systemsomicslab/largelist/format"
)

// Plan holds the final counts of a list whose chunk boundaries were computed
// before writing.
type Plan struct {
	ElementCount uint64
	ChunkCount   uint64
}

// Planner decides chunk boundaries. The Writer and the facade's counting pass
// share it, so both walks cut chunks at the same elements.
type Planner struct {
	ceiling uint64

	chunks   uint64
	elements uint64

	curCount uint32
	curRaw   uint64
}

// NewPlanner returns a planner for the given raw payload ceiling.
func NewPlanner(ceiling uint64) *Planner {
	return &Planner{ceiling: ceiling}
}

// Add places an element of n encoded bytes.
//
// flush reports that the open chunk must be closed before the element is
// placed. singleton reports that the element does not fit any chunk and gets
// one of its own; the open chunk is then empty again.
func (p *Planner) Add(n int) (flush, singleton bool) {
	framed := format.FramedLen(n)

	if p.curCount > 0 && (p.curRaw+framed > p.ceiling || p.curCount == math.MaxUint32) {
		flush = true
		p.chunks++
		p.curCount = 0
		p.curRaw = 0
	}

	p.elements++
	if framed > p.ceiling {
		p.chunks++
		return flush, true
	}

	p.curCount++
	p.curRaw += framed
	return flush, false
}

// Pending reports whether the open chunk holds elements.
func (p *Planner) Pending() bool {
	return p.curCount > 0
}

// Finish closes the open chunk and returns the totals.
func (p *Planner) Finish() Plan {
	if p.curCount > 0 {
		p.chunks++
		p.curCount = 0
		p.curRaw = 0
	}
	return Plan{ElementCount: p.elements, ChunkCount: p.chunks}
}
