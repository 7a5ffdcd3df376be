package index

import (
	"fmt"
	"sort"

	"github.com/systemsomicslab/largelist/format"
)

// ChunkEntry locates one chunk of a list.
type ChunkEntry struct {
	// Offset is the position of the chunk header relative to the list start.
	Offset int64 `json:"offset"`
	// FirstElement is the list index of the chunk's first element.
	FirstElement uint64             `json:"first_element"`
	Header       format.ChunkHeader `json:"header"`
}

// PayloadOffset returns the position of the chunk payload relative to the list start.
func (e ChunkEntry) PayloadOffset() int64 {
	return e.Offset + format.ChunkHeaderSize
}

// End returns the position just past the chunk relative to the list start.
func (e ChunkEntry) End() int64 {
	return e.PayloadOffset() + int64(e.Header.ByteLength)
}

// ElementLoc locates one element inside the raw payload of its chunk.
type ElementLoc struct {
	Chunk uint64 `json:"chunk"`
	// Offset points at the element's length prefix.
	Offset uint64 `json:"offset"`
	Length uint64 `json:"length"`
}

// Index is the chunk table of a serialized list, optionally with a
// per-element side table.
type Index struct {
	Header   format.GlobalHeader `json:"header"`
	Chunks   []ChunkEntry        `json:"chunks"`
	Elements []ElementLoc        `json:"elements,omitempty"`
}

// Len returns the number of elements in the list.
func (x *Index) Len() uint64 {
	return x.Header.ElementCount
}

// Size returns the number of bytes the list occupies.
func (x *Index) Size() int64 {
	if len(x.Chunks) == 0 {
		return x.Header.Size()
	}
	return x.Chunks[len(x.Chunks)-1].End()
}

// Locate returns the position in Chunks of the chunk holding element i and
// the position of the element within that chunk.
func (x *Index) Locate(i int64) (int, uint32, error) {
	if i < 0 || uint64(i) >= x.Header.ElementCount {
		return 0, 0, &format.IndexOutOfRangeError{Index: i, Count: x.Header.ElementCount}
	}
	target := uint64(i)
	k := sort.Search(len(x.Chunks), func(k int) bool {
		c := x.Chunks[k]
		return c.FirstElement+uint64(c.Header.ElementCount) > target
	})
	if k == len(x.Chunks) {
		return 0, 0, format.NewCountError(0, -1,
			"chunk table does not cover declared elements", x.Header.ElementCount, target)
	}
	return k, uint32(target - x.Chunks[k].FirstElement), nil
}

// Element returns the location of element i if the index records element locations.
func (x *Index) Element(i int64) (ElementLoc, bool) {
	if i < 0 || uint64(i) >= uint64(len(x.Elements)) {
		return ElementLoc{}, false
	}
	return x.Elements[i], true
}

// Validate checks that the chunk table is consistent with the header and
// that every chunk lies within a list of size bytes. A negative size skips
// the bounds check.
func (x *Index) Validate(size int64) error {
	if uint64(len(x.Chunks)) != x.Header.ChunkCount {
		return format.NewCountError(0, -1, "chunk table length differs from header", x.Header.ChunkCount, uint64(len(x.Chunks)))
	}

	next := x.Header.Size()
	var elements uint64
	for k, c := range x.Chunks {
		chunk := int64(k)
		if c.Offset != next {
			return format.NewCountError(c.Offset, chunk, "chunk is not contiguous with its predecessor", uint64(next), uint64(c.Offset))
		}
		if c.FirstElement != elements {
			return format.NewCountError(c.Offset, chunk, "chunk does not continue element numbering", elements, c.FirstElement)
		}
		if err := c.Header.Validate(); err != nil {
			return format.NewCorruptionError(c.Offset, chunk, "inconsistent chunk header", err)
		}
		if size >= 0 && c.End() > size {
			return format.NewCountError(c.Offset, chunk, "chunk extends past end of stream", uint64(c.End()), uint64(size))
		}
		elements += uint64(c.Header.ElementCount)
		next = c.End()
	}
	if elements != x.Header.ElementCount {
		return format.NewCountError(next, -1, "chunks hold a different number of elements than declared", x.Header.ElementCount, elements)
	}

	if x.Elements != nil {
		if uint64(len(x.Elements)) != x.Header.ElementCount {
			return fmt.Errorf("element table holds %d entries for %d elements", len(x.Elements), x.Header.ElementCount)
		}
		for i, e := range x.Elements {
			if e.Chunk >= uint64(len(x.Chunks)) {
				return fmt.Errorf("element %d refers to chunk %d of %d", i, e.Chunk, len(x.Chunks))
			}
			if e.Offset+format.FramedLen(0)+e.Length > x.Chunks[e.Chunk].Header.RawLength {
				return fmt.Errorf("element %d runs past the payload of chunk %d", i, e.Chunk)
			}
		}
	}
	return nil
}
