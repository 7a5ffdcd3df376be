package index

import (
	"errors"
	"io"

	"github.com/systemsomicslab/largelist/chunk"
	"github.com/systemsomicslab/largelist/format"
)

// Builder collects an Index while a list is written.
type Builder struct {
	chunks         []ChunkEntry
	elements       []ElementLoc
	recordElements bool
	next           uint64
}

// NewBuilder returns a builder. With recordElements set the index also
// carries the location of every element.
func NewBuilder(recordElements bool) *Builder {
	return &Builder{recordElements: recordElements}
}

// AddChunk records a written chunk.
func (b *Builder) AddChunk(ci chunk.ChunkInfo) {
	b.chunks = append(b.chunks, ChunkEntry{
		Offset:       ci.Offset,
		FirstElement: b.next,
		Header:       ci.Header,
	})
	b.next += uint64(ci.Header.ElementCount)
}

// AddElement records the location of the next element.
func (b *Builder) AddElement(chunkIdx, offset, length uint64) {
	if b.recordElements {
		b.elements = append(b.elements, ElementLoc{Chunk: chunkIdx, Offset: offset, Length: length})
	}
}

// Attach registers the builder's callbacks on writer options.
func (b *Builder) Attach(opts *chunk.Options) {
	onChunk := opts.OnChunk
	opts.OnChunk = func(ci chunk.ChunkInfo) {
		b.AddChunk(ci)
		if onChunk != nil {
			onChunk(ci)
		}
	}
	if b.recordElements {
		onElement := opts.OnElement
		opts.OnElement = func(chunkIdx, offset, length uint64) {
			b.AddElement(chunkIdx, offset, length)
			if onElement != nil {
				onElement(chunkIdx, offset, length)
			}
		}
	}
}

// Finish returns the index for the finalized header h.
func (b *Builder) Finish(h *format.GlobalHeader) (*Index, error) {
	if h == nil {
		return nil, errors.New("nil global header")
	}
	x := &Index{Header: *h, Chunks: b.chunks}
	if b.recordElements {
		x.Elements = b.elements
		if x.Elements == nil {
			x.Elements = []ElementLoc{}
		}
	}
	if err := x.Validate(-1); err != nil {
		return nil, err
	}
	return x, nil
}

// Scan reconstructs the index of the list starting at the current position
// of r by reading the global header and every chunk header. Payloads are
// skipped with Seek when r supports it and discarded otherwise.
//
// On return r is positioned at the end of the list.
func Scan(r io.Reader) (*Index, error) {
	cr := chunk.NewReader(r, chunk.ReaderOptions{})
	h, err := cr.ReadGlobalHeader()
	if err != nil {
		return nil, err
	}

	x := &Index{Header: *h, Chunks: make([]ChunkEntry, 0, min(h.ChunkCount, 1<<16))}
	var next uint64
	for {
		ch, err := cr.ReadChunkHeader()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		x.Chunks = append(x.Chunks, ChunkEntry{
			Offset:       cr.ChunkOffset(),
			FirstElement: next,
			Header:       ch,
		})
		next += uint64(ch.ElementCount)
		if err := cr.SkipChunk(); err != nil {
			return nil, err
		}
	}

	if err := x.Validate(-1); err != nil {
		return nil, err
	}
	return x, nil
}
