package chunk

import (
	"errors"
	"fmt"

	"github.com/systemsomicslab/largelist/format"
	"github.com/systemsomicslab/largelist/internal/resource"
)

// DefaultChunkSizeCeiling is half of the 2^31-1 byte limit of a single
// conventional serializer call.
const DefaultChunkSizeCeiling = 1 << 30

// HeaderStrategy selects how the writer produces a global header whose counts
// are only known after the last element.
type HeaderStrategy int

const (
	// HeaderSeekBack writes a placeholder and patches it in EndList.
	// The sink must be an io.WriteSeeker.
	HeaderSeekBack HeaderStrategy = iota
	// HeaderPrecomputed writes the final header up front from a Plan.
	HeaderPrecomputed
)

func (s HeaderStrategy) String() string {
	switch s {
	case HeaderSeekBack:
		return "seek-back"
	case HeaderPrecomputed:
		return "precomputed"
	default:
		return fmt.Sprintf("HeaderStrategy(%d)", int(s))
	}
}

// ChunkInfo describes a chunk that has just been written.
type ChunkInfo struct {
	// Index is the position of the chunk in the list.
	Index uint64
	// Offset is the position of the chunk header relative to the list start.
	Offset int64
	Header format.ChunkHeader
}

// Options configures a Writer.
type Options struct {
	// ChunkSizeCeiling bounds the raw payload of a chunk. An element larger
	// than the ceiling is written as a chunk of its own.
	ChunkSizeCeiling uint64

	// Compression applied to chunk payloads.
	Compression format.Compression

	// Codec is the element codec name recorded in the global header.
	Codec string

	// Header selects the header finalization strategy.
	Header HeaderStrategy

	// OnChunk is called after every chunk is written.
	OnChunk func(ChunkInfo)

	// OnElement is called for every element with its chunk, its offset inside
	// the raw chunk payload (pointing at the length prefix) and its length.
	OnElement func(chunk uint64, offset uint64, length uint64)
}

// DefaultOptions returns the default writer options.
func DefaultOptions() Options {
	return Options{
		ChunkSizeCeiling: DefaultChunkSizeCeiling,
		Compression:      format.CompressionNone,
		Header:           HeaderSeekBack,
	}
}

func (o *Options) validate() error {
	if o.ChunkSizeCeiling == 0 {
		return errors.New("chunk size ceiling must be positive")
	}
	if !o.Compression.Valid() {
		return fmt.Errorf("unknown compression %d", o.Compression)
	}
	if len(o.Codec) > format.MaxCodecNameLen {
		return fmt.Errorf("codec name %q longer than %d bytes", o.Codec, format.MaxCodecNameLen)
	}
	if o.Header != HeaderSeekBack && o.Header != HeaderPrecomputed {
		return fmt.Errorf("unknown header strategy %v", o.Header)
	}
	return nil
}

// ReaderOptions configures a Reader.
type ReaderOptions struct {
	// VerifyChecksums checks the CRC32 of every chunk that is read completely.
	VerifyChecksums bool

	// Budget, if set, bounds each buffer the reader allocates: one element, or
	// one compressed chunk with its decompressed payload. An element is
	// released from the budget once it is returned, so the budget does not
	// bound what the caller retains.
	Budget *resource.Controller

	// Size, if positive, is the number of bytes from the current position to
	// the end of a stream that cannot seek. It enables the same end-of-stream
	// checks a seekable stream gets.
	Size int64
}
