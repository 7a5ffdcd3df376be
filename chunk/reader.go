package chunk

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/systemsomicslab/largelist/format"
)

// readStep is the largest buffer allocated up front for a payload whose
// length cannot be checked against the end of the stream.
const readStep = 1 << 20

// Reader walks a serialized list chunk by chunk without read-ahead.
//
// Uncompressed payloads are read straight from the stream, so ReadElement
// consumes exactly one framed element. Compressed payloads are loaded and
// decompressed once per chunk. A Reader is not safe for concurrent use.
type Reader struct {
	r      io.Reader
	seeker io.Seeker // nil if the stream cannot seek
	opts   ReaderOptions

	// Absolute stream positions. end is -1 when the size is unknown.
	start int64
	pos   int64
	end   int64

	header *format.GlobalHeader

	chunksRead   uint64
	elementsSeen uint64

	cur       format.ChunkHeader
	curIdx    int64
	curOffset int64 // absolute position of the current payload
	inChunk   bool
	left      uint32 // elements not yet consumed in the current chunk
	remaining uint64 // raw payload bytes not yet consumed

	// Set while a compressed chunk is loaded.
	raw      *bytes.Reader
	reserved int64

	crc *format.ChecksumReader
}

// NewReader creates a reader positioned at the start of a list. When r is an
// io.Seeker that actually works, skips use Seek and truncation past the end of
// the stream is detected before reading.
func NewReader(r io.Reader, opts ReaderOptions) *Reader {
	cr := &Reader{r: r, opts: opts, end: -1, curIdx: -1}
	if s, ok := r.(io.Seeker); ok {
		if pos, err := s.Seek(0, io.SeekCurrent); err == nil {
			if end, err := s.Seek(0, io.SeekEnd); err == nil {
				if _, err := s.Seek(pos, io.SeekStart); err == nil {
					cr.seeker = s
					cr.start, cr.pos, cr.end = pos, pos, end
				}
			}
		}
	}
	if cr.seeker == nil && opts.Size > 0 {
		cr.end = opts.Size
	}
	return cr
}

// Seekable reports whether the reader skips with Seek.
func (cr *Reader) Seekable() bool { return cr.seeker != nil }

// Start returns the absolute stream position the list starts at.
func (cr *Reader) Start() int64 { return cr.start }

// Header returns the global header once ReadGlobalHeader succeeded.
func (cr *Reader) Header() *format.GlobalHeader { return cr.header }

// ReadGlobalHeader parses and validates the global header.
func (cr *Reader) ReadGlobalHeader() (*format.GlobalHeader, error) {
	if cr.header != nil {
		return nil, errors.New("global header already read")
	}
	h, err := format.ReadGlobalHeader(cr.r, cr.pos)
	if err != nil {
		return nil, err
	}
	cr.pos += h.Size()
	cr.header = h
	return h, nil
}

// ResumeAt positions the reader in front of chunk number chunk, whose header
// starts at the absolute stream position pos. firstElement is the list index
// of the chunk's first element. The stream must already be at pos.
func (cr *Reader) ResumeAt(h *format.GlobalHeader, chunk, firstElement uint64, pos int64) {
	cr.releaseChunk()
	cr.header = h
	cr.chunksRead = chunk
	cr.elementsSeen = firstElement
	cr.curIdx = int64(chunk) - 1
	cr.inChunk = false
	cr.pos = pos
}

// ReadChunkHeader reads the next chunk header. An unfinished current chunk is
// skipped first. It returns io.EOF once every declared chunk has been read.
func (cr *Reader) ReadChunkHeader() (format.ChunkHeader, error) {
	if cr.header == nil {
		return format.ChunkHeader{}, errors.New("global header not read")
	}
	if cr.inChunk {
		if err := cr.SkipChunk(); err != nil {
			return format.ChunkHeader{}, err
		}
	}
	if cr.chunksRead == cr.header.ChunkCount {
		if cr.elementsSeen != cr.header.ElementCount {
			return format.ChunkHeader{}, format.NewCountError(cr.pos, -1,
				"chunks hold fewer elements than declared", cr.header.ElementCount, cr.elementsSeen)
		}
		return format.ChunkHeader{}, io.EOF
	}

	idx := int64(cr.chunksRead)
	h, err := format.ReadChunkHeader(cr.r, cr.pos, idx)
	if err != nil {
		return format.ChunkHeader{}, err
	}
	headerPos := cr.pos
	cr.pos += format.ChunkHeaderSize

	if h.RawLength > math.MaxInt64 {
		return format.ChunkHeader{}, format.NewCountError(headerPos, idx,
			"chunk length overflows", math.MaxInt64, h.RawLength)
	}

	if h.ElementCount > 1 && h.RawLength > cr.header.ChunkSizeCeiling {
		return format.ChunkHeader{}, format.NewCountError(headerPos, idx,
			"chunk exceeds size ceiling", cr.header.ChunkSizeCeiling, h.RawLength)
	}
	if cr.end >= 0 && h.ByteLength > uint64(cr.end-cr.pos) {
		return format.ChunkHeader{}, format.NewCountError(headerPos, idx,
			"chunk extends past end of stream", h.ByteLength, uint64(cr.end-cr.pos))
	}
	if cr.header.ElementCount-cr.elementsSeen < uint64(h.ElementCount) {
		return format.ChunkHeader{}, format.NewCountError(headerPos, idx,
			"chunks hold more elements than declared", cr.header.ElementCount, cr.elementsSeen+uint64(h.ElementCount))
	}

	cr.chunksRead++
	cr.elementsSeen += uint64(h.ElementCount)
	cr.cur = h
	cr.curIdx = idx
	cr.curOffset = cr.pos
	cr.inChunk = true
	cr.left = h.ElementCount
	cr.remaining = h.RawLength
	cr.crc = nil
	if cr.opts.VerifyChecksums {
		cr.crc = format.NewChecksumReader(io.LimitReader(cr.r, int64(h.ByteLength)))
	}
	return h, nil
}

// ElementsLeft returns the number of unread elements in the current chunk.
func (cr *Reader) ElementsLeft() uint32 {
	if !cr.inChunk {
		return 0
	}
	return cr.left
}

// ReadElement returns the next element of the current chunk. The returned
// slice is owned by the caller. It returns io.EOF when the chunk is exhausted.
func (cr *Reader) ReadElement() ([]byte, error) {
	n, err := cr.nextElement()
	if err != nil {
		return nil, err
	}

	if err := cr.opts.Budget.AcquireMemory(int64(n)); err != nil {
		return nil, fmt.Errorf("element of %d bytes in chunk %d: %w", n, cr.curIdx, err)
	}
	defer cr.opts.Budget.ReleaseMemory(int64(n))

	var buf []byte
	if cr.raw != nil || cr.end >= 0 || n <= readStep {
		buf = make([]byte, n)
		err = cr.readPayload(buf)
	} else {
		buf, err = cr.readGrowing(n, "read element")
		cr.remaining -= n
	}
	if err != nil {
		return nil, err
	}
	return buf, cr.elementDone()
}

// SkipElement advances over the next element of the current chunk without
// returning it.
func (cr *Reader) SkipElement() error {
	n, err := cr.nextElement()
	if err != nil {
		return err
	}
	if err := cr.skipPayload(n); err != nil {
		return err
	}
	return cr.elementDone()
}

// SkipChunk advances over the rest of the current chunk. Payload bytes are
// skipped with Seek when possible and discarded otherwise.
func (cr *Reader) SkipChunk() error {
	if !cr.inChunk {
		return errors.New("no chunk to skip")
	}
	defer cr.releaseChunk()
	cr.inChunk = false

	if cr.raw != nil {
		return nil
	}
	if cr.crc != nil {
		// The checksum needs every byte.
		left := cr.curOffset + int64(cr.cur.ByteLength) - cr.pos
		if _, err := io.CopyN(io.Discard, cr.crc, left); err != nil {
			return cr.payloadError(err)
		}
		cr.pos += left
		return cr.verifyChecksum()
	}

	next := cr.curOffset + int64(cr.cur.ByteLength)
	if err := cr.skipStream(next - cr.pos); err != nil {
		return err
	}
	return nil
}

// nextElement reads the length prefix of the next element.
func (cr *Reader) nextElement() (uint64, error) {
	if !cr.inChunk {
		return 0, errors.New("no current chunk")
	}
	if cr.left == 0 {
		return 0, io.EOF
	}
	if cr.cur.Compression != format.CompressionNone && cr.raw == nil {
		if err := cr.loadCompressed(); err != nil {
			return 0, err
		}
	}
	if cr.remaining < format.ElementPrefixSize {
		return 0, format.NewCountError(cr.errorOffset(), cr.curIdx,
			"chunk payload ended before its declared elements", uint64(cr.cur.ElementCount), uint64(cr.cur.ElementCount-cr.left))
	}

	var prefix [format.ElementPrefixSize]byte
	if err := cr.readPayload(prefix[:]); err != nil {
		return 0, err
	}
	n := format.ElementLen(prefix[:])
	if n > cr.remaining {
		return 0, format.NewCountError(cr.errorOffset(), cr.curIdx,
			"element runs past chunk boundary", cr.remaining, n)
	}
	return n, nil
}

// elementDone closes the chunk after its last element.
func (cr *Reader) elementDone() error {
	cr.left--
	if cr.left > 0 {
		return nil
	}
	if cr.remaining != 0 {
		return format.NewCountError(cr.errorOffset(), cr.curIdx,
			"trailing bytes after last element of chunk", 0, cr.remaining)
	}
	cr.inChunk = false
	defer cr.releaseChunk()
	if cr.raw == nil && cr.crc != nil {
		return cr.verifyChecksum()
	}
	return nil
}

func (cr *Reader) readPayload(p []byte) error {
	var err error
	switch {
	case cr.raw != nil:
		_, err = io.ReadFull(cr.raw, p)
	case cr.crc != nil:
		err = format.ReadFull(cr.crc, p, "read element", cr.pos, cr.curIdx)
		cr.pos += int64(len(p))
	default:
		err = format.ReadFull(cr.r, p, "read element", cr.pos, cr.curIdx)
		cr.pos += int64(len(p))
	}
	if err != nil {
		return err
	}
	cr.remaining -= uint64(len(p))
	return nil
}

// readGrowing reads n bytes from the stream into a buffer that grows with the
// data actually read, so a corrupt length on a stream of unknown size fails
// as truncation instead of allocating n bytes.
func (cr *Reader) readGrowing(n uint64, op string) ([]byte, error) {
	src := cr.r
	if cr.crc != nil {
		src = cr.crc
	}
	var buf bytes.Buffer
	buf.Grow(readStep)
	got, err := io.CopyN(&buf, src, int64(n))
	cr.pos += got
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, format.NewCountError(cr.pos, cr.curIdx, op+": stream truncated", n, uint64(got))
		}
		return nil, &format.StreamError{Op: op, Offset: cr.pos, Err: err}
	}
	return buf.Bytes(), nil
}

func (cr *Reader) skipPayload(n uint64) error {
	switch {
	case cr.raw != nil:
		if _, err := cr.raw.Seek(int64(n), io.SeekCurrent); err != nil {
			return err
		}
	case cr.crc != nil:
		if _, err := io.CopyN(io.Discard, cr.crc, int64(n)); err != nil {
			return cr.payloadError(err)
		}
		cr.pos += int64(n)
	default:
		if err := cr.skipStream(int64(n)); err != nil {
			return err
		}
	}
	cr.remaining -= n
	return nil
}

// skipStream advances the underlying stream by n bytes.
func (cr *Reader) skipStream(n int64) error {
	if n == 0 {
		return nil
	}
	if cr.seeker != nil {
		if _, err := cr.seeker.Seek(cr.pos+n, io.SeekStart); err != nil {
			return &format.StreamError{Op: "seek", Offset: cr.pos, Err: err}
		}
		cr.pos += n
		return nil
	}
	copied, err := io.CopyN(io.Discard, cr.r, n)
	cr.pos += copied
	if err != nil {
		return cr.payloadError(err)
	}
	return nil
}

// loadCompressed reads and decompresses the whole current payload.
func (cr *Reader) loadCompressed() error {
	need := int64(cr.cur.ByteLength + cr.cur.RawLength)
	if err := cr.opts.Budget.AcquireMemory(need); err != nil {
		return fmt.Errorf("load chunk %d (%d bytes): %w", cr.curIdx, need, err)
	}
	cr.reserved = need

	raw, err := cr.readCompressed()
	if err != nil {
		cr.releaseChunk()
		return err
	}
	cr.raw = bytes.NewReader(raw)
	return nil
}

func (cr *Reader) readCompressed() ([]byte, error) {
	var stored []byte
	if cr.end >= 0 || cr.cur.ByteLength <= readStep {
		stored = make([]byte, cr.cur.ByteLength)
		if err := format.ReadFull(cr.r, stored, "read chunk payload", cr.pos, cr.curIdx); err != nil {
			return nil, err
		}
		cr.pos += int64(len(stored))
	} else {
		var err error
		if stored, err = cr.readGrowing(cr.cur.ByteLength, "read chunk payload"); err != nil {
			return nil, err
		}
	}

	if cr.opts.VerifyChecksums {
		if sum := format.Checksum(stored); sum != cr.cur.Checksum {
			return nil, cr.checksumError(sum)
		}
	}

	raw, err := decompressPayload(stored, cr.cur)
	if err != nil {
		return nil, format.NewCorruptionError(cr.curOffset, cr.curIdx, "cannot decompress chunk payload", err)
	}
	return raw, nil
}

func (cr *Reader) releaseChunk() {
	cr.raw = nil
	if cr.reserved > 0 {
		cr.opts.Budget.ReleaseMemory(cr.reserved)
		cr.reserved = 0
	}
}

func (cr *Reader) verifyChecksum() error {
	if sum := cr.crc.Sum(); sum != cr.cur.Checksum {
		return cr.checksumError(sum)
	}
	return nil
}

func (cr *Reader) checksumError(actual uint32) error {
	return &format.CorruptionError{
		Offset:   cr.curOffset - format.ChunkHeaderSize,
		Chunk:    cr.curIdx,
		Reason:   "chunk checksum mismatch",
		Expected: uint64(cr.cur.Checksum),
		Actual:   uint64(actual),
	}
}

func (cr *Reader) payloadError(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return format.NewCorruptionError(cr.pos, cr.curIdx, "stream truncated inside chunk payload", err)
	}
	return &format.StreamError{Op: "read chunk payload", Offset: cr.pos, Err: err}
}

// errorOffset reports the stream offset of the current element position.
// Inside a decompressed chunk that is the payload start.
func (cr *Reader) errorOffset() int64 {
	if cr.raw != nil {
		return cr.curOffset
	}
	return cr.pos
}

// ChunkOffset returns the position of the current chunk header relative to
// the list start.
func (cr *Reader) ChunkOffset() int64 {
	return cr.curOffset - format.ChunkHeaderSize - cr.start
}
