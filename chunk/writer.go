package chunk

import (
	"errors"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/systemsomicslab/largelist/format"
)

var (
	// ErrWriterState is returned when a Writer method is called out of order.
	ErrWriterState = errors.New("chunk writer used in wrong state")

	// ErrPlanMismatch is returned by EndList when the elements written do not
	// match the counts announced with Plan.
	ErrPlanMismatch = errors.New("written elements do not match plan")
)

// State is the lifecycle state of a Writer.
type State int

const (
	StateIdle State = iota
	StateCollecting
	StateFlushing
	StateFinalizing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCollecting:
		return "collecting"
	case StateFlushing:
		return "flushing"
	case StateFinalizing:
		return "finalizing"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}

// Writer partitions a sequence of encoded elements into chunks.
//
// A Writer holds at most one chunk in memory. It is not safe for concurrent use.
type Writer struct {
	cw   *countingWriter
	opts Options

	state State
	err   error

	planner *Planner
	plan    *Plan

	// headerPos is the absolute sink position of the global header.
	headerPos int64
	header    format.GlobalHeader

	// buf holds ChunkHeaderSize reserved bytes followed by the open chunk's raw payload.
	buf      []byte
	bufCount uint32
	chunks   uint64
}

// NewWriter creates a writer on w.
func NewWriter(w io.Writer, opts Options) (*Writer, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &Writer{
		cw:      &countingWriter{w: w},
		opts:    opts,
		planner: NewPlanner(opts.ChunkSizeCeiling),
		buf:     make([]byte, format.ChunkHeaderSize, format.ChunkHeaderSize+4096),
	}, nil
}

// State returns the current lifecycle state.
func (w *Writer) State() State { return w.state }

// Written returns the number of bytes written so far.
func (w *Writer) Written() int64 { return w.cw.n }

// Plan announces the final counts. It must be called before BeginList when
// the writer uses HeaderPrecomputed.
func (w *Writer) Plan(p Plan) error {
	if w.state != StateIdle {
		return w.stateError("Plan")
	}
	if w.opts.Header != HeaderPrecomputed {
		return fmt.Errorf("%w: Plan requires the precomputed header strategy", ErrWriterState)
	}
	w.plan = &p
	return nil
}

// BeginList writes the global header (or its placeholder).
func (w *Writer) BeginList() error {
	if w.state != StateIdle {
		return w.stateError("BeginList")
	}

	w.header = format.GlobalHeader{
		ChunkSizeCeiling: w.opts.ChunkSizeCeiling,
		Compression:      w.opts.Compression,
		Codec:            w.opts.Codec,
	}

	switch w.opts.Header {
	case HeaderSeekBack:
		ws, ok := w.cw.w.(io.WriteSeeker)
		if !ok {
			return w.fail(&format.StreamError{Op: "begin list", Offset: 0, Err: format.ErrNotSeekable})
		}
		pos, err := ws.Seek(0, io.SeekCurrent)
		if err != nil {
			return w.fail(&format.StreamError{Op: "begin list", Offset: 0, Err: fmt.Errorf("%w: %w", format.ErrNotSeekable, err)})
		}
		w.headerPos = pos
	case HeaderPrecomputed:
		if w.plan == nil {
			return fmt.Errorf("%w: precomputed header strategy requires Plan before BeginList", ErrWriterState)
		}
		w.header.ElementCount = w.plan.ElementCount
		w.header.ChunkCount = w.plan.ChunkCount
	}

	b, err := w.header.MarshalBinary()
	if err != nil {
		return w.fail(err)
	}
	if _, err := w.cw.Write(b); err != nil {
		return w.fail(&format.StreamError{Op: "write global header", Offset: w.cw.n, Err: err})
	}

	w.state = StateCollecting
	return nil
}

// WriteElement appends one encoded element. The slice is not retained after
// the call returns.
func (w *Writer) WriteElement(encoded []byte) error {
	if w.state != StateCollecting {
		return w.stateError("WriteElement")
	}

	flush, singleton := w.planner.Add(len(encoded))
	if flush {
		if err := w.flush(); err != nil {
			return err
		}
	}
	if singleton {
		return w.writeSingleton(encoded)
	}

	offset := uint64(len(w.buf) - format.ChunkHeaderSize)
	var prefix [format.ElementPrefixSize]byte
	format.PutElementPrefix(prefix[:], uint64(len(encoded)))
	w.buf = append(w.buf, prefix[:]...)
	w.buf = append(w.buf, encoded...)
	w.bufCount++

	if w.opts.OnElement != nil {
		w.opts.OnElement(w.chunks, offset, uint64(len(encoded)))
	}
	return nil
}

// EndList flushes the open chunk and finalizes the global header. It returns
// the header as written.
func (w *Writer) EndList() (*format.GlobalHeader, error) {
	if w.state != StateCollecting {
		return nil, w.stateError("EndList")
	}
	if w.bufCount > 0 {
		if err := w.flush(); err != nil {
			return nil, err
		}
	}

	w.state = StateFinalizing
	totals := w.planner.Finish()

	switch w.opts.Header {
	case HeaderPrecomputed:
		if totals != *w.plan {
			return nil, w.fail(fmt.Errorf("%w: planned %d elements in %d chunks, wrote %d in %d",
				ErrPlanMismatch, w.plan.ElementCount, w.plan.ChunkCount, totals.ElementCount, totals.ChunkCount))
		}
	case HeaderSeekBack:
		w.header.ElementCount = totals.ElementCount
		w.header.ChunkCount = totals.ChunkCount
		if err := w.patchHeader(); err != nil {
			return nil, w.fail(err)
		}
	}

	w.state = StateClosed
	h := w.header
	return &h, nil
}

func (w *Writer) patchHeader() error {
	ws := w.cw.w.(io.WriteSeeker)
	end := w.headerPos + w.cw.n

	b, err := w.header.MarshalBinary()
	if err != nil {
		return err
	}
	if _, err := ws.Seek(w.headerPos, io.SeekStart); err != nil {
		return &format.StreamError{Op: "seek to global header", Offset: 0, Err: err}
	}
	if _, err := ws.Write(b); err != nil {
		return &format.StreamError{Op: "rewrite global header", Offset: 0, Err: err}
	}
	if _, err := ws.Seek(end, io.SeekStart); err != nil {
		return &format.StreamError{Op: "seek to list end", Offset: w.cw.n, Err: err}
	}
	return nil
}

// flush writes the buffered chunk with a single Write when it is stored raw.
func (w *Writer) flush() error {
	w.state = StateFlushing

	raw := w.buf[format.ChunkHeaderSize:]
	stored, c, err := compressPayload(raw, w.opts.Compression)
	if err != nil {
		return w.fail(fmt.Errorf("compress chunk %d: %w", w.chunks, err))
	}

	h := format.ChunkHeader{
		ElementCount: w.bufCount,
		Compression:  c,
		ByteLength:   uint64(len(stored)),
		RawLength:    uint64(len(raw)),
		Checksum:     format.Checksum(stored),
	}

	offset := w.cw.n
	if c == format.CompressionNone {
		h.Put(w.buf[:format.ChunkHeaderSize])
		if _, err := w.cw.Write(w.buf); err != nil {
			return w.fail(&format.StreamError{Op: "write chunk", Offset: w.cw.n, Err: err})
		}
	} else {
		var hb [format.ChunkHeaderSize]byte
		h.Put(hb[:])
		if _, err := w.cw.Write(hb[:]); err != nil {
			return w.fail(&format.StreamError{Op: "write chunk header", Offset: w.cw.n, Err: err})
		}
		if _, err := w.cw.Write(stored); err != nil {
			return w.fail(&format.StreamError{Op: "write chunk payload", Offset: w.cw.n, Err: err})
		}
	}

	w.chunkWritten(offset, h)
	w.buf = w.buf[:format.ChunkHeaderSize]
	w.bufCount = 0
	w.state = StateCollecting
	return nil
}

// writeSingleton writes an element that exceeds the ceiling as its own chunk.
// Uncompressed, the element goes to the sink straight from the caller's slice.
func (w *Writer) writeSingleton(encoded []byte) error {
	w.state = StateFlushing

	if w.opts.OnElement != nil {
		w.opts.OnElement(w.chunks, 0, uint64(len(encoded)))
	}

	var head [format.ChunkHeaderSize + format.ElementPrefixSize]byte
	prefix := head[format.ChunkHeaderSize:]
	format.PutElementPrefix(prefix, uint64(len(encoded)))
	rawLen := format.FramedLen(len(encoded))

	if w.opts.Compression != format.CompressionNone {
		raw := make([]byte, 0, rawLen)
		raw = append(raw, prefix...)
		raw = append(raw, encoded...)
		stored, c, err := compressPayload(raw, w.opts.Compression)
		if err != nil {
			return w.fail(fmt.Errorf("compress chunk %d: %w", w.chunks, err))
		}
		if c != format.CompressionNone {
			h := format.ChunkHeader{
				ElementCount: 1,
				Compression:  c,
				ByteLength:   uint64(len(stored)),
				RawLength:    rawLen,
				Checksum:     format.Checksum(stored),
			}
			offset := w.cw.n
			h.Put(head[:format.ChunkHeaderSize])
			if _, err := w.cw.Write(head[:format.ChunkHeaderSize]); err != nil {
				return w.fail(&format.StreamError{Op: "write chunk header", Offset: w.cw.n, Err: err})
			}
			if _, err := w.cw.Write(stored); err != nil {
				return w.fail(&format.StreamError{Op: "write chunk payload", Offset: w.cw.n, Err: err})
			}
			w.chunkWritten(offset, h)
			w.state = StateCollecting
			return nil
		}
	}

	sum := crc32.Update(format.Checksum(prefix), format.CRC32Table, encoded)
	h := format.ChunkHeader{
		ElementCount: 1,
		Compression:  format.CompressionNone,
		ByteLength:   rawLen,
		RawLength:    rawLen,
		Checksum:     sum,
	}
	h.Put(head[:format.ChunkHeaderSize])

	offset := w.cw.n
	if _, err := w.cw.Write(head[:]); err != nil {
		return w.fail(&format.StreamError{Op: "write chunk header", Offset: w.cw.n, Err: err})
	}
	if _, err := w.cw.Write(encoded); err != nil {
		return w.fail(&format.StreamError{Op: "write element", Offset: w.cw.n, Err: err})
	}

	w.chunkWritten(offset, h)
	w.state = StateCollecting
	return nil
}

func (w *Writer) chunkWritten(offset int64, h format.ChunkHeader) {
	if w.opts.OnChunk != nil {
		w.opts.OnChunk(ChunkInfo{Index: w.chunks, Offset: offset, Header: h})
	}
	w.chunks++
}

// fail records err and moves the writer to StateClosed.
func (w *Writer) fail(err error) error {
	w.err = err
	w.state = StateClosed
	return err
}

func (w *Writer) stateError(op string) error {
	if w.err != nil {
		return fmt.Errorf("%w: %s after failure: %w", ErrWriterState, op, w.err)
	}
	return fmt.Errorf("%w: %s in state %s", ErrWriterState, op, w.state)
}
