package largelist

import (
	"context"
	"errors"
	"io"
	"iter"
	"slices"
	"time"

	"github.com/systemsomicslab/largelist/chunk"
	"github.com/systemsomicslab/largelist/codec"
	"github.com/systemsomicslab/largelist/format"
	"github.com/systemsomicslab/largelist/index"
)

// maxPrealloc caps the capacity Deserialize reserves from the declared
// element count, which is not trusted before the chunks are read.
const maxPrealloc = 1 << 20

// Serialize writes elements to w as a chunked list and returns its index.
//
// Elements are encoded one at a time; at most one chunk is held in memory.
// The output is deterministic for a deterministic codec. With HeaderTwoPass
// (the automatic choice for sinks that cannot seek) elements is iterated
// twice.
func Serialize[T any](w io.Writer, elements iter.Seq[T], opts ...Option) (*index.Index, error) {
	o := applyOptions(opts)
	return serialize(context.Background(), w, elements, &o)
}

// SerializeSlice is Serialize over the elements of s.
func SerializeSlice[T any](w io.Writer, s []T, opts ...Option) (*index.Index, error) {
	return Serialize(w, slices.Values(s), opts...)
}

func serialize[T any](ctx context.Context, w io.Writer, elements iter.Seq[T], o *options) (*index.Index, error) {
	start := time.Now()
	strategy := o.header
	if strategy == HeaderAuto {
		strategy = HeaderTwoPass
		if canSeek(w) {
			strategy = HeaderSeekBack
		}
	}

	copts := chunk.Options{
		ChunkSizeCeiling: o.ceiling,
		Compression:      o.compression,
		Codec:            o.codec.Name(),
		Header:           chunk.HeaderSeekBack,
		OnChunk: func(ci chunk.ChunkInfo) {
			o.metricsCollector.RecordChunk(ci.Header.ElementCount, ci.Header.ByteLength, ci.Header.RawLength)
			o.logger.LogChunk(ctx, ci.Index, ci.Header.ElementCount, ci.Header.ByteLength, ci.Header.RawLength)
		},
	}
	if strategy == HeaderTwoPass {
		copts.Header = chunk.HeaderPrecomputed
	}
	builder := index.NewBuilder(o.elementIndex)
	builder.Attach(&copts)

	var (
		x       *index.Index
		written int64
	)
	err := func() error {
		cw, err := chunk.NewWriter(w, copts)
		if err != nil {
			return err
		}
		defer func() { written = cw.Written() }()

		if strategy == HeaderTwoPass {
			plan, err := planList(elements, o)
			if err != nil {
				return err
			}
			if err := cw.Plan(plan); err != nil {
				return err
			}
		}

		if err := cw.BeginList(); err != nil {
			return err
		}
		var i int64
		for e := range elements {
			b, err := o.codec.Marshal(e)
			if err != nil {
				return &CodecError{Codec: o.codec.Name(), Op: "marshal", Element: i, Err: err}
			}
			if err := cw.WriteElement(b); err != nil {
				return err
			}
			i++
		}
		h, err := cw.EndList()
		if err != nil {
			return err
		}
		x, err = builder.Finish(h)
		return err
	}()

	var count, chunks uint64
	if x != nil {
		count, chunks = x.Header.ElementCount, x.Header.ChunkCount
	}
	o.metricsCollector.RecordSerialize(count, chunks, written, time.Since(start), err)
	o.logger.LogSerialize(ctx, count, chunks, written, strategy, err)
	if err != nil {
		return nil, err
	}
	return x, nil
}

// planList runs the counting pass of HeaderTwoPass: every element is encoded
// only to place it, nothing is written.
func planList[T any](elements iter.Seq[T], o *options) (chunk.Plan, error) {
	p := chunk.NewPlanner(o.ceiling)
	var i int64
	for e := range elements {
		b, err := o.codec.Marshal(e)
		if err != nil {
			return chunk.Plan{}, &CodecError{Codec: o.codec.Name(), Op: "marshal", Element: i, Err: err}
		}
		p.Add(len(b))
		i++
	}
	return p.Finish(), nil
}

// canSeek reports whether w is an io.WriteSeeker whose Seek works.
// Pipes and sockets wrapped in *os.File fail here.
func canSeek(w io.Writer) bool {
	ws, ok := w.(io.WriteSeeker)
	if !ok {
		return false
	}
	_, err := ws.Seek(0, io.SeekCurrent)
	return err == nil
}

// Deserialize reads a whole list from r.
func Deserialize[T any](r io.Reader, opts ...Option) ([]T, error) {
	o := applyOptions(opts)
	return deserialize[T](context.Background(), r, &o)
}

func deserialize[T any](ctx context.Context, r io.Reader, o *options) ([]T, error) {
	start := time.Now()
	var out []T
	n, err := decodeAll(r, o, func(h *format.GlobalHeader) {
		out = make([]T, 0, min(h.ElementCount, maxPrealloc))
	}, func(v T) bool {
		out = append(out, v)
		return true
	})
	o.metricsCollector.RecordDeserialize(n, time.Since(start), err)
	o.logger.LogDeserialize(ctx, n, err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// All returns an iterator over the elements of the list in r. Elements are
// decoded as the iteration proceeds; a failure is yielded once with the zero
// value and ends the iteration.
func All[T any](r io.Reader, opts ...Option) iter.Seq2[T, error] {
	o := applyOptions(opts)
	return func(yield func(T, error) bool) {
		start := time.Now()
		n, err := decodeAll(r, &o, nil, func(v T) bool {
			return yield(v, nil)
		})
		o.metricsCollector.RecordDeserialize(n, time.Since(start), err)
		o.logger.LogDeserialize(context.Background(), n, err)
		if err != nil {
			var zero T
			yield(zero, err)
		}
	}
}

// decodeAll decodes the list in r in order and passes every element to fn
// until fn returns false. It returns the number of elements decoded.
func decodeAll[T any](r io.Reader, o *options, onHeader func(*format.GlobalHeader), fn func(T) bool) (uint64, error) {
	cr := chunk.NewReader(r, chunk.ReaderOptions{
		VerifyChecksums: o.verifyChecksums,
		Budget:          o.budget(),
		Size:            o.size,
	})
	h, err := cr.ReadGlobalHeader()
	if err != nil {
		return 0, err
	}
	c, err := resolveCodec(h, o)
	if err != nil {
		return 0, err
	}
	if onHeader != nil {
		onHeader(h)
	}

	var n uint64
	for {
		ch, err := cr.ReadChunkHeader()
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		for range ch.ElementCount {
			b, err := cr.ReadElement()
			if err != nil {
				return n, err
			}
			v, err := decode[T](c, b, int64(n))
			if err != nil {
				return n, err
			}
			n++
			if !fn(v) {
				return n, nil
			}
		}
	}
}

// DeserializeAt decodes the single element at position i of the list in r
// without decoding any other element.
//
// A negative i is rejected before r is read. When r is an io.ReadSeeker the
// reader seeks over every chunk before the target and, if i is not below the
// element count, r is restored to its starting position. Other readers
// degrade to a skip scan: preceding chunks are discarded by byte count and
// preceding elements of the target chunk by their length prefix. On such a
// reader the global header has been consumed when the count check fails.
func DeserializeAt[T any](r io.Reader, i int64, opts ...Option) (T, error) {
	o := applyOptions(opts)
	return deserializeAt[T](context.Background(), r, i, &o)
}

func deserializeAt[T any](ctx context.Context, r io.Reader, i int64, o *options) (T, error) {
	start := time.Now()
	var seekable bool
	v, err := func() (T, error) {
		var zero T
		if i < 0 {
			return zero, &IndexOutOfRangeError{Index: i}
		}

		cr := chunk.NewReader(r, chunk.ReaderOptions{Budget: o.budget()})
		seekable = cr.Seekable()
		h, err := cr.ReadGlobalHeader()
		if err != nil {
			return zero, err
		}
		if uint64(i) >= h.ElementCount {
			oor := &IndexOutOfRangeError{Index: i, Count: h.ElementCount}
			if seekable {
				if _, err := r.(io.Seeker).Seek(cr.Start(), io.SeekStart); err != nil {
					return zero, errors.Join(oor, &StreamError{Op: "restore position", Offset: cr.Start(), Err: err})
				}
			}
			return zero, oor
		}
		c, err := resolveCodec(h, o)
		if err != nil {
			return zero, err
		}

		var first uint64
		for {
			ch, err := cr.ReadChunkHeader()
			if err != nil {
				if errors.Is(err, io.EOF) {
					err = format.NewCountError(0, -1, "chunks end before declared element count", h.ElementCount, first)
				}
				return zero, err
			}
			if first+uint64(ch.ElementCount) <= uint64(i) {
				first += uint64(ch.ElementCount)
				if err := cr.SkipChunk(); err != nil {
					return zero, err
				}
				continue
			}
			return readWithin[T](cr, c, uint64(i)-first, i)
		}
	}()

	o.metricsCollector.RecordDeserializeAt(time.Since(start), err)
	o.logger.LogDeserializeAt(ctx, i, seekable, err)
	return v, err
}

// readWithin skips within elements of the current chunk and decodes the next one.
func readWithin[T any](cr *chunk.Reader, c codec.Codec, within uint64, i int64) (T, error) {
	var zero T
	for range within {
		if err := cr.SkipElement(); err != nil {
			return zero, err
		}
	}
	b, err := cr.ReadElement()
	if err != nil {
		return zero, err
	}
	return decode[T](c, b, i)
}

// DeserializeAtIndex decodes element i using a retained index, as returned by
// Serialize or ReadIndex. r must address the list from offset 0; wrap it in
// an io.SectionReader for a list embedded in a larger stream.
//
// When the index records element locations and the chunk is stored
// uncompressed, the element is read with a single ReadAt.
func DeserializeAtIndex[T any](r io.ReaderAt, x *index.Index, i int64, opts ...Option) (T, error) {
	o := applyOptions(opts)
	start := time.Now()
	v, err := deserializeAtIndex[T](r, x, i, &o)
	o.metricsCollector.RecordDeserializeAt(time.Since(start), err)
	o.logger.LogDeserializeAt(context.Background(), i, true, err)
	return v, err
}

func deserializeAtIndex[T any](r io.ReaderAt, x *index.Index, i int64, o *options) (T, error) {
	var zero T
	k, within, err := x.Locate(i)
	if err != nil {
		return zero, err
	}
	c, err := resolveCodec(&x.Header, o)
	if err != nil {
		return zero, err
	}
	entry := x.Chunks[k]

	if loc, ok := x.Element(i); ok && entry.Header.Compression == format.CompressionNone {
		b, err := readLocated(r, entry, loc, o)
		if err != nil {
			return zero, err
		}
		return decode[T](c, b, i)
	}

	sr := io.NewSectionReader(r, entry.Offset, entry.End()-entry.Offset)
	cr := chunk.NewReader(sr, chunk.ReaderOptions{Budget: o.budget()})
	cr.ResumeAt(&x.Header, uint64(k), entry.FirstElement, 0)
	if _, err := cr.ReadChunkHeader(); err != nil {
		return zero, err
	}
	return readWithin[T](cr, c, uint64(within), i)
}

// readLocated reads one framed element at its recorded location and checks
// the stored length prefix against the index.
func readLocated(r io.ReaderAt, entry index.ChunkEntry, loc index.ElementLoc, o *options) ([]byte, error) {
	framed := int64(format.FramedLen(0) + loc.Length)
	budget := o.budget()
	if err := budget.AcquireMemory(framed); err != nil {
		return nil, err
	}
	defer budget.ReleaseMemory(framed)

	off := entry.PayloadOffset() + int64(loc.Offset)
	buf := make([]byte, framed)
	if _, err := r.ReadAt(buf, off); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, format.NewCorruptionError(off, int64(loc.Chunk), "stream truncated inside element", err)
		}
		return nil, &StreamError{Op: "read element", Offset: off, Err: err}
	}
	if n := format.ElementLen(buf); n != loc.Length {
		return nil, format.NewCountError(off, int64(loc.Chunk), "element length differs from index", loc.Length, n)
	}
	return buf[format.ElementPrefixSize:], nil
}

// ReadIndex reconstructs the index of the list at the current position of r
// from its headers alone. On return r is positioned at the end of the list.
func ReadIndex(r io.ReadSeeker, opts ...Option) (*index.Index, error) {
	o := applyOptions(opts)
	x, err := index.Scan(r)
	var chunks int
	if x != nil {
		chunks = len(x.Chunks)
	}
	o.logger.LogScan(context.Background(), chunks, err)
	return x, err
}

// Count returns the number of elements of the list in r by reading its
// global header. An io.ReadSeeker is restored to its starting position.
func Count(r io.Reader) (uint64, error) {
	cr := chunk.NewReader(r, chunk.ReaderOptions{})
	h, err := cr.ReadGlobalHeader()
	if err != nil {
		return 0, err
	}
	if cr.Seekable() {
		if _, err := r.(io.Seeker).Seek(cr.Start(), io.SeekStart); err != nil {
			return 0, &StreamError{Op: "restore position", Offset: cr.Start(), Err: err}
		}
	}
	return h.ElementCount, nil
}

// resolveCodec picks the codec for a stored list.
func resolveCodec(h *format.GlobalHeader, o *options) (codec.Codec, error) {
	if o.codecSet {
		if h.Codec != "" && h.Codec != o.codec.Name() {
			return nil, &CodecMismatchError{Stored: h.Codec, Requested: o.codec.Name()}
		}
		return o.codec, nil
	}
	if h.Codec == "" {
		return codec.Default, nil
	}
	c, ok := codec.ByName(h.Codec)
	if !ok {
		return nil, &CodecMismatchError{Stored: h.Codec}
	}
	return c, nil
}

func decode[T any](c codec.Codec, b []byte, i int64) (T, error) {
	var v T
	if err := c.Unmarshal(b, &v); err != nil {
		var zero T
		return zero, &CodecError{Codec: c.Name(), Op: "unmarshal", Element: i, Err: err}
	}
	return v, nil
}
