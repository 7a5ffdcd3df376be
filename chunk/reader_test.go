package chunk

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systemsomicslab/largelist/format"
	"github.com/systemsomicslab/largelist/internal/resource"
	"github.com/systemsomicslab/largelist/testutil"
)

func readAll(t *testing.T, cr *Reader) ([][]byte, error) {
	t.Helper()

	if _, err := cr.ReadGlobalHeader(); err != nil {
		return nil, err
	}
	var out [][]byte
	for {
		h, err := cr.ReadChunkHeader()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		for range h.ElementCount {
			e, err := cr.ReadElement()
			if err != nil {
				return out, err
			}
			out = append(out, e)
		}
	}
}

func TestReaderRoundTrip(t *testing.T) {
	elems := testutil.NewRNG(10).VariableBlobs(60, 0, 90)

	for _, c := range []format.Compression{format.CompressionNone, format.CompressionLZ4, format.CompressionZSTD} {
		opts := testOptions(300)
		opts.Compression = c
		data, _ := writeList(t, opts, elems)

		t.Run(c.String()+"/seekable", func(t *testing.T) {
			cr := NewReader(bytes.NewReader(data), ReaderOptions{VerifyChecksums: true})
			assert.True(t, cr.Seekable())
			got, err := readAll(t, cr)
			require.NoError(t, err)
			assert.Equal(t, normalize(elems), normalize(got))
		})

		t.Run(c.String()+"/stream", func(t *testing.T) {
			cr := NewReader(testutil.NonSeekable(bytes.NewReader(data)), ReaderOptions{VerifyChecksums: true})
			assert.False(t, cr.Seekable())
			got, err := readAll(t, cr)
			require.NoError(t, err)
			assert.Equal(t, normalize(elems), normalize(got))
		})
	}
}

// normalize maps empty slices to nil so comparisons ignore the difference.
func normalize(in [][]byte) [][]byte {
	out := make([][]byte, len(in))
	for i, b := range in {
		if len(b) > 0 {
			out[i] = b
		}
	}
	return out
}

func TestReaderEmptyList(t *testing.T) {
	data, chunks := writeList(t, testOptions(64), nil)
	assert.Empty(t, chunks)

	cr := NewReader(bytes.NewReader(data), ReaderOptions{})
	h, err := cr.ReadGlobalHeader()
	require.NoError(t, err)
	assert.Zero(t, h.ElementCount)
	assert.Zero(t, h.ChunkCount)

	_, err = cr.ReadChunkHeader()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReaderNoReadAhead(t *testing.T) {
	elems := testutil.NewRNG(11).Blobs(5, 30)
	data, _ := writeList(t, testOptions(1024), elems)

	counter := &testutil.CountingReader{R: bytes.NewReader(data)}
	cr := NewReader(counter, ReaderOptions{})
	h, err := cr.ReadGlobalHeader()
	require.NoError(t, err)
	_, err = cr.ReadChunkHeader()
	require.NoError(t, err)

	before := counter.N
	assert.Equal(t, h.Size()+format.ChunkHeaderSize, before)

	_, err = cr.ReadElement()
	require.NoError(t, err)
	assert.Equal(t, before+int64(format.FramedLen(30)), counter.N)
}

func TestReaderSkipping(t *testing.T) {
	elems := testutil.NewRNG(12).Blobs(28, 40)
	data, chunks := writeList(t, testOptions(200), elems)
	require.Len(t, chunks, 7) // 4 elements of 48 bytes per chunk

	for _, src := range []struct {
		name string
		r    func() io.Reader
	}{
		{"seekable", func() io.Reader { return bytes.NewReader(data) }},
		{"stream", func() io.Reader { return testutil.NonSeekable(bytes.NewReader(data)) }},
	} {
		t.Run(src.name, func(t *testing.T) {
			cr := NewReader(src.r(), ReaderOptions{})
			_, err := cr.ReadGlobalHeader()
			require.NoError(t, err)

			// Skip chunk 0 and 1 entirely.
			for range 2 {
				_, err := cr.ReadChunkHeader()
				require.NoError(t, err)
				require.NoError(t, cr.SkipChunk())
			}

			// Element 9 is the second element of chunk 2.
			_, err = cr.ReadChunkHeader()
			require.NoError(t, err)
			require.NoError(t, cr.SkipElement())
			assert.Equal(t, uint32(3), cr.ElementsLeft())
			got, err := cr.ReadElement()
			require.NoError(t, err)
			assert.Equal(t, elems[9], got)

			// Leaving a chunk unfinished skips the rest of it.
			_, err = cr.ReadChunkHeader()
			require.NoError(t, err)
			got, err = cr.ReadElement()
			require.NoError(t, err)
			assert.Equal(t, elems[12], got)
		})
	}
}

func TestReaderReadElementPastChunk(t *testing.T) {
	data, _ := writeList(t, testOptions(1024), [][]byte{[]byte("one")})

	cr := NewReader(bytes.NewReader(data), ReaderOptions{})
	_, err := cr.ReadGlobalHeader()
	require.NoError(t, err)
	_, err = cr.ReadChunkHeader()
	require.NoError(t, err)
	_, err = cr.ReadElement()
	require.NoError(t, err)

	_, err = cr.ReadElement()
	assert.Error(t, err)
}

func TestReaderTruncation(t *testing.T) {
	elems := testutil.NewRNG(13).Blobs(20, 50)
	data, _ := writeList(t, testOptions(300), elems)

	for _, cut := range []int{len(data) - 1, len(data) - 60, 60, 20} {
		truncated := data[:cut]

		cr := NewReader(bytes.NewReader(truncated), ReaderOptions{})
		_, err := readAll(t, cr)
		assert.ErrorIs(t, err, format.ErrCorrupt, "seekable cut %d", cut)

		cr = NewReader(testutil.NonSeekable(bytes.NewReader(truncated)), ReaderOptions{})
		_, err = readAll(t, cr)
		assert.ErrorIs(t, err, format.ErrCorrupt, "stream cut %d", cut)
	}
}

func TestReaderTruncationDetectedEagerly(t *testing.T) {
	elems := testutil.NewRNG(14).Blobs(4, 50)
	data, _ := writeList(t, testOptions(1024), elems)

	cr := NewReader(bytes.NewReader(data[:len(data)-10]), ReaderOptions{})
	_, err := cr.ReadGlobalHeader()
	require.NoError(t, err)

	_, err = cr.ReadChunkHeader()
	var ce *format.CorruptionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, int64(0), ce.Chunk)
	assert.Contains(t, ce.Error(), "past end of stream")
}

// rewriteChunkHeader applies fn to the chunk header at off.
func rewriteChunkHeader(data []byte, off int64, fn func(*format.ChunkHeader)) {
	h := format.ParseChunkHeader(data[off:])
	fn(&h)
	h.Put(data[off:])
}

func TestReaderCorruptLengths(t *testing.T) {
	compressible := [][]byte{}
	for range 10 {
		compressible = append(compressible, bytes.Repeat([]byte("a"), 100))
	}

	tests := []struct {
		name        string
		compression format.Compression
		ceiling     uint64
		elems       [][]byte
		corrupt     func(data []byte, ci ChunkInfo)
	}{
		{
			name:    "inflated byte length",
			ceiling: 1 << 30,
			elems:   [][]byte{[]byte("abc"), []byte("defg")},
			corrupt: func(data []byte, ci ChunkInfo) {
				rewriteChunkHeader(data, ci.Offset, func(h *format.ChunkHeader) {
					h.ByteLength, h.RawLength = 1<<29, 1<<29
				})
				format.PutElementPrefix(data[ci.Offset+format.ChunkHeaderSize:], 1<<28)
			},
		},
		{
			name:    "singleton past end",
			ceiling: 64,
			elems:   [][]byte{bytes.Repeat([]byte("x"), 100)},
			corrupt: func(data []byte, ci ChunkInfo) {
				rewriteChunkHeader(data, ci.Offset, func(h *format.ChunkHeader) {
					h.ByteLength, h.RawLength = 1<<60, 1<<60
				})
				format.PutElementPrefix(data[ci.Offset+format.ChunkHeaderSize:], 1<<59)
			},
		},
		{
			name:    "over ceiling",
			ceiling: 2048,
			elems:   compressible,
			corrupt: func(data []byte, ci ChunkInfo) {
				rewriteChunkHeader(data, ci.Offset, func(h *format.ChunkHeader) {
					h.ByteLength, h.RawLength = 1<<50, 1<<50
				})
			},
		},
		{
			name:        "lz4 raw length",
			compression: format.CompressionLZ4,
			ceiling:     2048,
			elems:       compressible,
			corrupt: func(data []byte, ci ChunkInfo) {
				rewriteChunkHeader(data, ci.Offset, func(h *format.ChunkHeader) { h.RawLength = 1 << 60 })
			},
		},
		{
			name:        "zstd raw length",
			compression: format.CompressionZSTD,
			ceiling:     1024,
			elems:       [][]byte{make([]byte, 4096)},
			corrupt: func(data []byte, ci ChunkInfo) {
				rewriteChunkHeader(data, ci.Offset, func(h *format.ChunkHeader) { h.RawLength = h.ByteLength << 15 })
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := testOptions(tt.ceiling)
			opts.Compression = tt.compression
			data, chunks := writeList(t, opts, tt.elems)
			require.Len(t, chunks, 1)
			require.Equal(t, tt.compression, chunks[0].Header.Compression)
			tt.corrupt(data, chunks[0])

			sources := map[string]func() io.Reader{
				"seekable": func() io.Reader { return bytes.NewReader(data) },
				"stream":   func() io.Reader { return testutil.NonSeekable(bytes.NewReader(data)) },
			}
			for name, src := range sources {
				var err error
				require.NotPanics(t, func() {
					_, err = readAll(t, NewReader(src(), ReaderOptions{VerifyChecksums: true}))
				}, name)
				assert.True(t, format.IsCorruption(err), "%s: got %v", name, err)
			}
		})
	}
}

func TestReaderSizeHint(t *testing.T) {
	data, chunks := writeList(t, testOptions(64), [][]byte{bytes.Repeat([]byte("x"), 100)})
	rewriteChunkHeader(data, chunks[0].Offset, func(h *format.ChunkHeader) {
		h.ByteLength, h.RawLength = 1<<50, 1<<50
	})

	cr := NewReader(testutil.NonSeekable(bytes.NewReader(data)), ReaderOptions{Size: int64(len(data))})
	_, err := cr.ReadGlobalHeader()
	require.NoError(t, err)
	_, err = cr.ReadChunkHeader()
	var ce *format.CorruptionError
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, ce.Error(), "past end of stream")
}

func TestReaderElementPastBoundary(t *testing.T) {
	data, _ := writeList(t, testOptions(1024), [][]byte{[]byte("abc"), []byte("defg")})
	payload := format.GlobalHeaderSize + len("bytes") + format.ChunkHeaderSize

	bad := bytes.Clone(data)
	format.PutElementPrefix(bad[payload:], 1<<40)

	cr := NewReader(bytes.NewReader(bad), ReaderOptions{})
	_, err := readAll(t, cr)
	var ce *format.CorruptionError
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, ce.Reason, "past chunk boundary")
}

func TestReaderTrailingBytes(t *testing.T) {
	data, _ := writeList(t, testOptions(1024), [][]byte{[]byte("abc"), []byte("defg")})
	payload := format.GlobalHeaderSize + len("bytes") + format.ChunkHeaderSize

	// Shrink the second element by one byte; the chunk then has a trailing byte.
	bad := bytes.Clone(data)
	format.PutElementPrefix(bad[payload+11:], 3)

	_, err := readAll(t, NewReader(bytes.NewReader(bad), ReaderOptions{}))
	assert.ErrorIs(t, err, format.ErrCorrupt)
}

func TestReaderChecksum(t *testing.T) {
	elems := testutil.NewRNG(15).Blobs(10, 64)
	data, _ := writeList(t, testOptions(1024), elems)

	bad := bytes.Clone(data)
	bad[len(bad)-1] ^= 0xff

	_, err := readAll(t, NewReader(bytes.NewReader(bad), ReaderOptions{VerifyChecksums: true}))
	var ce *format.CorruptionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "chunk checksum mismatch", ce.Reason)

	// Without verification the flipped byte goes unnoticed.
	got, err := readAll(t, NewReader(bytes.NewReader(bad), ReaderOptions{}))
	require.NoError(t, err)
	assert.NotEqual(t, elems[9], got[9])
}

func TestReaderChecksumCompressed(t *testing.T) {
	elems := make([][]byte, 20)
	for i := range elems {
		elems[i] = bytes.Repeat([]byte{byte(i)}, 100)
	}
	opts := testOptions(4096)
	opts.Compression = format.CompressionZSTD
	data, chunks := writeList(t, opts, elems)
	require.Equal(t, format.CompressionZSTD, chunks[0].Header.Compression)

	bad := bytes.Clone(data)
	bad[len(bad)-2] ^= 0x01

	_, err := readAll(t, NewReader(bytes.NewReader(bad), ReaderOptions{VerifyChecksums: true}))
	assert.ErrorIs(t, err, format.ErrCorrupt)
}

func TestReaderTooManyElements(t *testing.T) {
	data, _ := writeList(t, testOptions(1024), [][]byte{[]byte("a"), []byte("b")})

	// Declare a single element in the global header.
	bad := bytes.Clone(data)
	bad[8] = 1

	_, err := readAll(t, NewReader(bytes.NewReader(bad), ReaderOptions{}))
	assert.ErrorIs(t, err, format.ErrCorrupt)
}

func TestReaderMemoryBudget(t *testing.T) {
	elems := testutil.NewRNG(16).Blobs(2, 80)
	data, _ := writeList(t, testOptions(1024), elems)

	budget := resource.NewController(resource.Config{MemoryLimitBytes: 64})
	_, err := readAll(t, NewReader(bytes.NewReader(data), ReaderOptions{Budget: budget}))
	assert.ErrorIs(t, err, resource.ErrMemoryLimitExceeded)
	assert.Zero(t, budget.MemoryUsage())

	budget = resource.NewController(resource.Config{MemoryLimitBytes: 128})
	got, err := readAll(t, NewReader(bytes.NewReader(data), ReaderOptions{Budget: budget}))
	require.NoError(t, err)
	assert.Equal(t, elems, got)
	assert.Zero(t, budget.MemoryUsage())
}

func TestReaderResumeAt(t *testing.T) {
	elems := testutil.NewRNG(17).Blobs(12, 40)
	data, chunks := writeList(t, testOptions(200), elems)
	require.Len(t, chunks, 3)

	r := bytes.NewReader(data)
	cr := NewReader(r, ReaderOptions{})
	h, err := cr.ReadGlobalHeader()
	require.NoError(t, err)

	_, err = r.Seek(chunks[2].Offset, io.SeekStart)
	require.NoError(t, err)
	cr.ResumeAt(h, 2, 8, chunks[2].Offset)

	_, err = cr.ReadChunkHeader()
	require.NoError(t, err)
	got, err := cr.ReadElement()
	require.NoError(t, err)
	assert.Equal(t, elems[8], got)
}
