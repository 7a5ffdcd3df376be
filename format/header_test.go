package format

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGlobalHeaderRoundTrip(t *testing.T) {
	h := &GlobalHeader{
		ElementCount:     100,
		ChunkCount:       3,
		ChunkSizeCeiling: 1 << 20,
		Compression:      CompressionZSTD,
		Codec:            "go-json",
	}

	b, err := h.MarshalBinary()
	require.NoError(t, err)
	assert.Len(t, b, GlobalHeaderSize+len("go-json"))
	assert.Equal(t, int64(len(b)), h.Size())

	got, err := ReadGlobalHeader(bytes.NewReader(b), 0)
	require.NoError(t, err)
	assert.Equal(t, h, got)
}

func TestGlobalHeaderEmptyList(t *testing.T) {
	h := &GlobalHeader{ChunkSizeCeiling: 64}
	b, err := h.MarshalBinary()
	require.NoError(t, err)

	got, err := ReadGlobalHeader(bytes.NewReader(b), 0)
	require.NoError(t, err)
	assert.Zero(t, got.ElementCount)
	assert.Zero(t, got.ChunkCount)
	assert.Empty(t, got.Codec)
}

func TestGlobalHeaderRejectsBadInput(t *testing.T) {
	valid := &GlobalHeader{ElementCount: 2, ChunkCount: 1, ChunkSizeCeiling: 64, Codec: "json"}
	b, err := valid.MarshalBinary()
	require.NoError(t, err)

	t.Run("magic", func(t *testing.T) {
		bad := bytes.Clone(b)
		bad[0] = 'X'
		_, err := ReadGlobalHeader(bytes.NewReader(bad), 0)
		require.ErrorIs(t, err, ErrCorrupt)
		require.ErrorIs(t, err, ErrInvalidMagic)
	})

	t.Run("version", func(t *testing.T) {
		bad := bytes.Clone(b)
		bad[4] = 9
		_, err := ReadGlobalHeader(bytes.NewReader(bad), 0)
		require.ErrorIs(t, err, ErrUnsupportedVersion)
	})

	t.Run("more chunks than elements", func(t *testing.T) {
		h := *valid
		h.ChunkCount = 3
		bad, err := h.MarshalBinary()
		require.NoError(t, err)
		_, err = ReadGlobalHeader(bytes.NewReader(bad), 0)
		require.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("truncated fixed part", func(t *testing.T) {
		_, err := ReadGlobalHeader(bytes.NewReader(b[:20]), 0)
		var ce *CorruptionError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, int64(20), ce.Offset)
		assert.Equal(t, int64(-1), ce.Chunk)
	})

	t.Run("truncated codec name", func(t *testing.T) {
		_, err := ReadGlobalHeader(bytes.NewReader(b[:GlobalHeaderSize+1]), 0)
		require.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("empty stream", func(t *testing.T) {
		_, err := ReadGlobalHeader(bytes.NewReader(nil), 0)
		require.ErrorIs(t, err, ErrCorrupt)
	})
}

func TestReadFullStreamError(t *testing.T) {
	boom := errors.New("broken pipe")
	err := ReadFull(io.MultiReader(bytes.NewReader([]byte{1, 2}), &failingReader{err: boom}), make([]byte, 8), "read", 100, 3)

	var se *StreamError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, int64(102), se.Offset)
	assert.ErrorIs(t, err, boom)
	assert.False(t, IsCorruption(err))
}

func TestChunkHeaderRoundTrip(t *testing.T) {
	h := ChunkHeader{
		ElementCount: 7,
		Compression:  CompressionLZ4,
		ByteLength:   90,
		RawLength:    120,
		Checksum:     0xdeadbeef,
	}
	var buf [ChunkHeaderSize]byte
	h.Put(buf[:])

	got, err := ReadChunkHeader(bytes.NewReader(buf[:]), 40, 0)
	require.NoError(t, err)
	assert.Equal(t, h, got)
}

func TestChunkHeaderValidate(t *testing.T) {
	tests := []struct {
		name string
		h    ChunkHeader
	}{
		{"no elements", ChunkHeader{ElementCount: 0, ByteLength: 8, RawLength: 8}},
		{"raw mismatch without compression", ChunkHeader{ElementCount: 1, ByteLength: 8, RawLength: 16}},
		{"stored larger than raw", ChunkHeader{ElementCount: 1, Compression: CompressionLZ4, ByteLength: 32, RawLength: 16}},
		{"too many elements", ChunkHeader{ElementCount: 3, ByteLength: 16, RawLength: 16}},
		{"unknown compression", ChunkHeader{ElementCount: 1, Compression: 7, ByteLength: 8, RawLength: 8}},
		{"lz4 expansion", ChunkHeader{ElementCount: 10, Compression: CompressionLZ4, ByteLength: 100, RawLength: 1 << 60}},
		{"zstd expansion", ChunkHeader{ElementCount: 1, Compression: CompressionZSTD, ByteLength: 16, RawLength: 1 << 40}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.h.Validate())

			var buf [ChunkHeaderSize]byte
			tt.h.Put(buf[:])
			_, err := ReadChunkHeader(bytes.NewReader(buf[:]), 0, 2)
			var ce *CorruptionError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, int64(2), ce.Chunk)
		})
	}
}

func TestChunkHeaderExpansionBound(t *testing.T) {
	ok := ChunkHeader{ElementCount: 1, Compression: CompressionLZ4, ByteLength: 100, RawLength: 255 * 100}
	require.NoError(t, ok.Validate())
	ok.RawLength = 255 * 101
	require.Error(t, ok.Validate())

	zs := ChunkHeader{ElementCount: 1, Compression: CompressionZSTD, ByteLength: 20, RawLength: 20 << 15}
	require.NoError(t, zs.Validate())
}

func TestChecksumReader(t *testing.T) {
	data := []byte("spectrum payload")
	cr := NewChecksumReader(bytes.NewReader(data))
	_, err := io.Copy(io.Discard, cr)
	require.NoError(t, err)

	require.NoError(t, cr.Verify(Checksum(data)))

	err = cr.Verify(Checksum(data) + 1)
	var mismatch *ChecksumMismatchError
	require.ErrorAs(t, err, &mismatch)
}

func TestCompressionNames(t *testing.T) {
	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZSTD} {
		got, err := ParseCompression(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
	_, err := ParseCompression("brotli")
	assert.Error(t, err)
}

type failingReader struct{ err error }

func (f *failingReader) Read([]byte) (int, error) { return 0, f.err }
