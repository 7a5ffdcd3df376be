package index

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systemsomicslab/largelist/chunk"
	"github.com/systemsomicslab/largelist/format"
	"github.com/systemsomicslab/largelist/testutil"
)

// build writes elems after prefix bytes of padding and returns the stream
// and the write-time index.
func build(t *testing.T, prefix int, ceiling uint64, c format.Compression, elems [][]byte) ([]byte, *Index) {
	t.Helper()

	buf := testutil.NewSeekBuffer(make([]byte, prefix)...)
	_, err := buf.Seek(0, io.SeekEnd)
	require.NoError(t, err)

	opts := chunk.DefaultOptions()
	opts.ChunkSizeCeiling = ceiling
	opts.Compression = c
	opts.Codec = "bytes"

	b := NewBuilder(true)
	b.Attach(&opts)

	w, err := chunk.NewWriter(buf, opts)
	require.NoError(t, err)
	require.NoError(t, w.BeginList())
	for _, e := range elems {
		require.NoError(t, w.WriteElement(e))
	}
	h, err := w.EndList()
	require.NoError(t, err)

	x, err := b.Finish(h)
	require.NoError(t, err)
	return buf.Bytes(), x
}

func TestScanMatchesBuilder(t *testing.T) {
	elems := testutil.NewRNG(1).VariableBlobs(200, 1, 120)

	for _, c := range []format.Compression{format.CompressionNone, format.CompressionZSTD} {
		t.Run(c.String(), func(t *testing.T) {
			data, built := build(t, 0, 512, c, elems)

			scanned, err := Scan(bytes.NewReader(data))
			require.NoError(t, err)
			assert.Equal(t, built.Header, scanned.Header)
			assert.Equal(t, built.Chunks, scanned.Chunks)
			assert.Nil(t, scanned.Elements)
			assert.Equal(t, int64(len(data)), scanned.Size())
			require.NoError(t, scanned.Validate(int64(len(data))))

			streamed, err := Scan(testutil.NonSeekable(bytes.NewReader(data)))
			require.NoError(t, err)
			assert.Equal(t, built.Chunks, streamed.Chunks)
		})
	}
}

func TestScanAtOffset(t *testing.T) {
	elems := testutil.NewRNG(2).Blobs(30, 50)
	data, built := build(t, 17, 256, format.CompressionNone, elems)

	r := bytes.NewReader(data)
	_, err := r.Seek(17, io.SeekStart)
	require.NoError(t, err)

	scanned, err := Scan(r)
	require.NoError(t, err)
	assert.Equal(t, built.Chunks, scanned.Chunks)

	pos, err := r.Seek(0, io.SeekCurrent)
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), pos)
}

func TestScanEmpty(t *testing.T) {
	data, built := build(t, 0, 64, format.CompressionNone, nil)
	assert.Empty(t, built.Chunks)
	assert.Empty(t, built.Elements)

	scanned, err := Scan(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Zero(t, scanned.Len())
	assert.Equal(t, int64(len(data)), scanned.Size())
}

func TestScanCorrupt(t *testing.T) {
	elems := testutil.NewRNG(3).Blobs(20, 40)
	data, _ := build(t, 0, 200, format.CompressionNone, elems)

	_, err := Scan(bytes.NewReader(data[:len(data)-1]))
	assert.ErrorIs(t, err, format.ErrCorrupt)

	_, err = Scan(bytes.NewReader(data[:10]))
	assert.ErrorIs(t, err, format.ErrCorrupt)
}

func TestLocate(t *testing.T) {
	elems := testutil.NewRNG(4).Blobs(25, 40) // 4 elements of 48 bytes per chunk
	_, x := build(t, 0, 200, format.CompressionNone, elems)
	require.Len(t, x.Chunks, 7)

	tests := []struct {
		i      int64
		chunk  uint64
		within uint32
	}{
		{0, 0, 0},
		{3, 0, 3},
		{4, 1, 0},
		{17, 4, 1},
		{24, 6, 0},
	}
	for _, tt := range tests {
		k, within, err := x.Locate(tt.i)
		require.NoError(t, err)
		assert.Equal(t, int(tt.chunk), k, "element %d", tt.i)
		assert.Equal(t, tt.within, within, "element %d", tt.i)
	}

	for _, i := range []int64{-1, 25, 1 << 40} {
		_, _, err := x.Locate(i)
		var oor *format.IndexOutOfRangeError
		require.ErrorAs(t, err, &oor)
		assert.Equal(t, i, oor.Index)
		assert.Equal(t, uint64(25), oor.Count)
	}
}

func TestElementLocations(t *testing.T) {
	elems := testutil.NewRNG(5).VariableBlobs(40, 0, 70)
	data, x := build(t, 0, 256, format.CompressionNone, elems)
	require.Len(t, x.Elements, 40)

	for i, want := range elems {
		loc, ok := x.Element(int64(i))
		require.True(t, ok)
		start := x.Chunks[loc.Chunk].PayloadOffset() + int64(loc.Offset) + format.ElementPrefixSize
		got := data[start : start+int64(loc.Length)]
		assert.Equal(t, len(want), len(got))
		assert.True(t, bytes.Equal(want, got), "element %d", i)
	}

	_, ok := x.Element(40)
	assert.False(t, ok)
}

func TestValidate(t *testing.T) {
	_, x := build(t, 0, 200, format.CompressionNone, testutil.NewRNG(6).Blobs(12, 40))

	tests := []struct {
		name   string
		modify func(*Index)
		size   int64
	}{
		{"too small", func(*Index) {}, 100},
		{"missing chunk", func(x *Index) { x.Chunks = x.Chunks[:2] }, -1},
		{"gap", func(x *Index) { x.Chunks[1].Offset++ }, -1},
		{"numbering", func(x *Index) { x.Chunks[2].FirstElement = 3 }, -1},
		{"element table", func(x *Index) { x.Elements = x.Elements[:3] }, -1},
		{"element bounds", func(x *Index) { x.Elements[0].Length = 1000 }, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := *x
			c.Chunks = append([]ChunkEntry(nil), x.Chunks...)
			c.Elements = append([]ElementLoc(nil), x.Elements...)
			tt.modify(&c)
			assert.Error(t, c.Validate(tt.size))
		})
	}

	require.NoError(t, x.Validate(x.Size()))
}
