package testutil

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlobs(t *testing.T) {
	rng := NewRNG(4711)

	b := rng.Blobs(8, 32)

	assert.Len(t, b, 8)
	for _, e := range b {
		assert.Len(t, e, 32)
	}
	assert.NotEqual(t, b[0], b[1])
}

func TestVariableBlobs(t *testing.T) {
	rng := NewRNG(4711)

	for _, b := range rng.VariableBlobs(50, 3, 9) {
		assert.GreaterOrEqual(t, len(b), 3)
		assert.LessOrEqual(t, len(b), 9)
	}
}

func TestSpectra(t *testing.T) {
	rng := NewRNG(4711)

	s := rng.Spectra(10, 16)

	require.Len(t, s, 10)
	for i, sp := range s {
		assert.Equal(t, int64(i), sp.ID)
		assert.Len(t, sp.Peaks, 16)
		assert.NotEmpty(t, sp.Name)
	}
}

func TestReset(t *testing.T) {
	rng := NewRNG(4711)
	v1 := rng.Blobs(1, 10)

	rng.Reset()
	v2 := rng.Blobs(1, 10)

	assert.Equal(t, v1, v2)
	assert.Equal(t, int64(4711), rng.Seed())
}

func TestSeekBuffer(t *testing.T) {
	s := NewSeekBuffer()

	_, err := s.Write([]byte("hello world"))
	require.NoError(t, err)

	_, err = s.Seek(0, io.SeekStart)
	require.NoError(t, err)
	_, err = s.Write([]byte("HELLO"))
	require.NoError(t, err)
	assert.Equal(t, "HELLO world", string(s.Bytes()))
	assert.Equal(t, int64(5), s.Pos())

	end, err := s.Seek(0, io.SeekEnd)
	require.NoError(t, err)
	assert.Equal(t, int64(11), end)

	p := make([]byte, 5)
	n, err := s.ReadAt(p, 6)
	require.NoError(t, err)
	assert.Equal(t, "world", string(p[:n]))

	_, err = s.Seek(-1, io.SeekStart)
	assert.Error(t, err)
}

func TestNonSeekable(t *testing.T) {
	r := NonSeekable(NewSeekBuffer([]byte("abc")...))
	_, ok := r.(io.Seeker)
	assert.False(t, ok)

	b, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(b))
}

func TestFailingWriter(t *testing.T) {
	w := &FailingWriter{Limit: 4, Err: io.ErrShortWrite}

	n, err := w.Write([]byte("ab"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = w.Write([]byte("cdef"))
	assert.ErrorIs(t, err, io.ErrShortWrite)
	assert.Equal(t, 2, n)
}
