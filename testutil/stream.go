package testutil

import (
	"errors"
	"io"
)

// SeekBuffer is an in-memory stream implementing io.Reader, io.Writer,
// io.Seeker and io.ReaderAt. Writes past the end grow the buffer.
type SeekBuffer struct {
	buf []byte
	pos int64
}

// NewSeekBuffer returns a SeekBuffer holding a copy of b, positioned at 0.
func NewSeekBuffer(b ...byte) *SeekBuffer {
	return &SeekBuffer{buf: append([]byte(nil), b...)}
}

// Bytes returns the buffer contents.
func (s *SeekBuffer) Bytes() []byte { return s.buf }

// Len returns the buffer size.
func (s *SeekBuffer) Len() int { return len(s.buf) }

func (s *SeekBuffer) Write(p []byte) (int, error) {
	end := s.pos + int64(len(p))
	if end > int64(len(s.buf)) {
		if end > int64(cap(s.buf)) {
			grown := make([]byte, end, max(end, 2*int64(cap(s.buf))))
			copy(grown, s.buf)
			s.buf = grown
		}
		s.buf = s.buf[:end]
	}
	copy(s.buf[s.pos:], p)
	s.pos = end
	return len(p), nil
}

func (s *SeekBuffer) Read(p []byte) (int, error) {
	if s.pos >= int64(len(s.buf)) {
		return 0, io.EOF
	}
	n := copy(p, s.buf[s.pos:])
	s.pos += int64(n)
	return n, nil
}

func (s *SeekBuffer) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errors.New("negative offset")
	}
	if off >= int64(len(s.buf)) {
		return 0, io.EOF
	}
	n := copy(p, s.buf[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (s *SeekBuffer) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = s.pos + offset
	case io.SeekEnd:
		abs = int64(len(s.buf)) + offset
	default:
		return 0, errors.New("invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("negative position")
	}
	s.pos = abs
	return abs, nil
}

// Pos returns the current position.
func (s *SeekBuffer) Pos() int64 { return s.pos }

type nonSeekable struct{ r io.Reader }

func (n nonSeekable) Read(p []byte) (int, error) { return n.r.Read(p) }

// NonSeekable hides every interface of r except io.Reader.
func NonSeekable(r io.Reader) io.Reader { return nonSeekable{r: r} }

// CountingReader counts the bytes read through it.
type CountingReader struct {
	R io.Reader
	N int64
}

func (c *CountingReader) Read(p []byte) (int, error) {
	n, err := c.R.Read(p)
	c.N += int64(n)
	return n, err
}

// FailingWriter accepts Limit bytes and then fails every write with Err.
type FailingWriter struct {
	Limit   int
	Err     error
	written int
}

func (f *FailingWriter) Write(p []byte) (int, error) {
	if f.written+len(p) > f.Limit {
		n := f.Limit - f.written
		f.written = f.Limit
		return n, f.Err
	}
	f.written += len(p)
	return len(p), nil
}
