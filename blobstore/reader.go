package blobstore

import (
	"context"
	"errors"
	"io"
)

// Reader adapts a Blob to io.Reader, io.ReaderAt and io.Seeker, so it can be
// passed to the list readers. Every Read and ReadAt becomes a ranged read of
// the blob bound to the reader's context.
type Reader struct {
	ctx  context.Context
	blob Blob
	off  int64
}

// NewReader returns a reader positioned at the start of b.
func NewReader(ctx context.Context, b Blob) *Reader {
	return &Reader{ctx: ctx, blob: b}
}

func (r *Reader) Read(p []byte) (int, error) {
	if r.off >= r.blob.Size() {
		return 0, io.EOF
	}
	if rem := r.blob.Size() - r.off; int64(len(p)) > rem {
		p = p[:rem]
	}
	n, err := r.blob.ReadAt(r.ctx, p, r.off)
	r.off += int64(n)
	if errors.Is(err, io.EOF) && n > 0 {
		err = nil
	}
	return n, err
}

func (r *Reader) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errors.New("blobstore: negative offset")
	}
	return r.blob.ReadAt(r.ctx, p, off)
}

func (r *Reader) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = r.off + offset
	case io.SeekEnd:
		abs = r.blob.Size() + offset
	default:
		return 0, errors.New("blobstore: invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("blobstore: negative position")
	}
	r.off = abs
	return abs, nil
}

// Size returns the size of the underlying blob.
func (r *Reader) Size() int64 {
	return r.blob.Size()
}

// readAtFull is the shared ReadAt of byte-backed blobs.
func readAtFull(data []byte, p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errors.New("blobstore: negative offset")
	}
	if off >= int64(len(data)) {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	n := copy(p, data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// rangeOf clips [off, off+length) to a blob of size bytes.
func rangeOf(size, off, length int64) (int64, int64) {
	if off >= size || length <= 0 {
		return size, size
	}
	return off, min(off+length, size)
}
