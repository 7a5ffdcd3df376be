package blobstore

import (
	"context"
	"errors"
	"io"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/systemsomicslab/largelist/internal/cache"
	"github.com/systemsomicslab/largelist/internal/resource"
)

// DefaultBlockSize is the caching granularity of CachingStore.
const DefaultBlockSize = 64 << 10

// maxParallelFills bounds the range requests of one ReadAt.
const maxParallelFills = 16

// CachingStore wraps a BlobStore, typically a remote one, and serves reads
// from fixed-size cached blocks. Runs of missing blocks are fetched with one
// range read each, in parallel.
type CachingStore struct {
	inner     BlobStore
	cache     cache.BlockCache
	blockSize int64
	rc        *resource.Controller
}

// NewCachingStore creates a CachingStore. blockSize defaults to
// DefaultBlockSize if <= 0. rc, if non-nil, limits concurrent fetches and
// fetched bytes per second.
func NewCachingStore(inner BlobStore, c cache.BlockCache, blockSize int64, rc *resource.Controller) *CachingStore {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	return &CachingStore{inner: inner, cache: c, blockSize: blockSize, rc: rc}
}

func (s *CachingStore) Open(ctx context.Context, name string) (Blob, error) {
	b, err := s.inner.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	return &CachingBlob{inner: b, store: s, name: name}, nil
}

// Create passes through; cached blocks of name are dropped once the new blob
// is committed.
func (s *CachingStore) Create(ctx context.Context, name string) (WritableBlob, error) {
	w, err := s.inner.Create(ctx, name)
	if err != nil {
		return nil, err
	}
	return &invalidatingBlob{WritableBlob: w, invalidate: func() { s.cache.Invalidate(name) }}, nil
}

func (s *CachingStore) Put(ctx context.Context, name string, data []byte) error {
	defer s.cache.Invalidate(name)
	return s.inner.Put(ctx, name, data)
}

func (s *CachingStore) Delete(ctx context.Context, name string) error {
	defer s.cache.Invalidate(name)
	return s.inner.Delete(ctx, name)
}

func (s *CachingStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}

type invalidatingBlob struct {
	WritableBlob
	invalidate func()
}

func (w *invalidatingBlob) Close() error {
	defer w.invalidate()
	return w.WritableBlob.Close()
}

// CachingBlob reads a blob through the block cache.
type CachingBlob struct {
	inner Blob
	store *CachingStore
	name  string
}

func (b *CachingBlob) Close() error { return b.inner.Close() }
func (b *CachingBlob) Size() int64  { return b.inner.Size() }

func (b *CachingBlob) key(blk int64) cache.BlockKey {
	return cache.BlockKey{Blob: b.name, Block: blk}
}

func (b *CachingBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errors.New("blobstore: negative offset")
	}
	size := b.Size()
	if off >= size {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	var short error
	if rem := size - off; int64(len(p)) > rem {
		p, short = p[:rem], io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	bs := b.store.blockSize
	first, last := off/bs, (off+int64(len(p))-1)/bs
	fetched, err := b.fill(ctx, first, last)
	if err != nil {
		return 0, err
	}

	read := 0
	for blk := first; blk <= last; blk++ {
		data, ok := fetched[blk]
		if !ok {
			if data, err = b.block(ctx, blk); err != nil {
				return read, err
			}
		}
		blkStart := blk * bs
		from := max(blkStart, off)
		to := min(blkStart+int64(len(data)), off+int64(len(p)))
		if to <= from {
			return read, io.ErrUnexpectedEOF
		}
		read += copy(p[from-off:to-off], data[from-blkStart:to-blkStart])
	}
	return read, short
}

// fill fetches the missing blocks of [first, last] in contiguous runs and
// returns them, so the caller does not depend on them surviving eviction.
func (b *CachingBlob) fill(ctx context.Context, first, last int64) (map[int64][]byte, error) {
	type run struct{ start, count int64 }
	var runs []run
	for blk := first; blk <= last; blk++ {
		if _, ok := b.store.cache.Get(ctx, b.key(blk)); ok {
			continue
		}
		if n := len(runs); n > 0 && runs[n-1].start+runs[n-1].count == blk {
			runs[n-1].count++
		} else {
			runs = append(runs, run{blk, 1})
		}
	}
	if len(runs) == 0 {
		return nil, nil
	}

	var (
		mu      sync.Mutex
		fetched = make(map[int64][]byte)
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelFills)
	for _, r := range runs {
		g.Go(func() error {
			bs := b.store.blockSize
			start := r.start * bs
			n := min(r.count*bs, b.Size()-start)
			buf, err := b.fetch(gctx, start, n)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			for i := range r.count {
				lo := i * bs
				if lo >= int64(len(buf)) {
					break
				}
				// Each block gets its own array so one entry never pins the run.
				blkData := append([]byte(nil), buf[lo:min(lo+bs, int64(len(buf)))]...)
				fetched[r.start+i] = blkData
				b.store.cache.Set(gctx, b.key(r.start+i), blkData)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return fetched, nil
}

// block returns one block from the cache or the inner blob.
func (b *CachingBlob) block(ctx context.Context, blk int64) ([]byte, error) {
	if data, ok := b.store.cache.Get(ctx, b.key(blk)); ok {
		return data, nil
	}
	bs := b.store.blockSize
	start := blk * bs
	data, err := b.fetch(ctx, start, min(bs, b.Size()-start))
	if err != nil {
		return nil, err
	}
	b.store.cache.Set(ctx, b.key(blk), data)
	return data, nil
}

func (b *CachingBlob) fetch(ctx context.Context, off, n int64) ([]byte, error) {
	rc := b.store.rc
	if err := rc.AcquireFetch(ctx); err != nil {
		return nil, err
	}
	defer rc.ReleaseFetch()
	if err := rc.AcquireIO(ctx, int(n)); err != nil {
		return nil, err
	}

	buf := make([]byte, n)
	got, err := b.inner.ReadAt(ctx, buf, off)
	if err != nil && !(errors.Is(err, io.EOF) && int64(got) == n) {
		return nil, err
	}
	return buf[:got], nil
}

// ReadRange streams the range through the block cache.
func (b *CachingBlob) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	start, end := rangeOf(b.Size(), off, length)
	return io.NopCloser(io.NewSectionReader(&ctxReaderAt{ctx: ctx, b: b}, start, end-start)), nil
}

type ctxReaderAt struct {
	ctx context.Context
	b   Blob
}

func (r *ctxReaderAt) ReadAt(p []byte, off int64) (int, error) {
	return r.b.ReadAt(r.ctx, p, off)
}
