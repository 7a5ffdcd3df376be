package largelist

import (
	"bufio"
	"context"
	"errors"
	"iter"

	"github.com/systemsomicslab/largelist/blobstore"
	"github.com/systemsomicslab/largelist/index"
)

// PutBlob serializes elements into the blob name of store. The blob is a
// plain stream, so HeaderAuto resolves to HeaderTwoPass and elements is
// iterated twice. A failed write aborts the blob; the store keeps no partial
// list.
func PutBlob[T any](ctx context.Context, store blobstore.BlobStore, name string, elements iter.Seq[T], opts ...Option) (*index.Index, error) {
	o := applyOptions(opts)
	o.logger = o.logger.WithBlob(name)

	w, err := store.Create(ctx, name)
	if err != nil {
		return nil, err
	}
	x, err := serialize(ctx, w, elements, &o)
	if err != nil {
		return nil, errors.Join(err, w.Abort())
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return x, nil
}

// LoadBlob reads the whole list stored in blob name with one streaming range read.
func LoadBlob[T any](ctx context.Context, store blobstore.BlobStore, name string, opts ...Option) ([]T, error) {
	o := applyOptions(opts)
	o.logger = o.logger.WithBlob(name)

	b, err := store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	rc, err := b.ReadRange(ctx, 0, b.Size())
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	o.size = b.Size()
	return deserialize[T](ctx, bufio.NewReaderSize(rc, fileBufferSize), &o)
}

// LoadBlobAt decodes element i of the list stored in blob name. Chunks
// before the target are skipped by seeking, so only headers and the target
// element are fetched.
func LoadBlobAt[T any](ctx context.Context, store blobstore.BlobStore, name string, i int64, opts ...Option) (T, error) {
	o := applyOptions(opts)
	o.logger = o.logger.WithBlob(name)

	b, err := store.Open(ctx, name)
	if err != nil {
		var zero T
		return zero, err
	}
	defer b.Close()
	return deserializeAt[T](ctx, blobstore.NewReader(ctx, b), i, &o)
}

// LoadBlobIndex reconstructs the index of the list stored in blob name from
// its headers. The result serves DeserializeAtIndex over a blobstore.Reader.
func LoadBlobIndex(ctx context.Context, store blobstore.BlobStore, name string, opts ...Option) (*index.Index, error) {
	b, err := store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer b.Close()
	return ReadIndex(blobstore.NewReader(ctx, b), opts...)
}
