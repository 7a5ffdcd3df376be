package largelist

import (
	"bufio"
	"context"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"time"

	"github.com/systemsomicslab/largelist/index"
)

// fileBufferSize is the read buffer of LoadFile.
const fileBufferSize = 256 << 10

// SaveFile serializes elements to the file at path. The list is written to a
// temporary file in the same directory, synced and renamed over path, so path
// holds either the previous content or the complete list. The temporary file
// is removed on failure.
func SaveFile[T any](path string, elements iter.Seq[T], opts ...Option) (*index.Index, error) {
	o := applyOptions(opts)
	o.logger = o.logger.WithPath(path)
	fsys := o.fs

	if err := fsys.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	tmp := fmt.Sprintf("%s.tmp-%d", path, time.Now().UnixNano())
	f, err := fsys.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = fsys.Remove(tmp)
		}
	}()

	x, err := serialize(context.Background(), f, elements, &o)
	if err == nil {
		err = f.Sync()
	}
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	if err := fsys.Rename(tmp, path); err != nil {
		return nil, err
	}
	committed = true

	// Best-effort: fsync the directory so the rename is durable on POSIX.
	if d, err := os.Open(filepath.Dir(path)); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return x, nil
}

// LoadFile reads the whole list stored at path.
func LoadFile[T any](path string, opts ...Option) ([]T, error) {
	o := applyOptions(opts)
	o.logger = o.logger.WithPath(path)
	f, err := o.fs.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	o.size = info.Size()
	return deserialize[T](context.Background(), bufio.NewReaderSize(f, fileBufferSize), &o)
}

// LoadFileAt decodes element i of the list stored at path, seeking over the
// chunks before it.
func LoadFileAt[T any](path string, i int64, opts ...Option) (T, error) {
	o := applyOptions(opts)
	o.logger = o.logger.WithPath(path)
	f, err := o.fs.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		var zero T
		return zero, err
	}
	defer f.Close()
	return deserializeAt[T](context.Background(), f, i, &o)
}
