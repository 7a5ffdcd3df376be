package cache

import "context"

// BlockKey identifies one fixed-size block of a blob.
type BlockKey struct {
	// Blob is the store-relative blob name.
	Blob string
	// Block is the block number, offset / block size.
	Block int64
}

// BlockCache caches immutable blocks. Returned slices must be treated as read-only.
type BlockCache interface {
	Get(ctx context.Context, key BlockKey) ([]byte, bool)
	// Set may retain b; the caller must not modify it afterwards.
	Set(ctx context.Context, key BlockKey, b []byte)
	// Invalidate removes every block of blob.
	Invalidate(blob string)
	Stats() (hits, misses int64)
}
