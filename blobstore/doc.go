// Package blobstore stores serialized lists as immutable named blobs.
//
// A list is written to a WritableBlob, which is a plain stream, and read
// back through a Blob, which supports ranged reads. NewReader turns a Blob
// into an io.ReadSeeker so the random access readers can seek over chunks
// they do not need.
//
// # Implementations
//
//   - MemoryStore: in memory, for tests and small lists
//   - LocalStore: a directory; reads are memory mapped, writes are renamed
//     into place on Close
//   - CachingStore: a block cache in front of another store
//   - s3.Store: Amazon S3 through aws-sdk-go-v2
//   - minio.Store: MinIO and other S3-compatible servers
//
// All implementations are safe for concurrent use. WritableBlob values are not.
package blobstore
