// Package cache holds fixed-size blocks of remote blobs in memory.
//
// blobstore.CachingStore reads a remote list through a BlockCache, so the
// small header and length-prefix reads of a random access lookup hit memory
// after the first range request for their block.
//
// LRUBlockCache is a single-lock LRU bounded in bytes and optionally
// reserved against a resource.Controller. ShardedLRUBlockCache splits the
// capacity across shards for concurrent readers.
package cache
