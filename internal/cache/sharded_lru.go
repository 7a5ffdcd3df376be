package cache

import (
	"context"
	"encoding/binary"
	"hash/maphash"
)

const numShards = 16

// ShardedLRUBlockCache spreads blocks over independent LRU shards to reduce
// lock contention between parallel fills.
type ShardedLRUBlockCache struct {
	shards [numShards]*LRUBlockCache
	seed   maphash.Seed
}

// NewShardedLRUBlockCache divides capacity evenly across the shards.
func NewShardedLRUBlockCache(capacity int64) *ShardedLRUBlockCache {
	s := &ShardedLRUBlockCache{seed: maphash.MakeSeed()}
	per := max(capacity/numShards, 1)
	for i := range numShards {
		s.shards[i] = NewLRUBlockCache(per, nil)
	}
	return s
}

func (s *ShardedLRUBlockCache) shard(key BlockKey) *LRUBlockCache {
	var h maphash.Hash
	h.SetSeed(s.seed)
	_, _ = h.WriteString(key.Blob)
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(key.Block))
	_, _ = h.Write(buf[:])
	return s.shards[h.Sum64()%numShards]
}

func (s *ShardedLRUBlockCache) Get(ctx context.Context, key BlockKey) ([]byte, bool) {
	return s.shard(key).Get(ctx, key)
}

func (s *ShardedLRUBlockCache) Set(ctx context.Context, key BlockKey, b []byte) {
	s.shard(key).Set(ctx, key, b)
}

// Invalidate walks every shard.
func (s *ShardedLRUBlockCache) Invalidate(blob string) {
	for _, sh := range s.shards {
		sh.Invalidate(blob)
	}
}

func (s *ShardedLRUBlockCache) Stats() (hits, misses int64) {
	for _, sh := range s.shards {
		h, m := sh.Stats()
		hits += h
		misses += m
	}
	return hits, misses
}

// Size returns the cached bytes across all shards.
func (s *ShardedLRUBlockCache) Size() int64 {
	var total int64
	for _, sh := range s.shards {
		total += sh.Size()
	}
	return total
}
