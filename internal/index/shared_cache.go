package index

import (
	"context"
	"encoding/binary"
	"sync"
	"sync/atomic"

	"linequery/internal/dataset"
	"linequery/internal/types"

	"github.com/zeebo/blake3"
)

// CacheShardCount is the number of independently locked shards.
const CacheShardCount = 64

type cacheShard struct {
	mu sync.RWMutex
	m  map[string]bool
}

// SharedCache is a key/value table shared by every worker of the pool.
// It is the only index with mutable shared state: each shard serializes
// access through its own RWMutex, so readers of different shards never
// contend. Keys are lines trimmed of surrounding whitespace.
type SharedCache struct {
	shards [CacheShardCount]cacheShard

	statHits   atomic.Uint64
	statMisses atomic.Uint64
}

// CacheStats is a snapshot of hit/miss counters. HitRatio is a percentage.
type CacheStats struct {
	Hits     uint64
	Misses   uint64
	HitRatio float64
}

func NewSharedCache() *SharedCache {
	c := &SharedCache{}
	for i := range c.shards {
		c.shards[i].m = make(map[string]bool)
	}
	return c
}

// shard picks the shard for key from the first 4 bytes of its BLAKE3 hash.
func (c *SharedCache) shard(key string) *cacheShard {
	sum := blake3.Sum256([]byte(key))
	return &c.shards[binary.BigEndian.Uint32(sum[:4])%CacheShardCount]
}

func (c *SharedCache) load(ctx context.Context, path string) error {
	return dataset.EachTrimmed(ctx, path, func(line string) bool {
		c.Put(line, true)
		return true
	})
}

// Get returns the value stored for key and whether it was present.
func (c *SharedCache) Get(key string) (value, ok bool) {
	s := c.shard(key)
	s.mu.RLock()
	value, ok = s.m[key]
	s.mu.RUnlock()

	if ok {
		c.statHits.Add(1)
	} else {
		c.statMisses.Add(1)
	}
	return value, ok
}

// Put stores value under key.
func (c *SharedCache) Put(key string, value bool) {
	s := c.shard(key)
	s.mu.Lock()
	s.m[key] = value
	s.mu.Unlock()
}

// Delete removes key.
func (c *SharedCache) Delete(key string) {
	s := c.shard(key)
	s.mu.Lock()
	delete(s.m, key)
	s.mu.Unlock()
}

// Clear empties every shard.
func (c *SharedCache) Clear() {
	for i := range c.shards {
		s := &c.shards[i]
		s.mu.Lock()
		clear(s.m)
		s.mu.Unlock()
	}
}

// Stats returns the hit/miss counters without taking any shard lock.
func (c *SharedCache) Stats() CacheStats {
	hits := c.statHits.Load()
	misses := c.statMisses.Load()
	ratio := 0.0
	if total := hits + misses; total > 0 {
		ratio = float64(hits) / float64(total) * 100.0
	}
	return CacheStats{Hits: hits, Misses: misses, HitRatio: ratio}
}

func (c *SharedCache) Kind() types.BufferKind { return types.SharedProcessCache }

func (c *SharedCache) Contains(query string) bool {
	if query == "" {
		return false
	}
	value, ok := c.Get(query)
	return ok && value
}

func (c *SharedCache) Len() int {
	n := 0
	for i := range c.shards {
		s := &c.shards[i]
		s.mu.RLock()
		n += len(s.m)
		s.mu.RUnlock()
	}
	return n
}

func (c *SharedCache) InProcess() bool { return false }

func (c *SharedCache) Close() error {
	c.Clear()
	return nil
}

func (c *SharedCache) sealed() {}
