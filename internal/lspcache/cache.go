// Package lspcache implements the per-operation LSP response cache: a
// memory tier backed by an optional bbolt disk tier, single-flight
// deduplication of concurrent computations for the same key, and
// TTL/LRU+LFU eviction.
package lspcache

import (
	"encoding/json"
	"os"
	"sort"
	"sync"
	"time"

	"go.etcd.io/bbolt"
	"golang.org/x/sync/singleflight"

	"github.com/standardbeagle/lspcached/internal/config"
	"github.com/standardbeagle/lspcached/internal/debug"
	"github.com/standardbeagle/lspcached/internal/errors"
	"github.com/standardbeagle/lspcached/internal/types"
)

var diskBucket = []byte("entries")

// node is the in-memory representation of one cached answer. Data is kept
// as already-marshaled JSON so the cache never needs to know the concrete
// response type of the operation it backs.
type node struct {
	Data         json.RawMessage
	CreatedAt    time.Time
	LastAccessed time.Time
	AccessCount  uint64
}

func (n *node) expired(ttl time.Duration) bool {
	return time.Since(n.CreatedAt) > ttl
}

// Stats mirrors spec.md §4.5's per-cache statistics.
type Stats struct {
	TotalEntries  int
	HitCount      uint64
	MissCount     uint64
	EvictionCount uint64
	InflightCount int
}

// Cache is one operation's layered cache (e.g. the Definition cache, the
// References cache).
type Cache struct {
	operation types.Operation
	cfg       config.Cache

	mu        sync.RWMutex
	entries   map[string]*node
	fileIndex map[string]map[string]struct{} // file path -> set of cache keys

	group singleflight.Group

	disk *bbolt.DB

	hitCount      uint64
	missCount     uint64
	evictionCount uint64
	lastEviction  time.Time
	statsMu       sync.Mutex
}

// New builds the cache for operation. dbPath is the bbolt file used for the
// disk tier; it is only opened when cfg.DiskEnabled and neither
// LSPCACHED_MEMORY_ONLY nor LSPCACHED_DISABLE_PERSISTENCE is set.
func New(operation types.Operation, cfg config.Cache, dbPath string) (*Cache, error) {
	c := &Cache{
		operation:    operation,
		cfg:          cfg,
		entries:      make(map[string]*node),
		fileIndex:    make(map[string]map[string]struct{}),
		lastEviction: time.Now(),
	}

	if cfg.DiskEnabled && !memoryOnlyRequested() && dbPath != "" {
		db, err := bbolt.Open(dbPath, 0644, &bbolt.Options{Timeout: 5 * time.Second})
		if err != nil {
			return nil, errors.NewStoreError("open_cache_disk_tier", err)
		}
		if err := db.Update(func(tx *bbolt.Tx) error {
			_, err := tx.CreateBucketIfNotExists(diskBucket)
			return err
		}); err != nil {
			db.Close()
			return nil, errors.NewStoreError("init_cache_disk_tier", err)
		}
		c.disk = db
	}

	return c, nil
}

func memoryOnlyRequested() bool {
	for _, name := range []string{"PROBE_MEMORY_ONLY_CACHE", "PROBE_DISABLE_PERSISTENCE"} {
		if v := os.Getenv(name); v == "1" || v == "true" {
			return true
		}
	}
	return false
}

// Close closes the disk tier, if any.
func (c *Cache) Close() error {
	if c.disk != nil {
		return c.disk.Close()
	}
	return nil
}

// ComputeFunc produces the response for a cache miss.
type ComputeFunc func() (json.RawMessage, error)

// GetOrCompute implements §4.5's get_or_compute protocol: memory, then
// disk, then single-flighted computation.
func (c *Cache) GetOrCompute(key types.LspCacheKey, compute ComputeFunc) (json.RawMessage, bool, error) {
	keyStr := key.String()

	if data, ok := c.lookupMemory(keyStr); ok {
		return data, true, nil
	}

	if data, ok := c.lookupDisk(key, keyStr); ok {
		return data, true, nil
	}

	result, err, _ := c.group.Do(keyStr, func() (interface{}, error) {
		// Re-check memory: another goroutine may have finished first while
		// we were scheduled behind the singleflight.Do call.
		if data, ok := c.lookupMemory(keyStr); ok {
			return data, nil
		}

		data, computeErr := compute()
		if computeErr != nil {
			c.recordMiss()
			return nil, computeErr
		}

		c.store(key, keyStr, data)
		c.recordMiss()
		c.maybeEvict()
		return data, nil
	})

	if err != nil {
		return nil, false, err
	}
	return result.(json.RawMessage), false, nil
}

func (c *Cache) lookupMemory(keyStr string) (json.RawMessage, bool) {
	c.mu.Lock()
	n, ok := c.entries[keyStr]
	if ok {
		n.LastAccessed = time.Now()
		n.AccessCount++
	}
	c.mu.Unlock()

	if !ok {
		return nil, false
	}
	c.recordHit()
	debug.LogCache("memory hit for %s", keyStr)
	return n.Data, true
}

func (c *Cache) lookupDisk(key types.LspCacheKey, keyStr string) (json.RawMessage, bool) {
	if c.disk == nil {
		return nil, false
	}

	var n node
	found := false
	c.disk.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(diskBucket).Get([]byte(keyStr))
		if raw == nil {
			return nil
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil
		}
		found = true
		return nil
	})
	if !found {
		return nil, false
	}

	ttl := c.ttl()
	if n.expired(ttl) {
		c.disk.Update(func(tx *bbolt.Tx) error {
			return tx.Bucket(diskBucket).Delete([]byte(keyStr))
		})
		return nil, false
	}

	n.LastAccessed = time.Now()
	n.AccessCount++
	c.mu.Lock()
	c.entries[keyStr] = &n
	c.indexFile(key.File, keyStr)
	c.mu.Unlock()

	c.recordHit()
	debug.LogCache("disk hit promoted to memory for %s", keyStr)
	return n.Data, true
}

func (c *Cache) store(key types.LspCacheKey, keyStr string, data json.RawMessage) {
	now := time.Now()
	n := &node{Data: data, CreatedAt: now, LastAccessed: now, AccessCount: 1}

	c.mu.Lock()
	c.entries[keyStr] = n
	c.indexFile(key.File, keyStr)
	c.mu.Unlock()

	if c.disk != nil {
		raw, err := json.Marshal(n)
		if err == nil {
			c.disk.Update(func(tx *bbolt.Tx) error {
				return tx.Bucket(diskBucket).Put([]byte(keyStr), raw)
			})
		}
	}
}

// indexFile must be called with c.mu held.
func (c *Cache) indexFile(file, keyStr string) {
	set, ok := c.fileIndex[file]
	if !ok {
		set = make(map[string]struct{})
		c.fileIndex[file] = set
	}
	set[keyStr] = struct{}{}
}

// InvalidateFile atomically removes every key whose file path equals path
// from memory, disk, and the reverse index.
func (c *Cache) InvalidateFile(path string) {
	c.mu.Lock()
	keys := c.fileIndex[path]
	delete(c.fileIndex, path)
	for k := range keys {
		delete(c.entries, k)
	}
	c.mu.Unlock()

	if c.disk != nil && len(keys) > 0 {
		c.disk.Update(func(tx *bbolt.Tx) error {
			b := tx.Bucket(diskBucket)
			for k := range keys {
				b.Delete([]byte(k))
			}
			return nil
		})
	}
}

func (c *Cache) ttl() time.Duration {
	if c.cfg.TTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.cfg.TTLSeconds) * time.Second
}

// maybeEvict runs the TTL sweep and capacity-based eviction when the
// configured eviction interval has elapsed.
func (c *Cache) maybeEvict() {
	interval := time.Duration(c.cfg.EvictionInterval) * time.Second
	c.statsMu.Lock()
	due := time.Since(c.lastEviction) >= interval
	if due {
		c.lastEviction = time.Now()
	}
	c.statsMu.Unlock()
	if due {
		c.Evict()
	}
}

// Evict runs one eviction pass unconditionally: a TTL sweep, then capacity
// trimming by the configured policy (lru, lfu, or the lru_lfu hybrid that
// tries LRU first and falls back to LFU).
func (c *Cache) Evict() {
	ttl := c.ttl()
	var evicted uint64

	c.mu.Lock()
	if ttl > 0 {
		for k, n := range c.entries {
			if n.expired(ttl) {
				delete(c.entries, k)
				evicted++
			}
		}
	}

	if c.cfg.MemoryCapacity > 0 && len(c.entries) > c.cfg.MemoryCapacity {
		victims := c.selectVictims(len(c.entries) - c.cfg.MemoryCapacity)
		for _, k := range victims {
			delete(c.entries, k)
			evicted++
		}
	}
	c.mu.Unlock()

	if evicted > 0 {
		c.statsMu.Lock()
		c.evictionCount += evicted
		c.statsMu.Unlock()
	}
}

// selectVictims must be called with c.mu held. It returns `count` keys to
// remove, ordered least-recently-used first (or least-frequently-used for
// the "lfu" policy); "lru_lfu" breaks LRU ties with access count.
func (c *Cache) selectVictims(count int) []string {
	type candidate struct {
		key          string
		lastAccessed time.Time
		accessCount  uint64
	}
	candidates := make([]candidate, 0, len(c.entries))
	for k, n := range c.entries {
		candidates = append(candidates, candidate{k, n.LastAccessed, n.AccessCount})
	}

	sort.Slice(candidates, func(i, j int) bool {
		switch c.cfg.EvictionPolicy {
		case "lfu":
			return candidates[i].accessCount < candidates[j].accessCount
		case "lru":
			return candidates[i].lastAccessed.Before(candidates[j].lastAccessed)
		default: // lru_lfu hybrid
			if !candidates[i].lastAccessed.Equal(candidates[j].lastAccessed) {
				return candidates[i].lastAccessed.Before(candidates[j].lastAccessed)
			}
			return candidates[i].accessCount < candidates[j].accessCount
		}
	})

	if count > len(candidates) {
		count = len(candidates)
	}
	out := make([]string, count)
	for i := 0; i < count; i++ {
		out[i] = candidates[i].key
	}
	return out
}

func (c *Cache) recordHit() {
	c.statsMu.Lock()
	c.hitCount++
	c.statsMu.Unlock()
}

func (c *Cache) recordMiss() {
	c.statsMu.Lock()
	c.missCount++
	c.statsMu.Unlock()
}

// Stats reports the cache's current statistics.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	total := len(c.entries)
	c.mu.RUnlock()

	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	return Stats{
		TotalEntries:  total,
		HitCount:      c.hitCount,
		MissCount:     c.missCount,
		EvictionCount: c.evictionCount,
	}
}
