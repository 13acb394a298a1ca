package analysis

import "sync"

type cacheEntryKey struct {
	buffer *SampleBuffer
	params paramsKey
}

type cacheEntry struct {
	results []*ChannelResult
	phase   *PhaseDifferentialResult
}

// resultCache is a bounded first-in first-out memo of recompute outputs.
// Entries are immutable and may be shared between snapshots.
type resultCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[cacheEntryKey]cacheEntry
	order    []cacheEntryKey
	hits     int
	misses   int
}

func newResultCache(capacity int) *resultCache {
	return &resultCache{
		capacity: max(capacity, 0),
		entries:  make(map[cacheEntryKey]cacheEntry),
	}
}

func (c *resultCache) get(key cacheEntryKey) (cacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return entry, ok
}

func (c *resultCache) put(key cacheEntryKey, entry cacheEntry) {
	if c.capacity == 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		c.entries[key] = entry
		return
	}

	for len(c.order) >= c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
	c.entries[key] = entry
	c.order = append(c.order, key)
}

// dropBuffer evicts every entry computed from buffer
func (c *resultCache) dropBuffer(buffer *SampleBuffer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.order[:0]
	for _, key := range c.order {
		if key.buffer == buffer {
			delete(c.entries, key)
			continue
		}
		kept = append(kept, key)
	}
	c.order = kept
}

func (c *resultCache) stats() (size, hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries), c.hits, c.misses
}
