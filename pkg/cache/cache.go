// Package cache memoizes encoded task results by request fingerprint.
//
// The server caches the fully encoded result frame of every completed task,
// keyed by the FNV-1a fingerprint of the submitted payload. A repeat
// submission with byte-identical payload is answered straight from the cache
// without touching the worker pool. Entries are evicted least-recently-used
// when the configured byte budget would be exceeded.
package cache

import (
	"container/list"
	"sync"
)

// DefaultMaxCost bounds the cache at 64 MiB of stored result payloads unless
// configured otherwise.
const DefaultMaxCost uint64 = 64 << 20

// entry is a single cached result. cost is the result's payload size in
// bytes, charged against the cache budget.
type entry struct {
	fp    Fingerprint
	frame []byte
	cost  uint64
}

// Stats is a point-in-time snapshot of cache occupancy and traffic counters.
type Stats struct {
	Entries    int    `json:"entries"`
	Cost       uint64 `json:"cost_bytes"`
	MaxCost    uint64 `json:"max_cost_bytes"`
	Hits       uint64 `json:"hits"`
	Misses     uint64 `json:"misses"`
	Insertions uint64 `json:"insertions"`
	Evictions  uint64 `json:"evictions"`
}

// ResultCache is an LRU map from request fingerprint to encoded result frame.
//
// The dispatcher is the only writer; the mutex exists so the ops API can read
// Stats from its own goroutine without coordinating with the dispatcher.
type ResultCache struct {
	mu      sync.Mutex
	maxCost uint64
	cost    uint64
	ll      *list.List // front is most recently used
	index   map[Fingerprint]*list.Element
	stats   Stats
	metrics *Metrics
}

// New creates a ResultCache bounded by maxCost payload bytes. A zero maxCost
// falls back to DefaultMaxCost. metrics may be nil.
func New(maxCost uint64, metrics *Metrics) *ResultCache {
	if maxCost == 0 {
		maxCost = DefaultMaxCost
	}
	return &ResultCache{
		maxCost: maxCost,
		ll:      list.New(),
		index:   make(map[Fingerprint]*list.Element),
		metrics: metrics,
	}
}

// MaxCost returns the configured byte budget.
func (c *ResultCache) MaxCost() uint64 {
	return c.maxCost
}

// Lookup returns the stored result frame for fp and refreshes its recency.
// The returned slice is the cached frame itself; callers must not mutate it.
func (c *ResultCache) Lookup(fp Fingerprint) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.index[fp]
	if !ok {
		c.stats.Misses++
		c.metrics.RecordMiss()
		return nil, false
	}
	c.ll.MoveToFront(el)
	c.stats.Hits++
	c.metrics.RecordHit()
	return el.Value.(*entry).frame, true
}

// Insert stores frame under fp at the given cost, evicting least-recent
// entries until the total cost fits the budget. An entry whose cost alone
// exceeds the budget is not stored at all: the budget is a hard ceiling, not
// a soft target. Re-inserting an existing fingerprint replaces the stored
// frame and refreshes recency.
func (c *ResultCache) Insert(fp Fingerprint, frame []byte, cost uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cost > c.maxCost {
		return
	}

	if el, ok := c.index[fp]; ok {
		e := el.Value.(*entry)
		c.cost -= e.cost
		e.frame = frame
		e.cost = cost
		c.ll.MoveToFront(el)
	} else {
		el = c.ll.PushFront(&entry{fp: fp, frame: frame, cost: cost})
		c.index[fp] = el
		c.stats.Insertions++
		c.metrics.RecordInsertion()
	}
	c.cost += cost

	for c.cost > c.maxCost {
		c.evictOldest()
	}
	c.updateGauges()
}

// evictOldest drops the least-recently-used entry. Caller holds c.mu.
func (c *ResultCache) evictOldest() {
	el := c.ll.Back()
	if el == nil {
		return
	}
	e := el.Value.(*entry)
	c.ll.Remove(el)
	delete(c.index, e.fp)
	c.cost -= e.cost
	c.stats.Evictions++
	c.metrics.RecordEviction()
}

// updateGauges pushes occupancy to the metrics sink. Caller holds c.mu.
func (c *ResultCache) updateGauges() {
	c.metrics.SetOccupancy(c.ll.Len(), c.cost)
}

// Len returns the number of cached entries.
func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// Cost returns the total stored payload bytes.
func (c *ResultCache) Cost() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cost
}

// Stats returns a snapshot of counters and occupancy.
func (c *ResultCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Entries = c.ll.Len()
	s.Cost = c.cost
	s.MaxCost = c.maxCost
	return s
}
