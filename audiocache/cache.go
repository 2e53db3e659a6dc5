package audiocache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/openclaw/voicebridge/logger"
	"github.com/openclaw/voicebridge/metrics/prometheus"
)

// Cache defaults, all overridable through Config.
const (
	// DefaultMaxEntries bounds the cache population.
	DefaultMaxEntries = 100

	// DefaultTTL is how long an entry stays servable. Callers are transient,
	// so stale audio has no long-term value and would otherwise accumulate
	// unbounded.
	DefaultTTL = time.Hour

	// DefaultSweepInterval is how often the background sweep runs,
	// independent of access patterns.
	DefaultSweepInterval = 15 * time.Minute
)

// Entry is one cached audio artifact. Created on successful synthesis,
// never mutated afterwards, destroyed only by eviction. Callers must treat
// Audio as read-only.
type Entry struct {
	Key       Key
	Audio     []byte
	CreatedAt time.Time
	Size      int
}

// Config bounds a Cache.
type Config struct {
	// MaxEntries is the maximum entry count; zero means DefaultMaxEntries.
	MaxEntries int

	// TTL is the maximum entry age enforced by Sweep; zero means DefaultTTL.
	TTL time.Duration

	// SweepInterval is the cadence of the background sweep; zero means
	// DefaultSweepInterval.
	SweepInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxEntries <= 0 {
		c.MaxEntries = DefaultMaxEntries
	}
	if c.TTL <= 0 {
		c.TTL = DefaultTTL
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = DefaultSweepInterval
	}
	return c
}

// Cache is an insertion-ordered, content-addressed audio store shared by all
// concurrent turn handlers. All methods are safe for concurrent use. Cache
// operations never return errors to callers; losing the cache only ever
// costs re-synthesis, never call correctness.
type Cache struct {
	cfg Config

	mu    sync.Mutex
	items map[Key]*list.Element
	order *list.List // front = oldest insertion

	now func() time.Time // injectable for tests
}

// New creates a Cache with the given bounds.
func New(cfg Config) *Cache {
	return &Cache{
		cfg:   cfg.withDefaults(),
		items: make(map[Key]*list.Element),
		order: list.New(),
		now:   time.Now,
	}
}

// Get returns the entry for key, if present. A hit does not refresh the
// entry's eviction position (FIFO, not LRU).
func (c *Cache) Get(key Key) (*Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return nil, false
	}
	return elem.Value.(*Entry), true
}

// Put inserts audio under key and returns the resulting entry. The insert is
// idempotent: when two concurrent misses race for the same key, the first
// insert wins and later calls get the existing entry back, their bytes
// discarded. That is the documented resolution of the race, not an error.
// If the insert pushes the cache over its bound, the oldest insertions are
// evicted until it fits.
func (c *Cache) Put(key Key, audio []byte) *Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		return elem.Value.(*Entry)
	}

	// Copy so the entry is immune to caller-side buffer reuse.
	owned := make([]byte, len(audio))
	copy(owned, audio)

	entry := &Entry{
		Key:       key,
		Audio:     owned,
		CreatedAt: c.now(),
		Size:      len(owned),
	}
	c.items[key] = c.order.PushBack(entry)

	evicted := 0
	for len(c.items) > c.cfg.MaxEntries {
		c.removeElement(c.order.Front())
		evicted++
	}
	if evicted > 0 {
		prometheus.RecordCacheEviction("overflow", evicted)
		logger.Debug("audio cache overflow eviction", "evicted", evicted, "entries", len(c.items))
	}
	prometheus.SetCacheEntries(len(c.items))

	return entry
}

// Sweep removes every entry older than the configured TTL, measured against
// now. It runs on a fixed interval regardless of access patterns.
func (c *Cache) Sweep(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for elem := c.order.Front(); elem != nil; {
		entry := elem.Value.(*Entry)
		// Insertion order is creation order, so the first fresh entry ends
		// the scan.
		if now.Sub(entry.CreatedAt) <= c.cfg.TTL {
			break
		}
		next := elem.Next()
		c.removeElement(elem)
		removed++
		elem = next
	}

	if removed > 0 {
		prometheus.RecordCacheEviction("expired", removed)
		prometheus.SetCacheEntries(len(c.items))
	}
	return removed
}

// Len returns the current entry count.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// removeElement drops an element from both the map and the FIFO order.
// Must be called with the lock held.
func (c *Cache) removeElement(elem *list.Element) {
	entry := elem.Value.(*Entry)
	delete(c.items, entry.Key)
	c.order.Remove(elem)
}

// RunSweeper runs periodic sweeps until ctx is cancelled. Owned by the
// composition root; one sweeper per cache.
func (c *Cache) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := c.Sweep(c.now()); removed > 0 {
				logger.Info("audio cache sweep", "removed", removed, "entries", c.Len())
			}
		case <-ctx.Done():
			return
		}
	}
}
