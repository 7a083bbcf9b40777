package cache

import (
	"container/list"
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"location-route-preprocessor/internal/domain"
	"location-route-preprocessor/internal/platform/obs"
	"location-route-preprocessor/internal/ports"
)

// ErrNoNearbyNode reports that no graph node lies within the configured snap
// radius of a point. The miss is never cached, so a later query (or a run
// with a wider radius) is free to retry.
var ErrNoNearbyNode = errors.New("no graph node within search radius")

// bytesPerEntry is the rough in-memory footprint of one cache entry (key,
// node id, list element, map slot). Only used to turn a megabyte budget into
// an entry count; the bound is soft.
const bytesPerEntry = 96

// NodeCache resolves GPS points to their nearest graph node, memoizing
// results in a bounded LRU keyed by the quantized point. Misses fall through
// to an optional persistent tier and then to the nearest-node index.
//
// Safe for concurrent use: one mutex guards the LRU's map and recency list.
// The index query dominates miss cost, so lookups under the lock stay cheap.
type NodeCache struct {
	index       ports.NearestNodeIndex
	persistent  ports.PersistentNodeCache // may be nil
	fingerprint string
	precision   int
	radius      float64
	capacity    int

	mu      sync.Mutex
	entries map[domain.CacheKey]*list.Element
	recency *list.List // front = most recently used

	hits   uint64
	misses uint64
}

type lruEntry struct {
	key  domain.CacheKey
	node domain.NodeID
}

// NodeCacheConfig carries the tunables the cache is built from.
type NodeCacheConfig struct {
	// BudgetMB is the approximate memory budget for cached entries.
	BudgetMB int
	// QuantizePrecision is the decimal precision cache keys are quantized to.
	QuantizePrecision int
	// MaxRadiusMeters bounds the nearest-node search.
	MaxRadiusMeters float64
	// GraphFingerprint scopes persistent entries to one loaded graph.
	GraphFingerprint string
}

func NewNodeCache(index ports.NearestNodeIndex, persistent ports.PersistentNodeCache, cfg NodeCacheConfig) (*NodeCache, error) {
	if index == nil {
		return nil, errors.New("node cache: index is nil")
	}
	if cfg.BudgetMB <= 0 {
		return nil, errors.New("node cache: budget must be positive")
	}
	if cfg.MaxRadiusMeters <= 0 {
		return nil, errors.New("node cache: max radius must be positive")
	}

	capacity := cfg.BudgetMB * 1024 * 1024 / bytesPerEntry
	if capacity < 1 {
		capacity = 1
	}

	return &NodeCache{
		index:       index,
		persistent:  persistent,
		fingerprint: cfg.GraphFingerprint,
		precision:   cfg.QuantizePrecision,
		radius:      cfg.MaxRadiusMeters,
		capacity:    capacity,
		entries:     make(map[domain.CacheKey]*list.Element),
		recency:     list.New(),
	}, nil
}

// Capacity returns the derived maximum entry count.
func (c *NodeCache) Capacity() int { return c.capacity }

// Resolve maps a point to its nearest graph node. Returns ErrNoNearbyNode
// when nothing lies within the configured radius.
func (c *NodeCache) Resolve(ctx context.Context, p domain.GeoPoint) (domain.NodeID, error) {
	key := p.Quantize(c.precision)

	c.mu.Lock()
	if el, ok := c.entries[key]; ok {
		c.recency.MoveToFront(el)
		c.hits++
		node := el.Value.(*lruEntry).node
		c.mu.Unlock()
		return node, nil
	}
	c.misses++
	c.mu.Unlock()

	if node, ok := c.lookupPersistent(ctx, key); ok {
		c.insert(key, node)
		return node, nil
	}

	node, ok := c.index.Nearest(p, c.radius)
	if !ok {
		return 0, ErrNoNearbyNode
	}

	c.insert(key, node)
	c.storePersistent(ctx, key, node)

	return node, nil
}

// insert adds key -> node, evicting the least-recently-used entry when the
// cache is at capacity. A racing insert of the same key just refreshes it.
func (c *NodeCache) insert(key domain.CacheKey, node domain.NodeID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		el.Value.(*lruEntry).node = node
		c.recency.MoveToFront(el)
		return
	}

	for len(c.entries) >= c.capacity {
		oldest := c.recency.Back()
		if oldest == nil {
			break
		}
		c.recency.Remove(oldest)
		delete(c.entries, oldest.Value.(*lruEntry).key)
	}

	c.entries[key] = c.recency.PushFront(&lruEntry{key: key, node: node})
}

func (c *NodeCache) lookupPersistent(ctx context.Context, key domain.CacheKey) (domain.NodeID, bool) {
	if c.persistent == nil {
		return 0, false
	}

	found, err := c.persistent.GetMany(ctx, c.fingerprint, []domain.CacheKey{key})
	if err != nil {
		// The persistent tier is an optimization; degrade to the index.
		obs.L().Warn("persistent node cache read failed", zap.Error(err))
		return 0, false
	}

	node, ok := found[key]
	return node, ok
}

func (c *NodeCache) storePersistent(ctx context.Context, key domain.CacheKey, node domain.NodeID) {
	if c.persistent == nil {
		return
	}

	err := c.persistent.PutMany(ctx, c.fingerprint, map[domain.CacheKey]domain.NodeID{key: node})
	if err != nil {
		obs.L().Warn("persistent node cache write failed", zap.Error(err))
	}
}

// Stats returns cumulative hit/miss counts for end-of-run reporting.
func (c *NodeCache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// Len returns the current entry count.
func (c *NodeCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
