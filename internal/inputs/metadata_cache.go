package inputs

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"logrouter/internal/constants"
	"logrouter/internal/logger"
	pkgerrors "logrouter/pkg/errors"
	"logrouter/pkg/metrics"
	"logrouter/pkg/models"
)

type cacheEntry struct {
	meta *models.InputMetadata
	// lastAccess holds unix nanoseconds; hits refresh it under the read lock.
	lastAccess atomic.Int64
}

// MetadataCache is a self-populating cache of input snapshots. Entries expire
// a fixed duration after their last access. It is the only state shared by
// all pipeline partitions.
type MetadataCache struct {
	registry      Registry
	ttl           time.Duration
	sweepInterval time.Duration
	now           func() time.Time
	logger        logger.Logger

	mu    sync.RWMutex
	items map[string]*cacheEntry
	group singleflight.Group

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

type CacheOption func(*MetadataCache)

func WithTTL(ttl time.Duration) CacheOption {
	return func(c *MetadataCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithSweepInterval sets how often expired entries are purged. Zero disables
// the background sweeper; expired entries are then only replaced on access.
func WithSweepInterval(d time.Duration) CacheOption {
	return func(c *MetadataCache) { c.sweepInterval = d }
}

func WithClock(now func() time.Time) CacheOption {
	return func(c *MetadataCache) { c.now = now }
}

func WithLogger(log logger.Logger) CacheOption {
	return func(c *MetadataCache) { c.logger = log }
}

func NewMetadataCache(registry Registry, opts ...CacheOption) *MetadataCache {
	c := &MetadataCache{
		registry:      registry,
		ttl:           constants.DefaultInputCacheTTL,
		sweepInterval: constants.DefaultInputCacheSweepInterval,
		now:           time.Now,
		logger:        logger.NopLogger(),
		items:         make(map[string]*cacheEntry),
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.sweepInterval > 0 {
		go c.sweep()
	} else {
		close(c.done)
	}
	return c
}

// Resolve returns the cached snapshot for inputID or performs one registry
// lookup on a miss. Concurrent misses for the same id share that lookup.
// Lookup errors are returned and never cached.
func (c *MetadataCache) Resolve(ctx context.Context, inputID string) (*models.InputMetadata, error) {
	if inputID == "" {
		return nil, pkgerrors.ErrInputNotFound.WithDetail("message", "empty input id")
	}

	if meta, ok := c.get(inputID); ok {
		metrics.IncInputCache(constants.CacheResultHit)
		return meta, nil
	}
	metrics.IncInputCache(constants.CacheResultMiss)

	// The shared lookup outlives any single caller's cancellation.
	lookupCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(inputID, func() (interface{}, error) {
		meta, err := c.registry.Resolve(lookupCtx, inputID)
		if err != nil {
			return nil, err
		}
		c.put(inputID, meta)
		return meta, nil
	})

	select {
	case <-ctx.Done():
		metrics.IncInputCache(constants.CacheResultError)
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			metrics.IncInputCache(constants.CacheResultError)
			return nil, res.Err
		}
		return res.Val.(*models.InputMetadata), nil
	}
}

func (c *MetadataCache) get(inputID string) (*models.InputMetadata, bool) {
	now := c.now()

	c.mu.RLock()
	entry, ok := c.items[inputID]
	if ok && !c.expired(entry, now) {
		entry.lastAccess.Store(now.UnixNano())
		c.mu.RUnlock()
		return entry.meta, true
	}
	c.mu.RUnlock()

	if ok {
		c.mu.Lock()
		if current, still := c.items[inputID]; still && c.expired(current, c.now()) {
			delete(c.items, inputID)
			metrics.SetInputCacheSize(len(c.items))
		}
		c.mu.Unlock()
	}
	return nil, false
}

func (c *MetadataCache) put(inputID string, meta *models.InputMetadata) {
	entry := &cacheEntry{meta: meta}
	entry.lastAccess.Store(c.now().UnixNano())

	c.mu.Lock()
	c.items[inputID] = entry
	size := len(c.items)
	c.mu.Unlock()

	metrics.SetInputCacheSize(size)
}

func (c *MetadataCache) expired(entry *cacheEntry, now time.Time) bool {
	return now.UnixNano()-entry.lastAccess.Load() >= int64(c.ttl)
}

// Invalidate drops inputID so the next Resolve performs a fresh lookup.
func (c *MetadataCache) Invalidate(inputID string) {
	c.mu.Lock()
	delete(c.items, inputID)
	size := len(c.items)
	c.mu.Unlock()
	metrics.SetInputCacheSize(size)
}

func (c *MetadataCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Purge removes every expired entry and reports how many were dropped.
func (c *MetadataCache) Purge() int {
	now := c.now()

	c.mu.Lock()
	removed := 0
	for id, entry := range c.items {
		if c.expired(entry, now) {
			delete(c.items, id)
			removed++
		}
	}
	size := len(c.items)
	c.mu.Unlock()

	metrics.SetInputCacheSize(size)
	return removed
}

func (c *MetadataCache) sweep() {
	defer close(c.done)

	ticker := time.NewTicker(c.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			if removed := c.Purge(); removed > 0 {
				c.logger.Debugw("Purged expired input snapshots", "removed", removed)
			}
		}
	}
}

// Close stops the background sweeper. It is safe to call more than once.
func (c *MetadataCache) Close() {
	c.closeOnce.Do(func() {
		close(c.stop)
	})
	<-c.done
}
