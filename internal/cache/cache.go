// Package cache memoizes keyword extraction in two tiers: an in-process L1
// map and an optional redis L2 shared between instances.
package cache

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"atstailor/internal/config"
	"atstailor/internal/errors"
)

// Remote is the shared L2 store. Get reports a miss as (nil, false, nil).
type Remote interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Close() error
}

// Stats are cumulative cache counters.
type Stats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	L2Hits  int64 `json:"l2Hits"`
	Errors  int64 `json:"errors"`
	Entries int   `json:"entries"`
}

// Tiered implements L1 (memory) + L2 (remote) caching of raw bytes.
type Tiered struct {
	l1         sync.Map // key → *entry
	remote     Remote   // nil if L2 is disabled
	ttl        time.Duration
	maxEntries int
	logger     *errors.Logger
	now        func() time.Time

	hits   atomic.Int64
	misses atomic.Int64
	l2Hits atomic.Int64
	errs   atomic.Int64

	stop     chan struct{}
	stopOnce sync.Once
}

type entry struct {
	data      []byte
	expiresAt time.Time
}

// New builds a tiered cache. remote may be nil.
func New(cfg config.CacheConfig, remote Remote, logger *errors.Logger) *Tiered {
	if logger == nil {
		logger = errors.Discard()
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	c := &Tiered{
		remote:     remote,
		ttl:        ttl,
		maxEntries: cfg.MaxEntries,
		logger:     logger,
		now:        time.Now,
		stop:       make(chan struct{}),
	}
	logger.Info("cache initialized", "ttl", ttl, "max_entries", cfg.MaxEntries, "redis", remote != nil)
	return c
}

// Key builds a deterministic cache key from parts.
func Key(parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return fmt.Sprintf("atst:kw:%x", hash[:12])
}

// Get tries L1, then L2. An L2 hit repopulates L1.
func (c *Tiered) Get(ctx context.Context, key string) ([]byte, bool) {
	if val, ok := c.l1.Load(key); ok {
		e := val.(*entry)
		if c.now().Before(e.expiresAt) {
			c.hits.Add(1)
			return e.data, true
		}
		c.l1.Delete(key)
	}

	if c.remote != nil {
		data, ok, err := c.remote.Get(ctx, key)
		switch {
		case err != nil:
			c.errs.Add(1)
			c.logger.Debug("cache L2 get failed", "key", key, "error", err)
		case ok:
			c.hits.Add(1)
			c.l2Hits.Add(1)
			c.store(key, data)
			return data, true
		}
	}

	c.misses.Add(1)
	return nil, false
}

// Set stores data in both tiers. L2 failures are logged and counted only.
func (c *Tiered) Set(ctx context.Context, key string, data []byte) {
	c.store(key, data)
	if c.remote == nil {
		return
	}
	if err := c.remote.Set(ctx, key, data, c.ttl); err != nil {
		c.errs.Add(1)
		c.logger.Debug("cache L2 set failed", "key", key, "error", err)
	}
}

func (c *Tiered) store(key string, data []byte) {
	c.evictIfNeeded()
	c.l1.Store(key, &entry{data: data, expiresAt: c.now().Add(c.ttl)})
}

// Stats returns current counters.
func (c *Tiered) Stats() Stats {
	return Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		L2Hits:  c.l2Hits.Load(),
		Errors:  c.errs.Load(),
		Entries: c.count(),
	}
}

func (c *Tiered) count() int {
	n := 0
	c.l1.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// evictIfNeeded removes expired entries first, then the oldest ones,
// until there is room for one more.
func (c *Tiered) evictIfNeeded() {
	if c.maxEntries <= 0 {
		return
	}
	count := c.count()
	if count < c.maxEntries {
		return
	}

	now := c.now()
	c.l1.Range(func(key, val any) bool {
		if e, ok := val.(*entry); ok && now.After(e.expiresAt) {
			c.l1.Delete(key)
			count--
		}
		return count >= c.maxEntries
	})

	for count >= c.maxEntries {
		var oldestKey any
		var oldestAt time.Time
		c.l1.Range(func(key, val any) bool {
			e := val.(*entry)
			if oldestKey == nil || e.expiresAt.Before(oldestAt) {
				oldestKey, oldestAt = key, e.expiresAt
			}
			return true
		})
		if oldestKey == nil {
			return
		}
		c.l1.Delete(oldestKey)
		count--
	}
}

// Run removes expired L1 entries every interval until ctx is done or Close is called.
func (c *Tiered) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stop:
			return
		case <-ticker.C:
			c.purgeExpired()
		}
	}
}

func (c *Tiered) purgeExpired() {
	now := c.now()
	c.l1.Range(func(key, val any) bool {
		if e, ok := val.(*entry); ok && now.After(e.expiresAt) {
			c.l1.Delete(key)
		}
		return true
	})
}

// Close stops the cleanup loop and closes the remote store.
func (c *Tiered) Close() error {
	c.stopOnce.Do(func() { close(c.stop) })
	if c.remote != nil {
		return c.remote.Close()
	}
	return nil
}
