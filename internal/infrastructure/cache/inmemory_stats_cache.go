package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sync"
	"sync/atomic"
	"time"

	"github.com/saas/backoffice/internal/domain/report"
	"go.uber.org/zap"
)

const defaultCleanupInterval = 30 * time.Second

// InMemoryStatsCache implements report.StatsCache with a process-local map.
// Values are kept JSON encoded so callers never share a cached slice.
type InMemoryStatsCache struct {
	entries         sync.Map // map[string]*cacheEntry
	defaultTTL      time.Duration
	cleanupInterval time.Duration
	logger          *zap.Logger
	stopCh          chan struct{}
	stopped         atomic.Bool

	hits   atomic.Int64
	misses atomic.Int64
}

type cacheEntry struct {
	payload   []byte
	expiresAt time.Time
}

func (e *cacheEntry) isExpired(now time.Time) bool {
	return !now.Before(e.expiresAt)
}

// InMemoryStatsCacheOption is a functional option for configuring the cache
type InMemoryStatsCacheOption func(*InMemoryStatsCache)

// WithDefaultTTL sets the TTL used when Set receives zero
func WithDefaultTTL(ttl time.Duration) InMemoryStatsCacheOption {
	return func(c *InMemoryStatsCache) {
		if ttl > 0 {
			c.defaultTTL = ttl
		}
	}
}

// WithCleanupInterval sets how often expired entries are swept
func WithCleanupInterval(interval time.Duration) InMemoryStatsCacheOption {
	return func(c *InMemoryStatsCache) {
		if interval > 0 {
			c.cleanupInterval = interval
		}
	}
}

// WithInMemoryLogger sets the logger for the cache
func WithInMemoryLogger(logger *zap.Logger) InMemoryStatsCacheOption {
	return func(c *InMemoryStatsCache) {
		c.logger = logger
	}
}

// NewInMemoryStatsCache creates the cache and starts its cleanup goroutine.
// Call Close to stop it.
func NewInMemoryStatsCache(opts ...InMemoryStatsCacheOption) *InMemoryStatsCache {
	c := &InMemoryStatsCache{
		defaultTTL:      report.DefaultStatsTTL,
		cleanupInterval: defaultCleanupInterval,
		logger:          zap.NewNop(),
		stopCh:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	go c.cleanupExpired()

	return c
}

// Get decodes the value stored under key into dest
func (c *InMemoryStatsCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	if value, ok := c.entries.Load(key); ok {
		entry := value.(*cacheEntry)
		if !entry.isExpired(time.Now()) {
			if err := json.Unmarshal(entry.payload, dest); err != nil {
				return false, fmt.Errorf("decode cached %s: %w", key, err)
			}
			c.hits.Add(1)
			return true, nil
		}
		c.entries.CompareAndDelete(key, value)
	}

	c.misses.Add(1)
	return false, nil
}

// Set encodes value and stores it under key for ttl
func (c *InMemoryStatsCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	c.entries.Store(key, &cacheEntry{
		payload:   payload,
		expiresAt: time.Now().Add(ttl),
	})
	return nil
}

// Invalidate deletes every key matching the glob pattern
func (c *InMemoryStatsCache) Invalidate(ctx context.Context, pattern string) error {
	if _, err := path.Match(pattern, ""); err != nil {
		return fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	removed := 0
	c.entries.Range(func(key, _ any) bool {
		if ok, _ := path.Match(pattern, key.(string)); ok {
			c.entries.Delete(key)
			removed++
		}
		return true
	})

	c.logger.Debug("Invalidated stats cache entries",
		zap.String("pattern", pattern),
		zap.Int("removed", removed))
	return nil
}

// Close stops the cleanup goroutine. It is safe to call more than once.
func (c *InMemoryStatsCache) Close() error {
	if c.stopped.CompareAndSwap(false, true) {
		close(c.stopCh)
	}
	return nil
}

// GetStats returns cache statistics
func (c *InMemoryStatsCache) GetStats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Count returns the number of stored entries, expired ones included
func (c *InMemoryStatsCache) Count() int {
	n := 0
	c.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func (c *InMemoryStatsCache) cleanupExpired() {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			func() {
				defer func() {
					if r := recover(); r != nil {
						c.logger.Error("Panic in stats cache cleanup", zap.Any("panic", r))
					}
				}()
				c.doCleanup()
			}()
		}
	}
}

func (c *InMemoryStatsCache) doCleanup() {
	now := time.Now()
	removed := 0
	c.entries.Range(func(key, value any) bool {
		if value.(*cacheEntry).isExpired(now) {
			c.entries.CompareAndDelete(key, value)
			removed++
		}
		return true
	})

	if removed > 0 {
		c.logger.Debug("Cleaned up expired stats cache entries", zap.Int("removed", removed))
	}
}

// Ensure InMemoryStatsCache implements StatsCache
var _ report.StatsCache = (*InMemoryStatsCache)(nil)
