package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// StatsCache memoizes aggregate statistics.
//
// Keys follow the pattern stats:{tenant|all}:{metric}:{period}, where the
// tenant segment is the tenant UUID for tenant scoped reports and "all" for
// system-wide reports. Patterns passed to Invalidate use * as wildcard.
//
// Values are stored encoded, so Get decodes into dest and a cached slice is
// never shared with the caller that produced it.
type StatsCache interface {
	// Get loads the cached value for key into dest.
	// Returns false, nil on a miss or an expired entry.
	Get(ctx context.Context, key string, dest any) (bool, error)

	// Set stores value under key for ttl. A zero ttl uses the adapter default.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error

	// Invalidate evicts every entry whose key matches pattern
	Invalidate(ctx context.Context, pattern string) error
}

const (
	statsKeyPrefix = "stats"
	systemSegment  = "all"
)

// DefaultStatsTTL bounds staleness of cached aggregates
const DefaultStatsTTL = 5 * time.Minute

// StatsKey builds the cache key of a metric. A nil tenantID is the system-wide scope.
func StatsKey(tenantID *uuid.UUID, metric string, period string) string {
	return fmt.Sprintf("%s:%s:%s:%s", statsKeyPrefix, scopeSegment(tenantID), metric, period)
}

// TenantPattern matches every cached metric of one tenant
func TenantPattern(tenantID uuid.UUID) string {
	return fmt.Sprintf("%s:%s:*", statsKeyPrefix, tenantID)
}

// SystemPattern matches every cached system-wide metric
func SystemPattern() string {
	return statsKeyPrefix + ":" + systemSegment + ":*"
}

// StalePatterns returns the patterns a write on tenant data makes stale:
// the tenant's own metrics and the system-wide ones that include it.
// A nil tenantID (plan catalog writes) stales everything.
func StalePatterns(tenantID *uuid.UUID) []string {
	if tenantID == nil {
		return []string{statsKeyPrefix + ":*"}
	}
	return []string{TenantPattern(*tenantID), SystemPattern()}
}

func scopeSegment(tenantID *uuid.UUID) string {
	if tenantID == nil {
		return systemSegment
	}
	return strings.ToLower(tenantID.String())
}

// CachedStats is the read-through front of a StatsCache:
//  1. look the key up in the cache
//  2. on a miss, compute once per key even under concurrent callers
//  3. store the result for the TTL
//
// Cache failures are logged and degrade to computing; they never fail a report.
type CachedStats struct {
	cache  StatsCache
	ttl    time.Duration
	group  singleflight.Group
	logger *zap.Logger
}

// CachedStatsOption is a functional option for configuring CachedStats
type CachedStatsOption func(*CachedStats)

// WithStatsTTL overrides the default TTL
func WithStatsTTL(ttl time.Duration) CachedStatsOption {
	return func(c *CachedStats) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithStatsLogger sets the logger
func WithStatsLogger(logger *zap.Logger) CachedStatsOption {
	return func(c *CachedStats) {
		c.logger = logger
	}
}

// NewCachedStats wraps cache. A nil cache disables memoization.
func NewCachedStats(cache StatsCache, opts ...CachedStatsOption) *CachedStats {
	c := &CachedStats{
		cache:  cache,
		ttl:    DefaultStatsTTL,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the default TTL of cached aggregates
func (c *CachedStats) TTL() time.Duration {
	return c.ttl
}

// Invalidate evicts every pattern synchronously. Failures are logged and the
// first one is returned; the remaining patterns are still attempted.
func (c *CachedStats) Invalidate(ctx context.Context, patterns ...string) error {
	if c == nil || c.cache == nil {
		return nil
	}
	var first error
	for _, p := range patterns {
		if err := c.cache.Invalidate(ctx, p); err != nil {
			c.logger.Warn("Failed to invalidate stats cache",
				zap.String("pattern", p),
				zap.Error(err))
			if first == nil {
				first = err
			}
		}
	}
	return first
}

// GetOrCompute returns the cached value of key, or runs compute, caches and
// returns its result. A ttl of zero uses the CachedStats default.
// Errors from compute are returned as-is and never cached.
func GetOrCompute[T any](ctx context.Context, c *CachedStats, key string, ttl time.Duration, compute func(ctx context.Context) (T, error)) (T, error) {
	if c == nil || c.cache == nil {
		return compute(ctx)
	}
	if ttl <= 0 {
		ttl = c.ttl
	}

	var cached T
	hit, err := c.cache.Get(ctx, key, &cached)
	if err != nil {
		c.logger.Warn("Stats cache read failed, computing",
			zap.String("key", key),
			zap.Error(err))
	} else if hit {
		return cached, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		value, err := compute(ctx)
		if err != nil {
			return value, err
		}
		if err := c.cache.Set(ctx, key, value, ttl); err != nil {
			c.logger.Warn("Stats cache write failed",
				zap.String("key", key),
				zap.Error(err))
		}
		return value, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	out, _ := v.(T)
	return out, nil
}
