package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/saas/backoffice/internal/domain/report"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const (
	scanBatchSize       = 100
	defaultBreakerTrips = 5
	defaultBreakerOpen  = 30 * time.Second
)

// ErrCacheUnavailable is returned while the circuit breaker is open
var ErrCacheUnavailable = errors.New("stats cache unavailable")

// RedisStatsCache implements report.StatsCache on Redis, shared by every
// instance of the service. A circuit breaker stops hammering a Redis that is down.
type RedisStatsCache struct {
	client     redis.UniversalClient
	breaker    *gobreaker.CircuitBreaker
	defaultTTL time.Duration
	logger     *zap.Logger
}

// RedisStatsCacheOption is a functional option for configuring the cache
type RedisStatsCacheOption func(*redisStatsCacheOptions)

type redisStatsCacheOptions struct {
	defaultTTL     time.Duration
	maxFailures    uint32
	breakerTimeout time.Duration
	logger         *zap.Logger
}

// WithRedisDefaultTTL sets the TTL used when Set receives zero
func WithRedisDefaultTTL(ttl time.Duration) RedisStatsCacheOption {
	return func(o *redisStatsCacheOptions) {
		if ttl > 0 {
			o.defaultTTL = ttl
		}
	}
}

// WithBreaker sets how many consecutive failures open the circuit and for how long
func WithBreaker(maxFailures uint32, timeout time.Duration) RedisStatsCacheOption {
	return func(o *redisStatsCacheOptions) {
		if maxFailures > 0 {
			o.maxFailures = maxFailures
		}
		if timeout > 0 {
			o.breakerTimeout = timeout
		}
	}
}

// WithRedisLogger sets the logger for the cache
func WithRedisLogger(logger *zap.Logger) RedisStatsCacheOption {
	return func(o *redisStatsCacheOptions) {
		o.logger = logger
	}
}

// NewRedisStatsCache wraps an existing client
func NewRedisStatsCache(client redis.UniversalClient, opts ...RedisStatsCacheOption) *RedisStatsCache {
	o := &redisStatsCacheOptions{
		defaultTTL:     report.DefaultStatsTTL,
		maxFailures:    defaultBreakerTrips,
		breakerTimeout: defaultBreakerOpen,
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}

	logger := o.logger
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "stats-cache",
		Timeout: o.breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= o.maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &RedisStatsCache{
		client:     client,
		breaker:    breaker,
		defaultTTL: o.defaultTTL,
		logger:     logger,
	}
}

func (c *RedisStatsCache) execute(fn func() (any, error)) (any, error) {
	v, err := c.breaker.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return v, err
}

// Get decodes the value stored under key into dest
func (c *RedisStatsCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	v, err := c.execute(func() (any, error) {
		payload, err := c.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			// a miss is not a failure of Redis
			return []byte(nil), nil
		}
		return payload, err
	})
	if err != nil {
		return false, fmt.Errorf("get %s: %w", key, err)
	}

	payload := v.([]byte)
	if payload == nil {
		return false, nil
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return true, nil
}

// Set encodes value and stores it under key for ttl
func (c *RedisStatsCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	_, err = c.execute(func() (any, error) {
		return nil, c.client.Set(ctx, key, payload, ttl).Err()
	})
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Invalidate deletes every key matching the glob pattern.
// Keys are found with SCAN, never KEYS, and deleted in batches.
func (c *RedisStatsCache) Invalidate(ctx context.Context, pattern string) error {
	v, err := c.execute(func() (any, error) {
		var (
			cursor  uint64
			removed int64
		)
		for {
			keys, next, err := c.client.Scan(ctx, cursor, pattern, scanBatchSize).Result()
			if err != nil {
				return removed, err
			}
			if len(keys) > 0 {
				n, err := c.client.Del(ctx, keys...).Result()
				if err != nil {
					return removed, err
				}
				removed += n
			}
			cursor = next
			if cursor == 0 {
				return removed, nil
			}
		}
	})
	if err != nil {
		return fmt.Errorf("invalidate %s: %w", pattern, err)
	}

	c.logger.Debug("Invalidated stats cache entries",
		zap.String("pattern", pattern),
		zap.Int64("removed", v.(int64)))
	return nil
}

// Ping checks connectivity
func (c *RedisStatsCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the underlying client
func (c *RedisStatsCache) Close() error {
	return c.client.Close()
}

// Ensure RedisStatsCache implements StatsCache
var _ report.StatsCache = (*RedisStatsCache)(nil)
