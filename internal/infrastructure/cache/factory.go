package cache

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/saas/backoffice/internal/domain/report"
	"github.com/saas/backoffice/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Backends accepted by CacheConfig.Backend
const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// StatsCacheFactory creates the statistics cache based on configuration
type StatsCacheFactory struct {
	cacheConfig config.CacheConfig
	redisConfig config.RedisConfig
	defaultTTL  time.Duration
	logger      *zap.Logger
}

// StatsCacheFactoryOption is a functional option for configuring the factory
type StatsCacheFactoryOption func(*StatsCacheFactory)

// WithLogger sets the logger for the factory and the caches it builds
func WithLogger(logger *zap.Logger) StatsCacheFactoryOption {
	return func(f *StatsCacheFactory) {
		f.logger = logger
	}
}

// WithTTL sets the default TTL of created caches
func WithTTL(ttl time.Duration) StatsCacheFactoryOption {
	return func(f *StatsCacheFactory) {
		f.defaultTTL = ttl
	}
}

// NewStatsCacheFactory creates a new factory
func NewStatsCacheFactory(cacheCfg config.CacheConfig, redisCfg config.RedisConfig, opts ...StatsCacheFactoryOption) *StatsCacheFactory {
	f := &StatsCacheFactory{
		cacheConfig: cacheCfg,
		redisConfig: redisCfg,
		defaultTTL:  report.DefaultStatsTTL,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// StatsCache is a report.StatsCache that owns resources
type StatsCache interface {
	report.StatsCache
	io.Closer
}

// CreateRedisCache connects to Redis and verifies the connection
func (f *StatsCacheFactory) CreateRedisCache(ctx context.Context) (*RedisStatsCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     f.redisConfig.Addr(),
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisStatsCache(client,
		WithRedisDefaultTTL(f.defaultTTL),
		WithBreaker(f.cacheConfig.BreakerMaxFailures, f.cacheConfig.BreakerTimeout),
		WithRedisLogger(f.logger),
	), nil
}

// CreateInMemoryCache creates a process-local cache.
// Instances do not share it, so invalidation only reaches the local process.
func (f *StatsCacheFactory) CreateInMemoryCache() *InMemoryStatsCache {
	return NewInMemoryStatsCache(
		WithDefaultTTL(f.defaultTTL),
		WithCleanupInterval(f.cacheConfig.CleanupInterval),
		WithInMemoryLogger(f.logger),
	)
}

// Create builds the configured backend. When Redis is configured but
// unreachable, it falls back to memory if FallbackToMemory is set.
func (f *StatsCacheFactory) Create(ctx context.Context) (StatsCache, error) {
	if f.cacheConfig.Backend == BackendMemory {
		f.logger.Info("Using in-memory stats cache")
		return f.CreateInMemoryCache(), nil
	}
	if f.cacheConfig.Backend != "" && f.cacheConfig.Backend != BackendRedis {
		return nil, fmt.Errorf("unknown cache backend %q", f.cacheConfig.Backend)
	}

	c, err := f.CreateRedisCache(ctx)
	if err == nil {
		f.logger.Info("Using Redis stats cache", zap.String("addr", f.redisConfig.Addr()))
		return c, nil
	}
	if !f.cacheConfig.FallbackToMemory {
		return nil, fmt.Errorf("Redis required for stats cache but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory stats cache. "+
		"Invalidations will not reach other instances.",
		zap.Error(err))
	return f.CreateInMemoryCache(), nil
}
