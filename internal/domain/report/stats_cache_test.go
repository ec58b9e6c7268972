package report

import (
	"context"
	"encoding/json"
	"errors"
	"path"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapCache is a minimal StatsCache used to exercise CachedStats
type mapCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	getErr  error
	setErr  error
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string][]byte)}
}

func (m *mapCache) Get(_ context.Context, key string, dest any) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return false, m.getErr
	}
	raw, ok := m.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (m *mapCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	return nil
}

func (m *mapCache) Invalidate(_ context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.entries {
		if ok, _ := path.Match(pattern, k); ok {
			delete(m.entries, k)
		}
	}
	return nil
}

func TestStatsKey(t *testing.T) {
	id := uuid.MustParse("6f1c2a9e-0000-4000-8000-000000000001")

	assert.Equal(t, "stats:6f1c2a9e-0000-4000-8000-000000000001:revenue:month", StatsKey(&id, "revenue", "month"))
	assert.Equal(t, "stats:all:revenue:month", StatsKey(nil, "revenue", "month"))
	assert.Equal(t, []string{"stats:6f1c2a9e-0000-4000-8000-000000000001:*", "stats:all:*"}, StalePatterns(&id))
	assert.Equal(t, []string{"stats:*"}, StalePatterns(nil))
}

func TestGetOrCompute(t *testing.T) {
	ctx := context.Background()

	t.Run("computes once then serves from cache", func(t *testing.T) {
		stats := NewCachedStats(newMapCache())
		calls := 0
		compute := func(context.Context) (decimal.Decimal, error) {
			calls++
			return decimal.RequireFromString("100.10"), nil
		}

		first, err := GetOrCompute(ctx, stats, "stats:all:revenue:x", 0, compute)
		require.NoError(t, err)
		second, err := GetOrCompute(ctx, stats, "stats:all:revenue:x", 0, compute)
		require.NoError(t, err)

		assert.Equal(t, 1, calls)
		assert.True(t, first.Equal(second))
	})

	t.Run("invalidation forces recompute", func(t *testing.T) {
		tenantID := uuid.New()
		stats := NewCachedStats(newMapCache())
		calls := 0
		compute := func(context.Context) (int64, error) {
			calls++
			return int64(calls), nil
		}
		key := StatsKey(&tenantID, "churn", "month")

		_, err := GetOrCompute(ctx, stats, key, time.Minute, compute)
		require.NoError(t, err)
		require.NoError(t, stats.Invalidate(ctx, StalePatterns(&tenantID)...))
		v, err := GetOrCompute(ctx, stats, key, time.Minute, compute)

		require.NoError(t, err)
		assert.Equal(t, int64(2), v)
	})

	t.Run("compute errors are returned and not cached", func(t *testing.T) {
		stats := NewCachedStats(newMapCache())
		boom := errors.New("db down")
		_, err := GetOrCompute(ctx, stats, "k", 0, func(context.Context) (int, error) { return 0, boom })
		assert.ErrorIs(t, err, boom)

		v, err := GetOrCompute(ctx, stats, "k", 0, func(context.Context) (int, error) { return 7, nil })
		require.NoError(t, err)
		assert.Equal(t, 7, v)
	})

	t.Run("cache failures degrade to computing", func(t *testing.T) {
		cache := newMapCache()
		cache.getErr = errors.New("read refused")
		cache.setErr = errors.New("write refused")
		stats := NewCachedStats(cache)

		v, err := GetOrCompute(ctx, stats, "k", 0, func(context.Context) (string, error) { return "ok", nil })

		require.NoError(t, err)
		assert.Equal(t, "ok", v)
	})

	t.Run("nil cache always computes", func(t *testing.T) {
		v, err := GetOrCompute(ctx, NewCachedStats(nil), "k", 0, func(context.Context) (int, error) { return 3, nil })
		require.NoError(t, err)
		assert.Equal(t, 3, v)
	})

	t.Run("concurrent misses share one computation", func(t *testing.T) {
		stats := NewCachedStats(newMapCache())
		var calls atomic.Int32
		release := make(chan struct{})
		compute := func(context.Context) (int, error) {
			calls.Add(1)
			<-release
			return 42, nil
		}

		var wg sync.WaitGroup
		results := make([]int, 8)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i], _ = GetOrCompute(ctx, stats, "hot", 0, compute)
			}(i)
		}
		time.Sleep(50 * time.Millisecond)
		close(release)
		wg.Wait()

		assert.Equal(t, int32(1), calls.Load())
		for _, r := range results {
			assert.Equal(t, 42, r)
		}
	})
}
