package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/saas/backoffice/internal/domain/report"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStatsCache_GetSet(t *testing.T) {
	cache := NewInMemoryStatsCache()
	defer cache.Close()
	ctx := context.Background()

	var got report.InvoiceTotals
	hit, err := cache.Get(ctx, "stats:all:invoices:month", &got)
	require.NoError(t, err)
	assert.False(t, hit)

	want := report.InvoiceTotals{Paid: decimal.RequireFromString("350.25"), PaidCount: 3}
	require.NoError(t, cache.Set(ctx, "stats:all:invoices:month", want, time.Minute))

	hit, err = cache.Get(ctx, "stats:all:invoices:month", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.True(t, want.Paid.Equal(got.Paid))
	assert.Equal(t, int64(3), got.PaidCount)

	hits, misses := cache.GetStats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestInMemoryStatsCache_CopiesSlices(t *testing.T) {
	cache := NewInMemoryStatsCache()
	defer cache.Close()
	ctx := context.Background()

	series := []report.DailyRevenue{{Date: "2026-03-05", Count: 1}}
	require.NoError(t, cache.Set(ctx, "k", series, time.Minute))
	series[0].Count = 99

	var first []report.DailyRevenue
	_, err := cache.Get(ctx, "k", &first)
	require.NoError(t, err)
	first[0].Count = 42

	var second []report.DailyRevenue
	_, err = cache.Get(ctx, "k", &second)
	require.NoError(t, err)
	assert.Equal(t, int64(1), second[0].Count)
}

func TestInMemoryStatsCache_Expiry(t *testing.T) {
	cache := NewInMemoryStatsCache()
	defer cache.Close()
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "short", 1, 10*time.Millisecond))
	time.Sleep(20 * time.Millisecond)

	var v int
	hit, err := cache.Get(ctx, "short", &v)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 0, cache.Count())
}

func TestInMemoryStatsCache_Cleanup(t *testing.T) {
	cache := NewInMemoryStatsCache(WithCleanupInterval(10 * time.Millisecond))
	defer cache.Close()

	require.NoError(t, cache.Set(context.Background(), "short", 1, 5*time.Millisecond))
	assert.Eventually(t, func() bool { return cache.Count() == 0 }, time.Second, 10*time.Millisecond)
}

func TestInMemoryStatsCache_Invalidate(t *testing.T) {
	cache := NewInMemoryStatsCache()
	defer cache.Close()
	ctx := context.Background()

	tenantA := uuid.New()
	tenantB := uuid.New()
	keys := []string{
		report.StatsKey(&tenantA, "revenue", "month"),
		report.StatsKey(&tenantA, "churn", "month"),
		report.StatsKey(&tenantB, "revenue", "month"),
		report.StatsKey(nil, "revenue", "month"),
	}
	for _, k := range keys {
		require.NoError(t, cache.Set(ctx, k, 1, time.Minute))
	}

	for _, p := range report.StalePatterns(&tenantA) {
		require.NoError(t, cache.Invalidate(ctx, p))
	}

	var v int
	for i, k := range keys {
		hit, err := cache.Get(ctx, k, &v)
		require.NoError(t, err)
		assert.Equal(t, i == 2, hit, k)
	}

	t.Run("malformed pattern", func(t *testing.T) {
		assert.Error(t, cache.Invalidate(ctx, "stats:["))
	})
}

func TestInMemoryStatsCache_Concurrent(t *testing.T) {
	cache := NewInMemoryStatsCache()
	defer cache.Close()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var v int
			_ = cache.Set(ctx, "shared", i, time.Minute)
			_, _ = cache.Get(ctx, "shared", &v)
			_ = cache.Invalidate(ctx, "stats:*")
		}(i)
	}
	wg.Wait()
}

func TestInMemoryStatsCache_CloseTwice(t *testing.T) {
	cache := NewInMemoryStatsCache()
	assert.NoError(t, cache.Close())
	assert.NoError(t, cache.Close())
}
