package telemetry

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/saas/backoffice/internal/domain/report"
	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when a metrics component is built without a meter.
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// BusinessMetrics counts ledger activity: subscription transitions, plan
// changes and invoice status changes, labelled by tenant.
type BusinessMetrics struct {
	transitions *Counter
	planChanges *Counter
	invoices    *Counter
}

// NewBusinessMetrics creates the ledger counters on meter.
func NewBusinessMetrics(meter metric.Meter) (*BusinessMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	var (
		bm  BusinessMetrics
		err error
	)
	if bm.transitions, err = NewCounter(meter,
		"backoffice_subscription_transitions_total",
		"Subscription status transitions",
		"{transition}"); err != nil {
		return nil, err
	}
	if bm.planChanges, err = NewCounter(meter,
		"backoffice_plan_changes_total",
		"Plan changes by classification",
		"{change}"); err != nil {
		return nil, err
	}
	if bm.invoices, err = NewCounter(meter,
		"backoffice_invoice_status_total",
		"Invoice status changes",
		"{invoice}"); err != nil {
		return nil, err
	}
	return &bm, nil
}

// RecordSubscriptionTransition counts a subscription moving from one status to another.
func (bm *BusinessMetrics) RecordSubscriptionTransition(ctx context.Context, tenantID uuid.UUID, from, to string) {
	bm.transitions.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrFromStatus.String(from),
		AttrToStatus.String(to),
	)
}

// RecordPlanChange counts an upgrade, downgrade or lateral change.
func (bm *BusinessMetrics) RecordPlanChange(ctx context.Context, tenantID uuid.UUID, classification string) {
	bm.planChanges.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrChangeKind.String(classification),
	)
}

// RecordInvoiceStatus counts an invoice entering status.
func (bm *BusinessMetrics) RecordInvoiceStatus(ctx context.Context, tenantID uuid.UUID, status string) {
	bm.invoices.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrInvoiceStatus.String(status),
	)
}

// InstrumentedStatsCache decorates a report.StatsCache with hit, miss and
// error counters plus a latency histogram, labelled by metric name.
type InstrumentedStatsCache struct {
	next     report.StatsCache
	lookups  *Counter
	errors   *Counter
	duration *Histogram
}

var _ report.StatsCache = (*InstrumentedStatsCache)(nil)

// InstrumentStatsCache wraps next; with a nil meter it returns next unchanged.
func InstrumentStatsCache(next report.StatsCache, meter metric.Meter) (report.StatsCache, error) {
	if meter == nil {
		return next, nil
	}
	c := &InstrumentedStatsCache{next: next}
	var err error
	if c.lookups, err = NewCounter(meter, "backoffice_stats_cache_lookups_total", "Stats cache lookups by result", "{lookup}"); err != nil {
		return nil, err
	}
	if c.errors, err = NewCounter(meter, "backoffice_stats_cache_errors_total", "Stats cache backend errors", "{error}"); err != nil {
		return nil, err
	}
	if c.duration, err = NewHistogram(meter, HistogramOpts{
		Name:        "backoffice_stats_cache_duration_seconds",
		Description: "Stats cache operation latency",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	}); err != nil {
		return nil, err
	}
	return c, nil
}

// Get implements report.StatsCache.
func (c *InstrumentedStatsCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	start := time.Now()
	hit, err := c.next.Get(ctx, key, dest)
	metricAttr := AttrCacheMetric.String(metricOf(key))
	c.duration.RecordDuration(ctx, time.Since(start), metricAttr)

	switch {
	case err != nil:
		c.errors.Inc(ctx, metricAttr)
	case hit:
		c.lookups.Inc(ctx, metricAttr, AttrCacheResult.String("hit"))
	default:
		c.lookups.Inc(ctx, metricAttr, AttrCacheResult.String("miss"))
	}
	return hit, err
}

// Set implements report.StatsCache.
func (c *InstrumentedStatsCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	err := c.next.Set(ctx, key, value, ttl)
	if err != nil {
		c.errors.Inc(ctx, AttrCacheMetric.String(metricOf(key)))
	}
	return err
}

// Invalidate implements report.StatsCache.
func (c *InstrumentedStatsCache) Invalidate(ctx context.Context, pattern string) error {
	err := c.next.Invalidate(ctx, pattern)
	if err != nil {
		c.errors.Inc(ctx, AttrCacheMetric.String("invalidate"))
	}
	return err
}

// metricOf extracts the metric segment of "stats:{scope}:{metric}:{period}".
// Tenant ids stay out of the label.
func metricOf(key string) string {
	parts := strings.SplitN(key, ":", 4)
	if len(parts) < 3 {
		return "unknown"
	}
	return parts[2]
}
