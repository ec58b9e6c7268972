package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/saas/backoffice/internal/domain/report"
	"github.com/saas/backoffice/internal/domain/shared"
	"github.com/saas/backoffice/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	// DefaultTopLimit is the ranking size used when the caller asks for none
	DefaultTopLimit = 10
	// MaxTopLimit caps ranking requests
	MaxTopLimit = 100
	// DefaultSystemQueryTimeout bounds system-wide aggregations
	DefaultSystemQueryTimeout = 30 * time.Second
)

// Cached metric names, the third segment of a stats key
const (
	metricRevenue     = "revenue"
	metricProjected   = "projected"
	metricGrowth      = "growth"
	metricChurn       = "churn"
	metricRetention   = "retention"
	metricTop         = "top"
	metricCosts       = "costs"
	metricSummary     = "summary"
	metricDaily       = "daily"
	metricTrends      = "trends"
	metricOutstanding = "outstanding"
	metricExpiring    = "expiring"
	metricAlerts      = "alerts"
)

// AggregationService computes financial metrics for one tenant or, with a nil
// tenant, across every tenant. Results are memoized in the stats cache.
type AggregationService struct {
	repo          report.FinancialReportRepository
	stats         *report.CachedStats
	systemTimeout time.Duration
	logger        *zap.Logger
}

// AggregationOption is a functional option for configuring AggregationService
type AggregationOption func(*AggregationService)

// WithSystemQueryTimeout bounds system-wide aggregations. Zero disables the bound.
func WithSystemQueryTimeout(d time.Duration) AggregationOption {
	return func(s *AggregationService) {
		s.systemTimeout = d
	}
}

// WithAggregationLogger sets the logger
func WithAggregationLogger(logger *zap.Logger) AggregationOption {
	return func(s *AggregationService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewAggregationService creates a new AggregationService. A nil stats front
// computes every metric on each call.
func NewAggregationService(repo report.FinancialReportRepository, stats *report.CachedStats, opts ...AggregationOption) *AggregationService {
	s := &AggregationService{
		repo:          repo,
		stats:         stats,
		systemTimeout: DefaultSystemQueryTimeout,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RevenueInRange sums paid invoices created in [start, end)
func (s *AggregationService) RevenueInRange(ctx context.Context, tenantID *uuid.UUID, start, end time.Time) (decimal.Decimal, error) {
	r, err := report.NewDateRange(start, end)
	if err != nil {
		return decimal.Zero, err
	}
	return s.revenue(ctx, tenantID, r)
}

func (s *AggregationService) revenue(ctx context.Context, tenantID *uuid.UUID, r report.DateRange) (decimal.Decimal, error) {
	return aggregate(ctx, s, tenantID, metricRevenue, r.Key(), func(ctx context.Context) (decimal.Decimal, error) {
		return s.repo.SumPaidInvoices(ctx, tenantID, r)
	})
}

// ProjectedRevenue sums the amount of every active subscription
func (s *AggregationService) ProjectedRevenue(ctx context.Context, tenantID *uuid.UUID) (decimal.Decimal, error) {
	return aggregate(ctx, s, tenantID, metricProjected, "current", func(ctx context.Context) (decimal.Decimal, error) {
		return s.repo.SumActiveSubscriptions(ctx, tenantID)
	})
}

// GrowthRate compares fn over [start, end) with the window of equal length
// before it. name identifies the metric in the cache key.
func (s *AggregationService) GrowthRate(ctx context.Context, tenantID *uuid.UUID, name string, fn report.MetricFunc, start, end time.Time) (float64, error) {
	r, err := report.NewDateRange(start, end)
	if err != nil {
		return 0, err
	}
	return s.growth(ctx, tenantID, name, fn, r)
}

func (s *AggregationService) growth(ctx context.Context, tenantID *uuid.UUID, name string, fn report.MetricFunc, r report.DateRange) (float64, error) {
	return aggregate(ctx, s, tenantID, metricGrowth+"."+name, r.Key(), func(ctx context.Context) (float64, error) {
		current, err := fn(ctx, r)
		if err != nil {
			return 0, err
		}
		previous, err := fn(ctx, r.Previous())
		if err != nil {
			return 0, err
		}
		return report.GrowthRate(previous, current), nil
	})
}

// RevenueGrowth is the growth rate of paid revenue
func (s *AggregationService) RevenueGrowth(ctx context.Context, tenantID *uuid.UUID, start, end time.Time) (float64, error) {
	return s.GrowthRate(ctx, tenantID, metricRevenue, s.revenueFunc(tenantID), start, end)
}

func (s *AggregationService) revenueFunc(tenantID *uuid.UUID) report.MetricFunc {
	return func(ctx context.Context, r report.DateRange) (decimal.Decimal, error) {
		return s.repo.SumPaidInvoices(ctx, tenantID, r)
	}
}

// ChurnRate is the share of subscriptions existing before start that were
// cancelled with an end date inside [start, end)
func (s *AggregationService) ChurnRate(ctx context.Context, tenantID *uuid.UUID, start, end time.Time) (float64, error) {
	r, err := report.NewDateRange(start, end)
	if err != nil {
		return 0, err
	}
	return s.churn(ctx, tenantID, r)
}

func (s *AggregationService) churn(ctx context.Context, tenantID *uuid.UUID, r report.DateRange) (float64, error) {
	return aggregate(ctx, s, tenantID, metricChurn, r.Key(), func(ctx context.Context) (float64, error) {
		cancelled, err := s.repo.CountCancelledEndingIn(ctx, tenantID, r)
		if err != nil {
			return 0, err
		}
		base, err := s.repo.CountSubscriptionsCreatedBefore(ctx, tenantID, r.Start)
		if err != nil {
			return 0, err
		}
		return report.ChurnRate(cancelled, base), nil
	})
}

// RetentionRate is the share of subscriptions created before asOf that are still active
func (s *AggregationService) RetentionRate(ctx context.Context, tenantID *uuid.UUID, asOf time.Time) (float64, error) {
	if asOf.IsZero() {
		return 0, shared.NewInvalidRangeError("retention requires a reference time")
	}
	asOf = asOf.UTC()
	return aggregate(ctx, s, tenantID, metricRetention, asOf.Format(time.RFC3339), func(ctx context.Context) (float64, error) {
		retained, err := s.repo.CountActiveCreatedBefore(ctx, tenantID, asOf)
		if err != nil {
			return 0, err
		}
		base, err := s.repo.CountSubscriptionsCreatedBefore(ctx, tenantID, asOf)
		if err != nil {
			return 0, err
		}
		return report.RetentionRate(retained, base), nil
	})
}

// TopEntities ranks providers of a tenant, or tenants system-wide, by paid revenue
func (s *AggregationService) TopEntities(ctx context.Context, tenantID *uuid.UUID, start, end time.Time, limit int) ([]report.EntityRevenue, error) {
	r, err := report.NewDateRange(start, end)
	if err != nil {
		return nil, err
	}
	limit = clampLimit(limit)
	return s.top(ctx, tenantID, r, limit)
}

func (s *AggregationService) top(ctx context.Context, tenantID *uuid.UUID, r report.DateRange, limit int) ([]report.EntityRevenue, error) {
	period := fmt.Sprintf("%s:%d", r.Key(), limit)
	return aggregate(ctx, s, tenantID, metricTop, period, func(ctx context.Context) ([]report.EntityRevenue, error) {
		var (
			ranked []report.EntityRevenue
			err    error
		)
		if tenantID != nil {
			ranked, err = s.repo.TopProviders(ctx, *tenantID, r, limit)
		} else {
			ranked, err = s.repo.TopTenants(ctx, r, limit)
		}
		if err != nil {
			return nil, err
		}
		if ranked == nil {
			ranked = []report.EntityRevenue{}
		}
		return ranked, nil
	})
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultTopLimit
	case limit > MaxTopLimit:
		return MaxTopLimit
	}
	return limit
}

// Costs adds the plan cost of active subscriptions to the processing fees
// charged on revenue collected in r
func (s *AggregationService) Costs(ctx context.Context, tenantID *uuid.UUID, r report.DateRange) (*report.CostBreakdown, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return aggregate(ctx, s, tenantID, metricCosts, r.Key(), func(ctx context.Context) (*report.CostBreakdown, error) {
		planCosts, err := s.repo.SumActiveSubscriptions(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		revenue, err := s.repo.SumPaidInvoices(ctx, tenantID, r)
		if err != nil {
			return nil, err
		}
		fees := revenue.Mul(report.ProcessingFeeRate).Round(2)
		return &report.CostBreakdown{
			PlanCosts:      planCosts,
			ProcessingFees: fees,
			Total:          planCosts.Add(fees),
		}, nil
	})
}

// FinancialSummary assembles the headline figures of a window
func (s *AggregationService) FinancialSummary(ctx context.Context, tenantID *uuid.UUID, r report.DateRange) (*report.FinancialSummary, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return aggregate(ctx, s, tenantID, metricSummary, r.Key(), func(ctx context.Context) (*report.FinancialSummary, error) {
		totals, err := s.repo.InvoiceTotals(ctx, tenantID, r)
		if err != nil {
			return nil, err
		}
		costs, err := s.Costs(ctx, tenantID, r)
		if err != nil {
			return nil, err
		}
		providers, err := s.repo.CountActiveProviders(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		projected, err := s.ProjectedRevenue(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		growth, err := s.growth(ctx, tenantID, metricRevenue, s.revenueFunc(tenantID), r)
		if err != nil {
			return nil, err
		}
		churn, err := s.churn(ctx, tenantID, r)
		if err != nil {
			return nil, err
		}
		retention, err := s.RetentionRate(ctx, tenantID, r.End)
		if err != nil {
			return nil, err
		}

		revenue := totals.Paid
		net := revenue.Sub(costs.Total)
		summary := &report.FinancialSummary{
			TenantID:                tenantID,
			Period:                  r,
			TotalRevenue:            revenue,
			PendingRevenue:          totals.Pending,
			OverdueAmount:           totals.Overdue,
			TotalCosts:              costs.Total,
			NetProfit:               net,
			ProfitMargin:            report.PercentOf(net, revenue),
			ActiveProviders:         providers,
			AverageRevenuePerEntity: average(revenue, providers),
			AverageTicket:           average(revenue, totals.PaidCount),
			PaymentRate:             report.Ratio(totals.PaidCount, totals.InvoiceCount),
			ProjectedRevenue:        projected,
			RevenueGrowth:           growth,
			ChurnRate:               churn,
			RetentionRate:           retention,
		}
		return summary, nil
	})
}

func average(total decimal.Decimal, n int64) decimal.Decimal {
	if n <= 0 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromInt(n)).Round(2)
}

// RevenueByDay returns paid revenue per day in r, oldest first
func (s *AggregationService) RevenueByDay(ctx context.Context, tenantID *uuid.UUID, r report.DateRange) ([]report.DailyRevenue, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return aggregate(ctx, s, tenantID, metricDaily, r.Key(), func(ctx context.Context) ([]report.DailyRevenue, error) {
		days, err := s.repo.DailyPaidRevenue(ctx, tenantID, r)
		if err != nil {
			return nil, err
		}
		if days == nil {
			days = []report.DailyRevenue{}
		}
		return days, nil
	})
}

// MonthlyTrends returns revenue, processing costs and profit for the last
// months calendar months, oldest first
func (s *AggregationService) MonthlyTrends(ctx context.Context, tenantID *uuid.UUID, months int) ([]report.MonthlyTrend, error) {
	if months < 1 || months > 36 {
		return nil, shared.NewInvalidRangeError("months must be between 1 and 36, got %d", months)
	}
	windows := report.MonthsBack(shared.Now(), months)
	period := fmt.Sprintf("%s:%d", windows[len(windows)-1].Start.Format("200601"), months)

	return aggregate(ctx, s, tenantID, metricTrends, period, func(ctx context.Context) ([]report.MonthlyTrend, error) {
		trends := make([]report.MonthlyTrend, 0, len(windows))
		for _, w := range windows {
			revenue, err := s.repo.SumPaidInvoices(ctx, tenantID, w)
			if err != nil {
				return nil, err
			}
			costs := revenue.Mul(report.ProcessingFeeRate).Round(2)
			trends = append(trends, report.MonthlyTrend{
				Year:    w.Start.Year(),
				Month:   int(w.Start.Month()),
				Revenue: revenue,
				Costs:   costs,
				Profit:  revenue.Sub(costs),
			})
		}
		return trends, nil
	})
}

// OutstandingByTenant lists pending and overdue receivables per tenant.
// It is a system-wide report.
func (s *AggregationService) OutstandingByTenant(ctx context.Context, r report.DateRange) ([]report.TenantOutstanding, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return aggregate(ctx, s, nil, metricOutstanding, r.Key(), func(ctx context.Context) ([]report.TenantOutstanding, error) {
		rows, err := s.repo.OutstandingByTenant(ctx, r)
		if err != nil {
			return nil, err
		}
		if rows == nil {
			rows = []report.TenantOutstanding{}
		}
		return rows, nil
	})
}

// ExpiringSubscriptions lists active subscriptions whose end date is before asOf
func (s *AggregationService) ExpiringSubscriptions(ctx context.Context, tenantID *uuid.UUID, asOf time.Time) ([]report.ExpiringSubscription, error) {
	if asOf.IsZero() {
		asOf = shared.Now()
	}
	asOf = asOf.UTC()
	return aggregate(ctx, s, tenantID, metricExpiring, asOf.Format(time.RFC3339), func(ctx context.Context) ([]report.ExpiringSubscription, error) {
		subs, err := s.repo.ExpiringSubscriptions(ctx, tenantID, asOf)
		if err != nil {
			return nil, err
		}
		if subs == nil {
			subs = []report.ExpiringSubscription{}
		}
		return subs, nil
	})
}

// Alerts flags overdue receivables, a low payment rate over r and active
// subscriptions that outlived their end date
func (s *AggregationService) Alerts(ctx context.Context, tenantID *uuid.UUID, r report.DateRange) ([]report.Alert, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return aggregate(ctx, s, tenantID, metricAlerts, r.Key(), func(ctx context.Context) ([]report.Alert, error) {
		asOf := shared.Now().UTC()
		if r.End.Before(asOf) {
			asOf = r.End
		}

		alerts := []report.Alert{}
		pastDue, err := s.repo.PastDueInvoices(ctx, tenantID, asOf)
		if err != nil {
			return nil, err
		}
		totals, err := s.repo.InvoiceTotals(ctx, tenantID, r)
		if err != nil {
			return nil, err
		}
		if pastDue.Count > 0 {
			severity := report.AlertSeverityWarning
			if pastDue.Amount.GreaterThan(totals.Paid) {
				severity = report.AlertSeverityCritical
			}
			alerts = append(alerts, report.Alert{
				Code:     report.AlertOverdueInvoices,
				Severity: severity,
				Message:  fmt.Sprintf("%d invoices are past their due date", pastDue.Count),
				Count:    pastDue.Count,
				Amount:   pastDue.Amount,
			})
		}

		if totals.InvoiceCount > 0 {
			rate := report.Ratio(totals.PaidCount, totals.InvoiceCount)
			if rate < report.LowPaymentRateThreshold {
				alerts = append(alerts, report.Alert{
					Code:     report.AlertLowPaymentRate,
					Severity: report.AlertSeverityWarning,
					Message:  fmt.Sprintf("payment rate is below %.0f%%", report.LowPaymentRateThreshold),
					Amount:   totals.Pending.Add(totals.Overdue),
					Value:    rate,
				})
			}
		}

		expiring, err := s.repo.ExpiringSubscriptions(ctx, tenantID, asOf)
		if err != nil {
			return nil, err
		}
		if len(expiring) > 0 {
			amount := decimal.Zero
			for _, e := range expiring {
				amount = amount.Add(e.Amount)
			}
			alerts = append(alerts, report.Alert{
				Code:     report.AlertExpiring,
				Severity: report.AlertSeverityWarning,
				Message:  fmt.Sprintf("%d active subscriptions passed their end date", len(expiring)),
				Count:    int64(len(expiring)),
				Amount:   amount,
			})
		}
		return alerts, nil
	})
}

// aggregate runs compute through the stats cache inside a span. System-wide
// calls are bounded by the system query timeout; a deadline hit surfaces as
// a timeout error and nothing partial is returned or cached.
func aggregate[T any](ctx context.Context, s *AggregationService, tenantID *uuid.UUID, metric, period string, compute func(ctx context.Context) (T, error)) (T, error) {
	scope := "tenant"
	if tenantID == nil {
		scope = "system"
	}
	ctx, span := telemetry.StartServiceSpan(ctx, "report", metric,
		telemetry.WithAttribute(telemetry.SpanAttrScope, scope),
		telemetry.WithAttribute(telemetry.SpanAttrPeriod, period))
	defer span.End()
	if tenantID != nil {
		telemetry.SetAttribute(span, telemetry.SpanAttrTenantID, tenantID.String())
	}

	if tenantID == nil && s.systemTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.systemTimeout)
		defer cancel()
	}

	key := report.StatsKey(tenantID, metric, period)
	var (
		value T
		err   error
	)
	telemetry.WithProfilingLabels(ctx, telemetry.OperationLabels("report."+metric, map[string]string{"scope": scope}), func(c context.Context) {
		value, err = report.GetOrCompute(c, s.stats, key, 0, compute)
	})
	if err != nil {
		err = s.classify(ctx, metric, err)
		telemetry.RecordError(span, err)
		var zero T
		return zero, err
	}
	telemetry.SetOK(span)
	return value, nil
}

func (s *AggregationService) classify(ctx context.Context, metric string, err error) error {
	if shared.KindOf(err) != "" {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		s.logger.Warn("Aggregation exceeded its timeout",
			zap.String("metric", metric),
			zap.Duration("timeout", s.systemTimeout))
		return shared.NewTimeoutError("aggregation "+metric, err)
	}
	return fmt.Errorf("aggregate %s: %w", metric, err)
}
