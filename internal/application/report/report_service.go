package report

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/saas/backoffice/internal/domain/billing"
	"github.com/saas/backoffice/internal/domain/report"
	"github.com/saas/backoffice/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultAnalyticsMonths is the length of the plan analytics series
const DefaultAnalyticsMonths = 12

const planPageSize = 100

// ReportService assembles aggregator outputs into dashboard shapes
type ReportService struct {
	aggregator *AggregationService
	repo       report.FinancialReportRepository
	planRepo   billing.PlanRepository
	stats      *report.CachedStats
	logger     *zap.Logger
}

// NewReportService creates a new ReportService
func NewReportService(
	aggregator *AggregationService,
	repo report.FinancialReportRepository,
	planRepo billing.PlanRepository,
	stats *report.CachedStats,
	logger *zap.Logger,
) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		aggregator: aggregator,
		repo:       repo,
		planRepo:   planRepo,
		stats:      stats,
		logger:     logger,
	}
}

// PeriodQuery selects a reporting window: a named period, or an explicit
// start/end pair which takes precedence
type PeriodQuery struct {
	Period string
	Start  *time.Time
	End    *time.Time
}

// Resolve turns the query into a validated range
func (q PeriodQuery) Resolve() (report.DateRange, error) {
	switch {
	case q.Start != nil && q.End != nil:
		return report.NewDateRange(*q.Start, *q.End)
	case q.Start != nil || q.End != nil:
		return report.DateRange{}, shared.NewInvalidRangeError("start and end must be given together")
	}
	return report.ResolvePeriod(q.Period, shared.Now())
}

// DashboardDTO is the tenant financial dashboard
type DashboardDTO struct {
	Period       report.DateRange         `json:"period"`
	Summary      *report.FinancialSummary `json:"summary"`
	TopProviders []report.EntityRevenue   `json:"top_providers"`
	RevenueByDay []report.DailyRevenue    `json:"revenue_by_day"`
	Alerts       []report.Alert           `json:"alerts"`
}

// SystemDashboardDTO is the platform-wide financial dashboard
type SystemDashboardDTO struct {
	Period      report.DateRange           `json:"period"`
	Summary     *report.FinancialSummary   `json:"summary"`
	TopTenants  []report.EntityRevenue     `json:"top_tenants"`
	Outstanding []report.TenantOutstanding `json:"outstanding"`
}

// PlanRevenueDTO is the recurring revenue contributed by one plan
type PlanRevenueDTO struct {
	PlanID                  uuid.UUID       `json:"plan_id"`
	Name                    string          `json:"name"`
	BillingCycle            string          `json:"billing_cycle"`
	ActiveSubscriptions     int64           `json:"active_subscriptions"`
	MonthlyRecurringRevenue decimal.Decimal `json:"monthly_recurring_revenue"`
}

// PlanStatsDTO summarizes the plan catalog
type PlanStatsDTO struct {
	TotalPlans              int64            `json:"total_plans"`
	PlansByStatus           map[string]int64 `json:"plans_by_status"`
	TotalSubscriptions      int64            `json:"total_subscriptions"`
	ActiveSubscriptions     int64            `json:"active_subscriptions"`
	MonthlyRecurringRevenue decimal.Decimal  `json:"monthly_recurring_revenue"`
	YearlyRevenue           decimal.Decimal  `json:"yearly_revenue"`
	Plans                   []PlanRevenueDTO `json:"plans"`
}

// PlanDetailedStatsDTO breaks the subscriptions of one plan down by status
type PlanDetailedStatsDTO struct {
	PlanID                 uuid.UUID       `json:"plan_id"`
	Name                   string          `json:"name"`
	TotalSubscriptions     int64           `json:"total_subscriptions"`
	ActiveSubscriptions    int64           `json:"active_subscriptions"`
	TrialSubscriptions     int64           `json:"trial_subscriptions"`
	PendingSubscriptions   int64           `json:"pending_subscriptions"`
	CancelledSubscriptions int64           `json:"cancelled_subscriptions"`
	Revenue                decimal.Decimal `json:"revenue"`
	ChurnRate              float64         `json:"churn_rate"`
	ConversionRate         float64         `json:"conversion_rate"`
}

// PlanAnalyticsDTO is a monthly activity series of one plan
type PlanAnalyticsDTO struct {
	PlanID uuid.UUID                    `json:"plan_id"`
	Months []report.PlanMonthlyActivity `json:"months"`
}

// Dashboard assembles the tenant dashboard. The parts are fetched concurrently.
func (s *ReportService) Dashboard(ctx context.Context, tenantID uuid.UUID, q PeriodQuery) (*DashboardDTO, error) {
	r, err := q.Resolve()
	if err != nil {
		return nil, err
	}
	dashboard := &DashboardDTO{Period: r}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		summary, err := s.aggregator.FinancialSummary(gctx, &tenantID, r)
		dashboard.Summary = summary
		return err
	})
	g.Go(func() error {
		top, err := s.aggregator.top(gctx, &tenantID, r, DefaultTopLimit)
		dashboard.TopProviders = top
		return err
	})
	g.Go(func() error {
		days, err := s.aggregator.RevenueByDay(gctx, &tenantID, r)
		dashboard.RevenueByDay = days
		return err
	})
	g.Go(func() error {
		alerts, err := s.aggregator.Alerts(gctx, &tenantID, r)
		dashboard.Alerts = alerts
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Warn("Failed to build dashboard",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err))
		return nil, err
	}
	return dashboard, nil
}

// SystemDashboard assembles the platform-wide dashboard
func (s *ReportService) SystemDashboard(ctx context.Context, q PeriodQuery) (*SystemDashboardDTO, error) {
	r, err := q.Resolve()
	if err != nil {
		return nil, err
	}
	dashboard := &SystemDashboardDTO{Period: r}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		summary, err := s.aggregator.FinancialSummary(gctx, nil, r)
		dashboard.Summary = summary
		return err
	})
	g.Go(func() error {
		top, err := s.aggregator.top(gctx, nil, r, DefaultTopLimit)
		dashboard.TopTenants = top
		return err
	})
	g.Go(func() error {
		outstanding, err := s.aggregator.OutstandingByTenant(gctx, r)
		dashboard.Outstanding = outstanding
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Warn("Failed to build system dashboard", zap.Error(err))
		return nil, err
	}
	return dashboard, nil
}

// PlanStats summarizes plans and their recurring revenue. Revenue of
// quarterly and yearly plans is normalized to a month.
func (s *ReportService) PlanStats(ctx context.Context) (*PlanStatsDTO, error) {
	return report.GetOrCompute(ctx, s.stats, report.StatsKey(nil, "plans", "current"), 0, func(ctx context.Context) (*PlanStatsDTO, error) {
		byStatus, err := s.planRepo.CountByStatus(ctx)
		if err != nil {
			return nil, fmt.Errorf("count plans: %w", err)
		}
		plans, err := s.allPlans(ctx)
		if err != nil {
			return nil, err
		}
		rows, err := s.repo.PlanSubscriptionCounts(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("plan subscription counts: %w", err)
		}

		stats := &PlanStatsDTO{
			PlansByStatus:           make(map[string]int64, len(byStatus)),
			MonthlyRecurringRevenue: decimal.Zero,
			YearlyRevenue:           decimal.Zero,
			Plans:                   make([]PlanRevenueDTO, 0, len(plans)),
		}
		for status, n := range byStatus {
			stats.PlansByStatus[string(status)] = n
			stats.TotalPlans += n
		}

		perPlan := make(map[uuid.UUID]*PlanRevenueDTO, len(plans))
		for i := range plans {
			p := &plans[i]
			stats.Plans = append(stats.Plans, PlanRevenueDTO{
				PlanID:                  p.ID,
				Name:                    p.Name,
				BillingCycle:            string(p.BillingCycle),
				MonthlyRecurringRevenue: decimal.Zero,
			})
			perPlan[p.ID] = &stats.Plans[len(stats.Plans)-1]
		}

		cycles := make(map[uuid.UUID]billing.BillingCycle, len(plans))
		for _, p := range plans {
			cycles[p.ID] = p.BillingCycle
		}
		for _, row := range rows {
			stats.TotalSubscriptions += row.Count
			if row.Status != string(billing.SubscriptionStatusActive) {
				continue
			}
			stats.ActiveSubscriptions += row.Count
			cycle, ok := cycles[row.PlanID]
			if !ok {
				cycle = billing.BillingCycleMonthly
			}
			mrr := cycle.MonthlyEquivalent(row.Amount)
			stats.MonthlyRecurringRevenue = stats.MonthlyRecurringRevenue.Add(mrr)
			if p, ok := perPlan[row.PlanID]; ok {
				p.ActiveSubscriptions += row.Count
				p.MonthlyRecurringRevenue = p.MonthlyRecurringRevenue.Add(mrr).Round(2)
			}
		}
		stats.MonthlyRecurringRevenue = stats.MonthlyRecurringRevenue.Round(2)
		stats.YearlyRevenue = stats.MonthlyRecurringRevenue.Mul(decimal.NewFromInt(12))
		return stats, nil
	})
}

func (s *ReportService) allPlans(ctx context.Context) ([]billing.Plan, error) {
	var plans []billing.Plan
	for page := 1; ; page++ {
		batch, total, err := s.planRepo.FindAll(ctx, shared.Filter{Page: page, PageSize: planPageSize}.Normalize())
		if err != nil {
			return nil, fmt.Errorf("list plans: %w", err)
		}
		plans = append(plans, batch...)
		if len(batch) == 0 || int64(len(plans)) >= total {
			return plans, nil
		}
	}
}

// PlanDetailedStats breaks down the subscriptions of a plan
func (s *ReportService) PlanDetailedStats(ctx context.Context, planID uuid.UUID) (*PlanDetailedStatsDTO, error) {
	plan, err := s.planRepo.FindByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	return report.GetOrCompute(ctx, s.stats, report.StatsKey(nil, "plan."+planID.String(), "current"), 0, func(ctx context.Context) (*PlanDetailedStatsDTO, error) {
		rows, err := s.repo.PlanSubscriptionCounts(ctx, &planID)
		if err != nil {
			return nil, fmt.Errorf("plan subscription counts: %w", err)
		}
		stats := &PlanDetailedStatsDTO{
			PlanID:  plan.ID,
			Name:    plan.Name,
			Revenue: decimal.Zero,
		}
		for _, row := range rows {
			stats.TotalSubscriptions += row.Count
			switch billing.SubscriptionStatus(row.Status) {
			case billing.SubscriptionStatusActive:
				stats.ActiveSubscriptions += row.Count
				stats.Revenue = stats.Revenue.Add(row.Amount)
			case billing.SubscriptionStatusTrial:
				stats.TrialSubscriptions += row.Count
			case billing.SubscriptionStatusPending:
				stats.PendingSubscriptions += row.Count
			case billing.SubscriptionStatusCancelled:
				stats.CancelledSubscriptions += row.Count
			}
		}
		stats.ChurnRate = report.Ratio(stats.CancelledSubscriptions, stats.TotalSubscriptions)
		stats.ConversionRate = report.Ratio(stats.ActiveSubscriptions,
			stats.ActiveSubscriptions+stats.PendingSubscriptions+stats.TrialSubscriptions)
		return stats, nil
	})
}

// PlanAnalytics returns the monthly activity of a plan, oldest month first.
// months defaults to a year.
func (s *ReportService) PlanAnalytics(ctx context.Context, planID uuid.UUID, months int) (*PlanAnalyticsDTO, error) {
	if months <= 0 {
		months = DefaultAnalyticsMonths
	}
	if months > 36 {
		return nil, shared.NewInvalidRangeError("months must be at most 36, got %d", months)
	}
	if _, err := s.planRepo.FindByID(ctx, planID); err != nil {
		return nil, err
	}

	windows := report.MonthsBack(shared.Now(), months)
	period := fmt.Sprintf("%s:%d", windows[len(windows)-1].Start.Format("200601"), months)
	return report.GetOrCompute(ctx, s.stats, report.StatsKey(nil, "plan_analytics."+planID.String(), period), 0, func(ctx context.Context) (*PlanAnalyticsDTO, error) {
		out := &PlanAnalyticsDTO{PlanID: planID, Months: make([]report.PlanMonthlyActivity, 0, len(windows))}
		for _, w := range windows {
			activity, err := s.repo.PlanActivity(ctx, planID, w)
			if err != nil {
				return nil, fmt.Errorf("plan activity: %w", err)
			}
			activity.Year = w.Start.Year()
			activity.Month = int(w.Start.Month())
			out.Months = append(out.Months, *activity)
		}
		return out, nil
	})
}
