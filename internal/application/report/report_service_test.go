package report

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/saas/backoffice/internal/domain/billing"
	"github.com/saas/backoffice/internal/domain/report"
	"github.com/saas/backoffice/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type reportEnv struct {
	*aggregationEnv
	plans *MockPlanRepository
	svc   *ReportService
}

func newReportEnv(t *testing.T) *reportEnv {
	agg := newAggregationEnv(t)
	env := &reportEnv{aggregationEnv: agg, plans: new(MockPlanRepository)}
	env.svc = NewReportService(agg.svc, agg.repo, env.plans, report.NewCachedStats(agg.cache), zap.NewNop())
	return env
}

func newPlan(t *testing.T, name, price string, cycle billing.BillingCycle) *billing.Plan {
	t.Helper()
	plan, err := billing.NewPlan(billing.PlanDetails{
		Name:         name,
		Price:        dec(price),
		BillingCycle: cycle,
	}, billing.PlanStatusActive)
	require.NoError(t, err)
	return plan
}

func TestPeriodQuery_Resolve(t *testing.T) {
	prev := shared.Now
	shared.Now = func() time.Time { return reportNow }
	t.Cleanup(func() { shared.Now = prev })

	r, err := PeriodQuery{}.Resolve()
	require.NoError(t, err)
	assert.Equal(t, march, r)

	start, end := march.Start.AddDate(0, 0, 5), march.Start.AddDate(0, 0, 10)
	r, err = PeriodQuery{Period: "year", Start: &start, End: &end}.Resolve()
	require.NoError(t, err)
	assert.Equal(t, start, r.Start)
	assert.Equal(t, end, r.End)

	_, err = PeriodQuery{Start: &start}.Resolve()
	assert.Equal(t, shared.KindInvalidRange, shared.KindOf(err))

	_, err = PeriodQuery{Period: "fortnight"}.Resolve()
	assert.Equal(t, shared.KindInvalidRange, shared.KindOf(err))
}

func TestReportService_Dashboard(t *testing.T) {
	env := newReportEnv(t)
	tid := &env.tenantID
	env.repo.On("InvoiceTotals", mock.Anything, tid, march).Return(&report.InvoiceTotals{Paid: dec("500"), PaidCount: 5, InvoiceCount: 5}, nil)
	env.repo.On("SumActiveSubscriptions", mock.Anything, tid).Return(dec("100"), nil)
	env.repo.On("SumPaidInvoices", mock.Anything, tid, mock.Anything).Return(dec("500"), nil)
	env.repo.On("CountActiveProviders", mock.Anything, tid).Return(int64(2), nil)
	env.repo.On("CountCancelledEndingIn", mock.Anything, tid, march).Return(int64(0), nil)
	env.repo.On("CountSubscriptionsCreatedBefore", mock.Anything, tid, mock.Anything).Return(int64(4), nil)
	env.repo.On("CountActiveCreatedBefore", mock.Anything, tid, march.End).Return(int64(4), nil)
	env.repo.On("TopProviders", mock.Anything, env.tenantID, march, DefaultTopLimit).Return([]report.EntityRevenue{{Name: "Alpha"}}, nil)
	env.repo.On("DailyPaidRevenue", mock.Anything, tid, march).Return([]report.DailyRevenue{{Date: "2026-03-02", Revenue: dec("500"), Count: 5}}, nil)
	env.repo.On("PastDueInvoices", mock.Anything, tid, reportNow).Return(&report.PastDueSummary{Amount: decimal.Zero}, nil)
	env.repo.On("ExpiringSubscriptions", mock.Anything, tid, reportNow).Return([]report.ExpiringSubscription{}, nil)

	dashboard, err := env.svc.Dashboard(context.Background(), env.tenantID, PeriodQuery{Period: "month"})

	require.NoError(t, err)
	assert.Equal(t, march, dashboard.Period)
	assert.Equal(t, "500", dashboard.Summary.TotalRevenue.String())
	assert.Equal(t, 100.0, dashboard.Summary.RetentionRate)
	require.Len(t, dashboard.TopProviders, 1)
	require.Len(t, dashboard.RevenueByDay, 1)
	assert.Empty(t, dashboard.Alerts)
}

func TestReportService_DashboardFailsWhole(t *testing.T) {
	env := newReportEnv(t)
	tid := &env.tenantID
	env.repo.On("InvoiceTotals", mock.Anything, tid, mock.Anything).Return(nil, assert.AnError)
	env.repo.On("TopProviders", mock.Anything, env.tenantID, march, DefaultTopLimit).Return([]report.EntityRevenue{}, nil).Maybe()
	env.repo.On("DailyPaidRevenue", mock.Anything, tid, march).Return([]report.DailyRevenue{}, nil).Maybe()
	env.repo.On("PastDueInvoices", mock.Anything, tid, mock.Anything).Return(&report.PastDueSummary{}, nil).Maybe()

	dashboard, err := env.svc.Dashboard(context.Background(), env.tenantID, PeriodQuery{})

	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Nil(t, dashboard)
}

func TestReportService_SystemDashboard(t *testing.T) {
	env := newReportEnv(t)
	tenantA := uuid.New()
	env.repo.On("InvoiceTotals", mock.Anything, (*uuid.UUID)(nil), march).Return(&report.InvoiceTotals{}, nil)
	env.repo.On("SumActiveSubscriptions", mock.Anything, (*uuid.UUID)(nil)).Return(decimal.Zero, nil)
	env.repo.On("SumPaidInvoices", mock.Anything, (*uuid.UUID)(nil), mock.Anything).Return(decimal.Zero, nil)
	env.repo.On("CountActiveProviders", mock.Anything, (*uuid.UUID)(nil)).Return(int64(0), nil)
	env.repo.On("CountCancelledEndingIn", mock.Anything, (*uuid.UUID)(nil), march).Return(int64(0), nil)
	env.repo.On("CountSubscriptionsCreatedBefore", mock.Anything, (*uuid.UUID)(nil), mock.Anything).Return(int64(0), nil)
	env.repo.On("CountActiveCreatedBefore", mock.Anything, (*uuid.UUID)(nil), mock.Anything).Return(int64(0), nil)
	env.repo.On("TopTenants", mock.Anything, march, DefaultTopLimit).Return([]report.EntityRevenue{{EntityID: tenantA}}, nil)
	env.repo.On("OutstandingByTenant", mock.Anything, march).Return([]report.TenantOutstanding{{TenantID: tenantA, Outstanding: dec("75")}}, nil)

	dashboard, err := env.svc.SystemDashboard(context.Background(), PeriodQuery{Period: "month"})

	require.NoError(t, err)
	assert.Nil(t, dashboard.Summary.TenantID)
	assert.Equal(t, tenantA, dashboard.TopTenants[0].EntityID)
	assert.Equal(t, "75", dashboard.Outstanding[0].Outstanding.String())
	for _, key := range env.cache.keys() {
		assert.Contains(t, key, "stats:all:")
	}
}

func TestReportService_PlanStats(t *testing.T) {
	env := newReportEnv(t)
	monthly := newPlan(t, "Starter", "50", billing.BillingCycleMonthly)
	quarterly := newPlan(t, "Growth", "300", billing.BillingCycleQuarterly)
	yearly := newPlan(t, "Scale", "1200", billing.BillingCycleYearly)

	env.plans.On("CountByStatus", mock.Anything).Return(map[billing.PlanStatus]int64{
		billing.PlanStatusActive: 3, billing.PlanStatusDraft: 1,
	}, nil)
	env.plans.On("FindAll", mock.Anything, mock.Anything).Return([]billing.Plan{*monthly, *quarterly, *yearly}, int64(3), nil)
	env.repo.On("PlanSubscriptionCounts", mock.Anything, (*uuid.UUID)(nil)).Return([]report.PlanSubscriptionCount{
		{PlanID: monthly.ID, Status: "active", Count: 2, Amount: dec("100")},
		{PlanID: monthly.ID, Status: "cancelled", Count: 1, Amount: dec("50")},
		{PlanID: quarterly.ID, Status: "active", Count: 1, Amount: dec("300")},
		{PlanID: yearly.ID, Status: "active", Count: 1, Amount: dec("1200")},
		{PlanID: yearly.ID, Status: "trial", Count: 2, Amount: dec("2400")},
	}, nil)

	stats, err := env.svc.PlanStats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(4), stats.TotalPlans)
	assert.Equal(t, int64(1), stats.PlansByStatus["draft"])
	assert.Equal(t, int64(7), stats.TotalSubscriptions)
	assert.Equal(t, int64(4), stats.ActiveSubscriptions)
	assert.Equal(t, "300", stats.MonthlyRecurringRevenue.String()) // 100 + 300/3 + 1200/12
	assert.Equal(t, "3600", stats.YearlyRevenue.String())
	require.Len(t, stats.Plans, 3)
	assert.Equal(t, "100", stats.Plans[1].MonthlyRecurringRevenue.String())

	_, err = env.svc.PlanStats(context.Background())
	require.NoError(t, err)
	env.repo.AssertNumberOfCalls(t, "PlanSubscriptionCounts", 1)
}

func TestReportService_PlanDetailedStats(t *testing.T) {
	t.Run("breaks subscriptions down by status", func(t *testing.T) {
		env := newReportEnv(t)
		plan := newPlan(t, "Starter", "50", billing.BillingCycleMonthly)
		env.plans.On("FindByID", mock.Anything, plan.ID).Return(plan, nil)
		env.repo.On("PlanSubscriptionCounts", mock.Anything, &plan.ID).Return([]report.PlanSubscriptionCount{
			{PlanID: plan.ID, Status: "active", Count: 6, Amount: dec("300")},
			{PlanID: plan.ID, Status: "trial", Count: 1, Amount: dec("50")},
			{PlanID: plan.ID, Status: "pending", Count: 1, Amount: dec("50")},
			{PlanID: plan.ID, Status: "cancelled", Count: 2, Amount: dec("100")},
		}, nil)

		stats, err := env.svc.PlanDetailedStats(context.Background(), plan.ID)
		require.NoError(t, err)

		assert.Equal(t, int64(10), stats.TotalSubscriptions)
		assert.Equal(t, "300", stats.Revenue.String())
		assert.Equal(t, 20.0, stats.ChurnRate)
		assert.Equal(t, 75.0, stats.ConversionRate)
	})

	t.Run("unknown plan", func(t *testing.T) {
		env := newReportEnv(t)
		id := uuid.New()
		env.plans.On("FindByID", mock.Anything, id).Return(nil, shared.NewNotFoundError("plan"))

		_, err := env.svc.PlanDetailedStats(context.Background(), id)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestReportService_PlanAnalytics(t *testing.T) {
	env := newReportEnv(t)
	plan := newPlan(t, "Starter", "50", billing.BillingCycleMonthly)
	env.plans.On("FindByID", mock.Anything, plan.ID).Return(plan, nil)
	env.repo.On("PlanActivity", mock.Anything, plan.ID, mock.Anything).
		Return(&report.PlanMonthlyActivity{New: 1, Revenue: dec("50")}, nil)

	analytics, err := env.svc.PlanAnalytics(context.Background(), plan.ID, 0)
	require.NoError(t, err)

	require.Len(t, analytics.Months, DefaultAnalyticsMonths)
	assert.Equal(t, 2025, analytics.Months[0].Year)
	assert.Equal(t, 4, analytics.Months[0].Month)
	assert.Equal(t, 3, analytics.Months[11].Month)
	assert.Equal(t, int64(1), analytics.Months[11].New)

	_, err = env.svc.PlanAnalytics(context.Background(), plan.ID, 48)
	assert.Equal(t, shared.KindInvalidRange, shared.KindOf(err))
}
