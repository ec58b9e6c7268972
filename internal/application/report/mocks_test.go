package report

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/saas/backoffice/internal/domain/billing"
	"github.com/saas/backoffice/internal/domain/report"
	"github.com/saas/backoffice/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type MockFinancialReportRepository struct {
	mock.Mock
}

func (m *MockFinancialReportRepository) SumPaidInvoices(ctx context.Context, tenantID *uuid.UUID, r report.DateRange) (decimal.Decimal, error) {
	args := m.Called(ctx, tenantID, r)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockFinancialReportRepository) InvoiceTotals(ctx context.Context, tenantID *uuid.UUID, r report.DateRange) (*report.InvoiceTotals, error) {
	args := m.Called(ctx, tenantID, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*report.InvoiceTotals), args.Error(1)
}

func (m *MockFinancialReportRepository) SumActiveSubscriptions(ctx context.Context, tenantID *uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockFinancialReportRepository) CountCancelledEndingIn(ctx context.Context, tenantID *uuid.UUID, r report.DateRange) (int64, error) {
	args := m.Called(ctx, tenantID, r)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockFinancialReportRepository) CountSubscriptionsCreatedBefore(ctx context.Context, tenantID *uuid.UUID, t time.Time) (int64, error) {
	args := m.Called(ctx, tenantID, t)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockFinancialReportRepository) CountActiveCreatedBefore(ctx context.Context, tenantID *uuid.UUID, t time.Time) (int64, error) {
	args := m.Called(ctx, tenantID, t)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockFinancialReportRepository) CountActiveProviders(ctx context.Context, tenantID *uuid.UUID) (int64, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockFinancialReportRepository) TopProviders(ctx context.Context, tenantID uuid.UUID, r report.DateRange, limit int) ([]report.EntityRevenue, error) {
	args := m.Called(ctx, tenantID, r, limit)
	return args.Get(0).([]report.EntityRevenue), args.Error(1)
}

func (m *MockFinancialReportRepository) TopTenants(ctx context.Context, r report.DateRange, limit int) ([]report.EntityRevenue, error) {
	args := m.Called(ctx, r, limit)
	return args.Get(0).([]report.EntityRevenue), args.Error(1)
}

func (m *MockFinancialReportRepository) DailyPaidRevenue(ctx context.Context, tenantID *uuid.UUID, r report.DateRange) ([]report.DailyRevenue, error) {
	args := m.Called(ctx, tenantID, r)
	return args.Get(0).([]report.DailyRevenue), args.Error(1)
}

func (m *MockFinancialReportRepository) OutstandingByTenant(ctx context.Context, r report.DateRange) ([]report.TenantOutstanding, error) {
	args := m.Called(ctx, r)
	return args.Get(0).([]report.TenantOutstanding), args.Error(1)
}

func (m *MockFinancialReportRepository) ExpiringSubscriptions(ctx context.Context, tenantID *uuid.UUID, asOf time.Time) ([]report.ExpiringSubscription, error) {
	args := m.Called(ctx, tenantID, asOf)
	return args.Get(0).([]report.ExpiringSubscription), args.Error(1)
}

func (m *MockFinancialReportRepository) PastDueInvoices(ctx context.Context, tenantID *uuid.UUID, asOf time.Time) (*report.PastDueSummary, error) {
	args := m.Called(ctx, tenantID, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*report.PastDueSummary), args.Error(1)
}

func (m *MockFinancialReportRepository) PlanSubscriptionCounts(ctx context.Context, planID *uuid.UUID) ([]report.PlanSubscriptionCount, error) {
	args := m.Called(ctx, planID)
	return args.Get(0).([]report.PlanSubscriptionCount), args.Error(1)
}

func (m *MockFinancialReportRepository) PlanActivity(ctx context.Context, planID uuid.UUID, r report.DateRange) (*report.PlanMonthlyActivity, error) {
	args := m.Called(ctx, planID, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*report.PlanMonthlyActivity), args.Error(1)
}

var _ report.FinancialReportRepository = (*MockFinancialReportRepository)(nil)

type MockPlanRepository struct {
	mock.Mock
}

func (m *MockPlanRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Plan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Plan), args.Error(1)
}

func (m *MockPlanRepository) FindAll(ctx context.Context, filter shared.Filter) ([]billing.Plan, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]billing.Plan), args.Get(1).(int64), args.Error(2)
}

func (m *MockPlanRepository) ExistsByName(ctx context.Context, name string, excludeID *uuid.UUID) (bool, error) {
	args := m.Called(ctx, name, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockPlanRepository) CountByStatus(ctx context.Context) (map[billing.PlanStatus]int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(map[billing.PlanStatus]int64), args.Error(1)
}

func (m *MockPlanRepository) Save(ctx context.Context, plan *billing.Plan) error {
	return m.Called(ctx, plan).Error(0)
}

func (m *MockPlanRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

var _ billing.PlanRepository = (*MockPlanRepository)(nil)

// mapStatsCache is a JSON-encoding StatsCache without expiry
type mapStatsCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMapStatsCache() *mapStatsCache {
	return &mapStatsCache{entries: make(map[string][]byte)}
}

func (c *mapStatsCache) Get(_ context.Context, key string, dest any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *mapStatsCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = raw
	return nil
}

func (c *mapStatsCache) Invalidate(_ context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
	return nil
}

func (c *mapStatsCache) keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.entries))
	for k := range c.entries {
		out = append(out, k)
	}
	return out
}
