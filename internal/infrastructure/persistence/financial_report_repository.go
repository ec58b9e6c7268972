package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/saas/backoffice/internal/domain/billing"
	"github.com/saas/backoffice/internal/domain/partner"
	"github.com/saas/backoffice/internal/domain/report"
	"github.com/saas/backoffice/internal/infrastructure/persistence/tenant"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormFinancialReportRepository implements FinancialReportRepository using GORM.
// Every figure is computed by the database; nothing is summed in Go.
type GormFinancialReportRepository struct {
	db *gorm.DB
}

// NewGormFinancialReportRepository creates a new GormFinancialReportRepository
func NewGormFinancialReportRepository(db *gorm.DB) *GormFinancialReportRepository {
	return &GormFinancialReportRepository{db: db}
}

func (r *GormFinancialReportRepository) invoices(ctx context.Context, tenantID *uuid.UUID) *gorm.DB {
	return r.db.WithContext(ctx).Table("invoices i").Scopes(tenant.OptionalScope("i.tenant_id", tenantID))
}

func (r *GormFinancialReportRepository) subscriptions(ctx context.Context, tenantID *uuid.UUID) *gorm.DB {
	return r.db.WithContext(ctx).Table("plan_subscriptions s").Scopes(tenant.OptionalScope("s.tenant_id", tenantID))
}

func createdIn(column string, rng report.DateRange) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(column+" >= ? AND "+column+" < ?", rng.Start, rng.End)
	}
}

// SumPaidInvoices sums paid invoice amounts created in rng
func (r *GormFinancialReportRepository) SumPaidInvoices(ctx context.Context, tenantID *uuid.UUID, rng report.DateRange) (decimal.Decimal, error) {
	var total decimal.Decimal
	if err := r.invoices(ctx, tenantID).
		Select("COALESCE(SUM(i.amount), 0)").
		Where("i.status = ?", billing.InvoiceStatusPaid).
		Scopes(createdIn("i.created_at", rng)).
		Scan(&total).Error; err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// InvoiceTotals groups invoice amounts created in rng by status
func (r *GormFinancialReportRepository) InvoiceTotals(ctx context.Context, tenantID *uuid.UUID, rng report.DateRange) (*report.InvoiceTotals, error) {
	var rows []struct {
		Status billing.InvoiceStatus
		Amount decimal.Decimal
		Count  int64
	}
	if err := r.invoices(ctx, tenantID).
		Select("i.status AS status, COALESCE(SUM(i.amount), 0) AS amount, COUNT(*) AS count").
		Scopes(createdIn("i.created_at", rng)).
		Group("i.status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	totals := &report.InvoiceTotals{}
	for _, row := range rows {
		totals.InvoiceCount += row.Count
		switch row.Status {
		case billing.InvoiceStatusPaid:
			totals.Paid = row.Amount
			totals.PaidCount = row.Count
		case billing.InvoiceStatusPending:
			totals.Pending = row.Amount
		case billing.InvoiceStatusOverdue:
			totals.Overdue = row.Amount
		case billing.InvoiceStatusCancelled:
			totals.Cancelled = row.Amount
		}
	}
	return totals, nil
}

// SumActiveSubscriptions sums the amount of every active subscription
func (r *GormFinancialReportRepository) SumActiveSubscriptions(ctx context.Context, tenantID *uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	if err := r.subscriptions(ctx, tenantID).
		Select("COALESCE(SUM(s.amount), 0)").
		Where("s.status = ?", billing.SubscriptionStatusActive).
		Scan(&total).Error; err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// CountCancelledEndingIn counts cancelled subscriptions whose end date is in rng
func (r *GormFinancialReportRepository) CountCancelledEndingIn(ctx context.Context, tenantID *uuid.UUID, rng report.DateRange) (int64, error) {
	var count int64
	err := r.subscriptions(ctx, tenantID).
		Where("s.status = ?", billing.SubscriptionStatusCancelled).
		Scopes(createdIn("s.end_date", rng)).
		Count(&count).Error
	return count, err
}

// CountSubscriptionsCreatedBefore counts subscriptions created before t
func (r *GormFinancialReportRepository) CountSubscriptionsCreatedBefore(ctx context.Context, tenantID *uuid.UUID, t time.Time) (int64, error) {
	var count int64
	err := r.subscriptions(ctx, tenantID).
		Where("s.created_at < ?", t).
		Count(&count).Error
	return count, err
}

// CountActiveCreatedBefore counts subscriptions created before t that are still active
func (r *GormFinancialReportRepository) CountActiveCreatedBefore(ctx context.Context, tenantID *uuid.UUID, t time.Time) (int64, error) {
	var count int64
	err := r.subscriptions(ctx, tenantID).
		Where("s.created_at < ?", t).
		Where("s.status = ?", billing.SubscriptionStatusActive).
		Count(&count).Error
	return count, err
}

// CountActiveProviders counts providers in active status
func (r *GormFinancialReportRepository) CountActiveProviders(ctx context.Context, tenantID *uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Table("providers p").
		Scopes(tenant.OptionalScope("p.tenant_id", tenantID)).
		Where("p.status = ?", partner.ProviderStatusActive).
		Count(&count).Error
	return count, err
}

// TopProviders ranks the providers of a tenant by paid revenue in rng
func (r *GormFinancialReportRepository) TopProviders(ctx context.Context, tenantID uuid.UUID, rng report.DateRange, limit int) ([]report.EntityRevenue, error) {
	var rows []report.EntityRevenue
	if err := r.invoices(ctx, &tenantID).
		Select(`
			p.id AS entity_id,
			p.name AS name,
			COALESCE(SUM(i.amount), 0) AS revenue,
			COUNT(i.id) AS invoice_count
		`).
		Joins("JOIN providers p ON p.id = i.provider_id AND p.tenant_id = i.tenant_id").
		Where("i.status = ?", billing.InvoiceStatusPaid).
		Scopes(createdIn("i.created_at", rng)).
		Group("p.id, p.name").
		Order("revenue DESC").
		Order("p.id ASC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return nonNil(rows), nil
}

// TopTenants ranks tenants by paid revenue in rng
func (r *GormFinancialReportRepository) TopTenants(ctx context.Context, rng report.DateRange, limit int) ([]report.EntityRevenue, error) {
	var rows []report.EntityRevenue
	if err := r.invoices(ctx, nil).
		Select(`
			t.id AS entity_id,
			t.name AS name,
			COALESCE(SUM(i.amount), 0) AS revenue,
			COUNT(i.id) AS invoice_count
		`).
		Joins("JOIN tenants t ON t.id = i.tenant_id").
		Where("i.status = ?", billing.InvoiceStatusPaid).
		Scopes(createdIn("i.created_at", rng)).
		Group("t.id, t.name").
		Order("revenue DESC").
		Order("t.id ASC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return nonNil(rows), nil
}

// DailyPaidRevenue returns paid revenue per day in rng, oldest first
func (r *GormFinancialReportRepository) DailyPaidRevenue(ctx context.Context, tenantID *uuid.UUID, rng report.DateRange) ([]report.DailyRevenue, error) {
	day := r.dayExpr("i.created_at")

	var rows []report.DailyRevenue
	if err := r.invoices(ctx, tenantID).
		Select(day+" AS date, COALESCE(SUM(i.amount), 0) AS revenue, COUNT(*) AS count").
		Where("i.status = ?", billing.InvoiceStatusPaid).
		Scopes(createdIn("i.created_at", rng)).
		Group(day).
		Order(day + " ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return nonNil(rows), nil
}

// dayExpr formats a timestamp column as YYYY-MM-DD in the connected dialect
func (r *GormFinancialReportRepository) dayExpr(column string) string {
	switch r.db.Dialector.Name() {
	case "sqlite":
		return "strftime('%Y-%m-%d', " + column + ")"
	default:
		return "TO_CHAR(" + column + ", 'YYYY-MM-DD')"
	}
}

// OutstandingByTenant sums pending and overdue invoices per tenant in rng
func (r *GormFinancialReportRepository) OutstandingByTenant(ctx context.Context, rng report.DateRange) ([]report.TenantOutstanding, error) {
	var rows []report.TenantOutstanding
	if err := r.invoices(ctx, nil).
		Select(`
			t.id AS tenant_id,
			t.name AS tenant_name,
			COALESCE(SUM(CASE WHEN i.status = ? THEN i.amount ELSE 0 END), 0) AS pending,
			COALESCE(SUM(CASE WHEN i.status = ? THEN i.amount ELSE 0 END), 0) AS overdue,
			COALESCE(SUM(i.amount), 0) AS outstanding,
			COUNT(*) AS invoice_count
		`, billing.InvoiceStatusPending, billing.InvoiceStatusOverdue).
		Joins("JOIN tenants t ON t.id = i.tenant_id").
		Where("i.status IN ?", []billing.InvoiceStatus{billing.InvoiceStatusPending, billing.InvoiceStatusOverdue}).
		Scopes(createdIn("i.created_at", rng)).
		Group("t.id, t.name").
		Order("outstanding DESC").
		Order("t.id ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return nonNil(rows), nil
}

// ExpiringSubscriptions lists active subscriptions with end date before asOf
func (r *GormFinancialReportRepository) ExpiringSubscriptions(ctx context.Context, tenantID *uuid.UUID, asOf time.Time) ([]report.ExpiringSubscription, error) {
	var rows []report.ExpiringSubscription
	if err := r.subscriptions(ctx, tenantID).
		Select(`
			s.id AS subscription_id,
			s.tenant_id AS tenant_id,
			s.provider_id AS provider_id,
			s.plan_id AS plan_id,
			s.amount AS amount,
			s.end_date AS end_date
		`).
		Where("s.status = ?", billing.SubscriptionStatusActive).
		Where("s.end_date IS NOT NULL AND s.end_date < ?", asOf).
		Order("s.end_date ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].EndDate = rows[i].EndDate.UTC()
	}
	return nonNil(rows), nil
}

// PastDueInvoices summarizes outstanding invoices due before asOf
func (r *GormFinancialReportRepository) PastDueInvoices(ctx context.Context, tenantID *uuid.UUID, asOf time.Time) (*report.PastDueSummary, error) {
	var summary report.PastDueSummary
	if err := r.invoices(ctx, tenantID).
		Select("COUNT(*) AS count, COALESCE(SUM(i.amount), 0) AS amount").
		Where("i.status IN ?", []billing.InvoiceStatus{billing.InvoiceStatusPending, billing.InvoiceStatusOverdue}).
		Where("i.due_date < ?", asOf).
		Scan(&summary).Error; err != nil {
		return nil, err
	}
	return &summary, nil
}

// PlanSubscriptionCounts rolls subscriptions up per plan and status
func (r *GormFinancialReportRepository) PlanSubscriptionCounts(ctx context.Context, planID *uuid.UUID) ([]report.PlanSubscriptionCount, error) {
	query := r.subscriptions(ctx, nil).
		Select("s.plan_id AS plan_id, s.status AS status, COUNT(*) AS count, COALESCE(SUM(s.amount), 0) AS amount")
	if planID != nil {
		query = query.Where("s.plan_id = ?", *planID)
	}

	var rows []report.PlanSubscriptionCount
	if err := query.
		Group("s.plan_id, s.status").
		Order("s.plan_id ASC").
		Order("s.status ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return nonNil(rows), nil
}

// PlanActivity counts subscriptions of a plan opened and cancelled in rng
func (r *GormFinancialReportRepository) PlanActivity(ctx context.Context, planID uuid.UUID, rng report.DateRange) (*report.PlanMonthlyActivity, error) {
	var opened struct {
		Count   int64
		Revenue decimal.Decimal
	}
	if err := r.subscriptions(ctx, nil).
		Select("COUNT(*) AS count, COALESCE(SUM(s.amount), 0) AS revenue").
		Where("s.plan_id = ?", planID).
		Scopes(createdIn("s.created_at", rng)).
		Scan(&opened).Error; err != nil {
		return nil, err
	}

	var cancelled int64
	if err := r.subscriptions(ctx, nil).
		Where("s.plan_id = ?", planID).
		Where("s.status = ?", billing.SubscriptionStatusCancelled).
		Scopes(createdIn("s.cancelled_at", rng)).
		Count(&cancelled).Error; err != nil {
		return nil, err
	}

	return &report.PlanMonthlyActivity{
		Year:      rng.Start.Year(),
		Month:     int(rng.Start.Month()),
		New:       opened.Count,
		Cancelled: cancelled,
		Revenue:   opened.Revenue,
	}, nil
}

func nonNil[T any](rows []T) []T {
	if rows == nil {
		return []T{}
	}
	return rows
}

// Ensure GormFinancialReportRepository implements FinancialReportRepository
var _ report.FinancialReportRepository = (*GormFinancialReportRepository)(nil)
