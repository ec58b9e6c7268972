package report

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceTotals aggregates invoice amounts by status for a window
type InvoiceTotals struct {
	Paid         decimal.Decimal `json:"paid"`
	Pending      decimal.Decimal `json:"pending"`
	Overdue      decimal.Decimal `json:"overdue"`
	Cancelled    decimal.Decimal `json:"cancelled"`
	PaidCount    int64           `json:"paid_count"`
	InvoiceCount int64           `json:"invoice_count"`
}

// EntityRevenue ranks a provider (tenant reports) or a tenant (system reports) by paid revenue
type EntityRevenue struct {
	EntityID     uuid.UUID       `json:"entity_id"`
	Name         string          `json:"name"`
	Revenue      decimal.Decimal `json:"revenue"`
	InvoiceCount int64           `json:"invoice_count"`
}

// DailyRevenue is one point of the daily paid-revenue series
type DailyRevenue struct {
	Date    string          `json:"date"` // YYYY-MM-DD
	Revenue decimal.Decimal `json:"revenue"`
	Count   int64           `json:"count"`
}

// CostBreakdown splits the costs of a tenant for a window
type CostBreakdown struct {
	PlanCosts      decimal.Decimal `json:"plan_costs"`
	ProcessingFees decimal.Decimal `json:"processing_fees"`
	Total          decimal.Decimal `json:"total"`
}

// MonthlyTrend is one month of revenue, costs and profit
type MonthlyTrend struct {
	Year    int             `json:"year"`
	Month   int             `json:"month"`
	Revenue decimal.Decimal `json:"revenue"`
	Costs   decimal.Decimal `json:"costs"`
	Profit  decimal.Decimal `json:"profit"`
}

// TenantOutstanding is the unpaid receivable of a tenant
type TenantOutstanding struct {
	TenantID     uuid.UUID       `json:"tenant_id"`
	TenantName   string          `json:"tenant_name"`
	Pending      decimal.Decimal `json:"pending"`
	Overdue      decimal.Decimal `json:"overdue"`
	Outstanding  decimal.Decimal `json:"outstanding"`
	InvoiceCount int64           `json:"invoice_count"`
}

// ExpiringSubscription is an active subscription whose end date already passed
type ExpiringSubscription struct {
	SubscriptionID uuid.UUID       `json:"subscription_id"`
	TenantID       uuid.UUID       `json:"tenant_id"`
	ProviderID     uuid.UUID       `json:"provider_id"`
	PlanID         uuid.UUID       `json:"plan_id"`
	Amount         decimal.Decimal `json:"amount"`
	EndDate        time.Time       `json:"end_date"`
}

// PastDueSummary counts outstanding invoices whose due date passed
type PastDueSummary struct {
	Count  int64           `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// FinancialSummary is the headline block of the financial dashboard
type FinancialSummary struct {
	TenantID                *uuid.UUID      `json:"tenant_id,omitempty"`
	Period                  DateRange       `json:"period"`
	TotalRevenue            decimal.Decimal `json:"total_revenue"`
	PendingRevenue          decimal.Decimal `json:"pending_revenue"`
	OverdueAmount           decimal.Decimal `json:"overdue_amount"`
	TotalCosts              decimal.Decimal `json:"total_costs"`
	NetProfit               decimal.Decimal `json:"net_profit"`
	ProfitMargin            float64         `json:"profit_margin"`
	ActiveProviders         int64           `json:"active_providers"`
	AverageRevenuePerEntity decimal.Decimal `json:"average_revenue_per_provider"`
	AverageTicket           decimal.Decimal `json:"average_ticket"`
	PaymentRate             float64         `json:"payment_rate"`
	ProjectedRevenue        decimal.Decimal `json:"projected_revenue"`
	RevenueGrowth           float64         `json:"revenue_growth"`
	ChurnRate               float64         `json:"churn_rate"`
	RetentionRate           float64         `json:"retention_rate"`
}

// AlertSeverity grades a financial alert
type AlertSeverity string

const (
	AlertSeverityWarning  AlertSeverity = "warning"
	AlertSeverityCritical AlertSeverity = "critical"
)

// Alert codes
const (
	AlertOverdueInvoices = "overdue_invoices"
	AlertLowPaymentRate  = "low_payment_rate"
	AlertExpiring        = "expiring_subscriptions"
)

// Alert flags something in the books that needs attention
type Alert struct {
	Code     string          `json:"code"`
	Severity AlertSeverity   `json:"severity"`
	Message  string          `json:"message"`
	Count    int64           `json:"count,omitempty"`
	Amount   decimal.Decimal `json:"amount"`
	Value    float64         `json:"value,omitempty"`
}

// PlanSubscriptionCount is a per plan, per status subscription rollup
type PlanSubscriptionCount struct {
	PlanID uuid.UUID       `json:"plan_id"`
	Status string          `json:"status"`
	Count  int64           `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// PlanMonthlyActivity is one month of a plan's subscription activity
type PlanMonthlyActivity struct {
	Year      int             `json:"year"`
	Month     int             `json:"month"`
	New       int64           `json:"new"`
	Cancelled int64           `json:"cancelled"`
	Revenue   decimal.Decimal `json:"revenue"`
}

// FinancialReportRepository runs the server-side aggregations behind the
// financial reports. A nil tenantID means system-wide across every tenant.
type FinancialReportRepository interface {
	// SumPaidInvoices sums paid invoice amounts created in r
	SumPaidInvoices(ctx context.Context, tenantID *uuid.UUID, r DateRange) (decimal.Decimal, error)

	// InvoiceTotals groups invoice amounts created in r by status
	InvoiceTotals(ctx context.Context, tenantID *uuid.UUID, r DateRange) (*InvoiceTotals, error)

	// SumActiveSubscriptions sums the amount of every active subscription
	SumActiveSubscriptions(ctx context.Context, tenantID *uuid.UUID) (decimal.Decimal, error)

	// CountCancelledEndingIn counts cancelled subscriptions whose end date is in r
	CountCancelledEndingIn(ctx context.Context, tenantID *uuid.UUID, r DateRange) (int64, error)

	// CountSubscriptionsCreatedBefore counts subscriptions created before t
	CountSubscriptionsCreatedBefore(ctx context.Context, tenantID *uuid.UUID, t time.Time) (int64, error)

	// CountActiveCreatedBefore counts subscriptions created before t that are still active
	CountActiveCreatedBefore(ctx context.Context, tenantID *uuid.UUID, t time.Time) (int64, error)

	// CountActiveProviders counts providers in active status
	CountActiveProviders(ctx context.Context, tenantID *uuid.UUID) (int64, error)

	// TopProviders ranks the providers of a tenant by paid revenue in r
	TopProviders(ctx context.Context, tenantID uuid.UUID, r DateRange, limit int) ([]EntityRevenue, error)

	// TopTenants ranks tenants by paid revenue in r
	TopTenants(ctx context.Context, r DateRange, limit int) ([]EntityRevenue, error)

	// DailyPaidRevenue returns paid revenue per day in r, oldest first
	DailyPaidRevenue(ctx context.Context, tenantID *uuid.UUID, r DateRange) ([]DailyRevenue, error)

	// OutstandingByTenant sums pending and overdue invoices per tenant in r
	OutstandingByTenant(ctx context.Context, r DateRange) ([]TenantOutstanding, error)

	// ExpiringSubscriptions lists active subscriptions with end date before asOf
	ExpiringSubscriptions(ctx context.Context, tenantID *uuid.UUID, asOf time.Time) ([]ExpiringSubscription, error)

	// PastDueInvoices summarizes outstanding invoices due before asOf
	PastDueInvoices(ctx context.Context, tenantID *uuid.UUID, asOf time.Time) (*PastDueSummary, error)

	// PlanSubscriptionCounts rolls subscriptions up per plan and status.
	// A non-nil planID restricts the rollup to that plan.
	PlanSubscriptionCounts(ctx context.Context, planID *uuid.UUID) ([]PlanSubscriptionCount, error)

	// PlanActivity counts subscriptions of a plan opened and cancelled in r,
	// and sums the amount of those opened
	PlanActivity(ctx context.Context, planID uuid.UUID, r DateRange) (*PlanMonthlyActivity, error)
}
