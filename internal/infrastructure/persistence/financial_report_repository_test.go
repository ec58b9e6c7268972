package persistence

import (
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/saas/backoffice/internal/domain/billing"
	"github.com/saas/backoffice/internal/domain/report"
	"github.com/saas/backoffice/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type financeFixture struct {
	db         *gorm.DB
	tenantA    uuid.UUID
	tenantB    uuid.UUID
	providerA1 uuid.UUID
	providerA2 uuid.UUID
	basic      *billing.Plan
	march      report.DateRange
}

func day(d int) time.Time {
	return time.Date(2026, time.March, d, 9, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// setupFinanceFixture seeds two tenants with invoices and subscriptions across March 2026
func setupFinanceFixture(t *testing.T) *financeFixture {
	t.Helper()
	setClock(t, time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC))
	db := setupTestDB(t)

	a := seedTenant(t, db, "ALPHA")
	b := seedTenant(t, db, "BETA")
	pa1 := seedProvider(t, db, a.ID, "Alpha One")
	pa2 := seedProvider(t, db, a.ID, "Alpha Two")
	pb1 := seedProvider(t, db, b.ID, "Beta One")
	basic := seedPlan(t, db, "Basic", 50, 0)
	trial := seedPlan(t, db, "Starter", 10, 14)

	setClock(t, time.Date(2026, time.February, 20, 9, 0, 0, 0, time.UTC))
	seedInvoice(t, db, a.ID, &pa1.ID, "A-000", "999", billing.InvoiceStatusPaid, day(1))

	setClock(t, day(2))
	seedInvoice(t, db, a.ID, nil, "A-OVD", "20", billing.InvoiceStatusOverdue, day(3))
	seedSubscription(t, db, a.ID, pa1.ID, basic, 50)

	setClock(t, day(5))
	seedInvoice(t, db, a.ID, &pa1.ID, "A-001", "100", billing.InvoiceStatusPaid, day(5))
	seedInvoice(t, db, b.ID, &pb1.ID, "B-001", "400", billing.InvoiceStatusPaid, day(5))
	seedSubscription(t, db, b.ID, pb1.ID, trial, 10)

	setClock(t, day(6))
	seedInvoice(t, db, a.ID, &pa2.ID, "A-002", "200", billing.InvoiceStatusPaid, day(6))
	seedInvoice(t, db, a.ID, &pa1.ID, "A-003", "50", billing.InvoiceStatusPaid, day(6))

	setClock(t, day(7))
	seedInvoice(t, db, a.ID, nil, "A-PND", "30", billing.InvoiceStatusPending, day(8))
	seedInvoice(t, db, b.ID, nil, "B-PND", "10", billing.InvoiceStatusPending, day(30))

	c := seedTenant(t, db, "GAMMA")
	pc1 := seedProvider(t, db, c.ID, "Gamma One")
	churned := seedSubscription(t, db, c.ID, pc1.ID, basic, 25)
	setClock(t, day(9))
	require.NoError(t, churned.Transition(billing.SubscriptionStatusCancelled))
	require.NoError(t, NewGormSubscriptionRepository(db).SaveWithLock(t.Context(), churned))

	setClock(t, testNow)
	return &financeFixture{
		db:         db,
		tenantA:    a.ID,
		tenantB:    b.ID,
		providerA1: pa1.ID,
		providerA2: pa2.ID,
		basic:      basic,
		march:      report.DateRange{Start: time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)},
	}
}

func TestGormFinancialReportRepository_Invoices(t *testing.T) {
	f := setupFinanceFixture(t)
	repo := NewGormFinancialReportRepository(f.db)
	ctx := t.Context()

	t.Run("paid revenue is tenant scoped", func(t *testing.T) {
		total, err := repo.SumPaidInvoices(ctx, &f.tenantA, f.march)
		require.NoError(t, err)
		assert.True(t, dec("350").Equal(total), "got %s", total)

		total, err = repo.SumPaidInvoices(ctx, nil, f.march)
		require.NoError(t, err)
		assert.True(t, dec("750").Equal(total), "got %s", total)
	})

	t.Run("empty range sums to zero", func(t *testing.T) {
		empty := report.DateRange{Start: day(20), End: day(21)}
		total, err := repo.SumPaidInvoices(ctx, &f.tenantA, empty)
		require.NoError(t, err)
		assert.True(t, total.IsZero())
	})

	t.Run("totals by status", func(t *testing.T) {
		totals, err := repo.InvoiceTotals(ctx, &f.tenantA, f.march)
		require.NoError(t, err)
		assert.True(t, dec("350").Equal(totals.Paid))
		assert.True(t, dec("30").Equal(totals.Pending))
		assert.True(t, dec("20").Equal(totals.Overdue))
		assert.True(t, totals.Cancelled.IsZero())
		assert.Equal(t, int64(3), totals.PaidCount)
		assert.Equal(t, int64(5), totals.InvoiceCount)
	})

	t.Run("top providers", func(t *testing.T) {
		top, err := repo.TopProviders(ctx, f.tenantA, f.march, 10)
		require.NoError(t, err)
		require.Len(t, top, 2)
		assert.Equal(t, f.providerA2, top[0].EntityID)
		assert.True(t, dec("200").Equal(top[0].Revenue))
		assert.Equal(t, "Alpha One", top[1].Name)
		assert.True(t, dec("150").Equal(top[1].Revenue))
		assert.Equal(t, int64(2), top[1].InvoiceCount)
	})

	t.Run("top tenants", func(t *testing.T) {
		top, err := repo.TopTenants(ctx, f.march, 1)
		require.NoError(t, err)
		require.Len(t, top, 1)
		assert.Equal(t, f.tenantB, top[0].EntityID)
		assert.True(t, dec("400").Equal(top[0].Revenue))
	})

	t.Run("daily series", func(t *testing.T) {
		series, err := repo.DailyPaidRevenue(ctx, &f.tenantA, f.march)
		require.NoError(t, err)
		require.Len(t, series, 2)
		assert.Equal(t, "2026-03-05", series[0].Date)
		assert.True(t, dec("100").Equal(series[0].Revenue))
		assert.Equal(t, "2026-03-06", series[1].Date)
		assert.True(t, dec("250").Equal(series[1].Revenue))
		assert.Equal(t, int64(2), series[1].Count)
	})

	t.Run("outstanding by tenant", func(t *testing.T) {
		rows, err := repo.OutstandingByTenant(ctx, f.march)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, f.tenantA, rows[0].TenantID)
		assert.True(t, dec("30").Equal(rows[0].Pending))
		assert.True(t, dec("20").Equal(rows[0].Overdue))
		assert.True(t, dec("50").Equal(rows[0].Outstanding))
		assert.True(t, dec("10").Equal(rows[1].Outstanding))
	})

	t.Run("past due counts pending and overdue", func(t *testing.T) {
		summary, err := repo.PastDueInvoices(ctx, nil, testNow)
		require.NoError(t, err)
		assert.Equal(t, int64(2), summary.Count)
		assert.True(t, dec("50").Equal(summary.Amount))
	})
}

func TestGormFinancialReportRepository_Subscriptions(t *testing.T) {
	f := setupFinanceFixture(t)
	repo := NewGormFinancialReportRepository(f.db)
	ctx := t.Context()
	april := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)

	active, err := repo.SumActiveSubscriptions(ctx, nil)
	require.NoError(t, err)
	assert.True(t, dec("50").Equal(active))

	active, err = repo.SumActiveSubscriptions(ctx, &f.tenantB)
	require.NoError(t, err)
	assert.True(t, active.IsZero(), "trial subscriptions are not billed")

	cancelled, err := repo.CountCancelledEndingIn(ctx, nil, f.march)
	require.NoError(t, err)
	assert.Equal(t, int64(1), cancelled)

	created, err := repo.CountSubscriptionsCreatedBefore(ctx, nil, april)
	require.NoError(t, err)
	assert.Equal(t, int64(3), created)

	stillActive, err := repo.CountActiveCreatedBefore(ctx, nil, april)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stillActive)

	providers, err := repo.CountActiveProviders(ctx, &f.tenantA)
	require.NoError(t, err)
	assert.Equal(t, int64(2), providers)

	t.Run("plan rollups", func(t *testing.T) {
		counts, err := repo.PlanSubscriptionCounts(ctx, &f.basic.ID)
		require.NoError(t, err)
		require.Len(t, counts, 2)
		assert.Equal(t, string(billing.SubscriptionStatusActive), counts[0].Status)
		assert.Equal(t, string(billing.SubscriptionStatusCancelled), counts[1].Status)
		assert.True(t, dec("25").Equal(counts[1].Amount))

		activity, err := repo.PlanActivity(ctx, f.basic.ID, f.march)
		require.NoError(t, err)
		assert.Equal(t, 2026, activity.Year)
		assert.Equal(t, 3, activity.Month)
		assert.Equal(t, int64(2), activity.New)
		assert.Equal(t, int64(1), activity.Cancelled)
		assert.True(t, dec("75").Equal(activity.Revenue))
	})

	t.Run("expiring subscriptions", func(t *testing.T) {
		expiring, err := repo.ExpiringSubscriptions(ctx, nil, testNow)
		require.NoError(t, err)
		assert.Empty(t, expiring)

		require.NoError(t, f.db.Exec(
			"UPDATE plan_subscriptions SET end_date = ? WHERE tenant_id = ? AND status = ?",
			day(8), f.tenantA, billing.SubscriptionStatusActive,
		).Error)

		expiring, err = repo.ExpiringSubscriptions(ctx, nil, testNow)
		require.NoError(t, err)
		require.Len(t, expiring, 1)
		assert.Equal(t, f.tenantA, expiring[0].TenantID)
		assert.True(t, day(8).Equal(expiring[0].EndDate))
	})
}

func newPostgresMock(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), GormConfig(WithoutPreparedStatements()))
	require.NoError(t, err)
	return db, mock
}

func TestGormFinancialReportRepository_PostgresDailySeries(t *testing.T) {
	db, mock := newPostgresMock(t)
	repo := NewGormFinancialReportRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("TO_CHAR(i.created_at, 'YYYY-MM-DD') AS date")).
		WillReturnRows(sqlmock.NewRows([]string{"date", "revenue", "count"}).
			AddRow("2026-03-05", "100.0000", 1))

	series, err := repo.DailyPaidRevenue(t.Context(), nil, report.DateRange{Start: day(1), End: day(31)})
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, "2026-03-05", series[0].Date)
	assert.True(t, dec("100").Equal(series[0].Revenue))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormSubscriptionRepository_PostgresConflicts(t *testing.T) {
	setClock(t, testNow)
	plan, err := billing.NewPlan(billing.PlanDetails{
		Name:         "Basic",
		Price:        decimal.NewFromInt(50),
		BillingCycle: billing.BillingCycleMonthly,
	}, billing.PlanStatusActive)
	require.NoError(t, err)

	newSaved := func(t *testing.T) *billing.Subscription {
		sub, err := billing.NewSubscription(uuid.New(), uuid.New(), plan, decimal.NewFromInt(50), "", "card")
		require.NoError(t, err)
		require.NoError(t, sub.Transition(billing.SubscriptionStatusCancelled))
		return sub
	}

	t.Run("unique violation", func(t *testing.T) {
		db, mock := newPostgresMock(t)
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE "plan_subscriptions" SET`)).
			WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})

		err := NewGormSubscriptionRepository(db).SaveWithLock(t.Context(), newSaved(t))
		assert.Equal(t, shared.KindConcurrencyConflict, shared.KindOf(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stale version", func(t *testing.T) {
		db, mock := newPostgresMock(t)
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE "plan_subscriptions" SET`)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := NewGormSubscriptionRepository(db).SaveWithLock(t.Context(), newSaved(t))
		assert.Equal(t, shared.KindConcurrencyConflict, shared.KindOf(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
