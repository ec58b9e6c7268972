package persistence

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/saas/backoffice/internal/domain/billing"
	"github.com/saas/backoffice/internal/domain/identity"
	"github.com/saas/backoffice/internal/domain/partner"
	"github.com/saas/backoffice/internal/domain/shared"
	"github.com/saas/backoffice/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDB creates an in-memory SQLite database with the service schema
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), GormConfig(WithoutPreparedStatements()))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every pooled connection would otherwise get its own empty database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.TenantModel{},
		&models.ProviderModel{},
		&models.PlanModel{},
		&models.SubscriptionModel{},
		&models.InvoiceModel{},
		&models.AuditLogModel{},
	))
	require.NoError(t, db.Exec(`
		CREATE UNIQUE INDEX ux_plan_subscriptions_current
		ON plan_subscriptions (tenant_id)
		WHERE status IN ('trial', 'active')
	`).Error)
	require.NoError(t, db.Exec(`
		CREATE UNIQUE INDEX ux_invoices_tenant_number ON invoices (tenant_id, number)
	`).Error)

	return db
}

// setClock pins the domain clock; whole seconds keep SQLite string comparisons exact
func setClock(t *testing.T, at time.Time) {
	t.Helper()
	prev := shared.Now
	shared.Now = func() time.Time { return at.UTC() }
	t.Cleanup(func() { shared.Now = prev })
}

func seedTenant(t *testing.T, db *gorm.DB, code string) *identity.Tenant {
	t.Helper()
	tn, err := identity.NewTenant(code, code+" Inc")
	require.NoError(t, err)
	require.NoError(t, NewGormTenantRepository(db).Save(t.Context(), tn))
	return tn
}

func seedProvider(t *testing.T, db *gorm.DB, tenantID uuid.UUID, name string) *partner.Provider {
	t.Helper()
	p, err := partner.NewProvider(tenantID, name, "", "", "")
	require.NoError(t, err)
	require.NoError(t, NewGormProviderRepository(db).Save(t.Context(), p))
	return p
}

func seedPlan(t *testing.T, db *gorm.DB, name string, price int64, trialDays int) *billing.Plan {
	t.Helper()
	plan, err := billing.NewPlan(billing.PlanDetails{
		Name:         name,
		Price:        decimal.NewFromInt(price),
		BillingCycle: billing.BillingCycleMonthly,
		TrialDays:    trialDays,
		Features:     []string{billing.FeatureAPIAccess},
	}, billing.PlanStatusActive)
	require.NoError(t, err)
	require.NoError(t, NewGormPlanRepository(db).Save(t.Context(), plan))
	return plan
}

func seedSubscription(t *testing.T, db *gorm.DB, tenantID, providerID uuid.UUID, plan *billing.Plan, amount int64) *billing.Subscription {
	t.Helper()
	sub, err := billing.NewSubscription(tenantID, providerID, plan, decimal.NewFromInt(amount), "", "card")
	require.NoError(t, err)
	require.NoError(t, NewGormSubscriptionRepository(db).Create(t.Context(), sub))
	return sub
}

func seedInvoice(t *testing.T, db *gorm.DB, tenantID uuid.UUID, providerID *uuid.UUID, number string, amount string, status billing.InvoiceStatus, due time.Time) *billing.Invoice {
	t.Helper()
	inv, err := billing.NewInvoice(tenantID, uuid.New(), providerID, number, decimal.RequireFromString(amount), due)
	require.NoError(t, err)
	switch status {
	case billing.InvoiceStatusPaid:
		require.NoError(t, inv.MarkPaid())
	case billing.InvoiceStatusOverdue:
		require.NoError(t, inv.MarkOverdue())
	case billing.InvoiceStatusCancelled:
		require.NoError(t, inv.Cancel())
	}
	require.NoError(t, NewGormInvoiceRepository(db).Create(t.Context(), inv))
	return inv
}
