package persistence

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/saas/backoffice/internal/domain/audit"
	"github.com/saas/backoffice/internal/domain/billing"
	"github.com/saas/backoffice/internal/domain/identity"
	"github.com/saas/backoffice/internal/domain/partner"
	"github.com/saas/backoffice/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormPlanRepository(t *testing.T) {
	setClock(t, testNow)
	db := setupTestDB(t)
	repo := NewGormPlanRepository(db)
	ctx := t.Context()

	basic := seedPlan(t, db, "Basic", 50, 14)
	seedPlan(t, db, "Enterprise", 500, 0)

	t.Run("round trips features and limits", func(t *testing.T) {
		found, err := repo.FindByID(ctx, basic.ID)
		require.NoError(t, err)
		assert.Equal(t, "Basic", found.Name)
		assert.True(t, decimal.NewFromInt(50).Equal(found.Price))
		assert.Equal(t, 14, found.TrialDays)
		assert.True(t, found.HasFeature(billing.FeatureAPIAccess))
	})

	t.Run("duplicate name is a conflict", func(t *testing.T) {
		dup, err := billing.NewPlan(billing.PlanDetails{
			Name:         "Basic",
			Price:        decimal.NewFromInt(10),
			BillingCycle: billing.BillingCycleMonthly,
		}, billing.PlanStatusActive)
		require.NoError(t, err)
		err = repo.Save(ctx, dup)
		assert.True(t, errors.Is(err, shared.ErrConcurrencyConflict), "got %v", err)
	})

	t.Run("exists by name is case insensitive", func(t *testing.T) {
		exists, err := repo.ExistsByName(ctx, " basic ", nil)
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = repo.ExistsByName(ctx, "BASIC", &basic.ID)
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("update is version checked", func(t *testing.T) {
		stale, err := repo.FindByID(ctx, basic.ID)
		require.NoError(t, err)
		fresh, err := repo.FindByID(ctx, basic.ID)
		require.NoError(t, err)

		require.NoError(t, fresh.ChangeStatus(billing.PlanStatusInactive))
		require.NoError(t, repo.Save(ctx, fresh))

		require.NoError(t, stale.ChangeStatus(billing.PlanStatusInactive))
		assert.True(t, errors.Is(repo.Save(ctx, stale), shared.ErrConcurrencyConflict))
	})

	t.Run("list and count by status", func(t *testing.T) {
		plans, total, err := repo.FindAll(ctx, shared.DefaultFilter())
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		require.Len(t, plans, 2)
		assert.Equal(t, "Basic", plans[0].Name)

		filter := shared.DefaultFilter()
		filter.Filters = map[string]any{"status": string(billing.PlanStatusActive)}
		plans, total, err = repo.FindAll(ctx, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, "Enterprise", plans[0].Name)

		counts, err := repo.CountByStatus(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), counts[billing.PlanStatusActive])
		assert.Equal(t, int64(1), counts[billing.PlanStatusInactive])
	})

	t.Run("invalid sort field is rejected", func(t *testing.T) {
		filter := shared.DefaultFilter()
		filter.OrderBy = "price; DROP TABLE plans"
		_, _, err := repo.FindAll(ctx, filter)
		assert.Error(t, err)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, basic.ID))
		_, err := repo.FindByID(ctx, basic.ID)
		assert.True(t, errors.Is(err, shared.ErrNotFound))
		assert.True(t, errors.Is(repo.Delete(ctx, basic.ID), shared.ErrNotFound))
	})
}

func TestGormTenantRepository(t *testing.T) {
	setClock(t, testNow)
	db := setupTestDB(t)
	repo := NewGormTenantRepository(db)
	ctx := t.Context()

	acme := seedTenant(t, db, "ACME")
	trial, err := identity.NewTrialTenant("TRIAL", "Trial Co")
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, trial))

	found, err := repo.FindByCode(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, acme.ID, found.ID)

	exists, err := repo.ExistsByCode(ctx, "TRIAL")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, found.Suspend())
	require.NoError(t, repo.Save(ctx, found))

	reloaded, err := repo.FindByID(ctx, acme.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.IsSuspended())
	assert.Equal(t, 2, reloaded.Version)

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[identity.TenantStatusSuspended])
	assert.Equal(t, int64(1), counts[identity.TenantStatusTrial])

	_, err = repo.FindByID(ctx, uuid.New())
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestGormProviderRepository(t *testing.T) {
	setClock(t, testNow)
	db := setupTestDB(t)
	repo := NewGormProviderRepository(db)
	ctx := t.Context()

	acme := seedTenant(t, db, "ACME")
	other := seedTenant(t, db, "OTHER")
	plan := seedPlan(t, db, "Basic", 50, 0)

	p, err := partner.NewProvider(acme.ID, "Northwind", "ops@northwind.test", "", "12.345.678/0001-90")
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, p))
	seedProvider(t, db, other.ID, "Contoso")

	exists, err := repo.ExistsByDocument(ctx, acme.ID, "12345678000190")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = repo.ExistsByDocument(ctx, other.ID, "12345678000190")
	require.NoError(t, err)
	assert.False(t, exists)

	found, err := repo.FindByIDForTenant(ctx, acme.ID, p.ID)
	require.NoError(t, err)
	found.AssignPlan(plan.ID)
	require.NoError(t, repo.Save(ctx, found))

	providers, total, err := repo.FindAllForTenant(ctx, acme.ID, shared.DefaultFilter())
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, providers, 1)
	require.NotNil(t, providers[0].PlanID)
	assert.Equal(t, plan.ID, *providers[0].PlanID)

	_, err = repo.FindByIDForTenant(ctx, other.ID, p.ID)
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestGormInvoiceRepository(t *testing.T) {
	setClock(t, testNow)
	db := setupTestDB(t)
	repo := NewGormInvoiceRepository(db)
	ctx := t.Context()

	acme := seedTenant(t, db, "ACME")
	inv := seedInvoice(t, db, acme.ID, nil, "inv-001", "100.50", billing.InvoiceStatusPending, testNow.AddDate(0, 0, 10))

	exists, err := repo.ExistsByNumber(ctx, acme.ID, "INV-001")
	require.NoError(t, err)
	assert.True(t, exists)

	dup, err := billing.NewInvoice(acme.ID, uuid.New(), nil, "INV-001", decimal.NewFromInt(1), testNow)
	require.NoError(t, err)
	assert.True(t, errors.Is(repo.Create(ctx, dup), shared.ErrConcurrencyConflict))

	found, err := repo.FindByIDForTenant(ctx, acme.ID, inv.ID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("100.50").Equal(found.Amount))
	require.NoError(t, found.MarkPaid())
	require.NoError(t, repo.SaveWithLock(ctx, found))

	filter := shared.DefaultFilter()
	filter.Filters = map[string]any{"status": string(billing.InvoiceStatusPaid)}
	invoices, total, err := repo.FindAllForTenant(ctx, acme.ID, filter)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.NotNil(t, invoices[0].PaidAt)
	assert.True(t, testNow.Equal(*invoices[0].PaidAt))
}

func TestGormAuditLogRepository(t *testing.T) {
	setClock(t, testNow)
	db := setupTestDB(t)
	repo := NewGormAuditLogRepository(db)
	ctx := t.Context()

	tn, err := identity.NewTenant("ACME", "Acme")
	require.NoError(t, err)
	require.NoError(t, tn.Suspend())

	events := tn.PullDomainEvents()
	require.Len(t, events, 2)
	for _, event := range events {
		entry, err := audit.NewEntryFromEvent(event)
		require.NoError(t, err)
		require.NoError(t, repo.Append(ctx, entry))
		// redelivery is ignored
		require.NoError(t, repo.Append(ctx, entry))
	}

	trail, err := repo.FindByAggregate(ctx, identity.AggregateTypeTenant, tn.ID)
	require.NoError(t, err)
	assert.Len(t, trail, 2)

	entries, total, err := repo.FindForTenant(ctx, tn.ID, shared.Filter{
		Page: 1, PageSize: 10,
		Filters: map[string]any{"action": identity.EventTypeTenantStatusChanged},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Payload, `"to":"suspended"`)
	assert.True(t, entries[0].OccurredAt.Equal(testNow.Truncate(time.Second)))
}
