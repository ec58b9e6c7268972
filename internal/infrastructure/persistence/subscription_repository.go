package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/saas/backoffice/internal/domain/billing"
	"github.com/saas/backoffice/internal/domain/shared"
	"github.com/saas/backoffice/internal/infrastructure/persistence/models"
	"github.com/saas/backoffice/internal/infrastructure/persistence/tenant"
	"gorm.io/gorm"
)

// GormSubscriptionRepository implements SubscriptionRepository using GORM
type GormSubscriptionRepository struct {
	db *gorm.DB
}

// NewGormSubscriptionRepository creates a new GormSubscriptionRepository
func NewGormSubscriptionRepository(db *gorm.DB) *GormSubscriptionRepository {
	return &GormSubscriptionRepository{db: db}
}

// FindByID finds a subscription by ID regardless of tenant
func (r *GormSubscriptionRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Subscription, error) {
	var model models.SubscriptionModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "subscription")
	}
	return model.ToDomain(), nil
}

// FindByIDForTenant finds a subscription by ID within a tenant
func (r *GormSubscriptionRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*billing.Subscription, error) {
	var model models.SubscriptionModel
	if err := r.db.WithContext(ctx).
		Scopes(tenant.TenantScope(tenantID)).
		Where("id = ?", id).
		First(&model).Error; err != nil {
		return nil, notFound(err, "subscription")
	}
	return model.ToDomain(), nil
}

// FindCurrentForTenant returns the most recently created trial or active subscription
func (r *GormSubscriptionRepository) FindCurrentForTenant(ctx context.Context, tenantID uuid.UUID) (*billing.Subscription, error) {
	var model models.SubscriptionModel
	err := r.db.WithContext(ctx).
		Scopes(tenant.TenantScope(tenantID)).
		Where("status IN ?", billing.CurrentSubscriptionStatuses).
		Order("created_at DESC").
		Order("id DESC").
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAllForTenant lists subscriptions of a tenant, newest first
func (r *GormSubscriptionRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]billing.Subscription, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.SubscriptionModel{}).Scopes(tenant.TenantScope(tenantID))

	if status, ok := filter.Filters["status"]; ok && status != "" {
		query = query.Where("status = ?", status)
	}
	if providerID, ok := filter.Filters["provider_id"]; ok {
		query = query.Where("provider_id = ?", providerID)
	}
	if planID, ok := filter.Filters["plan_id"]; ok {
		query = query.Where("plan_id = ?", planID)
	}

	query, total, err := paginate(query, filter, SubscriptionSortFields, "created_at DESC")
	if err != nil {
		return nil, 0, err
	}

	var subModels []models.SubscriptionModel
	if err := query.Find(&subModels).Error; err != nil {
		return nil, 0, err
	}

	subs := make([]billing.Subscription, len(subModels))
	for i, model := range subModels {
		subs[i] = *model.ToDomain()
	}
	return subs, total, nil
}

// CountByPlan counts subscriptions referencing a plan in any status
func (r *GormSubscriptionRepository) CountByPlan(ctx context.Context, planID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.SubscriptionModel{}).
		Where("plan_id = ?", planID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Create inserts a new subscription.
// The partial unique index on current subscriptions turns a second
// trial/active row for the tenant into a concurrency conflict.
func (r *GormSubscriptionRepository) Create(ctx context.Context, sub *billing.Subscription) error {
	model := models.SubscriptionModelFromDomain(sub)
	return translateWriteError(r.db.WithContext(ctx).Create(model).Error, "subscription")
}

// SaveWithLock updates a subscription with a version compare-and-swap
func (r *GormSubscriptionRepository) SaveWithLock(ctx context.Context, sub *billing.Subscription) error {
	model := models.SubscriptionModelFromDomain(sub)
	return lockedUpdate(ctx, r.db, model, sub.ID, sub.Version, "subscription")
}

// Ensure GormSubscriptionRepository implements SubscriptionRepository
var _ billing.SubscriptionRepository = (*GormSubscriptionRepository)(nil)
