package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/saas/backoffice/internal/domain/partner"
	"github.com/saas/backoffice/internal/domain/shared"
	"github.com/saas/backoffice/internal/infrastructure/persistence/models"
	"github.com/saas/backoffice/internal/infrastructure/persistence/tenant"
	"gorm.io/gorm"
)

// GormProviderRepository implements ProviderRepository using GORM
type GormProviderRepository struct {
	db *gorm.DB
}

// NewGormProviderRepository creates a new GormProviderRepository
func NewGormProviderRepository(db *gorm.DB) *GormProviderRepository {
	return &GormProviderRepository{db: db}
}

// FindByIDForTenant finds a provider by ID within a tenant
func (r *GormProviderRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*partner.Provider, error) {
	var model models.ProviderModel
	if err := r.db.WithContext(ctx).
		Scopes(tenant.TenantScope(tenantID)).
		Where("id = ?", id).
		First(&model).Error; err != nil {
		return nil, notFound(err, "provider")
	}
	return model.ToDomain(), nil
}

// FindAllForTenant lists providers of a tenant.
// Filters: "status", "plan_id".
func (r *GormProviderRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]partner.Provider, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ProviderModel{}).Scopes(tenant.TenantScope(tenantID))

	if filter.Search != "" {
		keyword := likeKeyword(filter.Search)
		query = query.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR document LIKE ?", keyword, keyword, keyword)
	}
	if status, ok := filter.Filters["status"]; ok && status != "" {
		query = query.Where("status = ?", status)
	}
	if planID, ok := filter.Filters["plan_id"]; ok {
		query = query.Where("plan_id = ?", planID)
	}

	query, total, err := paginate(query, filter, ProviderSortFields, "name ASC")
	if err != nil {
		return nil, 0, err
	}

	var providerModels []models.ProviderModel
	if err := query.Find(&providerModels).Error; err != nil {
		return nil, 0, err
	}

	providers := make([]partner.Provider, len(providerModels))
	for i, model := range providerModels {
		providers[i] = *model.ToDomain()
	}
	return providers, total, nil
}

// ExistsByDocument checks whether a document is already registered in the tenant
func (r *GormProviderRepository) ExistsByDocument(ctx context.Context, tenantID uuid.UUID, document string) (bool, error) {
	if document == "" {
		return false, nil
	}
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.ProviderModel{}).
		Scopes(tenant.TenantScope(tenantID)).
		Where("document = ?", document).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save inserts a new provider or applies a version-checked update
func (r *GormProviderRepository) Save(ctx context.Context, provider *partner.Provider) error {
	model := models.ProviderModelFromDomain(provider)
	if provider.Version <= 1 {
		return translateWriteError(r.db.WithContext(ctx).Create(model).Error, "provider")
	}
	return lockedUpdate(ctx, r.db, model, provider.ID, provider.Version, "provider")
}

// Ensure GormProviderRepository implements ProviderRepository
var _ partner.ProviderRepository = (*GormProviderRepository)(nil)
