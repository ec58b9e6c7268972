package persistence

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/saas/backoffice/internal/domain/identity"
	"github.com/saas/backoffice/internal/domain/shared"
	"github.com/saas/backoffice/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormTenantRepository implements TenantRepository using GORM
type GormTenantRepository struct {
	db *gorm.DB
}

// NewGormTenantRepository creates a new GormTenantRepository
func NewGormTenantRepository(db *gorm.DB) *GormTenantRepository {
	return &GormTenantRepository{db: db}
}

// FindByID finds a tenant by its ID
func (r *GormTenantRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.Tenant, error) {
	var model models.TenantModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "tenant")
	}
	return model.ToDomain(), nil
}

// FindByCode finds a tenant by its unique code
func (r *GormTenantRepository) FindByCode(ctx context.Context, code string) (*identity.Tenant, error) {
	var model models.TenantModel
	if err := r.db.WithContext(ctx).
		Where("code = ?", strings.ToUpper(code)).
		First(&model).Error; err != nil {
		return nil, notFound(err, "tenant")
	}
	return model.ToDomain(), nil
}

// FindAll finds all tenants matching the filter.
// Filters: "status".
func (r *GormTenantRepository) FindAll(ctx context.Context, filter shared.Filter) ([]identity.Tenant, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.TenantModel{})

	if filter.Search != "" {
		keyword := likeKeyword(filter.Search)
		query = query.Where("LOWER(name) LIKE ? OR LOWER(code) LIKE ?", keyword, keyword)
	}
	if status, ok := filter.Filters["status"]; ok && status != "" {
		query = query.Where("status = ?", status)
	}

	query, total, err := paginate(query, filter, TenantSortFields, "created_at DESC")
	if err != nil {
		return nil, 0, err
	}

	var tenantModels []models.TenantModel
	if err := query.Find(&tenantModels).Error; err != nil {
		return nil, 0, err
	}

	tenants := make([]identity.Tenant, len(tenantModels))
	for i, model := range tenantModels {
		tenants[i] = *model.ToDomain()
	}
	return tenants, total, nil
}

// Save inserts a new tenant or applies a version-checked update
func (r *GormTenantRepository) Save(ctx context.Context, tenant *identity.Tenant) error {
	model := models.TenantModelFromDomain(tenant)
	if tenant.Version <= 1 {
		return translateWriteError(r.db.WithContext(ctx).Create(model).Error, "tenant")
	}
	return lockedUpdate(ctx, r.db, model, tenant.ID, tenant.Version, "tenant")
}

// CountByStatus counts tenants per status
func (r *GormTenantRepository) CountByStatus(ctx context.Context) (map[identity.TenantStatus]int64, error) {
	var rows []struct {
		Status identity.TenantStatus
		Count  int64
	}
	if err := r.db.WithContext(ctx).Model(&models.TenantModel{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[identity.TenantStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// ExistsByCode checks if a tenant with the given code exists
func (r *GormTenantRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.TenantModel{}).
		Where("code = ?", strings.ToUpper(code)).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Ensure GormTenantRepository implements TenantRepository
var _ identity.TenantRepository = (*GormTenantRepository)(nil)
