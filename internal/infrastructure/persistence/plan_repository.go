package persistence

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/saas/backoffice/internal/domain/billing"
	"github.com/saas/backoffice/internal/domain/shared"
	"github.com/saas/backoffice/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormPlanRepository implements PlanRepository using GORM
type GormPlanRepository struct {
	db *gorm.DB
}

// NewGormPlanRepository creates a new GormPlanRepository
func NewGormPlanRepository(db *gorm.DB) *GormPlanRepository {
	return &GormPlanRepository{db: db}
}

// FindByID finds a plan by ID
func (r *GormPlanRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Plan, error) {
	var model models.PlanModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "plan")
	}
	return model.ToDomain(), nil
}

// FindAll lists plans ordered by sort order then name
func (r *GormPlanRepository) FindAll(ctx context.Context, filter shared.Filter) ([]billing.Plan, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.PlanModel{})

	if filter.Search != "" {
		keyword := likeKeyword(filter.Search)
		query = query.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", keyword, keyword)
	}
	if status, ok := filter.Filters["status"]; ok && status != "" {
		query = query.Where("status = ?", status)
	}
	if featured, ok := filter.Filters["is_featured"]; ok {
		query = query.Where("is_featured = ?", featured)
	}

	query, total, err := paginate(query, filter, PlanSortFields, "sort_order ASC, name ASC")
	if err != nil {
		return nil, 0, err
	}

	var planModels []models.PlanModel
	if err := query.Find(&planModels).Error; err != nil {
		return nil, 0, err
	}

	plans := make([]billing.Plan, len(planModels))
	for i, model := range planModels {
		plans[i] = *model.ToDomain()
	}
	return plans, total, nil
}

// ExistsByName checks case-insensitively whether another plan uses the name
func (r *GormPlanRepository) ExistsByName(ctx context.Context, name string, excludeID *uuid.UUID) (bool, error) {
	query := r.db.WithContext(ctx).Model(&models.PlanModel{}).
		Where("LOWER(name) = ?", strings.ToLower(strings.TrimSpace(name)))
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CountByStatus counts plans per status
func (r *GormPlanRepository) CountByStatus(ctx context.Context) (map[billing.PlanStatus]int64, error) {
	var rows []struct {
		Status billing.PlanStatus
		Count  int64
	}
	if err := r.db.WithContext(ctx).Model(&models.PlanModel{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[billing.PlanStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// Save inserts a new plan or applies a version-checked update
func (r *GormPlanRepository) Save(ctx context.Context, plan *billing.Plan) error {
	model := models.PlanModelFromDomain(plan)
	if plan.Version <= 1 {
		return translateWriteError(r.db.WithContext(ctx).Create(model).Error, "plan")
	}
	return lockedUpdate(ctx, r.db, model, plan.ID, plan.Version, "plan")
}

// Delete removes a plan
func (r *GormPlanRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.PlanModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError("plan")
	}
	return nil
}

// Ensure GormPlanRepository implements PlanRepository
var _ billing.PlanRepository = (*GormPlanRepository)(nil)
