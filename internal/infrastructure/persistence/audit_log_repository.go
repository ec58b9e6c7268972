package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/saas/backoffice/internal/domain/audit"
	"github.com/saas/backoffice/internal/domain/shared"
	"github.com/saas/backoffice/internal/infrastructure/persistence/models"
	"github.com/saas/backoffice/internal/infrastructure/persistence/tenant"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormAuditLogRepository implements audit.Repository using GORM
type GormAuditLogRepository struct {
	db *gorm.DB
}

// NewGormAuditLogRepository creates a new GormAuditLogRepository
func NewGormAuditLogRepository(db *gorm.DB) *GormAuditLogRepository {
	return &GormAuditLogRepository{db: db}
}

// Append stores an entry; a redelivered event id is ignored
func (r *GormAuditLogRepository) Append(ctx context.Context, entry *audit.Entry) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(models.AuditLogModelFromDomain(entry)).Error
}

// FindByAggregate lists the trail of one aggregate, oldest first
func (r *GormAuditLogRepository) FindByAggregate(ctx context.Context, aggregateType string, aggregateID uuid.UUID) ([]audit.Entry, error) {
	var rows []models.AuditLogModel
	if err := r.db.WithContext(ctx).
		Where("aggregate_type = ? AND aggregate_id = ?", aggregateType, aggregateID).
		Order("occurred_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	entries := make([]audit.Entry, len(rows))
	for i, row := range rows {
		entries[i] = row.ToDomain()
	}
	return entries, nil
}

// FindForTenant lists the most recent entries of a tenant
func (r *GormAuditLogRepository) FindForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]audit.Entry, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.AuditLogModel{}).Scopes(tenant.TenantScope(tenantID))
	if action, ok := filter.Filters["action"]; ok && action != "" {
		query = query.Where("action = ?", action)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	filter = filter.Normalize()
	var rows []models.AuditLogModel
	if err := query.
		Order("occurred_at DESC").
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	entries := make([]audit.Entry, len(rows))
	for i, row := range rows {
		entries[i] = row.ToDomain()
	}
	return entries, total, nil
}

// Ensure GormAuditLogRepository implements audit.Repository
var _ audit.Repository = (*GormAuditLogRepository)(nil)
