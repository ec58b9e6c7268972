package persistence

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/saas/backoffice/internal/domain/billing"
	"github.com/saas/backoffice/internal/domain/shared"
	"github.com/saas/backoffice/internal/infrastructure/persistence/models"
	"github.com/saas/backoffice/internal/infrastructure/persistence/tenant"
	"gorm.io/gorm"
)

// GormInvoiceRepository implements InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindByIDForTenant finds an invoice by ID within a tenant
func (r *GormInvoiceRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*billing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Scopes(tenant.TenantScope(tenantID)).
		Where("id = ?", id).
		First(&model).Error; err != nil {
		return nil, notFound(err, "invoice")
	}
	return model.ToDomain(), nil
}

// FindAllForTenant lists invoices of a tenant, newest first
func (r *GormInvoiceRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]billing.Invoice, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.InvoiceModel{}).Scopes(tenant.TenantScope(tenantID))

	if filter.Search != "" {
		query = query.Where("number LIKE ?", "%"+strings.ToUpper(strings.TrimSpace(filter.Search))+"%")
	}
	if status, ok := filter.Filters["status"]; ok && status != "" {
		query = query.Where("status = ?", status)
	}
	if providerID, ok := filter.Filters["provider_id"]; ok {
		query = query.Where("provider_id = ?", providerID)
	}

	query, total, err := paginate(query, filter, InvoiceSortFields, "created_at DESC")
	if err != nil {
		return nil, 0, err
	}

	var invoiceModels []models.InvoiceModel
	if err := query.Find(&invoiceModels).Error; err != nil {
		return nil, 0, err
	}

	invoices := make([]billing.Invoice, len(invoiceModels))
	for i, model := range invoiceModels {
		invoices[i] = *model.ToDomain()
	}
	return invoices, total, nil
}

// ExistsByNumber checks whether the number is already used in the tenant
func (r *GormInvoiceRepository) ExistsByNumber(ctx context.Context, tenantID uuid.UUID, number string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.InvoiceModel{}).
		Scopes(tenant.TenantScope(tenantID)).
		Where("number = ?", strings.ToUpper(number)).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create inserts a new invoice
func (r *GormInvoiceRepository) Create(ctx context.Context, invoice *billing.Invoice) error {
	model := models.InvoiceModelFromDomain(invoice)
	return translateWriteError(r.db.WithContext(ctx).Create(model).Error, "invoice")
}

// SaveWithLock updates an invoice with a version compare-and-swap
func (r *GormInvoiceRepository) SaveWithLock(ctx context.Context, invoice *billing.Invoice) error {
	model := models.InvoiceModelFromDomain(invoice)
	return lockedUpdate(ctx, r.db, model, invoice.ID, invoice.Version, "invoice")
}

// Ensure GormInvoiceRepository implements InvoiceRepository
var _ billing.InvoiceRepository = (*GormInvoiceRepository)(nil)
