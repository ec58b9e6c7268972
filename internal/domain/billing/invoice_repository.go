package billing

import (
	"context"

	"github.com/google/uuid"
	"github.com/saas/backoffice/internal/domain/shared"
)

// InvoiceRepository defines the interface for invoice persistence
type InvoiceRepository interface {
	// FindByIDForTenant finds an invoice by ID within a tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Invoice, error)

	// FindAllForTenant lists invoices of a tenant, newest first.
	// Filters: "status" (InvoiceStatus), "provider_id" (uuid.UUID)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]Invoice, int64, error)

	// ExistsByNumber checks whether the number is already used in the tenant
	ExistsByNumber(ctx context.Context, tenantID uuid.UUID, number string) (bool, error)

	// Create inserts a new invoice
	Create(ctx context.Context, invoice *Invoice) error

	// SaveWithLock updates an invoice with a version compare-and-swap
	SaveWithLock(ctx context.Context, invoice *Invoice) error
}
