package partner

import (
	"context"

	"github.com/google/uuid"
	"github.com/saas/backoffice/internal/domain/shared"
)

// ProviderRepository defines the interface for provider persistence
type ProviderRepository interface {
	// FindByIDForTenant finds a provider by ID within a tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Provider, error)

	// FindAllForTenant lists providers of a tenant with the total count
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]Provider, int64, error)

	// ExistsByDocument checks whether a document is already registered in the tenant
	ExistsByDocument(ctx context.Context, tenantID uuid.UUID, document string) (bool, error)

	// Save creates or updates a provider
	Save(ctx context.Context, provider *Provider) error
}
