package identity

import (
	"context"

	"github.com/google/uuid"
	"github.com/saas/backoffice/internal/domain/shared"
)

// TenantRepository persists tenants. Tenants are platform-level records, so
// no method is tenant-scoped. Lookups that miss return shared.ErrNotFound.
type TenantRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Tenant, error)
	// FindByCode matches the normalized, upper-case code
	FindByCode(ctx context.Context, code string) (*Tenant, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Tenant, int64, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	CountByStatus(ctx context.Context) (map[TenantStatus]int64, error)
	// Save inserts a new tenant or overwrites an existing one
	Save(ctx context.Context, tenant *Tenant) error
}
