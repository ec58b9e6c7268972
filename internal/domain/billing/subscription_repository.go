package billing

import (
	"context"

	"github.com/google/uuid"
	"github.com/saas/backoffice/internal/domain/shared"
)

// SubscriptionRepository defines the interface for plan subscription persistence
type SubscriptionRepository interface {
	// FindByID finds a subscription by ID regardless of tenant
	FindByID(ctx context.Context, id uuid.UUID) (*Subscription, error)

	// FindByIDForTenant finds a subscription by ID within a tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Subscription, error)

	// FindCurrentForTenant returns the most recently created trial or active
	// subscription of the tenant, or (nil, nil) when there is none
	FindCurrentForTenant(ctx context.Context, tenantID uuid.UUID) (*Subscription, error)

	// FindAllForTenant lists subscriptions of a tenant, newest first.
	// Filters: "status" (SubscriptionStatus), "provider_id" (uuid.UUID)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]Subscription, int64, error)

	// CountByPlan counts subscriptions referencing a plan in any status
	CountByPlan(ctx context.Context, planID uuid.UUID) (int64, error)

	// Create inserts a new subscription. A second current subscription for
	// the same tenant fails with a concurrency conflict.
	Create(ctx context.Context, sub *Subscription) error

	// SaveWithLock updates a subscription only if nobody else changed it since
	// it was loaded (version compare-and-swap)
	SaveWithLock(ctx context.Context, sub *Subscription) error
}
