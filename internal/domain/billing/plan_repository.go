package billing

import (
	"context"

	"github.com/google/uuid"
	"github.com/saas/backoffice/internal/domain/shared"
)

// PlanRepository defines the interface for plan persistence
type PlanRepository interface {
	// FindByID finds a plan by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Plan, error)

	// FindAll lists plans ordered by sort order then name.
	// Filters: "status" (PlanStatus)
	FindAll(ctx context.Context, filter shared.Filter) ([]Plan, int64, error)

	// ExistsByName checks case-insensitively whether another plan uses the name
	ExistsByName(ctx context.Context, name string, excludeID *uuid.UUID) (bool, error)

	// CountByStatus counts plans per status
	CountByStatus(ctx context.Context) (map[PlanStatus]int64, error)

	// Save creates or updates a plan
	Save(ctx context.Context, plan *Plan) error

	// Delete removes a plan
	Delete(ctx context.Context, id uuid.UUID) error
}
