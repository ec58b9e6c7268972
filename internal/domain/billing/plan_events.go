package billing

import (
	"github.com/google/uuid"
	"github.com/saas/backoffice/internal/domain/shared"
)

// AggregateTypePlan is the aggregate type of plan events
const AggregateTypePlan = "Plan"

const (
	EventTypePlanCreated       = "PlanCreated"
	EventTypePlanUpdated       = "PlanUpdated"
	EventTypePlanStatusChanged = "PlanStatusChanged"
	EventTypePlanDeleted       = "PlanDeleted"
)

// PlanChangedEvent is published whenever the catalog entry of a plan changes.
// Plans are not tenant scoped so TenantID is uuid.Nil.
type PlanChangedEvent struct {
	shared.BaseDomainEvent
	Name   string     `json:"name"`
	Status PlanStatus `json:"status"`
	Price  string     `json:"price"`
}

// NewPlanChangedEvent creates a plan event of the given type
func NewPlanChangedEvent(plan *Plan, eventType string) *PlanChangedEvent {
	return &PlanChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypePlan, plan.ID, uuid.Nil),
		Name:            plan.Name,
		Status:          plan.Status,
		Price:           plan.Price.StringFixed(2),
	}
}
