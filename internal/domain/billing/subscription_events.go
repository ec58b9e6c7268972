package billing

import (
	"github.com/google/uuid"
	"github.com/saas/backoffice/internal/domain/shared"
)

// AggregateTypeSubscription is the aggregate type of subscription events
const AggregateTypeSubscription = "PlanSubscription"

const (
	EventTypeSubscriptionCreated       = "SubscriptionCreated"
	EventTypeSubscriptionStatusChanged = "SubscriptionStatusChanged"
	EventTypeSubscriptionPlanChanged   = "SubscriptionPlanChanged"
)

// SubscriptionCreatedEvent is published when a tenant subscribes for the first time
type SubscriptionCreatedEvent struct {
	shared.BaseDomainEvent
	ProviderID uuid.UUID          `json:"provider_id"`
	PlanID     uuid.UUID          `json:"plan_id"`
	Status     SubscriptionStatus `json:"status"`
	Amount     string             `json:"amount"`
}

// NewSubscriptionCreatedEvent creates a new SubscriptionCreatedEvent
func NewSubscriptionCreatedEvent(s *Subscription) *SubscriptionCreatedEvent {
	return &SubscriptionCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSubscriptionCreated, AggregateTypeSubscription, s.ID, s.TenantID),
		ProviderID:      s.ProviderID,
		PlanID:          s.PlanID,
		Status:          s.Status,
		Amount:          s.Amount.StringFixed(2),
	}
}

// SubscriptionStatusChangedEvent is published on every state machine transition
type SubscriptionStatusChangedEvent struct {
	shared.BaseDomainEvent
	From   SubscriptionStatus `json:"from"`
	To     SubscriptionStatus `json:"to"`
	Reason string             `json:"reason,omitempty"`
}

// NewSubscriptionStatusChangedEvent creates a new SubscriptionStatusChangedEvent
func NewSubscriptionStatusChangedEvent(s *Subscription, from, to SubscriptionStatus) *SubscriptionStatusChangedEvent {
	return &SubscriptionStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSubscriptionStatusChanged, AggregateTypeSubscription, s.ID, s.TenantID),
		From:            from,
		To:              to,
		Reason:          s.CancellationReason,
	}
}

// SubscriptionPlanChangedEvent is published when an upgrade or downgrade opens a new subscription
type SubscriptionPlanChangedEvent struct {
	shared.BaseDomainEvent
	PreviousPlanID *uuid.UUID     `json:"previous_plan_id"`
	PlanID         uuid.UUID      `json:"plan_id"`
	Amount         string         `json:"amount"`
	Classification Classification `json:"classification"`
}

// NewSubscriptionPlanChangedEvent creates a new SubscriptionPlanChangedEvent
func NewSubscriptionPlanChangedEvent(s *Subscription) *SubscriptionPlanChangedEvent {
	return &SubscriptionPlanChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSubscriptionPlanChanged, AggregateTypeSubscription, s.ID, s.TenantID),
		PreviousPlanID:  s.PreviousPlanID,
		PlanID:          s.PlanID,
		Amount:          s.Amount.StringFixed(2),
		Classification:  s.Classification(),
	}
}
