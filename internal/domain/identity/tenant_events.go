package identity

import "github.com/saas/backoffice/internal/domain/shared"

const (
	AggregateTypeTenant = "Tenant"

	EventTypeTenantCreated       = "TenantCreated"
	EventTypeTenantStatusChanged = "TenantStatusChanged"
)

// TenantCreatedEvent announces a newly registered tenant
type TenantCreatedEvent struct {
	shared.BaseDomainEvent
	Code   string       `json:"code"`
	Name   string       `json:"name"`
	Status TenantStatus `json:"status"`
}

// TenantStatusChangedEvent records an activation or a suspension. Suspending
// a tenant does not touch its subscriptions.
type TenantStatusChangedEvent struct {
	shared.BaseDomainEvent
	From TenantStatus `json:"from"`
	To   TenantStatus `json:"to"`
}

// tenantEvent stamps an event on the tenant's own aggregate; a tenant is its
// own scope, so the aggregate id doubles as the tenant id.
func tenantEvent(t *Tenant, eventType string) shared.BaseDomainEvent {
	return shared.NewBaseDomainEvent(eventType, AggregateTypeTenant, t.ID, t.ID)
}

func NewTenantCreatedEvent(t *Tenant) *TenantCreatedEvent {
	return &TenantCreatedEvent{
		BaseDomainEvent: tenantEvent(t, EventTypeTenantCreated),
		Code:            t.Code,
		Name:            t.Name,
		Status:          t.Status,
	}
}

func NewTenantStatusChangedEvent(t *Tenant, from, to TenantStatus) *TenantStatusChangedEvent {
	return &TenantStatusChangedEvent{
		BaseDomainEvent: tenantEvent(t, EventTypeTenantStatusChanged),
		From:            from,
		To:              to,
	}
}
