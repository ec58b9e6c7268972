package identity

import (
	"strings"

	"github.com/saas/backoffice/internal/domain/shared"
)

// TenantStatus represents the status of a tenant
type TenantStatus string

const (
	TenantStatusActive    TenantStatus = "active"
	TenantStatusSuspended TenantStatus = "suspended" // Suspended due to payment/violation issues
	TenantStatusTrial     TenantStatus = "trial"
)

// IsValid reports whether s is a known tenant status
func (s TenantStatus) IsValid() bool {
	switch s {
	case TenantStatusActive, TenantStatusSuspended, TenantStatusTrial:
		return true
	}
	return false
}

// Tenant is an isolated customer account and the root of all multi-tenant scoping.
type Tenant struct {
	shared.BaseAggregateRoot
	Code   string
	Name   string
	Status TenantStatus
}

// NewTenant creates a new active tenant
func NewTenant(code, name string) (*Tenant, error) {
	if err := validateTenantCode(code); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if err := validateTenantName(name); err != nil {
		return nil, err
	}

	tenant := &Tenant{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              strings.ToUpper(code),
		Name:              name,
		Status:            TenantStatusActive,
	}
	tenant.AddDomainEvent(NewTenantCreatedEvent(tenant))

	return tenant, nil
}

// NewTrialTenant creates a new tenant in trial status
func NewTrialTenant(code, name string) (*Tenant, error) {
	tenant, err := NewTenant(code, name)
	if err != nil {
		return nil, err
	}
	tenant.Status = TenantStatusTrial
	return tenant, nil
}

// Rename updates the display name
func (t *Tenant) Rename(name string) error {
	name = strings.TrimSpace(name)
	if err := validateTenantName(name); err != nil {
		return err
	}
	t.Name = name
	t.MarkModified()
	return nil
}

// Activate moves a trial or suspended tenant to active
func (t *Tenant) Activate() error {
	return t.changeStatus(TenantStatusActive)
}

// Suspend blocks the tenant from starting new subscriptions
func (t *Tenant) Suspend() error {
	return t.changeStatus(TenantStatusSuspended)
}

func (t *Tenant) changeStatus(to TenantStatus) error {
	if t.Status == to {
		return shared.NewInvalidStateTransitionError("tenant", string(t.Status), string(to))
	}
	from := t.Status
	t.Status = to
	t.MarkModified()
	t.AddDomainEvent(NewTenantStatusChangedEvent(t, from, to))
	return nil
}

// CanSubscribe reports whether the tenant may open a new subscription
func (t *Tenant) CanSubscribe() bool {
	return t.Status != TenantStatusSuspended
}

func (t *Tenant) IsActive() bool    { return t.Status == TenantStatusActive }
func (t *Tenant) IsSuspended() bool { return t.Status == TenantStatusSuspended }
func (t *Tenant) IsTrial() bool     { return t.Status == TenantStatusTrial }

func validateTenantCode(code string) error {
	if code == "" {
		return shared.NewValidationError("tenant code cannot be empty")
	}
	if len(code) > 50 {
		return shared.NewValidationError("tenant code cannot exceed 50 characters")
	}
	for _, r := range code {
		if !((r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-') {
			return shared.NewValidationError("tenant code can only contain letters, numbers, underscores, and hyphens")
		}
	}
	return nil
}

func validateTenantName(name string) error {
	if name == "" {
		return shared.NewValidationError("tenant name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewValidationError("tenant name cannot exceed 200 characters")
	}
	return nil
}
