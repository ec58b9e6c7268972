package partner

import (
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/saas/backoffice/internal/domain/shared"
)

// ProviderStatus represents the status of a provider
type ProviderStatus string

const (
	ProviderStatusActive    ProviderStatus = "active"
	ProviderStatusInactive  ProviderStatus = "inactive"
	ProviderStatusSuspended ProviderStatus = "suspended"
)

// Provider is a business under a tenant that is billed for a plan.
// PlanID mirrors the plan of the provider's current subscription for fast lookup.
type Provider struct {
	shared.TenantAggregateRoot
	Name     string
	Email    string
	Phone    string
	Document string
	PlanID   *uuid.UUID
	Status   ProviderStatus
}

// NewProvider creates a new active provider within a tenant
func NewProvider(tenantID uuid.UUID, name, email, phone, document string) (*Provider, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewValidationError("provider requires a tenant")
	}
	p := &Provider{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Status:              ProviderStatusActive,
	}
	if err := p.setDetails(name, email, phone, document); err != nil {
		return nil, err
	}
	return p, nil
}

// Update replaces the provider's contact details
func (p *Provider) Update(name, email, phone, document string) error {
	if err := p.setDetails(name, email, phone, document); err != nil {
		return err
	}
	p.MarkModified()
	return nil
}

func (p *Provider) setDetails(name, email, phone, document string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewValidationError("provider name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewValidationError("provider name cannot exceed 200 characters")
	}
	email = strings.TrimSpace(email)
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return shared.NewValidationError("provider email %q is invalid", email)
		}
	}
	if len(phone) > 50 {
		return shared.NewValidationError("provider phone cannot exceed 50 characters")
	}
	document = normalizeDocument(document)
	if len(document) > 20 {
		return shared.NewValidationError("provider document cannot exceed 20 digits")
	}

	p.Name = name
	p.Email = strings.ToLower(email)
	p.Phone = strings.TrimSpace(phone)
	p.Document = document
	return nil
}

// AssignPlan records the plan of the provider's current subscription
func (p *Provider) AssignPlan(planID uuid.UUID) {
	p.PlanID = &planID
	p.MarkModified()
}

// ClearPlan removes the denormalized plan reference
func (p *Provider) ClearPlan() {
	p.PlanID = nil
	p.MarkModified()
}

// Deactivate marks the provider inactive
func (p *Provider) Deactivate() error {
	if p.Status == ProviderStatusInactive {
		return shared.NewInvalidStateTransitionError("provider", string(p.Status), string(ProviderStatusInactive))
	}
	p.Status = ProviderStatusInactive
	p.MarkModified()
	return nil
}

// IsActive returns true if the provider is active
func (p *Provider) IsActive() bool {
	return p.Status == ProviderStatusActive
}

// normalizeDocument keeps only the digits of a tax/registration document
func normalizeDocument(document string) string {
	var b strings.Builder
	for _, r := range document {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
