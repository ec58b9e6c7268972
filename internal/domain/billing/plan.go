package billing

import (
	"sort"
	"strings"

	"github.com/saas/backoffice/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PlanStatus represents the catalog status of a plan
type PlanStatus string

const (
	PlanStatusActive   PlanStatus = "active"
	PlanStatusInactive PlanStatus = "inactive"
	PlanStatusDraft    PlanStatus = "draft"
)

// IsValid returns true if the plan status is known
func (s PlanStatus) IsValid() bool {
	switch s {
	case PlanStatusActive, PlanStatusInactive, PlanStatusDraft:
		return true
	}
	return false
}

const maxPlanNameLength = 100

// PlanLimits caps the resources a subscriber may use. Zero means unlimited.
type PlanLimits struct {
	MaxCustomers int `json:"max_customers"`
	MaxInvoices  int `json:"max_invoices"`
	MaxBudgets   int `json:"max_budgets"`
	MaxProducts  int `json:"max_products"`
	MaxServices  int `json:"max_services"`
	StorageMB    int `json:"storage_mb"`
}

// Validate checks that no limit is negative
func (l PlanLimits) Validate() error {
	for name, v := range map[string]int{
		"max_customers": l.MaxCustomers,
		"max_invoices":  l.MaxInvoices,
		"max_budgets":   l.MaxBudgets,
		"max_products":  l.MaxProducts,
		"max_services":  l.MaxServices,
		"storage_mb":    l.StorageMB,
	} {
		if v < 0 {
			return shared.NewValidationError("plan limit %s cannot be negative", name)
		}
	}
	return nil
}

// Plan is a subscription tier. Plans are shared read-only references for every tenant.
type Plan struct {
	shared.BaseAggregateRoot
	Name         string
	Description  string
	Price        decimal.Decimal
	BillingCycle BillingCycle
	TrialDays    int
	Limits       PlanLimits
	Features     []string
	Status       PlanStatus
	SortOrder    int
	IsFeatured   bool
}

// PlanDetails carries the editable attributes of a plan
type PlanDetails struct {
	Name         string
	Description  string
	Price        decimal.Decimal
	BillingCycle BillingCycle
	TrialDays    int
	Limits       PlanLimits
	Features     []string
	SortOrder    int
	IsFeatured   bool
}

// NewPlan creates a new plan in the given status
func NewPlan(details PlanDetails, status PlanStatus) (*Plan, error) {
	if !status.IsValid() {
		return nil, shared.NewValidationError("invalid plan status %q", status)
	}
	plan := &Plan{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Status:            status,
	}
	if err := plan.apply(details); err != nil {
		return nil, err
	}
	plan.AddDomainEvent(NewPlanChangedEvent(plan, EventTypePlanCreated))
	return plan, nil
}

// Update replaces the plan attributes in place
func (p *Plan) Update(details PlanDetails) error {
	if err := p.apply(details); err != nil {
		return err
	}
	p.MarkModified()
	p.AddDomainEvent(NewPlanChangedEvent(p, EventTypePlanUpdated))
	return nil
}

func (p *Plan) apply(d PlanDetails) error {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return shared.NewValidationError("plan name cannot be empty")
	}
	if len(name) > maxPlanNameLength {
		return shared.NewValidationError("plan name cannot exceed %d characters", maxPlanNameLength)
	}
	if d.Price.IsNegative() {
		return shared.NewValidationError("plan price cannot be negative")
	}
	if !d.BillingCycle.IsValid() {
		return shared.NewValidationError("invalid billing cycle %q", d.BillingCycle)
	}
	if d.TrialDays < 0 {
		return shared.NewValidationError("trial days cannot be negative")
	}
	if err := d.Limits.Validate(); err != nil {
		return err
	}
	features, err := normalizeFeatures(d.Features)
	if err != nil {
		return err
	}

	p.Name = name
	p.Description = strings.TrimSpace(d.Description)
	p.Price = d.Price
	p.BillingCycle = d.BillingCycle
	p.TrialDays = d.TrialDays
	p.Limits = d.Limits
	p.Features = features
	p.SortOrder = d.SortOrder
	p.IsFeatured = d.IsFeatured
	return nil
}

// normalizeFeatures dedupes and sorts feature keys, rejecting unknown ones
func normalizeFeatures(in []string) ([]string, error) {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, f := range in {
		f = strings.TrimSpace(f)
		if !IsKnownFeature(f) {
			return nil, shared.NewValidationError("unknown plan feature %q", f)
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	sort.Strings(out)
	return out, nil
}

// ChangeStatus moves the plan to another catalog status
func (p *Plan) ChangeStatus(status PlanStatus) error {
	if !status.IsValid() {
		return shared.NewValidationError("invalid plan status %q", status)
	}
	if p.Status == status {
		return shared.NewInvalidStateTransitionError("plan", string(p.Status), string(status))
	}
	p.Status = status
	p.MarkModified()
	p.AddDomainEvent(NewPlanChangedEvent(p, EventTypePlanStatusChanged))
	return nil
}

// ToggleStatus flips between active and inactive. A draft plan is published as active.
func (p *Plan) ToggleStatus() error {
	if p.Status == PlanStatusActive {
		return p.ChangeStatus(PlanStatusInactive)
	}
	return p.ChangeStatus(PlanStatusActive)
}

// Duplicate returns a draft copy of the plan named "<name> (Copy)"
func (p *Plan) Duplicate() (*Plan, error) {
	const suffix = " (Copy)"
	base := p.Name
	if len(base)+len(suffix) > maxPlanNameLength {
		base = strings.TrimSpace(base[:maxPlanNameLength-len(suffix)])
	}
	return NewPlan(PlanDetails{
		Name:         base + suffix,
		Description:  p.Description,
		Price:        p.Price,
		BillingCycle: p.BillingCycle,
		TrialDays:    p.TrialDays,
		Limits:       p.Limits,
		Features:     append([]string(nil), p.Features...),
		SortOrder:    p.SortOrder,
	}, PlanStatusDraft)
}

// IsActive reports whether new subscriptions may be opened on the plan
func (p *Plan) IsActive() bool {
	return p.Status == PlanStatusActive
}

// HasTrial reports whether subscriptions start in trial
func (p *Plan) HasTrial() bool {
	return p.TrialDays > 0
}

// HasFeature reports whether the plan grants a feature
func (p *Plan) HasFeature(key string) bool {
	for _, f := range p.Features {
		if f == key {
			return true
		}
	}
	return false
}

// MonthlyPrice returns the price normalized to one month
func (p *Plan) MonthlyPrice() decimal.Decimal {
	return p.BillingCycle.MonthlyEquivalent(p.Price)
}
