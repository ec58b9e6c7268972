package billing

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/saas/backoffice/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// SubscriptionStatus is the lifecycle state of a subscription
type SubscriptionStatus string

const (
	SubscriptionStatusTrial     SubscriptionStatus = "trial"
	SubscriptionStatusPending   SubscriptionStatus = "pending" // awaiting a payment retry
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

// IsValid returns true if the status is known
func (s SubscriptionStatus) IsValid() bool {
	_, ok := subscriptionTransitions[s]
	return ok
}

// IsCurrent reports whether the status counts as the tenant's current subscription
func (s SubscriptionStatus) IsCurrent() bool {
	return s == SubscriptionStatusTrial || s == SubscriptionStatusActive
}

// IsTerminal reports whether no transition leaves the status
func (s SubscriptionStatus) IsTerminal() bool {
	return len(subscriptionTransitions[s]) == 0
}

// CurrentSubscriptionStatuses are the statuses of which a tenant may hold at most one
var CurrentSubscriptionStatuses = []SubscriptionStatus{SubscriptionStatusTrial, SubscriptionStatusActive}

var subscriptionTransitions = map[SubscriptionStatus][]SubscriptionStatus{
	SubscriptionStatusTrial:     {SubscriptionStatusActive, SubscriptionStatusPending, SubscriptionStatusCancelled},
	SubscriptionStatusPending:   {SubscriptionStatusActive, SubscriptionStatusCancelled},
	SubscriptionStatusActive:    {SubscriptionStatusCancelled},
	SubscriptionStatusCancelled: nil,
}

// CanTransitionTo reports whether the state machine allows moving to next
func (s SubscriptionStatus) CanTransitionTo(next SubscriptionStatus) bool {
	for _, allowed := range subscriptionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Classification describes how a subscription relates to the one it replaced
type Classification string

const (
	ClassificationNew       Classification = "new"
	ClassificationUpgrade   Classification = "upgrade"
	ClassificationDowngrade Classification = "downgrade"
	ClassificationNeither   Classification = "neither"
)

// Classify compares a new amount with the amount of the replaced subscription
func Classify(previous, current decimal.Decimal) Classification {
	switch current.Cmp(previous) {
	case 1:
		return ClassificationUpgrade
	case -1:
		return ClassificationDowngrade
	default:
		return ClassificationNeither
	}
}

// CancellationReasonPlanChange marks a subscription closed by an upgrade or downgrade
const CancellationReasonPlanChange = "plan_change"

// Subscription binds a tenant's provider to a plan over time.
type Subscription struct {
	shared.TenantAggregateRoot
	ProviderID         uuid.UUID
	PlanID             uuid.UUID
	Status             SubscriptionStatus
	PreviousPlanID     *uuid.UUID
	PreviousAmount     *decimal.Decimal
	Amount             decimal.Decimal
	BillingCycle       BillingCycle
	StartDate          time.Time
	EndDate            *time.Time // nil while open-ended
	TrialEndsAt        *time.Time
	PaymentMethod      string
	PaymentGatewayID   string
	LastPaymentAt      *time.Time
	NextPaymentAt      *time.Time
	CancelledAt        *time.Time
	CancellationReason string
}

// NewSubscription opens a subscription for a provider on an active plan.
// It starts in trial when the plan has trial days, otherwise active.
func NewSubscription(
	tenantID, providerID uuid.UUID,
	plan *Plan,
	amount decimal.Decimal,
	cycle BillingCycle,
	paymentMethod string,
) (*Subscription, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewValidationError("subscription requires a tenant")
	}
	if providerID == uuid.Nil {
		return nil, shared.NewValidationError("subscription requires a provider")
	}
	if plan == nil {
		return nil, shared.NewValidationError("subscription requires a plan")
	}
	if !plan.IsActive() {
		return nil, shared.NewValidationError("plan %s is %s and cannot be subscribed", plan.Name, plan.Status)
	}
	if amount.IsNegative() {
		return nil, shared.NewValidationError("subscription amount cannot be negative")
	}
	if cycle == "" {
		cycle = plan.BillingCycle
	}
	if !cycle.IsValid() {
		return nil, shared.NewValidationError("invalid billing cycle %q", cycle)
	}

	now := shared.Now()
	sub := &Subscription{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		ProviderID:          providerID,
		PlanID:              plan.ID,
		Amount:              amount,
		BillingCycle:        cycle,
		StartDate:           now,
		PaymentMethod:       strings.TrimSpace(paymentMethod),
	}
	if plan.HasTrial() {
		trialEnd := now.AddDate(0, 0, plan.TrialDays)
		sub.Status = SubscriptionStatusTrial
		sub.TrialEndsAt = &trialEnd
		sub.NextPaymentAt = &trialEnd
	} else {
		next := cycle.Next(now)
		sub.Status = SubscriptionStatusActive
		sub.LastPaymentAt = &now
		sub.NextPaymentAt = &next
	}
	sub.AddDomainEvent(NewSubscriptionCreatedEvent(sub))
	return sub, nil
}

// Replace opens the active successor of s on another plan. s itself is not
// modified; the caller closes it with Close in the same unit of work.
func (s *Subscription) Replace(plan *Plan, amount decimal.Decimal) (*Subscription, error) {
	if !s.Status.IsCurrent() {
		return nil, shared.NewValidationError("only a current subscription can change plan")
	}
	if plan == nil || !plan.IsActive() {
		return nil, shared.NewValidationError("target plan must be active")
	}
	if amount.IsNegative() {
		return nil, shared.NewValidationError("subscription amount cannot be negative")
	}

	now := shared.Now()
	next := plan.BillingCycle.Next(now)
	previousPlanID := s.PlanID
	previousAmount := s.Amount
	sub := &Subscription{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(s.TenantID),
		ProviderID:          s.ProviderID,
		PlanID:              plan.ID,
		Status:              SubscriptionStatusActive,
		PreviousPlanID:      &previousPlanID,
		PreviousAmount:      &previousAmount,
		Amount:              amount,
		BillingCycle:        plan.BillingCycle,
		StartDate:           now,
		PaymentMethod:       s.PaymentMethod,
		PaymentGatewayID:    s.PaymentGatewayID,
		LastPaymentAt:       &now,
		NextPaymentAt:       &next,
	}
	sub.AddDomainEvent(NewSubscriptionPlanChangedEvent(sub))
	return sub, nil
}

// Transition moves the subscription to another status
func (s *Subscription) Transition(to SubscriptionStatus) error {
	return s.TransitionWithReason(to, "")
}

// TransitionWithReason moves the subscription and records why it was cancelled
func (s *Subscription) TransitionWithReason(to SubscriptionStatus, reason string) error {
	if !to.IsValid() {
		return shared.NewValidationError("invalid subscription status %q", to)
	}
	if !s.Status.CanTransitionTo(to) {
		return shared.NewInvalidStateTransitionError("subscription", string(s.Status), string(to))
	}

	now := shared.Now()
	from := s.Status
	switch to {
	case SubscriptionStatusActive:
		next := s.BillingCycle.Next(now)
		s.LastPaymentAt = &now
		s.NextPaymentAt = &next
	case SubscriptionStatusCancelled:
		s.EndDate = &now
		s.CancelledAt = &now
		s.NextPaymentAt = nil
		s.CancellationReason = strings.TrimSpace(reason)
	}
	s.Status = to
	s.MarkModified()
	s.AddDomainEvent(NewSubscriptionStatusChangedEvent(s, from, to))
	return nil
}

// Close cancels the subscription because the tenant moved to another plan
func (s *Subscription) Close() error {
	return s.TransitionWithReason(SubscriptionStatusCancelled, CancellationReasonPlanChange)
}

// Classification reports whether the subscription is new, an upgrade, a downgrade or neither
func (s *Subscription) Classification() Classification {
	if s.PreviousPlanID == nil {
		return ClassificationNew
	}
	if s.PreviousAmount == nil {
		return ClassificationNeither
	}
	return Classify(*s.PreviousAmount, s.Amount)
}

// IsCurrent reports whether the subscription is the tenant's billable one
func (s *Subscription) IsCurrent() bool {
	return s.Status.IsCurrent()
}

// IsExpiring reports an active subscription whose end date already passed.
// Such rows need reconciliation and are never transitioned automatically.
func (s *Subscription) IsExpiring(asOf time.Time) bool {
	return s.Status == SubscriptionStatusActive && s.EndDate != nil && s.EndDate.Before(asOf)
}
