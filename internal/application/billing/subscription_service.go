package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/saas/backoffice/internal/domain/billing"
	"github.com/saas/backoffice/internal/domain/identity"
	"github.com/saas/backoffice/internal/domain/shared"
	"github.com/saas/backoffice/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// historyPageSize is the page size used to walk a tenant's full ledger
const historyPageSize = 100

// SubscriptionService is the subscription ledger: it opens, transitions and
// replaces plan subscriptions while keeping at most one current subscription
// per tenant.
//
// Every write runs inside the transaction scope. After commit the stale
// statistics are evicted synchronously and the domain events are handed to
// the event bus.
type SubscriptionService struct {
	subscriptionRepo billing.SubscriptionRepository
	planRepo         billing.PlanRepository
	tenantRepo       identity.TenantRepository
	txScope          TransactionScope
	after            afterCommit
	metrics          LedgerMetrics
	logger           *zap.Logger
}

// NewSubscriptionService creates a new subscription service
func NewSubscriptionService(
	subscriptionRepo billing.SubscriptionRepository,
	planRepo billing.PlanRepository,
	tenantRepo identity.TenantRepository,
	txScope TransactionScope,
	logger *zap.Logger,
) *SubscriptionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubscriptionService{
		subscriptionRepo: subscriptionRepo,
		planRepo:         planRepo,
		tenantRepo:       tenantRepo,
		txScope:          txScope,
		after:            newAfterCommit(logger),
		metrics:          nopLedgerMetrics{},
		logger:           logger,
	}
}

// SetEventPublisher sets the event publisher for domain events
func (s *SubscriptionService) SetEventPublisher(publisher shared.EventPublisher) {
	s.after.publisher = publisher
}

// SetStatsInvalidator sets the cache front evicted after ledger writes
func (s *SubscriptionService) SetStatsInvalidator(invalidator StatsInvalidator) {
	s.after.invalidator = invalidator
}

// SetMetrics sets the business metrics recorder
func (s *SubscriptionService) SetMetrics(metrics LedgerMetrics) {
	if metrics != nil {
		s.metrics = metrics
	}
}

// Create opens the first current subscription of a tenant.
// A tenant that already holds one must change plan instead.
func (s *SubscriptionService) Create(ctx context.Context, tenantID uuid.UUID, input CreateSubscriptionInput) (*SubscriptionDTO, error) {
	s.logger.Info("Creating subscription",
		zap.String("tenant_id", tenantID.String()),
		zap.String("plan_id", input.PlanID.String()))

	if err := s.ensureTenantCanSubscribe(ctx, tenantID); err != nil {
		return nil, err
	}
	plan, err := s.referencedPlan(ctx, input.PlanID)
	if err != nil {
		return nil, err
	}
	amount := plan.Price
	if input.Amount != nil {
		amount = *input.Amount
	}

	var sub *billing.Subscription
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		provider, err := repos.ProviderRepo().FindByIDForTenant(ctx, tenantID, input.ProviderID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.NewValidationError("provider %s does not exist in this tenant", input.ProviderID)
			}
			return fmt.Errorf("load provider: %w", err)
		}

		current, err := repos.SubscriptionRepo().FindCurrentForTenant(ctx, tenantID)
		if err != nil {
			return fmt.Errorf("load current subscription: %w", err)
		}
		if current != nil {
			return shared.NewValidationError("tenant already has a %s subscription; change plan instead", current.Status)
		}

		sub, err = billing.NewSubscription(tenantID, provider.ID, plan, amount,
			billing.BillingCycle(input.BillingCycle), input.PaymentMethod)
		if err != nil {
			return err
		}
		if err := repos.SubscriptionRepo().Create(ctx, sub); err != nil {
			return err
		}

		provider.AssignPlan(plan.ID)
		return repos.ProviderRepo().Save(ctx, provider)
	})
	if err != nil {
		return nil, err
	}

	s.after.run(ctx, &tenantID, sub.PullDomainEvents()...)
	s.metrics.RecordSubscriptionTransition(ctx, tenantID, "", string(sub.Status))
	s.logger.Info("Subscription created",
		zap.String("subscription_id", sub.ID.String()),
		zap.String("status", string(sub.Status)))
	return ToSubscriptionDTO(sub), nil
}

// Transition moves a subscription along the state machine
func (s *SubscriptionService) Transition(ctx context.Context, tenantID, id uuid.UUID, status string) (*SubscriptionDTO, error) {
	return s.TransitionWithReason(ctx, tenantID, id, status, "")
}

// TransitionWithReason moves a subscription and records why it was cancelled.
// Two callers racing on the same row both load the same version; the loser's
// compare-and-swap touches no row and fails with a concurrency conflict.
func (s *SubscriptionService) TransitionWithReason(ctx context.Context, tenantID, id uuid.UUID, status, reason string) (*SubscriptionDTO, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "subscription", "transition",
		telemetry.WithAttribute(telemetry.SpanAttrTenantID, tenantID),
		telemetry.WithAttribute(telemetry.SpanAttrSubscriptionID, id),
		telemetry.WithAttribute(telemetry.SpanAttrToStatus, status))
	defer span.End()

	var (
		sub  *billing.Subscription
		from billing.SubscriptionStatus
	)
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		sub, err = repos.SubscriptionRepo().FindByIDForTenant(ctx, tenantID, id)
		if err != nil {
			return err
		}
		from = sub.Status
		if err := sub.TransitionWithReason(billing.SubscriptionStatus(status), reason); err != nil {
			return err
		}
		if err := repos.SubscriptionRepo().SaveWithLock(ctx, sub); err != nil {
			return err
		}
		if sub.Status == billing.SubscriptionStatusCancelled {
			return s.releaseProviderPlan(ctx, repos, sub)
		}
		return nil
	})
	if err != nil {
		if shared.KindOf(err) == shared.KindConcurrencyConflict {
			s.logger.Warn("Subscription transition lost a concurrent update",
				zap.String("subscription_id", id.String()),
				zap.String("to", status))
		}
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttribute(span, telemetry.SpanAttrFromStatus, string(from))
	telemetry.SetOK(span)

	s.after.run(ctx, &tenantID, sub.PullDomainEvents()...)
	s.metrics.RecordSubscriptionTransition(ctx, tenantID, string(from), string(sub.Status))
	s.logger.Info("Subscription transitioned",
		zap.String("subscription_id", id.String()),
		zap.String("from", string(from)),
		zap.String("to", string(sub.Status)))
	return ToSubscriptionDTO(sub), nil
}

// RecordUpgradeOrDowngrade closes the tenant's current subscription and opens
// an active one on another plan in a single transaction. The new row carries
// the previous plan and amount, and never restarts a trial.
func (s *SubscriptionService) RecordUpgradeOrDowngrade(ctx context.Context, tenantID uuid.UUID, input ChangePlanInput) (*PlanChangeResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "subscription", "change_plan",
		telemetry.WithAttribute(telemetry.SpanAttrTenantID, tenantID),
		telemetry.WithAttribute(telemetry.SpanAttrPlanID, input.PlanID))
	defer span.End()

	plan, err := s.referencedPlan(ctx, input.PlanID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	amount := plan.Price
	if input.Amount != nil {
		amount = *input.Amount
	}

	var previous, next *billing.Subscription
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		previous, err = repos.SubscriptionRepo().FindCurrentForTenant(ctx, tenantID)
		if err != nil {
			return fmt.Errorf("load current subscription: %w", err)
		}
		if previous == nil {
			return shared.NewValidationError("tenant has no current subscription to change")
		}

		next, err = previous.Replace(plan, amount)
		if err != nil {
			return err
		}
		if err := previous.Close(); err != nil {
			return err
		}
		// The old row must leave the current set before the new one enters it.
		if err := repos.SubscriptionRepo().SaveWithLock(ctx, previous); err != nil {
			return err
		}
		if err := repos.SubscriptionRepo().Create(ctx, next); err != nil {
			return err
		}

		provider, err := repos.ProviderRepo().FindByIDForTenant(ctx, tenantID, next.ProviderID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil
			}
			return fmt.Errorf("load provider: %w", err)
		}
		provider.AssignPlan(plan.ID)
		return repos.ProviderRepo().Save(ctx, provider)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	classification := next.Classification()
	telemetry.AddEvent(span, "plan_changed",
		telemetry.SpanAttrSubscriptionID, next.ID,
		telemetry.SpanAttrAmount, amount,
		"classification", string(classification))
	telemetry.SetOK(span)
	events := append(previous.PullDomainEvents(), next.PullDomainEvents()...)
	s.after.run(ctx, &tenantID, events...)
	s.metrics.RecordPlanChange(ctx, tenantID, string(classification))
	s.logger.Info("Subscription plan changed",
		zap.String("tenant_id", tenantID.String()),
		zap.String("previous_subscription_id", previous.ID.String()),
		zap.String("subscription_id", next.ID.String()),
		zap.String("classification", string(classification)))

	return &PlanChangeResult{
		Previous:       ToSubscriptionDTO(previous),
		Subscription:   ToSubscriptionDTO(next),
		Classification: string(classification),
	}, nil
}

// FindCurrentForTenant returns the tenant's trial or active subscription, or nil
func (s *SubscriptionService) FindCurrentForTenant(ctx context.Context, tenantID uuid.UUID) (*SubscriptionDTO, error) {
	sub, err := s.subscriptionRepo.FindCurrentForTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("load current subscription: %w", err)
	}
	if sub == nil {
		return nil, nil
	}
	return ToSubscriptionDTO(sub), nil
}

// Get returns a subscription of the tenant
func (s *SubscriptionService) Get(ctx context.Context, tenantID, id uuid.UUID) (*SubscriptionDTO, error) {
	sub, err := s.subscriptionRepo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	return ToSubscriptionDTO(sub), nil
}

// ListForTenant returns a page of the tenant's ledger, newest first
func (s *SubscriptionService) ListForTenant(ctx context.Context, tenantID uuid.UUID, filter ListFilter) (*SubscriptionListResult, error) {
	sharedFilter := filter.ToSharedFilter()
	subs, total, err := s.subscriptionRepo.FindAllForTenant(ctx, tenantID, sharedFilter)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}

	dtos := make([]SubscriptionDTO, len(subs))
	for i := range subs {
		dtos[i] = *ToSubscriptionDTO(&subs[i])
	}
	return &SubscriptionListResult{
		Subscriptions: dtos,
		Total:         total,
		Page:          sharedFilter.Page,
		PageSize:      sharedFilter.PageSize,
		TotalPages:    totalPages(total, sharedFilter.PageSize),
	}, nil
}

// History returns every subscription the tenant ever held, newest first
func (s *SubscriptionService) History(ctx context.Context, tenantID uuid.UUID) ([]SubscriptionDTO, error) {
	var out []SubscriptionDTO
	for page := 1; ; page++ {
		filter := shared.Filter{Page: page, PageSize: historyPageSize, Filters: map[string]any{}}
		subs, total, err := s.subscriptionRepo.FindAllForTenant(ctx, tenantID, filter)
		if err != nil {
			return nil, fmt.Errorf("load subscription history: %w", err)
		}
		for i := range subs {
			out = append(out, *ToSubscriptionDTO(&subs[i]))
		}
		if len(subs) < historyPageSize || int64(len(out)) >= total {
			break
		}
	}
	if out == nil {
		out = []SubscriptionDTO{}
	}
	return out, nil
}

func (s *SubscriptionService) ensureTenantCanSubscribe(ctx context.Context, tenantID uuid.UUID) error {
	tenant, err := s.tenantRepo.FindByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NewValidationError("tenant %s does not exist", tenantID)
		}
		return fmt.Errorf("load tenant: %w", err)
	}
	if !tenant.CanSubscribe() {
		return shared.NewValidationError("tenant %s is %s and cannot subscribe", tenant.Code, tenant.Status)
	}
	return nil
}

// referencedPlan loads a plan named in a request body. A missing plan is a
// validation failure there, not a not-found.
func (s *SubscriptionService) referencedPlan(ctx context.Context, planID uuid.UUID) (*billing.Plan, error) {
	plan, err := s.planRepo.FindByID(ctx, planID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewValidationError("plan %s does not exist", planID)
		}
		return nil, fmt.Errorf("load plan: %w", err)
	}
	if !plan.IsActive() {
		return nil, shared.NewValidationError("plan %s is %s and cannot be subscribed", plan.Name, plan.Status)
	}
	return plan, nil
}

// releaseProviderPlan clears the provider's denormalized plan when the
// subscription that set it is cancelled
func (s *SubscriptionService) releaseProviderPlan(ctx context.Context, repos TransactionalRepositories, sub *billing.Subscription) error {
	provider, err := repos.ProviderRepo().FindByIDForTenant(ctx, sub.TenantID, sub.ProviderID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("load provider: %w", err)
	}
	if provider.PlanID == nil || *provider.PlanID != sub.PlanID {
		return nil
	}
	provider.ClearPlan()
	return repos.ProviderRepo().Save(ctx, provider)
}
