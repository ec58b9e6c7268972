package billing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/saas/backoffice/internal/domain/billing"
	"github.com/saas/backoffice/internal/domain/shared"
	"go.uber.org/zap"
)

// PlanService manages the plan catalog
type PlanService struct {
	planRepo         billing.PlanRepository
	subscriptionRepo billing.SubscriptionRepository
	after            afterCommit
	logger           *zap.Logger
}

// NewPlanService creates a new plan service
func NewPlanService(
	planRepo billing.PlanRepository,
	subscriptionRepo billing.SubscriptionRepository,
	logger *zap.Logger,
) *PlanService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PlanService{
		planRepo:         planRepo,
		subscriptionRepo: subscriptionRepo,
		after:            newAfterCommit(logger),
		logger:           logger,
	}
}

// SetEventPublisher sets the event publisher for domain events
func (s *PlanService) SetEventPublisher(publisher shared.EventPublisher) {
	s.after.publisher = publisher
}

// SetStatsInvalidator sets the cache front evicted after catalog writes
func (s *PlanService) SetStatsInvalidator(invalidator StatsInvalidator) {
	s.after.invalidator = invalidator
}

// Create adds a plan to the catalog
func (s *PlanService) Create(ctx context.Context, input PlanInput) (*PlanDTO, error) {
	s.logger.Info("Creating plan", zap.String("name", input.Name))

	status := billing.PlanStatus(input.Status)
	if status == "" {
		status = billing.PlanStatusActive
	}
	plan, err := billing.NewPlan(input.toDetails(), status)
	if err != nil {
		return nil, err
	}
	if err := s.ensureNameAvailable(ctx, plan.Name, nil); err != nil {
		return nil, err
	}
	if err := s.planRepo.Save(ctx, plan); err != nil {
		return nil, fmt.Errorf("save plan: %w", err)
	}

	s.after.run(ctx, nil, plan.PullDomainEvents()...)
	s.logger.Info("Plan created", zap.String("plan_id", plan.ID.String()))
	return ToPlanDTO(plan), nil
}

// Update replaces the editable attributes of a plan
func (s *PlanService) Update(ctx context.Context, id uuid.UUID, input PlanInput) (*PlanDTO, error) {
	plan, err := s.planRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := plan.Update(input.toDetails()); err != nil {
		return nil, err
	}
	if err := s.ensureNameAvailable(ctx, plan.Name, &plan.ID); err != nil {
		return nil, err
	}
	if err := s.planRepo.Save(ctx, plan); err != nil {
		return nil, fmt.Errorf("save plan: %w", err)
	}

	s.after.run(ctx, nil, plan.PullDomainEvents()...)
	return ToPlanDTO(plan), nil
}

// Get returns a plan by id
func (s *PlanService) Get(ctx context.Context, id uuid.UUID) (*PlanDTO, error) {
	plan, err := s.planRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return ToPlanDTO(plan), nil
}

// List returns the catalog ordered by sort order
func (s *PlanService) List(ctx context.Context, filter ListFilter) (*PlanListResult, error) {
	sharedFilter := filter.ToSharedFilter()
	plans, total, err := s.planRepo.FindAll(ctx, sharedFilter)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}

	dtos := make([]PlanDTO, len(plans))
	for i := range plans {
		dtos[i] = *ToPlanDTO(&plans[i])
	}
	return &PlanListResult{
		Plans:      dtos,
		Total:      total,
		Page:       sharedFilter.Page,
		PageSize:   sharedFilter.PageSize,
		TotalPages: totalPages(total, sharedFilter.PageSize),
	}, nil
}

// Delete removes a plan that no subscription ever referenced
func (s *PlanService) Delete(ctx context.Context, id uuid.UUID) error {
	plan, err := s.planRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	count, err := s.subscriptionRepo.CountByPlan(ctx, id)
	if err != nil {
		return fmt.Errorf("count plan subscriptions: %w", err)
	}
	if count > 0 {
		return shared.NewValidationError("plan %s has %d subscriptions and cannot be deleted", plan.Name, count)
	}
	if err := s.planRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.after.run(ctx, nil, billing.NewPlanChangedEvent(plan, billing.EventTypePlanDeleted))
	s.logger.Info("Plan deleted", zap.String("plan_id", id.String()))
	return nil
}

// Duplicate copies a plan into a new draft named "<name> (Copy)"
func (s *PlanService) Duplicate(ctx context.Context, id uuid.UUID) (*PlanDTO, error) {
	source, err := s.planRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	plan, err := source.Duplicate()
	if err != nil {
		return nil, err
	}
	if err := s.ensureNameAvailable(ctx, plan.Name, nil); err != nil {
		return nil, err
	}
	if err := s.planRepo.Save(ctx, plan); err != nil {
		return nil, fmt.Errorf("save plan: %w", err)
	}

	s.after.run(ctx, nil, plan.PullDomainEvents()...)
	return ToPlanDTO(plan), nil
}

// ToggleStatus flips a plan between active and inactive
func (s *PlanService) ToggleStatus(ctx context.Context, id uuid.UUID) (*PlanDTO, error) {
	return s.mutateStatus(ctx, id, (*billing.Plan).ToggleStatus)
}

// ChangeStatus moves a plan to the given catalog status
func (s *PlanService) ChangeStatus(ctx context.Context, id uuid.UUID, status string) (*PlanDTO, error) {
	return s.mutateStatus(ctx, id, func(p *billing.Plan) error {
		return p.ChangeStatus(billing.PlanStatus(status))
	})
}

func (s *PlanService) mutateStatus(ctx context.Context, id uuid.UUID, mutate func(*billing.Plan) error) (*PlanDTO, error) {
	plan, err := s.planRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := mutate(plan); err != nil {
		return nil, err
	}
	if err := s.planRepo.Save(ctx, plan); err != nil {
		return nil, fmt.Errorf("save plan: %w", err)
	}

	s.after.run(ctx, nil, plan.PullDomainEvents()...)
	s.logger.Info("Plan status changed",
		zap.String("plan_id", id.String()),
		zap.String("status", string(plan.Status)))
	return ToPlanDTO(plan), nil
}

// AvailableFeatures lists the feature keys a plan may grant
func (s *PlanService) AvailableFeatures() []billing.FeatureDescriptor {
	return billing.AvailableFeatures()
}

func (s *PlanService) ensureNameAvailable(ctx context.Context, name string, excludeID *uuid.UUID) error {
	exists, err := s.planRepo.ExistsByName(ctx, name, excludeID)
	if err != nil {
		return fmt.Errorf("check plan name: %w", err)
	}
	if exists {
		return shared.NewValidationError("a plan named %q already exists", name)
	}
	return nil
}
