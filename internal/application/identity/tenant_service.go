package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/saas/backoffice/internal/domain/identity"
	"github.com/saas/backoffice/internal/domain/shared"
	"go.uber.org/zap"
)

// TenantService handles tenant management operations
type TenantService struct {
	tenantRepo identity.TenantRepository
	publisher  shared.EventPublisher
	logger     *zap.Logger
}

// NewTenantService creates a new tenant service
func NewTenantService(
	tenantRepo identity.TenantRepository,
	logger *zap.Logger,
) *TenantService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TenantService{
		tenantRepo: tenantRepo,
		publisher:  shared.NopEventPublisher{},
		logger:     logger,
	}
}

// SetEventPublisher sets the event publisher for domain events
func (s *TenantService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// CreateTenantInput contains input for creating a tenant
type CreateTenantInput struct {
	Code  string
	Name  string
	Trial bool // creates the tenant in trial status
}

// TenantDTO represents tenant data transfer object
type TenantDTO struct {
	ID        uuid.UUID `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TenantFilter represents filter for querying tenants
type TenantFilter struct {
	Page     int
	PageSize int
	SortBy   string
	SortDir  string
	Keyword  string
	Status   string
}

// ToSharedFilter converts TenantFilter to shared.Filter
func (f TenantFilter) ToSharedFilter() shared.Filter {
	filter := shared.Filter{
		Page:     f.Page,
		PageSize: f.PageSize,
		OrderBy:  f.SortBy,
		OrderDir: f.SortDir,
		Search:   f.Keyword,
		Filters:  make(map[string]any),
	}.Normalize()
	if f.Status != "" {
		filter.Filters["status"] = f.Status
	}
	return filter
}

// TenantListResult represents paginated tenant list result
type TenantListResult struct {
	Tenants    []TenantDTO `json:"tenants"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	TotalPages int         `json:"total_pages"`
}

// TenantStatsDTO counts tenants per status
type TenantStatsDTO struct {
	Total     int64 `json:"total"`
	Active    int64 `json:"active"`
	Trial     int64 `json:"trial"`
	Suspended int64 `json:"suspended"`
}

// Create registers a new tenant
func (s *TenantService) Create(ctx context.Context, input CreateTenantInput) (*TenantDTO, error) {
	s.logger.Info("Creating new tenant",
		zap.String("code", input.Code),
		zap.String("name", input.Name))

	var (
		tenant *identity.Tenant
		err    error
	)
	if input.Trial {
		tenant, err = identity.NewTrialTenant(input.Code, input.Name)
	} else {
		tenant, err = identity.NewTenant(input.Code, input.Name)
	}
	if err != nil {
		return nil, err
	}

	exists, err := s.tenantRepo.ExistsByCode(ctx, tenant.Code)
	if err != nil {
		return nil, fmt.Errorf("check tenant code: %w", err)
	}
	if exists {
		return nil, shared.NewValidationError("tenant code %s already exists", tenant.Code)
	}

	if err := s.tenantRepo.Save(ctx, tenant); err != nil {
		s.logger.Error("Failed to create tenant", zap.Error(err))
		return nil, fmt.Errorf("save tenant: %w", err)
	}
	s.publish(ctx, tenant)

	s.logger.Info("Tenant created successfully",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("code", tenant.Code))
	return toTenantDTO(tenant), nil
}

// GetByID retrieves a tenant by ID
func (s *TenantService) GetByID(ctx context.Context, id uuid.UUID) (*TenantDTO, error) {
	tenant, err := s.tenantRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toTenantDTO(tenant), nil
}

// GetByCode retrieves a tenant by code
func (s *TenantService) GetByCode(ctx context.Context, code string) (*TenantDTO, error) {
	tenant, err := s.tenantRepo.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return toTenantDTO(tenant), nil
}

// List retrieves a paginated list of tenants
func (s *TenantService) List(ctx context.Context, filter TenantFilter) (*TenantListResult, error) {
	sharedFilter := filter.ToSharedFilter()
	tenants, total, err := s.tenantRepo.FindAll(ctx, sharedFilter)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}

	dtos := make([]TenantDTO, len(tenants))
	for i := range tenants {
		dtos[i] = *toTenantDTO(&tenants[i])
	}
	page := shared.NewPaginated(dtos, total, sharedFilter.Page, sharedFilter.PageSize)
	return &TenantListResult{
		Tenants:    page.Items,
		Total:      page.Total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: page.TotalPages,
	}, nil
}

// Rename updates a tenant's display name
func (s *TenantService) Rename(ctx context.Context, id uuid.UUID, name string) (*TenantDTO, error) {
	return s.mutate(ctx, id, "rename", func(t *identity.Tenant) error { return t.Rename(name) })
}

// Activate moves a trial or suspended tenant to active
func (s *TenantService) Activate(ctx context.Context, id uuid.UUID) (*TenantDTO, error) {
	return s.mutate(ctx, id, "activate", (*identity.Tenant).Activate)
}

// Suspend blocks a tenant from opening new subscriptions
func (s *TenantService) Suspend(ctx context.Context, id uuid.UUID) (*TenantDTO, error) {
	return s.mutate(ctx, id, "suspend", (*identity.Tenant).Suspend)
}

func (s *TenantService) mutate(ctx context.Context, id uuid.UUID, action string, apply func(*identity.Tenant) error) (*TenantDTO, error) {
	tenant, err := s.tenantRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := apply(tenant); err != nil {
		return nil, err
	}
	if err := s.tenantRepo.Save(ctx, tenant); err != nil {
		s.logger.Error("Failed to save tenant", zap.String("action", action), zap.Error(err))
		return nil, err
	}
	s.publish(ctx, tenant)

	s.logger.Info("Tenant updated",
		zap.String("tenant_id", id.String()),
		zap.String("action", action),
		zap.String("status", string(tenant.Status)))
	return toTenantDTO(tenant), nil
}

// GetStats counts tenants per status
func (s *TenantService) GetStats(ctx context.Context) (*TenantStatsDTO, error) {
	counts, err := s.tenantRepo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count tenants: %w", err)
	}
	stats := &TenantStatsDTO{
		Active:    counts[identity.TenantStatusActive],
		Trial:     counts[identity.TenantStatusTrial],
		Suspended: counts[identity.TenantStatusSuspended],
	}
	stats.Total = stats.Active + stats.Trial + stats.Suspended
	return stats, nil
}

func (s *TenantService) publish(ctx context.Context, tenant *identity.Tenant) {
	events := tenant.PullDomainEvents()
	if len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish tenant events", zap.Error(err))
	}
}

func toTenantDTO(tenant *identity.Tenant) *TenantDTO {
	return &TenantDTO{
		ID:        tenant.ID,
		Code:      tenant.Code,
		Name:      tenant.Name,
		Status:    string(tenant.Status),
		Version:   tenant.Version,
		CreatedAt: tenant.CreatedAt,
		UpdatedAt: tenant.UpdatedAt,
	}
}
