package partner

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/saas/backoffice/internal/domain/partner"
	"github.com/saas/backoffice/internal/domain/report"
	"github.com/saas/backoffice/internal/domain/shared"
	"go.uber.org/zap"
)

// StatsInvalidator evicts cached aggregates made stale by a write
type StatsInvalidator interface {
	Invalidate(ctx context.Context, patterns ...string) error
}

// ProviderService handles the businesses a tenant bills
type ProviderService struct {
	providerRepo partner.ProviderRepository
	invalidator  StatsInvalidator
	logger       *zap.Logger
}

// NewProviderService creates a new ProviderService
func NewProviderService(providerRepo partner.ProviderRepository, logger *zap.Logger) *ProviderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProviderService{
		providerRepo: providerRepo,
		logger:       logger,
	}
}

// SetStatsInvalidator sets the cache front evicted after provider writes
func (s *ProviderService) SetStatsInvalidator(invalidator StatsInvalidator) {
	s.invalidator = invalidator
}

// CreateProviderRequest represents a request to register a provider
type CreateProviderRequest struct {
	Name     string `json:"name" binding:"required,min=1,max=200"`
	Email    string `json:"email" binding:"omitempty,email"`
	Phone    string `json:"phone" binding:"omitempty,max=50"`
	Document string `json:"document" binding:"omitempty,max=30"`
}

// UpdateProviderRequest represents a request to update provider details
type UpdateProviderRequest = CreateProviderRequest

// ProviderResponse represents a provider in API responses
type ProviderResponse struct {
	ID        uuid.UUID  `json:"id"`
	TenantID  uuid.UUID  `json:"tenant_id"`
	Name      string     `json:"name"`
	Email     string     `json:"email,omitempty"`
	Phone     string     `json:"phone,omitempty"`
	Document  string     `json:"document,omitempty"`
	PlanID    *uuid.UUID `json:"plan_id,omitempty"`
	Status    string     `json:"status"`
	Version   int        `json:"version"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// ProviderListFilter represents filtering options for the provider list
type ProviderListFilter struct {
	Search   string `form:"search"`
	Status   string `form:"status" binding:"omitempty,oneof=active inactive suspended"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// ToProviderResponse converts a provider to its response
func ToProviderResponse(p *partner.Provider) ProviderResponse {
	return ProviderResponse{
		ID:        p.ID,
		TenantID:  p.TenantID,
		Name:      p.Name,
		Email:     p.Email,
		Phone:     p.Phone,
		Document:  p.Document,
		PlanID:    p.PlanID,
		Status:    string(p.Status),
		Version:   p.Version,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

// Create registers a provider. Documents are unique within a tenant.
func (s *ProviderService) Create(ctx context.Context, tenantID uuid.UUID, req CreateProviderRequest) (*ProviderResponse, error) {
	provider, err := partner.NewProvider(tenantID, req.Name, req.Email, req.Phone, req.Document)
	if err != nil {
		return nil, err
	}
	if err := s.ensureDocumentAvailable(ctx, tenantID, provider.Document); err != nil {
		return nil, err
	}

	if err := s.providerRepo.Save(ctx, provider); err != nil {
		return nil, err
	}
	s.invalidate(ctx, tenantID)

	s.logger.Info("Provider created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("provider_id", provider.ID.String()))
	response := ToProviderResponse(provider)
	return &response, nil
}

// GetByID retrieves a provider of the tenant
func (s *ProviderService) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*ProviderResponse, error) {
	provider, err := s.providerRepo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	response := ToProviderResponse(provider)
	return &response, nil
}

// List retrieves a page of the tenant's providers with the total count
func (s *ProviderService) List(ctx context.Context, tenantID uuid.UUID, filter ProviderListFilter) ([]ProviderResponse, int64, error) {
	sharedFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
		Search:   filter.Search,
		Filters:  make(map[string]any),
	}.Normalize()
	if filter.Status != "" {
		sharedFilter.Filters["status"] = filter.Status
	}

	providers, total, err := s.providerRepo.FindAllForTenant(ctx, tenantID, sharedFilter)
	if err != nil {
		return nil, 0, err
	}
	responses := make([]ProviderResponse, len(providers))
	for i := range providers {
		responses[i] = ToProviderResponse(&providers[i])
	}
	return responses, total, nil
}

// Update replaces a provider's contact details
func (s *ProviderService) Update(ctx context.Context, tenantID, id uuid.UUID, req UpdateProviderRequest) (*ProviderResponse, error) {
	provider, err := s.providerRepo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	previousDocument := provider.Document
	if err := provider.Update(req.Name, req.Email, req.Phone, req.Document); err != nil {
		return nil, err
	}
	if provider.Document != previousDocument {
		if err := s.ensureDocumentAvailable(ctx, tenantID, provider.Document); err != nil {
			return nil, err
		}
	}

	if err := s.providerRepo.Save(ctx, provider); err != nil {
		return nil, err
	}
	response := ToProviderResponse(provider)
	return &response, nil
}

// Deactivate marks a provider inactive so it no longer counts as active
func (s *ProviderService) Deactivate(ctx context.Context, tenantID, id uuid.UUID) (*ProviderResponse, error) {
	provider, err := s.providerRepo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := provider.Deactivate(); err != nil {
		return nil, err
	}
	if err := s.providerRepo.Save(ctx, provider); err != nil {
		return nil, err
	}
	s.invalidate(ctx, tenantID)

	response := ToProviderResponse(provider)
	return &response, nil
}

func (s *ProviderService) ensureDocumentAvailable(ctx context.Context, tenantID uuid.UUID, document string) error {
	if document == "" {
		return nil
	}
	exists, err := s.providerRepo.ExistsByDocument(ctx, tenantID, document)
	if err != nil {
		return err
	}
	if exists {
		return shared.NewValidationError("a provider with document %s already exists", document)
	}
	return nil
}

func (s *ProviderService) invalidate(ctx context.Context, tenantID uuid.UUID) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Invalidate(ctx, report.StalePatterns(&tenantID)...); err != nil {
		s.logger.Warn("Stats cache invalidation failed after provider write", zap.Error(err))
	}
}
