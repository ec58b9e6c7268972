package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/saas/backoffice/internal/domain/audit"
	"github.com/saas/backoffice/internal/domain/shared"
	"go.uber.org/zap"
)

// TrailService reads the audit trail
type TrailService struct {
	repo   audit.Repository
	logger *zap.Logger
}

// NewTrailService creates a new trail service
func NewTrailService(repo audit.Repository, logger *zap.Logger) *TrailService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrailService{
		repo:   repo,
		logger: logger,
	}
}

// EntryDTO represents an audit entry
type EntryDTO struct {
	ID            uuid.UUID       `json:"id"`
	TenantID      uuid.UUID       `json:"tenant_id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   uuid.UUID       `json:"aggregate_id"`
	Action        string          `json:"action"`
	Payload       json.RawMessage `json:"payload"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// TrailFilter represents filter for querying a tenant's trail
type TrailFilter struct {
	Page     int    `form:"page,omitempty" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size,omitempty" binding:"omitempty,min=1,max=100"`
	Action   string `form:"action,omitempty"`
}

// TrailListResult represents a paginated audit trail
type TrailListResult struct {
	Entries    []EntryDTO `json:"entries"`
	Total      int64      `json:"total"`
	Page       int        `json:"page"`
	PageSize   int        `json:"page_size"`
	TotalPages int        `json:"total_pages"`
}

// ForTenant lists the most recent entries of a tenant
func (s *TrailService) ForTenant(ctx context.Context, tenantID uuid.UUID, filter TrailFilter) (*TrailListResult, error) {
	f := shared.Filter{Page: filter.Page, PageSize: filter.PageSize, Filters: map[string]any{}}.Normalize()
	if filter.Action != "" {
		f.Filters["action"] = filter.Action
	}

	entries, total, err := s.repo.FindForTenant(ctx, tenantID, f)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	page := shared.NewPaginated(toEntryDTOs(entries), total, f.Page, f.PageSize)
	return &TrailListResult{
		Entries:    page.Items,
		Total:      page.Total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: page.TotalPages,
	}, nil
}

// ForAggregate lists the full trail of one aggregate, oldest first
func (s *TrailService) ForAggregate(ctx context.Context, aggregateType string, aggregateID uuid.UUID) ([]EntryDTO, error) {
	entries, err := s.repo.FindByAggregate(ctx, aggregateType, aggregateID)
	if err != nil {
		return nil, fmt.Errorf("load audit trail: %w", err)
	}
	return toEntryDTOs(entries), nil
}

func toEntryDTOs(entries []audit.Entry) []EntryDTO {
	out := make([]EntryDTO, len(entries))
	for i, e := range entries {
		out[i] = EntryDTO{
			ID:            e.ID,
			TenantID:      e.TenantID,
			AggregateType: e.AggregateType,
			AggregateID:   e.AggregateID,
			Action:        e.Action,
			Payload:       json.RawMessage(e.Payload),
			OccurredAt:    e.OccurredAt,
		}
	}
	return out
}
