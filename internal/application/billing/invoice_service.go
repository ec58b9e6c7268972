package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/saas/backoffice/internal/domain/billing"
	"github.com/saas/backoffice/internal/domain/partner"
	"github.com/saas/backoffice/internal/domain/shared"
	"github.com/saas/backoffice/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// InvoiceService manages the invoice book that realized revenue is computed from
type InvoiceService struct {
	invoiceRepo  billing.InvoiceRepository
	providerRepo partner.ProviderRepository
	txScope      TransactionScope
	after        afterCommit
	metrics      LedgerMetrics
	logger       *zap.Logger
}

// NewInvoiceService creates a new invoice service
func NewInvoiceService(
	invoiceRepo billing.InvoiceRepository,
	providerRepo partner.ProviderRepository,
	txScope TransactionScope,
	logger *zap.Logger,
) *InvoiceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvoiceService{
		invoiceRepo:  invoiceRepo,
		providerRepo: providerRepo,
		txScope:      txScope,
		after:        newAfterCommit(logger),
		metrics:      nopLedgerMetrics{},
		logger:       logger,
	}
}

// SetEventPublisher sets the event publisher for domain events
func (s *InvoiceService) SetEventPublisher(publisher shared.EventPublisher) {
	s.after.publisher = publisher
}

// SetStatsInvalidator sets the cache front evicted after invoice writes
func (s *InvoiceService) SetStatsInvalidator(invalidator StatsInvalidator) {
	s.after.invalidator = invalidator
}

// SetMetrics sets the business metrics recorder
func (s *InvoiceService) SetMetrics(metrics LedgerMetrics) {
	if metrics != nil {
		s.metrics = metrics
	}
}

// Create raises a pending invoice. Numbers are unique within a tenant.
func (s *InvoiceService) Create(ctx context.Context, tenantID uuid.UUID, input CreateInvoiceInput) (*InvoiceDTO, error) {
	if input.ProviderID != nil {
		if _, err := s.providerRepo.FindByIDForTenant(ctx, tenantID, *input.ProviderID); err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil, shared.NewValidationError("provider %s does not exist in this tenant", *input.ProviderID)
			}
			return nil, fmt.Errorf("load provider: %w", err)
		}
	}

	invoice, err := billing.NewInvoice(tenantID, input.CustomerID, input.ProviderID, input.Number, input.Amount, input.DueDate)
	if err != nil {
		return nil, err
	}
	exists, err := s.invoiceRepo.ExistsByNumber(ctx, tenantID, invoice.Number)
	if err != nil {
		return nil, fmt.Errorf("check invoice number: %w", err)
	}
	if exists {
		return nil, shared.NewValidationError("invoice number %s is already used", invoice.Number)
	}

	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		return repos.InvoiceRepo().Create(ctx, invoice)
	})
	if err != nil {
		return nil, err
	}

	s.after.run(ctx, &tenantID, invoice.PullDomainEvents()...)
	s.metrics.RecordInvoiceStatus(ctx, tenantID, string(invoice.Status))
	s.logger.Info("Invoice created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("number", invoice.Number))
	return ToInvoiceDTO(invoice), nil
}

// Get returns an invoice of the tenant
func (s *InvoiceService) Get(ctx context.Context, tenantID, id uuid.UUID) (*InvoiceDTO, error) {
	invoice, err := s.invoiceRepo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	return ToInvoiceDTO(invoice), nil
}

// List returns a page of the tenant's invoices, newest first
func (s *InvoiceService) List(ctx context.Context, tenantID uuid.UUID, filter ListFilter) (*InvoiceListResult, error) {
	sharedFilter := filter.ToSharedFilter()
	invoices, total, err := s.invoiceRepo.FindAllForTenant(ctx, tenantID, sharedFilter)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}

	dtos := make([]InvoiceDTO, len(invoices))
	for i := range invoices {
		dtos[i] = *ToInvoiceDTO(&invoices[i])
	}
	return &InvoiceListResult{
		Invoices:   dtos,
		Total:      total,
		Page:       sharedFilter.Page,
		PageSize:   sharedFilter.PageSize,
		TotalPages: totalPages(total, sharedFilter.PageSize),
	}, nil
}

// MarkPaid settles an invoice
func (s *InvoiceService) MarkPaid(ctx context.Context, tenantID, id uuid.UUID) (*InvoiceDTO, error) {
	return s.transition(ctx, tenantID, id, (*billing.Invoice).MarkPaid)
}

// MarkOverdue flags an unpaid invoice as overdue
func (s *InvoiceService) MarkOverdue(ctx context.Context, tenantID, id uuid.UUID) (*InvoiceDTO, error) {
	return s.transition(ctx, tenantID, id, (*billing.Invoice).MarkOverdue)
}

// Cancel voids an invoice
func (s *InvoiceService) Cancel(ctx context.Context, tenantID, id uuid.UUID) (*InvoiceDTO, error) {
	return s.transition(ctx, tenantID, id, (*billing.Invoice).Cancel)
}

func (s *InvoiceService) transition(ctx context.Context, tenantID, id uuid.UUID, apply func(*billing.Invoice) error) (*InvoiceDTO, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "transition",
		telemetry.WithAttribute(telemetry.SpanAttrTenantID, tenantID),
		telemetry.WithAttribute(telemetry.SpanAttrInvoiceID, id))
	defer span.End()

	var invoice *billing.Invoice
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		invoice, err = repos.InvoiceRepo().FindByIDForTenant(ctx, tenantID, id)
		if err != nil {
			return err
		}
		if err := apply(invoice); err != nil {
			return err
		}
		return repos.InvoiceRepo().SaveWithLock(ctx, invoice)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttribute(span, telemetry.SpanAttrToStatus, string(invoice.Status))
	telemetry.SetOK(span)

	s.after.run(ctx, &tenantID, invoice.PullDomainEvents()...)
	s.metrics.RecordInvoiceStatus(ctx, tenantID, string(invoice.Status))
	s.logger.Info("Invoice status changed",
		zap.String("invoice_id", id.String()),
		zap.String("status", string(invoice.Status)))
	return ToInvoiceDTO(invoice), nil
}
