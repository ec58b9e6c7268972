// Package audit turns ledger and catalog events into a durable audit trail.
package audit

import (
	"context"
	"fmt"

	"github.com/saas/backoffice/internal/domain/audit"
	"github.com/saas/backoffice/internal/domain/billing"
	"github.com/saas/backoffice/internal/domain/identity"
	"github.com/saas/backoffice/internal/domain/shared"
	"go.uber.org/zap"
)

// Recorder is the event bus handler that appends every plan, subscription,
// invoice and tenant event to the audit log
type Recorder struct {
	repo   audit.Repository
	logger *zap.Logger
}

// NewRecorder creates a new audit recorder
func NewRecorder(repo audit.Repository, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{
		repo:   repo,
		logger: logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (r *Recorder) EventTypes() []string {
	return []string{
		billing.EventTypePlanCreated,
		billing.EventTypePlanUpdated,
		billing.EventTypePlanStatusChanged,
		billing.EventTypePlanDeleted,
		billing.EventTypeSubscriptionCreated,
		billing.EventTypeSubscriptionStatusChanged,
		billing.EventTypeSubscriptionPlanChanged,
		billing.EventTypeInvoiceStatusChanged,
		identity.EventTypeTenantCreated,
		identity.EventTypeTenantStatusChanged,
	}
}

// Handle appends the event. Re-delivery of the same event id is a no-op.
func (r *Recorder) Handle(ctx context.Context, event shared.DomainEvent) error {
	entry, err := audit.NewEntryFromEvent(event)
	if err != nil {
		return err
	}
	if err := r.repo.Append(ctx, entry); err != nil {
		r.logger.Error("Failed to append audit entry",
			zap.String("event_type", event.EventType()),
			zap.String("aggregate_id", event.AggregateID().String()),
			zap.Error(err))
		return fmt.Errorf("append audit entry: %w", err)
	}
	r.logger.Debug("Audit entry recorded",
		zap.String("event_type", event.EventType()),
		zap.String("aggregate_id", event.AggregateID().String()))
	return nil
}

var _ shared.EventHandler = (*Recorder)(nil)
