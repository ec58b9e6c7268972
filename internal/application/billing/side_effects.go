package billing

import (
	"context"

	"github.com/google/uuid"
	"github.com/saas/backoffice/internal/domain/report"
	"github.com/saas/backoffice/internal/domain/shared"
	"go.uber.org/zap"
)

// StatsInvalidator evicts cached aggregates made stale by a write.
// report.CachedStats satisfies it.
type StatsInvalidator interface {
	Invalidate(ctx context.Context, patterns ...string) error
}

// LedgerMetrics records ledger activity as business metrics
type LedgerMetrics interface {
	RecordSubscriptionTransition(ctx context.Context, tenantID uuid.UUID, from, to string)
	RecordPlanChange(ctx context.Context, tenantID uuid.UUID, classification string)
	RecordInvoiceStatus(ctx context.Context, tenantID uuid.UUID, status string)
}

type nopLedgerMetrics struct{}

func (nopLedgerMetrics) RecordSubscriptionTransition(context.Context, uuid.UUID, string, string) {}
func (nopLedgerMetrics) RecordPlanChange(context.Context, uuid.UUID, string)                     {}
func (nopLedgerMetrics) RecordInvoiceStatus(context.Context, uuid.UUID, string)                  {}

// afterCommit runs the post-write steps every service shares: stale cache
// entries are evicted before the call returns, then the events go to the bus.
type afterCommit struct {
	invalidator StatsInvalidator
	publisher   shared.EventPublisher
	logger      *zap.Logger
}

func newAfterCommit(logger *zap.Logger) afterCommit {
	if logger == nil {
		logger = zap.NewNop()
	}
	return afterCommit{
		publisher: shared.NopEventPublisher{},
		logger:    logger,
	}
}

// run invalidates the patterns stale for tenantID (nil for catalog writes)
// and publishes events. Neither step fails the write that already committed.
func (a afterCommit) run(ctx context.Context, tenantID *uuid.UUID, events ...shared.DomainEvent) {
	if a.invalidator != nil {
		if err := a.invalidator.Invalidate(ctx, report.StalePatterns(tenantID)...); err != nil {
			a.logger.Warn("Stats cache invalidation failed after write", zap.Error(err))
		}
	}
	if len(events) == 0 {
		return
	}
	if err := a.publisher.Publish(ctx, events...); err != nil {
		a.logger.Warn("Failed to publish domain events",
			zap.Int("count", len(events)),
			zap.Error(err))
	}
}
