// Package audit records a durable trail of plan and subscription changes.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/saas/backoffice/internal/domain/shared"
)

// Entry is one persisted domain event.
// TenantID is uuid.Nil for catalog-wide changes such as plan edits.
type Entry struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	AggregateType string
	AggregateID   uuid.UUID
	Action        string
	Payload       string
	OccurredAt    time.Time
}

// NewEntryFromEvent captures event as an audit entry with its JSON body as payload
func NewEntryFromEvent(event shared.DomainEvent) (*Entry, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", event.EventType(), err)
	}
	return &Entry{
		ID:            event.EventID(),
		TenantID:      event.TenantID(),
		AggregateType: event.AggregateType(),
		AggregateID:   event.AggregateID(),
		Action:        event.EventType(),
		Payload:       string(payload),
		OccurredAt:    event.OccurredAt().UTC(),
	}, nil
}

// Repository persists audit entries
type Repository interface {
	// Append stores entry; re-appending an existing entry id is a no-op
	Append(ctx context.Context, entry *Entry) error

	// FindByAggregate lists the trail of one aggregate, oldest first
	FindByAggregate(ctx context.Context, aggregateType string, aggregateID uuid.UUID) ([]Entry, error)

	// FindForTenant lists the most recent entries of a tenant
	FindForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]Entry, int64, error)
}
