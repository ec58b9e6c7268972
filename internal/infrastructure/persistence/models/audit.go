package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/saas/backoffice/internal/domain/audit"
)

// AuditLogModel is an append-only row per recorded domain event.
type AuditLogModel struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key"`
	TenantID      uuid.UUID `gorm:"type:uuid;not null;index"`
	AggregateType string    `gorm:"type:varchar(50);not null;index:idx_audit_logs_aggregate,priority:1"`
	AggregateID   uuid.UUID `gorm:"type:uuid;not null;index:idx_audit_logs_aggregate,priority:2"`
	Action        string    `gorm:"type:varchar(100);not null"`
	Payload       string    `gorm:"type:text;not null"`
	OccurredAt    time.Time `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (AuditLogModel) TableName() string {
	return "audit_logs"
}

// ToDomain converts the row to an audit entry
func (m *AuditLogModel) ToDomain() audit.Entry {
	return audit.Entry{
		ID:            m.ID,
		TenantID:      m.TenantID,
		AggregateType: m.AggregateType,
		AggregateID:   m.AggregateID,
		Action:        m.Action,
		Payload:       m.Payload,
		OccurredAt:    m.OccurredAt.UTC(),
	}
}

// AuditLogModelFromDomain creates a row from an audit entry
func AuditLogModelFromDomain(e *audit.Entry) *AuditLogModel {
	return &AuditLogModel{
		ID:            e.ID,
		TenantID:      e.TenantID,
		AggregateType: e.AggregateType,
		AggregateID:   e.AggregateID,
		Action:        e.Action,
		Payload:       e.Payload,
		OccurredAt:    e.OccurredAt,
	}
}
