package models

import (
	"github.com/google/uuid"
	"github.com/saas/backoffice/internal/domain/partner"
)

// ProviderModel is the persistence model for the Provider domain entity.
type ProviderModel struct {
	TenantAggregateModel
	Name     string                 `gorm:"type:varchar(200);not null"`
	Email    string                 `gorm:"type:varchar(200);index"`
	Phone    string                 `gorm:"type:varchar(50)"`
	Document string                 `gorm:"type:varchar(20);index"`
	PlanID   *uuid.UUID             `gorm:"type:uuid;index"`
	Status   partner.ProviderStatus `gorm:"type:varchar(20);not null;default:'active'"`
}

// TableName returns the table name for GORM
func (ProviderModel) TableName() string {
	return "providers"
}

// ToDomain converts the persistence model to a domain Provider entity.
func (m *ProviderModel) ToDomain() *partner.Provider {
	p := &partner.Provider{
		Name:     m.Name,
		Email:    m.Email,
		Phone:    m.Phone,
		Document: m.Document,
		PlanID:   m.PlanID,
		Status:   m.Status,
	}
	m.PopulateTenantAggregateRoot(&p.TenantAggregateRoot)
	return p
}

// FromDomain populates the persistence model from a domain Provider entity.
func (m *ProviderModel) FromDomain(p *partner.Provider) {
	m.FromDomainTenantAggregateRoot(p.TenantAggregateRoot)
	m.Name = p.Name
	m.Email = p.Email
	m.Phone = p.Phone
	m.Document = p.Document
	m.PlanID = p.PlanID
	m.Status = p.Status
}

// ProviderModelFromDomain creates a new persistence model from a domain Provider entity.
func ProviderModelFromDomain(p *partner.Provider) *ProviderModel {
	m := &ProviderModel{}
	m.FromDomain(p)
	return m
}
