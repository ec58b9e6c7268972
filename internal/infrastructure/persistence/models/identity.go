package models

import "github.com/saas/backoffice/internal/domain/identity"

// TenantModel is a row of the tenants table. Tenants are platform records
// and carry no tenant_id of their own.
type TenantModel struct {
	AggregateModel
	Code   string                `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name   string                `gorm:"type:varchar(200);not null"`
	Status identity.TenantStatus `gorm:"type:varchar(20);not null;default:'active';index"`
}

func (TenantModel) TableName() string { return "tenants" }

func (m *TenantModel) ToDomain() *identity.Tenant {
	t := &identity.Tenant{Code: m.Code, Name: m.Name, Status: m.Status}
	m.PopulateAggregateRoot(&t.BaseAggregateRoot)
	return t
}

// TenantModelFromDomain builds the row for t
func TenantModelFromDomain(t *identity.Tenant) *TenantModel {
	m := &TenantModel{Code: t.Code, Name: t.Name, Status: t.Status}
	m.FromDomainAggregateRoot(t.BaseAggregateRoot)
	return m
}
