// Package tenant provides multi-tenant query scoping for GORM.
//
// Every repository query on a tenant-owned table goes through one of these
// scopes, so cross-tenant reads can only happen through OptionalScope with a
// nil tenant, which is reserved for system-wide aggregations.
//
// Usage:
//
//	db.Scopes(tenant.TenantScope(tenantID)).Find(&providers)
//	db.Table("invoices AS i").Scopes(tenant.OptionalScope("i.tenant_id", tenantID))
package tenant

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrTenantIDRequired is returned when a tenant-scoped query gets uuid.Nil
var ErrTenantIDRequired = errors.New("tenant_id is required")

// DefaultColumn is the tenant column of every tenant-owned table
const DefaultColumn = "tenant_id"

// TenantScope applies tenant filtering to GORM queries
func TenantScope(tenantID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return ColumnScope(DefaultColumn, tenantID)
}

// ColumnScope filters on a qualified tenant column, for joined queries.
// A nil tenant id fails the statement instead of silently widening it.
func ColumnScope(column string, tenantID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if tenantID == uuid.Nil {
			_ = db.AddError(ErrTenantIDRequired)
			return db
		}
		return db.Where(column+" = ?", tenantID)
	}
}

// OptionalScope filters on column when tenantID is set and leaves the query
// system-wide when it is nil.
func OptionalScope(column string, tenantID *uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if tenantID == nil {
			return db
		}
		return ColumnScope(column, *tenantID)(db)
	}
}
