// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer pure and free
// from ORM concerns.
//
// Structure:
//   - base.go: shared columns (id, timestamps, version, tenant_id)
//   - identity.go: tenants
//   - partner.go: providers
//   - billing.go: plans, plan subscriptions and invoices
//   - audit.go: audit log entries written from domain events
package models
