package persistence

import (
	"strings"

	"github.com/saas/backoffice/internal/domain/shared"
	"gorm.io/gorm"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// TenantSortFields contains allowed sort fields for tenants
var TenantSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"code":       true,
	"name":       true,
	"status":     true,
}

// PlanSortFields contains allowed sort fields for plans
var PlanSortFields = map[string]bool{
	"id":          true,
	"created_at":  true,
	"updated_at":  true,
	"name":        true,
	"price":       true,
	"status":      true,
	"sort_order":  true,
	"is_featured": true,
}

// ProviderSortFields contains allowed sort fields for providers
var ProviderSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"name":       true,
	"email":      true,
	"status":     true,
}

// SubscriptionSortFields contains allowed sort fields for plan subscriptions
var SubscriptionSortFields = map[string]bool{
	"id":              true,
	"created_at":      true,
	"updated_at":      true,
	"status":          true,
	"amount":          true,
	"start_date":      true,
	"end_date":        true,
	"next_payment_at": true,
}

// InvoiceSortFields contains allowed sort fields for invoices
var InvoiceSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"number":     true,
	"status":     true,
	"amount":     true,
	"due_date":   true,
	"paid_at":    true,
}

// paginate counts the filtered rows, then applies ordering and the page window.
// defaultOrder is used verbatim when the filter names no allowed sort field.
// The returned query is ready for Find.
func paginate(query *gorm.DB, filter shared.Filter, allowed map[string]bool, defaultOrder string) (*gorm.DB, int64, error) {
	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	filter = filter.Normalize()
	order := defaultOrder
	if field := ValidateSortField(filter.OrderBy, allowed, ""); field != "" {
		order = field + " " + ValidateSortOrder(filter.OrderDir)
	}

	// id breaks ties so pages are stable
	return query.
		Order(order).
		Order("id ASC").
		Offset(filter.Offset()).
		Limit(filter.PageSize), total, nil
}

// likeKeyword builds a case-insensitive LIKE argument that works on every dialect
func likeKeyword(search string) string {
	return "%" + strings.ToLower(strings.TrimSpace(search)) + "%"
}
