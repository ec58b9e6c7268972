package billing

import "sort"

// Feature flags a plan can grant
const (
	FeatureUnlimitedCustomers  = "unlimited_customers"
	FeatureUnlimitedInvoices   = "unlimited_invoices"
	FeatureAdvancedReports     = "advanced_reports"
	FeatureAPIAccess           = "api_access"
	FeaturePrioritySupport     = "priority_support"
	FeatureCustomBranding      = "custom_branding"
	FeatureMultiCurrency       = "multi_currency"
	FeatureInventoryManagement = "inventory_management"
	FeatureBudgetTracking      = "budget_tracking"
	FeatureExportData          = "export_data"
)

// FeatureDescriptor describes a catalog feature for display
type FeatureDescriptor struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

var featureCatalog = map[string]FeatureDescriptor{
	FeatureUnlimitedCustomers:  {FeatureUnlimitedCustomers, "Unlimited customers", "No cap on registered customers"},
	FeatureUnlimitedInvoices:   {FeatureUnlimitedInvoices, "Unlimited invoices", "No cap on issued invoices"},
	FeatureAdvancedReports:     {FeatureAdvancedReports, "Advanced reports", "Financial dashboards and trends"},
	FeatureAPIAccess:           {FeatureAPIAccess, "API access", "Programmatic access to the REST API"},
	FeaturePrioritySupport:     {FeaturePrioritySupport, "Priority support", "Faster response from support"},
	FeatureCustomBranding:      {FeatureCustomBranding, "Custom branding", "Own logo and colors on documents"},
	FeatureMultiCurrency:       {FeatureMultiCurrency, "Multi currency", "Invoices in several currencies"},
	FeatureInventoryManagement: {FeatureInventoryManagement, "Inventory management", "Stock control for products"},
	FeatureBudgetTracking:      {FeatureBudgetTracking, "Budget tracking", "Budgets and quotes"},
	FeatureExportData:          {FeatureExportData, "Export data", "Download records in bulk"},
}

// IsKnownFeature reports whether key is part of the feature catalog
func IsKnownFeature(key string) bool {
	_, ok := featureCatalog[key]
	return ok
}

// AvailableFeatures returns the feature catalog sorted by key
func AvailableFeatures() []FeatureDescriptor {
	out := make([]FeatureDescriptor, 0, len(featureCatalog))
	for _, f := range featureCatalog {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
