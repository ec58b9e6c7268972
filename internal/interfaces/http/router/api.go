package router

import (
	"github.com/saas/backoffice/internal/interfaces/http/handler"
	"github.com/saas/backoffice/internal/interfaces/http/middleware"
)

// Handlers bundles the HTTP handlers of the back-office API
type Handlers struct {
	Tenant       *handler.TenantHandler
	Plan         *handler.PlanHandler
	Provider     *handler.ProviderHandler
	Subscription *handler.SubscriptionHandler
	Invoice      *handler.InvoiceHandler
	Report       *handler.ReportHandler
	Audit        *handler.AuditHandler
	System       *handler.SystemHandler
}

// APIGroups builds the /api/v1 route groups. Tenant administration, catalog
// writes and platform reports require the admin role; ledger routes require
// a tenant scope. Reports resolve their scope per request because admins may
// ask for scope=system without a tenant.
func APIGroups(h Handlers) []RouteRegistrar {
	admin := middleware.RequireAdmin()

	tenants := NewResourceGroup("/tenants").Use(admin)
	tenants.POST("", h.Tenant.Create).
		GET("", h.Tenant.List).
		GET("/stats", h.Tenant.Stats).
		GET("/:id", h.Tenant.GetByID).
		POST("/:id/activate", h.Tenant.Activate).
		POST("/:id/suspend", h.Tenant.Suspend)

	plans := NewResourceGroup("/plans")
	plans.GET("", h.Plan.List).
		GET("/features", h.Plan.Features).
		GET("/stats", admin, h.Plan.Stats).
		GET("/:id", h.Plan.Get).
		GET("/:id/stats", admin, h.Plan.DetailedStats).
		GET("/:id/analytics", admin, h.Plan.Analytics).
		GET("/:id/audit", admin, h.Audit.Plan).
		POST("", admin, h.Plan.Create).
		PUT("/:id", admin, h.Plan.Update).
		DELETE("/:id", admin, h.Plan.Delete).
		POST("/:id/duplicate", admin, h.Plan.Duplicate).
		POST("/:id/toggle-status", admin, h.Plan.ToggleStatus).
		PUT("/:id/status", admin, h.Plan.ChangeStatus)

	requireTenant := middleware.RequireTenant()

	providers := NewResourceGroup("/providers").Use(requireTenant)
	providers.POST("", h.Provider.Create).
		GET("", h.Provider.List).
		GET("/:id", h.Provider.Get).
		PUT("/:id", h.Provider.Update).
		POST("/:id/deactivate", h.Provider.Deactivate)

	subscriptions := NewResourceGroup("/subscriptions").Use(requireTenant)
	subscriptions.POST("", h.Subscription.Create).
		GET("", h.Subscription.List).
		GET("/current", h.Subscription.Current).
		GET("/history", h.Subscription.History).
		POST("/change-plan", h.Subscription.ChangePlan).
		GET("/:id", h.Subscription.Get).
		POST("/:id/transition", h.Subscription.Transition).
		GET("/:id/audit", h.Audit.Subscription)

	invoices := NewResourceGroup("/invoices").Use(requireTenant)
	invoices.POST("", h.Invoice.Create).
		GET("", h.Invoice.List).
		GET("/:id", h.Invoice.Get).
		POST("/:id/pay", h.Invoice.Pay).
		POST("/:id/overdue", h.Invoice.Overdue).
		POST("/:id/cancel", h.Invoice.Cancel)

	reports := NewResourceGroup("/reports")
	reports.GET("/dashboard", h.Report.Dashboard).
		GET("/revenue", h.Report.Revenue).
		GET("/projected", h.Report.Projected).
		GET("/growth", h.Report.Growth).
		GET("/churn", h.Report.Churn).
		GET("/retention", h.Report.Retention).
		GET("/top", h.Report.Top).
		GET("/trends", h.Report.Trends).
		GET("/summary", h.Report.Summary).
		GET("/costs", h.Report.Costs).
		GET("/daily", h.Report.Daily).
		GET("/alerts", h.Report.Alerts).
		GET("/expiring", h.Report.Expiring)

	adminGroup := NewResourceGroup("/admin").Use(admin)
	adminGroup.Child("/reports").
		GET("/dashboard", h.Report.SystemDashboard).
		GET("/outstanding", h.Report.Outstanding)

	auditGroup := NewResourceGroup("/audit").Use(requireTenant)
	auditGroup.GET("", h.Audit.List)

	system := NewResourceGroup("/system")
	system.GET("/info", h.System.Info)

	return []RouteRegistrar{tenants, plans, providers, subscriptions, invoices, reports, adminGroup, auditGroup, system}
}
