package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/saas/backoffice/internal/application/report"
	domainreport "github.com/saas/backoffice/internal/domain/report"
	"github.com/saas/backoffice/internal/infrastructure/config"
	"github.com/saas/backoffice/internal/interfaces/http/middleware"
	"github.com/shopspring/decimal"
)

// Report scopes
const (
	ScopeTenant = "tenant"
	ScopeSystem = "system"
)

// ReportHandler handles financial reporting HTTP requests
type ReportHandler struct {
	BaseHandler
	aggregator    *report.AggregationService
	reportService *report.ReportService
	cfg           config.ReportConfig
}

// NewReportHandler creates a new report handler
func NewReportHandler(aggregator *report.AggregationService, reportService *report.ReportService, cfg config.ReportConfig) *ReportHandler {
	return &ReportHandler{
		aggregator:    aggregator,
		reportService: reportService,
		cfg:           cfg,
	}
}

// ReportQuery holds the common reporting query parameters.
// start/end override period; both are dates in UTC and end is exclusive.
type ReportQuery struct {
	Period string     `form:"period" binding:"omitempty,oneof=today week month quarter year last_7_days last_30_days last_90_days"`
	Start  *time.Time `form:"start" time_format:"2006-01-02" time_utc:"1"`
	End    *time.Time `form:"end" time_format:"2006-01-02" time_utc:"1"`
	Scope  string     `form:"scope" binding:"omitempty,oneof=tenant system"`
	Limit  int        `form:"limit" binding:"omitempty,min=1,max=100"`
	Months int        `form:"months" binding:"omitempty,min=1,max=36"`
	AsOf   *time.Time `form:"as_of" time_format:"2006-01-02" time_utc:"1"`
}

func (q ReportQuery) periodQuery() report.PeriodQuery {
	return report.PeriodQuery{Period: q.Period, Start: q.Start, End: q.End}
}

func (q ReportQuery) asOf() time.Time {
	if q.AsOf != nil {
		return *q.AsOf
	}
	return time.Now().UTC()
}

// bind parses the query and resolves the tenant scope. A nil tenant means
// the whole platform, which only admins may ask for.
func (h *ReportHandler) bind(c *gin.Context) (ReportQuery, *uuid.UUID, bool) {
	var q ReportQuery
	if !bindQuery(c, &q) {
		return q, nil, false
	}
	if q.Scope == ScopeSystem {
		if !middleware.IsAdmin(c) {
			h.Forbidden(c, "System reports require administrator access")
			return q, nil, false
		}
		return q, nil, true
	}
	tenantID, ok := h.tenantID(c)
	if !ok {
		return q, nil, false
	}
	return q, &tenantID, true
}

// bindRange is bind plus period resolution
func (h *ReportHandler) bindRange(c *gin.Context) (ReportQuery, *uuid.UUID, domainreport.DateRange, bool) {
	q, tenantID, ok := h.bind(c)
	if !ok {
		return q, nil, domainreport.DateRange{}, false
	}
	r, err := q.periodQuery().Resolve()
	if err != nil {
		h.HandleError(c, err)
		return q, nil, domainreport.DateRange{}, false
	}
	return q, tenantID, r, true
}

// RevenueResponse is a revenue total over a window
type RevenueResponse struct {
	Start  time.Time       `json:"start"`
	End    time.Time       `json:"end"`
	Amount decimal.Decimal `json:"amount" swaggertype:"string"`
}

// RateResponse is a percentage over a window
type RateResponse struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Rate  float64   `json:"rate"`
}

// Dashboard godoc
// @Summary      Financial dashboard
// @Description  Summary, top providers, daily revenue and alerts of the caller's tenant.
// @Tags         reports
// @Produce      json
// @Param        period query string false "Named period" Enums(today, week, month, quarter, year, last_7_days, last_30_days, last_90_days)
// @Param        start query string false "Start date (YYYY-MM-DD)"
// @Param        end query string false "End date, exclusive (YYYY-MM-DD)"
// @Success      200 {object} dto.Response{data=report.DashboardDTO}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /reports/dashboard [get]
func (h *ReportHandler) Dashboard(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	var q ReportQuery
	if !bindQuery(c, &q) {
		return
	}
	dashboard, err := h.reportService.Dashboard(c.Request.Context(), tenantID, q.periodQuery())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dashboard)
}

// SystemDashboard godoc
// @Summary      Platform dashboard
// @Description  System financial summary, top tenants and outstanding receivables per tenant.
// @Tags         admin
// @Produce      json
// @Param        period query string false "Named period" Enums(today, week, month, quarter, year, last_7_days, last_30_days, last_90_days)
// @Param        start query string false "Start date (YYYY-MM-DD)"
// @Param        end query string false "End date, exclusive (YYYY-MM-DD)"
// @Success      200 {object} dto.Response{data=report.SystemDashboardDTO}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      504 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /admin/reports/dashboard [get]
func (h *ReportHandler) SystemDashboard(c *gin.Context) {
	var q ReportQuery
	if !bindQuery(c, &q) {
		return
	}
	dashboard, err := h.reportService.SystemDashboard(c.Request.Context(), q.periodQuery())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dashboard)
}

// Revenue godoc
// @Summary      Revenue in range
// @Description  Sum of paid invoices created in the window.
// @Tags         reports
// @Produce      json
// @Param        period query string false "Named period"
// @Param        start query string false "Start date (YYYY-MM-DD)"
// @Param        end query string false "End date, exclusive (YYYY-MM-DD)"
// @Param        scope query string false "tenant or system (admin)" Enums(tenant, system)
// @Success      200 {object} dto.Response{data=RevenueResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /reports/revenue [get]
func (h *ReportHandler) Revenue(c *gin.Context) {
	_, tenantID, r, ok := h.bindRange(c)
	if !ok {
		return
	}
	amount, err := h.aggregator.RevenueInRange(c.Request.Context(), tenantID, r.Start, r.End)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, RevenueResponse{Start: r.Start, End: r.End, Amount: amount})
}

// Projected godoc
// @Summary      Projected revenue
// @Description  Monthly recurring revenue of the current subscriptions.
// @Tags         reports
// @Produce      json
// @Param        scope query string false "tenant or system (admin)" Enums(tenant, system)
// @Success      200 {object} dto.Response{data=AmountData}
// @Security     BearerAuth
// @Router       /reports/projected [get]
func (h *ReportHandler) Projected(c *gin.Context) {
	_, tenantID, ok := h.bind(c)
	if !ok {
		return
	}
	amount, err := h.aggregator.ProjectedRevenue(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, AmountData{Amount: amount.StringFixed(2)})
}

// Growth godoc
// @Summary      Revenue growth
// @Description  Percentage change of revenue against the preceding window of equal length.
// @Tags         reports
// @Produce      json
// @Param        period query string false "Named period"
// @Param        start query string false "Start date (YYYY-MM-DD)"
// @Param        end query string false "End date, exclusive (YYYY-MM-DD)"
// @Param        scope query string false "tenant or system (admin)" Enums(tenant, system)
// @Success      200 {object} dto.Response{data=RateResponse}
// @Security     BearerAuth
// @Router       /reports/growth [get]
func (h *ReportHandler) Growth(c *gin.Context) {
	h.rate(c, h.aggregator.RevenueGrowth)
}

// Churn godoc
// @Summary      Churn rate
// @Description  Cancellations in the window over subscriptions active at its start, in percent.
// @Tags         reports
// @Produce      json
// @Param        period query string false "Named period"
// @Param        start query string false "Start date (YYYY-MM-DD)"
// @Param        end query string false "End date, exclusive (YYYY-MM-DD)"
// @Param        scope query string false "tenant or system (admin)" Enums(tenant, system)
// @Success      200 {object} dto.Response{data=RateResponse}
// @Security     BearerAuth
// @Router       /reports/churn [get]
func (h *ReportHandler) Churn(c *gin.Context) {
	h.rate(c, h.aggregator.ChurnRate)
}

type rangeRateFunc func(ctx context.Context, tenantID *uuid.UUID, start, end time.Time) (float64, error)

func (h *ReportHandler) rate(c *gin.Context, fn rangeRateFunc) {
	_, tenantID, r, ok := h.bindRange(c)
	if !ok {
		return
	}
	rate, err := fn(c.Request.Context(), tenantID, r.Start, r.End)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, RateResponse{Start: r.Start, End: r.End, Rate: rate})
}

// Retention godoc
// @Summary      Retention rate
// @Description  Share of subscriptions still current at as_of, in percent.
// @Tags         reports
// @Produce      json
// @Param        as_of query string false "Reference date (YYYY-MM-DD), defaults to now"
// @Param        scope query string false "tenant or system (admin)" Enums(tenant, system)
// @Success      200 {object} dto.Response{data=RateData}
// @Security     BearerAuth
// @Router       /reports/retention [get]
func (h *ReportHandler) Retention(c *gin.Context) {
	q, tenantID, ok := h.bind(c)
	if !ok {
		return
	}
	rate, err := h.aggregator.RetentionRate(c.Request.Context(), tenantID, q.asOf())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, RateData{Rate: rate})
}

// Top godoc
// @Summary      Top entities by revenue
// @Description  Providers of a tenant, or tenants of the platform with scope=system, ranked by paid revenue.
// @Tags         reports
// @Produce      json
// @Param        period query string false "Named period"
// @Param        start query string false "Start date (YYYY-MM-DD)"
// @Param        end query string false "End date, exclusive (YYYY-MM-DD)"
// @Param        limit query int false "Number of entries" maximum(100)
// @Param        scope query string false "tenant or system (admin)" Enums(tenant, system)
// @Success      200 {object} dto.Response{data=[]report.EntityRevenue}
// @Security     BearerAuth
// @Router       /reports/top [get]
func (h *ReportHandler) Top(c *gin.Context) {
	q, tenantID, r, ok := h.bindRange(c)
	if !ok {
		return
	}
	limit := q.Limit
	if limit == 0 {
		limit = h.cfg.TopEntitiesLimit
	}
	top, err := h.aggregator.TopEntities(c.Request.Context(), tenantID, r.Start, r.End, limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, top)
}

// Trends godoc
// @Summary      Monthly trends
// @Description  Paid revenue, processing costs and profit per calendar month, oldest first.
// @Tags         reports
// @Produce      json
// @Param        months query int false "Number of months" maximum(36)
// @Param        scope query string false "tenant or system (admin)" Enums(tenant, system)
// @Success      200 {object} dto.Response{data=[]report.MonthlyTrend}
// @Security     BearerAuth
// @Router       /reports/trends [get]
func (h *ReportHandler) Trends(c *gin.Context) {
	q, tenantID, ok := h.bind(c)
	if !ok {
		return
	}
	months := q.Months
	if months == 0 {
		months = h.cfg.TrendMonths
	}
	trends, err := h.aggregator.MonthlyTrends(c.Request.Context(), tenantID, months)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, trends)
}

// Summary godoc
// @Summary      Financial summary
// @Tags         reports
// @Produce      json
// @Param        period query string false "Named period"
// @Param        start query string false "Start date (YYYY-MM-DD)"
// @Param        end query string false "End date, exclusive (YYYY-MM-DD)"
// @Param        scope query string false "tenant or system (admin)" Enums(tenant, system)
// @Success      200 {object} dto.Response{data=report.FinancialSummary}
// @Security     BearerAuth
// @Router       /reports/summary [get]
func (h *ReportHandler) Summary(c *gin.Context) {
	_, tenantID, r, ok := h.bindRange(c)
	if !ok {
		return
	}
	summary, err := h.aggregator.FinancialSummary(c.Request.Context(), tenantID, r)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}

// Costs godoc
// @Summary      Cost breakdown
// @Description  Processing fees and net revenue over the window.
// @Tags         reports
// @Produce      json
// @Param        period query string false "Named period"
// @Param        start query string false "Start date (YYYY-MM-DD)"
// @Param        end query string false "End date, exclusive (YYYY-MM-DD)"
// @Param        scope query string false "tenant or system (admin)" Enums(tenant, system)
// @Success      200 {object} dto.Response{data=report.CostBreakdown}
// @Security     BearerAuth
// @Router       /reports/costs [get]
func (h *ReportHandler) Costs(c *gin.Context) {
	_, tenantID, r, ok := h.bindRange(c)
	if !ok {
		return
	}
	costs, err := h.aggregator.Costs(c.Request.Context(), tenantID, r)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, costs)
}

// Daily godoc
// @Summary      Revenue by day
// @Tags         reports
// @Produce      json
// @Param        period query string false "Named period"
// @Param        start query string false "Start date (YYYY-MM-DD)"
// @Param        end query string false "End date, exclusive (YYYY-MM-DD)"
// @Param        scope query string false "tenant or system (admin)" Enums(tenant, system)
// @Success      200 {object} dto.Response{data=[]report.DailyRevenue}
// @Security     BearerAuth
// @Router       /reports/daily [get]
func (h *ReportHandler) Daily(c *gin.Context) {
	_, tenantID, r, ok := h.bindRange(c)
	if !ok {
		return
	}
	days, err := h.aggregator.RevenueByDay(c.Request.Context(), tenantID, r)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, days)
}

// Alerts godoc
// @Summary      Financial alerts
// @Description  Overdue receivables, low payment rate and lapsed subscriptions.
// @Tags         reports
// @Produce      json
// @Param        period query string false "Named period"
// @Param        start query string false "Start date (YYYY-MM-DD)"
// @Param        end query string false "End date, exclusive (YYYY-MM-DD)"
// @Param        scope query string false "tenant or system (admin)" Enums(tenant, system)
// @Success      200 {object} dto.Response{data=[]report.Alert}
// @Security     BearerAuth
// @Router       /reports/alerts [get]
func (h *ReportHandler) Alerts(c *gin.Context) {
	_, tenantID, r, ok := h.bindRange(c)
	if !ok {
		return
	}
	alerts, err := h.aggregator.Alerts(c.Request.Context(), tenantID, r)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, alerts)
}

// Expiring godoc
// @Summary      Expiring subscriptions
// @Description  Active subscriptions whose end date is before as_of.
// @Tags         reports
// @Produce      json
// @Param        as_of query string false "Reference date (YYYY-MM-DD), defaults to now"
// @Param        scope query string false "tenant or system (admin)" Enums(tenant, system)
// @Success      200 {object} dto.Response{data=[]report.ExpiringSubscription}
// @Security     BearerAuth
// @Router       /reports/expiring [get]
func (h *ReportHandler) Expiring(c *gin.Context) {
	q, tenantID, ok := h.bind(c)
	if !ok {
		return
	}
	expiring, err := h.aggregator.ExpiringSubscriptions(c.Request.Context(), tenantID, q.asOf())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, expiring)
}

// Outstanding godoc
// @Summary      Outstanding receivables by tenant
// @Tags         admin
// @Produce      json
// @Param        period query string false "Named period"
// @Param        start query string false "Start date (YYYY-MM-DD)"
// @Param        end query string false "End date, exclusive (YYYY-MM-DD)"
// @Success      200 {object} dto.Response{data=[]report.TenantOutstanding}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /admin/reports/outstanding [get]
func (h *ReportHandler) Outstanding(c *gin.Context) {
	var q ReportQuery
	if !bindQuery(c, &q) {
		return
	}
	r, err := q.periodQuery().Resolve()
	if err != nil {
		h.HandleError(c, err)
		return
	}
	outstanding, err := h.aggregator.OutstandingByTenant(c.Request.Context(), r)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, outstanding)
}
