package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/saas/backoffice/internal/application/billing"
	"github.com/saas/backoffice/internal/application/report"
	"github.com/shopspring/decimal"
)

// PlanHandler handles plan catalog HTTP requests
type PlanHandler struct {
	BaseHandler
	planService   *billing.PlanService
	reportService *report.ReportService
}

// NewPlanHandler creates a new plan handler
func NewPlanHandler(planService *billing.PlanService, reportService *report.ReportService) *PlanHandler {
	return &PlanHandler{
		planService:   planService,
		reportService: reportService,
	}
}

// PlanLimitsRequest holds the usage caps of a plan; 0 means unlimited
type PlanLimitsRequest struct {
	MaxCustomers int `json:"max_customers" binding:"min=0"`
	MaxInvoices  int `json:"max_invoices" binding:"min=0"`
	MaxBudgets   int `json:"max_budgets" binding:"min=0"`
	MaxProducts  int `json:"max_products" binding:"min=0"`
	MaxServices  int `json:"max_services" binding:"min=0"`
	StorageMB    int `json:"storage_mb" binding:"min=0"`
}

// PlanRequest represents the request body for creating or updating a plan
type PlanRequest struct {
	Name         string            `json:"name" binding:"required,min=1,max=100"`
	Description  string            `json:"description" binding:"max=1000"`
	Price        decimal.Decimal   `json:"price" swaggertype:"string" example:"49.90"`
	BillingCycle string            `json:"billing_cycle" binding:"required,billing_cycle"`
	TrialDays    int               `json:"trial_days" binding:"min=0,max=365"`
	Limits       PlanLimitsRequest `json:"limits"`
	Features     []string          `json:"features" binding:"omitempty,dive,required"`
	SortOrder    int               `json:"sort_order"`
	IsFeatured   bool              `json:"is_featured"`
	Status       string            `json:"status" binding:"omitempty,plan_status"`
}

func (r PlanRequest) toInput() billing.PlanInput {
	return billing.PlanInput{
		Name:         r.Name,
		Description:  r.Description,
		Price:        r.Price,
		BillingCycle: r.BillingCycle,
		TrialDays:    r.TrialDays,
		Limits:       billing.PlanLimitsDTO(r.Limits),
		Features:     r.Features,
		SortOrder:    r.SortOrder,
		IsFeatured:   r.IsFeatured,
		Status:       r.Status,
	}
}

// PlanListQuery represents query parameters for listing plans
type PlanListQuery struct {
	Keyword  string `form:"keyword"`
	Status   string `form:"status" binding:"omitempty,plan_status"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	SortBy   string `form:"sort_by" binding:"omitempty,oneof=name price sort_order created_at updated_at"`
	SortDir  string `form:"sort_dir" binding:"omitempty,oneof=asc desc"`
}

// ChangePlanStatusRequest represents the request body for an explicit status change
type ChangePlanStatusRequest struct {
	Status string `json:"status" binding:"required,plan_status"`
}

// AnalyticsQuery selects the length of a monthly series
type AnalyticsQuery struct {
	Months int `form:"months" binding:"omitempty,min=1,max=36"`
}

// Create godoc
// @Summary      Create a plan
// @Description  Add a plan to the catalog. Names are unique.
// @Tags         plans
// @Accept       json
// @Produce      json
// @Param        request body PlanRequest true "Plan"
// @Success      201 {object} dto.Response{data=billing.PlanDTO}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /plans [post]
func (h *PlanHandler) Create(c *gin.Context) {
	var req PlanRequest
	if !bindJSON(c, &req) {
		return
	}
	plan, err := h.planService.Create(c.Request.Context(), req.toInput())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, plan)
}

// List godoc
// @Summary      List plans
// @Tags         plans
// @Produce      json
// @Param        keyword query string false "Search keyword"
// @Param        status query string false "Plan status" Enums(active, inactive, draft)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20) maximum(100)
// @Param        sort_by query string false "Sort by field" Enums(name, price, sort_order, created_at, updated_at)
// @Param        sort_dir query string false "Sort direction" Enums(asc, desc)
// @Success      200 {object} dto.Response{data=[]billing.PlanDTO,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /plans [get]
func (h *PlanHandler) List(c *gin.Context) {
	var query PlanListQuery
	if !bindQuery(c, &query) {
		return
	}
	result, err := h.planService.List(c.Request.Context(), billing.ListFilter{
		Page:     query.Page,
		PageSize: query.PageSize,
		SortBy:   query.SortBy,
		SortDir:  query.SortDir,
		Keyword:  query.Keyword,
		Status:   query.Status,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, result.Plans, result.Total, result.Page, result.PageSize)
}

// Get godoc
// @Summary      Get a plan by ID
// @Tags         plans
// @Produce      json
// @Param        id path string true "Plan ID" format(uuid)
// @Success      200 {object} dto.Response{data=billing.PlanDTO}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /plans/{id} [get]
func (h *PlanHandler) Get(c *gin.Context) {
	id, ok := h.pathID(c, "plan")
	if !ok {
		return
	}
	plan, err := h.planService.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, plan)
}

// Update godoc
// @Summary      Update a plan
// @Description  Replace the editable attributes of a plan. Status is changed through toggle-status or status.
// @Tags         plans
// @Accept       json
// @Produce      json
// @Param        id path string true "Plan ID" format(uuid)
// @Param        request body PlanRequest true "Plan"
// @Success      200 {object} dto.Response{data=billing.PlanDTO}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /plans/{id} [put]
func (h *PlanHandler) Update(c *gin.Context) {
	id, ok := h.pathID(c, "plan")
	if !ok {
		return
	}
	var req PlanRequest
	if !bindJSON(c, &req) {
		return
	}
	plan, err := h.planService.Update(c.Request.Context(), id, req.toInput())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, plan)
}

// Delete godoc
// @Summary      Delete a plan
// @Description  Only plans that no subscription ever referenced can be deleted.
// @Tags         plans
// @Param        id path string true "Plan ID" format(uuid)
// @Success      204
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /plans/{id} [delete]
func (h *PlanHandler) Delete(c *gin.Context) {
	id, ok := h.pathID(c, "plan")
	if !ok {
		return
	}
	if err := h.planService.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Duplicate godoc
// @Summary      Duplicate a plan
// @Description  Copy a plan into a new draft named "<name> (Copy)".
// @Tags         plans
// @Produce      json
// @Param        id path string true "Plan ID" format(uuid)
// @Success      201 {object} dto.Response{data=billing.PlanDTO}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /plans/{id}/duplicate [post]
func (h *PlanHandler) Duplicate(c *gin.Context) {
	id, ok := h.pathID(c, "plan")
	if !ok {
		return
	}
	plan, err := h.planService.Duplicate(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, plan)
}

// ToggleStatus godoc
// @Summary      Toggle plan status
// @Description  Flip a plan between active and inactive.
// @Tags         plans
// @Produce      json
// @Param        id path string true "Plan ID" format(uuid)
// @Success      200 {object} dto.Response{data=billing.PlanDTO}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /plans/{id}/toggle-status [post]
func (h *PlanHandler) ToggleStatus(c *gin.Context) {
	id, ok := h.pathID(c, "plan")
	if !ok {
		return
	}
	plan, err := h.planService.ToggleStatus(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, plan)
}

// ChangeStatus godoc
// @Summary      Set plan status
// @Tags         plans
// @Accept       json
// @Produce      json
// @Param        id path string true "Plan ID" format(uuid)
// @Param        request body ChangePlanStatusRequest true "Target status"
// @Success      200 {object} dto.Response{data=billing.PlanDTO}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /plans/{id}/status [put]
func (h *PlanHandler) ChangeStatus(c *gin.Context) {
	id, ok := h.pathID(c, "plan")
	if !ok {
		return
	}
	var req ChangePlanStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	plan, err := h.planService.ChangeStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, plan)
}

// Features godoc
// @Summary      List available plan features
// @Tags         plans
// @Produce      json
// @Success      200 {object} dto.Response{data=[]billing.FeatureDescriptor}
// @Security     BearerAuth
// @Router       /plans/features [get]
func (h *PlanHandler) Features(c *gin.Context) {
	h.Success(c, h.planService.AvailableFeatures())
}

// Stats godoc
// @Summary      Catalog statistics
// @Description  Plans by status, subscription counts, monthly recurring and yearly revenue.
// @Tags         plans
// @Produce      json
// @Success      200 {object} dto.Response{data=report.PlanStatsDTO}
// @Security     BearerAuth
// @Router       /plans/stats [get]
func (h *PlanHandler) Stats(c *gin.Context) {
	stats, err := h.reportService.PlanStats(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stats)
}

// DetailedStats godoc
// @Summary      Plan statistics
// @Description  Subscription counts by status, revenue, churn and conversion for one plan.
// @Tags         plans
// @Produce      json
// @Param        id path string true "Plan ID" format(uuid)
// @Success      200 {object} dto.Response{data=report.PlanDetailedStatsDTO}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /plans/{id}/stats [get]
func (h *PlanHandler) DetailedStats(c *gin.Context) {
	id, ok := h.pathID(c, "plan")
	if !ok {
		return
	}
	stats, err := h.reportService.PlanDetailedStats(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stats)
}

// Analytics godoc
// @Summary      Plan analytics
// @Description  Monthly new and cancelled subscriptions and revenue for one plan.
// @Tags         plans
// @Produce      json
// @Param        id path string true "Plan ID" format(uuid)
// @Param        months query int false "Number of months" default(12) maximum(36)
// @Success      200 {object} dto.Response{data=report.PlanAnalyticsDTO}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /plans/{id}/analytics [get]
func (h *PlanHandler) Analytics(c *gin.Context) {
	id, ok := h.pathID(c, "plan")
	if !ok {
		return
	}
	var query AnalyticsQuery
	if !bindQuery(c, &query) {
		return
	}
	if query.Months == 0 {
		query.Months = report.DefaultAnalyticsMonths
	}
	analytics, err := h.reportService.PlanAnalytics(c.Request.Context(), id, query.Months)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, analytics)
}
