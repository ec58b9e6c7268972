package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/saas/backoffice/internal/application/billing"
	"github.com/saas/backoffice/internal/interfaces/http/dto"
	"github.com/shopspring/decimal"
)

// SubscriptionHandler handles subscription ledger HTTP requests
type SubscriptionHandler struct {
	BaseHandler
	subscriptionService *billing.SubscriptionService
}

// NewSubscriptionHandler creates a new subscription handler
func NewSubscriptionHandler(subscriptionService *billing.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptionService: subscriptionService}
}

// CreateSubscriptionRequest represents the request body for opening a subscription
type CreateSubscriptionRequest struct {
	ProviderID    uuid.UUID        `json:"provider_id" binding:"required"`
	PlanID        uuid.UUID        `json:"plan_id" binding:"required"`
	Amount        *decimal.Decimal `json:"amount,omitempty" swaggertype:"string" example:"49.90"`
	BillingCycle  string           `json:"billing_cycle" binding:"omitempty,billing_cycle"`
	PaymentMethod string           `json:"payment_method" binding:"max=50"`
}

// TransitionRequest represents the request body for a status transition
type TransitionRequest struct {
	Status string `json:"status" binding:"required,subscription_status"`
	Reason string `json:"reason" binding:"max=500"`
}

// ChangePlanRequest represents the request body for an upgrade or downgrade
type ChangePlanRequest struct {
	PlanID uuid.UUID        `json:"plan_id" binding:"required"`
	Amount *decimal.Decimal `json:"amount,omitempty" swaggertype:"string" example:"99.90"`
}

// SubscriptionListQuery represents query parameters for listing subscriptions
type SubscriptionListQuery struct {
	Status     string `form:"status" binding:"omitempty,subscription_status"`
	ProviderID string `form:"provider_id" binding:"omitempty,uuid"`
	Page       int    `form:"page" binding:"omitempty,min=1"`
	PageSize   int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	SortBy     string `form:"sort_by" binding:"omitempty,oneof=start_date end_date amount status created_at"`
	SortDir    string `form:"sort_dir" binding:"omitempty,oneof=asc desc"`
}

// Create godoc
// @Summary      Open a subscription
// @Description  Open the tenant's first subscription. Plans with trial days start in trial.
// @Tags         subscriptions
// @Accept       json
// @Produce      json
// @Param        request body CreateSubscriptionRequest true "Subscription"
// @Success      201 {object} dto.Response{data=billing.SubscriptionDTO}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /subscriptions [post]
func (h *SubscriptionHandler) Create(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	var req CreateSubscriptionRequest
	if !bindJSON(c, &req) {
		return
	}
	sub, err := h.subscriptionService.Create(c.Request.Context(), tenantID, billing.CreateSubscriptionInput{
		ProviderID:    req.ProviderID,
		PlanID:        req.PlanID,
		Amount:        req.Amount,
		BillingCycle:  req.BillingCycle,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, sub)
}

// List godoc
// @Summary      List subscriptions
// @Tags         subscriptions
// @Produce      json
// @Param        status query string false "Subscription status" Enums(trial, pending, active, cancelled)
// @Param        provider_id query string false "Provider ID" format(uuid)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20) maximum(100)
// @Param        sort_by query string false "Sort by field" Enums(start_date, end_date, amount, status, created_at)
// @Param        sort_dir query string false "Sort direction" Enums(asc, desc)
// @Success      200 {object} dto.Response{data=[]billing.SubscriptionDTO,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /subscriptions [get]
func (h *SubscriptionHandler) List(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	var query SubscriptionListQuery
	if !bindQuery(c, &query) {
		return
	}
	filter := billing.ListFilter{
		Page:     query.Page,
		PageSize: query.PageSize,
		SortBy:   query.SortBy,
		SortDir:  query.SortDir,
		Status:   query.Status,
	}
	if query.ProviderID != "" {
		providerID := uuid.MustParse(query.ProviderID)
		filter.ProviderID = &providerID
	}
	result, err := h.subscriptionService.ListForTenant(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, result.Subscriptions, result.Total, result.Page, result.PageSize)
}

// Current godoc
// @Summary      Get the current subscription
// @Description  The tenant's trial or active subscription.
// @Tags         subscriptions
// @Produce      json
// @Success      200 {object} dto.Response{data=billing.SubscriptionDTO}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /subscriptions/current [get]
func (h *SubscriptionHandler) Current(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	sub, err := h.subscriptionService.FindCurrentForTenant(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if sub == nil {
		h.ErrorWithCode(c, dto.ErrCodeNotFound, "Tenant has no current subscription")
		return
	}
	h.Success(c, sub)
}

// History godoc
// @Summary      Subscription history
// @Description  Every subscription of the tenant, newest first.
// @Tags         subscriptions
// @Produce      json
// @Success      200 {object} dto.Response{data=[]billing.SubscriptionDTO}
// @Security     BearerAuth
// @Router       /subscriptions/history [get]
func (h *SubscriptionHandler) History(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	history, err := h.subscriptionService.History(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, history)
}

// Get godoc
// @Summary      Get a subscription by ID
// @Tags         subscriptions
// @Produce      json
// @Param        id path string true "Subscription ID" format(uuid)
// @Success      200 {object} dto.Response{data=billing.SubscriptionDTO}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /subscriptions/{id} [get]
func (h *SubscriptionHandler) Get(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "subscription")
	if !ok {
		return
	}
	sub, err := h.subscriptionService.Get(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, sub)
}

// Transition godoc
// @Summary      Transition a subscription
// @Description  Move a subscription along its lifecycle. A reason is kept when cancelling.
// @Tags         subscriptions
// @Accept       json
// @Produce      json
// @Param        id path string true "Subscription ID" format(uuid)
// @Param        request body TransitionRequest true "Target status"
// @Success      200 {object} dto.Response{data=billing.SubscriptionDTO}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /subscriptions/{id}/transition [post]
func (h *SubscriptionHandler) Transition(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "subscription")
	if !ok {
		return
	}
	var req TransitionRequest
	if !bindJSON(c, &req) {
		return
	}
	sub, err := h.subscriptionService.TransitionWithReason(c.Request.Context(), tenantID, id, req.Status, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, sub)
}

// ChangePlan godoc
// @Summary      Change plan
// @Description  Cancel the current subscription and open a new one on another plan, classified as upgrade, downgrade or lateral.
// @Tags         subscriptions
// @Accept       json
// @Produce      json
// @Param        request body ChangePlanRequest true "Target plan"
// @Success      201 {object} dto.Response{data=billing.PlanChangeResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /subscriptions/change-plan [post]
func (h *SubscriptionHandler) ChangePlan(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	var req ChangePlanRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.subscriptionService.RecordUpgradeOrDowngrade(c.Request.Context(), tenantID, billing.ChangePlanInput{
		PlanID: req.PlanID,
		Amount: req.Amount,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}
