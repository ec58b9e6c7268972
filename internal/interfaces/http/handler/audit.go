package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/saas/backoffice/internal/application/audit"
	"github.com/saas/backoffice/internal/domain/billing"
	"github.com/saas/backoffice/internal/interfaces/http/middleware"
)

// AuditHandler serves the audit trail
type AuditHandler struct {
	BaseHandler
	trailService *audit.TrailService
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(trailService *audit.TrailService) *AuditHandler {
	return &AuditHandler{trailService: trailService}
}

// List godoc
// @Summary      List audit entries
// @Description  Plan, subscription and invoice changes of the caller's tenant, newest first.
// @Tags         audit
// @Produce      json
// @Param        action query string false "Event type, e.g. SubscriptionStatusChanged"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20) maximum(100)
// @Success      200 {object} dto.Response{data=[]audit.EntryDTO,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /audit [get]
func (h *AuditHandler) List(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	var filter audit.TrailFilter
	if !bindQuery(c, &filter) {
		return
	}
	result, err := h.trailService.ForTenant(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, result.Entries, result.Total, result.Page, result.PageSize)
}

// Subscription godoc
// @Summary      Audit trail of a subscription
// @Description  Entries of other tenants are hidden from non-admin callers.
// @Tags         audit
// @Produce      json
// @Param        id path string true "Subscription ID" format(uuid)
// @Success      200 {object} dto.Response{data=[]audit.EntryDTO}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /subscriptions/{id}/audit [get]
func (h *AuditHandler) Subscription(c *gin.Context) {
	h.aggregate(c, billing.AggregateTypeSubscription)
}

// Plan godoc
// @Summary      Audit trail of a plan
// @Tags         audit
// @Produce      json
// @Param        id path string true "Plan ID" format(uuid)
// @Success      200 {object} dto.Response{data=[]audit.EntryDTO}
// @Security     BearerAuth
// @Router       /plans/{id}/audit [get]
func (h *AuditHandler) Plan(c *gin.Context) {
	h.aggregate(c, billing.AggregateTypePlan)
}

func (h *AuditHandler) aggregate(c *gin.Context, aggregateType string) {
	id, ok := h.pathID(c, "aggregate")
	if !ok {
		return
	}
	entries, err := h.trailService.ForAggregate(c.Request.Context(), aggregateType, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if !middleware.IsAdmin(c) {
		tenantID, _ := middleware.GetTenantUUID(c)
		visible := entries[:0]
		for _, e := range entries {
			if e.TenantID == tenantID {
				visible = append(visible, e)
			}
		}
		entries = visible
	}
	h.Success(c, entries)
}
