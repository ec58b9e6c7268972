package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/saas/backoffice/internal/application/partner"
	"github.com/saas/backoffice/internal/domain/shared"
)

// ProviderHandler handles provider HTTP requests
type ProviderHandler struct {
	BaseHandler
	providerService *partner.ProviderService
}

// NewProviderHandler creates a new provider handler
func NewProviderHandler(providerService *partner.ProviderService) *ProviderHandler {
	return &ProviderHandler{providerService: providerService}
}

// Create godoc
// @Summary      Create a provider
// @Description  Register a provider under the caller's tenant. Documents are unique per tenant.
// @Tags         providers
// @Accept       json
// @Produce      json
// @Param        request body partner.CreateProviderRequest true "Provider"
// @Success      201 {object} dto.Response{data=partner.ProviderResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /providers [post]
func (h *ProviderHandler) Create(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	var req partner.CreateProviderRequest
	if !bindJSON(c, &req) {
		return
	}
	provider, err := h.providerService.Create(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, provider)
}

// List godoc
// @Summary      List providers
// @Tags         providers
// @Produce      json
// @Param        search query string false "Search by name, email or document"
// @Param        status query string false "Provider status" Enums(active, inactive, suspended)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20) maximum(100)
// @Param        order_by query string false "Sort by field"
// @Param        order_dir query string false "Sort direction" Enums(asc, desc)
// @Success      200 {object} dto.Response{data=[]partner.ProviderResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /providers [get]
func (h *ProviderHandler) List(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	var filter partner.ProviderListFilter
	if !bindQuery(c, &filter) {
		return
	}
	providers, total, err := h.providerService.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	page := shared.Filter{Page: filter.Page, PageSize: filter.PageSize}.Normalize()
	h.SuccessWithMeta(c, providers, total, page.Page, page.PageSize)
}

// Get godoc
// @Summary      Get a provider by ID
// @Tags         providers
// @Produce      json
// @Param        id path string true "Provider ID" format(uuid)
// @Success      200 {object} dto.Response{data=partner.ProviderResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /providers/{id} [get]
func (h *ProviderHandler) Get(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "provider")
	if !ok {
		return
	}
	provider, err := h.providerService.GetByID(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, provider)
}

// Update godoc
// @Summary      Update a provider
// @Tags         providers
// @Accept       json
// @Produce      json
// @Param        id path string true "Provider ID" format(uuid)
// @Param        request body partner.UpdateProviderRequest true "Provider"
// @Success      200 {object} dto.Response{data=partner.ProviderResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /providers/{id} [put]
func (h *ProviderHandler) Update(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "provider")
	if !ok {
		return
	}
	var req partner.UpdateProviderRequest
	if !bindJSON(c, &req) {
		return
	}
	provider, err := h.providerService.Update(c.Request.Context(), tenantID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, provider)
}

// Deactivate godoc
// @Summary      Deactivate a provider
// @Tags         providers
// @Produce      json
// @Param        id path string true "Provider ID" format(uuid)
// @Success      200 {object} dto.Response{data=partner.ProviderResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /providers/{id}/deactivate [post]
func (h *ProviderHandler) Deactivate(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "provider")
	if !ok {
		return
	}
	provider, err := h.providerService.Deactivate(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, provider)
}
