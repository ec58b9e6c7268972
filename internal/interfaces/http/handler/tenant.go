package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/saas/backoffice/internal/application/identity"
)

// TenantHandler serves the admin-only tenant registry
type TenantHandler struct {
	BaseHandler
	tenantService *identity.TenantService
}

func NewTenantHandler(tenantService *identity.TenantService) *TenantHandler {
	return &TenantHandler{tenantService: tenantService}
}

type CreateTenantRequest struct {
	Code  string `json:"code" binding:"required,min=2,max=50"`
	Name  string `json:"name" binding:"required,min=1,max=200"`
	Trial bool   `json:"trial"`
}

type TenantListQuery struct {
	Keyword  string `form:"keyword"`
	Status   string `form:"status" binding:"omitempty,oneof=active trial suspended"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	SortBy   string `form:"sort_by" binding:"omitempty,oneof=code name status created_at updated_at"`
	SortDir  string `form:"sort_dir" binding:"omitempty,oneof=asc desc"`
}

// Create godoc
// @Summary      Create a new tenant
// @Description  Register a tenant. Trial tenants start in trial status.
// @Tags         tenants
// @Accept       json
// @Produce      json
// @Param        request body CreateTenantRequest true "Tenant creation request"
// @Success      201 {object} dto.Response{data=identity.TenantDTO}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /tenants [post]
func (h *TenantHandler) Create(c *gin.Context) {
	var req CreateTenantRequest
	if !bindJSON(c, &req) {
		return
	}
	tenant, err := h.tenantService.Create(c.Request.Context(), identity.CreateTenantInput{
		Code:  req.Code,
		Name:  req.Name,
		Trial: req.Trial,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, tenant)
}

// GetByID godoc
// @Summary      Get a tenant by ID
// @Tags         tenants
// @Produce      json
// @Param        id path string true "Tenant ID" format(uuid)
// @Success      200 {object} dto.Response{data=identity.TenantDTO}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /tenants/{id} [get]
func (h *TenantHandler) GetByID(c *gin.Context) {
	id, ok := h.pathID(c, "tenant")
	if !ok {
		return
	}
	tenant, err := h.tenantService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, tenant)
}

// List godoc
// @Summary      List tenants
// @Tags         tenants
// @Produce      json
// @Param        keyword query string false "Search keyword"
// @Param        status query string false "Tenant status" Enums(active, trial, suspended)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20) maximum(100)
// @Param        sort_by query string false "Sort by field" Enums(code, name, status, created_at, updated_at)
// @Param        sort_dir query string false "Sort direction" Enums(asc, desc)
// @Success      200 {object} dto.Response{data=[]identity.TenantDTO,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /tenants [get]
func (h *TenantHandler) List(c *gin.Context) {
	var query TenantListQuery
	if !bindQuery(c, &query) {
		return
	}
	result, err := h.tenantService.List(c.Request.Context(), identity.TenantFilter{
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
	h.SuccessWithMeta(c, result.Tenants, result.Total, result.Page, result.PageSize)
}

// Stats godoc
// @Summary      Count tenants per status
// @Tags         tenants
// @Produce      json
// @Success      200 {object} dto.Response{data=identity.TenantStatsDTO}
// @Security     BearerAuth
// @Router       /tenants/stats [get]
func (h *TenantHandler) Stats(c *gin.Context) {
	stats, err := h.tenantService.GetStats(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stats)
}

// Activate godoc
// @Summary      Activate a tenant
// @Tags         tenants
// @Produce      json
// @Param        id path string true "Tenant ID" format(uuid)
// @Success      200 {object} dto.Response{data=identity.TenantDTO}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /tenants/{id}/activate [post]
func (h *TenantHandler) Activate(c *gin.Context) {
	h.changeStatus(c, h.tenantService.Activate)
}

// Suspend godoc
// @Summary      Suspend a tenant
// @Description  A suspended tenant cannot open new subscriptions.
// @Tags         tenants
// @Produce      json
// @Param        id path string true "Tenant ID" format(uuid)
// @Success      200 {object} dto.Response{data=identity.TenantDTO}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /tenants/{id}/suspend [post]
func (h *TenantHandler) Suspend(c *gin.Context) {
	h.changeStatus(c, h.tenantService.Suspend)
}

type tenantStatusChange func(ctx context.Context, id uuid.UUID) (*identity.TenantDTO, error)

func (h *TenantHandler) changeStatus(c *gin.Context, change tenantStatusChange) {
	id, ok := h.pathID(c, "tenant")
	if !ok {
		return
	}
	tenant, err := change(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, tenant)
}
