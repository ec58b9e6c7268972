package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/saas/backoffice/internal/application/billing"
	"github.com/shopspring/decimal"
)

// InvoiceHandler handles invoice HTTP requests
type InvoiceHandler struct {
	BaseHandler
	invoiceService *billing.InvoiceService
}

// NewInvoiceHandler creates a new invoice handler
func NewInvoiceHandler(invoiceService *billing.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoiceService: invoiceService}
}

// CreateInvoiceRequest represents the request body for raising an invoice
type CreateInvoiceRequest struct {
	CustomerID uuid.UUID       `json:"customer_id" binding:"required"`
	ProviderID *uuid.UUID      `json:"provider_id,omitempty"`
	Number     string          `json:"number" binding:"required,max=50"`
	Amount     decimal.Decimal `json:"amount" swaggertype:"string" example:"120.00"`
	DueDate    time.Time       `json:"due_date" binding:"required"`
}

// InvoiceListQuery represents query parameters for listing invoices
type InvoiceListQuery struct {
	Keyword    string `form:"keyword"`
	Status     string `form:"status" binding:"omitempty,oneof=pending paid overdue cancelled"`
	ProviderID string `form:"provider_id" binding:"omitempty,uuid"`
	Page       int    `form:"page" binding:"omitempty,min=1"`
	PageSize   int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	SortBy     string `form:"sort_by" binding:"omitempty,oneof=number amount due_date status created_at"`
	SortDir    string `form:"sort_dir" binding:"omitempty,oneof=asc desc"`
}

// Create godoc
// @Summary      Raise an invoice
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        request body CreateInvoiceRequest true "Invoice"
// @Success      201 {object} dto.Response{data=billing.InvoiceDTO}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /invoices [post]
func (h *InvoiceHandler) Create(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	var req CreateInvoiceRequest
	if !bindJSON(c, &req) {
		return
	}
	invoice, err := h.invoiceService.Create(c.Request.Context(), tenantID, billing.CreateInvoiceInput{
		CustomerID: req.CustomerID,
		ProviderID: req.ProviderID,
		Number:     req.Number,
		Amount:     req.Amount,
		DueDate:    req.DueDate,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, invoice)
}

// List godoc
// @Summary      List invoices
// @Tags         invoices
// @Produce      json
// @Param        keyword query string false "Search by number"
// @Param        status query string false "Invoice status" Enums(pending, paid, overdue, cancelled)
// @Param        provider_id query string false "Provider ID" format(uuid)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20) maximum(100)
// @Param        sort_by query string false "Sort by field" Enums(number, amount, due_date, status, created_at)
// @Param        sort_dir query string false "Sort direction" Enums(asc, desc)
// @Success      200 {object} dto.Response{data=[]billing.InvoiceDTO,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /invoices [get]
func (h *InvoiceHandler) List(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	var query InvoiceListQuery
	if !bindQuery(c, &query) {
		return
	}
	filter := billing.ListFilter{
		Page:     query.Page,
		PageSize: query.PageSize,
		SortBy:   query.SortBy,
		SortDir:  query.SortDir,
		Keyword:  query.Keyword,
		Status:   query.Status,
	}
	if query.ProviderID != "" {
		providerID := uuid.MustParse(query.ProviderID)
		filter.ProviderID = &providerID
	}
	result, err := h.invoiceService.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, result.Invoices, result.Total, result.Page, result.PageSize)
}

// Get godoc
// @Summary      Get an invoice by ID
// @Tags         invoices
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      200 {object} dto.Response{data=billing.InvoiceDTO}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /invoices/{id} [get]
func (h *InvoiceHandler) Get(c *gin.Context) {
	h.withInvoice(c, h.invoiceService.Get)
}

// Pay godoc
// @Summary      Mark an invoice paid
// @Tags         invoices
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      200 {object} dto.Response{data=billing.InvoiceDTO}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /invoices/{id}/pay [post]
func (h *InvoiceHandler) Pay(c *gin.Context) {
	h.withInvoice(c, h.invoiceService.MarkPaid)
}

// Overdue godoc
// @Summary      Mark an invoice overdue
// @Tags         invoices
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      200 {object} dto.Response{data=billing.InvoiceDTO}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /invoices/{id}/overdue [post]
func (h *InvoiceHandler) Overdue(c *gin.Context) {
	h.withInvoice(c, h.invoiceService.MarkOverdue)
}

// Cancel godoc
// @Summary      Cancel an invoice
// @Tags         invoices
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      200 {object} dto.Response{data=billing.InvoiceDTO}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /invoices/{id}/cancel [post]
func (h *InvoiceHandler) Cancel(c *gin.Context) {
	h.withInvoice(c, h.invoiceService.Cancel)
}

type invoiceAction func(ctx context.Context, tenantID, id uuid.UUID) (*billing.InvoiceDTO, error)

func (h *InvoiceHandler) withInvoice(c *gin.Context, action invoiceAction) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "invoice")
	if !ok {
		return
	}
	invoice, err := action(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, invoice)
}
