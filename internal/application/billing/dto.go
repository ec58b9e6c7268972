package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/saas/backoffice/internal/domain/billing"
	"github.com/saas/backoffice/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ListFilter is the paging and filter input shared by the list operations
type ListFilter struct {
	Page       int
	PageSize   int
	SortBy     string
	SortDir    string
	Keyword    string
	Status     string
	ProviderID *uuid.UUID
}

// ToSharedFilter converts ListFilter to shared.Filter
func (f ListFilter) ToSharedFilter() shared.Filter {
	filter := shared.Filter{
		Page:     f.Page,
		PageSize: f.PageSize,
		OrderBy:  f.SortBy,
		OrderDir: f.SortDir,
		Search:   f.Keyword,
		Filters:  make(map[string]any),
	}.Normalize()
	if f.Status != "" {
		filter.Filters["status"] = f.Status
	}
	if f.ProviderID != nil {
		filter.Filters["provider_id"] = *f.ProviderID
	}
	return filter
}

// ---------------------------------------------------------------------------
// Plans
// ---------------------------------------------------------------------------

// PlanLimitsDTO mirrors billing.PlanLimits
type PlanLimitsDTO struct {
	MaxCustomers int `json:"max_customers"`
	MaxInvoices  int `json:"max_invoices"`
	MaxBudgets   int `json:"max_budgets"`
	MaxProducts  int `json:"max_products"`
	MaxServices  int `json:"max_services"`
	StorageMB    int `json:"storage_mb"`
}

func (l PlanLimitsDTO) toDomain() billing.PlanLimits {
	return billing.PlanLimits(l)
}

// PlanInput contains the editable attributes of a plan
type PlanInput struct {
	Name         string
	Description  string
	Price        decimal.Decimal
	BillingCycle string
	TrialDays    int
	Limits       PlanLimitsDTO
	Features     []string
	SortOrder    int
	IsFeatured   bool
	Status       string // create only; empty means active
}

func (in PlanInput) toDetails() billing.PlanDetails {
	return billing.PlanDetails{
		Name:         in.Name,
		Description:  in.Description,
		Price:        in.Price,
		BillingCycle: billing.BillingCycle(in.BillingCycle),
		TrialDays:    in.TrialDays,
		Limits:       in.Limits.toDomain(),
		Features:     in.Features,
		SortOrder:    in.SortOrder,
		IsFeatured:   in.IsFeatured,
	}
}

// PlanDTO represents a catalog plan
type PlanDTO struct {
	ID           uuid.UUID       `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	Price        decimal.Decimal `json:"price"`
	MonthlyPrice decimal.Decimal `json:"monthly_price"`
	BillingCycle string          `json:"billing_cycle"`
	TrialDays    int             `json:"trial_days"`
	Limits       PlanLimitsDTO   `json:"limits"`
	Features     []string        `json:"features"`
	Status       string          `json:"status"`
	SortOrder    int             `json:"sort_order"`
	IsFeatured   bool            `json:"is_featured"`
	Version      int             `json:"version"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// ToPlanDTO converts a plan to its DTO
func ToPlanDTO(p *billing.Plan) *PlanDTO {
	features := p.Features
	if features == nil {
		features = []string{}
	}
	return &PlanDTO{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		Price:        p.Price,
		MonthlyPrice: p.MonthlyPrice().Round(2),
		BillingCycle: string(p.BillingCycle),
		TrialDays:    p.TrialDays,
		Limits:       PlanLimitsDTO(p.Limits),
		Features:     features,
		Status:       string(p.Status),
		SortOrder:    p.SortOrder,
		IsFeatured:   p.IsFeatured,
		Version:      p.Version,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

// PlanListResult represents a paginated plan list
type PlanListResult struct {
	Plans      []PlanDTO `json:"plans"`
	Total      int64     `json:"total"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
	TotalPages int       `json:"total_pages"`
}

// ---------------------------------------------------------------------------
// Subscriptions
// ---------------------------------------------------------------------------

// CreateSubscriptionInput opens the first subscription of a tenant.
// A nil Amount charges the plan price.
type CreateSubscriptionInput struct {
	ProviderID    uuid.UUID
	PlanID        uuid.UUID
	Amount        *decimal.Decimal
	BillingCycle  string
	PaymentMethod string
}

// ChangePlanInput moves the tenant's current subscription to another plan.
// A nil Amount charges the new plan price.
type ChangePlanInput struct {
	PlanID uuid.UUID
	Amount *decimal.Decimal
}

// SubscriptionDTO represents a ledger row
type SubscriptionDTO struct {
	ID                 uuid.UUID        `json:"id"`
	TenantID           uuid.UUID        `json:"tenant_id"`
	ProviderID         uuid.UUID        `json:"provider_id"`
	PlanID             uuid.UUID        `json:"plan_id"`
	Status             string           `json:"status"`
	Classification     string           `json:"classification"`
	PreviousPlanID     *uuid.UUID       `json:"previous_plan_id,omitempty"`
	PreviousAmount     *decimal.Decimal `json:"previous_amount,omitempty"`
	Amount             decimal.Decimal  `json:"amount"`
	BillingCycle       string           `json:"billing_cycle"`
	StartDate          time.Time        `json:"start_date"`
	EndDate            *time.Time       `json:"end_date,omitempty"`
	TrialEndsAt        *time.Time       `json:"trial_ends_at,omitempty"`
	PaymentMethod      string           `json:"payment_method,omitempty"`
	LastPaymentAt      *time.Time       `json:"last_payment_at,omitempty"`
	NextPaymentAt      *time.Time       `json:"next_payment_at,omitempty"`
	CancelledAt        *time.Time       `json:"cancelled_at,omitempty"`
	CancellationReason string           `json:"cancellation_reason,omitempty"`
	Version            int              `json:"version"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// ToSubscriptionDTO converts a subscription to its DTO
func ToSubscriptionDTO(s *billing.Subscription) *SubscriptionDTO {
	return &SubscriptionDTO{
		ID:                 s.ID,
		TenantID:           s.TenantID,
		ProviderID:         s.ProviderID,
		PlanID:             s.PlanID,
		Status:             string(s.Status),
		Classification:     string(s.Classification()),
		PreviousPlanID:     s.PreviousPlanID,
		PreviousAmount:     s.PreviousAmount,
		Amount:             s.Amount,
		BillingCycle:       string(s.BillingCycle),
		StartDate:          s.StartDate,
		EndDate:            s.EndDate,
		TrialEndsAt:        s.TrialEndsAt,
		PaymentMethod:      s.PaymentMethod,
		LastPaymentAt:      s.LastPaymentAt,
		NextPaymentAt:      s.NextPaymentAt,
		CancelledAt:        s.CancelledAt,
		CancellationReason: s.CancellationReason,
		Version:            s.Version,
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
	}
}

// PlanChangeResult is the outcome of an upgrade or downgrade
type PlanChangeResult struct {
	Previous       *SubscriptionDTO `json:"previous"`
	Subscription   *SubscriptionDTO `json:"subscription"`
	Classification string           `json:"classification"`
}

// SubscriptionListResult represents a paginated subscription list
type SubscriptionListResult struct {
	Subscriptions []SubscriptionDTO `json:"subscriptions"`
	Total         int64             `json:"total"`
	Page          int               `json:"page"`
	PageSize      int               `json:"page_size"`
	TotalPages    int               `json:"total_pages"`
}

// ---------------------------------------------------------------------------
// Invoices
// ---------------------------------------------------------------------------

// CreateInvoiceInput raises a pending invoice
type CreateInvoiceInput struct {
	CustomerID uuid.UUID
	ProviderID *uuid.UUID
	Number     string
	Amount     decimal.Decimal
	DueDate    time.Time
}

// InvoiceDTO represents an invoice
type InvoiceDTO struct {
	ID         uuid.UUID       `json:"id"`
	TenantID   uuid.UUID       `json:"tenant_id"`
	CustomerID uuid.UUID       `json:"customer_id"`
	ProviderID *uuid.UUID      `json:"provider_id,omitempty"`
	Number     string          `json:"number"`
	Status     string          `json:"status"`
	Amount     decimal.Decimal `json:"amount"`
	DueDate    time.Time       `json:"due_date"`
	PaidAt     *time.Time      `json:"paid_at,omitempty"`
	Version    int             `json:"version"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// ToInvoiceDTO converts an invoice to its DTO
func ToInvoiceDTO(i *billing.Invoice) *InvoiceDTO {
	return &InvoiceDTO{
		ID:         i.ID,
		TenantID:   i.TenantID,
		CustomerID: i.CustomerID,
		ProviderID: i.ProviderID,
		Number:     i.Number,
		Status:     string(i.Status),
		Amount:     i.Amount,
		DueDate:    i.DueDate,
		PaidAt:     i.PaidAt,
		Version:    i.Version,
		CreatedAt:  i.CreatedAt,
		UpdatedAt:  i.UpdatedAt,
	}
}

// InvoiceListResult represents a paginated invoice list
type InvoiceListResult struct {
	Invoices   []InvoiceDTO `json:"invoices"`
	Total      int64        `json:"total"`
	Page       int          `json:"page"`
	PageSize   int          `json:"page_size"`
	TotalPages int          `json:"total_pages"`
}

func totalPages(total int64, pageSize int) int {
	return shared.NewPaginated[struct{}](nil, total, 1, pageSize).TotalPages
}
