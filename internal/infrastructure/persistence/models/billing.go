package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/saas/backoffice/internal/domain/billing"
	"github.com/shopspring/decimal"
)

// PlanModel is the persistence model for the Plan aggregate.
// Plans are shared by every tenant, so the table carries no tenant_id.
type PlanModel struct {
	AggregateModel
	Name         string               `gorm:"type:varchar(100);not null;uniqueIndex"`
	Description  string               `gorm:"type:text"`
	Price        decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	BillingCycle billing.BillingCycle `gorm:"type:varchar(20);not null;default:'monthly'"`
	TrialDays    int                  `gorm:"not null;default:0"`
	MaxCustomers int                  `gorm:"not null;default:0"`
	MaxInvoices  int                  `gorm:"not null;default:0"`
	MaxBudgets   int                  `gorm:"not null;default:0"`
	MaxProducts  int                  `gorm:"not null;default:0"`
	MaxServices  int                  `gorm:"not null;default:0"`
	StorageMB    int                  `gorm:"column:storage_mb;not null;default:0"`
	Features     string               `gorm:"type:text;not null;default:'[]'"`
	Status       billing.PlanStatus   `gorm:"type:varchar(20);not null;default:'draft';index"`
	SortOrder    int                  `gorm:"not null;default:0"`
	IsFeatured   bool                 `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (PlanModel) TableName() string {
	return "plans"
}

// ToDomain converts the persistence model to a domain Plan.
// A malformed features column yields an empty feature set.
func (m *PlanModel) ToDomain() *billing.Plan {
	var features []string
	if m.Features != "" {
		_ = json.Unmarshal([]byte(m.Features), &features)
	}
	if features == nil {
		features = []string{}
	}
	p := &billing.Plan{
		Name:         m.Name,
		Description:  m.Description,
		Price:        m.Price,
		BillingCycle: m.BillingCycle,
		TrialDays:    m.TrialDays,
		Limits: billing.PlanLimits{
			MaxCustomers: m.MaxCustomers,
			MaxInvoices:  m.MaxInvoices,
			MaxBudgets:   m.MaxBudgets,
			MaxProducts:  m.MaxProducts,
			MaxServices:  m.MaxServices,
			StorageMB:    m.StorageMB,
		},
		Features:   features,
		Status:     m.Status,
		SortOrder:  m.SortOrder,
		IsFeatured: m.IsFeatured,
	}
	m.PopulateAggregateRoot(&p.BaseAggregateRoot)
	return p
}

// FromDomain populates the persistence model from a domain Plan.
func (m *PlanModel) FromDomain(p *billing.Plan) {
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	m.Name = p.Name
	m.Description = p.Description
	m.Price = p.Price
	m.BillingCycle = p.BillingCycle
	m.TrialDays = p.TrialDays
	m.MaxCustomers = p.Limits.MaxCustomers
	m.MaxInvoices = p.Limits.MaxInvoices
	m.MaxBudgets = p.Limits.MaxBudgets
	m.MaxProducts = p.Limits.MaxProducts
	m.MaxServices = p.Limits.MaxServices
	m.StorageMB = p.Limits.StorageMB
	m.Features = "[]"
	if len(p.Features) > 0 {
		if raw, err := json.Marshal(p.Features); err == nil {
			m.Features = string(raw)
		}
	}
	m.Status = p.Status
	m.SortOrder = p.SortOrder
	m.IsFeatured = p.IsFeatured
}

// PlanModelFromDomain creates a new persistence model from a domain Plan.
func PlanModelFromDomain(p *billing.Plan) *PlanModel {
	m := &PlanModel{}
	m.FromDomain(p)
	return m
}

// SubscriptionModel is the persistence model for a plan subscription.
// The partial unique index ux_plan_subscriptions_current is created by the
// migrations, since it cannot be expressed portably in struct tags.
type SubscriptionModel struct {
	TenantAggregateModel
	ProviderID         uuid.UUID                  `gorm:"type:uuid;not null;index"`
	PlanID             uuid.UUID                  `gorm:"type:uuid;not null;index"`
	Status             billing.SubscriptionStatus `gorm:"type:varchar(20);not null;index"`
	PreviousPlanID     *uuid.UUID                 `gorm:"type:uuid"`
	PreviousAmount     decimal.NullDecimal        `gorm:"type:decimal(18,4)"`
	Amount             decimal.Decimal            `gorm:"type:decimal(18,4);not null;default:0"`
	BillingCycle       billing.BillingCycle       `gorm:"type:varchar(20);not null"`
	StartDate          time.Time                  `gorm:"not null"`
	EndDate            *time.Time                 `gorm:"index"`
	TrialEndsAt        *time.Time
	PaymentMethod      string `gorm:"type:varchar(50)"`
	PaymentGatewayID   string `gorm:"type:varchar(255)"`
	LastPaymentAt      *time.Time
	NextPaymentAt      *time.Time
	CancelledAt        *time.Time
	CancellationReason string `gorm:"type:varchar(255)"`
}

// TableName returns the table name for GORM
func (SubscriptionModel) TableName() string {
	return "plan_subscriptions"
}

// ToDomain converts the persistence model to a domain Subscription.
func (m *SubscriptionModel) ToDomain() *billing.Subscription {
	s := &billing.Subscription{
		ProviderID:         m.ProviderID,
		PlanID:             m.PlanID,
		Status:             m.Status,
		PreviousPlanID:     m.PreviousPlanID,
		Amount:             m.Amount,
		BillingCycle:       m.BillingCycle,
		StartDate:          m.StartDate.UTC(),
		EndDate:            utcPtr(m.EndDate),
		TrialEndsAt:        utcPtr(m.TrialEndsAt),
		PaymentMethod:      m.PaymentMethod,
		PaymentGatewayID:   m.PaymentGatewayID,
		LastPaymentAt:      utcPtr(m.LastPaymentAt),
		NextPaymentAt:      utcPtr(m.NextPaymentAt),
		CancelledAt:        utcPtr(m.CancelledAt),
		CancellationReason: m.CancellationReason,
	}
	if m.PreviousAmount.Valid {
		prev := m.PreviousAmount.Decimal
		s.PreviousAmount = &prev
	}
	m.PopulateTenantAggregateRoot(&s.TenantAggregateRoot)
	return s
}

// FromDomain populates the persistence model from a domain Subscription.
func (m *SubscriptionModel) FromDomain(s *billing.Subscription) {
	m.FromDomainTenantAggregateRoot(s.TenantAggregateRoot)
	m.ProviderID = s.ProviderID
	m.PlanID = s.PlanID
	m.Status = s.Status
	m.PreviousPlanID = s.PreviousPlanID
	m.PreviousAmount = decimal.NullDecimal{}
	if s.PreviousAmount != nil {
		m.PreviousAmount = decimal.NewNullDecimal(*s.PreviousAmount)
	}
	m.Amount = s.Amount
	m.BillingCycle = s.BillingCycle
	m.StartDate = s.StartDate
	m.EndDate = s.EndDate
	m.TrialEndsAt = s.TrialEndsAt
	m.PaymentMethod = s.PaymentMethod
	m.PaymentGatewayID = s.PaymentGatewayID
	m.LastPaymentAt = s.LastPaymentAt
	m.NextPaymentAt = s.NextPaymentAt
	m.CancelledAt = s.CancelledAt
	m.CancellationReason = s.CancellationReason
}

// SubscriptionModelFromDomain creates a new persistence model from a domain Subscription.
func SubscriptionModelFromDomain(s *billing.Subscription) *SubscriptionModel {
	m := &SubscriptionModel{}
	m.FromDomain(s)
	return m
}

// InvoiceModel is the persistence model for the Invoice aggregate.
type InvoiceModel struct {
	TenantAggregateModel
	CustomerID uuid.UUID             `gorm:"type:uuid;not null;index"`
	ProviderID *uuid.UUID            `gorm:"type:uuid;index"`
	Number     string                `gorm:"type:varchar(50);not null"`
	Status     billing.InvoiceStatus `gorm:"type:varchar(20);not null;index"`
	Amount     decimal.Decimal       `gorm:"type:decimal(18,4);not null;default:0"`
	DueDate    time.Time             `gorm:"not null"`
	PaidAt     *time.Time
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice.
func (m *InvoiceModel) ToDomain() *billing.Invoice {
	inv := &billing.Invoice{
		CustomerID: m.CustomerID,
		ProviderID: m.ProviderID,
		Number:     m.Number,
		Status:     m.Status,
		Amount:     m.Amount,
		DueDate:    m.DueDate.UTC(),
		PaidAt:     utcPtr(m.PaidAt),
	}
	m.PopulateTenantAggregateRoot(&inv.TenantAggregateRoot)
	return inv
}

// FromDomain populates the persistence model from a domain Invoice.
func (m *InvoiceModel) FromDomain(inv *billing.Invoice) {
	m.FromDomainTenantAggregateRoot(inv.TenantAggregateRoot)
	m.CustomerID = inv.CustomerID
	m.ProviderID = inv.ProviderID
	m.Number = inv.Number
	m.Status = inv.Status
	m.Amount = inv.Amount
	m.DueDate = inv.DueDate
	m.PaidAt = inv.PaidAt
}

// InvoiceModelFromDomain creates a new persistence model from a domain Invoice.
func InvoiceModelFromDomain(inv *billing.Invoice) *InvoiceModel {
	m := &InvoiceModel{}
	m.FromDomain(inv)
	return m
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
