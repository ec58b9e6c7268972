package billing

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/saas/backoffice/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// InvoiceStatus is the collection state of an invoice
type InvoiceStatus string

const (
	InvoiceStatusPending   InvoiceStatus = "pending"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusOverdue   InvoiceStatus = "overdue"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

var invoiceTransitions = map[InvoiceStatus][]InvoiceStatus{
	InvoiceStatusPending:   {InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusCancelled},
	InvoiceStatusOverdue:   {InvoiceStatusPaid, InvoiceStatusCancelled},
	InvoiceStatusPaid:      nil,
	InvoiceStatusCancelled: nil,
}

// IsValid returns true if the status is known
func (s InvoiceStatus) IsValid() bool {
	_, ok := invoiceTransitions[s]
	return ok
}

// CanTransitionTo reports whether the invoice may move to next
func (s InvoiceStatus) CanTransitionTo(next InvoiceStatus) bool {
	for _, allowed := range invoiceTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsOutstanding reports whether the invoice still waits for payment
func (s InvoiceStatus) IsOutstanding() bool {
	return s == InvoiceStatusPending || s == InvoiceStatusOverdue
}

// Invoice is a charge raised by a tenant to one of its customers.
// Paid invoices are the source of realized revenue.
type Invoice struct {
	shared.TenantAggregateRoot
	CustomerID uuid.UUID
	ProviderID *uuid.UUID
	Number     string
	Status     InvoiceStatus
	Amount     decimal.Decimal
	DueDate    time.Time
	PaidAt     *time.Time
}

// NewInvoice creates a pending invoice
func NewInvoice(tenantID, customerID uuid.UUID, providerID *uuid.UUID, number string, amount decimal.Decimal, dueDate time.Time) (*Invoice, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewValidationError("invoice requires a tenant")
	}
	if customerID == uuid.Nil {
		return nil, shared.NewValidationError("invoice requires a customer")
	}
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, shared.NewValidationError("invoice number cannot be empty")
	}
	if len(number) > 50 {
		return nil, shared.NewValidationError("invoice number cannot exceed 50 characters")
	}
	if !amount.IsPositive() {
		return nil, shared.NewValidationError("invoice amount must be positive")
	}
	if dueDate.IsZero() {
		return nil, shared.NewValidationError("invoice due date is required")
	}

	inv := &Invoice{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		CustomerID:          customerID,
		ProviderID:          providerID,
		Number:              strings.ToUpper(number),
		Status:              InvoiceStatusPending,
		Amount:              amount,
		DueDate:             dueDate.UTC(),
	}
	inv.AddDomainEvent(NewInvoiceStatusChangedEvent(inv, "", InvoiceStatusPending))
	return inv, nil
}

// MarkPaid settles the invoice
func (i *Invoice) MarkPaid() error {
	if err := i.moveTo(InvoiceStatusPaid); err != nil {
		return err
	}
	now := shared.Now()
	i.PaidAt = &now
	return nil
}

// MarkOverdue flags an unpaid invoice past its due date
func (i *Invoice) MarkOverdue() error {
	return i.moveTo(InvoiceStatusOverdue)
}

// Cancel voids the invoice
func (i *Invoice) Cancel() error {
	return i.moveTo(InvoiceStatusCancelled)
}

func (i *Invoice) moveTo(to InvoiceStatus) error {
	if !i.Status.CanTransitionTo(to) {
		return shared.NewInvalidStateTransitionError("invoice", string(i.Status), string(to))
	}
	from := i.Status
	i.Status = to
	i.MarkModified()
	i.AddDomainEvent(NewInvoiceStatusChangedEvent(i, from, to))
	return nil
}

// IsPastDue reports an outstanding invoice whose due date is before asOf
func (i *Invoice) IsPastDue(asOf time.Time) bool {
	return i.Status.IsOutstanding() && i.DueDate.Before(asOf)
}
