package billing

import (
	"github.com/saas/backoffice/internal/domain/shared"
)

// AggregateTypeInvoice is the aggregate type of invoice events
const AggregateTypeInvoice = "Invoice"

// EventTypeInvoiceStatusChanged is published when an invoice is raised or changes status
const EventTypeInvoiceStatusChanged = "InvoiceStatusChanged"

// InvoiceStatusChangedEvent carries an invoice status change. From is empty on creation.
type InvoiceStatusChangedEvent struct {
	shared.BaseDomainEvent
	Number string        `json:"number"`
	From   InvoiceStatus `json:"from,omitempty"`
	To     InvoiceStatus `json:"to"`
	Amount string        `json:"amount"`
}

// NewInvoiceStatusChangedEvent creates a new InvoiceStatusChangedEvent
func NewInvoiceStatusChangedEvent(i *Invoice, from, to InvoiceStatus) *InvoiceStatusChangedEvent {
	return &InvoiceStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceStatusChanged, AggregateTypeInvoice, i.ID, i.TenantID),
		Number:          i.Number,
		From:            from,
		To:              to,
		Amount:          i.Amount.StringFixed(2),
	}
}
