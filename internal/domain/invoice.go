package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type InvoiceStatus string

const (
	InvoiceStatusPending   InvoiceStatus = "pending"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusUnpaid    InvoiceStatus = "unpaid"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

type Invoice struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	Number      string
	IssueDate   time.Time
	DueDate     *time.Time
	AmountHT    decimal.Decimal
	AmountTax   decimal.Decimal
	AmountTTC   decimal.Decimal
	Status      InvoiceStatus
	Notes       *string
	ActorID     *uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CancelledAt *time.Time
}

func (i *Invoice) IsCancelled() bool {
	return i.Status == InvoiceStatusCancelled
}

// StatusFor derives the status the invoice should carry given the amount
// paid so far. Cancellation is sticky.
func (i *Invoice) StatusFor(paid decimal.Decimal, today time.Time) InvoiceStatus {
	if i.IsCancelled() {
		return InvoiceStatusCancelled
	}
	if IsSettled(i.AmountTTC.Sub(paid)) {
		return InvoiceStatusPaid
	}
	if i.DueDate != nil && i.DueDate.Before(DateOf(today)) {
		return InvoiceStatusUnpaid
	}
	return InvoiceStatusPending
}

// Amounts is the priced breakdown of an order.
type Amounts struct {
	HT  decimal.Decimal
	Tax decimal.Decimal
	TTC decimal.Decimal
}

// DateOf truncates t to midnight UTC, the representation used for DATE columns.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
