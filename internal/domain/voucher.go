package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type VoucherState string

const (
	VoucherStateActive VoucherState = "active"
	VoucherStateVoided VoucherState = "voided"
)

type PaymentMode string

const (
	PaymentModeCash   PaymentMode = "cash"
	PaymentModeCheque PaymentMode = "cheque"
)

func (m PaymentMode) IsValid() bool {
	return m == PaymentModeCash || m == PaymentModeCheque
}

// PaymentVoucher records money received against an order. Voiding flips the
// state; the row itself is never removed.
type PaymentVoucher struct {
	ID         uuid.UUID
	Number     string
	OrderID    uuid.UUID
	InvoiceID  *uuid.UUID
	ClientID   uuid.UUID
	RegisterID uuid.UUID
	Date       time.Time
	Amount     decimal.Decimal
	Mode       PaymentMode
	State      VoucherState
	ActorID    *uuid.UUID
	CreatedAt  time.Time
	VoidedAt   *time.Time
}

func (v *PaymentVoucher) IsVoided() bool {
	return v.State == VoucherStateVoided
}

// RefundVoucher records money returned to a client. Refunds are terminal.
type RefundVoucher struct {
	ID         uuid.UUID
	Number     string
	OrderID    uuid.UUID
	ClientID   uuid.UUID
	RegisterID uuid.UUID
	Date       time.Time
	Amount     decimal.Decimal
	Reason     *string
	ActorID    *uuid.UUID
	CreatedAt  time.Time
}
