package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const DefaultCurrency = "DZD"

type CashRegister struct {
	ID             uuid.UUID
	Name           string
	OpeningBalance decimal.Decimal
	Currency       string
	IsPrimary      bool
	ArticleType    *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type TransactionType string

const (
	TransactionTypeCredit TransactionType = "credit"
	TransactionTypeDebit  TransactionType = "debit"
)

func (t TransactionType) IsValid() bool {
	return t == TransactionTypeCredit || t == TransactionTypeDebit
}

type ReferenceType string

const (
	ReferenceTypeInvoice        ReferenceType = "invoice"
	ReferenceTypePaymentVoucher ReferenceType = "payment_voucher"
	ReferenceTypeRefundVoucher  ReferenceType = "refund_voucher"
)

// CashTransaction is one append-only movement on a register.
type CashTransaction struct {
	ID            uuid.UUID
	RegisterID    uuid.UUID
	Type          TransactionType
	Amount        decimal.Decimal
	ReferenceType ReferenceType
	ReferenceID   uuid.UUID
	Description   string
	ActorID       *uuid.UUID
	OccurredAt    time.Time
	CreatedAt     time.Time
}

// TransactionFilter narrows a transaction listing. From and To are calendar
// days in UTC and both are inclusive.
type TransactionFilter struct {
	RegisterID *uuid.UUID
	Type       *TransactionType
	From       *time.Time
	To         *time.Time
}
