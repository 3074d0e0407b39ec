package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusActive    OrderStatus = "active"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Order is the purchase of a travel article by a client. Invoices, vouchers
// and seat reservations all hang off it.
type Order struct {
	ID              uuid.UUID
	ClientID        uuid.UUID
	ArticleID       uuid.UUID
	ArticleType     *string
	SessionID       *uuid.UUID
	PartySize       int
	Price           decimal.Decimal
	Reductions      decimal.Decimal
	OtherReductions decimal.Decimal
	Taxes           decimal.Decimal
	Status          OrderStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
	CancelledAt     *time.Time
}

func (o *Order) IsCancelled() bool {
	return o.Status == OrderStatusCancelled
}

type Session struct {
	ID        uuid.UUID
	ArticleID uuid.UUID
	Date      time.Time
	Capacity  int
	CreatedAt time.Time
}
