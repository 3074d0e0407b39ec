package handler

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/agency-ledger/internal/domain"
	"github.com/josh-kwaku/agency-ledger/internal/repository"
	"github.com/josh-kwaku/agency-ledger/internal/service/capacity"
)

func money(d decimal.Decimal) string {
	return d.StringFixed(domain.MoneyScale)
}

func dateString(t time.Time) string {
	return t.Format(dateLayout)
}

type invoiceDTO struct {
	ID              uuid.UUID  `json:"id"`
	OrderID         uuid.UUID  `json:"order_id"`
	Number          string     `json:"number"`
	IssueDate       string     `json:"issue_date"`
	DueDate         *string    `json:"due_date"`
	AmountHT        string     `json:"amount_ht"`
	AmountTax       string     `json:"amount_tax"`
	AmountTTC       string     `json:"amount_ttc"`
	PaidAmount      *string    `json:"paid_amount,omitempty"`
	RemainingAmount *string    `json:"remaining_amount,omitempty"`
	Status          string     `json:"status"`
	Notes           *string    `json:"notes,omitempty"`
	ActorID         *uuid.UUID `json:"actor_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	CancelledAt     *time.Time `json:"cancelled_at,omitempty"`
}

// toInvoiceDTO leaves the totals out; use withTotals where they were computed.
func toInvoiceDTO(inv domain.Invoice) invoiceDTO {
	dto := invoiceDTO{
		ID:              inv.ID,
		OrderID:         inv.OrderID,
		Number:          inv.Number,
		IssueDate:       dateString(inv.IssueDate),
		AmountHT:        money(inv.AmountHT),
		AmountTax:       money(inv.AmountTax),
		AmountTTC:       money(inv.AmountTTC),
		Status:          string(inv.Status),
		Notes:           inv.Notes,
		ActorID:         inv.ActorID,
		CreatedAt:       inv.CreatedAt,
		CancelledAt:     inv.CancelledAt,
	}
	if inv.DueDate != nil {
		d := dateString(*inv.DueDate)
		dto.DueDate = &d
	}
	return dto
}

func (d invoiceDTO) withTotals(paid, remaining decimal.Decimal) invoiceDTO {
	p, r := money(paid), money(remaining)
	d.PaidAmount, d.RemainingAmount = &p, &r
	return d
}

type paymentVoucherDTO struct {
	ID         uuid.UUID  `json:"id"`
	Number     string     `json:"number"`
	OrderID    uuid.UUID  `json:"order_id"`
	InvoiceID  *uuid.UUID `json:"invoice_id"`
	ClientID   uuid.UUID  `json:"client_id"`
	RegisterID uuid.UUID  `json:"register_id"`
	Date       string     `json:"date"`
	Amount     string     `json:"amount"`
	Mode       string     `json:"mode"`
	State      string     `json:"state"`
	ActorID    *uuid.UUID `json:"actor_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	VoidedAt   *time.Time `json:"voided_at,omitempty"`
}

func toPaymentVoucherDTO(v *domain.PaymentVoucher) paymentVoucherDTO {
	return paymentVoucherDTO{
		ID:         v.ID,
		Number:     v.Number,
		OrderID:    v.OrderID,
		InvoiceID:  v.InvoiceID,
		ClientID:   v.ClientID,
		RegisterID: v.RegisterID,
		Date:       dateString(v.Date),
		Amount:     money(v.Amount),
		Mode:       string(v.Mode),
		State:      string(v.State),
		ActorID:    v.ActorID,
		CreatedAt:  v.CreatedAt,
		VoidedAt:   v.VoidedAt,
	}
}

type refundVoucherDTO struct {
	ID         uuid.UUID  `json:"id"`
	Number     string     `json:"number"`
	OrderID    uuid.UUID  `json:"order_id"`
	ClientID   uuid.UUID  `json:"client_id"`
	RegisterID uuid.UUID  `json:"register_id"`
	Date       string     `json:"date"`
	Amount     string     `json:"amount"`
	Reason     *string    `json:"reason,omitempty"`
	ActorID    *uuid.UUID `json:"actor_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func toRefundVoucherDTO(v *domain.RefundVoucher) refundVoucherDTO {
	return refundVoucherDTO{
		ID:         v.ID,
		Number:     v.Number,
		OrderID:    v.OrderID,
		ClientID:   v.ClientID,
		RegisterID: v.RegisterID,
		Date:       dateString(v.Date),
		Amount:     money(v.Amount),
		Reason:     v.Reason,
		ActorID:    v.ActorID,
		CreatedAt:  v.CreatedAt,
	}
}

type cashTransactionDTO struct {
	ID            uuid.UUID  `json:"id"`
	RegisterID    uuid.UUID  `json:"register_id"`
	Type          string     `json:"type"`
	Amount        string     `json:"amount"`
	ReferenceType string     `json:"reference_type"`
	ReferenceID   uuid.UUID  `json:"reference_id"`
	Description   string     `json:"description"`
	ActorID       *uuid.UUID `json:"actor_id,omitempty"`
	OccurredAt    time.Time  `json:"occurred_at"`
}

func toCashTransactionDTO(t *domain.CashTransaction) cashTransactionDTO {
	return cashTransactionDTO{
		ID:            t.ID,
		RegisterID:    t.RegisterID,
		Type:          string(t.Type),
		Amount:        money(t.Amount),
		ReferenceType: string(t.ReferenceType),
		ReferenceID:   t.ReferenceID,
		Description:   t.Description,
		ActorID:       t.ActorID,
		OccurredAt:    t.OccurredAt,
	}
}

type cashRegisterDTO struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	OpeningBalance string    `json:"opening_balance"`
	Currency       string    `json:"currency"`
	IsPrimary      bool      `json:"is_primary"`
	ArticleType    *string   `json:"article_type"`
	CreatedAt      time.Time `json:"created_at"`
}

func toCashRegisterDTO(r *domain.CashRegister) cashRegisterDTO {
	return cashRegisterDTO{
		ID:             r.ID,
		Name:           r.Name,
		OpeningBalance: money(r.OpeningBalance),
		Currency:       r.Currency,
		IsPrimary:      r.IsPrimary,
		ArticleType:    r.ArticleType,
		CreatedAt:      r.CreatedAt,
	}
}

type registerBalanceDTO struct {
	Register cashRegisterDTO `json:"register"`
	Credits  string          `json:"credits"`
	Debits   string          `json:"debits"`
	Balance  string          `json:"balance"`
}

func toRegisterBalanceDTO(b *repository.RegisterBalance) registerBalanceDTO {
	return registerBalanceDTO{
		Register: toCashRegisterDTO(&b.Register),
		Credits:  money(b.Credits),
		Debits:   money(b.Debits),
		Balance:  money(b.Balance),
	}
}

type sequenceCounterDTO struct {
	DocumentType  string     `json:"document_type"`
	Prefix        string     `json:"prefix"`
	Format        string     `json:"format"`
	Counter       int64      `json:"counter"`
	ResetInterval string     `json:"reset_interval"`
	LastResetAt   *time.Time `json:"last_reset_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func toSequenceCounterDTO(c *domain.SequenceCounter) sequenceCounterDTO {
	return sequenceCounterDTO{
		DocumentType:  string(c.DocumentType),
		Prefix:        c.Prefix,
		Format:        c.Format,
		Counter:       c.Counter,
		ResetInterval: string(c.ResetInterval),
		LastResetAt:   c.LastResetAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

type sessionDTO struct {
	ID             uuid.UUID `json:"id"`
	ArticleID      uuid.UUID `json:"article_id"`
	Date           string    `json:"date"`
	Capacity       int       `json:"capacity"`
	ReservedSeats  int       `json:"reserved_seats"`
	RemainingSeats int       `json:"remaining_seats"`
}

func toSessionDTO(a *capacity.Availability) sessionDTO {
	return sessionDTO{
		ID:             a.Session.ID,
		ArticleID:      a.Session.ArticleID,
		Date:           dateString(a.Session.Date),
		Capacity:       a.Session.Capacity,
		ReservedSeats:  a.Reserved,
		RemainingSeats: a.Remaining,
	}
}

type orderDTO struct {
	ID              uuid.UUID  `json:"id"`
	ClientID        uuid.UUID  `json:"client_id"`
	ArticleID       uuid.UUID  `json:"article_id"`
	ArticleType     *string    `json:"article_type"`
	SessionID       *uuid.UUID `json:"session_id"`
	PartySize       int        `json:"party_size"`
	Price           string     `json:"price"`
	Reductions      string     `json:"reductions"`
	OtherReductions string     `json:"other_reductions"`
	Taxes           string     `json:"taxes"`
	Status          string     `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	CancelledAt     *time.Time `json:"cancelled_at,omitempty"`
}

func toOrderDTO(o *domain.Order) orderDTO {
	return orderDTO{
		ID:              o.ID,
		ClientID:        o.ClientID,
		ArticleID:       o.ArticleID,
		ArticleType:     o.ArticleType,
		SessionID:       o.SessionID,
		PartySize:       o.PartySize,
		Price:           money(o.Price),
		Reductions:      money(o.Reductions),
		OtherReductions: money(o.OtherReductions),
		Taxes:           money(o.Taxes),
		Status:          string(o.Status),
		CreatedAt:       o.CreatedAt,
		CancelledAt:     o.CancelledAt,
	}
}

func mapSlice[T any, D any](in []T, f func(*T) D) []D {
	out := make([]D, 0, len(in))
	for i := range in {
		out = append(out, f(&in[i]))
	}
	return out
}
