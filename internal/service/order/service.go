package order

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/agency-ledger/internal/domain"
	"github.com/josh-kwaku/agency-ledger/internal/logging"
	"github.com/josh-kwaku/agency-ledger/internal/service/refund"
)

type orderRepo interface {
	Create(ctx context.Context, tx *sql.Tx, o *domain.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Order, error)
	MarkCancelled(ctx context.Context, tx *sql.Tx, id uuid.UUID, at time.Time) error
}

type seatTracker interface {
	Reserve(ctx context.Context, tx *sql.Tx, sessionID uuid.UUID, partySize int) (int, error)
	Release(ctx context.Context, tx *sql.Tx, sessionID uuid.UUID, partySize int) (int, error)
}

type invoiceCanceller interface {
	CancelOpenLocked(ctx context.Context, tx *sql.Tx, orderID uuid.UUID) (*domain.Invoice, error)
}

type refunder interface {
	Refundable(ctx context.Context, tx *sql.Tx, orderID uuid.UUID) (decimal.Decimal, error)
	CreateLocked(ctx context.Context, tx *sql.Tx, req refund.LockedRequest) (*domain.RefundVoucher, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// Service is the small slice of order management the ledger needs: creating
// an order against a session's capacity and cancelling it with every money
// and seat effect reversed.
type Service struct {
	orders   orderRepo
	seats    seatTracker
	invoices invoiceCanceller
	refunds  refunder
	db       txRunner
}

func NewService(orders orderRepo, seats seatTracker, invoices invoiceCanceller, refunds refunder, db txRunner) *Service {
	return &Service{
		orders:   orders,
		seats:    seats,
		invoices: invoices,
		refunds:  refunds,
		db:       db,
	}
}

type CreateRequest struct {
	ClientID        uuid.UUID
	ArticleID       uuid.UUID
	ArticleType     *string
	SessionID       *uuid.UUID
	PartySize       int
	Price           decimal.Decimal
	Reductions      decimal.Decimal
	OtherReductions decimal.Decimal
	Taxes           decimal.Decimal
}

func (r CreateRequest) validate() error {
	if r.PartySize < 1 {
		return domain.ErrInvalidPartySize
	}
	if r.Price.IsNegative() || !r.Price.Equal(domain.Quantize(r.Price)) {
		return domain.ErrInvalidPrice
	}
	parts := []struct {
		field string
		v     decimal.Decimal
	}{
		{"reductions", r.Reductions},
		{"other_reductions", r.OtherReductions},
		{"taxes", r.Taxes},
	}
	for _, p := range parts {
		if p.v.IsNegative() || !p.v.Equal(domain.Quantize(p.v)) {
			return &domain.ValidationError{Field: p.field, Message: "must be a non-negative amount with at most 2 decimal places"}
		}
	}
	return nil
}

// Create inserts an order. When it books a session, the seats are checked
// and the order inserted under the same session lock.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*domain.Order, error) {
	if err := req.validate(); err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}

	now := time.Now().UTC()
	o := &domain.Order{
		ID:              uuid.New(),
		ClientID:        req.ClientID,
		ArticleID:       req.ArticleID,
		ArticleType:     normalize(req.ArticleType),
		SessionID:       req.SessionID,
		PartySize:       req.PartySize,
		Price:           req.Price,
		Reductions:      req.Reductions,
		OtherReductions: req.OtherReductions,
		Taxes:           req.Taxes,
		Status:          domain.OrderStatusActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	remaining := -1
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if o.SessionID != nil {
			left, err := s.seats.Reserve(ctx, tx, *o.SessionID, o.PartySize)
			if err != nil {
				return err
			}
			remaining = left
		}
		return s.orders.Create(ctx, tx, o)
	})
	if err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}

	log := logging.FromContext(ctx).With("order_id", o.ID, "client_id", o.ClientID)
	if o.SessionID != nil {
		log.Info("order created", "session_id", *o.SessionID, "party_size", o.PartySize, "remaining_seats", remaining)
	} else {
		log.Info("order created")
	}
	return o, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return o, nil
}

type CancelResult struct {
	Order          domain.Order
	Invoice        *domain.Invoice
	Refund         *domain.RefundVoucher
	RemainingSeats *int
}

// Cancel reverses an order in one transaction: the open invoice is cancelled,
// seats go back to the session and whatever the client paid net of refunds is
// refunded. Locks are taken order, invoice, session, then counter, which is
// why the refund comes last.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, actorID *uuid.UUID) (*CancelResult, error) {
	var res CancelResult
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		res = CancelResult{}

		o, err := s.orders.GetForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if o.IsCancelled() {
			return domain.ErrOrderCancelled
		}

		res.Invoice, err = s.invoices.CancelOpenLocked(ctx, tx, o.ID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if err := s.orders.MarkCancelled(ctx, tx, o.ID, now); err != nil {
			return err
		}
		o.Status = domain.OrderStatusCancelled
		o.CancelledAt = &now
		o.UpdatedAt = now

		if o.SessionID != nil {
			left, err := s.seats.Release(ctx, tx, *o.SessionID, o.PartySize)
			if err != nil {
				return err
			}
			res.RemainingSeats = &left
		}

		net, err := s.refunds.Refundable(ctx, tx, o.ID)
		if err != nil {
			return err
		}
		if net.IsPositive() {
			reason := "Order cancelled"
			res.Refund, err = s.refunds.CreateLocked(ctx, tx, refund.LockedRequest{
				Order:   o,
				Amount:  net,
				Reason:  &reason,
				ActorID: actorID,
			})
			if err != nil {
				return err
			}
		}

		res.Order = *o
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("Cancel: %w", err)
	}

	attrs := []any{"order_id", id}
	if res.Refund != nil {
		attrs = append(attrs, "refund_id", res.Refund.ID, "refunded", res.Refund.Amount.StringFixed(domain.MoneyScale))
	}
	if res.Invoice != nil {
		attrs = append(attrs, "invoice_id", res.Invoice.ID)
	}
	logging.FromContext(ctx).Info("order cancelled", attrs...)
	return &res, nil
}

func normalize(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
