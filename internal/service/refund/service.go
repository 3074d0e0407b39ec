package refund

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
	"github.com/josh-kwaku/agency-ledger/internal/service/cashregister"
)

type orderRepo interface {
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Order, error)
}

type paymentSums interface {
	SumActiveByOrder(ctx context.Context, tx *sql.Tx, orderID uuid.UUID) (decimal.Decimal, error)
}

type refundRepo interface {
	Create(ctx context.Context, tx *sql.Tx, v *domain.RefundVoucher) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.RefundVoucher, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]domain.RefundVoucher, error)
	SumByOrder(ctx context.Context, tx *sql.Tx, orderID uuid.UUID) (decimal.Decimal, error)
}

type numberer interface {
	Next(ctx context.Context, tx *sql.Tx, docType domain.DocumentType) (string, error)
}

type cashLedger interface {
	Route(ctx context.Context, tx *sql.Tx, articleType *string) (*domain.CashRegister, error)
	RecordDebit(ctx context.Context, tx *sql.Tx, e cashregister.Entry) (*domain.CashTransaction, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// Service is the refund voucher ledger. Refunds draw down what the client has
// paid on an order and are mirrored by a register debit. They cannot be voided.
type Service struct {
	orders   orderRepo
	payments paymentSums
	refunds  refundRepo
	numbers  numberer
	cash     cashLedger
	db       txRunner
}

func NewService(
	orders orderRepo,
	payments paymentSums,
	refunds refundRepo,
	numbers numberer,
	cash cashLedger,
	db txRunner,
) *Service {
	return &Service{
		orders:   orders,
		payments: payments,
		refunds:  refunds,
		numbers:  numbers,
		cash:     cash,
		db:       db,
	}
}

type CreateRequest struct {
	OrderID  uuid.UUID
	ClientID uuid.UUID
	Amount   decimal.Decimal
	Reason   *string
	Date     *time.Time
	ActorID  *uuid.UUID
}

// Create refunds part of what was paid on an order. Refunding a cancelled
// order is allowed; that is how leftover deposits are returned.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*domain.RefundVoucher, error) {
	if err := domain.ValidateAmount(req.Amount); err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}

	var v *domain.RefundVoucher
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		order, err := s.orders.GetForUpdate(ctx, tx, req.OrderID)
		if err != nil {
			return err
		}
		if order.ClientID != req.ClientID {
			return domain.ErrClientMismatch
		}
		v, err = s.CreateLocked(ctx, tx, LockedRequest{
			Order:   order,
			Amount:  req.Amount,
			Reason:  req.Reason,
			Date:    req.Date,
			ActorID: req.ActorID,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}
	return v, nil
}

// LockedRequest is a refund for an order the caller already holds locked.
type LockedRequest struct {
	Order   *domain.Order
	Amount  decimal.Decimal
	Reason  *string
	Date    *time.Time
	ActorID *uuid.UUID
}

// CreateLocked checks the refundable balance under the caller's order lock,
// then issues the voucher and its register debit.
func (s *Service) CreateLocked(ctx context.Context, tx *sql.Tx, req LockedRequest) (*domain.RefundVoucher, error) {
	refundable, err := s.Refundable(ctx, tx, req.Order.ID)
	if err != nil {
		return nil, fmt.Errorf("CreateLocked: %w", err)
	}
	if err := domain.ValidateAmount(req.Amount); err != nil {
		return nil, fmt.Errorf("CreateLocked: %w", err)
	}
	if req.Amount.GreaterThan(refundable) {
		logging.FromContext(ctx).Warn("refund exceeds payments",
			"order_id", req.Order.ID,
			"requested", req.Amount.StringFixed(domain.MoneyScale),
			"refundable", refundable.StringFixed(domain.MoneyScale),
		)
		return nil, fmt.Errorf("CreateLocked: %w", domain.ErrRefundExceedsPayments)
	}

	reg, err := s.cash.Route(ctx, tx, req.Order.ArticleType)
	if err != nil {
		return nil, fmt.Errorf("CreateLocked: %w", err)
	}
	number, err := s.numbers.Next(ctx, tx, domain.DocumentTypeRefundVoucher)
	if err != nil {
		return nil, fmt.Errorf("CreateLocked: %w", err)
	}

	now := time.Now().UTC()
	date := now
	if req.Date != nil {
		date = *req.Date
	}
	v := &domain.RefundVoucher{
		ID:         uuid.New(),
		Number:     number,
		OrderID:    req.Order.ID,
		ClientID:   req.Order.ClientID,
		RegisterID: reg.ID,
		Date:       domain.DateOf(date),
		Amount:     req.Amount,
		Reason:     trimReason(req.Reason),
		ActorID:    req.ActorID,
		CreatedAt:  now,
	}
	if err := s.refunds.Create(ctx, tx, v); err != nil {
		return nil, fmt.Errorf("CreateLocked: %w", err)
	}

	_, err = s.cash.RecordDebit(ctx, tx, cashregister.Entry{
		RegisterID:    reg.ID,
		Amount:        v.Amount,
		ReferenceType: domain.ReferenceTypeRefundVoucher,
		ReferenceID:   v.ID,
		Description:   "Refund " + v.Number,
		ActorID:       req.ActorID,
		OccurredAt:    now,
	})
	if err != nil {
		return nil, fmt.Errorf("CreateLocked: %w", err)
	}

	logging.FromContext(ctx).Info("refund voucher issued",
		"voucher_id", v.ID,
		"number", v.Number,
		"order_id", v.OrderID,
		"register_id", v.RegisterID,
		"amount", v.Amount.StringFixed(domain.MoneyScale),
	)
	return v, nil
}

// Refundable is what is left to refund on an order: active payments minus
// refunds already issued. It can be negative after a payment is voided.
func (s *Service) Refundable(ctx context.Context, tx *sql.Tx, orderID uuid.UUID) (decimal.Decimal, error) {
	paid, err := s.payments.SumActiveByOrder(ctx, tx, orderID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("Refundable: %w", err)
	}
	refunded, err := s.refunds.SumByOrder(ctx, tx, orderID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("Refundable: %w", err)
	}
	return paid.Sub(refunded), nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.RefundVoucher, error) {
	v, err := s.refunds.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return v, nil
}

func (s *Service) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]domain.RefundVoucher, error) {
	vs, err := s.refunds.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("ListByOrder: %w", err)
	}
	return vs, nil
}

func trimReason(r *string) *string {
	if r == nil {
		return nil
	}
	v := strings.TrimSpace(*r)
	if v == "" {
		return nil
	}
	return &v
}
