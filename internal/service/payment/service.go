package payment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
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

type invoiceRepo interface {
	GetOpenByOrderForUpdate(ctx context.Context, tx *sql.Tx, orderID uuid.UUID) (*domain.Invoice, error)
	UpdateStatus(ctx context.Context, tx *sql.Tx, id uuid.UUID, status domain.InvoiceStatus, at time.Time) error
}

type voucherRepo interface {
	Create(ctx context.Context, tx *sql.Tx, v *domain.PaymentVoucher) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.PaymentVoucher, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.PaymentVoucher, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]domain.PaymentVoucher, error)
	SumActiveByOrder(ctx context.Context, tx *sql.Tx, orderID uuid.UUID) (decimal.Decimal, error)
	MarkVoided(ctx context.Context, tx *sql.Tx, id uuid.UUID, at time.Time) error
}

type numberer interface {
	Next(ctx context.Context, tx *sql.Tx, docType domain.DocumentType) (string, error)
}

type cashLedger interface {
	Route(ctx context.Context, tx *sql.Tx, articleType *string) (*domain.CashRegister, error)
	RecordCredit(ctx context.Context, tx *sql.Tx, e cashregister.Entry) (*domain.CashTransaction, error)
	RecordDebit(ctx context.Context, tx *sql.Tx, e cashregister.Entry) (*domain.CashTransaction, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// Service is the deposit voucher ledger. Every voucher is mirrored by a cash
// register credit written in the same transaction, and every void by exactly
// one compensating debit.
type Service struct {
	orders   orderRepo
	invoices invoiceRepo
	vouchers voucherRepo
	numbers  numberer
	cash     cashLedger
	db       txRunner
}

func NewService(
	orders orderRepo,
	invoices invoiceRepo,
	vouchers voucherRepo,
	numbers numberer,
	cash cashLedger,
	db txRunner,
) *Service {
	return &Service{
		orders:   orders,
		invoices: invoices,
		vouchers: vouchers,
		numbers:  numbers,
		cash:     cash,
		db:       db,
	}
}

type CreateRequest struct {
	OrderID  uuid.UUID
	ClientID uuid.UUID
	Amount   decimal.Decimal
	Date     *time.Time
	Mode     domain.PaymentMode
	ActorID  *uuid.UUID
}

// Create records a deposit against an order. The ceiling is the open
// invoice's total when there is one, otherwise the order price.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*domain.PaymentVoucher, error) {
	mode, err := ResolveMode(req.Mode)
	if err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}
	if err := domain.ValidateAmount(req.Amount); err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}

	var v *domain.PaymentVoucher
	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		order, err := s.orders.GetForUpdate(ctx, tx, req.OrderID)
		if err != nil {
			return err
		}
		if order.ClientID != req.ClientID {
			return domain.ErrClientMismatch
		}
		if order.IsCancelled() {
			return domain.ErrOrderCancelled
		}

		inv, err := s.openInvoice(ctx, tx, order.ID)
		if err != nil {
			return err
		}
		ceiling := order.Price
		if inv != nil {
			ceiling = inv.AmountTTC
		}

		paid, err := s.vouchers.SumActiveByOrder(ctx, tx, order.ID)
		if err != nil {
			return err
		}
		if err := domain.ValidateWithin(req.Amount, ceiling.Sub(paid)); err != nil {
			return err
		}

		v, err = s.IssueLocked(ctx, tx, IssueRequest{
			Order:         order,
			Invoice:       inv,
			Amount:        req.Amount,
			Date:          req.Date,
			Mode:          mode,
			ActorID:       req.ActorID,
			ReferenceType: domain.ReferenceTypePaymentVoucher,
		})
		if err != nil {
			return err
		}
		return s.RefreshInvoiceStatus(ctx, tx, inv, paid.Add(req.Amount))
	})
	if err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}
	return v, nil
}

// IssueRequest describes a voucher whose order (and invoice, if any) the
// caller already holds locked.
type IssueRequest struct {
	Order         *domain.Order
	Invoice       *domain.Invoice
	Amount        decimal.Decimal
	Date          *time.Time
	Mode          domain.PaymentMode
	ActorID       *uuid.UUID
	ReferenceType domain.ReferenceType
}

// IssueLocked allocates a number, inserts the voucher and credits the routed
// register. Ceiling checks and the invoice status refresh are the caller's
// job. The credit references the invoice when ReferenceType is invoice,
// otherwise the voucher itself.
func (s *Service) IssueLocked(ctx context.Context, tx *sql.Tx, req IssueRequest) (*domain.PaymentVoucher, error) {
	reg, err := s.cash.Route(ctx, tx, req.Order.ArticleType)
	if err != nil {
		return nil, fmt.Errorf("IssueLocked: %w", err)
	}
	number, err := s.numbers.Next(ctx, tx, domain.DocumentTypePaymentVoucher)
	if err != nil {
		return nil, fmt.Errorf("IssueLocked: %w", err)
	}

	now := time.Now().UTC()
	date := now
	if req.Date != nil {
		date = *req.Date
	}
	v := &domain.PaymentVoucher{
		ID:         uuid.New(),
		Number:     number,
		OrderID:    req.Order.ID,
		ClientID:   req.Order.ClientID,
		RegisterID: reg.ID,
		Date:       domain.DateOf(date),
		Amount:     req.Amount,
		Mode:       req.Mode,
		State:      domain.VoucherStateActive,
		ActorID:    req.ActorID,
		CreatedAt:  now,
	}
	if req.Invoice != nil {
		v.InvoiceID = &req.Invoice.ID
	}
	if err := s.vouchers.Create(ctx, tx, v); err != nil {
		return nil, fmt.Errorf("IssueLocked: %w", err)
	}

	refType := req.ReferenceType
	refID := v.ID
	if refType == domain.ReferenceTypeInvoice && req.Invoice != nil {
		refID = req.Invoice.ID
	} else {
		refType = domain.ReferenceTypePaymentVoucher
	}
	_, err = s.cash.RecordCredit(ctx, tx, cashregister.Entry{
		RegisterID:    reg.ID,
		Amount:        v.Amount,
		ReferenceType: refType,
		ReferenceID:   refID,
		Description:   "Payment " + v.Number,
		ActorID:       req.ActorID,
		OccurredAt:    now,
	})
	if err != nil {
		return nil, fmt.Errorf("IssueLocked: %w", err)
	}

	logging.FromContext(ctx).Info("payment voucher issued",
		"voucher_id", v.ID,
		"number", v.Number,
		"order_id", v.OrderID,
		"register_id", v.RegisterID,
		"amount", v.Amount.StringFixed(domain.MoneyScale),
		"mode", v.Mode,
	)
	return v, nil
}

// Void cancels a deposit. The voucher row stays, flagged voided, and one
// debit reverses the original credit on the same register.
func (s *Service) Void(ctx context.Context, id uuid.UUID, actorID *uuid.UUID) (*domain.PaymentVoucher, error) {
	existing, err := s.vouchers.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("Void: %w", err)
	}

	var v *domain.PaymentVoucher
	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		order, err := s.orders.GetForUpdate(ctx, tx, existing.OrderID)
		if err != nil {
			return err
		}
		inv, err := s.openInvoice(ctx, tx, order.ID)
		if err != nil {
			return err
		}
		v, err = s.vouchers.GetForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if v.IsVoided() {
			return domain.ErrVoucherVoided
		}
		if order.IsCancelled() {
			return domain.ErrOrderCancelled
		}

		now := time.Now().UTC()
		if err := s.vouchers.MarkVoided(ctx, tx, v.ID, now); err != nil {
			return err
		}
		v.State = domain.VoucherStateVoided
		v.VoidedAt = &now

		_, err = s.cash.RecordDebit(ctx, tx, cashregister.Entry{
			RegisterID:    v.RegisterID,
			Amount:        v.Amount,
			ReferenceType: domain.ReferenceTypePaymentVoucher,
			ReferenceID:   v.ID,
			Description:   "Void of payment " + v.Number,
			ActorID:       actorID,
			OccurredAt:    now,
		})
		if err != nil {
			return err
		}

		paid, err := s.vouchers.SumActiveByOrder(ctx, tx, order.ID)
		if err != nil {
			return err
		}
		return s.RefreshInvoiceStatus(ctx, tx, inv, paid)
	})
	if err != nil {
		return nil, fmt.Errorf("Void: %w", err)
	}

	logging.FromContext(ctx).Info("payment voucher voided",
		"voucher_id", v.ID,
		"number", v.Number,
		"order_id", v.OrderID,
		"amount", v.Amount.StringFixed(domain.MoneyScale),
	)
	return v, nil
}

// RefreshInvoiceStatus re-derives inv's status from paid and persists it if it
// changed. A nil invoice is a no-op.
func (s *Service) RefreshInvoiceStatus(ctx context.Context, tx *sql.Tx, inv *domain.Invoice, paid decimal.Decimal) error {
	if inv == nil {
		return nil
	}
	now := time.Now().UTC()
	status := inv.StatusFor(paid, now)
	if status == inv.Status {
		return nil
	}
	if err := s.invoices.UpdateStatus(ctx, tx, inv.ID, status, now); err != nil {
		return fmt.Errorf("RefreshInvoiceStatus: %w", err)
	}

	logging.FromContext(ctx).Info("invoice status changed",
		"invoice_id", inv.ID,
		"from", inv.Status,
		"to", status,
	)
	inv.Status = status
	inv.UpdatedAt = now
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.PaymentVoucher, error) {
	v, err := s.vouchers.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return v, nil
}

func (s *Service) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]domain.PaymentVoucher, error) {
	vs, err := s.vouchers.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("ListByOrder: %w", err)
	}
	return vs, nil
}

func (s *Service) openInvoice(ctx context.Context, tx *sql.Tx, orderID uuid.UUID) (*domain.Invoice, error) {
	inv, err := s.invoices.GetOpenByOrderForUpdate(ctx, tx, orderID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return inv, err
}

// ResolveMode defaults an empty mode to cash.
func ResolveMode(m domain.PaymentMode) (domain.PaymentMode, error) {
	if m == "" {
		return domain.PaymentModeCash, nil
	}
	if !m.IsValid() {
		return "", domain.ErrInvalidPaymentMode
	}
	return m, nil
}
