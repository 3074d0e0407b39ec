package invoice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/agency-ledger/internal/config"
	"github.com/josh-kwaku/agency-ledger/internal/domain"
	"github.com/josh-kwaku/agency-ledger/internal/logging"
	"github.com/josh-kwaku/agency-ledger/internal/repository"
	"github.com/josh-kwaku/agency-ledger/internal/service/payment"
)

type orderRepo interface {
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Order, error)
}

type invoiceRepo interface {
	Create(ctx context.Context, tx *sql.Tx, inv *domain.Invoice) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Invoice, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Invoice, error)
	GetOpenByOrderForUpdate(ctx context.Context, tx *sql.Tx, orderID uuid.UUID) (*domain.Invoice, error)
	UpdateStatus(ctx context.Context, tx *sql.Tx, id uuid.UUID, status domain.InvoiceStatus, at time.Time) error
	List(ctx context.Context, f repository.InvoiceFilter) ([]repository.InvoiceWithPaid, error)
	ListOverdueIDs(ctx context.Context, asOf time.Time, limit int) ([]uuid.UUID, error)
}

type voucherRepo interface {
	SumActiveByOrder(ctx context.Context, tx *sql.Tx, orderID uuid.UUID) (decimal.Decimal, error)
	CountActiveByOrder(ctx context.Context, tx *sql.Tx, orderID uuid.UUID) (int, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]domain.PaymentVoucher, error)
}

type refundRepo interface {
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]domain.RefundVoucher, error)
}

type transactionRepo interface {
	ListByReferences(ctx context.Context, ids []uuid.UUID) ([]domain.CashTransaction, error)
}

type numberer interface {
	Next(ctx context.Context, tx *sql.Tx, docType domain.DocumentType) (string, error)
}

type paymentIssuer interface {
	IssueLocked(ctx context.Context, tx *sql.Tx, req payment.IssueRequest) (*domain.PaymentVoucher, error)
	RefreshInvoiceStatus(ctx context.Context, tx *sql.Tx, inv *domain.Invoice, paid decimal.Decimal) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

type Service struct {
	orders       orderRepo
	invoices     invoiceRepo
	vouchers     voucherRepo
	refunds      refundRepo
	transactions transactionRepo
	numbers      numberer
	payments     paymentIssuer
	db           txRunner
	pricing      PricingPolicy
	dueDays      int
	now          func() time.Time
}

type Option func(*Service)

func WithPricing(p PricingPolicy) Option {
	return func(s *Service) { s.pricing = p }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(
	orders orderRepo,
	invoices invoiceRepo,
	vouchers voucherRepo,
	refunds refundRepo,
	transactions transactionRepo,
	numbers numberer,
	payments paymentIssuer,
	db txRunner,
	cfg *config.Config,
	opts ...Option,
) *Service {
	s := &Service{
		orders:       orders,
		invoices:     invoices,
		vouchers:     vouchers,
		refunds:      refunds,
		transactions: transactions,
		numbers:      numbers,
		payments:     payments,
		db:           db,
		pricing:      DefaultPricing,
		dueDays:      cfg.InvoiceDueDays,
		now:          func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Details is an invoice with its totals recomputed from the voucher ledger.
// Status is derived at read time, so an overdue invoice reads as unpaid even
// before the sweeper has stored it.
type Details struct {
	Invoice   domain.Invoice
	Paid      decimal.Decimal
	Remaining decimal.Decimal
}

func (s *Service) details(inv domain.Invoice, paid decimal.Decimal) *Details {
	inv.Status = inv.StatusFor(paid, s.now())
	return &Details{Invoice: inv, Paid: paid, Remaining: inv.AmountTTC.Sub(paid)}
}

type GenerateRequest struct {
	Notes   *string
	ActorID *uuid.UUID
}

// Generate issues the invoice for an order. Deposits taken before the invoice
// count towards it.
func (s *Service) Generate(ctx context.Context, orderID uuid.UUID, req GenerateRequest) (*Details, error) {
	var (
		inv  *domain.Invoice
		paid decimal.Decimal
	)
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		order, err := s.orders.GetForUpdate(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if order.IsCancelled() {
			return domain.ErrOrderCancelled
		}

		_, err = s.invoices.GetOpenByOrderForUpdate(ctx, tx, order.ID)
		switch {
		case err == nil:
			return domain.ErrInvoiceExists
		case !errors.Is(err, domain.ErrNotFound):
			return err
		}

		amounts := s.pricing.Price(order)
		if amounts.TTC.IsNegative() {
			return domain.ErrNegativeTotal
		}
		paid, err = s.vouchers.SumActiveByOrder(ctx, tx, order.ID)
		if err != nil {
			return err
		}
		if paid.GreaterThan(amounts.TTC) {
			return domain.ErrPaymentsExceedTotal
		}

		number, err := s.numbers.Next(ctx, tx, domain.DocumentTypeInvoice)
		if err != nil {
			return err
		}

		now := s.now()
		issue := domain.DateOf(now)
		due := issue.AddDate(0, 0, s.dueDays)
		inv = &domain.Invoice{
			ID:        uuid.New(),
			OrderID:   order.ID,
			Number:    number,
			IssueDate: issue,
			DueDate:   &due,
			AmountHT:  amounts.HT,
			AmountTax: amounts.Tax,
			AmountTTC: amounts.TTC,
			Notes:     trimNotes(req.Notes),
			ActorID:   req.ActorID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		inv.Status = inv.StatusFor(paid, now)
		return s.invoices.Create(ctx, tx, inv)
	})
	if err != nil {
		return nil, fmt.Errorf("Generate: %w", err)
	}

	logging.FromContext(ctx).Info("invoice generated",
		"invoice_id", inv.ID,
		"number", inv.Number,
		"order_id", inv.OrderID,
		"amount_ttc", inv.AmountTTC.StringFixed(domain.MoneyScale),
		"status", inv.Status,
	)
	return s.details(*inv, paid), nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Details, error) {
	inv, err := s.invoices.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	paid, err := s.vouchers.SumActiveByOrder(ctx, nil, inv.OrderID)
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return s.details(*inv, paid), nil
}

// List filters on the status callers see, so an overdue invoice matches
// unpaid before the sweeper has stored it.
func (s *Service) List(ctx context.Context, f repository.InvoiceFilter) ([]Details, error) {
	if f.Status != nil && !isKnownStatus(*f.Status) {
		return nil, fmt.Errorf("List: %w", &domain.ValidationError{Field: "status", Message: "unknown invoice status"})
	}
	f.AsOf = s.now()
	rows, err := s.invoices.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	out := make([]Details, 0, len(rows))
	for _, r := range rows {
		out = append(out, *s.details(r.Invoice, r.Paid))
	}
	return out, nil
}

// PaymentInfo is everything that moved money for an invoice's order.
type PaymentInfo struct {
	Details
	Vouchers     []domain.PaymentVoucher
	Refunds      []domain.RefundVoucher
	Transactions []domain.CashTransaction
}

func (s *Service) GetPaymentInfo(ctx context.Context, id uuid.UUID) (*PaymentInfo, error) {
	d, err := s.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("GetPaymentInfo: %w", err)
	}
	vouchers, err := s.vouchers.ListByOrder(ctx, d.Invoice.OrderID)
	if err != nil {
		return nil, fmt.Errorf("GetPaymentInfo: %w", err)
	}
	refunds, err := s.refunds.ListByOrder(ctx, d.Invoice.OrderID)
	if err != nil {
		return nil, fmt.Errorf("GetPaymentInfo: %w", err)
	}

	refs := make([]uuid.UUID, 0, 1+len(vouchers)+len(refunds))
	refs = append(refs, d.Invoice.ID)
	for _, v := range vouchers {
		refs = append(refs, v.ID)
	}
	for _, r := range refunds {
		refs = append(refs, r.ID)
	}
	txs, err := s.transactions.ListByReferences(ctx, refs)
	if err != nil {
		return nil, fmt.Errorf("GetPaymentInfo: %w", err)
	}

	return &PaymentInfo{
		Details:      *d,
		Vouchers:     vouchers,
		Refunds:      refunds,
		Transactions: txs,
	}, nil
}

type PayRequest struct {
	Amount  decimal.Decimal
	Date    *time.Time
	Mode    domain.PaymentMode
	ActorID *uuid.UUID
}

type PayResult struct {
	Invoice   domain.Invoice
	Voucher   domain.PaymentVoucher
	Paid      decimal.Decimal
	Remaining decimal.Decimal
}

// Pay settles part or all of an invoice. The remaining amount is computed
// under the order and invoice locks, so concurrent payments cannot overshoot.
func (s *Service) Pay(ctx context.Context, id uuid.UUID, req PayRequest) (*PayResult, error) {
	mode, err := payment.ResolveMode(req.Mode)
	if err != nil {
		return nil, fmt.Errorf("Pay: %w", err)
	}
	if err := domain.ValidateAmount(req.Amount); err != nil {
		return nil, fmt.Errorf("Pay: %w", err)
	}
	existing, err := s.invoices.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("Pay: %w", err)
	}

	var res *PayResult
	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		order, err := s.orders.GetForUpdate(ctx, tx, existing.OrderID)
		if err != nil {
			return err
		}
		inv, err := s.invoices.GetForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if inv.IsCancelled() {
			return domain.ErrInvoiceCancelled
		}
		if order.IsCancelled() {
			return domain.ErrOrderCancelled
		}

		paid, err := s.vouchers.SumActiveByOrder(ctx, tx, order.ID)
		if err != nil {
			return err
		}
		remaining := inv.AmountTTC.Sub(paid)
		if domain.IsSettled(remaining) {
			return domain.ErrInvoiceAlreadyPaid
		}
		if err := domain.ValidateWithin(req.Amount, remaining); err != nil {
			return err
		}

		v, err := s.payments.IssueLocked(ctx, tx, payment.IssueRequest{
			Order:         order,
			Invoice:       inv,
			Amount:        req.Amount,
			Date:          req.Date,
			Mode:          mode,
			ActorID:       req.ActorID,
			ReferenceType: domain.ReferenceTypeInvoice,
		})
		if err != nil {
			return err
		}

		paid, err = s.vouchers.SumActiveByOrder(ctx, tx, order.ID)
		if err != nil {
			return err
		}
		if paid.GreaterThan(inv.AmountTTC) {
			logging.FromContext(ctx).Error("invoice overpaid after payment",
				"invoice_id", inv.ID,
				"amount_ttc", inv.AmountTTC.StringFixed(domain.MoneyScale),
				"paid", paid.StringFixed(domain.MoneyScale),
			)
			return fmt.Errorf("invoice %s paid %s of %s: %w",
				inv.Number, paid.StringFixed(domain.MoneyScale), inv.AmountTTC.StringFixed(domain.MoneyScale),
				domain.ErrInvariantViolation)
		}
		if err := s.payments.RefreshInvoiceStatus(ctx, tx, inv, paid); err != nil {
			return err
		}

		res = &PayResult{
			Invoice:   *inv,
			Voucher:   *v,
			Paid:      paid,
			Remaining: inv.AmountTTC.Sub(paid),
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("Pay: %w", err)
	}

	logging.FromContext(ctx).Info("invoice payment recorded",
		"invoice_id", res.Invoice.ID,
		"voucher_id", res.Voucher.ID,
		"amount", res.Voucher.Amount.StringFixed(domain.MoneyScale),
		"remaining", res.Remaining.StringFixed(domain.MoneyScale),
		"status", res.Invoice.Status,
	)
	return res, nil
}

// Cancel cancels an invoice that carries no active payments. Cancelling an
// already cancelled invoice returns it unchanged.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	existing, err := s.invoices.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("Cancel: %w", err)
	}

	var (
		inv     *domain.Invoice
		changed bool
	)
	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.orders.GetForUpdate(ctx, tx, existing.OrderID); err != nil {
			return err
		}
		inv, err = s.invoices.GetForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if inv.IsCancelled() {
			return nil
		}

		active, err := s.vouchers.CountActiveByOrder(ctx, tx, inv.OrderID)
		if err != nil {
			return err
		}
		if active > 0 {
			return domain.ErrInvoiceHasPayments
		}
		changed = true
		return s.cancelLocked(ctx, tx, inv)
	})
	if err != nil {
		return nil, fmt.Errorf("Cancel: %w", err)
	}

	if changed {
		logging.FromContext(ctx).Info("invoice cancelled", "invoice_id", inv.ID, "number", inv.Number)
	}
	return inv, nil
}

// CancelOpenLocked force-cancels the order's open invoice, payments or not.
// It is meant for order cancellation, which settles the money separately.
// It returns nil when the order has no open invoice.
func (s *Service) CancelOpenLocked(ctx context.Context, tx *sql.Tx, orderID uuid.UUID) (*domain.Invoice, error) {
	inv, err := s.invoices.GetOpenByOrderForUpdate(ctx, tx, orderID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("CancelOpenLocked: %w", err)
	}
	if err := s.cancelLocked(ctx, tx, inv); err != nil {
		return nil, fmt.Errorf("CancelOpenLocked: %w", err)
	}
	logging.FromContext(ctx).Info("invoice cancelled with order", "invoice_id", inv.ID, "order_id", orderID)
	return inv, nil
}

func (s *Service) cancelLocked(ctx context.Context, tx *sql.Tx, inv *domain.Invoice) error {
	now := s.now()
	if err := s.invoices.UpdateStatus(ctx, tx, inv.ID, domain.InvoiceStatusCancelled, now); err != nil {
		return err
	}
	inv.Status = domain.InvoiceStatusCancelled
	inv.CancelledAt = &now
	inv.UpdatedAt = now
	return nil
}

// MarkOverdue re-derives the status of one pending invoice and flips it to
// unpaid if its due date has passed. It reports whether the status changed.
func (s *Service) MarkOverdue(ctx context.Context, id uuid.UUID) (bool, error) {
	existing, err := s.invoices.GetByID(ctx, id)
	if err != nil {
		return false, fmt.Errorf("MarkOverdue: %w", err)
	}

	var changed bool
	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.orders.GetForUpdate(ctx, tx, existing.OrderID); err != nil {
			return err
		}
		inv, err := s.invoices.GetForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if inv.Status != domain.InvoiceStatusPending {
			return nil
		}
		paid, err := s.vouchers.SumActiveByOrder(ctx, tx, inv.OrderID)
		if err != nil {
			return err
		}
		status := inv.StatusFor(paid, s.now())
		if status == inv.Status {
			return nil
		}
		changed = true
		return s.invoices.UpdateStatus(ctx, tx, inv.ID, status, s.now())
	})
	if err != nil {
		return false, fmt.Errorf("MarkOverdue: %w", err)
	}
	return changed, nil
}

func isKnownStatus(st domain.InvoiceStatus) bool {
	switch st {
	case domain.InvoiceStatusPending, domain.InvoiceStatusPaid, domain.InvoiceStatusUnpaid, domain.InvoiceStatusCancelled:
		return true
	}
	return false
}

func trimNotes(n *string) *string {
	if n == nil {
		return nil
	}
	v := strings.TrimSpace(*n)
	if v == "" {
		return nil
	}
	return &v
}
