package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/agency-ledger/internal/domain"
)

const paymentVoucherColumns = `id, number, order_id, invoice_id, client_id, register_id, voucher_date,
	amount, mode, state, actor_id, created_at, voided_at`

type PaymentVoucherRepository struct {
	db *sql.DB
}

func NewPaymentVoucherRepository(db *sql.DB) *PaymentVoucherRepository {
	return &PaymentVoucherRepository{db: db}
}

func (r *PaymentVoucherRepository) Create(ctx context.Context, tx *sql.Tx, v *domain.PaymentVoucher) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO payment_vouchers (
			id, number, order_id, invoice_id, client_id, register_id, voucher_date,
			amount, mode, state, actor_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		v.ID, v.Number, v.OrderID, v.InvoiceID, v.ClientID, v.RegisterID, v.Date,
		v.Amount, v.Mode, v.State, v.ActorID, v.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *PaymentVoucherRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.PaymentVoucher, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+paymentVoucherColumns+` FROM payment_vouchers WHERE id = $1`, id,
	)
	v, err := scanPaymentVoucher(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: payment voucher: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return v, nil
}

func (r *PaymentVoucherRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.PaymentVoucher, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+paymentVoucherColumns+` FROM payment_vouchers WHERE id = $1 FOR UPDATE`, id,
	)
	v, err := scanPaymentVoucher(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetForUpdate: payment voucher: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetForUpdate: %w", err)
	}
	return v, nil
}

// ListByOrder returns every voucher of the order, voided ones included, so
// the audit trail stays visible. Callers filter on State.
func (r *PaymentVoucherRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]domain.PaymentVoucher, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+paymentVoucherColumns+` FROM payment_vouchers
		WHERE order_id = $1 ORDER BY created_at, id`, orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("ListByOrder: %w", err)
	}
	defer rows.Close()

	var vouchers []domain.PaymentVoucher
	for rows.Next() {
		v, err := scanPaymentVoucher(rows)
		if err != nil {
			return nil, fmt.Errorf("ListByOrder: scan: %w", err)
		}
		vouchers = append(vouchers, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListByOrder: rows: %w", err)
	}
	return vouchers, nil
}

// SumActiveByOrder is the order's paid amount: every voucher not voided.
func (r *PaymentVoucherRepository) SumActiveByOrder(ctx context.Context, tx *sql.Tx, orderID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := on(r.db, tx).QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM payment_vouchers
		WHERE order_id = $1 AND state = $2`,
		orderID, domain.VoucherStateActive,
	).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("SumActiveByOrder: %w", err)
	}
	return sum, nil
}

func (r *PaymentVoucherRepository) CountActiveByOrder(ctx context.Context, tx *sql.Tx, orderID uuid.UUID) (int, error) {
	var n int
	err := on(r.db, tx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM payment_vouchers WHERE order_id = $1 AND state = $2`,
		orderID, domain.VoucherStateActive,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("CountActiveByOrder: %w", err)
	}
	return n, nil
}

func (r *PaymentVoucherRepository) MarkVoided(ctx context.Context, tx *sql.Tx, id uuid.UUID, at time.Time) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE payment_vouchers SET state = $1, voided_at = $2
		WHERE id = $3 AND state = $4`,
		domain.VoucherStateVoided, at, id, domain.VoucherStateActive,
	)
	if err != nil {
		return fmt.Errorf("MarkVoided: %w", err)
	}
	if err := expectOneRow(res, domain.ErrVoucherVoided); err != nil {
		return fmt.Errorf("MarkVoided: %w", err)
	}
	return nil
}

func scanPaymentVoucher(s scanner) (*domain.PaymentVoucher, error) {
	var v domain.PaymentVoucher
	err := s.Scan(
		&v.ID, &v.Number, &v.OrderID, &v.InvoiceID, &v.ClientID, &v.RegisterID, &v.Date,
		&v.Amount, &v.Mode, &v.State, &v.ActorID, &v.CreatedAt, &v.VoidedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
