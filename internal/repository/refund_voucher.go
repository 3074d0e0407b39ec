package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/agency-ledger/internal/domain"
)

const refundVoucherColumns = `id, number, order_id, client_id, register_id, voucher_date,
	amount, reason, actor_id, created_at`

type RefundVoucherRepository struct {
	db *sql.DB
}

func NewRefundVoucherRepository(db *sql.DB) *RefundVoucherRepository {
	return &RefundVoucherRepository{db: db}
}

func (r *RefundVoucherRepository) Create(ctx context.Context, tx *sql.Tx, v *domain.RefundVoucher) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO refund_vouchers (
			id, number, order_id, client_id, register_id, voucher_date,
			amount, reason, actor_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		v.ID, v.Number, v.OrderID, v.ClientID, v.RegisterID, v.Date,
		v.Amount, v.Reason, v.ActorID, v.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *RefundVoucherRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.RefundVoucher, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+refundVoucherColumns+` FROM refund_vouchers WHERE id = $1`, id,
	)
	v, err := scanRefundVoucher(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: refund voucher: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return v, nil
}

func (r *RefundVoucherRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]domain.RefundVoucher, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+refundVoucherColumns+` FROM refund_vouchers
		WHERE order_id = $1 ORDER BY created_at, id`, orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("ListByOrder: %w", err)
	}
	defer rows.Close()

	var refunds []domain.RefundVoucher
	for rows.Next() {
		v, err := scanRefundVoucher(rows)
		if err != nil {
			return nil, fmt.Errorf("ListByOrder: scan: %w", err)
		}
		refunds = append(refunds, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListByOrder: rows: %w", err)
	}
	return refunds, nil
}

func (r *RefundVoucherRepository) SumByOrder(ctx context.Context, tx *sql.Tx, orderID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := on(r.db, tx).QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM refund_vouchers WHERE order_id = $1`, orderID,
	).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("SumByOrder: %w", err)
	}
	return sum, nil
}

func scanRefundVoucher(s scanner) (*domain.RefundVoucher, error) {
	var v domain.RefundVoucher
	err := s.Scan(
		&v.ID, &v.Number, &v.OrderID, &v.ClientID, &v.RegisterID, &v.Date,
		&v.Amount, &v.Reason, &v.ActorID, &v.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
