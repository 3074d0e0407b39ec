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

const invoiceColumns = `id, order_id, number, issue_date, due_date, amount_ht, amount_tax, amount_ttc,
	status, notes, actor_id, created_at, updated_at, cancelled_at`

// paidSubquery recomputes the paid amount of an invoice's order from the
// voucher ledger. Paid totals are never stored.
const paidSubquery = `COALESCE((
	SELECT SUM(pv.amount) FROM payment_vouchers pv
	WHERE pv.order_id = invoices.order_id AND pv.state = 'active'
), 0)`

// derivedStatus mirrors Invoice.StatusFor over a row carrying paid, with $5
// as today's date.
const derivedStatus = `CASE
	WHEN status = 'cancelled' THEN 'cancelled'
	WHEN amount_ttc - paid <= 0 THEN 'paid'
	WHEN due_date IS NOT NULL AND due_date < $5::date THEN 'unpaid'
	ELSE 'pending'
END`

type InvoiceRepository struct {
	db *sql.DB
}

func NewInvoiceRepository(db *sql.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// InvoiceWithPaid pairs an invoice with its recomputed paid amount.
type InvoiceWithPaid struct {
	Invoice domain.Invoice
	Paid    decimal.Decimal
}

// InvoiceFilter narrows an invoice listing. Status matches the status as of
// AsOf, derived the same way Invoice.StatusFor does, not the stored column.
type InvoiceFilter struct {
	OrderID *uuid.UUID
	Status  *domain.InvoiceStatus
	AsOf    time.Time
	Limit   int
	Offset  int
}

func (r *InvoiceRepository) Create(ctx context.Context, tx *sql.Tx, inv *domain.Invoice) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO invoices (
			id, order_id, number, issue_date, due_date, amount_ht, amount_tax, amount_ttc,
			status, notes, actor_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		inv.ID, inv.OrderID, inv.Number, inv.IssueDate, inv.DueDate,
		inv.AmountHT, inv.AmountTax, inv.AmountTTC,
		inv.Status, inv.Notes, inv.ActorID, inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "uq_invoices_open_order") {
			return fmt.Errorf("Create: %w", domain.ErrInvoiceExists)
		}
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *InvoiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id,
	)
	inv, err := scanInvoice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: invoice: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return inv, nil
}

func (r *InvoiceRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Invoice, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE id = $1 FOR UPDATE`, id,
	)
	inv, err := scanInvoice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetForUpdate: invoice: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetForUpdate: %w", err)
	}
	return inv, nil
}

// GetOpenByOrderForUpdate locks the order's non-cancelled invoice, if any.
// It returns domain.ErrNotFound when the order has none.
func (r *InvoiceRepository) GetOpenByOrderForUpdate(ctx context.Context, tx *sql.Tx, orderID uuid.UUID) (*domain.Invoice, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+invoiceColumns+` FROM invoices
		WHERE order_id = $1 AND status <> $2
		FOR UPDATE`,
		orderID, domain.InvoiceStatusCancelled,
	)
	inv, err := scanInvoice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetOpenByOrderForUpdate: invoice: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetOpenByOrderForUpdate: %w", err)
	}
	return inv, nil
}

func (r *InvoiceRepository) UpdateStatus(ctx context.Context, tx *sql.Tx, id uuid.UUID, status domain.InvoiceStatus, at time.Time) error {
	var cancelledAt *time.Time
	if status == domain.InvoiceStatusCancelled {
		cancelledAt = &at
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE invoices
		SET status = $1, updated_at = $2, cancelled_at = COALESCE($3, cancelled_at)
		WHERE id = $4 AND status <> $5`,
		status, at, cancelledAt, id, domain.InvoiceStatusCancelled,
	)
	if err != nil {
		return fmt.Errorf("UpdateStatus: %w", err)
	}
	if err := expectOneRow(res, domain.ErrInvoiceCancelled); err != nil {
		return fmt.Errorf("UpdateStatus: %w", err)
	}
	return nil
}

func (r *InvoiceRepository) List(ctx context.Context, f InvoiceFilter) ([]InvoiceWithPaid, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	asOf := f.AsOf
	if asOf.IsZero() {
		asOf = time.Now()
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+invoiceColumns+`, paid FROM (
			SELECT invoices.*, `+paidSubquery+` AS paid FROM invoices
			WHERE ($1::uuid IS NULL OR order_id = $1)
		) invoices
		WHERE ($2::text IS NULL OR `+derivedStatus+` = $2)
		ORDER BY created_at DESC, id
		LIMIT $3 OFFSET $4`,
		f.OrderID, f.Status, limit, f.Offset, domain.DateOf(asOf),
	)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer rows.Close()

	var out []InvoiceWithPaid
	for rows.Next() {
		var item InvoiceWithPaid
		inv := &item.Invoice
		err := rows.Scan(
			&inv.ID, &inv.OrderID, &inv.Number, &inv.IssueDate, &inv.DueDate,
			&inv.AmountHT, &inv.AmountTax, &inv.AmountTTC,
			&inv.Status, &inv.Notes, &inv.ActorID, &inv.CreatedAt, &inv.UpdatedAt, &inv.CancelledAt,
			&item.Paid,
		)
		if err != nil {
			return nil, fmt.Errorf("List: scan: %w", err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("List: rows: %w", err)
	}
	return out, nil
}

// ListOverdueIDs returns pending invoices whose due date is before asOf.
func (r *InvoiceRepository) ListOverdueIDs(ctx context.Context, asOf time.Time, limit int) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM invoices
		WHERE status = $1 AND due_date < $2
		ORDER BY due_date, id
		LIMIT $3`,
		domain.InvoiceStatusPending, asOf, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("ListOverdueIDs: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ListOverdueIDs: scan: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListOverdueIDs: rows: %w", err)
	}
	return ids, nil
}

func scanInvoice(s scanner) (*domain.Invoice, error) {
	var inv domain.Invoice
	err := s.Scan(
		&inv.ID, &inv.OrderID, &inv.Number, &inv.IssueDate, &inv.DueDate,
		&inv.AmountHT, &inv.AmountTax, &inv.AmountTTC,
		&inv.Status, &inv.Notes, &inv.ActorID, &inv.CreatedAt, &inv.UpdatedAt, &inv.CancelledAt,
	)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}
