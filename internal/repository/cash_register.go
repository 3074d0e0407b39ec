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

const cashRegisterColumns = `id, name, opening_balance, currency, is_primary, article_type, created_at, updated_at`

type CashRegisterRepository struct {
	db *sql.DB
}

func NewCashRegisterRepository(db *sql.DB) *CashRegisterRepository {
	return &CashRegisterRepository{db: db}
}

// RegisterBalance is a register's balance recomputed from its transactions.
type RegisterBalance struct {
	Register domain.CashRegister
	Credits  decimal.Decimal
	Debits   decimal.Decimal
	Balance  decimal.Decimal
}

func (r *CashRegisterRepository) Create(ctx context.Context, tx *sql.Tx, reg *domain.CashRegister) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO cash_registers (id, name, opening_balance, currency, is_primary, article_type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		reg.ID, reg.Name, reg.OpeningBalance, reg.Currency, reg.IsPrimary, reg.ArticleType, reg.CreatedAt, reg.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", mapRegisterConstraint(err))
	}
	return nil
}

func (r *CashRegisterRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.CashRegister, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+cashRegisterColumns+` FROM cash_registers WHERE id = $1`, id,
	)
	reg, err := scanCashRegister(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: cash register: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return reg, nil
}

func (r *CashRegisterRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.CashRegister, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+cashRegisterColumns+` FROM cash_registers WHERE id = $1 FOR UPDATE`, id,
	)
	reg, err := scanCashRegister(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetForUpdate: cash register: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetForUpdate: %w", err)
	}
	return reg, nil
}

// GetPrimary returns the primary register, read on tx when it is not nil.
// lock takes the row with FOR UPDATE and requires tx.
func (r *CashRegisterRepository) GetPrimary(ctx context.Context, tx *sql.Tx, lock bool) (*domain.CashRegister, error) {
	query := `SELECT ` + cashRegisterColumns + ` FROM cash_registers WHERE is_primary`
	if lock && tx != nil {
		query += ` FOR UPDATE`
	}
	reg, err := scanCashRegister(on(r.db, tx).QueryRowContext(ctx, query))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetPrimary: %w", domain.ErrNoPrimaryRegister)
		}
		return nil, fmt.Errorf("GetPrimary: %w", err)
	}
	return reg, nil
}

func (r *CashRegisterRepository) GetByArticleType(ctx context.Context, tx *sql.Tx, articleType string) (*domain.CashRegister, error) {
	row := on(r.db, tx).QueryRowContext(ctx,
		`SELECT `+cashRegisterColumns+` FROM cash_registers WHERE article_type = $1`, articleType,
	)
	reg, err := scanCashRegister(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByArticleType: cash register: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByArticleType: %w", err)
	}
	return reg, nil
}

// List returns all registers, primary first.
func (r *CashRegisterRepository) List(ctx context.Context) ([]domain.CashRegister, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+cashRegisterColumns+` FROM cash_registers ORDER BY is_primary DESC, name`,
	)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer rows.Close()

	var registers []domain.CashRegister
	for rows.Next() {
		reg, err := scanCashRegister(rows)
		if err != nil {
			return nil, fmt.Errorf("List: scan: %w", err)
		}
		registers = append(registers, *reg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("List: rows: %w", err)
	}
	return registers, nil
}

func (r *CashRegisterRepository) Update(ctx context.Context, tx *sql.Tx, reg *domain.CashRegister) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE cash_registers
		SET name = $1, currency = $2, is_primary = $3, article_type = $4, updated_at = $5
		WHERE id = $6`,
		reg.Name, reg.Currency, reg.IsPrimary, reg.ArticleType, reg.UpdatedAt, reg.ID,
	)
	if err != nil {
		return fmt.Errorf("Update: %w", mapRegisterConstraint(err))
	}
	if err := expectOneRow(res, domain.ErrNotFound); err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	return nil
}

func (r *CashRegisterRepository) Delete(ctx context.Context, tx *sql.Tx, id uuid.UUID) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM cash_registers WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("Delete: %w", domain.ErrRegisterInUse)
		}
		return fmt.Errorf("Delete: %w", err)
	}
	if err := expectOneRow(res, domain.ErrNotFound); err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	return nil
}

// IsReferenced reports whether any transaction or voucher points at the register.
func (r *CashRegisterRepository) IsReferenced(ctx context.Context, tx *sql.Tx, id uuid.UUID) (bool, error) {
	var referenced bool
	err := on(r.db, tx).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM cash_transactions WHERE register_id = $1)
		OR EXISTS (SELECT 1 FROM payment_vouchers WHERE register_id = $1)
		OR EXISTS (SELECT 1 FROM refund_vouchers WHERE register_id = $1)`, id,
	).Scan(&referenced)
	if err != nil {
		return false, fmt.Errorf("IsReferenced: %w", err)
	}
	return referenced, nil
}

// Balance computes opening balance plus credits minus debits in one query.
func (r *CashRegisterRepository) Balance(ctx context.Context, id uuid.UUID) (*RegisterBalance, error) {
	var b RegisterBalance
	reg := &b.Register
	err := r.db.QueryRowContext(ctx,
		`SELECT r.id, r.name, r.opening_balance, r.currency, r.is_primary, r.article_type, r.created_at, r.updated_at,
			COALESCE(SUM(t.amount) FILTER (WHERE t.type = 'credit'), 0),
			COALESCE(SUM(t.amount) FILTER (WHERE t.type = 'debit'), 0)
		FROM cash_registers r
		LEFT JOIN cash_transactions t ON t.register_id = r.id
		WHERE r.id = $1
		GROUP BY r.id`, id,
	).Scan(
		&reg.ID, &reg.Name, &reg.OpeningBalance, &reg.Currency, &reg.IsPrimary, &reg.ArticleType,
		&reg.CreatedAt, &reg.UpdatedAt, &b.Credits, &b.Debits,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("Balance: cash register: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("Balance: %w", err)
	}
	b.Balance = reg.OpeningBalance.Add(b.Credits).Sub(b.Debits)
	return &b, nil
}

func mapRegisterConstraint(err error) error {
	switch {
	case isUniqueViolation(err, "uq_cash_registers_name"):
		return domain.ErrDuplicateRegisterName
	case isUniqueViolation(err, "uq_cash_registers_primary"):
		return domain.ErrPrimaryRegisterExists
	case isUniqueViolation(err, "uq_cash_registers_article_type"):
		return domain.ErrArticleTypeBound
	}
	return err
}

func scanCashRegister(s scanner) (*domain.CashRegister, error) {
	var reg domain.CashRegister
	err := s.Scan(
		&reg.ID, &reg.Name, &reg.OpeningBalance, &reg.Currency, &reg.IsPrimary, &reg.ArticleType,
		&reg.CreatedAt, &reg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &reg, nil
}
