package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/josh-kwaku/agency-ledger/internal/domain"
)

const cashTransactionColumns = `id, register_id, type, amount, reference_type, reference_id,
	description, actor_id, occurred_at, created_at`

// CashTransactionRepository only inserts and reads. The table rejects UPDATE
// and DELETE at the database level.
type CashTransactionRepository struct {
	db *sql.DB
}

func NewCashTransactionRepository(db *sql.DB) *CashTransactionRepository {
	return &CashTransactionRepository{db: db}
}

func (r *CashTransactionRepository) Create(ctx context.Context, tx *sql.Tx, t *domain.CashTransaction) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO cash_transactions (
			id, register_id, type, amount, reference_type, reference_id,
			description, actor_id, occurred_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		t.ID, t.RegisterID, t.Type, t.Amount, t.ReferenceType, t.ReferenceID,
		t.Description, t.ActorID, t.OccurredAt, t.CreatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("Create: cash register: %w", domain.ErrNotFound)
		}
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *CashTransactionRepository) List(ctx context.Context, f domain.TransactionFilter) ([]domain.CashTransaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+cashTransactionColumns+` FROM cash_transactions
		WHERE ($1::uuid IS NULL OR register_id = $1)
		AND ($2::text IS NULL OR type = $2)
		AND ($3::timestamptz IS NULL OR occurred_at >= $3)
		AND ($4::timestamptz IS NULL OR occurred_at < $4::timestamptz + interval '1 day')
		ORDER BY occurred_at, created_at, id`,
		f.RegisterID, f.Type, f.From, f.To,
	)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	return collectCashTransactions(rows, "List")
}

// ListByReferences returns the transactions mirroring any of the given
// documents, in the order they were recorded.
func (r *CashTransactionRepository) ListByReferences(ctx context.Context, ids []uuid.UUID) ([]domain.CashTransaction, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	refs := make([]string, len(ids))
	for i, id := range ids {
		refs[i] = id.String()
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+cashTransactionColumns+` FROM cash_transactions
		WHERE reference_id = ANY($1::uuid[])
		ORDER BY occurred_at, created_at, id`,
		pq.Array(refs),
	)
	if err != nil {
		return nil, fmt.Errorf("ListByReferences: %w", err)
	}
	return collectCashTransactions(rows, "ListByReferences")
}

func collectCashTransactions(rows *sql.Rows, op string) ([]domain.CashTransaction, error) {
	defer rows.Close()

	var txs []domain.CashTransaction
	for rows.Next() {
		var t domain.CashTransaction
		err := rows.Scan(
			&t.ID, &t.RegisterID, &t.Type, &t.Amount, &t.ReferenceType, &t.ReferenceID,
			&t.Description, &t.ActorID, &t.OccurredAt, &t.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}
	return txs, nil
}
