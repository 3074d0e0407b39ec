package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/agency-ledger/internal/domain"
)

var sequenceCols = []string{"document_type", "prefix", "format", "counter", "reset_interval", "last_reset_at", "updated_at"}

func TestSequenceRepository_GetForUpdateLocksRow(t *testing.T) {
	pool, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer pool.Close()

	repo := NewSequenceRepository(pool)
	ctx := context.Background()
	reset := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM sequence_counters WHERE document_type = \$1 FOR UPDATE`).
		WithArgs(domain.DocumentTypeInvoice).
		WillReturnRows(sqlmock.NewRows(sequenceCols).
			AddRow("INVOICE", "FAC", "{PREFIX}-{SEQ}", int64(7), "MONTHLY", reset, time.Now()))
	mock.ExpectRollback()

	tx, err := pool.Begin()
	require.NoError(t, err)
	c, err := repo.GetForUpdate(ctx, tx, domain.DocumentTypeInvoice)
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	assert.Equal(t, domain.DocumentTypeInvoice, c.DocumentType)
	assert.Equal(t, "FAC", c.Prefix)
	assert.Equal(t, int64(7), c.Counter)
	assert.Equal(t, domain.ResetMonthly, c.ResetInterval)
	require.NotNil(t, c.LastResetAt)
	assert.True(t, reset.Equal(*c.LastResetAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSequenceRepository_GetUnknownType(t *testing.T) {
	pool, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer pool.Close()

	mock.ExpectQuery(`SELECT .+ FROM sequence_counters WHERE document_type = \$1`).
		WithArgs("PURCHASE_ORDER").
		WillReturnRows(sqlmock.NewRows(sequenceCols))

	_, err = NewSequenceRepository(pool).Get(context.Background(), domain.DocumentTypePurchaseOrder)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSequenceRepository_UpdateCounterMissingRow(t *testing.T) {
	pool, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer pool.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE sequence_counters\s+SET counter = \$1, last_reset_at = \$2`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	tx, err := pool.Begin()
	require.NoError(t, err)
	err = NewSequenceRepository(pool).UpdateCounter(context.Background(), tx, domain.DocumentTypeInvoice, 1, time.Now())
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepository_CreateDuplicate(t *testing.T) {
	pool, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer pool.Close()

	mock.ExpectExec(`INSERT INTO sessions`).
		WillReturnError(&pq.Error{Code: pqUniqueViolation, Constraint: "uq_sessions_article_date"})

	err = NewSessionRepository(pool).Create(context.Background(), &domain.Session{
		ID:        uuid.New(),
		ArticleID: uuid.New(),
		Date:      time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
		Capacity:  50,
		CreatedAt: time.Now(),
	})
	require.ErrorIs(t, err, domain.ErrSessionExists)
}

func TestMapRegisterConstraint(t *testing.T) {
	tests := []struct {
		constraint string
		want       error
	}{
		{"uq_cash_registers_name", domain.ErrDuplicateRegisterName},
		{"uq_cash_registers_primary", domain.ErrPrimaryRegisterExists},
		{"uq_cash_registers_article_type", domain.ErrArticleTypeBound},
	}

	for _, tc := range tests {
		t.Run(tc.constraint, func(t *testing.T) {
			err := mapRegisterConstraint(&pq.Error{Code: pqUniqueViolation, Constraint: tc.constraint})
			assert.ErrorIs(t, err, tc.want)
		})
	}
}
