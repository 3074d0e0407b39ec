package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/cenkalti/backoff/v4"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/agency-ledger/internal/domain"
)

func newMockDB(t *testing.T, retries int) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	pool, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	db := NewDB(pool,
		WithTxRetries(retries),
		WithBackOff(func() backoff.BackOff { return &backoff.ZeroBackOff{} }),
	)
	return db, mock
}

func touch(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `UPDATE sequence_counters SET counter = counter + 1`)
	return err
}

func TestWithTx_Commits(t *testing.T) {
	db, mock := newMockDB(t, 3)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE sequence_counters`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := db.WithTx(ctx, func(tx *sql.Tx) error { return touch(ctx, tx) })
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_RetriesSerializationFailure(t *testing.T) {
	db, mock := newMockDB(t, 3)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE sequence_counters`).WillReturnError(&pq.Error{Code: pqSerializationFailure})
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE sequence_counters`).WillReturnError(&pq.Error{Code: pqDeadlockDetected})
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE sequence_counters`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	attempts := 0
	err := db.WithTx(ctx, func(tx *sql.Tx) error {
		attempts++
		return touch(ctx, tx)
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_GivesUpAfterMaxRetries(t *testing.T) {
	db, mock := newMockDB(t, 1)
	ctx := context.Background()

	for range 2 {
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE sequence_counters`).WillReturnError(&pq.Error{Code: pqSerializationFailure})
		mock.ExpectRollback()
	}

	err := db.WithTx(ctx, func(tx *sql.Tx) error { return touch(ctx, tx) })
	require.ErrorIs(t, err, domain.ErrSerializationFailure)
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_DoesNotRetryDomainErrors(t *testing.T) {
	db, mock := newMockDB(t, 3)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectRollback()

	attempts := 0
	err := db.WithTx(ctx, func(tx *sql.Tx) error {
		attempts++
		return domain.ErrCapacityExceeded
	})
	require.ErrorIs(t, err, domain.ErrCapacityExceeded)
	assert.Equal(t, 1, attempts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_CommitFailureIsRetried(t *testing.T) {
	db, mock := newMockDB(t, 2)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(&pq.Error{Code: pqSerializationFailure})
	mock.ExpectBegin()
	mock.ExpectCommit()

	err := db.WithTx(ctx, func(tx *sql.Tx) error { return nil })
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"serialization failure", &pq.Error{Code: pqSerializationFailure}, true},
		{"deadlock", &pq.Error{Code: pqDeadlockDetected}, true},
		{"wrapped", errors.Join(errors.New("ctx"), &pq.Error{Code: pqSerializationFailure}), true},
		{"unique violation", &pq.Error{Code: pqUniqueViolation}, false},
		{"plain error", errors.New("boom"), false},
		{"nil", nil, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsRetryable(tc.err))
		})
	}
}
