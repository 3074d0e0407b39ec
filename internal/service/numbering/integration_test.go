package numbering_test

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/agency-ledger/internal/domain"
	"github.com/josh-kwaku/agency-ledger/internal/repository"
	"github.com/josh-kwaku/agency-ledger/internal/service/numbering"
	"github.com/josh-kwaku/agency-ledger/internal/testutil"
)

func setupAllocator(t *testing.T, db *sql.DB, opts ...numbering.Option) (*numbering.Allocator, *repository.DB) {
	t.Helper()
	tx := repository.NewDB(db)
	return numbering.NewAllocator(repository.NewSequenceRepository(db), tx, opts...), tx
}

func TestAllocate_ConcurrentCallersGetDistinctNumbers(t *testing.T) {
	db := testutil.SetupTestDB(t)
	alloc, _ := setupAllocator(t, db)
	ctx := context.Background()

	const callers = 25
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers = make(map[string]struct{}, callers)
		errs    []error
	)

	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := alloc.Allocate(ctx, domain.DocumentTypeInvoice)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			numbers[n] = struct{}{}
		}()
	}
	wg.Wait()

	require.Empty(t, errs)
	assert.Len(t, numbers, callers)

	c, err := repository.NewSequenceRepository(db).Get(ctx, domain.DocumentTypeInvoice)
	require.NoError(t, err)
	assert.Equal(t, int64(callers), c.Counter)
}

func TestNext_RolledBackTransactionReturnsNumber(t *testing.T) {
	db := testutil.SetupTestDB(t)
	alloc, txdb := setupAllocator(t, db)
	ctx := context.Background()

	first, err := alloc.Allocate(ctx, domain.DocumentTypeRefundVoucher)
	require.NoError(t, err)

	errAbort := errors.New("abort")
	var discarded string
	err = txdb.WithTx(ctx, func(tx *sql.Tx) error {
		n, err := alloc.Next(ctx, tx, domain.DocumentTypeRefundVoucher)
		if err != nil {
			return err
		}
		discarded = n
		return errAbort
	})
	require.ErrorIs(t, err, errAbort)

	next, err := alloc.Allocate(ctx, domain.DocumentTypeRefundVoucher)
	require.NoError(t, err)
	assert.NotEqual(t, first, next)
	assert.Equal(t, discarded, next)
}

func TestAllocate_MonthlyReset(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	now := time.Date(2026, time.March, 30, 9, 0, 0, 0, time.UTC)
	alloc, _ := setupAllocator(t, db, numbering.WithClock(func() time.Time { return now }))

	format := "{PREFIX}-{SEQ}"
	_, err := alloc.Update(ctx, domain.DocumentTypeInvoice, numbering.UpdateRequest{Format: &format})
	require.NoError(t, err)

	n1, err := alloc.Allocate(ctx, domain.DocumentTypeInvoice)
	require.NoError(t, err)
	n2, err := alloc.Allocate(ctx, domain.DocumentTypeInvoice)
	require.NoError(t, err)

	now = time.Date(2026, time.April, 1, 8, 0, 0, 0, time.UTC)
	n3, err := alloc.Allocate(ctx, domain.DocumentTypeInvoice)
	require.NoError(t, err)

	assert.Equal(t, "FAC-0001", n1)
	assert.Equal(t, "FAC-0002", n2)
	assert.Equal(t, "FAC-0001", n3)
}

func TestPreview_DoesNotConsume(t *testing.T) {
	db := testutil.SetupTestDB(t)
	now := time.Date(2026, time.May, 4, 12, 0, 0, 0, time.UTC)
	alloc, _ := setupAllocator(t, db, numbering.WithClock(func() time.Time { return now }))
	ctx := context.Background()

	p1, err := alloc.Preview(ctx, domain.DocumentTypePaymentVoucher)
	require.NoError(t, err)
	p2, err := alloc.Preview(ctx, domain.DocumentTypePaymentVoucher)
	require.NoError(t, err)
	n, err := alloc.Allocate(ctx, domain.DocumentTypePaymentVoucher)
	require.NoError(t, err)

	assert.Equal(t, "BV-202605-0001", p1)
	assert.Equal(t, p1, p2)
	assert.Equal(t, p1, n)
}

func TestUpdate_Validation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	alloc, _ := setupAllocator(t, db)
	ctx := context.Background()

	blank := "  "
	noSeq := "{PREFIX}-{YYYY}"
	bad := domain.ResetInterval("WEEKLY")

	tests := []struct {
		name string
		req  numbering.UpdateRequest
		want error
	}{
		{"blank prefix", numbering.UpdateRequest{Prefix: &blank}, domain.ErrInvalidPrefix},
		{"format without seq", numbering.UpdateRequest{Format: &noSeq}, domain.ErrInvalidFormat},
		{"unknown interval", numbering.UpdateRequest{ResetInterval: &bad}, domain.ErrInvalidResetInterval},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := alloc.Update(ctx, domain.DocumentTypeInvoice, tc.req)
			require.ErrorIs(t, err, tc.want)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}

	_, err := alloc.Allocate(ctx, domain.DocumentType("QUOTE"))
	assert.ErrorIs(t, err, domain.ErrInvalidDocumentType)
}
