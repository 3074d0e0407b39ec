package payment_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/agency-ledger/internal/domain"
	"github.com/josh-kwaku/agency-ledger/internal/service/invoice"
	"github.com/josh-kwaku/agency-ledger/internal/service/payment"
	"github.com/josh-kwaku/agency-ledger/internal/service/refund"
	"github.com/josh-kwaku/agency-ledger/internal/testutil"
)

func TestCreate_DepositWithoutInvoiceIsCappedByPrice(t *testing.T) {
	db := testutil.SetupTestDB(t)
	l := testutil.NewLedger(t, db)
	ctx := context.Background()

	o := testutil.SeedOrder(t, db, "5000")
	date := time.Date(2026, 2, 10, 15, 0, 0, 0, time.UTC)

	v, err := l.Payments.Create(ctx, payment.CreateRequest{
		OrderID:  o.ID,
		ClientID: o.ClientID,
		Amount:   testutil.Dec("3000"),
		Date:     &date,
		Mode:     domain.PaymentModeCheque,
		ActorID:  &testutil.ActorID,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.VoucherStateActive, v.State)
	assert.Nil(t, v.InvoiceID)
	assert.Equal(t, testutil.PrimaryRegisterID, v.RegisterID)
	assert.Equal(t, time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC), v.Date)
	assert.Regexp(t, `^BV-\d{6}-0001$`, v.Number)
	assert.Equal(t, 1, testutil.CountCashTransactions(t, db, v.ID, domain.TransactionTypeCredit))

	_, err = l.Payments.Create(ctx, payment.CreateRequest{OrderID: o.ID, ClientID: o.ClientID, Amount: testutil.Dec("2000.01")})
	assert.ErrorIs(t, err, domain.ErrAmountExceedsRemaining)

	_, err = l.Payments.Create(ctx, payment.CreateRequest{OrderID: o.ID, ClientID: o.ClientID, Amount: testutil.Dec("2000")})
	require.NoError(t, err)
	assert.True(t, testutil.Dec("5000").Equal(testutil.SumActivePayments(t, db, o.ID)))
}

func TestCreate_WithInvoiceUsesTotalAndRefreshesStatus(t *testing.T) {
	db := testutil.SetupTestDB(t)
	l := testutil.NewLedger(t, db)
	ctx := context.Background()

	o := testutil.SeedOrderWith(t, db, testutil.OrderSeed{Price: "1000", Taxes: "190"})
	d, err := l.Invoices.Generate(ctx, o.ID, invoice.GenerateRequest{})
	require.NoError(t, err)

	v, err := l.Payments.Create(ctx, payment.CreateRequest{OrderID: o.ID, ClientID: o.ClientID, Amount: testutil.Dec("1190")})
	require.NoError(t, err)
	require.NotNil(t, v.InvoiceID)
	assert.Equal(t, d.Invoice.ID, *v.InvoiceID)

	got, err := l.Invoices.Get(ctx, d.Invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusPaid, got.Invoice.Status)
}

func TestCreate_Rejections(t *testing.T) {
	db := testutil.SetupTestDB(t)
	l := testutil.NewLedger(t, db)
	ctx := context.Background()

	o := testutil.SeedOrder(t, db, "1000")
	cancelled := testutil.SeedOrder(t, db, "1000")
	_, err := l.Orders.Cancel(ctx, cancelled.ID, nil)
	require.NoError(t, err)

	tests := []struct {
		name    string
		req     payment.CreateRequest
		wantErr error
	}{
		{"unknown order", payment.CreateRequest{OrderID: uuid.New(), ClientID: o.ClientID, Amount: testutil.Dec("10")}, domain.ErrNotFound},
		{"client mismatch", payment.CreateRequest{OrderID: o.ID, ClientID: uuid.New(), Amount: testutil.Dec("10")}, domain.ErrClientMismatch},
		{"cancelled order", payment.CreateRequest{OrderID: cancelled.ID, ClientID: cancelled.ClientID, Amount: testutil.Dec("10")}, domain.ErrOrderCancelled},
		{"zero amount", payment.CreateRequest{OrderID: o.ID, ClientID: o.ClientID, Amount: testutil.Dec("0")}, domain.ErrInvalidAmount},
		{"bad mode", payment.CreateRequest{OrderID: o.ID, ClientID: o.ClientID, Amount: testutil.Dec("10"), Mode: "wire"}, domain.ErrInvalidPaymentMode},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := l.Payments.Create(ctx, tc.req)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}

	assert.True(t, testutil.SumActivePayments(t, db, o.ID).IsZero())
	assert.True(t, testutil.RecomputeBalance(t, db, testutil.PrimaryRegisterID).IsZero())
}

func TestCreate_RoutesToArticleTypeRegister(t *testing.T) {
	db := testutil.SetupTestDB(t)
	l := testutil.NewLedger(t, db)
	ctx := context.Background()

	hajj := testutil.SeedRegister(t, db, "Caisse hajj", "0", testutil.StrPtr("hajj"))
	o := testutil.SeedOrderWith(t, db, testutil.OrderSeed{Price: "800", ArticleType: testutil.StrPtr("hajj")})

	v, err := l.Payments.Create(ctx, payment.CreateRequest{OrderID: o.ID, ClientID: o.ClientID, Amount: testutil.Dec("800")})
	require.NoError(t, err)
	assert.Equal(t, hajj.ID, v.RegisterID)

	assert.True(t, testutil.Dec("800").Equal(testutil.RecomputeBalance(t, db, hajj.ID)))
	assert.True(t, testutil.RecomputeBalance(t, db, testutil.PrimaryRegisterID).IsZero())
}

func TestVoid_ConcurrentVoidsDebitOnce(t *testing.T) {
	db := testutil.SetupTestDB(t)
	l := testutil.NewLedger(t, db)
	ctx := context.Background()

	o := testutil.SeedOrder(t, db, "1000")
	v, err := l.Payments.Create(ctx, payment.CreateRequest{OrderID: o.ID, ClientID: o.ClientID, Amount: testutil.Dec("400")})
	require.NoError(t, err)

	const voiders = 8
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		ok     int
		denied int
	)
	for range voiders {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Payments.Void(ctx, v.ID, nil)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else if assert.ErrorIs(t, err, domain.ErrVoucherVoided) {
				denied++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, voiders-1, denied)
	assert.Equal(t, 1, testutil.CountCashTransactions(t, db, v.ID, domain.TransactionTypeDebit))
	assert.True(t, testutil.RecomputeBalance(t, db, testutil.PrimaryRegisterID).IsZero())
}

func TestVoid_AfterRefundIsNotRevalidated(t *testing.T) {
	db := testutil.SetupTestDB(t)
	l := testutil.NewLedger(t, db)
	ctx := context.Background()

	o := testutil.SeedOrder(t, db, "1000")
	v, err := l.Payments.Create(ctx, payment.CreateRequest{OrderID: o.ID, ClientID: o.ClientID, Amount: testutil.Dec("600")})
	require.NoError(t, err)
	_, err = l.Refunds.Create(ctx, refund.CreateRequest{OrderID: o.ID, ClientID: o.ClientID, Amount: testutil.Dec("600")})
	require.NoError(t, err)

	_, err = l.Payments.Void(ctx, v.ID, nil)
	require.NoError(t, err)

	assert.True(t, testutil.SumActivePayments(t, db, o.ID).IsZero())
	assert.True(t, testutil.Dec("-600").Equal(testutil.RecomputeBalance(t, db, testutil.PrimaryRegisterID)))

	_, err = l.Refunds.Create(ctx, refund.CreateRequest{OrderID: o.ID, ClientID: o.ClientID, Amount: testutil.Dec("0.01")})
	assert.ErrorIs(t, err, domain.ErrRefundExceedsPayments)
}

func TestVoid_UnknownVoucher(t *testing.T) {
	db := testutil.SetupTestDB(t)
	l := testutil.NewLedger(t, db)

	_, err := l.Payments.Void(context.Background(), uuid.New(), nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
