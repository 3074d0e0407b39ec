package order_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/agency-ledger/internal/domain"
	"github.com/josh-kwaku/agency-ledger/internal/service/invoice"
	"github.com/josh-kwaku/agency-ledger/internal/service/order"
	"github.com/josh-kwaku/agency-ledger/internal/service/payment"
	"github.com/josh-kwaku/agency-ledger/internal/testutil"
)

func newOrder(clientID uuid.UUID, sessionID *uuid.UUID, party int, price string) order.CreateRequest {
	return order.CreateRequest{
		ClientID:  clientID,
		ArticleID: uuid.New(),
		SessionID: sessionID,
		PartySize: party,
		Price:     testutil.Dec(price),
	}
}

func TestCreate_ReservesSeats(t *testing.T) {
	db := testutil.SetupTestDB(t)
	l := testutil.NewLedger(t, db)
	ctx := context.Background()

	s := testutil.SeedSession(t, db, 10)

	_, err := l.Orders.Create(ctx, newOrder(uuid.New(), &s.ID, 8, "1000"))
	require.NoError(t, err)

	_, err = l.Orders.Create(ctx, newOrder(uuid.New(), &s.ID, 3, "1000"))
	require.ErrorIs(t, err, domain.ErrCapacityExceeded)

	_, err = l.Orders.Create(ctx, newOrder(uuid.New(), &s.ID, 2, "1000"))
	require.NoError(t, err)

	left, err := l.Capacity.Remaining(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, left)
}

func TestCreate_Validation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	l := testutil.NewLedger(t, db)
	ctx := context.Background()

	tests := []struct {
		name    string
		mutate  func(*order.CreateRequest)
		wantErr error
	}{
		{"zero party", func(r *order.CreateRequest) { r.PartySize = 0 }, domain.ErrInvalidPartySize},
		{"negative price", func(r *order.CreateRequest) { r.Price = testutil.Dec("-1") }, domain.ErrInvalidPrice},
		{"price precision", func(r *order.CreateRequest) { r.Price = testutil.Dec("10.001") }, domain.ErrInvalidPrice},
		{"negative taxes", func(r *order.CreateRequest) { r.Taxes = testutil.Dec("-2") }, domain.ErrValidation},
		{"unknown session", func(r *order.CreateRequest) { id := uuid.New(); r.SessionID = &id }, domain.ErrNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := newOrder(uuid.New(), nil, 1, "100")
			tc.mutate(&req)
			_, err := l.Orders.Create(ctx, req)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestCreate_ConcurrentBookingsNeverOversell(t *testing.T) {
	db := testutil.SetupTestDB(t)
	l := testutil.NewLedger(t, db)
	ctx := context.Background()

	s := testutil.SeedSession(t, db, 10)

	const bookers = 15
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		booked   int
		rejected int
	)
	for range bookers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Orders.Create(ctx, newOrder(uuid.New(), &s.ID, 1, "100"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				booked++
			case errors.Is(err, domain.ErrCapacityExceeded):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, booked)
	assert.Equal(t, 5, rejected)

	left, err := l.Capacity.Remaining(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, left)
}

func TestCancel_ReversesMoneyAndSeats(t *testing.T) {
	db := testutil.SetupTestDB(t)
	l := testutil.NewLedger(t, db)
	ctx := context.Background()

	s := testutil.SeedSession(t, db, 10)
	o, err := l.Orders.Create(ctx, newOrder(uuid.New(), &s.ID, 4, "2000"))
	require.NoError(t, err)

	_, err = l.Payments.Create(ctx, payment.CreateRequest{OrderID: o.ID, ClientID: o.ClientID, Amount: testutil.Dec("500")})
	require.NoError(t, err)
	inv, err := l.Invoices.Generate(ctx, o.ID, invoice.GenerateRequest{})
	require.NoError(t, err)
	_, err = l.Invoices.Pay(ctx, inv.Invoice.ID, invoice.PayRequest{Amount: testutil.Dec("700")})
	require.NoError(t, err)

	res, err := l.Orders.Cancel(ctx, o.ID, &testutil.ActorID)
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusCancelled, res.Order.Status)
	require.NotNil(t, res.Invoice)
	assert.Equal(t, domain.InvoiceStatusCancelled, res.Invoice.Status)
	require.NotNil(t, res.Refund)
	assert.True(t, testutil.Dec("1200").Equal(res.Refund.Amount))
	require.NotNil(t, res.RemainingSeats)
	assert.Equal(t, 10, *res.RemainingSeats)

	assert.True(t, testutil.RecomputeBalance(t, db, testutil.PrimaryRegisterID).IsZero())

	_, err = l.Orders.Cancel(ctx, o.ID, nil)
	assert.ErrorIs(t, err, domain.ErrOrderCancelled)

	_, err = l.Payments.Create(ctx, payment.CreateRequest{OrderID: o.ID, ClientID: o.ClientID, Amount: testutil.Dec("1")})
	assert.ErrorIs(t, err, domain.ErrOrderCancelled)
}

func TestCancel_WithoutPaymentsIssuesNoRefund(t *testing.T) {
	db := testutil.SetupTestDB(t)
	l := testutil.NewLedger(t, db)
	ctx := context.Background()

	o, err := l.Orders.Create(ctx, newOrder(uuid.New(), nil, 1, "300"))
	require.NoError(t, err)

	res, err := l.Orders.Cancel(ctx, o.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, res.Refund)
	assert.Nil(t, res.Invoice)
	assert.Nil(t, res.RemainingSeats)

	_, err = l.Orders.Cancel(ctx, uuid.New(), nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCancel_RefundsNetOfEarlierRefunds(t *testing.T) {
	db := testutil.SetupTestDB(t)
	l := testutil.NewLedger(t, db)
	ctx := context.Background()

	o, err := l.Orders.Create(ctx, newOrder(uuid.New(), nil, 1, "1000"))
	require.NoError(t, err)
	v, err := l.Payments.Create(ctx, payment.CreateRequest{OrderID: o.ID, ClientID: o.ClientID, Amount: testutil.Dec("600")})
	require.NoError(t, err)
	_, err = l.Payments.Create(ctx, payment.CreateRequest{OrderID: o.ID, ClientID: o.ClientID, Amount: testutil.Dec("150")})
	require.NoError(t, err)
	_, err = l.Payments.Void(ctx, v.ID, nil)
	require.NoError(t, err)

	res, err := l.Orders.Cancel(ctx, o.ID, nil)
	require.NoError(t, err)
	require.NotNil(t, res.Refund)
	assert.True(t, testutil.Dec("150").Equal(res.Refund.Amount))
	require.NotNil(t, res.Refund.Reason)
	assert.Equal(t, "Order cancelled", *res.Refund.Reason)
}
