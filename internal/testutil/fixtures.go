package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/agency-ledger/internal/domain"
)

var (
	// PrimaryRegisterID is the register seeded by the migrations.
	PrimaryRegisterID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

	ActorID = uuid.MustParse("00000000-0000-0000-0000-0000000000a1")
)

func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// OrderSeed describes an order to insert. Zero fields get sensible defaults.
type OrderSeed struct {
	ClientID    uuid.UUID
	ArticleType *string
	SessionID   *uuid.UUID
	PartySize   int
	Price       string
	Reductions  string
	Taxes       string
}

func SeedOrder(t *testing.T, db *sql.DB, price string) *domain.Order {
	t.Helper()
	return SeedOrderWith(t, db, OrderSeed{Price: price})
}

func SeedOrderWith(t *testing.T, db *sql.DB, s OrderSeed) *domain.Order {
	t.Helper()

	now := time.Now().UTC()
	o := &domain.Order{
		ID:              uuid.New(),
		ClientID:        s.ClientID,
		ArticleID:       uuid.New(),
		ArticleType:     s.ArticleType,
		SessionID:       s.SessionID,
		PartySize:       s.PartySize,
		Price:           Dec(orDefault(s.Price, "0")),
		Reductions:      Dec(orDefault(s.Reductions, "0")),
		OtherReductions: decimal.Zero,
		Taxes:           Dec(orDefault(s.Taxes, "0")),
		Status:          domain.OrderStatusActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if o.ClientID == uuid.Nil {
		o.ClientID = uuid.New()
	}
	if o.PartySize == 0 {
		o.PartySize = 1
	}

	_, err := db.Exec(
		`INSERT INTO orders (id, client_id, article_id, article_type, session_id, party_size,
			price, reductions, other_reductions, taxes, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		o.ID, o.ClientID, o.ArticleID, o.ArticleType, o.SessionID, o.PartySize,
		o.Price, o.Reductions, o.OtherReductions, o.Taxes, o.Status, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return o
}

func SeedSession(t *testing.T, db *sql.DB, capacity int) *domain.Session {
	t.Helper()

	s := &domain.Session{
		ID:        uuid.New(),
		ArticleID: uuid.New(),
		Date:      domain.DateOf(time.Now().AddDate(0, 1, 0)),
		Capacity:  capacity,
		CreatedAt: time.Now().UTC(),
	}
	_, err := db.Exec(
		`INSERT INTO sessions (id, article_id, session_date, capacity, created_at) VALUES ($1, $2, $3, $4, $5)`,
		s.ID, s.ArticleID, s.Date, s.Capacity, s.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed session: %v", err)
	}
	return s
}

func SeedRegister(t *testing.T, db *sql.DB, name, opening string, articleType *string) *domain.CashRegister {
	t.Helper()

	now := time.Now().UTC()
	r := &domain.CashRegister{
		ID:             uuid.New(),
		Name:           name,
		OpeningBalance: Dec(opening),
		Currency:       domain.DefaultCurrency,
		ArticleType:    articleType,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	_, err := db.Exec(
		`INSERT INTO cash_registers (id, name, opening_balance, currency, is_primary, article_type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, false, $5, $6, $7)`,
		r.ID, r.Name, r.OpeningBalance, r.Currency, r.ArticleType, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("seed register %s: %v", name, err)
	}
	return r
}

// RecomputeBalance sums a register's movements with its own queries so tests
// do not trust the code under test.
func RecomputeBalance(t *testing.T, db *sql.DB, registerID uuid.UUID) decimal.Decimal {
	t.Helper()

	var opening, credits, debits decimal.Decimal
	if err := db.QueryRow(`SELECT opening_balance FROM cash_registers WHERE id = $1`, registerID).Scan(&opening); err != nil {
		t.Fatalf("opening balance %s: %v", registerID, err)
	}
	if err := db.QueryRow(
		`SELECT COALESCE(SUM(amount), 0) FROM cash_transactions WHERE register_id = $1 AND type = 'credit'`, registerID,
	).Scan(&credits); err != nil {
		t.Fatalf("credits %s: %v", registerID, err)
	}
	if err := db.QueryRow(
		`SELECT COALESCE(SUM(amount), 0) FROM cash_transactions WHERE register_id = $1 AND type = 'debit'`, registerID,
	).Scan(&debits); err != nil {
		t.Fatalf("debits %s: %v", registerID, err)
	}
	return opening.Add(credits).Sub(debits)
}

func CountCashTransactions(t *testing.T, db *sql.DB, referenceID uuid.UUID, typ domain.TransactionType) int {
	t.Helper()

	var n int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM cash_transactions WHERE reference_id = $1 AND type = $2`, referenceID, typ,
	).Scan(&n)
	if err != nil {
		t.Fatalf("count cash transactions for %s: %v", referenceID, err)
	}
	return n
}

func SumActivePayments(t *testing.T, db *sql.DB, orderID uuid.UUID) decimal.Decimal {
	t.Helper()

	var sum decimal.Decimal
	err := db.QueryRow(
		`SELECT COALESCE(SUM(amount), 0) FROM payment_vouchers WHERE order_id = $1 AND state = 'active'`, orderID,
	).Scan(&sum)
	if err != nil {
		t.Fatalf("sum payments for %s: %v", orderID, err)
	}
	return sum
}

func StrPtr(s string) *string { return &s }

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
