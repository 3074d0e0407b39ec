package cashregister_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/agency-ledger/internal/domain"
	"github.com/josh-kwaku/agency-ledger/internal/repository"
	"github.com/josh-kwaku/agency-ledger/internal/service/cashregister"
	"github.com/josh-kwaku/agency-ledger/internal/testutil"
)

func setupRegisters(t *testing.T, db *sql.DB) (*cashregister.Service, *repository.DB) {
	t.Helper()
	txdb := repository.NewDB(db)
	return cashregister.NewService(
		repository.NewCashRegisterRepository(db),
		repository.NewCashTransactionRepository(db),
		txdb,
	), txdb
}

func record(t *testing.T, svc *cashregister.Service, txdb *repository.DB, typ domain.TransactionType, registerID uuid.UUID, amount string) {
	t.Helper()
	ctx := context.Background()
	err := txdb.WithTx(ctx, func(tx *sql.Tx) error {
		e := cashregister.Entry{
			RegisterID:    registerID,
			Amount:        testutil.Dec(amount),
			ReferenceType: domain.ReferenceTypePaymentVoucher,
			ReferenceID:   uuid.New(),
			ActorID:       &testutil.ActorID,
		}
		var err error
		if typ == domain.TransactionTypeCredit {
			_, err = svc.RecordCredit(ctx, tx, e)
		} else {
			_, err = svc.RecordDebit(ctx, tx, e)
		}
		return err
	})
	require.NoError(t, err)
}

func TestBalance_OpeningPlusCreditsMinusDebits(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc, txdb := setupRegisters(t, db)
	ctx := context.Background()

	reg := testutil.SeedRegister(t, db, "Caisse omra", "1000.00", nil)

	record(t, svc, txdb, domain.TransactionTypeCredit, reg.ID, "250.50")
	record(t, svc, txdb, domain.TransactionTypeCredit, reg.ID, "49.50")
	record(t, svc, txdb, domain.TransactionTypeDebit, reg.ID, "100.00")

	b, err := svc.Balance(ctx, reg.ID)
	require.NoError(t, err)
	assert.True(t, testutil.Dec("300.00").Equal(b.Credits))
	assert.True(t, testutil.Dec("100.00").Equal(b.Debits))
	assert.True(t, testutil.Dec("1200.00").Equal(b.Balance), "got %s", b.Balance)
	assert.True(t, b.Balance.Equal(testutil.RecomputeBalance(t, db, reg.ID)))

	credit := domain.TransactionTypeCredit
	txs, err := svc.ListTransactions(ctx, domain.TransactionFilter{RegisterID: &reg.ID, Type: &credit})
	require.NoError(t, err)
	assert.Len(t, txs, 2)
}

func TestRecord_RejectsNonPositiveAmounts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc, txdb := setupRegisters(t, db)
	ctx := context.Background()

	for _, amount := range []string{"0", "-5.00", "1.001"} {
		err := txdb.WithTx(ctx, func(tx *sql.Tx) error {
			_, err := svc.RecordCredit(ctx, tx, cashregister.Entry{
				RegisterID:    testutil.PrimaryRegisterID,
				Amount:        testutil.Dec(amount),
				ReferenceType: domain.ReferenceTypeInvoice,
				ReferenceID:   uuid.New(),
			})
			return err
		})
		assert.ErrorIs(t, err, domain.ErrValidation, amount)
	}

	b, err := svc.Balance(ctx, testutil.PrimaryRegisterID)
	require.NoError(t, err)
	assert.True(t, b.Credits.IsZero())
}

func TestCashTransactions_AreAppendOnly(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc, txdb := setupRegisters(t, db)

	record(t, svc, txdb, domain.TransactionTypeCredit, testutil.PrimaryRegisterID, "10.00")

	_, err := db.Exec(`UPDATE cash_transactions SET amount = 1`)
	assert.Error(t, err)
	_, err = db.Exec(`DELETE FROM cash_transactions`)
	assert.Error(t, err)

	assert.True(t, testutil.Dec("10.00").Equal(testutil.RecomputeBalance(t, db, testutil.PrimaryRegisterID)))
}

func TestRoute(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc, _ := setupRegisters(t, db)
	ctx := context.Background()

	omra := testutil.SeedRegister(t, db, "Caisse omra", "0", testutil.StrPtr("omra"))

	tests := []struct {
		name        string
		articleType *string
		want        uuid.UUID
	}{
		{"bound article type", testutil.StrPtr("omra"), omra.ID},
		{"unbound article type", testutil.StrPtr("hajj"), testutil.PrimaryRegisterID},
		{"no article type", nil, testutil.PrimaryRegisterID},
		{"blank article type", testutil.StrPtr(""), testutil.PrimaryRegisterID},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			reg, err := svc.Route(ctx, nil, tc.articleType)
			require.NoError(t, err)
			assert.Equal(t, tc.want, reg.ID)
		})
	}
}

func TestPrimaryRegister_ExactlyOne(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc, _ := setupRegisters(t, db)
	ctx := context.Background()

	_, err := svc.CreateRegister(ctx, cashregister.CreateRegisterRequest{Name: "Second", IsPrimary: true})
	require.ErrorIs(t, err, domain.ErrPrimaryRegisterExists)

	second, err := svc.CreateRegister(ctx, cashregister.CreateRegisterRequest{Name: "Second", OpeningBalance: decimal.Zero})
	require.NoError(t, err)
	assert.False(t, second.IsPrimary)
	assert.Equal(t, domain.DefaultCurrency, second.Currency)

	demote := false
	_, err = svc.UpdateRegister(ctx, testutil.PrimaryRegisterID, cashregister.UpdateRegisterRequest{IsPrimary: &demote})
	require.ErrorIs(t, err, domain.ErrPrimaryRegisterRequired)

	promote := true
	updated, err := svc.UpdateRegister(ctx, second.ID, cashregister.UpdateRegisterRequest{IsPrimary: &promote})
	require.NoError(t, err)
	assert.True(t, updated.IsPrimary)

	old, err := svc.GetRegister(ctx, testutil.PrimaryRegisterID)
	require.NoError(t, err)
	assert.False(t, old.IsPrimary)

	var primaries int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM cash_registers WHERE is_primary`).Scan(&primaries))
	assert.Equal(t, 1, primaries)

	err = svc.DeleteRegister(ctx, second.ID)
	assert.ErrorIs(t, err, domain.ErrPrimaryRegisterRequired)
}

func TestCreateRegister_FirstBecomesPrimary(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc, _ := setupRegisters(t, db)
	ctx := context.Background()

	_, err := db.Exec(`DELETE FROM cash_registers`)
	require.NoError(t, err)

	reg, err := svc.CreateRegister(ctx, cashregister.CreateRegisterRequest{Name: "Caisse"})
	require.NoError(t, err)
	assert.True(t, reg.IsPrimary)
}

func TestCreateRegister_Conflicts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc, _ := setupRegisters(t, db)
	ctx := context.Background()

	_, err := svc.CreateRegister(ctx, cashregister.CreateRegisterRequest{Name: "Caisse omra", ArticleType: testutil.StrPtr("omra")})
	require.NoError(t, err)

	_, err = svc.CreateRegister(ctx, cashregister.CreateRegisterRequest{Name: "Caisse omra"})
	assert.ErrorIs(t, err, domain.ErrDuplicateRegisterName)

	_, err = svc.CreateRegister(ctx, cashregister.CreateRegisterRequest{Name: "Omra bis", ArticleType: testutil.StrPtr("omra")})
	assert.ErrorIs(t, err, domain.ErrArticleTypeBound)

	_, err = svc.CreateRegister(ctx, cashregister.CreateRegisterRequest{Name: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidRegisterName)

	_, err = svc.CreateRegister(ctx, cashregister.CreateRegisterRequest{Name: "Neg", OpeningBalance: testutil.Dec("-1")})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestDeleteRegister(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc, txdb := setupRegisters(t, db)
	ctx := context.Background()

	unused := testutil.SeedRegister(t, db, "Unused", "0", nil)
	used := testutil.SeedRegister(t, db, "Used", "0", nil)
	record(t, svc, txdb, domain.TransactionTypeCredit, used.ID, "5.00")

	require.NoError(t, svc.DeleteRegister(ctx, unused.ID))
	_, err := svc.GetRegister(ctx, unused.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = svc.DeleteRegister(ctx, used.ID)
	assert.ErrorIs(t, err, domain.ErrRegisterInUse)
}

func TestListTransactions_DateRangeIncludesWholeLastDay(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc, txdb := setupRegisters(t, db)
	ctx := context.Background()

	reg := testutil.SeedRegister(t, db, "Caisse omra", "0", nil)
	at := []time.Time{
		time.Date(2026, 1, 30, 23, 59, 59, 0, time.UTC),
		time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 31, 10, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 31, 23, 59, 59, 0, time.UTC),
		time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	err := txdb.WithTx(ctx, func(tx *sql.Tx) error {
		for _, occurred := range at {
			_, err := svc.RecordCredit(ctx, tx, cashregister.Entry{
				RegisterID:    reg.ID,
				Amount:        testutil.Dec("10"),
				ReferenceType: domain.ReferenceTypePaymentVoucher,
				ReferenceID:   uuid.New(),
				OccurredAt:    occurred,
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	day := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	noon := day.Add(12 * time.Hour)
	nextDay := day.AddDate(0, 0, 1)

	tests := []struct {
		name string
		from *time.Time
		to   *time.Time
		want []time.Time
	}{
		{"single day", &day, &day, at[1:4]},
		{"bounds given as timestamps", &noon, &noon, at[1:4]},
		{"open start", nil, &day, at[:4]},
		{"open end", &nextDay, nil, at[4:]},
		{"two days", &day, &nextDay, at[1:]},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			txs, err := svc.ListTransactions(ctx, domain.TransactionFilter{RegisterID: &reg.ID, From: tc.from, To: tc.to})
			require.NoError(t, err)
			require.Len(t, txs, len(tc.want))
			for i, tx := range txs {
				assert.True(t, tc.want[i].Equal(tx.OccurredAt), "got %s", tx.OccurredAt)
			}
		})
	}

	_, err = svc.ListTransactions(ctx, domain.TransactionFilter{From: &nextDay, To: &day})
	assert.ErrorIs(t, err, domain.ErrValidation)
}
