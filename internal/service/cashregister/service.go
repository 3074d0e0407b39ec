package cashregister

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/agency-ledger/internal/domain"
	"github.com/josh-kwaku/agency-ledger/internal/logging"
	"github.com/josh-kwaku/agency-ledger/internal/repository"
)

type registerRepo interface {
	Create(ctx context.Context, tx *sql.Tx, reg *domain.CashRegister) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.CashRegister, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.CashRegister, error)
	GetPrimary(ctx context.Context, tx *sql.Tx, lock bool) (*domain.CashRegister, error)
	GetByArticleType(ctx context.Context, tx *sql.Tx, articleType string) (*domain.CashRegister, error)
	List(ctx context.Context) ([]domain.CashRegister, error)
	Update(ctx context.Context, tx *sql.Tx, reg *domain.CashRegister) error
	Delete(ctx context.Context, tx *sql.Tx, id uuid.UUID) error
	IsReferenced(ctx context.Context, tx *sql.Tx, id uuid.UUID) (bool, error)
	Balance(ctx context.Context, id uuid.UUID) (*repository.RegisterBalance, error)
}

type transactionRepo interface {
	Create(ctx context.Context, tx *sql.Tx, t *domain.CashTransaction) error
	List(ctx context.Context, f domain.TransactionFilter) ([]domain.CashTransaction, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// Service mirrors every money movement onto a cash register and keeps the
// register set consistent: exactly one primary, at most one register per
// article type.
type Service struct {
	registers    registerRepo
	transactions transactionRepo
	db           txRunner
}

func NewService(registers registerRepo, transactions transactionRepo, db txRunner) *Service {
	return &Service{registers: registers, transactions: transactions, db: db}
}

// Entry describes one register movement. Amount is always positive; the
// direction comes from RecordCredit or RecordDebit.
type Entry struct {
	RegisterID    uuid.UUID
	Amount        decimal.Decimal
	ReferenceType domain.ReferenceType
	ReferenceID   uuid.UUID
	Description   string
	ActorID       *uuid.UUID
	OccurredAt    time.Time
}

func (s *Service) RecordCredit(ctx context.Context, tx *sql.Tx, e Entry) (*domain.CashTransaction, error) {
	t, err := s.record(ctx, tx, domain.TransactionTypeCredit, e)
	if err != nil {
		return nil, fmt.Errorf("RecordCredit: %w", err)
	}
	return t, nil
}

func (s *Service) RecordDebit(ctx context.Context, tx *sql.Tx, e Entry) (*domain.CashTransaction, error) {
	t, err := s.record(ctx, tx, domain.TransactionTypeDebit, e)
	if err != nil {
		return nil, fmt.Errorf("RecordDebit: %w", err)
	}
	return t, nil
}

func (s *Service) record(ctx context.Context, tx *sql.Tx, typ domain.TransactionType, e Entry) (*domain.CashTransaction, error) {
	if err := domain.ValidateAmount(e.Amount); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	occurred := e.OccurredAt
	if occurred.IsZero() {
		occurred = now
	}
	t := &domain.CashTransaction{
		ID:            uuid.New(),
		RegisterID:    e.RegisterID,
		Type:          typ,
		Amount:        e.Amount,
		ReferenceType: e.ReferenceType,
		ReferenceID:   e.ReferenceID,
		Description:   e.Description,
		ActorID:       e.ActorID,
		OccurredAt:    occurred,
		CreatedAt:     now,
	}
	if err := s.transactions.Create(ctx, tx, t); err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Debug("cash transaction recorded",
		"transaction_id", t.ID,
		"register_id", t.RegisterID,
		"type", t.Type,
		"amount", t.Amount.StringFixed(domain.MoneyScale),
		"reference_type", t.ReferenceType,
		"reference_id", t.ReferenceID,
	)
	return t, nil
}

// Route picks the register that receives movements for an order: the one
// bound to the order's article type if any, otherwise the primary register.
func (s *Service) Route(ctx context.Context, tx *sql.Tx, articleType *string) (*domain.CashRegister, error) {
	if articleType != nil && *articleType != "" {
		reg, err := s.registers.GetByArticleType(ctx, tx, *articleType)
		if err == nil {
			return reg, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("Route: %w", err)
		}
	}

	reg, err := s.registers.GetPrimary(ctx, tx, false)
	if err != nil {
		return nil, fmt.Errorf("Route: %w", err)
	}
	return reg, nil
}

func (s *Service) Balance(ctx context.Context, registerID uuid.UUID) (*repository.RegisterBalance, error) {
	b, err := s.registers.Balance(ctx, registerID)
	if err != nil {
		return nil, fmt.Errorf("Balance: %w", err)
	}
	return b, nil
}

// ListTransactions lists register movements oldest first. The date bounds
// are whole days, so a transaction on To is included.
func (s *Service) ListTransactions(ctx context.Context, f domain.TransactionFilter) ([]domain.CashTransaction, error) {
	if f.Type != nil && !f.Type.IsValid() {
		return nil, fmt.Errorf("ListTransactions: %w", domain.ErrInvalidTransactionType)
	}
	if f.From != nil {
		from := domain.DateOf(*f.From)
		f.From = &from
	}
	if f.To != nil {
		to := domain.DateOf(*f.To)
		f.To = &to
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return nil, fmt.Errorf("ListTransactions: %w", &domain.ValidationError{Field: "date_to", Message: "must not be before date_from"})
	}
	txs, err := s.transactions.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("ListTransactions: %w", err)
	}
	return txs, nil
}

func (s *Service) GetRegister(ctx context.Context, id uuid.UUID) (*domain.CashRegister, error) {
	reg, err := s.registers.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("GetRegister: %w", err)
	}
	return reg, nil
}

func (s *Service) ListRegisters(ctx context.Context) ([]domain.CashRegister, error) {
	regs, err := s.registers.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListRegisters: %w", err)
	}
	return regs, nil
}

type CreateRegisterRequest struct {
	Name           string
	OpeningBalance decimal.Decimal
	Currency       string
	IsPrimary      bool
	ArticleType    *string
}

// CreateRegister adds a register. The first register ever created becomes
// primary regardless of the request.
func (s *Service) CreateRegister(ctx context.Context, req CreateRegisterRequest) (*domain.CashRegister, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("CreateRegister: %w", domain.ErrInvalidRegisterName)
	}
	if req.OpeningBalance.IsNegative() {
		return nil, fmt.Errorf("CreateRegister: %w", domain.ErrInvalidAmount)
	}
	if !req.OpeningBalance.Equal(domain.Quantize(req.OpeningBalance)) {
		return nil, fmt.Errorf("CreateRegister: %w", domain.ErrAmountPrecision)
	}
	currency := req.Currency
	if currency == "" {
		currency = domain.DefaultCurrency
	}

	now := time.Now().UTC()
	reg := &domain.CashRegister{
		ID:             uuid.New(),
		Name:           name,
		OpeningBalance: req.OpeningBalance,
		Currency:       currency,
		IsPrimary:      req.IsPrimary,
		ArticleType:    normalizeArticleType(req.ArticleType),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := s.registers.GetPrimary(ctx, tx, true)
		switch {
		case errors.Is(err, domain.ErrNoPrimaryRegister):
			reg.IsPrimary = true
		case err != nil:
			return err
		case reg.IsPrimary:
			return domain.ErrPrimaryRegisterExists
		}
		return s.registers.Create(ctx, tx, reg)
	})
	if err != nil {
		return nil, fmt.Errorf("CreateRegister: %w", err)
	}

	logging.FromContext(ctx).Info("cash register created",
		"register_id", reg.ID,
		"name", reg.Name,
		"is_primary", reg.IsPrimary,
	)
	return reg, nil
}

type UpdateRegisterRequest struct {
	Name        *string
	Currency    *string
	IsPrimary   *bool
	ArticleType **string
}

// UpdateRegister edits a register. Marking a register primary moves the flag
// off the current primary in the same transaction. The primary cannot be
// demoted directly; promote another register instead.
func (s *Service) UpdateRegister(ctx context.Context, id uuid.UUID, req UpdateRegisterRequest) (*domain.CashRegister, error) {
	var reg *domain.CashRegister
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		primary, err := s.registers.GetPrimary(ctx, tx, true)
		if err != nil && !errors.Is(err, domain.ErrNoPrimaryRegister) {
			return err
		}

		reg, err = s.registers.GetForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		now := time.Now().UTC()

		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return domain.ErrInvalidRegisterName
			}
			reg.Name = name
		}
		if req.Currency != nil && *req.Currency != "" {
			reg.Currency = *req.Currency
		}
		if req.ArticleType != nil {
			reg.ArticleType = normalizeArticleType(*req.ArticleType)
		}

		if req.IsPrimary != nil {
			switch {
			case !*req.IsPrimary && reg.IsPrimary:
				return domain.ErrPrimaryRegisterRequired
			case *req.IsPrimary && !reg.IsPrimary:
				if primary != nil {
					primary.IsPrimary = false
					primary.UpdatedAt = now
					if err := s.registers.Update(ctx, tx, primary); err != nil {
						return err
					}
				}
				reg.IsPrimary = true
			}
		}

		reg.UpdatedAt = now
		return s.registers.Update(ctx, tx, reg)
	})
	if err != nil {
		return nil, fmt.Errorf("UpdateRegister: %w", err)
	}

	logging.FromContext(ctx).Info("cash register updated",
		"register_id", reg.ID,
		"is_primary", reg.IsPrimary,
	)
	return reg, nil
}

// DeleteRegister removes a register that has never been used. The primary
// register cannot be deleted.
func (s *Service) DeleteRegister(ctx context.Context, id uuid.UUID) error {
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		reg, err := s.registers.GetForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if reg.IsPrimary {
			return domain.ErrPrimaryRegisterRequired
		}
		used, err := s.registers.IsReferenced(ctx, tx, id)
		if err != nil {
			return err
		}
		if used {
			return domain.ErrRegisterInUse
		}
		return s.registers.Delete(ctx, tx, id)
	})
	if err != nil {
		return fmt.Errorf("DeleteRegister: %w", err)
	}

	logging.FromContext(ctx).Info("cash register deleted", "register_id", id)
	return nil
}

func normalizeArticleType(t *string) *string {
	if t == nil {
		return nil
	}
	v := strings.TrimSpace(*t)
	if v == "" {
		return nil
	}
	return &v
}
