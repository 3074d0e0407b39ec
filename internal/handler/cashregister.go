package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/agency-ledger/internal/domain"
	"github.com/josh-kwaku/agency-ledger/internal/logging"
	"github.com/josh-kwaku/agency-ledger/internal/repository"
	"github.com/josh-kwaku/agency-ledger/internal/service/cashregister"
)

type cashService interface {
	ListRegisters(ctx context.Context) ([]domain.CashRegister, error)
	CreateRegister(ctx context.Context, req cashregister.CreateRegisterRequest) (*domain.CashRegister, error)
	UpdateRegister(ctx context.Context, id uuid.UUID, req cashregister.UpdateRegisterRequest) (*domain.CashRegister, error)
	DeleteRegister(ctx context.Context, id uuid.UUID) error
	Balance(ctx context.Context, registerID uuid.UUID) (*repository.RegisterBalance, error)
	ListTransactions(ctx context.Context, f domain.TransactionFilter) ([]domain.CashTransaction, error)
}

type CashRegisterHandler struct {
	cash cashService
}

func NewCashRegisterHandler(cash cashService) *CashRegisterHandler {
	return &CashRegisterHandler{cash: cash}
}

type createRegisterRequest struct {
	Name           string           `json:"name"`
	OpeningBalance *decimal.Decimal `json:"opening_balance"`
	Currency       string           `json:"currency"`
	IsPrimary      bool             `json:"is_primary"`
	ArticleType    *string          `json:"article_type"`
}

func (r createRegisterRequest) Validate() []FieldError {
	var errs []FieldError
	if r.Name == "" {
		errs = append(errs, FieldError{Field: "name", Message: "required"})
	}
	if r.OpeningBalance != nil && !r.OpeningBalance.Equal(r.OpeningBalance.Round(2)) {
		errs = append(errs, FieldError{Field: "opening_balance", Message: "must have at most 2 decimal places"})
	}
	return errs
}

// updateRegisterRequest distinguishes an absent article_type from an
// explicit null, which unbinds the register.
type updateRegisterRequest struct {
	Name        *string         `json:"name"`
	Currency    *string         `json:"currency"`
	IsPrimary   *bool           `json:"is_primary"`
	ArticleType json.RawMessage `json:"article_type"`
}

func (r updateRegisterRequest) toUpdate() (cashregister.UpdateRegisterRequest, []FieldError) {
	upd := cashregister.UpdateRegisterRequest{Name: r.Name, Currency: r.Currency, IsPrimary: r.IsPrimary}
	if r.ArticleType == nil {
		return upd, nil
	}
	var at *string
	if err := json.Unmarshal(r.ArticleType, &at); err != nil {
		return upd, []FieldError{{Field: "article_type", Message: "must be a string or null"}}
	}
	upd.ArticleType = &at
	return upd, nil
}

func (h *CashRegisterHandler) List(w http.ResponseWriter, r *http.Request) {
	regs, err := h.cash.ListRegisters(r.Context())
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, mapSlice(regs, toCashRegisterDTO))
}

func (h *CashRegisterHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	opening := decimal.Zero
	if req.OpeningBalance != nil {
		opening = *req.OpeningBalance
	}
	reg, err := h.cash.CreateRegister(r.Context(), cashregister.CreateRegisterRequest{
		Name:           req.Name,
		OpeningBalance: opening,
		Currency:       req.Currency,
		IsPrimary:      req.IsPrimary,
		ArticleType:    req.ArticleType,
	})
	if err != nil {
		logging.FromContext(r.Context()).Warn("cash register creation failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/v1/cash-registers/%s", reg.ID))
	RespondSuccess(w, http.StatusCreated, toCashRegisterDTO(reg))
}

func (h *CashRegisterHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req updateRegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	upd, fields := req.toUpdate()
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	reg, err := h.cash.UpdateRegister(r.Context(), id, upd)
	if err != nil {
		logging.FromContext(r.Context()).Warn("cash register update failed", "register_id", id, "error", err)
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toCashRegisterDTO(reg))
}

func (h *CashRegisterHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.cash.DeleteRegister(r.Context(), id); err != nil {
		logging.FromContext(r.Context()).Warn("cash register deletion failed", "register_id", id, "error", err)
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, map[string]uuid.UUID{"id": id})
}

func (h *CashRegisterHandler) Balance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	b, err := h.cash.Balance(r.Context(), id)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toRegisterBalanceDTO(b))
}

func (h *CashRegisterHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	var (
		f    domain.TransactionFilter
		errs []FieldError
	)
	f.RegisterID, errs = queryID(r, "register_id", errs)
	if raw := r.URL.Query().Get("type"); raw != "" {
		typ := domain.TransactionType(raw)
		if !typ.IsValid() {
			errs = append(errs, FieldError{Field: "type", Message: "must be credit or debit"})
		}
		f.Type = &typ
	}
	f.From, errs = queryDate(r, "date_from", errs)
	f.To, errs = queryDate(r, "date_to", errs)
	if len(errs) > 0 {
		RespondValidationError(w, errs)
		return
	}

	txs, err := h.cash.ListTransactions(r.Context(), f)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, mapSlice(txs, toCashTransactionDTO))
}
