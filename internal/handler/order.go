package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/agency-ledger/internal/auth"
	"github.com/josh-kwaku/agency-ledger/internal/domain"
	"github.com/josh-kwaku/agency-ledger/internal/logging"
	"github.com/josh-kwaku/agency-ledger/internal/service/order"
)

type orderService interface {
	Create(ctx context.Context, req order.CreateRequest) (*domain.Order, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	Cancel(ctx context.Context, id uuid.UUID, actorID *uuid.UUID) (*order.CancelResult, error)
}

type OrderHandler struct {
	orders orderService
}

func NewOrderHandler(orders orderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

type createOrderRequest struct {
	ClientID        *uuid.UUID       `json:"client_id"`
	ArticleID       *uuid.UUID       `json:"article_id"`
	ArticleType     *string          `json:"article_type"`
	SessionID       *uuid.UUID       `json:"session_id"`
	PartySize       int              `json:"party_size"`
	Price           *decimal.Decimal `json:"price"`
	Reductions      decimal.Decimal  `json:"reductions"`
	OtherReductions decimal.Decimal  `json:"other_reductions"`
	Taxes           decimal.Decimal  `json:"taxes"`
}

func (r createOrderRequest) Validate() []FieldError {
	errs := requireID("client_id", r.ClientID, nil)
	errs = requireID("article_id", r.ArticleID, errs)
	if r.Price == nil {
		errs = append(errs, FieldError{Field: "price", Message: "required"})
	}
	return errs
}

type cancelOrderDTO struct {
	Order          orderDTO          `json:"order"`
	Invoice        *invoiceDTO       `json:"invoice,omitempty"`
	Refund         *refundVoucherDTO `json:"refund,omitempty"`
	RemainingSeats *int              `json:"remaining_seats,omitempty"`
}

func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	partySize := req.PartySize
	if partySize == 0 {
		partySize = 1
	}
	o, err := h.orders.Create(r.Context(), order.CreateRequest{
		ClientID:        *req.ClientID,
		ArticleID:       *req.ArticleID,
		ArticleType:     req.ArticleType,
		SessionID:       req.SessionID,
		PartySize:       partySize,
		Price:           *req.Price,
		Reductions:      req.Reductions,
		OtherReductions: req.OtherReductions,
		Taxes:           req.Taxes,
	})
	if err != nil {
		logging.FromContext(r.Context()).Warn("order creation failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/v1/orders/%s", o.ID))
	RespondSuccess(w, http.StatusCreated, toOrderDTO(o))
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	o, err := h.orders.Get(r.Context(), id)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toOrderDTO(o))
}

func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	res, err := h.orders.Cancel(r.Context(), id, auth.ActorPtr(r.Context()))
	if err != nil {
		logging.FromContext(r.Context()).Warn("order cancellation failed", "order_id", id, "error", err)
		RespondDomainError(w, err)
		return
	}

	out := cancelOrderDTO{Order: toOrderDTO(&res.Order), RemainingSeats: res.RemainingSeats}
	if res.Invoice != nil {
		inv := toInvoiceDTO(*res.Invoice)
		out.Invoice = &inv
	}
	if res.Refund != nil {
		rv := toRefundVoucherDTO(res.Refund)
		out.Refund = &rv
	}
	RespondSuccess(w, http.StatusOK, out)
}
