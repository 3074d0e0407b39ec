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
	"github.com/josh-kwaku/agency-ledger/internal/service/payment"
	"github.com/josh-kwaku/agency-ledger/internal/service/refund"
)

type paymentService interface {
	Create(ctx context.Context, req payment.CreateRequest) (*domain.PaymentVoucher, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.PaymentVoucher, error)
	Void(ctx context.Context, id uuid.UUID, actorID *uuid.UUID) (*domain.PaymentVoucher, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]domain.PaymentVoucher, error)
}

type refundService interface {
	Create(ctx context.Context, req refund.CreateRequest) (*domain.RefundVoucher, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.RefundVoucher, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]domain.RefundVoucher, error)
}

// VoucherHandler serves deposit and refund vouchers.
type VoucherHandler struct {
	payments paymentService
	refunds  refundService
}

func NewVoucherHandler(payments paymentService, refunds refundService) *VoucherHandler {
	return &VoucherHandler{payments: payments, refunds: refunds}
}

type createPaymentVoucherRequest struct {
	OrderID  *uuid.UUID       `json:"order_id"`
	ClientID *uuid.UUID       `json:"client_id"`
	Amount   *decimal.Decimal `json:"amount"`
	Date     *string          `json:"date"`
	Mode     string           `json:"mode"`
}

func (r createPaymentVoucherRequest) Validate() ([]FieldError, *payment.CreateRequest) {
	errs := requireID("order_id", r.OrderID, nil)
	errs = requireID("client_id", r.ClientID, errs)
	errs = requireAmount("amount", r.Amount, errs)
	date, errs := parseDate("date", r.Date, errs)
	if r.Mode != "" && !domain.PaymentMode(r.Mode).IsValid() {
		errs = append(errs, FieldError{Field: "mode", Message: "must be cash or cheque"})
	}
	if len(errs) > 0 {
		return errs, nil
	}
	return nil, &payment.CreateRequest{
		OrderID:  *r.OrderID,
		ClientID: *r.ClientID,
		Amount:   *r.Amount,
		Date:     date,
		Mode:     domain.PaymentMode(r.Mode),
	}
}

type createRefundVoucherRequest struct {
	OrderID  *uuid.UUID       `json:"order_id"`
	ClientID *uuid.UUID       `json:"client_id"`
	Amount   *decimal.Decimal `json:"amount"`
	Reason   *string          `json:"reason"`
	Date     *string          `json:"date"`
}

func (r createRefundVoucherRequest) Validate() ([]FieldError, *refund.CreateRequest) {
	errs := requireID("order_id", r.OrderID, nil)
	errs = requireID("client_id", r.ClientID, errs)
	errs = requireAmount("amount", r.Amount, errs)
	date, errs := parseDate("date", r.Date, errs)
	if len(errs) > 0 {
		return errs, nil
	}
	return nil, &refund.CreateRequest{
		OrderID:  *r.OrderID,
		ClientID: *r.ClientID,
		Amount:   *r.Amount,
		Reason:   r.Reason,
		Date:     date,
	}
}

func (h *VoucherHandler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req createPaymentVoucherRequest
	if err := decodeJSON(r, &req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	fields, createReq := req.Validate()
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}
	createReq.ActorID = auth.ActorPtr(r.Context())

	v, err := h.payments.Create(r.Context(), *createReq)
	if err != nil {
		logging.FromContext(r.Context()).Warn("payment voucher creation failed", "order_id", createReq.OrderID, "error", err)
		RespondDomainError(w, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/v1/payment-vouchers/%s", v.ID))
	RespondSuccess(w, http.StatusCreated, toPaymentVoucherDTO(v))
}

func (h *VoucherHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	v, err := h.payments.Get(r.Context(), id)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toPaymentVoucherDTO(v))
}

func (h *VoucherHandler) VoidPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	v, err := h.payments.Void(r.Context(), id, auth.ActorPtr(r.Context()))
	if err != nil {
		logging.FromContext(r.Context()).Warn("payment voucher void failed", "voucher_id", id, "error", err)
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toPaymentVoucherDTO(v))
}

func (h *VoucherHandler) ListPaymentsByOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	vs, err := h.payments.ListByOrder(r.Context(), orderID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, mapSlice(vs, toPaymentVoucherDTO))
}

func (h *VoucherHandler) CreateRefund(w http.ResponseWriter, r *http.Request) {
	var req createRefundVoucherRequest
	if err := decodeJSON(r, &req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	fields, createReq := req.Validate()
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}
	createReq.ActorID = auth.ActorPtr(r.Context())

	v, err := h.refunds.Create(r.Context(), *createReq)
	if err != nil {
		logging.FromContext(r.Context()).Warn("refund voucher creation failed", "order_id", createReq.OrderID, "error", err)
		RespondDomainError(w, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/v1/refund-vouchers/%s", v.ID))
	RespondSuccess(w, http.StatusCreated, toRefundVoucherDTO(v))
}

func (h *VoucherHandler) GetRefund(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	v, err := h.refunds.Get(r.Context(), id)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toRefundVoucherDTO(v))
}

func (h *VoucherHandler) ListRefundsByOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	vs, err := h.refunds.ListByOrder(r.Context(), orderID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, mapSlice(vs, toRefundVoucherDTO))
}
