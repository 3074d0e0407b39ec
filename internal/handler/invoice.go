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
	"github.com/josh-kwaku/agency-ledger/internal/repository"
	"github.com/josh-kwaku/agency-ledger/internal/service/invoice"
)

type invoiceService interface {
	Generate(ctx context.Context, orderID uuid.UUID, req invoice.GenerateRequest) (*invoice.Details, error)
	Get(ctx context.Context, id uuid.UUID) (*invoice.Details, error)
	List(ctx context.Context, f repository.InvoiceFilter) ([]invoice.Details, error)
	GetPaymentInfo(ctx context.Context, id uuid.UUID) (*invoice.PaymentInfo, error)
	Pay(ctx context.Context, id uuid.UUID, req invoice.PayRequest) (*invoice.PayResult, error)
	Cancel(ctx context.Context, id uuid.UUID) (*domain.Invoice, error)
}

type InvoiceHandler struct {
	invoices invoiceService
}

func NewInvoiceHandler(invoices invoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices}
}

type generateInvoiceRequest struct {
	Notes *string `json:"notes"`
}

type payInvoiceRequest struct {
	Amount *decimal.Decimal `json:"amount"`
	Date   *string          `json:"date"`
	Mode   string           `json:"mode"`
}

func (r payInvoiceRequest) Validate() ([]FieldError, *invoice.PayRequest) {
	errs := requireAmount("amount", r.Amount, nil)
	date, errs := parseDate("date", r.Date, errs)
	if r.Mode != "" && !domain.PaymentMode(r.Mode).IsValid() {
		errs = append(errs, FieldError{Field: "mode", Message: "must be cash or cheque"})
	}
	if len(errs) > 0 {
		return errs, nil
	}
	return nil, &invoice.PayRequest{Amount: *r.Amount, Date: date, Mode: domain.PaymentMode(r.Mode)}
}

func (h *InvoiceHandler) Generate(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathID(w, r, "order_id")
	if !ok {
		return
	}

	var req generateInvoiceRequest
	if err := decodeJSON(r, &req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	d, err := h.invoices.Generate(r.Context(), orderID, invoice.GenerateRequest{
		Notes:   req.Notes,
		ActorID: auth.ActorPtr(r.Context()),
	})
	if err != nil {
		logging.FromContext(r.Context()).Warn("invoice generation failed", "order_id", orderID, "error", err)
		RespondDomainError(w, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/v1/invoices/%s", d.Invoice.ID))
	RespondSuccess(w, http.StatusCreated, toInvoiceDTO(d.Invoice).withTotals(d.Paid, d.Remaining))
}

func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	d, err := h.invoices.Get(r.Context(), id)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toInvoiceDTO(d.Invoice).withTotals(d.Paid, d.Remaining))
}

func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		f    repository.InvoiceFilter
		errs []FieldError
	)

	f.OrderID, errs = queryID(r, "order_id", errs)
	if s := r.URL.Query().Get("status"); s != "" {
		st := domain.InvoiceStatus(s)
		f.Status = &st
	}
	f.Limit, errs = queryInt(r, "limit", errs)
	f.Offset, errs = queryInt(r, "offset", errs)
	if len(errs) > 0 {
		RespondValidationError(w, errs)
		return
	}

	list, err := h.invoices.List(r.Context(), f)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	out := make([]invoiceDTO, 0, len(list))
	for _, d := range list {
		out = append(out, toInvoiceDTO(d.Invoice).withTotals(d.Paid, d.Remaining))
	}
	RespondSuccess(w, http.StatusOK, out)
}

type paymentInfoDTO struct {
	Invoice         invoiceDTO           `json:"invoice"`
	PaidAmount      string               `json:"paid_amount"`
	RemainingAmount string               `json:"remaining_amount"`
	Vouchers        []paymentVoucherDTO  `json:"vouchers"`
	Refunds         []refundVoucherDTO   `json:"refunds"`
	Transactions    []cashTransactionDTO `json:"transactions"`
}

func (h *InvoiceHandler) PaymentInfo(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	info, err := h.invoices.GetPaymentInfo(r.Context(), id)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, paymentInfoDTO{
		Invoice:         toInvoiceDTO(info.Invoice).withTotals(info.Paid, info.Remaining),
		PaidAmount:      money(info.Paid),
		RemainingAmount: money(info.Remaining),
		Vouchers:        mapSlice(info.Vouchers, toPaymentVoucherDTO),
		Refunds:         mapSlice(info.Refunds, toRefundVoucherDTO),
		Transactions:    mapSlice(info.Transactions, toCashTransactionDTO),
	})
}

type payResultDTO struct {
	Invoice         invoiceDTO        `json:"invoice"`
	Voucher         paymentVoucherDTO `json:"voucher"`
	PaidAmount      string            `json:"paid_amount"`
	RemainingAmount string            `json:"remaining_amount"`
}

func (h *InvoiceHandler) Pay(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req payInvoiceRequest
	if err := decodeJSON(r, &req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	fields, payReq := req.Validate()
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}
	payReq.ActorID = auth.ActorPtr(r.Context())

	res, err := h.invoices.Pay(r.Context(), id, *payReq)
	if err != nil {
		logging.FromContext(r.Context()).Warn("invoice payment failed", "invoice_id", id, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, payResultDTO{
		Invoice:         toInvoiceDTO(res.Invoice).withTotals(res.Paid, res.Remaining),
		Voucher:         toPaymentVoucherDTO(&res.Voucher),
		PaidAmount:      money(res.Paid),
		RemainingAmount: money(res.Remaining),
	})
}

func (h *InvoiceHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	inv, err := h.invoices.Cancel(r.Context(), id)
	if err != nil {
		logging.FromContext(r.Context()).Warn("invoice cancellation failed", "invoice_id", id, "error", err)
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toInvoiceDTO(*inv))
}
