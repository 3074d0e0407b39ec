package handler

import (
	"context"
	"net/http"

	"github.com/josh-kwaku/agency-ledger/internal/domain"
	"github.com/josh-kwaku/agency-ledger/internal/logging"
	"github.com/josh-kwaku/agency-ledger/internal/service/numbering"
)

type numberingService interface {
	List(ctx context.Context) ([]domain.SequenceCounter, error)
	Preview(ctx context.Context, docType domain.DocumentType) (string, error)
	Update(ctx context.Context, docType domain.DocumentType, req numbering.UpdateRequest) (*domain.SequenceCounter, error)
}

type NumberingHandler struct {
	numbers numberingService
}

func NewNumberingHandler(numbers numberingService) *NumberingHandler {
	return &NumberingHandler{numbers: numbers}
}

type updateCounterRequest struct {
	Prefix        *string `json:"prefix"`
	Format        *string `json:"format"`
	ResetInterval *string `json:"reset_interval"`
}

func (h *NumberingHandler) List(w http.ResponseWriter, r *http.Request) {
	counters, err := h.numbers.List(r.Context())
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, mapSlice(counters, toSequenceCounterDTO))
}

func (h *NumberingHandler) Preview(w http.ResponseWriter, r *http.Request) {
	docType := domain.DocumentType(r.PathValue("document_type"))

	next, err := h.numbers.Preview(r.Context(), docType)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, map[string]string{
		"document_type": string(docType),
		"next_number":   next,
	})
}

func (h *NumberingHandler) Update(w http.ResponseWriter, r *http.Request) {
	docType := domain.DocumentType(r.PathValue("document_type"))

	var req updateCounterRequest
	if err := decodeJSON(r, &req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	upd := numbering.UpdateRequest{Prefix: req.Prefix, Format: req.Format}
	if req.ResetInterval != nil {
		ri := domain.ResetInterval(*req.ResetInterval)
		upd.ResetInterval = &ri
	}

	c, err := h.numbers.Update(r.Context(), docType, upd)
	if err != nil {
		logging.FromContext(r.Context()).Warn("sequence counter update failed", "document_type", docType, "error", err)
		RespondDomainError(w, err)
		return
	}
	logging.FromContext(r.Context()).Info("sequence counter updated", "document_type", docType)
	RespondSuccess(w, http.StatusOK, toSequenceCounterDTO(c))
}
