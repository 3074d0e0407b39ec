package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/agency-ledger/internal/domain"
	"github.com/josh-kwaku/agency-ledger/internal/service/capacity"
)

type sessionService interface {
	CreateSession(ctx context.Context, articleID uuid.UUID, date time.Time, capacity int) (*domain.Session, error)
	GetSession(ctx context.Context, id uuid.UUID) (*capacity.Availability, error)
	ListSessions(ctx context.Context, articleID *uuid.UUID) ([]capacity.Availability, error)
}

type SessionHandler struct {
	sessions sessionService
}

func NewSessionHandler(sessions sessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

type createSessionRequest struct {
	ArticleID *uuid.UUID `json:"article_id"`
	Date      *string    `json:"date"`
	Capacity  *int       `json:"capacity"`
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	errs := requireID("article_id", req.ArticleID, nil)
	date, errs := parseDate("date", req.Date, errs)
	if date == nil && len(errs) == 0 {
		errs = append(errs, FieldError{Field: "date", Message: "required"})
	}
	if req.Capacity == nil {
		errs = append(errs, FieldError{Field: "capacity", Message: "required"})
	}
	if len(errs) > 0 {
		RespondValidationError(w, errs)
		return
	}

	s, err := h.sessions.CreateSession(r.Context(), *req.ArticleID, *date, *req.Capacity)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/v1/sessions/%s", s.ID))
	RespondSuccess(w, http.StatusCreated, toSessionDTO(&capacity.Availability{
		Session:   *s,
		Remaining: s.Capacity,
	}))
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	a, err := h.sessions.GetSession(r.Context(), id)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toSessionDTO(a))
}

func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	articleID, errs := queryID(r, "article_id", nil)
	if len(errs) > 0 {
		RespondValidationError(w, errs)
		return
	}
	list, err := h.sessions.ListSessions(r.Context(), articleID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, mapSlice(list, toSessionDTO))
}
