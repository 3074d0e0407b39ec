package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

func decodeJSON(r *http.Request, dst any) error {
	if r.ContentLength == 0 {
		return nil
	}
	return json.NewDecoder(r.Body).Decode(dst)
}

// pathID parses a uuid path segment. A malformed id is reported as not found,
// the same as an unknown one.
func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		RespondAppError(w, ErrResourceNotFound, nil)
		return uuid.Nil, false
	}
	return id, true
}

func requireAmount(field string, v *decimal.Decimal, errs []FieldError) []FieldError {
	switch {
	case v == nil:
		return append(errs, FieldError{Field: field, Message: "required"})
	case !v.IsPositive():
		return append(errs, FieldError{Field: field, Message: "must be greater than 0"})
	case !v.Equal(v.Round(2)):
		return append(errs, FieldError{Field: field, Message: "must have at most 2 decimal places"})
	}
	return errs
}

func requireID(field string, v *uuid.UUID, errs []FieldError) []FieldError {
	if v == nil || *v == uuid.Nil {
		return append(errs, FieldError{Field: field, Message: "required"})
	}
	return errs
}

func parseDate(field string, v *string, errs []FieldError) (*time.Time, []FieldError) {
	if v == nil || strings.TrimSpace(*v) == "" {
		return nil, errs
	}
	t, err := time.Parse(dateLayout, strings.TrimSpace(*v))
	if err != nil {
		return nil, append(errs, FieldError{Field: field, Message: "must be a date in YYYY-MM-DD format"})
	}
	return &t, errs
}

func queryID(r *http.Request, name string, errs []FieldError) (*uuid.UUID, []FieldError) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, errs
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, append(errs, FieldError{Field: name, Message: "must be a valid uuid"})
	}
	return &id, errs
}

func queryDate(r *http.Request, name string, errs []FieldError) (*time.Time, []FieldError) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, errs
	}
	return parseDate(name, &raw, errs)
}

func queryInt(r *http.Request, name string, errs []FieldError) (int, []FieldError) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, errs
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, append(errs, FieldError{Field: name, Message: "must be a non-negative integer"})
	}
	return n, errs
}
