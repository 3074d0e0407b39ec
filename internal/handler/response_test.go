package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/agency-ledger/internal/domain"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestRespondDomainError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", fmt.Errorf("Get: %w", domain.ErrNotFound), http.StatusNotFound, "RESOURCE_NOT_FOUND"},
		{"amount exceeds remaining", fmt.Errorf("Pay: %w", domain.ErrAmountExceedsRemaining), http.StatusBadRequest, "VALIDATION_FAILED"},
		{"refund exceeds payments", domain.ErrRefundExceedsPayments, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"capacity", fmt.Errorf("Create: %w", domain.ErrCapacityExceeded), http.StatusConflict, "CAPACITY_EXCEEDED"},
		{"voided", domain.ErrVoucherVoided, http.StatusConflict, "VOUCHER_VOIDED"},
		{"retries exhausted", fmt.Errorf("WithTx: %w", domain.ErrSerializationFailure), http.StatusConflict, "CONCURRENT_UPDATE"},
		{"invariant", fmt.Errorf("Pay: %w", domain.ErrInvariantViolation), http.StatusInternalServerError, "INTERNAL_ERROR"},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			RespondDomainError(rec, tc.err)

			assert.Equal(t, tc.wantStatus, rec.Code)
			resp := decode(t, rec)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tc.wantCode, resp.Error.Code)
		})
	}
}

func TestRespondDomainError_ValidationCarriesField(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondDomainError(rec, fmt.Errorf("Create: %w", domain.ErrClientMismatch))

	resp := decode(t, rec)
	details, ok := resp.Error.Details.([]any)
	require.True(t, ok)
	require.Len(t, details, 1)
	assert.Equal(t, "client_id", details[0].(map[string]any)["field"])
}
