package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/josh-kwaku/agency-ledger/internal/app"
	"github.com/josh-kwaku/agency-ledger/internal/handler"
	"github.com/josh-kwaku/agency-ledger/internal/middleware"
)

func TestRegisterRoutes(t *testing.T) {
	mux := http.NewServeMux()
	assert.NotPanics(t, func() {
		registerRoutes(mux, routeDeps{
			ledger: &app.Ledger{},
			health: handler.NewHealthHandler(nil, nil),
			api:    []func(http.Handler) http.Handler{middleware.Auth("secret")},
		})
	})

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/api/v1/invoices", http.StatusUnauthorized},
		{http.MethodPost, "/api/v1/invoices/generate/5b1f", http.StatusUnauthorized},
		{http.MethodGet, "/api/v1/numbering/preview/INVOICE", http.StatusUnauthorized},
		{http.MethodDelete, "/api/v1/invoices/abc", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/v1/nowhere", http.StatusNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}
