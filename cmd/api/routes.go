package main

import (
	"net/http"

	"github.com/josh-kwaku/agency-ledger/internal/app"
	"github.com/josh-kwaku/agency-ledger/internal/handler"
	"github.com/josh-kwaku/agency-ledger/internal/middleware"
)

type routeDeps struct {
	ledger *app.Ledger
	health *handler.HealthHandler
	// api wraps every /api/v1 route.
	api []func(http.Handler) http.Handler
}

func registerRoutes(mux *http.ServeMux, d routeDeps) {
	invoices := handler.NewInvoiceHandler(d.ledger.Invoices)
	vouchers := handler.NewVoucherHandler(d.ledger.Payments, d.ledger.Refunds)
	numbers := handler.NewNumberingHandler(d.ledger.Numbering)
	cash := handler.NewCashRegisterHandler(d.ledger.Cash)
	sessions := handler.NewSessionHandler(d.ledger.Capacity)
	orders := handler.NewOrderHandler(d.ledger.Orders)

	api := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, middleware.Chain(h, d.api...))
	}

	mux.HandleFunc("GET /health", d.health.Liveness)
	mux.HandleFunc("GET /health/ready", d.health.Readiness)

	api("POST /api/v1/invoices/generate/{order_id}", invoices.Generate)
	api("GET /api/v1/invoices", invoices.List)
	api("GET /api/v1/invoices/{id}", invoices.Get)
	api("GET /api/v1/invoices/{id}/payment-info", invoices.PaymentInfo)
	api("POST /api/v1/invoices/{id}/pay", invoices.Pay)
	api("POST /api/v1/invoices/{id}/cancel", invoices.Cancel)

	api("POST /api/v1/payment-vouchers", vouchers.CreatePayment)
	api("GET /api/v1/payment-vouchers/{id}", vouchers.GetPayment)
	api("POST /api/v1/payment-vouchers/{id}/void", vouchers.VoidPayment)
	api("POST /api/v1/refund-vouchers", vouchers.CreateRefund)
	api("GET /api/v1/refund-vouchers/{id}", vouchers.GetRefund)

	api("GET /api/v1/numbering", numbers.List)
	api("GET /api/v1/numbering/preview/{document_type}", numbers.Preview)
	api("PATCH /api/v1/numbering/{document_type}", numbers.Update)

	api("GET /api/v1/cash-registers", cash.List)
	api("POST /api/v1/cash-registers", cash.Create)
	api("PATCH /api/v1/cash-registers/{id}", cash.Update)
	api("DELETE /api/v1/cash-registers/{id}", cash.Delete)
	api("GET /api/v1/cash-registers/{id}/balance", cash.Balance)
	api("GET /api/v1/cash-transactions", cash.ListTransactions)

	api("POST /api/v1/sessions", sessions.Create)
	api("GET /api/v1/sessions", sessions.List)
	api("GET /api/v1/sessions/{id}", sessions.Get)

	api("POST /api/v1/orders", orders.Create)
	api("GET /api/v1/orders/{id}", orders.Get)
	api("POST /api/v1/orders/{id}/cancel", orders.Cancel)
	api("GET /api/v1/orders/{id}/payment-vouchers", vouchers.ListPaymentsByOrder)
	api("GET /api/v1/orders/{id}/refund-vouchers", vouchers.ListRefundsByOrder)
}
