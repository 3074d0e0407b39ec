package app

import (
	"database/sql"

	"github.com/josh-kwaku/agency-ledger/internal/config"
	"github.com/josh-kwaku/agency-ledger/internal/repository"
	"github.com/josh-kwaku/agency-ledger/internal/service/capacity"
	"github.com/josh-kwaku/agency-ledger/internal/service/cashregister"
	"github.com/josh-kwaku/agency-ledger/internal/service/invoice"
	"github.com/josh-kwaku/agency-ledger/internal/service/numbering"
	"github.com/josh-kwaku/agency-ledger/internal/service/order"
	"github.com/josh-kwaku/agency-ledger/internal/service/payment"
	"github.com/josh-kwaku/agency-ledger/internal/service/refund"
)

// Ledger holds every service built over one database pool.
type Ledger struct {
	DB        *repository.DB
	Numbering *numbering.Allocator
	Capacity  *capacity.Tracker
	Cash      *cashregister.Service
	Payments  *payment.Service
	Refunds   *refund.Service
	Invoices  *invoice.Service
	Orders    *order.Service
}

type Options struct {
	Numbering []numbering.Option
	Invoice   []invoice.Option
	DB        []repository.Option
}

func NewLedger(pool *sql.DB, cfg *config.Config, opts Options) *Ledger {
	dbOpts := append([]repository.Option{repository.WithTxRetries(cfg.TxMaxRetries)}, opts.DB...)
	db := repository.NewDB(pool, dbOpts...)

	sequences := repository.NewSequenceRepository(pool)
	sessions := repository.NewSessionRepository(pool)
	orders := repository.NewOrderRepository(pool)
	invoices := repository.NewInvoiceRepository(pool)
	vouchers := repository.NewPaymentVoucherRepository(pool)
	refundVouchers := repository.NewRefundVoucherRepository(pool)
	registers := repository.NewCashRegisterRepository(pool)
	transactions := repository.NewCashTransactionRepository(pool)

	numbers := numbering.NewAllocator(sequences, db, opts.Numbering...)
	seats := capacity.NewTracker(sessions)
	cash := cashregister.NewService(registers, transactions, db)
	payments := payment.NewService(orders, invoices, vouchers, numbers, cash, db)
	refunds := refund.NewService(orders, vouchers, refundVouchers, numbers, cash, db)
	invoiceSvc := invoice.NewService(orders, invoices, vouchers, refundVouchers, transactions, numbers, payments, db, cfg, opts.Invoice...)
	orderSvc := order.NewService(orders, seats, invoiceSvc, refunds, db)

	return &Ledger{
		DB:        db,
		Numbering: numbers,
		Capacity:  seats,
		Cash:      cash,
		Payments:  payments,
		Refunds:   refunds,
		Invoices:  invoiceSvc,
		Orders:    orderSvc,
	}
}
