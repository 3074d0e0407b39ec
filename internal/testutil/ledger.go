package testutil

import (
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/josh-kwaku/agency-ledger/internal/app"
	"github.com/josh-kwaku/agency-ledger/internal/config"
)

func Config() *config.Config {
	return &config.Config{
		DatabaseConfig:       config.DatabaseConfig{TxMaxRetries: 10},
		InvoiceDueDays:       30,
		OverdueSweepInterval: time.Hour,
		IdempotencyTTL:       time.Hour,
	}
}

// NewLedger wires every service over db with test defaults.
func NewLedger(t *testing.T, db *sql.DB, opts ...func(*app.Options)) *app.Ledger {
	t.Helper()
	var o app.Options
	for _, f := range opts {
		f(&o)
	}
	return app.NewLedger(db, Config(), o)
}

func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
