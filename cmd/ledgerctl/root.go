package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/josh-kwaku/agency-ledger/internal/app"
	"github.com/josh-kwaku/agency-ledger/internal/config"
	"github.com/josh-kwaku/agency-ledger/internal/logging"
	"github.com/josh-kwaku/agency-ledger/internal/repository"
)

var version = "dev"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ledgerctl",
		Short: "Operator tooling for the agency ledger",
		Long: `ledgerctl runs maintenance tasks against the ledger database:
schema migrations, document numbering and cash register balances.

Required environment variables (a .env file is read if present):
  DATABASE_URL - Postgres connection string
  JWT_SECRET   - only for the token command`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
			level, _ := cmd.Flags().GetString("log-level")
			logging.Init("ledgerctl", level, "development")
		},
	}
	root.PersistentFlags().String("log-level", "warn", "Log level (debug, info, warn, error)")

	root.AddCommand(newMigrateCmd(), newNumberingCmd(), newRegistersCmd(), newTokenCmd())
	return root
}

// openLedger connects with the database-only settings, so commands work
// without the API's configuration.
func openLedger(ctx context.Context) (*sql.DB, *app.Ledger, *config.DatabaseConfig, error) {
	dbCfg, err := config.LoadDatabase()
	if err != nil {
		return nil, nil, nil, err
	}

	db, err := repository.OpenPostgres(ctx, dbCfg.DatabaseURL, repository.PoolConfig{
		MaxOpenConns: 2,
		MaxIdleConns: 1,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect: %w", err)
	}

	cfg := &config.Config{DatabaseConfig: *dbCfg}
	return db, app.NewLedger(db, cfg, app.Options{}), dbCfg, nil
}

func logger(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}
