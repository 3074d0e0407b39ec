package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/josh-kwaku/agency-ledger/internal/repository"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back schema migrations",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, closeDB, err := migrator(cmd)
			if err != nil {
				return err
			}
			defer closeDB()
			return m.Up()
		},
	}

	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Example: `  # Undo the latest migration
  ledgerctl migrate down --steps 1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, _ := cmd.Flags().GetInt("steps")
			m, closeDB, err := migrator(cmd)
			if err != nil {
				return err
			}
			defer closeDB()
			return m.Down(steps)
		},
	}
	down.Flags().Int("steps", 1, "Number of migrations to roll back; 0 rolls back everything")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, closeDB, err := migrator(cmd)
			if err != nil {
				return err
			}
			defer closeDB()
			v, dirty, err := m.Version()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", v, dirty)
			return nil
		},
	}

	cmd.AddCommand(up, down, versionCmd)
	return cmd
}

func migrator(cmd *cobra.Command) (*repository.Migrator, func(), error) {
	db, _, cfg, err := openLedger(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	m, err := repository.NewMigrator(db, cfg.MigrationsPath, logger(cmd.Context()))
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return m, func() { db.Close() }, nil
}
