package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/josh-kwaku/agency-ledger/internal/domain"
)

func newRegistersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registers",
		Short: "Cash register reports",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List cash registers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, l, _, err := openLedger(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			regs, err := l.Cash.ListRegisters(cmd.Context())
			if err != nil {
				return err
			}
			for _, r := range regs {
				marker := " "
				if r.IsPrimary {
					marker = "*"
				}
				articleType := "-"
				if r.ArticleType != nil {
					articleType = *r.ArticleType
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s  %-24s %-12s %s\n", marker, r.ID, r.Name, articleType, r.Currency)
			}
			return nil
		},
	}

	balance := &cobra.Command{
		Use:   "balance <register-id>",
		Short: "Recompute a register's balance from its transactions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid register id %q: %w", args[0], err)
			}

			db, l, _, err := openLedger(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			b, err := l.Cash.Balance(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "register: %s (%s)\n", b.Register.Name, b.Register.ID)
			fmt.Fprintf(cmd.OutOrStdout(), "opening:  %s %s\n", b.Register.OpeningBalance.StringFixed(domain.MoneyScale), b.Register.Currency)
			fmt.Fprintf(cmd.OutOrStdout(), "credits:  %s\n", b.Credits.StringFixed(domain.MoneyScale))
			fmt.Fprintf(cmd.OutOrStdout(), "debits:   %s\n", b.Debits.StringFixed(domain.MoneyScale))
			fmt.Fprintf(cmd.OutOrStdout(), "balance:  %s\n", b.Balance.StringFixed(domain.MoneyScale))
			return nil
		},
	}

	cmd.AddCommand(list, balance)
	return cmd
}
