package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/josh-kwaku/agency-ledger/internal/domain"
)

func newNumberingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "numbering",
		Short: "Inspect and allocate document numbers",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "Show every sequence counter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, l, _, err := openLedger(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			counters, err := l.Numbering.List(cmd.Context())
			if err != nil {
				return err
			}
			for _, c := range counters {
				fmt.Fprintf(cmd.OutOrStdout(), "%-16s %-6s %-28s counter=%d reset=%s\n", c.DocumentType, c.Prefix, c.Format, c.Counter, c.ResetInterval)
			}
			return nil
		},
	}

	preview := &cobra.Command{
		Use:   "preview <document-type>",
		Short: "Show the next number without consuming it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, l, _, err := openLedger(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := l.Numbering.Preview(cmd.Context(), documentType(args[0]))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}

	next := &cobra.Command{
		Use:   "next <document-type>",
		Short: "Allocate and print a number, e.g. for a manually issued purchase order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, l, _, err := openLedger(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := l.Numbering.Allocate(cmd.Context(), documentType(args[0]))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}

	cmd.AddCommand(list, preview, next)
	return cmd
}

func documentType(arg string) domain.DocumentType {
	return domain.DocumentType(strings.ToUpper(strings.ReplaceAll(arg, "-", "_")))
}
