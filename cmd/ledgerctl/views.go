package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"bizledger/internal/backend"
	"bizledger/internal/core"
)

func newSummaryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show total revenue, expenses and profit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.ledger(cmd.Context())
			if err != nil {
				return err
			}
			s := core.FinancialSummary(svc.ListTransactions(cmd.Context()))
			return render(cmd.OutOrStdout(), a.format, s, summaryTable(s))
		},
	}
}

func newSeriesCmd(a *app) *cobra.Command {
	var days int
	var end string

	cmd := &cobra.Command{
		Use:   "series",
		Short: "Show daily revenue and expenses for a trailing window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("days") {
				days = a.cfg.ChartWindowDays
			}
			if days < 1 || days > 366 {
				return fmt.Errorf("--days must be between 1 and 366")
			}
			endDate, err := parseDateFlag(end)
			if err != nil {
				return fmt.Errorf("--end: %w", err)
			}
			svc, err := a.ledger(cmd.Context())
			if err != nil {
				return err
			}
			points := core.DailySeries(svc.ListTransactions(cmd.Context()), days, endDate)
			return render(cmd.OutOrStdout(), a.format, points, seriesTable(points))
		},
	}
	cmd.Flags().IntVar(&days, "days", 30, "window length in days (default CHART_WINDOW_DAYS)")
	cmd.Flags().StringVar(&end, "end", "", "last day of the window, yyyy-MM-dd (default today)")
	return cmd
}

func newCategoriesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "Show expenses per category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.ledger(cmd.Context())
			if err != nil {
				return err
			}
			cats := core.CategoryBreakdown(svc.ListTransactions(cmd.Context()))
			if cats == nil {
				cats = []core.CategoryAmount{}
			}
			return render(cmd.OutOrStdout(), a.format, cats, categoriesTable(cats))
		},
	}
}

func newExportCmd(a *app) *cobra.Command {
	var days int
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the trailing window of transactions as CSV",
		Long: `Writes every transaction dated within the last --days days (inclusive)
as CSV. The file defaults to financial-year-report-<year>.csv; use --out -
for standard output. Nothing is written when the window is empty.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("days") {
				days = a.cfg.ExportWindowDays
			}
			if days < 1 {
				return fmt.Errorf("--days must be positive")
			}
			svc, err := a.ledger(cmd.Context())
			if err != nil {
				return err
			}

			today := core.Today()
			txs := core.Since(svc.ListTransactions(cmd.Context()), core.TrailingCutoff(today, days))
			if len(txs) == 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "No transactions in the last %d days, nothing exported.\n", days)
				return nil
			}

			if out == "" {
				out = core.ExportFilename(today)
			}
			if out == "-" {
				return core.WriteCSV(cmd.OutOrStdout(), txs)
			}
			if err := writeCSVFile(out, txs); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d transactions to %s\n", len(txs), out)
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 365, "trailing window in days (default EXPORT_WINDOW_DAYS)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file, - for stdout")
	return cmd
}

func writeCSVFile(path string, txs []core.Transaction) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return core.WriteCSV(f, txs)
}

func newSuggestCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "suggest <description>",
		Short: "Suggest bookkeeping categories for a description",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := backend.NewSuggester(a.cfg, nil, a.logger)

			ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.SuggestTimeout+5*time.Second)
			defer cancel()

			categories, err := s.Suggest(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), a.format, categories, func(w io.Writer) error {
				if len(categories) == 0 {
					_, err := fmt.Fprintln(w, "(no suggestions)")
					return err
				}
				for _, c := range categories {
					if _, err := fmt.Fprintln(w, c); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}
