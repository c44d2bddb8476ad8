package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"bizledger/internal/core"
)

func newTxCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tx",
		Aliases: []string{"transaction", "transactions"},
		Short:   "Add or list revenue and expense transactions",
	}
	cmd.AddCommand(newTxAddCmd(a), newTxListCmd(a))
	return cmd
}

func newTxAddCmd(a *app) *cobra.Command {
	var typ, date, amount, description, category string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a transaction",
		Example: `  ledgerctl tx add --type expense --amount 12.50 --description "Team lunch" --category Food
  ledgerctl tx add --type revenue --date 2024-01-05 --amount 1200 --description "Invoice 7" --category Sales`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := parseTransactionFlags(typ, date, amount, description, category)
			if err != nil {
				return err
			}
			svc, err := a.ledger(cmd.Context())
			if err != nil {
				return err
			}
			tx, err := svc.AddTransaction(cmd.Context(), in)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), a.format, tx, transactionsTable([]core.Transaction{tx}))
		},
	}

	f := cmd.Flags()
	f.StringVarP(&typ, "type", "t", "", "revenue or expense")
	f.StringVarP(&date, "date", "d", "", "yyyy-MM-dd (default today)")
	f.StringVarP(&amount, "amount", "a", "", "positive amount, for example 12.50")
	f.StringVar(&description, "description", "", "what the transaction was for")
	f.StringVarP(&category, "category", "c", "", "bookkeeping category")
	for _, name := range []string{"type", "amount", "description", "category"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func parseTransactionFlags(typ, date, amount, description, category string) (core.TransactionInput, error) {
	t, err := core.ParseTransactionType(typ)
	if err != nil {
		return core.TransactionInput{}, fmt.Errorf("--type: %w", err)
	}
	d, err := parseDateFlag(date)
	if err != nil {
		return core.TransactionInput{}, fmt.Errorf("--date: %w", err)
	}
	m, err := core.ParseMoney(amount)
	if err != nil {
		return core.TransactionInput{}, fmt.Errorf("--amount: %w", err)
	}
	return core.TransactionInput{
		Type:        t,
		Date:        d,
		Amount:      m,
		Description: description,
		Category:    category,
	}, nil
}

func parseDateFlag(s string) (core.Date, error) {
	if strings.TrimSpace(s) == "" {
		return core.Today(), nil
	}
	return core.ParseDate(s)
}

func newTxListCmd(a *app) *cobra.Command {
	var since string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.ledger(cmd.Context())
			if err != nil {
				return err
			}
			txs := svc.ListTransactions(cmd.Context())
			if since != "" {
				cutoff, err := core.ParseDate(since)
				if err != nil {
					return fmt.Errorf("--since: %w", err)
				}
				txs = core.Since(txs, cutoff)
			}
			if limit > 0 && len(txs) > limit {
				txs = txs[:limit]
			}
			if txs == nil {
				txs = []core.Transaction{}
			}
			return render(cmd.OutOrStdout(), a.format, txs, transactionsTable(txs))
		},
	}
	cmd.Flags().StringVar(&since, "since", "", "only transactions on or after yyyy-MM-dd")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "show at most n transactions")
	return cmd
}

func newEventCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "event",
		Aliases: []string{"events"},
		Short:   "Add or list calendar events",
	}
	cmd.AddCommand(newEventAddCmd(a), newEventListCmd(a))
	return cmd
}

func newEventAddCmd(a *app) *cobra.Command {
	var date, title, description string
	var calendar bool

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record an event",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := parseDateFlag(date)
			if err != nil {
				return fmt.Errorf("--date: %w", err)
			}
			svc, err := a.ledger(cmd.Context())
			if err != nil {
				return err
			}
			ev, err := svc.AddEvent(cmd.Context(), core.EventInput{
				Date:         d,
				Title:        title,
				Description:  description,
				CalendarSync: calendar,
			})
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), a.format, ev, eventsTable([]core.Event{ev}))
		},
	}

	f := cmd.Flags()
	f.StringVarP(&date, "date", "d", "", "yyyy-MM-dd (default today)")
	f.StringVar(&title, "title", "", "event title")
	f.StringVar(&description, "description", "", "optional notes")
	f.BoolVar(&calendar, "calendar", false, "also add the event to Google Calendar")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newEventListCmd(a *app) *cobra.Command {
	var day string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List events in the order they were added",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.ledger(cmd.Context())
			if err != nil {
				return err
			}
			events := svc.ListEvents(cmd.Context())
			if day != "" {
				d, err := core.ParseDate(day)
				if err != nil {
					return fmt.Errorf("--day: %w", err)
				}
				events = core.OnDay(events, d)
			}
			if events == nil {
				events = []core.Event{}
			}
			return render(cmd.OutOrStdout(), a.format, events, eventsTable(events))
		},
	}
	cmd.Flags().StringVar(&day, "day", "", "only events on yyyy-MM-dd")
	return cmd
}
