package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"bizledger/internal/core"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

func validateFormat(format string) error {
	switch format {
	case formatTable, formatJSON, formatYAML:
		return nil
	default:
		return fmt.Errorf("unknown --format %q (want table, json or yaml)", format)
	}
}

// render writes v as JSON or YAML, or hands w to table for the table format.
func render(w io.Writer, format string, v any, table func(io.Writer) error) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return table(w)
	}
}

// tabular renders rows under header with aligned columns.
func tabular(header string, rows func(tw *tabwriter.Writer)) func(io.Writer) error {
	return func(w io.Writer) error {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, header)
		rows(tw)
		return tw.Flush()
	}
}

func transactionsTable(txs []core.Transaction) func(io.Writer) error {
	return tabular("ID\tDATE\tTYPE\tAMOUNT\tCATEGORY\tDESCRIPTION", func(tw *tabwriter.Writer) {
		for _, t := range txs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
				t.ID, t.Date, t.Type, t.Amount.StringFixed(2), t.Category, t.Description)
		}
	})
}

func eventsTable(events []core.Event) func(io.Writer) error {
	return tabular("ID\tDATE\tTITLE\tCALENDAR\tDESCRIPTION", func(tw *tabwriter.Writer) {
		for _, e := range events {
			cal := ""
			if e.CalendarSync {
				cal = "yes"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.ID, e.Date, e.Title, cal, e.Description)
		}
	})
}

func summaryTable(s core.Summary) func(io.Writer) error {
	return tabular("REVENUE\tEXPENSES\tPROFIT", func(tw *tabwriter.Writer) {
		fmt.Fprintf(tw, "%s\t%s\t%s\n",
			s.Revenue.StringFixed(2), s.Expenses.StringFixed(2), s.Profit.StringFixed(2))
	})
}

func seriesTable(points []core.DailyPoint) func(io.Writer) error {
	return tabular("DATE\tREVENUE\tEXPENSES", func(tw *tabwriter.Writer) {
		for _, p := range points {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", p.Date, p.Revenue.StringFixed(2), p.Expenses.StringFixed(2))
		}
	})
}

func categoriesTable(cats []core.CategoryAmount) func(io.Writer) error {
	return tabular("CATEGORY\tAMOUNT", func(tw *tabwriter.Writer) {
		for _, c := range cats {
			fmt.Fprintf(tw, "%s\t%s\n", c.Name, c.Amount.StringFixed(2))
		}
	})
}
