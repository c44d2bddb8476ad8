package core

import (
	"encoding/csv"
	"fmt"
	"io"
)

// CSVHeader is the first row of every export.
var CSVHeader = []string{"ID", "Type", "Date", "Amount", "Description", "Category"}

// ExportFilename names the yearly report for the given day.
func ExportFilename(today Date) string {
	return fmt.Sprintf("financial-year-report-%d.csv", today.Year())
}

// WriteCSV writes txs as CSV. Fields containing quotes, commas or line
// breaks are quoted with embedded quotes doubled.
func WriteCSV(w io.Writer, txs []Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, t := range txs {
		row := []string{
			t.ID,
			string(t.Type),
			t.Date.String(),
			t.Amount.String(),
			t.Description,
			t.Category,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %s: %w", t.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
