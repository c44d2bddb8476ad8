package core

import (
	"slices"
	"strings"
	"time"
)

// Uncategorized groups expenses recorded without a category.
const Uncategorized = "Uncategorized"

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string `json:"name" yaml:"name"`
	Amount Money  `json:"amount" yaml:"amount"`
}

// Summary is the headline revenue/expense/profit triple.
type Summary struct {
	Revenue  Money `json:"revenue" yaml:"revenue"`
	Expenses Money `json:"expenses" yaml:"expenses"`
	Profit   Money `json:"profit" yaml:"profit"`
}

// DailyPoint is one day of the revenue/expense chart.
type DailyPoint struct {
	Date     Date  `json:"date" yaml:"date"`
	Revenue  Money `json:"revenue" yaml:"revenue"`
	Expenses Money `json:"expenses" yaml:"expenses"`
}

// Dated is implemented by every record that lives on a calendar day.
type Dated interface {
	RecordDate() Date
}

// FinancialSummary totals revenue and expenses. Profit is exactly
// Revenue - Expenses and may be negative.
func FinancialSummary(txs []Transaction) Summary {
	var s Summary
	for _, t := range txs {
		switch t.Type {
		case Revenue:
			s.Revenue = s.Revenue.Add(t.Amount)
		case Expense:
			s.Expenses = s.Expenses.Add(t.Amount)
		}
	}
	s.Profit = s.Revenue.Sub(s.Expenses)
	return s
}

// DailySeries returns one point per day in [end-(windowDays-1), end],
// oldest first. Days without transactions are zero.
func DailySeries(txs []Transaction, windowDays int, end Date) []DailyPoint {
	if windowDays <= 0 {
		return nil
	}
	start := end.AddDays(-(windowDays - 1))
	points := make([]DailyPoint, windowDays)
	for i := range points {
		points[i].Date = start.AddDays(i)
	}
	for _, t := range txs {
		offset := daysBetween(start, t.Date)
		if offset < 0 || offset >= windowDays {
			continue
		}
		p := &points[offset]
		switch t.Type {
		case Revenue:
			p.Revenue = p.Revenue.Add(t.Amount)
		case Expense:
			p.Expenses = p.Expenses.Add(t.Amount)
		}
	}
	return points
}

// daysBetween is exact because Dates are UTC midnights.
func daysBetween(from, to Date) int {
	return int(to.Time.Sub(from.Time) / (24 * time.Hour))
}

// CategoryBreakdown totals expenses per category in order of first appearance.
func CategoryBreakdown(txs []Transaction) []CategoryAmount {
	var out []CategoryAmount
	index := map[string]int{}
	for _, t := range txs {
		if t.Type != Expense {
			continue
		}
		name := strings.TrimSpace(t.Category)
		if name == "" {
			name = Uncategorized
		}
		i, ok := index[name]
		if !ok {
			i = len(out)
			index[name] = i
			out = append(out, CategoryAmount{Name: name})
		}
		out[i].Amount = out[i].Amount.Add(t.Amount)
	}
	return out
}

// OnDay keeps the records dated on day.
func OnDay[T Dated](items []T, day Date) []T {
	var out []T
	for _, it := range items {
		if it.RecordDate().SameDay(day) {
			out = append(out, it)
		}
	}
	return out
}

// Since keeps transactions dated on or after cutoff.
func Since(txs []Transaction, cutoff Date) []Transaction {
	var out []Transaction
	for _, t := range txs {
		if t.Date.Compare(cutoff) >= 0 {
			out = append(out, t)
		}
	}
	return out
}

// TrailingCutoff is the first day of the window of the given length that
// ends with today, so a window of 1 is today alone.
func TrailingCutoff(today Date, days int) Date {
	return today.AddDays(-(days - 1))
}

// SortNewestFirst orders transactions by date descending. Transactions on the
// same day keep their relative order.
func SortNewestFirst(txs []Transaction) {
	slices.SortStableFunc(txs, func(a, b Transaction) int {
		return b.Date.Compare(a.Date)
	})
}
