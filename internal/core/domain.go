package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Revenue TransactionType = "revenue"
	Expense TransactionType = "expense"
)

type (
	TransactionType string

	// Date is a calendar date. The wrapped time is always midnight UTC, so
	// two Dates for the same day compare equal regardless of where they came from.
	Date struct {
		time.Time
	}

	Transaction struct {
		ID          string          `json:"id" yaml:"id"`
		Type        TransactionType `json:"type" yaml:"type"`
		Date        Date            `json:"date" yaml:"date"`
		Amount      Money           `json:"amount" yaml:"amount"`
		Description string          `json:"description" yaml:"description"`
		Category    string          `json:"category" yaml:"category"`
	}

	// TransactionInput is a transaction that has not been stored yet.
	TransactionInput struct {
		Type        TransactionType `json:"type" yaml:"type"`
		Date        Date            `json:"date" yaml:"date"`
		Amount      Money           `json:"amount" yaml:"amount"`
		Description string          `json:"description" yaml:"description"`
		Category    string          `json:"category" yaml:"category"`
	}

	// Event is a dated note on the calendar. CalendarSync asks the sync
	// worker to mirror it to Google Calendar.
	Event struct {
		ID           string `json:"id" yaml:"id"`
		Date         Date   `json:"date" yaml:"date"`
		Title        string `json:"title" yaml:"title"`
		Description  string `json:"description" yaml:"description"`
		CalendarSync bool   `json:"addToGoogleCalendar,omitempty" yaml:"addToGoogleCalendar,omitempty"`
	}

	EventInput struct {
		Date         Date   `json:"date" yaml:"date"`
		Title        string `json:"title" yaml:"title"`
		Description  string `json:"description,omitempty" yaml:"description,omitempty"`
		CalendarSync bool   `json:"addToGoogleCalendar,omitempty" yaml:"addToGoogleCalendar,omitempty"`
	}

	// Document is the whole persisted record set.
	Document struct {
		Transactions []Transaction `json:"transactions" yaml:"transactions"`
		Events       []Event       `json:"events" yaml:"events"`
	}
)

var (
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidType      = errors.New("invalid transaction type")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyCategory    = errors.New("empty category")
	ErrEmptyTitle       = errors.New("empty title")
)

// ValidationError reports which field of a record was rejected.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day of t as seen in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// Today returns the current local calendar day.
func Today() Date {
	return DateOf(time.Now())
}

// ParseDate accepts a plain "2006-01-02" day or an ISO-8601 date-time.
// Date-times keep the calendar day of their own offset.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, ErrInvalidDate
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return DateOf(t), nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return DateOf(t), nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// AddDays shifts the date by n calendar days.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// SameDay reports whether both dates fall on the same calendar day.
func (d Date) SameDay(o Date) bool {
	return d.Time.Equal(o.Time)
}

// Compare returns -1, 0 or +1 as d is before, on or after o.
func (d Date) Compare(o Date) int {
	return d.Time.Compare(o.Time)
}

// String formats the date as yyyy-MM-dd.
func (d Date) String() string {
	return d.Format(time.DateOnly)
}

// MarshalJSON encodes the date as an ISO-8601 date-time at midnight UTC.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.UTC().Format(time.RFC3339) + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	switch t {
	case Revenue, Expense:
		return true
	default:
		return false
	}
}

// ParseTransactionType normalises user input such as "Expense " to a type.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
	}
	return t, nil
}

// RecordDate lets transactions be filtered with OnDay.
func (t Transaction) RecordDate() Date { return t.Date }

func (t Transaction) Validate() error {
	if !t.Type.Valid() {
		return invalid("type", ErrInvalidType)
	}
	if err := t.Date.Validate(); err != nil {
		return invalid("date", err)
	}
	if err := t.Amount.Validate(); err != nil {
		return invalid("amount", err)
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return invalid("description", ErrEmptyDescription)
	}
	if strings.TrimSpace(t.Category) == "" {
		return invalid("category", ErrEmptyCategory)
	}
	return nil
}

// Build returns the stored form of the input under the given id.
func (in TransactionInput) Build(id string) Transaction {
	return Transaction{
		ID:          id,
		Type:        in.Type,
		Date:        in.Date,
		Amount:      in.Amount,
		Description: strings.TrimSpace(in.Description),
		Category:    strings.TrimSpace(in.Category),
	}
}

func (e Event) RecordDate() Date { return e.Date }

func (e Event) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return invalid("date", err)
	}
	if strings.TrimSpace(e.Title) == "" {
		return invalid("title", ErrEmptyTitle)
	}
	return nil
}

// Build returns the stored form of the input. A missing description
// becomes the empty string.
func (in EventInput) Build(id string) Event {
	return Event{
		ID:           id,
		Date:         in.Date,
		Title:        strings.TrimSpace(in.Title),
		Description:  strings.TrimSpace(in.Description),
		CalendarSync: in.CalendarSync,
	}
}

// EmptyDocument returns a document whose collections encode as [] rather than null.
func EmptyDocument() Document {
	return Document{Transactions: []Transaction{}, Events: []Event{}}
}

// Normalize replaces nil collections with empty ones.
func (d Document) Normalize() Document {
	if d.Transactions == nil {
		d.Transactions = []Transaction{}
	}
	if d.Events == nil {
		d.Events = []Event{}
	}
	return d
}

// Clone returns a copy that shares no slices with d.
func (d Document) Clone() Document {
	return Document{
		Transactions: append([]Transaction{}, d.Transactions...),
		Events:       append([]Event{}, d.Events...),
	}
}
