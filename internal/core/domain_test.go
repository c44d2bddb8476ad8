package core

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want Date
		ok   bool
	}{
		{"2024-01-05", NewDate(2024, 1, 5), true},
		{"2024-01-05T00:00:00Z", NewDate(2024, 1, 5), true},
		{"2024-01-05T14:23:11.123Z", NewDate(2024, 1, 5), true},
		{"2024-01-05T23:30:00-05:00", NewDate(2024, 1, 5), true},
		{"05/01/2024", Date{}, false},
		{"", Date{}, false},
	}
	for _, tc := range cases {
		got, err := ParseDate(tc.in)
		if tc.ok {
			if err != nil || !got.SameDay(tc.want) {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.want, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestDateJSONRoundTrip(t *testing.T) {
	d := NewDate(2024, 2, 29)
	b, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"2024-02-29T00:00:00Z"` {
		t.Fatalf("unexpected encoding %s", b)
	}
	var back Date
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.SameDay(d) {
		t.Fatalf("round trip changed date: %s -> %s", d, back)
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		Type:        Expense,
		Date:        NewDate(2025, 1, 1),
		Amount:      MustParseMoney("1.00"),
		Description: "ok",
		Category:    "Cat",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []struct {
		tx    Transaction
		field string
		err   error
	}{
		{Transaction{Type: "refund", Date: NewDate(2025, 1, 1), Amount: MustParseMoney("1"), Description: "a", Category: "c"}, "type", ErrInvalidType},
		{Transaction{Type: Expense, Date: Date{}, Amount: MustParseMoney("1"), Description: "a", Category: "c"}, "date", ErrInvalidDate},
		{Transaction{Type: Expense, Date: NewDate(2025, 1, 1), Amount: Money{}, Description: "a", Category: "c"}, "amount", ErrInvalidAmount},
		{Transaction{Type: Revenue, Date: NewDate(2025, 1, 1), Amount: MustParseMoney("1"), Description: "  ", Category: "c"}, "description", ErrEmptyDescription},
		{Transaction{Type: Revenue, Date: NewDate(2025, 1, 1), Amount: MustParseMoney("1"), Description: "a", Category: ""}, "category", ErrEmptyCategory},
	}
	for i, tc := range bads {
		err := tc.tx.Validate()
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("case %d expected ValidationError, got %v", i, err)
		}
		if verr.Field != tc.field || !errors.Is(err, tc.err) {
			t.Fatalf("case %d expected %s/%v, got %s/%v", i, tc.field, tc.err, verr.Field, verr.Err)
		}
	}
}

func TestLongTextIsAccepted(t *testing.T) {
	texts := map[string]string{
		"ascii":     strings.Repeat("x", 1000),
		"multibyte": strings.Repeat("é", 120),
	}
	for name, text := range texts {
		tx := Transaction{Type: Expense, Date: NewDate(2024, 1, 5), Amount: MustParseMoney("50"), Description: text, Category: "Food"}
		if err := tx.Validate(); err != nil {
			t.Errorf("%s description rejected: %v", name, err)
		}
		ev := Event{Date: NewDate(2024, 2, 1), Title: text}
		if err := ev.Validate(); err != nil {
			t.Errorf("%s title rejected: %v", name, err)
		}
	}
}

func TestEventInputBuildDefaultsDescription(t *testing.T) {
	e := EventInput{Title: " Kickoff ", Date: NewDate(2024, 2, 1)}.Build("id-1")
	if e.Description != "" || e.Title != "Kickoff" {
		t.Fatalf("unexpected event %+v", e)
	}
	if err := e.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Event{Date: NewDate(2024, 2, 1)}).Validate(); !errors.Is(err, ErrEmptyTitle) {
		t.Fatalf("expected empty title error, got %v", err)
	}
}

func TestParseTransactionType(t *testing.T) {
	if got, err := ParseTransactionType(" Expense "); err != nil || got != Expense {
		t.Fatalf("expected expense, got %q (err=%v)", got, err)
	}
	if _, err := ParseTransactionType("transfer"); !errors.Is(err, ErrInvalidType) {
		t.Fatalf("expected invalid type, got %v", err)
	}
}
