package core

import (
	"encoding/json"
	"testing"
)

func TestParseMoney(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.0", "1", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"0.01", "0.01", true},
		{" 2.50 ", "2.5", true},
		{"-1", "", false},
		{"+1", "", false},
		{"0", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseMoney(tc.in)
		if tc.ok {
			if err != nil || got.String() != tc.out {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestMoneyJSONIsNumber(t *testing.T) {
	b, err := json.Marshal(struct {
		Amount Money `json:"amount"`
	}{MustParseMoney("50.25")})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"amount":50.25}` {
		t.Fatalf("unexpected encoding %s", b)
	}

	var back struct {
		Amount Money `json:"amount"`
	}
	for _, in := range []string{`{"amount":50.25}`, `{"amount":"50.25"}`} {
		if err := json.Unmarshal([]byte(in), &back); err != nil {
			t.Fatalf("unmarshal %s: %v", in, err)
		}
		if !back.Amount.Equal(MustParseMoney("50.25")) {
			t.Fatalf("unexpected amount %s from %s", back.Amount, in)
		}
	}
}

func TestMoneyArithmeticIsExact(t *testing.T) {
	sum := MustParseMoney("0.1").Add(MustParseMoney("0.2"))
	if !sum.Equal(MustParseMoney("0.3")) {
		t.Fatalf("expected 0.3, got %s", sum)
	}
	if got := MustParseMoney("10").Sub(MustParseMoney("60")).String(); got != "-50" {
		t.Fatalf("expected -50, got %s", got)
	}
}
