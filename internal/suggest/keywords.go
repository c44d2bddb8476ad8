package suggest

import (
	"context"
	"strings"
	"unicode"
)

type keywordRule struct {
	category string
	keywords []string
}

// defaultRules are checked in order; earlier rules rank higher.
var defaultRules = []keywordRule{
	{"Food & Dining", []string{"lunch", "dinner", "breakfast", "restaurant", "coffee", "cafe", "pizza", "catering", "groceries"}},
	{"Travel", []string{"flight", "hotel", "taxi", "uber", "train", "airbnb", "mileage", "parking", "fuel", "gas"}},
	{"Office Supplies", []string{"paper", "printer", "ink", "toner", "stationery", "pens", "office"}},
	{"Software & Subscriptions", []string{"subscription", "saas", "license", "software", "hosting", "domain", "cloud"}},
	{"Utilities", []string{"electric", "electricity", "water", "internet", "phone", "utility"}},
	{"Rent", []string{"rent", "lease", "coworking"}},
	{"Marketing", []string{"ads", "advertising", "marketing", "campaign", "promotion", "flyer"}},
	{"Payroll", []string{"salary", "payroll", "wages", "contractor", "freelancer"}},
	{"Professional Services", []string{"lawyer", "legal", "accountant", "accounting", "consultant", "audit"}},
	{"Equipment", []string{"laptop", "computer", "monitor", "equipment", "hardware", "machine"}},
	{"Taxes & Fees", []string{"tax", "vat", "fee", "fine", "bank charge"}},
	{"Sales", []string{"invoice", "sale", "sold", "client payment", "revenue"}},
	{"Consulting", []string{"consulting", "retainer", "hourly"}},
}

// Keywords matches descriptions against a fixed keyword table. It is used
// when no language model is configured and never fails on a non-empty input.
type Keywords struct {
	rules []keywordRule
}

var _ Suggester = (*Keywords)(nil)

func NewKeywords() *Keywords {
	return &Keywords{rules: defaultRules}
}

func (k *Keywords) Suggest(_ context.Context, description string) ([]string, error) {
	desc, err := cleanDescription(description)
	if err != nil {
		return nil, err
	}
	words := " " + strings.Join(strings.FieldsFunc(strings.ToLower(desc), isSeparator), " ") + " "

	var out []string
	for _, r := range k.rules {
		for _, kw := range r.keywords {
			if strings.Contains(words, " "+kw+" ") || strings.Contains(words, " "+kw+"s ") {
				out = append(out, r.category)
				break
			}
		}
	}
	return normalize(out), nil
}

func isSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '&'
}
