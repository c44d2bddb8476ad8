package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"bizledger/internal/core"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 64 << 10

var errBodyTooLarge = errors.New("request body too large")

// RequestBodyParser reads a body once and serves fields from either a JSON
// object or form-encoded data.
type RequestBodyParser struct {
	body     []byte
	jsonData map[string]any
	formData url.Values
	err      error
}

func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if p.err == nil && len(p.body) > maxBodyBytes {
		p.err = errBodyTooLarge
	}
	if p.err != nil {
		return p
	}

	trimmed := bytes.TrimSpace(p.body)
	switch {
	case len(trimmed) == 0:
		p.formData = url.Values{}
	case trimmed[0] == '{':
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		if err := dec.Decode(&p.jsonData); err != nil {
			p.err = fmt.Errorf("malformed JSON body: %w", err)
		}
	default:
		p.formData, p.err = url.ParseQuery(string(trimmed))
	}
	return p
}

func (p *RequestBodyParser) Err() error {
	return p.err
}

// Get returns a field as text. JSON numbers keep their literal form so
// amounts are not rounded through float64.
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		switch v := p.jsonData[key].(type) {
		case string:
			return v
		case json.Number:
			return v.String()
		case bool:
			return strconv.FormatBool(v)
		default:
			return ""
		}
	}
	return p.formData.Get(key)
}

// GetBool accepts JSON booleans and the usual form spellings ("on", "true", "1").
func (p *RequestBodyParser) GetBool(key string) bool {
	switch strings.ToLower(strings.TrimSpace(p.Get(key))) {
	case "true", "on", "1", "yes":
		return true
	default:
		return false
	}
}

// ParseTransactionInput builds an unsaved transaction from the body. Errors
// name the offending field.
func (p *RequestBodyParser) ParseTransactionInput() (core.TransactionInput, error) {
	var in core.TransactionInput

	typ, err := core.ParseTransactionType(p.Get("type"))
	if err != nil {
		return in, &core.ValidationError{Field: "type", Err: err}
	}
	date, err := core.ParseDate(p.Get("date"))
	if err != nil {
		return in, &core.ValidationError{Field: "date", Err: err}
	}
	amount, err := core.ParseMoney(p.Get("amount"))
	if err != nil {
		return in, &core.ValidationError{Field: "amount", Err: err}
	}

	in.Type = typ
	in.Date = date
	in.Amount = amount
	in.Description = p.Get("description")
	in.Category = p.Get("category")
	return in, nil
}

func (p *RequestBodyParser) ParseEventInput() (core.EventInput, error) {
	var in core.EventInput

	date, err := core.ParseDate(p.Get("date"))
	if err != nil {
		return in, &core.ValidationError{Field: "date", Err: err}
	}
	in.Date = date
	in.Title = p.Get("title")
	in.Description = p.Get("description")
	in.CalendarSync = p.GetBool("addToGoogleCalendar")
	return in, nil
}

// parseDays reads a positive day count from the query, falling back to def.
func parseDays(query url.Values, key string, def, max int) (int, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > max {
		return 0, &core.ValidationError{Field: key, Err: fmt.Errorf("must be a whole number between 1 and %d", max)}
	}
	return n, nil
}

// parseDay reads an optional yyyy-MM-dd query value.
func parseDay(query url.Values, key string) (core.Date, bool, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return core.Date{}, false, nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return core.Date{}, false, &core.ValidationError{Field: key, Err: err}
	}
	return d, true, nil
}
