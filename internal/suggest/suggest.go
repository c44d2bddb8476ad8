// Package suggest proposes bookkeeping categories for a transaction
// description.
package suggest

import (
	"context"
	"errors"
	"strings"
)

// MaxSuggestions caps how many categories a Suggester returns.
const MaxSuggestions = 5

var (
	ErrEmptyDescription = errors.New("description is required")
	// ErrUnavailable wraps failures of the remote backend. Callers may retry
	// later; no records are affected.
	ErrUnavailable = errors.New("category suggestion unavailable")
)

type Suggester interface {
	Suggest(ctx context.Context, description string) ([]string, error)
}

// normalize trims, drops blanks and case-insensitive duplicates, and caps
// the list at MaxSuggestions while keeping the backend's order.
func normalize(in []string) []string {
	out := make([]string, 0, min(len(in), MaxSuggestions))
	seen := make(map[string]struct{}, len(in))
	for _, c := range in {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		key := strings.ToLower(c)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
		if len(out) == MaxSuggestions {
			break
		}
	}
	return out
}

func cleanDescription(description string) (string, error) {
	d := strings.Join(strings.Fields(description), " ")
	if d == "" {
		return "", ErrEmptyDescription
	}
	return d, nil
}
