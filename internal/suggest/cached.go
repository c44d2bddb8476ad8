package suggest

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"bizledger/internal/cache"
)

// Cached remembers suggestions per description and collapses concurrent
// requests for the same description into one backend call. Failures are
// not cached.
type Cached struct {
	next    Suggester
	cache   cache.Cache[[]string]
	group   singleflight.Group
	timeout time.Duration
}

var _ Suggester = (*Cached)(nil)

// defaultSharedTimeout bounds a backend call shared by several callers.
const defaultSharedTimeout = 10 * time.Second

type CachedOption func(*Cached)

// WithSharedTimeout bounds the backend call, which runs detached from the
// cancellation of whichever caller started it.
func WithSharedTimeout(d time.Duration) CachedOption {
	return func(c *Cached) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func NewCached(next Suggester, c cache.Cache[[]string], opts ...CachedOption) *Cached {
	cs := &Cached{next: next, cache: c, timeout: defaultSharedTimeout}
	for _, opt := range opts {
		opt(cs)
	}
	return cs
}

func (c *Cached) Suggest(ctx context.Context, description string) ([]string, error) {
	desc, err := cleanDescription(description)
	if err != nil {
		return nil, err
	}
	key := strings.ToLower(desc)

	if cats, ok := c.cache.Get(key); ok {
		return clone(cats), nil
	}

	ch := c.group.DoChan(key, func() (any, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		cats, err := c.next.Suggest(shared, desc)
		if err != nil {
			return nil, err
		}
		c.cache.Set(key, cats)
		return cats, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return clone(res.Val.([]string)), nil
	}
}

func clone(in []string) []string {
	return append([]string{}, in...)
}
