package provider

import (
	"context"
	"fmt"

	"marketwatch/internal/market"
	"marketwatch/internal/observ"
)

// Chain is the ordered fallback list of providers for one field. Order
// encodes precedence and is preserved exactly; the chain holds no
// other state.
type Chain struct {
	field     market.Field
	providers []Provider
}

// NewChain binds a field to its providers, most trusted first.
func NewChain(field market.Field, providers ...Provider) Chain {
	ps := make([]Provider, len(providers))
	copy(ps, providers)
	return Chain{field: field, providers: ps}
}

// Field returns the field this chain resolves.
func (c Chain) Field() market.Field { return c.field }

// Len returns the number of providers in the chain.
func (c Chain) Len() int { return len(c.providers) }

// Resolve tries each provider in order and returns the first value,
// short-circuiting the rest. Every call is recorded in the returned
// results; a failing or panicking provider is recorded and skipped,
// and no error ever escapes Resolve.
func (c Chain) Resolve(ctx context.Context) (float64, []Result, bool) {
	results := make([]Result, 0, len(c.providers))
	for _, p := range c.providers {
		v, err := c.attempt(ctx, p)
		if err != nil {
			results = append(results, Result{Provider: p.Name(), Err: err})
			observ.IncCounter("provider_attempts_total", map[string]string{
				"provider": p.Name(),
				"field":    string(c.field),
				"outcome":  string(KindOf(err)),
			})
			continue
		}
		results = append(results, Result{Provider: p.Name(), Value: v, OK: true})
		observ.IncCounter("provider_attempts_total", map[string]string{
			"provider": p.Name(),
			"field":    string(c.field),
			"outcome":  "ok",
		})
		return v, results, true
	}
	return 0, results, false
}

// attempt shields the chain from a misbehaving provider: a panic is
// converted into a typed error.
func (c Chain) attempt(ctx context.Context, p Provider) (v float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &Error{
				Kind:     ErrPanic,
				Provider: p.Name(),
				Field:    c.field,
				Message:  fmt.Sprintf("provider panicked: %v", r),
			}
		}
	}()
	return p.Fetch(ctx, c.field)
}
