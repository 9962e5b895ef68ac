package provider

import (
	"context"

	"golang.org/x/time/rate"

	"marketwatch/internal/market"
)

// RateLimited wraps a provider with a token-bucket limiter so a
// rate-limited upstream is never hammered. A depleted bucket fails the
// call immediately instead of blocking the cycle; the chain falls
// through to the next provider.
type RateLimited struct {
	p       Provider
	limiter *rate.Limiter
}

// WithRateLimit caps p at perMinute requests with the given burst.
// Non-positive perMinute returns p unwrapped.
func WithRateLimit(p Provider, perMinute, burst int) Provider {
	if perMinute <= 0 {
		return p
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimited{
		p:       p,
		limiter: rate.NewLimiter(rate.Limit(float64(perMinute)/60), burst),
	}
}

func (r *RateLimited) Name() string { return r.p.Name() }

func (r *RateLimited) Fetch(ctx context.Context, field market.Field) (float64, error) {
	if !r.limiter.Allow() {
		return 0, NewRateLimitError(r.p.Name(), field, "local rate limit exceeded")
	}
	return r.p.Fetch(ctx, field)
}
