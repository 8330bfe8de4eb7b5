package fetch

import (
	"context"
	"errors"
	"net/http"

	"golang.org/x/time/rate"
)

// ErrRateLimited is returned when an exchange is rejected by the
// politeness limiter and WaitOnLimit is disabled.
var ErrRateLimited = errors.New("rate limit exceeded")

// rateLimitTransport throttles exchanges through a token bucket.
// Pagination and redirect chains all pass through it, so the limit
// bounds the fetcher's total request rate against the origin.
type rateLimitTransport struct {
	next    http.RoundTripper
	limiter *rate.Limiter
	wait    bool
}

// newRateLimitTransport wraps next with the configured limiter.
func newRateLimitTransport(next http.RoundTripper, cfg *RateLimitConfig) http.RoundTripper {
	if cfg == nil || cfg.RequestsPerSecond <= 0 {
		return next
	}

	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &rateLimitTransport{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst),
		wait:    cfg.WaitOnLimit,
	}
}

// RoundTrip implements http.RoundTripper.
func (t *rateLimitTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	if t.wait {
		if err := t.limiter.Wait(ctx); err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				return nil, err
			}
			return nil, ErrRateLimited
		}
	} else if !t.limiter.Allow() {
		return nil, ErrRateLimited
	}

	return t.next.RoundTrip(req)
}
