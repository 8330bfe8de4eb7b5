package fetch

import (
	"errors"
	"net/http"

	"github.com/sony/gobreaker/v2"
)

// errBreakerFailure signals the breaker that an exchange failed (5xx)
// even though RoundTrip returned no error. It is unwrapped before the
// response is handed back.
var errBreakerFailure = errors.New("breaker failure")

// breakerTransport wraps exchanges in a process-local circuit breaker
// so a collapsing origin stops being hammered by retries and further
// pages.
type breakerTransport struct {
	breaker *gobreaker.CircuitBreaker[*http.Response]
	next    http.RoundTripper
}

// newBreakerTransport wraps next per the breaker configuration.
func newBreakerTransport(next http.RoundTripper, cfg *internalConfig) http.RoundTripper {
	if cfg.Breaker == nil {
		return next
	}

	name := cfg.ServiceName
	if name == "" {
		name = "fetchtrail"
	}

	bc := cfg.Breaker
	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: bc.MaxRequests,
		Interval:    bc.Interval,
		Timeout:     bc.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if bc.ConsecutiveFailures > 0 &&
				counts.ConsecutiveFailures >= bc.ConsecutiveFailures {
				return true
			}
			if bc.FailureRatio > 0 && counts.Requests >= bc.MinRequests &&
				counts.TotalFailures > 0 {
				ratio := float64(counts.TotalFailures) / float64(counts.Requests)
				if ratio >= bc.FailureRatio {
					return true
				}
			}
			return false
		},
		OnStateChange: bc.OnStateChange,
	}

	return &breakerTransport{
		breaker: gobreaker.NewCircuitBreaker[*http.Response](st),
		next:    next,
	}
}

// RoundTrip implements http.RoundTripper.
func (t *breakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.breaker.Execute(func() (*http.Response, error) {
		resp, err := t.next.RoundTrip(req) //nolint:bodyclose
		if err != nil {
			return nil, err
		}
		// Server errors count against the breaker; client errors and
		// redirects are the origin behaving normally.
		if resp.StatusCode >= 500 {
			return resp, errBreakerFailure
		}
		return resp, nil
	})
	if errors.Is(err, errBreakerFailure) {
		return resp, nil
	}
	return resp, err
}
