package fetch

import (
	"net/http"
	"time"
)

// requestSpec is the per-fetch request configuration: the transport
// passthrough (method, body, headers, timeout) plus the chain bounds.
// It is built from the fetcher defaults and per-call FetchOptions, and
// is exclusively owned by one Fetch call.
type requestSpec struct {
	method string
	header http.Header

	// body is captured as bytes so retries re-issue the identical
	// request.
	body []byte

	maxHops     int
	maxRepeats  int
	maxAttempts int
	hopTimeout  time.Duration
}

func (cfg *internalConfig) newRequestSpec(opts []FetchOption) *requestSpec {
	spec := &requestSpec{
		method:      http.MethodGet,
		header:      make(http.Header),
		maxHops:     cfg.MaxHops,
		maxRepeats:  cfg.MaxRepeats,
		maxAttempts: cfg.MaxAttempts,
		hopTimeout:  cfg.HopTimeout,
	}
	for name, values := range cfg.DefaultHeaders {
		for _, v := range values {
			spec.header.Add(name, v)
		}
	}
	for _, opt := range opts {
		opt(spec)
	}
	return spec
}

// FetchOption adjusts a single Fetch call.
type FetchOption func(*requestSpec)

// WithMethod sets the request method. Default: GET. Retries re-issue
// the identical method on the same URI.
func WithMethod(method string) FetchOption {
	return func(s *requestSpec) {
		s.method = method
	}
}

// WithBody sets the request body. The bytes are re-sent unchanged on
// every retry and redirect of the chain.
func WithBody(body []byte) FetchOption {
	return func(s *requestSpec) {
		s.body = body
	}
}

// WithHeader adds a request header for this fetch.
func WithHeader(name, value string) FetchOption {
	return func(s *requestSpec) {
		s.header.Add(name, value)
	}
}

// MaxHops overrides the redirect-chain bound for this fetch.
func MaxHops(n int) FetchOption {
	return func(s *requestSpec) {
		s.maxHops = n
	}
}

// MaxRepeats overrides the per-URI visit bound for this fetch.
func MaxRepeats(n int) FetchOption {
	return func(s *requestSpec) {
		s.maxRepeats = n
	}
}

// MaxAttempts overrides the total attempt budget for this fetch.
func MaxAttempts(n int) FetchOption {
	return func(s *requestSpec) {
		s.maxAttempts = n
	}
}

// HopTimeout overrides the per-exchange timeout for this fetch.
func HopTimeout(d time.Duration) FetchOption {
	return func(s *requestSpec) {
		s.hopTimeout = d
	}
}
