package fetch

import (
	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// Fetcher performs HTTP retrievals: bounded redirect following, error
// retries, Link-driven pagination and a per-hop metadata trail.
//
// A Fetcher is safe for concurrent use; per-fetch state (visited list,
// attempt counter, trail) is exclusively owned by each in-flight call,
// and the shared separable-field registry is read-only once fetches
// begin.
type Fetcher struct {
	cfg  *internalConfig
	exec *executor
}

// New creates a Fetcher. The transport chain is, innermost first: the
// built-in (or caller-supplied) transport, the optional circuit
// breaker, the optional politeness rate limiter.
func New(opts ...Option) *Fetcher {
	cfg := newConfig(opts...)

	transport := cfg.Transport
	if transport == nil {
		transport = cfg.buildTransport()
	}
	withBreaker := newBreakerTransport(transport, cfg)
	limited := newRateLimitTransport(withBreaker, cfg.RateLimit)

	return &Fetcher{
		cfg:  cfg,
		exec: &executor{transport: limited},
	}
}

// fetchState is the per-fetch working set: trail, diagnostics, delay
// policy and trace span. Exclusively owned by one Fetch call.
type fetchState struct {
	id     string
	trail  *Trail
	diags  *diagnostics
	boff   backoff.BackOff
	span   trace.Span
	logger zerolog.Logger
}

func (f *Fetcher) newFetchState(span trace.Span) *fetchState {
	id := uuid.NewString()
	logger := f.cfg.Logger.With().Str("fetch_id", id).Logger()
	return &fetchState{
		id:     id,
		trail:  &Trail{},
		diags:  &diagnostics{logger: logger},
		boff:   f.cfg.NewBackOff(),
		span:   span,
		logger: logger,
	}
}
