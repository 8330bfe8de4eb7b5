// Package fetch provides HTTP retrieval orchestration: it performs a
// request, follows redirects under bounded hop and repeat limits,
// retries error statuses, auto-continues paginated resources via
// Link rel=next headers, and records a full per-hop metadata trail.
//
// # Quick start
//
//	fetcher := fetch.New(
//	    fetch.WithLogger(logger),
//	)
//
//	result, err := fetcher.Fetch(ctx, "https://example.org/data",
//	    func(page *fetch.Page) error {
//	        _, err := io.Copy(dst, page.Body)
//	        return err
//	    },
//	)
//
// Only transport-level faults are returned as errors. Redirect loops,
// exhausted retries and 401 responses are soft failures: Fetch returns
// a Result whose Outcome and Trail describe what happened.
//
// # Transport
//
// The fetcher drives an http.RoundTripper directly and never delegates
// redirect following to http.Client, so every hop is observed and
// recorded. By default the built transport accepts any TLS certificate;
// callers needing strict validation supply their own tls.Config or
// RoundTripper.
package fetch

import (
	"crypto/tls"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// scope is the instrumentation scope name for OpenTelemetry.
const scope = "github.com/fetchtrail/fetchtrail-go/fetch"

const (
	// DefaultMaxHops bounds the length of one redirect chain.
	DefaultMaxHops = 5

	// DefaultMaxRepeats bounds visits to one URI within a chain.
	DefaultMaxRepeats = 2

	// DefaultMaxAttempts is the total request budget per chain when a
	// hop answers an error status. One attempt means no retry.
	DefaultMaxAttempts = 1

	// DefaultHopTimeout bounds one exchange including body consumption.
	DefaultHopTimeout = 60 * time.Second
)

// Config holds the HTTP transport tuning parameters for the built-in
// transport. Use DefaultConfig() and modify fields as needed; Config is
// ignored entirely when WithTransport supplies a RoundTripper.
type Config struct {
	// MaxIdleConns caps idle keep-alive connections across all hosts.
	// Default: 100
	MaxIdleConns int

	// MaxIdleConnsPerHost caps idle connections per host. Crawling one
	// origin benefits from values close to MaxIdleConns.
	// Default: 20
	MaxIdleConnsPerHost int

	// MaxConnsPerHost caps total connections per host, protecting the
	// origin being crawled. Zero means unlimited.
	// Default: 100
	MaxConnsPerHost int

	// IdleConnTimeout is how long an idle connection stays pooled.
	// Default: 90s
	IdleConnTimeout time.Duration

	// TLSHandshakeTimeout bounds the TLS handshake.
	// Default: 10s
	TLSHandshakeTimeout time.Duration

	// ExpectContinueTimeout bounds the wait for a "100 Continue".
	// Default: 1s
	ExpectContinueTimeout time.Duration

	// ResponseHeaderTimeout bounds the wait for response headers after
	// the request is written. Zero defers to the per-hop timeout.
	// Default: 0
	ResponseHeaderTimeout time.Duration

	// DialTimeout bounds TCP connection establishment.
	// Default: 5s
	DialTimeout time.Duration

	// KeepAlive is the TCP keep-alive probe interval.
	// Default: 30s
	KeepAlive time.Duration

	// FallbackDelay is the RFC 6555 Happy Eyeballs delay.
	// Default: 300ms
	FallbackDelay time.Duration

	// DisableCompression leaves Accept-Encoding alone so the recorded
	// headers and digest reflect the representation on the wire.
	// Default: true
	DisableCompression bool

	// ForceHTTP2 forces HTTP/2 (requires HTTPS).
	// Default: false
	ForceHTTP2 bool
}

// DefaultConfig returns balanced transport settings for retrieval
// workloads: generous pooling toward a single origin, on-the-wire
// representations (no transparent compression).
func DefaultConfig() Config {
	return Config{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		MaxConnsPerHost:     100,
		IdleConnTimeout:     90 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		DialTimeout:   5 * time.Second,
		KeepAlive:     30 * time.Second,
		FallbackDelay: 300 * time.Millisecond,

		DisableCompression: true,
		ForceHTTP2:         false,
	}
}

// RateLimitConfig configures the optional politeness limiter applied to
// every exchange.
type RateLimitConfig struct {
	// RequestsPerSecond is the maximum sustained exchange rate.
	RequestsPerSecond float64

	// Burst is the number of exchanges allowed in a burst.
	Burst int

	// WaitOnLimit selects waiting for a token (respecting the context
	// deadline) over failing fast with ErrRateLimited.
	WaitOnLimit bool
}

// BreakerConfig configures the optional circuit breaker around the
// transport. The breaker is process-local; its state is never shared
// across processes.
type BreakerConfig struct {
	// MaxRequests allowed through while half-open.
	MaxRequests uint32

	// Interval is the cyclic period for clearing counts while closed.
	Interval time.Duration

	// Timeout is how long the breaker stays open before probing.
	Timeout time.Duration

	// ConsecutiveFailures trips the breaker when reached. Zero disables
	// the consecutive-failure rule.
	ConsecutiveFailures uint32

	// FailureRatio trips the breaker once at least MinRequests have been
	// observed. Zero disables the ratio rule.
	FailureRatio float64

	// MinRequests gates the ratio rule.
	MinRequests uint32

	// OnStateChange is notified of breaker transitions.
	OnStateChange func(name string, from, to gobreaker.State)
}

// internalConfig holds the assembled fetcher configuration.
type internalConfig struct {
	httpConfig Config

	// Transport overrides the built-in transport when non-nil.
	Transport http.RoundTripper

	// TLSConfig for the built-in transport. Nil selects the accept-all
	// default.
	TLSConfig *tls.Config

	ProxyURL             *url.URL
	ProxyFromEnvironment bool

	Logger zerolog.Logger

	// Registry declares the separable header fields.
	Registry *Registry

	// Digester produces the stream hash for the terminal body.
	Digester Digester

	// NewBackOff builds a fresh delay policy per fetch. Per-fetch state
	// is exclusively owned, so policies are never shared.
	NewBackOff func() backoff.BackOff

	RateLimit *RateLimitConfig
	Breaker   *BreakerConfig

	// Fetch defaults, overridable per call.
	MaxHops     int
	MaxRepeats  int
	MaxAttempts int
	HopTimeout  time.Duration

	// DefaultHeaders are applied to every request.
	DefaultHeaders http.Header

	// ServiceName identifies this fetcher in traces and logs.
	ServiceName string

	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	Metrics        *metrics
}

// newConfig creates an internal config with defaults and applies options.
func newConfig(opts ...Option) *internalConfig {
	cfg := &internalConfig{
		httpConfig:           DefaultConfig(),
		ProxyFromEnvironment: true,
		Logger:               zerolog.Nop(),
		Registry:             DefaultRegistry(),
		Digester:             SHA256Digester{},
		NewBackOff:           defaultBackOff,

		MaxHops:     DefaultMaxHops,
		MaxRepeats:  DefaultMaxRepeats,
		MaxAttempts: DefaultMaxAttempts,
		HopTimeout:  DefaultHopTimeout,

		TracerProvider: otel.GetTracerProvider(),
		MeterProvider:  otel.GetMeterProvider(),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	cfg.Tracer = cfg.TracerProvider.Tracer(scope)
	cfg.Meter = cfg.MeterProvider.Meter(scope)
	cfg.Metrics, _ = newMetrics(cfg.Meter)

	return cfg
}

// buildTransport creates the http.Transport from the configuration.
//
// Certificate validation is bypassed by default: retrieval targets in
// the wild routinely present broken chains, and the caller opted into
// that by not supplying a stricter TLS config or transport.
func (cfg *internalConfig) buildTransport() *http.Transport {
	hc := cfg.httpConfig

	dialer := &net.Dialer{
		Timeout:       hc.DialTimeout,
		KeepAlive:     hc.KeepAlive,
		FallbackDelay: hc.FallbackDelay,
	}

	tlsCfg := cfg.TLSConfig
	if tlsCfg == nil {
		tlsCfg = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          hc.MaxIdleConns,
		MaxIdleConnsPerHost:   hc.MaxIdleConnsPerHost,
		MaxConnsPerHost:       hc.MaxConnsPerHost,
		IdleConnTimeout:       hc.IdleConnTimeout,
		TLSHandshakeTimeout:   hc.TLSHandshakeTimeout,
		ResponseHeaderTimeout: hc.ResponseHeaderTimeout,
		ExpectContinueTimeout: hc.ExpectContinueTimeout,
		DisableCompression:    hc.DisableCompression,
		TLSClientConfig:       tlsCfg,
		ForceAttemptHTTP2:     hc.ForceHTTP2,
	}

	if cfg.ProxyURL != nil {
		transport.Proxy = http.ProxyURL(cfg.ProxyURL)
	} else if cfg.ProxyFromEnvironment {
		transport.Proxy = http.ProxyFromEnvironment
	}

	return transport
}

// defaultBackOff is the retry delay policy used when none is configured.
func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 30 * time.Second
	return b
}

// Option configures the Fetcher.
type Option func(*internalConfig)

// WithConfig sets the HTTP transport tuning parameters.
func WithConfig(c Config) Option {
	return func(cfg *internalConfig) {
		cfg.httpConfig = c
	}
}

// WithTransport replaces the built-in transport with the given
// RoundTripper. Rate limiting and the circuit breaker still wrap it.
// Supply a strictly validating transport here when accept-all TLS is
// not acceptable.
func WithTransport(rt http.RoundTripper) Option {
	return func(cfg *internalConfig) {
		cfg.Transport = rt
	}
}

// WithTLSConfig sets the TLS configuration for the built-in transport,
// replacing the accept-all default.
func WithTLSConfig(tlsCfg *tls.Config) Option {
	return func(cfg *internalConfig) {
		cfg.TLSConfig = tlsCfg
	}
}

// WithProxyURL routes all exchanges through the given proxy.
func WithProxyURL(proxyURL *url.URL) Option {
	return func(cfg *internalConfig) {
		cfg.ProxyURL = proxyURL
		cfg.ProxyFromEnvironment = false
	}
}

// WithProxyFromEnvironment toggles HTTP_PROXY/HTTPS_PROXY/NO_PROXY
// handling. Default: enabled.
func WithProxyFromEnvironment(enabled bool) Option {
	return func(cfg *internalConfig) {
		cfg.ProxyFromEnvironment = enabled
	}
}

// WithLogger sets the logger warnings and hop transitions are written
// to. Default: zerolog.Nop().
func WithLogger(l zerolog.Logger) Option {
	return func(cfg *internalConfig) {
		cfg.Logger = l
	}
}

// WithRegistry replaces the separable-field registry. The registry must
// not be mutated once the fetcher is in use.
func WithRegistry(r *Registry) Option {
	return func(cfg *internalConfig) {
		cfg.Registry = r
	}
}

// WithSeparableFields extends the default registry with extra separable
// fields.
func WithSeparableFields(names ...string) Option {
	return func(cfg *internalConfig) {
		cfg.Registry = cfg.Registry.With(names...)
	}
}

// WithDigester replaces the stream-hashing collaborator used to digest
// the terminal body. Default: SHA-256.
func WithDigester(d Digester) Option {
	return func(cfg *internalConfig) {
		cfg.Digester = d
	}
}

// WithRetryBackOff sets the factory for the delay policy applied
// between retry attempts. A fresh policy is built per fetch.
func WithRetryBackOff(factory func() backoff.BackOff) Option {
	return func(cfg *internalConfig) {
		cfg.NewBackOff = factory
	}
}

// WithRateLimit applies a politeness rate limit to every exchange.
func WithRateLimit(rl RateLimitConfig) Option {
	return func(cfg *internalConfig) {
		cfg.RateLimit = &rl
	}
}

// WithBreaker wraps the transport in a circuit breaker.
func WithBreaker(bc BreakerConfig) Option {
	return func(cfg *internalConfig) {
		cfg.Breaker = &bc
	}
}

// WithMaxHops sets the default redirect-chain bound. Default: 5.
func WithMaxHops(n int) Option {
	return func(cfg *internalConfig) {
		cfg.MaxHops = n
	}
}

// WithMaxRepeats sets the default bound on visits to one URI within a
// redirect chain. Default: 2.
func WithMaxRepeats(n int) Option {
	return func(cfg *internalConfig) {
		cfg.MaxRepeats = n
	}
}

// WithMaxAttempts sets the default total request budget per chain when
// hops answer error statuses. One means no retry. Default: 1.
func WithMaxAttempts(n int) Option {
	return func(cfg *internalConfig) {
		cfg.MaxAttempts = n
	}
}

// WithHopTimeout sets the default per-exchange timeout. Default: 60s.
func WithHopTimeout(d time.Duration) Option {
	return func(cfg *internalConfig) {
		cfg.HopTimeout = d
	}
}

// WithDefaultHeader adds a header applied to every request.
func WithDefaultHeader(name, value string) Option {
	return func(cfg *internalConfig) {
		if cfg.DefaultHeaders == nil {
			cfg.DefaultHeaders = make(http.Header)
		}
		cfg.DefaultHeaders.Add(name, value)
	}
}

// WithServiceName identifies this fetcher in traces and log lines.
func WithServiceName(name string) Option {
	return func(cfg *internalConfig) {
		cfg.ServiceName = name
	}
}

// WithTracerProvider sets a custom OpenTelemetry TracerProvider.
// Default: the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(cfg *internalConfig) {
		cfg.TracerProvider = tp
	}
}

// WithMeterProvider sets a custom OpenTelemetry MeterProvider.
// Default: the global provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(cfg *internalConfig) {
		cfg.MeterProvider = mp
	}
}
