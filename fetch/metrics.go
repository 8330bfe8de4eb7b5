package fetch

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// metrics holds the metric instruments for fetch operations.
type metrics struct {
	// hops counts exchanges, labeled by status class.
	hops metric.Int64Counter

	// retries counts re-issued attempts after error statuses.
	retries metric.Int64Counter

	// redirects counts followed redirects.
	redirects metric.Int64Counter

	// pages counts consumer invocations.
	pages metric.Int64Counter

	// fetchDuration measures whole-fetch durations, labeled by outcome.
	fetchDuration metric.Float64Histogram

	// hopDuration measures single-exchange wall times.
	hopDuration metric.Float64Histogram
}

// newMetrics creates and registers the metric instruments.
func newMetrics(meter metric.Meter) (*metrics, error) {
	m := &metrics{}
	var err error

	m.hops, err = meter.Int64Counter(
		"fetch.hops",
		metric.WithDescription("Number of HTTP exchanges performed"),
		metric.WithUnit("{exchange}"),
	)
	if err != nil {
		return nil, err
	}

	m.retries, err = meter.Int64Counter(
		"fetch.retries",
		metric.WithDescription("Number of retry attempts after error statuses"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	m.redirects, err = meter.Int64Counter(
		"fetch.redirects",
		metric.WithDescription("Number of redirects followed"),
		metric.WithUnit("{redirect}"),
	)
	if err != nil {
		return nil, err
	}

	m.pages, err = meter.Int64Counter(
		"fetch.pages",
		metric.WithDescription("Number of pages handed to consumers"),
		metric.WithUnit("{page}"),
	)
	if err != nil {
		return nil, err
	}

	m.fetchDuration, err = meter.Float64Histogram(
		"fetch.duration",
		metric.WithDescription("Duration of whole fetches in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(
			0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120,
		),
	)
	if err != nil {
		return nil, err
	}

	m.hopDuration, err = meter.Float64Histogram(
		"fetch.hop.duration",
		metric.WithDescription("Duration of single exchanges in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(
			0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
		),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	case status >= 100:
		return "1xx"
	default:
		return "error"
	}
}

func (m *metrics) recordHop(ctx context.Context, attrs []attribute.KeyValue, status int, walltime time.Duration) {
	if m == nil {
		return
	}
	attrs = append(attrs, attribute.String("status.class", statusClass(status)))
	m.hops.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.hopDuration.Record(ctx, walltime.Seconds(), metric.WithAttributes(attrs...))
}

func (m *metrics) recordRetry(ctx context.Context, attrs []attribute.KeyValue) {
	if m == nil {
		return
	}
	m.retries.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *metrics) recordRedirect(ctx context.Context, attrs []attribute.KeyValue) {
	if m == nil {
		return
	}
	m.redirects.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *metrics) recordPage(ctx context.Context, attrs []attribute.KeyValue) {
	if m == nil {
		return
	}
	m.pages.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *metrics) recordFetch(ctx context.Context, attrs []attribute.KeyValue, outcome Outcome, d time.Duration) {
	if m == nil {
		return
	}
	attrs = append(attrs, attribute.String("outcome", outcome.String()))
	m.fetchDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attrs...))
}

// baseAttributes returns the common attributes for spans and metrics.
func (cfg *internalConfig) baseAttributes() []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 1)
	if cfg.ServiceName != "" {
		attrs = append(attrs, attribute.String("fetch.client.name", cfg.ServiceName))
	}
	return attrs
}
