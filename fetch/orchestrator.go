package fetch

import (
	"context"
	"io"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Abort reasons reported on Result.Reason.
const (
	// ReasonAuthRequired: a hop answered 401.
	ReasonAuthRequired = "authentication required"

	// ReasonRetriesExhausted: error statuses consumed the attempt budget.
	ReasonRetriesExhausted = "retries exhausted"

	// ReasonHopLimit: the redirect chain reached the hop bound.
	ReasonHopLimit = "redirect hop limit reached"

	// ReasonRepeatLimit: a URI would have been revisited past the
	// repeat bound.
	ReasonRepeatLimit = "redirect repeat limit reached"

	// ReasonMissingLocation: a 3xx response carried no Location, so the
	// chain cannot make progress.
	ReasonMissingLocation = "redirect without Location"
)

// chainResult is the terminal state of one redirect/retry chain.
type chainResult struct {
	outcome Outcome
	reason  string

	// Success only: terminal URI, merged headers and the body stream,
	// whose ownership passes to the caller.
	uri     *url.URL
	status  int
	headers *HeaderMap
	body    io.ReadCloser
}

// runChain drives the executor from the given URI to a terminal state:
// it follows redirects under the hop and repeat bounds, re-issues the
// identical request on error statuses until the attempt budget runs
// out, and aborts immediately on 401. Every exchange appends exactly
// one record to the trail, and abandoned bodies are closed before the
// next exchange.
//
// Protocol-level conditions come back as chainResult outcomes; only
// transport faults return an error.
func (f *Fetcher) runChain(ctx context.Context, uri *url.URL, spec *requestSpec, st *fetchState) (*chainResult, error) {
	// Per-chain state, exclusively owned by this call. The attempt
	// counter spans the whole chain: it is not reset on redirect.
	visited := []string{uri.String()}
	attempts := 1

	for {
		start := time.Now()
		ex, err := f.exec.do(ctx, uri, spec)
		if err != nil {
			st.trail.append(HopRecord{
				URI:      uri,
				Walltime: time.Since(start),
				Err:      err,
			})
			st.logger.Debug().Stringer("uri", uri).Err(err).Msg("transport fault")
			return nil, &TransportError{URI: uri, Err: err}
		}

		headers, warnings := f.cfg.Registry.Merge(ex.rawFields)
		st.diags.warnAll(warnings, uri.String())

		st.trail.append(HopRecord{
			URI:        uri,
			StatusCode: ex.statusCode,
			Headers:    headers,
			ProtoMajor: ex.protoMajor,
			ProtoMinor: ex.protoMinor,
			Walltime:   ex.walltime,
		})
		f.cfg.Metrics.recordHop(ctx, f.cfg.baseAttributes(), ex.statusCode, ex.walltime)
		st.span.AddEvent("hop", trace.WithAttributes(
			attribute.String("url.full", uri.String()),
			attribute.Int("http.response.status_code", ex.statusCode),
		))
		st.logger.Debug().
			Stringer("uri", uri).
			Int("status", ex.statusCode).
			Dur("walltime", ex.walltime).
			Msg("hop")

		switch {
		case ex.statusCode == 401:
			// Credentials will not change by repeating the request.
			ex.discard()
			return &chainResult{outcome: OutcomeAbortedAuth, reason: ReasonAuthRequired}, nil

		case ex.statusCode >= 400 || ex.statusCode < 200:
			// Drain for diagnostics, then either give up or re-issue
			// the identical request on the same URI.
			ex.discard()
			if attempts >= spec.maxAttempts {
				return &chainResult{outcome: OutcomeAbortedRetries, reason: ReasonRetriesExhausted}, nil
			}
			attempts++
			f.cfg.Metrics.recordRetry(ctx, f.cfg.baseAttributes())
			if err := sleep(ctx, retryDelay(st.boff, headers)); err != nil {
				return nil, &TransportError{URI: uri, Err: err}
			}

		case ex.statusCode >= 300:
			// Redirect bodies are never consumed.
			ex.body.Close()

			location, ok := headers.Get("Location")
			if !ok {
				return &chainResult{outcome: OutcomeAbortedLoop, reason: ReasonMissingLocation}, nil
			}
			ref, err := url.Parse(location)
			if err != nil {
				return &chainResult{outcome: OutcomeAbortedLoop, reason: ReasonMissingLocation}, nil
			}
			next := uri.ResolveReference(ref)

			// Both bounds are checked before the next request is
			// issued or the visit recorded.
			if len(visited) >= spec.maxHops {
				return &chainResult{outcome: OutcomeAbortedLoop, reason: ReasonHopLimit}, nil
			}
			if countVisits(visited, next.String()) >= spec.maxRepeats {
				return &chainResult{outcome: OutcomeAbortedLoop, reason: ReasonRepeatLimit}, nil
			}

			visited = append(visited, next.String())
			f.cfg.Metrics.recordRedirect(ctx, f.cfg.baseAttributes())
			uri = next

		default: // 2xx
			return &chainResult{
				uri:     uri,
				status:  ex.statusCode,
				headers: headers,
				body:    ex.body,
			}, nil
		}
	}
}

func countVisits(visited []string, uri string) int {
	n := 0
	for _, v := range visited {
		if v == uri {
			n++
		}
	}
	return n
}
