package fetch

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Fetch retrieves the resource at the given absolute URI, following
// redirects, retrying error statuses and auto-continuing across pages
// linked via Link rel=next headers. The consumer runs once per page,
// strictly sequentially; a nil consumer drains each page unread.
//
// The returned Result always carries the full trail. Protocol-level
// terminal conditions (401, exhausted retries, redirect loops) are soft
// failures: the error is nil and Result.Outcome names the abort. A
// non-nil error is a *TransportError, a consumer error, or invalid
// input.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, consumer PageConsumer, opts ...FetchOption) (*Result, error) {
	uri, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse uri: %w", err)
	}
	if !uri.IsAbs() {
		return nil, fmt.Errorf("fetch requires an absolute URI, got %q", rawURL)
	}

	spec := f.cfg.newRequestSpec(opts)

	ctx, span := f.cfg.Tracer.Start(ctx, "FETCH "+spec.method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("url.full", uri.String()),
			attribute.String("http.request.method", spec.method),
		),
	)
	defer span.End()

	st := f.newFetchState(span)
	res := &Result{ID: st.id, Trail: st.trail}

	start := time.Now()
	defer func() {
		f.cfg.Metrics.recordFetch(ctx, f.cfg.baseAttributes(), res.Outcome, time.Since(start))
	}()

	// URIs already fetched as pages, requested or terminal. A next link
	// into this set is a pagination cycle.
	seen := make(map[string]struct{})

	pageURL := uri
	for {
		cr, err := f.runChain(ctx, pageURL, spec, st)
		if err != nil {
			res.Outcome = OutcomeTransportFault
			res.Reason = err.Error()
			res.Warnings = st.diags.warnings
			span.SetStatus(codes.Error, err.Error())
			return res, err
		}
		if cr.outcome != OutcomeSucceeded {
			res.Outcome = cr.outcome
			res.Reason = cr.reason
			res.Warnings = st.diags.warnings
			span.SetStatus(codes.Error, cr.reason)
			st.logger.Debug().
				Stringer("outcome", cr.outcome).
				Str("reason", cr.reason).
				Msg("fetch aborted")
			return res, nil
		}

		seen[pageURL.String()] = struct{}{}
		seen[cr.uri.String()] = struct{}{}

		// The next page is decided from the headers before the body is
		// consumed, so the terminal page can be digested on the way
		// through the consumer.
		nextURL := f.nextPage(cr, seen, st)
		final := nextURL == nil

		digest, err := f.consumePage(cr, consumer, final, st)
		res.Pages++
		f.cfg.Metrics.recordPage(ctx, f.cfg.baseAttributes())
		if err != nil {
			var te *TransportError
			if errors.As(err, &te) {
				res.Outcome = OutcomeTransportFault
			}
			res.Warnings = st.diags.warnings
			span.SetStatus(codes.Error, err.Error())
			return res, fmt.Errorf("page %d (%s): %w", res.Pages, cr.uri, err)
		}

		if final {
			st.trail.augmentLast(digest)
			res.Outcome = OutcomeSucceeded
			res.Final = st.trail.Last()
			res.Warnings = st.diags.warnings
			return res, nil
		}
		pageURL = nextURL
	}
}

// nextPage inspects the page's merged headers for a Link rel=next entry
// and resolves it against the page's terminal URI. A next link pointing
// back at an already-fetched page truncates pagination with a warning
// rather than an error.
func (f *Fetcher) nextPage(cr *chainResult, seen map[string]struct{}, st *fetchState) *url.URL {
	linkValue, ok := cr.headers.Get("Link")
	if !ok {
		return nil
	}
	target, ok := nextLink(ParseLink(linkValue))
	if !ok {
		return nil
	}
	ref, err := url.Parse(target)
	if err != nil {
		return nil
	}
	next := cr.uri.ResolveReference(ref)

	if _, dup := seen[next.String()]; dup {
		st.diags.warn(Warning{
			Code:    WarnPaginationLoop,
			Message: "next page link points back at an already-fetched page; stopping pagination",
			URI:     next.String(),
		})
		return nil
	}
	return next
}

// consumePage resolves the page's media type and encoding, hands the
// body to the consumer and releases the stream on every exit path. For
// the terminal page the body is teed through the hashing collaborator
// and drained after the consumer, and the hex digest is returned.
func (f *Fetcher) consumePage(cr *chainResult, consumer PageConsumer, final bool, st *fetchState) (string, error) {
	defer cr.body.Close()

	br := bufio.NewReader(cr.body)

	var mediaType MediaType
	var encoding Encoding
	if ctValue, ok := cr.headers.Get("Content-Type"); ok {
		mt, parsed := ParseMediaType(ctValue)
		if parsed {
			mediaType = mt
			enc, warnings := ResolveEncoding(mt)
			encoding = enc
			st.diags.warnAll(warnings, cr.uri.String())
		} else {
			encoding = Encoding{Kind: EncodingOctet}
			st.diags.warn(Warning{
				Code:    WarnUnknownEncoding,
				Message: "unparsable Content-Type " + quoteValue(ctValue) + ": treating body as binary",
				Field:   "Content-Type",
				URI:     cr.uri.String(),
			})
		}
	} else {
		// No negotiated media type: acceptable for an empty body only.
		if _, err := br.Peek(1); err == nil {
			st.diags.warn(Warning{
				Code:    WarnMissingContentType,
				Message: "no Content-Type header but response body is non-empty",
				Field:   "Content-Type",
				URI:     cr.uri.String(),
			})
		}
	}

	var body io.Reader = br
	var dr *digestReader
	if final {
		dr = newDigestReader(br, f.cfg.Digester)
		body = dr
	}

	if consumer != nil {
		page := &Page{
			URI:        cr.uri,
			StatusCode: cr.status,
			Headers:    cr.headers,
			MediaType:  mediaType,
			Encoding:   encoding,
			Body:       body,
		}
		if err := consumer(page); err != nil {
			return "", err
		}
	}

	if !final {
		return "", nil
	}
	if err := dr.drain(); err != nil {
		return "", &TransportError{URI: cr.uri, Err: err}
	}
	return dr.sum(), nil
}
