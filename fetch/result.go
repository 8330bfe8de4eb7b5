package fetch

import (
	"fmt"
	"io"
	"net/url"
)

// Outcome is the terminal state of a fetch.
type Outcome int

const (
	// OutcomeSucceeded: every page completed with a 2xx terminal hop.
	OutcomeSucceeded Outcome = iota

	// OutcomeAbortedAuth: a hop answered 401. Never retried; credentials
	// do not change by repeating the request.
	OutcomeAbortedAuth

	// OutcomeAbortedRetries: a hop kept answering an error status until
	// the attempt budget ran out.
	OutcomeAbortedRetries

	// OutcomeAbortedLoop: a redirect chain hit the hop limit or revisited
	// a URI past the repeat limit, or could not make progress.
	OutcomeAbortedLoop

	// OutcomeTransportFault: a hop failed below the protocol (dial, TLS,
	// DNS, timeout). Fetch returns a *TransportError alongside the
	// partial Result.
	OutcomeTransportFault
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeAbortedAuth:
		return "aborted_auth"
	case OutcomeAbortedRetries:
		return "aborted_retries"
	case OutcomeAbortedLoop:
		return "aborted_loop"
	case OutcomeTransportFault:
		return "transport_fault"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result is the full account of one fetch: the per-hop trail across all
// retries, redirects and pages, the terminal outcome, and every warning
// emitted along the way.
//
// Aborted outcomes are soft failures: Fetch returns them with a nil
// error, and the last trail record carries the offending status.
type Result struct {
	// ID correlates this fetch's log lines and trail.
	ID string

	// Outcome is the terminal state.
	Outcome Outcome

	// Reason describes the abort for the Aborted* outcomes.
	Reason string

	// Trail holds one record per exchange, oldest first. Never empty,
	// even on total failure.
	Trail *Trail

	// Final is the terminal 2xx hop of the last page on success, nil on
	// abort. On success it carries the content digest.
	Final *HopRecord

	// Pages counts consumer invocations.
	Pages int

	// Warnings collects every non-fatal diagnostic, in emission order.
	Warnings []Warning
}

// Page is what the consumer receives, once per logical page:
// the resolved media type and encoding plus the body stream. The stream
// is owned by the fetcher and released when the consumer returns.
type Page struct {
	// URI of the page's terminal hop.
	URI *url.URL

	// StatusCode of the terminal hop (2xx).
	StatusCode int

	// Headers is the terminal hop's merged header view.
	Headers *HeaderMap

	// MediaType is the negotiated media type; zero when the response
	// carried no Content-Type.
	MediaType MediaType

	// Encoding is the resolved body interpretation.
	Encoding Encoding

	// Body is the page's body stream. Valid only until the consumer
	// returns; do not retain it.
	Body io.Reader
}

// PageConsumer processes one page's body. It is invoked strictly
// sequentially: page N's consumer completes before page N+1 is
// requested. A non-nil error stops pagination and is returned to the
// Fetch caller.
type PageConsumer func(*Page) error

// TransportError is a connection-level fault (dial, TLS, DNS, timeout)
// reported by the transport collaborator. It is the only error kind
// Fetch returns for protocol activity; every protocol-level condition
// is a soft failure encoded in the Result instead.
type TransportError struct {
	URI *url.URL
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URI, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
