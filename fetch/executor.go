package fetch

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"time"
)

// exchange is the outcome of exactly one request/response round trip.
type exchange struct {
	uri        *url.URL
	statusCode int
	rawFields  []Field
	body       io.ReadCloser
	protoMajor int
	protoMinor int
	walltime   time.Duration
}

// executor performs single HTTP exchanges against the transport
// collaborator. It never interprets status codes and never follows
// redirects; on success the body stream's ownership transfers to the
// caller.
type executor struct {
	transport http.RoundTripper
}

// do performs one exchange. The per-hop timeout covers the round trip
// and the subsequent body consumption; closing the returned body
// releases the timeout.
func (e *executor) do(ctx context.Context, uri *url.URL, spec *requestSpec) (*exchange, error) {
	ctx, cancel := context.WithTimeout(ctx, spec.hopTimeout)

	req, err := http.NewRequestWithContext(ctx, spec.method, uri.String(), nil)
	if err != nil {
		cancel()
		return nil, err
	}
	for name, values := range spec.header {
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}
	if len(spec.body) > 0 {
		req.Body = io.NopCloser(bytes.NewReader(spec.body))
		req.ContentLength = int64(len(spec.body))
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(spec.body)), nil
		}
	}

	start := time.Now()
	resp, err := e.transport.RoundTrip(req)
	walltime := time.Since(start)
	if err != nil {
		cancel()
		return nil, err
	}

	return &exchange{
		uri:        uri,
		statusCode: resp.StatusCode,
		rawFields:  fieldsFromHeader(resp.Header),
		body:       &cancelBody{body: resp.Body, cancel: cancel},
		protoMajor: resp.ProtoMajor,
		protoMinor: resp.ProtoMinor,
		walltime:   walltime,
	}, nil
}

// discard drains and closes the exchange's body. Used when the body is
// abandoned (redirect hops) or read only for diagnostics (failed
// attempts before a retry).
func (ex *exchange) discard() {
	if ex.body == nil {
		return
	}
	io.Copy(io.Discard, ex.body) //nolint:errcheck
	ex.body.Close()
}

// cancelBody ties the per-hop timeout's release to the body's Close,
// since the body may be consumed long after the round trip returned.
type cancelBody struct {
	body   io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelBody) Read(p []byte) (int, error) {
	return b.body.Read(p)
}

func (b *cancelBody) Close() error {
	err := b.body.Close()
	b.cancel()
	return err
}
