package fetch

import (
	"net/url"
	"time"
)

// HopRecord describes one HTTP exchange: the request URI, the response
// status and merged headers, the negotiated protocol version and the
// wall time of the exchange. Records are immutable once appended; only
// the terminal record of a successful fetch is later augmented with the
// content digest.
type HopRecord struct {
	// URI the request was issued on.
	URI *url.URL

	// StatusCode of the response, in [100,599]. Zero when the exchange
	// failed at the transport level; Err carries the fault then.
	StatusCode int

	// Headers is the merged header view of the response. Nil for
	// transport-failed exchanges.
	Headers *HeaderMap

	// ProtoMajor and ProtoMinor are the negotiated HTTP version.
	ProtoMajor int
	ProtoMinor int

	// Walltime is the duration of the exchange up to response headers.
	Walltime time.Duration

	// Digest is the hex content digest of the terminal body. Set on the
	// final record of a successful fetch only, after the consumer and
	// the hashing collaborator have finished.
	Digest string

	// Err is the transport fault that ended the exchange, if any.
	Err error
}

// Trail is the ordered, oldest-first collection of HopRecords built up
// over one fetch: every retry, every redirect and every page appends
// exactly one record. It is the sole channel for status, timing and
// header visibility into intermediate hops.
type Trail struct {
	hops []HopRecord
}

// append records one exchange. Called once per hop on every code path,
// success or abort, before the fetch returns.
func (t *Trail) append(h HopRecord) {
	t.hops = append(t.hops, h)
}

// augmentLast attaches the content digest to the most recent record.
func (t *Trail) augmentLast(digest string) {
	if len(t.hops) > 0 {
		t.hops[len(t.hops)-1].Digest = digest
	}
}

// Hops returns the records oldest-first.
func (t *Trail) Hops() []HopRecord {
	out := make([]HopRecord, len(t.hops))
	copy(out, t.hops)
	return out
}

// Len returns the number of recorded exchanges.
func (t *Trail) Len() int { return len(t.hops) }

// Last returns the most recent record, or nil for an empty trail.
func (t *Trail) Last() *HopRecord {
	if len(t.hops) == 0 {
		return nil
	}
	h := t.hops[len(t.hops)-1]
	return &h
}
