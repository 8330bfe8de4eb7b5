package fetch

import (
	"github.com/rs/zerolog"
)

// WarningCode classifies a non-fatal condition observed during a fetch.
type WarningCode string

const (
	// WarnDuplicateHeader: a non-separable header arrived more than once;
	// the first value was kept and the rest discarded.
	WarnDuplicateHeader WarningCode = "duplicate_header"

	// WarnMissingContentType: a 2xx response carried a non-empty body but
	// no Content-Type header, so no encoding override was applied.
	WarnMissingContentType WarningCode = "missing_content_type"

	// WarnUnknownEncoding: the media type carried no usable charset; the
	// body is treated as opaque binary.
	WarnUnknownEncoding WarningCode = "unknown_encoding"

	// WarnPaginationLoop: a page's rel=next link pointed back at the page
	// itself; pagination stopped without treating it as an error.
	WarnPaginationLoop WarningCode = "pagination_loop"
)

// Warning is one structured diagnostic record. Warnings never fail a
// fetch; they are collected into the Result so callers and tests can
// inspect them deterministically.
type Warning struct {
	Code    WarningCode
	Message string

	// Field is the header field name for header-related warnings.
	Field string

	// URI is the page or hop the warning was observed on, when known.
	URI string
}

// diagnostics collects warnings for one in-flight fetch and mirrors
// them to the fetcher's logger. It is exclusively owned by the fetch
// that created it.
type diagnostics struct {
	logger   zerolog.Logger
	warnings []Warning
}

func (d *diagnostics) warn(w Warning) {
	d.warnings = append(d.warnings, w)
	d.logger.Warn().
		Str("code", string(w.Code)).
		Str("field", w.Field).
		Str("uri", w.URI).
		Msg(w.Message)
}

func (d *diagnostics) warnAll(ws []Warning, uri string) {
	for _, w := range ws {
		if w.URI == "" {
			w.URI = uri
		}
		d.warn(w)
	}
}
