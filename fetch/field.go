package fetch

import (
	"net/http"
	"net/textproto"
	"sort"
)

// Field is one raw response header line: a name and a single value,
// as it arrived on the wire. Repeated fields appear as repeated entries.
type Field struct {
	Name  string
	Value string
}

// CanonicalFieldName normalizes a header field name to its canonical
// MIME form (e.g. "content-type" -> "Content-Type"). Names that are not
// valid tokens are returned unchanged.
func CanonicalFieldName(name string) string {
	return textproto.CanonicalMIMEHeaderKey(name)
}

// fieldsFromHeader flattens an http.Header into raw field pairs.
//
// The transport has already grouped values per canonical name, preserving
// per-name arrival order; cross-name arrival order is not recoverable, so
// names are emitted in sorted order for determinism.
func fieldsFromHeader(h http.Header) []Field {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]Field, 0, len(h))
	for _, name := range names {
		for _, v := range h[name] {
			fields = append(fields, Field{Name: name, Value: v})
		}
	}
	return fields
}

// Registry declares which header fields are separable: fields whose
// repeated occurrences are equivalent to a single comma-joined value
// (RFC 9110 list-based fields). Fields not in the registry are treated
// as singletons; a duplicate singleton keeps its first value and emits
// a warning.
//
// A Registry is extended at configuration time and is read-only while
// any fetch is in flight, so concurrent fetches may share it freely.
type Registry struct {
	separable map[string]struct{}
}

// defaultSeparable is the seed set of RFC 9110 list-based response fields.
var defaultSeparable = []string{
	"Accept",
	"Accept-Encoding",
	"Accept-Language",
	"Accept-Ranges",
	"Allow",
	"Cache-Control",
	"Connection",
	"Content-Encoding",
	"Content-Language",
	"Link",
	"Pragma",
	"Proxy-Authenticate",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
	"Vary",
	"Via",
	"Warning",
	"WWW-Authenticate",
}

// DefaultRegistry returns a registry seeded with the standard list-based
// response fields.
func DefaultRegistry() *Registry {
	return NewRegistry(defaultSeparable...)
}

// NewRegistry builds a registry declaring exactly the given fields separable.
func NewRegistry(names ...string) *Registry {
	r := &Registry{separable: make(map[string]struct{}, len(names))}
	for _, name := range names {
		r.separable[CanonicalFieldName(name)] = struct{}{}
	}
	return r
}

// With returns a copy of the registry with the given fields added.
// The receiver is not modified.
func (r *Registry) With(names ...string) *Registry {
	clone := &Registry{separable: make(map[string]struct{}, len(r.separable)+len(names))}
	for name := range r.separable {
		clone.separable[name] = struct{}{}
	}
	for _, name := range names {
		clone.separable[CanonicalFieldName(name)] = struct{}{}
	}
	return clone
}

// Separable reports whether repeated occurrences of the field may be
// merged into one comma-joined value.
func (r *Registry) Separable(name string) bool {
	_, ok := r.separable[CanonicalFieldName(name)]
	return ok
}
