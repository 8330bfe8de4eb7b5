package fetch

import (
	"mime"
	"strings"
)

// MediaType is a parsed media type: "type/subtype" plus its parameters
// (e.g. charset). The zero value means no Content-Type was present.
type MediaType struct {
	// Type and Subtype are lower-cased (e.g. "application", "json").
	Type    string
	Subtype string

	// Params holds the media type parameters with lower-cased names.
	Params map[string]string
}

// IsZero reports whether no media type was negotiated.
func (mt MediaType) IsZero() bool { return mt.Type == "" }

// String renders "type/subtype" without parameters.
func (mt MediaType) String() string {
	if mt.IsZero() {
		return ""
	}
	return mt.Type + "/" + mt.Subtype
}

// Charset returns the charset parameter, if present.
func (mt MediaType) Charset() (string, bool) {
	cs, ok := mt.Params["charset"]
	return cs, ok
}

// ParseMediaType parses a Content-Type header value. Parse failures and
// values without a subtype yield the zero MediaType and false.
func ParseMediaType(value string) (MediaType, bool) {
	full, params, err := mime.ParseMediaType(value)
	if err != nil {
		return MediaType{}, false
	}
	typ, subtype, ok := strings.Cut(full, "/")
	if !ok || typ == "" || subtype == "" {
		return MediaType{}, false
	}
	return MediaType{Type: typ, Subtype: subtype, Params: params}, true
}
