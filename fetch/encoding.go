package fetch

import (
	"strings"
)

// EncodingKind tags how a response body's bytes should be interpreted.
type EncodingKind int

const (
	// EncodingUnspecified means no Content-Type was present; no encoding
	// override applies.
	EncodingUnspecified EncodingKind = iota

	// EncodingUTF8 is UTF-8 text.
	EncodingUTF8

	// EncodingASCII is US-ASCII text.
	EncodingASCII

	// EncodingOctet is opaque binary.
	EncodingOctet

	// EncodingOther is text in a charset named by Encoding.Charset.
	EncodingOther
)

// Encoding is the resolved interpretation of a body: one of the well
// known kinds, or EncodingOther with the lower-cased charset name.
type Encoding struct {
	Kind    EncodingKind
	Charset string
}

func (e Encoding) String() string {
	switch e.Kind {
	case EncodingUTF8:
		return "utf8"
	case EncodingASCII:
		return "ascii"
	case EncodingOctet:
		return "octet"
	case EncodingOther:
		return e.Charset
	default:
		return "unspecified"
	}
}

// knownEncodings maps media types whose encoding is fixed by their
// definition, independent of any charset parameter.
var knownEncodings = map[string]Encoding{
	"application/json":         {Kind: EncodingUTF8},
	"application/n-quads":      {Kind: EncodingUTF8},
	"application/n-triples":    {Kind: EncodingUTF8},
	"application/sparql-query": {Kind: EncodingUTF8},
	"application/trig":         {Kind: EncodingUTF8},
	"text/turtle":              {Kind: EncodingUTF8},
	"image/jpeg":               {Kind: EncodingOctet},
	"image/png":                {Kind: EncodingOctet},
}

// ResolveEncoding maps a negotiated media type to an encoding tag.
//
// Media types with a defined encoding resolve from a static table.
// Otherwise the charset parameter decides: known aliases map to the
// utf8/ascii tags and any other name passes through lower-cased as an
// "other" encoding. A media type with no charset at all resolves to
// opaque binary together with an unknown-encoding warning.
func ResolveEncoding(mt MediaType) (Encoding, []Warning) {
	if enc, ok := knownEncodings[mt.String()]; ok {
		return enc, nil
	}

	cs, ok := mt.Charset()
	if !ok || cs == "" {
		return Encoding{Kind: EncodingOctet}, []Warning{{
			Code:    WarnUnknownEncoding,
			Message: "cannot determine encoding for " + mt.String() + ": treating body as binary",
		}}
	}

	switch cs = strings.ToLower(cs); cs {
	case "utf-8", "utf8":
		return Encoding{Kind: EncodingUTF8}, nil
	case "us-ascii", "ascii":
		return Encoding{Kind: EncodingASCII}, nil
	default:
		return Encoding{Kind: EncodingOther, Charset: cs}, nil
	}
}
