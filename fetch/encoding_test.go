package fetch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMediaType(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    MediaType
		wantOK  bool
	}{
		{
			name:   "given plain type, then parsed",
			value:  "text/turtle",
			want:   MediaType{Type: "text", Subtype: "turtle", Params: map[string]string{}},
			wantOK: true,
		},
		{
			name:   "given charset parameter, then captured with case preserved",
			value:  "text/html; charset=UTF-8",
			want:   MediaType{Type: "text", Subtype: "html", Params: map[string]string{"charset": "UTF-8"}},
			wantOK: true,
		},
		{
			name:   "given uppercase type, then lower-cased",
			value:  "Application/JSON",
			want:   MediaType{Type: "application", Subtype: "json", Params: map[string]string{}},
			wantOK: true,
		},
		{
			name:   "given missing subtype, then rejected",
			value:  "text",
			wantOK: false,
		},
		{
			name:   "given empty value, then rejected",
			value:  "",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mt, ok := ParseMediaType(tt.value)
			require.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.want, mt)
			} else {
				assert.True(t, mt.IsZero())
			}
		})
	}
}

func TestResolveEncoding(t *testing.T) {
	tests := []struct {
		name         string
		contentType  string
		want         Encoding
		wantWarnings int
	}{
		{
			name:        "given application/json, then utf8 regardless of charset",
			contentType: "application/json",
			want:        Encoding{Kind: EncodingUTF8},
		},
		{
			name:        "given text/turtle, then utf8 by definition",
			contentType: "text/turtle",
			want:        Encoding{Kind: EncodingUTF8},
		},
		{
			name:        "given application/n-quads, then utf8 by definition",
			contentType: "application/n-quads",
			want:        Encoding{Kind: EncodingUTF8},
		},
		{
			name:        "given image/png, then binary by definition",
			contentType: "image/png",
			want:        Encoding{Kind: EncodingOctet},
		},
		{
			name:        "given charset=utf-8, then utf8",
			contentType: "text/html; charset=utf-8",
			want:        Encoding{Kind: EncodingUTF8},
		},
		{
			name:        "given charset=UTF8 alias, then utf8",
			contentType: "text/html; charset=UTF8",
			want:        Encoding{Kind: EncodingUTF8},
		},
		{
			name:        "given charset=us-ascii, then ascii",
			contentType: "text/plain; charset=us-ascii",
			want:        Encoding{Kind: EncodingASCII},
		},
		{
			name:        "given unknown charset, then passed through lower-cased",
			contentType: "text/html; charset=ISO-8859-1",
			want:        Encoding{Kind: EncodingOther, Charset: "iso-8859-1"},
		},
		{
			name:         "given no charset and no table entry, then binary with warning",
			contentType:  "application/octet-stream",
			want:         Encoding{Kind: EncodingOctet},
			wantWarnings: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mt, ok := ParseMediaType(tt.contentType)
			require.True(t, ok)

			enc, warnings := ResolveEncoding(mt)

			assert.Equal(t, tt.want, enc)
			assert.Len(t, warnings, tt.wantWarnings)
			for _, w := range warnings {
				assert.Equal(t, WarnUnknownEncoding, w.Code)
			}
		})
	}
}

func TestEncoding_String(t *testing.T) {
	assert.Equal(t, "utf8", Encoding{Kind: EncodingUTF8}.String())
	assert.Equal(t, "ascii", Encoding{Kind: EncodingASCII}.String())
	assert.Equal(t, "octet", Encoding{Kind: EncodingOctet}.String())
	assert.Equal(t, "iso-8859-1", Encoding{Kind: EncodingOther, Charset: "iso-8859-1"}.String())
	assert.Equal(t, "unspecified", Encoding{}.String())
}
