package fetch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSON(t *testing.T) {
	type item struct {
		Name string `json:"name"`
	}

	t.Run("given JSON pages, then decoded values reach the callback", func(t *testing.T) {
		mock := NewMockTransport().
			StubURL("https://api.example.org/items?page=1",
				RespondWith(200, `[{"name":"a"},{"name":"b"}]`,
					"Content-Type", "application/json",
					"Link", `</items?page=2>; rel="next"`)).
			StubURL("https://api.example.org/items?page=2",
				RespondWith(200, `[{"name":"c"}]`,
					"Content-Type", "application/json"))
		f := newTestFetcher(mock)

		var got []item
		res, err := f.Fetch(context.Background(), "https://api.example.org/items?page=1",
			JSON(func(items []item) error {
				got = append(got, items...)
				return nil
			}))

		require.NoError(t, err)
		assert.Equal(t, OutcomeSucceeded, res.Outcome)
		assert.Equal(t, []item{{Name: "a"}, {Name: "b"}, {Name: "c"}}, got)
	})

	t.Run("given +json structured syntax, then accepted", func(t *testing.T) {
		mock := NewMockTransport().
			StubURL("https://api.example.org/doc",
				RespondWith(200, `{"name":"x"}`,
					"Content-Type", "application/ld+json"))
		f := newTestFetcher(mock)

		var got item
		_, err := f.Fetch(context.Background(), "https://api.example.org/doc",
			JSON(func(v item) error {
				got = v
				return nil
			}))

		require.NoError(t, err)
		assert.Equal(t, "x", got.Name)
	})

	t.Run("given non-JSON media type, then consumer error", func(t *testing.T) {
		mock := NewMockTransport().
			StubURL("https://api.example.org/doc",
				RespondWith(200, "<s> <p> <o> .", "Content-Type", "text/turtle"))
		f := newTestFetcher(mock)

		_, err := f.Fetch(context.Background(), "https://api.example.org/doc",
			JSON(func(item) error { return nil }))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "expected a JSON page")
	})

	t.Run("given malformed body, then decode error", func(t *testing.T) {
		mock := NewMockTransport().
			StubURL("https://api.example.org/doc",
				RespondWith(200, `{"name":`, "Content-Type", "application/json"))
		f := newTestFetcher(mock)

		_, err := f.Fetch(context.Background(), "https://api.example.org/doc",
			JSON(func(item) error { return nil }))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "decode JSON page")
	})
}

func TestIsJSONMediaType(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		want        bool
	}{
		{
			name:        "given application/json, then true",
			contentType: "application/json",
			want:        true,
		},
		{
			name:        "given application/problem+json, then true",
			contentType: "application/problem+json",
			want:        true,
		},
		{
			name:        "given text/turtle, then false",
			contentType: "text/turtle",
			want:        false,
		},
		{
			name:        "given bare +json subtype, then false",
			contentType: "application/+json",
			want:        false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mt, ok := ParseMediaType(tt.contentType)
			require.True(t, ok)
			assert.Equal(t, tt.want, isJSONMediaType(mt))
		})
	}
}
