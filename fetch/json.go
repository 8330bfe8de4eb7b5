package fetch

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// JSON adapts a typed callback into a PageConsumer that decodes each
// page body as a JSON document of type T. Pages whose media type is
// known and is not a JSON flavor are rejected; a missing media type is
// tolerated and decoded optimistically.
//
//	res, err := f.Fetch(ctx, url, fetch.JSON(func(items []Item) error {
//		return store.Insert(items)
//	}))
func JSON[T any](fn func(T) error) PageConsumer {
	return func(p *Page) error {
		if !p.MediaType.IsZero() && !isJSONMediaType(p.MediaType) {
			return fmt.Errorf("expected a JSON page, got %s", p.MediaType)
		}
		var v T
		if err := json.NewDecoder(p.Body).Decode(&v); err != nil {
			return fmt.Errorf("decode JSON page: %w", err)
		}
		return fn(v)
	}
}

// isJSONMediaType accepts application/json and any +json structured
// syntax suffix (application/ld+json, application/problem+json, ...).
func isJSONMediaType(mt MediaType) bool {
	if mt.Type == "application" && mt.Subtype == "json" {
		return true
	}
	n := len(mt.Subtype)
	return n > 5 && mt.Subtype[n-5:] == "+json"
}
