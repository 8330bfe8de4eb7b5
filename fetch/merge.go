package fetch

import (
	"strings"
)

// HeaderMap is the merged view of a response's header fields: one value
// per canonical field name, in first-seen name order. Separable fields
// carry their occurrences comma-joined in arrival order; singleton
// fields carry their first occurrence only.
type HeaderMap struct {
	names  []string
	values map[string]string
}

// Get returns the merged value for the field, if present.
// The name is canonicalized before lookup.
func (m *HeaderMap) Get(name string) (string, bool) {
	v, ok := m.values[CanonicalFieldName(name)]
	return v, ok
}

// Names returns the canonical field names in first-seen order.
func (m *HeaderMap) Names() []string {
	out := make([]string, len(m.names))
	copy(out, m.names)
	return out
}

// Len returns the number of distinct fields.
func (m *HeaderMap) Len() int { return len(m.names) }

// Merge normalizes raw, possibly repeated header lines into a HeaderMap.
//
// Pairs are grouped by canonical name preserving first-seen name order.
// Occurrences of a separable field are comma-joined in arrival order.
// For a non-separable field only the first occurrence is kept; every
// discarded value is reported as a duplicate-header warning.
func (r *Registry) Merge(fields []Field) (*HeaderMap, []Warning) {
	m := &HeaderMap{values: make(map[string]string, len(fields))}
	var warnings []Warning

	for _, f := range fields {
		name := CanonicalFieldName(f.Name)
		prev, seen := m.values[name]
		if !seen {
			m.names = append(m.names, name)
			m.values[name] = f.Value
			continue
		}
		if r.Separable(name) {
			m.values[name] = prev + ", " + f.Value
			continue
		}
		warnings = append(warnings, Warning{
			Code: WarnDuplicateHeader,
			Message: "duplicate non-separable header " + name +
				": keeping " + quoteValue(prev) + ", discarding " + quoteValue(f.Value),
			Field: name,
		})
	}
	return m, warnings
}

// quoteValue quotes a header value for a warning message.
func quoteValue(v string) string {
	return `"` + strings.ReplaceAll(v, `"`, `\"`) + `"`
}
