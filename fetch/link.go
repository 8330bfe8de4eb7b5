package fetch

import (
	"strings"
)

// LinkEntry is one entry of a Link header (RFC 8288): a target reference
// and its parameters.
type LinkEntry struct {
	// Target is the URI reference between the angle brackets, unresolved.
	Target string

	// Params holds the entry's parameters with lower-cased names and
	// unquoted values (e.g. "rel" -> "next").
	Params map[string]string
}

// Rel reports whether the entry carries the given relation type among
// its whitespace-separated rel tokens. Comparison is case-insensitive.
func (e LinkEntry) Rel(rel string) bool {
	for _, tok := range strings.Fields(e.Params["rel"]) {
		if strings.EqualFold(tok, rel) {
			return true
		}
	}
	return false
}

// ParseLink parses a (possibly comma-joined) Link header value into its
// entries. Malformed segments are skipped; a missing target skips the
// entry. Quoted parameter values may contain commas and semicolons.
func ParseLink(value string) []LinkEntry {
	var entries []LinkEntry

	rest := value
	for rest != "" {
		rest = strings.TrimLeft(rest, " \t,")
		if rest == "" || rest[0] != '<' {
			// No target follows; nothing recoverable remains.
			break
		}
		end := strings.IndexByte(rest, '>')
		if end < 0 {
			break
		}
		entry := LinkEntry{
			Target: strings.TrimSpace(rest[1:end]),
			Params: make(map[string]string),
		}
		rest = rest[end+1:]

		// Parameters up to the next unquoted comma.
		for {
			rest = strings.TrimLeft(rest, " \t")
			if rest == "" || rest[0] == ',' {
				break
			}
			if rest[0] != ';' {
				// Junk between entries; skip to the next comma.
				if i := strings.IndexByte(rest, ','); i >= 0 {
					rest = rest[i:]
				} else {
					rest = ""
				}
				break
			}
			rest = strings.TrimLeft(rest[1:], " \t")

			name, value, remainder := scanParam(rest)
			rest = remainder
			if name == "" {
				continue
			}
			name = strings.ToLower(name)
			// First occurrence of a parameter wins (RFC 8288 §3).
			if _, dup := entry.Params[name]; !dup {
				entry.Params[name] = value
			}
		}

		if entry.Target != "" {
			entries = append(entries, entry)
		}
	}
	return entries
}

// scanParam reads one name[=value] parameter, honoring quoted strings.
func scanParam(s string) (name, value, rest string) {
	i := 0
	for i < len(s) && s[i] != '=' && s[i] != ';' && s[i] != ',' {
		i++
	}
	name = strings.TrimSpace(s[:i])
	if i == len(s) || s[i] != '=' {
		return name, "", s[i:]
	}
	s = strings.TrimLeft(s[i+1:], " \t")

	if s != "" && s[0] == '"' {
		var b strings.Builder
		i = 1
		for i < len(s) {
			c := s[i]
			if c == '\\' && i+1 < len(s) {
				b.WriteByte(s[i+1])
				i += 2
				continue
			}
			if c == '"' {
				i++
				break
			}
			b.WriteByte(c)
			i++
		}
		return name, b.String(), s[i:]
	}

	i = 0
	for i < len(s) && s[i] != ';' && s[i] != ',' {
		i++
	}
	return name, strings.TrimSpace(s[:i]), s[i:]
}

// nextLink returns the target of the first rel=next entry, if any.
func nextLink(entries []LinkEntry) (string, bool) {
	for _, e := range entries {
		if e.Rel("next") {
			return e.Target, true
		}
	}
	return "", false
}
