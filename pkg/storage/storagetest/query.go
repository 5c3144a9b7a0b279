package storagetest

import (
	"fmt"
	"strings"
	"unicode"
)

type term struct {
	field  string
	value  string
	negate bool
}

type filter []term

// parseQuery understands the small subset of CQL used against the inventory
// collections: field=value, field==value and field<>value terms joined with "and".
// Values may be double quoted, with \" and \\ as escapes.
func parseQuery(query string) (filter, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return filter{}, nil
	}

	f := filter{}

	for _, part := range splitTerms(query) {
		t, err := parseTerm(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}

		f = append(f, t)
	}

	return f, nil
}

// splitTerms splits query on " and " outside of quoted values
func splitTerms(query string) []string {
	const and = " and "

	parts := []string{}
	start := 0
	quoted := false

	for i := 0; i < len(query); i++ {
		switch {
		case quoted && query[i] == '\\':
			i++
		case query[i] == '"':
			quoted = !quoted
		case !quoted && strings.HasPrefix(query[i:], and):
			parts = append(parts, query[start:i])
			i += len(and) - 1
			start = i + 1
		}
	}

	return append(parts, query[start:])
}

func parseTerm(part string) (term, error) {
	end := strings.IndexFunc(part, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.')
	})

	if end <= 0 {
		return term{}, fmt.Errorf("unsupported query term %q", part)
	}

	t := term{field: part[:end]}
	rest := strings.TrimSpace(part[end:])

	switch {
	case strings.HasPrefix(rest, "<>"):
		t.negate = true
		rest = rest[2:]
	case strings.HasPrefix(rest, "=="):
		rest = rest[2:]
	case strings.HasPrefix(rest, "="):
		rest = rest[1:]
	default:
		return term{}, fmt.Errorf("unsupported query term %q", part)
	}

	t.value = unquote(strings.TrimSpace(rest))

	return t, nil
}

var unescaper = strings.NewReplacer(`\"`, `"`, `\\`, `\`)

func unquote(value string) string {
	if len(value) >= 2 && value[0] == '"' && value[len(value)-1] == '"' {
		return unescaper.Replace(value[1 : len(value)-1])
	}
	return value
}

func (f filter) matches(record map[string]any) bool {
	for _, t := range f {
		value, ok := record[t.field]
		equal := ok && fmt.Sprint(value) == t.value

		if equal == t.negate {
			return false
		}
	}

	return true
}
