package cache

import (
	"sort"
	"strings"
)

// BuildKey derives the storage key for a base key plus a parameter map.
// Parameters are appended in sorted key order, so semantically identical
// parameter sets collide to the same key regardless of construction order.
// A nil or empty map leaves the base key untouched.
func BuildKey(base string, params map[string]string) string {
	if len(params) == 0 {
		return base
	}

	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(base)
	b.WriteByte('?')
	for i, name := range names {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(params[name])
	}
	return b.String()
}
