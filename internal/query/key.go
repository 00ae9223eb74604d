package query

import (
	"fmt"
	"strings"
)

// Key identifies a cached query. Elements are compared by their %v form, so
// Key{"users", 1} and Key{"users", int64(1)} address the same entry.
type Key []any

// String renders k as a stable cache identifier.
func (k Key) String() string {
	parts := make([]string, len(k))
	for i, p := range k {
		parts[i] = fmt.Sprintf("%v", p)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// HasPrefix reports whether k starts with every element of prefix.
// An empty prefix matches every key.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i, p := range prefix {
		if fmt.Sprintf("%v", p) != fmt.Sprintf("%v", k[i]) {
			return false
		}
	}
	return true
}
