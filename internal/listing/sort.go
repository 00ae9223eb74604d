package listing

import (
	"cmp"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/five82/roster/internal/api"
)

// Column is a sortable table column.
type Column int

const (
	ColumnNone Column = iota
	ColumnID
	ColumnName
	ColumnEmail
)

var columnNames = map[Column]string{
	ColumnNone:  "none",
	ColumnID:    "id",
	ColumnName:  "name",
	ColumnEmail: "email",
}

func (c Column) String() string {
	if name, ok := columnNames[c]; ok {
		return name
	}
	return "none"
}

// ParseColumn maps a stored column name back to a Column. Unknown names
// give ColumnNone.
func ParseColumn(name string) Column {
	name = strings.ToLower(strings.TrimSpace(name))
	for c, n := range columnNames {
		if n == name {
			return c
		}
	}
	return ColumnNone
}

// Next cycles none → id → name → email → none.
func (c Column) Next() Column {
	return (c + 1) % (ColumnEmail + 1)
}

// Sort selects a column and direction.
type Sort struct {
	Column Column
	Desc   bool
}

// Label renders the sort for the status bar, e.g. "name ↓".
func (s Sort) Label() string {
	if s.Column == ColumnNone {
		return "server order"
	}
	if s.Desc {
		return s.Column.String() + " ↓"
	}
	return s.Column.String() + " ↑"
}

// SortUsers returns a sorted copy of users. ColumnNone keeps server order.
// Ties keep their relative order.
func SortUsers(users []api.User, s Sort) []api.User {
	out := slices.Clone(users)
	if s.Column == ColumnNone || len(out) < 2 {
		return out
	}

	var compare func(a, b api.User) int
	switch s.Column {
	case ColumnID:
		compare = func(a, b api.User) int { return cmp.Compare(a.ID, b.ID) }
	case ColumnName:
		col := newCollator()
		compare = func(a, b api.User) int {
			return col.CompareString(strings.ToLower(a.FullName()), strings.ToLower(b.FullName()))
		}
	case ColumnEmail:
		col := newCollator()
		compare = func(a, b api.User) int {
			return col.CompareString(strings.ToLower(a.Email), strings.ToLower(b.Email))
		}
	default:
		return out
	}

	slices.SortStableFunc(out, func(a, b api.User) int {
		if s.Desc {
			return compare(b, a)
		}
		return compare(a, b)
	})
	return out
}

// newCollator returns a locale-aware comparer. A Collator is not safe for
// concurrent use, so each sort builds its own.
func newCollator() *collate.Collator {
	return collate.New(language.English, collate.IgnoreCase)
}
