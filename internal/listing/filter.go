// Package listing derives the rows shown by the users table from the list
// state: client-side search, column sort and the pagination summary.
package listing

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/five82/roster/internal/api"
	"github.com/five82/roster/internal/state"
)

// Filter returns the users whose first name, last name or email contains
// term, ignoring case. The term is matched as typed, surrounding spaces
// included; only the empty term keeps every user. Order is preserved and
// the input is not modified.
func Filter(users []api.User, term string) []api.User {
	out := make([]api.User, 0, len(users))
	if term == "" {
		return append(out, users...)
	}
	lower := cases.Lower(language.Und)
	needle := lower.String(term)
	for _, u := range users {
		if matchLower(lower, u, needle) {
			out = append(out, u)
		}
	}
	return out
}

// Matches reports whether u passes Filter for term.
func Matches(u api.User, term string) bool {
	if term == "" {
		return true
	}
	lower := cases.Lower(language.Und)
	return matchLower(lower, u, lower.String(term))
}

func matchLower(lower cases.Caser, u api.User, needle string) bool {
	for _, field := range [...]string{u.FirstName, u.LastName, u.Email} {
		if strings.Contains(lower.String(field), needle) {
			return true
		}
	}
	return false
}

// Rows filters the current page by the search term and applies sort.
func Rows(s state.ListState, sort Sort) []api.User {
	return SortUsers(Filter(s.Items, s.SearchTerm), sort)
}
