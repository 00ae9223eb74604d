package listing

import (
	"fmt"

	"github.com/five82/roster/internal/state"
)

// PageInfo carries pagination metadata for rendering.
type PageInfo struct {
	Page       int // current page (1-indexed)
	PerPage    int // rows per page
	Total      int // total rows on the server
	TotalPages int
}

// NewPageInfo normalizes server pagination. Page is clamped to
// [1, TotalPages]; a missing page count is derived from total and perPage.
func NewPageInfo(page, perPage, total, totalPages int) PageInfo {
	if perPage < 1 {
		perPage = state.DefaultPerPage
	}
	total = max(total, 0)
	if totalPages < 1 {
		totalPages = (total + perPage - 1) / perPage
	}
	totalPages = max(totalPages, 1)
	page = min(max(page, 1), totalPages)
	return PageInfo{Page: page, PerPage: perPage, Total: total, TotalPages: totalPages}
}

// PageInfoFor reads pagination from the list state.
func PageInfoFor(s state.ListState) PageInfo {
	return NewPageInfo(s.CurrentPage, s.PerPage, s.Total, s.TotalPages)
}

// Offset returns the number of rows before the current page.
func (p PageInfo) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// StartRow returns the 1-indexed first row on the current page, or 0 when
// there are no rows.
func (p PageInfo) StartRow() int {
	if p.Total == 0 || p.Offset() >= p.Total {
		return 0
	}
	return p.Offset() + 1
}

// EndRow returns the 1-indexed last row on the current page.
func (p PageInfo) EndRow() int {
	if p.StartRow() == 0 {
		return 0
	}
	return min(p.Offset()+p.PerPage, p.Total)
}

// HasPrev reports whether a previous page exists.
func (p PageInfo) HasPrev() bool { return p.Page > 1 }

// HasNext reports whether a next page exists.
func (p PageInfo) HasNext() bool { return p.Page < p.TotalPages }

// Label renders "1-6 of 12 items".
func (p PageInfo) Label() string {
	return fmt.Sprintf("%d-%d of %d items", p.StartRow(), p.EndRow(), p.Total)
}
