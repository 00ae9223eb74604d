package state

import "github.com/five82/roster/internal/api"

// Action is a pure transition of ListState. Apply must not modify the
// slices reachable from its argument.
type Action interface {
	Apply(s ListState) ListState
}

// Reduce applies actions in order and returns the resulting state.
func Reduce(s ListState, actions ...Action) ListState {
	for _, a := range actions {
		if a != nil {
			s = a.Apply(s)
		}
	}
	return s
}

// ReplaceItems swaps in a whole page of items in server order.
type ReplaceItems struct{ Items []api.User }

func (a ReplaceItems) Apply(s ListState) ListState {
	s.Items = cloneUsers(a.Items)
	return s
}

// SetLoading sets the loading flag.
type SetLoading struct{ Loading bool }

func (a SetLoading) Apply(s ListState) ListState {
	s.Loading = a.Loading
	return s
}

// SetError sets the error message; empty clears it.
type SetError struct{ Message string }

func (a SetError) Apply(s ListState) ListState {
	s.Error = a.Message
	return s
}

// SetCurrentPage selects the page shown by the list. Values below 1 clamp
// to 1.
type SetCurrentPage struct{ Page int }

func (a SetCurrentPage) Apply(s ListState) ListState {
	s.CurrentPage = max(a.Page, 1)
	return s
}

// SetTotal sets the server-side item count.
type SetTotal struct{ Total int }

func (a SetTotal) Apply(s ListState) ListState {
	s.Total = max(a.Total, 0)
	return s
}

// SetTotalPages sets the server-side page count. Values below 1 clamp to 1.
type SetTotalPages struct{ TotalPages int }

func (a SetTotalPages) Apply(s ListState) ListState {
	s.TotalPages = max(a.TotalPages, 1)
	return s
}

// SetPerPage sets the page size. Non-positive values are ignored.
type SetPerPage struct{ PerPage int }

func (a SetPerPage) Apply(s ListState) ListState {
	if a.PerPage > 0 {
		s.PerPage = a.PerPage
	}
	return s
}

// SetSearchTerm sets the free-text filter.
type SetSearchTerm struct{ Term string }

func (a SetSearchTerm) Apply(s ListState) ListState {
	s.SearchTerm = a.Term
	return s
}

// AppendItem adds one item at the end of the list.
type AppendItem struct{ Item api.User }

func (a AppendItem) Apply(s ListState) ListState {
	items := make([]api.User, 0, len(s.Items)+1)
	items = append(items, s.Items...)
	s.Items = append(items, a.Item)
	return s
}

// PatchItem shallow-merges Fields into the item with ID. Unknown ids are a
// no-op.
type PatchItem struct {
	ID     int64
	Fields api.UserFields
}

func (a PatchItem) Apply(s ListState) ListState {
	idx := indexOf(s.Items, a.ID)
	if idx < 0 {
		return s
	}
	items := cloneUsers(s.Items)
	items[idx] = a.Fields.Merge(items[idx])
	s.Items = items
	return s
}

// RemoveItem drops the item with ID. Unknown ids are a no-op.
type RemoveItem struct{ ID int64 }

func (a RemoveItem) Apply(s ListState) ListState {
	idx := indexOf(s.Items, a.ID)
	if idx < 0 {
		return s
	}
	items := make([]api.User, 0, len(s.Items)-1)
	items = append(items, s.Items[:idx]...)
	s.Items = append(items, s.Items[idx+1:]...)
	return s
}

func indexOf(items []api.User, id int64) int {
	for i, u := range items {
		if u.ID == id {
			return i
		}
	}
	return -1
}
