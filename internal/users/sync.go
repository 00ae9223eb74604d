package users

import (
	"github.com/five82/roster/internal/api"
	"github.com/five82/roster/internal/query"
	"github.com/five82/roster/internal/state"
)

const (
	listResource = "users"
	itemResource = "user"
)

// ListKey is the cache key of one list page.
func ListKey(page int) query.Key { return query.Key{listResource, page} }

// UserKey is the cache key of one user record.
func UserKey(id int64) query.Key { return query.Key{itemResource, id} }

// ListPrefix matches every list page.
func ListPrefix() query.Key { return query.Key{listResource} }

// Sync maps a cache event onto store actions given the current state.
//
// Only events for the page on screen touch the list; a slow response for a
// page the user has already left is ignored. Cached data for the page is
// shown while a refetch runs unless it was invalidated by a write, a
// response that settles after a write invalidated it never replaces the
// items, and an error is only recorded when there is no data to show
// instead.
func Sync(cur state.ListState, ev query.Event) []state.Action {
	if len(ev.Key) != 2 {
		return nil
	}
	switch ev.Key[0] {
	case listResource:
		page, ok := ev.Key[1].(int)
		if !ok || page != cur.CurrentPage {
			return nil
		}
		return syncPage(ev)
	case itemResource:
		if ev.Kind != query.EventSucceeded && ev.Kind != query.EventHit {
			return nil
		}
		u, ok := ev.Data.(api.User)
		if !ok || u.ID == 0 {
			return nil
		}
		return []state.Action{state.PatchItem{ID: u.ID, Fields: u.Fields()}}
	}
	return nil
}

func syncPage(ev query.Event) []state.Action {
	page, hasPage := ev.Data.(api.UserPage)
	hasPage = hasPage && ev.HasData

	switch ev.Kind {
	case query.EventStarted:
		if !hasPage || ev.Invalid {
			return []state.Action{state.SetLoading{Loading: ev.Loading}}
		}
		return append(pageActions(page), state.SetLoading{Loading: false})
	case query.EventSucceeded, query.EventHit:
		if ev.Invalid {
			// Started before a write landed; the store already holds the
			// write's result and a fresh fetch replaces this one.
			return []state.Action{state.SetError{}, state.SetLoading{Loading: false}}
		}
		return append(pageActions(page), state.SetError{}, state.SetLoading{Loading: false})
	case query.EventFailed:
		if hasPage && ev.Invalid {
			return []state.Action{state.SetError{}, state.SetLoading{Loading: false}}
		}
		if hasPage {
			return append(pageActions(page), state.SetError{}, state.SetLoading{Loading: false})
		}
		return []state.Action{
			state.SetError{Message: api.Describe(ev.Err)},
			state.SetLoading{Loading: false},
		}
	}
	return nil
}

func pageActions(p api.UserPage) []state.Action {
	perPage := p.PerPage
	if perPage <= 0 {
		perPage = state.DefaultPerPage
	}
	return []state.Action{
		state.ReplaceItems{Items: p.Data},
		state.SetTotal{Total: p.Total},
		state.SetTotalPages{TotalPages: p.TotalPages},
		state.SetPerPage{PerPage: perPage},
	}
}

// NeedsRefetch reports whether ev settled an invalidated result for the page
// on screen, which Sync kept out of the store.
func NeedsRefetch(cur state.ListState, ev query.Event) bool {
	if ev.Kind != query.EventSucceeded || !ev.Invalid || len(ev.Key) != 2 || ev.Key[0] != listResource {
		return false
	}
	page, ok := ev.Key[1].(int)
	return ok && page == cur.CurrentPage
}
