package users

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/five82/roster/internal/api"
	"github.com/five82/roster/internal/query"
	"github.com/five82/roster/internal/state"
)

func pageOf(items ...api.User) api.UserPage {
	return api.UserPage{Page: 1, PerPage: 6, Total: len(items), TotalPages: 1, Data: items}
}

func TestSync_IgnoresOtherPages(t *testing.T) {
	cur := state.Initial()
	ev := query.Event{Kind: query.EventSucceeded, Key: ListKey(2), Data: pageOf(threeUsers()...), HasData: true}
	assert.Nil(t, Sync(cur, ev))
}

func TestSync_IgnoresUnknownKeys(t *testing.T) {
	assert.Nil(t, Sync(state.Initial(), query.Event{Key: query.Key{"groups", 1}}))
	assert.Nil(t, Sync(state.Initial(), query.Event{Key: query.Key{"users"}}))
}

func TestSync_StartedWithoutDataSetsLoading(t *testing.T) {
	got := state.Reduce(state.Initial(), Sync(state.Initial(), query.Event{
		Kind: query.EventStarted, Key: ListKey(1), Loading: true, Fetching: true,
	})...)
	assert.True(t, got.Loading)
}

func TestSync_StartedWithCachedDataShowsIt(t *testing.T) {
	ev := query.Event{
		Kind: query.EventStarted, Key: ListKey(1), Fetching: true,
		Data: pageOf(threeUsers()...), HasData: true,
	}
	got := state.Reduce(state.Initial(), Sync(state.Initial(), ev)...)
	assert.False(t, got.Loading)
	assert.Len(t, got.Items, 3)
}

func TestSync_StartedWithInvalidatedDataKeepsItems(t *testing.T) {
	cur := state.Reduce(state.Initial(), state.ReplaceItems{Items: threeUsers()[1:]})
	ev := query.Event{
		Kind: query.EventStarted, Key: ListKey(1), Fetching: true, Invalid: true,
		Data: pageOf(threeUsers()...), HasData: true,
	}
	got := state.Reduce(cur, Sync(cur, ev)...)
	assert.Equal(t, []int64{2, 3}, ids(got.Items))
	assert.False(t, got.Loading)
}

func TestSync_SuccessReplacesPageAndClearsError(t *testing.T) {
	cur := state.Reduce(state.Initial(), state.SetError{Message: "old"}, state.SetLoading{Loading: true})
	p := api.UserPage{Page: 1, PerPage: 0, Total: 12, TotalPages: 0, Data: threeUsers()}
	got := state.Reduce(cur, Sync(cur, query.Event{Kind: query.EventSucceeded, Key: ListKey(1), Data: p, HasData: true})...)

	assert.Equal(t, []int64{1, 2, 3}, ids(got.Items))
	assert.Equal(t, 12, got.Total)
	assert.Equal(t, 1, got.TotalPages)
	assert.Equal(t, state.DefaultPerPage, got.PerPage)
	assert.Empty(t, got.Error)
	assert.False(t, got.Loading)
}

func TestSync_FailureWithoutDataSetsMessage(t *testing.T) {
	ev := query.Event{Kind: query.EventFailed, Key: ListKey(1), Err: errors.New("boom")}
	got := state.Reduce(state.Initial(), Sync(state.Initial(), ev)...)
	assert.Equal(t, "boom", got.Error)
	assert.False(t, got.Loading)
}

func TestSync_UserSuccessPatchesRow(t *testing.T) {
	cur := state.Reduce(state.Initial(), state.ReplaceItems{Items: threeUsers()})
	ev := query.Event{
		Kind: query.EventSucceeded, Key: UserKey(3), HasData: true,
		Data: api.User{ID: 3, FirstName: "Robert", LastName: "Johnson", Email: "bob@x.com"},
	}
	got := state.Reduce(cur, Sync(cur, ev)...)
	assert.Equal(t, "Robert", got.Items[2].FirstName)

	failed := query.Event{Kind: query.EventFailed, Key: UserKey(3), Err: errors.New("x")}
	assert.Nil(t, Sync(cur, failed))
}

func TestSync_InvalidatedSuccessKeepsStoreItems(t *testing.T) {
	cur := state.Reduce(state.Initial(),
		state.ReplaceItems{Items: threeUsers()[1:]},
		state.SetLoading{Loading: true},
	)
	ev := query.Event{
		Kind: query.EventSucceeded, Key: ListKey(1), Invalid: true,
		Data: pageOf(threeUsers()...), HasData: true,
	}
	got := state.Reduce(cur, Sync(cur, ev)...)
	assert.Equal(t, []int64{2, 3}, ids(got.Items))
	assert.False(t, got.Loading)
	assert.True(t, NeedsRefetch(got, ev))
}

func TestNeedsRefetch(t *testing.T) {
	cur := state.Initial()
	assert.False(t, NeedsRefetch(cur, query.Event{Kind: query.EventSucceeded, Key: ListKey(1)}))
	assert.False(t, NeedsRefetch(cur, query.Event{Kind: query.EventSucceeded, Key: ListKey(2), Invalid: true}))
	assert.False(t, NeedsRefetch(cur, query.Event{Kind: query.EventFailed, Key: ListKey(1), Invalid: true}))
	assert.False(t, NeedsRefetch(cur, query.Event{Kind: query.EventSucceeded, Key: UserKey(1), Invalid: true}))
}
