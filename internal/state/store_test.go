package state

import (
	"reflect"
	"testing"
	"time"

	"github.com/five82/roster/internal/api"
)

func sampleUsers() []api.User {
	return []api.User{
		{ID: 1, FirstName: "John", LastName: "Doe", Email: "john.doe@x.com"},
		{ID: 2, FirstName: "Jane", LastName: "Smith", Email: "jane@x.com"},
		{ID: 3, FirstName: "Bob", LastName: "Johnson", Email: "bob@x.com"},
	}
}

func TestStore_ZeroValueStartsFromInitial(t *testing.T) {
	var s Store

	snap := s.Snapshot()
	if !reflect.DeepEqual(snap, Initial()) {
		t.Fatalf("Snapshot() = %#v, want %#v", snap, Initial())
	}

	next := s.Dispatch(SetSearchTerm{Term: "jo"})
	if next.CurrentPage != 1 || next.PerPage != DefaultPerPage || next.SearchTerm != "jo" {
		t.Fatalf("Dispatch on zero store = %#v", next)
	}
}

func TestStore_DispatchAndSnapshotClone(t *testing.T) {
	var s Store
	s.Dispatch(ReplaceItems{Items: sampleUsers()}, SetTotal{Total: 12}, SetTotalPages{TotalPages: 2})

	snap := s.Snapshot()
	if len(snap.Items) != 3 || snap.Total != 12 || snap.TotalPages != 2 {
		t.Fatalf("snapshot = %#v", snap)
	}

	// Returned snapshot should be independent of the stored one.
	snap.Items[0].FirstName = "Mallory"
	if got := s.Snapshot().Items[0].FirstName; got != "John" {
		t.Fatalf("Snapshot should clone items; got %q want John", got)
	}
}

func TestReplaceItems_DoesNotAliasInput(t *testing.T) {
	input := sampleUsers()
	s := Reduce(Initial(), ReplaceItems{Items: input})
	input[0].FirstName = "changed"
	if s.Items[0].FirstName != "John" {
		t.Fatalf("ReplaceItems aliased caller slice")
	}
}

func TestRemoveItem_RemovesExactlyOne(t *testing.T) {
	before := Reduce(Initial(), ReplaceItems{Items: sampleUsers()})
	after := Reduce(before, RemoveItem{ID: 1})

	want := sampleUsers()[1:]
	if !reflect.DeepEqual(after.Items, want) {
		t.Fatalf("items = %#v, want %#v", after.Items, want)
	}
	if !reflect.DeepEqual(before.Items, sampleUsers()) {
		t.Fatalf("RemoveItem modified the previous state: %#v", before.Items)
	}
}

func TestRemoveItem_UnknownIDIsNoop(t *testing.T) {
	before := Reduce(Initial(), ReplaceItems{Items: sampleUsers()})
	after := Reduce(before, RemoveItem{ID: 42})
	if !reflect.DeepEqual(after, before) {
		t.Fatalf("state changed: %#v", after)
	}
}

func TestPatchItem_MergesFields(t *testing.T) {
	before := Reduce(Initial(), ReplaceItems{Items: sampleUsers()})
	after := Reduce(before, PatchItem{ID: 2, Fields: api.UserFields{LastName: "Doe", Email: "jane.doe@x.com"}})

	got := after.Items[1]
	if got.FirstName != "Jane" || got.LastName != "Doe" || got.Email != "jane.doe@x.com" {
		t.Fatalf("patched item = %#v", got)
	}
	if before.Items[1].LastName != "Smith" {
		t.Fatalf("PatchItem modified the previous state")
	}
	if !reflect.DeepEqual(after.Items[0], before.Items[0]) || !reflect.DeepEqual(after.Items[2], before.Items[2]) {
		t.Fatalf("PatchItem touched other items")
	}
}

func TestPatchItem_UnknownIDIsNoop(t *testing.T) {
	before := Reduce(Initial(), ReplaceItems{Items: sampleUsers()})
	after := Reduce(before, PatchItem{ID: 99, Fields: api.UserFields{FirstName: "Ghost"}})
	if !reflect.DeepEqual(after, before) {
		t.Fatalf("state changed: %#v", after)
	}
}

func TestAppendItem(t *testing.T) {
	before := Reduce(Initial(), ReplaceItems{Items: sampleUsers()[:1]})
	after := Reduce(before, AppendItem{Item: api.User{ID: 13, FirstName: "New"}})
	if len(after.Items) != 2 || after.Items[1].ID != 13 {
		t.Fatalf("items = %#v", after.Items)
	}
	if len(before.Items) != 1 {
		t.Fatalf("AppendItem modified the previous state")
	}
}

func TestScalarActionsClamp(t *testing.T) {
	s := Reduce(Initial(),
		SetCurrentPage{Page: 0},
		SetTotal{Total: -3},
		SetTotalPages{TotalPages: 0},
		SetPerPage{PerPage: 0},
		SetLoading{Loading: true},
		SetError{Message: "boom"},
	)
	if s.CurrentPage != 1 || s.Total != 0 || s.TotalPages != 1 || s.PerPage != DefaultPerPage {
		t.Fatalf("state = %#v", s)
	}
	if !s.Loading || !s.HasError() {
		t.Fatalf("flags = loading %v error %q", s.Loading, s.Error)
	}
	if s = Reduce(s, SetError{}); s.HasError() {
		t.Fatalf("SetError{} did not clear error")
	}
}

func TestSubscribe_DeliversLatestState(t *testing.T) {
	var s Store
	ch, cancel := s.Subscribe()
	defer cancel()

	s.Dispatch(SetCurrentPage{Page: 2})
	s.Dispatch(SetCurrentPage{Page: 3})

	select {
	case got := <-ch:
		if got.CurrentPage != 3 {
			t.Fatalf("CurrentPage = %d, want 3 (latest)", got.CurrentPage)
		}
	case <-time.After(time.Second):
		t.Fatal("no state delivered")
	}

	select {
	case got := <-ch:
		t.Fatalf("unexpected extra state %#v", got)
	default:
	}
}

func TestSubscribe_CancelClosesChannel(t *testing.T) {
	var s Store
	ch, cancel := s.Subscribe()
	cancel()
	cancel()

	if _, ok := <-ch; ok {
		t.Fatal("channel still open after cancel")
	}
	// Dispatch after cancel must not panic on the closed channel.
	s.Dispatch(SetLoading{Loading: true})
}

func TestStore_UpdateSkipsEmptyTransitions(t *testing.T) {
	var s Store
	ch, cancel := s.Subscribe()
	defer cancel()

	s.Update(func(ListState) []Action { return nil })
	select {
	case <-ch:
		t.Fatal("empty update notified subscribers")
	default:
	}

	got := s.Update(func(cur ListState) []Action {
		return []Action{SetCurrentPage{Page: cur.CurrentPage + 1}}
	})
	if got.CurrentPage != 2 {
		t.Fatalf("CurrentPage = %d, want 2", got.CurrentPage)
	}
}
