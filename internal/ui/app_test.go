package ui

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/roster/internal/api"
	"github.com/five82/roster/internal/listing"
	"github.com/five82/roster/internal/mutation"
	"github.com/five82/roster/internal/prefs"
	"github.com/five82/roster/internal/query"
	"github.com/five82/roster/internal/state"
)

type fakeService struct {
	store *state.Store

	mu        sync.Mutex
	pending   bool
	deleteErr error
	deleted   []int64
	pages     []int
	refetches int
}

func newFakeService() *fakeService {
	return &fakeService{store: state.NewStore(state.Reduce(state.Initial(),
		state.ReplaceItems{Items: []api.User{
			{ID: 1, FirstName: "George", LastName: "Bluth", Email: "george.bluth@reqres.in"},
			{ID: 2, FirstName: "Janet", LastName: "Weaver", Email: "janet.weaver@reqres.in"},
			{ID: 3, FirstName: "Emma", LastName: "Wong", Email: "emma.wong@reqres.in"},
		}},
		state.SetTotal{Total: 12},
		state.SetTotalPages{TotalPages: 2},
	))}
}

func (f *fakeService) Store() *state.Store { return f.store }

func (f *fakeService) Current(context.Context) query.Result[api.UserPage] {
	return query.Result[api.UserPage]{HasData: true}
}

func (f *fakeService) Refetch(context.Context) query.Result[api.UserPage] {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refetches++
	return query.Result[api.UserPage]{HasData: true}
}

func (f *fakeService) GoToPage(_ context.Context, page int) query.Result[api.UserPage] {
	f.mu.Lock()
	f.pages = append(f.pages, page)
	f.mu.Unlock()
	f.store.Dispatch(state.SetCurrentPage{Page: page})
	return query.Result[api.UserPage]{HasData: true}
}

func (f *fakeService) Search(term string) state.ListState {
	return f.store.Dispatch(state.SetSearchTerm{Term: term})
}

func (f *fakeService) Delete(_ context.Context, id int64, cb mutation.Callbacks[struct{}]) error {
	f.mu.Lock()
	pending, deleteErr := f.pending, f.deleteErr
	f.mu.Unlock()
	if pending {
		return mutation.ErrPending
	}
	if deleteErr != nil {
		if cb.OnError != nil {
			cb.OnError(deleteErr)
		}
		return deleteErr
	}
	f.mu.Lock()
	f.deleted = append(f.deleted, id)
	f.mu.Unlock()
	f.store.Dispatch(state.RemoveItem{ID: id})
	if cb.OnSuccess != nil {
		cb.OnSuccess(struct{}{})
	}
	return nil
}

func (f *fakeService) DeletePending() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pending
}

func newTestModel(t *testing.T, svc *fakeService, opts Options) Model {
	t.Helper()
	opts.Service = svc
	m := New(opts)
	t.Cleanup(m.close)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 30})
	return next.(Model)
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func press(t *testing.T, m Model, keys string) (Model, tea.Cmd) {
	t.Helper()
	switch keys {
	case "enter":
		return update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	case "esc":
		return update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	}
	return update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(keys)})
}

func rowIDs(m Model) []int64 {
	var ids []int64
	for _, u := range m.rows() {
		ids = append(ids, u.ID)
	}
	return ids
}

func TestModel_RendersRowsAndPagination(t *testing.T) {
	m := newTestModel(t, newFakeService(), Options{Email: "eve.holt@reqres.in", APIURL: "http://localhost:8080/api/"})

	view := m.View()
	for _, want := range []string{"Janet Weaver", "emma.wong@reqres.in", "1-6 of 12 items", "page 1/2", "eve.holt@reqres.in", "localhost:8080"} {
		if !strings.Contains(view, want) {
			t.Fatalf("View missing %q", want)
		}
	}
}

func TestModel_LoadingAndErrorPanels(t *testing.T) {
	m := newTestModel(t, newFakeService(), Options{})

	m, _ = update(t, m, stateMsg(state.Reduce(state.Initial(), state.SetLoading{Loading: true})))
	if view := m.View(); !strings.Contains(view, "Loading users") {
		t.Fatalf("View = %q, want loading panel", view)
	}

	m, _ = update(t, m, stateMsg(state.Reduce(state.Initial(), state.SetError{Message: "Missing API key (HTTP 401)"})))
	view := m.View()
	if !strings.Contains(view, "Could not load users") || !strings.Contains(view, "Missing API key") {
		t.Fatalf("View = %q, want error panel", view)
	}
	if strings.Contains(view, "items") {
		t.Fatalf("error panel should replace the pagination line")
	}
}

func TestModel_DeleteConfirmedRemovesRowWithOneNotification(t *testing.T) {
	svc := newFakeService()
	m := newTestModel(t, svc, Options{})

	m, _ = press(t, m, "j")
	m, _ = press(t, m, "d")
	if m.modal == nil {
		t.Fatalf("expected confirmation modal")
	}
	if view := m.View(); !strings.Contains(view, "Janet Weaver") {
		t.Fatalf("modal view = %q, want it to name the user", view)
	}

	m, cmd := press(t, m, "y")
	if m.modal != nil || cmd == nil {
		t.Fatalf("confirm should close the modal and emit a command")
	}
	m, cmd = update(t, m, cmd())
	if m.deletingID != 2 {
		t.Fatalf("deletingID = %d, want 2", m.deletingID)
	}
	m, cmd = update(t, m, cmd())
	if cmd == nil {
		t.Fatalf("expected toast expiry command")
	}
	if m.toast.kind != toastSuccess || m.toast.text != "Deleted Janet Weaver" {
		t.Fatalf("toast = %+v", m.toast)
	}
	if m.deletingID != 0 {
		t.Fatalf("deletingID = %d after result, want 0", m.deletingID)
	}

	m, _ = update(t, m, stateMsg(svc.store.Snapshot()))
	if got := rowIDs(m); len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Fatalf("rows = %v, want [1 3]", got)
	}
}

func TestModel_DeleteFailureKeepsRows(t *testing.T) {
	svc := newFakeService()
	svc.deleteErr = &api.Error{Op: "DELETE users/1", Status: 500, Message: "boom"}
	m := newTestModel(t, svc, Options{})

	m, _ = press(t, m, "d")
	m, cmd := press(t, m, "y")
	m, cmd = update(t, m, cmd())
	m, _ = update(t, m, cmd())

	if m.toast.kind != toastError || !strings.Contains(m.toast.text, "boom (HTTP 500)") {
		t.Fatalf("toast = %+v", m.toast)
	}
	if got := len(svc.store.Snapshot().Items); got != 3 {
		t.Fatalf("items = %d, want 3", got)
	}
}

func TestModel_DeleteRejectedWhilePending(t *testing.T) {
	svc := newFakeService()
	svc.pending = true
	m := newTestModel(t, svc, Options{})

	m, cmd := press(t, m, "d")
	if m.modal != nil {
		t.Fatalf("modal opened while a delete is pending")
	}
	if cmd == nil || m.toast.kind != toastWarning {
		t.Fatalf("toast = %+v, want warning", m.toast)
	}
}

func TestModel_DeleteDeclined(t *testing.T) {
	svc := newFakeService()
	m := newTestModel(t, svc, Options{})

	m, _ = press(t, m, "d")
	m, cmd := press(t, m, "n")
	if m.modal != nil || cmd != nil {
		t.Fatalf("decline should close the modal without a command")
	}
	if len(svc.deleted) != 0 {
		t.Fatalf("deleted = %v, want none", svc.deleted)
	}
}

func TestModel_SearchAppliesAndClears(t *testing.T) {
	m := newTestModel(t, newFakeService(), Options{})

	m, _ = press(t, m, "/")
	if !m.search.active {
		t.Fatalf("search prompt not active")
	}
	for _, r := range "WEAV" {
		m, _ = press(t, m, string(r))
	}
	m, _ = press(t, m, "enter")
	if m.search.active || m.list.SearchTerm != "WEAV" {
		t.Fatalf("search active=%v term=%q", m.search.active, m.list.SearchTerm)
	}
	if got := rowIDs(m); len(got) != 1 || got[0] != 2 {
		t.Fatalf("rows = %v, want [2]", got)
	}

	// esc in the prompt keeps the filter
	m, _ = press(t, m, "/")
	m, _ = press(t, m, "esc")
	if m.list.SearchTerm != "WEAV" {
		t.Fatalf("term = %q after cancel, want WEAV", m.list.SearchTerm)
	}

	// an empty term clears it
	m, _ = press(t, m, "/")
	m.search.input.SetValue("")
	m, _ = press(t, m, "enter")
	if m.list.SearchTerm != "" || len(m.rows()) != 3 {
		t.Fatalf("term = %q rows = %d, want cleared", m.list.SearchTerm, len(m.rows()))
	}
}

func TestModel_SearchKeepsSpaces(t *testing.T) {
	m := newTestModel(t, newFakeService(), Options{})

	m, _ = press(t, m, "/")
	m.search.input.SetValue(" weaver")
	m, _ = press(t, m, "enter")
	if m.list.SearchTerm != " weaver" {
		t.Fatalf("term = %q, want %q", m.list.SearchTerm, " weaver")
	}
	if got := rowIDs(m); len(got) != 0 {
		t.Fatalf("rows = %v, want none", got)
	}

	m, _ = press(t, m, "/")
	m.search.input.SetValue("   ")
	m, _ = press(t, m, "enter")
	if got := rowIDs(m); len(got) != 0 {
		t.Fatalf("rows for blank term = %v, want none", got)
	}
}

func TestModel_PageKeysRespectBounds(t *testing.T) {
	svc := newFakeService()
	m := newTestModel(t, svc, Options{})

	if _, cmd := press(t, m, "p"); cmd != nil {
		t.Fatalf("previous page on page 1 should do nothing")
	}
	_, cmd := press(t, m, "n")
	if cmd == nil {
		t.Fatalf("next page should fetch")
	}
	if msg, ok := cmd().(fetchResultMsg); !ok || msg.err != nil {
		t.Fatalf("fetch msg = %#v", msg)
	}
	if len(svc.pages) != 1 || svc.pages[0] != 2 {
		t.Fatalf("pages = %v, want [2]", svc.pages)
	}

	m, _ = update(t, m, stateMsg(svc.store.Snapshot()))
	if _, cmd := press(t, m, "n"); cmd != nil {
		t.Fatalf("next page on the last page should do nothing")
	}
}

func TestModel_FetchFailureWithCachedRowsNotifies(t *testing.T) {
	m := newTestModel(t, newFakeService(), Options{})

	m, cmd := update(t, m, fetchResultMsg{hasData: true, err: errors.New("connection refused")})
	if cmd == nil || m.toast.kind != toastWarning || !strings.Contains(m.toast.text, "cached") {
		t.Fatalf("toast = %+v", m.toast)
	}

	m2 := newTestModel(t, newFakeService(), Options{})
	m2, cmd = update(t, m2, fetchResultMsg{err: errors.New("connection refused")})
	if cmd != nil || m2.toast.text != "" {
		t.Fatalf("failure without data should rely on the error panel, toast = %+v", m2.toast)
	}
}

func TestModel_ToastExpiresOnlyForCurrentSequence(t *testing.T) {
	m := newTestModel(t, newFakeService(), Options{})

	m, _ = press(t, m, "e")
	first := m.toast.seq
	if m.toast.kind != toastInfo || !strings.Contains(m.toast.text, "George Bluth") {
		t.Fatalf("toast = %+v", m.toast)
	}
	m, _ = press(t, m, "e")

	m, _ = update(t, m, toastExpiredMsg{seq: first})
	if m.toast.text == "" {
		t.Fatalf("stale expiry cleared the newer toast")
	}
	m, _ = update(t, m, toastExpiredMsg{seq: m.toast.seq})
	if m.toast.text != "" {
		t.Fatalf("toast not cleared")
	}
}

func TestModel_SortKeysPersistPrefs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.toml")
	m := newTestModel(t, newFakeService(), Options{PrefsPath: path, ThemeName: "Slate"})

	m, _ = press(t, m, "s")
	m, _ = press(t, m, "s")
	m, _ = press(t, m, "S")
	if m.sort.Column != listing.ColumnName || !m.sort.Desc {
		t.Fatalf("sort = %+v, want name desc", m.sort)
	}
	if got := rowIDs(m); len(got) != 3 || got[0] != 2 || got[1] != 1 || got[2] != 3 {
		t.Fatalf("rows = %v, want [2 1 3]", got)
	}

	p, err := prefs.Load(path)
	if err != nil {
		t.Fatalf("prefs.Load: %v", err)
	}
	if p.Sort != "name" || !p.SortDesc || p.Theme != "Slate" {
		t.Fatalf("prefs = %+v", p)
	}
}

func TestModel_RefetchAndQuit(t *testing.T) {
	svc := newFakeService()
	m := newTestModel(t, svc, Options{})

	_, cmd := press(t, m, "r")
	if cmd == nil {
		t.Fatalf("refetch should return a command")
	}
	cmd()
	if svc.refetches != 1 {
		t.Fatalf("refetches = %d, want 1", svc.refetches)
	}

	_, cmd = press(t, m, "q")
	if cmd == nil {
		t.Fatalf("quit should return tea.Quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("quit cmd returned %T", cmd())
	}
}

func TestModel_HelpOverlayListsBindings(t *testing.T) {
	m := newTestModel(t, newFakeService(), Options{})

	m, _ = press(t, m, "?")
	view := m.View()
	for _, want := range []string{"Keyboard Shortcuts", "Next page", "Delete user", "Cycle theme"} {
		if !strings.Contains(view, want) {
			t.Fatalf("help missing %q", want)
		}
	}
	m, _ = press(t, m, "x")
	if m.showHelp {
		t.Fatalf("any key should close help")
	}
}

type fakeHealth struct {
	failures int
	err      error
}

func (h fakeHealth) ConsecutiveFailures() int { return h.failures }
func (h fakeHealth) LastError() error         { return h.err }

func TestModel_HeaderShowsRefreshFailures(t *testing.T) {
	m := newTestModel(t, newFakeService(), Options{Health: fakeHealth{failures: 3, err: errors.New("timeout")}})
	if view := m.View(); !strings.Contains(view, "REFRESH FAILING ×3") {
		t.Fatalf("header missing refresh warning")
	}
}
