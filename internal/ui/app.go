package ui

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/roster/internal/api"
	"github.com/five82/roster/internal/listing"
	"github.com/five82/roster/internal/mutation"
	"github.com/five82/roster/internal/prefs"
	"github.com/five82/roster/internal/query"
	"github.com/five82/roster/internal/state"
)

// View represents the current active view.
type View int

const (
	ViewList View = iota
	ViewLogs
)

// Service is the users data layer the console drives. *users.Service
// implements it.
type Service interface {
	Store() *state.Store
	Current(ctx context.Context) query.Result[api.UserPage]
	Refetch(ctx context.Context) query.Result[api.UserPage]
	GoToPage(ctx context.Context, page int) query.Result[api.UserPage]
	Search(term string) state.ListState
	Delete(ctx context.Context, id int64, cb mutation.Callbacks[struct{}]) error
	DeletePending() bool
}

// Health reports background refresh failures. A nil Health hides the
// indicator.
type Health interface {
	ConsecutiveFailures() int
	LastError() error
}

// Options configures the UI.
type Options struct {
	Context   context.Context
	Service   Service
	Health    Health
	ThemeName string
	Sort      listing.Sort
	PrefsPath string
	LogFile   string
	Email     string // signed-in user shown in the header
	APIURL    string
	Tick      time.Duration
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx       context.Context
	svc       Service
	health    Health
	keys      keyMap
	prefsPath string
	logFile   string
	email     string
	apiURL    string
	tick      time.Duration

	// UI state
	theme       Theme
	currentView View
	width       int
	height      int
	ready       bool
	showHelp    bool

	// Data state
	list        state.ListState
	states      <-chan state.ListState
	unsubscribe func()
	lastUpdated time.Time

	// List state
	sort        listing.Sort
	selectedRow int
	deletingID  int64
	spinner     spinner.Model
	search      searchState

	// Overlays
	modal Modal
	toast toast

	// Log state
	logViewport viewport.Model
	logState    logState
}

// New creates a new Bubble Tea model subscribed to the service's store.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	tick := opts.Tick
	if tick <= 0 {
		tick = DefaultUIInterval
	}

	themeName := opts.ThemeName
	if themeName == "" {
		themeName = prefs.Default().Theme
	}

	store := opts.Service.Store()
	states, unsubscribe := store.Subscribe()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		ctx:         ctx,
		svc:         opts.Service,
		health:      opts.Health,
		keys:        DefaultKeyMap(),
		prefsPath:   opts.PrefsPath,
		logFile:     opts.LogFile,
		email:       opts.Email,
		apiURL:      opts.APIURL,
		tick:        tick,
		theme:       GetTheme(themeName),
		currentView: ViewList,
		list:        store.Snapshot(),
		states:      states,
		unsubscribe: unsubscribe,
		sort:        opts.Sort,
		spinner:     sp,
		search:      newSearchState(),
		logState:    newLogState(),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		waitForState(m.states),
		fetchCmd(m.ctx, m.svc.Current),
		m.spinner.Tick,
		tickCmd(m.tick),
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.updateLogViewport()
		return m, nil

	case stateMsg:
		m.applyState(state.ListState(msg))
		return m, waitForState(m.states)

	case fetchResultMsg:
		// Without data the error panel already shows the failure.
		if msg.err != nil && msg.hasData {
			cmd := m.notify(toastWarning, "Showing cached page: "+api.Describe(msg.err))
			return m, cmd
		}
		return m, nil

	case deleteConfirmedMsg:
		if m.svc.DeletePending() {
			cmd := m.notify(toastWarning, "Another delete is still in progress")
			return m, cmd
		}
		m.deletingID = msg.user.ID
		return m, deleteCmd(m.ctx, m.svc, msg.user)

	case deleteResultMsg:
		return m.handleDeleteResult(msg)

	case toastExpiredMsg:
		if m.toast.seq == msg.seq {
			m.toast = toast{}
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tickMsg:
		return m.handleTick()

	case logLoadedMsg:
		m.handleLogLoaded(msg)
		return m, nil
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	if m.modal != nil {
		return m.modal.View(m.theme, m.width, m.height)
	}
	return m.renderMain()
}

// handleKey processes keyboard input. Overlays take the key first.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	if m.modal != nil {
		next, cmd, done := m.modal.Update(msg, m.keys)
		if done {
			m.modal = nil
		} else {
			m.modal = next
		}
		return m, cmd
	}

	if m.search.active {
		return m.handleSearchKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.savePrefs()
		m.logState.dirty = true
		m.updateLogViewport()
		return m, nil

	case key.Matches(msg, m.keys.Logs):
		if m.currentView == ViewLogs {
			m.currentView = ViewList
			return m, nil
		}
		m.currentView = ViewLogs
		cmd := m.refreshLogs()
		return m, cmd
	}

	switch m.currentView {
	case ViewLogs:
		return m.handleLogsKey(msg)
	default:
		return m.handleListKey(msg)
	}
}

// handleListKey processes keyboard input for the list view.
func (m Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	rows := m.rows()
	info := listing.PageInfoFor(m.list)

	switch {
	case key.Matches(msg, m.keys.Up):
		if m.selectedRow > 0 {
			m.selectedRow--
		}
	case key.Matches(msg, m.keys.Down):
		if m.selectedRow < len(rows)-1 {
			m.selectedRow++
		}
	case key.Matches(msg, m.keys.Top):
		m.selectedRow = 0
	case key.Matches(msg, m.keys.Bottom):
		m.selectedRow = max(len(rows)-1, 0)

	case key.Matches(msg, m.keys.NextPage):
		if info.HasNext() {
			m.selectedRow = 0
			return m, goToPageCmd(m.ctx, m.svc, info.Page+1)
		}
	case key.Matches(msg, m.keys.PrevPage):
		if info.HasPrev() {
			m.selectedRow = 0
			return m, goToPageCmd(m.ctx, m.svc, info.Page-1)
		}

	case key.Matches(msg, m.keys.Search):
		cmd := m.startSearch()
		return m, cmd
	case key.Matches(msg, m.keys.Escape):
		if m.list.SearchTerm != "" {
			m.applySearch("")
		}

	case key.Matches(msg, m.keys.SortBy):
		m.sort.Column = m.sort.Column.Next()
		m.savePrefs()
	case key.Matches(msg, m.keys.SortDir):
		m.sort.Desc = !m.sort.Desc
		m.savePrefs()

	case key.Matches(msg, m.keys.Refetch):
		return m, fetchCmd(m.ctx, m.svc.Refetch)

	case key.Matches(msg, m.keys.Edit):
		if u, ok := m.selectedUser(); ok {
			cmd := m.notify(toastInfo, "Editing "+u.FullName()+" is not available here, use `roster users update`")
			return m, cmd
		}

	case key.Matches(msg, m.keys.Delete):
		u, ok := m.selectedUser()
		if !ok {
			return m, nil
		}
		if m.svc.DeletePending() {
			cmd := m.notify(toastWarning, "Another delete is still in progress")
			return m, cmd
		}
		m.modal = newConfirmDelete(u)
	}

	return m, nil
}

// handleDeleteResult turns the outcome of one delete into one notification.
func (m Model) handleDeleteResult(msg deleteResultMsg) (tea.Model, tea.Cmd) {
	if m.deletingID == msg.user.ID {
		m.deletingID = 0
	}
	switch {
	case errors.Is(msg.err, mutation.ErrPending):
		cmd := m.notify(toastWarning, "Another delete is still in progress")
		return m, cmd
	case msg.err != nil:
		cmd := m.notify(toastError, "Could not delete "+msg.user.FullName()+": "+api.Describe(msg.err))
		return m, cmd
	default:
		m.clampSelection()
		cmd := m.notify(toastSuccess, "Deleted "+msg.user.FullName())
		return m, cmd
	}
}

// handleTick processes the UI tick.
func (m Model) handleTick() (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{tickCmd(m.tick)}
	if m.currentView == ViewLogs && m.logState.follow {
		if cmd := m.refreshLogs(); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) applyState(s state.ListState) {
	m.list = s
	if !s.Loading && !s.HasError() {
		m.lastUpdated = time.Now()
	}
	m.clampSelection()
}

func (m *Model) clampSelection() {
	n := len(m.rows())
	if m.selectedRow >= n {
		m.selectedRow = n - 1
	}
	if m.selectedRow < 0 {
		m.selectedRow = 0
	}
}

// rows returns the filtered, sorted rows of the current page.
func (m Model) rows() []api.User {
	return listing.Rows(m.list, m.sort)
}

func (m Model) selectedUser() (api.User, bool) {
	rows := m.rows()
	if m.selectedRow < 0 || m.selectedRow >= len(rows) {
		return api.User{}, false
	}
	return rows[m.selectedRow], true
}

func (m Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	_ = prefs.Save(m.prefsPath, prefs.Prefs{
		Theme:    m.theme.Name,
		Sort:     m.sort.Column.String(),
		SortDesc: m.sort.Desc,
	})
}

// close releases the store subscription.
func (m Model) close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// Messages

type tickMsg time.Time

type stateMsg state.ListState

type fetchResultMsg struct {
	hasData bool
	err     error
}

type deleteConfirmedMsg struct {
	user api.User
}

type deleteResultMsg struct {
	user api.User
	err  error
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waitForState delivers the next store state. A closed subscription ends
// the chain.
func waitForState(ch <-chan state.ListState) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return nil
		}
		return stateMsg(s)
	}
}

func fetchCmd(ctx context.Context, fetch func(context.Context) query.Result[api.UserPage]) tea.Cmd {
	return func() tea.Msg {
		res := fetch(ctx)
		return fetchResultMsg{hasData: res.HasData, err: res.Err}
	}
}

func goToPageCmd(ctx context.Context, svc Service, page int) tea.Cmd {
	return fetchCmd(ctx, func(ctx context.Context) query.Result[api.UserPage] {
		return svc.GoToPage(ctx, page)
	})
}

func deleteCmd(ctx context.Context, svc Service, u api.User) tea.Cmd {
	return func() tea.Msg {
		result := deleteResultMsg{user: u}
		err := svc.Delete(ctx, u.ID, mutation.Callbacks[struct{}]{
			OnError: func(err error) { result.err = err },
		})
		if errors.Is(err, mutation.ErrPending) {
			result.err = err
		}
		return result
	}
}

// Run starts the Bubble Tea program and blocks until the user quits or the
// context is cancelled.
func Run(opts Options) error {
	m := New(opts)
	defer m.close()

	programOpts := []tea.ProgramOption{tea.WithAltScreen()}
	if opts.Context != nil {
		programOpts = append(programOpts, tea.WithContext(opts.Context))
	}
	p := tea.NewProgram(m, programOpts...)
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && opts.Context != nil && opts.Context.Err() != nil {
		return nil
	}
	return err
}
