package ui

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// searchState holds the inline search prompt.
type searchState struct {
	active bool
	input  textinput.Model
}

func newSearchState() searchState {
	ti := textinput.New()
	ti.Placeholder = "name or email"
	ti.Prompt = "/"
	ti.CharLimit = 100
	return searchState{input: ti}
}

// startSearch opens the prompt prefilled with the active term.
func (m *Model) startSearch() tea.Cmd {
	m.search.active = true
	m.search.input.SetValue(m.list.SearchTerm)
	m.search.input.CursorEnd()
	return m.search.input.Focus()
}

// handleSearchKey edits the prompt. Enter applies the term (an empty term
// clears the filter), esc leaves the current filter untouched.
func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.search.active = false
		m.search.input.Blur()
		m.applySearch(m.search.input.Value())
		return m, nil
	case tea.KeyEsc:
		m.search.active = false
		m.search.input.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.search.input, cmd = m.search.input.Update(msg)
	return m, cmd
}

// applySearch filters the current page with term as typed. It never
// fetches.
func (m *Model) applySearch(term string) {
	m.applyState(m.svc.Search(term))
	m.selectedRow = 0
}
