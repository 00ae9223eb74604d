package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/roster/internal/listing"
)

const (
	idColumnWidth    = 6
	emailColumnWidth = 32
)

// renderList renders the users table, or the loading or error panel that
// replaces it.
func (m Model) renderList() string {
	height := max(m.height-3, 3)
	bg := NewBgStyle(m.theme.Background)
	styles := m.theme.Styles().WithBackground(m.theme.Background)

	var body string
	switch {
	case m.list.HasError():
		body = m.renderErrorPanel(height)
	case m.list.Loading && len(m.list.Items) == 0:
		body = m.renderPanel(height, m.spinner.View()+" Loading users…", m.theme.Border)
	default:
		body = m.renderTable(height - 2)
	}

	lines := []string{body}
	if !m.list.HasError() && !(m.list.Loading && len(m.list.Items) == 0) {
		lines = append(lines, bg.FillLine(m.renderPagination(styles, bg), m.width))
	}
	if search := m.search; search.active {
		lines = append(lines, bg.FillLine(search.input.View(), m.width))
	} else {
		lines = append(lines, bg.FillLine(m.renderToast(styles, bg), m.width))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderPanel(height int, text, border string) string {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(border)).
		Width(max(m.width-2, 1)).
		Height(max(height-3, 1)).
		Align(lipgloss.Center, lipgloss.Center).
		Render(text)
}

func (m Model) renderErrorPanel(height int) string {
	styles := m.theme.Styles()
	text := styles.DangerText.Render("Could not load users") + "\n\n" +
		styles.Text.Render(m.list.Error) + "\n\n" +
		styles.MutedText.Render("press r to retry")
	return m.renderPanel(height, text, m.theme.Danger)
}

// renderTable renders the header row and the visible rows of the page.
func (m Model) renderTable(height int) string {
	styles := m.theme.Styles()
	rows := m.rows()
	showEmail := m.width >= LayoutCompactWidth

	nameWidth := max(m.width-idColumnWidth-4, 10)
	if showEmail {
		nameWidth = max(m.width-idColumnWidth-emailColumnWidth-6, 10)
	}

	format := func(id, name, email string) string {
		line := " " + fit(id, idColumnWidth) + " " + fit(name, nameWidth)
		if showEmail {
			line += "  " + fit(email, emailColumnWidth)
		}
		return padRight(line, m.width)
	}

	out := []string{styles.TableHeader.Render(format(
		headerLabel("ID", listing.ColumnID, m.sort),
		headerLabel("Name", listing.ColumnName, m.sort),
		headerLabel("Email", listing.ColumnEmail, m.sort),
	))}

	if len(rows) == 0 {
		msg := "No users on this page"
		if m.list.SearchTerm != "" {
			msg = fmt.Sprintf("No users on this page match %q", m.list.SearchTerm)
		}
		out = append(out, styles.FaintText.Render(padRight(" "+msg, m.width)))
	}

	start := 0
	visible := max(height-1, 1)
	if m.selectedRow >= visible {
		start = m.selectedRow - visible + 1
	}
	for i := start; i < len(rows) && i < start+visible; i++ {
		u := rows[i]
		name := u.FullName()
		if u.ID == m.deletingID {
			name += " (deleting…)"
		}
		line := format(fmt.Sprintf("%d", u.ID), name, u.Email)
		style := styles.Text
		switch {
		case i == m.selectedRow:
			style = styles.Selected
		case u.ID == m.deletingID:
			style = styles.FaintText
		}
		out = append(out, style.Render(line))
	}

	for len(out) < height {
		out = append(out, "")
	}
	return strings.Join(out, "\n")
}

func headerLabel(title string, col listing.Column, sort listing.Sort) string {
	if sort.Column != col {
		return title
	}
	if sort.Desc {
		return title + " ↓"
	}
	return title + " ↑"
}

// renderPagination renders "1-6 of 12 items  page 1/2".
func (m Model) renderPagination(styles Styles, bg BgStyle) string {
	info := listing.PageInfoFor(m.list)

	prev := styles.FaintText
	if info.HasPrev() {
		prev = styles.AccentText
	}
	next := styles.FaintText
	if info.HasNext() {
		next = styles.AccentText
	}

	parts := []string{
		bg.Render("‹", prev) + bg.Space() +
			bg.Render(fmt.Sprintf("page %d/%d", info.Page, info.TotalPages), styles.Text) + bg.Space() +
			bg.Render("›", next),
		bg.Render(info.Label(), styles.MutedText),
	}
	if m.list.SearchTerm != "" {
		shown := len(m.rows())
		parts = append(parts, bg.Render(fmt.Sprintf("%d shown for %q", shown, m.list.SearchTerm), styles.InfoText))
	}
	return bg.Space() + bg.Join(parts, "   ")
}
