package ui

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/five82/roster/internal/api"
)

// renderMain renders the full UI.
func (m Model) renderMain() string {
	var b strings.Builder

	// Header line 1: logo + status
	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	// Header line 2: command bar
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")

	switch m.currentView {
	case ViewLogs:
		b.WriteString(m.renderLogs())
	default:
		b.WriteString(m.renderList())
	}
	return b.String()
}

// renderHeader renders the status bar.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	compact := m.width < LayoutCompactWidth

	parts := []string{bg.Render("roster", styles.Logo)}

	if host := apiHost(m.apiURL); host != "" && !compact {
		parts = append(parts, bg.Render(host, styles.MutedText))
	}
	if m.email != "" {
		parts = append(parts, bg.Render("●", styles.SuccessText)+bg.Space()+bg.Render(m.email, styles.Text))
	}

	parts = append(parts,
		bg.Render("Users:", styles.MutedText)+bg.Space()+
			bg.Render(fmt.Sprintf("%d", m.list.Total), styles.Text),
	)

	if m.svc.DeletePending() {
		parts = append(parts, bg.Render("deleting…", styles.WarningText))
	}

	if ts := formatTimestamp(m.lastUpdated, time.Now()); ts != "" {
		parts = append(parts, bg.Render(ts, styles.MutedText))
	}

	if warning := m.formatHealthWarning(compact, styles, bg); warning != "" {
		parts = append(parts, warning)
	}

	return styles.Header.Width(m.width).Render(bg.Join(parts, "  "))
}

// formatHealthWarning reports failing background refreshes.
func (m Model) formatHealthWarning(compact bool, styles Styles, bg BgStyle) string {
	if m.health == nil {
		return ""
	}
	failures := m.health.ConsecutiveFailures()
	if failures == 0 {
		return ""
	}
	label := fmt.Sprintf("REFRESH FAILING ×%d", failures)
	detail := api.Describe(m.health.LastError())
	if detail == "" || compact {
		return bg.Render(label, styles.DangerText)
	}
	return bg.Render(label, styles.DangerText) + bg.Space() +
		bg.Render(truncate(detail, 40), styles.DangerText)
}

// formatTimestamp formats the last update time with a relative hint.
func formatTimestamp(last, now time.Time) string {
	if last.IsZero() {
		return ""
	}
	since := now.Sub(last)
	out := last.Format("15:04:05")
	switch {
	case since < time.Minute:
		out += " (now)"
	case since < time.Hour:
		out += fmt.Sprintf(" (%dm ago)", int(since.Minutes()))
	case since < 24*time.Hour:
		out += fmt.Sprintf(" (%dh ago)", int(since.Hours()))
	}
	return out
}

func apiHost(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Host
}

// renderCommandBar renders the command hints bar.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	type cmd struct{ key, desc string }
	var commands []cmd

	switch m.currentView {
	case ViewLogs:
		followLabel := "Pause"
		if !m.logState.follow {
			followLabel = "Follow"
		}
		commands = []cmd{
			{"Space", followLabel},
			{"v", "Level"},
			{"j/k", "Scroll"},
			{"l", "Users"},
			{"?", "More"},
		}
	default:
		commands = []cmd{
			{"n/p", "Page"},
			{"/", "Search"},
			{"s", m.sort.Label()},
			{"d", "Delete"},
			{"e", "Edit"},
			{"r", "Reload"},
			{"l", "Logs"},
			{"?", "More"},
		}
	}

	colon := bg.Sep(":")
	segments := make([]string, 0, len(commands)+2)
	for _, c := range commands {
		segments = append(segments,
			bg.Render(c.key, styles.AccentText)+colon+bg.Render(c.desc, styles.MutedText))
	}

	if m.currentView == ViewList && m.list.SearchTerm != "" {
		segments = append(segments,
			bg.Render("/"+truncate(m.list.SearchTerm, 18), styles.AccentText))
	}

	segments = append(segments,
		bg.Render("T", styles.AccentText)+colon+bg.Render(m.theme.Name, styles.FaintText))

	return styles.Header.Width(m.width).Render(strings.Join(segments, bg.Spaces(2)))
}
