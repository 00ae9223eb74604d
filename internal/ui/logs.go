package ui

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/roster/internal/logtail"
)

// logLevels is the cycle of minimum levels offered by the log view.
var logLevels = []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError}

// logState holds all log-related state.
type logState struct {
	lines       []logtail.Line
	err         error
	follow      bool
	minLevel    slog.Level
	lastRefresh time.Time
	dirty       bool
}

func newLogState() logState {
	return logState{follow: true, minLevel: slog.LevelDebug}
}

type logLoadedMsg struct {
	lines []logtail.Line
	err   error
}

// refreshLogs reads the tail of the log file unless a read happened within
// LogRefreshDebounce.
func (m *Model) refreshLogs() tea.Cmd {
	if m.logFile == "" {
		return nil
	}
	now := time.Now()
	if !m.logState.lastRefresh.IsZero() && now.Sub(m.logState.lastRefresh) < LogRefreshDebounce {
		return nil
	}
	m.logState.lastRefresh = now
	return loadLogsCmd(m.logFile, logtail.Options{MaxLines: LogLineLimit, MinLevel: m.logState.minLevel})
}

func loadLogsCmd(path string, opts logtail.Options) tea.Cmd {
	return func() tea.Msg {
		lines, err := logtail.Read(path, opts)
		return logLoadedMsg{lines: lines, err: err}
	}
}

func (m *Model) handleLogLoaded(msg logLoadedMsg) {
	m.logState.err = msg.err
	if msg.err == nil {
		m.logState.lines = msg.lines
	}
	m.logState.dirty = true
	m.updateLogViewport()
}

// handleLogsKey processes keyboard input for the log view.
func (m Model) handleLogsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Escape):
		m.currentView = ViewList
		return m, nil
	case key.Matches(msg, m.keys.Follow):
		m.logState.follow = !m.logState.follow
		if m.logState.follow {
			m.logViewport.GotoBottom()
		}
		return m, nil
	case key.Matches(msg, m.keys.LogLevel):
		m.logState.minLevel = nextLogLevel(m.logState.minLevel)
		m.logState.lastRefresh = time.Time{}
		cmd := m.refreshLogs()
		return m, cmd
	case key.Matches(msg, m.keys.Top):
		m.logState.follow = false
		m.logViewport.GotoTop()
		return m, nil
	case key.Matches(msg, m.keys.Bottom):
		m.logViewport.GotoBottom()
		return m, nil
	}

	// Manual scrolling pauses follow mode.
	if key.Matches(msg, m.keys.Up) {
		m.logState.follow = false
	}
	var cmd tea.Cmd
	m.logViewport, cmd = m.logViewport.Update(msg)
	return m, cmd
}

func nextLogLevel(current slog.Level) slog.Level {
	for i, lvl := range logLevels {
		if lvl == current {
			return logLevels[(i+1)%len(logLevels)]
		}
	}
	return logLevels[0]
}

// updateLogViewport sizes the viewport and re-renders content when it
// changed.
func (m *Model) updateLogViewport() {
	if m.width == 0 || m.height == 0 {
		return
	}
	// Box height = m.height - 3 (header, command bar, status line below);
	// inner = box height - 2 borders.
	w, h := max(m.width-4, 1), max(m.height-5, 1)
	if m.logViewport.Width == 0 {
		m.logViewport = viewport.New(w, h)
	}
	m.logViewport.Width = w
	m.logViewport.Height = h
	m.logViewport.Style = lipgloss.NewStyle().Background(lipgloss.Color(m.theme.FocusBg))

	if m.logState.dirty {
		m.logViewport.SetContent(m.renderLogContent())
		m.logState.dirty = false
	}
	if m.logState.follow {
		m.logViewport.GotoBottom()
	}
}

func (m Model) renderLogContent() string {
	styles := m.theme.Styles().WithBackground(m.theme.FocusBg)
	if m.logState.err != nil {
		return styles.DangerText.Render(m.logState.err.Error())
	}
	if len(m.logState.lines) == 0 {
		return styles.FaintText.Render("No log lines yet")
	}

	width := max(m.width-4, 10)
	out := make([]string, 0, len(m.logState.lines))
	for _, line := range m.logState.lines {
		out = append(out, logLineStyle(styles, line).Render(truncate(line.Text, width)))
	}
	return strings.Join(out, "\n")
}

func logLineStyle(styles Styles, line logtail.Line) lipgloss.Style {
	if !line.HasLevel {
		return styles.MutedText
	}
	switch {
	case line.Level >= slog.LevelError:
		return styles.DangerText
	case line.Level >= slog.LevelWarn:
		return styles.WarningText
	case line.Level < slog.LevelInfo:
		return styles.FaintText
	default:
		return styles.Text
	}
}

// renderLogs renders the log view.
func (m Model) renderLogs() string {
	bg := NewBgStyle(m.theme.Background)
	styles := m.theme.Styles()
	contentHeight := m.height - 3

	title := "Log " + truncateMiddle(m.logFile, max(m.width-20, 10))
	box := m.renderBox(title, m.logViewport.View(), m.width, contentHeight, true)

	follow := "off"
	if m.logState.follow {
		follow = "on"
	}
	status := fmt.Sprintf("%d lines  level ≥ %s  follow %s", len(m.logState.lines), m.logState.minLevel, follow)
	return box + "\n" + bg.FillLine(bg.Render(status, styles.FaintText), m.width)
}

// renderBox draws content inside a rounded border with title on the top
// line.
func (m Model) renderBox(title, content string, width, height int, focused bool) string {
	border := m.theme.Border
	if focused {
		border = m.theme.BorderFocus
	}
	styles := m.theme.Styles().WithBackground(m.theme.FocusBg)
	body := styles.AccentText.Bold(true).Render(title) + "\n" + content

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(border)).
		Background(lipgloss.Color(m.theme.FocusBg)).
		Width(max(width-2, 1)).
		Height(max(height-2, 1)).
		MaxHeight(max(height, 1)).
		Render(body)
}
