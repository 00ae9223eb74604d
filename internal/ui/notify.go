package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

type toastKind int

const (
	toastInfo toastKind = iota
	toastSuccess
	toastWarning
	toastError
)

// toast is a transient notification shown under the table.
type toast struct {
	text string
	kind toastKind
	seq  int
}

type toastExpiredMsg struct {
	seq int
}

// notify replaces the current toast and schedules its expiry.
func (m *Model) notify(kind toastKind, text string) tea.Cmd {
	seq := m.toast.seq + 1
	m.toast = toast{text: text, kind: kind, seq: seq}
	return tea.Tick(ToastDuration, func(time.Time) tea.Msg {
		return toastExpiredMsg{seq: seq}
	})
}

func (m Model) renderToast(styles Styles, bg BgStyle) string {
	if m.toast.text == "" {
		return ""
	}
	text := truncate(m.toast.text, max(m.width-4, 10))
	switch m.toast.kind {
	case toastSuccess:
		return bg.Render("✓ "+text, styles.SuccessText)
	case toastWarning:
		return bg.Render("! "+text, styles.WarningText)
	case toastError:
		return bg.Render("✗ "+text, styles.DangerText)
	default:
		return bg.Render("• "+text, styles.InfoText)
	}
}
