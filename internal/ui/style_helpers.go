package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// BgStyle paints header and footer segments on a single background.
// Lipgloss emits a reset after every rendered segment, so the plain spaces
// between segments would otherwise show the terminal's own background.
type BgStyle struct {
	base  lipgloss.Style
	space string
}

func NewBgStyle(bgColor string) BgStyle {
	base := lipgloss.NewStyle().Background(lipgloss.Color(bgColor))
	return BgStyle{base: base, space: base.Render(" ")}
}

// Render applies style word by word so the separating spaces keep the
// background. Runs of spaces are preserved.
func (b BgStyle) Render(text string, style lipgloss.Style) string {
	if text == "" {
		return ""
	}
	painted := style.Inherit(b.base)
	var sb strings.Builder
	for i, word := range strings.Split(text, " ") {
		if i > 0 {
			sb.WriteString(b.space)
		}
		if word != "" {
			sb.WriteString(painted.Render(word))
		}
	}
	return sb.String()
}

func (b BgStyle) Space() string { return b.space }

func (b BgStyle) Spaces(n int) string {
	if n <= 0 {
		return ""
	}
	return b.base.Render(strings.Repeat(" ", n))
}

// Sep renders a separator with no foreground of its own.
func (b BgStyle) Sep(sep string) string { return b.base.Render(sep) }

func (b BgStyle) Join(parts []string, sep string) string {
	return strings.Join(parts, b.Sep(sep))
}

// FillLine pads content to width.
func (b BgStyle) FillLine(content string, width int) string {
	return b.base.Width(width).Render(content)
}
