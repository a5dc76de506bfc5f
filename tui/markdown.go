package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// markdown renders assistant replies. The renderer is rebuilt on
// resize because word wrap is fixed at construction.
type markdown struct {
	renderer *glamour.TermRenderer
	width    int
}

func (m *markdown) setWidth(width int) {
	if width == m.width && m.renderer != nil {
		return
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return
	}
	m.renderer = renderer
	m.width = width
}

// render returns the markdown rendering of text, or the raw text when
// no renderer is available.
func (m *markdown) render(text string) string {
	if m.renderer == nil {
		return text
	}
	out, err := m.renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}
