package tui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"
)

// Tag names a style used when painting session output.
type Tag string

const (
	TagFocus   Tag = "focus"
	TagBackend Tag = "backend"
	TagHeader  Tag = "header"
	TagInfo    Tag = "info"
	TagError   Tag = "error"
	TagPrompt  Tag = "prompt"
	TagChat    Tag = "chat"
	TagPrivate Tag = "private"
)

// PrefixWidth is the column width of the backend nickname in front of log lines.
const PrefixWidth = 8

// The renderer writes to remote terminals, not the local one, so the
// profile is pinned rather than detected.
var renderer = newRenderer()

func newRenderer() *lipgloss.Renderer {
	r := lipgloss.NewRenderer(io.Discard, termenv.WithProfile(termenv.ANSI256))
	r.SetColorProfile(termenv.ANSI256)
	return r
}

var styles = map[Tag]lipgloss.Style{
	TagFocus:   renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
	TagBackend: renderer.NewStyle().Foreground(lipgloss.Color("241")),
	TagHeader:  renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
	TagInfo:    renderer.NewStyle().Foreground(lipgloss.Color("245")),
	TagError:   renderer.NewStyle().Foreground(lipgloss.Color("196")),
	TagPrompt:  renderer.NewStyle().Bold(true),
	TagChat:    renderer.NewStyle().Foreground(lipgloss.Color("114")),
	TagPrivate: renderer.NewStyle().Foreground(lipgloss.Color("170")),
}

// Paint renders s in the style named by tag. Unknown tags leave s as is.
func Paint(tag Tag, s string) string {
	style, ok := styles[tag]
	if !ok {
		return s
	}
	return style.Render(s)
}

// Prefix formats a backend nickname for the log pane: right-justified to
// PrefixWidth and highlighted when it is the focused backend.
func Prefix(name string, focused bool) string {
	name = ansi.Truncate(name, PrefixWidth, "")
	padded := fmt.Sprintf("%*s", PrefixWidth, name)
	if focused {
		return Paint(TagFocus, padded)
	}
	return Paint(TagBackend, padded)
}
