package tui

import (
	"io"
	"strings"

	"github.com/charmbracelet/x/ansi"

	"github.com/firefly-engineering/adminmux/internal/terminal"
)

// Content is everything a Display can show for one frame.
type Content struct {
	Info   string
	Status []string
	Log    []string
	Chat   []string
	Prompt string
	Input  string
}

type pane int

const (
	paneInfo pane = iota
	paneStatus
	paneLog
	paneChat
	paneInput
	numPanes
)

// Display renders Content onto a terminal through a Screen. It remembers
// the last layout and the last text written to each pane so that an
// unchanged frame writes nothing.
type Display struct {
	screen Screen
	rows   int
	cols   int

	layout Layout
	drawn  bool
	last   [numPanes]string
	forced bool
}

// NewDisplay returns a Display using the Main screen.
func NewDisplay() *Display {
	return &Display{screen: Main{}}
}

// Screen returns the active screen variant.
func (d *Display) Screen() Screen {
	return d.screen
}

// SetScreen switches the screen variant.
func (d *Display) SetScreen(s Screen) {
	d.screen = s
}

// Resize records a new terminal geometry.
func (d *Display) Resize(rows, cols int) {
	d.rows, d.cols = rows, cols
}

// Size returns the recorded terminal geometry.
func (d *Display) Size() (rows, cols int) {
	return d.rows, d.cols
}

// Invalidate forces the next Render to redraw every pane.
func (d *Display) Invalidate() {
	d.forced = true
}

// Layout returns the layout used by the most recent Render.
func (d *Display) Layout() Layout {
	return d.layout
}

// Render writes the frame to w and leaves the cursor at the end of the
// input line. It reports whether a full redraw happened.
func (d *Display) Render(w io.Writer, c Content) (bool, error) {
	layout := d.screen.Layout(d.rows, len(c.Status))
	full := d.forced || !d.drawn || layout != d.layout
	if full {
		d.layout = layout
		d.drawn = true
		d.forced = false
		d.last = [numPanes]string{}
	}

	var b strings.Builder
	if full {
		b.WriteString(terminal.ResetStyle + terminal.ClearScreen)
	}
	visible := d.visibleInput(c)

	panes := [numPanes]struct {
		region Region
		lines  []string
	}{
		paneInfo:   {layout.Info, []string{c.Info}},
		paneStatus: {layout.Status, c.Status},
		paneLog:    {layout.Log, tail(c.Log, layout.Log.Height())},
		paneChat:   {layout.Chat, tail(c.Chat, layout.Chat.Height())},
		paneInput:  {layout.Input, []string{d.inputLine(c, visible)}},
	}

	for i, p := range panes {
		if p.region.Height() == 0 {
			continue
		}
		text := strings.Join(p.lines, "\n")
		if !full && text == d.last[i] {
			continue
		}
		d.last[i] = text
		d.printRegion(&b, p.region, p.lines)
	}

	d.focus(&b, c, visible)
	_, err := io.WriteString(w, b.String())
	return full, err
}

// printRegion writes lines into the region, one per row, clipping each to
// the terminal width and erasing leftover rows.
func (d *Display) printRegion(b *strings.Builder, r Region, lines []string) {
	for row := 0; row < r.Height(); row++ {
		var text string
		if row < len(lines) {
			text = lines[row]
		}
		d.printClipped(b, r.Start+row, text)
	}
}

func (d *Display) printClipped(b *strings.Builder, row int, text string) {
	b.WriteString(terminal.MoveTo(row, 0))
	b.WriteString(ansi.Truncate(text, d.cols, ""))
	b.WriteString(terminal.ResetStyle + terminal.EraseLineRight)
}

// inputLine renders the prompt and as much of the tail of the input as fits.
func (d *Display) inputLine(c Content, visible string) string {
	return Paint(TagPrompt, c.Prompt) + visible
}

func (d *Display) visibleInput(c Content) string {
	room := d.cols - ansi.StringWidth(c.Prompt) - 1
	if room <= 0 {
		return ""
	}
	if over := ansi.StringWidth(c.Input) - room; over > 0 {
		return ansi.TruncateLeft(c.Input, over, "")
	}
	return c.Input
}

// focus returns the cursor to the input row so typing is never displaced
// by output elsewhere.
func (d *Display) focus(b *strings.Builder, c Content, visible string) {
	col := ansi.StringWidth(c.Prompt) + ansi.StringWidth(visible)
	if d.cols > 0 {
		col = min(col, d.cols-1)
	}
	b.WriteString(terminal.MoveTo(d.layout.Input.Start, col))
}

// tail returns the last n lines.
func tail(lines []string, n int) []string {
	if n <= 0 {
		return nil
	}
	if len(lines) > n {
		return lines[len(lines)-n:]
	}
	return lines
}
