package session

import (
	"fmt"
	"strings"

	"github.com/firefly-engineering/adminmux/internal/backend"
	"github.com/firefly-engineering/adminmux/internal/tui"
)

// Render draws the session's view and flushes it to the client.
func (s *Session) Render() {
	if s.moribund || s.state == StateNoTerminal {
		return
	}
	if _, err := s.display.Render(s.client, s.content()); err != nil {
		s.fail(err)
		return
	}
	s.flush()
}

func (s *Session) content() tui.Content {
	c := tui.Content{
		Log:  s.logBuf,
		Chat: s.chatBuf,
	}

	switch s.state {
	case StateLogin:
		c.Prompt = "login: "
	case StatePassword:
		c.Prompt = "password: "
		if s.Connecting() {
			c.Prompt = "connecting... "
			return c
		}
	case StateShell:
		c.Prompt = s.Focused() + "> "
		c.Info = s.infoLine()
		c.Status = s.statusLines()
	}
	if s.echo {
		c.Input = s.client.Pending()
	}
	return c
}

// infoLine summarizes the focused backend for the Main screen.
func (s *Session) infoLine() string {
	name := s.Focused()
	if name == "" {
		return tui.Paint(tui.TagError, "no backends") + "  " + s.Username()
	}
	zone := "-"
	if b, ok := s.deps.backend(name); ok && b.Zone != "" {
		zone = b.Zone
	}
	return fmt.Sprintf("%s %s  clients %d  map %s  %s",
		tui.Paint(tui.TagFocus, name),
		tui.Paint(tui.TagInfo, "["+zone+"]"),
		s.deps.Cache.NumClients(name),
		s.deps.Cache.CurMap(name),
		tui.Paint(tui.TagInfo, s.Username()),
	)
}

// statusLines returns the focused backend's status panel, or nil when no
// status has been received.
func (s *Session) statusLines() []string {
	if _, ok := s.display.Screen().(tui.Status); !ok {
		return nil
	}
	name := s.Focused()
	if name == "" {
		return nil
	}
	view := s.deps.Cache.GetStatusView(name)
	if view.Info == "" && view.Header == "" && len(view.Details) == 0 {
		return []string{tui.Paint(tui.TagInfo, name+": waiting for status")}
	}
	lines := []string{
		tui.Paint(tui.TagInfo, view.Info),
		tui.Paint(tui.TagHeader, view.Header),
	}
	return append(lines, view.Details...)
}

func chatLine(name string, line *backend.Line, focused, private bool) string {
	tag := tui.TagChat
	if private {
		tag = tui.TagPrivate
	}
	return tui.Prefix(name, focused) + " " + tui.Paint(tag, line.Text)
}

func (s *Session) appendLog(line string) {
	s.logBuf = appendCapped(s.logBuf, line, maxLogLines)
}

func (s *Session) appendChat(line string) {
	s.chatBuf = appendCapped(s.chatBuf, line, maxChatLines)
}

func (s *Session) printInfo(msg string) {
	s.appendLog(tui.Paint(tui.TagInfo, msg))
}

func (s *Session) printError(msg string) {
	s.appendLog(tui.Paint(tui.TagError, msg))
}

func appendCapped(buf []string, line string, limit int) []string {
	for _, l := range strings.Split(line, "\n") {
		buf = append(buf, l)
	}
	if len(buf) > limit {
		buf = append(buf[:0], buf[len(buf)-limit:]...)
	}
	return buf
}
