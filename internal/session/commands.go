package session

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/firefly-engineering/adminmux/internal/audit"
	gwerrors "github.com/firefly-engineering/adminmux/internal/errors"
)

// Meta-commands understood in the shell. Anything else goes to the
// focused backend.
const (
	cmdLogout = "logout"
	cmdSwitch = "/sv"
	cmdSendTo = "!sv"
	cmdWindow = "@win"
)

// dispatch runs a meta-command or forwards the line. A failing
// meta-command is reported in the log pane and never forwarded.
func (s *Session) dispatch(line string) {
	handled, err := s.runMeta(line)
	if err != nil {
		s.log.Warn("command failed", "error", err)
		s.printError(err.Error())
		return
	}
	if !handled {
		s.forward(line)
	}
}

func (s *Session) runMeta(line string) (handled bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			handled = true
			err = gwerrors.Command(line, fmt.Errorf("panic: %v", r))
		}
	}()

	cmd, rest := splitCommand(line)
	switch cmd {
	case cmdLogout:
		s.logout()
	case cmdSwitch:
		s.switchFocus(rest)
	case cmdSendTo:
		s.sendTo(rest)
	case cmdWindow:
		if err := s.client.QuerySize(); err != nil {
			return true, gwerrors.Command(line, err)
		}
		s.display.Invalidate()
	default:
		return false, nil
	}
	return true, nil
}

// splitCommand returns the first whitespace-delimited token and the rest
// of the line with leading whitespace removed.
func splitCommand(line string) (cmd, rest string) {
	line = strings.TrimLeftFunc(line, unicode.IsSpace)
	i := strings.IndexFunc(line, unicode.IsSpace)
	if i < 0 {
		return line, ""
	}
	return line[:i], strings.TrimLeftFunc(line[i:], unicode.IsSpace)
}

func (s *Session) logout() {
	s.log.Info("logout")
	s.record(audit.EventLogout, "", "")
	if s.deps.OnLogout != nil {
		s.deps.OnLogout(s)
		return
	}
	s.MarkMoribund("logout")
}

// index returns the position of the named backend in the session's list.
func (s *Session) index(name string) int {
	for i, c := range s.conns {
		if c.Name() == name {
			return i
		}
	}
	return -1
}

func (s *Session) switchFocus(rest string) {
	name, _ := splitCommand(rest)
	i := s.index(name)
	if name == "" || i < 0 {
		s.printBackendList()
		return
	}
	s.focus = i
	s.display.Invalidate()
	s.printInfo("focus: " + name)
}

// sendTo sends a command to a backend without moving focus.
func (s *Session) sendTo(rest string) {
	name, cmd := splitCommand(rest)
	i := s.index(name)
	if i < 0 || cmd == "" {
		s.printBackendList()
		return
	}
	if err := s.conns[i].Send(cmd); err != nil {
		s.dropBackend(i, err)
	}
}

func (s *Session) printBackendList() {
	names := s.Backends()
	sort.Strings(names)
	s.printInfo(strings.Join(names, " "))
}

// forward sends a line to the focused backend unchanged.
func (s *Session) forward(line string) {
	conn := s.focused()
	if conn == nil {
		s.printError("no backend to send to")
		return
	}
	if err := conn.Send(line); err != nil {
		s.dropBackend(s.focus, err)
	}
}
