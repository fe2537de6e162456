package session

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/firefly-engineering/adminmux/internal/audit"
	"github.com/firefly-engineering/adminmux/internal/auth"
	"github.com/firefly-engineering/adminmux/internal/backend"
	"github.com/firefly-engineering/adminmux/internal/logging"
	"github.com/firefly-engineering/adminmux/internal/terminal"
	"github.com/firefly-engineering/adminmux/internal/tui"
)

// State is a position in the login state machine.
type State int

const (
	StateNoTerminal State = iota
	StateLogin
	StatePassword
	StateShell
)

func (s State) String() string {
	switch s {
	case StateNoTerminal:
		return "no-terminal"
	case StateLogin:
		return "login"
	case StatePassword:
		return "password"
	case StateShell:
		return "shell"
	default:
		return "unknown"
	}
}

// Buffer sizes for the scrolling panes.
const (
	maxLogLines  = 500
	maxChatLines = 200
)

// Session is one interactive client of the gateway. It is driven entirely
// from the server's main loop and is not safe for concurrent use.
type Session struct {
	ID string

	deps   *Deps
	client terminal.Client
	log    *slog.Logger

	state     State
	echo      bool
	attempted string
	user      *auth.User

	conns []backend.Conn
	focus int

	dials    chan dialResult
	dialed   []dialResult
	awaiting int

	display *tui.Display
	logBuf  []string
	chatBuf []string

	moribund bool
	reason   string
}

// New creates a session for an accepted client and starts terminal
// negotiation.
func New(client terminal.Client, deps *Deps) *Session {
	id := uuid.NewString()
	s := &Session{
		ID:      id,
		deps:    deps.withDefaults(),
		client:  client,
		log:     logging.ForSession(id),
		state:   StateNoTerminal,
		echo:    true,
		display: tui.NewDisplay(),
	}
	s.log.Info("client connected", "remote", client.RemoteAddr())
	if err := client.Negotiate(); err != nil {
		s.fail(err)
	}
	return s
}

// State returns the session's login state.
func (s *Session) State() State {
	return s.state
}

// Echo reports whether typed input is shown.
func (s *Session) Echo() bool {
	return s.echo
}

// Username returns the authenticated user's name, or "" before login.
func (s *Session) Username() string {
	if s.user == nil {
		return ""
	}
	return s.user.Name
}

// Attempted returns the username typed at the login prompt.
func (s *Session) Attempted() string {
	return s.attempted
}

// Backends returns the nicknames of the connected backends in order.
func (s *Session) Backends() []string {
	names := make([]string, len(s.conns))
	for i, c := range s.conns {
		names[i] = c.Name()
	}
	return names
}

// Focused returns the focused backend's nickname, or "" if none.
func (s *Session) Focused() string {
	if c := s.focused(); c != nil {
		return c.Name()
	}
	return ""
}

func (s *Session) focused() backend.Conn {
	if s.focus < 0 || s.focus >= len(s.conns) {
		return nil
	}
	return s.conns[s.focus]
}

// Moribund reports whether the session is flagged for teardown.
func (s *Session) Moribund() bool {
	return s.moribund
}

// MarkMoribund flags the session for teardown at the end of the current
// pass of the main loop.
func (s *Session) MarkMoribund(reason string) {
	if s.moribund {
		return
	}
	s.moribund = true
	s.reason = reason
	s.log.Debug("session moribund", "reason", reason)
}

// Pump reads pending client input and feeds it through the state machine.
func (s *Session) Pump(ctx context.Context) {
	if s.moribund {
		return
	}
	connected := s.collectDials()
	events, err := s.client.Poll()
	for _, ev := range events {
		s.HandleEvent(ctx, ev)
		if s.moribund {
			return
		}
	}
	if err != nil {
		s.fail(err)
		return
	}
	if (connected || len(events) > 0) && s.state != StateNoTerminal {
		s.Render()
	}
	s.flush()
}

// HandleEvent applies one decoded input event.
func (s *Session) HandleEvent(ctx context.Context, ev terminal.Event) {
	switch ev.Kind {
	case terminal.EventLine:
		s.HandleLine(ctx, ev.Line)
	case terminal.EventResize:
		s.resize(ev.Rows, ev.Cols)
	case terminal.EventTab:
		if s.state == StateShell {
			s.display.SetScreen(tui.Toggle(s.display.Screen()))
		}
	case terminal.EventEOF:
		s.MarkMoribund("eof")
	}
}

func (s *Session) resize(rows, cols int) {
	if err := terminal.CheckSize(rows, cols); err != nil {
		s.log.Warn("terminal negotiation failed", "error", err)
		if s.state == StateNoTerminal {
			s.writeRaw(err.Error() + "; resize and press enter\r\n")
		}
		return
	}
	s.display.Resize(rows, cols)
	s.display.Invalidate()
	s.log.Debug("terminal resized", "rows", rows, "cols", cols)
	if s.state == StateNoTerminal {
		s.enterLogin()
	}
}

// Broadcast appends a gateway notice to the session's log pane.
func (s *Session) Broadcast(msg string) {
	s.printInfo(msg)
}

// Close tears down every backend connection and the client, best-effort.
func (s *Session) Close() {
	s.abandonDials()
	for _, c := range s.conns {
		if err := c.Close(); err != nil {
			s.log.Debug("backend close failed", "backend", c.Name(), "error", err)
		}
	}
	s.conns = nil

	if s.user != nil && s.reason != "logout" {
		s.record(audit.EventDisconnect, "", s.reason)
	}
	s.flush()
	if err := s.client.Close(); err != nil {
		s.log.Debug("client close failed", "error", err)
	}
	s.log.Info("session closed", "reason", s.reason)
}

// fail handles an error on the client transport.
func (s *Session) fail(err error) {
	s.log.Warn("client transport failed", "error", err)
	s.MarkMoribund("transport")
}

func (s *Session) writeRaw(text string) {
	if _, err := s.client.Write([]byte(text)); err != nil {
		s.fail(err)
	}
}

func (s *Session) flush() {
	if err := s.client.Flush(); err != nil {
		s.fail(err)
	}
}

func (s *Session) record(typ audit.EventType, backendName, details string) {
	user := s.Username()
	if user == "" {
		user = s.attempted
	}
	err := s.deps.Audit.Log(audit.Event{
		Timestamp: s.deps.Clock.Now(),
		Type:      typ,
		User:      user,
		Session:   s.ID,
		Remote:    s.client.RemoteAddr(),
		Backend:   backendName,
		Details:   details,
	})
	if err != nil {
		s.log.Warn("audit write failed", "error", err)
	}
}
