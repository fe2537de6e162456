package session

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/firefly-engineering/adminmux/internal/audit"
	"github.com/firefly-engineering/adminmux/internal/backend"
	"github.com/firefly-engineering/adminmux/internal/cache"
)

// HandleLine feeds one completed input line to the state machine.
func (s *Session) HandleLine(ctx context.Context, line string) {
	switch s.state {
	case StateNoTerminal:
		s.retryNegotiation()
	case StateLogin:
		name := strings.TrimSpace(line)
		if name == "" {
			return
		}
		s.attempted = name
		s.echo = false
		s.state = StatePassword
	case StatePassword:
		if s.Connecting() {
			return
		}
		s.authenticate(ctx, line)
	case StateShell:
		s.dispatch(line)
	}
}

func (s *Session) retryNegotiation() {
	rows, cols := s.display.Size()
	if rows > 0 && cols > 0 {
		s.enterLogin()
		return
	}
	if err := s.client.QuerySize(); err != nil {
		s.fail(err)
	}
}

func (s *Session) enterLogin() {
	s.state = StateLogin
	s.echo = true
	s.attempted = ""
	s.display.Invalidate()
	s.printInfo("adminmux: log in to continue")
}

func (s *Session) authenticate(ctx context.Context, password string) {
	user, err := s.deps.Users.Match(s.attempted, password)
	if err != nil {
		s.log.Info("login failed", "user", s.attempted)
		s.record(audit.EventLoginFailed, "", "")
		s.printError("login incorrect")
		s.state = StateLogin
		s.echo = true
		s.attempted = ""
		return
	}

	s.user = user
	s.attempted = ""
	s.echo = true
	s.log = s.log.With("user", user.Name)
	s.log.Info("login succeeded")
	s.record(audit.EventLogin, "", "")

	s.connectBackends(ctx, password)
}

// dialResult is one finished backend dial, handed back to the main loop.
type dialResult struct {
	index int
	name  string
	conn  backend.Conn
	err   error
}

// connectBackends dials every authorized backend off the main loop. The
// session enters the shell once every dial has finished; see collectDials.
func (s *Session) connectBackends(ctx context.Context, password string) {
	names := s.deps.Authz.BackendsFor(s.user.Name, s.deps.backendNames())
	if len(names) == 0 {
		s.finishConnect()
		return
	}

	results := make(chan dialResult, len(names))
	s.dials = results
	s.dialed = make([]dialResult, len(names))
	s.awaiting = len(names)
	s.printInfo(fmt.Sprintf("connecting to %d backends", len(names)))

	dial, wake, user := s.deps.Dial, s.deps.Wake, s.user.Name
	for i, name := range names {
		b, _ := s.deps.backend(name)
		s.deps.Spawn(func() {
			conn, err := dial(ctx, b, user, password)
			results <- dialResult{index: i, name: name, conn: conn, err: err}
			wake()
		})
	}
	s.collectDials()
}

// Connecting reports whether backend dials are still outstanding.
func (s *Session) Connecting() bool {
	return s.awaiting > 0
}

// collectDials takes finished dials without blocking. It reports whether
// the last one arrived and the session entered the shell.
func (s *Session) collectDials() bool {
	for s.awaiting > 0 {
		select {
		case r := <-s.dials:
			s.dialed[r.index] = r
			s.awaiting--
		default:
			return false
		}
	}
	if s.dialed == nil {
		return false
	}
	s.finishConnect()
	return true
}

// finishConnect keeps the backends that connected, in configured order,
// reports the ones that did not and enters the shell.
func (s *Session) finishConnect() {
	for _, r := range s.dialed {
		if r.err != nil {
			s.log.Warn("backend connect failed", "backend", r.name, "error", r.err)
			s.record(audit.EventBackendFailed, r.name, r.err.Error())
			s.printError(fmt.Sprintf("%s: %v", r.name, r.err))
			continue
		}
		s.conns = append(s.conns, r.conn)
	}
	s.dialed = nil
	s.dials = nil

	s.focus = 0
	if len(s.conns) == 0 {
		s.printError("no backends available")
	}
	s.seedChat()
	s.state = StateShell
	s.display.Invalidate()
}

// abandonDials closes the connections of dials still in flight once they
// finish.
func (s *Session) abandonDials() {
	for _, r := range s.dialed {
		if r.conn != nil {
			r.conn.Close()
		}
	}
	if s.awaiting > 0 {
		results, n := s.dials, s.awaiting
		go func() {
			for range n {
				if r := <-results; r.conn != nil {
					r.conn.Close()
				}
			}
		}()
	}
	s.awaiting = 0
	s.dialed = nil
	s.dials = nil
}

// seedChat fills the chat pane from the shared history of every
// connected backend, oldest first.
func (s *Session) seedChat() {
	type seeded struct {
		cache.ChatEntry
		focused bool
	}
	var entries []seeded
	for i, c := range s.conns {
		for _, e := range s.deps.Cache.GetChat(c.Name()) {
			entries = append(entries, seeded{ChatEntry: e, focused: i == s.focus})
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Time.Before(entries[j].Time)
	})

	s.chatBuf = s.chatBuf[:0]
	for _, e := range entries {
		line := backend.ParseLine(e.Line)
		s.appendChat(chatLine(e.Backend, &line, e.focused, false))
	}
}
