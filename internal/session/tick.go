package session

import (
	"fmt"

	"github.com/firefly-engineering/adminmux/internal/audit"
	"github.com/firefly-engineering/adminmux/internal/backend"
	gwerrors "github.com/firefly-engineering/adminmux/internal/errors"
	"github.com/firefly-engineering/adminmux/internal/policy"
	"github.com/firefly-engineering/adminmux/internal/tui"
)

// Tick drains every backend, surfaces the lines that survive elision and
// polls backends whose shared status is stale. Backends are handled one
// at a time in session order.
func (s *Session) Tick() {
	if s.moribund {
		return
	}
	s.collectDials()
	if s.state != StateShell {
		return
	}
	for i := 0; i < len(s.conns); {
		conn := s.conns[i]
		focused := i == s.focus
		if err := s.drain(conn, focused); err != nil {
			s.dropBackend(i, err)
			continue
		}
		if err := s.poll(conn, focused); err != nil {
			s.dropBackend(i, err)
			continue
		}
		i++
	}
}

func (s *Session) drain(conn backend.Conn, focused bool) error {
	err := conn.Drain()
	for {
		item, ok := conn.Next()
		if !ok {
			break
		}
		switch {
		case item.Payload != nil:
			s.handlePayload(conn.Name(), item.Payload)
		case item.Line != nil:
			s.surface(conn.Name(), item.Line, focused)
		}
	}
	return err
}

func (s *Session) handlePayload(name string, p *backend.Payload) {
	if p.Kind != backend.KindStatus {
		err := gwerrors.Anomaly(string(p.Kind))
		s.log.Warn("unexpected payload", "backend", name, "kind", p.Kind)
		s.printError(fmt.Sprintf("%s: %v", name, err))
		return
	}
	status, err := p.Status()
	if err != nil {
		s.log.Warn("bad status payload", "backend", name, "error", err)
		s.printError(fmt.Sprintf("%s: %v", name, err))
		return
	}
	s.deps.Cache.CacheStatus(name, status)
}

func (s *Session) surface(name string, line *backend.Line, focused bool) {
	class := s.deps.Policy.Classify(line, s.deps.Users)
	if s.deps.Policy.Elide(line, class, focused) {
		return
	}

	s.appendLog(tui.Prefix(name, focused) + " " + line.Text)
	if !class.IsChat() {
		return
	}
	private := class == policy.ClassPrivate
	s.appendChat(chatLine(name, line, focused, private))
	if !private {
		s.deps.Cache.CacheChat(name, line.Text, s.deps.Clock.Now())
	}
}

// poll sends a status request when the backend's shared poll stamp is
// older than this session's threshold. The stamp is claimed atomically so
// that only one session polls a backend per interval.
func (s *Session) poll(conn backend.Conn, focused bool) error {
	t := s.deps.Timing
	threshold := t.BackgroundPoll + s.deps.Jitter(t.BackgroundJitter)
	if focused {
		threshold = t.FocusedPoll + s.deps.Jitter(t.FocusedJitter)
	}
	if !s.deps.Cache.ClaimPoll(conn.Name(), s.deps.Clock.Now(), threshold) {
		return nil
	}
	s.log.Debug("polling status", "backend", conn.Name())
	return conn.Send(s.deps.StatusCommand)
}

// dropBackend closes a failed backend connection and removes it from the
// session, keeping focus on the same backend where possible.
func (s *Session) dropBackend(i int, err error) {
	conn := s.conns[i]
	name := conn.Name()
	s.log.Warn("backend connection lost", "backend", name, "error", err)
	s.record(audit.EventBackendFailed, name, err.Error())
	s.printError(fmt.Sprintf("%s: connection lost: %v", name, err))
	if cerr := conn.Close(); cerr != nil {
		s.log.Debug("backend close failed", "backend", name, "error", cerr)
	}

	s.conns = append(s.conns[:i], s.conns[i+1:]...)
	switch {
	case i < s.focus:
		s.focus--
	case s.focus >= len(s.conns):
		s.focus = max(len(s.conns)-1, 0)
	}
	s.display.Invalidate()
}
