package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/firefly-engineering/adminmux/internal/cache"
	"github.com/firefly-engineering/adminmux/internal/clock"
	gwerrors "github.com/firefly-engineering/adminmux/internal/errors"
	"github.com/firefly-engineering/adminmux/internal/logging"
	"github.com/firefly-engineering/adminmux/internal/session"
	"github.com/firefly-engineering/adminmux/internal/terminal"
	"github.com/firefly-engineering/adminmux/internal/wake"
)

// Main loop timing defaults.
const (
	DefaultWait = 500 * time.Millisecond
	DefaultTick = 450 * time.Millisecond
)

// Server accepts terminal clients and multiplexes each onto the backends
// its user may watch. Accepting happens on a background goroutine; every
// session is driven from the single goroutine running Run.
type Server struct {
	addr  string
	deps  session.Deps
	clock clock.Clock
	wait  time.Duration
	tick  time.Duration

	listener net.Listener
	signal   *wake.Signal

	mu      sync.Mutex
	pending []net.Conn

	sessions []*session.Session
	lastTick time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithClock sets the clock used for tick throttling and waits.
func WithClock(c clock.Clock) Option {
	return func(s *Server) {
		s.clock = c
	}
}

// WithWait sets how long the main loop sleeps when nothing wakes it.
func WithWait(d time.Duration) Option {
	return func(s *Server) {
		s.wait = d
	}
}

// WithTick sets the minimum interval between session ticks.
func WithTick(d time.Duration) Option {
	return func(s *Server) {
		s.tick = d
	}
}

// WithListener makes the server accept on an existing listener instead
// of opening addr.
func WithListener(ln net.Listener) Option {
	return func(s *Server) {
		s.listener = ln
	}
}

// New creates a Server listening on addr. deps is shared by every session.
func New(addr string, deps *session.Deps, opts ...Option) *Server {
	s := &Server{
		addr: addr,
		deps: *deps,
		wait: DefaultWait,
		tick: DefaultTick,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.clock == nil {
		s.clock = clock.Real()
	}
	if s.deps.Clock == nil {
		s.deps.Clock = s.clock
	}
	if s.deps.Cache == nil {
		s.deps.Cache = cache.New()
	}
	s.deps.OnLogout = func(sess *session.Session) {
		sess.MarkMoribund("logout")
	}
	s.signal = wake.New(s.clock)
	s.deps.Wake = s.signal.Signal
	return s
}

// Listen opens the listening socket unless one was supplied.
func (s *Server) Listen() error {
	if s.listener != nil {
		return nil
	}
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return gwerrors.Listen(s.addr, err)
	}
	s.listener = ln
	return nil
}

// Addr returns the listening address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Run accepts clients and drives every session until ctx is cancelled,
// then tears all sessions down.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	logging.Info("gateway listening", "addr", s.listener.Addr().String())

	go s.acceptLoop()
	stop := context.AfterFunc(ctx, func() {
		s.listener.Close()
		s.signal.Signal()
	})
	defer stop()

	for ctx.Err() == nil {
		s.signal.TimedWait(s.wait)
		if ctx.Err() != nil {
			break
		}
		s.step(ctx)
	}

	logging.Debug("gateway stopping", "sessions", len(s.sessions))
	s.shutdown()
	return ctx.Err()
}

// acceptLoop hands accepted connections to the main loop. It returns once
// the listener is closed.
func (s *Server) acceptLoop() {
	for {
		nc, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			logging.Warn("accept failed", "error", err)
			continue
		}
		s.mu.Lock()
		s.pending = append(s.pending, nc)
		s.mu.Unlock()
		s.signal.Signal()
	}
}

// step is one pass of the main loop: induct new clients, dispatch input,
// reap finished sessions, and tick every session when the throttle allows.
func (s *Server) step(ctx context.Context) {
	s.induct()

	for _, sess := range s.sessions {
		s.guard(sess, "dispatch", func() { sess.Pump(ctx) })
	}
	s.reap()

	now := s.clock.Now()
	if !s.tickDue(now) {
		return
	}
	s.lastTick = now
	for _, sess := range s.sessions {
		s.guard(sess, "tick", func() {
			sess.Tick()
			sess.Render()
		})
	}
	s.reap()
}

func (s *Server) tickDue(now time.Time) bool {
	return s.lastTick.IsZero() || now.Sub(s.lastTick) >= s.tick
}

func (s *Server) induct() {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, nc := range pending {
		sess := session.New(terminal.NewConn(nc), &s.deps)
		s.sessions = append(s.sessions, sess)
	}
}

// guard runs fn for one session. A panic is logged and ends only that
// session.
func (s *Server) guard(sess *session.Session, what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("session panic", "session", sess.ID, "during", what, "panic", r)
			sess.MarkMoribund("panic")
		}
	}()
	fn()
}

// reap closes moribund sessions and tells the remaining shell sessions
// who left.
func (s *Server) reap() {
	kept := s.sessions[:0]
	var gone []string
	for _, sess := range s.sessions {
		if !sess.Moribund() {
			kept = append(kept, sess)
			continue
		}
		sess.Close()
		if name := sess.Username(); name != "" {
			gone = append(gone, name)
		}
	}
	clear(s.sessions[len(kept):])
	s.sessions = kept

	for _, name := range gone {
		s.broadcast(fmt.Sprintf("%s disconnected", name))
	}
}

func (s *Server) broadcast(msg string) {
	for _, sess := range s.sessions {
		if sess.State() == session.StateShell {
			sess.Broadcast(msg)
		}
	}
}

func (s *Server) shutdown() {
	s.induct()
	for _, sess := range s.sessions {
		sess.MarkMoribund("shutdown")
	}
	s.reap()
}
