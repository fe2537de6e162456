package session

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/x/ansi"

	"github.com/firefly-engineering/adminmux/internal/auth"
	"github.com/firefly-engineering/adminmux/internal/testutil"
)

// newEnv returns an environment with backends alpha, beta and gamma,
// users alice and bob, and alice authorized for alpha and beta.
func newEnv(t *testing.T) *testutil.TestEnv {
	t.Helper()
	env := testutil.NewTestEnv(t)
	env.AddBackend("alpha", "eu")
	env.AddBackend("beta", "us")
	env.AddBackend("gamma", "ap")
	env.AddUser("alice", "secret", auth.FlagDevel)
	env.AddUser("bob", "hunter2", 0)
	env.AddUser("robot", "beep", auth.FlagAI)
	env.Authorize("alice", "alpha", "beta")
	env.Authorize("bob", "alpha")
	return env
}

func depsFor(env *testutil.TestEnv) *Deps {
	return &Deps{
		Cache:    env.Cache,
		Users:    env.Users(),
		Authz:    env.Authorization(),
		Policy:   env.Policy,
		Backends: env.Backends,
		Dial:     env.Dialer.Dial,
		Clock:    env.Clock,
		Audit:    env.Audit,
		Jitter:   func(time.Duration) time.Duration { return 0 },
		Spawn:    func(fn func()) { fn() },
	}
}

// typeLine queues a line and pumps it through the session.
func typeLine(s *Session, c *testutil.FakeClient, line string) {
	c.Type(line)
	s.Pump(context.Background())
}

// loggedIn returns a Shell-state session on a 24x80 terminal.
func loggedIn(t *testing.T, env *testutil.TestEnv, deps *Deps, user, password string) (*Session, *testutil.FakeClient) {
	t.Helper()
	c := testutil.NewFakeClient()
	s := New(c, deps)
	c.Resize(24, 80)
	s.Pump(context.Background())
	typeLine(s, c, user)
	typeLine(s, c, password)
	if s.State() != StateShell {
		t.Fatalf("State() after login = %v, want %v", s.State(), StateShell)
	}
	return s, c
}

func logText(s *Session) string {
	return ansi.Strip(strings.Join(s.logBuf, "\n"))
}

func chatText(s *Session) string {
	return ansi.Strip(strings.Join(s.chatBuf, "\n"))
}

func lastLog(s *Session) string {
	if len(s.logBuf) == 0 {
		return ""
	}
	return ansi.Strip(s.logBuf[len(s.logBuf)-1])
}
