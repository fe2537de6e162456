package testutil

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/x/ansi"
	"golang.org/x/crypto/bcrypt"

	"github.com/firefly-engineering/adminmux/internal/audit"
	"github.com/firefly-engineering/adminmux/internal/auth"
	"github.com/firefly-engineering/adminmux/internal/backend"
	"github.com/firefly-engineering/adminmux/internal/cache"
	"github.com/firefly-engineering/adminmux/internal/clock"
	gwerrors "github.com/firefly-engineering/adminmux/internal/errors"
	"github.com/firefly-engineering/adminmux/internal/policy"
	"github.com/firefly-engineering/adminmux/internal/terminal"
)

// Epoch is the start time of every TestEnv clock.
var Epoch = time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)

// FakeClient is a terminal.Client driven by the test. Events queued with
// Push are returned by the next Poll; everything flushed is kept in Output.
type FakeClient struct {
	Addr     string
	Output   bytes.Buffer
	Queries  int
	Closed   bool
	PollErr  error
	FlushErr error

	events  []terminal.Event
	pending bytes.Buffer
	edit    string
}

// NewFakeClient returns a client that has not reported a size yet.
func NewFakeClient() *FakeClient {
	return &FakeClient{Addr: "192.0.2.1:50000"}
}

// Push queues events for the next Poll.
func (c *FakeClient) Push(events ...terminal.Event) {
	c.events = append(c.events, events...)
}

// Resize queues a window-size report.
func (c *FakeClient) Resize(rows, cols int) {
	c.Push(terminal.Event{Kind: terminal.EventResize, Rows: rows, Cols: cols})
}

// Type queues a completed input line.
func (c *FakeClient) Type(line string) {
	c.edit = ""
	c.Push(terminal.Event{Kind: terminal.EventLine, Line: line})
}

// SetPending sets the unfinished input line returned by Pending.
func (c *FakeClient) SetPending(s string) {
	c.edit = s
	c.Push(terminal.Event{Kind: terminal.EventEdit})
}

func (c *FakeClient) Poll() ([]terminal.Event, error) {
	events := c.events
	c.events = nil
	return events, c.PollErr
}

func (c *FakeClient) Write(p []byte) (int, error) {
	return c.pending.Write(p)
}

func (c *FakeClient) Flush() error {
	if c.FlushErr != nil {
		return c.FlushErr
	}
	c.Output.Write(c.pending.Bytes())
	c.pending.Reset()
	return nil
}

func (c *FakeClient) Negotiate() error {
	return c.QuerySize()
}

func (c *FakeClient) QuerySize() error {
	c.Queries++
	return nil
}

func (c *FakeClient) Pending() string {
	return c.edit
}

func (c *FakeClient) RemoteAddr() string {
	return c.Addr
}

func (c *FakeClient) Close() error {
	c.Closed = true
	return nil
}

// Screen returns everything flushed so far with escape sequences removed.
func (c *FakeClient) Screen() string {
	return ansi.Strip(c.Output.String())
}

// FakeBackend is a backend.Conn whose output is scripted by the test and
// whose sent commands are recorded.
type FakeBackend struct {
	name     string
	queued   []backend.Item
	ready    []backend.Item
	Sent     []string
	Closed   bool
	DrainErr error
	SendErr  error

	mu sync.Mutex
}

// NewFakeBackend returns a connection to the named backend.
func NewFakeBackend(name string) *FakeBackend {
	return &FakeBackend{name: name}
}

// Emit queues plain lines for the next Drain.
func (b *FakeBackend) Emit(lines ...string) {
	for _, text := range lines {
		line := backend.ParseLine(text)
		b.queued = append(b.queued, backend.Item{Line: &line})
	}
}

// EmitPayload queues a structured payload for the next Drain.
func (b *FakeBackend) EmitPayload(t *testing.T, kind backend.Kind, body any) {
	t.Helper()
	raw, err := backend.FormatPayload(kind, body)
	if err != nil {
		t.Fatalf("FormatPayload() error = %v", err)
	}
	_, text, _ := strings.Cut(raw, " ")
	b.queued = append(b.queued, backend.Item{Payload: &backend.Payload{Kind: kind, Raw: []byte(text)}})
}

func (b *FakeBackend) Name() string {
	return b.name
}

func (b *FakeBackend) Drain() error {
	b.ready = append(b.ready, b.queued...)
	b.queued = nil
	return b.DrainErr
}

func (b *FakeBackend) Next() (backend.Item, bool) {
	if len(b.ready) == 0 {
		return backend.Item{}, false
	}
	item := b.ready[0]
	b.ready = b.ready[1:]
	return item, true
}

func (b *FakeBackend) Send(line string) error {
	if b.SendErr != nil {
		return b.SendErr
	}
	b.Sent = append(b.Sent, line)
	return nil
}

func (b *FakeBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Closed = true
	return nil
}

// IsClosed reports whether Close was called. It is safe to call while
// another goroutine closes the connection.
func (b *FakeBackend) IsClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.Closed
}

// Count returns how many times line was sent.
func (b *FakeBackend) Count(line string) int {
	n := 0
	for _, s := range b.Sent {
		if s == line {
			n++
		}
	}
	return n
}

// FakeDialer hands out FakeBackends and remembers every one it created.
// Dial may be called from any goroutine.
type FakeDialer struct {
	// Fail makes dials to the named backends fail with the given error.
	Fail map[string]error

	// Hang makes dials to the named backends block until the channel is
	// closed or the context ends; the dial then fails.
	Hang map[string]chan struct{}

	Conns map[string][]*FakeBackend

	mu sync.Mutex
}

// NewFakeDialer returns a dialer whose dials all succeed.
func NewFakeDialer() *FakeDialer {
	return &FakeDialer{
		Fail:  map[string]error{},
		Hang:  map[string]chan struct{}{},
		Conns: map[string][]*FakeBackend{},
	}
}

// Dial implements backend.Dialer.
func (d *FakeDialer) Dial(ctx context.Context, b backend.Backend, _, _ string) (backend.Conn, error) {
	d.mu.Lock()
	hang := d.Hang[b.Name]
	fail := d.Fail[b.Name]
	d.mu.Unlock()

	if hang != nil {
		select {
		case <-hang:
			return nil, gwerrors.Transport("login "+b.Name, fmt.Errorf("backend did not answer"))
		case <-ctx.Done():
			return nil, gwerrors.Transport("login "+b.Name, ctx.Err())
		}
	}
	if fail != nil {
		return nil, gwerrors.Transport("dial "+b.Name, fail)
	}

	conn := NewFakeBackend(b.Name)
	d.mu.Lock()
	d.Conns[b.Name] = append(d.Conns[b.Name], conn)
	d.mu.Unlock()
	return conn, nil
}

// All returns every connection made to the named backend.
func (d *FakeDialer) All(name string) []*FakeBackend {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*FakeBackend(nil), d.Conns[name]...)
}

// Last returns the most recent connection to the named backend.
func (d *FakeDialer) Last(name string) *FakeBackend {
	d.mu.Lock()
	defer d.mu.Unlock()
	conns := d.Conns[name]
	if len(conns) == 0 {
		return nil
	}
	return conns[len(conns)-1]
}

// TestEnv holds the collaborators a gateway needs, wired with fakes.
type TestEnv struct {
	T        *testing.T
	TmpDir   string
	Clock    *clock.FakeClock
	Cache    *cache.Cache
	Policy   *policy.Policy
	Dialer   *FakeDialer
	Audit    *audit.Logger
	Backends []backend.Backend

	users []*auth.User
	authz map[string][]string
}

// NewTestEnv creates an environment with no users and no backends.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	tmpDir := t.TempDir()
	return &TestEnv{
		T:      t,
		TmpDir: tmpDir,
		Clock:  clock.Fake(Epoch),
		Cache:  cache.New(),
		Policy: policy.Default(),
		Dialer: NewFakeDialer(),
		Audit:  audit.NewLogger(filepath.Join(tmpDir, "state")),
		authz:  map[string][]string{},
	}
}

// AddBackend registers a backend nickname.
func (e *TestEnv) AddBackend(name, zone string) {
	e.Backends = append(e.Backends, backend.Backend{
		Name: name,
		Host: "127.0.0.1",
		Port: 7000 + len(e.Backends),
		Zone: zone,
	})
}

// AddUser adds a user with a cheaply hashed password.
func (e *TestEnv) AddUser(name, password string, flags auth.Flags) *auth.User {
	e.T.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		e.T.Fatalf("Failed to hash password: %v", err)
	}
	u := &auth.User{Name: name, PasswordHash: string(hash), Flags: flags}
	e.users = append(e.users, u)
	return u
}

// Authorize lets user watch each named backend.
func (e *TestEnv) Authorize(user string, backends ...string) {
	for _, b := range backends {
		e.authz[b] = append(e.authz[b], user)
	}
}

// Users returns the user store built from AddUser calls.
func (e *TestEnv) Users() *auth.UserStore {
	return auth.NewUserStore(e.users)
}

// Authorization returns the lookup built from Authorize calls.
func (e *TestEnv) Authorization() *auth.Authorization {
	return auth.NewAuthorization(e.authz)
}

// Backend returns the registered backend with the given name.
func (e *TestEnv) Backend(name string) backend.Backend {
	e.T.Helper()
	for _, b := range e.Backends {
		if b.Name == name {
			return b
		}
	}
	e.T.Fatalf("unknown backend %q", name)
	return backend.Backend{}
}

// Status builds a STATUS payload for tests.
func Status(text string, clients int, mapName string) *backend.StatusPayload {
	p := &backend.StatusPayload{Text: text}
	for i := 0; i < clients; i++ {
		p.Clients = append(p.Clients, map[string]any{"id": fmt.Sprint(i)})
	}
	if mapName != "" {
		p.Map = &backend.MapInfo{Name: mapName}
	}
	return p
}
