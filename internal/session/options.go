package session

import (
	"math/rand/v2"
	"time"

	"github.com/firefly-engineering/adminmux/internal/audit"
	"github.com/firefly-engineering/adminmux/internal/auth"
	"github.com/firefly-engineering/adminmux/internal/backend"
	"github.com/firefly-engineering/adminmux/internal/cache"
	"github.com/firefly-engineering/adminmux/internal/clock"
	"github.com/firefly-engineering/adminmux/internal/policy"
)

// DefaultStatusCommand is sent to a backend to request a STATUS payload.
const DefaultStatusCommand = "status"

// Timing controls how often sessions poll their backends for status.
type Timing struct {
	FocusedPoll      time.Duration
	FocusedJitter    time.Duration
	BackgroundPoll   time.Duration
	BackgroundJitter time.Duration
}

// DefaultTiming returns the standard poll intervals.
func DefaultTiming() Timing {
	return Timing{
		FocusedPoll:      3 * time.Second,
		FocusedJitter:    time.Second,
		BackgroundPoll:   15 * time.Second,
		BackgroundJitter: 5 * time.Second,
	}
}

// Deps are the process-wide collaborators shared by every session.
type Deps struct {
	Cache    *cache.Cache
	Users    *auth.UserStore
	Authz    *auth.Authorization
	Policy   *policy.Policy
	Backends []backend.Backend
	Dial     backend.Dialer
	Clock    clock.Clock
	Audit    audit.Recorder
	Timing   Timing

	// StatusCommand defaults to DefaultStatusCommand.
	StatusCommand string

	// Jitter returns a random duration in [0, limit). Defaults to math/rand.
	Jitter func(limit time.Duration) time.Duration

	// Spawn runs a backend dial off the main loop. Defaults to a new
	// goroutine.
	Spawn func(fn func())

	// Wake is called from a dial goroutine when its result is ready, so
	// the main loop picks it up without waiting out its timeout.
	Wake func()

	// OnLogout is called when the user types logout. The server uses it
	// to flag the session moribund.
	OnLogout func(*Session)
}

func (d *Deps) withDefaults() *Deps {
	out := *d
	if out.Cache == nil {
		out.Cache = cache.New()
	}
	if out.Users == nil {
		out.Users = auth.NewUserStore(nil)
	}
	if out.Authz == nil {
		out.Authz = auth.NewAuthorization(nil)
	}
	if out.Policy == nil {
		out.Policy = policy.Default()
	}
	if out.Dial == nil {
		out.Dial = backend.Dial
	}
	if out.Clock == nil {
		out.Clock = clock.Real()
	}
	if out.Audit == nil {
		out.Audit = audit.Discard
	}
	if out.Timing == (Timing{}) {
		out.Timing = DefaultTiming()
	}
	if out.StatusCommand == "" {
		out.StatusCommand = DefaultStatusCommand
	}
	if out.Jitter == nil {
		out.Jitter = randomJitter
	}
	if out.Spawn == nil {
		out.Spawn = func(fn func()) { go fn() }
	}
	if out.Wake == nil {
		out.Wake = func() {}
	}
	return &out
}

func randomJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	return rand.N(limit)
}

// backend returns the configured backend with the given nickname.
func (d *Deps) backend(name string) (backend.Backend, bool) {
	for _, b := range d.Backends {
		if b.Name == name {
			return b, true
		}
	}
	return backend.Backend{}, false
}

func (d *Deps) backendNames() []string {
	names := make([]string, len(d.Backends))
	for i, b := range d.Backends {
		names[i] = b.Name
	}
	return names
}
