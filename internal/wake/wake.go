// Package wake provides the cross-goroutine wake primitive used by the
// gateway's accept goroutine to rouse the main loop.
package wake

import (
	"time"

	"github.com/firefly-engineering/adminmux/internal/clock"
)

// Signal is a level-triggered wakeup. Any number of Signal calls made
// before a Wait collapse into a single pending wakeup, and a wakeup that
// arrives between two waits is never lost: the next TimedWait observes
// it immediately.
type Signal struct {
	pending chan struct{}
	clock   clock.Clock
}

// New returns a Signal that measures timeouts with c. A nil clock means
// the real clock.
func New(c clock.Clock) *Signal {
	if c == nil {
		c = clock.Real()
	}
	return &Signal{
		pending: make(chan struct{}, 1),
		clock:   c,
	}
}

// Signal records a wakeup. It never blocks and is safe to call from any
// goroutine.
func (s *Signal) Signal() {
	select {
	case s.pending <- struct{}{}:
	default:
	}
}

// TimedWait blocks until a wakeup is pending or timeout elapses. It
// reports whether it was woken; callers are expected to carry on the
// same way in either case.
func (s *Signal) TimedWait(timeout time.Duration) bool {
	select {
	case <-s.pending:
		return true
	default:
	}

	select {
	case <-s.pending:
		return true
	case <-s.clock.After(timeout):
		return false
	}
}
