// Package cache holds the process-wide per-backend state shared by every
// session watching the same backend: the latest status payload and what
// is derived from it, a bounded chat ring, and the poll stamp that keeps
// concurrent sessions from polling the same backend independently.
package cache

import (
	"strings"
	"sync"
	"time"

	"github.com/firefly-engineering/adminmux/internal/backend"
)

// ChatRingSize is the number of chat lines retained per backend.
const ChatRingSize = 100

// UnknownMap is reported by CurMap when no map name is known.
const UnknownMap = "???"

// ChatEntry is one stored chat line.
type ChatEntry struct {
	Time    time.Time
	Backend string
	Line    string
}

// StatusView is the rendered form of a backend's latest status.
type StatusView struct {
	Info    string
	Header  string
	Details []string
}

// Status is a cached payload with its derived fields. A Status is never
// mutated after it is stored, so readers always see derived fields that
// match the payload.
type Status struct {
	Payload *backend.StatusPayload
	View    StatusView
	Clients int
}

type entry struct {
	status   *Status
	chat     []ChatEntry
	lastPoll time.Time
}

// Cache is keyed by backend nickname. The zero value is not usable; call
// New.
type Cache struct {
	mu       sync.Mutex
	backends map[string]*entry
}

// New returns an empty Cache.
func New() *Cache {
	return &Cache{backends: make(map[string]*entry)}
}

func (c *Cache) get(name string) *entry {
	e, ok := c.backends[name]
	if !ok {
		e = &entry{}
		c.backends[name] = e
	}
	return e
}

// CacheStatus stores payload and recomputes everything derived from it.
func (c *Cache) CacheStatus(name string, payload *backend.StatusPayload) {
	status := deriveStatus(payload)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.get(name).status = status
}

func deriveStatus(payload *backend.StatusPayload) *Status {
	status := &Status{Payload: payload}
	for _, client := range payload.Clients {
		if client != nil {
			status.Clients++
		}
	}

	lines := strings.Split(strings.TrimRight(payload.Text, "\n"), "\n")
	if len(lines) > 0 {
		status.View.Info = lines[0]
	}
	if len(lines) > 1 {
		status.View.Header = lines[1]
	}
	// lines[2] is the separator under the header.
	if len(lines) > 3 {
		status.View.Details = append([]string(nil), lines[3:]...)
	}
	return status
}

// CacheChat appends line to the backend's chat ring unless it repeats the
// most recent entry. It reports whether the line was stored.
func (c *Cache) CacheChat(name, line string, at time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.get(name)
	if n := len(e.chat); n > 0 && e.chat[n-1].Line == line {
		return false
	}
	e.chat = append(e.chat, ChatEntry{Time: at, Backend: name, Line: line})
	if len(e.chat) > ChatRingSize {
		e.chat = append(e.chat[:0:0], e.chat[len(e.chat)-ChatRingSize:]...)
	}
	return true
}

// GetChat returns the backend's chat ring, oldest first.
func (c *Cache) GetChat(name string) []ChatEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.backends[name]
	if !ok {
		return nil
	}
	return append([]ChatEntry(nil), e.chat...)
}

// NumClients returns the number of occupied client slots in the latest
// status, or 0.
func (c *Cache) NumClients(name string) int {
	if s := c.status(name); s != nil {
		return s.Clients
	}
	return 0
}

// CurMap returns the map named in the latest status, or UnknownMap.
func (c *Cache) CurMap(name string) string {
	s := c.status(name)
	if s == nil || s.Payload.Map == nil || s.Payload.Map.Name == "" {
		return UnknownMap
	}
	return s.Payload.Map.Name
}

// GetStatusView returns the split status text, empty when nothing has been
// cached yet.
func (c *Cache) GetStatusView(name string) StatusView {
	s := c.status(name)
	if s == nil {
		return StatusView{}
	}
	view := s.View
	view.Details = append([]string(nil), view.Details...)
	return view
}

func (c *Cache) status(name string) *Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.backends[name]; ok {
		return e.status
	}
	return nil
}

// LastPollTime returns when the backend was last polled by any session.
func (c *Cache) LastPollTime(name string) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.backends[name]; ok {
		return e.lastPoll
	}
	return time.Time{}
}

// MarkPolled stamps the backend as polled at t.
func (c *Cache) MarkPolled(name string, t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.get(name).lastPoll = t
}

// ClaimPoll stamps the backend as polled at now if more than threshold has
// passed since the last stamp, and reports whether the caller won the
// claim. The check and the stamp happen under one lock.
func (c *Cache) ClaimPoll(name string, now time.Time, threshold time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.get(name)
	if !e.lastPoll.IsZero() && now.Sub(e.lastPoll) <= threshold {
		return false
	}
	e.lastPoll = now
	return true
}
