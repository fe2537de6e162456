// Package audit records session lifecycle events for each user.
// Events are stored as JSON Lines (JSONL) files, one per user.
package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	securejoin "github.com/cyphar/filepath-securejoin"
)

// EventType classifies a session event.
type EventType string

const (
	EventLogin         EventType = "login"
	EventLoginFailed   EventType = "login_failed"
	EventLogout        EventType = "logout"
	EventDisconnect    EventType = "disconnect"
	EventBackendFailed EventType = "backend_failed"
)

// Event represents a single audit log entry.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	User      string    `json:"user"`
	Session   string    `json:"session,omitempty"`
	Remote    string    `json:"remote,omitempty"`
	Backend   string    `json:"backend,omitempty"`
	Details   string    `json:"details,omitempty"`
}

// Logger writes and reads audit events for users.
// Events are stored in {stateDir}/audit/{user}.events.jsonl.
type Logger struct {
	stateDir string
}

// NewLogger creates a new audit logger rooted at stateDir.
func NewLogger(stateDir string) *Logger {
	return &Logger{stateDir: stateDir}
}

// eventPath returns the path to the JSONL event log for a user. Usernames
// come from remote clients, so the path is resolved inside the audit
// directory.
func (l *Logger) eventPath(user string) (string, error) {
	root := filepath.Join(l.stateDir, "audit")
	path, err := securejoin.SecureJoin(root, user+".events.jsonl")
	if err != nil {
		return "", fmt.Errorf("failed to resolve audit log for %q: %w", user, err)
	}
	return path, nil
}

// Log appends an event to the user's audit log.
func (l *Logger) Log(event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.User == "" {
		return fmt.Errorf("audit event %q has no user", event.Type)
	}

	path, err := l.eventPath(event.User)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create audit log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}

	return nil
}

// Events reads all events for a user in chronological order.
func (l *Logger) Events(user string) ([]Event, error) {
	path, err := l.eventPath(user)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var event Event
		if err := json.Unmarshal(line, &event); err != nil {
			continue // Skip malformed lines
		}
		events = append(events, event)
	}

	if err := scanner.Err(); err != nil {
		return events, fmt.Errorf("error reading audit log: %w", err)
	}

	return events, nil
}

// Recorder is the part of Logger sessions depend on.
type Recorder interface {
	Log(event Event) error
}

// Discard is a Recorder that drops every event.
var Discard Recorder = discard{}

type discard struct{}

func (discard) Log(Event) error { return nil }
