package audit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLogger_LogAndEvents(t *testing.T) {
	dir := t.TempDir()
	logger := NewLogger(dir)

	now := time.Now().Truncate(time.Millisecond)

	events := []Event{
		{Timestamp: now, Type: EventLoginFailed, User: "alice", Remote: "10.0.0.1:5000"},
		{Timestamp: now.Add(time.Second), Type: EventLogin, User: "alice", Session: "s1"},
		{Timestamp: now.Add(2 * time.Second), Type: EventBackendFailed, User: "alice", Backend: "beta", Details: "connection refused"},
		{Timestamp: now.Add(3 * time.Second), Type: EventLogout, User: "alice", Session: "s1"},
	}

	for _, e := range events {
		if err := logger.Log(e); err != nil {
			t.Fatalf("Log failed: %v", err)
		}
	}

	result, err := logger.Events("alice")
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}

	if len(result) != len(events) {
		t.Fatalf("got %d events, want %d", len(result), len(events))
	}

	for i, e := range result {
		if e.Type != events[i].Type {
			t.Errorf("event %d: type = %q, want %q", i, e.Type, events[i].Type)
		}
		if e.Backend != events[i].Backend {
			t.Errorf("event %d: backend = %q, want %q", i, e.Backend, events[i].Backend)
		}
		if e.Details != events[i].Details {
			t.Errorf("event %d: details = %q, want %q", i, e.Details, events[i].Details)
		}
	}

	if _, err := os.Stat(filepath.Join(dir, "audit", "alice.events.jsonl")); err != nil {
		t.Errorf("audit file missing: %v", err)
	}
}

func TestLogger_EventsEmpty(t *testing.T) {
	logger := NewLogger(t.TempDir())

	result, err := logger.Events("nobody")
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	if len(result) != 0 {
		t.Errorf("got %d events, want 0", len(result))
	}
}

func TestLogger_PerUserFiles(t *testing.T) {
	logger := NewLogger(t.TempDir())

	logger.Log(Event{Type: EventLogin, User: "alice"})
	logger.Log(Event{Type: EventLogin, User: "bob"})
	logger.Log(Event{Type: EventDisconnect, User: "bob"})

	alice, _ := logger.Events("alice")
	bob, _ := logger.Events("bob")
	if len(alice) != 1 || len(bob) != 2 {
		t.Errorf("alice=%d bob=%d events, want 1 and 2", len(alice), len(bob))
	}
}

func TestLogger_DefaultTimestamp(t *testing.T) {
	logger := NewLogger(t.TempDir())
	before := time.Now()

	if err := logger.Log(Event{Type: EventLogin, User: "alice"}); err != nil {
		t.Fatalf("Log failed: %v", err)
	}
	events, _ := logger.Events("alice")
	if len(events) != 1 || events[0].Timestamp.Before(before.Truncate(time.Second)) {
		t.Errorf("events = %+v, want one event stamped after %v", events, before)
	}
}

func TestLogger_RequiresUser(t *testing.T) {
	logger := NewLogger(t.TempDir())
	if err := logger.Log(Event{Type: EventLogin}); err == nil {
		t.Error("Log() without user succeeded, want error")
	}
}

func TestLogger_TraversalStaysInside(t *testing.T) {
	dir := t.TempDir()
	logger := NewLogger(dir)

	if err := logger.Log(Event{Type: EventLoginFailed, User: "../../escape"}); err != nil {
		t.Fatalf("Log failed: %v", err)
	}

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		if !strings.HasPrefix(path, filepath.Join(dir, "audit")+string(os.PathSeparator)) {
			t.Errorf("audit file %s written outside the audit directory", path)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(dir), "escape.events.jsonl")); err == nil {
		t.Error("traversal username escaped the state directory")
	}
}

func TestLogger_SkipsMalformed(t *testing.T) {
	dir := t.TempDir()
	logger := NewLogger(dir)
	logger.Log(Event{Type: EventLogin, User: "alice"})

	path := filepath.Join(dir, "audit", "alice.events.jsonl")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	f.WriteString("not json\n\n")
	f.Close()
	logger.Log(Event{Type: EventLogout, User: "alice"})

	events, err := logger.Events("alice")
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("got %d events, want 2", len(events))
	}
}
