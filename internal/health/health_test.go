package health

import (
	"context"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/firefly-engineering/adminmux/internal/backend"
)

func TestStatusConstants(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusReachable, "reachable"},
		{StatusUnreachable, "unreachable"},
	}

	for _, tt := range tests {
		if string(tt.status) != tt.want {
			t.Errorf("Status %v = %q, want %q", tt.status, tt.status, tt.want)
		}
	}
}

func TestFormatLatency(t *testing.T) {
	tests := []struct {
		name    string
		latency time.Duration
		want    string
	}{
		{"microseconds", 250 * time.Microsecond, "250µs"},
		{"milliseconds", 12 * time.Millisecond, "12ms"},
		{"seconds", 1500 * time.Millisecond, "1.5s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatLatency(tt.latency); got != tt.want {
				t.Errorf("formatLatency(%v) = %q, want %q", tt.latency, got, tt.want)
			}
		})
	}
}

// listen returns a backend pointing at a loopback listener that accepts
// and closes connections.
func listen(t *testing.T) backend.Backend {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			c.Close()
		}
	}()

	return backendFor(t, "alpha", ln.Addr().String())
}

// closedBackend returns a backend on a port nobody listens on.
func closedBackend(t *testing.T) backend.Backend {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	return backendFor(t, "beta", addr)
}

func backendFor(t *testing.T, name, addr string) backend.Backend {
	t.Helper()

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatalf("SplitHostPort(%q) failed: %v", addr, err)
	}
	p, err := strconv.Atoi(port)
	if err != nil {
		t.Fatalf("Atoi(%q) failed: %v", port, err)
	}
	return backend.Backend{Name: name, Host: host, Port: p}
}

func TestProbe_Reachable(t *testing.T) {
	b := listen(t)

	result := Probe(context.Background(), b, time.Second)
	if result.Status != StatusReachable {
		t.Fatalf("Status = %q, want %q (err %v)", result.Status, StatusReachable, result.Err)
	}
	if result.Err != nil {
		t.Errorf("Err = %v, want nil", result.Err)
	}
	if !strings.Contains(result.String(), "alpha") || !strings.Contains(result.String(), "reachable in") {
		t.Errorf("String() = %q, want name and latency", result.String())
	}
}

func TestProbe_Unreachable(t *testing.T) {
	b := closedBackend(t)

	result := Probe(context.Background(), b, time.Second)
	if result.Status != StatusUnreachable {
		t.Fatalf("Status = %q, want %q", result.Status, StatusUnreachable)
	}
	if result.Err == nil {
		t.Error("Err = nil, want dial error")
	}
	if !strings.Contains(result.String(), "unreachable:") {
		t.Errorf("String() = %q, want unreachable report", result.String())
	}
}

func TestProbe_CanceledContext(t *testing.T) {
	b := listen(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if result := Probe(ctx, b, time.Second); result.Status != StatusUnreachable {
		t.Errorf("Status = %q, want %q", result.Status, StatusUnreachable)
	}
}

func TestProbeAll_KeepsOrder(t *testing.T) {
	backends := []backend.Backend{closedBackend(t), listen(t)}

	results := ProbeAll(context.Background(), backends, time.Second)
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	if results[0].Backend.Name != "beta" || results[0].Status != StatusUnreachable {
		t.Errorf("results[0] = %v, want beta unreachable", results[0])
	}
	if results[1].Backend.Name != "alpha" || results[1].Status != StatusReachable {
		t.Errorf("results[1] = %v, want alpha reachable", results[1])
	}
}
