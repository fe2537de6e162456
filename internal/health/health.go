package health

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/firefly-engineering/adminmux/internal/backend"
)

// Status represents the reachability of a backend.
type Status string

const (
	StatusReachable   Status = "reachable"
	StatusUnreachable Status = "unreachable"

	// DefaultTimeout bounds one probe.
	DefaultTimeout = 3 * time.Second
)

// Result is the outcome of probing one backend.
type Result struct {
	Backend backend.Backend
	Status  Status
	Latency time.Duration
	Err     error
}

// String formats the result as one report line.
func (r Result) String() string {
	if r.Status == StatusReachable {
		return fmt.Sprintf("%s (%s) %s in %s", r.Backend.Name, r.Backend.Addr(), r.Status, formatLatency(r.Latency))
	}
	return fmt.Sprintf("%s (%s) %s: %v", r.Backend.Name, r.Backend.Addr(), r.Status, r.Err)
}

// Probe dials the backend's TCP port. It does not log in.
func Probe(ctx context.Context, b backend.Backend, timeout time.Duration) Result {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result := Result{Backend: b, Status: StatusUnreachable}

	var dialer net.Dialer
	start := time.Now()
	conn, err := dialer.DialContext(ctx, "tcp", b.Addr())
	result.Latency = time.Since(start)
	if err != nil {
		result.Err = err
		return result
	}
	conn.Close()

	result.Status = StatusReachable
	return result
}

// ProbeAll probes every backend concurrently. Results keep the order of
// backends.
func ProbeAll(ctx context.Context, backends []backend.Backend, timeout time.Duration) []Result {
	results := make([]Result, len(backends))

	var wg sync.WaitGroup
	for i, b := range backends {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = Probe(ctx, b, timeout)
		}()
	}
	wg.Wait()

	return results
}

func formatLatency(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	} else if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}
