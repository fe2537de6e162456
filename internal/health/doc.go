// Package health probes backend reachability.
//
// A probe only opens and closes a TCP connection to the backend's
// host:port; it never sends credentials, so it is safe to run against
// production backends from any host:
//
//	result := health.Probe(ctx, b, health.DefaultTimeout)
//	// result.Status is StatusReachable or StatusUnreachable
//
//	results := health.ProbeAll(ctx, cfg.Backends, timeout)
package health
