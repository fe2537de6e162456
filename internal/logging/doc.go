// Package logging provides logging utilities for adminmux.
//
// This package provides two categories of output:
//   - Operator logs: structured logs about sessions and backends (via slog)
//   - User output: formatted messages for the CLI subcommands
//
// # Operator Logging
//
// Operator logs are written using slog and controlled by verbosity settings:
//
//	logging.Debug("backend drained", "backend", name, "lines", n)
//	logging.Warn("accept failed", "error", err)
//
// Session-scoped code derives a logger carrying the session id:
//
//	log := logging.ForSession(id)
//	log.Info("login", "user", name)
//
// # User Output
//
// User-facing messages are formatted with status indicators:
//
//	logging.UserInfo("Listening on %s", addr)
//	logging.UserSuccess("%s reachable in %s", name, latency)
//	logging.UserWarning("%s unreachable", name)
//	logging.UserError("Failed to load config: %v", err)
//
// Output destinations:
//   - UserInfo, UserSuccess: stdout
//   - UserWarning, UserError: stderr
package logging
