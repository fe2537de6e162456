// Package testutil provides test doubles and fixtures shared by the
// gateway's package tests.
//
// # Fakes
//
// FakeClient stands in for a terminal connection: tests queue input with
// Resize and Type and inspect what was flushed through Output or Screen.
// FakeBackend scripts backend output with Emit and EmitPayload and records
// every command in Sent. FakeDialer creates a FakeBackend per dial, so two
// sessions watching the same backend get separate connections:
//
//	env := testutil.NewTestEnv(t)
//	env.AddBackend("alpha", "eu")
//	env.AddUser("alice", "secret", 0)
//	env.Authorize("alice", "alpha")
//
//	conn := env.Dialer.Last("alpha")
//	conn.Emit("<bob> hello")
//
// # Fixtures
//
// Configuration files are embedded under fixtures/:
//
//	fixtures/valid_config.toml
//	fixtures/valid_config.yaml
//	fixtures/invalid_config.toml
//
// WriteFixture copies one into a temporary directory for loaders that
// read from disk.
package testutil
