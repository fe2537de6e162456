// Package backend implements the gateway side of the admin line protocol
// spoken by every monitored game server.
//
// # Handshake
//
// The gateway opens one TCP connection per (session, backend) pair and
// sends
//
//	login <username> <password>
//
// The backend answers "ok" or "denied [reason]". A denial surfaces as an
// AuthError and is never retried.
//
// # Framing
//
// Output is newline-terminated text. Lines of the form
//
//	@@<KIND> <json>
//
// carry a structured payload. Only STATUS is consumed by the gateway;
// other kinds reach the caller untouched so it can report them. Every
// other line is parsed by ParseLine into speaker, tag and private-message
// attributes.
//
// # Draining
//
// Conn.Drain never blocks for more than a millisecond. It does not
// schedule itself: the owning session calls it once per tick and then
// pulls items with Next until the queue is empty.
package backend
