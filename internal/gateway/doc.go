// Package gateway runs the multiplexing server.
//
// A background goroutine accepts TCP clients and queues them; it touches
// nothing else. The goroutine calling Run owns every session and repeats
// one pass per wakeup (a new client or the wait timeout):
//
//  1. induct queued clients as new sessions
//  2. read and dispatch each session's input
//  3. close moribund sessions and announce who left
//  4. at most once per tick interval, drain backends, poll status and
//     redraw every session
//
// Sessions are processed in the order they connected. Cancelling the
// context passed to Run closes the listener and tears every session down.
package gateway
