// Package terminal carries interactive client sessions over plain TCP
// using the telnet conventions every terminal client understands.
//
// On accept the gateway announces WILL ECHO and WILL SGA, which puts
// clients in character mode with server-side echo, and DO NAWS, which
// makes them report their window size now and on every resize. Clients
// that ignore NAWS are sized with an ANSI cursor position report instead.
//
// Reads never block: Conn.Poll uses a millisecond read deadline and
// returns whatever events the Decoder completed. Writes are queued and
// sent by Flush under a short write deadline, so a stalled client only
// ever delays its own output.
package terminal
