package terminal

import (
	"bytes"
	"io"
	"net"
	"testing"
	"time"
)

// pair returns a server-side Conn and the raw client end of a loopback
// TCP connection.
func pair(t *testing.T) (*Conn, net.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		nc, err := ln.Accept()
		if err != nil {
			close(accepted)
			return
		}
		accepted <- nc
	}()

	client, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	server, ok := <-accepted
	if !ok {
		t.Fatal("Accept() failed")
	}
	t.Cleanup(func() {
		client.Close()
		server.Close()
	})
	return NewConn(server), client
}

func pollUntil(t *testing.T, c *Conn, kind EventKind) Event {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		events, err := c.Poll()
		if err != nil {
			t.Fatalf("Poll() error = %v", err)
		}
		for _, ev := range events {
			if ev.Kind == kind {
				return ev
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("no event of kind %v within deadline", kind)
	return Event{}
}

func TestConnPollDoesNotBlock(t *testing.T) {
	c, _ := pair(t)

	start := time.Now()
	events, err := c.Poll()
	if err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	if len(events) != 0 {
		t.Errorf("Poll() = %+v, want no events", events)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("Poll() took %v on an idle connection", elapsed)
	}
}

func TestConnPollLine(t *testing.T) {
	c, client := pair(t)

	if _, err := client.Write([]byte("status\r\n")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	ev := pollUntil(t, c, EventLine)
	if ev.Line != "status" {
		t.Errorf("line = %q, want %q", ev.Line, "status")
	}
}

func TestConnPollEOF(t *testing.T) {
	c, client := pair(t)
	client.Close()
	pollUntil(t, c, EventEOF)
}

func TestConnNegotiate(t *testing.T) {
	c, client := pair(t)

	if err := c.Negotiate(); err != nil {
		t.Fatalf("Negotiate() error = %v", err)
	}
	if err := c.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	want := append(append([]byte{}, negotiation...), telnetIAC, telnetDO, optNAWS)
	want = append(want, querySize...)
	got := make([]byte, len(want))
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := io.ReadFull(client, got); err != nil {
		t.Fatalf("ReadFull() error = %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("negotiation = %q, want %q", got, want)
	}
}

func TestConnWriteBuffersUntilFlush(t *testing.T) {
	c, client := pair(t)

	if _, err := c.Write([]byte("hello")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	client.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
	buf := make([]byte, 16)
	if n, _ := client.Read(buf); n != 0 {
		t.Errorf("read %q before Flush, want nothing", buf[:n])
	}

	if err := c.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	got := make([]byte, 5)
	if _, err := io.ReadFull(client, got); err != nil {
		t.Fatalf("ReadFull() error = %v", err)
	}
	if string(got) != "hello" {
		t.Errorf("flushed = %q, want %q", got, "hello")
	}
}

func TestConnBacklogLimit(t *testing.T) {
	c, _ := pair(t)

	if _, err := c.Write(make([]byte, maxBacklog)); err != nil {
		t.Fatalf("Write() at limit error = %v", err)
	}
	if _, err := c.Write([]byte("x")); err == nil {
		t.Error("Write() past backlog limit succeeded, want error")
	}
}

func TestMoveTo(t *testing.T) {
	if got := MoveTo(0, 0); got != "\x1b[1;1H" {
		t.Errorf("MoveTo(0, 0) = %q, want %q", got, "\x1b[1;1H")
	}
	if got := MoveTo(23, 5); got != "\x1b[24;6H" {
		t.Errorf("MoveTo(23, 5) = %q, want %q", got, "\x1b[24;6H")
	}
}

func TestConnPollBoundsInput(t *testing.T) {
	c, client := pair(t)

	const total = 32 * 1024
	go client.Write(bytes.Repeat([]byte("a\r"), total))

	got := 0
	deadline := time.Now().Add(5 * time.Second)
	for got < total && time.Now().Before(deadline) {
		events, err := c.Poll()
		if err != nil {
			t.Fatalf("Poll() error = %v", err)
		}
		n := len(lines(events))
		if n > maxPollBytes/2 {
			t.Fatalf("Poll() returned %d lines, want at most %d", n, maxPollBytes/2)
		}
		got += n
	}
	if got != total {
		t.Errorf("received %d lines, want %d", got, total)
	}
}
