package backend

import (
	"bufio"
	"context"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	gwerrors "github.com/firefly-engineering/adminmux/internal/errors"
)

// fakeServer accepts one connection and hands it to handle.
func fakeServer(t *testing.T, handle func(conn net.Conn, r *bufio.Reader)) Backend {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		handle(conn, bufio.NewReader(conn))
	}()

	host, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.Atoi(portStr)
	return Backend{Name: "alpha", Host: host, Port: port}
}

func drainUntil(t *testing.T, c Conn, want int) []Item {
	t.Helper()
	var items []Item
	deadline := time.Now().Add(2 * time.Second)
	for len(items) < want && time.Now().Before(deadline) {
		if err := c.Drain(); err != nil {
			t.Fatalf("Drain failed: %v", err)
		}
		for {
			item, ok := c.Next()
			if !ok {
				break
			}
			items = append(items, item)
		}
	}
	return items
}

func TestDial_LoginAndDrain(t *testing.T) {
	gotLogin := make(chan string, 1)
	gotCommand := make(chan string, 1)

	b := fakeServer(t, func(conn net.Conn, r *bufio.Reader) {
		line, _ := r.ReadString('\n')
		gotLogin <- strings.TrimSpace(line)
		conn.Write([]byte("ok\r\n<alice> hi\n@@STATUS {\"text\":\"\"}\n"))
		cmd, _ := r.ReadString('\n')
		gotCommand <- strings.TrimSpace(cmd)
		time.Sleep(100 * time.Millisecond)
	})

	c, err := Dial(context.Background(), b, "alice", "secret")
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	if got := <-gotLogin; got != "login alice secret" {
		t.Errorf("login line = %q, want %q", got, "login alice secret")
	}
	if c.Name() != "alpha" {
		t.Errorf("Name() = %q, want alpha", c.Name())
	}

	items := drainUntil(t, c, 2)
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if items[0].Line == nil || items[0].Line.Speaker != "alice" {
		t.Errorf("first item = %+v, want chat line from alice", items[0])
	}
	if items[1].Payload == nil || items[1].Payload.Kind != KindStatus {
		t.Errorf("second item = %+v, want STATUS payload", items[1])
	}

	if err := c.Send("status"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if got := <-gotCommand; got != "status" {
		t.Errorf("command = %q, want status", got)
	}
}

func TestDial_Denied(t *testing.T) {
	b := fakeServer(t, func(conn net.Conn, r *bufio.Reader) {
		r.ReadString('\n')
		conn.Write([]byte("denied not on roster\n"))
	})

	_, err := Dial(context.Background(), b, "mallory", "x")
	if err == nil {
		t.Fatal("Dial should fail when the backend denies the login")
	}
	if got := gwerrors.CategoryOf(err); got != gwerrors.CategoryAuth {
		t.Errorf("CategoryOf() = %q, want %q", got, gwerrors.CategoryAuth)
	}
	if !strings.Contains(err.Error(), "not on roster") {
		t.Errorf("error %q should carry the denial reason", err)
	}
}

func TestDial_Refused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	addr := ln.Addr().(*net.TCPAddr)
	ln.Close()

	_, err = Dial(context.Background(), Backend{Name: "gone", Host: "127.0.0.1", Port: addr.Port}, "a", "b")
	if err == nil {
		t.Fatal("Dial to a closed port should fail")
	}
	if got := gwerrors.CategoryOf(err); got != gwerrors.CategoryTransport {
		t.Errorf("CategoryOf() = %q, want %q", got, gwerrors.CategoryTransport)
	}
}

func TestDrain_ReportsClose(t *testing.T) {
	b := fakeServer(t, func(conn net.Conn, r *bufio.Reader) {
		r.ReadString('\n')
		conn.Write([]byte("ok\nlast words\n"))
	})

	c, err := Dial(context.Background(), b, "alice", "secret")
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	var drainErr error
	deadline := time.Now().Add(2 * time.Second)
	for drainErr == nil && time.Now().Before(deadline) {
		drainErr = c.Drain()
	}
	if drainErr == nil {
		t.Fatal("Drain should report the closed connection")
	}

	item, ok := c.Next()
	if !ok || item.Line == nil || item.Line.Text != "last words" {
		t.Errorf("lines received before close should still be queued, got %+v", item)
	}
}

func TestBackend_Addr(t *testing.T) {
	b := Backend{Host: "10.0.0.5", Port: 26000}
	if got := b.Addr(); got != "10.0.0.5:26000" {
		t.Errorf("Addr() = %q, want 10.0.0.5:26000", got)
	}
}
