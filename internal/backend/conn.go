package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	gwerrors "github.com/firefly-engineering/adminmux/internal/errors"
)

// Timeouts for backend connections.
const (
	DefaultDialTimeout  = 5 * time.Second
	DefaultLoginTimeout = 5 * time.Second
	DefaultDrainTimeout = time.Millisecond
	DefaultWriteTimeout = 2 * time.Second

	// maxDrainBytes bounds how much one Drain call reads so a chatty
	// backend cannot hold the main loop.
	maxDrainBytes = 64 * 1024
)

// Backend identifies one monitored admin server.
type Backend struct {
	Name string `toml:"name" yaml:"name"`
	Host string `toml:"host" yaml:"host"`
	Port int    `toml:"port" yaml:"port"`
	Zone string `toml:"zone" yaml:"zone"`
}

// Addr returns host:port.
func (b Backend) Addr() string {
	return net.JoinHostPort(b.Host, strconv.Itoa(b.Port))
}

// Conn is one session's connection to one backend.
type Conn interface {
	// Name returns the backend nickname.
	Name() string

	// Drain reads whatever output is available without blocking and
	// queues the complete lines for Next.
	Drain() error

	// Next pops the next queued item; ok is false when the queue is empty.
	Next() (item Item, ok bool)

	// Send writes one raw command line.
	Send(line string) error

	// Close tears down the connection.
	Close() error
}

// Dialer opens an authenticated backend connection.
type Dialer func(ctx context.Context, b Backend, username, password string) (Conn, error)

// TCPConn speaks the backend line protocol over TCP.
type TCPConn struct {
	name    string
	conn    net.Conn
	buf     []byte
	pending []Item

	drainTimeout time.Duration
	writeTimeout time.Duration
}

// Dial connects to b and performs the login handshake. It satisfies Dialer.
func Dial(ctx context.Context, b Backend, username, password string) (Conn, error) {
	dialer := net.Dialer{Timeout: DefaultDialTimeout}
	nc, err := dialer.DialContext(ctx, "tcp", b.Addr())
	if err != nil {
		return nil, gwerrors.Transport("dial "+b.Name, err)
	}

	c := NewTCPConn(b.Name, nc)
	if err := c.Login(username, password, DefaultLoginTimeout); err != nil {
		nc.Close()
		return nil, err
	}
	return c, nil
}

// NewTCPConn wraps an established connection. Call Login before use.
func NewTCPConn(name string, nc net.Conn) *TCPConn {
	return &TCPConn{
		name:         name,
		conn:         nc,
		drainTimeout: DefaultDrainTimeout,
		writeTimeout: DefaultWriteTimeout,
	}
}

func (c *TCPConn) Name() string {
	return c.name
}

// Login sends the credentials and waits for "ok" or "denied [reason]".
func (c *TCPConn) Login(username, password string, timeout time.Duration) error {
	if err := c.Send(fmt.Sprintf("login %s %s", username, password)); err != nil {
		return err
	}

	deadline := time.Now().Add(timeout)
	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return gwerrors.Transport("login "+c.name, err)
	}
	chunk := make([]byte, 512)
	for {
		if line, ok := c.popLine(); ok {
			reply, reason, _ := strings.Cut(line, " ")
			switch reply {
			case "ok":
				return nil
			case "denied":
				return gwerrors.BackendAuth(c.name, reason)
			default:
				return gwerrors.Transport("login "+c.name, fmt.Errorf("unexpected reply %q", line))
			}
		}
		n, err := c.conn.Read(chunk)
		c.buf = append(c.buf, chunk[:n]...)
		if err != nil {
			return gwerrors.Transport("login "+c.name, err)
		}
	}
}

// Drain reads available output. A closed or failed connection is reported
// after every complete line received before the failure has been queued.
func (c *TCPConn) Drain() error {
	if err := c.conn.SetReadDeadline(time.Now().Add(c.drainTimeout)); err != nil {
		return gwerrors.Transport("drain "+c.name, err)
	}

	var readErr error
	chunk := make([]byte, 4096)
	for total := 0; total < maxDrainBytes; {
		n, err := c.conn.Read(chunk)
		total += n
		c.buf = append(c.buf, chunk[:n]...)
		if err != nil {
			if !isTimeout(err) {
				readErr = err
			}
			break
		}
	}

	for {
		line, ok := c.popLine()
		if !ok {
			break
		}
		c.pending = append(c.pending, parseItem(line))
	}

	if readErr != nil {
		if errors.Is(readErr, io.EOF) {
			return gwerrors.Transport("drain "+c.name, fmt.Errorf("backend closed the connection"))
		}
		return gwerrors.Transport("drain "+c.name, readErr)
	}
	return nil
}

func (c *TCPConn) Next() (Item, bool) {
	if len(c.pending) == 0 {
		return Item{}, false
	}
	item := c.pending[0]
	c.pending = c.pending[1:]
	return item, true
}

func (c *TCPConn) Send(line string) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return gwerrors.Transport("send "+c.name, err)
	}
	if _, err := io.WriteString(c.conn, line+"\n"); err != nil {
		return gwerrors.Transport("send "+c.name, err)
	}
	return nil
}

func (c *TCPConn) Close() error {
	return c.conn.Close()
}

// popLine removes one newline-terminated line from the buffer.
func (c *TCPConn) popLine() (string, bool) {
	i := bytes.IndexByte(c.buf, '\n')
	if i < 0 {
		return "", false
	}
	line := strings.TrimRight(string(c.buf[:i]), "\r")
	c.buf = c.buf[i+1:]
	return line, true
}

func parseItem(line string) Item {
	if p, ok := parsePayload(line); ok {
		return Item{Payload: p}
	}
	parsed := ParseLine(line)
	return Item{Line: &parsed}
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
