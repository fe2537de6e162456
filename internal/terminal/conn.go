package terminal

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	gwerrors "github.com/firefly-engineering/adminmux/internal/errors"
)

// Limits for client connections.
const (
	DefaultPollTimeout  = time.Millisecond
	DefaultWriteTimeout = 250 * time.Millisecond

	// maxBacklog is how much unsent output a client may accumulate before
	// it is treated as dead.
	maxBacklog = 1 << 20

	// maxPollBytes bounds how much input one Poll consumes. The rest is
	// left in the socket for the next pass.
	maxPollBytes = 16 * 1024

	MinRows = 10
	MinCols = 40
)

// Client is the session's view of an interactive terminal connection.
type Client interface {
	// Poll returns decoded input without blocking.
	Poll() ([]Event, error)

	// Write queues output; nothing reaches the client before Flush.
	Write(p []byte) (int, error)

	// Flush sends queued output, bounded by a short deadline. Output that
	// does not fit is kept for the next Flush.
	Flush() error

	// Negotiate sends telnet options and a size query.
	Negotiate() error

	// QuerySize asks the terminal to report its size.
	QuerySize() error

	// Pending returns the unfinished input line.
	Pending() string

	RemoteAddr() string
	Close() error
}

// Conn is a Client over a TCP socket.
type Conn struct {
	conn    net.Conn
	decoder Decoder
	chunk   []byte
	out     []byte

	pollTimeout  time.Duration
	writeTimeout time.Duration
}

// NewConn wraps an accepted connection.
func NewConn(nc net.Conn) *Conn {
	return &Conn{
		conn:         nc,
		chunk:        make([]byte, 1024),
		pollTimeout:  DefaultPollTimeout,
		writeTimeout: DefaultWriteTimeout,
	}
}

func (c *Conn) Poll() ([]Event, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(c.pollTimeout)); err != nil {
		return nil, gwerrors.Transport("poll", err)
	}

	var events []Event
	for read := 0; read < maxPollBytes; {
		n, err := c.conn.Read(c.chunk[:min(len(c.chunk), maxPollBytes-read)])
		read += n
		events = append(events, c.decoder.Feed(c.chunk[:n])...)
		if err == nil {
			continue
		}
		if isTimeout(err) {
			return events, nil
		}
		events = append(events, Event{Kind: EventEOF})
		if errors.Is(err, io.EOF) {
			return events, nil
		}
		return events, gwerrors.Transport("read", err)
	}
	return events, nil
}

func (c *Conn) Write(p []byte) (int, error) {
	if len(c.out)+len(p) > maxBacklog {
		return 0, gwerrors.Transport("write", fmt.Errorf("client output backlog exceeds %d bytes", maxBacklog))
	}
	c.out = append(c.out, p...)
	return len(p), nil
}

func (c *Conn) Flush() error {
	if len(c.out) == 0 {
		return nil
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return gwerrors.Transport("flush", err)
	}
	n, err := c.conn.Write(c.out)
	c.out = append(c.out[:0], c.out[n:]...)
	if err != nil && !isTimeout(err) {
		return gwerrors.Transport("flush", err)
	}
	return nil
}

func (c *Conn) Negotiate() error {
	if _, err := c.Write(negotiation); err != nil {
		return err
	}
	return c.QuerySize()
}

func (c *Conn) QuerySize() error {
	if _, err := c.Write([]byte{telnetIAC, telnetDO, optNAWS}); err != nil {
		return err
	}
	_, err := io.WriteString(c, querySize)
	return err
}

func (c *Conn) Pending() string {
	return c.decoder.Pending()
}

func (c *Conn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

func (c *Conn) Close() error {
	return c.conn.Close()
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// CheckSize reports whether a geometry is large enough for the layouts.
func CheckSize(rows, cols int) error {
	if rows < MinRows || cols < MinCols {
		return gwerrors.Negotiation(fmt.Sprintf("terminal %dx%d is smaller than %dx%d", cols, rows, MinCols, MinRows))
	}
	return nil
}
