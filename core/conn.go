package core

import (
	"net"
	"time"
)

// deadlineConn pushes the read or write deadline forward before every
// call, so timeout bounds how long a single stalled operation can block.
type deadlineConn struct {
	net.Conn
	timeout time.Duration
}

func withDeadline(conn net.Conn, timeout time.Duration) net.Conn {
	if timeout <= 0 {
		return conn
	}
	return &deadlineConn{Conn: conn, timeout: timeout}
}

func (c *deadlineConn) Read(p []byte) (int, error) {
	if err := c.Conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	return c.Conn.Read(p)
}

func (c *deadlineConn) Write(p []byte) (int, error) {
	if err := c.Conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	return c.Conn.Write(p)
}
