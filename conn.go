// Copyright 2016 Sam Whited.
// Use of this source code is governed by the BSD 2-clause license that can be
// found in the LICENSE file.

package xmpp

import (
	"crypto/tls"
	"errors"
	"io"
	"net"
	"sync"
	"time"
)

// A Conn wraps the io.ReadWriter backing a Session so that writes are
// serialized and, when the underlying value is a net.Conn or io.Closer, Close
// and the deadline setters can be used directly on the session.
type Conn struct {
	rw io.ReadWriter
	mu sync.Mutex
}

func newConn(rw io.ReadWriter) *Conn {
	if c, ok := rw.(*Conn); ok {
		return c
	}
	return &Conn{rw: rw}
}

// Raw returns the value being wrapped, useful for feature negotiators (such
// as STARTTLS) that need to type-assert the underlying connection to get at
// functionality not exposed by io.ReadWriter (for instance net.Conn).
func (c *Conn) Raw() io.ReadWriter {
	return c.rw
}

// Read reads data from the underlying connection.
func (c *Conn) Read(b []byte) (n int, err error) {
	return c.rw.Read(b)
}

// Write writes data to the underlying connection. Writes are serialized with
// a mutex since the XML encoder and any feature negotiators that write
// directly to the connection may be called from different goroutines during
// stream negotiation.
func (c *Conn) Write(b []byte) (n int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rw.Write(b)
}

// Close closes the underlying connection if it implements io.Closer.
func (c *Conn) Close() error {
	if closer, ok := c.rw.(ioCloser); ok {
		return closer.Close()
	}
	return nil
}

type ioCloser interface {
	Close() error
}

// ConnectionState returns the TLS connection state if the underlying
// connection has been upgraded to TLS, so that callers can inspect the
// negotiated cipher suite or peer certificates without caring whether
// STARTTLS or an already-secured transport (eg. WebSockets over HTTPS) was
// used to get there.
func (c *Conn) ConnectionState() (tls.ConnectionState, bool) {
	tlsConn, ok := c.rw.(*tls.Conn)
	if !ok {
		return tls.ConnectionState{}, false
	}
	return tlsConn.ConnectionState(), true
}

var errSetDeadline = errors.New("xmpp: cannot set deadline: not using a net.Conn")

// SetDeadline sets the read and write deadlines associated with the
// connection, if the underlying value is a net.Conn.
func (c *Conn) SetDeadline(t time.Time) error {
	if conn, ok := c.rw.(net.Conn); ok {
		return conn.SetDeadline(t)
	}
	return errSetDeadline
}

// SetReadDeadline sets the deadline for future Read calls, if the underlying
// value is a net.Conn.
func (c *Conn) SetReadDeadline(t time.Time) error {
	if conn, ok := c.rw.(net.Conn); ok {
		return conn.SetReadDeadline(t)
	}
	return errSetDeadline
}

// SetWriteDeadline sets the deadline for future Write calls, if the
// underlying value is a net.Conn.
func (c *Conn) SetWriteDeadline(t time.Time) error {
	if conn, ok := c.rw.(net.Conn); ok {
		return conn.SetWriteDeadline(t)
	}
	return errSetDeadline
}
