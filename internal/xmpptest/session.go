// Copyright 2017 Sam Whited.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package xmpptest provides utilities for XMPP testing.
package xmpptest // import "quietloop.im/xmpp/internal/xmpptest"

import (
	"context"
	"encoding/xml"
	"io"
	"net"

	"mellium.im/xmlstream"
	"quietloop.im/xmpp"
	"quietloop.im/xmpp/jid"
)

// NewSession returns a new XMPP session with the state bits set to
// state|xmpp.Ready.
//
// NewSession panics on error for ease of use in testing, where a panic is
// acceptable.
func NewSession(state xmpp.SessionState, rw io.ReadWriter) *xmpp.Session {
	location := jid.MustParse("example.net")
	origin := jid.MustParse("test@example.net")

	s, err := xmpp.NegotiateSession(
		context.Background(), location, origin, rw,
		func(_ context.Context, _ *xmpp.Session, _ interface{}) (xmpp.SessionState, io.ReadWriter, interface{}, error) {
			return state | xmpp.Ready, nil, nil, nil
		},
	)
	if err != nil {
		panic(err)
	}
	return s
}

// NewClientSession returns a new client-side session for testing, with the
// state bits set to state|xmpp.Ready.
func NewClientSession(state xmpp.SessionState, rw io.ReadWriter) *xmpp.Session {
	return NewSession(state, rw)
}

// NewServerSession returns a new server-side session for testing, with the
// state bits set to state|xmpp.Ready|xmpp.Received.
func NewServerSession(state xmpp.SessionState, rw io.ReadWriter) *xmpp.Session {
	location := jid.MustParse("example.net")
	origin := jid.MustParse("test@example.net")

	s, err := xmpp.NegotiateSession(
		context.Background(), location, origin, rw,
		func(_ context.Context, _ *xmpp.Session, _ interface{}) (xmpp.SessionState, io.ReadWriter, interface{}, error) {
			return state | xmpp.Ready | xmpp.Received, nil, nil, nil
		},
	)
	if err != nil {
		panic(err)
	}
	return s
}

// ClientServer is a pair of connected sessions, suitable for testing code
// that needs to observe both sides of an XMPP conversation.
type ClientServer struct {
	Client *xmpp.Session
	Server *xmpp.Session
}

// Close shuts down both the client and server sessions.
func (cs ClientServer) Close() error {
	cErr := cs.Client.Close()
	sErr := cs.Server.Close()
	if cErr != nil {
		return cErr
	}
	return sErr
}

type csConfig struct {
	clientState   xmpp.SessionState
	serverState   xmpp.SessionState
	clientHandler xmpp.Handler
	serverHandler xmpp.Handler
}

// Option configures a ClientServer created by NewClientServer.
type Option func(*csConfig)

// ClientState ORs state into the mask used to negotiate the client session.
func ClientState(state xmpp.SessionState) Option {
	return func(c *csConfig) {
		c.clientState |= state
	}
}

// ServerState ORs state into the mask used to negotiate the server session.
func ServerState(state xmpp.SessionState) Option {
	return func(c *csConfig) {
		c.serverState |= state
	}
}

// ClientHandler sets the handler that serves the client side of the
// connection. If no handler is set the client does not serve incoming
// elements.
func ClientHandler(h xmpp.Handler) Option {
	return func(c *csConfig) {
		c.clientHandler = h
	}
}

// ClientHandlerFunc is like ClientHandler, but wraps an ordinary function
// using xmpp.HandlerFunc.
func ClientHandlerFunc(f func(xmlstream.TokenReadEncoder, *xml.StartElement) error) Option {
	return ClientHandler(xmpp.HandlerFunc(f))
}

// ServerHandler sets the handler that serves the server side of the
// connection. If no handler is set the server does not serve incoming
// elements.
func ServerHandler(h xmpp.Handler) Option {
	return func(c *csConfig) {
		c.serverHandler = h
	}
}

// ServerHandlerFunc is like ServerHandler, but wraps an ordinary function
// using xmpp.HandlerFunc.
func ServerHandlerFunc(f func(xmlstream.TokenReadEncoder, *xml.StartElement) error) Option {
	return ServerHandler(xmpp.HandlerFunc(f))
}

// NewClientServer returns a connected pair of client and server sessions
// backed by an in-memory pipe. If a handler is configured for either side it
// is served in the background for the life of the returned ClientServer.
func NewClientServer(opts ...Option) *ClientServer {
	var cfg csConfig
	for _, o := range opts {
		o(&cfg)
	}

	clientRW, serverRW := net.Pipe()
	client := NewClientSession(cfg.clientState, clientRW)
	server := NewServerSession(cfg.serverState, serverRW)

	if cfg.serverHandler != nil {
		go func() {
			/* #nosec */
			_ = server.Serve(cfg.serverHandler)
		}()
	}
	if cfg.clientHandler != nil {
		go func() {
			/* #nosec */
			_ = client.Serve(cfg.clientHandler)
		}()
	}

	return &ClientServer{Client: client, Server: server}
}
