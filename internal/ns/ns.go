// Copyright 2016 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package ns provides namespace constants that are used by the xmpp package and
// other internal packages.
package ns // import "quietloop.im/xmpp/internal/ns"

// List of commonly used namespaces.
const (
	Bind     = "urn:ietf:params:xml:ns:xmpp-bind"
	SASL     = "urn:ietf:params:xml:ns:xmpp-sasl"
	StartTLS = "urn:ietf:params:xml:ns:xmpp-tls"
	XML      = "http://www.w3.org/XML/1998/namespace"

	// Client is the content namespace of a stream established between a
	// client and a server.
	Client = "jabber:client"
	// Server is the content namespace of a stream established between two
	// servers.
	Server = "jabber:server"
	// Stream is the namespace of the stream wrapper element itself.
	Stream = "http://etherx.jabber.org/streams"
	// Framing is the namespace used by the WebSocket subprotocol's open and
	// close framing elements in place of the stream wrapper.
	Framing = "urn:ietf:params:xml:ns:xmpp-framing"
	// WS is the namespace used on the WebSocket subprotocol's stream wrapper
	// element (the "open" and "close" framing payloads).
	WS = Framing
	// Stanza is the namespace of defined stanza error conditions.
	Stanza = "urn:ietf:params:xml:ns:xmpp-stanzas"
	// Streams is the namespace of defined stream-level error conditions.
	Streams = "urn:ietf:params:xml:ns:xmpp-streams"
)
