// Copyright 2015 Sam Whited.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package stanza

import (
	"encoding/xml"
	"fmt"

	"mellium.im/xmlstream"
	"quietloop.im/xmpp/internal/attr"
	"quietloop.im/xmpp/internal/ns"
	"quietloop.im/xmpp/jid"
)

// Message is an XMPP stanza that is used for one-to-one chat, group chat,
// alerts, notifications, and other push communication.
type Message struct {
	XMLName xml.Name    `xml:"message"`
	ID      string      `xml:"id,attr"`
	To      *jid.JID    `xml:"to,attr"`
	From    *jid.JID    `xml:"from,attr"`
	Lang    string      `xml:"http://www.w3.org/XML/1998/namespace lang,attr,omitempty"`
	Type    MessageType `xml:"type,attr,omitempty"`
}

// MessageType is the type of a message stanza.
// It should normally be one of the constants defined in this package.
type MessageType string

const (
	// NormalMessage is a single message sent outside the context of a chat or
	// one-to-one conversation. This is the default if a message type is not
	// specified.
	NormalMessage MessageType = "normal"

	// ChatMessage represents a message sent in the context of a one-to-one
	// chat session.
	ChatMessage MessageType = "chat"

	// GroupChatMessage represents a message sent in the context of a
	// multi-user chat environment.
	GroupChatMessage MessageType = "groupchat"

	// HeadlineMessage is a semantically different type of message that is
	// used for alerts, notifications, or other information for which a reply
	// is not expected.
	HeadlineMessage MessageType = "headline"

	// ErrorMessage indicates that an error has occurred regarding processing
	// of a previously sent message stanza.
	ErrorMessage MessageType = "error"
)

// String satisfies the fmt.Stringer interface.
func (t MessageType) String() string {
	return string(t)
}

// StartElement returns a start element that can be used to encode the
// message or to compare against an element to see if it is a message
// stanza.
func (m Message) StartElement() xml.StartElement {
	name := m.XMLName
	if name.Local == "" {
		name.Local = "message"
	}
	attrs := make([]xml.Attr, 0, 5)
	if m.ID != "" {
		attrs = append(attrs, xml.Attr{Name: xml.Name{Local: "id"}, Value: m.ID})
	}
	if m.To != nil {
		attrs = append(attrs, xml.Attr{Name: xml.Name{Local: "to"}, Value: m.To.String()})
	}
	if m.From != nil {
		attrs = append(attrs, xml.Attr{Name: xml.Name{Local: "from"}, Value: m.From.String()})
	}
	if m.Lang != "" {
		attrs = append(attrs, xml.Attr{Name: xml.Name{Space: ns.XML, Local: "lang"}, Value: m.Lang})
	}
	if m.Type != "" {
		attrs = append(attrs, xml.Attr{Name: xml.Name{Local: "type"}, Value: string(m.Type)})
	}
	return xml.StartElement{Name: name, Attr: attrs}
}

// Wrap wraps the payload in the message stanza, returning a new token
// reader.
func (m Message) Wrap(payload xml.TokenReader) xml.TokenReader {
	return xmlstream.Wrap(payload, m.StartElement())
}

// NewMessage constructs a Message from an already popped start element. It
// does not verify that the start element is a message (the local name and
// namespace are not checked) so that it can be used to parse messages in any
// namespace.
func NewMessage(start xml.StartElement) (Message, error) {
	if start.Name.Local != "message" {
		return Message{}, fmt.Errorf("stanza: expected a message start element, got %q", start.Name.Local)
	}
	m := Message{XMLName: start.Name}
	_, m.ID = attr.Get(start.Attr, "id")
	if _, to := attr.Get(start.Attr, "to"); to != "" {
		j, err := jid.Parse(to)
		if err != nil {
			return m, err
		}
		m.To = j
	}
	if _, from := attr.Get(start.Attr, "from"); from != "" {
		j, err := jid.Parse(from)
		if err != nil {
			return m, err
		}
		m.From = j
	}
	m.Lang = langOf(start.Attr)
	_, typ := attr.Get(start.Attr, "type")
	m.Type = MessageType(typ)
	return m, nil
}
