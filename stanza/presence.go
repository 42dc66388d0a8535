// Copyright 2016 Sam Whited.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package stanza

import (
	"encoding/xml"

	"mellium.im/xmlstream"
	"quietloop.im/xmpp/internal/attr"
	"quietloop.im/xmpp/internal/ns"
	"quietloop.im/xmpp/jid"
)

// Presence is an XMPP stanza that is used as an indication that an entity is
// available for communication. It is used to set a status message, broadcast
// availability, and advertise entity capabilities. It can be directed
// (one-to-one), or used as a broadcast mechanism (one-to-many).
type Presence struct {
	XMLName xml.Name     `xml:"presence"`
	ID      string       `xml:"id,attr"`
	To      *jid.JID     `xml:"to,attr"`
	From    *jid.JID     `xml:"from,attr"`
	Lang    string       `xml:"http://www.w3.org/XML/1998/namespace lang,attr,omitempty"`
	Type    PresenceType `xml:"type,attr,omitempty"`
}

// IQType is the type of a presence stanza.
// It should normally be one of the constants defined in this package.
type PresenceType string

const (
	// ErrorPresence indicates that an error has occurred regarding processing of
	// a previously sent presence stanza; if the presence stanza is of type
	// "error", it MUST include an <error/> child element
	ErrorPresence PresenceType = "error"

	// ProbePresence is a request for an entity's current presence. It should
	// generally only be generated and sent by servers on behalf of a user.
	ProbePresence PresenceType = "probe"

	// SubscribePresence is sent when the sender wishes to subscribe to the
	// recipient's presence.
	SubscribePresence PresenceType = "subscribe"

	// SubscribedPresence indicates that the sender has allowed the recipient to
	// receive future presence broadcasts.
	SubscribedPresence PresenceType = "subscribed"

	// UnavailablePresence indicates that the sender is no longer available for
	// communication.
	UnavailablePresence PresenceType = "unavailable"

	// UnsubscribePresence indicates that the sender is unsubscribing from the
	// receiver's presence.
	UnsubscribePresence PresenceType = "unsubscribe"

	// UnsubscribedPresence indicates that the subscription request has been
	// denied, or a previously granted subscription has been revoked.
	UnsubscribedPresence PresenceType = "unsubscribed"
)

// String satisfies the fmt.Stringer interface.
func (t PresenceType) String() string {
	return string(t)
}

// StartElement returns a start element that can be used to encode the
// presence or to compare against an element to see if it is a presence
// stanza.
func (p Presence) StartElement() xml.StartElement {
	name := p.XMLName
	if name.Local == "" {
		name.Local = "presence"
	}
	attrs := make([]xml.Attr, 0, 5)
	if p.ID != "" {
		attrs = append(attrs, xml.Attr{Name: xml.Name{Local: "id"}, Value: p.ID})
	}
	if p.To != nil {
		attrs = append(attrs, xml.Attr{Name: xml.Name{Local: "to"}, Value: p.To.String()})
	}
	if p.From != nil {
		attrs = append(attrs, xml.Attr{Name: xml.Name{Local: "from"}, Value: p.From.String()})
	}
	if p.Lang != "" {
		attrs = append(attrs, xml.Attr{Name: xml.Name{Space: ns.XML, Local: "lang"}, Value: p.Lang})
	}
	if p.Type != "" {
		attrs = append(attrs, xml.Attr{Name: xml.Name{Local: "type"}, Value: string(p.Type)})
	}
	return xml.StartElement{Name: name, Attr: attrs}
}

// Wrap wraps the payload in the presence stanza, returning a new token
// reader.
func (p Presence) Wrap(payload xml.TokenReader) xml.TokenReader {
	return xmlstream.Wrap(payload, p.StartElement())
}

// NewPresence constructs a Presence from an already popped start element. It
// does not verify that the start element is a presence (the local name and
// namespace are not checked) so that it can be used to parse presence
// stanzas in any namespace.
func NewPresence(start xml.StartElement) (Presence, error) {
	p := Presence{XMLName: start.Name}
	_, p.ID = attr.Get(start.Attr, "id")
	if _, to := attr.Get(start.Attr, "to"); to != "" {
		j, err := jid.Parse(to)
		if err != nil {
			return p, err
		}
		p.To = j
	}
	if _, from := attr.Get(start.Attr, "from"); from != "" {
		j, err := jid.Parse(from)
		if err != nil {
			return p, err
		}
		p.From = j
	}
	p.Lang = langOf(start.Attr)
	_, typ := attr.Get(start.Attr, "type")
	p.Type = PresenceType(typ)
	return p, nil
}
