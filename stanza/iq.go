// Copyright 2016 Sam Whited.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package stanza

import (
	"encoding/xml"
	"errors"

	"mellium.im/xmlstream"
	"quietloop.im/xmpp/internal/attr"
	"quietloop.im/xmpp/internal/ns"
	"quietloop.im/xmpp/jid"
)

// Errors returned by the stanza package.
var (
	ErrEmptyIQType = errors.New("stanza: empty IQ type")
)

// IQ ("Information Query") is used as a general request response mechanism.
// IQ's are one-to-one, provide get and set semantics, and always require a
// response in the form of a result or an error.
type IQ struct {
	XMLName xml.Name `xml:"iq"`
	ID      string   `xml:"id,attr"`
	To      *jid.JID `xml:"to,attr"`
	From    *jid.JID `xml:"from,attr"`
	Lang    string   `xml:"http://www.w3.org/XML/1998/namespace lang,attr,omitempty"`
	Type    IQType   `xml:"type,attr"`
}

// IQType is the type of an IQ stanza.
// It should normally be one of the constants defined in this package.
type IQType string

const (
	// GetIQ is used to query another entity for information.
	GetIQ IQType = "get"

	// SetIQ is used to provide data to another entity, set new values, and
	// replace existing values.
	SetIQ IQType = "set"

	// ResultIQ is sent in response to a successful get or set IQ.
	ResultIQ IQType = "result"

	// ErrorIQ is sent to report that an error occurred during the delivery or
	// processing of a get or set IQ.
	ErrorIQ IQType = "error"
)

// MarshalXMLAttr satisfies the xml.MarshalerAttr interface for IQType.
// It returns ErrEmptyIQType when trying to marshal a IQ stanza with an empty
// type attribute.
func (t IQType) MarshalXMLAttr(name xml.Name) (attr xml.Attr, err error) {
	s := string(t)
	if s == "" {
		return attr, ErrEmptyIQType
	}
	attr.Name = name
	attr.Value = s
	return attr, nil
}

// StartElement returns a start element that can be used to encode the IQ or
// to compare against an element to see if it is an IQ stanza.
func (iq IQ) StartElement() xml.StartElement {
	name := iq.XMLName
	if name.Local == "" {
		name.Local = "iq"
	}
	attrs := make([]xml.Attr, 0, 5)
	if iq.ID != "" {
		attrs = append(attrs, xml.Attr{Name: xml.Name{Local: "id"}, Value: iq.ID})
	}
	if iq.To != nil {
		attrs = append(attrs, xml.Attr{Name: xml.Name{Local: "to"}, Value: iq.To.String()})
	}
	if iq.From != nil {
		attrs = append(attrs, xml.Attr{Name: xml.Name{Local: "from"}, Value: iq.From.String()})
	}
	if iq.Lang != "" {
		attrs = append(attrs, xml.Attr{Name: xml.Name{Space: ns.XML, Local: "lang"}, Value: iq.Lang})
	}
	if iq.Type != "" {
		attrs = append(attrs, xml.Attr{Name: xml.Name{Local: "type"}, Value: string(iq.Type)})
	}
	return xml.StartElement{Name: name, Attr: attrs}
}

// Wrap wraps the payload in the IQ, returning a new token reader.
func (iq IQ) Wrap(payload xml.TokenReader) xml.TokenReader {
	return xmlstream.Wrap(payload, iq.StartElement())
}

// Result returns an IQ of type result addressed to the original sender that
// wraps payload, as a response to iq.
func (iq IQ) Result(payload xml.TokenReader) xml.TokenReader {
	iq.To, iq.From = iq.From, iq.To
	iq.Type = ResultIQ
	return iq.Wrap(payload)
}

// NewIQ constructs an IQ from an already popped start element. It does not
// verify that the start element is an IQ (the local name and namespace are
// not checked) so that it can be used to parse IQs in any namespace.
func NewIQ(start xml.StartElement) (IQ, error) {
	iq := IQ{XMLName: start.Name}
	_, iq.ID = attr.Get(start.Attr, "id")
	if _, to := attr.Get(start.Attr, "to"); to != "" {
		j, err := jid.Parse(to)
		if err != nil {
			return iq, err
		}
		iq.To = j
	}
	if _, from := attr.Get(start.Attr, "from"); from != "" {
		j, err := jid.Parse(from)
		if err != nil {
			return iq, err
		}
		iq.From = j
	}
	iq.Lang = langOf(start.Attr)
	_, typ := attr.Get(start.Attr, "type")
	iq.Type = IQType(typ)
	return iq, nil
}
