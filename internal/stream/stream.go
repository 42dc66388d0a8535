// Copyright 2016 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package stream contains internal stream parsing and handling behavior.
package stream // import "quietloop.im/xmpp/internal/stream"

import (
	"bufio"
	"context"
	"encoding/xml"
	"fmt"
	"io"

	"mellium.im/xmlstream"
	"quietloop.im/xmpp/internal/decl"
	"quietloop.im/xmpp/internal/ns"
	"quietloop.im/xmpp/jid"
	"quietloop.im/xmpp/stream"
)

// This MUST only return stream errors.
func streamFromStartElement(s xml.StartElement, ws bool) (stream.Info, error) {
	streamData := stream.Info{
		Name: s.Name,
	}
	for _, attr := range s.Attr {
		switch attr.Name {
		case xml.Name{Space: "", Local: "to"}:
			streamData.To = &jid.JID{}
			if err := streamData.To.UnmarshalXMLAttr(attr); err != nil {
				return streamData, stream.ImproperAddressing
			}
		case xml.Name{Space: "", Local: "from"}:
			streamData.From = &jid.JID{}
			if err := streamData.From.UnmarshalXMLAttr(attr); err != nil {
				return streamData, stream.ImproperAddressing
			}
		case xml.Name{Space: "", Local: "id"}:
			streamData.ID = attr.Value
		case xml.Name{Space: "", Local: "version"}:
			err := (&streamData.Version).UnmarshalXMLAttr(attr)
			if err != nil {
				return streamData, stream.BadFormat
			}
		case xml.Name{Space: "", Local: "xmlns"}:
			if (ws && attr.Value != ns.WS) || (!ws && attr.Value != ns.Client && attr.Value != ns.Server) {
				return streamData, stream.InvalidNamespace
			}
			streamData.XMLNS = attr.Value
		case xml.Name{Space: "xmlns", Local: "stream"}:
			// If we're using the WebSocket subprotocol this will never show up (but
			// if it does, we don't care at all, it's just extra stuff that we won't
			// end up using).
			if !ws && attr.Value != stream.NS {
				return streamData, stream.InvalidNamespace
			}
		case xml.Name{Space: "xml", Local: "lang"}:
			streamData.Lang = attr.Value
		}
	}
	return streamData, nil
}

// Send sends a new XML header followed by a stream start element on the given
// io.Writer.
// We don't use an xml.Encoder both because Go's standard library xml package
// really doesn't like the namespaced stream:stream attribute and because we can
// guarantee well-formedness of the XML with a print in this case and printing
// is much faster than encoding.
//
// On success, out is populated with the information that was sent.
func Send(rw io.ReadWriter, out *stream.Info, s2s, ws bool, version stream.Version, lang, location, origin, id string) error {
	switch s2s {
	case true:
		out.XMLNS = ns.Server
	case false:
		out.XMLNS = ns.Client
	}
	out.Version = version
	out.ID = id

	if id != "" {
		id = `id='` + id + `' `
	}

	b := bufio.NewWriter(rw)
	var err error
	if ws {
		_, err = fmt.Fprintf(b,
			`<open xmlns="urn:ietf:params:xml:ns:xmpp-framing" %sto='%s' from='%s' version='%s'`,
			id,
			location,
			origin,
			version,
		)
	} else {
		_, err = fmt.Fprintf(b,
			decl.XMLHeader+`<stream:stream %sto='%s' from='%s' version='%s'`,
			id,
			location,
			origin,
			version,
		)
	}
	if err != nil {
		return err
	}

	if len(lang) > 0 {
		_, err = b.Write([]byte(" xml:lang='"))
		if err != nil {
			return err
		}
		err = xml.EscapeText(b, []byte(lang))
		if err != nil {
			return err
		}
		_, err = b.Write([]byte("'"))
		if err != nil {
			return err
		}
	}

	if ws {
		_, err = fmt.Fprint(b, `/>`)
	} else {
		_, err = fmt.Fprintf(b, ` xmlns='%s' xmlns:stream='http://etherx.jabber.org/streams'>`,
			out.XMLNS,
		)
	}
	if err != nil {
		return err
	}

	return b.Flush()
}

// Expect reads a token from d and expects that it will be a new stream start
// token.
// If not, an error is returned.
// If an XML header is discovered instead, it is skipped.
//
// On success, in is populated with the information that was parsed from the
// stream start token.
func Expect(ctx context.Context, in *stream.Info, d xml.TokenReader, recv, ws bool) error {
	// Skip the XML declaration (if any).
	d = decl.Skip(d)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		t, err := d.Token()
		if err != nil {
			return err
		}
		switch tok := t.(type) {
		case xml.StartElement:
			switch {
			case tok.Name.Local == "error" && tok.Name.Space == stream.NS:
				se := stream.Error{}
				if err := xml.NewTokenDecoder(d).DecodeElement(&se, &tok); err != nil {
					return err
				}
				return se
			case !ws && tok.Name.Local != "stream":
				return stream.BadFormat
			case ws && tok.Name.Local != "open":
				return stream.BadFormat
			case !ws && tok.Name.Space != stream.NS:
				return stream.InvalidNamespace
			case ws && tok.Name.Space != ns.WS:
				return stream.InvalidNamespace
			case ws && tok.Name.Local == "open" && tok.Name.Space == ns.WS:
				// WebSocket payloads are always full XML documents, so the "open"
				// element is closed as well.
				err = xmlstream.Skip(d)
				if err != nil {
					return err
				}
			}

			streamData, err := streamFromStartElement(tok, ws)
			*in = streamData
			switch {
			case err != nil:
				return err
			case streamData.Version != stream.DefaultVersion:
				return stream.UnsupportedVersion
			}

			if !recv && streamData.ID == "" {
				// if we are the initiating entity and there is no stream ID…
				return stream.BadFormat
			}
			return nil
		case xml.ProcInst:
			return stream.RestrictedXML
		case xml.EndElement:
			return stream.NotWellFormed
		default:
			return stream.RestrictedXML
		}
	}
}
