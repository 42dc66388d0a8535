// Copyright 2016 Sam Whited.
// Use of this source code is governed by the BSD 2-clause license that can be
// found in the LICENSE file.

package xmpp

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"

	"quietloop.im/xmpp/internal"
	"quietloop.im/xmpp/internal/ns"
	"quietloop.im/xmpp/jid"
	"quietloop.im/xmpp/stream"
)

const (
	bindIQServerGeneratedRP = `<iq id='%s' type='set'><bind xmlns='urn:ietf:params:xml:ns:xmpp-bind'/></iq>`
	bindIQClientRequestedRP = `<iq id='%s' type='set'><bind xmlns='urn:ietf:params:xml:ns:xmpp-bind'><resource>%s</resource></bind></iq>`
)

// requestBind sends a single resource-bind IQ (requesting resource if
// non-empty, or asking the server to generate one otherwise) and waits for
// the matching reply. It returns a nil JID and nil error when the server
// rejected the request with <conflict/>, so the caller can decide whether
// to retry; any other stanza error is returned directly.
func requestBind(ctx context.Context, session *Session, resource string) (*jid.JID, error) {
	conn := session.Conn()
	reqID := internal.RandomID(internal.IDLen)
	var err error
	if resource == "" {
		_, err = fmt.Fprintf(conn, bindIQServerGeneratedRP, reqID)
	} else {
		_, err = fmt.Fprintf(conn, bindIQClientRequestedRP, reqID, resource)
	}
	if err != nil {
		return nil, err
	}

	d := xml.NewTokenDecoder(session)
	tok, err := d.Token()
	if err != nil {
		return nil, err
	}
	start, ok := tok.(xml.StartElement)
	if !ok {
		return nil, stream.BadFormat
	}
	resp := struct {
		IQ
		Bind struct {
			JID *jid.JID `xml:"jid"`
		} `xml:"urn:ietf:params:xml:ns:xmpp-bind bind"`
		Err StanzaError `xml:"error"`
	}{}
	if start.Name != (xml.Name{Space: ns.Client, Local: "iq"}) {
		return nil, stream.BadFormat
	}
	if err = d.DecodeElement(&resp, &start); err != nil {
		return nil, err
	}

	switch {
	case resp.ID != reqID:
		return nil, stream.UndefinedCondition
	case resp.Type == ResultIQ:
		return resp.Bind.JID, nil
	case resp.Type == ErrorIQ && resp.Err.Condition == Conflict:
		return nil, nil
	case resp.Type == ErrorIQ:
		return nil, resp.Err
	default:
		return nil, StanzaError{Condition: BadRequest}
	}
}

// BindResource is a stream feature that can be used for binding a resource.
func BindResource() StreamFeature {
	return StreamFeature{
		Name:       xml.Name{Space: ns.Bind, Local: "bind"},
		Necessary:  Authn,
		Prohibited: Ready,
		List: func(ctx context.Context, e *xml.Encoder, start xml.StartElement) (req bool, err error) {
			req = true
			if err = e.EncodeToken(start); err != nil {
				return req, err
			}
			if err = e.EncodeToken(start.End()); err != nil {
				return req, err
			}

			err = e.Flush()
			return req, err
		},
		Parse: func(ctx context.Context, d *xml.Decoder, start *xml.StartElement) (bool, interface{}, error) {
			parsed := struct {
				XMLName xml.Name `xml:"urn:ietf:params:xml:ns:xmpp-bind bind"`
			}{}
			return true, nil, d.DecodeElement(&parsed, start)
		},
		Negotiate: func(ctx context.Context, session *Session, data interface{}) (mask SessionState, rw io.ReadWriter, err error) {
			if (session.State() & Received) == Received {
				panic("xmpp: bind not yet implemented")
			}

			resource := session.LocalAddr().Resourcepart()
			bound, err := requestBind(ctx, session, resource)
			if err != nil {
				return mask, nil, err
			}
			if bound == nil {
				// RFC 6120 §7.7.1: a server that rejects a client-requested
				// resourcepart (most commonly a conflict with an already-bound
				// session) may still honor a request to generate one itself, so
				// fall back once before giving up.
				if resource == "" {
					return mask, nil, StanzaError{Condition: BadRequest}
				}
				bound, err = requestBind(ctx, session, "")
				if err != nil {
					return mask, nil, err
				}
				if bound == nil {
					return mask, nil, StanzaError{Condition: BadRequest}
				}
			}
			session.SetOrigin(bound)
			return Ready, nil, nil
		},
	}
}
