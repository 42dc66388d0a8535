// Copyright 2017 Sam Whited.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package sasl2 implements XEP-0388: Extensible SASL Profile, a SASL
// negotiation profile that folds resource binding, stream resumption, and
// fast re-authentication token issuance into the authentication round trip
// instead of requiring them as separate post-auth steps.
//
// BE ADVISED: This API is incomplete and is subject to change.
package sasl2 // import "quietloop.im/xmpp/sasl2"

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"

	"mellium.im/sasl"
	"quietloop.im/xmpp"
	"quietloop.im/xmpp/internal/saslerr"
	"quietloop.im/xmpp/jid"
	"quietloop.im/xmpp/stream"
)

// NS is the namespace used by SASL2 elements.
const NS = "urn:xmpp:sasl:0"

// BindNS is the namespace used by the inline Bind 2 request carried inside
// the SASL2 <authenticate/> payload.
const BindNS = "urn:xmpp:bind:0"

// UserAgent identifies the client software requesting a bind, mirrored back
// by compliant servers in their own logs and session listings.
type UserAgent struct {
	ID      string
	Software string
	Device   string
}

// BindRequest describes the resource-binding and feature negotiation data
// folded into the SASL2 authentication request per XEP-0386/XEP-0388.
type BindRequest struct {
	Agent           UserAgent
	Resource        string
	RequestResumption bool
	RequestToken      bool
	TokenMechanism    string
}

// SASL returns a stream feature that performs SASL2 authentication, piggy
// backing resource binding (and, if requested, stream resumption or a fresh
// fast re-authentication token) onto the single authentication round trip.
// mechanisms is tried in order, same as the classic xmpp.SASL feature.
func SASL(identity, password string, bind BindRequest, mechanisms ...sasl.Mechanism) xmpp.StreamFeature {
	if len(mechanisms) == 0 {
		panic("sasl2: Must specify at least 1 SASL mechanism")
	}
	return xmpp.StreamFeature{
		Name:       xml.Name{Space: NS, Local: "mechanisms"},
		Necessary:  xmpp.Secure,
		Prohibited: xmpp.Authn,
		List: func(ctx context.Context, e *xml.Encoder, start xml.StartElement) (req bool, err error) {
			req = true
			if err = e.EncodeToken(start); err != nil {
				return
			}

			startMechanism := xml.StartElement{Name: xml.Name{Space: "", Local: "mechanism"}}
			for _, m := range mechanisms {
				select {
				case <-ctx.Done():
					return true, ctx.Err()
				default:
				}

				if err = e.EncodeToken(startMechanism); err != nil {
					return
				}
				if err = e.EncodeToken(xml.CharData(m.Name)); err != nil {
					return
				}
				if err = e.EncodeToken(startMechanism.End()); err != nil {
					return
				}
			}
			return req, e.EncodeToken(start.End())
		},
		Parse: func(ctx context.Context, d *xml.Decoder, start *xml.StartElement) (bool, interface{}, error) {
			parsed := struct {
				XMLName xml.Name `xml:"urn:xmpp:sasl:0 mechanisms"`
				List    []string `xml:"urn:xmpp:sasl:0 mechanism"`
			}{}
			err := d.DecodeElement(&parsed, start)
			return true, parsed.List, err
		},
		Negotiate: func(ctx context.Context, session *xmpp.Session, data interface{}) (mask xmpp.SessionState, rw io.ReadWriter, err error) {
			if (session.State() & xmpp.Received) == xmpp.Received {
				panic("sasl2: SASL server not yet implemented")
			}

			conn := session.Conn()
			advertised, _ := data.([]string)

			var selected sasl.Mechanism
		selectmechanism:
			for _, m := range mechanisms {
				for _, name := range advertised {
					if name == m.Name {
						selected = m
						break selectmechanism
					}
				}
			}
			if selected.Name == "" {
				return mask, nil, fmt.Errorf("sasl2: no matching SASL mechanisms found")
			}

			opts := []sasl.Option{
				sasl.Authz(identity),
				sasl.Credentials(session.LocalAddr().Localpart(), password),
				sasl.RemoteMechanisms(advertised...),
			}
			if connState, ok := conn.ConnectionState(); ok {
				opts = append(opts, sasl.ConnState(connState))
			}
			client := sasl.NewClient(selected, opts...)

			more, resp, err := client.Step(nil)
			if err != nil {
				return mask, nil, err
			}
			if len(resp) == 0 {
				resp = []byte{'='}
			}

			if _, err = fmt.Fprintf(conn,
				`<authenticate xmlns='%s' mechanism='%s'>%s<initial-response>%s</initial-response></authenticate>`,
				NS, selected.Name, bind.xml(), resp,
			); err != nil {
				return mask, nil, err
			}

			d := xml.NewTokenDecoder(session)
			for {
				select {
				case <-ctx.Done():
					return mask, nil, ctx.Err()
				default:
				}
				tok, err := d.Token()
				if err != nil {
					return mask, nil, err
				}
				t, ok := tok.(xml.StartElement)
				if !ok {
					return mask, nil, stream.BadFormat
				}
				challenge, success, boundJID, err := decodeSASLStep(d, t)
				if err != nil {
					return mask, nil, err
				}
				if success {
					if len(challenge) > 0 {
						if _, _, verifyErr := client.Step(challenge); verifyErr != nil {
							return mask, nil, verifyErr
						}
					}
					if boundJID != nil {
						session.SetOrigin(boundJID)
					}
					return xmpp.Authn | xmpp.Ready, conn, nil
				}

				if more, resp, err = client.Step(challenge); err != nil {
					return mask, nil, err
				}
				if _, err = fmt.Fprintf(conn,
					`<response xmlns='urn:xmpp:sasl:0'>%s</response>`, resp); err != nil {
					return mask, nil, err
				}
			}
		},
	}
}

// xml renders the inline Bind 2 request element carried alongside the
// authentication mechanism, per XEP-0386.
func (b BindRequest) xml() string {
	if b.Resource == "" && !b.RequestResumption && !b.RequestToken {
		return ""
	}
	s := fmt.Sprintf(`<bind xmlns='%s'>`, BindNS)
	if b.Agent.ID != "" {
		s += fmt.Sprintf(`<user-agent id='%s'>`, b.Agent.ID)
		if b.Agent.Software != "" {
			s += fmt.Sprintf(`<software>%s</software>`, b.Agent.Software)
		}
		if b.Agent.Device != "" {
			s += fmt.Sprintf(`<device>%s</device>`, b.Agent.Device)
		}
		s += `</user-agent>`
	}
	if b.Resource != "" {
		s += fmt.Sprintf(`<resource>%s</resource>`, b.Resource)
	}
	if b.RequestResumption {
		s += `<resume xmlns='urn:xmpp:sm:3'/>`
	}
	if b.RequestToken {
		s += fmt.Sprintf(`<fast xmlns='urn:xmpp:fast:0' mechanism='%s'/>`, b.TokenMechanism)
	}
	s += `</bind>`
	return s
}

// decodeSASLStep decodes one token of the SASL2 authentication exchange. On
// success it also extracts the bound JID from the inline bind response, if
// present.
func decodeSASLStep(d *xml.Decoder, start xml.StartElement) (challenge []byte, success bool, bound *jid.JID, err error) {
	switch start.Name {
	case xml.Name{Space: NS, Local: "challenge"}:
		data := struct {
			Data []byte `xml:",chardata"`
		}{}
		if err = d.DecodeElement(&data, &start); err != nil {
			return nil, false, nil, err
		}
		return data.Data, false, nil, nil
	case xml.Name{Space: NS, Local: "success"}:
		data := struct {
			XMLName     xml.Name `xml:"urn:xmpp:sasl:0 success"`
			AddlData    []byte   `xml:"additional-data"`
			BoundJID    string   `xml:"urn:xmpp:bind:0 bound>jid"`
		}{}
		if err = d.DecodeElement(&data, &start); err != nil {
			return nil, true, nil, err
		}
		var j *jid.JID
		if data.BoundJID != "" {
			if parsed, parseErr := jid.Parse(data.BoundJID); parseErr == nil {
				j = parsed
			}
		}
		return data.AddlData, true, j, nil
	case xml.Name{Space: NS, Local: "failure"}:
		fail := saslerr.Failure{}
		if err = d.DecodeElement(&fail, &start); err != nil {
			return nil, false, nil, err
		}
		return nil, false, nil, fail
	default:
		return nil, false, nil, stream.UnsupportedStanzaType
	}
}
