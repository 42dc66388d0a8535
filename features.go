// Copyright 2016 Sam Whited.
// Use of this source code is governed by the BSD 2-clause license that can be
// found in the LICENSE file.

package xmpp

import (
	"context"
	"encoding/xml"
	"io"

	"quietloop.im/xmpp/internal/ns"
	"quietloop.im/xmpp/stream"
)

// A StreamFeature represents a feature that may be selected during stream
// negotiation. Features should be stateless and usable from multiple
// goroutines unless otherwise specified.
type StreamFeature struct {
	// The XML name of the feature in the <stream:feature/> list. If a start
	// element with this name is seen while the connection is reading the
	// features list, it will trigger this StreamFeature's Parse function.
	Name xml.Name

	// Bits that are required before this feature is advertised. For instance,
	// if this feature should only be advertised after the connection is
	// encrypted we might set this to Secure.
	Necessary SessionState

	// Bits that must be off for this feature to be advertised. For instance,
	// if this feature performs authentication itself we might set this to
	// Authn so that it is not re-advertised once negotiated.
	Prohibited SessionState

	// Used to write the feature into a features list for server connections.
	List func(ctx context.Context, e *xml.Encoder, start xml.StartElement) (req bool, err error)

	// Used to parse the feature that begins with the given xml start element
	// (which has a Name matching this stream feature's Name). Returns whether
	// the feature is required, and any data needed during Negotiate (eg. the
	// list of mechanisms if the feature is SASL).
	Parse func(ctx context.Context, d *xml.Decoder, start *xml.StartElement) (req bool, data interface{}, err error)

	// Negotiate takes over the session temporarily while negotiating the
	// feature. The returned mask is ORed onto the session state once
	// negotiation is complete. If Negotiate returns a non-nil rw, it replaces
	// the session's underlying connection (eg. because STARTTLS wrapped it in
	// a TLS layer) and a stream restart is performed automatically.
	Negotiate func(ctx context.Context, session *Session, data interface{}) (mask SessionState, rw io.ReadWriter, err error)
}

type sfData struct {
	req     bool
	data    interface{}
	feature StreamFeature
}

type streamFeaturesList struct {
	total int
	req   bool
	cache map[xml.Name]sfData
}

// negotiateFeatures reads a <stream:features/> list from the session, parses
// every feature this session knows how to speak, and negotiates one of the
// required features found (or, if none are required, one of the parsed
// features); which one is picked when several qualify is not defined. When the
// list is empty or holds nothing this session supports, it returns the Ready
// mask without negotiating anything.
func negotiateFeatures(ctx context.Context, s *Session, features []StreamFeature) (mask SessionState, rw io.ReadWriter, err error) {
	byName := make(map[xml.Name]StreamFeature, len(features))
	for _, f := range features {
		byName[f.Name] = f
	}

	tok, err := s.in.d.Token()
	if err != nil {
		return mask, nil, err
	}
	start, ok := tok.(xml.StartElement)
	if !ok {
		return mask, nil, stream.BadFormat
	}

	list, err := readStreamFeatures(ctx, s, byName, start)
	switch {
	case err != nil:
		return mask, nil, err
	case list.total == 0 || len(list.cache) == 0:
		// An empty list (or one with nothing we support) means we're done.
		return Ready, nil, nil
	}

	var data sfData
	for _, v := range list.cache {
		if !list.req || v.req {
			data = v
			break
		}
	}

	mask, rw, err = data.feature.Negotiate(ctx, s, data.data)
	return mask, rw, err
}

func readStreamFeatures(ctx context.Context, s *Session, byName map[xml.Name]StreamFeature, start xml.StartElement) (*streamFeaturesList, error) {
	switch {
	case start.Name.Local != "features":
		return nil, stream.InvalidXML
	case start.Name.Space != ns.Stream:
		return nil, stream.BadNamespacePrefix
	}

	sf := &streamFeaturesList{
		cache: make(map[xml.Name]sfData),
	}

	d := xml.NewTokenDecoder(s.in.d)
parsefeatures:
	for {
		t, err := d.Token()
		if err != nil {
			return nil, err
		}
		switch tok := t.(type) {
		case xml.StartElement:
			sf.total++
			if feature, ok := byName[tok.Name]; ok && (s.state&feature.Necessary) == feature.Necessary && (s.state&feature.Prohibited) == 0 {
				req, data, err := feature.Parse(ctx, d, &tok)
				if err != nil {
					return nil, err
				}
				sf.cache[tok.Name] = sfData{req: req, data: data, feature: feature}
				if req {
					sf.req = true
				}
				continue parsefeatures
			}
			if err := d.Skip(); err != nil {
				return nil, err
			}
		case xml.EndElement:
			if tok.Name.Local == "features" && tok.Name.Space == ns.Stream {
				return sf, nil
			}
			return nil, stream.InvalidXML
		default:
			return nil, stream.RestrictedXML
		}
	}
}
