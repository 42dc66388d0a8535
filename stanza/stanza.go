// Copyright 2016 Sam Whited.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package stanza contains functionality for working with the core XMPP
// stanzas: IQ, message, and presence.
package stanza // import "quietloop.im/xmpp/stanza"

import (
	"encoding/xml"

	"quietloop.im/xmpp/internal/ns"
)

// langOf picks the xml:lang value out of a start element's attributes,
// preferring the namespaced attribute over a bare "lang" local name.
func langOf(attrs []xml.Attr) string {
	var bare string
	for _, a := range attrs {
		if a.Name.Local != "lang" {
			continue
		}
		if a.Name.Space == ns.XML {
			return a.Value
		}
		bare = a.Value
	}
	return bare
}
