// Copyright 2016 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package stream

import (
	"encoding/xml"

	"quietloop.im/xmpp/jid"
)

// Info contains metadata extracted from (or used to construct) a stream start
// token.
//
// The zero value is an Info with no destination, origin, or stream ID set.
type Info struct {
	Name    xml.Name
	To      *jid.JID
	From    *jid.JID
	ID      string
	Version Version
	XMLNS   string
	Lang    string
}
