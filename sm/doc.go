// Copyright 2017 Sam Whited.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package sm implements XEP-0198: Stream Management, an at-least-once
// delivery layer for XMPP stanzas. It buffers outgoing stanzas until the
// peer acknowledges them, tracks how many inbound stanzas have been
// received, and lets a dropped stream be resumed without losing or
// duplicating traffic.
package sm // import "quietloop.im/xmpp/sm"
