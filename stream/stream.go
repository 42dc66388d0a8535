// Copyright 2014 Sam Whited.
// Use of this source code is governed by the BSD 2-clause license that can be
// found in the LICENSE file.

package stream

// NS is the namespace of the stream wrapper element itself, eg. the
// <stream:stream> start tag and its matching </stream:stream> end tag, and
// any stream-level errors or features sent as its direct children.
const NS = "http://etherx.jabber.org/streams"
