// Copyright 2016 Sam Whited.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// Package sasl supplies the SASL mechanisms that mellium.im/sasl does not
// ship: the legacy three-round DIGEST-MD5 exchange (RFC 2831), the HT-*
// fast-reauthentication tokens minted by SASL2 servers (XEP-0484), a
// provider-specific opaque bearer token mechanism, and the two SCRAM hash
// variants (SHA-512 and SHA3-512) mellium.im/sasl's exported mechanism set
// stops short of.
//
// Every constructor here returns a mellium.im/sasl.Mechanism and is meant
// to be passed alongside that package's own sasl.Plain, sasl.ScramSha256,
// and friends wherever a mechanism list is built, the same way s2s.TLSAuth
// constructs the EXTERNAL mechanism for server-to-server authentication.
package sasl // import "quietloop.im/xmpp/sasl"
