// Copyright 2016 Sam Whited.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package sasl

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"hash"
	"strings"

	"mellium.im/sasl"
)

// htHash maps the hash token embedded in an HT-* mechanism name to a
// constructor. Channel bindings that embed TLS-exporter material reuse the
// same hash algorithms as the token HMAC.
func htHash(name string) (func() hash.Hash, bool) {
	switch name {
	case "SHA-1":
		return sha1.New, true
	case "SHA-256":
		return sha256.New, true
	case "SHA-512":
		return sha512.New, true
	}
	return nil, false
}

// HT returns a mechanism that authenticates with a server-issued
// fast-reauthentication token (XEP-0484) instead of a password. The
// exchange is always a single round trip: the client sends
// `username NUL HMAC_<hash>(secret, "Initiator")` as its initial response
// and waits for the server's own <success/> or <failure/>; Next is never
// called, and returns an error if it ever is.
//
// bindingData carries whatever channel-binding material the transport made
// available (nil if none); HT constructs a zero-value Mechanism with no
// Name if the token's channel-binding requirement can't be honored, which
// callers should filter out of the mechanism list they advertise.
func HT(token *HTToken, bindingData []byte) sasl.Mechanism {
	if token == nil || !htBindingSatisfiable(token.Mechanism, bindingData) {
		return sasl.Mechanism{}
	}
	parts := strings.Split(token.Mechanism, "-")
	hashName := "SHA-256"
	if len(parts) >= 3 {
		hashName = strings.Join(parts[1:len(parts)-1], "-")
	}
	newHash, ok := htHash(hashName)
	if !ok {
		return sasl.Mechanism{}
	}

	return sasl.Mechanism{
		Name: token.Mechanism,
		Start: func(m *sasl.Negotiator) (bool, []byte, interface{}, error) {
			username, _, _ := m.Credentials()
			mac := hmac.New(newHash, token.Secret)
			mac.Write([]byte("Initiator"))
			sum := mac.Sum(nil)

			resp := make([]byte, 0, len(username)+1+len(sum))
			resp = append(resp, []byte(username)...)
			resp = append(resp, 0)
			resp = append(resp, sum...)
			return false, resp, nil, nil
		},
		Next: func(m *sasl.Negotiator, challenge []byte, _ interface{}) (bool, []byte, interface{}, error) {
			return false, nil, nil, errors.New("sasl: HT mechanism does not expect a challenge after the initial response")
		},
	}
}
