// Copyright 2016 Sam Whited.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package sasl

import (
	"crypto/md5" //nolint:gosec // required by the legacy DIGEST-MD5 mechanism (RFC 2831)
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"mellium.im/sasl"
)

// digestMD5State carries the per-exchange values DIGEST-MD5 needs between
// its two challenge rounds; it is threaded through as the Negotiator cache.
type digestMD5State struct {
	domain    string
	cnonce    string
	step      int
	digestURI string
	rspauth   string
}

// DigestMD5 returns the legacy three-round DIGEST-MD5 mechanism (RFC 2831),
// still advertised by some deployments for backward compatibility. It is
// preferred over PLAIN but weaker than any SCRAM variant. domain is the
// XMPP service domain used to build the digest-uri.
func DigestMD5(domain string) sasl.Mechanism {
	return sasl.Mechanism{
		Name: NameDigestMD5,
		Start: func(m *sasl.Negotiator) (bool, []byte, interface{}, error) {
			buf := make([]byte, 16)
			_, _ = rand.Read(buf)
			return true, nil, &digestMD5State{domain: domain, cnonce: hex.EncodeToString(buf)}, nil
		},
		Next: func(m *sasl.Negotiator, challenge []byte, cache interface{}) (bool, []byte, interface{}, error) {
			state, ok := cache.(*digestMD5State)
			if !ok {
				return false, nil, nil, errors.New("sasl: DIGEST-MD5 negotiator lost its exchange state")
			}
			state.step++
			username, password, _ := m.Credentials()
			switch state.step {
			case 1:
				return respondToChallenge(state, username, password, challenge)
			case 2:
				return verifyRspAuth(state, challenge)
			default:
				return false, nil, nil, fmt.Errorf("sasl: DIGEST-MD5 exchange should not exceed two challenges")
			}
		},
	}
}

func respondToChallenge(state *digestMD5State, username, password string, challenge []byte) (bool, []byte, interface{}, error) {
	params := digestUnquotePairs(string(challenge))
	realm := params["realm"]
	if realm == "" {
		realm = state.domain
	}
	nonce := params["nonce"]
	if nonce == "" {
		return false, nil, nil, fmt.Errorf("sasl: DIGEST-MD5 challenge missing nonce")
	}
	qop := params["qop"]
	if qop == "" {
		qop = "auth"
	}

	state.digestURI = "xmpp/" + state.domain

	nc := "00000001"
	a1 := md5Sum([]byte(username + ":" + realm + ":" + password))
	a1Hex := string(a1)
	ha1 := md5Hex([]byte(a1Hex + ":" + nonce + ":" + state.cnonce))
	ha2 := md5Hex([]byte("AUTHENTICATE:" + state.digestURI))

	response := md5Hex([]byte(ha1 + ":" + nonce + ":" + nc + ":" + state.cnonce + ":" + qop + ":" + ha2))
	state.rspauth = expectedRspAuth(ha1, nonce, nc, state.cnonce, qop, state.digestURI)

	pairs := []string{
		`username="` + digestQuote(username) + `"`,
		`realm="` + digestQuote(realm) + `"`,
		`nonce="` + digestQuote(nonce) + `"`,
		`cnonce="` + digestQuote(state.cnonce) + `"`,
		`nc=` + nc,
		`qop=` + qop,
		`digest-uri="` + digestQuote(state.digestURI) + `"`,
		`response=` + response,
		`charset=utf-8`,
	}
	return true, []byte(strings.Join(pairs, ",")), state, nil
}

func verifyRspAuth(state *digestMD5State, challenge []byte) (bool, []byte, interface{}, error) {
	params := digestUnquotePairs(string(challenge))
	got := params["rspauth"]
	if got == "" {
		// Some servers put the bare value without the rspauth= key if the
		// whole challenge is exactly that pair; fall back to raw compare.
		got = strings.TrimSpace(string(challenge))
	}
	if got != state.rspauth {
		return false, nil, nil, fmt.Errorf("sasl: DIGEST-MD5 rspauth mismatch")
	}
	return false, nil, nil, nil
}

func expectedRspAuth(ha1, nonce, nc, cnonce, qop, digestURI string) string {
	ha2 := md5Hex([]byte(":" + digestURI))
	return md5Hex([]byte(ha1 + ":" + nonce + ":" + nc + ":" + cnonce + ":" + qop + ":" + ha2))
}

func md5Sum(b []byte) []byte {
	sum := md5.Sum(b)
	return sum[:]
}

func md5Hex(b []byte) string {
	return hex.EncodeToString(md5Sum(b))
}

// digestUnquotePairs parses a comma-separated list of key=value pairs,
// unquoting double-quoted values and un-escaping \" and \\ within them per
// RFC 2831 §7.2.
func digestUnquotePairs(s string) map[string]string {
	out := make(map[string]string)
	var key, val strings.Builder
	inQuotes := false
	inValue := false
	escaped := false
	flush := func() {
		if key.Len() > 0 {
			out[strings.TrimSpace(key.String())] = val.String()
		}
		key.Reset()
		val.Reset()
		inValue = false
	}
	for _, r := range s {
		switch {
		case escaped:
			val.WriteRune(r)
			escaped = false
		case r == '\\' && inQuotes:
			escaped = true
		case r == '"':
			inQuotes = !inQuotes
		case r == '=' && !inValue && !inQuotes:
			inValue = true
		case r == ',' && !inQuotes:
			flush()
		default:
			if inValue {
				val.WriteRune(r)
			} else {
				key.WriteRune(r)
			}
		}
	}
	flush()
	return out
}

func digestQuote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}
