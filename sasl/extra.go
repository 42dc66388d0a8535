// Copyright 2016 Sam Whited.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package sasl

import "mellium.im/sasl"

// Anonymous returns the ANONYMOUS mechanism (RFC 4505): a single empty
// initial response, no credentials required. It is the fallback of last
// resort, tried only when nothing stronger is advertised.
func Anonymous() sasl.Mechanism {
	return sasl.Mechanism{
		Name: NameAnonymous,
		Start: func(m *sasl.Negotiator) (bool, []byte, interface{}, error) {
			return false, nil, nil, nil
		},
	}
}

// IsProviderToken reports whether name is one of the opaque
// provider-specific bearer token mechanisms ProviderToken can speak.
func IsProviderToken(name string) bool {
	switch name {
	case "X-OAUTH2", "OAUTHBEARER":
		return true
	}
	return false
}

// ProviderToken returns a mechanism that sends an opaque bearer token as
// its initial response and nothing else, for the handful of
// provider-specific mechanisms (X-OAUTH2, OAUTHBEARER) that aren't part of
// the SASL mechanism registry proper. It is tried last, and only for a
// mechanism name the server actually advertised.
func ProviderToken(name, token string) sasl.Mechanism {
	return sasl.Mechanism{
		Name: name,
		Start: func(m *sasl.Negotiator) (bool, []byte, interface{}, error) {
			return false, []byte(token), nil, nil
		},
	}
}
