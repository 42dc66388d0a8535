// Copyright 2016 Sam Whited.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package sasl

import (
	"crypto/sha512"
	"encoding/base64"
	"testing"

	"golang.org/x/crypto/pbkdf2"
	"mellium.im/sasl"
)

func TestScramSHA512RoundTrip(t *testing.T) {
	old := randNonce
	randNonce = func() string { return "clientnonce" }
	defer func() { randNonce = old }()

	client := sasl.NewClient(ScramSHA512(), sasl.Credentials("feste", "hunter2"))
	more, resp, err := client.Step(nil)
	if err != nil {
		t.Fatal(err)
	}
	if !more {
		t.Error("Expected SCRAM to require at least two server round trips")
	}
	if string(resp) != "n,,n=feste,r=clientnonce" {
		t.Errorf("Unexpected client-first message: %q", resp)
	}

	salt := []byte("salt1234")
	serverNonce := "clientnonceSERVER"
	serverFirst := "r=" + serverNonce + ",s=" + base64.StdEncoding.EncodeToString(salt) + ",i=4096"

	more, resp, err = client.Step([]byte(serverFirst))
	if err != nil {
		t.Fatal(err)
	}
	if !more {
		t.Error("Expected a third round to verify the server signature")
	}

	saltedPassword := pbkdf2.Key([]byte("hunter2"), salt, 4096, sha512.Size, sha512.New)
	clientKey := hmacSum(sha512.New, saltedPassword, []byte("Client Key"))
	storedKey := hashSum(sha512.New, clientKey)
	serverKey := hmacSum(sha512.New, saltedPassword, []byte("Server Key"))

	gs2b64 := base64.StdEncoding.EncodeToString([]byte("n,,"))
	clientFinalWithoutProof := "c=" + gs2b64 + ",r=" + serverNonce
	authMessage := "n=feste,r=clientnonce" + "," + serverFirst + "," + clientFinalWithoutProof
	clientSignature := hmacSum(sha512.New, storedKey, []byte(authMessage))
	wantProof := base64.StdEncoding.EncodeToString(xorBytes(clientKey, clientSignature))

	if string(resp) != clientFinalWithoutProof+",p="+wantProof {
		t.Errorf("Unexpected client-final message:\n got: %s\nwant: %s", resp, clientFinalWithoutProof+",p="+wantProof)
	}

	serverSignature := hmacSum(sha512.New, serverKey, []byte(authMessage))
	serverFinal := "v=" + base64.StdEncoding.EncodeToString(serverSignature)

	more, _, err = client.Step([]byte(serverFinal))
	if err != nil {
		t.Fatalf("Expected a matching server signature to verify, got: %v", err)
	}
	if more {
		t.Error("Expected SCRAM to be done after the server-final message")
	}
}

func TestScramSHA512RejectsBadServerSignature(t *testing.T) {
	old := randNonce
	randNonce = func() string { return "clientnonce" }
	defer func() { randNonce = old }()

	client := sasl.NewClient(ScramSHA512(), sasl.Credentials("feste", "hunter2"))
	if _, _, err := client.Step(nil); err != nil {
		t.Fatal(err)
	}
	salt := []byte("salt1234")
	serverFirst := "r=clientnonceSERVER,s=" + base64.StdEncoding.EncodeToString(salt) + ",i=4096"
	if _, _, err := client.Step([]byte(serverFirst)); err != nil {
		t.Fatal(err)
	}
	if _, _, err := client.Step([]byte("v=" + base64.StdEncoding.EncodeToString([]byte("bogus")))); err == nil {
		t.Error("Expected a forged server signature to be rejected")
	}
}

func TestScramEscape(t *testing.T) {
	if got := scramEscape("a=b,c"); got != "a=3Db=2Cc" {
		t.Errorf("Expected a=3Db=2Cc, got %s", got)
	}
}
