package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestVerify(t *testing.T) {
	v := NewVerifier("shhh")
	body := []byte(`{"line_items":[{"title":"ATP Membership"}],"customer":{"id":123}}`)

	require.True(t, v.Verify(body, sign("shhh", body)))
	require.False(t, v.Verify(body, sign("other-secret", body)))
	require.False(t, v.Verify(body, ""))
	require.False(t, v.Verify(body, "not base64!!"))
}

// Flipping any single byte of the body must flip the result.
func TestVerifySingleByteSensitivity(t *testing.T) {
	v := NewVerifier("shhh")
	body := []byte(`{"id":42,"customer":{"id":123}}`)
	sig := sign("shhh", body)

	for i := range body {
		mutated := append([]byte(nil), body...)
		mutated[i] ^= 0x01
		require.False(t, v.Verify(mutated, sig), "byte %d", i)
	}
	require.True(t, v.Verify(body, sig))
}

func TestVerifyMissingSecretFailsClosed(t *testing.T) {
	v := NewVerifier("")
	body := []byte(`{}`)

	require.False(t, v.Verify(body, sign("", body)),
		"an unset secret must reject even a matching signature")

	var nilVerifier *Verifier
	require.False(t, nilVerifier.Verify(body, sign("", body)))
}
