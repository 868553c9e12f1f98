package oauth

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateCodeVerifierLength(t *testing.T) {
	verifier, err := GenerateCodeVerifier()
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(verifier), 43, "RFC 7636 minimum length")

	// Must survive a URL round trip untouched.
	_, err = base64.RawURLEncoding.DecodeString(verifier)
	require.NoError(t, err)
}

func TestGenerateTokensAreIndependent(t *testing.T) {
	state, err := GenerateState()
	require.NoError(t, err)
	nonce, err := GenerateNonce()
	require.NoError(t, err)
	verifier, err := GenerateCodeVerifier()
	require.NoError(t, err)

	require.NotEqual(t, state, nonce)
	require.NotEqual(t, state, verifier)

	second, err := GenerateState()
	require.NoError(t, err)
	require.NotEqual(t, state, second)
}

func TestChallenge(t *testing.T) {
	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	challenge := Challenge(verifier)

	require.Equal(t, challenge, Challenge(verifier), "challenge must be deterministic")
	require.NotEqual(t, verifier, challenge)
	require.Len(t, challenge, 43, "unpadded base64url of a SHA-256 digest")

	raw, err := base64.RawURLEncoding.DecodeString(challenge)
	require.NoError(t, err)
	require.Len(t, raw, 32)

	other, err := GenerateCodeVerifier()
	require.NoError(t, err)
	require.NotEqual(t, challenge, Challenge(other))
}

// RFC 7636 appendix B vector.
func TestChallengeKnownVector(t *testing.T) {
	require.Equal(t,
		"E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM",
		Challenge("dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"))
}
