package oauth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// GenerateCodeVerifier produces a PKCE code verifier per RFC 7636. The 64
// random bytes encode to 86 URL-safe characters, above the 43 minimum.
func GenerateCodeVerifier() (string, error) {
	return secureRandomString(64)
}

// GenerateState produces the CSRF-binding state token for a login attempt.
func GenerateState() (string, error) {
	return secureRandomString(32)
}

// GenerateNonce produces the replay-protection value echoed back in the
// ID token's nonce claim.
func GenerateNonce() (string, error) {
	return secureRandomString(32)
}

// Challenge derives the S256 code challenge. Only the challenge travels in
// the authorization request; the raw verifier is sent solely during the
// token exchange.
func Challenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func secureRandomString(size int) (string, error) {
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
