// Package webhook validates and decodes inbound commerce-backend webhooks.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

// Verifier checks webhook payload signatures before anything trusts their
// contents.
type Verifier struct {
	secret []byte
}

// NewVerifier constructs a verifier for the shared webhook signing secret.
// An empty secret produces a verifier that rejects everything: missing
// configuration must fail closed, never pass open.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify computes HMAC-SHA256 over the exact raw request body bytes and
// compares against the base64 signature header in constant time. The raw
// bytes must be captured before any JSON parsing; re-serialized JSON is
// not equivalent.
func (v *Verifier) Verify(rawBody []byte, signatureHeader string) bool {
	if v == nil || len(v.secret) == 0 {
		return false
	}
	provided, err := base64.StdEncoding.DecodeString(strings.TrimSpace(signatureHeader))
	if err != nil || len(provided) == 0 {
		return false
	}
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(rawBody)
	return hmac.Equal(provided, mac.Sum(nil))
}
